package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/enrollment"
)

const enrollmentColumns = `id, user_id, track_id, status, created_at, updated_at`

type enrollmentRow struct {
	ID        string            `db:"id"`
	UserID    string            `db:"user_id"`
	TrackID   string            `db:"track_id"`
	Status    enrollment.Status `db:"status"`
	CreatedAt time.Time         `db:"created_at"`
	UpdatedAt time.Time         `db:"updated_at"`
}

func (row enrollmentRow) enrollment() enrollment.Enrollment {
	e := enrollment.Enrollment(row)
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return e
}

type enrollmentRepository struct {
	db *sqlx.DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *sqlx.DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

func (repo enrollmentRepository) CreateEnrollment(ctx context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	e.ID = uuid.New().String()
	row := enrollmentRow(e)
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO enrollment (`+enrollmentColumns+`)
		VALUES (:id, :user_id, :track_id, :status, :created_at, :updated_at)`, row)
	if err != nil {
		if isUniqueViolation(err, "enrollment_open_seat_idx") {
			return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
		}
		return enrollment.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return row.enrollment(), nil
}

func (repo enrollmentRepository) GetEnrollment(ctx context.Context, id string) (enrollment.Enrollment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	var row enrollmentRow
	q := `SELECT ` + enrollmentColumns + ` FROM enrollment WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return enrollment.Enrollment{}, trapNoRowsErr(err, enrollment.ErrNotFound, "finding enrollment")
	}
	return row.enrollment(), nil
}

func (repo enrollmentRepository) FindOpenEnrollment(ctx context.Context, userID, trackID string) (enrollment.Enrollment, error) {
	var row enrollmentRow
	q := `SELECT ` + enrollmentColumns + ` FROM enrollment WHERE user_id = $1 AND track_id = $2 AND status <> $3 LIMIT 1`
	if err := repo.db.GetContext(ctx, &row, q, userID, trackID, enrollment.StatusCancelled); err != nil {
		return enrollment.Enrollment{}, trapNoRowsErr(err, enrollment.ErrNotFound, "finding open enrollment")
	}
	return row.enrollment(), nil
}

func (repo enrollmentRepository) QueryEnrollments(ctx context.Context, filter *enrollment.QueryFilter, ordering []core.DBOrdering) ([]enrollment.Enrollment, error) {
	var w where
	if filter != nil {
		if filter.UserID != "" {
			w.add("user_id = ?", filter.UserID)
		}
		if filter.TrackID != "" {
			if _, err := uuid.Parse(filter.TrackID); err != nil {
				return []enrollment.Enrollment{}, nil
			}
			w.add("track_id = ?", filter.TrackID)
		}
		if filter.Status != "" {
			w.add("status = ?", filter.Status)
		}
	}

	q := `SELECT ` + enrollmentColumns + ` FROM enrollment` + w.String() +
		orderBy(ordering, "created_at DESC", "status", "created_at")

	var rows []enrollmentRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	enrollments := make([]enrollment.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrollments = append(enrollments, row.enrollment())
	}
	return enrollments, nil
}

func (repo enrollmentRepository) UpdateEnrollment(ctx context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	row := enrollmentRow(e)
	res, err := repo.db.NamedExecContext(ctx, `UPDATE enrollment SET status = :status, updated_at = :updated_at WHERE id = :id`, row)
	if err != nil {
		if isUniqueViolation(err, "enrollment_open_seat_idx") {
			return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
		}
		return enrollment.Enrollment{}, errors.Wrap(err, "updating enrollment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	return row.enrollment(), nil
}
