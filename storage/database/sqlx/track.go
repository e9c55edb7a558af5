package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/track"
)

const (
	trackColumns  = `id, slug, title, description, price, currency, published, created_at, updated_at`
	courseColumns = `id, track_id, title, position, created_at`
)

type trackRow struct {
	ID          string    `db:"id"`
	Slug        string    `db:"slug"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Price       int64     `db:"price"`
	Currency    string    `db:"currency"`
	Published   bool      `db:"published"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func toTrackRow(t track.Track) trackRow {
	return trackRow{
		ID:          t.ID,
		Slug:        t.Slug,
		Title:       t.Title,
		Description: t.Description,
		Price:       t.Price,
		Currency:    t.Currency,
		Published:   t.Published,
		CreatedAt:   t.CreatedAt.UTC(),
		UpdatedAt:   t.UpdatedAt.UTC(),
	}
}

func (row trackRow) track() track.Track {
	return track.Track{
		ID:          row.ID,
		Slug:        row.Slug,
		Title:       row.Title,
		Description: row.Description,
		Price:       row.Price,
		Currency:    row.Currency,
		Published:   row.Published,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

type courseRow struct {
	ID        string    `db:"id"`
	TrackID   string    `db:"track_id"`
	Title     string    `db:"title"`
	Position  int       `db:"position"`
	CreatedAt time.Time `db:"created_at"`
}

type trackRepository struct {
	db *sqlx.DB
}

var _ track.Repository = (*trackRepository)(nil) // interface compliance check

func NewTrackRepository(db *sqlx.DB) track.Repository {
	return &trackRepository{db: db}
}

func (repo trackRepository) CheckSlugUniqueness(ctx context.Context, slug string, excludedTracks ...track.Track) error {
	var w where
	w.add("slug = ?", slug)
	for _, t := range excludedTracks {
		w.add("id <> ?", t.ID)
	}

	var exists bool
	q := repo.db.Rebind(`SELECT EXISTS (SELECT 1 FROM track` + w.String() + `)`)
	if err := repo.db.GetContext(ctx, &exists, q, w.args...); err != nil {
		return errors.Wrap(err, "checking track slug uniqueness")
	}
	if exists {
		return track.ErrSlugExists
	}
	return nil
}

func (repo trackRepository) CreateTrack(ctx context.Context, t track.Track) (track.Track, error) {
	t.ID = uuid.New().String()
	row := toTrackRow(t)
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO track (`+trackColumns+`)
		VALUES (:id, :slug, :title, :description, :price, :currency, :published, :created_at, :updated_at)`, row)
	if err != nil {
		if isUniqueViolation(err, "track_slug_key") {
			return track.Track{}, track.ErrSlugExists
		}
		return track.Track{}, errors.Wrap(err, "inserting track")
	}
	return row.track(), nil
}

func (repo trackRepository) QueryTracks(ctx context.Context, filter *track.QueryFilter, ordering []core.DBOrdering) ([]track.Track, error) {
	var w where
	if filter != nil {
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			w.add("(title ILIKE ? OR slug ILIKE ?)", val, val)
		}
		if filter.Published != nil {
			w.add("published = ?", *filter.Published)
		}
	}

	q := `SELECT ` + trackColumns + ` FROM track` + w.String() +
		orderBy(ordering, "title ASC", "title", "slug", "price", "created_at")

	var rows []trackRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying tracks")
	}
	tracks := make([]track.Track, 0, len(rows))
	for _, row := range rows {
		tracks = append(tracks, row.track())
	}
	return tracks, nil
}

func (repo trackRepository) GetTrack(ctx context.Context, filter track.GetFilter) (track.Track, error) {
	var w where
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return track.Track{}, track.ErrNotFound
		}
		w.add("id = ?", filter.ID)
	case filter.Slug != "":
		w.add("slug = ?", filter.Slug)
	default:
		return track.Track{}, track.ErrNotFound
	}

	var row trackRow
	q := repo.db.Rebind(`SELECT ` + trackColumns + ` FROM track` + w.String())
	if err := repo.db.GetContext(ctx, &row, q, w.args...); err != nil {
		return track.Track{}, trapNoRowsErr(err, track.ErrNotFound, "finding track")
	}
	return row.track(), nil
}

func (repo trackRepository) UpdateTrack(ctx context.Context, t track.Track) (track.Track, error) {
	row := toTrackRow(t)
	res, err := repo.db.NamedExecContext(ctx, `UPDATE track SET
		slug = :slug, title = :title, description = :description, price = :price, currency = :currency,
		published = :published, updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		if isUniqueViolation(err, "track_slug_key") {
			return track.Track{}, track.ErrSlugExists
		}
		return track.Track{}, errors.Wrap(err, "updating track")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return track.Track{}, track.ErrNotFound
	}
	updated := row.track()
	updated.Courses = t.Courses
	return updated, nil
}

func (repo trackRepository) DeleteTrack(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return track.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM track WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting track")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return track.ErrNotFound
	}
	return nil
}

func (repo trackRepository) CreateCourse(ctx context.Context, c track.Course) (track.Course, error) {
	c.ID = uuid.New().String()
	c.CreatedAt = c.CreatedAt.UTC()
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO course (`+courseColumns+`)
		VALUES (:id, :track_id, :title, :position, :created_at)`, courseRow(c))
	if err != nil {
		return track.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (repo trackRepository) QueryCourses(ctx context.Context, trackID string) ([]track.Course, error) {
	var rows []courseRow
	q := `SELECT ` + courseColumns + ` FROM course WHERE track_id = $1 ORDER BY position ASC, created_at ASC`
	if err := repo.db.SelectContext(ctx, &rows, q, trackID); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]track.Course, 0, len(rows))
	for _, row := range rows {
		row.CreatedAt = row.CreatedAt.UTC()
		courses = append(courses, track.Course(row))
	}
	return courses, nil
}
