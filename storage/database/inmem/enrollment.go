package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/enrollment"
)

type enrollmentRepository struct {
	db *enrollmentTable
}

var _ enrollment.Repository = (*enrollmentRepository)(nil)

func NewEnrollmentRepository(db *DB) enrollment.Repository {
	return &enrollmentRepository{db: db.enrollment}
}

func (repo *enrollmentRepository) CreateEnrollment(_ context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	e.ID = uuid.New().String()
	repo.db.table[e.ID] = &e
	return e, nil
}

func (repo *enrollmentRepository) GetEnrollment(_ context.Context, id string) (enrollment.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if e, ok := repo.db.table[id]; ok {
		return *e, nil
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) FindOpenEnrollment(_ context.Context, userID, trackID string) (enrollment.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, e := range repo.db.table {
		if e.UserID == userID && e.TrackID == trackID && e.IsOpen() {
			return *e, nil
		}
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) QueryEnrollments(_ context.Context, filter *enrollment.QueryFilter, ordering []core.DBOrdering) ([]enrollment.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	enrollments := make([]enrollment.Enrollment, 0, len(repo.db.table))
	for _, e := range repo.db.table {
		if filter != nil {
			if (filter.UserID != "" && e.UserID != filter.UserID) ||
				(filter.TrackID != "" && e.TrackID != filter.TrackID) ||
				(filter.Status != "" && e.Status != filter.Status) {
				continue
			}
		}
		enrollments = append(enrollments, *e)
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	sortBy(enrollments, ordering, map[string]lessFunc{
		"status": func(i, j int) (bool, bool) {
			return enrollments[i].Status < enrollments[j].Status, enrollments[i].Status == enrollments[j].Status
		},
		"created_at": func(i, j int) (bool, bool) {
			return enrollments[i].CreatedAt.Before(enrollments[j].CreatedAt), enrollments[i].CreatedAt.Equal(enrollments[j].CreatedAt)
		},
	})
	return enrollments, nil
}

func (repo *enrollmentRepository) UpdateEnrollment(_ context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[e.ID]; !ok {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	repo.db.table[e.ID] = &e
	return e, nil
}
