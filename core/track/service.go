package track

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var (
	// errors
	ErrNotFound   = errors.New("track not found")
	ErrSlugExists = errors.New("a track with this slug already exists")
)

var NowFunc = time.Now // mockable

type (
	Repository interface {
		// CheckSlugUniqueness returns ErrSlugExists when a track (not in excludedTracks) already has the given slug.
		CheckSlugUniqueness(ctx context.Context, slug string, excludedTracks ...Track) error
		CreateTrack(ctx context.Context, t Track) (Track, error)
		QueryTracks(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Track, error)
		GetTrack(ctx context.Context, filter GetFilter) (Track, error)
		UpdateTrack(ctx context.Context, t Track) (Track, error)
		DeleteTrack(ctx context.Context, id string) error
		CreateCourse(ctx context.Context, c Course) (Course, error)
		// QueryCourses returns the courses of a track ordered by position.
		QueryCourses(ctx context.Context, trackID string) ([]Course, error)
	}

	Service interface {
		CheckUniqueness(ctx context.Context, slug string, excludedTracks ...Track) error
		Create(ctx context.Context, nt NewTrack) (Track, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Track, error)
		// GetByID returns the track with its courses.
		GetByID(ctx context.Context, id string) (Track, error)
		GetBySlug(ctx context.Context, slug string) (Track, error)
		Update(ctx context.Context, t Track, ut UpdateTrack) (Track, error)
		Delete(ctx context.Context, id string) error
		AddCourse(ctx context.Context, trackID string, nc NewCourse) (Course, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) CheckUniqueness(ctx context.Context, slug string, excludedTracks ...Track) error {
	if err := svc.repo.CheckSlugUniqueness(ctx, slug, excludedTracks...); err != nil {
		if errors.Cause(err) == ErrSlugExists {
			return core.NewValidationError(err, core.FieldError{Field: "slug", Error: ErrSlugExists.Error()})
		}
		return errors.Wrap(err, "checking slug uniqueness")
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nt NewTrack) (Track, error) {
	now := NowFunc().UTC()
	t := Track{
		Slug:        nt.Slug,
		Title:       nt.Title,
		Description: nt.Description,
		Price:       nt.Price,
		Currency:    nt.Currency,
		Published:   nt.Published,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.Currency == "" {
		t.Currency = DefaultCurrency
	}
	return svc.repo.CreateTrack(ctx, t)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Track, error) {
	return svc.repo.QueryTracks(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (Track, error) {
	t, err := svc.repo.GetTrack(ctx, GetFilter{ID: id})
	if err != nil {
		return Track{}, err
	}
	if t.Courses, err = svc.repo.QueryCourses(ctx, t.ID); err != nil {
		return Track{}, errors.Wrap(err, "querying courses")
	}
	return t, nil
}

func (svc *service) GetBySlug(ctx context.Context, slug string) (Track, error) {
	slug = core.CleanString(slug, true /* lower */)
	if slug == "" {
		return Track{}, ErrNotFound
	}
	return svc.repo.GetTrack(ctx, GetFilter{Slug: slug})
}

func (svc *service) Update(ctx context.Context, t Track, ut UpdateTrack) (Track, error) {
	t.Title = ut.Title
	t.Currency = ut.Currency
	if ut.Description != nil {
		t.Description = core.CleanString(*ut.Description)
	}
	if ut.Price != nil {
		t.Price = *ut.Price
	}
	if ut.Published != nil {
		t.Published = *ut.Published
	}
	t.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateTrack(ctx, t)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteTrack(ctx, id)
}

func (svc *service) AddCourse(ctx context.Context, trackID string, nc NewCourse) (Course, error) {
	if _, err := svc.repo.GetTrack(ctx, GetFilter{ID: trackID}); err != nil {
		return Course{}, err
	}
	return svc.repo.CreateCourse(ctx, Course{
		TrackID:   trackID,
		Title:     nc.Title,
		Position:  nc.Position,
		CreatedAt: NowFunc().UTC(),
	})
}
