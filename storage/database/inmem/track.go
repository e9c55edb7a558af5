package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/track"
)

type trackRepository struct {
	db *trackTable
}

var _ track.Repository = (*trackRepository)(nil)

func NewTrackRepository(db *DB) track.Repository {
	return &trackRepository{db: db.track}
}

func (repo *trackRepository) CheckSlugUniqueness(_ context.Context, slug string, excludedTracks ...track.Track) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, t := range repo.db.table {
		if t.Slug != slug {
			continue
		}
		var excluded bool
		for _, et := range excludedTracks {
			excluded = excluded || et.ID == t.ID
		}
		if !excluded {
			return track.ErrSlugExists
		}
	}
	return nil
}

func (repo *trackRepository) CreateTrack(_ context.Context, t track.Track) (track.Track, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	t.ID = uuid.New().String()
	t.Courses = nil
	repo.db.table[t.ID] = &t
	return t, nil
}

func (repo *trackRepository) QueryTracks(_ context.Context, filter *track.QueryFilter, ordering []core.DBOrdering) ([]track.Track, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	tracks := make([]track.Track, 0, len(repo.db.table))
	for _, t := range repo.db.table {
		if filter != nil {
			if filter.Published != nil && t.Published != *filter.Published {
				continue
			}
			search := strings.ToLower(filter.Search)
			if search != "" && !strings.Contains(strings.ToLower(t.Title), search) && !strings.Contains(t.Slug, search) {
				continue
			}
		}
		tracks = append(tracks, *t)
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "title", Ascending: true}}
	}
	sortBy(tracks, ordering, map[string]lessFunc{
		"title":      func(i, j int) (bool, bool) { return tracks[i].Title < tracks[j].Title, tracks[i].Title == tracks[j].Title },
		"slug":       func(i, j int) (bool, bool) { return tracks[i].Slug < tracks[j].Slug, tracks[i].Slug == tracks[j].Slug },
		"price":      func(i, j int) (bool, bool) { return tracks[i].Price < tracks[j].Price, tracks[i].Price == tracks[j].Price },
		"created_at": func(i, j int) (bool, bool) { return tracks[i].CreatedAt.Before(tracks[j].CreatedAt), tracks[i].CreatedAt.Equal(tracks[j].CreatedAt) },
	})
	return tracks, nil
}

func (repo *trackRepository) GetTrack(_ context.Context, filter track.GetFilter) (track.Track, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if t, ok := repo.db.table[filter.ID]; ok {
			return *t, nil
		}
		return track.Track{}, track.ErrNotFound
	}
	for _, t := range repo.db.table {
		if filter.Slug != "" && t.Slug == filter.Slug {
			return *t, nil
		}
	}
	return track.Track{}, track.ErrNotFound
}

func (repo *trackRepository) UpdateTrack(_ context.Context, t track.Track) (track.Track, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[t.ID]; !ok {
		return track.Track{}, track.ErrNotFound
	}
	t.Courses = nil
	repo.db.table[t.ID] = &t
	return t, nil
}

func (repo *trackRepository) DeleteTrack(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return track.ErrNotFound
	}
	delete(repo.db.table, id)
	delete(repo.db.courses, id)
	return nil
}

func (repo *trackRepository) CreateCourse(_ context.Context, c track.Course) (track.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[c.TrackID]; !ok {
		return track.Course{}, track.ErrNotFound
	}
	c.ID = uuid.New().String()
	repo.db.courses[c.TrackID] = append(repo.db.courses[c.TrackID], c)
	return c, nil
}

func (repo *trackRepository) QueryCourses(_ context.Context, trackID string) ([]track.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := append([]track.Course{}, repo.db.courses[trackID]...)
	sort.SliceStable(courses, func(i, j int) bool { return courses[i].Position < courses[j].Position })
	return courses, nil
}
