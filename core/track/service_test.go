package track_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/track"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
	testutil "github.com/trezcool/academia/tests"
)

func TestNewTrack_Validate(t *testing.T) {
	ctx := context.Background()
	validate, _ := testutil.NewValidator()
	repo := inmemdb.NewTrackRepository(inmemdb.Open())
	svc := track.NewService(repo)
	testutil.CreateTrack(t, repo, "go-basics", "Go Basics", 0, true)

	tests := []struct {
		name      string
		nt        track.NewTrack
		wantField string
		wantSlug  string
	}{
		{name: "valid", nt: track.NewTrack{Slug: " Go-Advanced ", Title: "Go Advanced", Currency: "eur"}, wantSlug: "go-advanced"},
		{name: "slug taken", nt: track.NewTrack{Slug: "GO-BASICS", Title: "Again"}, wantField: "slug"},
		{name: "bad slug", nt: track.NewTrack{Slug: "go basics!", Title: "Oops"}, wantField: "slug"},
		{name: "no title", nt: track.NewTrack{Slug: "untitled"}, wantField: "title"},
		{name: "negative price", nt: track.NewTrack{Slug: "cheap", Title: "Cheap", Price: -1}, wantField: "price"},
		{name: "bad currency", nt: track.NewTrack{Slug: "euros", Title: "Euros", Currency: "EURO"}, wantField: "currency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nt.Validate(ctx, validate, svc)
			if tt.wantField == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.wantSlug, tt.nt.Slug)
				assert.Equal(t, "EUR", tt.nt.Currency)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantField)
		})
	}
}

func TestService_CheckUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := inmemdb.NewTrackRepository(inmemdb.Open())
	svc := track.NewService(repo)
	trk := testutil.CreateTrack(t, repo, "go-basics", "Go Basics", 0, true)

	err := svc.CheckUniqueness(ctx, "go-basics")
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))
	require.Len(t, vErr.Fields, 1)
	assert.Equal(t, "slug", vErr.Fields[0].Field)

	assert.NoError(t, svc.CheckUniqueness(ctx, "go-basics", trk))
	assert.NoError(t, svc.CheckUniqueness(ctx, "rust-basics"))
}

func TestService_Courses(t *testing.T) {
	ctx := context.Background()
	validate, _ := testutil.NewValidator()
	svc := track.NewService(inmemdb.NewTrackRepository(inmemdb.Open()))

	trk, err := svc.Create(ctx, track.NewTrack{Slug: "go", Title: "Go", Price: 4999})
	require.NoError(t, err)
	assert.Equal(t, track.DefaultCurrency, trk.Currency)
	assert.False(t, trk.IsFree())

	for _, nc := range []track.NewCourse{
		{Title: "  Concurrency ", Position: 2},
		{Title: "Syntax", Position: 0},
		{Title: "Types", Position: 1},
	} {
		require.NoError(t, nc.Validate(validate))
		_, err = svc.AddCourse(ctx, trk.ID, nc)
		require.NoError(t, err)
	}

	_, err = svc.AddCourse(ctx, "nope", track.NewCourse{Title: "Lost"})
	assert.Equal(t, track.ErrNotFound, errors.Cause(err))

	got, err := svc.GetByID(ctx, trk.ID)
	require.NoError(t, err)
	titles := make([]string, 0, len(got.Courses))
	for _, c := range got.Courses {
		titles = append(titles, c.Title)
	}
	assert.Equal(t, []string{"Syntax", "Types", "Concurrency"}, titles)
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	validate, _ := testutil.NewValidator()
	repo := inmemdb.NewTrackRepository(inmemdb.Open())
	svc := track.NewService(repo)
	trk := testutil.CreateTrack(t, repo, "go", "Go", 0, false)

	price, published := int64(1000), true
	ut := track.UpdateTrack{Price: &price, Published: &published, Currency: "gbp"}
	require.NoError(t, ut.Validate(trk, validate))

	got, err := svc.Update(ctx, trk, ut)
	require.NoError(t, err)
	assert.Equal(t, "Go", got.Title)
	assert.Equal(t, "GBP", got.Currency)
	assert.Equal(t, int64(1000), got.Price)
	assert.True(t, got.Published)

	bySlug, err := svc.GetBySlug(ctx, " GO ")
	require.NoError(t, err)
	assert.Equal(t, trk.ID, bySlug.ID)

	require.NoError(t, svc.Delete(ctx, trk.ID))
	_, err = svc.GetByID(ctx, trk.ID)
	assert.Equal(t, track.ErrNotFound, errors.Cause(err))
}
