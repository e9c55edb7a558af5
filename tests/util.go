// Package testutil holds fixtures shared by the package tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	ut "github.com/go-playground/universal-translator"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/track"
	"github.com/trezcool/academia/core/user"
)

// NewValidator returns a validator & translator with every custom validation registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateTrack(t *testing.T, repo track.Repository, slug, title string, price int64, published bool, courses ...string) track.Track {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	trk, err := repo.CreateTrack(ctx, track.Track{
		Slug:      slug,
		Title:     title,
		Price:     price,
		Currency:  track.DefaultCurrency,
		Published: published,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateTrack() failed: %v", err)
	}
	for i, title := range courses {
		c, err := repo.CreateCourse(ctx, track.Course{TrackID: trk.ID, Title: title, Position: i, CreatedAt: now})
		if err != nil {
			t.Fatalf("CreateTrack() failed: %v", err)
		}
		trk.Courses = append(trk.Courses, c)
	}
	return trk
}
