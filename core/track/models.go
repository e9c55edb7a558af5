package track

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

const DefaultCurrency = "USD"

// Track is a priced group of courses students enroll in.
type Track struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       int64     `json:"price"` // minor units (eg. cents)
	Currency    string    `json:"currency"`
	Published   bool      `json:"published"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
	Courses     []Course  `json:"courses,omitempty"`
}

func (t Track) IsFree() bool { return t.Price == 0 }

type Course struct {
	ID        string    `json:"id"`
	TrackID   string    `json:"track_id"`
	Title     string    `json:"title"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type NewTrack struct {
	Slug        string `json:"slug" validate:"required,max=64,slug"`
	Title       string `json:"title" validate:"required,max=128"`
	Description string `json:"description"`
	Price       int64  `json:"price" validate:"gte=0"`
	Currency    string `json:"currency" validate:"omitempty,len=3,alpha"`
	Published   bool   `json:"published"`
}

func (nt *NewTrack) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nt.Slug = core.CleanString(nt.Slug, true /* lower */)
	nt.Title = core.CleanString(nt.Title)
	nt.Description = core.CleanString(nt.Description)
	nt.Currency = cleanCurrency(nt.Currency)

	if err := validate.Struct(nt); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nt.Slug)
}

type UpdateTrack struct {
	Title       string  `json:"title" validate:"max=128"`
	Description *string `json:"description"`
	Price       *int64  `json:"price" validate:"omitempty,gte=0"`
	Currency    string  `json:"currency" validate:"omitempty,len=3,alpha"`
	Published   *bool   `json:"published"`
}

func (ut *UpdateTrack) Validate(origTrack Track, validate *validator.Validate) error {
	if title := core.CleanString(ut.Title); title != "" {
		ut.Title = title
	} else {
		ut.Title = origTrack.Title
	}
	if cur := cleanCurrency(ut.Currency); cur != "" {
		ut.Currency = cur
	} else {
		ut.Currency = origTrack.Currency
	}
	return validate.Struct(ut)
}

type NewCourse struct {
	Title    string `json:"title" validate:"required,max=128"`
	Position int    `json:"position" validate:"gte=0"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	return validate.Struct(nc)
}

type QueryFilter struct {
	Search    string `query:"search"`
	Published *bool  `query:"published"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// GetFilter selects a single Track; the first non-empty field wins.
type GetFilter struct {
	ID   string
	Slug string
}

func cleanCurrency(cur string) string {
	cur = core.CleanString(cur)
	return strings.ToUpper(cur)
}
