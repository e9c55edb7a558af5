package enrollment

import "time"

type Status string

const (
	StatusPending   Status = "pending" // waiting for its invoice to be paid
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
)

type Enrollment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TrackID   string    `json:"track_id"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// IsOpen reports whether the enrollment still holds the seat of its user in the track.
func (e Enrollment) IsOpen() bool { return e.Status != StatusCancelled }

type NewEnrollment struct {
	TrackID string `json:"track_id" form:"track_id" validate:"required"`
}

type QueryFilter struct {
	UserID  string `query:"-"`
	TrackID string `query:"track_id"`
	Status  Status `query:"status"`
}
