package invoice

import (
	"time"

	"github.com/volatiletech/null/v8"
)

type Status string

const (
	StatusUnpaid Status = "unpaid"
	StatusPaid   Status = "paid"
	StatusVoid   Status = "void"
)

type Invoice struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	EnrollmentID string    `json:"enrollment_id"`
	Amount       int64     `json:"amount"` // minor units
	Currency     string    `json:"currency"`
	Status       Status    `json:"status"`
	IssuedAt     time.Time `json:"issued_at"` // UTC
	PaidAt       null.Time `json:"paid_at"`   // UTC
}

func (inv Invoice) IsUnpaid() bool { return inv.Status == StatusUnpaid }

type QueryFilter struct {
	UserID string `query:"-"`
	Status Status `query:"status"`
}
