package invoice

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
)

var (
	// errors
	ErrNotFound    = errors.New("invoice not found")
	ErrAlreadyPaid = errors.New("invoice already paid")
	ErrVoid        = errors.New("invoice is void")
)

var NowFunc = time.Now // mockable

type (
	Repository interface {
		CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error)
		GetInvoice(ctx context.Context, id string) (Invoice, error)
		GetInvoiceByEnrollment(ctx context.Context, enrollmentID string) (Invoice, error)
		QueryInvoices(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Invoice, error)
		UpdateInvoice(ctx context.Context, inv Invoice) (Invoice, error)
	}

	Service interface {
		Issue(ctx context.Context, userID, enrollmentID string, amount int64, currency string) (Invoice, error)
		GetByID(ctx context.Context, id string) (Invoice, error)
		GetByEnrollment(ctx context.Context, enrollmentID string) (Invoice, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Invoice, error)
		QueryForUser(ctx context.Context, userID string) ([]Invoice, error)
		MarkPaid(ctx context.Context, id string) (Invoice, error)
		// Void cancels an unpaid invoice. Voiding a void invoice is a no-op.
		Void(ctx context.Context, id string) (Invoice, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Issue(ctx context.Context, userID, enrollmentID string, amount int64, currency string) (Invoice, error) {
	return svc.repo.CreateInvoice(ctx, Invoice{
		UserID:       userID,
		EnrollmentID: enrollmentID,
		Amount:       amount,
		Currency:     currency,
		Status:       StatusUnpaid,
		IssuedAt:     NowFunc().UTC(),
	})
}

func (svc *service) GetByID(ctx context.Context, id string) (Invoice, error) {
	return svc.repo.GetInvoice(ctx, id)
}

func (svc *service) GetByEnrollment(ctx context.Context, enrollmentID string) (Invoice, error) {
	return svc.repo.GetInvoiceByEnrollment(ctx, enrollmentID)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Invoice, error) {
	return svc.repo.QueryInvoices(ctx, filter, ordering)
}

func (svc *service) QueryForUser(ctx context.Context, userID string) ([]Invoice, error) {
	return svc.repo.QueryInvoices(ctx, &QueryFilter{UserID: userID}, []core.DBOrdering{{Field: "issued_at"}})
}

func (svc *service) MarkPaid(ctx context.Context, id string) (Invoice, error) {
	inv, err := svc.repo.GetInvoice(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	switch inv.Status {
	case StatusPaid:
		return Invoice{}, ErrAlreadyPaid
	case StatusVoid:
		return Invoice{}, ErrVoid
	}
	inv.Status = StatusPaid
	inv.PaidAt = null.TimeFrom(NowFunc().UTC())
	return svc.repo.UpdateInvoice(ctx, inv)
}

func (svc *service) Void(ctx context.Context, id string) (Invoice, error) {
	inv, err := svc.repo.GetInvoice(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	switch inv.Status {
	case StatusVoid:
		return inv, nil
	case StatusPaid:
		return Invoice{}, ErrAlreadyPaid
	}
	inv.Status = StatusVoid
	return svc.repo.UpdateInvoice(ctx, inv)
}
