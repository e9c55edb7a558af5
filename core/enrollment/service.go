package enrollment

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/invoice"
	"github.com/trezcool/academia/core/track"
)

var (
	// errors
	ErrNotFound         = errors.New("enrollment not found")
	ErrAlreadyEnrolled  = errors.New("already enrolled in this track")
	ErrTrackUnpublished = errors.New("track is not open for enrollment")
	ErrNotCancellable   = errors.New("enrollment is already cancelled")
)

var NowFunc = time.Now // mockable

type (
	Repository interface {
		CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
		GetEnrollment(ctx context.Context, id string) (Enrollment, error)
		// FindOpenEnrollment returns the enrollment of a user in a track that is not cancelled.
		FindOpenEnrollment(ctx context.Context, userID, trackID string) (Enrollment, error)
		QueryEnrollments(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Enrollment, error)
		UpdateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
	}

	Service interface {
		// Enroll enrolls a user in a published track. Enrollments in free tracks are active right away;
		// the others stay pending until the returned invoice is settled.
		Enroll(ctx context.Context, userID, trackID string) (Enrollment, *invoice.Invoice, error)
		// Cancel cancels an enrollment and voids its unpaid invoice, if any.
		Cancel(ctx context.Context, id string) (Enrollment, error)
		// SettleInvoice marks an invoice paid and activates its enrollment.
		SettleInvoice(ctx context.Context, invoiceID string) (Enrollment, invoice.Invoice, error)
		GetByID(ctx context.Context, id string) (Enrollment, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Enrollment, error)
		QueryForUser(ctx context.Context, userID string) ([]Enrollment, error)
	}

	service struct {
		repo       Repository
		trackSvc   track.Service
		invoiceSvc invoice.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, trackSvc track.Service, invoiceSvc invoice.Service) Service {
	return &service{
		repo:       repo,
		trackSvc:   trackSvc,
		invoiceSvc: invoiceSvc,
	}
}

func (svc *service) Enroll(ctx context.Context, userID, trackID string) (Enrollment, *invoice.Invoice, error) {
	t, err := svc.trackSvc.GetByID(ctx, trackID)
	if err != nil {
		return Enrollment{}, nil, err
	}
	if !t.Published {
		return Enrollment{}, nil, ErrTrackUnpublished
	}

	if _, err = svc.repo.FindOpenEnrollment(ctx, userID, t.ID); err == nil {
		return Enrollment{}, nil, ErrAlreadyEnrolled
	} else if errors.Cause(err) != ErrNotFound {
		return Enrollment{}, nil, errors.Wrap(err, "finding open enrollment")
	}

	now := NowFunc().UTC()
	e := Enrollment{
		UserID:    userID,
		TrackID:   t.ID,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if !t.IsFree() {
		e.Status = StatusPending
	}
	if e, err = svc.repo.CreateEnrollment(ctx, e); err != nil {
		return Enrollment{}, nil, errors.Wrap(err, "creating enrollment")
	}
	if t.IsFree() {
		return e, nil, nil
	}

	inv, err := svc.invoiceSvc.Issue(ctx, userID, e.ID, t.Price, t.Currency)
	if err != nil {
		return Enrollment{}, nil, errors.Wrap(err, "issuing invoice")
	}
	return e, &inv, nil
}

func (svc *service) Cancel(ctx context.Context, id string) (Enrollment, error) {
	e, err := svc.repo.GetEnrollment(ctx, id)
	if err != nil {
		return Enrollment{}, err
	}
	if !e.IsOpen() {
		return Enrollment{}, ErrNotCancellable
	}

	inv, err := svc.invoiceSvc.GetByEnrollment(ctx, e.ID)
	switch {
	case err == nil:
		if inv.IsUnpaid() {
			if _, err = svc.invoiceSvc.Void(ctx, inv.ID); err != nil {
				return Enrollment{}, errors.Wrap(err, "voiding invoice")
			}
		}
	case errors.Cause(err) != invoice.ErrNotFound:
		return Enrollment{}, errors.Wrap(err, "finding invoice")
	}

	e.Status = StatusCancelled
	e.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateEnrollment(ctx, e)
}

func (svc *service) SettleInvoice(ctx context.Context, invoiceID string) (Enrollment, invoice.Invoice, error) {
	inv, err := svc.invoiceSvc.MarkPaid(ctx, invoiceID)
	if err != nil {
		return Enrollment{}, invoice.Invoice{}, err
	}

	e, err := svc.repo.GetEnrollment(ctx, inv.EnrollmentID)
	if err != nil {
		return Enrollment{}, invoice.Invoice{}, errors.Wrap(err, "finding enrollment")
	}
	if e.Status == StatusPending {
		e.Status = StatusActive
		e.UpdatedAt = NowFunc().UTC()
		if e, err = svc.repo.UpdateEnrollment(ctx, e); err != nil {
			return Enrollment{}, invoice.Invoice{}, errors.Wrap(err, "activating enrollment")
		}
	}
	return e, inv, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Enrollment, error) {
	return svc.repo.GetEnrollment(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Enrollment, error) {
	return svc.repo.QueryEnrollments(ctx, filter, ordering)
}

func (svc *service) QueryForUser(ctx context.Context, userID string) ([]Enrollment, error) {
	return svc.repo.QueryEnrollments(ctx, &QueryFilter{UserID: userID}, []core.DBOrdering{{Field: "created_at"}})
}
