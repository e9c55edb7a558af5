package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/invoice"
)

type invoiceRepository struct {
	db *invoiceTable
}

var _ invoice.Repository = (*invoiceRepository)(nil)

func NewInvoiceRepository(db *DB) invoice.Repository {
	return &invoiceRepository{db: db.invoice}
}

func (repo *invoiceRepository) CreateInvoice(_ context.Context, inv invoice.Invoice) (invoice.Invoice, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	inv.ID = uuid.New().String()
	repo.db.table[inv.ID] = &inv
	return inv, nil
}

func (repo *invoiceRepository) GetInvoice(_ context.Context, id string) (invoice.Invoice, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if inv, ok := repo.db.table[id]; ok {
		return *inv, nil
	}
	return invoice.Invoice{}, invoice.ErrNotFound
}

func (repo *invoiceRepository) GetInvoiceByEnrollment(_ context.Context, enrollmentID string) (invoice.Invoice, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, inv := range repo.db.table {
		if inv.EnrollmentID == enrollmentID {
			return *inv, nil
		}
	}
	return invoice.Invoice{}, invoice.ErrNotFound
}

func (repo *invoiceRepository) QueryInvoices(_ context.Context, filter *invoice.QueryFilter, ordering []core.DBOrdering) ([]invoice.Invoice, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	invoices := make([]invoice.Invoice, 0, len(repo.db.table))
	for _, inv := range repo.db.table {
		if filter != nil {
			if (filter.UserID != "" && inv.UserID != filter.UserID) || (filter.Status != "" && inv.Status != filter.Status) {
				continue
			}
		}
		invoices = append(invoices, *inv)
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "issued_at"}}
	}
	sortBy(invoices, ordering, map[string]lessFunc{
		"amount": func(i, j int) (bool, bool) { return invoices[i].Amount < invoices[j].Amount, invoices[i].Amount == invoices[j].Amount },
		"issued_at": func(i, j int) (bool, bool) {
			return invoices[i].IssuedAt.Before(invoices[j].IssuedAt), invoices[i].IssuedAt.Equal(invoices[j].IssuedAt)
		},
	})
	return invoices, nil
}

func (repo *invoiceRepository) UpdateInvoice(_ context.Context, inv invoice.Invoice) (invoice.Invoice, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[inv.ID]; !ok {
		return invoice.Invoice{}, invoice.ErrNotFound
	}
	repo.db.table[inv.ID] = &inv
	return inv, nil
}
