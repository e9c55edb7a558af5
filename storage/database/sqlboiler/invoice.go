// Package boiledrepos implements the invoice repository on PostgreSQL with sqlboiler raw queries.
package boiledrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/boil"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/strmangle"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/invoice"
)

const invoiceColumns = `id, user_id, enrollment_id, amount, currency, status, issued_at, paid_at`

type invoiceRow struct {
	ID           string         `boil:"id"`
	UserID       string         `boil:"user_id"`
	EnrollmentID string         `boil:"enrollment_id"`
	Amount       int64          `boil:"amount"`
	Currency     string         `boil:"currency"`
	Status       invoice.Status `boil:"status"`
	IssuedAt     time.Time      `boil:"issued_at"`
	PaidAt       null.Time      `boil:"paid_at"`
}

type invoiceRepository struct {
	exec boil.ContextExecutor
}

var _ invoice.Repository = (*invoiceRepository)(nil) // interface compliance check

func NewInvoiceRepository(exec boil.ContextExecutor) invoice.Repository {
	return &invoiceRepository{exec: exec}
}

func (repo invoiceRepository) boil(inv invoice.Invoice) invoiceRow {
	return invoiceRow{
		ID:           inv.ID,
		UserID:       inv.UserID,
		EnrollmentID: inv.EnrollmentID,
		Amount:       inv.Amount,
		Currency:     inv.Currency,
		Status:       inv.Status,
		IssuedAt:     inv.IssuedAt.UTC(),
		PaidAt:       null.NewTime(inv.PaidAt.Time.UTC(), inv.PaidAt.Valid),
	}
}

func (repo invoiceRepository) unboil(row invoiceRow) invoice.Invoice {
	return invoice.Invoice{
		ID:           row.ID,
		UserID:       row.UserID,
		EnrollmentID: row.EnrollmentID,
		Amount:       row.Amount,
		Currency:     strings.TrimSpace(row.Currency), // CHAR(3)
		Status:       row.Status,
		IssuedAt:     row.IssuedAt.UTC(),
		PaidAt:       null.NewTime(row.PaidAt.Time.UTC(), row.PaidAt.Valid),
	}
}

func (repo invoiceRepository) getOne(ctx context.Context, msg, where string, args ...interface{}) (invoice.Invoice, error) {
	var row invoiceRow
	err := queries.Raw(`SELECT `+invoiceColumns+` FROM invoice WHERE `+where+` LIMIT 1`, args...).Bind(ctx, repo.exec, &row)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return invoice.Invoice{}, invoice.ErrNotFound
		}
		return invoice.Invoice{}, errors.Wrap(err, msg)
	}
	return repo.unboil(row), nil
}

func (repo invoiceRepository) CreateInvoice(ctx context.Context, inv invoice.Invoice) (invoice.Invoice, error) {
	inv.ID = uuid.New().String()
	row := repo.boil(inv)
	_, err := queries.Raw(`INSERT INTO invoice (`+invoiceColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		row.ID, row.UserID, row.EnrollmentID, row.Amount, row.Currency, row.Status, row.IssuedAt, row.PaidAt,
	).ExecContext(ctx, repo.exec)
	if err != nil {
		return invoice.Invoice{}, errors.Wrap(err, "inserting invoice")
	}
	return repo.unboil(row), nil
}

func (repo invoiceRepository) GetInvoice(ctx context.Context, id string) (invoice.Invoice, error) {
	if _, err := uuid.Parse(id); err != nil {
		return invoice.Invoice{}, invoice.ErrNotFound
	}
	return repo.getOne(ctx, "finding invoice", "id = $1", id)
}

func (repo invoiceRepository) GetInvoiceByEnrollment(ctx context.Context, enrollmentID string) (invoice.Invoice, error) {
	if _, err := uuid.Parse(enrollmentID); err != nil {
		return invoice.Invoice{}, invoice.ErrNotFound
	}
	return repo.getOne(ctx, "finding enrollment invoice", "enrollment_id = $1", enrollmentID)
}

func (repo invoiceRepository) QueryInvoices(ctx context.Context, filter *invoice.QueryFilter, ordering []core.DBOrdering) ([]invoice.Invoice, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter != nil {
		if filter.UserID != "" {
			args = append(args, filter.UserID)
			conds = append(conds, "user_id = $"+strconv.Itoa(len(args)))
		}
		if filter.Status != "" {
			args = append(args, filter.Status)
			conds = append(conds, "status = $"+strconv.Itoa(len(args)))
		}
	}

	valid := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if strmangle.SetInclude(ord.Field, []string{"amount", "status", "issued_at", "paid_at"}) {
			valid = append(valid, ord)
		}
	}

	q := `SELECT ` + invoiceColumns + ` FROM invoice`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += core.OrderByClause(valid, "issued_at DESC")

	var rows []invoiceRow
	if err := queries.Raw(q, args...).Bind(ctx, repo.exec, &rows); err != nil {
		return nil, errors.Wrap(err, "querying invoices")
	}
	invoices := make([]invoice.Invoice, 0, len(rows))
	for _, row := range rows {
		invoices = append(invoices, repo.unboil(row))
	}
	return invoices, nil
}

func (repo invoiceRepository) UpdateInvoice(ctx context.Context, inv invoice.Invoice) (invoice.Invoice, error) {
	row := repo.boil(inv)
	res, err := queries.Raw(`UPDATE invoice SET status = $1, paid_at = $2 WHERE id = $3`,
		row.Status, row.PaidAt, row.ID,
	).ExecContext(ctx, repo.exec)
	if err != nil {
		return invoice.Invoice{}, errors.Wrap(err, "updating invoice")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return invoice.Invoice{}, invoice.ErrNotFound
	}
	return repo.unboil(row), nil
}
