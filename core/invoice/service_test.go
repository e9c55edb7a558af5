package invoice_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/invoice"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
)

func TestService_MarkPaid(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC)
	invoice.NowFunc = func() time.Time { return now }
	defer func() { invoice.NowFunc = time.Now }()

	svc := invoice.NewService(inmemdb.NewInvoiceRepository(inmemdb.Open()))

	unpaid, err := svc.Issue(ctx, "u1", "e1", 2500, "USD")
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusUnpaid, unpaid.Status)
	assert.Equal(t, now, unpaid.IssuedAt)
	assert.False(t, unpaid.PaidAt.Valid)

	void, err := svc.Issue(ctx, "u1", "e2", 2500, "USD")
	require.NoError(t, err)
	_, err = svc.Void(ctx, void.ID)
	require.NoError(t, err)

	tests := []struct {
		name    string
		id      string
		wantErr error
	}{
		{name: "unpaid", id: unpaid.ID},
		{name: "already paid", id: unpaid.ID, wantErr: invoice.ErrAlreadyPaid},
		{name: "void", id: void.ID, wantErr: invoice.ErrVoid},
		{name: "unknown", id: "nope", wantErr: invoice.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := svc.MarkPaid(ctx, tt.id)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, invoice.StatusPaid, inv.Status)
			assert.Equal(t, now, inv.PaidAt.Time)
		})
	}
}

func TestService_Void(t *testing.T) {
	ctx := context.Background()
	svc := invoice.NewService(inmemdb.NewInvoiceRepository(inmemdb.Open()))

	inv, err := svc.Issue(ctx, "u1", "e1", 100, "EUR")
	require.NoError(t, err)

	voided, err := svc.Void(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusVoid, voided.Status)

	// voiding twice is a no-op
	voided, err = svc.Void(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusVoid, voided.Status)

	paid, err := svc.Issue(ctx, "u1", "e2", 100, "EUR")
	require.NoError(t, err)
	_, err = svc.MarkPaid(ctx, paid.ID)
	require.NoError(t, err)
	_, err = svc.Void(ctx, paid.ID)
	assert.Equal(t, invoice.ErrAlreadyPaid, errors.Cause(err))

	found, err := svc.GetByEnrollment(ctx, "e2")
	require.NoError(t, err)
	assert.Equal(t, paid.ID, found.ID)

	mine, err := svc.QueryForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	none, err := svc.QueryForUser(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, none)
}
