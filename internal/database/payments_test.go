package database

import (
	"context"
	"testing"
	"time"

	"bikeservice/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayments(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	p := &models.Payment{UserID: "u1", BookingIDs: []string{"b1", "b2"}, Amount: 3000, Method: models.PaymentMethodKhalti}
	require.NoError(t, db.CreatePayment(ctx, p))
	assert.Equal(t, models.PaymentStatusPending, p.Status)

	require.NoError(t, db.SetPaymentPidx(ctx, p.ID, "pidx-1"))

	got, err := db.GetPaymentByPidx(ctx, "pidx-1")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, []string{"b1", "b2"}, got.BookingIDs)

	require.NoError(t, db.UpdatePaymentStatus(ctx, p.ID, models.PaymentStatusSuccess, "txn-9"))
	got, err = db.GetPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccess, got.Status)
	assert.Equal(t, "txn-9", got.TransactionID)

	_, err = db.GetPayment(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.SetPaymentPidx(ctx, "missing", "x"), ErrNotFound)
}

func TestPaymentTasks(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	task := &models.PaymentTask{PaymentID: "p1", Pidx: "pidx-1"}
	require.NoError(t, db.CreatePaymentTask(ctx, task))
	require.NotZero(t, task.ID)

	future := time.Now().Add(time.Hour)
	deferred := &models.PaymentTask{PaymentID: "p2", Pidx: "pidx-2", NextRetryAt: &future}
	require.NoError(t, db.CreatePaymentTask(ctx, deferred))

	pending, err := db.GetPendingPaymentTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "p1", pending[0].PaymentID)

	next := time.Now().Add(-time.Second)
	require.NoError(t, db.UpdatePaymentTaskStatus(ctx, task.ID, models.TaskStatusRetry, "gateway down", &next))
	pending, err = db.GetPendingPaymentTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].RetryCount)
	require.NotNil(t, pending[0].LastError)
	assert.Equal(t, "gateway down", *pending[0].LastError)

	require.NoError(t, db.UpdatePaymentTaskStatus(ctx, task.ID, models.TaskStatusFailed, "exhausted", nil))
	failed, err := db.GetFailedPaymentTasks(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.NotNil(t, failed[0].ProcessedAt)

	pending, err = db.GetPendingPaymentTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
