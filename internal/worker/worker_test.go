package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"bikeservice/internal/config"
	"bikeservice/internal/database"
	"bikeservice/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func TestProcessTaskSuccess(t *testing.T) {
	db := newTestDB(t)
	verifier := &fakeVerifier{final: true}
	worker := NewPaymentWorker(db, verifier, nil, RetryPolicy{}, 0, nil)

	ctx := context.Background()
	if err := worker.EnqueueVerification(ctx, "pay-1", "px-1"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	task, ok := worker.tryLocalQueue()
	if !ok {
		t.Fatalf("expected task in local queue")
	}
	worker.processTask(ctx, &task)

	status, retryCount, nextRetry := loadTaskStatus(t, db, task.ID)
	if status != models.TaskStatusCompleted {
		t.Fatalf("expected status=completed, got %s", status)
	}
	if retryCount != 0 {
		t.Fatalf("expected retry_count=0, got %d", retryCount)
	}
	if nextRetry.Valid {
		t.Fatalf("expected next_retry_at NULL on success")
	}
	if verifier.callCount() != 1 {
		t.Fatalf("expected one verify call, got %d", verifier.callCount())
	}
	if verifier.lastPidx != "px-1" {
		t.Fatalf("expected pidx px-1, got %s", verifier.lastPidx)
	}
}

func TestProcessTaskRetry(t *testing.T) {
	db := newTestDB(t)
	verifier := &fakeVerifier{err: errors.New("gateway timeout")}
	worker := NewPaymentWorker(db, verifier, nil, RetryPolicy{MaxRetries: 3, InitialDelay: time.Second}, 0, nil)

	ctx := context.Background()
	if err := worker.EnqueueVerification(ctx, "pay-2", "px-2"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	task, ok := worker.tryLocalQueue()
	if !ok {
		t.Fatalf("expected task in local queue")
	}
	worker.processTask(ctx, &task)

	status, retryCount, nextRetry := loadTaskStatus(t, db, task.ID)
	if status != models.TaskStatusRetry {
		t.Fatalf("expected status=retry, got %s", status)
	}
	if retryCount != 1 {
		t.Fatalf("expected retry_count=1, got %d", retryCount)
	}
	if !nextRetry.Valid || nextRetry.Time.Before(time.Now()) {
		t.Fatalf("expected next_retry_at in future, got %v", nextRetry)
	}
}

func TestProcessTaskStillPendingRetries(t *testing.T) {
	db := newTestDB(t)
	verifier := &fakeVerifier{final: false}
	worker := NewPaymentWorker(db, verifier, nil, RetryPolicy{MaxRetries: 3}, 0, nil)

	ctx := context.Background()
	if err := worker.EnqueueVerification(ctx, "pay-3", "px-3"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	task, _ := worker.tryLocalQueue()
	worker.processTask(ctx, &task)

	status, _, _ := loadTaskStatus(t, db, task.ID)
	if status != models.TaskStatusRetry {
		t.Fatalf("expected status=retry, got %s", status)
	}
}

func TestProcessTaskFailToDeadLetter(t *testing.T) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer s.Close()
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	db := newTestDB(t)
	verifier := &fakeVerifier{err: errors.New("fatal")}
	worker := NewPaymentWorker(db, verifier, client, RetryPolicy{MaxRetries: 1}, 0, nil)

	ctx := context.Background()
	if err := worker.EnqueueVerification(ctx, "pay-4", "px-4"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	task, ok := worker.tryRedis(ctx)
	if !ok {
		t.Fatalf("expected task in redis queue")
	}
	worker.processTask(ctx, &task)

	status, _, _ := loadTaskStatus(t, db, task.ID)
	if status != models.TaskStatusFailed {
		t.Fatalf("expected status=failed, got %s", status)
	}

	dead, err := s.List("payments:deadletter")
	if err != nil || len(dead) != 1 {
		t.Fatalf("expected one dead letter, got %v (%v)", dead, err)
	}
	var got models.PaymentTask
	if err := json.Unmarshal([]byte(dead[0]), &got); err != nil {
		t.Fatalf("decode dead letter: %v", err)
	}
	if got.PaymentID != "pay-4" {
		t.Fatalf("unexpected dead letter payload: %+v", got)
	}
}

func TestEnqueueVerification_Invalid(t *testing.T) {
	worker := NewPaymentWorker(nil, nil, nil, RetryPolicy{}, 0, nil)
	ctx := context.Background()

	if err := worker.EnqueueVerification(ctx, "", "px"); err == nil {
		t.Fatalf("expected error for missing payment id")
	}
	if err := worker.EnqueueVerification(ctx, "pay", ""); err == nil {
		t.Fatalf("expected error for missing pidx")
	}
}

func TestStartPollsDatabase(t *testing.T) {
	db := newTestDB(t)
	verifier := &fakeVerifier{final: true}
	worker := NewPaymentWorker(db, verifier, nil, RetryPolicy{}, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// persisted but never queued, so only polling can pick it up
	task := models.PaymentTask{PaymentID: "pay-5", Pidx: "px-5"}
	if err := db.CreatePaymentTask(ctx, &task); err != nil {
		t.Fatalf("create task: %v", err)
	}

	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if verifier.callCount() > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done

	if verifier.callCount() == 0 {
		t.Fatalf("expected worker to verify polled task")
	}
	status, _, _ := loadTaskStatus(t, db, task.ID)
	if status != models.TaskStatusCompleted {
		t.Fatalf("expected status=completed, got %s", status)
	}
}

func TestRetryPolicyNextDelay(t *testing.T) {
	p := RetryPolicy{InitialDelay: time.Second, MaxDelay: 5 * time.Second, BackoffFactor: 2}

	cases := map[int]time.Duration{
		0: time.Second,
		1: time.Second,
		2: 2 * time.Second,
		3: 4 * time.Second,
		4: 5 * time.Second,
	}
	for attempt, want := range cases {
		if got := p.NextDelay(attempt); got != want {
			t.Fatalf("attempt %d: expected %v, got %v", attempt, want, got)
		}
	}

	if got := (RetryPolicy{}).NextDelay(1); got != time.Second {
		t.Fatalf("expected default 1s, got %v", got)
	}
}

func TestRetryPolicyFromConfig(t *testing.T) {
	p := RetryPolicyFromConfig(config.WorkerConfig{MaxRetries: 3, InitialDelay: 2 * time.Second, MaxDelay: time.Minute})

	if got := p.NextDelay(2); got != 4*time.Second {
		t.Fatalf("expected 4s after the second lookup, got %v", got)
	}
	if p.GivesUp(2) {
		t.Fatal("expected another lookup after attempt 2")
	}
	if !p.GivesUp(3) {
		t.Fatal("expected the task to fail after attempt 3")
	}
}

// Helpers

type fakeVerifier struct {
	mu       sync.Mutex
	final    bool
	err      error
	calls    int
	lastPidx string
}

func (f *fakeVerifier) VerifyPayment(ctx context.Context, paymentID, pidx string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastPidx = pidx
	return f.final, f.err
}

func (f *fakeVerifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "worker.db")
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	db, err := database.NewDB(path, &logger)
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func loadTaskStatus(t *testing.T, db *database.DB, id int64) (status string, retryCount int, nextRetry sql.NullTime) {
	t.Helper()
	row := db.QueryRowContext(context.Background(), `SELECT status, retry_count, next_retry_at FROM payment_tasks WHERE id = ?`, id)
	if err := row.Scan(&status, &retryCount, &nextRetry); err != nil {
		t.Fatalf("scan task: %v", err)
	}
	return status, retryCount, nextRetry
}
