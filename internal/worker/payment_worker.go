package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bikeservice/internal/domain"
	"bikeservice/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var errStillPending = errors.New("payment still pending at gateway")

// PaymentVerifier settles a payment against the gateway. final is false while
// the gateway has not reached a terminal state.
type PaymentVerifier interface {
	VerifyPayment(ctx context.Context, paymentID, pidx string) (final bool, err error)
}

// PaymentWorker drains payment_tasks and verifies each pending payment until it settles.
type PaymentWorker struct {
	tasks         domain.PaymentTaskRepository
	verifier      PaymentVerifier
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan models.PaymentTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	batchSize     int
	logger        *zerolog.Logger
}

func NewPaymentWorker(
	tasks domain.PaymentTaskRepository,
	verifier PaymentVerifier,
	redisClient *redis.Client,
	retry RetryPolicy,
	pollInterval time.Duration,
	logger *zerolog.Logger,
) *PaymentWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 5 * time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &PaymentWorker{
		tasks:         tasks,
		verifier:      verifier,
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan models.PaymentTask, models.WorkerQueueSize),
		redisQueueKey: "payments:queue",
		deadLetterKey: "payments:deadletter",
		pollInterval:  pollInterval,
		batchSize:     20,
		logger:        logger,
	}
}

// EnqueueVerification persists a task and hands it to redis or the in-memory queue.
func (w *PaymentWorker) EnqueueVerification(ctx context.Context, paymentID, pidx string) error {
	if paymentID == "" || pidx == "" {
		return errors.New("payment id and pidx are required")
	}

	task := models.PaymentTask{
		PaymentID: paymentID,
		Pidx:      pidx,
		Status:    models.TaskStatusPending,
	}
	if err := w.tasks.CreatePaymentTask(ctx, &task); err != nil {
		return fmt.Errorf("persist payment task: %w", err)
	}

	if w.redis != nil {
		if err := w.pushRedis(ctx, task); err != nil {
			w.logger.Warn().Err(err).Int64("task_id", task.ID).Msg("Redis push failed, falling back to memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- task:
	default:
		w.logger.Warn().Int64("task_id", task.ID).Msg("Memory queue full, task left for polling")
	}
	return nil
}

// Start runs the worker loop until ctx is done.
func (w *PaymentWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("Payment worker started")
	defer w.logger.Info().Msg("Payment worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, &t)
			continue
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, &t)
			continue
		}

		tasks, err := w.tasks.GetPendingPaymentTasks(ctx, w.batchSize)
		if err != nil {
			w.logger.Error().Err(err).Msg("Failed to fetch pending payment tasks")
			w.sleep(ctx)
			continue
		}
		if len(tasks) == 0 {
			w.sleep(ctx)
			continue
		}

		for i := range tasks {
			w.processTask(ctx, &tasks[i])
		}
	}
}

func (w *PaymentWorker) sleep(ctx context.Context) {
	timer := time.NewTimer(w.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (w *PaymentWorker) tryLocalQueue() (models.PaymentTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return models.PaymentTask{}, false
	}
}

func (w *PaymentWorker) tryRedis(ctx context.Context) (models.PaymentTask, bool) {
	if w.redis == nil {
		return models.PaymentTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			w.logger.Error().Err(err).Msg("Redis BRPOP failed")
		}
		return models.PaymentTask{}, false
	}
	if len(res) != 2 {
		return models.PaymentTask{}, false
	}
	var task models.PaymentTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("Failed to decode redis payment task")
		return models.PaymentTask{}, false
	}
	return task, true
}

func (w *PaymentWorker) processTask(ctx context.Context, task *models.PaymentTask) {
	log := w.logger.With().Int64("task_id", task.ID).Str("payment_id", task.PaymentID).Logger()

	if err := w.tasks.UpdatePaymentTaskStatus(ctx, task.ID, models.TaskStatusProcessing, "", nil); err != nil {
		log.Error().Err(err).Msg("Failed to mark task processing")
	}

	final, err := w.verifier.VerifyPayment(ctx, task.PaymentID, task.Pidx)
	if err == nil && !final {
		err = errStillPending
	}
	if err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}

	if err := w.tasks.UpdatePaymentTaskStatus(ctx, task.ID, models.TaskStatusCompleted, "", nil); err != nil {
		log.Error().Err(err).Msg("Failed to mark task completed")
		return
	}
	log.Debug().Msg("Payment verified")
}

func (w *PaymentWorker) retryOrFail(ctx context.Context, task *models.PaymentTask, cause error) {
	attempt := task.RetryCount + 1
	if w.retryPolicy.GivesUp(attempt) {
		if err := w.tasks.UpdatePaymentTaskStatus(ctx, task.ID, models.TaskStatusFailed, cause.Error(), nil); err != nil {
			w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("Failed to mark task failed")
		}
		w.logger.Warn().Err(cause).Int64("task_id", task.ID).Int("attempts", attempt).Msg("Payment verification gave up")
		w.pushDeadLetter(ctx, task)
		return
	}

	nextTime := time.Now().Add(w.retryPolicy.NextDelay(attempt))
	if err := w.tasks.UpdatePaymentTaskStatus(ctx, task.ID, models.TaskStatusRetry, cause.Error(), &nextTime); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("Failed to mark task retry")
	}
}

func (w *PaymentWorker) pushRedis(ctx context.Context, task models.PaymentTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, w.redisQueueKey, data).Err()
}

func (w *PaymentWorker) pushDeadLetter(ctx context.Context, task *models.PaymentTask) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("Failed to encode dead letter")
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("Dead letter push failed")
	}
}
