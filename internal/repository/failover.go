package repository

import (
	"context"
	"sync/atomic"
	"time"

	"bikeservice/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverPresenceRepository prefers the primary store and switches to the fallback
// on the first error, probing the primary again once per recovery interval.
type FailoverPresenceRepository struct {
	primary   domain.PresenceRepository
	fallback  domain.PresenceRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverPresenceRepository(primary, fallback domain.PresenceRepository, logger *zerolog.Logger) *FailoverPresenceRepository {
	return &FailoverPresenceRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// usePrimary reports whether the next call should go to the primary store.
func (r *FailoverPresenceRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	return time.Since(time.Unix(0, r.lastCheck.Load())) > recoveryInterval
}

func (r *FailoverPresenceRepository) markDown(err error) {
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary presence store failed, falling back to memory")
	}
	r.lastCheck.Store(time.Now().UnixNano())
}

func (r *FailoverPresenceRepository) markUp() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("Primary presence store recovered")
	}
}

func (r *FailoverPresenceRepository) Register(ctx context.Context, userID, connectionID string) error {
	if r.usePrimary() {
		err := r.primary.Register(ctx, userID, connectionID)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.Register(ctx, userID, connectionID)
}

func (r *FailoverPresenceRepository) Lookup(ctx context.Context, userID string) (string, bool, error) {
	if r.usePrimary() {
		conn, ok, err := r.primary.Lookup(ctx, userID)
		if err == nil {
			r.markUp()
			return conn, ok, nil
		}
		r.markDown(err)
	}
	return r.fallback.Lookup(ctx, userID)
}

func (r *FailoverPresenceRepository) Unregister(ctx context.Context, connectionID string) error {
	if r.usePrimary() {
		err := r.primary.Unregister(ctx, connectionID)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.Unregister(ctx, connectionID)
}

func (r *FailoverPresenceRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			r.markUp()
			return allowed, nil
		}
		r.markDown(err)
	}
	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}
