package repository

import (
	"context"
	"sync"
	"time"
)

type presenceEntry struct {
	connectionID string
	expiresAt    time.Time
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

// MemoryPresenceRepository is the in-process presence store used when Redis is unavailable.
type MemoryPresenceRepository struct {
	mu         sync.Mutex
	byUser     map[string]presenceEntry
	byConn     map[string]string
	rateLimits map[string]*rateLimitEntry
	ttl        time.Duration
}

func NewMemoryPresenceRepository(ttl time.Duration) *MemoryPresenceRepository {
	return &MemoryPresenceRepository{
		byUser:     make(map[string]presenceEntry),
		byConn:     make(map[string]string),
		rateLimits: make(map[string]*rateLimitEntry),
		ttl:        ttl,
	}
}

func (r *MemoryPresenceRepository) Register(_ context.Context, userID, connectionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byUser[userID]; ok && prev.connectionID != connectionID {
		delete(r.byConn, prev.connectionID)
	}
	entry := presenceEntry{connectionID: connectionID}
	if r.ttl > 0 {
		entry.expiresAt = time.Now().Add(r.ttl)
	}
	r.byUser[userID] = entry
	r.byConn[connectionID] = userID
	return nil
}

func (r *MemoryPresenceRepository) Lookup(_ context.Context, userID string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.byUser[userID]
	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(r.byUser, userID)
		delete(r.byConn, entry.connectionID)
		return "", false, nil
	}
	return entry.connectionID, true, nil
}

func (r *MemoryPresenceRepository) Unregister(_ context.Context, connectionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byConn[connectionID]
	if !ok {
		return nil
	}
	delete(r.byConn, connectionID)
	if entry, ok := r.byUser[userID]; ok && entry.connectionID == connectionID {
		delete(r.byUser, userID)
	}
	return nil
}

func (r *MemoryPresenceRepository) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	entry, ok := r.rateLimits[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.rateLimits[key] = entry
	}
	entry.count++
	return entry.count <= limit, nil
}
