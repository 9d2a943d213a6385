package database

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"bikeservice/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestConcurrentBookingWithLock(t *testing.T) {
	db := setupTestDB(t)
	bike, _ := seedBikeAndUser(t, db)
	ctx := context.Background()

	at := time.Now().Add(48 * time.Hour).Truncate(time.Minute)
	slot := domain.SlotQuery{From: at.Add(-2 * time.Hour), To: at}

	const numGoroutines = 10
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make(chan error, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			b := newBooking(fmt.Sprintf("user-%d", id), bike.ID, fmt.Sprintf("BA %d", id), at)
			results <- db.CreateBookingWithLock(ctx, b, slot)
		}(i)
	}

	wg.Wait()
	close(results)

	var ok, taken int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, ErrSlotTaken):
			taken++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, numGoroutines-1, taken)
}
