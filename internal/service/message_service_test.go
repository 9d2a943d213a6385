package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"bikeservice/internal/database"
	"bikeservice/internal/domain"
	"bikeservice/internal/models"
	"bikeservice/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMessageService(t *testing.T) (*MessageService, *models.User, *models.User) {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "messages.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	sita := &models.User{FullName: "Sita Sharma", Email: "sita@example.com", Phone: "9800000001", PasswordHash: "hash"}
	require.NoError(t, db.CreateUser(ctx, sita))
	ram := &models.User{FullName: "Ram Thapa", Email: "ram@example.com", Phone: "9800000002", PasswordHash: "hash"}
	require.NoError(t, db.CreateUser(ctx, ram))

	presence := repository.NewMemoryPresenceRepository(time.Hour)
	return NewMessageService(db, db, presence, &logger), sita, ram
}

func TestMessageService_Send(t *testing.T) {
	svc, sita, ram := newMessageService(t)
	ctx := context.Background()

	_, err := svc.Send(ctx, sita.ID, ram.ID, "   ", "")
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = svc.Send(ctx, sita.ID, ram.ID, "hello", "video")
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = svc.Send(ctx, sita.ID, "nobody", "hello", "")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	m, err := svc.Send(ctx, sita.ID, ram.ID, " When can you pick up my bike? ", "")
	require.NoError(t, err)
	assert.Equal(t, "When can you pick up my bike?", m.Message)
	assert.Equal(t, models.MessageTypeText, m.Type)
	require.NotNil(t, m.Sender)
	require.NotNil(t, m.Receiver)
	assert.Equal(t, "sita@example.com", m.Sender.Email)
	assert.Equal(t, "Ram Thapa", m.Receiver.FullName)
}

func TestMessageService_ConversationPaging(t *testing.T) {
	svc, sita, ram := newMessageService(t)
	ctx := context.Background()

	for i, text := range []string{"one", "two", "three"} {
		from, to := sita, ram
		if i%2 == 1 {
			from, to = ram, sita
		}
		_, err := svc.Send(ctx, from.ID, to.ID, text, models.MessageTypeText)
		require.NoError(t, err)
	}

	page, err := svc.Conversation(ctx, sita.ID, ram.ID, 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "three", page[0].Message)
	assert.Equal(t, "two", page[1].Message)

	page, err = svc.Conversation(ctx, ram.ID, sita.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "one", page[0].Message)

	page, err = svc.Conversation(ctx, ram.ID, sita.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, page, 3)

	_, err = svc.Conversation(ctx, ram.ID, "", 1, 10)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestMessageService_GetVisibility(t *testing.T) {
	svc, sita, ram := newMessageService(t)
	ctx := context.Background()

	m, err := svc.Send(ctx, sita.ID, ram.ID, "hello", "")
	require.NoError(t, err)

	got, err := svc.Get(ctx, models.Identity{UserID: ram.ID}, m.ID)
	require.NoError(t, err)
	assert.Equal(t, sita.ID, got.Sender.ID)

	_, err = svc.Get(ctx, models.Identity{UserID: "outsider"}, m.ID)
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	_, err = svc.Get(ctx, models.Identity{UserID: "outsider", IsAdmin: true}, m.ID)
	assert.NoError(t, err)

	_, err = svc.Get(ctx, models.Identity{UserID: ram.ID}, "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
