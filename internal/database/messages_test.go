package database

import (
	"context"
	"testing"
	"time"

	"bikeservice/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessages(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	_, sita := seedBikeAndUser(t, db)

	ram := &models.User{FullName: "Ram Thapa", Email: "ram@example.com", Phone: "9800000002", PasswordHash: "hash"}
	require.NoError(t, db.CreateUser(ctx, ram))
	hari := &models.User{FullName: "Hari Rai", Email: "hari@example.com", Phone: "9800000003", PasswordHash: "hash"}
	require.NoError(t, db.CreateUser(ctx, hari))

	base := time.Now().Add(-time.Hour)
	send := func(from, to *models.User, text string, offset int) *models.Message {
		m := &models.Message{SenderID: from.ID, ReceiverID: to.ID, Message: text,
			CreatedAt: base.Add(time.Duration(offset) * time.Minute)}
		require.NoError(t, db.CreateMessage(ctx, m))
		return m
	}
	first := send(sita, ram, "hello", 0)
	send(ram, sita, "hi", 1)
	send(sita, ram, "is my bike ready?", 2)
	send(hari, sita, "unrelated", 3)

	assert.Equal(t, models.MessageTypeText, first.Type)

	got, err := db.GetMessage(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Message)
	require.NotNil(t, got.Sender)
	require.NotNil(t, got.Receiver)
	assert.Equal(t, "Sita Sharma", got.Sender.FullName)
	assert.Equal(t, "ram@example.com", got.Receiver.Email)

	_, err = db.GetMessage(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	page, err := db.GetConversation(ctx, ram.ID, sita.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "is my bike ready?", page[0].Message)
	assert.Equal(t, "hi", page[1].Message)

	page, err = db.GetConversation(ctx, sita.ID, ram.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "hello", page[0].Message)

	page, err = db.GetConversation(ctx, sita.ID, hari.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, hari.ID, page[0].SenderID)

	dup := &models.Message{ID: first.ID, SenderID: sita.ID, ReceiverID: ram.ID, Message: "again"}
	assert.ErrorIs(t, db.CreateMessage(ctx, dup), ErrAlreadyExists)
}
