package database

import (
	"context"
	"testing"
	"time"

	"bikeservice/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityLogs(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		require.NoError(t, db.CreateActivityLog(ctx, &models.ActivityLog{
			UserID: "u1", Username: "Sita", URL: "/api/booking/add", Method: "POST",
			Role: models.RoleUser, Status: 201, Time: base.Add(time.Duration(i) * time.Minute),
			Device: "curl/8", IPAddress: "10.0.0.1",
		}))
	}

	page, total, err := db.GetActivityLogs(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 2)
	assert.True(t, page[0].Time.After(page[1].Time))

	page, _, err = db.GetActivityLogs(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestFeedback(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	_, user := seedBikeAndUser(t, db)

	require.NoError(t, db.CreateFeedback(ctx, &models.Feedback{UserID: user.ID, Subject: "Great", Message: "Fast service", Rating: 5}))
	require.NoError(t, db.CreateFeedback(ctx, &models.Feedback{UserID: "deleted", Subject: "Meh", Message: "Late", Rating: 2}))

	list, err := db.GetAllFeedback(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	var withUser int
	for _, f := range list {
		if f.User != nil {
			withUser++
			assert.Equal(t, "Sita Sharma", f.User.FullName)
		}
	}
	assert.Equal(t, 1, withUser)
}

func TestNotifications(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	n := &models.Notification{Receiver: "u1", Message: "Your booking is pending"}
	require.NoError(t, db.CreateNotification(ctx, n))
	require.NoError(t, db.CreateNotification(ctx, &models.Notification{Receiver: "u2", Message: "other"}))

	list, err := db.GetNotifications(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].IsRead)

	assert.ErrorIs(t, db.MarkNotificationRead(ctx, n.ID, "u2"), ErrNotFound)
	require.NoError(t, db.MarkNotificationRead(ctx, n.ID, "u1"))

	list, err = db.GetNotifications(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, list[0].IsRead)
}
