package domain

import (
	"context"
	"time"

	"bikeservice/internal/models"
)

// SlotQuery selects bookings whose scheduled instant falls in [From, To].
// An empty BikeID queries the global calendar.
type SlotQuery struct {
	From   time.Time
	To     time.Time
	BikeID string
}

// BookingFilter narrows expanded booking listings.
type BookingFilter struct {
	UserID string
	Status string
}

type BookingRepository interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	CreateBookingWithLock(ctx context.Context, booking *models.Booking, slot SlotQuery) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	FindBookingsInSlot(ctx context.Context, slot SlotQuery) ([]*models.Booking, error)
	HasPendingBooking(ctx context.Context, userID, bikeNumber string) (bool, error)
	ListBookingDetails(ctx context.Context, filter BookingFilter) ([]*models.BookingDetails, error)
	GetUserBookings(ctx context.Context, userID string, ids []string) ([]*models.Booking, error)
	GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id, status string) error
	UpdateBookingStatusWithVersion(ctx context.Context, id string, version int64, status string) error
	UpdateUserBookingsStatus(ctx context.Context, userID, status string) (int64, error)
	DeleteBooking(ctx context.Context, id string) error
	CountBookingsByStatus(ctx context.Context) (map[string]int, error)
}

type BikeRepository interface {
	CreateBike(ctx context.Context, bike *models.Bike) error
	GetBikeByID(ctx context.Context, id string) (*models.Bike, error)
	GetBikes(ctx context.Context) ([]*models.Bike, error)
	GetBikesByName(ctx context.Context, name string) ([]*models.Bike, error)
	GetBikeModels(ctx context.Context) ([]string, error)
	CountBikes(ctx context.Context) (int, error)
	UpdateBike(ctx context.Context, bike *models.Bike) error
	DeleteBike(ctx context.Context, id string) error
}

// BikeFinder resolves catalog entries. A missing bike is (nil, nil).
type BikeFinder interface {
	FindBikeByID(ctx context.Context, id string) (*models.Bike, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
	GetAllUsers(ctx context.Context) ([]*models.User, error)
	UpdateUserProfile(ctx context.Context, user *models.User) error
	UpdateLoginState(ctx context.Context, id string, failedAttempts int, lockUntil *time.Time) error
	SetUserOTP(ctx context.Context, id, otpHash, purpose string, expiresAt *time.Time) error
	RecordOTPFailure(ctx context.Context, id string) (int, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, historySize int) error
	GetPasswordHistory(ctx context.Context, id string, limit int) ([]string, error)
	CountUsers(ctx context.Context) (int, error)
}

type PaymentRepository interface {
	CreatePayment(ctx context.Context, payment *models.Payment) error
	GetPayment(ctx context.Context, id string) (*models.Payment, error)
	GetPaymentByPidx(ctx context.Context, pidx string) (*models.Payment, error)
	SetPaymentPidx(ctx context.Context, id, pidx string) error
	UpdatePaymentStatus(ctx context.Context, id, status, transactionID string) error
}

type PaymentTaskRepository interface {
	CreatePaymentTask(ctx context.Context, task *models.PaymentTask) error
	GetPendingPaymentTasks(ctx context.Context, limit int) ([]models.PaymentTask, error)
	UpdatePaymentTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
}

type ActivityRepository interface {
	CreateActivityLog(ctx context.Context, entry *models.ActivityLog) error
	GetActivityLogs(ctx context.Context, limit, offset int) ([]*models.ActivityLog, int, error)
}

type FeedbackRepository interface {
	CreateFeedback(ctx context.Context, feedback *models.Feedback) error
	GetAllFeedback(ctx context.Context) ([]*models.Feedback, error)
}

type MessageRepository interface {
	CreateMessage(ctx context.Context, m *models.Message) error
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	GetConversation(ctx context.Context, userA, userB string, limit, offset int) ([]*models.Message, error)
}

type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	GetNotifications(ctx context.Context, receiver string) ([]*models.Notification, error)
	MarkNotificationRead(ctx context.Context, id, receiver string) error
}

// PresenceRepository maps users to live chat connections.
type PresenceRepository interface {
	Register(ctx context.Context, userID, connectionID string) error
	Lookup(ctx context.Context, userID string) (string, bool, error)
	Unregister(ctx context.Context, connectionID string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// PaymentQueue schedules background verification of gateway payments.
type PaymentQueue interface {
	EnqueueVerification(ctx context.Context, paymentID, pidx string) error
}

// OTPSender delivers one-time codes to a phone number or an email address.
type OTPSender interface {
	SendOTP(ctx context.Context, destination, code, purpose string) error
}
