package service

import (
	"context"
	"time"

	"bikeservice/internal/domain"
	"bikeservice/internal/khalti"
	"bikeservice/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockBookingRepo struct {
	mock.Mock
}

func (m *mockBookingRepo) CreateBooking(ctx context.Context, b *models.Booking) error {
	return m.Called(ctx, b).Error(0)
}
func (m *mockBookingRepo) CreateBookingWithLock(ctx context.Context, b *models.Booking, slot domain.SlotQuery) error {
	return m.Called(ctx, b, slot).Error(0)
}
func (m *mockBookingRepo) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockBookingRepo) FindBookingsInSlot(ctx context.Context, slot domain.SlotQuery) ([]*models.Booking, error) {
	args := m.Called(ctx, slot)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}
func (m *mockBookingRepo) HasPendingBooking(ctx context.Context, userID, bikeNumber string) (bool, error) {
	args := m.Called(ctx, userID, bikeNumber)
	return args.Bool(0), args.Error(1)
}
func (m *mockBookingRepo) ListBookingDetails(ctx context.Context, f domain.BookingFilter) ([]*models.BookingDetails, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BookingDetails), args.Error(1)
}
func (m *mockBookingRepo) GetUserBookings(ctx context.Context, userID string, ids []string) ([]*models.Booking, error) {
	args := m.Called(ctx, userID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}
func (m *mockBookingRepo) GetBookingsByDateRange(ctx context.Context, s, e time.Time) ([]*models.Booking, error) {
	args := m.Called(ctx, s, e)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}
func (m *mockBookingRepo) UpdateBookingStatus(ctx context.Context, id, status string) error {
	return m.Called(ctx, id, status).Error(0)
}
func (m *mockBookingRepo) UpdateBookingStatusWithVersion(ctx context.Context, id string, v int64, status string) error {
	return m.Called(ctx, id, v, status).Error(0)
}
func (m *mockBookingRepo) UpdateUserBookingsStatus(ctx context.Context, userID, status string) (int64, error) {
	args := m.Called(ctx, userID, status)
	return args.Get(0).(int64), args.Error(1)
}
func (m *mockBookingRepo) DeleteBooking(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockBookingRepo) CountBookingsByStatus(ctx context.Context) (map[string]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

type mockBikeFinder struct {
	mock.Mock
}

func (m *mockBikeFinder) FindBikeByID(ctx context.Context, id string) (*models.Bike, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bike), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJSON(eventType string, payload interface{}) error {
	return m.Called(eventType, payload).Error(0)
}

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) CreateUser(ctx context.Context, u *models.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserRepo) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *mockUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *mockUserRepo) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *mockUserRepo) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}
func (m *mockUserRepo) UpdateUserProfile(ctx context.Context, u *models.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserRepo) UpdateLoginState(ctx context.Context, id string, failed int, lockUntil *time.Time) error {
	return m.Called(ctx, id, failed, lockUntil).Error(0)
}
func (m *mockUserRepo) SetUserOTP(ctx context.Context, id, hash, purpose string, expiresAt *time.Time) error {
	return m.Called(ctx, id, hash, purpose, expiresAt).Error(0)
}
func (m *mockUserRepo) RecordOTPFailure(ctx context.Context, id string) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}
func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, hash string, historySize int) error {
	return m.Called(ctx, id, hash, historySize).Error(0)
}
func (m *mockUserRepo) GetPasswordHistory(ctx context.Context, id string, limit int) ([]string, error) {
	args := m.Called(ctx, id, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
func (m *mockUserRepo) CountUsers(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type mockOTPSender struct {
	mock.Mock
}

func (m *mockOTPSender) SendOTP(ctx context.Context, destination, code, purpose string) error {
	return m.Called(ctx, destination, code, purpose).Error(0)
}

type mockRateLimiter struct {
	mock.Mock
}

func (m *mockRateLimiter) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Initiate(ctx context.Context, req khalti.InitiateRequest) (*khalti.InitiateResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*khalti.InitiateResponse), args.Error(1)
}
func (m *mockGateway) Lookup(ctx context.Context, pidx string) (*khalti.LookupResponse, error) {
	args := m.Called(ctx, pidx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*khalti.LookupResponse), args.Error(1)
}

type mockPaymentRepo struct {
	mock.Mock
}

func (m *mockPaymentRepo) CreatePayment(ctx context.Context, p *models.Payment) error {
	args := m.Called(ctx, p)
	if p.ID == "" {
		p.ID = "pay-1"
	}
	return args.Error(0)
}
func (m *mockPaymentRepo) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}
func (m *mockPaymentRepo) GetPaymentByPidx(ctx context.Context, pidx string) (*models.Payment, error) {
	args := m.Called(ctx, pidx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}
func (m *mockPaymentRepo) SetPaymentPidx(ctx context.Context, id, pidx string) error {
	return m.Called(ctx, id, pidx).Error(0)
}
func (m *mockPaymentRepo) UpdatePaymentStatus(ctx context.Context, id, status, txn string) error {
	return m.Called(ctx, id, status, txn).Error(0)
}

type mockQueue struct {
	mock.Mock
}

func (m *mockQueue) EnqueueVerification(ctx context.Context, paymentID, pidx string) error {
	return m.Called(ctx, paymentID, pidx).Error(0)
}
