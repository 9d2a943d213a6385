package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bikeservice/internal/config"
	"bikeservice/internal/database"
	"bikeservice/internal/domain"
	"bikeservice/internal/events"
	"bikeservice/internal/metrics"
	"bikeservice/internal/models"

	"github.com/rs/zerolog"
)

const (
	msgSlotTaken      = "Bike already booked for this time"
	msgDuplicate      = "Bike already in booking"
	msgBookingMissing = "Booking not found"
)

type BookingService struct {
	repo     domain.BookingRepository
	bikes    domain.BikeFinder
	eventBus domain.EventPublisher
	config   config.BookingConfig
	location *time.Location
	now      func() time.Time
	logger   *zerolog.Logger
}

func NewBookingService(
	repo domain.BookingRepository,
	bikes domain.BikeFinder,
	eventBus domain.EventPublisher,
	cfg config.BookingConfig,
	logger *zerolog.Logger,
) (*BookingService, error) {
	if cfg.Timezone == "" {
		cfg.Timezone = models.DefaultTimezone
	}
	if cfg.SlotDuration <= 0 {
		cfg.SlotDuration = models.DefaultConflictWindow * time.Second
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load booking timezone: %w", err)
	}

	return &BookingService{
		repo:     repo,
		bikes:    bikes,
		eventBus: eventBus,
		config:   cfg,
		location: loc,
		now:      time.Now,
		logger:   logger,
	}, nil
}

// CreateBooking validates the request, runs the slot and duplicate checks and
// persists a pending booking.
func (s *BookingService) CreateBooking(ctx context.Context, userID string, req models.BookingRequest) (*models.Booking, error) {
	booking, err := s.createBooking(ctx, userID, req)
	if err != nil {
		metrics.IncBookingRejected(domain.KindName(err))
		return nil, err
	}

	metrics.IncBookingCreated()
	s.publishEvent(events.EventBookingCreated, booking, userID)
	s.logger.Info().
		Str("booking_id", booking.ID).
		Str("user_id", userID).
		Time("scheduled_at", booking.ScheduledAt).
		Msg("Booking created")
	return booking, nil
}

func (s *BookingService) createBooking(ctx context.Context, userID string, req models.BookingRequest) (*models.Booking, error) {
	if err := validateRequest(userID, req); err != nil {
		return nil, err
	}

	scheduledAt, err := ResolveSchedule(req.Date, req.Time, s.location)
	if err != nil {
		return nil, err
	}
	if !scheduledAt.After(s.now()) {
		return nil, domain.Errorf(domain.ErrInvalidSchedule, "Enter Valid Date")
	}

	bike, err := s.bikes.FindBikeByID(ctx, req.BikeID)
	if err != nil {
		return nil, fmt.Errorf("find bike: %w", err)
	}
	if bike == nil {
		return nil, domain.Errorf(domain.ErrValidation, "bike not found")
	}

	booking := &models.Booking{
		UserID:       userID,
		BikeID:       bike.ID,
		ChasisNumber: strings.TrimSpace(req.ChasisNumber),
		Description:  strings.TrimSpace(req.Description),
		BikeNumber:   strings.TrimSpace(req.BikeNumber),
		Address:      strings.TrimSpace(req.Address),
		ScheduledAt:  scheduledAt,
		Total:        *req.Total,
		Status:       models.StatusPending,
	}

	slot := s.slotQuery(scheduledAt, bike.ID)
	if s.config.SerializeCreation {
		if err := s.repo.CreateBookingWithLock(ctx, booking, slot); err != nil {
			return nil, mapCreateError(err)
		}
		return booking, nil
	}

	// Check-then-insert without a lock; concurrent requests may both pass.
	taken, err := s.repo.FindBookingsInSlot(ctx, slot)
	if err != nil {
		return nil, err
	}
	if len(taken) > 0 {
		return nil, domain.Errorf(domain.ErrSlotConflict, msgSlotTaken)
	}

	pending, err := s.repo.HasPendingBooking(ctx, userID, booking.BikeNumber)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, domain.Errorf(domain.ErrDuplicateActive, msgDuplicate)
	}

	if err := s.repo.CreateBooking(ctx, booking); err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *BookingService) slotQuery(at time.Time, bikeID string) domain.SlotQuery {
	w := ConflictWindow(at, s.config)
	q := domain.SlotQuery{From: w.From, To: w.To}
	if s.config.ScopeByBike {
		q.BikeID = bikeID
	}
	return q
}

func validateRequest(userID string, req models.BookingRequest) error {
	if userID == "" {
		return domain.Errorf(domain.ErrUnauthorized, "authentication required")
	}
	fields := []string{req.BikeID, req.ChasisNumber, req.Description, req.Date, req.Time, req.BikeNumber, req.Address}
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			return domain.Errorf(domain.ErrValidation, "Please enter all fields")
		}
	}
	if req.Total == nil {
		return domain.Errorf(domain.ErrValidation, "Please enter all fields")
	}
	if *req.Total <= 0 {
		return domain.Errorf(domain.ErrValidation, "total must be greater than zero")
	}
	return nil
}

func mapCreateError(err error) error {
	switch {
	case errors.Is(err, database.ErrSlotTaken):
		return domain.Errorf(domain.ErrSlotConflict, msgSlotTaken)
	case errors.Is(err, database.ErrDuplicateActive):
		return domain.Errorf(domain.ErrDuplicateActive, msgDuplicate)
	default:
		return err
	}
}

// ListMyBookings returns the caller's pending bookings with bike and owner expanded.
func (s *BookingService) ListMyBookings(ctx context.Context, userID string) ([]*models.BookingDetails, error) {
	return s.repo.ListBookingDetails(ctx, domain.BookingFilter{UserID: userID, Status: models.StatusPending})
}

func (s *BookingService) ListAllBookings(ctx context.Context, caller models.Identity) ([]*models.BookingDetails, error) {
	if !caller.IsAdmin {
		return nil, domain.Errorf(domain.ErrForbidden, "admin access required")
	}
	return s.repo.ListBookingDetails(ctx, domain.BookingFilter{})
}

// CancelBooking sets the booking to canceled. Repeating it on a terminal booking overwrites the status.
func (s *BookingService) CancelBooking(ctx context.Context, caller models.Identity, id string) error {
	booking, err := s.loadBooking(ctx, id)
	if err != nil {
		return err
	}
	if err := assertOwnerOrAdmin(caller, booking); err != nil {
		return err
	}

	if err := s.repo.UpdateBookingStatus(ctx, id, models.StatusCanceled); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return domain.Errorf(domain.ErrNotFound, msgBookingMissing)
		}
		return err
	}

	booking.Status = models.StatusCanceled
	metrics.IncBookingTransition(models.StatusCanceled)
	s.publishEvent(events.EventBookingCanceled, booking, caller.UserID)
	return nil
}

// CompleteAllForUser marks every booking of the user completed, whatever its status.
func (s *BookingService) CompleteAllForUser(ctx context.Context, userID string) (int64, error) {
	bookings, err := s.repo.ListBookingDetails(ctx, domain.BookingFilter{UserID: userID})
	if err != nil {
		return 0, err
	}
	if len(bookings) == 0 {
		return 0, domain.Errorf(domain.ErrNotFound, "No bookings found")
	}

	n, err := s.repo.UpdateUserBookingsStatus(ctx, userID, models.StatusCompleted)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, domain.Errorf(domain.ErrNotFound, "No bookings found")
	}

	for _, d := range bookings {
		b := d.Booking
		b.Status = models.StatusCompleted
		metrics.IncBookingTransition(models.StatusCompleted)
		s.publishEvent(events.EventBookingCompleted, &b, userID)
	}
	return n, nil
}

// TransitionStatus moves a single pending booking to completed or canceled.
func (s *BookingService) TransitionStatus(ctx context.Context, caller models.Identity, id, status string) (*models.Booking, error) {
	if status != models.StatusCompleted && status != models.StatusCanceled {
		return nil, domain.Errorf(domain.ErrValidation, "status must be %q or %q", models.StatusCompleted, models.StatusCanceled)
	}

	booking, err := s.loadBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := assertOwnerOrAdmin(caller, booking); err != nil {
		return nil, err
	}
	if booking.Status != models.StatusPending {
		return nil, domain.Errorf(domain.ErrInvalidTransition, "cannot move booking from %s to %s", booking.Status, status)
	}

	if err := s.repo.UpdateBookingStatusWithVersion(ctx, id, booking.Version, status); err != nil {
		if errors.Is(err, database.ErrConcurrentModification) {
			return nil, domain.Errorf(domain.ErrConcurrentModified, "booking was modified concurrently, retry")
		}
		return nil, err
	}

	booking.Status = status
	booking.Version++
	metrics.IncBookingTransition(status)

	eventType := events.EventBookingCompleted
	if status == models.StatusCanceled {
		eventType = events.EventBookingCanceled
	}
	s.publishEvent(eventType, booking, caller.UserID)
	return booking, nil
}

// DeleteBooking hard-deletes a booking. A missing booking is not an error.
func (s *BookingService) DeleteBooking(ctx context.Context, caller models.Identity, id string) error {
	booking, err := s.repo.GetBooking(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := assertOwnerOrAdmin(caller, booking); err != nil {
		return err
	}

	if err := s.repo.DeleteBooking(ctx, id); err != nil {
		return err
	}
	s.publishEvent(events.EventBookingDeleted, booking, caller.UserID)
	return nil
}

func (s *BookingService) GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error) {
	return s.repo.GetBookingsByDateRange(ctx, start, end)
}

// Location is the zone bookings are scheduled in.
func (s *BookingService) Location() *time.Location {
	return s.location
}

func (s *BookingService) loadBooking(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, domain.Errorf(domain.ErrNotFound, msgBookingMissing)
	}
	return booking, err
}

func assertOwnerOrAdmin(caller models.Identity, booking *models.Booking) error {
	if caller.IsAdmin || (caller.UserID != "" && caller.UserID == booking.UserID) {
		return nil
	}
	return domain.Errorf(domain.ErrForbidden, "not allowed to modify this booking")
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, changedBy string) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:   booking.ID,
		UserID:      booking.UserID,
		BikeID:      booking.BikeID,
		BikeNumber:  booking.BikeNumber,
		Status:      booking.Status,
		ScheduledAt: booking.ScheduledAt,
		ChangedBy:   changedBy,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("booking_id", booking.ID).Msg("publish event error")
	}
}
