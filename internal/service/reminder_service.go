package service

import (
	"context"
	"fmt"
	"time"

	"bikeservice/internal/domain"
	"bikeservice/internal/models"

	"github.com/rs/zerolog"
)

// Notifier stores a notification for a receiver.
type Notifier interface {
	Create(ctx context.Context, receiver, message string) (*models.Notification, error)
}

// ReminderService notifies owners of pending bookings scheduled for the next day.
type ReminderService struct {
	bookings domain.BookingRepository
	notifier Notifier
	location *time.Location
	hour     int
	now      func() time.Time
	logger   *zerolog.Logger
}

func NewReminderService(
	bookings domain.BookingRepository,
	notifier Notifier,
	location *time.Location,
	hour int,
	logger *zerolog.Logger,
) *ReminderService {
	if location == nil {
		location = time.UTC
	}
	return &ReminderService{
		bookings: bookings,
		notifier: notifier,
		location: location,
		hour:     hour,
		now:      time.Now,
		logger:   logger,
	}
}

// Start waits until the reminder hour in the booking zone and then fires once a day.
func (s *ReminderService) Start(ctx context.Context) {
	timer := time.NewTimer(timeUntilNextHour(s.now().In(s.location), s.hour))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if _, err := s.SendTomorrowReminders(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Reminder run failed")
			}
			timer.Reset(timeUntilNextHour(s.now().In(s.location), s.hour))
		}
	}
}

// SendTomorrowReminders notifies every pending booking of the next calendar day and returns how many were sent.
func (s *ReminderService) SendTomorrowReminders(ctx context.Context) (int, error) {
	today := s.now().In(s.location)
	start := time.Date(today.Year(), today.Month(), today.Day()+1, 0, 0, 0, 0, s.location)
	end := start.AddDate(0, 0, 1).Add(-time.Millisecond)

	bookings, err := s.bookings.GetBookingsByDateRange(ctx, start, end)
	if err != nil {
		return 0, fmt.Errorf("load tomorrow's bookings: %w", err)
	}

	sent := 0
	for _, b := range bookings {
		if b.Status != models.StatusPending {
			continue
		}
		if _, err := s.notifier.Create(ctx, b.UserID, formatReminderMessage(b, s.location)); err != nil {
			s.logger.Error().Err(err).Str("booking_id", b.ID).Msg("reminder: notify error")
			continue
		}
		sent++
	}

	s.logger.Info().Int("sent", sent).Time("day", start).Msg("Booking reminders sent")
	return sent, nil
}

func formatReminderMessage(b *models.Booking, loc *time.Location) string {
	return fmt.Sprintf("Reminder: your booking for %s is tomorrow at %s",
		b.BikeNumber, b.ScheduledAt.In(loc).Format("15:04"))
}

func timeUntilNextHour(now time.Time, hour int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
