package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bikeservice/internal/database"
	"bikeservice/internal/domain"
	"bikeservice/internal/events"
	"bikeservice/internal/models"

	"github.com/rs/zerolog"
)

// EventSubscriber is the subscription side of the event bus.
type EventSubscriber interface {
	Subscribe(eventType string, handler events.EventHandler)
}

type NotificationService struct {
	repo     domain.NotificationRepository
	presence domain.PresenceRepository
	logger   *zerolog.Logger
}

func NewNotificationService(repo domain.NotificationRepository, presence domain.PresenceRepository, logger *zerolog.Logger) *NotificationService {
	return &NotificationService{
		repo:     repo,
		presence: presence,
		logger:   logger,
	}
}

// Subscribe turns booking and payment events into notifications for their owner.
func (s *NotificationService) Subscribe(bus EventSubscriber) {
	for _, t := range []string{
		events.EventBookingCreated,
		events.EventBookingCanceled,
		events.EventBookingCompleted,
	} {
		bus.Subscribe(t, s.onBookingEvent)
	}
	bus.Subscribe(events.EventPaymentCompleted, s.onPaymentEvent)
	bus.Subscribe(events.EventPaymentFailed, s.onPaymentEvent)
}

func (s *NotificationService) onBookingEvent(event *events.Event) error {
	var p events.BookingEventPayload
	if err := event.Decode(&p); err != nil {
		return err
	}
	msg := fmt.Sprintf("Your booking for %s is %s", p.BikeNumber, p.Status)
	_, err := s.Create(context.Background(), p.UserID, msg)
	return err
}

func (s *NotificationService) onPaymentEvent(event *events.Event) error {
	var p events.PaymentEventPayload
	if err := event.Decode(&p); err != nil {
		return err
	}
	msg := fmt.Sprintf("Your payment of Rs. %.2f was %s", p.Amount, p.Status)
	_, err := s.Create(context.Background(), p.UserID, msg)
	return err
}

func (s *NotificationService) Create(ctx context.Context, receiver, message string) (*models.Notification, error) {
	receiver = strings.TrimSpace(receiver)
	message = strings.TrimSpace(message)
	if receiver == "" || message == "" {
		return nil, domain.Errorf(domain.ErrValidation, "Please enter all fields")
	}

	n := &models.Notification{Receiver: receiver, Message: message}
	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return nil, err
	}

	if s.presence != nil {
		if conn, online, err := s.presence.Lookup(ctx, receiver); err == nil && online {
			s.logger.Debug().Str("receiver", receiver).Str("connection_id", conn).Msg("Receiver online")
		}
	}
	return n, nil
}

func (s *NotificationService) ListMine(ctx context.Context, receiver string) ([]*models.Notification, error) {
	return s.repo.GetNotifications(ctx, receiver)
}

func (s *NotificationService) MarkRead(ctx context.Context, id, receiver string) error {
	err := s.repo.MarkNotificationRead(ctx, id, receiver)
	if errors.Is(err, database.ErrNotFound) {
		return domain.Errorf(domain.ErrNotFound, "Notification not found")
	}
	return err
}

// PresenceService exposes the presence registry to the chat gateway.
type PresenceService struct {
	repo domain.PresenceRepository
}

func NewPresenceService(repo domain.PresenceRepository) *PresenceService {
	return &PresenceService{repo: repo}
}

func (s *PresenceService) Register(ctx context.Context, userID, connectionID string) error {
	if strings.TrimSpace(connectionID) == "" {
		return domain.Errorf(domain.ErrValidation, "connection id is required")
	}
	return s.repo.Register(ctx, userID, connectionID)
}

func (s *PresenceService) Lookup(ctx context.Context, userID string) (string, bool, error) {
	return s.repo.Lookup(ctx, userID)
}

func (s *PresenceService) Unregister(ctx context.Context, connectionID string) error {
	return s.repo.Unregister(ctx, connectionID)
}
