package service

import (
	"context"
	"errors"
	"strings"

	"bikeservice/internal/database"
	"bikeservice/internal/domain"
	"bikeservice/internal/models"

	"github.com/rs/zerolog"
)

const defaultMessagePageSize = 10

// UserLookup resolves a user by id.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

type MessageService struct {
	repo     domain.MessageRepository
	users    UserLookup
	presence domain.PresenceRepository
	logger   *zerolog.Logger
}

func NewMessageService(repo domain.MessageRepository, users UserLookup, presence domain.PresenceRepository, logger *zerolog.Logger) *MessageService {
	return &MessageService{
		repo:     repo,
		users:    users,
		presence: presence,
		logger:   logger,
	}
}

// Send stores a message from sender to receiver and returns it with both
// parties attached.
func (s *MessageService) Send(ctx context.Context, senderID, receiverID, text, msgType string) (*models.Message, error) {
	receiverID = strings.TrimSpace(receiverID)
	text = strings.TrimSpace(text)
	if receiverID == "" || text == "" {
		return nil, domain.Errorf(domain.ErrValidation, "Please enter all fields")
	}

	switch msgType {
	case "":
		msgType = models.MessageTypeText
	case models.MessageTypeText, models.MessageTypeImage, models.MessageTypeFile:
	default:
		return nil, domain.Errorf(domain.ErrValidation, "Invalid message type")
	}

	if _, err := s.users.GetUserByID(ctx, receiverID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, domain.Errorf(domain.ErrNotFound, "Receiver not found")
		}
		return nil, err
	}

	m := &models.Message{SenderID: senderID, ReceiverID: receiverID, Message: text, Type: msgType}
	if err := s.repo.CreateMessage(ctx, m); err != nil {
		return nil, err
	}

	if s.presence != nil {
		if conn, online, err := s.presence.Lookup(ctx, receiverID); err == nil && online {
			s.logger.Debug().Str("receiver", receiverID).Str("connection_id", conn).Msg("Receiver online")
		}
	}
	return s.repo.GetMessage(ctx, m.ID)
}

// Conversation pages through the history between the caller and another user.
func (s *MessageService) Conversation(ctx context.Context, callerID, otherID string, page, limit int) ([]*models.Message, error) {
	if strings.TrimSpace(otherID) == "" {
		return nil, domain.Errorf(domain.ErrValidation, "user id is required")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultMessagePageSize
	}
	return s.repo.GetConversation(ctx, callerID, otherID, limit, (page-1)*limit)
}

// Get returns a single message visible to its sender, its receiver and admins.
func (s *MessageService) Get(ctx context.Context, caller models.Identity, id string) (*models.Message, error) {
	m, err := s.repo.GetMessage(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, domain.Errorf(domain.ErrNotFound, "Message not found")
	}
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin && caller.UserID != m.SenderID && caller.UserID != m.ReceiverID {
		return nil, domain.Errorf(domain.ErrForbidden, "not allowed to read this message")
	}
	return m, nil
}
