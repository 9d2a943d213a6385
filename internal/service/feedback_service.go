package service

import (
	"context"
	"strings"

	"bikeservice/internal/domain"
	"bikeservice/internal/models"
)

type FeedbackService struct {
	repo domain.FeedbackRepository
}

func NewFeedbackService(repo domain.FeedbackRepository) *FeedbackService {
	return &FeedbackService{repo: repo}
}

func (s *FeedbackService) Submit(ctx context.Context, userID, subject, message string, rating int) (*models.Feedback, error) {
	subject = strings.TrimSpace(subject)
	message = strings.TrimSpace(message)
	if subject == "" || message == "" {
		return nil, domain.Errorf(domain.ErrValidation, "Please enter all fields")
	}
	if rating < 1 || rating > 5 {
		return nil, domain.Errorf(domain.ErrValidation, "Rating must be between 1 and 5")
	}

	fb := &models.Feedback{
		UserID:  userID,
		Subject: subject,
		Message: message,
		Rating:  rating,
	}
	if err := s.repo.CreateFeedback(ctx, fb); err != nil {
		return nil, err
	}
	return fb, nil
}

func (s *FeedbackService) List(ctx context.Context) ([]*models.Feedback, error) {
	return s.repo.GetAllFeedback(ctx)
}
