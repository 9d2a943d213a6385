package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bikeservice/internal/database"
	"bikeservice/internal/domain"
	"bikeservice/internal/events"
	"bikeservice/internal/khalti"
	"bikeservice/internal/metrics"
	"bikeservice/internal/models"

	"github.com/rs/zerolog"
)

const msgInvalidPayment = "Incomplete or invalid payment information"

// PaymentGateway is the subset of the Khalti client used here.
type PaymentGateway interface {
	Initiate(ctx context.Context, req khalti.InitiateRequest) (*khalti.InitiateResponse, error)
	Lookup(ctx context.Context, pidx string) (*khalti.LookupResponse, error)
}

type InitiateResult struct {
	PaymentID  string  `json:"payment_id"`
	Pidx       string  `json:"pidx"`
	PaymentURL string  `json:"payment_url"`
	Amount     float64 `json:"amount"`
}

type PaymentService struct {
	payments domain.PaymentRepository
	bookings domain.BookingRepository
	gateway  PaymentGateway
	queue    domain.PaymentQueue
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewPaymentService(
	payments domain.PaymentRepository,
	bookings domain.BookingRepository,
	gateway PaymentGateway,
	queue domain.PaymentQueue,
	eventBus domain.EventPublisher,
	logger *zerolog.Logger,
) *PaymentService {
	return &PaymentService{
		payments: payments,
		bookings: bookings,
		gateway:  gateway,
		queue:    queue,
		eventBus: eventBus,
		logger:   logger,
	}
}

// SetQueue attaches the background verifier once it is constructed.
func (s *PaymentService) SetQueue(queue domain.PaymentQueue) {
	s.queue = queue
}

// Initiate charges the sum of the caller's selected bookings through the gateway.
func (s *PaymentService) Initiate(ctx context.Context, userID, websiteURL string, bookingIDs []string) (*InitiateResult, error) {
	ids := uniqueNonEmpty(bookingIDs)
	if len(ids) == 0 {
		return nil, domain.Errorf(domain.ErrValidation, "No booking names found")
	}

	bookings, err := s.bookings.GetUserBookings(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	if len(bookings) != len(ids) {
		return nil, domain.Errorf(domain.ErrNotFound, msgBookingMissing)
	}

	var total float64
	names := make([]string, 0, len(bookings))
	for _, b := range bookings {
		total += b.Total
		names = append(names, b.BikeNumber)
	}

	payment := &models.Payment{
		UserID:     userID,
		BookingIDs: ids,
		Amount:     total,
		Method:     models.PaymentMethodKhalti,
		Status:     models.PaymentStatusPending,
	}
	if err := s.payments.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}

	resp, err := s.gateway.Initiate(ctx, khalti.InitiateRequest{
		WebsiteURL:        websiteURL,
		Amount:            khalti.ToPaisa(total),
		PurchaseOrderID:   payment.ID,
		PurchaseOrderName: strings.Join(names, ", "),
	})
	if err != nil {
		if uerr := s.payments.UpdatePaymentStatus(ctx, payment.ID, models.PaymentStatusFailed, ""); uerr != nil {
			s.logger.Error().Err(uerr).Str("payment_id", payment.ID).Msg("Failed to mark payment failed")
		}
		return nil, fmt.Errorf("initiate khalti payment: %w", err)
	}

	if err := s.payments.SetPaymentPidx(ctx, payment.ID, resp.Pidx); err != nil {
		return nil, err
	}

	if s.queue != nil {
		if err := s.queue.EnqueueVerification(ctx, payment.ID, resp.Pidx); err != nil {
			s.logger.Error().Err(err).Str("payment_id", payment.ID).Msg("Failed to enqueue payment verification")
		}
	}

	s.logger.Info().Str("payment_id", payment.ID).Str("pidx", resp.Pidx).Float64("amount", total).Msg("Payment initiated")
	return &InitiateResult{
		PaymentID:  payment.ID,
		Pidx:       resp.Pidx,
		PaymentURL: resp.PaymentURL,
		Amount:     total,
	}, nil
}

// Complete handles the gateway return URL. amount is in paisa.
func (s *PaymentService) Complete(ctx context.Context, pidx string, amount int64, purchaseOrderID string) (*models.Payment, error) {
	if pidx == "" {
		return nil, domain.Errorf(domain.ErrValidation, "pidx is required")
	}

	info, err := s.gateway.Lookup(ctx, pidx)
	if err != nil {
		return nil, fmt.Errorf("lookup khalti payment: %w", err)
	}
	if info.Status != khalti.StatusCompleted || info.Pidx != pidx || info.TotalAmount != amount {
		return nil, domain.Errorf(domain.ErrValidation, msgInvalidPayment)
	}

	var payment *models.Payment
	if purchaseOrderID != "" {
		payment, err = s.payments.GetPayment(ctx, purchaseOrderID)
	} else {
		payment, err = s.payments.GetPaymentByPidx(ctx, pidx)
	}
	if errors.Is(err, database.ErrNotFound) {
		return nil, domain.Errorf(domain.ErrNotFound, "Payment not found")
	}
	if err != nil {
		return nil, err
	}
	if payment.Pidx != "" && payment.Pidx != pidx {
		return nil, domain.Errorf(domain.ErrValidation, msgInvalidPayment)
	}

	if err := s.settle(ctx, payment, models.PaymentStatusSuccess, info.Transaction()); err != nil {
		return nil, err
	}
	return payment, nil
}

// VerifyPayment reconciles a pending payment with the gateway. It reports
// final=false while the gateway still shows the payment as in progress.
func (s *PaymentService) VerifyPayment(ctx context.Context, paymentID, pidx string) (bool, error) {
	payment, err := s.payments.GetPayment(ctx, paymentID)
	if err != nil {
		return false, err
	}
	if payment.Status != models.PaymentStatusPending {
		return true, nil
	}

	info, err := s.gateway.Lookup(ctx, pidx)
	if err != nil {
		return false, err
	}
	if !info.Final() {
		return false, nil
	}

	status := models.PaymentStatusFailed
	if info.Status == khalti.StatusCompleted && info.TotalAmount == khalti.ToPaisa(payment.Amount) {
		status = models.PaymentStatusSuccess
	}
	if info.Status == khalti.StatusCompleted && status == models.PaymentStatusFailed {
		s.logger.Warn().
			Str("payment_id", payment.ID).
			Int64("paid", info.TotalAmount).
			Int64("expected", khalti.ToPaisa(payment.Amount)).
			Msg("Gateway amount mismatch")
	}
	return true, s.settle(ctx, payment, status, info.Transaction())
}

func (s *PaymentService) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	p, err := s.payments.GetPayment(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, domain.Errorf(domain.ErrNotFound, "Payment not found")
	}
	return p, err
}

func (s *PaymentService) settle(ctx context.Context, payment *models.Payment, status, transactionID string) error {
	if err := s.payments.UpdatePaymentStatus(ctx, payment.ID, status, transactionID); err != nil {
		return err
	}
	payment.Status = status
	payment.TransactionID = transactionID
	metrics.IncPayment(status)

	eventType := events.EventPaymentCompleted
	if status != models.PaymentStatusSuccess {
		eventType = events.EventPaymentFailed
	}
	if s.eventBus != nil {
		err := s.eventBus.PublishJSON(eventType, events.PaymentEventPayload{
			PaymentID:     payment.ID,
			UserID:        payment.UserID,
			BookingIDs:    payment.BookingIDs,
			Amount:        payment.Amount,
			Status:        status,
			TransactionID: transactionID,
		})
		if err != nil {
			s.logger.Error().Err(err).Str("event_type", eventType).Str("payment_id", payment.ID).Msg("publish event error")
		}
	}

	s.logger.Info().Str("payment_id", payment.ID).Str("status", status).Msg("Payment settled")
	return nil
}

func uniqueNonEmpty(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
