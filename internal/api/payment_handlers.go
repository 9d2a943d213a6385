package api

import (
	"net/http"
	"strconv"

	"bikeservice/internal/domain"

	"github.com/go-chi/chi/v5"
)

func (s *HTTPServer) handleInitiatePayment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		BookingIDs []string `json:"bookingIds"`
		WebsiteURL string   `json:"website_url"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.svc.Payments.Initiate(r.Context(), identityFrom(r.Context()).UserID, body.WebsiteURL, body.BookingIDs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleCompletePayment is the gateway return URL.
func (s *HTTPServer) handleCompletePayment(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rawAmount := q.Get("total_amount")
	if rawAmount == "" {
		rawAmount = q.Get("amount")
	}
	amount, err := strconv.ParseInt(rawAmount, 10, 64)
	if err != nil {
		s.badRequest(w, r, "Incomplete or invalid payment information")
		return
	}

	payment, err := s.svc.Payments.Complete(r.Context(), q.Get("pidx"), amount, q.Get("purchase_order_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Payment successful",
		"payment": payment,
	})
}

func (s *HTTPServer) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	payment, err := s.svc.Payments.GetPayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	caller := identityFrom(r.Context())
	if !caller.IsAdmin && payment.UserID != caller.UserID {
		s.writeError(w, r, domain.Errorf(domain.ErrForbidden, "not allowed to view this payment"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"payment": payment})
}
