package api

import (
	"net/http"

	"bikeservice/internal/models"

	"github.com/go-chi/chi/v5"
)

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req models.BookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	booking, err := s.svc.Bookings.CreateBooking(r.Context(), identityFrom(r.Context()).UserID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Booking created successfully",
		"booking": booking,
	})
}

func (s *HTTPServer) handleListMyBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.svc.Bookings.ListMyBookings(r.Context(), identityFrom(r.Context()).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *HTTPServer) handleListAllBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.svc.Bookings.ListAllBookings(r.Context(), identityFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	err := s.svc.Bookings.CancelBooking(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Booking canceled successfully")
}

func (s *HTTPServer) handleCompleteAll(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.Bookings.CompleteAllForUser(r.Context(), identityFrom(r.Context()).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Bookings completed successfully",
		"updated": n,
	})
}

func (s *HTTPServer) handleTransitionStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	booking, err := s.svc.Bookings.TransitionStatus(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "id"), body.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"booking": booking})
}

func (s *HTTPServer) handleDeleteBooking(w http.ResponseWriter, r *http.Request) {
	err := s.svc.Bookings.DeleteBooking(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Booking deleted successfully")
}
