package api

import (
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"bikeservice/internal/models"

	"github.com/go-chi/chi/v5"
)

func (s *HTTPServer) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Subject string `json:"subject"`
		Message string `json:"message"`
		Rating  int    `json:"rating"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	fb, err := s.svc.Feedback.Submit(r.Context(), identityFrom(r.Context()).UserID, body.Subject, body.Message, body.Rating)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"feedback": fb})
}

func (s *HTTPServer) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Feedback.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"feedback": list})
}

func (s *HTTPServer) handleCreateNotification(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Receiver string `json:"receiver"`
		Message  string `json:"message"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	n, err := s.svc.Notifications.Create(r.Context(), body.Receiver, body.Message)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"notification": n})
}

func (s *HTTPServer) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Notifications.ListMine(r.Context(), identityFrom(r.Context()).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": list})
}

func (s *HTTPServer) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	err := s.svc.Notifications.MarkRead(r.Context(), chi.URLParam(r, "id"), identityFrom(r.Context()).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Notification marked as read")
}

func (s *HTTPServer) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Receiver string `json:"receiver"`
		Message  string `json:"message"`
		Type     string `json:"type"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	m, err := s.svc.Messages.Send(r.Context(), identityFrom(r.Context()).UserID, body.Receiver, body.Message, body.Type)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Message sent successfully", "data": m})
}

func (s *HTTPServer) handleConversation(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Messages.Conversation(r.Context(), identityFrom(r.Context()).UserID,
		chi.URLParam(r, "id"), queryInt(r, "page", 1), queryInt(r, "limit", 10))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": list})
}

func (s *HTTPServer) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	m, err := s.svc.Messages.Get(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": m})
}

func (s *HTTPServer) handleRegisterPresence(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ConnectionID string `json:"connectionId"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.svc.Presence.Register(r.Context(), identityFrom(r.Context()).UserID, body.ConnectionID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Presence registered")
}

func (s *HTTPServer) handleLookupPresence(w http.ResponseWriter, r *http.Request) {
	conn, online, err := s.svc.Presence.Lookup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"online":        online,
		"connection_id": conn,
	})
}

func (s *HTTPServer) handleUnregisterPresence(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Presence.Unregister(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Presence removed")
}

func (s *HTTPServer) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Admin.DashboardStats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *HTTPServer) handleActivityLogs(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	size := queryInt(r, "size", models.DefaultPaginationSize)

	logs, total, err := s.svc.Admin.ActivityLogs(r.Context(), page, size)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"logs":  logs,
		"total": total,
		"page":  page,
	})
}

// handleExportBookings streams an XLSX of bookings in [from, to], both YYYY-MM-DD inclusive.
func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request) {
	loc := s.svc.Bookings.Location()
	from, err := time.ParseInLocation("2006-01-02", r.URL.Query().Get("from"), loc)
	if err != nil {
		s.badRequest(w, r, "from must be a date in YYYY-MM-DD format")
		return
	}
	to, err := time.ParseInLocation("2006-01-02", r.URL.Query().Get("to"), loc)
	if err != nil {
		s.badRequest(w, r, "to must be a date in YYYY-MM-DD format")
		return
	}
	to = to.AddDate(0, 0, 1).Add(-time.Nanosecond)

	path, err := s.svc.Admin.ExportBookings(r.Context(), from, to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}
