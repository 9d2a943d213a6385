package api

import (
	"net/http"

	"bikeservice/internal/models"

	"github.com/go-chi/chi/v5"
)

func (s *HTTPServer) handleListBikes(w http.ResponseWriter, r *http.Request) {
	bikes, err := s.svc.Catalog.ListBikes(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bikes": bikes})
}

func (s *HTTPServer) handleGetBike(w http.ResponseWriter, r *http.Request) {
	bike, err := s.svc.Catalog.GetBike(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bike": bike})
}

func (s *HTTPServer) handleBikesByName(w http.ResponseWriter, r *http.Request) {
	bikes, err := s.svc.Catalog.GetBikesByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bikes": bikes})
}

func (s *HTTPServer) handleBikeModels(w http.ResponseWriter, r *http.Request) {
	names, err := s.svc.Catalog.GetBikeModels(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": names})
}

func (s *HTTPServer) handleBikeCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.Catalog.CountBikes(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": n})
}

func (s *HTTPServer) handleBikesGrouped(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	size := queryInt(r, "size", models.DefaultPaginationSize)

	groups, total, err := s.svc.Catalog.GroupedByName(r.Context(), page, size)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"groups": groups,
		"total":  total,
		"page":   page,
	})
}

func (s *HTTPServer) handleCreateBike(w http.ResponseWriter, r *http.Request) {
	var bike models.Bike
	if err := decodeJSON(w, r, &bike); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.svc.Catalog.CreateBike(r.Context(), &bike); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"bike": bike})
}

func (s *HTTPServer) handleUpdateBike(w http.ResponseWriter, r *http.Request) {
	var bike models.Bike
	if err := decodeJSON(w, r, &bike); err != nil {
		s.writeError(w, r, err)
		return
	}
	bike.ID = chi.URLParam(r, "id")

	if err := s.svc.Catalog.UpdateBike(r.Context(), &bike); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bike": bike})
}

func (s *HTTPServer) handleDeleteBike(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Catalog.DeleteBike(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Bike deleted successfully")
}
