package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bikeservice/internal/config"
	"bikeservice/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Services are the application services exposed over HTTP.
type Services struct {
	Bookings      *service.BookingService
	Catalog       *service.CatalogService
	Users         *service.UserService
	Payments      *service.PaymentService
	Feedback      *service.FeedbackService
	Notifications *service.NotificationService
	Messages      *service.MessageService
	Presence      *service.PresenceService
	Admin         *service.AdminService

	// Ready reports whether backing stores are reachable.
	Ready func(ctx context.Context) error
}

type HTTPServer struct {
	cfg     config.APIConfig
	svc     Services
	limiter *rateLimiter
	router  chi.Router
	server  *http.Server
	logger  *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, svc Services, logger *zerolog.Logger) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	s := &HTTPServer{
		cfg:     cfg,
		svc:     svc,
		limiter: newRateLimiter(cfg.RateLimit),
		logger:  logger,
	}
	s.router = s.routes()

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(s.observe)
	r.Use(s.rateLimit)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Route("/user", func(r chi.Router) {
			r.Post("/create", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Post("/verify_otp", s.handleVerifyOTP)
			r.Post("/forgot_password", s.handleForgotPassword)
			r.Post("/reset_password", s.handleResetPassword)
			r.Post("/forgot/email", s.handleForgotPasswordByEmail)
			r.Post("/reset/email", s.handleResetPasswordByEmail)

			r.Group(func(r chi.Router) {
				r.Use(s.authenticate, s.recordActivity)
				r.Get("/me", s.handleGetMe)
				r.Put("/me", s.handleUpdateMe)
				r.With(s.requireAdmin).Get("/all", s.handleListUsers)
			})
		})

		r.Route("/bike", func(r chi.Router) {
			r.Get("/", s.handleListBikes)
			r.Get("/models", s.handleBikeModels)
			r.Get("/count", s.handleBikeCount)
			r.Get("/grouped", s.handleBikesGrouped)
			r.Get("/name/{name}", s.handleBikesByName)
			r.Get("/{id}", s.handleGetBike)

			r.Group(func(r chi.Router) {
				r.Use(s.authenticate, s.requireAdmin, s.recordActivity)
				r.Post("/", s.handleCreateBike)
				r.Put("/{id}", s.handleUpdateBike)
				r.Delete("/{id}", s.handleDeleteBike)
			})
		})

		r.Route("/booking", func(r chi.Router) {
			r.Use(s.authenticate, s.recordActivity)
			r.Post("/add", s.handleCreateBooking)
			r.Get("/userBooking", s.handleListMyBookings)
			r.With(s.requireAdmin).Get("/all", s.handleListAllBookings)
			r.Put("/cancel/{id}", s.handleCancelBooking)
			r.Put("/change_status", s.handleCompleteAll)
			r.Put("/{id}/status", s.handleTransitionStatus)
			r.Delete("/delete/{id}", s.handleDeleteBooking)
		})

		r.Route("/payment", func(r chi.Router) {
			r.Get("/complete-khalti-payment", s.handleCompletePayment)
			r.Group(func(r chi.Router) {
				r.Use(s.authenticate, s.recordActivity)
				r.Post("/initialize_khalti", s.handleInitiatePayment)
				r.Get("/{id}", s.handleGetPayment)
			})
		})

		r.Route("/feedback", func(r chi.Router) {
			r.Use(s.authenticate, s.recordActivity)
			r.Post("/", s.handleSubmitFeedback)
			r.With(s.requireAdmin).Get("/", s.handleListFeedback)
		})

		r.Route("/notification", func(r chi.Router) {
			r.Use(s.authenticate, s.recordActivity)
			r.Post("/", s.handleCreateNotification)
			r.Get("/", s.handleListNotifications)
			r.Put("/{id}/read", s.handleMarkNotificationRead)
		})

		r.Route("/message", func(r chi.Router) {
			r.Use(s.authenticate, s.recordActivity)
			r.Post("/send", s.handleSendMessage)
			r.Get("/get/{id}", s.handleConversation)
			r.Get("/get_by_id/{id}", s.handleGetMessage)
		})

		r.Route("/presence", func(r chi.Router) {
			r.Use(s.authenticate)
			r.Put("/", s.handleRegisterPresence)
			r.Get("/{id}", s.handleLookupPresence)
			r.Delete("/{id}", s.handleUnregisterPresence)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.authenticate, s.requireAdmin, s.recordActivity)
			r.Get("/dashboard_stats", s.handleDashboardStats)
			r.Get("/logs", s.handleActivityLogs)
			r.Get("/bookings/export", s.handleExportBookings)
		})
	})

	return r
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.svc.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.svc.Ready(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Readiness check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
