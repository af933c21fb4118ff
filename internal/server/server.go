// Package server wires the HTTP surface: routing, middleware, and the
// translation between transport concerns and the domain components.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ignite/newsletter/internal/session"
)

// SubscriptionService handles the subscriber lifecycle.
type SubscriptionService interface {
	Subscribe(ctx context.Context, nameRaw, emailRaw string) error
	Confirm(ctx context.Context, token string) error
}

// Publisher fans a newsletter issue out to confirmed subscribers.
type Publisher interface {
	Publish(ctx context.Context, title, htmlContent, textContent string) error
}

// CredentialValidator checks submitted credentials and resolves user ids
// for display.
type CredentialValidator interface {
	ValidateCredentials(ctx context.Context, username, password string) (uuid.UUID, error)
	UsernameForID(ctx context.Context, userID uuid.UUID) (string, error)
}

// Server contains all HTTP handlers and their dependencies.
type Server struct {
	subscriptions SubscriptionService
	publisher     Publisher
	credentials   CredentialValidator
	sessions      *session.Store
	signer        *session.Signer
	cookieName    string
	log           *zap.Logger
}

// New creates a new Server instance
func New(
	subscriptions SubscriptionService,
	publisher Publisher,
	credentials CredentialValidator,
	sessions *session.Store,
	signer *session.Signer,
	cookieName string,
	log *zap.Logger,
) *Server {
	return &Server{
		subscriptions: subscriptions,
		publisher:     publisher,
		credentials:   credentials,
		sessions:      sessions,
		signer:        signer,
		cookieName:    cookieName,
		log:           log,
	}
}

// Routes configures all HTTP routes.
func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (no auth required)
	r.Get("/health", s.handleHealth)

	// Public pages
	r.Get("/", s.handleHome)
	r.Get("/login", s.handleLoginForm)
	r.Post("/login", s.handleLogin)

	// Subscriber lifecycle
	r.Post("/subscriptions", s.handleSubscribe)
	r.Get("/subscriptions/confirm", s.handleConfirm)

	// Publishing (Basic auth inside the handler)
	r.Post("/newsletters", s.handlePublish)

	// Admin area (session required)
	r.Route("/admin", func(r chi.Router) {
		r.Use(s.requireSession)
		r.Get("/dashboard", s.handleDashboard)
		r.Post("/logout", s.handleLogout)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// sessionFromRequest extracts the session id from the signed cookie.
// A missing cookie and a tampered cookie both read as "no session".
func (s *Server) sessionFromRequest(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil {
		return "", false
	}
	id, err := s.sessions.ParseCookieValue(cookie.Value)
	if err != nil {
		s.log.Warn("rejecting session cookie with invalid signature",
			zap.Error(err))
		return "", false
	}
	return id, true
}

func (s *Server) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    s.sessions.CookieValue(id),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
