package server

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/subscription"
)

// handleSubscribe accepts the public subscription form.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}
	name := r.PostFormValue("name")
	email := r.PostFormValue("email")

	err := s.subscriptions.Subscribe(r.Context(), name, email)
	if err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			http.Error(w, vErr.Error(), http.StatusBadRequest)
			return
		}
		s.log.Error("subscribe failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError),
			http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleConfirm activates a pending subscription from the emailed link.
// Unknown tokens get the same 401 whether they never existed or were
// guessed, so the response leaks nothing about issued tokens.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("subscription_token")
	if token == "" {
		http.Error(w, "missing subscription_token", http.StatusBadRequest)
		return
	}

	err := s.subscriptions.Confirm(r.Context(), token)
	if err != nil {
		if errors.Is(err, subscription.ErrUnknownToken) {
			http.Error(w, http.StatusText(http.StatusUnauthorized),
				http.StatusUnauthorized)
			return
		}
		s.log.Error("confirm failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError),
			http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
