package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ignite/newsletter/internal/auth"
)

type publishRequest struct {
	Title   string `json:"title"`
	Content struct {
		HTML string `json:"html"`
		Text string `json:"text"`
	} `json:"content"`
}

// handlePublish accepts a newsletter issue and fans it out to all
// confirmed subscribers. The endpoint is machine-facing and protected by
// HTTP Basic auth; credentials are checked against the same user store as
// the login form.
func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	username, password, ok := r.BasicAuth()
	if !ok {
		s.unauthorized(w)
		return
	}
	_, err := s.credentials.ValidateCredentials(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.unauthorized(w)
			return
		}
		s.log.Error("credential validation failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError),
			http.StatusInternalServerError)
		return
	}

	var body publishRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.publisher.Publish(r.Context(), body.Title, body.Content.HTML, body.Content.Text); err != nil {
		s.log.Error("publish newsletter issue", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError),
			http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="publish"`)
	http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
}
