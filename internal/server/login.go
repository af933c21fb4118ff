package server

import (
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/ignite/newsletter/internal/auth"
)

// handleLoginForm renders the login page. A pending flash message from the
// session takes precedence; failing that, a signed legacy error query
// (error + tag) is honored. Unsigned or tampered query messages are
// dropped so the page cannot be used to spoof arbitrary content.
func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	msg := ""
	if id, ok := s.sessionFromRequest(r); ok {
		flash, err := s.sessions.PopFlash(r.Context(), id)
		if err != nil {
			s.log.Warn("read flash message", zap.Error(err))
		} else {
			msg = flash
		}
	}
	if msg == "" {
		msg = s.verifiedErrorQuery(r)
	}

	errorHTML := ""
	if msg != "" {
		errorHTML = fmt.Sprintf("<p><i>%s</i></p>", html.EscapeString(msg))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, loginPage, errorHTML)
}

// verifiedErrorQuery returns the error message carried in the query string
// if and only if its HMAC tag verifies against the exact signed bytes
// ("error=" + urlencoded message).
func (s *Server) verifiedErrorQuery(r *http.Request) string {
	q := r.URL.Query()
	msg := q.Get("error")
	tag := q.Get("tag")
	if msg == "" || tag == "" {
		return ""
	}
	payload := []byte("error=" + url.QueryEscape(msg))
	if err := s.signer.VerifyHex(payload, tag); err != nil {
		s.log.Warn("failed to verify error query parameters",
			zap.Error(err))
		return ""
	}
	return msg
}

// handleLogin checks the submitted credentials. On success the session id
// is rotated before the user id is stored, so a session fixed before
// authentication never becomes an authenticated one.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	userID, err := s.credentials.ValidateCredentials(r.Context(), username, password)
	if err != nil {
		msg := "Something went wrong"
		if errors.Is(err, auth.ErrInvalidCredentials) {
			msg = "Authentication failed"
		} else {
			s.log.Error("credential validation failed", zap.Error(err))
		}
		s.redirectWithFlash(w, r, msg)
		return
	}

	ctx := r.Context()
	id, ok := s.sessionFromRequest(r)
	if ok {
		id, err = s.sessions.Renew(ctx, id)
		if err != nil {
			// A stale cookie pointing at an expired session is normal;
			// start over with a fresh one.
			s.log.Warn("renew session", zap.Error(err))
			id, err = s.sessions.Create(ctx)
		}
	} else {
		id, err = s.sessions.Create(ctx)
	}
	if err != nil {
		s.log.Error("create session", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError),
			http.StatusInternalServerError)
		return
	}
	if err := s.sessions.SetUserID(ctx, id, userID); err != nil {
		s.log.Error("store user id in session", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError),
			http.StatusInternalServerError)
		return
	}

	s.setSessionCookie(w, id)
	http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
}

// redirectWithFlash stores msg as a one-shot flash message and sends the
// client back to the login form.
func (s *Server) redirectWithFlash(w http.ResponseWriter, r *http.Request, msg string) {
	ctx := r.Context()
	id, ok := s.sessionFromRequest(r)
	if !ok {
		var err error
		id, err = s.sessions.Create(ctx)
		if err != nil {
			s.log.Error("create session for flash", zap.Error(err))
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
	}
	if err := s.sessions.SetFlash(ctx, id, msg); err != nil {
		s.log.Warn("store flash message", zap.Error(err))
	}
	s.setSessionCookie(w, id)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
