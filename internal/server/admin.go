package server

import (
	"fmt"
	"html"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// handleDashboard greets the logged-in administrator. requireSession has
// already placed the user id in the request context.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(userIDKey).(uuid.UUID)

	username, err := s.credentials.UsernameForID(r.Context(), userID)
	if err != nil {
		s.log.Error("resolve username", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError),
			http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, dashboardPage, html.EscapeString(username))
}

// handleLogout destroys the current session and leaves a farewell flash on
// a fresh anonymous one.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := ctx.Value(sessionIDKey).(string)

	if err := s.sessions.Delete(ctx, id); err != nil {
		s.log.Error("delete session", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError),
			http.StatusInternalServerError)
		return
	}

	fresh, err := s.sessions.Create(ctx)
	if err != nil {
		s.log.Warn("create session for logout flash", zap.Error(err))
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if err := s.sessions.SetFlash(ctx, fresh, "You have successfully logged out."); err != nil {
		s.log.Warn("store logout flash", zap.Error(err))
	}
	s.setSessionCookie(w, fresh)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
