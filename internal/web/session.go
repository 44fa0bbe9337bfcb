package web

import (
	"net/http"

	"github.com/google/uuid"
)

// SessionCookie names the cookie that ties a browser to its review state
const SessionCookie = "invoice_session"

// sessionID returns the request's session ID, or "" when the request
// carries no valid session cookie
func sessionID(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		return ""
	}
	return cookie.Value
}

// ensureSession returns the request's session ID, starting a new session
// when there is none
func (s *Server) ensureSession(w http.ResponseWriter, r *http.Request) string {
	if id := sessionID(r); id != "" {
		return id
	}

	id := s.service.NewSessionID()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
