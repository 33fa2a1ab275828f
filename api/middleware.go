package api

import (
	"context"
	"net/http"
	"strings"

	"SchoolPortal/api/constants"
	"SchoolPortal/internal/session"
)

type contextKey string

const SessionKey contextKey = "session"

// SessionValidator is satisfied by *auth.AuthService.
type SessionValidator interface {
	Validate(sessionID string) (*session.Session, error)
}

// SessionMiddleware rejects requests without a live X-Session-ID and puts
// the session on the request context.
func SessionMiddleware(v SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				RespondWithError(w, http.StatusServiceUnavailable, constants.ErrAuthUnavailable)
				return
			}
			id := strings.TrimSpace(r.Header.Get(constants.HeaderSessionID))
			if id == "" {
				RespondWithError(w, http.StatusUnauthorized, constants.ErrPleaseLogin)
				return
			}
			s, err := v.Validate(id)
			if err != nil {
				LogError("Invalid session %s from %s", id, ClientIP(r))
				RespondWithError(w, http.StatusUnauthorized, constants.ErrInvalidSession)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), SessionKey, s)))
		})
	}
}

func GetSessionFromCtx(ctx context.Context) *session.Session {
	if s, ok := ctx.Value(SessionKey).(*session.Session); ok {
		return s
	}
	return nil
}

// GetOperatorFromCtx is the operator who owns the request's session.
func GetOperatorFromCtx(ctx context.Context) string {
	if s := GetSessionFromCtx(ctx); s != nil {
		return s.UserID
	}
	return ""
}
