package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"SchoolPortal/api/auth"
	"SchoolPortal/api/constants"
	"SchoolPortal/internal/logger"
)

// Gateway is the public entry point: operator login and a reverse proxy to
// the academics service.
type Gateway struct {
	auth      *auth.AuthService
	academics *url.URL
}

func NewGateway(authSvc *auth.AuthService, academicsURL string) (*Gateway, error) {
	target, err := url.Parse(academicsURL)
	if err != nil || target.Host == "" {
		return nil, fmt.Errorf("bad academics URL %q", academicsURL)
	}
	return &Gateway{auth: authSvc, academics: target}, nil
}

func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", g.LoginHandler)
	mux.HandleFunc("/auth/logout", g.LogoutHandler)
	mux.HandleFunc("/academics/", g.createReverseProxy(g.academics))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("API Gateway is healthy"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		logger.Audit("[Gateway] [Error] %s from %s (route not found)", r.URL.Path, ClientIP(r))
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("404 - Route not found"))
	})
	return mux
}

// LoginHandler handles POST /auth/login
func (g *Gateway) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		RespondWithError(w, http.StatusMethodNotAllowed, constants.ErrMethodNotAllowed)
		return
	}
	var req struct {
		Passphrase string `json:"passphrase"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSONShort)
		return
	}
	if g.auth == nil {
		RespondWithError(w, http.StatusInternalServerError, constants.ErrAuthUnavailable)
		return
	}
	s, err := g.auth.Login(r.Context(), req.Passphrase, ClientIP(r))
	switch {
	case errors.Is(err, auth.ErrTooManyAttempts):
		RespondWithError(w, http.StatusTooManyRequests, err.Error())
		return
	case errors.Is(err, auth.ErrVerifierNotReady):
		RespondWithError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		RespondWithError(w, http.StatusUnauthorized, constants.ErrLoginFailed)
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		constants.ValueSuccess: true,
		constants.KeySessionID: s.ID,
		"operator":             s.UserID,
		"expires_at":           s.ExpiresAt,
	})
}

// LogoutHandler handles POST /auth/logout
func (g *Gateway) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		RespondWithError(w, http.StatusMethodNotAllowed, constants.ErrMethodNotAllowed)
		return
	}
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSONShort)
		return
	}
	if g.auth == nil {
		RespondWithError(w, http.StatusInternalServerError, constants.ErrAuthUnavailable)
		return
	}
	if err := g.auth.Logout(req.SessionID); err != nil {
		RespondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		constants.ValueSuccess: true,
		constants.ValueMessage: "logout successful",
	})
}

// createReverseProxy returns a reverse proxy handler for target that writes
// an audit line per request.
func (g *Gateway) createReverseProxy(target *url.URL) http.HandlerFunc {
	proxy := httputil.NewSingleHostReverseProxy(target)
	return func(w http.ResponseWriter, r *http.Request) {
		clientIP := ClientIP(r)
		operator := ""
		if g.auth != nil {
			if s, err := g.auth.Validate(r.Header.Get(constants.HeaderSessionID)); err == nil {
				operator = s.UserID
			}
		}
		logger.Audit("[Gateway] Incoming request: %s %s from %s operator=%s", r.Method, r.URL.Path, clientIP, operator)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		proxy.ServeHTTP(rw, r)
		if rw.statusCode >= 400 {
			logger.Audit("[Gateway][ERROR] Proxied to %s for %s, status %d, error: %s", target, r.URL.Path, rw.statusCode, rw.body.String())
		} else {
			logger.Audit("[Gateway] Proxied to %s for %s, status %d", target, r.URL.Path, rw.statusCode)
		}
	}
}

// responseWriter captures the status code, and the body of error responses
// for the audit line.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.statusCode >= 400 && rw.body.Len() < 1024 {
		rw.body.Write(b)
	}
	return rw.ResponseWriter.Write(b)
}
