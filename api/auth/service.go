package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"SchoolPortal/internal/config"
	"SchoolPortal/internal/logger"
	"SchoolPortal/internal/session"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrVerifierNotReady   = errors.New("no operator credential configured")
	ErrTooManyAttempts    = errors.New("too many failed login attempts, try again later")
	ErrSessionNotFound    = errors.New("session not found")
)

// Verifier checks an operator credential and returns the operator name
// recorded against every import the session makes.
type Verifier interface {
	Verify(ctx context.Context, credential string) (string, error)
}

// PassphraseVerifier accepts a single shared passphrase stored as a bcrypt
// hash outside the source tree.
type PassphraseVerifier struct {
	hash     []byte
	operator string
}

func NewPassphraseVerifier(hash, operator string) *PassphraseVerifier {
	if operator == "" {
		operator = "office"
	}
	return &PassphraseVerifier{hash: []byte(strings.TrimSpace(hash)), operator: operator}
}

// PassphraseVerifierFromEnv reads PORTAL_PASSPHRASE_HASH.
func PassphraseVerifierFromEnv(operator string) *PassphraseVerifier {
	return NewPassphraseVerifier(strings.Trim(config.Env(config.EnvPassphraseHash, ""), "\"'"), operator)
}

func (v *PassphraseVerifier) Verify(ctx context.Context, credential string) (string, error) {
	if len(v.hash) == 0 {
		return "", ErrVerifierNotReady
	}
	if err := bcrypt.CompareHashAndPassword(v.hash, []byte(credential)); err != nil {
		return "", ErrInvalidCredentials
	}
	return v.operator, nil
}

type attempts struct {
	failures    int
	lockedUntil time.Time
}

type AuthService struct {
	verifier       Verifier
	sessions       *session.Manager
	sessionTimeout time.Duration
	maxAttempts    int
	lockDuration   time.Duration
	failed         map[string]*attempts
	mu             sync.Mutex
	now            func() time.Time
}

func NewAuthService(verifier Verifier, sessionTimeoutMinutes, maxLoginAttempts, lockMinutes int) *AuthService {
	if sessionTimeoutMinutes <= 0 {
		sessionTimeoutMinutes = config.DefaultSessionTimeoutMinutes
	}
	return &AuthService{
		verifier:       verifier,
		sessions:       session.NewManager(),
		sessionTimeout: time.Duration(sessionTimeoutMinutes) * time.Minute,
		maxAttempts:    maxLoginAttempts,
		lockDuration:   time.Duration(lockMinutes) * time.Minute,
		failed:         make(map[string]*attempts),
		now:            time.Now,
	}
}

func (a *AuthService) Name() string { return "auth" }

func (a *AuthService) Start() error {
	logger.Audit("Auth service started, session timeout %s", a.sessionTimeout)
	return nil
}

func (a *AuthService) Stop() error {
	return nil
}

// Login verifies credential and opens a session. clientIP is used only to
// throttle repeated failures.
func (a *AuthService) Login(ctx context.Context, credential, clientIP string) (*session.Session, error) {
	if err := a.checkLocked(clientIP); err != nil {
		return nil, err
	}
	operator, err := a.verifier.Verify(ctx, credential)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			a.recordFailure(clientIP)
		}
		logger.Audit("Login failed from %s: %v", clientIP, err)
		return nil, err
	}
	a.clearFailures(clientIP)

	s := a.sessions.CreateSession(operator, a.sessionTimeout)
	logger.Audit("Operator %s logged in from %s", operator, clientIP)
	return s, nil
}

func (a *AuthService) Logout(sessionID string) error {
	s, ok := a.sessions.GetSession(sessionID)
	if !a.sessions.DeleteSession(sessionID) {
		return ErrSessionNotFound
	}
	if ok {
		logger.Audit("Operator logged out: %s", s.UserID)
	}
	return nil
}

// Validate returns the live session for sessionID.
func (a *AuthService) Validate(sessionID string) (*session.Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrSessionNotFound
	}
	s, ok := a.sessions.GetSession(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// CleanupExpired drops expired sessions and stale lockouts.
func (a *AuthService) CleanupExpired() int {
	removed := a.sessions.CleanupExpiredSessions()
	a.mu.Lock()
	now := a.now()
	for ip, at := range a.failed {
		if now.After(at.lockedUntil) {
			delete(a.failed, ip)
		}
	}
	a.mu.Unlock()
	if removed > 0 {
		logger.Audit("Removed %d expired sessions", removed)
	}
	return removed
}

func (a *AuthService) ActiveSessions() int {
	return a.sessions.Count()
}

func (a *AuthService) checkLocked(clientIP string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	at, ok := a.failed[clientIP]
	if !ok || a.maxAttempts <= 0 {
		return nil
	}
	if at.failures >= a.maxAttempts && a.now().Before(at.lockedUntil) {
		return ErrTooManyAttempts
	}
	return nil
}

func (a *AuthService) recordFailure(clientIP string) {
	if a.maxAttempts <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	at, ok := a.failed[clientIP]
	if !ok || (at.failures >= a.maxAttempts && !a.now().Before(at.lockedUntil)) {
		at = &attempts{}
		a.failed[clientIP] = at
	}
	at.failures++
	if at.failures >= a.maxAttempts {
		at.lockedUntil = a.now().Add(a.lockDuration)
		logger.Audit("Login locked for %s until %s", clientIP, at.lockedUntil.Format(time.RFC3339))
	}
}

func (a *AuthService) clearFailures(clientIP string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.failed, clientIP)
}

// HashPassphrase is used by cmd/hashpass to produce the
// value stored in PORTAL_PASSPHRASE_HASH.
func HashPassphrase(passphrase string) (string, error) {
	if len(passphrase) < 8 {
		return "", fmt.Errorf("passphrase must be at least 8 characters")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(passphrase), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
