// Package auth implements sign-in/sign-up against the storefront backend
// and the client-side session: bearer token, cached profile, and the
// durable session-hint flag that survives reloads.
package auth

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cairocart/storefront-go/core"
)

// Storage keys under the configured Memory namespace
const (
	storageKeyToken = "session:token"
	storageKeyUser  = "session:user"
	storageKeyHint  = "session:hint"
)

// User is the canonical profile model
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Session holds the bearer token and cached profile. It implements
// core.TokenProvider for the transport client.
//
// The token's exp claim is read without signature verification: it is a
// client-side hint only, the backend remains the authority on validity.
type Session struct {
	mu     sync.RWMutex
	token  string
	expiry time.Time
	user   *User
	memory core.Memory
	logger core.Logger
	now    func() time.Time
}

// NewSession creates a session persisting through the given Memory
func NewSession(memory core.Memory, logger core.Logger) *Session {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Session{
		memory: memory,
		logger: logger,
		now:    time.Now,
	}
}

// Load restores a persisted session, if any
func (s *Session) Load(ctx context.Context) {
	if s.memory == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if token, err := s.memory.Get(ctx, storageKeyToken); err == nil && token != "" {
		s.token = token
		s.expiry = tokenExpiry(token)
	}
	if raw, err := s.memory.Get(ctx, storageKeyUser); err == nil && raw != "" {
		var u User
		if err := json.Unmarshal([]byte(raw), &u); err == nil {
			s.user = &u
		}
	}
}

// Token returns the current bearer token, or "" when anonymous or when
// the token has expired
func (s *Session) Token(ctx context.Context) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == "" {
		return ""
	}
	if !s.expiry.IsZero() && s.now().After(s.expiry) {
		// Expired tokens are treated as signed out
		return ""
	}
	return s.token
}

// SignedIn reports whether a usable token is present
func (s *Session) SignedIn(ctx context.Context) bool {
	return s.Token(ctx) != ""
}

// User returns the cached profile, if any
func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// establish stores a fresh token + profile and raises the durable
// session-hint flag
func (s *Session) establish(ctx context.Context, token string, user *User) {
	s.mu.Lock()
	s.token = token
	s.expiry = tokenExpiry(token)
	s.user = user
	s.mu.Unlock()

	if s.memory == nil {
		return
	}
	if err := s.memory.Set(ctx, storageKeyToken, token, 0); err != nil {
		s.logger.Debug("Session persistence failed", map[string]interface{}{
			"operation": "session_persist",
			"key":       storageKeyToken,
			"error":     err.Error(),
		})
	}
	if user != nil {
		if data, err := json.Marshal(user); err == nil {
			_ = s.memory.Set(ctx, storageKeyUser, string(data), 0)
		}
	}
	_ = s.memory.Set(ctx, storageKeyHint, "1", 0)
}

// clear drops all session state including the hint flag
func (s *Session) clear(ctx context.Context) {
	s.mu.Lock()
	s.token = ""
	s.expiry = time.Time{}
	s.user = nil
	s.mu.Unlock()

	if s.memory == nil {
		return
	}
	_ = s.memory.Delete(ctx, storageKeyToken)
	_ = s.memory.Delete(ctx, storageKeyUser)
	_ = s.memory.Delete(ctx, storageKeyHint)
}

// HasSessionHint reports the durable reload flag: true means a profile
// check is worth attempting on startup
func (s *Session) HasSessionHint(ctx context.Context) bool {
	if s.memory == nil {
		return false
	}
	v, err := s.memory.Get(ctx, storageKeyHint)
	return err == nil && v == "1"
}

// tokenExpiry reads the exp claim without verifying the signature.
// A zero time means no usable expiry was found.
func tokenExpiry(token string) time.Time {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
