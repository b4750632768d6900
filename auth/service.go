package auth

import (
	"context"

	"github.com/cairocart/storefront-go/core"
	"github.com/cairocart/storefront-go/transport"
)

// Service exposes the auth endpoints and keeps the session in step with
// their outcomes
type Service struct {
	client  *transport.Client
	session *Session
	logger  core.Logger
}

// NewService creates an auth service bound to a session
func NewService(client *transport.Client, session *Session, logger core.Logger) *Service {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Service{client: client, session: session, logger: logger}
}

// Credentials for sign-in
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUpInput for account creation
type SignUpInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// authWire is the union of auth response shapes
type authWire struct {
	Token       string    `json:"token"`
	AccessToken string    `json:"accessToken"`
	User        *userWire `json:"user"`
}

type userWire struct {
	ID        string `json:"id"`
	LegacyID  string `json:"_id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func normalizeUser(w *userWire) *User {
	if w == nil {
		return nil
	}
	id := w.ID
	if id == "" {
		id = w.LegacyID
	}
	return &User{
		ID:        id,
		Email:     w.Email,
		FirstName: w.FirstName,
		LastName:  w.LastName,
	}
}

// SignIn authenticates and establishes the session (POST auth/sign-in)
func (s *Service) SignIn(ctx context.Context, creds Credentials) (*User, error) {
	var wire authWire
	if err := s.client.Post(ctx, "auth/sign-in", creds, &wire); err != nil {
		return nil, core.NewStoreError("auth.SignIn", "auth", err)
	}

	token := wire.Token
	if token == "" {
		token = wire.AccessToken
	}
	user := normalizeUser(wire.User)
	s.session.establish(ctx, token, user)

	s.logger.Info("Signed in", map[string]interface{}{
		"operation": "auth_sign_in",
	})
	return user, nil
}

// SignUp creates an account and establishes the session (POST auth/sign-up)
func (s *Service) SignUp(ctx context.Context, input SignUpInput) (*User, error) {
	var wire authWire
	if err := s.client.Post(ctx, "auth/sign-up", input, &wire); err != nil {
		return nil, core.NewStoreError("auth.SignUp", "auth", err)
	}

	token := wire.Token
	if token == "" {
		token = wire.AccessToken
	}
	user := normalizeUser(wire.User)
	s.session.establish(ctx, token, user)
	return user, nil
}

// Profile fetches the signed-in user (GET auth/profile). A 401 here never
// triggers the unauthorized redirect hook; it just reports signed-out.
func (s *Service) Profile(ctx context.Context) (*User, error) {
	var wire userWire
	if _, err := s.client.Get(ctx, "auth/profile", nil, &wire); err != nil {
		return nil, core.NewStoreError("auth.Profile", "auth", err)
	}
	user := normalizeUser(&wire)

	// Keep the cached profile current
	s.session.mu.Lock()
	s.session.user = user
	s.session.mu.Unlock()

	return user, nil
}

// SignOut ends the session server-side and clears it locally regardless
// of the response (POST auth/sign-out)
func (s *Service) SignOut(ctx context.Context) error {
	err := s.client.Post(ctx, "auth/sign-out", nil, nil)
	s.session.clear(ctx)
	if err != nil {
		s.logger.Warn("Server sign-out failed, local session cleared", map[string]interface{}{
			"operation": "auth_sign_out",
			"error":     err.Error(),
		})
		return core.NewStoreError("auth.SignOut", "auth", err)
	}
	return nil
}
