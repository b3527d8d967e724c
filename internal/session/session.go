// Package session holds the authenticated identity: a bearer token and the
// account snapshot it belongs to, persisted to a file between runs.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/erazemk/resale/internal/auth"
	"github.com/erazemk/resale/internal/client"
	"github.com/erazemk/resale/internal/model"
)

// DefaultAuthMessage is shown when the backend gives no reason for a refusal.
const DefaultAuthMessage = "An error occurred"

// AuthError is a refused login or registration.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string { return e.Message }
func (e *AuthError) Unwrap() error { return e.Err }

func authError(err error) *AuthError {
	msg := client.MessageOf(err)
	if msg == "" && errors.Is(err, model.ErrValidation) {
		msg = err.Error()
	}
	if msg == "" {
		msg = DefaultAuthMessage
	}
	return &AuthError{Message: msg, Err: err}
}

// Authenticator is the slice of the API client the session needs.
type Authenticator interface {
	Login(ctx context.Context, creds model.Credentials) (*model.AuthResponse, error)
	Register(ctx context.Context, reg model.Registration) (string, error)
	Logout(ctx context.Context) error
}

type snapshot struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Store is the session. It is safe for concurrent use; the client reads the
// token on every request.
type Store struct {
	path string
	save sync.Mutex // orders file writes like the state changes

	mu    sync.RWMutex
	token string
	user  *model.User
}

// Open loads the session persisted at path. A missing, unreadable or expired
// session file yields an empty session. An empty path keeps it in memory only.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil || snap.Token == "" || snap.User == nil {
		slog.Warn("discarding unreadable session", "path", path)
		return s, s.persist(snapshot{})
	}
	if claims, err := auth.ParseUnverified(snap.Token); err == nil && claims.Expired(time.Now()) {
		slog.Info("stored session expired", "user", snap.User.Email)
		return s, s.persist(snapshot{})
	}

	s.token, s.user = snap.Token, snap.User
	return s, nil
}

// Token returns the bearer token, or "" when signed out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the account snapshot, or nil when signed out.
func (s *Store) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Authenticated reports whether a session is present.
func (s *Store) Authenticated() bool {
	return s.User() != nil
}

// Login authenticates and persists the session. On failure the session is
// left as it was and an *AuthError is returned.
func (s *Store) Login(ctx context.Context, api Authenticator, email, password string) (*model.User, error) {
	resp, err := api.Login(ctx, model.Credentials{Email: email, Password: password})
	if err != nil {
		slog.Warn("login failed", "email", email, "error", err)
		return nil, authError(err)
	}

	user := resp.User
	if user == nil {
		user, err = userFromToken(resp.Token)
		if err != nil {
			return nil, authError(err)
		}
	}

	if err := s.set(resp.Token, user); err != nil {
		return nil, err
	}
	slog.Info("logged in", "user", user.Email, "role", user.Role)
	return s.User(), nil
}

// Register creates an account and signs into it.
func (s *Store) Register(ctx context.Context, api Authenticator, name, email, password, role string) (*model.User, error) {
	reg := model.Registration{Name: name, Email: email, Password: password, Role: role}
	if _, err := api.Register(ctx, reg); err != nil {
		slog.Warn("registration failed", "email", email, "error", err)
		return nil, authError(err)
	}
	return s.Login(ctx, api, email, password)
}

// Logout clears the session. The backend is asked to revoke the token, but
// the local session is cleared whatever it answers.
func (s *Store) Logout(ctx context.Context, api Authenticator) error {
	if s.Token() != "" && api != nil {
		if err := api.Logout(ctx); err != nil {
			slog.Warn("remote logout failed", "error", err)
		}
	}
	return s.Clear()
}

// Clear drops the session without contacting the backend.
func (s *Store) Clear() error {
	return s.set("", nil)
}

func (s *Store) set(token string, user *model.User) error {
	s.save.Lock()
	defer s.save.Unlock()

	s.mu.Lock()
	s.token, s.user = token, user
	snap := snapshot{Token: token, User: user}
	s.mu.Unlock()
	return s.persist(snap)
}

func (s *Store) persist(snap snapshot) error {
	if s.path == "" {
		return nil
	}

	if snap.Token == "" {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing session: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// userFromToken recovers the account snapshot from the token claims.
func userFromToken(token string) (*model.User, error) {
	claims, err := auth.ParseUnverified(token)
	if err != nil {
		return nil, fmt.Errorf("reading token: %w", err)
	}
	return &model.User{ID: claims.UserID, Name: claims.Name, Email: claims.Email, Role: claims.Role}, nil
}
