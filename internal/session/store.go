// Package session keeps the auth token and the logged-in user's identity in
// the local key-value store.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/storefront/internal/kvstore"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var ErrNoToken = errors.New("no auth token")

type User struct {
	ID    string `json:"user_id"`
	Name  string `json:"user_name"`
	Email string `json:"user_email"`
}

type Store struct {
	kv     kvstore.Store
	logger *zap.Logger
	now    func() time.Time
	parser *jwt.Parser
}

func NewStore(kv kvstore.Store, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		kv:     kv,
		logger: logger,
		now:    time.Now,
		parser: jwt.NewParser(),
	}
}

// SaveLogin stores the token and the user returned by a successful login.
func (s *Store) SaveLogin(ctx context.Context, token string, user User) error {
	pairs := []struct{ key, value string }{
		{kvstore.KeyAuthToken, token},
		{kvstore.KeyUserID, user.ID},
		{kvstore.KeyUserName, user.Name},
		{kvstore.KeyUserEmail, user.Email},
	}
	for _, p := range pairs {
		if err := s.kv.Set(ctx, p.key, p.value); err != nil {
			return fmt.Errorf("failed to save %s: %w", p.key, err)
		}
	}
	s.logger.Info("login saved", zap.String("user_id", user.ID))
	return nil
}

// Token returns the stored token. A JWT whose exp has passed is removed and
// reported as ErrNoToken; tokens that are not JWTs are returned as is.
func (s *Store) Token(ctx context.Context) (string, error) {
	token, err := s.kv.Get(ctx, kvstore.KeyAuthToken)
	if errors.Is(err, kvstore.ErrNotFound) || (err == nil && token == "") {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}

	if s.expired(token) {
		s.logger.Info("stored token expired, removing")
		if err := s.kv.Remove(ctx, kvstore.KeyAuthToken); err != nil {
			return "", fmt.Errorf("failed to remove expired token: %w", err)
		}
		return "", ErrNoToken
	}
	return token, nil
}

// ClearToken forgets the token only. The user identity stays.
func (s *Store) ClearToken(ctx context.Context) error {
	if err := s.kv.Remove(ctx, kvstore.KeyAuthToken); err != nil {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	return nil
}

func (s *Store) User(ctx context.Context) (User, error) {
	var u User
	fields := []struct {
		key string
		dst *string
	}{
		{kvstore.KeyUserID, &u.ID},
		{kvstore.KeyUserName, &u.Name},
		{kvstore.KeyUserEmail, &u.Email},
	}
	for _, f := range fields {
		v, err := s.kv.Get(ctx, f.key)
		if errors.Is(err, kvstore.ErrNotFound) {
			continue
		}
		if err != nil {
			return User{}, fmt.Errorf("failed to read %s: %w", f.key, err)
		}
		*f.dst = v
	}
	return u, nil
}

func (s *Store) LoggedIn(ctx context.Context) bool {
	_, err := s.Token(ctx)
	return err == nil
}

// Logout removes the token and the user identity. The cart is kept.
func (s *Store) Logout(ctx context.Context) error {
	var errs []error
	for _, key := range []string{kvstore.KeyAuthToken, kvstore.KeyUserID, kvstore.KeyUserName, kvstore.KeyUserEmail} {
		if err := s.kv.Remove(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", key, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	s.logger.Info("logged out")
	return nil
}

// expired reads exp without verifying the signature; only the backend can
// verify it.
func (s *Store) expired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := s.parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !s.now().Before(exp.Time)
}
