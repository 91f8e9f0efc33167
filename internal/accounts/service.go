// Package accounts provides console login credentials and the agent list.
package accounts

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/devarche/wpp-dashboard/internal/config"
	"github.com/devarche/wpp-dashboard/internal/logger"
)

// Service manages accounts.
type Service struct {
	store Store
}

// NewService creates an account service over the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Login authenticates by email and password.
func (s *Service) Login(ctx context.Context, email, password string) (Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(password) == "" {
		return Account{}, ErrInvalidCredentials
	}
	account, hash, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Account{}, ErrInvalidCredentials
		}
		return Account{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return Account{}, ErrInvalidCredentials
	}
	return account, nil
}

// List returns all accounts, for the agent picker.
func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.store.List(ctx)
}

// Bootstrap seeds the configured admin account at startup so a fresh
// deployment has a working login. A missing admin config is not an error.
func (s *Service) Bootstrap(ctx context.Context, cfg config.AdminConfig) error {
	email := strings.ToLower(strings.TrimSpace(cfg.Email))
	if email == "" || cfg.PasswordHash == "" {
		return nil
	}
	if _, err := s.store.Upsert(ctx, email, cfg.PasswordHash); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("admin account ensured", "email", email)
	return nil
}
