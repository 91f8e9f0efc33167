package accounts

import (
	"context"
	"errors"
	"time"
)

// Errors returned by account operations.
var (
	ErrNotFound           = errors.New("account not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Account is one console login. Accounts double as assignable agents in
// conversation assignment.
type Account struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the persistence seam for accounts.
type Store interface {
	GetByEmail(ctx context.Context, email string) (Account, string, error)
	List(ctx context.Context) ([]Account, error)
	// Upsert creates an account or refreshes its password hash.
	Upsert(ctx context.Context, email, passwordHash string) (Account, error)
}
