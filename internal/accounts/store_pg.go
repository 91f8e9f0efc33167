package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/devarche/wpp-dashboard/internal/db"
)

// PGStore is the PostgreSQL-backed account store.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates an account store over the given pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) GetByEmail(ctx context.Context, email string) (Account, string, error) {
	var (
		id        pgtype.UUID
		hash      string
		createdAt pgtype.Timestamptz
	)
	err := s.pool.QueryRow(ctx,
		"SELECT id, password_hash, created_at FROM accounts WHERE email = $1",
		email,
	).Scan(&id, &hash, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, "", ErrNotFound
		}
		return Account{}, "", err
	}
	return Account{
		ID:        db.UUIDToString(id),
		Email:     email,
		CreatedAt: db.TimeFromPg(createdAt),
	}, hash, nil
}

func (s *PGStore) List(ctx context.Context) ([]Account, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, email, created_at FROM accounts ORDER BY email")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Account{}
	for rows.Next() {
		var (
			id        pgtype.UUID
			email     string
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&id, &email, &createdAt); err != nil {
			return nil, err
		}
		items = append(items, Account{
			ID:        db.UUIDToString(id),
			Email:     email,
			CreatedAt: db.TimeFromPg(createdAt),
		})
	}
	return items, rows.Err()
}

func (s *PGStore) Upsert(ctx context.Context, email, passwordHash string) (Account, error) {
	var (
		id        pgtype.UUID
		createdAt pgtype.Timestamptz
	)
	err := s.pool.QueryRow(ctx,
		`INSERT INTO accounts (email, password_hash)
		 VALUES ($1, $2)
		 ON CONFLICT (email) DO UPDATE SET password_hash = EXCLUDED.password_hash
		 RETURNING id, created_at`,
		email, passwordHash,
	).Scan(&id, &createdAt)
	if err != nil {
		return Account{}, err
	}
	return Account{
		ID:        db.UUIDToString(id),
		Email:     email,
		CreatedAt: db.TimeFromPg(createdAt),
	}, nil
}
