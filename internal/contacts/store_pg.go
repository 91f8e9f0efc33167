package contacts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/devarche/wpp-dashboard/internal/db"
)

// PGStore is the PostgreSQL-backed contact store.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a contact store over the given pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const contactColumns = "id, phone, name, opted_out, created_at, updated_at"

func (s *PGStore) GetByPhone(ctx context.Context, phone string) (Contact, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+contactColumns+" FROM contacts WHERE phone = $1",
		phone,
	)
	return scanContact(row)
}

func (s *PGStore) GetByPhoneSuffix(ctx context.Context, suffix string) (Contact, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+contactColumns+" FROM contacts WHERE phone LIKE '%' || $1 ORDER BY created_at LIMIT 1",
		suffix,
	)
	return scanContact(row)
}

func (s *PGStore) Upsert(ctx context.Context, phone, name string) (Contact, error) {
	// The phone unique constraint is the conflict target: a concurrent insert
	// for the same brand-new number collapses into one row instead of racing.
	row := s.pool.QueryRow(ctx,
		`INSERT INTO contacts (phone, name)
		 VALUES ($1, $2)
		 ON CONFLICT (phone) DO UPDATE
		 SET name = COALESCE(contacts.name, EXCLUDED.name), updated_at = now()
		 RETURNING `+contactColumns,
		phone, db.TextFromString(name),
	)
	return scanContact(row)
}

func (s *PGStore) Update(ctx context.Context, id string, params UpdateParams) (Contact, error) {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Contact{}, err
	}

	sets := []string{"updated_at = now()"}
	args := []any{pgID}
	if params.Phone != nil {
		args = append(args, *params.Phone)
		sets = append(sets, fmt.Sprintf("phone = $%d", len(args)))
	}
	if params.Name != nil {
		args = append(args, db.TextFromString(*params.Name))
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}
	if params.OptedOut != nil {
		args = append(args, *params.OptedOut)
		sets = append(sets, fmt.Sprintf("opted_out = $%d", len(args)))
	}

	row := s.pool.QueryRow(ctx,
		"UPDATE contacts SET "+strings.Join(sets, ", ")+" WHERE id = $1 RETURNING "+contactColumns,
		args...,
	)
	return scanContact(row)
}

func (s *PGStore) SetOptedOutByPhone(ctx context.Context, phone string, optedOut bool) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE contacts SET opted_out = $2, updated_at = now() WHERE phone = $1",
		phone, optedOut,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanContact(row pgx.Row) (Contact, error) {
	var (
		id        pgtype.UUID
		phone     string
		name      pgtype.Text
		optedOut  bool
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &phone, &name, &optedOut, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contact{}, ErrNotFound
		}
		return Contact{}, err
	}
	return Contact{
		ID:        db.UUIDToString(id),
		Phone:     phone,
		Name:      db.TextToString(name),
		OptedOut:  optedOut,
		CreatedAt: db.TimeFromPg(createdAt),
		UpdatedAt: db.TimeFromPg(updatedAt),
	}, nil
}
