package tags

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/devarche/wpp-dashboard/internal/db"
)

// PGStore is the PostgreSQL-backed tag store.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a tag store over the given pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const tagColumns = "id, name, normalized_name, color, created_by, created_at"

func (s *PGStore) List(ctx context.Context) ([]Tag, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+tagColumns+" FROM chat_tags ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Tag{}
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, tag)
	}
	return items, rows.Err()
}

func (s *PGStore) Upsert(ctx context.Context, name, normalizedName, color, createdBy string) (Tag, error) {
	var createdByID pgtype.UUID
	if createdBy != "" {
		parsed, err := db.ParseUUID(createdBy)
		if err != nil {
			return Tag{}, err
		}
		createdByID = parsed
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO chat_tags (name, normalized_name, color, created_by)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (normalized_name) DO UPDATE SET color = EXCLUDED.color
		 RETURNING `+tagColumns,
		name, normalizedName, color, createdByID,
	)
	return scanTag(row)
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, "DELETE FROM conversation_tags WHERE tag_id = $1", pgID); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, "DELETE FROM chat_tags WHERE id = $1", pgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTag(row pgx.Row) (Tag, error) {
	var (
		id         pgtype.UUID
		name       string
		normalized string
		color      string
		createdBy  pgtype.UUID
		createdAt  pgtype.Timestamptz
	)
	if err := row.Scan(&id, &name, &normalized, &color, &createdBy, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tag{}, ErrNotFound
		}
		return Tag{}, err
	}
	return Tag{
		ID:             db.UUIDToString(id),
		Name:           name,
		NormalizedName: normalized,
		Color:          color,
		CreatedBy:      db.UUIDToString(createdBy),
		CreatedAt:      db.TimeFromPg(createdAt),
	}, nil
}
