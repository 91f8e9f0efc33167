package templates

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/devarche/wpp-dashboard/internal/db"
)

// PGStore is the PostgreSQL-backed template cache.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a template store over the given pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const templateColumns = "id, name, language, category, components, status, meta_template_id, created_at, updated_at"

func (s *PGStore) GetByID(ctx context.Context, id string) (Template, error) {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Template{}, err
	}
	row := s.pool.QueryRow(ctx, "SELECT "+templateColumns+" FROM templates WHERE id = $1", pgID)
	return scanTemplate(row)
}

func (s *PGStore) GetByName(ctx context.Context, name string) (Template, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+templateColumns+" FROM templates WHERE name = $1", name)
	return scanTemplate(row)
}

func (s *PGStore) List(ctx context.Context) ([]Template, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+templateColumns+" FROM templates ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Template{}
	for rows.Next() {
		tmpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, tmpl)
	}
	return items, rows.Err()
}

func (s *PGStore) Upsert(ctx context.Context, tmpl Template) (Template, error) {
	components, err := json.Marshal(tmpl.Components)
	if err != nil {
		return Template{}, err
	}
	status := tmpl.Status
	if status == "" {
		status = "APPROVED"
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO templates (name, language, category, components, status, meta_template_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (name) DO UPDATE
		 SET language = EXCLUDED.language, category = EXCLUDED.category,
		     components = EXCLUDED.components, status = EXCLUDED.status,
		     meta_template_id = EXCLUDED.meta_template_id, updated_at = now()
		 RETURNING `+templateColumns,
		tmpl.Name, tmpl.Language, db.TextFromString(tmpl.Category), components, status,
		db.TextFromString(tmpl.MetaTemplateID),
	)
	return scanTemplate(row)
}

func scanTemplate(row pgx.Row) (Template, error) {
	var (
		id         pgtype.UUID
		name       string
		language   string
		category   pgtype.Text
		components []byte
		status     string
		metaID     pgtype.Text
		createdAt  pgtype.Timestamptz
		updatedAt  pgtype.Timestamptz
	)
	if err := row.Scan(&id, &name, &language, &category, &components, &status, &metaID, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Template{}, ErrNotFound
		}
		return Template{}, err
	}
	tmpl := Template{
		ID:             db.UUIDToString(id),
		Name:           name,
		Language:       language,
		Category:       db.TextToString(category),
		Status:         status,
		MetaTemplateID: db.TextToString(metaID),
		CreatedAt:      db.TimeFromPg(createdAt),
		UpdatedAt:      db.TimeFromPg(updatedAt),
	}
	if len(components) > 0 {
		if err := json.Unmarshal(components, &tmpl.Components); err != nil {
			return Template{}, err
		}
	}
	return tmpl, nil
}
