package campaigns

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/devarche/wpp-dashboard/internal/db"
)

// PGStore is the PostgreSQL-backed campaign store.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a campaign store over the given pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const campaignSelect = `
	SELECT c.id, c.name, c.template_id, c.tag_id, c.status, c.sent_count,
	       c.created_at, c.updated_at,
	       (SELECT count(*) FROM campaign_recipients r
	        WHERE r.campaign_id = c.id AND r.replied_at IS NOT NULL) AS replied_count
	FROM campaigns c`

func (s *PGStore) GetByID(ctx context.Context, id string) (Campaign, error) {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Campaign{}, err
	}
	row := s.pool.QueryRow(ctx, campaignSelect+" WHERE c.id = $1", pgID)
	return scanCampaign(row)
}

func (s *PGStore) List(ctx context.Context) ([]Campaign, error) {
	rows, err := s.pool.Query(ctx, campaignSelect+" ORDER BY c.created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Campaign{}
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, campaign)
	}
	return items, rows.Err()
}

func (s *PGStore) Create(ctx context.Context, name, templateID, tagID string) (Campaign, error) {
	pgTemplateID, err := db.ParseUUID(templateID)
	if err != nil {
		return Campaign{}, err
	}
	var pgTagID pgtype.UUID
	if tagID != "" {
		pgTagID, err = db.ParseUUID(tagID)
		if err != nil {
			return Campaign{}, err
		}
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO campaigns (name, template_id, tag_id)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		name, pgTemplateID, pgTagID,
	)
	var id pgtype.UUID
	if err := row.Scan(&id); err != nil {
		return Campaign{}, err
	}
	return s.GetByID(ctx, db.UUIDToString(id))
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, "DELETE FROM campaign_recipients WHERE campaign_id = $1", pgID); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, "DELETE FROM campaigns WHERE id = $1", pgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) SetStatus(ctx context.Context, id, status string) error {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		"UPDATE campaigns SET status = $2, updated_at = now() WHERE id = $1",
		pgID, status,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) FinishRun(ctx context.Context, id, status string, sent int) error {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE campaigns
		 SET status = $2, sent_count = sent_count + $3, updated_at = now()
		 WHERE id = $1`,
		pgID, status, sent,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) CreateRecipient(ctx context.Context, campaignID, contactID string) (Recipient, error) {
	pgCampaignID, err := db.ParseUUID(campaignID)
	if err != nil {
		return Recipient{}, err
	}
	pgContactID, err := db.ParseUUID(contactID)
	if err != nil {
		return Recipient{}, err
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO campaign_recipients (campaign_id, contact_id)
		 VALUES ($1, $2)
		 RETURNING id, campaign_id, contact_id, status, wamid, sent_at, replied_at`,
		pgCampaignID, pgContactID,
	)
	return scanRecipient(row)
}

func (s *PGStore) MarkRecipientSent(ctx context.Context, recipientID, wamid string, at time.Time) error {
	pgID, err := db.ParseUUID(recipientID)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE campaign_recipients
		 SET status = $2, wamid = $3, sent_at = $4
		 WHERE id = $1`,
		pgID, RecipientSent, wamid, at,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) MarkReplied(ctx context.Context, campaignID, contactID string, at time.Time) (bool, error) {
	pgCampaignID, err := db.ParseUUID(campaignID)
	if err != nil {
		return false, err
	}
	pgContactID, err := db.ParseUUID(contactID)
	if err != nil {
		return false, err
	}
	// replied_at IS NULL keeps the first reply authoritative under
	// concurrent webhook redelivery.
	tag, err := s.pool.Exec(ctx,
		`UPDATE campaign_recipients
		 SET status = $3, replied_at = $4
		 WHERE campaign_id = $1 AND contact_id = $2 AND replied_at IS NULL`,
		pgCampaignID, pgContactID, RecipientReplied, at,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PGStore) ListRecipients(ctx context.Context, campaignID string) ([]Recipient, error) {
	pgID, err := db.ParseUUID(campaignID)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, campaign_id, contact_id, status, wamid, sent_at, replied_at
		 FROM campaign_recipients WHERE campaign_id = $1 ORDER BY sent_at NULLS LAST`,
		pgID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Recipient{}
	for rows.Next() {
		rec, err := scanRecipient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

func scanCampaign(row pgx.Row) (Campaign, error) {
	var (
		id           pgtype.UUID
		name         string
		templateID   pgtype.UUID
		tagID        pgtype.UUID
		status       string
		sentCount    int32
		createdAt    pgtype.Timestamptz
		updatedAt    pgtype.Timestamptz
		repliedCount int64
	)
	if err := row.Scan(&id, &name, &templateID, &tagID, &status, &sentCount, &createdAt, &updatedAt, &repliedCount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Campaign{}, ErrNotFound
		}
		return Campaign{}, err
	}
	return Campaign{
		ID:           db.UUIDToString(id),
		Name:         name,
		TemplateID:   db.UUIDToString(templateID),
		TagID:        db.UUIDToString(tagID),
		Status:       status,
		SentCount:    int(sentCount),
		RepliedCount: int(repliedCount),
		CreatedAt:    db.TimeFromPg(createdAt),
		UpdatedAt:    db.TimeFromPg(updatedAt),
	}, nil
}

func scanRecipient(row pgx.Row) (Recipient, error) {
	var (
		id         pgtype.UUID
		campaignID pgtype.UUID
		contactID  pgtype.UUID
		status     string
		wamid      pgtype.Text
		sentAt     pgtype.Timestamptz
		repliedAt  pgtype.Timestamptz
	)
	if err := row.Scan(&id, &campaignID, &contactID, &status, &wamid, &sentAt, &repliedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Recipient{}, ErrNotFound
		}
		return Recipient{}, err
	}
	return Recipient{
		ID:         db.UUIDToString(id),
		CampaignID: db.UUIDToString(campaignID),
		ContactID:  db.UUIDToString(contactID),
		Status:     status,
		Wamid:      db.TextToString(wamid),
		SentAt:     db.TimePtrFromPg(sentAt),
		RepliedAt:  db.TimePtrFromPg(repliedAt),
	}, nil
}
