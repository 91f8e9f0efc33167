package conversations

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/devarche/wpp-dashboard/internal/contacts"
	"github.com/devarche/wpp-dashboard/internal/db"
	"github.com/devarche/wpp-dashboard/internal/tags"
)

// PGStore is the PostgreSQL-backed conversation store.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a conversation store over the given pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const conversationSelect = `
	SELECT c.id, c.contact_id, c.campaign_id, c.archived, c.assignees,
	       c.last_message, c.last_message_at, c.unread_count, c.created_at, c.updated_at,
	       ct.id, ct.phone, ct.name, ct.opted_out, ct.created_at, ct.updated_at
	FROM conversations c
	JOIN contacts ct ON ct.id = c.contact_id`

func (s *PGStore) GetByID(ctx context.Context, id string) (Conversation, error) {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Conversation{}, err
	}
	row := s.pool.QueryRow(ctx, conversationSelect+" WHERE c.id = $1", pgID)
	conv, err := scanConversation(row)
	if err != nil {
		return Conversation{}, err
	}
	return s.attachTags(ctx, conv)
}

func (s *PGStore) GetByContactID(ctx context.Context, contactID string) (Conversation, error) {
	pgID, err := db.ParseUUID(contactID)
	if err != nil {
		return Conversation{}, err
	}
	row := s.pool.QueryRow(ctx, conversationSelect+" WHERE c.contact_id = $1", pgID)
	conv, err := scanConversation(row)
	if err != nil {
		return Conversation{}, err
	}
	return s.attachTags(ctx, conv)
}

func (s *PGStore) List(ctx context.Context) ([]Conversation, error) {
	rows, err := s.pool.Query(ctx, conversationSelect+" ORDER BY c.last_message_at DESC NULLS LAST")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Conversation{}
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return s.attachTagsAll(ctx, items)
}

func (s *PGStore) FindOrCreateByContact(ctx context.Context, contactID string) (Conversation, error) {
	pgID, err := db.ParseUUID(contactID)
	if err != nil {
		return Conversation{}, err
	}
	// DO UPDATE instead of DO NOTHING so the existing row is returned on
	// conflict; campaign linkage and archived state stay untouched.
	row := s.pool.QueryRow(ctx,
		`INSERT INTO conversations (contact_id)
		 VALUES ($1)
		 ON CONFLICT (contact_id) DO UPDATE SET updated_at = now()
		 RETURNING id`,
		pgID,
	)
	var id pgtype.UUID
	if err := row.Scan(&id); err != nil {
		return Conversation{}, err
	}
	return s.GetByID(ctx, db.UUIDToString(id))
}

func (s *PGStore) UpsertForCampaign(ctx context.Context, contactID, campaignID string) (Conversation, error) {
	pgContactID, err := db.ParseUUID(contactID)
	if err != nil {
		return Conversation{}, err
	}
	pgCampaignID, err := db.ParseUUID(campaignID)
	if err != nil {
		return Conversation{}, err
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO conversations (contact_id, campaign_id, archived)
		 VALUES ($1, $2, true)
		 ON CONFLICT (contact_id) DO UPDATE
		 SET campaign_id = EXCLUDED.campaign_id, archived = true, updated_at = now()
		 RETURNING id`,
		pgContactID, pgCampaignID,
	)
	var id pgtype.UUID
	if err := row.Scan(&id); err != nil {
		return Conversation{}, err
	}
	return s.GetByID(ctx, db.UUIDToString(id))
}

func (s *PGStore) SetArchived(ctx context.Context, id string, archived bool) (Conversation, error) {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Conversation{}, err
	}
	tag, err := s.pool.Exec(ctx,
		"UPDATE conversations SET archived = $2, updated_at = now() WHERE id = $1",
		pgID, archived,
	)
	if err != nil {
		return Conversation{}, err
	}
	if tag.RowsAffected() == 0 {
		return Conversation{}, ErrNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *PGStore) SetAssignees(ctx context.Context, id string, assignees []string) (Conversation, error) {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Conversation{}, err
	}
	ids := make([]pgtype.UUID, 0, len(assignees))
	for _, a := range assignees {
		parsed, err := db.ParseUUID(a)
		if err != nil {
			return Conversation{}, err
		}
		ids = append(ids, parsed)
	}
	tag, err := s.pool.Exec(ctx,
		"UPDATE conversations SET assignees = $2, updated_at = now() WHERE id = $1",
		pgID, ids,
	)
	if err != nil {
		return Conversation{}, err
	}
	if tag.RowsAffected() == 0 {
		return Conversation{}, ErrNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *PGStore) AddTag(ctx context.Context, id, tagID string) error {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return err
	}
	pgTagID, err := db.ParseUUID(tagID)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO conversation_tags (conversation_id, tag_id)
		 VALUES ($1, $2)
		 ON CONFLICT (conversation_id, tag_id) DO NOTHING`,
		pgID, pgTagID,
	)
	return err
}

func (s *PGStore) ReplaceTags(ctx context.Context, id string, tagIDs []string) error {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM conversation_tags WHERE conversation_id = $1", pgID); err != nil {
		return err
	}
	for _, tagID := range tagIDs {
		pgTagID, err := db.ParseUUID(tagID)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			"INSERT INTO conversation_tags (conversation_id, tag_id) VALUES ($1, $2)",
			pgID, pgTagID,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *PGStore) UpdatePreview(ctx context.Context, id, preview string, at time.Time) error {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE conversations
		 SET last_message = $2, last_message_at = $3, updated_at = now()
		 WHERE id = $1`,
		pgID, preview, at,
	)
	return err
}

func (s *PGStore) ApplyInbound(ctx context.Context, id string, update InboundUpdate) (Conversation, error) {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Conversation{}, err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE conversations
		 SET last_message = $2, last_message_at = $3,
		     unread_count = unread_count + 1, archived = false, updated_at = now()
		 WHERE id = $1`,
		pgID, update.Preview, update.ReceivedAt,
	)
	if err != nil {
		return Conversation{}, err
	}
	if tag.RowsAffected() == 0 {
		return Conversation{}, ErrNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *PGStore) ResetUnread(ctx context.Context, id string) error {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		"UPDATE conversations SET unread_count = 0, updated_at = now() WHERE id = $1",
		pgID,
	)
	return err
}

func (s *PGStore) attachTags(ctx context.Context, conv Conversation) (Conversation, error) {
	items, err := s.attachTagsAll(ctx, []Conversation{conv})
	if err != nil {
		return Conversation{}, err
	}
	return items[0], nil
}

func (s *PGStore) attachTagsAll(ctx context.Context, convs []Conversation) ([]Conversation, error) {
	if len(convs) == 0 {
		return convs, nil
	}
	ids := make([]pgtype.UUID, 0, len(convs))
	for _, conv := range convs {
		pgID, err := db.ParseUUID(conv.ID)
		if err != nil {
			return nil, err
		}
		ids = append(ids, pgID)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT jt.conversation_id, t.id, t.name, t.normalized_name, t.color, t.created_by, t.created_at
		 FROM conversation_tags jt
		 JOIN chat_tags t ON t.id = jt.tag_id
		 WHERE jt.conversation_id = ANY($1)
		 ORDER BY t.name`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byConv := map[string][]tags.Tag{}
	for rows.Next() {
		var (
			convID     pgtype.UUID
			tagID      pgtype.UUID
			name       string
			normalized string
			color      string
			createdBy  pgtype.UUID
			createdAt  pgtype.Timestamptz
		)
		if err := rows.Scan(&convID, &tagID, &name, &normalized, &color, &createdBy, &createdAt); err != nil {
			return nil, err
		}
		key := db.UUIDToString(convID)
		byConv[key] = append(byConv[key], tags.Tag{
			ID:             db.UUIDToString(tagID),
			Name:           name,
			NormalizedName: normalized,
			Color:          color,
			CreatedBy:      db.UUIDToString(createdBy),
			CreatedAt:      db.TimeFromPg(createdAt),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range convs {
		attached := byConv[convs[i].ID]
		if attached == nil {
			attached = []tags.Tag{}
		}
		convs[i].Tags = attached
	}
	return convs, nil
}

func scanConversation(row pgx.Row) (Conversation, error) {
	var (
		id            pgtype.UUID
		contactID     pgtype.UUID
		campaignID    pgtype.UUID
		archived      bool
		assignees     []pgtype.UUID
		lastMessage   pgtype.Text
		lastMessageAt pgtype.Timestamptz
		unreadCount   int32
		createdAt     pgtype.Timestamptz
		updatedAt     pgtype.Timestamptz

		cID        pgtype.UUID
		cPhone     string
		cName      pgtype.Text
		cOptedOut  bool
		cCreatedAt pgtype.Timestamptz
		cUpdatedAt pgtype.Timestamptz
	)
	err := row.Scan(
		&id, &contactID, &campaignID, &archived, &assignees,
		&lastMessage, &lastMessageAt, &unreadCount, &createdAt, &updatedAt,
		&cID, &cPhone, &cName, &cOptedOut, &cCreatedAt, &cUpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Conversation{}, ErrNotFound
		}
		return Conversation{}, err
	}

	assigneeIDs := make([]string, 0, len(assignees))
	for _, a := range assignees {
		assigneeIDs = append(assigneeIDs, db.UUIDToString(a))
	}

	return Conversation{
		ID:            db.UUIDToString(id),
		ContactID:     db.UUIDToString(contactID),
		CampaignID:    db.UUIDToString(campaignID),
		Archived:      archived,
		Assignees:     assigneeIDs,
		LastMessage:   db.TextToString(lastMessage),
		LastMessageAt: db.TimePtrFromPg(lastMessageAt),
		UnreadCount:   int(unreadCount),
		CreatedAt:     db.TimeFromPg(createdAt),
		UpdatedAt:     db.TimeFromPg(updatedAt),
		Contact: &contacts.Contact{
			ID:        db.UUIDToString(cID),
			Phone:     cPhone,
			Name:      db.TextToString(cName),
			OptedOut:  cOptedOut,
			CreatedAt: db.TimeFromPg(cCreatedAt),
			UpdatedAt: db.TimeFromPg(cUpdatedAt),
		},
		Tags: []tags.Tag{},
	}, nil
}
