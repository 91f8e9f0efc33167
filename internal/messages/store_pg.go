package messages

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/devarche/wpp-dashboard/internal/db"
)

// PGStore is the PostgreSQL-backed message store.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a message store over the given pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const messageColumns = "id, conversation_id, wamid, direction, type, content, status, created_at"

func (s *PGStore) ListByConversation(ctx context.Context, conversationID string) ([]Message, error) {
	pgID, err := db.ParseUUID(conversationID)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		"SELECT "+messageColumns+" FROM messages WHERE conversation_id = $1 ORDER BY created_at",
		pgID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, msg)
	}
	return items, rows.Err()
}

func (s *PGStore) Insert(ctx context.Context, msg Message) (Message, error) {
	pgConvID, err := db.ParseUUID(msg.ConversationID)
	if err != nil {
		return Message{}, err
	}
	content, err := json.Marshal(msg.Content)
	if err != nil {
		return Message{}, err
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO messages (conversation_id, wamid, direction, type, content, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+messageColumns,
		pgConvID, wamidText(msg.Wamid), msg.Direction, msg.Type, content, msg.Status,
	)
	return scanMessage(row)
}

func (s *PGStore) UpsertByWamid(ctx context.Context, msg Message) (Message, bool, error) {
	pgConvID, err := db.ParseUUID(msg.ConversationID)
	if err != nil {
		return Message{}, false, err
	}
	content, err := json.Marshal(msg.Content)
	if err != nil {
		return Message{}, false, err
	}
	// DO UPDATE on the no-op column keeps RETURNING working on conflict;
	// xmax = 0 distinguishes a fresh insert from a redelivered event.
	row := s.pool.QueryRow(ctx,
		`INSERT INTO messages (conversation_id, wamid, direction, type, content, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (wamid) DO UPDATE SET wamid = EXCLUDED.wamid
		 RETURNING `+messageColumns+`, (xmax = 0) AS inserted`,
		pgConvID, wamidText(msg.Wamid), msg.Direction, msg.Type, content, msg.Status,
	)
	return scanMessageWithInserted(row)
}

func (s *PGStore) UpdateStatusByWamid(ctx context.Context, wamid, status string) (Message, error) {
	row := s.pool.QueryRow(ctx,
		"UPDATE messages SET status = $2 WHERE wamid = $1 RETURNING "+messageColumns,
		wamid, status,
	)
	return scanMessage(row)
}

func wamidText(wamid string) pgtype.Text {
	if wamid == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: wamid, Valid: true}
}

func scanMessage(row pgx.Row) (Message, error) {
	var (
		id        pgtype.UUID
		convID    pgtype.UUID
		wamid     pgtype.Text
		direction string
		msgType   string
		content   []byte
		status    string
		createdAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &convID, &wamid, &direction, &msgType, &content, &status, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Message{}, ErrNotFound
		}
		return Message{}, err
	}
	return buildMessage(id, convID, wamid, direction, msgType, content, status, createdAt)
}

func scanMessageWithInserted(row pgx.Row) (Message, bool, error) {
	var (
		id        pgtype.UUID
		convID    pgtype.UUID
		wamid     pgtype.Text
		direction string
		msgType   string
		content   []byte
		status    string
		createdAt pgtype.Timestamptz
		inserted  bool
	)
	if err := row.Scan(&id, &convID, &wamid, &direction, &msgType, &content, &status, &createdAt, &inserted); err != nil {
		return Message{}, false, err
	}
	msg, err := buildMessage(id, convID, wamid, direction, msgType, content, status, createdAt)
	return msg, inserted, err
}

func buildMessage(id, convID pgtype.UUID, wamid pgtype.Text, direction, msgType string, content []byte, status string, createdAt pgtype.Timestamptz) (Message, error) {
	msg := Message{
		ID:             db.UUIDToString(id),
		ConversationID: db.UUIDToString(convID),
		Wamid:          db.TextToString(wamid),
		Direction:      direction,
		Type:           msgType,
		Status:         status,
		CreatedAt:      db.TimeFromPg(createdAt),
	}
	if len(content) > 0 {
		if err := json.Unmarshal(content, &msg.Content); err != nil {
			return Message{}, err
		}
	}
	return msg, nil
}
