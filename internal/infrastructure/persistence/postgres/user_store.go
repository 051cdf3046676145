package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hydromate/hydromate-bot/internal/domain/hydration"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER STORE
// ══════════════════════════════════════════════════════════════════════════════

// UserStore is a hydration.DocumentStore backed by the water_users table.
type UserStore struct {
	conn *Connection
}

// NewUserStore creates a new UserStore.
func NewUserStore(conn *Connection) *UserStore {
	return &UserStore{conn: conn}
}

// userRow is one water_users row ready for writing.
type userRow struct {
	ID       string
	Position int
	Document []byte
}

// encodeRows converts users into rows, keeping their order in Position.
func encodeRows(users []*hydration.UserRecord) ([]userRow, error) {
	rows := make([]userRow, 0, len(users))
	for i, u := range users {
		doc, err := json.Marshal(u)
		if err != nil {
			return nil, fmt.Errorf("encode user %s: %w", u.ID, err)
		}
		rows = append(rows, userRow{ID: u.ID, Position: i, Document: doc})
	}
	return rows, nil
}

// Load returns every user ordered by position.
func (s *UserStore) Load(ctx context.Context) ([]*hydration.UserRecord, error) {
	rows, err := s.conn.Query(ctx, `SELECT document FROM water_users ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: load users: %w", err)
	}
	defer rows.Close()

	users := make([]*hydration.UserRecord, 0)
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("postgres: scan user: %w", err)
		}
		var u hydration.UserRecord
		if err := json.Unmarshal(doc, &u); err != nil {
			return nil, fmt.Errorf("postgres: decode user: %w", err)
		}
		users = append(users, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: load users: %w", err)
	}
	return users, nil
}

// SaveAll replaces the table contents with users in one transaction.
func (s *UserStore) SaveAll(ctx context.Context, users []*hydration.UserRecord) error {
	rows, err := encodeRows(users)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	ids := make([]string, 0, len(rows))
	batch := &pgx.Batch{}
	for _, r := range rows {
		ids = append(ids, r.ID)
		batch.Queue(`
			INSERT INTO water_users (id, position, document, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (id) DO UPDATE
			SET position = EXCLUDED.position,
			    document = EXCLUDED.document,
			    updated_at = NOW()
			WHERE water_users.document IS DISTINCT FROM EXCLUDED.document
			   OR water_users.position IS DISTINCT FROM EXCLUDED.position
		`, r.ID, r.Position, r.Document)
	}

	err = s.conn.WithTx(ctx, func(tx pgx.Tx) error {
		if batch.Len() > 0 {
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return fmt.Errorf("upsert users: %w", err)
			}
		}
		if _, err := tx.Exec(ctx, `DELETE FROM water_users WHERE NOT (id = ANY($1))`, ids); err != nil {
			return fmt.Errorf("delete stale users: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("postgres: save users: %w", err)
	}
	return nil
}

var _ hydration.DocumentStore = (*UserStore)(nil)
