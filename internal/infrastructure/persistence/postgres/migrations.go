package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE WATER USERS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- One row per tracked user. The record itself is stored as JSONB
-- in the same shape as the JSON file store.
CREATE TABLE IF NOT EXISTS water_users (
    id TEXT PRIMARY KEY,
    position INTEGER NOT NULL,
    document JSONB NOT NULL,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_document CHECK (jsonb_typeof(document) = 'object')
);

CREATE INDEX IF NOT EXISTS idx_water_users_position ON water_users(position);
`

const migration001Down = `
DROP TABLE IF EXISTS water_users;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: DAILY TOTALS VIEW
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Flattened per-day totals for ad-hoc inspection.
CREATE OR REPLACE VIEW water_daily_totals AS
SELECT
    u.id AS user_id,
    u.document->>'name' AS name,
    d.key AS day_key,
    (d.value->>'amount')::INTEGER AS total_ml,
    (u.document->>'dailyGoal')::INTEGER AS goal_ml
FROM water_users u
CROSS JOIN LATERAL jsonb_each(COALESCE(u.document->'waterLog', '{}'::jsonb)) AS d;
`

const migration002Down = `
DROP VIEW IF EXISTS water_daily_totals;
`

// GetMigrations returns all embedded migrations in version order.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_water_users",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_water_daily_totals_view",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
	}
}
