package db

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect initializes the database connection and runs migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS channels (
            id SERIAL PRIMARY KEY,
            kind TEXT NOT NULL,
            building_id INT,
            group_id INT,
            creator_id INT NOT NULL,
            peer_low_id INT,
            peer_high_id INT,
            active BOOLEAN NOT NULL DEFAULT TRUE,
            private BOOLEAN NOT NULL DEFAULT FALSE,
            closed BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		// At most one active direct channel per unordered pair within a scope.
		`CREATE UNIQUE INDEX IF NOT EXISTS channels_one_to_one_pair
            ON channels (peer_low_id, peer_high_id, COALESCE(building_id, 0))
            WHERE kind = 'ONE_TO_ONE' AND active;`,
		// At most one active building-wide channel per building.
		`CREATE UNIQUE INDEX IF NOT EXISTS channels_building_scope
            ON channels (building_id)
            WHERE kind = 'BUILDING' AND active;`,
		`CREATE TABLE IF NOT EXISTS channel_members (
            channel_id INT NOT NULL REFERENCES channels(id),
            user_id INT NOT NULL,
            role TEXT NOT NULL DEFAULT 'MEMBER',
            can_write BOOLEAN NOT NULL DEFAULT TRUE,
            active BOOLEAN NOT NULL DEFAULT TRUE,
            joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            left_at TIMESTAMPTZ,
            PRIMARY KEY (channel_id, user_id)
        );`,
		`CREATE TABLE IF NOT EXISTS messages (
            id BIGSERIAL PRIMARY KEY,
            channel_id INT NOT NULL REFERENCES channels(id),
            sender_id INT NOT NULL,
            content TEXT NOT NULL,
            type TEXT NOT NULL DEFAULT 'TEXT',
            reply_to_id BIGINT,
            attachment_id TEXT,
            call_id INT,
            edited BOOLEAN NOT NULL DEFAULT FALSE,
            deleted BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE INDEX IF NOT EXISTS messages_channel_order
            ON messages (channel_id, created_at DESC, id DESC);`,
		`CREATE TABLE IF NOT EXISTS calls (
            id SERIAL PRIMARY KEY,
            channel_id INT NOT NULL REFERENCES channels(id),
            caller_id INT NOT NULL,
            receiver_id INT NOT NULL,
            is_video BOOLEAN NOT NULL DEFAULT FALSE,
            status TEXT NOT NULL DEFAULT 'INITIATED',
            started_at TIMESTAMPTZ,
            ended_at TIMESTAMPTZ,
            duration_seconds INT NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		// At most one live call per caller/receiver pair.
		`CREATE UNIQUE INDEX IF NOT EXISTS calls_active_pair
            ON calls (caller_id, receiver_id)
            WHERE status IN ('INITIATED', 'ANSWERED');`,
		`CREATE TABLE IF NOT EXISTS notifications (
            id BIGSERIAL PRIMARY KEY,
            resident_id INT NOT NULL,
            building_id INT,
            event_key TEXT NOT NULL,
            payload TEXT NOT NULL,
            is_read BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            read_at TIMESTAMPTZ,
            UNIQUE (event_key, resident_id)
        );`,
		`CREATE INDEX IF NOT EXISTS notifications_unread
            ON notifications (resident_id) WHERE is_read = FALSE;`,
		// Owned by the resident-profile service; created here only so a fresh
		// development database is usable.
		`CREATE TABLE IF NOT EXISTS building_residents (
            building_id INT NOT NULL,
            user_id INT NOT NULL,
            PRIMARY KEY (building_id, user_id)
        );`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}
