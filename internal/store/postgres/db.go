package postgres

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open opens a PostgreSQL database using the pgx stdlib driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate runs idempotent DDL migrations on PostgreSQL.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id              BIGSERIAL    PRIMARY KEY,
			username        VARCHAR(50)  UNIQUE NOT NULL,
			display_name    VARCHAR(64)  NOT NULL,
			hashed_password VARCHAR(255) NOT NULL,
			bio             TEXT,
			profile_picture TEXT,
			is_online       BOOLEAN      NOT NULL DEFAULT FALSE,
			verified        BOOLEAN      NOT NULL DEFAULT FALSE,
			deleted         BOOLEAN      NOT NULL DEFAULT FALSE,
			created_at      TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			last_seen       TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS spaces (
			id           BIGSERIAL   PRIMARY KEY,
			kind         VARCHAR(10) NOT NULL,
			name         VARCHAR(64) NOT NULL,
			handle       VARCHAR(50) UNIQUE,
			owner_id     BIGINT      NOT NULL REFERENCES users(id),
			access_type  VARCHAR(10) NOT NULL DEFAULT 'public',
			invite_token VARCHAR(32) UNIQUE,
			description  TEXT,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS memberships (
			space_id     BIGINT      NOT NULL REFERENCES spaces(id) ON DELETE CASCADE,
			user_id      BIGINT      NOT NULL REFERENCES users(id),
			role         VARCHAR(10) NOT NULL DEFAULT 'member',
			is_banned    BOOLEAN     NOT NULL DEFAULT FALSE,
			banned_until TIMESTAMPTZ,
			joined_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (space_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
			space_id      BIGINT      NOT NULL REFERENCES spaces(id) ON DELETE CASCADE,
			user_id       BIGINT      NOT NULL REFERENCES users(id),
			subscribed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (space_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS admin_grants (
			space_id            BIGINT      NOT NULL REFERENCES spaces(id) ON DELETE CASCADE,
			user_id             BIGINT      NOT NULL REFERENCES users(id),
			label               VARCHAR(64),
			can_send_messages   BOOLEAN     NOT NULL DEFAULT FALSE,
			can_send_images     BOOLEAN     NOT NULL DEFAULT FALSE,
			can_send_files      BOOLEAN     NOT NULL DEFAULT FALSE,
			can_delete_messages BOOLEAN     NOT NULL DEFAULT FALSE,
			can_assign_admins   BOOLEAN     NOT NULL DEFAULT FALSE,
			can_modify_profile  BOOLEAN     NOT NULL DEFAULT FALSE,
			assigned_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (space_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS restrictions (
			space_id          BIGINT      NOT NULL REFERENCES spaces(id) ON DELETE CASCADE,
			user_id           BIGINT      NOT NULL REFERENCES users(id),
			can_send_messages BOOLEAN     NOT NULL DEFAULT TRUE,
			can_send_images   BOOLEAN     NOT NULL DEFAULT TRUE,
			can_send_files    BOOLEAN     NOT NULL DEFAULT TRUE,
			can_react         BOOLEAN     NOT NULL DEFAULT TRUE,
			expires_at        TIMESTAMPTZ,
			restricted_by     BIGINT      NOT NULL REFERENCES users(id),
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (space_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id          BIGSERIAL   PRIMARY KEY,
			space_id    BIGINT      NOT NULL REFERENCES spaces(id) ON DELETE CASCADE,
			author_id   BIGINT      NOT NULL REFERENCES users(id),
			content     TEXT        NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			is_edited   BOOLEAN     NOT NULL DEFAULT FALSE,
			reply_to_id BIGINT      REFERENCES messages(id) ON DELETE SET NULL
		)`,
		`CREATE TABLE IF NOT EXISTS message_files (
			id         BIGSERIAL PRIMARY KEY,
			message_id BIGINT    NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
			name       TEXT      NOT NULL,
			path       TEXT      NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS reactions (
			id         BIGSERIAL   PRIMARY KEY,
			message_id BIGINT      NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
			user_id    BIGINT      NOT NULL REFERENCES users(id),
			emoji      VARCHAR(16) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (message_id, user_id, emoji)
		)`,
		`CREATE TABLE IF NOT EXISTS dm_envelopes (
			id             BIGSERIAL   PRIMARY KEY,
			sender_id      BIGINT      NOT NULL REFERENCES users(id),
			recipient_id   BIGINT      NOT NULL REFERENCES users(id),
			iv_b64         TEXT        NOT NULL,
			ciphertext_b64 TEXT        NOT NULL,
			salt_b64       TEXT        NOT NULL,
			iv2_b64        TEXT        NOT NULL,
			wrapped_mk_b64 TEXT        NOT NULL,
			reply_to_id    BIGINT      REFERENCES dm_envelopes(id) ON DELETE SET NULL,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS dm_reactions (
			id          BIGSERIAL   PRIMARY KEY,
			envelope_id BIGINT      NOT NULL REFERENCES dm_envelopes(id) ON DELETE CASCADE,
			user_id     BIGINT      NOT NULL REFERENCES users(id),
			emoji       VARCHAR(16) NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (envelope_id, user_id, emoji)
		)`,
		`CREATE TABLE IF NOT EXISTS device_sessions (
			id          BIGSERIAL    PRIMARY KEY,
			user_id     BIGINT       NOT NULL REFERENCES users(id),
			session_id  VARCHAR(36)  UNIQUE NOT NULL,
			device_name VARCHAR(100),
			user_agent  TEXT,
			created_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			last_seen   TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			revoked     BOOLEAN      NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS push_subscriptions (
			id         BIGSERIAL   PRIMARY KEY,
			user_id    BIGINT      UNIQUE NOT NULL REFERENCES users(id),
			endpoint   TEXT        NOT NULL,
			p256dh_key TEXT        NOT NULL,
			auth_key   TEXT        NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username)`,
		`CREATE INDEX IF NOT EXISTS idx_users_is_online ON users(is_online)`,
		`CREATE INDEX IF NOT EXISTS idx_spaces_handle ON spaces(handle)`,
		`CREATE INDEX IF NOT EXISTS idx_spaces_kind_access ON spaces(kind, access_type)`,
		`CREATE INDEX IF NOT EXISTS idx_memberships_user ON memberships(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_user ON subscriptions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_space ON messages(space_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_reactions_message ON reactions(message_id)`,
		`CREATE INDEX IF NOT EXISTS idx_dm_participants ON dm_envelopes(sender_id, recipient_id)`,
		`CREATE INDEX IF NOT EXISTS idx_device_sessions_user ON device_sessions(user_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}
