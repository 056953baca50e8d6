package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open opens a SQLite database with the given DSN.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Single connection: SQLite allows one writer, and the foreign_keys
	// pragma is per-connection. This also keeps ":memory:" databases
	// from silently splitting across pooled connections.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

// Migrate runs idempotent CREATE TABLE / CREATE INDEX statements.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY,
			username VARCHAR(50) UNIQUE NOT NULL,
			display_name VARCHAR(64) NOT NULL,
			hashed_password VARCHAR(255) NOT NULL,
			bio TEXT,
			profile_picture TEXT,
			is_online BOOLEAN DEFAULT FALSE,
			verified BOOLEAN DEFAULT FALSE,
			deleted BOOLEAN DEFAULT FALSE,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			last_seen DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS spaces (
			id INTEGER PRIMARY KEY,
			kind VARCHAR(10) NOT NULL,
			name VARCHAR(64) NOT NULL,
			handle VARCHAR(50) UNIQUE,
			owner_id INTEGER NOT NULL REFERENCES users(id),
			access_type VARCHAR(10) NOT NULL DEFAULT 'public',
			invite_token VARCHAR(32) UNIQUE,
			description TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS memberships (
			space_id INTEGER NOT NULL REFERENCES spaces(id) ON DELETE CASCADE,
			user_id INTEGER NOT NULL REFERENCES users(id),
			role VARCHAR(10) NOT NULL DEFAULT 'member',
			is_banned BOOLEAN DEFAULT FALSE,
			banned_until DATETIME,
			joined_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (space_id, user_id)
		);`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
			space_id INTEGER NOT NULL REFERENCES spaces(id) ON DELETE CASCADE,
			user_id INTEGER NOT NULL REFERENCES users(id),
			subscribed_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (space_id, user_id)
		);`,
		`CREATE TABLE IF NOT EXISTS admin_grants (
			space_id INTEGER NOT NULL REFERENCES spaces(id) ON DELETE CASCADE,
			user_id INTEGER NOT NULL REFERENCES users(id),
			label VARCHAR(64),
			can_send_messages BOOLEAN DEFAULT FALSE,
			can_send_images BOOLEAN DEFAULT FALSE,
			can_send_files BOOLEAN DEFAULT FALSE,
			can_delete_messages BOOLEAN DEFAULT FALSE,
			can_assign_admins BOOLEAN DEFAULT FALSE,
			can_modify_profile BOOLEAN DEFAULT FALSE,
			assigned_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (space_id, user_id)
		);`,
		`CREATE TABLE IF NOT EXISTS restrictions (
			space_id INTEGER NOT NULL REFERENCES spaces(id) ON DELETE CASCADE,
			user_id INTEGER NOT NULL REFERENCES users(id),
			can_send_messages BOOLEAN DEFAULT TRUE,
			can_send_images BOOLEAN DEFAULT TRUE,
			can_send_files BOOLEAN DEFAULT TRUE,
			can_react BOOLEAN DEFAULT TRUE,
			expires_at DATETIME,
			restricted_by INTEGER NOT NULL REFERENCES users(id),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (space_id, user_id)
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY,
			space_id INTEGER NOT NULL REFERENCES spaces(id) ON DELETE CASCADE,
			author_id INTEGER NOT NULL REFERENCES users(id),
			content TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			is_edited BOOLEAN DEFAULT FALSE,
			reply_to_id INTEGER REFERENCES messages(id) ON DELETE SET NULL
		);`,
		`CREATE TABLE IF NOT EXISTS message_files (
			id INTEGER PRIMARY KEY,
			message_id INTEGER NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			path TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS reactions (
			id INTEGER PRIMARY KEY,
			message_id INTEGER NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
			user_id INTEGER NOT NULL REFERENCES users(id),
			emoji VARCHAR(16) NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (message_id, user_id, emoji)
		);`,
		`CREATE TABLE IF NOT EXISTS dm_envelopes (
			id INTEGER PRIMARY KEY,
			sender_id INTEGER NOT NULL REFERENCES users(id),
			recipient_id INTEGER NOT NULL REFERENCES users(id),
			iv_b64 TEXT NOT NULL,
			ciphertext_b64 TEXT NOT NULL,
			salt_b64 TEXT NOT NULL,
			iv2_b64 TEXT NOT NULL,
			wrapped_mk_b64 TEXT NOT NULL,
			reply_to_id INTEGER REFERENCES dm_envelopes(id) ON DELETE SET NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS dm_reactions (
			id INTEGER PRIMARY KEY,
			envelope_id INTEGER NOT NULL REFERENCES dm_envelopes(id) ON DELETE CASCADE,
			user_id INTEGER NOT NULL REFERENCES users(id),
			emoji VARCHAR(16) NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (envelope_id, user_id, emoji)
		);`,
		`CREATE TABLE IF NOT EXISTS device_sessions (
			id INTEGER PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id),
			session_id VARCHAR(36) UNIQUE NOT NULL,
			device_name VARCHAR(100),
			user_agent TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			last_seen DATETIME DEFAULT CURRENT_TIMESTAMP,
			revoked BOOLEAN DEFAULT FALSE
		);`,
		`CREATE TABLE IF NOT EXISTS push_subscriptions (
			id INTEGER PRIMARY KEY,
			user_id INTEGER UNIQUE NOT NULL REFERENCES users(id),
			endpoint TEXT NOT NULL,
			p256dh_key TEXT NOT NULL,
			auth_key TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,

		`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);`,
		`CREATE INDEX IF NOT EXISTS idx_users_is_online ON users(is_online);`,
		`CREATE INDEX IF NOT EXISTS idx_spaces_handle ON spaces(handle);`,
		`CREATE INDEX IF NOT EXISTS idx_spaces_kind_access ON spaces(kind, access_type);`,
		`CREATE INDEX IF NOT EXISTS idx_memberships_user ON memberships(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_user ON subscriptions(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_space ON messages(space_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_reactions_message ON reactions(message_id);`,
		`CREATE INDEX IF NOT EXISTS idx_dm_participants ON dm_envelopes(sender_id, recipient_id);`,
		`CREATE INDEX IF NOT EXISTS idx_device_sessions_user ON device_sessions(user_id);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}
