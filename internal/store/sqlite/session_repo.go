package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"fromchat/internal/domain"
)

type SessionRepo struct {
	db *sql.DB
}

func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

var _ domain.SessionRepository = (*SessionRepo)(nil)

func (r *SessionRepo) Create(ctx context.Context, s *domain.DeviceSession) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO device_sessions (user_id, session_id, device_name, user_agent, created_at, last_seen, revoked)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP, 0)
	`, s.UserID, s.SessionID, s.DeviceName, s.UserAgent)
	if err != nil {
		return fmt.Errorf("insert device session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	s.ID = id
	return nil
}

func (r *SessionRepo) GetBySessionID(ctx context.Context, sessionID string) (*domain.DeviceSession, error) {
	s := &domain.DeviceSession{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, session_id, device_name, user_agent, created_at, last_seen, revoked
		FROM device_sessions WHERE session_id = ?
	`, sessionID).Scan(&s.ID, &s.UserID, &s.SessionID, &s.DeviceName, &s.UserAgent, &s.CreatedAt, &s.LastSeen, &s.Revoked)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan device session: %w", err)
	}
	return s, nil
}

func (r *SessionRepo) ListForUser(ctx context.Context, userID int64) ([]*domain.DeviceSession, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, session_id, device_name, user_agent, created_at, last_seen, revoked
		FROM device_sessions WHERE user_id = ? AND revoked = 0
		ORDER BY last_seen DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list device sessions: %w", err)
	}
	defer rows.Close()
	var out []*domain.DeviceSession
	for rows.Next() {
		s := &domain.DeviceSession{}
		err := rows.Scan(&s.ID, &s.UserID, &s.SessionID, &s.DeviceName, &s.UserAgent, &s.CreatedAt, &s.LastSeen, &s.Revoked)
		if err != nil {
			return nil, fmt.Errorf("scan device session row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SessionRepo) Touch(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE device_sessions SET last_seen = CURRENT_TIMESTAMP WHERE session_id = ?`, sessionID)
	return err
}

func (r *SessionRepo) Revoke(ctx context.Context, sessionID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE device_sessions SET revoked = 1 WHERE session_id = ?`, sessionID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *SessionRepo) RevokeAllForUser(ctx context.Context, userID int64, exceptSessionID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE device_sessions SET revoked = 1 WHERE user_id = ? AND session_id != ?`,
		userID, exceptSessionID)
	return err
}

// RevokedAmong returns which of the given session ids are revoked or no
// longer on record.
func (r *SessionRepo) RevokedAmong(ctx context.Context, sessionIDs []string) ([]string, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(sessionIDs)), ",")
	args := make([]any, len(sessionIDs))
	for i, id := range sessionIDs {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT session_id FROM device_sessions WHERE revoked = 0 AND session_id IN (`+placeholders+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("query live sessions: %w", err)
	}
	defer rows.Close()
	alive := make(map[string]bool, len(sessionIDs))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		alive[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	var revoked []string
	for _, id := range sessionIDs {
		if !alive[id] {
			revoked = append(revoked, id)
		}
	}
	return revoked, nil
}

type PushRepo struct {
	db *sql.DB
}

func NewPushRepo(db *sql.DB) *PushRepo {
	return &PushRepo{db: db}
}

var _ domain.PushRepository = (*PushRepo)(nil)

func (r *PushRepo) Upsert(ctx context.Context, s *domain.PushSubscription) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO push_subscriptions (user_id, endpoint, p256dh_key, auth_key, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id) DO UPDATE SET
			endpoint = excluded.endpoint,
			p256dh_key = excluded.p256dh_key,
			auth_key = excluded.auth_key,
			updated_at = CURRENT_TIMESTAMP
	`, s.UserID, s.Endpoint, s.P256dh, s.Auth)
	if err != nil {
		return fmt.Errorf("upsert push subscription: %w", err)
	}
	return nil
}

func (r *PushRepo) GetByUser(ctx context.Context, userID int64) (*domain.PushSubscription, error) {
	s := &domain.PushSubscription{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, endpoint, p256dh_key, auth_key, updated_at
		FROM push_subscriptions WHERE user_id = ?
	`, userID).Scan(&s.ID, &s.UserID, &s.Endpoint, &s.P256dh, &s.Auth, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan push subscription: %w", err)
	}
	return s, nil
}

func (r *PushRepo) DeleteByUser(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE user_id = ?`, userID)
	return err
}
