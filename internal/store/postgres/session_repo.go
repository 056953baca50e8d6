package postgres

import (
	"context"
	"database/sql"
	"fmt"

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
	return r.db.QueryRowContext(ctx, `
		INSERT INTO device_sessions (user_id, session_id, device_name, user_agent, created_at, last_seen, revoked)
		VALUES ($1, $2, $3, $4, NOW(), NOW(), FALSE)
		RETURNING id, created_at, last_seen
	`, s.UserID, s.SessionID, s.DeviceName, s.UserAgent).Scan(&s.ID, &s.CreatedAt, &s.LastSeen)
}

func (r *SessionRepo) GetBySessionID(ctx context.Context, sessionID string) (*domain.DeviceSession, error) {
	s := &domain.DeviceSession{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, session_id, device_name, user_agent, created_at, last_seen, revoked
		FROM device_sessions WHERE session_id = $1
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
		FROM device_sessions WHERE user_id = $1 AND revoked = FALSE
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
		`UPDATE device_sessions SET last_seen = NOW() WHERE session_id = $1`, sessionID)
	return err
}

func (r *SessionRepo) Revoke(ctx context.Context, sessionID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE device_sessions SET revoked = TRUE WHERE session_id = $1`, sessionID)
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
		`UPDATE device_sessions SET revoked = TRUE WHERE user_id = $1 AND session_id != $2`,
		userID, exceptSessionID)
	return err
}

// RevokedAmong returns which of the given session ids are revoked or no
// longer on record.
func (r *SessionRepo) RevokedAmong(ctx context.Context, sessionIDs []string) ([]string, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT session_id FROM device_sessions WHERE revoked = FALSE AND session_id = ANY($1)`,
		sessionIDs)
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
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			endpoint = EXCLUDED.endpoint,
			p256dh_key = EXCLUDED.p256dh_key,
			auth_key = EXCLUDED.auth_key,
			updated_at = NOW()
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
		FROM push_subscriptions WHERE user_id = $1
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
	_, err := r.db.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE user_id = $1`, userID)
	return err
}
