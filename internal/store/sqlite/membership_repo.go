package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fromchat/internal/domain"
)

type MembershipRepo struct {
	db *sql.DB
}

func NewMembershipRepo(db *sql.DB) *MembershipRepo {
	return &MembershipRepo{db: db}
}

var _ domain.MembershipRepository = (*MembershipRepo)(nil)

func (r *MembershipRepo) Create(ctx context.Context, m *domain.Membership) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO memberships (space_id, user_id, role, is_banned, banned_until, joined_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, m.SpaceID, m.UserID, m.Role, m.IsBanned, m.BannedUntil)
	if err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

func (r *MembershipRepo) Get(ctx context.Context, spaceID, userID int64) (*domain.Membership, error) {
	m := &domain.Membership{}
	var bannedUntil sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT space_id, user_id, role, is_banned, banned_until, joined_at
		FROM memberships WHERE space_id = ? AND user_id = ?
	`, spaceID, userID).Scan(&m.SpaceID, &m.UserID, &m.Role, &m.IsBanned, &bannedUntil, &m.JoinedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan membership: %w", err)
	}
	if bannedUntil.Valid {
		m.BannedUntil = &bannedUntil.Time
	}
	return m, nil
}

func (r *MembershipRepo) Delete(ctx context.Context, spaceID, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM memberships WHERE space_id = ? AND user_id = ?`, spaceID, userID)
	return err
}

func (r *MembershipRepo) DeleteForUser(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM memberships WHERE user_id = ?`, userID)
	return err
}

func (r *MembershipRepo) ListBySpace(ctx context.Context, spaceID int64) ([]*domain.Membership, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT space_id, user_id, role, is_banned, banned_until, joined_at
		FROM memberships WHERE space_id = ?
		ORDER BY joined_at ASC
	`, spaceID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()
	var out []*domain.Membership
	for rows.Next() {
		m := &domain.Membership{}
		var bannedUntil sql.NullTime
		if err := rows.Scan(&m.SpaceID, &m.UserID, &m.Role, &m.IsBanned, &bannedUntil, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan membership row: %w", err)
		}
		if bannedUntil.Valid {
			m.BannedUntil = &bannedUntil.Time
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MembershipRepo) ListSpaceIDsForUser(ctx context.Context, userID int64) ([]int64, error) {
	return scanIDs(ctx, r.db,
		`SELECT space_id FROM memberships WHERE user_id = ? AND is_banned = 0`, userID)
}

func (r *MembershipRepo) MemberIDs(ctx context.Context, spaceID int64) ([]int64, error) {
	return scanIDs(ctx, r.db,
		`SELECT user_id FROM memberships WHERE space_id = ? AND is_banned = 0`, spaceID)
}

func (r *MembershipRepo) SetRole(ctx context.Context, spaceID, userID int64, role domain.Role) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE memberships SET role = ? WHERE space_id = ? AND user_id = ?`, role, spaceID, userID)
	return err
}

func (r *MembershipRepo) SetBan(ctx context.Context, spaceID, userID int64, banned bool, until *time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE memberships SET is_banned = ?, banned_until = ? WHERE space_id = ? AND user_id = ?`,
		banned, until, spaceID, userID)
	return err
}

type SubscriptionRepo struct {
	db *sql.DB
}

func NewSubscriptionRepo(db *sql.DB) *SubscriptionRepo {
	return &SubscriptionRepo{db: db}
}

var _ domain.SubscriptionRepository = (*SubscriptionRepo)(nil)

func (r *SubscriptionRepo) Create(ctx context.Context, s *domain.Subscription) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscriptions (space_id, user_id, subscribed_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
	`, s.SpaceID, s.UserID)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

func (r *SubscriptionRepo) Get(ctx context.Context, spaceID, userID int64) (*domain.Subscription, error) {
	s := &domain.Subscription{}
	err := r.db.QueryRowContext(ctx, `
		SELECT space_id, user_id, subscribed_at
		FROM subscriptions WHERE space_id = ? AND user_id = ?
	`, spaceID, userID).Scan(&s.SpaceID, &s.UserID, &s.SubscribedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan subscription: %w", err)
	}
	return s, nil
}

func (r *SubscriptionRepo) Delete(ctx context.Context, spaceID, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE space_id = ? AND user_id = ?`, spaceID, userID)
	return err
}

func (r *SubscriptionRepo) DeleteForUser(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE user_id = ?`, userID)
	return err
}

func (r *SubscriptionRepo) ListBySpace(ctx context.Context, spaceID int64) ([]*domain.Subscription, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT space_id, user_id, subscribed_at
		FROM subscriptions WHERE space_id = ?
		ORDER BY subscribed_at ASC
	`, spaceID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()
	var out []*domain.Subscription
	for rows.Next() {
		s := &domain.Subscription{}
		if err := rows.Scan(&s.SpaceID, &s.UserID, &s.SubscribedAt); err != nil {
			return nil, fmt.Errorf("scan subscription row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SubscriptionRepo) ListSpaceIDsForUser(ctx context.Context, userID int64) ([]int64, error) {
	return scanIDs(ctx, r.db, `SELECT space_id FROM subscriptions WHERE user_id = ?`, userID)
}

func (r *SubscriptionRepo) SubscriberIDs(ctx context.Context, spaceID int64) ([]int64, error) {
	return scanIDs(ctx, r.db, `SELECT user_id FROM subscriptions WHERE space_id = ?`, spaceID)
}

func (r *SubscriptionRepo) Count(ctx context.Context, spaceID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM subscriptions WHERE space_id = ?`, spaceID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count subscriptions: %w", err)
	}
	return n, nil
}

func scanIDs(ctx context.Context, db *sql.DB, query string, args ...any) ([]int64, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ids: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
