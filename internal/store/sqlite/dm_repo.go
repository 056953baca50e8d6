package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"fromchat/internal/domain"
)

type DMRepo struct {
	db *sql.DB
}

func NewDMRepo(db *sql.DB) *DMRepo {
	return &DMRepo{db: db}
}

var _ domain.DMRepository = (*DMRepo)(nil)

func (r *DMRepo) Create(ctx context.Context, e *domain.DMEnvelope) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO dm_envelopes
			(sender_id, recipient_id, iv_b64, ciphertext_b64, salt_b64, iv2_b64, wrapped_mk_b64, reply_to_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, e.SenderID, e.RecipientID, e.IV, e.Ciphertext, e.Salt, e.IV2, e.WrappedKey, e.ReplyToID)
	if err != nil {
		return fmt.Errorf("insert dm envelope: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	e.ID = id
	return nil
}

func (r *DMRepo) GetByID(ctx context.Context, id int64) (*domain.DMEnvelope, error) {
	e := &domain.DMEnvelope{}
	var replyTo sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT id, sender_id, recipient_id, iv_b64, ciphertext_b64, salt_b64, iv2_b64, wrapped_mk_b64, reply_to_id, created_at
		FROM dm_envelopes WHERE id = ?
	`, id).Scan(&e.ID, &e.SenderID, &e.RecipientID, &e.IV, &e.Ciphertext, &e.Salt, &e.IV2, &e.WrappedKey, &replyTo, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan dm envelope: %w", err)
	}
	if replyTo.Valid {
		e.ReplyToID = &replyTo.Int64
	}
	return e, nil
}

// ListBetween returns the most recent envelopes between two users in
// chronological order, regardless of direction.
func (r *DMRepo) ListBetween(ctx context.Context, userA, userB int64, limit int) ([]*domain.DMEnvelope, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sender_id, recipient_id, iv_b64, ciphertext_b64, salt_b64, iv2_b64, wrapped_mk_b64, reply_to_id, created_at
		FROM (
			SELECT * FROM dm_envelopes
			WHERE (sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)
			ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC
	`, userA, userB, userB, userA, limit)
	if err != nil {
		return nil, fmt.Errorf("list dm envelopes: %w", err)
	}
	defer rows.Close()
	var out []*domain.DMEnvelope
	for rows.Next() {
		e := &domain.DMEnvelope{}
		var replyTo sql.NullInt64
		err := rows.Scan(&e.ID, &e.SenderID, &e.RecipientID, &e.IV, &e.Ciphertext, &e.Salt, &e.IV2, &e.WrappedKey, &replyTo, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan dm envelope row: %w", err)
		}
		if replyTo.Valid {
			e.ReplyToID = &replyTo.Int64
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *DMRepo) AddReaction(ctx context.Context, re *domain.DMReaction) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO dm_reactions (envelope_id, user_id, emoji, created_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
	`, re.EnvelopeID, re.UserID, re.Emoji)
	if err != nil {
		return fmt.Errorf("insert dm reaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	re.ID = id
	return nil
}

func (r *DMRepo) GetReaction(ctx context.Context, envelopeID, userID int64, emoji string) (*domain.DMReaction, error) {
	re := &domain.DMReaction{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, envelope_id, user_id, emoji, created_at
		FROM dm_reactions WHERE envelope_id = ? AND user_id = ? AND emoji = ?
	`, envelopeID, userID, emoji).Scan(&re.ID, &re.EnvelopeID, &re.UserID, &re.Emoji, &re.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan dm reaction: %w", err)
	}
	return re, nil
}

func (r *DMRepo) DeleteReaction(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM dm_reactions WHERE id = ?`, id)
	return err
}

func (r *DMRepo) ListReactions(ctx context.Context, envelopeID int64) ([]*domain.DMReaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, envelope_id, user_id, emoji, created_at
		FROM dm_reactions WHERE envelope_id = ? ORDER BY id ASC
	`, envelopeID)
	if err != nil {
		return nil, fmt.Errorf("list dm reactions: %w", err)
	}
	defer rows.Close()
	var out []*domain.DMReaction
	for rows.Next() {
		re := &domain.DMReaction{}
		if err := rows.Scan(&re.ID, &re.EnvelopeID, &re.UserID, &re.Emoji, &re.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan dm reaction row: %w", err)
		}
		out = append(out, re)
	}
	return out, rows.Err()
}
