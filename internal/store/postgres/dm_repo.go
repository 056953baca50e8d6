package postgres

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
	return r.db.QueryRowContext(ctx, `
		INSERT INTO dm_envelopes
			(sender_id, recipient_id, iv_b64, ciphertext_b64, salt_b64, iv2_b64, wrapped_mk_b64, reply_to_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING id, created_at
	`, e.SenderID, e.RecipientID, e.IV, e.Ciphertext, e.Salt, e.IV2, e.WrappedKey, e.ReplyToID,
	).Scan(&e.ID, &e.CreatedAt)
}

func (r *DMRepo) GetByID(ctx context.Context, id int64) (*domain.DMEnvelope, error) {
	e := &domain.DMEnvelope{}
	var replyTo sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT id, sender_id, recipient_id, iv_b64, ciphertext_b64, salt_b64, iv2_b64, wrapped_mk_b64, reply_to_id, created_at
		FROM dm_envelopes WHERE id = $1
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
			WHERE (sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1)
			ORDER BY id DESC LIMIT $3
		) AS recent ORDER BY id ASC
	`, userA, userB, limit)
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
	return r.db.QueryRowContext(ctx, `
		INSERT INTO dm_reactions (envelope_id, user_id, emoji, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at
	`, re.EnvelopeID, re.UserID, re.Emoji).Scan(&re.ID, &re.CreatedAt)
}

func (r *DMRepo) GetReaction(ctx context.Context, envelopeID, userID int64, emoji string) (*domain.DMReaction, error) {
	re := &domain.DMReaction{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, envelope_id, user_id, emoji, created_at
		FROM dm_reactions WHERE envelope_id = $1 AND user_id = $2 AND emoji = $3
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
	_, err := r.db.ExecContext(ctx, `DELETE FROM dm_reactions WHERE id = $1`, id)
	return err
}

func (r *DMRepo) ListReactions(ctx context.Context, envelopeID int64) ([]*domain.DMReaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, envelope_id, user_id, emoji, created_at
		FROM dm_reactions WHERE envelope_id = $1 ORDER BY id ASC
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
