package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"fromchat/internal/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	query := `
		INSERT INTO messages (space_id, author_id, content, is_edited, reply_to_id, created_at)
		VALUES ($1, $2, $3, FALSE, $4, NOW())
		RETURNING id, created_at
	`
	return r.db.QueryRowContext(ctx, query,
		m.SpaceID, m.AuthorID, m.Content, m.ReplyToID,
	).Scan(&m.ID, &m.CreatedAt)
}

func (r *MessageRepo) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	m := &domain.Message{}
	var replyTo sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT id, space_id, author_id, content, created_at, is_edited, reply_to_id
		FROM messages WHERE id = $1
	`, id).Scan(&m.ID, &m.SpaceID, &m.AuthorID, &m.Content, &m.CreatedAt, &m.IsEdited, &replyTo)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan message: %w", err)
	}
	if replyTo.Valid {
		m.ReplyToID = &replyTo.Int64
	}
	return m, nil
}

// ListForSpace returns the most recent messages in chronological order.
func (r *MessageRepo) ListForSpace(ctx context.Context, spaceID int64, limit int) ([]*domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, space_id, author_id, content, created_at, is_edited, reply_to_id
		FROM (
			SELECT * FROM messages WHERE space_id = $1 ORDER BY id DESC LIMIT $2
		) AS recent ORDER BY id ASC
	`, spaceID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()
	var out []*domain.Message
	for rows.Next() {
		m := &domain.Message{}
		var replyTo sql.NullInt64
		if err := rows.Scan(&m.ID, &m.SpaceID, &m.AuthorID, &m.Content, &m.CreatedAt, &m.IsEdited, &replyTo); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		if replyTo.Valid {
			m.ReplyToID = &replyTo.Int64
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MessageRepo) Update(ctx context.Context, m *domain.Message) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE messages SET content = $1, is_edited = $2 WHERE id = $3`,
		m.Content, m.IsEdited, m.ID)
	return err
}

func (r *MessageRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id = $1`, id)
	return err
}

func (r *MessageRepo) AddFile(ctx context.Context, f *domain.MessageFile) error {
	return r.db.QueryRowContext(ctx,
		`INSERT INTO message_files (message_id, name, path) VALUES ($1, $2, $3) RETURNING id`,
		f.MessageID, f.Name, f.Path,
	).Scan(&f.ID)
}

func (r *MessageRepo) ListFiles(ctx context.Context, messageID int64) ([]*domain.MessageFile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, message_id, name, path FROM message_files WHERE message_id = $1 ORDER BY id ASC`,
		messageID)
	if err != nil {
		return nil, fmt.Errorf("list message files: %w", err)
	}
	defer rows.Close()
	var out []*domain.MessageFile
	for rows.Next() {
		f := &domain.MessageFile{}
		if err := rows.Scan(&f.ID, &f.MessageID, &f.Name, &f.Path); err != nil {
			return nil, fmt.Errorf("scan message file row: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

type ReactionRepo struct {
	db *sql.DB
}

func NewReactionRepo(db *sql.DB) *ReactionRepo {
	return &ReactionRepo{db: db}
}

var _ domain.ReactionRepository = (*ReactionRepo)(nil)

func (r *ReactionRepo) Create(ctx context.Context, re *domain.Reaction) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO reactions (message_id, user_id, emoji, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at
	`, re.MessageID, re.UserID, re.Emoji).Scan(&re.ID, &re.CreatedAt)
}

func (r *ReactionRepo) Get(ctx context.Context, messageID, userID int64, emoji string) (*domain.Reaction, error) {
	re := &domain.Reaction{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, message_id, user_id, emoji, created_at
		FROM reactions WHERE message_id = $1 AND user_id = $2 AND emoji = $3
	`, messageID, userID, emoji).Scan(&re.ID, &re.MessageID, &re.UserID, &re.Emoji, &re.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan reaction: %w", err)
	}
	return re, nil
}

func (r *ReactionRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM reactions WHERE id = $1`, id)
	return err
}

func (r *ReactionRepo) ListForMessage(ctx context.Context, messageID int64) ([]*domain.Reaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, message_id, user_id, emoji, created_at
		FROM reactions WHERE message_id = $1 ORDER BY id ASC
	`, messageID)
	if err != nil {
		return nil, fmt.Errorf("list reactions: %w", err)
	}
	defer rows.Close()
	var out []*domain.Reaction
	for rows.Next() {
		re := &domain.Reaction{}
		if err := rows.Scan(&re.ID, &re.MessageID, &re.UserID, &re.Emoji, &re.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reaction row: %w", err)
		}
		out = append(out, re)
	}
	return out, rows.Err()
}
