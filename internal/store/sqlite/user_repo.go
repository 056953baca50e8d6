package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"fromchat/internal/domain"
)

const userColumns = `id, username, display_name, hashed_password, bio, profile_picture, is_online, verified, deleted, created_at, last_seen`

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

var _ domain.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (username, display_name, hashed_password, bio, profile_picture, is_online, verified, deleted, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, CURRENT_TIMESTAMP)
	`
	res, err := r.db.ExecContext(ctx, query,
		u.Username, u.DisplayName, u.HashedPassword, u.Bio, u.ProfilePicture, u.IsOnline, u.Verified)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	u.ID = id
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

func (r *UserRepo) List(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE deleted = 0
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return r.scanUsers(rows)
}

func (r *UserRepo) Search(ctx context.Context, query string, limit int) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE deleted = 0 AND (username LIKE ? OR display_name LIKE ?)
		ORDER BY username ASC
		LIMIT ?
	`, "%"+query+"%", "%"+query+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return r.scanUsers(rows)
}

func (r *UserRepo) ListOnline(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE deleted = 0 AND is_online = 1
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list online users: %w", err)
	}
	return r.scanUsers(rows)
}

func (r *UserRepo) Update(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET username=?, display_name=?, hashed_password=?, bio=?, profile_picture=?, is_online=?, verified=?, deleted=?, last_seen=?
		WHERE id=?
	`, u.Username, u.DisplayName, u.HashedPassword, u.Bio, u.ProfilePicture, u.IsOnline, u.Verified, u.Deleted, u.LastSeen, u.ID)
	return err
}

func (r *UserRepo) SetOnlineStatus(ctx context.Context, id int64, isOnline bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_online=?, last_seen=CURRENT_TIMESTAMP WHERE id=?`,
		isOnline, id,
	)
	return err
}

func (r *UserRepo) scanUser(ctx context.Context, query string, args ...any) (*domain.User, error) {
	u := &domain.User{}
	var lastSeen sql.NullTime
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&u.ID, &u.Username, &u.DisplayName, &u.HashedPassword,
		&u.Bio, &u.ProfilePicture, &u.IsOnline, &u.Verified, &u.Deleted,
		&u.CreatedAt, &lastSeen,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if lastSeen.Valid {
		u.LastSeen = &lastSeen.Time
	}
	return u, nil
}

func (r *UserRepo) scanUsers(rows *sql.Rows) ([]*domain.User, error) {
	defer rows.Close()
	var users []*domain.User
	for rows.Next() {
		u := &domain.User{}
		var lastSeen sql.NullTime
		err := rows.Scan(
			&u.ID, &u.Username, &u.DisplayName, &u.HashedPassword,
			&u.Bio, &u.ProfilePicture, &u.IsOnline, &u.Verified, &u.Deleted,
			&u.CreatedAt, &lastSeen,
		)
		if err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		if lastSeen.Valid {
			u.LastSeen = &lastSeen.Time
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
