package postgres

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
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, NOW())
		RETURNING id, created_at
	`
	return r.db.QueryRowContext(ctx, query,
		u.Username, u.DisplayName, u.HashedPassword, u.Bio, u.ProfilePicture, u.IsOnline, u.Verified,
	).Scan(&u.ID, &u.CreatedAt)
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *UserRepo) List(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE deleted = FALSE
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
		WHERE deleted = FALSE AND (username ILIKE $1 OR display_name ILIKE $1)
		ORDER BY username ASC
		LIMIT $2
	`, "%"+query+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return r.scanUsers(rows)
}

func (r *UserRepo) ListOnline(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE deleted = FALSE AND is_online = TRUE
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
		SET username=$1, display_name=$2, hashed_password=$3, bio=$4, profile_picture=$5, is_online=$6, verified=$7, deleted=$8, last_seen=$9
		WHERE id=$10
	`, u.Username, u.DisplayName, u.HashedPassword, u.Bio, u.ProfilePicture, u.IsOnline, u.Verified, u.Deleted, u.LastSeen, u.ID)
	return err
}

func (r *UserRepo) SetOnlineStatus(ctx context.Context, id int64, isOnline bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_online=$1, last_seen=NOW() WHERE id=$2`,
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
