package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"fromchat/internal/domain"
)

const spaceColumns = `id, kind, name, handle, owner_id, access_type, invite_token, description, created_at`

type SpaceRepo struct {
	db *sql.DB
}

func NewSpaceRepo(db *sql.DB) *SpaceRepo {
	return &SpaceRepo{db: db}
}

var _ domain.SpaceRepository = (*SpaceRepo)(nil)

func (r *SpaceRepo) Create(ctx context.Context, s *domain.Space) error {
	query := `
		INSERT INTO spaces (kind, name, handle, owner_id, access_type, invite_token, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, created_at
	`
	return r.db.QueryRowContext(ctx, query,
		s.Kind, s.Name, s.Handle, s.OwnerID, s.Access, s.InviteToken, s.Description,
	).Scan(&s.ID, &s.CreatedAt)
}

func (r *SpaceRepo) GetByID(ctx context.Context, id int64) (*domain.Space, error) {
	return r.scanSpace(ctx, `SELECT `+spaceColumns+` FROM spaces WHERE id = $1`, id)
}

func (r *SpaceRepo) GetByHandle(ctx context.Context, handle string) (*domain.Space, error) {
	return r.scanSpace(ctx, `SELECT `+spaceColumns+` FROM spaces WHERE handle = $1`, handle)
}

func (r *SpaceRepo) GetByInviteToken(ctx context.Context, token string) (*domain.Space, error) {
	return r.scanSpace(ctx, `SELECT `+spaceColumns+` FROM spaces WHERE invite_token = $1`, token)
}

func (r *SpaceRepo) ListPublic(ctx context.Context, kind domain.SpaceKind) ([]*domain.Space, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+spaceColumns+`
		FROM spaces
		WHERE kind = $1 AND access_type = 'public'
		ORDER BY name ASC
	`, kind)
	if err != nil {
		return nil, fmt.Errorf("list public spaces: %w", err)
	}
	return r.scanSpaces(rows)
}

func (r *SpaceRepo) Update(ctx context.Context, s *domain.Space) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE spaces
		SET name=$1, handle=$2, access_type=$3, invite_token=$4, description=$5
		WHERE id=$6
	`, s.Name, s.Handle, s.Access, s.InviteToken, s.Description, s.ID)
	return err
}

func (r *SpaceRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM spaces WHERE id=$1`, id)
	return err
}

func (r *SpaceRepo) scanSpace(ctx context.Context, query string, args ...any) (*domain.Space, error) {
	s := &domain.Space{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&s.ID, &s.Kind, &s.Name, &s.Handle, &s.OwnerID, &s.Access,
		&s.InviteToken, &s.Description, &s.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan space: %w", err)
	}
	return s, nil
}

func (r *SpaceRepo) scanSpaces(rows *sql.Rows) ([]*domain.Space, error) {
	defer rows.Close()
	var spaces []*domain.Space
	for rows.Next() {
		s := &domain.Space{}
		err := rows.Scan(
			&s.ID, &s.Kind, &s.Name, &s.Handle, &s.OwnerID, &s.Access,
			&s.InviteToken, &s.Description, &s.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan space row: %w", err)
		}
		spaces = append(spaces, s)
	}
	return spaces, rows.Err()
}
