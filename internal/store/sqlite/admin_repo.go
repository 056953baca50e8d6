package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"fromchat/internal/domain"
)

type AdminRepo struct {
	db *sql.DB
}

func NewAdminRepo(db *sql.DB) *AdminRepo {
	return &AdminRepo{db: db}
}

var _ domain.AdminRepository = (*AdminRepo)(nil)

func (r *AdminRepo) Upsert(ctx context.Context, g *domain.AdminGrant) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO admin_grants
			(space_id, user_id, label, can_send_messages, can_send_images, can_send_files,
			 can_delete_messages, can_assign_admins, can_modify_profile, assigned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (space_id, user_id) DO UPDATE SET
			label = excluded.label,
			can_send_messages = excluded.can_send_messages,
			can_send_images = excluded.can_send_images,
			can_send_files = excluded.can_send_files,
			can_delete_messages = excluded.can_delete_messages,
			can_assign_admins = excluded.can_assign_admins,
			can_modify_profile = excluded.can_modify_profile,
			assigned_at = CURRENT_TIMESTAMP
	`, g.SpaceID, g.UserID, g.Label, g.CanSendMessages, g.CanSendImages, g.CanSendFiles,
		g.CanDeleteMessages, g.CanAssignAdmins, g.CanModifyProfile)
	if err != nil {
		return fmt.Errorf("upsert admin grant: %w", err)
	}
	return nil
}

func (r *AdminRepo) Get(ctx context.Context, spaceID, userID int64) (*domain.AdminGrant, error) {
	g := &domain.AdminGrant{}
	err := r.db.QueryRowContext(ctx, `
		SELECT space_id, user_id, label, can_send_messages, can_send_images, can_send_files,
		       can_delete_messages, can_assign_admins, can_modify_profile, assigned_at
		FROM admin_grants WHERE space_id = ? AND user_id = ?
	`, spaceID, userID).Scan(
		&g.SpaceID, &g.UserID, &g.Label, &g.CanSendMessages, &g.CanSendImages, &g.CanSendFiles,
		&g.CanDeleteMessages, &g.CanAssignAdmins, &g.CanModifyProfile, &g.AssignedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan admin grant: %w", err)
	}
	return g, nil
}

func (r *AdminRepo) Delete(ctx context.Context, spaceID, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM admin_grants WHERE space_id = ? AND user_id = ?`, spaceID, userID)
	return err
}

func (r *AdminRepo) DeleteForUser(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM admin_grants WHERE user_id = ?`, userID)
	return err
}

func (r *AdminRepo) ListBySpace(ctx context.Context, spaceID int64) ([]*domain.AdminGrant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT space_id, user_id, label, can_send_messages, can_send_images, can_send_files,
		       can_delete_messages, can_assign_admins, can_modify_profile, assigned_at
		FROM admin_grants WHERE space_id = ?
		ORDER BY assigned_at ASC
	`, spaceID)
	if err != nil {
		return nil, fmt.Errorf("list admin grants: %w", err)
	}
	defer rows.Close()
	var out []*domain.AdminGrant
	for rows.Next() {
		g := &domain.AdminGrant{}
		err := rows.Scan(
			&g.SpaceID, &g.UserID, &g.Label, &g.CanSendMessages, &g.CanSendImages, &g.CanSendFiles,
			&g.CanDeleteMessages, &g.CanAssignAdmins, &g.CanModifyProfile, &g.AssignedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan admin grant row: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

type RestrictionRepo struct {
	db *sql.DB
}

func NewRestrictionRepo(db *sql.DB) *RestrictionRepo {
	return &RestrictionRepo{db: db}
}

var _ domain.RestrictionRepository = (*RestrictionRepo)(nil)

func (r *RestrictionRepo) Upsert(ctx context.Context, res *domain.Restriction) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO restrictions
			(space_id, user_id, can_send_messages, can_send_images, can_send_files, can_react,
			 expires_at, restricted_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (space_id, user_id) DO UPDATE SET
			can_send_messages = excluded.can_send_messages,
			can_send_images = excluded.can_send_images,
			can_send_files = excluded.can_send_files,
			can_react = excluded.can_react,
			expires_at = excluded.expires_at,
			restricted_by = excluded.restricted_by,
			created_at = CURRENT_TIMESTAMP
	`, res.SpaceID, res.UserID, res.CanSendMessages, res.CanSendImages, res.CanSendFiles,
		res.CanReact, res.ExpiresAt, res.RestrictedBy)
	if err != nil {
		return fmt.Errorf("upsert restriction: %w", err)
	}
	return nil
}

func (r *RestrictionRepo) Get(ctx context.Context, spaceID, userID int64) (*domain.Restriction, error) {
	res := &domain.Restriction{}
	var expiresAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT space_id, user_id, can_send_messages, can_send_images, can_send_files, can_react,
		       expires_at, restricted_by, created_at
		FROM restrictions WHERE space_id = ? AND user_id = ?
	`, spaceID, userID).Scan(
		&res.SpaceID, &res.UserID, &res.CanSendMessages, &res.CanSendImages, &res.CanSendFiles,
		&res.CanReact, &expiresAt, &res.RestrictedBy, &res.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan restriction: %w", err)
	}
	if expiresAt.Valid {
		res.ExpiresAt = &expiresAt.Time
	}
	return res, nil
}

func (r *RestrictionRepo) Delete(ctx context.Context, spaceID, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM restrictions WHERE space_id = ? AND user_id = ?`, spaceID, userID)
	return err
}

func (r *RestrictionRepo) DeleteForUser(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM restrictions WHERE user_id = ?`, userID)
	return err
}
