package service

import (
	"context"
	"fmt"
	"strings"

	"fromchat/internal/domain"
)

// UserService reads and updates user profiles.
type UserService struct {
	users domain.UserRepository
}

func NewUserService(users domain.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) List(ctx context.Context) ([]*domain.User, error) {
	return s.users.List(ctx)
}

func (s *UserService) Search(ctx context.Context, query string) ([]*domain.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*domain.User{}, nil
	}
	return s.users.Search(ctx, query, 50)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.users.GetByUsername(ctx, username)
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

type UpdateProfileInput struct {
	DisplayName    *string
	Bio            *string
	ProfilePicture *string
}

func (s *UserService) UpdateProfile(ctx context.Context, user *domain.User, in UpdateProfileInput) error {
	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		if !validDisplayName(name) {
			return fmt.Errorf("%w: display name must be 1-64 characters", domain.ErrInvalidInput)
		}
		user.DisplayName = name
	}
	if in.Bio != nil {
		bio := strings.TrimSpace(*in.Bio)
		if len([]rune(bio)) > 500 {
			return fmt.Errorf("%w: bio must be at most 500 characters", domain.ErrInvalidInput)
		}
		if bio == "" {
			user.Bio = nil
		} else {
			user.Bio = &bio
		}
	}
	if in.ProfilePicture != nil {
		if *in.ProfilePicture == "" {
			user.ProfilePicture = nil
		} else {
			user.ProfilePicture = in.ProfilePicture
		}
	}
	return s.users.Update(ctx, user)
}
