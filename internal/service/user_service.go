package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/vedran77/relay/internal/domain"
	"github.com/vedran77/relay/internal/repository"
)

type UserService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// Me returns the caller's own profile and touches their last-seen
// timestamp.
func (s *UserService) Me(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	if err := s.userRepo.UpdateLastSeen(ctx, userID); err != nil {
		return nil, err
	}

	return user.Public(), nil
}

// Get returns another user's profile.
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user.Public(), nil
}

// List returns the directory of all users except the caller.
func (s *UserService) List(ctx context.Context, userID uuid.UUID) ([]domain.User, error) {
	users, err := s.userRepo.ListAllExcept(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(users))
	for i := range users {
		out = append(out, *users[i].Public())
	}
	return out, nil
}

// SetOnlineStatus flips the caller's online flag, touching last-seen when
// they come online.
func (s *UserService) SetOnlineStatus(ctx context.Context, userID uuid.UUID, online bool) (*domain.User, error) {
	if err := s.userRepo.UpdateOnlineStatus(ctx, userID, online); err != nil {
		return nil, err
	}
	if online {
		if err := s.userRepo.UpdateLastSeen(ctx, userID); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, userID)
}
