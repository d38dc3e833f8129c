package service

import (
	"context"

	"conduit/internal/models"
	"conduit/internal/observability"
	"conduit/internal/repository"
)

type ProfileService struct {
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
}

// Profile is a user together with the viewer's follow state.
type Profile struct {
	User      *models.User
	Following bool
}

func NewProfileService(userRepo repository.UserRepository, followRepo repository.FollowRepository) *ProfileService {
	return &ProfileService{userRepo: userRepo, followRepo: followRepo}
}

func (s *ProfileService) lookup(ctx context.Context, username string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("Profile", username)
	}
	return user, nil
}

// Get returns the profile for username as seen by viewerID (0 for anonymous).
func (s *ProfileService) Get(ctx context.Context, viewerID uint, username string) (*Profile, error) {
	user, err := s.lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	following, err := s.followRepo.IsFollowing(ctx, viewerID, user.ID)
	if err != nil {
		return nil, err
	}
	return &Profile{User: user, Following: following}, nil
}

// Follow makes viewerID follow username. Repeating it is harmless.
func (s *ProfileService) Follow(ctx context.Context, viewerID uint, username string) (*Profile, error) {
	user, err := s.lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	if user.ID == viewerID {
		return nil, models.NewFieldError("username", "You cannot follow yourself.")
	}
	if err := s.followRepo.Follow(ctx, viewerID, user.ID); err != nil {
		return nil, err
	}
	observability.FollowActions.WithLabelValues("follow").Inc()
	return &Profile{User: user, Following: true}, nil
}

// Unfollow removes the edge if present.
func (s *ProfileService) Unfollow(ctx context.Context, viewerID uint, username string) (*Profile, error) {
	user, err := s.lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := s.followRepo.Unfollow(ctx, viewerID, user.ID); err != nil {
		return nil, err
	}
	observability.FollowActions.WithLabelValues("unfollow").Inc()
	return &Profile{User: user, Following: false}, nil
}
