// Package members: service.go registers members and answers identity lookups.
package members

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Service manages community members.
type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// HandleNewMember registers a user who joined the community chat.
// Returning members get their profile refreshed.
func (s *Service) HandleNewMember(ctx context.Context, userID int64, p Profile) error {
	if err := s.repo.Upsert(ctx, userID, p); err != nil {
		return fmt.Errorf("register new member: %w", err)
	}

	log.WithFields(log.Fields{
		"user_id":  userID,
		"username": p.Username,
	}).Info("Member registered")
	return nil
}

// EnsureMember keeps the profile of an active user current.
func (s *Service) EnsureMember(ctx context.Context, userID int64, p Profile) error {
	return s.repo.Upsert(ctx, userID, p)
}

// IsMember reports whether the user has a members row.
func (s *Service) IsMember(ctx context.Context, userID int64) (bool, error) {
	return s.repo.Exists(ctx, userID)
}

func (s *Service) GetByUserID(ctx context.Context, userID int64) (*Member, error) {
	return s.repo.GetByUserID(ctx, userID)
}

// GetByUsername looks a member up by @username (without the @).
func (s *Service) GetByUsername(ctx context.Context, username string) (*Member, error) {
	return s.repo.GetByUsername(ctx, username)
}
