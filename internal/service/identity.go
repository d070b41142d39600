package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/caadev/tutortrainer/internal/domain"
	"github.com/caadev/tutortrainer/internal/domain/identity"
	"github.com/caadev/tutortrainer/internal/port/database"
)

// maxIDAttempts bounds the retry loop when a generated user id collides.
// With a 900-id space the odds of exhausting this are negligible until the
// space itself is nearly full.
const maxIDAttempts = 25

// IdentityService resolves usernames to stable numeric user ids, creating
// users on first sight.
type IdentityService struct {
	db database.Store
}

// NewIdentityService creates a new IdentityService.
func NewIdentityService(db database.Store) *IdentityService {
	return &IdentityService{db: db}
}

// ResolveUser returns the user record for a username, creating one with a
// freshly generated id when the username has never been seen.
func (s *IdentityService) ResolveUser(ctx context.Context, username string) (*identity.User, error) {
	if err := identity.ValidateUsername(username); err != nil {
		return nil, err
	}

	u, err := s.db.GetUserByName(ctx, username)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		candidate := &identity.User{
			ID:       identity.MinUserID + rand.IntN(identity.MaxUserID-identity.MinUserID+1),
			Username: username,
		}
		err := s.db.CreateUser(ctx, candidate)
		if err == nil {
			slog.Info("user created", "username", username, "user_id", candidate.ID)
			return candidate, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("create user: %w", err)
		}
		// Concurrent creation of the same username wins the race for us.
		if u, lookupErr := s.db.GetUserByName(ctx, username); lookupErr == nil {
			return u, nil
		}
		// Otherwise the generated id collided; draw again.
	}
	return nil, fmt.Errorf("user id space exhausted after %d attempts: %w", maxIDAttempts, domain.ErrConflict)
}

// ListUsers returns every known user.
func (s *IdentityService) ListUsers(ctx context.Context) ([]identity.User, error) {
	return s.db.ListUsers(ctx)
}
