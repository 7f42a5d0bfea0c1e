// Package service wires the gamification engine into the operations the bot exposes.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"gamification-bot/internal/model"
)

// Common errors for service operations.
var (
	ErrUnknownActivity = errors.New("unknown activity")
	ErrInvalidAmount   = errors.New("invalid XP amount")
)

// UserDirectory creates and looks up users.
type UserDirectory interface {
	GetByID(ctx context.Context, telegramID int64) (*model.User, error)
	GetOrCreate(ctx context.Context, telegramID int64, username string) (*model.User, bool, error)
	UpdateUsername(ctx context.Context, telegramID int64, username string) error
}

// AccountService handles user registration.
type AccountService struct {
	users UserDirectory
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(users UserDirectory) *AccountService {
	return &AccountService{users: users}
}

// EnsureUser ensures a user exists, creating one with zero XP if necessary.
// Returns the user and whether it was newly created.
func (s *AccountService) EnsureUser(ctx context.Context, telegramID int64, username string) (*model.User, bool, error) {
	user, created, err := s.users.GetOrCreate(ctx, telegramID, username)
	if err != nil {
		return nil, false, fmt.Errorf("failed to ensure user: %w", err)
	}

	if !created && username != "" && user.Username != username {
		if err := s.users.UpdateUsername(ctx, telegramID, username); err != nil {
			log.Warn().Err(err).Int64("user_id", telegramID).Msg("Failed to update username")
		} else {
			user.Username = username
		}
	}

	return user, created, nil
}

// GetUser retrieves a user by their Telegram ID.
func (s *AccountService) GetUser(ctx context.Context, telegramID int64) (*model.User, error) {
	return s.users.GetByID(ctx, telegramID)
}
