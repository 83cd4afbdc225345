package repository

import (
	"context"
	"errors"

	"github.com/weiawesome/wes-io-live/dm-service/internal/domain"
)

var ErrUserNotFound = errors.New("user not found")

// IdentityStore persists users and their message history.
type IdentityStore interface {
	FindUser(ctx context.Context, name string) (*domain.User, error)
	CreateUser(ctx context.Context, name string) (*domain.User, error)
	// EnsureUser returns the user named name, creating it if needed.
	EnsureUser(ctx context.Context, name string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)

	// AppendMessage stores a message from sender to recipient and assigns
	// its ID and timestamp. A returned error means nothing was stored.
	AppendMessage(ctx context.Context, sender, recipient *domain.User, body string) (*domain.Message, error)
	// History returns the conversation between two users oldest first,
	// limited to the most recent limit messages when limit > 0.
	History(ctx context.Context, userAID, userBID uint64, limit int) ([]domain.Message, error)
}
