package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/weiawesome/wes-io-live/dm-service/internal/audit"
	"github.com/weiawesome/wes-io-live/dm-service/internal/domain"
	"github.com/weiawesome/wes-io-live/dm-service/internal/presence"
	"github.com/weiawesome/wes-io-live/dm-service/internal/repository"
	"github.com/weiawesome/wes-io-live/dm-service/pkg/log"
)

// Lifecycle binds connections to identities and keeps every live connection
// informed of who is online.
type Lifecycle struct {
	registry    *presence.Registry
	store       repository.IdentityStore
	broadcaster Broadcaster
	logger      zerolog.Logger

	// Held while taking a snapshot and queueing it, so broadcasts leave in
	// the order their snapshots were taken.
	snapshotMu sync.Mutex
}

func NewLifecycle(
	registry *presence.Registry,
	store repository.IdentityStore,
	broadcaster Broadcaster,
	logger zerolog.Logger,
) *Lifecycle {
	return &Lifecycle{
		registry:    registry,
		store:       store,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// Connect identifies c as claimedIdentity. An empty claim leaves c anonymous.
// If the user record cannot be ensured, c stays anonymous and receives an
// error frame.
func (l *Lifecycle) Connect(ctx context.Context, c Conn, claimedIdentity string) error {
	if claimedIdentity == "" {
		l.logger.Debug().Str(log.FieldConnID, c.ID()).Msg("anonymous connection")
		return nil
	}

	name, err := domain.NormalizeUsername(claimedIdentity)
	if err != nil {
		c.SendMessage(domain.NewErrorMessage(domain.ErrCodeUnauthorized, "Invalid identity"))
		return err
	}

	user, err := l.store.EnsureUser(ctx, name)
	if err != nil {
		audit.LogWithDetail(ctx, audit.ActionConnectFail, name, err.Error(), "user record unavailable")
		c.SendMessage(domain.NewErrorMessage(domain.ErrCodeInternalError, "Failed to load user"))
		return fmt.Errorf("failed to ensure user %q: %w", name, err)
	}

	c.Identify(user.Username)
	l.registry.Register(user.Username, c)

	audit.LogWithDetail(ctx, audit.ActionConnect, user.Username, c.ID(), "user connected")

	l.broadcastPresence()
	return nil
}

// Disconnect removes c from presence. Only identified connections trigger a
// presence broadcast; superseded or anonymous ones leave no trace.
func (l *Lifecycle) Disconnect(ctx context.Context, c Conn) {
	identity, ok := l.registry.Unregister(c)
	if !ok {
		l.logger.Debug().Str(log.FieldConnID, c.ID()).Msg("connection closed without presence entry")
		return
	}

	audit.LogWithDetail(ctx, audit.ActionDisconnect, identity, c.ID(), "user disconnected")

	l.broadcastPresence()
}

// Online returns the current presence snapshot.
func (l *Lifecycle) Online() []string {
	return l.registry.ListOnline()
}

// OnlineCount returns the number of online identities.
func (l *Lifecycle) OnlineCount() int {
	return l.registry.Len()
}

func (l *Lifecycle) broadcastPresence() {
	l.snapshotMu.Lock()
	defer l.snapshotMu.Unlock()

	users := l.registry.ListOnline()
	if err := l.broadcaster.Broadcast(domain.NewOnlineUsersMessage(users)); err != nil {
		l.logger.Error().Err(err).Msg("failed to broadcast presence")
		return
	}

	l.logger.Debug().Int(log.FieldOnline, len(users)).Msg("presence broadcast")
}
