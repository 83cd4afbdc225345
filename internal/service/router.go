package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/weiawesome/wes-io-live/dm-service/internal/domain"
	"github.com/weiawesome/wes-io-live/dm-service/internal/presence"
	"github.com/weiawesome/wes-io-live/dm-service/internal/repository"
	"github.com/weiawesome/wes-io-live/dm-service/pkg/log"
)

// Router persists direct messages and forwards them to whichever of the two
// participants is online.
type Router struct {
	registry *presence.Registry
	store    repository.IdentityStore
	logger   zerolog.Logger

	sinksMu sync.RWMutex
	sinks   []MessageSink
}

func NewRouter(
	registry *presence.Registry,
	store repository.IdentityStore,
	logger zerolog.Logger,
	sinks ...MessageSink,
) *Router {
	return &Router{
		registry: registry,
		store:    store,
		logger:   logger,
		sinks:    sinks,
	}
}

// AddSink registers a sink notified after every successful Route.
func (r *Router) AddSink(s MessageSink) {
	r.sinksMu.Lock()
	defer r.sinksMu.Unlock()
	r.sinks = append(r.sinks, s)
}

// Route stores body as a message from sender to recipient and delivers it to
// the live connections of both. Nothing is delivered unless the message was
// stored. A message to oneself is delivered once.
func (r *Router) Route(ctx context.Context, sender, recipient, body string) (*domain.Message, error) {
	if err := domain.ValidateBody(body); err != nil {
		return nil, err
	}

	from, err := r.findUser(ctx, sender)
	if err != nil {
		return nil, err
	}
	to, err := r.findUser(ctx, recipient)
	if err != nil {
		return nil, err
	}

	msg, err := r.store.AppendMessage(ctx, from, to, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	frame := domain.NewPrivateMessageOut(msg)

	r.deliver(msg.Sender, frame)
	if msg.Recipient != msg.Sender {
		r.deliver(msg.Recipient, frame)
	}

	r.sinksMu.RLock()
	sinks := r.sinks
	r.sinksMu.RUnlock()
	for _, s := range sinks {
		s.MessagePersisted(ctx, msg)
	}

	return msg, nil
}

func (r *Router) findUser(ctx context.Context, name string) (*domain.User, error) {
	user, err := r.store.FindUser(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownUser, name)
		}
		return nil, fmt.Errorf("failed to find user %q: %w", name, err)
	}
	return user, nil
}

// deliver is best effort; an offline or closed connection still has the
// message in history.
func (r *Router) deliver(identity string, frame *domain.PrivateMessageOut) {
	c, ok := r.registry.Lookup(identity)
	if !ok {
		return
	}
	if err := c.SendMessage(frame); err != nil {
		r.logger.Warn().
			Err(err).
			Str(log.FieldUsername, identity).
			Str(log.FieldConnID, c.ID()).
			Msg("failed to deliver message")
	}
}
