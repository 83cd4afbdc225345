package service

import (
	"context"

	"github.com/weiawesome/wes-io-live/dm-service/internal/domain"
	"github.com/weiawesome/wes-io-live/dm-service/internal/presence"
)

// Conn is a connection handle as the lifecycle sees it: a presence handle
// that also remembers which identity it was bound to.
type Conn interface {
	presence.Conn
	Identify(username string)
	Username() string
}

// Broadcaster fans a frame out to every live connection, anonymous ones
// included.
type Broadcaster interface {
	Broadcast(message interface{}) error
}

// MessageSink is notified after a message has been persisted and delivered.
// Implementations must not block for long; errors are theirs to log.
type MessageSink interface {
	MessagePersisted(ctx context.Context, m *domain.Message)
}
