package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-live/dm-service/internal/domain"
)

type stubPublisher struct {
	published []*domain.Message
	err       error
}

func (p *stubPublisher) PublishMessage(_ context.Context, m *domain.Message) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, m)
	return nil
}

func (p *stubPublisher) Close() error { return nil }

func TestConversationKey_IsSymmetric(t *testing.T) {
	require.Equal(t, ConversationKey("alice", "bob"), ConversationKey("bob", "alice"))
	require.Equal(t, "alice:alice", ConversationKey("alice", "alice"))
}

func TestNewMessageEvent(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ev, err := NewMessageEvent(&domain.Message{ID: 7, Sender: "alice", Recipient: "bob", Body: "hi", CreatedAt: ts})
	require.NoError(t, err)

	id, err := ulid.Parse(ev.EventID)
	require.NoError(t, err)
	require.Equal(t, ulid.Timestamp(ts), id.Time())

	other, err := NewMessageEvent(&domain.Message{ID: 7, CreatedAt: ts})
	require.NoError(t, err)
	require.NotEqual(t, ev.EventID, other.EventID)

	require.Equal(t, uint64(7), ev.MessageID)
	require.Equal(t, "alice", ev.Sender)
	require.Equal(t, "bob", ev.Recipient)
	require.Equal(t, "hi", ev.Msg)
	require.Equal(t, ts, ev.Timestamp)
}

func TestSink_SwallowsPublishErrors(t *testing.T) {
	pub := &stubPublisher{}
	sink := NewSink(pub, zerolog.Nop())
	msg := &domain.Message{ID: 1, Sender: "alice", Recipient: "bob", Body: "hi"}

	sink.MessagePersisted(context.Background(), msg)
	require.Len(t, pub.published, 1)

	pub.err = errors.New("broker unavailable")
	require.NotPanics(t, func() { sink.MessagePersisted(context.Background(), msg) })
	require.Len(t, pub.published, 1)
}
