package events

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/weiawesome/wes-io-live/dm-service/internal/domain"
)

// MessageEvent is the record published for every persisted direct message.
// EventID is a ULID so consumers can dedupe and order replays.
type MessageEvent struct {
	EventID   string    `json:"event_id"`
	MessageID uint64    `json:"message_id"`
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	Msg       string    `json:"msg"`
	Timestamp time.Time `json:"timestamp"`
}

func NewMessageEvent(m *domain.Message) (*MessageEvent, error) {
	ts := m.CreatedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	id, err := ulid.New(ulid.Timestamp(ts), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate event id: %w", err)
	}

	return &MessageEvent{
		EventID:   id.String(),
		MessageID: m.ID,
		Sender:    m.Sender,
		Recipient: m.Recipient,
		Msg:       m.Body,
		Timestamp: m.CreatedAt,
	}, nil
}

// ConversationKey keys events so one conversation always lands on one
// partition, whichever side sent the message.
func ConversationKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

type MessagePublisher interface {
	PublishMessage(ctx context.Context, m *domain.Message) error
	Close() error
}
