package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/weiawesome/wes-io-live/dm-service/internal/cache"
	"github.com/weiawesome/wes-io-live/dm-service/internal/domain"
	"github.com/weiawesome/wes-io-live/dm-service/internal/repository"
)

var errStoreDown = errors.New("store down")

type fakeStore struct {
	mu       sync.Mutex
	users    map[string]*domain.User
	messages []domain.Message
	nextID   uint64

	failEnsure bool
	failAppend bool
	appends    int
	histories  int
}

func newFakeStore(names ...string) *fakeStore {
	s := &fakeStore{users: make(map[string]*domain.User)}
	for _, n := range names {
		s.CreateUser(context.Background(), n)
	}
	return s
}

func (s *fakeStore) FindUser(_ context.Context, name string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[name]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *fakeStore) CreateUser(_ context.Context, name string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	u := &domain.User{ID: s.nextID, Username: name, CreatedAt: time.Now().UTC()}
	s.users[name] = u
	cp := *u
	return &cp, nil
}

func (s *fakeStore) EnsureUser(ctx context.Context, name string) (*domain.User, error) {
	if s.failEnsure {
		return nil, errStoreDown
	}
	if u, err := s.FindUser(ctx, name); err == nil {
		return u, nil
	}
	return s.CreateUser(ctx, name)
}

func (s *fakeStore) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *fakeStore) AppendMessage(_ context.Context, sender, recipient *domain.User, body string) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAppend {
		return nil, errStoreDown
	}
	s.appends++
	m := domain.Message{
		ID:         uint64(len(s.messages) + 1),
		SenderID:   sender.ID,
		ReceiverID: recipient.ID,
		Sender:     sender.Username,
		Recipient:  recipient.Username,
		Body:       body,
		CreatedAt:  time.Now().UTC(),
	}
	s.messages = append(s.messages, m)
	return &m, nil
}

func (s *fakeStore) History(_ context.Context, a, b uint64, limit int) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.histories++
	var out []domain.Message
	for _, m := range s.messages {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type fakeConn struct {
	id string

	mu       sync.Mutex
	username string
	frames   []interface{}
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) SendMessage(message interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, message)
	return nil
}

func (c *fakeConn) Identify(username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.username = username
}

func (c *fakeConn) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

func (c *fakeConn) privateMessages() []*domain.PrivateMessageOut {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*domain.PrivateMessageOut
	for _, f := range c.frames {
		if m, ok := f.(*domain.PrivateMessageOut); ok {
			out = append(out, m)
		}
	}
	return out
}

func (c *fakeConn) errorFrames() []*domain.ErrorMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*domain.ErrorMessage
	for _, f := range c.frames {
		if m, ok := f.(*domain.ErrorMessage); ok {
			out = append(out, m)
		}
	}
	return out
}

// fakeBroadcaster delivers synchronously to every attached connection.
type fakeBroadcaster struct {
	mu        sync.Mutex
	conns     []*fakeConn
	snapshots [][]string
}

func (b *fakeBroadcaster) attach(c *fakeConn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conns = append(b.conns, c)
}

func (b *fakeBroadcaster) Broadcast(message interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := message.(*domain.OnlineUsersMessage); ok {
		b.snapshots = append(b.snapshots, m.Users)
	}
	for _, c := range b.conns {
		c.SendMessage(message)
	}
	return nil
}

func (b *fakeBroadcaster) last() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.snapshots) == 0 {
		return nil
	}
	return b.snapshots[len(b.snapshots)-1]
}

func (b *fakeBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.snapshots)
}

type recordingSink struct {
	mu       sync.Mutex
	messages []*domain.Message
}

func (s *recordingSink) MessagePersisted(_ context.Context, m *domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
}

type fakeCache struct {
	mu          sync.Mutex
	entries     map[string]*cache.HistoryCacheResult
	gets        int
	invalidated int
	failGet     bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*cache.HistoryCacheResult)}
}

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "\x00" + b + "|"
}

func (c *fakeCache) Get(_ context.Context, a, b string, limit int) (*cache.HistoryCacheResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.failGet {
		return nil, errStoreDown
	}
	r, ok := c.entries[pairKey(a, b)+strconv.Itoa(limit)]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return r, nil
}

func (c *fakeCache) Set(_ context.Context, a, b string, limit int, r *cache.HistoryCacheResult, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[pairKey(a, b)+strconv.Itoa(limit)] = r
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, a, b string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	prefix := pairKey(a, b)
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

func (c *fakeCache) Close() error { return nil }
