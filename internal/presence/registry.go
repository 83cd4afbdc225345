// Package presence tracks which users hold a live connection.
package presence

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/weiawesome/wes-io-live/dm-service/internal/domain"
	"github.com/weiawesome/wes-io-live/dm-service/pkg/log"
)

// Conn is a live connection handle owned by the transport layer.
// The registry only references it and never closes it.
type Conn interface {
	ID() string
	SendMessage(message interface{}) error
}

// Registry is the bidirectional identity <-> connection mapping.
// Every forward entry has exactly one inverse entry pointing back to it.
type Registry struct {
	byUser map[string]Conn   // username -> connection
	byConn map[string]string // connection ID -> username
	mu     sync.RWMutex
	logger zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		byUser: make(map[string]Conn),
		byConn: make(map[string]string),
		logger: logger,
	}
}

// Register maps identity to c. A previous connection for the same identity
// is superseded: its inverse entry is dropped but the connection stays open.
func (r *Registry) Register(identity string, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	connID := c.ID()

	if old, ok := r.byUser[identity]; ok && old.ID() != connID {
		switch owner, ok := r.byConn[old.ID()]; {
		case !ok:
			r.inconsistent("forward entry without inverse entry", identity, old.ID())
		case owner != identity:
			r.inconsistent("forward entry points at a connection owned by another user", identity, old.ID())
		default:
			delete(r.byConn, old.ID())
		}
		r.logger.Info().
			Str(log.FieldUsername, identity).
			Str("superseded_conn_id", old.ID()).
			Str(log.FieldConnID, connID).
			Msg("connection superseded")
	}

	// The same handle re-registering under a new name releases its old name.
	if prev, ok := r.byConn[connID]; ok && prev != identity {
		if cur, ok := r.byUser[prev]; ok && cur.ID() == connID {
			delete(r.byUser, prev)
		}
	}

	r.byUser[identity] = c
	r.byConn[connID] = identity
}

// Unregister removes the entry for c. The forward entry is only removed if it
// still points at c, so a superseded connection closing late cannot take a
// newer connection offline. It reports the identity that was removed, or false
// if c was never registered or was already removed.
func (r *Registry) Unregister(c Conn) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	connID := c.ID()
	identity, ok := r.byConn[connID]
	if !ok {
		return "", false
	}
	delete(r.byConn, connID)

	cur, ok := r.byUser[identity]
	switch {
	case !ok:
		r.inconsistent("inverse entry without forward entry", identity, connID)
	case cur.ID() == connID:
		delete(r.byUser, identity)
	default:
		r.inconsistent("inverse entry for a superseded connection", identity, connID)
		if r.byConn[cur.ID()] != identity {
			delete(r.byUser, identity)
		}
	}

	return identity, true
}

// Lookup returns the live connection for identity.
func (r *Registry) Lookup(identity string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byUser[identity]
	return c, ok
}

// ListOnline returns a snapshot of online identities. The slice is sorted for
// stable output, but callers should treat it as a set.
func (r *Registry) ListOnline() []string {
	r.mu.RLock()
	users := make([]string, 0, len(r.byUser))
	for u := range r.byUser {
		users = append(users, u)
	}
	r.mu.RUnlock()

	sort.Strings(users)
	return users
}

// Len returns the number of online identities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

// inconsistent logs an invariant violation. Callers hold the write lock and
// discard the offending entries themselves.
func (r *Registry) inconsistent(reason, identity, connID string) {
	r.logger.Error().
		Err(domain.ErrRegistryInconsistency).
		Str(log.FieldUsername, identity).
		Str(log.FieldConnID, connID).
		Msg(reason)
}
