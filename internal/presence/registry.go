package presence

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Mirror reflects online/offline transitions into an external store so
// sibling instances can observe presence. The in-process registry stays
// authoritative for this instance.
type Mirror interface {
	SetOnline(ctx context.Context, userID string) error
	SetOffline(ctx context.Context, userID string) error
}

// Registry tracks which users have live connections. State is volatile:
// presence is a liveness signal, and reconnecting clients re-register after
// a restart.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]map[string]struct{} // userID -> set of connectionIDs
	byConn map[string]string              // connectionID -> userID

	mirror Mirror
	logger *zap.SugaredLogger
}

func NewRegistry(mirror Mirror, logger *zap.SugaredLogger) *Registry {
	return &Registry{
		byUser: make(map[string]map[string]struct{}),
		byConn: make(map[string]string),
		mirror: mirror,
		logger: logger,
	}
}

// Register records a connection for the user. The user goes online when this
// is their first live connection.
func (r *Registry) Register(userID, connID string) {
	r.mu.Lock()
	first := false
	if _, ok := r.byUser[userID]; !ok {
		r.byUser[userID] = make(map[string]struct{})
		first = true
	}
	r.byUser[userID][connID] = struct{}{}
	r.byConn[connID] = userID
	r.mu.Unlock()

	if first && r.mirror != nil {
		if err := r.mirror.SetOnline(context.Background(), userID); err != nil {
			r.logger.Warnw("presence mirror online", "userID", userID, "err", err)
		}
	}
}

// Unregister drops a connection. The user goes offline when their last
// connection is gone. Unknown connection ids are ignored.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	userID, ok := r.byConn[connID]
	var last bool
	if ok {
		delete(r.byConn, connID)
		if set, ok := r.byUser[userID]; ok {
			delete(set, connID)
			if len(set) == 0 {
				delete(r.byUser, userID)
				last = true
			}
		}
	}
	r.mu.Unlock()

	if last && r.mirror != nil {
		if err := r.mirror.SetOffline(context.Background(), userID); err != nil {
			r.logger.Warnw("presence mirror offline", "userID", userID, "err", err)
		}
	}
}

func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// OnlineUsers returns a snapshot of users with at least one connection.
func (r *Registry) OnlineUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byUser))
	for userID := range r.byUser {
		out = append(out, userID)
	}
	return out
}

// Connections returns how many live connections the user has.
func (r *Registry) Connections(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID])
}
