package voice

import (
	"sync"

	"go.uber.org/zap"
)

// Registry is the process-wide table of active call sessions, keyed by call
// SID. It holds non-owning references: each session is owned by the
// goroutine driving its lifecycle, and the registry is for lookup and
// operational monitoring only.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	logger *zap.Logger
}

// NewRegistry creates an empty session registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		logger:   logger,
	}
}

// Register adds a session. Call SIDs are unique process-wide; registering an
// existing SID is a logic error and never silently overwrites.
func (r *Registry) Register(session *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.CallSID]; ok {
		return ErrDuplicateSession
	}
	r.sessions[session.CallSID] = session
	r.logger.Info("session registered",
		zap.String("callSid", session.CallSID), zap.String("shopId", session.ShopID),
		zap.Int("active", len(r.sessions)))
	return nil
}

// Get looks up an active session.
func (r *Registry) Get(callSID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[callSID]
	return session, ok
}

// Unregister removes a session. Removing an absent SID is a no-op.
func (r *Registry) Unregister(callSID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[callSID]; !ok {
		return
	}
	delete(r.sessions, callSID)
	r.logger.Info("session unregistered",
		zap.String("callSid", callSID), zap.Int("active", len(r.sessions)))
}

// Count reports the number of active sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// StopAll ends every active session. Used on shutdown; sessions unregister
// themselves during teardown, so the snapshot is taken before stopping.
func (r *Registry) StopAll() {
	r.mu.RLock()
	snapshot := make([]*Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		snapshot = append(snapshot, session)
	}
	r.mu.RUnlock()

	for _, session := range snapshot {
		session.Stop()
	}
}

// ListByShop groups active call SIDs by shop for monitoring.
func (r *Registry) ListByShop() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string][]string)
	for callSID, session := range r.sessions {
		out[session.ShopID] = append(out[session.ShopID], callSID)
	}
	return out
}
