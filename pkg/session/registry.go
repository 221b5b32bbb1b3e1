package session

import (
	"sort"
	"sync"
	"time"

	"github.com/ccmonitor/server/pkg/monitor"
)

// Info is a live session's externally visible state: what GET /sessions
// reports, and what Coordinator updates as resize events arrive.
type Info struct {
	ID          string
	ComputerID  int64
	CommonName  string
	Size        monitor.Size
	ConnectedAt time.Time
}

// Registry is the process-wide directory of live sessions. It has no
// analogue in the session protocol itself — spec.md never asks for one —
// but it's the natural complement to a long-running server: an operator
// needs some way to see what's connected.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Info
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Info)}
}

// Add registers a newly handshaked session.
func (r *Registry) Add(info *Info) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[info.ID] = info
}

// Remove drops a session once its Coordinator exits.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// UpdateSize reflects an inbound resize event in the registry entry. A
// no-op if the session has already been removed.
func (r *Registry) UpdateSize(id string, size monitor.Size) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if info, ok := r.sessions[id]; ok {
		info.Size = size
	}
}

// List returns a snapshot of all live sessions, oldest connection first.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Info, 0, len(r.sessions))
	for _, info := range r.sessions {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ConnectedAt.Before(out[j].ConnectedAt)
	})
	return out
}
