// Package stream pushes counseling session events to browsers over WebSocket.
package stream

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// Conn is the part of a WebSocket connection the registry needs.
type Conn interface {
	Close(code websocket.StatusCode, reason string) error
}

// Registry tracks one live connection per user and tab.
type Registry struct {
	mu     sync.RWMutex
	active map[string]map[string]Conn
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		active: make(map[string]map[string]Conn),
		logger: logger,
	}
}

// Get returns the live connection for a user and tab.
func (r *Registry) Get(userID, tabID string) Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if tabs, ok := r.active[userID]; ok {
		return tabs[tabID]
	}
	return nil
}

// Register records conn for a user and tab, closing any connection it replaces.
func (r *Registry) Register(userID, tabID string, conn Conn) {
	r.mu.Lock()
	if _, exists := r.active[userID]; !exists {
		r.active[userID] = make(map[string]Conn)
	}
	existing := r.active[userID][tabID]
	r.active[userID][tabID] = conn
	r.mu.Unlock()

	r.logger.Info("Stream connection registered", "user_id", userID, "tab_id", tabID)
	// The close handshake can block, so it runs outside the lock.
	if existing != nil && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "connection replaced")
	}
}

// Unregister removes conn if it is still the live connection for its slot.
func (r *Registry) Unregister(userID, tabID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tabs, ok := r.active[userID]; ok {
		if current, exists := tabs[tabID]; exists && current == conn {
			delete(tabs, tabID)
			if len(tabs) == 0 {
				delete(r.active, userID)
			}
			r.logger.Info("Stream connection unregistered", "user_id", userID, "tab_id", tabID)
		}
	}
}

// CloseUser closes every connection of a user.
func (r *Registry) CloseUser(userID string) {
	r.mu.Lock()
	tabs, ok := r.active[userID]
	delete(r.active, userID)
	r.mu.Unlock()

	if !ok {
		return
	}
	for tab, conn := range tabs {
		_ = conn.Close(websocket.StatusNormalClosure, "user signed out")
		r.logger.Info("Stream connection closed", "user_id", userID, "tab_id", tab)
	}
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, tabs := range r.active {
		n += len(tabs)
	}
	return n
}
