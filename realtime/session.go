package realtime

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// The session-wide manager is process-global state with explicit lifecycle:
// established at sign-in, torn down at sign-out. Views register and
// deregister handlers against it without ever owning the channel.

var (
	sessionMu      sync.Mutex
	sessionManager *Manager
)

// Establish starts the session channel. Calling Establish while a session is
// live tears the previous one down first.
func Establish(ctx context.Context, rc *redis.Client, channel string, logger *log.Logger) *Manager {
	sessionMu.Lock()
	defer sessionMu.Unlock()
	if sessionManager != nil {
		sessionManager.Close()
	}
	sessionManager = NewManager(rc, channel, logger)
	sessionManager.Start(ctx)
	return sessionManager
}

// Session returns the live session manager, or nil when signed out.
func Session() *Manager {
	sessionMu.Lock()
	defer sessionMu.Unlock()
	return sessionManager
}

// SignOut tears the session channel down.
func SignOut() {
	sessionMu.Lock()
	defer sessionMu.Unlock()
	if sessionManager != nil {
		sessionManager.Close()
		sessionManager = nil
	}
}
