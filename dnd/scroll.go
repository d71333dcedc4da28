package dnd

import "sync"

// ScrollHost abstracts the document body: the engine is headless, so the
// embedding layer supplies the actual scroll manipulation.
type ScrollHost interface {
	// ScrollPosition returns the current scroll offset.
	ScrollPosition() Point
	// SetLocked freezes or unfreezes scrolling. restore is the offset to
	// return to when unlocking.
	SetLocked(locked bool, restore Point)
}

// ScrollLock guards the body scroll with a reference count so nested drags
// stay safe: the first acquire locks, the last release restores the prior
// scroll position.
type ScrollLock struct {
	mu    sync.Mutex
	host  ScrollHost
	count int
	saved Point
}

// NewScrollLock creates a lock over the given host.
func NewScrollLock(host ScrollHost) *ScrollLock {
	return &ScrollLock{host: host}
}

// Acquire locks scrolling, saving the current position on the first hold.
func (l *ScrollLock) Acquire() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.count++
	if l.count == 1 && l.host != nil {
		l.saved = l.host.ScrollPosition()
		l.host.SetLocked(true, Point{})
	}
}

// Release drops one hold; the last release unlocks and restores the scroll
// position saved at the first acquire. Releasing an unheld lock is a no-op.
func (l *ScrollLock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.count == 0 {
		return
	}
	l.count--
	if l.count == 0 && l.host != nil {
		l.host.SetLocked(false, l.saved)
	}
}

// Held returns the current hold count.
func (l *ScrollLock) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}
