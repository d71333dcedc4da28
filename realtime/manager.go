// Package realtime owns the push channel carrying change events from the
// remote store. One multiplexed subscription is shared per session;
// components register handlers against it instead of opening their own
// channels, which avoids unsubscribe/resubscribe storms during navigation.
package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"boardsync/domain"
)

// Handler receives change events. Handlers are invoked one at a time from
// the dispatch goroutine and must be fast: queue work, don't compute.
type Handler func(domain.ChangeEvent)

type registration struct {
	table   domain.Table
	filter  string
	handler Handler
}

// Manager multiplexes a single pub/sub channel across any number of
// registered handlers.
type Manager struct {
	rc      *redis.Client
	channel string
	logger  *log.Logger

	mu       sync.Mutex
	handlers map[uint64]registration
	nextID   uint64

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a manager reading events from the given channel.
func NewManager(rc *redis.Client, channel string, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Manager{
		rc:       rc,
		channel:  channel,
		logger:   logger,
		handlers: make(map[uint64]registration),
	}
}

// Start begins consuming the channel. It returns immediately; consumption
// runs until Close or context cancellation, reconnecting on channel loss.
func (m *Manager) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.run(ctx)
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.done)
	for {
		sub := m.rc.Subscribe(ctx, m.channel)
		ch := sub.Channel()
	consume:
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break consume
				}
				var ev domain.ChangeEvent
				if err := sonic.ConfigStd.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					m.logger.Errorf("realtime: unable to parse event: %v", err)
					continue
				}
				m.dispatch(ev)
			}
		}
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		m.logger.Error("realtime: pubsub channel closed, reconnecting")
		time.Sleep(time.Second)
	}
}

func (m *Manager) dispatch(ev domain.ChangeEvent) {
	m.mu.Lock()
	matched := make([]Handler, 0, len(m.handlers))
	for _, reg := range m.handlers {
		if reg.table != ev.Table {
			continue
		}
		if !ev.Matches(reg.filter) {
			continue
		}
		matched = append(matched, reg.handler)
	}
	m.mu.Unlock()
	for _, h := range matched {
		h(ev)
	}
}

// Register adds a handler for events of the given table inside the filter
// scope. The returned function deregisters the handler; the underlying
// channel stays up either way.
func (m *Manager) Register(table domain.Table, filter string, handler func(domain.ChangeEvent)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.handlers[id] = registration{table: table, filter: filter, handler: handler}
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.handlers, id)
		m.mu.Unlock()
	}
}

// HandlerCount returns the number of live registrations.
func (m *Manager) HandlerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers)
}

// Publish sends an event into the channel. The production feed is written
// by the backend; this is used by tests and local tooling.
func (m *Manager) Publish(ctx context.Context, ev domain.ChangeEvent) error {
	data, err := sonic.ConfigStd.Marshal(ev)
	if err != nil {
		return err
	}
	return m.rc.Publish(ctx, m.channel, data).Err()
}

// Close tears the channel down. Meant for sign-out, not navigation.
func (m *Manager) Close() {
	if m.cancel != nil {
		m.cancel()
	}
	if m.done != nil {
		<-m.done
	}
}
