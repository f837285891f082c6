package workflow

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/cron"
	"github.com/goliatone/go-assistant/events"
	"github.com/google/uuid"
)

// DefaultIdleTTL is how long a session may sit unused before Sweep closes it.
const DefaultIdleTTL = 30 * time.Minute

// Manager owns the live sessions and publishes their changes.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	scripts   Scripts
	publisher events.Publisher
	idleTTL   time.Duration
	now       func() time.Time
	logger    assistant.Logger
	opts      []SessionOption
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithPublisher publishes workflow changes on events.TopicWorkflow.
func WithPublisher(p events.Publisher) ManagerOption {
	return func(m *Manager) {
		if p != nil {
			m.publisher = p
		}
	}
}

// WithIdleTTL sets the idle timeout used by Sweep.
func WithIdleTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		if ttl > 0 {
			m.idleTTL = ttl
		}
	}
}

// WithManagerClock overrides time.Now.
func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithManagerLogger sets the logger, also handed to new sessions.
func WithManagerLogger(logger assistant.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithSessionOptions applies opts to every session the manager creates.
func WithSessionOptions(opts ...SessionOption) ManagerOption {
	return func(m *Manager) {
		m.opts = append(m.opts, opts...)
	}
}

// NewManager creates a manager over the script repository.
func NewManager(scripts Scripts, opts ...ManagerOption) *Manager {
	m := &Manager{
		sessions:  make(map[string]*Session),
		scripts:   scripts,
		publisher: events.NopPublisher,
		idleTTL:   DefaultIdleTTL,
		now:       time.Now,
		logger:    assistant.NewFmtLogger(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Create opens a session. With an option the matching script is started;
// without one the session shows the opening response.
func (m *Manager) Create(ctx context.Context, option string) (*Session, error) {
	id := uuid.NewString()
	var session *Session
	opts := append([]SessionOption{
		WithSessionLogger(m.logger),
		WithSessionClock(m.now),
	}, m.opts...)
	opts = append(opts,
		WithSessionID(id),
		WithChangeListener(func(ch Change) {
			m.publishChange(id, session, ch)
		}),
	)
	session = NewSession(m.scripts, opts...)

	m.mu.Lock()
	m.sessions[id] = session
	m.mu.Unlock()

	if option == "" {
		session.Open()
		return session, nil
	}
	if _, err := session.Start(ctx, option); err != nil {
		m.Delete(ctx, id)
		return nil, err
	}
	return session, nil
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, assistant.NewError(assistant.ErrSessionNotFound, "", nil, map[string]any{"session_id": id})
}

// Delete closes and forgets a session.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return assistant.NewError(assistant.ErrSessionNotFound, "", nil, map[string]any{"session_id": id})
	}

	s.Close()
	env, err := events.NewEnvelope(events.TypeSessionClosed, nil)
	if err != nil {
		return err
	}
	env.SessionID = id
	if err := m.publisher.Publish(ctx, events.TopicWorkflow, env); err != nil {
		m.logger.Warn("failed to publish session close session_id=%s error=%v", id, err)
	}
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// IDs returns the sorted live session ids.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Sweep closes sessions idle for longer than the idle TTL and returns how
// many were closed.
func (m *Manager) Sweep(ctx context.Context) int {
	cutoff := m.now().Add(-m.idleTTL)
	m.mu.RLock()
	var idle []string
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			idle = append(idle, id)
		}
	}
	m.mu.RUnlock()

	closed := 0
	for _, id := range idle {
		if err := m.Delete(ctx, id); err == nil {
			closed++
		}
	}
	if closed > 0 {
		m.logger.Info("swept idle sessions count=%d", closed)
	}
	return closed
}

// Schedule runs Sweep on the cron expression.
func (m *Manager) Schedule(scheduler *cron.Scheduler, expression string) (cron.Handle, error) {
	return scheduler.ScheduleCron(cron.JobConfig{
		Name:       "session-sweep",
		Expression: expression,
	}, func(ctx context.Context) error {
		m.Sweep(ctx)
		return nil
	})
}

// Close closes every session.
func (m *Manager) Close(ctx context.Context) {
	for _, id := range m.IDs() {
		m.Delete(ctx, id)
	}
}

func (m *Manager) publishChange(id string, s *Session, ch Change) {
	payload := events.WorkflowChange{Kinds: make([]string, len(ch.Kinds))}
	for i, k := range ch.Kinds {
		payload.Kinds[i] = string(k)
	}
	if s != nil {
		payload.View = s.store.View()
		payload.Active = s.store.Active()
	}

	env, err := events.NewEnvelope(events.TypeWorkflowChanged, payload)
	if err != nil {
		m.logger.Error("failed to build workflow envelope session_id=%s error=%v", id, err)
		return
	}
	env.SessionID = id
	env.Version = ch.Version
	if err := m.publisher.Publish(context.Background(), events.TopicWorkflow, env); err != nil {
		m.logger.Warn("failed to publish workflow change session_id=%s error=%v", id, err)
	}
}
