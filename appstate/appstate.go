// Package appstate holds the console data the workflow writes into but does
// not own: databases, the activity log and user notifications.
package appstate

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/events"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Database is a persisted database record.
type Database struct {
	ID        string                   `json:"id"`
	Name      string                   `json:"name"`
	Engine    string                   `json:"engine"`
	Region    string                   `json:"region"`
	Status    assistant.ResourceStatus `json:"status"`
	Endpoint  string                   `json:"endpoint,omitempty"`
	Details   map[string]string        `json:"details,omitempty"`
	CreatedAt time.Time                `json:"created_at"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// DatabaseFromResource converts an in-flight resource into a record.
func DatabaseFromResource(r assistant.Resource) Database {
	cp := r.Clone()
	return Database{
		ID:       cp.ID,
		Name:     cp.Name,
		Engine:   cp.Type,
		Region:   cp.Region,
		Status:   cp.Status,
		Endpoint: cp.Endpoint,
		Details:  cp.Details,
	}
}

// Activity is an audit log entry.
type Activity struct {
	ID      string    `json:"id"`
	Action  string    `json:"action"`
	Target  string    `json:"target"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// NotificationType is the severity of a notification.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationInfo    NotificationType = "info"
	NotificationError   NotificationType = "error"
)

// Notification is a message pushed to the user.
type Notification struct {
	ID      string           `json:"id"`
	Type    NotificationType `json:"type"`
	Title   string           `json:"title"`
	Message string           `json:"message,omitempty"`
	At      time.Time        `json:"at"`
}

// Store receives discrete app state mutations.
type Store interface {
	UpsertDatabase(ctx context.Context, db Database) (Database, error)
	AppendActivity(ctx context.Context, a Activity) error
	PushNotification(ctx context.Context, n Notification) error
}

// Memory is an in-memory Store that publishes every mutation.
type Memory struct {
	mu            sync.RWMutex
	databases     map[string]Database
	activities    []Activity
	notifications []Notification
	publisher     events.Publisher
	logger        assistant.Logger
	now           func() time.Time
}

// Option configures a Memory store.
type Option func(*Memory)

// WithPublisher publishes mutations on events.TopicAppState.
func WithPublisher(p events.Publisher) Option {
	return func(m *Memory) {
		if p != nil {
			m.publisher = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger assistant.Logger) Option {
	return func(m *Memory) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemory creates an empty store.
func NewMemory(opts ...Option) *Memory {
	m := &Memory{
		databases: make(map[string]Database),
		publisher: events.NopPublisher,
		logger:    assistant.NewFmtLogger(nil),
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// UpsertDatabase inserts or replaces a record keyed by id, assigning one when empty.
func (m *Memory) UpsertDatabase(ctx context.Context, db Database) (Database, error) {
	if strings.TrimSpace(db.Name) == "" {
		return Database{}, errors.New("database name is required", errors.CategoryValidation).
			WithTextCode("INVALID_DATABASE")
	}
	now := m.now().UTC()

	m.mu.Lock()
	if db.ID == "" {
		db.ID = "db-" + uuid.NewString()[:8]
	}
	if prev, ok := m.databases[db.ID]; ok {
		db.CreatedAt = prev.CreatedAt
	} else {
		db.CreatedAt = now
	}
	db.UpdatedAt = now
	db.Details = copyDetails(db.Details)
	m.databases[db.ID] = db
	m.mu.Unlock()

	m.publish(ctx, events.TypeDatabaseUpdated, db)
	return db, nil
}

// AppendActivity adds an audit entry.
func (m *Memory) AppendActivity(ctx context.Context, a Activity) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.At.IsZero() {
		a.At = m.now().UTC()
	}
	m.mu.Lock()
	m.activities = append(m.activities, a)
	m.mu.Unlock()

	m.publish(ctx, events.TypeActivityAdded, a)
	return nil
}

// PushNotification adds a notification.
func (m *Memory) PushNotification(ctx context.Context, n Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Type == "" {
		n.Type = NotificationInfo
	}
	if n.At.IsZero() {
		n.At = m.now().UTC()
	}
	m.mu.Lock()
	m.notifications = append(m.notifications, n)
	m.mu.Unlock()

	m.publish(ctx, events.TypeNotification, n)
	return nil
}

// Databases lists records sorted by creation time.
func (m *Memory) Databases() []Database {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Database, 0, len(m.databases))
	for _, db := range m.databases {
		db.Details = copyDetails(db.Details)
		out = append(out, db)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Database returns the record with id.
func (m *Memory) Database(id string) (Database, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	db, ok := m.databases[id]
	db.Details = copyDetails(db.Details)
	return db, ok
}

// Activities returns the audit log oldest first.
func (m *Memory) Activities() []Activity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Activity(nil), m.activities...)
}

// Notifications returns notifications newest first.
func (m *Memory) Notifications() []Notification {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Notification, len(m.notifications))
	for i, n := range m.notifications {
		out[len(out)-1-i] = n
	}
	return out
}

func (m *Memory) publish(ctx context.Context, typ string, payload any) {
	env, err := events.NewEnvelope(typ, payload)
	if err != nil {
		m.logger.Warn("app state event not encoded type=%s err=%v", typ, err)
		return
	}
	if err := m.publisher.Publish(ctx, events.TopicAppState, env); err != nil {
		m.logger.Warn("app state event not published type=%s err=%v", typ, err)
	}
}

func copyDetails(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
