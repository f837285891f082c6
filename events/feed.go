package events

import (
	"context"
	"sync"
)

// Feed keeps the latest workflow envelope per session so HTTP clients can
// long-poll for changes newer than the version they already hold.
type Feed struct {
	mu      sync.Mutex
	latest  map[string]Envelope
	waiters map[string][]chan struct{}
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{
		latest:  make(map[string]Envelope),
		waiters: make(map[string][]chan struct{}),
	}
}

// Attach consumes TopicWorkflow from bus.
func (f *Feed) Attach(bus *Bus) {
	bus.AddHandler("workflow-feed", TopicWorkflow, func(_ context.Context, env Envelope) error {
		f.Record(env)
		return nil
	})
}

// Record stores env and wakes waiters of its session.
func (f *Feed) Record(env Envelope) {
	if env.SessionID == "" {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if env.Type == TypeSessionClosed {
		delete(f.latest, env.SessionID)
	} else if cur, ok := f.latest[env.SessionID]; !ok || env.Version >= cur.Version {
		f.latest[env.SessionID] = env
	}
	for _, ch := range f.waiters[env.SessionID] {
		close(ch)
	}
	delete(f.waiters, env.SessionID)
}

// Latest returns the newest envelope recorded for session.
func (f *Feed) Latest(session string) (Envelope, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	env, ok := f.latest[session]
	return env, ok
}

// Wait blocks until session has a version greater than after or ctx is done.
func (f *Feed) Wait(ctx context.Context, session string, after uint64) (Envelope, error) {
	for {
		f.mu.Lock()
		if env, ok := f.latest[session]; ok && env.Version > after {
			f.mu.Unlock()
			return env, nil
		}
		ch := make(chan struct{})
		f.waiters[session] = append(f.waiters[session], ch)
		f.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return Envelope{}, ctx.Err()
		}
	}
}
