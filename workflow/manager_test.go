package workflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/cron"
	"github.com/goliatone/go-assistant/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu   sync.Mutex
	envs []events.Envelope
}

func (c *capturePublisher) Publish(_ context.Context, topic string, env events.Envelope) error {
	if topic != events.TopicWorkflow {
		return nil
	}
	c.mu.Lock()
	c.envs = append(c.envs, env)
	c.mu.Unlock()
	return nil
}

func (c *capturePublisher) Types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.envs))
	for i, env := range c.envs {
		out[i] = env.Type
	}
	return out
}

func (c *capturePublisher) Last() events.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.envs[len(c.envs)-1]
}

func newTestManager(t *testing.T, opts ...ManagerOption) *Manager {
	t.Helper()
	opts = append([]ManagerOption{
		WithManagerLogger(assistant.NopLogger{}),
		WithSessionOptions(WithExecutorOptions(WithTimingScale(0))),
	}, opts...)
	m := NewManager(newTestRepository(t), opts...)
	t.Cleanup(func() { m.Close(context.Background()) })
	return m
}

func TestManagerCreateGetDelete(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	s, err := m.Create(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, []string{"Hi! What would you like to do?"}, s.Snapshot().Contents())

	got, err := m.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, m.Delete(ctx, s.ID()))
	assert.True(t, s.Store().Closed())
	assert.Equal(t, 0, m.Len())

	_, err = m.Get(s.ID())
	assert.True(t, assistant.HasCode(err, assistant.ErrCodeSessionNotFound))
	assert.True(t, assistant.HasCode(m.Delete(ctx, s.ID()), assistant.ErrCodeSessionNotFound))
}

func TestManagerCreateWithOption(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	s, err := m.Create(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, "demo-database", s.Snapshot().Path)
	assert.Equal(t, 1, s.Executor().Cursor())

	_, err = m.Create(ctx, "teleport")
	require.Error(t, err)
	assert.True(t, assistant.HasCode(err, assistant.ErrCodeScriptNotFound))
	assert.Equal(t, []string{s.ID()}, m.IDs(), "a failed create leaves nothing behind")
}

func TestManagerPublishesChanges(t *testing.T) {
	pub := &capturePublisher{}
	m := newTestManager(t, WithPublisher(pub))
	ctx := context.Background()

	s, err := m.Create(ctx, "two")
	require.NoError(t, err)

	last := pub.Last()
	assert.Equal(t, events.TypeWorkflowChanged, last.Type)
	assert.Equal(t, s.ID(), last.SessionID)
	assert.Equal(t, s.Store().Version(), last.Version)

	var change events.WorkflowChange
	require.NoError(t, last.Decode(&change))
	assert.True(t, change.Active)
	assert.Equal(t, assistant.ViewChat, change.View)
	assert.Contains(t, change.Kinds, string(ChangeMessage))

	require.NoError(t, m.Delete(ctx, s.ID()))
	closed := pub.Last()
	assert.Equal(t, events.TypeSessionClosed, closed.Type)
	assert.Equal(t, s.ID(), closed.SessionID)

	for _, typ := range pub.Types()[:len(pub.Types())-1] {
		assert.Equal(t, events.TypeWorkflowChanged, typ)
	}
}

func TestManagerSweepClosesIdleSessions(t *testing.T) {
	clock := newFakeClock()
	m := newTestManager(t, WithManagerClock(clock.Now), WithIdleTTL(30*time.Minute))
	ctx := context.Background()

	idle, err := m.Create(ctx, "")
	require.NoError(t, err)
	busy, err := m.Create(ctx, "")
	require.NoError(t, err)

	clock.Add(20 * time.Minute)
	busy.SetFormValue("name", "orders")
	clock.Add(20 * time.Minute)

	assert.Equal(t, 1, m.Sweep(ctx))
	assert.Equal(t, []string{busy.ID()}, m.IDs())
	assert.True(t, idle.Store().Closed())
	assert.False(t, busy.Store().Closed())

	assert.Equal(t, 0, m.Sweep(ctx))
}

func TestManagerSchedule(t *testing.T) {
	scheduler := cron.NewScheduler(cron.WithLogger(assistant.NopLogger{}))
	m := newTestManager(t)

	handle, err := m.Schedule(scheduler, "@every 1m")
	require.NoError(t, err)
	assert.Equal(t, "session-sweep", handle.Name())
	assert.Equal(t, 1, scheduler.Len())
	handle.Cancel()

	_, err = m.Schedule(scheduler, "not a cron expression")
	assert.Error(t, err)
}
