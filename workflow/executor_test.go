package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/script"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutorTwoStepScenario(t *testing.T) {
	repo := newTestRepository(t)
	sleeper := &recordingSleeper{}
	store, exec := bind(t, repo, "two-step", WithSleeper(sleeper))
	ctx := context.Background()

	first, err := exec.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, first.Outcome)
	assert.Equal(t, 0, first.Cursor)

	sec, _ := store.Snapshot().Section("cluster")
	assert.Equal(t, assistant.StatusInProgress, sec.Status)

	second, err := exec.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Cursor)

	snap := store.Snapshot()
	assert.Equal(t, []string{"A", "B"}, snap.Contents())
	sec, _ = snap.Section("cluster")
	assert.Equal(t, assistant.StatusSuccess, sec.Status)
	assert.Equal(t, "us-east-1", sec.Values["Region"])
	assert.Equal(t, 1, snap.Progress)
	assert.False(t, snap.Typing)
	assert.Equal(t, []time.Duration{100 * time.Millisecond}, sleeper.Delays())

	third, err := exec.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeExhausted, third.Outcome)
	assert.Equal(t, 2, exec.Cursor())
	assert.False(t, exec.Locked())
	assert.False(t, store.Snapshot().Typing)
	assert.Len(t, store.Snapshot().Messages, 2)
}

func TestExecutorTwoStepScenarioWithRealTimer(t *testing.T) {
	repo := newTestRepository(t)
	store, exec := bind(t, repo, "two-step")

	start := time.Now()
	for i := 0; i < 2; i++ {
		res, err := exec.Advance(context.Background())
		require.NoError(t, err)
		require.True(t, res.Applied())
	}
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, []string{"A", "B"}, store.Snapshot().Contents())
}

func TestExecutorAppliesEffectsInFixedOrder(t *testing.T) {
	repo := newTestRepository(t)
	var seen [][]ChangeKind
	store, exec := bind(t, repo, "demo-database", WithSleeper(&recordingSleeper{}))
	store.Subscribe(func(ch Change) { seen = append(seen, ch.Kinds) })

	for i := 0; i < 4; i++ {
		_, err := exec.Advance(context.Background())
		require.NoError(t, err)
	}

	snap := store.Snapshot()
	assert.Equal(t, "demo-database", snap.Branch)
	assert.Equal(t, assistant.ViewReview, snap.View)
	assert.True(t, snap.SidePanelOpen)
	require.NotNil(t, snap.Resource)
	assert.Equal(t, "orders", snap.Resource.Name)

	storage, _ := snap.Section("storage")
	assert.Equal(t, assistant.StatusSuccess, storage.Status)
	security, _ := snap.Section("security")
	assert.Equal(t, assistant.StatusInProgress, security.Status)

	// the review step commits as one batch; the side panel was already open
	last := seen[len(seen)-1]
	assert.Equal(t, []ChangeKind{ChangeView, ChangeResource, ChangeTyping, ChangeMessage, ChangeSuggestions}, last)

	msg, _ := snap.LastMessage()
	assert.True(t, msg.RequiresConfirmation)
	assert.Empty(t, snap.Suggestions, "a step without suggestions clears them")
}

func TestExecutorAdvanceWhileLockedIsNoOp(t *testing.T) {
	repo := newTestRepository(t)
	gate := newGateSleeper()
	store, exec := bind(t, repo, "two-step", WithSleeper(gate))

	done := make(chan Result, 1)
	go func() {
		res, _ := exec.Advance(context.Background())
		done <- res
	}()
	<-gate.entered

	before := store.Snapshot()
	res, err := exec.Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeLocked, res.Outcome)
	assert.True(t, exec.Locked(), "the lock stays with the in-flight step")
	assert.Equal(t, before, store.Snapshot())

	close(gate.release)
	first := <-done
	assert.Equal(t, OutcomeApplied, first.Outcome)
	assert.False(t, exec.Locked())
	assert.Equal(t, 1, exec.Cursor())
	assert.Equal(t, []string{"A"}, store.Snapshot().Contents())
}

func TestExecutorResetDropsInFlightStep(t *testing.T) {
	repo := newTestRepository(t)
	gate := newGateSleeper()
	store, exec := bind(t, repo, "two-step", WithSleeper(gate))

	done := make(chan Result, 1)
	go func() {
		res, _ := exec.Advance(context.Background())
		done <- res
	}()
	<-gate.entered

	exec.Reset()
	store.Reset()
	close(gate.release)

	res := <-done
	assert.Equal(t, OutcomeDropped, res.Outcome)
	assert.Empty(t, store.Snapshot().Messages)
	assert.Equal(t, 0, exec.Cursor())
	assert.False(t, exec.Locked())
}

func TestExecutorCancelDuringDelayDrops(t *testing.T) {
	repo := newTestRepository(t)
	gate := newGateSleeper()
	store, exec := bind(t, repo, "two-step", WithSleeper(gate))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Result, 1)
	go func() {
		res, _ := exec.Advance(ctx)
		done <- res
	}()
	<-gate.entered
	cancel()

	res := <-done
	assert.Equal(t, OutcomeDropped, res.Outcome)
	assert.Empty(t, store.Snapshot().Messages)
	assert.False(t, store.Snapshot().Typing)
	assert.Equal(t, 0, exec.Cursor())
}

func TestExecutorClosedStoreDropsCommit(t *testing.T) {
	repo := newTestRepository(t)
	store, exec := bind(t, repo, "two-step", WithTimingScale(0))
	store.Close()

	res, err := exec.Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeDropped, res.Outcome)
	assert.Empty(t, store.Snapshot().Messages)
}

func TestExecutorNotActive(t *testing.T) {
	exec := NewExecutor(NewStore(), newTestRepository(t))
	_, err := exec.Advance(context.Background())
	require.Error(t, err)
	assert.True(t, assistant.HasCode(err, assistant.ErrCodeWorkflowNotActive))
	assert.False(t, exec.Locked())
}

func TestExecutorUnknownPath(t *testing.T) {
	store := NewStore()
	store.Begin("missing", "", nil, nil)
	exec := NewExecutor(store, newTestRepository(t))

	_, err := exec.Advance(context.Background())
	assert.True(t, assistant.HasCode(err, assistant.ErrCodeScriptNotFound))
	assert.False(t, exec.Locked())
}

func TestExecutorTimingScale(t *testing.T) {
	repo := newTestRepository(t)
	sleeper := &recordingSleeper{}
	_, exec := bind(t, repo, "two-step", WithSleeper(sleeper), WithTimingScale(0.5))

	_, err := exec.Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{50 * time.Millisecond}, sleeper.Delays())
	assert.Equal(t, 1, exec.Remaining())
}

// randomScript builds a script of n steps, each updating one random section
// to a random status.
func randomScript(statuses []int, targets []int) *script.Script {
	all := []assistant.Status{assistant.StatusPending, assistant.StatusInProgress, assistant.StatusSuccess, assistant.StatusError}
	s := &script.Script{ID: "random", Sections: testSections}
	if len(targets) == 0 {
		targets = []int{0}
	}
	for i := range statuses {
		target := testSections[targets[i%len(targets)]%len(testSections)].ID
		s.Steps = append(s.Steps, script.Say("step",
			script.UpdateSection(target, all[statuses[i]%len(all)], map[string]string{"step": target}),
		))
	}
	return s
}

func TestExecutorProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	statuses := gen.SliceOfN(8, gen.IntRange(0, 3))
	targets := gen.SliceOfN(8, gen.IntRange(0, 3))

	properties.Property("advance moves the cursor by one and commits once", prop.ForAll(
		func(st, tg []int) bool {
			if len(st) == 0 {
				return true
			}
			repo := script.NewRepository()
			if err := repo.Register(randomScript(st, tg)); err != nil {
				return false
			}
			store := NewStore(WithStoreLogger(assistant.NopLogger{}))
			store.Begin("random", "", (&script.Script{Sections: testSections}).InitialSections(), nil)
			exec := NewExecutor(store, repo, WithTimingScale(0), WithExecutorLogger(assistant.NopLogger{}))

			for c := 0; c < len(st); c++ {
				before := store.Snapshot()
				res, err := exec.Advance(context.Background())
				if err != nil || !res.Applied() || res.Cursor != c || exec.Cursor() != c+1 {
					return false
				}
				if len(store.Snapshot().Messages) != len(before.Messages)+1 {
					return false
				}
			}
			res, _ := exec.Advance(context.Background())
			return res.Outcome == OutcomeExhausted && exec.Cursor() == len(st)
		},
		statuses, targets,
	))

	properties.Property("section status never regresses", prop.ForAll(
		func(st, tg []int) bool {
			if len(st) == 0 {
				return true
			}
			repo := script.NewRepository()
			if err := repo.Register(randomScript(st, tg)); err != nil {
				return false
			}
			store := NewStore(WithStoreLogger(assistant.NopLogger{}))
			store.Begin("random", "", (&script.Script{Sections: testSections}).InitialSections(), nil)
			exec := NewExecutor(store, repo, WithTimingScale(0), WithExecutorLogger(assistant.NopLogger{}))

			prev := map[string]assistant.Status{}
			for range st {
				if _, err := exec.Advance(context.Background()); err != nil {
					return false
				}
				for _, sec := range store.Snapshot().Sections {
					if p, ok := prev[sec.ID]; ok && p != sec.Status && !p.CanAdvance(sec.Status) {
						return false
					}
					prev[sec.ID] = sec.Status
				}
			}
			return true
		},
		statuses, targets,
	))

	properties.TestingRun(t)
}
