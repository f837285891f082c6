package workflow

import (
	"testing"

	"github.com/goliatone/go-assistant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sections() []assistant.ConfigSection {
	return []assistant.ConfigSection{
		{ID: "cluster", Title: "Cluster", Status: assistant.StatusPending, Values: map[string]string{}},
		{ID: "storage", Title: "Storage", Status: assistant.StatusPending},
	}
}

func TestStoreBeginBindsAndOpensChat(t *testing.T) {
	store := NewStore(WithStoreLogger(assistant.NopLogger{}))
	require.True(t, store.Begin("two-step", "two", sections(), []assistant.WorkflowStep{{ID: "design"}}))

	snap := store.Snapshot()
	assert.True(t, snap.Active)
	assert.Equal(t, "two-step", snap.Path)
	assert.Equal(t, assistant.ViewChat, snap.View)
	assert.False(t, snap.SidePanelOpen)
	assert.Len(t, snap.Sections, 2)
	assert.Equal(t, uint64(1), snap.Version)
}

func TestStoreSectionValuesMergeAndNeverClear(t *testing.T) {
	store := NewStore(WithStoreLogger(assistant.NopLogger{}))
	store.Begin("p", "", sections(), nil)

	store.UpdateSection("cluster", assistant.StatusInProgress, map[string]string{"Engine": "Aurora"})
	store.UpdateSection("cluster", "", map[string]string{"Region": "us-east-1"})
	store.UpdateSection("cluster", assistant.StatusSuccess, nil)

	sec, ok := store.Snapshot().Section("cluster")
	require.True(t, ok)
	assert.Equal(t, assistant.StatusSuccess, sec.Status)
	assert.Equal(t, map[string]string{"Engine": "Aurora", "Region": "us-east-1"}, sec.Values)
}

func TestStoreIgnoresStatusRegression(t *testing.T) {
	store := NewStore(WithStoreLogger(assistant.NopLogger{}))
	store.Begin("p", "", sections(), nil)
	store.UpdateSection("cluster", assistant.StatusSuccess, nil)
	version := store.Version()

	store.UpdateSection("cluster", assistant.StatusPending, nil)
	sec, _ := store.Snapshot().Section("cluster")
	assert.Equal(t, assistant.StatusSuccess, sec.Status)
	assert.Equal(t, version, store.Version(), "an ignored update is not a commit")

	store.UpdateSection("cluster", assistant.StatusError, nil)
	sec, _ = store.Snapshot().Section("cluster")
	assert.Equal(t, assistant.StatusError, sec.Status)
}

func TestStoreUnknownSectionIsNoOp(t *testing.T) {
	store := NewStore(WithStoreLogger(assistant.NopLogger{}))
	store.Begin("p", "", sections(), nil)
	before := store.Snapshot()

	store.UpdateSection("networking", assistant.StatusSuccess, map[string]string{"VPC": "default"})

	after := store.Snapshot()
	assert.Equal(t, before.Sections, after.Sections)
	assert.Equal(t, before.Version, after.Version)
}

func TestStoreStepSuccessMovesProgress(t *testing.T) {
	store := NewStore(WithStoreLogger(assistant.NopLogger{}))
	store.Begin("p", "", nil, []assistant.WorkflowStep{{ID: "a"}, {ID: "b"}, {ID: "c"}})

	store.UpdateStep("b", assistant.StatusSuccess)
	snap := store.Snapshot()
	assert.Equal(t, 2, snap.Progress)
	st, _ := snap.Step("b")
	assert.Equal(t, assistant.StatusSuccess, st.Status)

	store.UpdateStep("a", assistant.StatusInProgress)
	assert.Equal(t, 2, store.Snapshot().Progress)
}

func TestStoreResourceDetailsAccumulate(t *testing.T) {
	store := NewStore(WithStoreLogger(assistant.NopLogger{}))
	store.InstallResource(assistant.Resource{ID: "db", Name: "orders", Details: map[string]string{"Readers": "1"}})
	store.InstallResource(assistant.Resource{ID: "db", Name: "orders", Status: assistant.ResourceActive, Details: map[string]string{"Port": "5432"}})

	res := store.Resource()
	require.NotNil(t, res)
	assert.Equal(t, assistant.ResourceActive, res.Status)
	assert.Equal(t, map[string]string{"Readers": "1", "Port": "5432"}, res.Details)

	res.Details["Readers"] = "9"
	assert.Equal(t, "1", store.Resource().Details["Readers"], "Resource returns a copy")
}

func TestStoreBatchNotifiesOnceWithKinds(t *testing.T) {
	var changes []Change
	store := NewStore(WithStoreLogger(assistant.NopLogger{}), WithListener(func(ch Change) {
		changes = append(changes, ch)
	}))

	store.Batch(func(tx *Tx) {
		tx.SetView(assistant.ViewDesign)
		tx.AppendMessage(assistant.NewMessage(assistant.RoleAgent, "hi"))
		tx.AppendMessage(assistant.NewMessage(assistant.RoleAgent, "again"))
	})
	store.Batch(func(tx *Tx) {})

	require.Len(t, changes, 1)
	assert.Equal(t, uint64(1), changes[0].Version)
	assert.Equal(t, []ChangeKind{ChangeView, ChangePanel, ChangeMessage}, changes[0].Kinds)
	assert.True(t, store.Snapshot().SidePanelOpen)
}

func TestStoreSubscribeAndUnsubscribe(t *testing.T) {
	store := NewStore()
	var versions []uint64
	unsubscribe := store.Subscribe(func(ch Change) { versions = append(versions, ch.Version) })

	store.SetTyping(true)
	store.SetTyping(true)
	store.SetTyping(false)
	unsubscribe()
	store.SetTyping(true)

	assert.Equal(t, []uint64{1, 2}, versions)
}

func TestStoreClosedDropsUpdates(t *testing.T) {
	store := NewStore(WithStoreLogger(assistant.NopLogger{}))
	store.AppendMessage(assistant.NewMessage(assistant.RoleAgent, "kept"))
	store.Close()

	assert.True(t, store.Closed())
	assert.False(t, store.AppendMessage(assistant.NewMessage(assistant.RoleAgent, "dropped")))
	assert.Equal(t, []string{"kept"}, store.Snapshot().Contents())
}

func TestStoreResetKeepsVersion(t *testing.T) {
	store := NewStore()
	store.Begin("p", "", sections(), nil)
	store.AppendMessage(assistant.NewMessage(assistant.RoleAgent, "x"))
	store.SetSuggestions([]assistant.Suggestion{{ID: "s", Text: "S"}})

	store.Reset()
	snap := store.Snapshot()
	assert.False(t, snap.Active)
	assert.Empty(t, snap.Messages)
	assert.Empty(t, snap.Suggestions)
	assert.Equal(t, assistant.ViewEntry, snap.View)
	assert.Equal(t, uint64(4), snap.Version)
}

func TestStoreFormValuesAreCopies(t *testing.T) {
	store := NewStore()
	store.SetFormValue("tags", []any{"a"})
	store.SetFormValue("", "ignored")
	assert.Equal(t, uint64(1), store.Version())

	values := store.FormValues()
	values["tags"] = "changed"
	assert.Equal(t, []any{"a"}, store.FormValues()["tags"])
}
