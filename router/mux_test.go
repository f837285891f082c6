package router

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func handlerNames(entries []Entry[string]) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Handler
	}
	return out
}

func TestMuxExactBeatsPattern(t *testing.T) {
	mux := NewMux[string]()
	mux.Add("download-#", "download")
	mux.Add("download-config", "exact")

	assert.Equal(t, []string{"exact"}, handlerNames(mux.Get("download-config")))
	assert.Equal(t, []string{"download"}, handlerNames(mux.Get("download-cfn-template")))
	assert.Empty(t, mux.Get("upload-config"))
}

func TestMuxPrefersSpecificPatterns(t *testing.T) {
	mux := NewMux[string]()
	mux.Add("#", "catch-all")
	mux.Add("create-*", "create")
	mux.Add("create-#", "create-any")

	assert.Equal(t, []string{"create"}, handlerNames(mux.Get("create-database")))
	assert.Equal(t, []string{"create-any"}, handlerNames(mux.Get("create-read-replica")))
	assert.Equal(t, []string{"catch-all"}, handlerNames(mux.Get("cancel")))
	assert.Equal(t, []string{"create-*", "create-#", "#"}, mux.Patterns())
}

func TestMuxPredicatesRunAfterPatterns(t *testing.T) {
	mux := NewMux[string]()
	mux.AddFunc("launch", MakeKeywordMatcher([]string{"launch"}), "heuristic")
	mux.Add("launch-preview", "exact")

	assert.Equal(t, []string{"exact"}, handlerNames(mux.Get("launch-preview")))
	got := mux.Get("launch-database")
	require.Len(t, got, 1)
	assert.Equal(t, "heuristic", got[0].Handler)
	assert.Equal(t, "launch", got[0].Name)
	assert.Empty(t, got[0].Pattern())
}

func TestMuxUnsubscribe(t *testing.T) {
	mux := NewMux[string]()
	mux.Add("confirm-create", "one")
	two := mux.Add("confirm-create", "two")
	mux.Add("confirm-create", "three")
	pred := mux.AddFunc("any", func(string) bool { return true }, "pred")

	assert.Equal(t, []string{"one", "two", "three"}, handlerNames(mux.Get("confirm-create")))

	two.Unsubscribe()
	assert.Equal(t, []string{"one", "three"}, handlerNames(mux.Get("confirm-create")))
	assert.Equal(t, []string{"pred"}, handlerNames(mux.Get("other")))

	pred.Unsubscribe()
	assert.Empty(t, mux.Get("other"))
}

func TestMuxUnsubscribeDropsEmptyPattern(t *testing.T) {
	mux := NewMux[string]()
	e := mux.Add("download-#", "dl")
	e.Unsubscribe()

	assert.Empty(t, mux.Patterns())
	assert.Empty(t, mux.Get("download-x"))
}

func TestMuxConcurrentAccess(t *testing.T) {
	mux := NewMux[int]()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			e := mux.Add("action-*", i)
			if i%2 == 0 {
				e.Unsubscribe()
			}
		}(i)
		go func() {
			defer wg.Done()
			_ = mux.Get("action-run")
		}()
	}
	wg.Wait()

	assert.Len(t, mux.Get("action-run"), 25)
}

func TestMuxCustomMatcher(t *testing.T) {
	mux := NewMux[string](WithRouteMatcher(MakeRouteMatcher(MakeRouteMatcherOptions{Separator: ".", IgnoreCase: true})))
	mux.Add("workflow.*", "workflow")

	assert.Equal(t, []string{"workflow"}, handlerNames(mux.Get("Workflow.Changed")))
	assert.Empty(t, mux.Get("workflow-changed"))
}
