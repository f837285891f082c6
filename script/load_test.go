package script

import (
	"testing"
	"testing/fstest"
	"time"

	"github.com/goliatone/go-assistant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleScript = `
kind: script
id: demo
title: Demo
option: Create
sections:
  - {id: cluster, title: Cluster}
workflow:
  - {id: design, title: Design}
steps:
  - message: A
    delay: 100
    section: {id: cluster, status: in-progress}
    suggestions:
      - {id: next, text: Next}
  - message: B
    view: design
    section:
      id: cluster
      status: done
      values:
        Region: us-east-1
    step: {id: design, status: success}
    resource: {name: db, region: us-east-1}
    component:
      type: Button
      props: {actionId: launch-database, children: Launch}
`

func TestParseScript(t *testing.T) {
	s, err := ParseScript([]byte(sampleScript))
	require.NoError(t, err)

	assert.Equal(t, "demo", s.ID)
	assert.Equal(t, "create", s.Option)
	assert.Equal(t, 2, s.Len())

	first, ok := s.Step(0)
	require.True(t, ok)
	assert.Equal(t, 100*time.Millisecond, first.Delay())
	assert.Equal(t, "A", first.Message().Content)
	assert.Equal(t, []assistant.Suggestion{{ID: "next", Text: "Next"}}, first.Suggestions())

	second, _ := s.Step(1)
	e, ok := second.Effect(EffectSection)
	require.True(t, ok)
	update := e.(SectionUpdate)
	assert.Equal(t, assistant.StatusSuccess, update.Status)
	assert.Equal(t, "us-east-1", update.Values["Region"])

	r, ok := second.Effect(EffectResource)
	require.True(t, ok)
	assert.Equal(t, assistant.ResourceCreating, r.(ResourceInstall).Resource.Status)

	require.NotNil(t, second.Message().Component)
	assert.Equal(t, "Button", second.Message().Component.Type)
	assert.Nil(t, second.Suggestions())

	_, ok = s.Step(2)
	assert.False(t, ok)
}

func TestParseScriptRejectsBadData(t *testing.T) {
	cases := map[string]string{
		"no steps":       "id: empty\n",
		"no id":          "steps:\n  - message: hi\n",
		"bad view":       "id: x\nsteps:\n  - {message: hi, view: nowhere}\n",
		"bad status":     "id: x\nsteps:\n  - message: hi\n    section: {id: cluster, status: sideways}\n",
		"negative delay": "id: x\nsteps:\n  - {message: hi, delay: -5}\n",
		"not yaml":       "id: [",
		"dup section":    "id: x\nsections: [{id: a}, {id: a}]\nsteps:\n  - message: hi\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseScript([]byte(doc))
			require.Error(t, err)
			assert.True(t, assistant.HasCode(err, assistant.ErrCodeInvalidScript), "got %v", err)
		})
	}
}

func TestLintReportsUnknownReferences(t *testing.T) {
	s := &Script{
		ID:       "lint",
		Sections: []SectionDef{{ID: "cluster"}},
		Workflow: []assistant.WorkflowStep{{ID: "design"}},
		Steps: []Step{
			Say("ok", UpdateSection("cluster", assistant.StatusInProgress, nil)),
			Say("bad", UpdateSections(SectionUpdate{ID: "ghost"}), MarkStep("deploy", assistant.StatusSuccess)),
		},
	}
	require.NoError(t, s.Validate())

	warnings := s.Lint()
	assert.Equal(t, []string{
		`step 1: unknown section "ghost"`,
		`step 1: unknown workflow step "deploy"`,
	}, warnings)
}

func TestInitialStateIsPending(t *testing.T) {
	s, err := ParseScript([]byte(sampleScript))
	require.NoError(t, err)

	sections := s.InitialSections()
	require.Len(t, sections, 1)
	assert.Equal(t, assistant.StatusPending, sections[0].Status)
	assert.NotNil(t, sections[0].Values)

	workflow := s.InitialWorkflow()
	require.Len(t, workflow, 1)
	assert.Equal(t, assistant.StatusPending, workflow[0].Status)
}

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"demo.yaml": {Data: []byte(sampleScript)},
		"canned.yml": {Data: []byte(`
kind: canned
opening:
  id: opening
  message: Hello
responses:
  - id: next
    message: Jumped ahead
    sections:
      - {id: cluster, status: success}
    step: {id: design, status: in-progress}
`)},
		"README.md": {Data: []byte("ignored")},
	}

	repo, err := Load(fsys)
	require.NoError(t, err)

	assert.Equal(t, []string{"demo"}, repo.Names())
	path, ok := repo.PathFor("create")
	require.True(t, ok)
	assert.Equal(t, "demo", path)

	path, ok = repo.PathFor("demo")
	assert.True(t, ok)
	assert.Equal(t, "demo", path)

	opening, ok := repo.Opening()
	require.True(t, ok)
	assert.Equal(t, "Hello", opening.Message.Content)

	c, ok := repo.Canned("next")
	require.True(t, ok)
	assert.Equal(t, "Jumped ahead", c.Message.Content)
	require.NotNil(t, c.StepStatus)
	assert.Equal(t, assistant.StatusInProgress, c.StepStatus.Status)
	assert.Equal(t, []string{"next"}, repo.CannedIDs())
}

func TestLoadFSReportsFile(t *testing.T) {
	fsys := fstest.MapFS{
		"broken.yaml": {Data: []byte("kind: mystery\n")},
	}
	_, err := Load(fsys)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.yaml")
}

func TestRepositoryRegisterAndLookup(t *testing.T) {
	repo := NewRepository()
	s := &Script{ID: "one", Steps: []Step{Say("hi")}}

	require.NoError(t, repo.Register(s))
	require.Error(t, repo.Register(s))

	got, err := repo.Lookup("one")
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = repo.Lookup("missing")
	assert.True(t, assistant.HasCode(err, assistant.ErrCodeScriptNotFound))

	_, ok := repo.PathFor("unknown")
	assert.False(t, ok)

	require.Error(t, repo.RegisterCanned(CannedResponse{}))
	_, ok = repo.Opening()
	assert.False(t, ok)
}

func TestBuiltinScripts(t *testing.T) {
	repo, err := Builtin()
	require.NoError(t, err)

	assert.Equal(t, []string{PathCreateDatabase, PathImportDatabase, PathMigrateEC2}, repo.Names())

	for option, want := range map[string]string{
		OptionCreate:  PathCreateDatabase,
		OptionImport:  PathImportDatabase,
		OptionMigrate: PathMigrateEC2,
	} {
		path, ok := repo.PathFor(option)
		require.True(t, ok, option)
		assert.Equal(t, want, path)

		s, err := repo.Lookup(path)
		require.NoError(t, err)
		assert.Empty(t, s.Lint(), path)
		assert.Len(t, s.Sections, 4, path)
	}

	migrate, _ := repo.Lookup(PathMigrateEC2)
	assert.Equal(t, "source", migrate.Sections[0].ID)

	_, ok := repo.Opening()
	assert.True(t, ok)
	_, ok = repo.Canned("create-instance-custom")
	assert.True(t, ok)
}
