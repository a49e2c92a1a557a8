package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validScenario = `
name: valid
description: "A valid scenario"
backend: blob
owner: alice
seed:
  active:
    - { id: t1, text: "Buy milk", category: Shopping, priority: High, due: "2024-05-01T10:00" }
  archived:
    - { id: t0, text: "Old", completed: true }
steps:
  - do: toggle
    id: t1
    fail:
      - { method: update, collection: tasks, times: -1 }
    expect: { level: error, code: UNAVAILABLE }
  - sign_in: bob
  - sign_out: true
assertions:
  - { type: count, count: 1 }
  - { type: task, id: t1, expect: { completed: false } }
  - { type: absent, collection: archivedTasks, id: t1 }
  - { type: view, query: { status: Pending, sort: priority }, ids: [t1] }
  - { type: notifications, messages: ["Tasks loaded"] }
  - { type: writes, count: 0 }
`

func TestParseScenario_Valid(t *testing.T) {
	s, err := ParseScenario([]byte(validScenario))
	require.NoError(t, err)

	assert.Equal(t, "valid", s.Name)
	assert.Equal(t, BackendBlob, s.Backend)
	assert.Equal(t, "alice", s.Owner)
	require.Len(t, s.Seed.Active, 1)
	assert.Equal(t, "2024-05-01T10:00", s.Seed.Active[0].Due)
	require.Len(t, s.Seed.Archived, 1)
	assert.True(t, s.Seed.Archived[0].Completed)

	require.Len(t, s.Steps, 3)
	assert.Equal(t, "toggle", s.Steps[0].Do)
	require.Len(t, s.Steps[0].Fail, 1)
	assert.Equal(t, -1, s.Steps[0].Fail[0].Times)
	assert.Equal(t, "UNAVAILABLE", s.Steps[0].Expect.Code)
	assert.Equal(t, "bob", s.Steps[1].SignIn)
	assert.True(t, s.Steps[2].SignOut)

	require.Len(t, s.Assertions, 6)
	require.NotNil(t, s.Assertions[0].Count)
	assert.Equal(t, 1, *s.Assertions[0].Count)
	assert.Equal(t, false, s.Assertions[1].Expect["completed"])
	assert.Equal(t, []string{"t1"}, s.Assertions[3].IDs)
	require.NotNil(t, s.Assertions[5].Count)
	assert.Equal(t, 0, *s.Assertions[5].Count)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown field",
			yaml: "name: x\ndescription: d\nstep: []\n",
			want: "field step not found",
		},
		{
			name: "missing name",
			yaml: "description: d\nsteps: [{do: load}]\nassertions: [{type: count, count: 0}]\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: x\nsteps: [{do: load}]\nassertions: [{type: count, count: 0}]\n",
			want: "description is required",
		},
		{
			name: "unknown backend",
			yaml: "name: x\ndescription: d\nbackend: redis\nsteps: [{do: load}]\nassertions: [{type: count, count: 0}]\n",
			want: `unknown backend "redis"`,
		},
		{
			name: "no steps",
			yaml: "name: x\ndescription: d\nassertions: [{type: count, count: 0}]\n",
			want: "steps list is required",
		},
		{
			name: "no assertions",
			yaml: "name: x\ndescription: d\nsteps: [{do: load}]\n",
			want: "assertions list is required",
		},
		{
			name: "seed without text",
			yaml: "name: x\ndescription: d\nseed: {active: [{id: a}]}\nsteps: [{do: load}]\nassertions: [{type: count, count: 0}]\n",
			want: "seed[0]: text is required",
		},
		{
			name: "step with two actions",
			yaml: "name: x\ndescription: d\nsteps: [{do: load, sign_out: true}]\nassertions: [{type: count, count: 0}]\n",
			want: "exactly one of do, sign_in, sign_out",
		},
		{
			name: "unknown op",
			yaml: "name: x\ndescription: d\nsteps: [{do: purge}]\nassertions: [{type: count, count: 0}]\n",
			want: `unknown operation "purge"`,
		},
		{
			name: "toggle without id",
			yaml: "name: x\ndescription: d\nsteps: [{do: toggle}]\nassertions: [{type: count, count: 0}]\n",
			want: "id is required for toggle",
		},
		{
			name: "unknown fault method",
			yaml: "name: x\ndescription: d\nsteps: [{do: load, fail: [{method: drop}]}]\nassertions: [{type: count, count: 0}]\n",
			want: `unknown method "drop"`,
		},
		{
			name: "unknown fault collection",
			yaml: "name: x\ndescription: d\nsteps: [{do: load, fail: [{method: load, collection: trash}]}]\nassertions: [{type: count, count: 0}]\n",
			want: `unknown collection "trash"`,
		},
		{
			name: "count missing",
			yaml: "name: x\ndescription: d\nsteps: [{do: load}]\nassertions: [{type: count}]\n",
			want: "count is required for count",
		},
		{
			name: "negative count",
			yaml: "name: x\ndescription: d\nsteps: [{do: load}]\nassertions: [{type: writes, count: -1}]\n",
			want: "count must be non-negative",
		},
		{
			name: "task without expect",
			yaml: "name: x\ndescription: d\nsteps: [{do: load}]\nassertions: [{type: task, id: a}]\n",
			want: "expect is required for task",
		},
		{
			name: "view without query",
			yaml: "name: x\ndescription: d\nsteps: [{do: load}]\nassertions: [{type: view, ids: [a]}]\n",
			want: "query is required for view",
		},
		{
			name: "unknown assertion",
			yaml: "name: x\ndescription: d\nsteps: [{do: load}]\nassertions: [{type: trace_order}]\n",
			want: `unknown assertion type "trace_order"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte(validScenario), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yml"), []byte(
		"name: first\ndescription: d\nsteps: [{do: load}]\nassertions: [{type: count, count: 0}]\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	scenarios, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, scenarios, 2)
	assert.Equal(t, "first", scenarios[0].Name)
	assert.Equal(t, "valid", scenarios[1].Name)
}

func TestLoadDir_ReportsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: [\n"), 0o644))

	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.yaml")
}
