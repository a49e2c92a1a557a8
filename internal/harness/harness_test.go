package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/todo/internal/store"
)

func TestScenarios(t *testing.T) {
	scenarios, err := LoadDir(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_Minimal(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: minimal
description: "one add"
owner: alice
steps:
  - do: add
    text: "Buy milk"
assertions:
  - { type: count, count: 1 }
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Trace, 4)
	assert.Equal(t, EventSession, result.Trace[0].Type)
	assert.Equal(t, EventNotification, result.Trace[1].Type)
	assert.Equal(t, EventCommand, result.Trace[2].Type)
	assert.Equal(t, "Task added", result.Trace[3].Message)

	assert.Equal(t, "alice", result.Owner)
	require.Len(t, result.Active, 1)
	assert.Equal(t, "k1", result.Active[0].ID)
	assert.Len(t, result.Stored[store.Active], 1)
	assert.Equal(t, 1, result.Writes)
}

func TestRun_FailedExpectation(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: wrong_expectation
description: "expects success from a rejected add"
owner: alice
steps:
  - do: add
    text: "   "
    expect: { level: success }
assertions:
  - { type: count, count: 1 }
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "expected level success, got error")
	assert.Contains(t, result.Errors[1], "Assertion failed: count")
	assert.Equal(t, 0, result.Writes)
}

func TestRun_FaultLastsOneStep(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: fault_scope
description: "an unused fault does not leak into the next step"
owner: alice
steps:
  - do: load
    fail:
      - { method: create }
  - do: add
    text: "Buy milk"
    expect: { level: success }
assertions:
  - { type: stored_count, count: 1 }
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_LoadFailureEmptiesSets(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: load_failure
description: "a failed reload leaves both sets empty"
owner: alice
seed:
  active:
    - { text: "Buy milk" }
steps:
  - do: load
    fail:
      - { method: load, collection: archivedTasks }
    expect:
      level: error
      message: "Failed to load archived tasks: store unavailable: injected failure"
assertions:
  - { type: count, count: 0 }
  - { type: stored_count, count: 1 }
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_SeedWithoutOwnerOnDocumentStore(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: no_owner_seed
description: "the document store refuses unowned records"
seed:
  active:
    - { text: "Buy milk" }
steps:
  - do: load
assertions:
  - { type: count, count: 0 }
`))
	require.NoError(t, err)

	_, err = Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to seed store")
}

func TestRun_InvalidStepArgs(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: bad_priority
description: "unknown priority in a step"
owner: alice
steps:
  - do: add
    text: "x"
    priority: Urgent
assertions:
  - { type: count, count: 0 }
`))
	require.NoError(t, err)

	_, err = Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 1")
}
