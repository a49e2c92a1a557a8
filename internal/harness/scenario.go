package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/todo/internal/collection"
	"github.com/roach88/todo/internal/store"
	"github.com/roach88/todo/internal/testutil"
)

// Backends a scenario can run against.
const (
	BackendSQLite = "sqlite"
	BackendBlob   = "blob"
)

// Scenario is one end-to-end test of the task tracker.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Backend selects the store: "sqlite" (default) or "blob".
	Backend string `yaml:"backend,omitempty"`

	// Owner is the session active before the first step. Empty means
	// signed out.
	Owner string `yaml:"owner,omitempty"`

	// Seed is written straight to the store before the initial load.
	Seed Seed `yaml:"seed,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// Seed lists tasks present in the store when the scenario starts.
type Seed struct {
	Active   []SeedTask `yaml:"active,omitempty"`
	Archived []SeedTask `yaml:"archived,omitempty"`
}

// SeedTask is a stored task. Due uses any layout task.ParseDue accepts.
type SeedTask struct {
	ID        string `yaml:"id,omitempty"`
	Text      string `yaml:"text"`
	Category  string `yaml:"category,omitempty"`
	Priority  string `yaml:"priority,omitempty"`
	Due       string `yaml:"due,omitempty"`
	Completed bool   `yaml:"completed,omitempty"`
}

// Step is a command or a session change.
type Step struct {
	Do       string `yaml:"do,omitempty"`
	ID       string `yaml:"id,omitempty"`
	Text     string `yaml:"text,omitempty"`
	Category string `yaml:"category,omitempty"`
	Priority string `yaml:"priority,omitempty"`
	Due      string `yaml:"due,omitempty"`
	Time     string `yaml:"time,omitempty"`

	SignIn  string `yaml:"sign_in,omitempty"`
	SignOut bool   `yaml:"sign_out,omitempty"`

	// Fail injects store failures for the duration of this step.
	Fail []Fault `yaml:"fail,omitempty"`

	// Expect checks the last notification the step produced.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Fault makes matching store calls fail as unavailable.
type Fault struct {
	Method     string `yaml:"method"`
	Collection string `yaml:"collection,omitempty"` // empty matches both
	Times      int    `yaml:"times,omitempty"`      // default 1; -1 for the whole step
}

// Expect is a subset match on a notification. Empty fields are not checked.
type Expect struct {
	Level   string `yaml:"level,omitempty"`
	Message string `yaml:"message,omitempty"`
	Code    string `yaml:"code,omitempty"`
}

// Query is a projection request used by view assertions.
type Query struct {
	Status string `yaml:"status,omitempty"`
	Filter string `yaml:"filter,omitempty"`
	Search string `yaml:"search,omitempty"`
	Sort   string `yaml:"sort,omitempty"`
}

// Assertion validates the final state or the notifications.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Collection is "tasks" (default) or "archivedTasks".
	Collection string `yaml:"collection,omitempty"`

	// Count is used by count, stored_count and writes.
	Count *int `yaml:"count,omitempty"`

	// ID names the task for task and absent.
	ID string `yaml:"id,omitempty"`

	// Expect holds field values for task (subset match).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Query and IDs are used by view.
	Query *Query   `yaml:"query,omitempty"`
	IDs   []string `yaml:"ids,omitempty"`

	// Messages is used by notifications.
	Messages []string `yaml:"messages,omitempty"`
}

// Assertion type constants.
const (
	AssertCount         = "count"
	AssertStoredCount   = "stored_count"
	AssertTask          = "task"
	AssertAbsent        = "absent"
	AssertView          = "view"
	AssertNotifications = "notifications"
	AssertWrites        = "writes"
)

var faultMethods = []string{
	testutil.MethodLoad, testutil.MethodCreate, testutil.MethodUpdate,
	testutil.MethodDelete, testutil.MethodLookup,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every *.yaml and *.yml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	switch s.Backend {
	case "", BackendSQLite, BackendBlob:
	default:
		return fmt.Errorf("unknown backend %q", s.Backend)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, t := range append(slices.Clone(s.Seed.Active), s.Seed.Archived...) {
		if t.Text == "" {
			return fmt.Errorf("seed[%d]: text is required", i)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s *Step) error {
	actions := 0
	if s.Do != "" {
		actions++
	}
	if s.SignIn != "" {
		actions++
	}
	if s.SignOut {
		actions++
	}
	if actions != 1 {
		return fmt.Errorf("steps[%d]: exactly one of do, sign_in, sign_out is required", index)
	}

	if s.Do != "" {
		kind, err := collection.ParseKind(s.Do)
		if err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
		switch kind {
		case collection.KindLoad, collection.KindAdd:
		default:
			if s.ID == "" {
				return fmt.Errorf("steps[%d]: id is required for %s", index, kind)
			}
		}
	}

	for j, f := range s.Fail {
		if !slices.Contains(faultMethods, f.Method) {
			return fmt.Errorf("steps[%d].fail[%d]: unknown method %q", index, j, f.Method)
		}
		if err := validCollection(f.Collection); err != nil {
			return fmt.Errorf("steps[%d].fail[%d]: %w", index, j, err)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if err := validCollection(a.Collection); err != nil {
		return fmt.Errorf("assertions[%d]: %w", index, err)
	}

	switch a.Type {
	case AssertCount, AssertStoredCount, AssertWrites:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for %s", index, a.Type)
		}
		if *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertTask:
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: id is required for task", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for task", index)
		}
	case AssertAbsent:
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: id is required for absent", index)
		}
	case AssertView:
		if a.Query == nil {
			return fmt.Errorf("assertions[%d]: query is required for view", index)
		}
	case AssertNotifications:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// validCollection accepts a collection name or "".
func validCollection(c string) error {
	switch store.Collection(c) {
	case "", store.Active, store.Archived:
		return nil
	}
	return fmt.Errorf("unknown collection %q", c)
}
