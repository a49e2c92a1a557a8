package store

import (
	"context"
	"io"
	"log/slog"

	"github.com/roach88/todo/internal/task"
)

// Collection names a set of task records in a store.
type Collection string

const (
	// Active holds tasks that are neither archived nor deleted.
	Active Collection = "tasks"

	// Archived holds tasks moved out of the active set.
	Archived Collection = "archivedTasks"
)

// Adapter is the durable side of a task collection.
//
// Keys are minted synchronously with NewKey so callers can insert a task in
// memory before its durable create resolves. All other methods may block and
// are safe for concurrent use.
type Adapter interface {
	// NewKey returns a fresh store key for a record in c. taskID is the
	// logical id of the task being stored, or "" when a new task is created.
	NewKey(c Collection, taskID string) string

	// Load returns every record in c visible to owner, in insertion order.
	Load(ctx context.Context, owner string, c Collection) ([]task.Task, error)

	// Create stores t under key.
	Create(ctx context.Context, owner string, c Collection, key string, t task.Task) error

	// Update patches the named fields of the record under key.
	Update(ctx context.Context, owner string, c Collection, key string, f task.Fields) error

	// Delete removes the record under key.
	Delete(ctx context.Context, owner string, c Collection, key string) error

	// Lookup resolves the key of the record in c whose logical id is taskID.
	Lookup(ctx context.Context, owner string, c Collection, taskID string) (string, error)

	// RequiresOwner reports whether records are scoped by owner. Such
	// adapters answer every call made without an owner with Unauthorized.
	RequiresOwner() bool
}

// KeyGenerator mints store keys.
type KeyGenerator interface {
	Generate() string
}

// Option configures a backend.
type Option func(*options)

type options struct {
	logger *slog.Logger
	keys   KeyGenerator
}

// WithLogger sets the logger used to report skipped records.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithKeys overrides the backend's key generator.
func WithKeys(g KeyGenerator) Option {
	return func(o *options) { o.keys = g }
}

func buildOptions(defaultKeys KeyGenerator, opts []Option) options {
	o := options{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		keys:   defaultKeys,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func validCollection(op string, c Collection) error {
	if c != Active && c != Archived {
		return task.Validation(op, "unknown collection %q", c)
	}
	return nil
}
