package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/todo/internal/task"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on documents(collection, owner_id, task_id) for archived lookups
const currentSchemaVersion = 1

// MemoryPath opens a private in-memory database. It lives as long as the
// DocStore and is used by the scenario harness and tests.
const MemoryPath = ":memory:"

// DocStore is a document collection store on SQLite.
// Documents are scoped by owner; every call needs a non-empty owner.
type DocStore struct {
	db     *sql.DB
	keys   KeyGenerator
	logger *slog.Logger
}

var _ Adapter = (*DocStore)(nil)

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// This function is idempotent - safe to call multiple times.
func Open(path string, opts ...Option) (*DocStore, error) {
	o := buildOptions(UUIDv7Generator{}, opts)

	// Open database (creates file if doesn't exist)
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	// A single connection also keeps a :memory: database alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DocStore{db: db, keys: o.keys, logger: o.logger}, nil
}

// Close closes the database connection.
func (s *DocStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the archived lookup index.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_documents_task_id
		ON documents(collection, owner_id, task_id)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// NewKey returns a fresh document key. Archived copies get their own key,
// distinct from the logical task id they carry.
func (s *DocStore) NewKey(Collection, string) string {
	return s.keys.Generate()
}

// RequiresOwner is always true: documents are scoped by owner.
func (s *DocStore) RequiresOwner() bool {
	return true
}

func (s *DocStore) check(op, owner string, c Collection) error {
	if err := validCollection(op, c); err != nil {
		return err
	}
	if owner == "" {
		return task.Unauthorized(op)
	}
	return nil
}

// Load returns the documents in c owned by owner, ordered by insertion.
// Active documents take their id from the document key; archived documents
// carry their logical id in the body. Records that fail validation are
// skipped and logged.
func (s *DocStore) Load(ctx context.Context, owner string, c Collection) ([]task.Task, error) {
	if err := s.check("load", owner, c); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT key, body FROM documents
		WHERE collection = ? AND owner_id = ?
		ORDER BY seq ASC, key COLLATE BINARY ASC
	`, string(c), owner)
	if err != nil {
		return nil, task.Unavailable("load", fmt.Errorf("query %s: %w", c, err))
	}
	defer rows.Close()

	tasks := []task.Task{}
	for rows.Next() {
		var key, body string
		if err := rows.Scan(&key, &body); err != nil {
			return nil, task.Unavailable("load", fmt.Errorf("scan %s: %w", c, err))
		}

		var rec task.Record
		if err := json.Unmarshal([]byte(body), &rec); err != nil {
			s.logger.Warn("skipping undecodable document", "collection", c, "key", key, "error", err)
			continue
		}
		id := ""
		if c == Active {
			id = key
		}
		t, err := task.FromRecord(id, rec)
		if err != nil {
			s.logger.Warn("skipping invalid document", "collection", c, "key", key, "error", err)
			continue
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, task.Unavailable("load", fmt.Errorf("iterate %s: %w", c, err))
	}

	return tasks, nil
}

// Create inserts t as a new document under key. Active documents omit the
// id (the key is the id); archived documents keep it for later lookup.
func (s *DocStore) Create(ctx context.Context, owner string, c Collection, key string, t task.Task) error {
	if err := s.check("create", owner, c); err != nil {
		return err
	}

	rec := task.ToRecord(t)
	rec.OwnerID = owner
	taskID := t.ID
	if c == Active {
		rec.ID = ""
		taskID = key
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return task.Unavailable("create", fmt.Errorf("encode record: %w", err))
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, key, owner_id, task_id, body, seq)
		SELECT ?, ?, ?, ?, ?, COALESCE(MAX(seq), 0) + 1 FROM documents
	`, string(c), key, owner, taskID, string(body))
	if err != nil {
		return task.Unavailable("create", fmt.Errorf("insert %s/%s: %w", c, key, err))
	}
	return nil
}

// Update patches the named fields of the document's JSON body in place.
func (s *DocStore) Update(ctx context.Context, owner string, c Collection, key string, f task.Fields) error {
	if err := s.check("update", owner, c); err != nil {
		return err
	}
	if f.Empty() {
		return task.Validation("update", "no fields to update")
	}

	expr := "body"
	var args []any
	if f.Text != nil {
		expr = "json_set(" + expr + ", '$.text', ?)"
		args = append(args, *f.Text)
	}
	if f.Completed != nil {
		expr = "json_set(" + expr + ", '$.completed', json(?))"
		args = append(args, strconv.FormatBool(*f.Completed))
	}
	args = append(args, string(c), key, owner)

	res, err := s.db.ExecContext(ctx,
		"UPDATE documents SET body = "+expr+" WHERE collection = ? AND key = ? AND owner_id = ?",
		args...)
	if err != nil {
		return task.Unavailable("update", fmt.Errorf("update %s/%s [%s]: %w", c, key, strings.Join(f.Names(), ","), err))
	}
	return expectRow(res, "update", key)
}

// Delete removes the document under key.
func (s *DocStore) Delete(ctx context.Context, owner string, c Collection, key string) error {
	if err := s.check("delete", owner, c); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM documents WHERE collection = ? AND key = ? AND owner_id = ?
	`, string(c), key, owner)
	if err != nil {
		return task.Unavailable("delete", fmt.Errorf("delete %s/%s: %w", c, key, err))
	}
	return expectRow(res, "delete", key)
}

// Lookup resolves the key of the document in c carrying logical id taskID.
// When duplicates exist the oldest document wins.
func (s *DocStore) Lookup(ctx context.Context, owner string, c Collection, taskID string) (string, error) {
	if err := s.check("lookup", owner, c); err != nil {
		return "", err
	}

	var key string
	err := s.db.QueryRowContext(ctx, `
		SELECT key FROM documents
		WHERE collection = ? AND owner_id = ? AND task_id = ?
		ORDER BY seq ASC, key COLLATE BINARY ASC
		LIMIT 1
	`, string(c), owner, taskID).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", task.NotFound("lookup", taskID)
	}
	if err != nil {
		return "", task.Unavailable("lookup", fmt.Errorf("lookup %s/%s: %w", c, taskID, err))
	}
	return key, nil
}

func expectRow(res sql.Result, op, key string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return task.Unavailable(op, fmt.Errorf("rows affected: %w", err))
	}
	if n == 0 {
		return task.NotFound(op, key)
	}
	return nil
}
