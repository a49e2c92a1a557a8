package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/roach88/todo/internal/task"
)

// BlobStore keeps each collection as one JSON array in its own file under a
// directory. Every mutation rewrites the whole array.
//
// Records carry their id, which doubles as the store key. BlobStore has no
// notion of owners: every caller sees the same records.
type BlobStore struct {
	dir    string
	keys   KeyGenerator
	logger *slog.Logger

	mu sync.Mutex // serialises read-modify-write cycles
}

var _ Adapter = (*BlobStore)(nil)

// OpenBlob opens (creating if needed) a blob directory.
func OpenBlob(dir string, opts ...Option) (*BlobStore, error) {
	o := buildOptions(NewMillisGenerator(), opts)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob dir: %w", err)
	}
	return &BlobStore{dir: dir, keys: o.keys, logger: o.logger}, nil
}

// Path returns the file holding collection c.
func (s *BlobStore) Path(c Collection) string {
	return filepath.Join(s.dir, string(c)+".json")
}

// NewKey returns taskID when storing an existing task (archiving keeps the
// id), otherwise a fresh millisecond key.
func (s *BlobStore) NewKey(_ Collection, taskID string) string {
	if taskID != "" {
		return taskID
	}
	return s.keys.Generate()
}

// RequiresOwner is always false.
func (s *BlobStore) RequiresOwner() bool {
	return false
}

// Load returns the saved array for c, or an empty set if nothing was saved.
func (s *BlobStore) Load(_ context.Context, _ string, c Collection) ([]task.Task, error) {
	if err := validCollection("load", c); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.read(c)
	if err != nil {
		return nil, task.Unavailable("load", err)
	}
	tasks := make([]task.Task, 0, len(recs))
	for i, rec := range recs {
		t, err := task.FromRecord("", rec)
		if err != nil {
			s.logger.Warn("skipping invalid record", "collection", c, "index", i, "error", err)
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// Create appends t to c under key.
func (s *BlobStore) Create(_ context.Context, _ string, c Collection, key string, t task.Task) error {
	if err := validCollection("create", c); err != nil {
		return err
	}
	rec := task.ToRecord(t)
	rec.ID = key
	rec.OwnerID = ""

	return s.mutate("create", c, func(recs []task.Record) ([]task.Record, error) {
		return append(recs, rec), nil
	})
}

// Update patches the record whose id is key.
func (s *BlobStore) Update(_ context.Context, _ string, c Collection, key string, f task.Fields) error {
	if err := validCollection("update", c); err != nil {
		return err
	}
	if f.Empty() {
		return task.Validation("update", "no fields to update")
	}
	return s.mutate("update", c, func(recs []task.Record) ([]task.Record, error) {
		i := indexOf(recs, key)
		if i < 0 {
			return nil, task.NotFound("update", key)
		}
		if f.Text != nil {
			recs[i].Text = *f.Text
		}
		if f.Completed != nil {
			recs[i].Completed = *f.Completed
		}
		return recs, nil
	})
}

// Delete removes the record whose id is key.
func (s *BlobStore) Delete(_ context.Context, _ string, c Collection, key string) error {
	if err := validCollection("delete", c); err != nil {
		return err
	}
	return s.mutate("delete", c, func(recs []task.Record) ([]task.Record, error) {
		i := indexOf(recs, key)
		if i < 0 {
			return nil, task.NotFound("delete", key)
		}
		return append(recs[:i], recs[i+1:]...), nil
	})
}

// Lookup returns taskID itself when a record with that id exists in c.
func (s *BlobStore) Lookup(_ context.Context, _ string, c Collection, taskID string) (string, error) {
	if err := validCollection("lookup", c); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.read(c)
	if err != nil {
		return "", task.Unavailable("lookup", err)
	}
	if indexOf(recs, taskID) < 0 {
		return "", task.NotFound("lookup", taskID)
	}
	return taskID, nil
}

func (s *BlobStore) mutate(op string, c Collection, fn func([]task.Record) ([]task.Record, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.read(c)
	if err != nil {
		return task.Unavailable(op, err)
	}
	recs, err = fn(recs)
	if err != nil {
		return err
	}
	if err := s.write(c, recs); err != nil {
		return task.Unavailable(op, err)
	}
	return nil
}

// read decodes the array for c. A missing file is an empty array.
func (s *BlobStore) read(c Collection) ([]task.Record, error) {
	data, err := os.ReadFile(s.Path(c))
	if errors.Is(err, fs.ErrNotExist) {
		return []task.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c, err)
	}
	if len(data) == 0 {
		return []task.Record{}, nil
	}
	var recs []task.Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c, err)
	}
	return recs, nil
}

// write replaces the array for c through a temp file and rename, so a crash
// leaves either the old or the new array on disk.
func (s *BlobStore) write(c Collection, recs []task.Record) error {
	if recs == nil {
		recs = []task.Record{}
	}
	data, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+string(c)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", c, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", c, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", c, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", c, err)
	}
	if err := os.Rename(tmp.Name(), s.Path(c)); err != nil {
		return fmt.Errorf("replace %s: %w", c, err)
	}
	return nil
}

func indexOf(recs []task.Record, id string) int {
	for i, r := range recs {
		if r.ID == id {
			return i
		}
	}
	return -1
}
