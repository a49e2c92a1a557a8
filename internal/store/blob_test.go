package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/todo/internal/task"
)

func TestBlob_LoadMissingIsEmpty(t *testing.T) {
	s, err := OpenBlob(filepath.Join(t.TempDir(), "nested", "blob"))
	require.NoError(t, err)

	got, err := s.Load(context.Background(), "", Active)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestBlob_WholeArrayLayout(t *testing.T) {
	s, err := OpenBlob(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, "ignored", Active, "1", task.Task{ID: "1", Text: "a", Category: "Work", Priority: task.PriorityHigh}))
	require.NoError(t, s.Create(ctx, "ignored", Active, "2", task.Task{ID: "2", Text: "b", Category: "Personal", Priority: task.PriorityLow}))

	data, err := os.ReadFile(s.Path(Active))
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"id":"1","text":"a","completed":false,"category":"Work","priority":"High"},
		{"id":"2","text":"b","completed":false,"category":"Personal","priority":"Low"}
	]`, string(data))

	require.NoError(t, s.Delete(ctx, "", Active, "1"))
	data, err = os.ReadFile(s.Path(Active))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"2","text":"b","completed":false,"category":"Personal","priority":"Low"}]`, string(data))
}

func TestBlob_LegacyArray(t *testing.T) {
	dir := t.TempDir()
	legacy := `[
		{"id":1735722000000,"text":"Buy milk","completed":false,"category":"Shopping","dueDate":"2025-01-01","dueTime":"09:00","priority":"Medium"},
		{"text":"no id","completed":false,"category":"Work","priority":"Low"}
	]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tasks.json"), []byte(legacy), 0o644))

	s, err := OpenBlob(dir)
	require.NoError(t, err)
	ctx := context.Background()

	got, err := s.Load(ctx, "", Active)
	require.NoError(t, err)
	require.Len(t, got, 1, "records without an id are skipped")
	assert.Equal(t, "1735722000000", got[0].ID)
	assert.Equal(t, "2025-01-01T09:00:00", task.FormatDue(got[0].DueAt))

	require.NoError(t, s.Update(ctx, "", Active, "1735722000000", task.CompletedField(true)))
	got, err = s.Load(ctx, "", Active)
	require.NoError(t, err)
	assert.True(t, got[0].Completed)
}

func TestBlob_CorruptFileIsUnavailable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tasks.json"), []byte("{not json"), 0o644))

	s, err := OpenBlob(dir)
	require.NoError(t, err)

	_, err = s.Load(context.Background(), "", Active)
	assert.ErrorIs(t, err, task.ErrUnavailable)
}

func TestBlob_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenBlob(dir)
	require.NoError(t, err)

	require.NoError(t, s.Create(context.Background(), "", Active, "1", task.Task{ID: "1", Text: "a"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "tasks.json", entries[0].Name())
}

func TestBlob_OwnerIgnored(t *testing.T) {
	s, err := OpenBlob(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	assert.False(t, s.RequiresOwner())
	require.NoError(t, s.Create(ctx, "alice", Active, "1", task.Task{ID: "1", Text: "a", OwnerID: "alice"}))

	got, err := s.Load(ctx, "", Active)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].OwnerID)
}

func TestBlob_NewKeyKeepsTaskID(t *testing.T) {
	s, err := OpenBlob(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "42", s.NewKey(Archived, "42"))
	assert.NotEqual(t, s.NewKey(Active, ""), s.NewKey(Active, ""))
}
