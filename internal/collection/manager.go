package collection

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/roach88/todo/internal/notify"
	"github.com/roach88/todo/internal/store"
	"github.com/roach88/todo/internal/task"
)

// Manager owns the active and archived sets for one session at a time.
type Manager struct {
	store  store.Adapter
	logger *slog.Logger

	active   []task.Task
	archived []task.Task

	owner string
	epoch uint64
	seq   int64

	// Unsettled toggle and edit ops per task field, in issue order.
	pending map[string][]*Op
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger for reconciliation diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// New creates a Manager with empty sets and no session.
func New(a store.Adapter, opts ...Option) *Manager {
	m := &Manager{
		store:    a,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		active:   []task.Task{},
		archived: []task.Task{},
		pending:  make(map[string][]*Op),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Active returns a copy of the active set in insertion order.
func (m *Manager) Active() []task.Task {
	return slices.Clone(m.active)
}

// Archived returns a copy of the archived set in archive order.
func (m *Manager) Archived() []task.Task {
	return slices.Clone(m.archived)
}

// Get finds id in either set.
func (m *Manager) Get(id string) (task.Task, store.Collection, bool) {
	if i := indexOf(m.active, id); i >= 0 {
		return m.active[i], store.Active, true
	}
	if i := indexOf(m.archived, id); i >= 0 {
		return m.archived[i], store.Archived, true
	}
	return task.Task{}, "", false
}

// Owner returns the current session owner, "" when signed out.
func (m *Manager) Owner() string {
	return m.owner
}

// Epoch returns the current session epoch.
func (m *Manager) Epoch() uint64 {
	return m.epoch
}

// Resolve expands an id or unique id prefix to a full id in collection c.
func (m *Manager) Resolve(c store.Collection, prefix string) (string, error) {
	set := m.active
	if c == store.Archived {
		set = m.archived
	}
	if prefix == "" {
		return "", task.Validation("resolve", "task id must not be empty")
	}
	if indexOf(set, prefix) >= 0 {
		return prefix, nil
	}
	var matches []string
	for _, t := range set {
		if strings.HasPrefix(t.ID, prefix) {
			matches = append(matches, t.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", task.NotFound("resolve", prefix)
	case 1:
		return matches[0], nil
	default:
		return "", task.Validation("resolve", "id prefix %q is ambiguous (%d matches)", prefix, len(matches))
	}
}

// Reset clears both sets and starts a new session epoch. Ops issued before
// the reset no longer affect memory when they settle.
func (m *Manager) Reset() {
	m.active = []task.Task{}
	m.archived = []task.Task{}
	m.pending = make(map[string][]*Op)
	m.epoch++
}

// SwitchSession resets for owner ("" when signed out) and returns the op
// that loads the owner's sets.
func (m *Manager) SwitchSession(owner string) *Op {
	m.Reset()
	m.owner = owner
	return m.newOp(KindLoad, "")
}

// Reload returns an op that replaces both sets with the stored ones for the
// current owner. Memory is untouched until the op settles.
func (m *Manager) Reload() *Op {
	return m.newOp(KindLoad, "")
}

// Load switches to owner and loads synchronously.
func (m *Manager) Load(ctx context.Context, owner string) notify.Notification {
	op := m.SwitchSession(owner)
	return m.Settle(op, m.Persist(ctx, op))
}

func (m *Manager) newOp(kind Kind, id string) *Op {
	return &Op{Kind: kind, TaskID: id, Owner: m.owner, Epoch: m.epoch, index: -1}
}

func (m *Manager) authorize(op string) error {
	if m.store.RequiresOwner() && m.owner == "" {
		return task.Unauthorized(op)
	}
	return nil
}

// Add appends a new pending task. Empty category and priority take their
// defaults; a zero dueAt means no due date.
func (m *Manager) Add(text, category string, dueAt time.Time, priority task.Priority) (*Op, error) {
	if err := m.authorize("add"); err != nil {
		return nil, err
	}
	text = task.NormalizeText(text)
	if text == "" {
		return nil, task.Validation("add", "task text must not be empty")
	}
	if priority == "" {
		priority = task.DefaultPriority
	}
	if !priority.Valid() {
		return nil, task.Validation("add", "unknown priority %q", priority)
	}
	category = strings.TrimSpace(category)
	if category == "" {
		category = task.DefaultCategory
	}

	t := task.Task{
		ID:       m.store.NewKey(store.Active, ""),
		Text:     text,
		Category: category,
		Priority: priority,
		DueAt:    dueAt,
		OwnerID:  m.owner,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if _, _, exists := m.Get(t.ID); exists {
		return nil, task.Validation("add", "store key %q already in use", t.ID)
	}

	m.active = append(m.active, t)

	op := m.newOp(KindAdd, t.ID)
	op.Key = t.ID
	op.Task = t
	return op, nil
}

// ToggleComplete flips the completion flag of an active task.
func (m *Manager) ToggleComplete(id string) (*Op, error) {
	if err := m.authorize("toggle"); err != nil {
		return nil, err
	}
	i := indexOf(m.active, id)
	if i < 0 {
		return nil, task.NotFound("toggle", id)
	}

	prev := m.active[i]
	m.active[i].Completed = !prev.Completed

	op := m.newOp(KindToggle, id)
	op.Key = id
	op.Fields = task.CompletedField(!prev.Completed)
	op.prev = prev
	m.track(op)
	return op, nil
}

// Edit replaces the text of an active task.
func (m *Manager) Edit(id, text string) (*Op, error) {
	if err := m.authorize("edit"); err != nil {
		return nil, err
	}
	text = task.NormalizeText(text)
	if text == "" {
		return nil, task.Validation("edit", "task text must not be empty")
	}
	i := indexOf(m.active, id)
	if i < 0 {
		return nil, task.NotFound("edit", id)
	}

	prev := m.active[i]
	m.active[i].Text = text

	op := m.newOp(KindEdit, id)
	op.Key = id
	op.Fields = task.TextField(text)
	op.prev = prev
	m.track(op)
	return op, nil
}

// Archive moves an active task to the end of the archived set.
func (m *Manager) Archive(id string) (*Op, error) {
	if err := m.authorize("archive"); err != nil {
		return nil, err
	}
	i := indexOf(m.active, id)
	if i < 0 {
		return nil, task.NotFound("archive", id)
	}

	t := m.active[i]
	m.active = slices.Delete(m.active, i, i+1)
	m.archived = append(m.archived, t)

	op := m.newOp(KindArchive, id)
	op.Key = m.store.NewKey(store.Archived, id)
	op.Task = t
	op.prev = t
	op.index = i
	return op, nil
}

// DeleteActive removes an active task.
func (m *Manager) DeleteActive(id string) (*Op, error) {
	if err := m.authorize("delete"); err != nil {
		return nil, err
	}
	i := indexOf(m.active, id)
	if i < 0 {
		return nil, task.NotFound("delete", id)
	}

	prev := m.active[i]
	m.active = slices.Delete(m.active, i, i+1)

	op := m.newOp(KindDelete, id)
	op.Key = id
	op.prev = prev
	op.index = i
	return op, nil
}

// DeleteArchived removes an archived task. Its store key is resolved by
// logical id when the op is persisted.
func (m *Manager) DeleteArchived(id string) (*Op, error) {
	if err := m.authorize("deleteArchived"); err != nil {
		return nil, err
	}
	i := indexOf(m.archived, id)
	if i < 0 {
		return nil, task.NotFound("deleteArchived", id)
	}

	prev := m.archived[i]
	m.archived = slices.Delete(m.archived, i, i+1)

	op := m.newOp(KindDeleteArchived, id)
	op.prev = prev
	op.index = i
	return op, nil
}

// Persist performs the durable side of op. It reads only op and the adapter,
// so it may run on any goroutine while the loop keeps going.
func (m *Manager) Persist(ctx context.Context, op *Op) error {
	s, owner := m.store, op.Owner

	switch op.Kind {
	case KindLoad:
		if owner == "" && s.RequiresOwner() {
			op.loaded = [2][]task.Task{{}, {}}
			return nil
		}
		active, err := s.Load(ctx, owner, store.Active)
		if err != nil {
			return err
		}
		op.stage = stageLoadedActive
		archived, err := s.Load(ctx, owner, store.Archived)
		if err != nil {
			return err
		}
		op.loaded = [2][]task.Task{active, archived}
		return nil

	case KindAdd:
		return s.Create(ctx, owner, store.Active, op.Key, op.Task)

	case KindToggle, KindEdit:
		return s.Update(ctx, owner, store.Active, op.Key, op.Fields)

	case KindDelete:
		return s.Delete(ctx, owner, store.Active, op.Key)

	case KindArchive:
		if err := s.Create(ctx, owner, store.Archived, op.Key, op.Task); err != nil {
			return err
		}
		op.stage = stageArchiveCreated
		if err := s.Delete(ctx, owner, store.Active, op.TaskID); err != nil {
			// Undo the half-done move so the task is only stored once.
			op.compensated = s.Delete(ctx, owner, store.Archived, op.Key)
			return err
		}
		op.stage = stageArchiveDone
		return nil

	case KindDeleteArchived:
		key, err := s.Lookup(ctx, owner, store.Archived, op.TaskID)
		if err != nil {
			return err
		}
		op.Key = key
		op.stage = stageLookedUp
		return s.Delete(ctx, owner, store.Archived, key)
	}

	return fmt.Errorf("persist: unknown op kind %q", op.Kind)
}

// Settle reconciles memory with the outcome of Persist and returns the op's
// notification.
func (m *Manager) Settle(op *Op, err error) notify.Notification {
	if op.Epoch != m.epoch {
		m.logger.Debug("settling op from previous session",
			"op", op.Kind, "task", op.TaskID, "epoch", op.Epoch, "current", m.epoch)
		return m.outcome(op, err)
	}

	if op.Kind == KindLoad {
		if err != nil {
			m.active, m.archived = []task.Task{}, []task.Task{}
		} else {
			m.active, m.archived = op.loaded[0], op.loaded[1]
		}
		return m.outcome(op, err)
	}

	if op.Kind == KindToggle || op.Kind == KindEdit {
		m.settleField(op, err)
		return m.outcome(op, err)
	}
	if err != nil {
		m.rollback(op)
	}
	return m.outcome(op, err)
}

func fieldKey(op *Op) string {
	return string(op.Kind) + "/" + op.TaskID
}

func (m *Manager) track(op *Op) {
	k := fieldKey(op)
	m.pending[k] = append(m.pending[k], op)
}

// settleField reconciles a toggle or edit with the other unsettled writes of
// the same field. Memory shows the newest pending value. A failed op hands its
// previous value to the next newer pending op and only the newest restores it.
// Once a newer write succeeded, older failures leave memory alone.
func (m *Manager) settleField(op *Op, err error) {
	k := fieldKey(op)
	chain := m.pending[k]
	i := slices.Index(chain, op)
	if i < 0 {
		if err != nil {
			m.restoreField(op)
		}
		return
	}
	chain = slices.Delete(chain, i, i+1)
	if len(chain) == 0 {
		delete(m.pending, k)
	} else {
		m.pending[k] = chain
	}

	switch {
	case err == nil:
		for _, older := range chain[:i] {
			older.superseded = true
		}
	case op.superseded:
		m.logger.Debug("failed write already superseded", "op", op.Kind, "task", op.TaskID)
	case i < len(chain):
		next := chain[i]
		next.prev.Completed = op.prev.Completed
		next.prev.Text = op.prev.Text
	default:
		m.restoreField(op)
	}
}

func (m *Manager) restoreField(op *Op) {
	i := indexOf(m.active, op.TaskID)
	if i < 0 {
		return
	}
	switch op.Kind {
	case KindToggle:
		m.active[i].Completed = op.prev.Completed
	case KindEdit:
		m.active[i].Text = op.prev.Text
	}
	m.logger.Debug("rolled back", "op", op.Kind, "task", op.TaskID)
}

// Fail returns the failure notification for a command rejected before any
// state changed (validation, not found, no session).
func (m *Manager) Fail(kind Kind, taskID string, err error) notify.Notification {
	return m.outcome(&Op{Kind: kind, TaskID: taskID}, err)
}

func (m *Manager) rollback(op *Op) {
	id := op.TaskID

	switch op.Kind {
	case KindAdd:
		if i := indexOf(m.active, id); i >= 0 {
			m.active = slices.Delete(m.active, i, i+1)
		}

	case KindDelete:
		if _, _, exists := m.Get(id); !exists {
			m.active = insertAt(m.active, op.index, op.prev)
		}

	case KindArchive:
		if op.compensated != nil {
			m.logger.Warn("archived copy left behind after failed archive",
				"task", id, "key", op.Key, "error", op.compensated)
		}
		j := indexOf(m.archived, id)
		if j >= 0 && indexOf(m.active, id) < 0 {
			t := m.archived[j]
			m.archived = slices.Delete(m.archived, j, j+1)
			m.active = insertAt(m.active, op.index, t)
		}

	case KindDeleteArchived:
		if _, _, exists := m.Get(id); !exists {
			m.archived = insertAt(m.archived, op.index, op.prev)
		}
	}

	m.logger.Debug("rolled back", "op", op.Kind, "task", id)
}

var outcomes = map[Kind]struct {
	level   notify.Level
	success string
	failure string
}{
	KindLoad:           {notify.LevelInfo, "Tasks loaded", "Failed to load tasks"},
	KindAdd:            {notify.LevelSuccess, "Task added", "Failed to add task"},
	KindToggle:         {notify.LevelInfo, "Task status updated", "Failed to update task"},
	KindEdit:           {notify.LevelSuccess, "Task updated", "Failed to update task"},
	KindArchive:        {notify.LevelInfo, "Task archived", "Failed to archive task"},
	KindDelete:         {notify.LevelInfo, "Task deleted", "Failed to delete task"},
	KindDeleteArchived: {notify.LevelSuccess, "Archived task deleted", "Failed to delete archived task"},
}

func (m *Manager) outcome(op *Op, err error) notify.Notification {
	m.seq++
	o := outcomes[op.Kind]
	n := notify.Notification{
		Seq:    m.seq,
		Op:     string(op.Kind),
		TaskID: op.TaskID,
	}
	if err == nil {
		n.Level = o.level
		n.Message = o.success
		return n
	}

	prefix := o.failure
	if op.Kind == KindLoad && op.stage == stageLoadedActive {
		prefix = "Failed to load archived tasks"
	}
	n.Level = notify.LevelError
	n.Message = prefix + ": " + err.Error()
	if op.compensated != nil {
		n.Message += " (archived copy not removed: " + op.compensated.Error() + ")"
	}
	n.Code = task.CodeOf(err)
	n.Err = err
	return n
}

func indexOf(set []task.Task, id string) int {
	return slices.IndexFunc(set, func(t task.Task) bool { return t.ID == id })
}

func insertAt(set []task.Task, i int, t task.Task) []task.Task {
	if i < 0 || i > len(set) {
		i = len(set)
	}
	return slices.Insert(set, i, t)
}
