package store

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// UUIDv7Generator generates time-sortable UUIDv7 document keys.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// MillisGenerator generates decimal millisecond timestamps, bumped by one
// whenever the clock has not advanced past the previous key. Keys are
// therefore unique and strictly increasing within a process.
type MillisGenerator struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewMillisGenerator creates a generator reading the wall clock.
func NewMillisGenerator() *MillisGenerator {
	return &MillisGenerator{now: time.Now}
}

// Generate returns the next key.
func (g *MillisGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return strconv.FormatInt(ms, 10)
}
