// Package testutil provides deterministic collaborators for tests and the
// scenario harness.
package testutil

import (
	"strconv"
	"sync"
)

// SequentialKeys generates store keys prefix1, prefix2, ... so traces and
// golden files are stable across runs.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialKeys struct {
	mu     sync.Mutex
	prefix string
	n      int64
}

// NewSequentialKeys creates a generator whose first key is prefix+"1".
func NewSequentialKeys(prefix string) *SequentialKeys {
	return &SequentialKeys{prefix: prefix}
}

// Generate returns the next key.
func (k *SequentialKeys) Generate() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.n++
	return k.prefix + strconv.FormatInt(k.n, 10)
}

// Reset restarts the sequence. After Reset, the next key is prefix+"1".
func (k *SequentialKeys) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.n = 0
}
