// Package store holds the two process-wide persistent resources: the
// append-only context log backing question answering and the single
// structured card record. Both are file-backed and mutex-guarded; they are
// the only state shared across requests.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// blockSeparator delimits appended context blocks in the backing log.
const blockSeparator = "\n\n"

// ContextStore accumulates normalized text blocks. Blocks are never
// reordered, deleted, or truncated; the full context is the concatenation of
// all blocks in append order.
type ContextStore struct {
	mu   sync.Mutex
	path string
}

// OpenContext opens (or creates) the context log at path. A pre-seeded file
// is used as-is.
func OpenContext(path string) (*ContextStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("context store dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open context store: %w", err)
	}
	f.Close()
	return &ContextStore{path: path}, nil
}

// Append adds one block to the log. Concurrent appends are serialized; a
// block is either fully written or not written at all.
func (s *ContextStore) Append(block string) error {
	if strings.TrimSpace(block) == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("append context: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(block + blockSeparator); err != nil {
		return fmt.Errorf("append context: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync context: %w", err)
	}
	return nil
}

// ReadAll returns the full accumulated context as one string. The snapshot
// reflects every append that completed before the call.
func (s *ContextStore) ReadAll() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("read context: %w", err)
	}
	return string(data), nil
}

// Empty reports whether the store holds no context yet.
func (s *ContextStore) Empty() (bool, error) {
	full, err := s.ReadAll()
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(full) == "", nil
}
