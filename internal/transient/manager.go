// Package transient manages request-scoped files: uploaded audio, converted
// waveforms, preprocessed scans and synthesized responses. Every file is
// registered in the transient_files table with an expiry, so artifacts that
// outlive their request (the response audio served by a later request) are
// still swept eventually.
package transient

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Manager allocates unique per-request file names under a base directory and
// guarantees best-effort removal.
type Manager struct {
	db      *sql.DB
	baseDir string
	ttl     time.Duration
}

// NewManager creates the manager rooted at baseDir. Registered files expire
// after ttl and are removed by the background cleaner.
func NewManager(db *sql.DB, baseDir string, ttl time.Duration) (*Manager, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("transient base dir required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create transient dir: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{db: db, baseDir: baseDir, ttl: ttl}, nil
}

// BaseDir returns the directory transient files live in.
func (m *Manager) BaseDir() string { return m.baseDir }

// Allocate returns a fresh opaque request token. Tokens are random, not
// sequential, so concurrent requests cannot collide.
func (m *Manager) Allocate() string {
	return uuid.NewString()
}

// Path builds the token-qualified filename for one transient kind.
func (m *Manager) Path(kind, token, ext string) string {
	return filepath.Join(m.baseDir, fmt.Sprintf("%s_%s%s", kind, token, ext))
}

// Register records a transient file in the registry so the cleaner can sweep
// it if the owning request never releases it.
func (m *Manager) Register(ctx context.Context, token, kind, path string) error {
	now := time.Now().UTC()
	_, err := m.db.ExecContext(ctx,
		`INSERT INTO transient_files (token, kind, stored_path, created_at, expires_at) VALUES (?, ?, ?, ?, ?)`,
		token, kind, path, now, now.Add(m.ttl),
	)
	if err != nil {
		return fmt.Errorf("register transient file: %w", err)
	}
	return nil
}

// Release removes files and their registry rows best-effort. A missing file
// is not an error.
func (m *Manager) Release(paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			continue
		}
		_, _ = m.db.Exec(`DELETE FROM transient_files WHERE stored_path = ?`, path)
	}
}

// Resolve maps a client-supplied artifact name back to a file under the base
// directory, refusing path traversal.
func (m *Manager) Resolve(name string) (string, error) {
	base := filepath.Base(name)
	if base != name || base == "." || base == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	path := filepath.Join(m.baseDir, base)
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}
