package transient

import (
	"context"
	"log"
	"os"
	"time"
)

const (
	DefaultTTL             = 24 * time.Hour
	DefaultCleanupInterval = time.Hour
)

// StartCleaner launches the background sweep of expired transient files.
func (m *Manager) StartCleaner(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	go m.cleanupLoop(ctx, interval)
}

func (m *Manager) cleanupLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.cleanupExpired(); err != nil {
				log.Printf("cleanup transient files error: %v", err)
			}
		}
	}
}

func (m *Manager) cleanupExpired() error {
	rows, err := m.db.Query(`
		SELECT id, stored_path FROM transient_files
		WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return err
	}
	defer rows.Close()

	type fileRow struct {
		id   int64
		path string
	}
	var files []fileRow
	for rows.Next() {
		var fr fileRow
		if err := rows.Scan(&fr.id, &fr.path); err != nil {
			return err
		}
		files = append(files, fr)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, f := range files {
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			log.Printf("remove transient file %s failed: %v", f.path, err)
			continue
		}
		if _, err := m.db.Exec(`DELETE FROM transient_files WHERE id = ?`, f.id); err != nil {
			log.Printf("delete transient file record %d failed: %v", f.id, err)
		}
	}
	return nil
}
