package store

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"medlabel/internal/models"
)

// Field labels in their fixed display order. The persisted file holds one
// labeled line per field followed by a separator line.
var cardLabels = []string{"Medication", "Treats", "Frequency", "Method", "Side effects"}

const cardSeparator = "---"

// CardsStore persists at most one CardRecord at a time. Replace overwrites
// the whole record; readers never observe a mix of two records.
type CardsStore struct {
	mu   sync.Mutex
	path string
}

// OpenCards prepares the cards store at path. The file is created lazily on
// the first Replace.
func OpenCards(path string) (*CardsStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("cards store dir: %w", err)
	}
	return &CardsStore{path: path}, nil
}

// Replace atomically overwrites the persisted record. The new content is
// written to a sibling temp file and renamed into place.
func (s *CardsStore) Replace(rec models.CardRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	for i, value := range recordValues(rec) {
		fmt.Fprintf(&b, "%s: %s\n", cardLabels[i], value)
	}
	b.WriteString(cardSeparator + "\n")

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".cards-*")
	if err != nil {
		return fmt.Errorf("replace cards: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("replace cards: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace cards: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace cards: %w", err)
	}
	return nil
}

// ListRows parses the persisted record into label/value rows in fixed field
// order. Returns an empty slice when no record has been stored yet.
func (s *CardsStore) ListRows() ([]models.CardRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.CardRow{}, nil
		}
		return nil, fmt.Errorf("read cards: %w", err)
	}
	defer f.Close()

	values := make(map[string]string, len(cardLabels))
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == cardSeparator {
			break
		}
		label, value, ok := strings.Cut(line, ": ")
		if !ok {
			label, value, ok = strings.Cut(line, ":")
			if !ok {
				continue
			}
		}
		values[label] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read cards: %w", err)
	}

	rows := make([]models.CardRow, 0, len(cardLabels))
	for _, label := range cardLabels {
		rows = append(rows, models.CardRow{Title: label, Content: values[label]})
	}
	return rows, nil
}

func recordValues(rec models.CardRecord) []string {
	return []string{rec.Medication, rec.Treats, rec.Frequency, rec.Method, rec.SideEffects}
}
