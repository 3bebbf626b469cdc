package intake

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/cloudwego/eino-ext/components/document/loader/file"
	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/components/document/parser"

	"medlabel/internal/textnorm"
)

// SeedContext pre-populates an empty context store from .txt documents in
// dir, one appended block per document. A store that already holds context
// is left untouched.
func (s *Service) SeedContext(ctx context.Context, dir string) error {
	if dir == "" {
		return nil
	}
	empty, err := s.contexts.Empty()
	if err != nil {
		return fmt.Errorf("seed context: %w", err)
	}
	if !empty {
		return nil
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return fmt.Errorf("seed context: %w", err)
	}
	if len(paths) == 0 {
		return nil
	}

	loader, err := file.NewFileLoader(ctx, &file.FileLoaderConfig{
		UseNameAsID: true,
		Parser:      parser.TextParser{},
	})
	if err != nil {
		return fmt.Errorf("seed context: init loader: %w", err)
	}

	for _, path := range paths {
		docs, err := loader.Load(ctx, document.Source{URI: path})
		if err != nil {
			return fmt.Errorf("seed context: load %s: %w", path, err)
		}
		var b strings.Builder
		for _, doc := range docs {
			b.WriteString(doc.Content)
			b.WriteString("\n")
		}
		block := textnorm.Normalize(b.String())
		if block == "" {
			continue
		}
		if err := s.contexts.Append(block); err != nil {
			return fmt.Errorf("seed context: append %s: %w", path, err)
		}
		log.Printf("seeded context from %s", filepath.Base(path))
	}
	return nil
}
