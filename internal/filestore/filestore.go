package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"match-collector/internal/domain"

	"github.com/rs/zerolog"
)

var categoryDirs = map[domain.Category]string{
	domain.CategoryMatch:       "games",
	domain.CategoryPlayerTiers: "summoner_divisions",
}

// Store writes each document as an indented JSON file under
// <dir>/<category dir>/<id>.json.
type Store struct {
	dir    string
	logger zerolog.Logger
}

func New(dir string, logger zerolog.Logger) (*Store, error) {
	for _, sub := range categoryDirs {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	return &Store{dir: dir, logger: logger}, nil
}

func (s *Store) Path(category domain.Category, id string) (string, error) {
	sub, ok := categoryDirs[category]
	if !ok {
		return "", fmt.Errorf("unknown document category %q", category)
	}
	if id == "" || id != filepath.Base(id) || id == "." || id == ".." {
		return "", fmt.Errorf("invalid document id %q", id)
	}
	return filepath.Join(s.dir, sub, id+".json"), nil
}

func (s *Store) Save(ctx context.Context, doc domain.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.Path(doc.Category, doc.ID)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, doc.Body, "", "    "); err != nil {
		return fmt.Errorf("failed to format %s document %s: %w", doc.Category, doc.ID, err)
	}
	buf.WriteByte('\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}

	s.logger.Debug().Str("path", path).Msg("document written")
	return nil
}
