package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"match-collector/internal/constants"
	"match-collector/internal/domain"

	"github.com/rs/zerolog"
)

var ErrDocumentNotFound = errors.New("document not found")

// DocumentRepository persists fetched documents keyed by category and id.
// Saving an existing key replaces its body.
type DocumentRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewDocumentRepository(sqlDB *sql.DB, logger zerolog.Logger) *DocumentRepository {
	return &DocumentRepository{
		db:     sqlDB,
		logger: logger,
	}
}

const upsertDocument = `
INSERT INTO documents (category, id, body)
VALUES (?, ?, ?)
ON CONFLICT (category, id) DO UPDATE SET
    body = excluded.body,
    updated_at = CURRENT_TIMESTAMP`

func (r *DocumentRepository) Save(ctx context.Context, doc domain.Document) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, upsertDocument, string(doc.Category), doc.ID, []byte(doc.Body)); err != nil {
		return fmt.Errorf("failed to save %s document %s: %w", doc.Category, doc.ID, err)
	}

	r.logger.Debug().
		Str("category", string(doc.Category)).
		Str("id", doc.ID).
		Int("bytes", len(doc.Body)).
		Msg("document saved")
	return nil
}

func (r *DocumentRepository) Get(ctx context.Context, category domain.Category, id string) (*domain.Document, error) {
	var body []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE category = ? AND id = ?`,
		string(category), id,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s document %s: %w", category, id, err)
	}
	return &domain.Document{Category: category, ID: id, Body: body}, nil
}

func (r *DocumentRepository) Count(ctx context.Context, category domain.Category) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE category = ?`, string(category),
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s documents: %w", category, err)
	}
	return n, nil
}
