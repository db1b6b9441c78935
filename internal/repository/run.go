package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"match-collector/internal/constants"
	"match-collector/internal/tier"

	"github.com/rs/zerolog"
)

// RunRepository keeps one row per collection run.
type RunRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	Requests   int
	Counts     map[tier.Tier]int
	Error      string
}

func NewRunRepository(sqlDB *sql.DB, logger zerolog.Logger) *RunRepository {
	return &RunRepository{
		db:     sqlDB,
		logger: logger,
	}
}

func (r *RunRepository) Start(ctx context.Context, id string, startedAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at) VALUES (?, ?)`,
		id, startedAt.UTC(),
	); err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}
	return nil
}

func (r *RunRepository) Finish(ctx context.Context, run Run) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	counts, err := json.Marshal(run.Counts)
	if err != nil {
		return fmt.Errorf("failed to encode run counts: %w", err)
	}

	finished := time.Now().UTC()
	if run.FinishedAt != nil {
		finished = run.FinishedAt.UTC()
	}

	var runErr sql.NullString
	if run.Error != "" {
		runErr = sql.NullString{String: run.Error, Valid: true}
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, requests = ?, counts = ?, error = ? WHERE id = ?`,
		finished, run.Requests, string(counts), runErr, run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to record run finish: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		r.logger.Warn().Str("run_id", run.ID).Msg("finished a run that was never started")
	}
	return nil
}

func (r *RunRepository) Get(ctx context.Context, id string) (*Run, error) {
	var (
		run      Run
		finished sql.NullTime
		counts   string
		runErr   sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, requests, counts, error FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &run.StartedAt, &finished, &run.Requests, &counts, &runErr)
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}

	if finished.Valid {
		run.FinishedAt = &finished.Time
	}
	run.Error = runErr.String
	if err := json.Unmarshal([]byte(counts), &run.Counts); err != nil {
		return nil, fmt.Errorf("failed to decode run counts: %w", err)
	}
	return &run, nil
}
