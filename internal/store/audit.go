package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ValidationRun is one persisted validation outcome.
type ValidationRun struct {
	ID           uuid.UUID `json:"id"`
	ExpedienteID string    `json:"id_expediente"`
	Mode         string    `json:"mode"`
	Conclusion   bool      `json:"conclusion"`
	Message      string    `json:"message"`
	Report       []byte    `json:"report"`
	CreatedAt    time.Time `json:"created_at"`
}

// Validation run modes.
const (
	ModeArchive    = "archive"
	ModeSequential = "sequential"
)

// RecordValidationRun inserts one audit row and returns its id.
func (s *Store) RecordValidationRun(ctx context.Context, run ValidationRun) (uuid.UUID, error) {
	id := uuid.New()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO validation_runs (id, expediente_id, mode, conclusion, message, report)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, run.ExpedienteID, run.Mode, run.Conclusion, run.Message, run.Report)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to record validation run: %w", err)
	}

	s.logger.Debug("validation run recorded",
		slog.String("id", id.String()),
		slog.String("expediente", run.ExpedienteID),
		slog.Bool("conclusion", run.Conclusion))
	return id, nil
}

// GetValidationRun fetches one audit row by id.
func (s *Store) GetValidationRun(ctx context.Context, id uuid.UUID) (*ValidationRun, error) {
	run := &ValidationRun{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, expediente_id, mode, conclusion, message, report, created_at
		FROM validation_runs WHERE id = $1`, id).
		Scan(&run.ID, &run.ExpedienteID, &run.Mode, &run.Conclusion, &run.Message, &run.Report, &run.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get validation run %s: %w", id, err)
	}
	return run, nil
}

// ListValidationRuns returns the most recent audit rows for one expediente,
// newest first.
func (s *Store) ListValidationRuns(ctx context.Context, expedienteID string, limit int) ([]ValidationRun, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, expediente_id, mode, conclusion, message, report, created_at
		FROM validation_runs
		WHERE expediente_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, expedienteID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list validation runs: %w", err)
	}
	defer rows.Close()

	var runs []ValidationRun
	for rows.Next() {
		var run ValidationRun
		if err := rows.Scan(&run.ID, &run.ExpedienteID, &run.Mode, &run.Conclusion, &run.Message, &run.Report, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan validation run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
