package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"sevenms-engine/internal/engine"
)

// RunRecord is one persisted analysis run
type RunRecord struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Timeframe  string    `json:"timeframe"`
	Verdict    string    `json:"verdict"`
	Stage      string    `json:"stage"`
	Detail     string    `json:"detail,omitempty"`
	Narration  string    `json:"narration,omitempty"`
	BarCount   int       `json:"bar_count"`
	Payload    []byte    `json:"payload,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Result decodes the stored payload back into a full analysis result
func (rec *RunRecord) Result() (*engine.Result, error) {
	if len(rec.Payload) == 0 {
		return nil, nil
	}
	var res engine.Result
	if err := json.Unmarshal(rec.Payload, &res); err != nil {
		return nil, fmt.Errorf("decode run payload: %w", err)
	}
	return &res, nil
}

// SaveRun persists one analysis result with its full payload
func (r *Repository) SaveRun(ctx context.Context, res *engine.Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode run payload: %w", err)
	}

	query := `
		INSERT INTO analysis_runs (id, symbol, timeframe, verdict, stage, detail, bar_count, payload, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = r.db.Pool.Exec(
		ctx, query,
		res.RunID, res.Symbol, string(res.Timeframe), string(res.Verdict), string(res.Stage),
		res.Detail, res.BarCount, payload, res.StartedAt, res.FinishedAt,
	)
	return err
}

// UpdateRunNarration attaches the generated narration to a stored run
func (r *Repository) UpdateRunNarration(ctx context.Context, runID, narration string) error {
	query := `UPDATE analysis_runs SET narration = $2 WHERE id = $1`
	_, err := r.db.Pool.Exec(ctx, query, runID, narration)
	return err
}

// GetRunByID retrieves a run. Returns nil without error when the run
// does not exist.
func (r *Repository) GetRunByID(ctx context.Context, id string) (*RunRecord, error) {
	query := `
		SELECT id, symbol, timeframe, verdict, stage, COALESCE(detail, ''), COALESCE(narration, ''),
		       bar_count, payload, started_at, finished_at
		FROM analysis_runs
		WHERE id = $1
	`
	rec := &RunRecord{}
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&rec.ID, &rec.Symbol, &rec.Timeframe, &rec.Verdict, &rec.Stage, &rec.Detail,
		&rec.Narration, &rec.BarCount, &rec.Payload, &rec.StartedAt, &rec.FinishedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// ListRuns retrieves recent runs, newest first. An empty symbol
// matches all symbols.
func (r *Repository) ListRuns(ctx context.Context, symbol string, limit int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, symbol, timeframe, verdict, stage, COALESCE(detail, ''), COALESCE(narration, ''),
		       bar_count, payload, started_at, finished_at
		FROM analysis_runs
		WHERE ($1 = '' OR symbol = $1)
		ORDER BY started_at DESC
		LIMIT $2
	`
	rows, err := r.db.Pool.Query(ctx, query, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*RunRecord
	for rows.Next() {
		rec := &RunRecord{}
		if err := rows.Scan(
			&rec.ID, &rec.Symbol, &rec.Timeframe, &rec.Verdict, &rec.Stage, &rec.Detail,
			&rec.Narration, &rec.BarCount, &rec.Payload, &rec.StartedAt, &rec.FinishedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
