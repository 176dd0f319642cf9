package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is one recorded invocation of the pipeline.
type Run struct {
	ID           string
	Mode         string
	Source       string
	BriefTitle   string
	Status       RunStatus
	Clips        int
	AnalysisRate float64
	Plans        int
	DocumentPath string
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// RunOutcome is what a finished run reports back.
type RunOutcome struct {
	Clips        int
	AnalysisRate float64
	Plans        int
	DocumentPath string
	Err          error
}

var ErrRunNotFound = errors.New("run not found")

const runColumns = "id, mode, source, brief_title, status, clips, analysis_rate, plans, document_path, error_message, started_at, finished_at"

func (s *Store) BeginRun(ctx context.Context, r Run) error {
	if r.ID == "" {
		return errors.New("begin run: id is required")
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	_, err := s.exec(ctx,
		`INSERT INTO runs (id, mode, source, brief_title, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.Mode, r.Source, r.BriefTitle, string(RunRunning), formatTime(r.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

func (s *Store) FinishRun(ctx context.Context, id string, out RunOutcome) error {
	status, msg := RunCompleted, ""
	if out.Err != nil {
		status, msg = RunFailed, out.Err.Error()
	}
	res, err := s.exec(ctx,
		`UPDATE runs SET status = ?, clips = ?, analysis_rate = ?, plans = ?, document_path = ?, error_message = ?, finished_at = ? WHERE id = ?`,
		string(status), out.Clips, out.AnalysisRate, out.Plans, out.DocumentPath, msg, formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	return r, err
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, "SELECT "+runColumns+" FROM runs ORDER BY started_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		r        Run
		status   string
		started  sql.NullString
		finished sql.NullString
	)
	if err := scanner.Scan(&r.ID, &r.Mode, &r.Source, &r.BriefTitle, &status, &r.Clips, &r.AnalysisRate,
		&r.Plans, &r.DocumentPath, &r.ErrorMessage, &started, &finished); err != nil {
		return Run{}, err
	}
	r.Status = RunStatus(status)
	r.StartedAt = parseTime(started)
	r.FinishedAt = parseTime(finished)
	return r, nil
}
