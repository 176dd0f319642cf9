package store

import (
	"context"
	"fmt"
	"time"

	"github.com/forPelevin/roughcut/internal/types"
)

// SavePayloads stores opaque inference payloads for a run, replacing any
// earlier payload for the same segment.
func (s *Store) SavePayloads(ctx context.Context, runID, clip string, atts []types.Attachment) error {
	if len(atts) == 0 {
		return nil
	}
	now := formatTime(time.Now())
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR REPLACE INTO payloads (run_id, clip, segment_id, payload, created_at) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, a := range atts {
			if _, err := stmt.ExecContext(ctx, runID, clip, a.SegmentID, []byte(a.Payload), now); err != nil {
				return fmt.Errorf("save payload %s/%s: %w", clip, a.SegmentID, err)
			}
		}
		return tx.Commit()
	})
}

// Payloads returns the stored payloads of one clip in a run, ordered by
// segment id.
func (s *Store) Payloads(ctx context.Context, runID, clip string) ([]types.Attachment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT segment_id, payload FROM payloads WHERE run_id = ? AND clip = ? ORDER BY segment_id`, runID, clip)
	if err != nil {
		return nil, fmt.Errorf("list payloads: %w", err)
	}
	defer rows.Close()
	var out []types.Attachment
	for rows.Next() {
		var a types.Attachment
		var b []byte
		if err := rows.Scan(&a.SegmentID, &b); err != nil {
			return nil, err
		}
		a.Payload = b
		out = append(out, a)
	}
	return out, rows.Err()
}

// RunSink binds the store to one run so it can serve as the pipeline's
// payload sink.
type RunSink struct {
	Store *Store
	RunID string
}

func (r RunSink) SavePayloads(ctx context.Context, clip string, atts []types.Attachment) error {
	return r.Store.SavePayloads(ctx, r.RunID, clip, atts)
}
