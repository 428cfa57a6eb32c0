package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/results"
)

// ResultsArchive keeps the final report of every finished session after the
// realtime store has expired it.
type ResultsArchive struct {
	pool *pgxpool.Pool
}

func NewResultsArchive(pool *pgxpool.Pool) *ResultsArchive {
	return &ResultsArchive{pool: pool}
}

// SaveResults upserts the session summary and one row per ranked participant.
func (a *ResultsArchive) SaveResults(ctx context.Context, session domain.Session, report results.Report) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	return a.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO session_results (session_id, code, title, started_at, finished_at, report)
			VALUES ($1, $2, $3, $4, $5, $6::jsonb)
			ON CONFLICT (session_id) DO UPDATE SET report = EXCLUDED.report, finished_at = EXCLUDED.finished_at`,
			session.ID, session.Code, session.Quiz.Title, session.StartedAt, session.FinishedAt, string(raw),
		)
		if err != nil {
			return fmt.Errorf("insert session result: %w", err)
		}

		batch := &pgx.Batch{}
		batch.Queue(`DELETE FROM participant_results WHERE session_id = $1`, session.ID)
		for _, e := range report.Ranking {
			batch.Queue(`
				INSERT INTO participant_results (session_id, participant_id, name, rank, score, correct_count, completed_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				session.ID, e.ParticipantID, e.Name, e.Rank, e.Score, e.CorrectCount, e.CompletedAt,
			)
		}
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("insert participant results: %w", err)
			}
		}
		return br.Close()
	})
}

// LoadResults returns the archived report for a finished session.
func (a *ResultsArchive) LoadResults(ctx context.Context, sessionID string) (results.Report, error) {
	var raw []byte
	err := a.pool.QueryRow(ctx, `SELECT report FROM session_results WHERE session_id = $1`, sessionID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return results.Report{}, domain.ErrSessionNotFound.Wrap(err)
	}
	if err != nil {
		return results.Report{}, fmt.Errorf("load results: %w", err)
	}

	var report results.Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return results.Report{}, fmt.Errorf("unmarshal report: %w", err)
	}
	return report, nil
}
