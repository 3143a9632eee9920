package server

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"shitpants-server/internal/shitpants"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS match_results (
	id BIGSERIAL PRIMARY KEY,
	game_id TEXT NOT NULL,
	game_name TEXT NOT NULL,
	winner TEXT NOT NULL,
	players TEXT[] NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// HistoryRecorder writes finished-match results to Postgres. It is a
// best-effort audit trail: games run entirely in memory, and a recorder
// failure never blocks play.
type HistoryRecorder struct {
	pool *pgxpool.Pool
}

// NewHistoryRecorder connects to databaseURL and ensures the results table
// exists.
func NewHistoryRecorder(ctx context.Context, databaseURL string) (*HistoryRecorder, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("HISTORY_CONNECT: %w", err)
	}

	if _, err := pool.Exec(ctx, historySchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("HISTORY_SCHEMA: %w", err)
	}

	return &HistoryRecorder{pool: pool}, nil
}

// RecordResult stores the outcome of a finished game.
func (h *HistoryRecorder) RecordResult(ctx context.Context, g shitpants.Game) error {
	if !g.Finished() {
		return fmt.Errorf("HISTORY_NOT_FINISHED: game %s has no winner yet", g.Id)
	}

	players := make([]string, len(g.Players))
	for i, p := range g.Players {
		players[i] = p.Id
	}

	_, err := h.pool.Exec(ctx,
		`INSERT INTO match_results (game_id, game_name, winner, players) VALUES ($1, $2, $3, $4)`,
		g.Id, g.Name, g.WinnerId, players)
	if err != nil {
		return fmt.Errorf("HISTORY_INSERT: %w", err)
	}
	return nil
}

// MatchResult is one row of the audit trail.
type MatchResult struct {
	GameId     string    `json:"gameId"`
	GameName   string    `json:"gameName"`
	Winner     string    `json:"winner"`
	Players    []string  `json:"players"`
	FinishedAt time.Time `json:"finishedAt"`
}

// RecentResults returns the latest finished matches, newest first.
func (h *HistoryRecorder) RecentResults(ctx context.Context, limit int) ([]MatchResult, error) {
	rows, err := h.pool.Query(ctx,
		`SELECT game_id, game_name, winner, players, finished_at
		 FROM match_results ORDER BY finished_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("HISTORY_QUERY: %w", err)
	}
	defer rows.Close()

	var results []MatchResult
	for rows.Next() {
		var r MatchResult
		if err := rows.Scan(&r.GameId, &r.GameName, &r.Winner, &r.Players, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("HISTORY_SCAN: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (h *HistoryRecorder) Ping(ctx context.Context) error {
	return h.pool.Ping(ctx)
}

func (h *HistoryRecorder) Close() {
	h.pool.Close()
}
