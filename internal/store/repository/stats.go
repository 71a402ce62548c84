package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fortuna/laurel/internal/store"
)

// StatsRepository handles box score data access
type StatsRepository struct {
	q querier
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db *store.Database) *StatsRepository {
	return &StatsRepository{q: db.DB()}
}

// WithTx returns a copy of the repository bound to tx.
func (r *StatsRepository) WithTx(tx *sql.Tx) *StatsRepository {
	return &StatsRepository{q: tx}
}

// GetPlayerGameStats returns stats for a player in a specific game
func (r *StatsRepository) GetPlayerGameStats(ctx context.Context, gameID, playerID int) (*store.PlayerGameStats, error) {
	query := `
		SELECT stat_id, game_id, player_id,
			two_pointers_made, two_pointers_attempted,
			three_pointers_made, three_pointers_attempted,
			free_throws_made, free_throws_attempted,
			personal_fouls, created_at, updated_at
		FROM player_game_stats
		WHERE game_id = $1 AND player_id = $2
	`

	stats := &store.PlayerGameStats{}
	err := r.q.QueryRowContext(ctx, query, gameID, playerID).Scan(
		&stats.StatID, &stats.GameID, &stats.PlayerID,
		&stats.TwoPointersMade, &stats.TwoPointersAttempted,
		&stats.ThreePointersMade, &stats.ThreePointersAttempted,
		&stats.FreeThrowsMade, &stats.FreeThrowsAttempted,
		&stats.PersonalFouls, &stats.CreatedAt, &stats.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("stats not found for game %d, player %d: %w", gameID, playerID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying player stats: %w", err)
	}

	return stats, nil
}

// GetGameBoxScore returns all player stats for a game
func (r *StatsRepository) GetGameBoxScore(ctx context.Context, gameID int) ([]*store.PlayerGameStats, error) {
	query := `
		SELECT stat_id, game_id, player_id,
			two_pointers_made, two_pointers_attempted,
			three_pointers_made, three_pointers_attempted,
			free_throws_made, free_throws_attempted,
			personal_fouls, created_at, updated_at
		FROM player_game_stats
		WHERE game_id = $1
		ORDER BY player_id
	`

	rows, err := r.q.QueryContext(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("querying box score: %w", err)
	}
	defer rows.Close()

	return r.scanPlayerStats(rows)
}

// GetQuarterStats returns the quarter breakdown of one stat line
func (r *StatsRepository) GetQuarterStats(ctx context.Context, statID int) ([]*store.PlayerQuarterStats, error) {
	query := `
		SELECT id, stat_id, quarter,
			two_pointers_made, two_pointers_attempted,
			three_pointers_made, three_pointers_attempted,
			free_throws_made, free_throws_attempted
		FROM player_quarter_stats
		WHERE stat_id = $1
		ORDER BY quarter
	`

	rows, err := r.q.QueryContext(ctx, query, statID)
	if err != nil {
		return nil, fmt.Errorf("querying quarter stats: %w", err)
	}
	defer rows.Close()

	var quarters []*store.PlayerQuarterStats
	for rows.Next() {
		q := &store.PlayerQuarterStats{}
		err := rows.Scan(
			&q.ID, &q.StatID, &q.Quarter,
			&q.TwoPointersMade, &q.TwoPointersAttempted,
			&q.ThreePointersMade, &q.ThreePointersAttempted,
			&q.FreeThrowsMade, &q.FreeThrowsAttempted,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning quarter stats: %w", err)
		}
		quarters = append(quarters, q)
	}

	return quarters, rows.Err()
}

// UpsertPlayerGameStats inserts or updates a player's box score line and sets its StatID
func (r *StatsRepository) UpsertPlayerGameStats(ctx context.Context, stats *store.PlayerGameStats) error {
	query := `
		INSERT INTO player_game_stats (
			game_id, player_id,
			two_pointers_made, two_pointers_attempted,
			three_pointers_made, three_pointers_attempted,
			free_throws_made, free_throws_attempted,
			personal_fouls
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (game_id, player_id) DO UPDATE SET
			two_pointers_made = EXCLUDED.two_pointers_made,
			two_pointers_attempted = EXCLUDED.two_pointers_attempted,
			three_pointers_made = EXCLUDED.three_pointers_made,
			three_pointers_attempted = EXCLUDED.three_pointers_attempted,
			free_throws_made = EXCLUDED.free_throws_made,
			free_throws_attempted = EXCLUDED.free_throws_attempted,
			personal_fouls = EXCLUDED.personal_fouls,
			updated_at = NOW()
		RETURNING stat_id
	`

	err := r.q.QueryRowContext(ctx, query,
		stats.GameID, stats.PlayerID,
		stats.TwoPointersMade, stats.TwoPointersAttempted,
		stats.ThreePointersMade, stats.ThreePointersAttempted,
		stats.FreeThrowsMade, stats.FreeThrowsAttempted,
		stats.PersonalFouls,
	).Scan(&stats.StatID)

	if err != nil {
		return fmt.Errorf("upserting player stats: %w", err)
	}

	return nil
}

// UpsertQuarterStats inserts or updates one quarter of a stat line
func (r *StatsRepository) UpsertQuarterStats(ctx context.Context, q *store.PlayerQuarterStats) error {
	query := `
		INSERT INTO player_quarter_stats (
			stat_id, quarter,
			two_pointers_made, two_pointers_attempted,
			three_pointers_made, three_pointers_attempted,
			free_throws_made, free_throws_attempted
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (stat_id, quarter) DO UPDATE SET
			two_pointers_made = EXCLUDED.two_pointers_made,
			two_pointers_attempted = EXCLUDED.two_pointers_attempted,
			three_pointers_made = EXCLUDED.three_pointers_made,
			three_pointers_attempted = EXCLUDED.three_pointers_attempted,
			free_throws_made = EXCLUDED.free_throws_made,
			free_throws_attempted = EXCLUDED.free_throws_attempted
		RETURNING id
	`

	err := r.q.QueryRowContext(ctx, query,
		q.StatID, q.Quarter,
		q.TwoPointersMade, q.TwoPointersAttempted,
		q.ThreePointersMade, q.ThreePointersAttempted,
		q.FreeThrowsMade, q.FreeThrowsAttempted,
	).Scan(&q.ID)

	if err != nil {
		return fmt.Errorf("upserting quarter stats: %w", err)
	}

	return nil
}

// scanPlayerStats scans multiple player stats rows
func (r *StatsRepository) scanPlayerStats(rows *sql.Rows) ([]*store.PlayerGameStats, error) {
	var allStats []*store.PlayerGameStats
	for rows.Next() {
		stats := &store.PlayerGameStats{}
		err := rows.Scan(
			&stats.StatID, &stats.GameID, &stats.PlayerID,
			&stats.TwoPointersMade, &stats.TwoPointersAttempted,
			&stats.ThreePointersMade, &stats.ThreePointersAttempted,
			&stats.FreeThrowsMade, &stats.FreeThrowsAttempted,
			&stats.PersonalFouls, &stats.CreatedAt, &stats.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning player stats: %w", err)
		}
		allStats = append(allStats, stats)
	}

	return allStats, rows.Err()
}
