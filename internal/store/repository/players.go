package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fortuna/laurel/internal/store"
)

// PlayerRepository handles player data access
type PlayerRepository struct {
	q querier
}

// NewPlayerRepository creates a new player repository
func NewPlayerRepository(db *store.Database) *PlayerRepository {
	return &PlayerRepository{q: db.DB()}
}

// WithTx returns a copy of the repository bound to tx.
func (r *PlayerRepository) WithTx(tx *sql.Tx) *PlayerRepository {
	return &PlayerRepository{q: tx}
}

// GetByID finds a player by ID
func (r *PlayerRepository) GetByID(ctx context.Context, playerID int) (*store.Player, error) {
	query := `
		SELECT player_id, full_name, display_name, jersey_number, team_name, created_at, updated_at
		FROM players
		WHERE player_id = $1
	`

	player := &store.Player{}
	err := r.q.QueryRowContext(ctx, query, playerID).Scan(
		&player.PlayerID, &player.FullName, &player.DisplayName, &player.JerseyNumber,
		&player.TeamName, &player.CreatedAt, &player.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("player not found: %d: %w", playerID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying player: %w", err)
	}

	return player, nil
}

// GetByName searches for players by name (case-insensitive partial match)
func (r *PlayerRepository) GetByName(ctx context.Context, name string) ([]*store.Player, error) {
	query := `
		SELECT player_id, full_name, display_name, jersey_number, team_name, created_at, updated_at
		FROM players
		WHERE full_name ILIKE $1 OR display_name ILIKE $1
		ORDER BY full_name
		LIMIT 50
	`

	rows, err := r.q.QueryContext(ctx, query, "%"+name+"%")
	if err != nil {
		return nil, fmt.Errorf("querying players: %w", err)
	}
	defer rows.Close()

	return r.scanPlayers(rows)
}

// Upsert inserts or updates a player. A zero PlayerID lets the database
// assign one; either way PlayerID holds the stored id afterwards. After an
// explicit id the sequence is advanced past it.
func (r *PlayerRepository) Upsert(ctx context.Context, player *store.Player) error {
	query := `
		INSERT INTO players (player_id, full_name, display_name, jersey_number, team_name)
		VALUES (COALESCE(NULLIF($1, 0), nextval(pg_get_serial_sequence('players', 'player_id'))), $2, $3, $4, $5)
		ON CONFLICT (player_id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			display_name = COALESCE(EXCLUDED.display_name, players.display_name),
			jersey_number = COALESCE(EXCLUDED.jersey_number, players.jersey_number),
			team_name = COALESCE(EXCLUDED.team_name, players.team_name),
			updated_at = NOW()
		RETURNING player_id, created_at, updated_at
	`

	explicitID := player.PlayerID != 0
	err := r.q.QueryRowContext(ctx, query,
		player.PlayerID, player.FullName, player.DisplayName, player.JerseyNumber, player.TeamName,
	).Scan(&player.PlayerID, &player.CreatedAt, &player.UpdatedAt)

	if err != nil {
		return fmt.Errorf("upserting player: %w", err)
	}

	if explicitID {
		if err := r.syncSequence(ctx); err != nil {
			return err
		}
	}

	return nil
}

// syncSequence moves the player_id sequence past the largest stored id so
// generated ids never collide with caller-supplied ones.
func (r *PlayerRepository) syncSequence(ctx context.Context) error {
	query := `
		SELECT setval(pg_get_serial_sequence('players', 'player_id'),
			GREATEST((SELECT MAX(player_id) FROM players), 1))
	`
	if _, err := r.q.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("syncing player id sequence: %w", err)
	}
	return nil
}

// scanPlayers is a helper to scan multiple player rows
func (r *PlayerRepository) scanPlayers(rows *sql.Rows) ([]*store.Player, error) {
	var players []*store.Player
	for rows.Next() {
		player := &store.Player{}
		err := rows.Scan(
			&player.PlayerID, &player.FullName, &player.DisplayName, &player.JerseyNumber,
			&player.TeamName, &player.CreatedAt, &player.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning player: %w", err)
		}
		players = append(players, player)
	}

	return players, rows.Err()
}
