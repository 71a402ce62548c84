package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/fortuna/laurel/internal/awards"
	"github.com/fortuna/laurel/internal/store"
)

// GameRepository handles game data access
type GameRepository struct {
	q querier
}

// NewGameRepository creates a new game repository
func NewGameRepository(db *store.Database) *GameRepository {
	return &GameRepository{q: db.DB()}
}

// WithTx returns a copy of the repository bound to tx.
func (r *GameRepository) WithTx(tx *sql.Tx) *GameRepository {
	return &GameRepository{q: tx}
}

// GetByID finds a game by its database ID
func (r *GameRepository) GetByID(ctx context.Context, gameID int) (*store.Game, error) {
	query := `
		SELECT game_id, game_date, home_team, away_team, home_score, away_score, created_at, updated_at
		FROM games
		WHERE game_id = $1
	`

	game := &store.Game{}
	err := r.q.QueryRowContext(ctx, query, gameID).Scan(
		&game.GameID, &game.GameDate, &game.HomeTeam, &game.AwayTeam,
		&game.HomeScore, &game.AwayScore, &game.CreatedAt, &game.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("game not found: %d: %w", gameID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying game: %w", err)
	}

	return game, nil
}

// GetBySeason returns every game of a season, oldest first. An empty season
// returns all games.
func (r *GameRepository) GetBySeason(ctx context.Context, season string) ([]*store.Game, error) {
	from, to, err := seasonRange(season)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT game_id, game_date, home_team, away_team, home_score, away_score, created_at, updated_at
		FROM games
		WHERE game_date >= $1 AND game_date < $2
		ORDER BY game_date, game_id
	`

	rows, err := r.q.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying games by season: %w", err)
	}
	defer rows.Close()

	return r.scanGames(rows)
}

// Create inserts a game and sets its GameID
func (r *GameRepository) Create(ctx context.Context, game *store.Game) error {
	query := `
		INSERT INTO games (game_date, home_team, away_team, home_score, away_score)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING game_id, created_at, updated_at
	`

	err := r.q.QueryRowContext(ctx, query,
		game.GameDate, game.HomeTeam, game.AwayTeam, game.HomeScore, game.AwayScore,
	).Scan(&game.GameID, &game.CreatedAt, &game.UpdatedAt)

	if err != nil {
		return fmt.Errorf("inserting game: %w", err)
	}

	return nil
}

// Games loads the games of a season with every stat line and quarter
// breakdown, ready for the awards engine. An empty season loads everything.
func (r *GameRepository) Games(ctx context.Context, season string) ([]awards.Game, error) {
	from, to, err := seasonRange(season)
	if err != nil {
		return nil, err
	}

	games, err := r.loadGames(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if len(games) == 0 {
		return nil, nil
	}

	byID := make(map[int]*awards.Game, len(games))
	for i := range games {
		byID[games[i].ID] = &games[i]
	}

	lines, err := r.loadStatLines(ctx, from, to)
	if err != nil {
		return nil, err
	}
	quarters, err := r.loadQuarterLines(ctx, from, to)
	if err != nil {
		return nil, err
	}

	for _, l := range lines {
		g, ok := byID[l.gameID]
		if !ok {
			continue
		}
		line := l.line
		line.GameDate = g.Date
		line.Quarters = quarters[l.statID]
		g.Lines = append(g.Lines, line)
	}

	return games, nil
}

func (r *GameRepository) loadGames(ctx context.Context, from, to time.Time) ([]awards.Game, error) {
	query := `
		SELECT game_id, game_date
		FROM games
		WHERE game_date >= $1 AND game_date < $2
		ORDER BY game_date, game_id
	`

	rows, err := r.q.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying games: %w", err)
	}
	defer rows.Close()

	var games []awards.Game
	for rows.Next() {
		var g awards.Game
		if err := rows.Scan(&g.ID, &g.Date); err != nil {
			return nil, fmt.Errorf("scanning game: %w", err)
		}
		g.Date = calendarDate(g.Date)
		games = append(games, g)
	}

	return games, rows.Err()
}

type loadedLine struct {
	statID int
	gameID int
	line   awards.StatLine
}

func (r *GameRepository) loadStatLines(ctx context.Context, from, to time.Time) ([]loadedLine, error) {
	query := `
		SELECT pgs.stat_id, pgs.game_id, pgs.player_id,
			pgs.two_pointers_made, pgs.two_pointers_attempted,
			pgs.three_pointers_made, pgs.three_pointers_attempted,
			pgs.free_throws_made, pgs.free_throws_attempted,
			pgs.personal_fouls
		FROM player_game_stats pgs
		JOIN games g ON pgs.game_id = g.game_id
		WHERE g.game_date >= $1 AND g.game_date < $2
		ORDER BY pgs.game_id, pgs.player_id
	`

	rows, err := r.q.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying stat lines: %w", err)
	}
	defer rows.Close()

	var lines []loadedLine
	for rows.Next() {
		var l loadedLine
		err := rows.Scan(
			&l.statID, &l.gameID, &l.line.PlayerID,
			&l.line.TwoMade, &l.line.TwoAttempted,
			&l.line.ThreeMade, &l.line.ThreeAttempted,
			&l.line.FTMade, &l.line.FTAttempted,
			&l.line.Fouls,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning stat line: %w", err)
		}
		lines = append(lines, l)
	}

	return lines, rows.Err()
}

func (r *GameRepository) loadQuarterLines(ctx context.Context, from, to time.Time) (map[int][]awards.QuarterLine, error) {
	query := `
		SELECT pqs.stat_id, pqs.quarter,
			pqs.two_pointers_made, pqs.two_pointers_attempted,
			pqs.three_pointers_made, pqs.three_pointers_attempted,
			pqs.free_throws_made, pqs.free_throws_attempted
		FROM player_quarter_stats pqs
		JOIN player_game_stats pgs ON pqs.stat_id = pgs.stat_id
		JOIN games g ON pgs.game_id = g.game_id
		WHERE g.game_date >= $1 AND g.game_date < $2
		ORDER BY pqs.stat_id, pqs.quarter
	`

	rows, err := r.q.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying quarter lines: %w", err)
	}
	defer rows.Close()

	quarters := make(map[int][]awards.QuarterLine)
	for rows.Next() {
		var (
			statID int
			q      awards.QuarterLine
		)
		err := rows.Scan(
			&statID, &q.Quarter,
			&q.TwoMade, &q.TwoAttempted,
			&q.ThreeMade, &q.ThreeAttempted,
			&q.FTMade, &q.FTAttempted,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning quarter line: %w", err)
		}
		quarters[statID] = append(quarters[statID], q)
	}

	return quarters, rows.Err()
}

// scanGames is a helper to scan multiple game rows
func (r *GameRepository) scanGames(rows *sql.Rows) ([]*store.Game, error) {
	var games []*store.Game
	for rows.Next() {
		game := &store.Game{}
		err := rows.Scan(
			&game.GameID, &game.GameDate, &game.HomeTeam, &game.AwayTeam,
			&game.HomeScore, &game.AwayScore, &game.CreatedAt, &game.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning game: %w", err)
		}
		games = append(games, game)
	}

	return games, rows.Err()
}

// seasonRange turns a season label into a half-open date range. An empty
// season covers every representable game date.
func seasonRange(season string) (time.Time, time.Time, error) {
	if season == "" {
		return time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC),
			time.Date(9999, time.January, 1, 0, 0, 0, 0, time.UTC), nil
	}

	year, err := strconv.Atoi(season)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid season %q: %w", season, err)
	}
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(1, 0, 0), nil
}

// calendarDate drops the driver's zone so DATE columns read back as UTC midnight.
func calendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
