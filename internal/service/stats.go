package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fortuna/laurel/internal/store"
	"github.com/fortuna/laurel/internal/store/repository"
)

// StatsService handles box score reads and imports
type StatsService struct {
	db         *store.Database
	statsRepo  *repository.StatsRepository
	playerRepo *repository.PlayerRepository
	gameRepo   *repository.GameRepository
}

// NewStatsService creates a new stats service
func NewStatsService(db *store.Database) *StatsService {
	return &StatsService{
		db:         db,
		statsRepo:  repository.NewStatsRepository(db),
		playerRepo: repository.NewPlayerRepository(db),
		gameRepo:   repository.NewGameRepository(db),
	}
}

// GetGameBoxScore retrieves the full box score for a game with player details
func (s *StatsService) GetGameBoxScore(ctx context.Context, gameID int) (*BoxScore, error) {
	game, err := s.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("fetching game: %w", err)
	}

	playerStats, err := s.statsRepo.GetGameBoxScore(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("fetching box score: %w", err)
	}

	lines := make([]*PlayerStatLine, 0, len(playerStats))
	for _, stat := range playerStats {
		player, err := s.playerRepo.GetByID(ctx, stat.PlayerID)
		if err != nil {
			continue // Skip if player not found
		}

		quarters, err := s.statsRepo.GetQuarterStats(ctx, stat.StatID)
		if err != nil {
			return nil, fmt.Errorf("fetching quarters for player %d: %w", stat.PlayerID, err)
		}

		lines = append(lines, &PlayerStatLine{
			Player:   player,
			Stats:    stat,
			Quarters: quarters,
		})
	}

	return &BoxScore{Game: game, Lines: lines}, nil
}

// GetPlayerGameStats retrieves stats for a specific player in a game
func (s *StatsService) GetPlayerGameStats(ctx context.Context, gameID, playerID int) (*PlayerStatLine, error) {
	stats, err := s.statsRepo.GetPlayerGameStats(ctx, gameID, playerID)
	if err != nil {
		return nil, fmt.Errorf("fetching player game stats: %w", err)
	}

	player, err := s.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("fetching player: %w", err)
	}

	quarters, err := s.statsRepo.GetQuarterStats(ctx, stats.StatID)
	if err != nil {
		return nil, fmt.Errorf("fetching quarters: %w", err)
	}

	return &PlayerStatLine{Player: player, Stats: stats, Quarters: quarters}, nil
}

// ImportBoxScore stores a played game with its stat lines in one
// transaction. Named players are created or renamed; a line without a name
// must reference a stored player. It returns the new game's id.
func (s *StatsService) ImportBoxScore(ctx context.Context, in *BoxScoreImport) (int, error) {
	if err := in.Validate(); err != nil {
		return 0, err
	}
	date, _ := time.Parse("2006-01-02", in.GameDate)

	tx, err := s.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning import: %w", err)
	}
	defer tx.Rollback()

	players := s.playerRepo.WithTx(tx)
	games := s.gameRepo.WithTx(tx)
	stats := s.statsRepo.WithTx(tx)

	for _, l := range in.Lines {
		if l.PlayerName == "" {
			if _, err := players.GetByID(ctx, l.PlayerID); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return 0, fmt.Errorf("player %d is unknown and has no player_name: %w", l.PlayerID, ErrInvalidQuery)
				}
				return 0, fmt.Errorf("looking up player %d: %w", l.PlayerID, err)
			}
			continue
		}
		p := &store.Player{PlayerID: l.PlayerID, FullName: l.PlayerName}
		if err := players.Upsert(ctx, p); err != nil {
			return 0, fmt.Errorf("saving player %d: %w", l.PlayerID, err)
		}
	}

	game := &store.Game{
		GameDate: date,
		HomeTeam: nullString(in.HomeTeam),
		AwayTeam: nullString(in.AwayTeam),
	}
	if in.HomeScore != nil {
		game.HomeScore = sql.NullInt32{Int32: int32(*in.HomeScore), Valid: true}
	}
	if in.AwayScore != nil {
		game.AwayScore = sql.NullInt32{Int32: int32(*in.AwayScore), Valid: true}
	}
	if err := games.Create(ctx, game); err != nil {
		return 0, fmt.Errorf("saving game: %w", err)
	}

	for _, l := range in.Lines {
		line := &store.PlayerGameStats{
			GameID:                 game.GameID,
			PlayerID:               l.PlayerID,
			TwoPointersMade:        l.TwoMade,
			TwoPointersAttempted:   l.TwoAttempted,
			ThreePointersMade:      l.ThreeMade,
			ThreePointersAttempted: l.ThreeAttempted,
			FreeThrowsMade:         l.FTMade,
			FreeThrowsAttempted:    l.FTAttempted,
			PersonalFouls:          l.Fouls,
		}
		if err := stats.UpsertPlayerGameStats(ctx, line); err != nil {
			return 0, fmt.Errorf("saving stats of player %d: %w", l.PlayerID, err)
		}

		for _, q := range l.Quarters {
			qs := &store.PlayerQuarterStats{
				StatID:                 line.StatID,
				Quarter:                q.Quarter,
				TwoPointersMade:        q.TwoMade,
				TwoPointersAttempted:   q.TwoAttempted,
				ThreePointersMade:      q.ThreeMade,
				ThreePointersAttempted: q.ThreeAttempted,
				FreeThrowsMade:         q.FTMade,
				FreeThrowsAttempted:    q.FTAttempted,
			}
			if err := stats.UpsertQuarterStats(ctx, qs); err != nil {
				return 0, fmt.Errorf("saving quarter %d of player %d: %w", q.Quarter, l.PlayerID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing import: %w", err)
	}
	return game.GameID, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// BoxScore contains the complete box score for a game
type BoxScore struct {
	Game  *store.Game       `json:"game"`
	Lines []*PlayerStatLine `json:"lines"`
}

// PlayerStatLine combines player info with their game stats
type PlayerStatLine struct {
	Player   *store.Player               `json:"player"`
	Stats    *store.PlayerGameStats      `json:"stats"`
	Quarters []*store.PlayerQuarterStats `json:"quarters,omitempty"`
}
