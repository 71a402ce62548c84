package service

import (
	"context"
	"fmt"

	"github.com/fortuna/laurel/internal/store"
	"github.com/fortuna/laurel/internal/store/repository"
)

// GameService handles game-related business logic
type GameService struct {
	gameRepo *repository.GameRepository
}

// NewGameService creates a new game service
func NewGameService(db *store.Database) *GameService {
	return &GameService{
		gameRepo: repository.NewGameRepository(db),
	}
}

// GetGame retrieves a game by ID
func (s *GameService) GetGame(ctx context.Context, gameID int) (*store.Game, error) {
	game, err := s.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("fetching game: %w", err)
	}
	return game, nil
}

// GetSeasonGames retrieves every game of a season
func (s *GameService) GetSeasonGames(ctx context.Context, season string) ([]*store.Game, error) {
	games, err := s.gameRepo.GetBySeason(ctx, season)
	if err != nil {
		return nil, fmt.Errorf("fetching season games: %w", err)
	}
	if games == nil {
		games = []*store.Game{}
	}
	return games, nil
}
