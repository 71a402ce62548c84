package service

import (
	"fmt"
	"time"
)

// BoxScoreImport is the payload accepted for a played game
type BoxScoreImport struct {
	GameDate  string       `json:"game_date"`
	HomeTeam  string       `json:"home_team,omitempty"`
	AwayTeam  string       `json:"away_team,omitempty"`
	HomeScore *int         `json:"home_score,omitempty"`
	AwayScore *int         `json:"away_score,omitempty"`
	Lines     []ImportLine `json:"lines"`
}

// ImportLine is one player's line in an imported box score
type ImportLine struct {
	PlayerID       int             `json:"player_id"`
	PlayerName     string          `json:"player_name,omitempty"`
	TwoMade        int             `json:"two_made"`
	TwoAttempted   int             `json:"two_attempted"`
	ThreeMade      int             `json:"three_made"`
	ThreeAttempted int             `json:"three_attempted"`
	FTMade         int             `json:"ft_made"`
	FTAttempted    int             `json:"ft_attempted"`
	Fouls          int             `json:"fouls"`
	Quarters       []ImportQuarter `json:"quarters,omitempty"`
}

// ImportQuarter is one period of an imported line. Quarter 5 and up are overtime.
type ImportQuarter struct {
	Quarter        int `json:"quarter"`
	TwoMade        int `json:"two_made"`
	TwoAttempted   int `json:"two_attempted"`
	ThreeMade      int `json:"three_made"`
	ThreeAttempted int `json:"three_attempted"`
	FTMade         int `json:"ft_made"`
	FTAttempted    int `json:"ft_attempted"`
}

// Validate checks the structure of the payload: a parseable date, player
// ids appearing once, and quarters numbered from 1 without repeats. Whether
// an unnamed player exists is checked by the import. Shot counts are stored
// as given.
func (b *BoxScoreImport) Validate() error {
	if _, err := time.Parse("2006-01-02", b.GameDate); err != nil {
		return fmt.Errorf("game_date %q: %w", b.GameDate, ErrInvalidQuery)
	}
	if len(b.Lines) == 0 {
		return fmt.Errorf("box score has no lines: %w", ErrInvalidQuery)
	}

	seen := make(map[int]bool, len(b.Lines))
	for _, l := range b.Lines {
		if l.PlayerID <= 0 {
			return fmt.Errorf("line without player_id: %w", ErrInvalidQuery)
		}
		if seen[l.PlayerID] {
			return fmt.Errorf("player %d appears twice: %w", l.PlayerID, ErrInvalidQuery)
		}
		seen[l.PlayerID] = true

		quarters := make(map[int]bool, len(l.Quarters))
		for _, q := range l.Quarters {
			if q.Quarter < 1 || quarters[q.Quarter] {
				return fmt.Errorf("player %d: bad quarter %d: %w", l.PlayerID, q.Quarter, ErrInvalidQuery)
			}
			quarters[q.Quarter] = true
		}
	}
	return nil
}
