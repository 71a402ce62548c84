package store

import (
	"database/sql"
	"time"
)

// Player represents a rostered player
type Player struct {
	PlayerID     int            `json:"player_id" db:"player_id"`
	FullName     string         `json:"full_name" db:"full_name"`
	DisplayName  sql.NullString `json:"display_name,omitempty" db:"display_name"`
	JerseyNumber sql.NullString `json:"jersey_number,omitempty" db:"jersey_number"`
	TeamName     sql.NullString `json:"team_name,omitempty" db:"team_name"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

// Game represents a played game
type Game struct {
	GameID    int            `json:"game_id" db:"game_id"`
	GameDate  time.Time      `json:"game_date" db:"game_date"`
	HomeTeam  sql.NullString `json:"home_team,omitempty" db:"home_team"`
	AwayTeam  sql.NullString `json:"away_team,omitempty" db:"away_team"`
	HomeScore sql.NullInt32  `json:"home_score,omitempty" db:"home_score"`
	AwayScore sql.NullInt32  `json:"away_score,omitempty" db:"away_score"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

// PlayerGameStats represents a player's box score line for a single game
type PlayerGameStats struct {
	StatID                 int       `json:"stat_id" db:"stat_id"`
	GameID                 int       `json:"game_id" db:"game_id"`
	PlayerID               int       `json:"player_id" db:"player_id"`
	TwoPointersMade        int       `json:"two_pointers_made" db:"two_pointers_made"`
	TwoPointersAttempted   int       `json:"two_pointers_attempted" db:"two_pointers_attempted"`
	ThreePointersMade      int       `json:"three_pointers_made" db:"three_pointers_made"`
	ThreePointersAttempted int       `json:"three_pointers_attempted" db:"three_pointers_attempted"`
	FreeThrowsMade         int       `json:"free_throws_made" db:"free_throws_made"`
	FreeThrowsAttempted    int       `json:"free_throws_attempted" db:"free_throws_attempted"`
	PersonalFouls          int       `json:"personal_fouls" db:"personal_fouls"`
	CreatedAt              time.Time `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time `json:"updated_at" db:"updated_at"`
}

// PlayerQuarterStats is the per-quarter breakdown of a box score line.
// Quarters above 4 are overtime periods.
type PlayerQuarterStats struct {
	ID                     int `json:"id" db:"id"`
	StatID                 int `json:"stat_id" db:"stat_id"`
	Quarter                int `json:"quarter" db:"quarter"`
	TwoPointersMade        int `json:"two_pointers_made" db:"two_pointers_made"`
	TwoPointersAttempted   int `json:"two_pointers_attempted" db:"two_pointers_attempted"`
	ThreePointersMade      int `json:"three_pointers_made" db:"three_pointers_made"`
	ThreePointersAttempted int `json:"three_pointers_attempted" db:"three_pointers_attempted"`
	FreeThrowsMade         int `json:"free_throws_made" db:"free_throws_made"`
	FreeThrowsAttempted    int `json:"free_throws_attempted" db:"free_throws_attempted"`
}

// Award is a persisted award winner. WeekStart is NULL for season awards;
// Finalized and FinalizedAt only apply to season awards.
type Award struct {
	AwardID     int          `json:"award_id" db:"award_id"`
	PlayerID    int          `json:"player_id" db:"player_id"`
	Season      string       `json:"season" db:"season"`
	AwardType   string       `json:"award_type" db:"award_type"`
	WeekStart   sql.NullTime `db:"week_start"`
	StatValue   float64      `json:"stat_value" db:"stat_value"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	Finalized   bool         `json:"finalized" db:"finalized"`
	FinalizedAt sql.NullTime `db:"finalized_at"`
}
