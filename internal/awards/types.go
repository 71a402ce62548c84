package awards

import (
	"errors"
	"time"
)

// AwardType identifies a single award. The string value is what gets persisted.
type AwardType string

const (
	PlayerOfTheWeek    AwardType = "player_of_the_week"
	QuarterlyFirepower AwardType = "quarterly_firepower"
	WeeklyFTKing       AwardType = "weekly_ft_king"
	TriggerFinger      AwardType = "trigger_finger"
	WeeklyWhiffer      AwardType = "weekly_whiffer"
	HotHandWeekly      AwardType = "hot_hand_weekly"
	ClutchMan          AwardType = "clutch_man"

	TopScorer            AwardType = "top_scorer"
	CharityStripeRegular AwardType = "charity_stripe_regular"
	HumanHighlightReel   AwardType = "human_highlight_reel"
	DefensiveTackle      AwardType = "defensive_tackle"
	AirBallArtist        AwardType = "air_ball_artist"
	AirAssault           AwardType = "air_assault"
	Sharpshooter         AwardType = "sharpshooter"
	EfficiencyExpert     AwardType = "efficiency_expert"
)

// Kind says whether an award is decided per week or once per season.
type Kind string

const (
	KindWeekly Kind = "weekly"
	KindSeason Kind = "season"
)

var (
	// ErrUnknownAwardType is returned for award types missing from the rule table.
	ErrUnknownAwardType = errors.New("unknown award type")
	// ErrWrongKind is returned when a weekly award is run as a season award or vice versa.
	ErrWrongKind = errors.New("award type has a different kind")
)

// QuarterLine is one period of a stat line. Quarter 5 and up are overtime.
type QuarterLine struct {
	Quarter        int
	TwoMade        int
	TwoAttempted   int
	ThreeMade      int
	ThreeAttempted int
	FTMade         int
	FTAttempted    int
}

// Points scored in the quarter.
func (q QuarterLine) Points() int {
	return 2*q.TwoMade + 3*q.ThreeMade + q.FTMade
}

// Makes counts every made shot, free throws included.
func (q QuarterLine) Makes() int {
	return q.TwoMade + q.ThreeMade + q.FTMade
}

// StatLine is a single player's box score for one game.
type StatLine struct {
	PlayerID       int
	GameDate       time.Time
	TwoMade        int
	TwoAttempted   int
	ThreeMade      int
	ThreeAttempted int
	FTMade         int
	FTAttempted    int
	Fouls          int
	Quarters       []QuarterLine
}

// Game is a played game with the stat lines of everyone who appeared in it.
type Game struct {
	ID    int
	Date  time.Time
	Lines []StatLine
}

// Winner is a player selected by a rule along with the value that won it.
type Winner struct {
	PlayerID  int     `json:"player_id"`
	StatValue float64 `json:"stat_value"`
}

// Options narrow an engine pass. An empty Season means every season found
// in the game data.
type Options struct {
	Season      string
	Recalculate bool
}

// Scope addresses the rows of one award decision: a (type, season, week) for
// weekly awards or a (type, season) for season awards when Week is nil.
type Scope struct {
	Type   AwardType
	Season string
	Week   *time.Time
}

// NewAward is the input to Store.SafeCreate.
type NewAward struct {
	PlayerID  int
	Type      AwardType
	Season    string
	Week      *time.Time
	StatValue float64
}

// Scope returns the scope the award belongs to.
func (a NewAward) Scope() Scope {
	return Scope{Type: a.Type, Season: a.Season, Week: a.Week}
}
