package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// WeekLayout is how week starts are written in API payloads.
const WeekLayout = "2006-01-02"

// AwardJSON is the wire form of an Award: nullable columns become null or
// plain values and week_start is a date.
type AwardJSON struct {
	AwardID     int        `json:"award_id"`
	PlayerID    int        `json:"player_id"`
	Season      string     `json:"season"`
	AwardType   string     `json:"award_type"`
	WeekStart   *string    `json:"week_start"`
	StatValue   float64    `json:"stat_value"`
	CreatedAt   time.Time  `json:"created_at"`
	Finalized   bool       `json:"finalized"`
	FinalizedAt *time.Time `json:"finalized_at"`
}

// JSON returns the wire form of the award.
func (a Award) JSON() AwardJSON {
	out := AwardJSON{
		AwardID:   a.AwardID,
		PlayerID:  a.PlayerID,
		Season:    a.Season,
		AwardType: a.AwardType,
		StatValue: a.StatValue,
		CreatedAt: a.CreatedAt,
		Finalized: a.Finalized,
	}
	if a.WeekStart.Valid {
		week := a.WeekStart.Time.UTC().Format(WeekLayout)
		out.WeekStart = &week
	}
	if a.FinalizedAt.Valid {
		at := a.FinalizedAt.Time
		out.FinalizedAt = &at
	}
	return out
}

// Award converts the wire form back into a row.
func (j AwardJSON) Award() (Award, error) {
	a := Award{
		AwardID:   j.AwardID,
		PlayerID:  j.PlayerID,
		Season:    j.Season,
		AwardType: j.AwardType,
		StatValue: j.StatValue,
		CreatedAt: j.CreatedAt,
		Finalized: j.Finalized,
	}
	if j.WeekStart != nil {
		week, err := time.Parse(WeekLayout, *j.WeekStart)
		if err != nil {
			return Award{}, fmt.Errorf("week_start %q: %w", *j.WeekStart, err)
		}
		a.WeekStart = sql.NullTime{Time: week, Valid: true}
	}
	if j.FinalizedAt != nil {
		a.FinalizedAt = sql.NullTime{Time: *j.FinalizedAt, Valid: true}
	}
	return a, nil
}

// MarshalJSON writes the award in its wire form.
func (a Award) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.JSON())
}

// UnmarshalJSON reads the wire form written by MarshalJSON.
func (a *Award) UnmarshalJSON(data []byte) error {
	var j AwardJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	award, err := j.Award()
	if err != nil {
		return err
	}
	*a = award
	return nil
}

type playerJSON struct {
	PlayerID     int       `json:"player_id"`
	FullName     string    `json:"full_name"`
	DisplayName  string    `json:"display_name,omitempty"`
	JerseyNumber string    `json:"jersey_number,omitempty"`
	TeamName     string    `json:"team_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MarshalJSON flattens the nullable columns.
func (p Player) MarshalJSON() ([]byte, error) {
	return json.Marshal(playerJSON{
		PlayerID:     p.PlayerID,
		FullName:     p.FullName,
		DisplayName:  p.DisplayName.String,
		JerseyNumber: p.JerseyNumber.String,
		TeamName:     p.TeamName.String,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	})
}

type gameJSON struct {
	GameID    int       `json:"game_id"`
	GameDate  string    `json:"game_date"`
	HomeTeam  string    `json:"home_team,omitempty"`
	AwayTeam  string    `json:"away_team,omitempty"`
	HomeScore *int32    `json:"home_score,omitempty"`
	AwayScore *int32    `json:"away_score,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MarshalJSON flattens the nullable columns and writes the date only.
func (g Game) MarshalJSON() ([]byte, error) {
	out := gameJSON{
		GameID:    g.GameID,
		GameDate:  g.GameDate.UTC().Format(WeekLayout),
		HomeTeam:  g.HomeTeam.String,
		AwayTeam:  g.AwayTeam.String,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
	if g.HomeScore.Valid {
		out.HomeScore = &g.HomeScore.Int32
	}
	if g.AwayScore.Valid {
		out.AwayScore = &g.AwayScore.Int32
	}
	return json.Marshal(out)
}
