package awards

import "sort"

const clutchQuarter = 4

// PlayerTotals are a player's summed counts over a week or a season.
type PlayerTotals struct {
	PlayerID       int
	GamesPlayed    int
	TwoMade        int
	TwoAttempted   int
	ThreeMade      int
	ThreeAttempted int
	FTMade         int
	FTAttempted    int
	Fouls          int

	// FourthQuarterMakes sums 2PM+3PM+FTM over quarter-4 lines only.
	FourthQuarterMakes int
	// BestQuarterPoints is the highest single-quarter point total in any game.
	BestQuarterPoints int
}

// Points scored: 2 per two, 3 per three, 1 per free throw.
func (t *PlayerTotals) Points() int {
	return 2*t.TwoMade + 3*t.ThreeMade + t.FTMade
}

// Makes counts every made shot, free throws included.
func (t *PlayerTotals) Makes() int {
	return t.TwoMade + t.ThreeMade + t.FTMade
}

func (t *PlayerTotals) FieldGoalsMade() int {
	return t.TwoMade + t.ThreeMade
}

func (t *PlayerTotals) FieldGoalsAttempted() int {
	return t.TwoAttempted + t.ThreeAttempted
}

// Misses counts every missed shot, free throws included.
func (t *PlayerTotals) Misses() int {
	return (t.TwoAttempted - t.TwoMade) + (t.ThreeAttempted - t.ThreeMade) + (t.FTAttempted - t.FTMade)
}

// Aggregated maps player id to totals. It is rebuilt on every pass.
type Aggregated map[int]*PlayerTotals

// PlayerIDs returns the ids in ascending order so rule output is deterministic.
func (a Aggregated) PlayerIDs() []int {
	ids := make([]int, 0, len(a))
	for id := range a {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Aggregate sums the stat lines of every game by player.
func Aggregate(games []Game) Aggregated {
	agg := make(Aggregated)

	for _, game := range games {
		for _, line := range game.Lines {
			t, ok := agg[line.PlayerID]
			if !ok {
				t = &PlayerTotals{PlayerID: line.PlayerID}
				agg[line.PlayerID] = t
			}

			t.GamesPlayed++
			t.TwoMade += line.TwoMade
			t.TwoAttempted += line.TwoAttempted
			t.ThreeMade += line.ThreeMade
			t.ThreeAttempted += line.ThreeAttempted
			t.FTMade += line.FTMade
			t.FTAttempted += line.FTAttempted
			t.Fouls += line.Fouls

			for _, q := range line.Quarters {
				if q.Quarter == clutchQuarter {
					t.FourthQuarterMakes += q.Makes()
				}
				if pts := q.Points(); pts > t.BestQuarterPoints {
					t.BestQuarterPoints = pts
				}
			}
		}
	}

	return agg
}
