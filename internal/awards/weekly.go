package awards

import "sort"

// HotHandMinAttempts is the combined field goal attempts a player needs in a
// week to be considered for Hot Hand Weekly.
const HotHandMinAttempts = 10

func playerOfTheWeek(agg Aggregated) []Winner {
	return selectMax(agg, (*PlayerTotals).Points)
}

func quarterlyFirepower(agg Aggregated) []Winner {
	return selectMax(agg, func(t *PlayerTotals) int { return t.BestQuarterPoints })
}

func weeklyFTKing(agg Aggregated) []Winner {
	return selectMax(agg, func(t *PlayerTotals) int { return t.FTMade })
}

func triggerFinger(agg Aggregated) []Winner {
	return selectMax(agg, (*PlayerTotals).FieldGoalsAttempted)
}

func weeklyWhiffer(agg Aggregated) []Winner {
	return selectMax(agg, (*PlayerTotals).Misses)
}

func clutchMan(agg Aggregated) []Winner {
	return selectMax(agg, func(t *PlayerTotals) int { return t.FourthQuarterMakes })
}

// hotHandWeekly picks the best field goal percentage among players with at
// least HotHandMinAttempts attempts. Everyone else is left out entirely.
func hotHandWeekly(agg Aggregated) []Winner {
	var qualified []*PlayerTotals
	for _, id := range agg.PlayerIDs() {
		t := agg[id]
		if t.FieldGoalsAttempted() >= HotHandMinAttempts {
			qualified = append(qualified, t)
		}
	}
	if len(qualified) == 0 {
		return nil
	}

	winners := selectMaxRatio(qualified, fieldGoalRatio)
	sort.Slice(winners, func(i, j int) bool { return winners[i].PlayerID < winners[j].PlayerID })
	return winners
}

func fieldGoalRatio(t *PlayerTotals) ratio {
	return ratio{made: t.FieldGoalsMade(), attempted: t.FieldGoalsAttempted()}
}

func threePointRatio(t *PlayerTotals) ratio {
	return ratio{made: t.ThreeMade, attempted: t.ThreeAttempted}
}
