package awards

import (
	"fmt"
	"sort"
)

// thresholdPoolSize is how many top shot-makers set the dynamic attempts bar.
const thresholdPoolSize = 10

func topScorer(agg Aggregated) []Winner {
	return selectMax(agg, (*PlayerTotals).Points)
}

func charityStripeRegular(agg Aggregated) []Winner {
	return selectMax(agg, func(t *PlayerTotals) int { return t.FTAttempted })
}

func humanHighlightReel(agg Aggregated) []Winner {
	return selectMax(agg, (*PlayerTotals).Makes)
}

func defensiveTackle(agg Aggregated) []Winner {
	return selectMax(agg, func(t *PlayerTotals) int { return t.Fouls })
}

func airBallArtist(agg Aggregated) []Winner {
	return selectMax(agg, func(t *PlayerTotals) int { return t.ThreeAttempted - t.ThreeMade })
}

func airAssault(agg Aggregated) []Winner {
	return selectMax(agg, (*PlayerTotals).FieldGoalsAttempted)
}

func sharpshooter(agg Aggregated) []Winner {
	return dynamicThresholdWinners(agg, threePointRatio)
}

func efficiencyExpert(agg Aggregated) []Winner {
	return dynamicThresholdWinners(agg, fieldGoalRatio)
}

// Threshold describes the attempts bar derived for a dynamic-threshold award.
type Threshold struct {
	// Attempts is the minimum number of attempts needed to qualify.
	Attempts int `json:"attempts"`
	// SetBy is the player whose attempts became the bar.
	SetBy int `json:"set_by"`
	// Pool lists the top makers the bar was drawn from, best first.
	Pool []int `json:"pool"`
}

// QualificationThreshold reports the derived attempts bar for Sharpshooter or
// Efficiency Expert. ok is false when no player has an attempt.
func QualificationThreshold(agg Aggregated, awardType AwardType) (th Threshold, ok bool, err error) {
	var of func(*PlayerTotals) ratio
	switch awardType {
	case Sharpshooter:
		of = threePointRatio
	case EfficiencyExpert:
		of = fieldGoalRatio
	default:
		return Threshold{}, false, fmt.Errorf("%s has no dynamic threshold: %w", awardType, ErrWrongKind)
	}

	ranked := rankByMakes(agg, of)
	if len(ranked) == 0 {
		return Threshold{}, false, nil
	}
	return thresholdFrom(ranked, of), true, nil
}

// rankByMakes returns players with at least one attempt, most makes first.
// Equal makes fall back to player id so the ranking never depends on map order.
func rankByMakes(agg Aggregated, of func(*PlayerTotals) ratio) []*PlayerTotals {
	var eligible []*PlayerTotals
	for _, id := range agg.PlayerIDs() {
		if of(agg[id]).attempted > 0 {
			eligible = append(eligible, agg[id])
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return of(eligible[i]).made > of(eligible[j]).made
	})
	return eligible
}

// thresholdFrom takes the best percentage among the top makers and uses that
// player's attempts as the bar. On a percentage tie the higher-ranked player wins.
func thresholdFrom(ranked []*PlayerTotals, of func(*PlayerTotals) ratio) Threshold {
	pool := ranked
	if len(pool) > thresholdPoolSize {
		pool = pool[:thresholdPoolSize]
	}

	best := pool[0]
	for _, t := range pool[1:] {
		if of(t).cmp(of(best)) > 0 {
			best = t
		}
	}

	ids := make([]int, len(pool))
	for i, t := range pool {
		ids[i] = t.PlayerID
	}

	return Threshold{Attempts: of(best).attempted, SetBy: best.PlayerID, Pool: ids}
}

func dynamicThresholdWinners(agg Aggregated, of func(*PlayerTotals) ratio) []Winner {
	ranked := rankByMakes(agg, of)
	if len(ranked) == 0 {
		return nil
	}

	th := thresholdFrom(ranked, of)

	var qualified []*PlayerTotals
	for _, t := range ranked {
		if of(t).attempted >= th.Attempts {
			qualified = append(qualified, t)
		}
	}
	if len(qualified) == 0 {
		return nil
	}

	winners := selectMaxRatio(qualified, of)
	sort.Slice(winners, func(i, j int) bool { return winners[i].PlayerID < winners[j].PlayerID })
	return winners
}
