package awards

import "math"

// selectMax returns every player whose scalar equals the maximum scalar.
// Players are visited in id order, so winners come out sorted by id.
func selectMax(agg Aggregated, scalar func(*PlayerTotals) int) []Winner {
	var (
		winners []Winner
		best    int
	)

	for _, id := range agg.PlayerIDs() {
		v := scalar(agg[id])
		switch {
		case len(winners) == 0 || v > best:
			best = v
			winners = append(winners[:0], Winner{PlayerID: id, StatValue: float64(v)})
		case v == best:
			winners = append(winners, Winner{PlayerID: id, StatValue: float64(v)})
		}
	}

	return winners
}

// ratio is a made/attempted pair compared exactly, without float rounding.
type ratio struct {
	made      int
	attempted int
}

// cmp returns -1, 0 or 1 as r is below, equal to or above o. A zero-attempt
// ratio sorts below everything else.
func (r ratio) cmp(o ratio) int {
	if r.attempted == 0 || o.attempted == 0 {
		switch {
		case r.attempted == o.attempted:
			return 0
		case r.attempted == 0:
			return -1
		default:
			return 1
		}
	}

	lhs := int64(r.made) * int64(o.attempted)
	rhs := int64(o.made) * int64(r.attempted)
	switch {
	case lhs < rhs:
		return -1
	case lhs > rhs:
		return 1
	default:
		return 0
	}
}

// percent is the ratio on a 0-100 scale rounded to two decimals.
func (r ratio) percent() float64 {
	if r.attempted == 0 {
		return 0
	}
	return math.Round(float64(r.made)*10000/float64(r.attempted)) / 100
}

// selectMaxRatio returns every candidate at the highest ratio. candidates
// must already be in a deterministic order.
func selectMaxRatio(candidates []*PlayerTotals, of func(*PlayerTotals) ratio) []Winner {
	var (
		winners []Winner
		best    ratio
	)

	for _, t := range candidates {
		r := of(t)
		if len(winners) == 0 {
			best = r
			winners = append(winners, Winner{PlayerID: t.PlayerID, StatValue: r.percent()})
			continue
		}
		switch r.cmp(best) {
		case 1:
			best = r
			winners = append(winners[:0], Winner{PlayerID: t.PlayerID, StatValue: r.percent()})
		case 0:
			winners = append(winners, Winner{PlayerID: t.PlayerID, StatValue: r.percent()})
		}
	}

	return winners
}
