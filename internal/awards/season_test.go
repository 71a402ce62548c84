package awards

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeasonArgmaxRules(t *testing.T) {
	fouls := func(l StatLine, n int) StatLine {
		l.Fouls = n
		return l
	}

	lines := []StatLine{
		fouls(shots(1, monday, 40, 80, 10, 40, 30, 50), 20), // 140 pts, 80 makes, 120 FGA, 30 missed 3s
		fouls(shots(2, monday, 30, 50, 30, 60, 10, 12), 31), // 160 pts, 70 makes, 110 FGA, 30 missed 3s
		fouls(shots(3, monday, 50, 90, 0, 5, 40, 60), 31),   // 140 pts, 90 makes, 95 FGA, 5 missed 3s
	}
	agg := aggOf(lines...)

	tests := []struct {
		awardType AwardType
		wantIDs   []int
		wantValue float64
	}{
		{TopScorer, []int{2}, 160},
		{CharityStripeRegular, []int{3}, 60},
		{HumanHighlightReel, []int{3}, 90},
		{DefensiveTackle, []int{2, 3}, 31},
		{AirBallArtist, []int{1, 2}, 30},
		{AirAssault, []int{1}, 120},
	}

	for _, tt := range tests {
		t.Run(string(tt.awardType), func(t *testing.T) {
			winners := evaluate(t, tt.awardType, agg)
			assert.Equal(t, tt.wantIDs, winnerIDs(winners))
			for _, w := range winners {
				assert.Equal(t, tt.wantValue, w.StatValue)
			}
		})
	}
}

// sharpshooterField has twelve three-point shooters. Players 1-10 are the
// top makers; 11 and 12 shoot well on too few makes to be in the pool.
func sharpshooterField() []StatLine {
	threes := [][2]int{
		{100, 250}, // 1: 40%
		{90, 200},  // 2: 45%
		{80, 160},  // 3: 50%, best in pool, sets the bar at 160
		{70, 200},  // 4: 35%
		{60, 150},  // 5: 40%
		{50, 120},  // 6
		{40, 100},  // 7
		{30, 80},   // 8
		{20, 50},   // 9
		{15, 40},   // 10
		{9, 9},     // 11: 100% outside the pool
		{12, 20},   // 12: 60% outside the pool
	}

	lines := make([]StatLine, len(threes))
	for i, s := range threes {
		lines[i] = shots(i+1, monday, 0, 0, s[0], s[1], 0, 0)
	}
	return lines
}

func TestSharpshooterDynamicThreshold(t *testing.T) {
	agg := aggOf(sharpshooterField()...)

	th, ok, err := QualificationThreshold(agg, Sharpshooter)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 160, th.Attempts)
	assert.Equal(t, 3, th.SetBy)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, th.Pool)

	winners := evaluate(t, Sharpshooter, agg)
	assert.Equal(t, []Winner{{PlayerID: 3, StatValue: 50}}, winners)
}

func TestThresholdIgnoresPlayersOutsideThePool(t *testing.T) {
	base := aggOf(sharpshooterField()...)
	before, _, err := QualificationThreshold(base, Sharpshooter)
	require.NoError(t, err)

	field := sharpshooterField()
	field[10] = shots(11, monday, 0, 0, 9, 500, 0, 0) // same makes, far more attempts
	field[11] = shots(12, monday, 0, 0, 12, 13, 0, 0)
	after, _, err := QualificationThreshold(aggOf(field...), Sharpshooter)
	require.NoError(t, err)

	assert.Equal(t, before, after)
}

func TestThresholdQualifiesOutsideThePool(t *testing.T) {
	field := sharpshooterField()
	// Eleven makes on 170 attempts keeps player 12 out of the pool but over the bar.
	field[11] = shots(12, monday, 0, 0, 11, 170, 0, 0)
	// Player 13 is the most accurate shooter outside the pool but short of the bar.
	field = append(field, shots(13, monday, 0, 0, 14, 20, 0, 0))

	agg := aggOf(field...)
	th, _, err := QualificationThreshold(agg, Sharpshooter)
	require.NoError(t, err)
	assert.Equal(t, 160, th.Attempts)

	winners := evaluate(t, Sharpshooter, agg)
	assert.Equal(t, []int{3}, winnerIDs(winners), "player 13 has only 20 attempts")
	assert.NotContains(t, th.Pool, 12)
}

func TestThresholdPercentageTieFollowsRanking(t *testing.T) {
	agg := aggOf(
		shots(1, monday, 0, 0, 10, 20, 0, 0), // 50%, most makes
		shots(2, monday, 0, 0, 5, 10, 0, 0),  // 50%
		shots(3, monday, 0, 0, 3, 12, 0, 0),  // 25%
	)

	th, ok, err := QualificationThreshold(agg, Sharpshooter)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, th.SetBy)
	assert.Equal(t, 20, th.Attempts)

	assert.Equal(t, []Winner{{PlayerID: 1, StatValue: 50}}, evaluate(t, Sharpshooter, agg))
}

func TestThresholdMakesTieBrokenByPlayerID(t *testing.T) {
	agg := aggOf(
		shots(9, monday, 0, 0, 4, 8, 0, 0),
		shots(2, monday, 0, 0, 4, 5, 0, 0),
	)

	th, _, err := QualificationThreshold(agg, Sharpshooter)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 9}, th.Pool)
	assert.Equal(t, 5, th.Attempts)

	// Both clear the bar of 5; player 2 shoots 80%.
	assert.Equal(t, []Winner{{PlayerID: 2, StatValue: 80}}, evaluate(t, Sharpshooter, agg))
}

func TestDynamicThresholdTiedWinners(t *testing.T) {
	agg := aggOf(
		shots(1, monday, 0, 0, 6, 10, 0, 0),
		shots(2, monday, 0, 0, 12, 20, 0, 0),
		shots(3, monday, 0, 0, 1, 1, 0, 0),
	)

	// Player 3 is the most accurate in the pool, so the bar is a single
	// attempt and the three qualifiers compare on percentage.
	winners := evaluate(t, Sharpshooter, agg)
	assert.Equal(t, []Winner{{PlayerID: 3, StatValue: 100}}, winners)

	// Identical lines share the bar and the percentage.
	agg = aggOf(
		shots(2, monday, 0, 0, 6, 10, 0, 0),
		shots(1, monday, 0, 0, 6, 10, 0, 0),
		shots(3, monday, 0, 0, 8, 20, 0, 0),
	)
	winners = evaluate(t, Sharpshooter, agg)
	assert.Equal(t, []int{1, 2}, winnerIDs(winners))
	assert.Equal(t, 60.0, winners[0].StatValue)
}

func TestEfficiencyExpertCombinesTwosAndThrees(t *testing.T) {
	agg := aggOf(
		shots(1, monday, 30, 50, 10, 30, 0, 0), // 40/80 = 50%
		shots(2, monday, 20, 30, 5, 10, 0, 0),  // 25/40 = 62.5%
		shots(3, monday, 10, 12, 0, 0, 0, 0),   // 10/12, best in the pool, bar is 12
		shots(4, monday, 0, 0, 0, 0, 20, 20),   // free throws only, not eligible
	)

	th, ok, err := QualificationThreshold(agg, EfficiencyExpert)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, th.SetBy)
	assert.Equal(t, 12, th.Attempts)

	assert.Equal(t, []Winner{{PlayerID: 3, StatValue: 83.33}}, evaluate(t, EfficiencyExpert, agg))
}

func TestDynamicThresholdNoEligiblePlayers(t *testing.T) {
	agg := aggOf(shots(1, monday, 5, 5, 0, 0, 2, 2))

	_, ok, err := QualificationThreshold(agg, Sharpshooter)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, evaluate(t, Sharpshooter, agg))
	assert.Empty(t, evaluate(t, EfficiencyExpert, Aggregated{}))
}

func TestQualificationThresholdRejectsOtherAwards(t *testing.T) {
	_, _, err := QualificationThreshold(Aggregated{}, TopScorer)
	assert.True(t, errors.Is(err, ErrWrongKind))
}

func TestPerfectShooterScenario(t *testing.T) {
	agg := aggOf(shots(1, monday, 5, 5, 2, 2, 3, 3))

	assert.Equal(t, []Winner{{PlayerID: 1, StatValue: 19}}, evaluate(t, PlayerOfTheWeek, agg))

	th, ok, err := QualificationThreshold(agg, Sharpshooter)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []int{1}, th.Pool)
	assert.Equal(t, []Winner{{PlayerID: 1, StatValue: 100}}, evaluate(t, Sharpshooter, agg))
}

func TestCatalogueCoversEveryRule(t *testing.T) {
	entries := Catalogue()
	assert.Len(t, entries, 15)
	assert.Len(t, TypesOf(KindWeekly), 7)
	assert.Len(t, TypesOf(KindSeason), 8)

	for _, e := range entries {
		parsed, err := ParseAwardType(string(e.Type))
		require.NoError(t, err)
		assert.Equal(t, e.Type, parsed)
		assert.NotEmpty(t, e.Name)
	}

	_, err := ParseAwardType("most_valuable_mascot")
	assert.ErrorIs(t, err, ErrUnknownAwardType)
}
