package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/laurel/internal/awards"
)

func openTestCache(t *testing.T) *RedisCache {
	t.Helper()

	url := os.Getenv("LAUREL_TEST_REDIS_URL")
	if url == "" {
		t.Skip("LAUREL_TEST_REDIS_URL not set")
	}

	rc, err := NewRedisCache(url, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { rc.Close() })

	require.NoError(t, rc.Client().Del(context.Background(), generationKey).Err())
	return rc
}

type listing struct {
	PlayerID int     `json:"player_id"`
	Value    float64 `json:"value"`
}

func TestListingRoundTripAndInvalidate(t *testing.T) {
	rc := openTestCache(t)
	ctx := context.Background()
	key := ListingKey{Season: "2024", Type: string(awards.TopScorer)}

	var got []listing
	hit, err := rc.GetListing(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, hit)

	want := []listing{{PlayerID: 3, Value: 612}}
	require.NoError(t, rc.SetListing(ctx, key, want))

	hit, err = rc.GetListing(ctx, key, &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, want, got)

	require.NoError(t, rc.AwardsCalculated(ctx, awards.PassSummary{AwardType: awards.TopScorer}))

	hit, err = rc.GetListing(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, hit, "a pass invalidates cached listings")
}

func TestListingKeyDistinguishesFilters(t *testing.T) {
	a := ListingKey{Season: "2024", Type: "top_scorer"}
	b := ListingKey{Season: "2024", Type: "top_scorer", Week: "2024-03-04"}
	c := ListingKey{Season: "2024", PlayerID: 7}

	assert.NotEqual(t, a.String(), b.String())
	assert.NotEqual(t, a.String(), c.String())
	assert.Equal(t, a.String(), ListingKey{Season: "2024", Type: "top_scorer"}.String())
}
