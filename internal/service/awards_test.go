package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/laurel/internal/awards"
	"github.com/fortuna/laurel/internal/cache"
	"github.com/fortuna/laurel/internal/store"
	"github.com/fortuna/laurel/internal/store/repository"
)

type mockLister struct{ mock.Mock }

func (m *mockLister) List(ctx context.Context, f repository.AwardFilter) ([]*repository.AwardListing, error) {
	args := m.Called(ctx, f)
	listed, _ := args.Get(0).([]*repository.AwardListing)
	return listed, args.Error(1)
}

type mockFinalizer struct{ mock.Mock }

func (m *mockFinalizer) FinalizeSeason(ctx context.Context, season string) (int64, error) {
	args := m.Called(ctx, season)
	return args.Get(0).(int64), args.Error(1)
}

type stubPlayers map[int]*store.Player

func (s stubPlayers) GetByID(_ context.Context, id int) (*store.Player, error) {
	if p, ok := s[id]; ok {
		return p, nil
	}
	return nil, repository.ErrNotFound
}

// memCache stores listings as their Go values keyed by ListingKey.
type memCache struct {
	entries     map[cache.ListingKey][]*repository.AwardListing
	invalidated int
	readErr     error
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[cache.ListingKey][]*repository.AwardListing)}
}

func (c *memCache) GetListing(_ context.Context, k cache.ListingKey, dest interface{}) (bool, error) {
	if c.readErr != nil {
		return false, c.readErr
	}
	v, ok := c.entries[k]
	if ok {
		*dest.(*[]*repository.AwardListing) = v
	}
	return ok, nil
}

func (c *memCache) SetListing(_ context.Context, k cache.ListingKey, value interface{}) error {
	c.entries[k] = value.([]*repository.AwardListing)
	return nil
}

func (c *memCache) Invalidate(context.Context) error {
	c.invalidated++
	c.entries = make(map[cache.ListingKey][]*repository.AwardListing)
	return nil
}

func TestParseAwardQuery(t *testing.T) {
	q, err := ParseAwardQuery("2024", "clutch_man", "2024-03-07")
	require.NoError(t, err)
	assert.Equal(t, "2024", q.Season)
	assert.Equal(t, awards.ClutchMan, q.Type)
	require.NotNil(t, q.Week)
	assert.True(t, q.Week.Equal(time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)), "week snaps to Monday")

	empty, err := ParseAwardQuery("", "", "")
	require.NoError(t, err)
	assert.Equal(t, AwardQuery{}, empty)

	for _, bad := range [][3]string{
		{"twenty-four", "", ""},
		{"", "mvp", ""},
		{"", "", "03/07/2024"},
	} {
		_, err := ParseAwardQuery(bad[0], bad[1], bad[2])
		assert.ErrorIs(t, err, ErrInvalidQuery, bad)
	}
}

func TestListAwardsUsesCache(t *testing.T) {
	logger, _ := test.NewNullLogger()
	lister := &mockLister{}
	c := newMemCache()
	svc := NewAwardService(lister, stubPlayers{}, &mockFinalizer{}, c, logger)

	rows := []*repository.AwardListing{{Award: store.Award{AwardID: 1, PlayerID: 3, Season: "2024", AwardType: "top_scorer"}, PlayerName: "Cy"}}
	lister.On("List", mock.Anything, repository.AwardFilter{Season: "2024", Type: awards.TopScorer}).Return(rows, nil).Once()

	q := AwardQuery{Season: "2024", Type: awards.TopScorer}
	first, err := svc.ListAwards(context.Background(), q)
	require.NoError(t, err)
	second, err := svc.ListAwards(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, rows, first)
	assert.Equal(t, rows, second)
	lister.AssertExpectations(t)
}

func TestListAwardsFallsBackWhenCacheFails(t *testing.T) {
	logger, hook := test.NewNullLogger()
	lister := &mockLister{}
	c := newMemCache()
	c.readErr = errors.New("redis: connection refused")
	svc := NewAwardService(lister, stubPlayers{}, &mockFinalizer{}, c, logger)

	lister.On("List", mock.Anything, repository.AwardFilter{}).Return(nil, nil)

	listed, err := svc.ListAwards(context.Background(), AwardQuery{})
	require.NoError(t, err)
	assert.NotNil(t, listed)
	assert.Empty(t, listed)
	assert.NotEmpty(t, hook.Entries)
}

func TestListAwardsWithoutCache(t *testing.T) {
	logger, _ := test.NewNullLogger()
	lister := &mockLister{}
	svc := NewAwardService(lister, stubPlayers{}, &mockFinalizer{}, nil, logger)

	lister.On("List", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	_, err := svc.ListAwards(context.Background(), AwardQuery{Season: "2024"})
	assert.ErrorContains(t, err, "listing awards")
}

func TestGetPlayerAwards(t *testing.T) {
	logger, _ := test.NewNullLogger()
	lister := &mockLister{}
	players := stubPlayers{7: {PlayerID: 7, FullName: "Di Shooter"}}
	svc := NewAwardService(lister, players, &mockFinalizer{}, newMemCache(), logger)

	rows := []*repository.AwardListing{{Award: store.Award{PlayerID: 7, AwardType: "sharpshooter", StatValue: 50}}}
	lister.On("List", mock.Anything, repository.AwardFilter{PlayerID: 7}).Return(rows, nil)

	got, err := svc.GetPlayerAwards(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Di Shooter", got.Player.FullName)
	assert.Equal(t, rows, got.Awards)

	_, err = svc.GetPlayerAwards(context.Background(), 8)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestFinalizeSeasonInvalidatesCache(t *testing.T) {
	logger, _ := test.NewNullLogger()
	finalizer := &mockFinalizer{}
	c := newMemCache()
	svc := NewAwardService(&mockLister{}, stubPlayers{}, finalizer, c, logger)

	finalizer.On("FinalizeSeason", mock.Anything, "2024").Return(int64(8), nil)

	n, err := svc.FinalizeSeason(context.Background(), "2024")
	require.NoError(t, err)
	assert.Equal(t, int64(8), n)
	assert.Equal(t, 1, c.invalidated)

	_, err = svc.FinalizeSeason(context.Background(), "last")
	assert.ErrorIs(t, err, ErrInvalidQuery)
	finalizer.AssertNumberOfCalls(t, "FinalizeSeason", 1)
}
