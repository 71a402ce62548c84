package service

import (
	"context"
	"os"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/laurel/internal/store"
)

// openStatsService connects to LAUREL_TEST_DSN with empty tables. Tests are
// skipped without it.
func openStatsService(t *testing.T) (*StatsService, *store.Database) {
	t.Helper()

	dsn := os.Getenv("LAUREL_TEST_DSN")
	if dsn == "" {
		t.Skip("LAUREL_TEST_DSN not set")
	}

	logger, _ := test.NewNullLogger()
	db, err := store.NewDatabase(dsn, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.RunMigrations("../../migrations"))

	_, err = db.DB().Exec(`TRUNCATE awards, player_quarter_stats, player_game_stats, games, players RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return NewStatsService(db), db
}

func countRows(t *testing.T, db *store.Database, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.DB().QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestImportBoxScoreRollsBackOnUnknownPlayer(t *testing.T) {
	svc, db := openStatsService(t)
	ctx := context.Background()

	_, err := svc.ImportBoxScore(ctx, &BoxScoreImport{
		GameDate: "2024-03-06",
		Lines: []ImportLine{
			{PlayerID: 1, PlayerName: "Ada Baller", TwoMade: 5, TwoAttempted: 9},
			{PlayerID: 999, TwoMade: 1, TwoAttempted: 2},
		},
	})
	assert.ErrorIs(t, err, ErrInvalidQuery)

	assert.Equal(t, 0, countRows(t, db, "games"))
	assert.Equal(t, 0, countRows(t, db, "players"))
	assert.Equal(t, 0, countRows(t, db, "player_game_stats"))
}

func TestImportBoxScoreStoresEverything(t *testing.T) {
	svc, db := openStatsService(t)
	ctx := context.Background()

	gameID, err := svc.ImportBoxScore(ctx, &BoxScoreImport{
		GameDate: "2024-03-06",
		HomeTeam: "Owls",
		Lines: []ImportLine{
			{PlayerID: 1, PlayerName: "Ada Baller", TwoMade: 5, TwoAttempted: 9, Quarters: []ImportQuarter{{Quarter: 4, TwoMade: 2, TwoAttempted: 3}}},
			{PlayerID: 2, PlayerName: "Bo Hooper", FTMade: 3, FTAttempted: 4},
		},
	})
	require.NoError(t, err)

	box, err := svc.GetGameBoxScore(ctx, gameID)
	require.NoError(t, err)
	require.Len(t, box.Lines, 2)
	assert.Equal(t, "Owls", box.Game.HomeTeam.String)
	assert.Len(t, box.Lines[0].Quarters, 1)

	// A known player may be referenced by id alone.
	_, err = svc.ImportBoxScore(ctx, &BoxScoreImport{
		GameDate: "2024-03-08",
		Lines:    []ImportLine{{PlayerID: 2, TwoMade: 1, TwoAttempted: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, countRows(t, db, "games"))
	assert.Equal(t, 2, countRows(t, db, "players"))
}
