package awards

import (
	"context"
	"time"

	"github.com/fortuna/laurel/internal/store"
)

// GameSource supplies games with their stat lines. An empty season returns
// every game on record.
type GameSource interface {
	Games(ctx context.Context, season string) ([]Game, error)
}

// CreateResult reports the outcome of Store.SafeCreate. When Created is false
// the row already existed and Award holds the stored copy.
type CreateResult struct {
	Award   *store.Award
	Created bool
}

// Writer holds the award operations that run inside a scope transaction.
type Writer interface {
	// SafeCreate inserts an award unless an identical (player, type, season,
	// week) row exists. A conflict is not an error.
	SafeCreate(ctx context.Context, award NewAward) (CreateResult, error)
	// DeleteScope removes every row of the scope.
	DeleteScope(ctx context.Context, scope Scope) (int64, error)
	// CountScope counts the rows of the scope.
	CountScope(ctx context.Context, scope Scope) (int, error)
}

// Store is the award persistence surface used by the engine.
type Store interface {
	Writer

	// InTx runs fn against a Writer bound to a single transaction.
	InTx(ctx context.Context, fn func(Writer) error) error

	// DeleteStaleWeeks removes the weekly rows of awardType in season whose
	// week is not listed in keep.
	DeleteStaleWeeks(ctx context.Context, awardType AwardType, season string, keep []time.Time) (int64, error)

	// FinalizeSeason flags every non-finalized season award of season.
	FinalizeSeason(ctx context.Context, season string, at time.Time) (int64, error)
}
