package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fortuna/laurel/internal/awards"
	"github.com/fortuna/laurel/internal/cache"
	"github.com/fortuna/laurel/internal/store"
	"github.com/fortuna/laurel/internal/store/repository"
)

// ErrInvalidQuery is returned for malformed listing filters.
var ErrInvalidQuery = errors.New("invalid query")

type awardLister interface {
	List(ctx context.Context, f repository.AwardFilter) ([]*repository.AwardListing, error)
}

type playerGetter interface {
	GetByID(ctx context.Context, playerID int) (*store.Player, error)
}

type seasonFinalizer interface {
	FinalizeSeason(ctx context.Context, season string) (int64, error)
}

type listingCache interface {
	GetListing(ctx context.Context, k cache.ListingKey, dest interface{}) (bool, error)
	SetListing(ctx context.Context, k cache.ListingKey, value interface{}) error
	Invalidate(ctx context.Context) error
}

// AwardService serves award listings and season finalization
type AwardService struct {
	awards    awardLister
	players   playerGetter
	finalizer seasonFinalizer
	cache     listingCache
	log       logrus.FieldLogger
}

// NewAwardService creates a new award service. cache may be nil.
func NewAwardService(awardRepo awardLister, playerRepo playerGetter, finalizer seasonFinalizer, c listingCache, logger logrus.FieldLogger) *AwardService {
	return &AwardService{
		awards:    awardRepo,
		players:   playerRepo,
		finalizer: finalizer,
		cache:     c,
		log:       logger,
	}
}

// AwardQuery filters award listings
type AwardQuery struct {
	Season   string
	Type     awards.AwardType
	Week     *time.Time
	PlayerID int
}

// ParseAwardQuery validates raw filter values. A week may be any date; it is
// moved to the Monday starting its week.
func ParseAwardQuery(season, awardType, week string) (AwardQuery, error) {
	var q AwardQuery

	if season != "" {
		if _, err := strconv.Atoi(season); err != nil {
			return q, fmt.Errorf("season %q: %w", season, ErrInvalidQuery)
		}
		q.Season = season
	}

	if awardType != "" {
		t, err := awards.ParseAwardType(awardType)
		if err != nil {
			return q, fmt.Errorf("%v: %w", err, ErrInvalidQuery)
		}
		q.Type = t
	}

	if week != "" {
		d, err := time.Parse("2006-01-02", week)
		if err != nil {
			return q, fmt.Errorf("week %q: %w", week, ErrInvalidQuery)
		}
		start := awards.WeekStartOf(d)
		q.Week = &start
	}

	return q, nil
}

func (q AwardQuery) cacheKey() cache.ListingKey {
	k := cache.ListingKey{Season: q.Season, Type: string(q.Type), PlayerID: q.PlayerID}
	if q.Week != nil {
		k.Week = q.Week.Format("2006-01-02")
	}
	return k
}

// ListAwards returns the awards matching q, from cache when possible
func (s *AwardService) ListAwards(ctx context.Context, q AwardQuery) ([]*repository.AwardListing, error) {
	key := q.cacheKey()

	if s.cache != nil {
		var cached []*repository.AwardListing
		hit, err := s.cache.GetListing(ctx, key, &cached)
		if err != nil {
			s.log.WithError(err).Warn("⚠️  Award cache read failed")
		} else if hit {
			return cached, nil
		}
	}

	listed, err := s.awards.List(ctx, repository.AwardFilter{
		Season:   q.Season,
		Type:     q.Type,
		Week:     q.Week,
		PlayerID: q.PlayerID,
	})
	if err != nil {
		return nil, fmt.Errorf("listing awards: %w", err)
	}
	if listed == nil {
		listed = []*repository.AwardListing{}
	}

	if s.cache != nil {
		if err := s.cache.SetListing(ctx, key, listed); err != nil {
			s.log.WithError(err).Warn("⚠️  Award cache write failed")
		}
	}

	return listed, nil
}

// PlayerAwards is a player with every award they hold
type PlayerAwards struct {
	Player *store.Player              `json:"player"`
	Awards []*repository.AwardListing `json:"awards"`
}

// GetPlayerAwards returns a player's awards across all seasons
func (s *AwardService) GetPlayerAwards(ctx context.Context, playerID int) (*PlayerAwards, error) {
	player, err := s.players.GetByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("fetching player: %w", err)
	}

	listed, err := s.ListAwards(ctx, AwardQuery{PlayerID: playerID})
	if err != nil {
		return nil, err
	}

	return &PlayerAwards{Player: player, Awards: listed}, nil
}

// FinalizeSeason marks a season's awards final and drops cached listings
func (s *AwardService) FinalizeSeason(ctx context.Context, season string) (int64, error) {
	if _, err := strconv.Atoi(season); err != nil {
		return 0, fmt.Errorf("season %q: %w", season, ErrInvalidQuery)
	}

	n, err := s.finalizer.FinalizeSeason(ctx, season)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.log.WithError(err).Warn("⚠️  Award cache invalidation failed")
		}
	}
	return n, nil
}
