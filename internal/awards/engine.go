package awards

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Notifier is told about every completed pass. Failures are logged only.
type Notifier interface {
	AwardsCalculated(ctx context.Context, summary PassSummary) error
}

// PassSummary describes one completed pass over one award type.
type PassSummary struct {
	RunID        string         `json:"run_id"`
	AwardType    AwardType      `json:"award_type"`
	Kind         Kind           `json:"kind"`
	Season       string         `json:"season,omitempty"`
	Counts       map[string]int `json:"counts"`
	Created      int            `json:"created"`
	Recalculated bool           `json:"recalculated"`
	StartedAt    time.Time      `json:"started_at"`
	Duration     time.Duration  `json:"duration"`
}

// ScopeResult holds the winners of one scope, as returned by Preview.
type ScopeResult struct {
	Season  string     `json:"season"`
	Week    *time.Time `json:"week,omitempty"`
	Winners []Winner   `json:"winners"`
}

// Engine aggregates games, runs award rules and persists the winners.
type Engine struct {
	games     GameSource
	store     Store
	log       logrus.FieldLogger
	notifiers []Notifier
	now       func() time.Time
}

// NewEngine wires an engine. A nil logger falls back to the logrus standard logger.
func NewEngine(games GameSource, st Store, logger logrus.FieldLogger, notifiers ...Notifier) *Engine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Engine{
		games:     games,
		store:     st,
		log:       logger,
		notifiers: notifiers,
		now:       time.Now,
	}
}

// CalculateWeekly runs a weekly award over every week of the selected
// seasons and returns, per season, how many award rows exist afterwards.
func (e *Engine) CalculateWeekly(ctx context.Context, awardType AwardType, opts Options) (map[string]int, error) {
	rule, err := ruleOfKind(awardType, KindWeekly)
	if err != nil {
		return nil, err
	}

	games, err := e.games.Games(ctx, opts.Season)
	if err != nil {
		return nil, fmt.Errorf("loading games: %w", err)
	}

	return e.runPass(ctx, rule, games, opts)
}

// CalculateSeason runs a season award once per selected season and returns,
// per season, how many award rows exist afterwards.
func (e *Engine) CalculateSeason(ctx context.Context, awardType AwardType, opts Options) (map[string]int, error) {
	rule, err := ruleOfKind(awardType, KindSeason)
	if err != nil {
		return nil, err
	}

	games, err := e.games.Games(ctx, opts.Season)
	if err != nil {
		return nil, fmt.Errorf("loading games: %w", err)
	}

	return e.runPass(ctx, rule, games, opts)
}

// Calculate dispatches to CalculateWeekly or CalculateSeason by the award's kind.
func (e *Engine) Calculate(ctx context.Context, awardType AwardType, opts Options) (map[string]int, error) {
	rule, err := Lookup(awardType)
	if err != nil {
		return nil, err
	}
	if rule.Kind == KindWeekly {
		return e.CalculateWeekly(ctx, awardType, opts)
	}
	return e.CalculateSeason(ctx, awardType, opts)
}

// CalculateAll runs every award, loading the games once.
func (e *Engine) CalculateAll(ctx context.Context, opts Options) (map[AwardType]map[string]int, error) {
	games, err := e.games.Games(ctx, opts.Season)
	if err != nil {
		return nil, fmt.Errorf("loading games: %w", err)
	}

	out := make(map[AwardType]map[string]int, len(rules))
	for _, rule := range rules {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		counts, err := e.runPass(ctx, rule, games, opts)
		if err != nil {
			return out, fmt.Errorf("%s: %w", rule.Type, err)
		}
		out[rule.Type] = counts
	}
	return out, nil
}

// Preview evaluates an award without touching the store.
func (e *Engine) Preview(ctx context.Context, awardType AwardType, opts Options) ([]ScopeResult, error) {
	rule, err := Lookup(awardType)
	if err != nil {
		return nil, err
	}

	games, err := e.games.Games(ctx, opts.Season)
	if err != nil {
		return nil, fmt.Errorf("loading games: %w", err)
	}

	var out []ScopeResult
	for _, b := range bucket(games, rule.Kind, opts.Season) {
		for _, w := range b.weeks {
			out = append(out, ScopeResult{
				Season:  b.season,
				Week:    w.start,
				Winners: rule.Evaluate(Aggregate(w.games)),
			})
		}
	}
	return out, nil
}

// FinalizeSeason marks the season's awards as final.
func (e *Engine) FinalizeSeason(ctx context.Context, season string) (int64, error) {
	n, err := e.store.FinalizeSeason(ctx, season, e.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("finalizing season %s: %w", season, err)
	}
	e.log.WithFields(logrus.Fields{"season": season, "finalized": n}).Info("✓ Season awards finalized")
	return n, nil
}

func (e *Engine) runPass(ctx context.Context, rule Rule, games []Game, opts Options) (map[string]int, error) {
	started := e.now()
	runID := uuid.NewString()
	log := e.log.WithFields(logrus.Fields{
		"run_id":      runID,
		"award_type":  rule.Type,
		"recalculate": opts.Recalculate,
	})

	counts := make(map[string]int)
	created := 0

	for _, b := range bucket(games, rule.Kind, opts.Season) {
		if opts.Recalculate && rule.Kind == KindWeekly {
			keep := make([]time.Time, 0, len(b.weeks))
			for _, w := range b.weeks {
				keep = append(keep, *w.start)
			}
			removed, err := e.store.DeleteStaleWeeks(ctx, rule.Type, b.season, keep)
			if err != nil {
				return nil, fmt.Errorf("clearing stale weeks of %s: %w", b.season, err)
			}
			if removed > 0 {
				log.WithField("season", b.season).Infof("Removed %d awards from weeks without games", removed)
			}
		}

		counts[b.season] = 0
		for _, w := range b.weeks {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			scope := Scope{Type: rule.Type, Season: b.season, Week: w.start}
			n, c, err := e.persistScope(ctx, rule, scope, w.games, opts.Recalculate)
			if err != nil {
				return nil, err
			}
			counts[b.season] += n
			created += c
		}
	}

	summary := PassSummary{
		RunID:        runID,
		AwardType:    rule.Type,
		Kind:         rule.Kind,
		Season:       opts.Season,
		Counts:       counts,
		Created:      created,
		Recalculated: opts.Recalculate,
		StartedAt:    started,
		Duration:     e.now().Sub(started),
	}
	log.WithFields(logrus.Fields{"seasons": len(counts), "created": created}).Info("✓ Award pass complete")
	e.notify(ctx, summary)

	return counts, nil
}

// persistScope evaluates one scope and writes its winners in a single
// transaction. It returns the rows present afterwards and how many were new.
func (e *Engine) persistScope(ctx context.Context, rule Rule, scope Scope, games []Game, recalculate bool) (int, int, error) {
	winners := rule.Evaluate(Aggregate(games))

	fields := logrus.Fields{"award_type": scope.Type, "season": scope.Season}
	if scope.Week != nil {
		fields["week"] = scope.Week.Format("2006-01-02")
	}
	log := e.log.WithFields(fields)

	var count, created int
	err := e.store.InTx(ctx, func(w Writer) error {
		if recalculate {
			removed, err := w.DeleteScope(ctx, scope)
			if err != nil {
				return fmt.Errorf("clearing scope: %w", err)
			}
			if removed > 0 {
				log.Debugf("Cleared %d existing awards", removed)
			}
		}

		for _, winner := range winners {
			res, err := w.SafeCreate(ctx, NewAward{
				PlayerID:  winner.PlayerID,
				Type:      scope.Type,
				Season:    scope.Season,
				Week:      scope.Week,
				StatValue: winner.StatValue,
			})
			if err != nil {
				return fmt.Errorf("saving award for player %d: %w", winner.PlayerID, err)
			}
			if res.Created {
				created++
			} else {
				log.WithField("player_id", winner.PlayerID).Debug("Award already recorded")
			}
		}

		n, err := w.CountScope(ctx, scope)
		if err != nil {
			return fmt.Errorf("counting scope: %w", err)
		}
		count = n
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("%s season %s: %w", scope.Type, scope.Season, err)
	}

	log.WithFields(logrus.Fields{"winners": len(winners), "count": count}).Debug("Scope persisted")
	return count, created, nil
}

func (e *Engine) notify(ctx context.Context, summary PassSummary) {
	for _, n := range e.notifiers {
		if err := n.AwardsCalculated(ctx, summary); err != nil {
			e.log.WithError(err).WithField("award_type", summary.AwardType).Warn("⚠️  Award notification failed")
		}
	}
}

func ruleOfKind(awardType AwardType, kind Kind) (Rule, error) {
	rule, err := Lookup(awardType)
	if err != nil {
		return Rule{}, err
	}
	if rule.Kind != kind {
		return Rule{}, fmt.Errorf("%s is a %s award: %w", awardType, rule.Kind, ErrWrongKind)
	}
	return rule, nil
}

type weekBucket struct {
	start *time.Time // nil for season awards
	games []Game
}

type seasonBucket struct {
	season string
	weeks  []weekBucket
}

// bucket groups games by season and, for weekly awards, by week. Seasons and
// weeks come out in chronological order. When a season filter is set, games
// of other seasons are dropped and the filtered season is always present,
// even with no games, so recalculation can still clear it.
func bucket(games []Game, kind Kind, seasonFilter string) []seasonBucket {
	bySeason := make(map[string]map[time.Time][]Game)
	if seasonFilter != "" {
		bySeason[seasonFilter] = make(map[time.Time][]Game)
	}

	for _, g := range games {
		season := SeasonOf(g.Date)
		if seasonFilter != "" && season != seasonFilter {
			continue
		}
		weeks, ok := bySeason[season]
		if !ok {
			weeks = make(map[time.Time][]Game)
			bySeason[season] = weeks
		}

		var key time.Time
		if kind == KindWeekly {
			key = WeekStartOf(g.Date)
		}
		weeks[key] = append(weeks[key], g)
	}

	seasons := make([]string, 0, len(bySeason))
	for s := range bySeason {
		seasons = append(seasons, s)
	}
	sort.Strings(seasons)

	out := make([]seasonBucket, 0, len(seasons))
	for _, s := range seasons {
		sb := seasonBucket{season: s}
		if kind == KindSeason {
			// Season games all sit under the zero key. One scope per season,
			// even when the season has no games.
			sb.weeks = []weekBucket{{games: bySeason[s][time.Time{}]}}
		} else {
			starts := make([]time.Time, 0, len(bySeason[s]))
			for k := range bySeason[s] {
				starts = append(starts, k)
			}
			sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })
			for _, k := range starts {
				start := k
				sb.weeks = append(sb.weeks, weekBucket{start: &start, games: bySeason[s][k]})
			}
		}
		out = append(out, sb)
	}
	return out
}
