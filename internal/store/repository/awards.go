package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/fortuna/laurel/internal/awards"
	"github.com/fortuna/laurel/internal/store"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const awardColumns = `award_id, player_id, season, award_type, week_start, stat_value, created_at, finalized, finalized_at`

// AwardRepository persists award winners. It implements awards.Store.
type AwardRepository struct {
	db *store.Database
	awardWriter
}

// NewAwardRepository creates a new award repository
func NewAwardRepository(db *store.Database) *AwardRepository {
	return &AwardRepository{db: db, awardWriter: awardWriter{q: db.DB()}}
}

var _ awards.Store = (*AwardRepository)(nil)

// awardWriter runs the scope operations against a connection or a transaction.
type awardWriter struct {
	q querier
}

// InTx runs fn inside a single transaction, committing only when fn succeeds.
func (r *AwardRepository) InTx(ctx context.Context, fn func(awards.Writer) error) error {
	tx, err := r.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(awardWriter{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// SafeCreate inserts an award, or returns the stored row when the same
// player already holds the award for the scope.
func (w awardWriter) SafeCreate(ctx context.Context, a awards.NewAward) (awards.CreateResult, error) {
	query := `
		INSERT INTO awards (player_id, season, award_type, week_start, stat_value)
		VALUES ($1, $2, $3, $4::date, $5)
		ON CONFLICT (award_type, season, (COALESCE(week_start, DATE '1970-01-01')), player_id) DO NOTHING
		RETURNING ` + awardColumns

	award, err := scanAward(w.q.QueryRowContext(ctx, query,
		a.PlayerID, a.Season, string(a.Type), weekParam(a.Week), a.StatValue,
	))
	if err == nil {
		return awards.CreateResult{Award: award, Created: true}, nil
	}
	if err != sql.ErrNoRows {
		return awards.CreateResult{}, fmt.Errorf("inserting award: %w", err)
	}

	existing, err := w.find(ctx, a)
	if err != nil {
		return awards.CreateResult{}, err
	}
	return awards.CreateResult{Award: existing}, nil
}

func (w awardWriter) find(ctx context.Context, a awards.NewAward) (*store.Award, error) {
	query := `
		SELECT ` + awardColumns + `
		FROM awards
		WHERE award_type = $1 AND season = $2 AND week_start IS NOT DISTINCT FROM $3::date AND player_id = $4
	`

	award, err := scanAward(w.q.QueryRowContext(ctx, query, string(a.Type), a.Season, weekParam(a.Week), a.PlayerID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("award %s for player %d vanished after conflict: %w", a.Type, a.PlayerID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying existing award: %w", err)
	}
	return award, nil
}

// DeleteScope removes every award of the scope
func (w awardWriter) DeleteScope(ctx context.Context, scope awards.Scope) (int64, error) {
	query := `
		DELETE FROM awards
		WHERE award_type = $1 AND season = $2 AND week_start IS NOT DISTINCT FROM $3::date
	`

	res, err := w.q.ExecContext(ctx, query, string(scope.Type), scope.Season, weekParam(scope.Week))
	if err != nil {
		return 0, fmt.Errorf("deleting awards: %w", err)
	}
	return res.RowsAffected()
}

// CountScope counts the awards of the scope
func (w awardWriter) CountScope(ctx context.Context, scope awards.Scope) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM awards
		WHERE award_type = $1 AND season = $2 AND week_start IS NOT DISTINCT FROM $3::date
	`

	var n int
	if err := w.q.QueryRowContext(ctx, query, string(scope.Type), scope.Season, weekParam(scope.Week)).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting awards: %w", err)
	}
	return n, nil
}

// DeleteStaleWeeks removes weekly awards of weeks missing from keep
func (r *AwardRepository) DeleteStaleWeeks(ctx context.Context, awardType awards.AwardType, season string, keep []time.Time) (int64, error) {
	weeks := make(pq.StringArray, len(keep))
	for i, k := range keep {
		weeks[i] = k.Format("2006-01-02")
	}

	query := `
		DELETE FROM awards
		WHERE award_type = $1 AND season = $2
		  AND week_start IS NOT NULL
		  AND NOT (week_start = ANY($3::date[]))
	`

	res, err := r.db.DB().ExecContext(ctx, query, string(awardType), season, weeks)
	if err != nil {
		return 0, fmt.Errorf("deleting stale weeks: %w", err)
	}
	return res.RowsAffected()
}

// FinalizeSeason flags the season awards of a season as final
func (r *AwardRepository) FinalizeSeason(ctx context.Context, season string, at time.Time) (int64, error) {
	query := `
		UPDATE awards
		SET finalized = TRUE, finalized_at = $2
		WHERE season = $1 AND week_start IS NULL AND NOT finalized
	`

	res, err := r.db.DB().ExecContext(ctx, query, season, at)
	if err != nil {
		return 0, fmt.Errorf("finalizing awards: %w", err)
	}
	return res.RowsAffected()
}

// AwardFilter narrows List. Zero fields are ignored.
type AwardFilter struct {
	Season   string
	Type     awards.AwardType
	Week     *time.Time
	PlayerID int
}

// AwardListing is an award row with the winner's name
type AwardListing struct {
	store.Award
	PlayerName string `json:"player_name"`
}

type awardListingJSON struct {
	store.AwardJSON
	PlayerName string `json:"player_name"`
}

// MarshalJSON writes the award's wire form with the player name.
func (l AwardListing) MarshalJSON() ([]byte, error) {
	return json.Marshal(awardListingJSON{AwardJSON: l.Award.JSON(), PlayerName: l.PlayerName})
}

// UnmarshalJSON reads the form written by MarshalJSON.
func (l *AwardListing) UnmarshalJSON(data []byte) error {
	var v awardListingJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	award, err := v.AwardJSON.Award()
	if err != nil {
		return err
	}
	l.Award = award
	l.PlayerName = v.PlayerName
	return nil
}

// List returns awards matching the filter ordered by season, type, week and player
func (r *AwardRepository) List(ctx context.Context, f AwardFilter) ([]*AwardListing, error) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Season != "" {
		add("a.season = $%d", f.Season)
	}
	if f.Type != "" {
		add("a.award_type = $%d", string(f.Type))
	}
	if f.Week != nil {
		add("a.week_start = $%d::date", f.Week.Format("2006-01-02"))
	}
	if f.PlayerID != 0 {
		add("a.player_id = $%d", f.PlayerID)
	}

	query := `
		SELECT a.award_id, a.player_id, a.season, a.award_type, a.week_start, a.stat_value,
			a.created_at, a.finalized, a.finalized_at, COALESCE(p.display_name, p.full_name, '')
		FROM awards a
		LEFT JOIN players p ON p.player_id = a.player_id
	`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY a.season, a.award_type, a.week_start NULLS FIRST, a.player_id"

	rows, err := r.db.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying awards: %w", err)
	}
	defer rows.Close()

	var out []*AwardListing
	for rows.Next() {
		l := &AwardListing{}
		err := rows.Scan(
			&l.AwardID, &l.PlayerID, &l.Season, &l.AwardType, &l.WeekStart, &l.StatValue,
			&l.CreatedAt, &l.Finalized, &l.FinalizedAt, &l.PlayerName,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning award: %w", err)
		}
		if l.WeekStart.Valid {
			l.WeekStart.Time = calendarDate(l.WeekStart.Time)
		}
		out = append(out, l)
	}

	return out, rows.Err()
}

func scanAward(row *sql.Row) (*store.Award, error) {
	a := &store.Award{}
	err := row.Scan(
		&a.AwardID, &a.PlayerID, &a.Season, &a.AwardType, &a.WeekStart, &a.StatValue,
		&a.CreatedAt, &a.Finalized, &a.FinalizedAt,
	)
	if err != nil {
		return nil, err
	}
	if a.WeekStart.Valid {
		a.WeekStart.Time = calendarDate(a.WeekStart.Time)
	}
	return a, nil
}

// weekParam renders a week start as a date literal, or NULL for season awards.
func weekParam(week *time.Time) sql.NullString {
	if week == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: week.Format("2006-01-02"), Valid: true}
}
