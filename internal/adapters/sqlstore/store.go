// Package sqlstore implements the repository contracts on SQLite or
// PostgreSQL using ent's SQL builder and auto-migration.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	entschema "entgo.io/ent/dialect/sql/schema"
	"github.com/okian/trainage/internal/adapters/repository"
	model "github.com/okian/trainage/internal/domain/model"

	// PostgreSQL driver.
	_ "github.com/lib/pq"
	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Supported backends.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrUnsupportedDriver is returned by Open for unknown driver names.
var ErrUnsupportedDriver = errors.New("unsupported store driver")

// Store is a repository.Store backed by a SQL database.
type Store struct {
	drv     *entsql.Driver
	dialect string

	seqMu   sync.Mutex
	lastSeq int64
}

var _ repository.Store = (*Store)(nil)

// Open connects to the database, applies pragmas for SQLite and migrates the
// schema.
func Open(ctx context.Context, driverName, dsn string) (*Store, error) {
	var d string
	switch driverName {
	case DriverSQLite:
		d = dialect.SQLite
	case DriverPostgres:
		d = dialect.Postgres
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driverName)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if driverName == DriverSQLite {
		if err := applyPragmas(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragmas: %w", err)
		}
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{drv: entsql.OpenDB(d, db), dialect: d}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	m, err := entschema.NewMigrate(s.drv, entschema.WithForeignKeys(false))
	if err != nil {
		return err
	}
	return m.Create(ctx, tables()...)
}

// applyPragmas configures SQLite for concurrent readers and durable writes.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.drv.DB()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.drv.Close()
}

// nextSeq returns a strictly increasing insertion sequence used to order rows
// that share a timestamp.
func (s *Store) nextSeq() int64 {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	seq := time.Now().UnixNano()
	if seq <= s.lastSeq {
		seq = s.lastSeq + 1
	}
	s.lastSeq = seq
	return seq
}

func (s *Store) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.dialect)
}

func (s *Store) exec(ctx context.Context, q entsql.Querier) error {
	query, args := q.Query()
	return s.drv.Exec(ctx, query, args, nil)
}

func (s *Store) query(ctx context.Context, sel *entsql.Selector, dest any) error {
	query, args := sel.Query()
	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, args, &rows); err != nil {
		return err
	}
	defer rows.Close()
	return entsql.ScanSlice(rows, dest)
}

// insertOnce inserts a row keyed by (user_id, id) and ignores an existing one.
func (s *Store) insertOnce(ctx context.Context, table string, columns []string, values ...any) error {
	ins := s.builder().Insert(table).
		Columns(columns...).
		Values(values...).
		OnConflict(entsql.ConflictColumns("user_id", "id"), entsql.DoNothing())
	return s.exec(ctx, ins)
}

type profileRow struct {
	UserID string `sql:"user_id"`
	Data   string `sql:"data"`
}

func (s *Store) GetProfile(ctx context.Context, userID string) (model.Profile, error) {
	var rows []profileRow
	sel := s.builder().Select("user_id", "data").
		From(entsql.Table(tableProfiles)).
		Where(entsql.EQ("user_id", userID)).
		Limit(1)
	if err := s.query(ctx, sel, &rows); err != nil {
		return model.Profile{}, fmt.Errorf("query profile: %w", err)
	}
	if len(rows) == 0 {
		return model.Profile{}, fmt.Errorf("%w: %s", repository.ErrProfileNotFound, userID)
	}
	var p model.Profile
	if err := json.Unmarshal([]byte(rows[0].Data), &p); err != nil {
		return model.Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	return p, nil
}

func (s *Store) SaveProfile(ctx context.Context, p model.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	ins := s.builder().Insert(tableProfiles).
		Columns("user_id", "data", "updated_at").
		Values(p.UserID, string(data), time.Now().UnixNano()).
		OnConflict(entsql.ConflictColumns("user_id"), entsql.ResolveWithNewValues())
	if err := s.exec(ctx, ins); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func (s *Store) ListUserIDs(ctx context.Context) ([]string, error) {
	var rows []profileRow
	sel := s.builder().Select("user_id").
		From(entsql.Table(tableProfiles)).
		OrderBy(entsql.Asc("user_id"))
	if err := s.query(ctx, sel, &rows); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.UserID
	}
	return ids, nil
}

type signalRow struct {
	ID         string  `sql:"id"`
	UserID     string  `sql:"user_id"`
	Type       string  `sql:"signal_type"`
	Value      string  `sql:"signal_value"`
	Indicator  string  `sql:"tier_indicator"`
	Confidence float64 `sql:"confidence"`
	TS         int64   `sql:"ts"`
}

func (s *Store) AppendSignal(ctx context.Context, sig model.BehavioralSignal) error {
	if sig.ID == "" || sig.UserID == "" {
		return repository.ErrInvalidRecord
	}
	err := s.insertOnce(ctx, tableSignals,
		[]string{"id", "user_id", "signal_type", "signal_value", "tier_indicator", "confidence", "ts", "seq"},
		sig.ID, sig.UserID, string(sig.Type), sig.Value, sig.Indicator.String(), sig.Confidence, sig.Timestamp.UnixNano(), s.nextSeq(),
	)
	if err != nil {
		return fmt.Errorf("append signal: %w", err)
	}
	return nil
}

func (s *Store) QuerySignals(ctx context.Context, userID string, since time.Time) ([]model.BehavioralSignal, error) {
	var rows []signalRow
	sel := s.builder().Select("id", "user_id", "signal_type", "signal_value", "tier_indicator", "confidence", "ts").
		From(entsql.Table(tableSignals)).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.GTE("ts", since.UnixNano()))).
		OrderBy(entsql.Desc("ts"), entsql.Desc("seq"))
	if err := s.query(ctx, sel, &rows); err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	out := make([]model.BehavioralSignal, 0, len(rows))
	for _, r := range rows {
		typ, err := model.ParseSignalType(r.Type)
		if err != nil {
			continue
		}
		indicator, err := model.ParseTier(r.Indicator)
		if err != nil {
			continue
		}
		out = append(out, model.BehavioralSignal{
			ID:         r.ID,
			UserID:     r.UserID,
			Type:       typ,
			Value:      r.Value,
			Indicator:  indicator,
			Confidence: r.Confidence,
			Timestamp:  time.Unix(0, r.TS).UTC(),
		})
	}
	return out, nil
}

type workoutRow struct {
	ID        string `sql:"id"`
	UserID    string `sql:"user_id"`
	Date      int64  `sql:"workout_date"`
	Exercises string `sql:"exercises"`
}

func (s *Store) AppendWorkout(ctx context.Context, w model.Workout) error {
	if err := w.Validate(); err != nil {
		return err
	}
	exercises, err := json.Marshal(w.Exercises)
	if err != nil {
		return fmt.Errorf("encode workout: %w", err)
	}
	err = s.insertOnce(ctx, tableWorkouts,
		[]string{"id", "user_id", "workout_date", "exercises", "seq"},
		w.ID, w.UserID, w.Date.UnixNano(), string(exercises), s.nextSeq(),
	)
	if err != nil {
		return fmt.Errorf("append workout: %w", err)
	}
	return nil
}

func (s *Store) QueryRecentWorkouts(ctx context.Context, userID string, since time.Time) ([]model.Workout, error) {
	var rows []workoutRow
	sel := s.builder().Select("id", "user_id", "workout_date", "exercises").
		From(entsql.Table(tableWorkouts)).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.GTE("workout_date", since.UnixNano()))).
		OrderBy(entsql.Desc("workout_date"), entsql.Desc("seq"))
	if err := s.query(ctx, sel, &rows); err != nil {
		return nil, fmt.Errorf("query workouts: %w", err)
	}
	out := make([]model.Workout, 0, len(rows))
	for _, r := range rows {
		w := model.Workout{ID: r.ID, UserID: r.UserID, Date: time.Unix(0, r.Date).UTC()}
		// Undecodable exercises count as no evidence rather than failing the read.
		_ = json.Unmarshal([]byte(r.Exercises), &w.Exercises)
		out = append(out, w)
	}
	return out, nil
}

type historyRow struct {
	ID             string  `sql:"id"`
	UserID         string  `sql:"user_id"`
	TS             int64   `sql:"ts"`
	Tier           string  `sql:"tier"`
	Confidence     float64 `sql:"confidence"`
	Trigger        string  `sql:"trigger_kind"`
	SupportingData string  `sql:"supporting_data"`
}

func (s *Store) AppendHistoryEntry(ctx context.Context, e model.HistoryEntry) error {
	if e.ID == "" || e.UserID == "" || !e.Tier.IsReal() {
		return repository.ErrInvalidRecord
	}
	data, err := json.Marshal(e.SupportingData)
	if err != nil {
		return fmt.Errorf("encode supporting data: %w", err)
	}
	err = s.insertOnce(ctx, tableHistory,
		[]string{"id", "user_id", "ts", "seq", "tier", "confidence", "trigger_kind", "supporting_data"},
		e.ID, e.UserID, e.Timestamp.UnixNano(), s.nextSeq(), e.Tier.String(), e.Confidence, string(e.Trigger), string(data),
	)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (s *Store) QueryHistory(ctx context.Context, userID string, limit int) ([]model.HistoryEntry, error) {
	if err := repository.ValidateLimit(limit); err != nil {
		return nil, err
	}
	var rows []historyRow
	sel := s.builder().Select("id", "user_id", "ts", "tier", "confidence", "trigger_kind", "supporting_data").
		From(entsql.Table(tableHistory)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("ts"), entsql.Desc("seq")).
		Limit(limit)
	if err := s.query(ctx, sel, &rows); err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	out := make([]model.HistoryEntry, 0, len(rows))
	for _, r := range rows {
		tier, err := model.ParseTier(r.Tier)
		if err != nil {
			return nil, fmt.Errorf("history %s: %w", r.ID, err)
		}
		var data map[string]any
		if r.SupportingData != "" && r.SupportingData != "null" {
			if err := json.Unmarshal([]byte(r.SupportingData), &data); err != nil {
				return nil, fmt.Errorf("decode supporting data: %w", err)
			}
		}
		out = append(out, model.HistoryEntry{
			ID:             r.ID,
			UserID:         r.UserID,
			Timestamp:      time.Unix(0, r.TS).UTC(),
			Tier:           tier,
			Confidence:     r.Confidence,
			Trigger:        model.HistoryTrigger(r.Trigger),
			SupportingData: data,
		})
	}
	return out, nil
}

type auditRow struct {
	ID               string `sql:"id"`
	UserID           string `sql:"user_id"`
	TS               int64  `sql:"ts"`
	WorkoutsAnalyzed int    `sql:"workouts_analyzed"`
	Trigger          string `sql:"trigger_kind"`
	SignalsRecorded  int    `sql:"signals_recorded"`
	PreviousTier     string `sql:"previous_tier"`
	ResultTier       string `sql:"result_tier"`
}

func (s *Store) AppendAuditRecord(ctx context.Context, r model.AuditRecord) error {
	if r.ID == "" || r.UserID == "" {
		return repository.ErrInvalidRecord
	}
	err := s.insertOnce(ctx, tableAudits,
		[]string{"id", "user_id", "ts", "seq", "workouts_analyzed", "trigger_kind", "signals_recorded", "previous_tier", "result_tier"},
		r.ID, r.UserID, r.Timestamp.UnixNano(), s.nextSeq(), r.WorkoutsAnalyzed, string(r.Trigger), r.SignalsRecorded, r.PreviousTier.String(), r.ResultTier.String(),
	)
	if err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}

func (s *Store) QueryAuditRecords(ctx context.Context, userID string, limit int) ([]model.AuditRecord, error) {
	if err := repository.ValidateLimit(limit); err != nil {
		return nil, err
	}
	var rows []auditRow
	sel := s.builder().Select("id", "user_id", "ts", "workouts_analyzed", "trigger_kind", "signals_recorded", "previous_tier", "result_tier").
		From(entsql.Table(tableAudits)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("ts"), entsql.Desc("seq")).
		Limit(limit)
	if err := s.query(ctx, sel, &rows); err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	out := make([]model.AuditRecord, 0, len(rows))
	for _, r := range rows {
		prev, _ := model.ParseTier(r.PreviousTier)
		result, _ := model.ParseTier(r.ResultTier)
		out = append(out, model.AuditRecord{
			ID:               r.ID,
			UserID:           r.UserID,
			Timestamp:        time.Unix(0, r.TS).UTC(),
			WorkoutsAnalyzed: r.WorkoutsAnalyzed,
			Trigger:          model.AuditTrigger(r.Trigger),
			SignalsRecorded:  r.SignalsRecorded,
			PreviousTier:     prev,
			ResultTier:       result,
		})
	}
	return out, nil
}
