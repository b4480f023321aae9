// Package badgerstore implements the repository contracts on an embedded
// BadgerDB, on disk or in memory.
//
// Key layout, with \x00 as separator:
//
//	p <user>              -> profile JSON
//	s|w|h|a <user> <seq>  -> signal, workout, history or audit JSON
//	i <kind> <user> <id>  -> empty marker making appends idempotent per user
//
// seq is a big-endian uint64 from a badger sequence, so a reverse prefix
// scan yields a user's records newest insertion first.
package badgerstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/okian/trainage/internal/adapters/repository"
	model "github.com/okian/trainage/internal/domain/model"
	"github.com/okian/trainage/pkg/logger"
)

// InMemory is the path that opens a store without disk persistence.
const InMemory = ":memory:"

const (
	kindProfile byte = 'p'
	kindSignal  byte = 's'
	kindWorkout byte = 'w'
	kindHistory byte = 'h'
	kindAudit   byte = 'a'
	kindID      byte = 'i'
)

const (
	sep            = 0x00
	seqBandwidth   = 1000
	gcDiscardRatio = 0.5
	defaultGCEvery = 5 * time.Minute
	dirPermission  = 0o750
)

var seqKey = []byte("_seq")

// Store is a repository.Store backed by BadgerDB.
type Store struct {
	db  *badger.DB
	seq *badger.Sequence

	syncWrites bool
	gcInterval time.Duration
	log        logger.Logger

	stopGC    chan struct{}
	gcDone    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

var _ repository.Store = (*Store)(nil)

// Open opens or creates a store at path. Path InMemory or "" keeps
// everything in memory.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	s := &Store{
		syncWrites: true,
		gcInterval: defaultGCEvery,
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	inMemory := path == "" || path == InMemory
	var bopts badger.Options
	if inMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
		s.syncWrites = false
		s.gcInterval = 0
	} else {
		if err := os.MkdirAll(path, dirPermission); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", path, err)
		}
		bopts = badger.DefaultOptions(path)
	}
	bopts = bopts.
		WithSyncWrites(s.syncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{log: s.log})

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	seq, err := db.GetSequence(seqKey, seqBandwidth)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("acquire sequence: %w", err)
	}
	s.db, s.seq = db, seq

	if s.gcInterval > 0 {
		s.stopGC = make(chan struct{})
		s.gcDone = make(chan struct{})
		go s.runGC(ctx)
	}
	s.log.Info(ctx, "badger store opened",
		logger.String("path", path),
		logger.Bool("inMemory", inMemory))
	return s, nil
}

func (s *Store) runGC(ctx context.Context) {
	defer close(s.gcDone)
	ticker := time.NewTicker(s.gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			// ErrNoRewrite means nothing was worth collecting.
			if err := s.db.RunValueLogGC(gcDiscardRatio); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				s.log.Warn(ctx, "badger value log gc", logger.Error(err))
			}
		}
	}
}

// Close stops GC, releases the sequence lease and closes the database.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		if s.stopGC != nil {
			close(s.stopGC)
			<-s.gcDone
		}
		seqErr := s.seq.Release()
		s.closeErr = errors.Join(seqErr, s.db.Close())
	})
	return s.closeErr
}

func key(kind byte, parts ...string) []byte {
	n := 1
	for _, p := range parts {
		n += 1 + len(p)
	}
	b := make([]byte, 0, n)
	b = append(b, kind)
	for _, p := range parts {
		b = append(b, sep)
		b = append(b, p...)
	}
	return b
}

// userPrefix is the prefix of every record of kind for userID.
func userPrefix(kind byte, userID string) []byte {
	return append(key(kind, userID), sep)
}

// appendOnce stores v under a fresh sequence key unless id was seen before.
func (s *Store) appendOnce(kind byte, userID, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	n, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], n)
	recKey := append(userPrefix(kind, userID), seq[:]...)
	idKey := key(kindID, string(kind), userID, id)

	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(idKey); err == nil {
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(idKey, nil); err != nil {
			return err
		}
		return txn.Set(recKey, data)
	})
}

// scan decodes every record of kind for userID, newest insertion first.
func scan[T any](s *Store, kind byte, userID string) ([]T, error) {
	prefix := userPrefix(kind, userID)
	var out []T
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, Reverse: true, PrefetchValues: true, PrefetchSize: 100})
		defer it.Close()
		// Seek past the largest possible seq so the reverse scan starts at the newest record.
		last := append(append([]byte(nil), prefix...), 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
		for it.Seek(last); it.ValidForPrefix(prefix); it.Next() {
			var v T
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &v) }); err != nil {
				return err
			}
			out = append(out, v)
		}
		return nil
	})
	return out, err
}

func (s *Store) GetProfile(_ context.Context, userID string) (model.Profile, error) {
	var p model.Profile
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(kindProfile, userID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error { return json.Unmarshal(val, &p) })
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return model.Profile{}, fmt.Errorf("%w: %s", repository.ErrProfileNotFound, userID)
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *Store) SaveProfile(_ context.Context, p model.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(kindProfile, p.UserID), data)
	}); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func (s *Store) ListUserIDs(_ context.Context) ([]string, error) {
	prefix := []byte{kindProfile, sep}
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	// Keys are byte-ordered, which is ascending string order.
	return ids, nil
}

func (s *Store) AppendSignal(_ context.Context, sig model.BehavioralSignal) error {
	if sig.ID == "" || sig.UserID == "" {
		return repository.ErrInvalidRecord
	}
	if err := s.appendOnce(kindSignal, sig.UserID, sig.ID, sig); err != nil {
		return fmt.Errorf("append signal: %w", err)
	}
	return nil
}

func (s *Store) QuerySignals(_ context.Context, userID string, since time.Time) ([]model.BehavioralSignal, error) {
	all, err := scan[model.BehavioralSignal](s, kindSignal, userID)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	out := make([]model.BehavioralSignal, 0, len(all))
	for _, sig := range all {
		if !sig.Timestamp.Before(since) {
			out = append(out, sig)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (s *Store) AppendWorkout(_ context.Context, w model.Workout) error {
	if err := w.Validate(); err != nil {
		return err
	}
	if err := s.appendOnce(kindWorkout, w.UserID, w.ID, w); err != nil {
		return fmt.Errorf("append workout: %w", err)
	}
	return nil
}

func (s *Store) QueryRecentWorkouts(_ context.Context, userID string, since time.Time) ([]model.Workout, error) {
	all, err := scan[model.Workout](s, kindWorkout, userID)
	if err != nil {
		return nil, fmt.Errorf("query workouts: %w", err)
	}
	out := make([]model.Workout, 0, len(all))
	for _, w := range all {
		if !w.Date.Before(since) {
			out = append(out, w)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (s *Store) AppendHistoryEntry(_ context.Context, e model.HistoryEntry) error {
	if e.ID == "" || e.UserID == "" || !e.Tier.IsReal() {
		return repository.ErrInvalidRecord
	}
	if err := s.appendOnce(kindHistory, e.UserID, e.ID, e); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (s *Store) QueryHistory(_ context.Context, userID string, limit int) ([]model.HistoryEntry, error) {
	if err := repository.ValidateLimit(limit); err != nil {
		return nil, err
	}
	out, err := scan[model.HistoryEntry](s, kindHistory, userID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) AppendAuditRecord(_ context.Context, r model.AuditRecord) error {
	if r.ID == "" || r.UserID == "" {
		return repository.ErrInvalidRecord
	}
	if err := s.appendOnce(kindAudit, r.UserID, r.ID, r); err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}

func (s *Store) QueryAuditRecords(_ context.Context, userID string, limit int) ([]model.AuditRecord, error) {
	if err := repository.ValidateLimit(limit); err != nil {
		return nil, err
	}
	out, err := scan[model.AuditRecord](s, kindAudit, userID)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
