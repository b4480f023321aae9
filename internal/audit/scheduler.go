// Package audit re-evaluates users' tiers from their recent workouts.
//
// An audit extracts behavioral signals from the workout window, records the
// new ones, weighs the evidence against the current tier and applies a tier
// change only when a proposal clears the confidence gate. Every completed
// audit leaves one AuditRecord; users without enough recent workouts are
// skipped without a trace.
package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/trainage/internal/adapters/repository"
	"github.com/okian/trainage/internal/domain/confidence"
	model "github.com/okian/trainage/internal/domain/model"
	"github.com/okian/trainage/internal/domain/signals"
	"github.com/okian/trainage/pkg/logger"
	"github.com/okian/trainage/pkg/metrics"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

const (
	defaultEligibilityWindow = 14 * 24 * time.Hour
	defaultEvidenceWindow    = 30 * 24 * time.Hour
	defaultMinWorkouts       = 4
	defaultConcurrency       = 8
)

// Outcome is how an audit call ended.
type Outcome string

const (
	// OutcomeSkipped means the user had too few recent workouts.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeUnchanged means the audit ran and kept the tier.
	OutcomeUnchanged Outcome = "unchanged"
	// OutcomeReclassified means the audit recorded a new tier.
	OutcomeReclassified Outcome = "reclassified"
	// OutcomeDeferred means an audit for the user was already running;
	// it will run once more when the current one finishes.
	OutcomeDeferred Outcome = "deferred"
)

// Result describes one audit call.
type Result struct {
	UserID           string             `json:"user_id"`
	Trigger          model.AuditTrigger `json:"trigger"`
	Outcome          Outcome            `json:"outcome"`
	WorkoutsAnalyzed int                `json:"workouts_analyzed"`
	SignalsRecorded  int                `json:"signals_recorded"`
	PreviousTier     model.Tier         `json:"previous_tier"`
	ResultTier       model.Tier         `json:"result_tier"`
	Confidence       float64            `json:"confidence"`
	Reason           string             `json:"reason,omitempty"`
}

// SweepSummary counts the outcomes of one sweep over all users.
type SweepSummary struct {
	Users        int `json:"users"`
	Skipped      int `json:"skipped"`
	Unchanged    int `json:"unchanged"`
	Reclassified int `json:"reclassified"`
	Deferred     int `json:"deferred"`
	Failed       int `json:"failed"`
}

func (s *SweepSummary) add(o Outcome) {
	switch o {
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeUnchanged:
		s.Unchanged++
	case OutcomeReclassified:
		s.Reclassified++
	case OutcomeDeferred:
		s.Deferred++
	}
}

// Store is the persistence an audit reads and appends to.
type Store interface {
	ListUserIDs(ctx context.Context) ([]string, error)
	repository.SignalStore
	repository.WorkoutStore
	repository.AuditStore
}

// Tiers resolves and records a user's current tier.
type Tiers interface {
	Current(ctx context.Context, userID string) (model.HistoryEntry, error)
	Record(ctx context.Context, entry model.HistoryEntry) error
}

// userState tracks a running audit and whether another was requested meanwhile.
type userState struct {
	pending bool
	trigger model.AuditTrigger
}

// Scheduler runs audits on demand and on a cron cadence.
type Scheduler struct {
	store Store
	tiers Tiers

	thresholds        confidence.Thresholds
	adjuster          *confidence.Adjuster
	extractor         *signals.Extractor
	signalWindow      time.Duration
	eligibilityWindow time.Duration
	evidenceWindow    time.Duration
	minWorkouts       int
	progressionLift   string

	concurrency int
	schedule    string

	// mu guards running and the cron fields below.
	mu      sync.Mutex
	running map[string]*userState

	cron     *cron.Cron
	entryID  cron.EntryID
	started  bool
	stopOnce sync.Once
	stopped  chan struct{}

	now func() time.Time
	log logger.Logger
}

// New creates a scheduler. Call Start to enable the periodic sweep.
func New(store Store, tiers Tiers, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:             store,
		tiers:             tiers,
		thresholds:        confidence.DefaultThresholds(),
		signalWindow:      signals.DefaultWindow,
		eligibilityWindow: defaultEligibilityWindow,
		evidenceWindow:    defaultEvidenceWindow,
		minWorkouts:       defaultMinWorkouts,
		concurrency:       defaultConcurrency,
		running:           make(map[string]*userState),
		stopped:           make(chan struct{}),
		now:               time.Now,
		log:               logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.adjuster = confidence.NewAdjuster(s.thresholds)
	s.extractor = signals.NewExtractor(
		signals.WithWindow(s.signalWindow),
		signals.WithProgressionLift(s.progressionLift),
		signals.WithClock(s.now),
		signals.WithLogger(s.log),
	)
	return s
}

// Audit runs one audit for the user.
//
// Audits of one user never overlap. A call that arrives while the user's
// audit is running returns OutcomeDeferred, and a single extra audit runs
// after the current one no matter how many calls were deferred.
func (s *Scheduler) Audit(ctx context.Context, userID string, trigger model.AuditTrigger) (Result, error) {
	if userID == "" {
		return Result{}, ErrEmptyUserID
	}

	s.mu.Lock()
	if st, busy := s.running[userID]; busy {
		st.pending = true
		st.trigger = trigger
		s.mu.Unlock()
		metrics.RecordAudit(string(OutcomeDeferred), string(trigger))
		s.log.Debug(ctx, "audit deferred", logger.UserID(userID), logger.String("trigger", string(trigger)))
		return Result{UserID: userID, Trigger: trigger, Outcome: OutcomeDeferred}, nil
	}
	s.running[userID] = &userState{}
	s.mu.Unlock()

	res, err := s.run(ctx, userID, trigger)

	// Deferred triggers belong to other callers and must survive this one.
	rerunCtx := context.WithoutCancel(ctx)
	for {
		s.mu.Lock()
		st := s.running[userID]
		if !st.pending {
			delete(s.running, userID)
			s.mu.Unlock()
			break
		}
		next := st.trigger
		st.pending = false
		s.mu.Unlock()

		if _, rerr := s.run(rerunCtx, userID, next); rerr != nil {
			s.log.Warn(rerunCtx, "deferred audit failed",
				logger.UserID(userID),
				logger.String("trigger", string(next)),
				logger.Error(rerr),
			)
		}
	}
	return res, err
}

func (s *Scheduler) run(ctx context.Context, userID string, trigger model.AuditTrigger) (Result, error) {
	start := time.Now()
	res := Result{UserID: userID, Trigger: trigger}
	defer func() {
		if res.Outcome != "" {
			metrics.RecordAudit(string(res.Outcome), string(trigger))
			metrics.RecordAuditLatency(float64(time.Since(start).Microseconds()) / 1000.0)
		}
	}()

	now := s.now()
	recent, err := s.store.QueryRecentWorkouts(ctx, userID, now.Add(-s.signalWindow))
	if err != nil {
		metrics.RecordErrorByComponent("audit", "query_workouts")
		return res, fmt.Errorf("query workouts: %w", err)
	}
	res.WorkoutsAnalyzed = len(recent)

	if !s.eligible(recent, now) {
		res.Outcome = OutcomeSkipped
		s.log.Debug(ctx, "audit skipped", logger.UserID(userID), logger.Int("workouts", len(recent)))
		return res, nil
	}

	current, err := s.tiers.Current(ctx, userID)
	if err != nil {
		metrics.RecordErrorByComponent("audit", "current_tier")
		return res, fmt.Errorf("current tier: %w", err)
	}
	res.PreviousTier = current.Tier
	res.ResultTier = current.Tier

	evidence, err := s.store.QuerySignals(ctx, userID, now.Add(-s.evidenceWindow))
	if err != nil {
		metrics.RecordErrorByComponent("audit", "query_signals")
		return res, fmt.Errorf("query signals: %w", err)
	}
	fresh, err := s.recordFresh(ctx, userID, recent, evidence)
	if err != nil {
		return res, err
	}
	res.SignalsRecorded = len(fresh)
	evidence = append(evidence, fresh...)

	verdict := confidence.Evaluate(evidence, current.Tier)
	metrics.ObserveConfidence(verdict.Score)
	res.Confidence = verdict.Score
	res.Outcome = OutcomeUnchanged

	if verdict.NeedsValidation || len(fresh) > 0 {
		if p, ok := s.propose(current.Tier, evidence, len(fresh)); ok {
			entry := model.NewHistoryEntry(userID, p.To, p.Confidence, model.TriggerBehavioralSignals,
				p.SupportingData(len(evidence)), now)
			if err := s.tiers.Record(ctx, entry); err != nil {
				res.Outcome = ""
				metrics.RecordErrorByComponent("audit", "record_history")
				return res, fmt.Errorf("record reclassification: %w", err)
			}
			metrics.RecordReclassification(p.From.String(), p.To.String(), string(model.TriggerBehavioralSignals))
			res.Outcome = OutcomeReclassified
			res.ResultTier = p.To
			res.Confidence = p.Confidence
			res.Reason = p.Reason
			s.log.Info(ctx, "user reclassified",
				logger.UserID(userID),
				logger.String("from", p.From.String()),
				logger.String("to", p.To.String()),
				logger.String("reason", p.Reason),
				logger.Float64("confidence", p.Confidence),
			)
		}
	}

	record := model.AuditRecord{
		ID:               uuid.NewString(),
		UserID:           userID,
		Timestamp:        now,
		WorkoutsAnalyzed: res.WorkoutsAnalyzed,
		Trigger:          trigger,
		SignalsRecorded:  res.SignalsRecorded,
		PreviousTier:     res.PreviousTier,
		ResultTier:       res.ResultTier,
	}
	if err := s.store.AppendAuditRecord(ctx, record); err != nil {
		metrics.RecordErrorByComponent("audit", "record_audit")
		return res, fmt.Errorf("record audit: %w", err)
	}
	return res, nil
}

// eligible reports whether enough workouts fall inside the eligibility window.
func (s *Scheduler) eligible(recent []model.Workout, now time.Time) bool {
	since := now.Add(-s.eligibilityWindow)
	var n int
	for _, w := range recent {
		if !w.Date.Before(since) {
			n++
		}
	}
	return n >= s.minWorkouts
}

// recordFresh appends the extracted signals that are not already known.
func (s *Scheduler) recordFresh(ctx context.Context, userID string, recent []model.Workout, known []model.BehavioralSignal) ([]model.BehavioralSignal, error) {
	seen := make(map[string]struct{}, len(known))
	for _, k := range known {
		seen[k.ID] = struct{}{}
	}
	var fresh []model.BehavioralSignal
	for _, sig := range s.extractor.Extract(ctx, userID, recent) {
		if _, dup := seen[sig.ID]; dup {
			continue
		}
		if err := s.store.AppendSignal(ctx, sig); err != nil {
			metrics.RecordErrorByComponent("audit", "append_signal")
			return fresh, fmt.Errorf("append signal: %w", err)
		}
		metrics.RecordSignal(string(sig.Type), sig.Indicator.String())
		fresh = append(fresh, sig)
	}
	return fresh, nil
}

// propose returns the first proposal that clears the gate. Contradiction
// patterns are tried before the evidence-weighted update; both read the
// whole evidence window.
func (s *Scheduler) propose(current model.Tier, evidence []model.BehavioralSignal, fresh int) (confidence.Proposal, bool) {
	if p, ok := confidence.Detect(evidence, current); ok && s.thresholds.Clears(p) {
		return p, true
	}
	if p, ok := s.adjuster.Propose(current, evidence, fresh); ok && s.thresholds.Clears(p) {
		return p, true
	}
	return confidence.Proposal{}, false
}

// Sweep audits every known user with bounded parallelism. Per-user
// failures are counted and logged; they do not stop the sweep.
func (s *Scheduler) Sweep(ctx context.Context) (SweepSummary, error) {
	ids, err := s.store.ListUserIDs(ctx)
	if err != nil {
		return SweepSummary{}, fmt.Errorf("list users: %w", err)
	}

	var (
		mu      sync.Mutex
		summary = SweepSummary{Users: len(ids)}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, id := range ids {
		g.Go(func() error {
			res, err := s.Audit(gctx, id, model.AuditScheduled)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed++
				s.log.Warn(gctx, "scheduled audit failed", logger.UserID(id), logger.Error(err))
				return nil
			}
			summary.add(res.Outcome)
			return nil
		})
	}
	_ = g.Wait()

	s.log.Info(ctx, "audit sweep finished",
		logger.Int("users", summary.Users),
		logger.Int("reclassified", summary.Reclassified),
		logger.Int("skipped", summary.Skipped),
		logger.Int("failed", summary.Failed),
	)
	return summary, ctx.Err()
}

// Start schedules the periodic sweep. It is a no-op when no schedule is set.
// The sweep stops when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.schedule == "" {
		s.log.Info(ctx, "audit sweep disabled")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	clog := cronLogger{log: s.log}
	s.cron = cron.New(
		cron.WithParser(parser),
		cron.WithLogger(clog),
		cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
	)
	id, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.log.Warn(ctx, "audit sweep interrupted", logger.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidSchedule, s.schedule, err)
	}
	s.entryID = id
	s.started = true
	s.cron.Start()
	s.log.Info(ctx, "audit sweep scheduled",
		logger.String("schedule", s.schedule),
		logger.Time("next", s.cron.Entry(id).Next),
	)

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.stopped:
		}
	}()
	return nil
}

// Stop halts the periodic sweep and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		c := s.cron
		s.mu.Unlock()
		if c != nil {
			<-c.Stop().Done()
		}
		close(s.stopped)
	})
}

// NextSweep returns when the next sweep is due, or zero when none is scheduled.
func (s *Scheduler) NextSweep() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// Running returns how many user audits are in flight.
func (s *Scheduler) Running() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.running)
}
