package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/cadence/internal/cache"
	"github.com/fyrsmithlabs/cadence/internal/clamp"
	"github.com/fyrsmithlabs/cadence/internal/logging"
	"github.com/fyrsmithlabs/cadence/internal/plan"
	"github.com/fyrsmithlabs/cadence/internal/profile"
	"github.com/fyrsmithlabs/cadence/internal/schedule"
	"github.com/fyrsmithlabs/cadence/internal/source"
	"github.com/fyrsmithlabs/cadence/internal/synth"
)

// Config tunes the orchestrator.
type Config struct {
	// Timeout bounds the fan-out over all sources.
	Timeout time.Duration
	// RecentLogLimit is how many recent logs sources receive.
	RecentLogLimit int
	// PlanDays is the length of the week preview.
	PlanDays int
	// DefaultCycleLength applies when a profile has none.
	DefaultCycleLength int
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RecentLogLimit <= 0 || c.RecentLogLimit > source.MaxRecentLogs {
		c.RecentLogLimit = source.MaxRecentLogs
	}
	if c.PlanDays <= 0 {
		c.PlanDays = schedule.DefaultPlanDays
	}
	if c.DefaultCycleLength <= 0 {
		c.DefaultCycleLength = schedule.DefaultCycleLength
	}
	return c
}

// Orchestrator wires sources, synthesis, clamp, cache and schedule into the
// planning operations.
type Orchestrator struct {
	cfg      Config
	executor *Executor
	synth    *synth.Synthesizer
	cache    *cache.Cache
	schedule Scheduler
	profiles Profiles
	gen      *schedule.Generator
	logger   *logging.Logger
	tracer   trace.Tracer
	metrics  *Metrics
	now      func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTracer sets the tracer for passes and source calls.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithMetrics sets the OTEL instruments.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithSynthesizer replaces the default rule set.
func WithSynthesizer(s *synth.Synthesizer) Option {
	return func(o *Orchestrator) {
		if s != nil {
			o.synth = s
		}
	}
}

// WithClock overrides the time source used to resolve "today".
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// New creates an orchestrator over the given sources.
func New(cfg Config, providers []source.Provider, c *cache.Cache, sched Scheduler, profiles Profiles, opts ...Option) *Orchestrator {
	cfg = cfg.withDefaults()
	o := &Orchestrator{
		cfg:      cfg,
		synth:    synth.New(),
		cache:    c,
		schedule: sched,
		profiles: profiles,
		gen:      schedule.NewGenerator(cfg.DefaultCycleLength),
		logger:   logging.NewNop(),
		tracer:   Tracer(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.executor = NewExecutor(providers, cfg.Timeout)
	o.executor.tracer = o.tracer
	o.executor.metrics = o.metrics
	o.executor.logger = o.logger
	return o
}

// GetDailyDecision returns the decision for userID on the calendar date of
// date, or today in the user's time zone when date is zero. Every purpose
// shares one computation per user and day.
//
// When the decision asks for a new plan and the merge cannot be saved, the
// decision is still returned together with an error wrapping
// ErrPersistence.
func (o *Orchestrator) GetDailyDecision(ctx context.Context, purpose Purpose, userID string, date time.Time) (*plan.Decision, error) {
	if !purpose.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPurpose, purpose)
	}
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	ctx = logging.WithUserID(ctx, userID)

	prof, err := o.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	day := o.resolveDate(*prof, date)
	dateKey := plan.DateKey(day)
	key := cache.Key{Purpose: string(purpose), UserID: userID, DateKey: dateKey}
	shared := cache.Key{Purpose: string(purposeShared), UserID: userID, DateKey: dateKey}

	if v, ok := o.cache.Get(key); ok {
		o.metrics.RecordPass(ctx, OutcomeCached, purpose)
		return decode(v)
	}
	if o.cache.Share(shared, key) {
		if v, ok := o.cache.Get(key); ok {
			o.metrics.RecordPass(ctx, OutcomeShared, purpose)
			return decode(v)
		}
	}

	leader := false
	var fresh plan.Decision
	v, _, err := o.cache.Do(userID+"|"+dateKey, func() ([]byte, error) {
		if v, ok := o.cache.Get(shared); ok {
			return v, nil
		}
		leader = true
		// Waiters share this result, so one caller going away must not
		// cut the pass short.
		fresh = o.compute(context.WithoutCancel(ctx), *prof, day)
		b, err := json.Marshal(fresh)
		if err != nil {
			return nil, fmt.Errorf("encode decision: %w", err)
		}
		o.cache.Set(shared, b, o.cache.TTL(fresh.Degraded))
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	o.cache.Share(shared, key)

	if !leader {
		o.metrics.RecordPass(ctx, OutcomeShared, purpose)
		return decode(v)
	}

	outcome := OutcomeFresh
	if fresh.Degraded {
		outcome = OutcomeDegraded
	}
	o.metrics.RecordPass(ctx, outcome, purpose)

	d, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := o.applyPlan(ctx, userID, fresh, *prof); err != nil {
		// A shorter TTL makes the next read retry the merge sooner.
		o.cache.Set(shared, v, o.cache.TTL(true))
		o.cache.Invalidate(key)
		return d, err
	}
	return d, nil
}

// compute runs one full pass: fan-out, synthesis, clamp and week preview.
func (o *Orchestrator) compute(ctx context.Context, p profile.Profile, day time.Time) plan.Decision {
	dateKey := plan.DateKey(day)
	ctx, span := o.tracer.Start(ctx, "orchestrator.pass", trace.WithAttributes(
		attribute.String("user.id", p.UserID),
		attribute.String("date", dateKey),
	))
	defer span.End()
	start := time.Now()

	st, _ := o.gen.CycleState(p, day)
	uc := source.UserContext{
		UserID:  p.UserID,
		Date:    dateKey,
		Profile: p,
		Cycle:   st,
	}

	logs, err := o.profiles.RecentLogs(ctx, p.UserID, dateKey, o.cfg.RecentLogLimit)
	if err != nil {
		// Sources still run; they fall back to profile and cycle alone.
		o.logger.Warn(ctx, "recent logs unavailable", zap.Error(err))
		logs = nil
	}

	results := o.executor.Run(ctx, uc, logs)
	d := o.synth.Synthesize(results)
	d, corrections := clamp.NormalizeCounted(d)
	if corrections > 0 {
		ClampCorrections().Add(float64(corrections))
	}

	d.UserID = p.UserID
	d.Date = dateKey
	d.Cycle = st
	if d.PlanAction == plan.PlanActionGenerateNew {
		d.WeekPreview = o.gen.Preview(p, d, day, o.cfg.PlanDays)
	}

	span.SetAttributes(
		attribute.Bool("decision.degraded", d.Degraded),
		attribute.String("decision.plan_action", string(d.PlanAction)),
		attribute.StringSlice("decision.applied_rules", d.AppliedRules),
	)
	o.logger.Info(ctx, "decision computed",
		zap.String("date", dateKey),
		zap.String("readiness", string(d.Readiness)),
		zap.String("plan_action", string(d.PlanAction)),
		zap.Strings("applied_rules", d.AppliedRules),
		zap.Strings("unavailable_sources", d.UnavailableSources),
		zap.Int("clamp_corrections", corrections),
		zap.Duration("duration", time.Since(start)),
	)
	return d
}

// applyPlan merges the week preview of a generateNew decision for today.
func (o *Orchestrator) applyPlan(ctx context.Context, userID string, d plan.Decision, p profile.Profile) error {
	if d.PlanAction != plan.PlanActionGenerateNew || len(d.WeekPreview) == 0 {
		return nil
	}
	if d.Date != plan.DateKey(o.today(p)) {
		return nil
	}
	if _, err := o.schedule.Merge(ctx, userID, d.WeekPreview); err != nil {
		o.logger.Error(ctx, "merge week preview failed", zap.Error(err))
		if errors.Is(err, schedule.ErrScheduleConflict) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// GetWeeklyPlan returns the current plan, creating it when absent.
func (o *Orchestrator) GetWeeklyPlan(ctx context.Context, userID string) (*plan.WeeklyPlan, error) {
	return o.schedule.GetOrCreateCurrentPlan(ctx, userID)
}

// MarkWorkoutComplete records a completed workout with feedback.
func (o *Orchestrator) MarkWorkoutComplete(ctx context.Context, userID, date string, fb plan.Feedback) (*plan.WeeklyPlan, error) {
	return o.schedule.MarkComplete(ctx, userID, date, fb)
}

// MarkWorkoutMissed records a missed workout and replans the following days.
func (o *Orchestrator) MarkWorkoutMissed(ctx context.Context, userID, date string) (*plan.WeeklyPlan, error) {
	return o.schedule.MarkMissed(ctx, userID, date)
}

// EditDay applies a partial update to one day.
func (o *Orchestrator) EditDay(ctx context.Context, userID, date string, upd plan.DayUpdate) (*plan.WeeklyPlan, error) {
	return o.schedule.EditDay(ctx, userID, date, upd)
}

// RegeneratePlan drops today's cached decision, recomputes it and rebuilds
// the plan from today. Completed and missed days are kept.
func (o *Orchestrator) RegeneratePlan(ctx context.Context, userID string) (*plan.WeeklyPlan, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	ctx, span := o.tracer.Start(ctx, "orchestrator.regenerate", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	prof, err := o.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	today := o.today(*prof)
	dateKey := plan.DateKey(today)
	o.cache.InvalidateDay(userID, dateKey)

	d := o.compute(ctx, *prof, today)
	if b, err := json.Marshal(d); err == nil {
		o.cache.Set(cache.Key{Purpose: string(purposeShared), UserID: userID, DateKey: dateKey}, b, o.cache.TTL(d.Degraded))
	}

	p, err := o.schedule.Regenerate(ctx, userID, &d)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return p, nil
}

// SaveProfile stores the profile and drops today's cached decision.
func (o *Orchestrator) SaveProfile(ctx context.Context, p profile.Profile) error {
	if err := o.profiles.SaveProfile(ctx, p); err != nil {
		return err
	}
	o.cache.InvalidateDay(p.UserID, plan.DateKey(o.today(p)))
	return nil
}

// RecordLog stores a daily log and drops the cached decision of its day so
// the new signals are reflected.
func (o *Orchestrator) RecordLog(ctx context.Context, l profile.DailyLog) error {
	if err := o.profiles.RecordLog(ctx, l); err != nil {
		return err
	}
	n := o.cache.InvalidateDay(l.UserID, l.Date)
	o.logger.Debug(logging.WithUserID(ctx, l.UserID), "log recorded", zap.String("date", l.Date), zap.Int("invalidated", n))
	return nil
}

// InvalidateDecision drops every cached purpose for the user and date and
// returns how many entries were removed.
func (o *Orchestrator) InvalidateDecision(ctx context.Context, userID, date string) int {
	n := o.cache.InvalidateDay(userID, date)
	o.logger.Debug(logging.WithUserID(ctx, userID), "decision invalidated", zap.String("date", date), zap.Int("removed", n))
	return n
}

func (o *Orchestrator) today(p profile.Profile) time.Time {
	now := o.now().In(p.Location())
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// resolveDate maps date to midnight of its calendar day in the user's zone
// when date is zero, or in date's own zone otherwise.
func (o *Orchestrator) resolveDate(p profile.Profile, date time.Time) time.Time {
	if date.IsZero() {
		return o.today(p)
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, p.Location())
}

func decode(b []byte) (*plan.Decision, error) {
	var d plan.Decision
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("decode cached decision: %w", err)
	}
	return &d, nil
}
