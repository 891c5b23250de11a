package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/cadence/internal/clamp"
	"github.com/fyrsmithlabs/cadence/internal/docstore"
	"github.com/fyrsmithlabs/cadence/internal/events"
	"github.com/fyrsmithlabs/cadence/internal/logging"
	"github.com/fyrsmithlabs/cadence/internal/plan"
	"github.com/fyrsmithlabs/cadence/internal/profile"
)

// DefaultPlanDays is the length of a freshly generated plan.
const DefaultPlanDays = 7

// Profiles loads the profile a plan is generated from.
type Profiles interface {
	GetProfile(ctx context.Context, userID string) (*profile.Profile, error)
}

// Service implements the schedule operations on top of a document store.
type Service struct {
	repo     *repository
	profiles Profiles
	gen      *Generator
	events   events.Publisher
	logger   *logging.Logger
	metrics  *Metrics
	tracer   trace.Tracer
	now      func() time.Time
	planDays int
	locks    *userLocks
}

// Option configures a Service.
type Option func(*Service)

// WithGenerator replaces the default day generator.
func WithGenerator(g *Generator) Option {
	return func(s *Service) {
		if g != nil {
			s.gen = g
		}
	}
}

// WithPublisher sets the lifecycle event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.events = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer sets the tracer used for operation spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPlanDays sets how many days a new plan covers.
func WithPlanDays(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.planDays = n
		}
	}
}

// NewService creates a schedule service.
func NewService(store docstore.Store, profiles Profiles, opts ...Option) *Service {
	s := &Service{
		repo:     &repository{store: store},
		profiles: profiles,
		gen:      NewGenerator(DefaultCycleLength),
		events:   events.Noop{},
		logger:   logging.NewNop(),
		tracer:   Tracer(),
		now:      time.Now,
		planDays: DefaultPlanDays,
		locks:    newUserLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generator returns the generator used for new and replanned days.
func (s *Service) Generator() *Generator {
	return s.gen
}

// PlanDays returns the length of a freshly generated plan.
func (s *Service) PlanDays() int {
	return s.planDays
}

// Today returns local midnight of the current day for p.
func (s *Service) Today(p profile.Profile) time.Time {
	now := s.now().In(p.Location())
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// userState is what every operation needs about the user.
type userState struct {
	profile profile.Profile
	today   time.Time
}

func (u userState) todayKey() string {
	return plan.DateKey(u.today)
}

// mutation collects the events of one operation so they are published
// only after the plan is saved. Events marked written describe a write that
// already happened and are published even when the operation fails later.
type mutation struct {
	userID  string
	events  []events.Event
	written []bool
}

func (m *mutation) emit(eventType, planID string, dates ...string) {
	m.events = append(m.events, events.New(eventType, m.userID, planID, dates...))
	m.written = append(m.written, false)
}

func (m *mutation) emitWritten(eventType, planID string, dates ...string) {
	m.emit(eventType, planID, dates...)
	m.written[len(m.written)-1] = true
}

// committed returns the events to publish when the operation failed.
func (m *mutation) committed() []events.Event {
	var out []events.Event
	for i, e := range m.events {
		if m.written[i] {
			out = append(out, e)
		}
	}
	return out
}

// run serializes fn per user and wraps it in a span and metrics.
func (s *Service) run(ctx context.Context, op, userID string, fn func(ctx context.Context, u userState, m *mutation) (*plan.WeeklyPlan, error)) (*plan.WeeklyPlan, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	ctx, span := s.tracer.Start(ctx, "schedule."+op, trace.WithAttributes(
		attribute.String("schedule.operation", op),
		attribute.String("user.id", userID),
	))
	defer span.End()
	ctx = logging.WithUserID(ctx, userID)

	unlock := s.locks.lock(userID)
	defer unlock()

	p, m, err := s.exec(ctx, userID, fn)
	s.metrics.RecordOperation(ctx, op, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn(ctx, "schedule operation failed", zap.String("operation", op), zap.Error(err))
		if m != nil {
			for _, e := range m.committed() {
				s.events.Publish(ctx, e)
			}
		}
		return nil, err
	}

	for _, e := range m.events {
		s.events.Publish(ctx, e)
	}
	span.SetAttributes(attribute.String("plan.id", p.ID), attribute.Int("schedule.events", len(m.events)))
	s.logger.Debug(ctx, "schedule operation done",
		zap.String("operation", op),
		zap.String("plan_id", p.ID),
		zap.Int("events", len(m.events)),
	)
	return p, nil
}

func (s *Service) exec(ctx context.Context, userID string, fn func(ctx context.Context, u userState, m *mutation) (*plan.WeeklyPlan, error)) (*plan.WeeklyPlan, *mutation, error) {
	prof, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("load profile: %w", err)
	}
	u := userState{profile: *prof, today: s.Today(*prof)}
	m := &mutation{userID: userID}
	p, err := fn(ctx, u, m)
	if err != nil {
		return nil, m, err
	}
	return p, m, nil
}

// GetOrCreateCurrentPlan returns the active plan covering today, creating
// it when absent. Open days before today become missed and the rest of the
// plan is regenerated from today.
func (s *Service) GetOrCreateCurrentPlan(ctx context.Context, userID string) (*plan.WeeklyPlan, error) {
	return s.run(ctx, "get_current", userID, func(ctx context.Context, u userState, m *mutation) (*plan.WeeklyPlan, error) {
		plans, cur, err := s.activePlans(ctx, userID, u, m)
		if err != nil {
			return nil, err
		}
		p := &plans[cur]
		if s.detectMissed(ctx, p, u, m) {
			if err := s.save(ctx, p); err != nil {
				return nil, err
			}
		}
		return p, nil
	})
}

// Merge folds preview days into the current plan by date. Completed and
// missed days are kept, changed open days become rescheduled, and days past
// the plan's end extend it when they do not collide with another plan.
func (s *Service) Merge(ctx context.Context, userID string, preview []plan.DayPlan) (*plan.WeeklyPlan, error) {
	return s.run(ctx, "merge", userID, func(ctx context.Context, u userState, m *mutation) (*plan.WeeklyPlan, error) {
		plans, cur, err := s.activePlans(ctx, userID, u, m)
		if err != nil {
			return nil, err
		}
		p := &plans[cur]
		s.detectMissed(ctx, p, u, m)

		days := append([]plan.DayPlan(nil), preview...)
		sort.SliceStable(days, func(i, j int) bool { return days[i].Date < days[j].Date })

		var changed, extension []string
		var appended []plan.DayPlan
		for _, day := range days {
			if _, err := plan.ParseDate(day.Date, time.UTC); err != nil {
				return nil, fmt.Errorf("%w: preview day %q", ErrInvalidDate, day.Date)
			}
			if idx := p.Day(day.Date); idx >= 0 {
				if next, ok := replace(p.Days[idx], clamp.Day(day), false, false); ok {
					p.Days[idx] = next
					changed = append(changed, day.Date)
				}
				continue
			}
			end := p.WeekEnd
			if len(appended) > 0 {
				end = appended[len(appended)-1].Date
			}
			want, _ := plan.AddDays(end, 1)
			if day.Date != want {
				// Past days and gaps are never merged.
				continue
			}
			day = clamp.Day(day)
			day.Status = plan.StatusPlanned
			day.Feedback, day.CompletedAt = nil, nil
			appended = append(appended, day)
			extension = append(extension, day.Date)
		}

		if len(appended) > 0 {
			first, last := extension[0], extension[len(extension)-1]
			for i := range plans {
				if i != cur && plans[i].Overlaps(first, last) {
					return nil, fmt.Errorf("%w: extending plan %s to %s collides with plan %s (%s..%s)",
						ErrScheduleConflict, p.ID, last, plans[i].ID, plans[i].WeekStart, plans[i].WeekEnd)
				}
			}
			p.Days = append(p.Days, appended...)
			p.WeekEnd = last
		}

		if err := s.save(ctx, p); err != nil {
			return nil, err
		}
		dates := append(changed, extension...)
		s.metrics.RecordReplanned(ctx, "merge", len(dates))
		m.emit(events.PlanMerged, p.ID, dates...)
		return p, nil
	})
}

// MarkComplete records that the workout of date was done.
func (s *Service) MarkComplete(ctx context.Context, userID, date string, fb plan.Feedback) (*plan.WeeklyPlan, error) {
	return s.run(ctx, "mark_complete", userID, func(ctx context.Context, u userState, m *mutation) (*plan.WeeklyPlan, error) {
		if err := validDate(date); err != nil {
			return nil, err
		}
		if date > u.todayKey() {
			return nil, fmt.Errorf("%w: %s is after %s", ErrFutureDay, date, u.todayKey())
		}
		p, idx, err := s.dayFor(ctx, userID, u, m, date)
		if err != nil {
			return nil, err
		}
		day := &p.Days[idx]
		if err := transition(day, plan.StatusCompleted); err != nil {
			return nil, err
		}
		now := s.now().UTC()
		day.CompletedAt = &now
		day.Feedback = &plan.Feedback{
			Rating: clampOptional(fb.Rating),
			Energy: clampOptional(fb.Energy),
			Note:   fb.Note,
		}

		if err := s.save(ctx, p); err != nil {
			return nil, err
		}
		m.emit(events.DayCompleted, p.ID, date)
		return p, nil
	})
}

// MarkMissed records that the workout of date was skipped and regenerates
// the open days after it. Earlier days are left untouched.
func (s *Service) MarkMissed(ctx context.Context, userID, date string) (*plan.WeeklyPlan, error) {
	return s.run(ctx, "mark_missed", userID, func(ctx context.Context, u userState, m *mutation) (*plan.WeeklyPlan, error) {
		if err := validDate(date); err != nil {
			return nil, err
		}
		p, idx, err := s.dayFor(ctx, userID, u, m, date)
		if err != nil {
			return nil, err
		}
		if err := transition(&p.Days[idx], plan.StatusMissed); err != nil {
			return nil, err
		}
		missed := p.Days[idx]
		m.emit(events.DayMissed, p.ID, date)

		next, _ := plan.AddDays(date, 1)
		changed := s.replan(p, u, replanOptions{from: next, carry: &missed, auto: true, force: true})
		if err := s.save(ctx, p); err != nil {
			return nil, err
		}
		s.metrics.RecordReplanned(ctx, "mark_missed", len(changed))
		if len(changed) > 0 {
			m.emit(events.PlanReplanned, p.ID, changed...)
		}
		return p, nil
	})
}

// EditDay applies a partial update to one day. Changing workout or
// readiness moves the day to rescheduled.
func (s *Service) EditDay(ctx context.Context, userID, date string, upd plan.DayUpdate) (*plan.WeeklyPlan, error) {
	return s.run(ctx, "edit_day", userID, func(ctx context.Context, u userState, m *mutation) (*plan.WeeklyPlan, error) {
		if err := validDate(date); err != nil {
			return nil, err
		}
		if err := validUpdate(upd); err != nil {
			return nil, err
		}
		p, idx, err := s.dayFor(ctx, userID, u, m, date)
		if err != nil {
			return nil, err
		}
		day := p.Days[idx]
		if upd.Readiness != nil {
			day.Readiness = *upd.Readiness
		}
		if upd.Workout != nil {
			day.Workout = *upd.Workout
		}
		if upd.CalorieTarget != nil {
			day.CalorieTarget = *upd.CalorieTarget
		}
		if upd.MacroTargets != nil {
			day.MacroTargets = *upd.MacroTargets
		}
		if upd.NutritionTip != nil {
			day.NutritionTip = *upd.NutritionTip
		}
		if upd.ChangesSchedule() {
			if err := transition(&day, plan.StatusRescheduled); err != nil {
				return nil, err
			}
			day.AutoReplanned = false
		}
		p.Days[idx] = clamp.Day(day)

		if err := s.save(ctx, p); err != nil {
			return nil, err
		}
		m.emit(events.DayEdited, p.ID, date)
		return p, nil
	})
}

// Regenerate rebuilds the open days of the current plan from today. When d
// is set, today's day follows the decision.
func (s *Service) Regenerate(ctx context.Context, userID string, d *plan.Decision) (*plan.WeeklyPlan, error) {
	return s.run(ctx, "regenerate", userID, func(ctx context.Context, u userState, m *mutation) (*plan.WeeklyPlan, error) {
		plans, cur, err := s.activePlans(ctx, userID, u, m)
		if err != nil {
			return nil, err
		}
		p := &plans[cur]
		s.detectMissed(ctx, p, u, m)

		changed := s.replan(p, u, replanOptions{from: u.todayKey(), decision: d})
		if err := s.save(ctx, p); err != nil {
			return nil, err
		}
		s.metrics.RecordReplanned(ctx, "regenerate", len(changed))
		m.emit(events.PlanReplanned, p.ID, changed...)
		return p, nil
	})
}

// activePlans archives ended plans, loads the remaining active ones and
// makes sure one covers today. It returns the plans and the index of the
// current one.
func (s *Service) activePlans(ctx context.Context, userID string, u userState, m *mutation) ([]plan.WeeklyPlan, int, error) {
	today := u.todayKey()
	archived, err := s.repo.archiveBefore(ctx, userID, today)
	if err != nil {
		return nil, -1, err
	}
	if archived > 0 {
		s.logger.Info(ctx, "archived ended plans", zap.Int("count", archived))
	}

	plans, err := s.repo.active(ctx, userID)
	if err != nil {
		return nil, -1, err
	}
	for i := range plans {
		if plans[i].Covers(today) {
			return plans, i, nil
		}
	}

	days := s.planDays
	for i := range plans {
		// A plan already starting later in the window shortens the new one.
		if plans[i].WeekStart > today {
			gap := len(dateRange(u.today, plans[i].WeekStart))
			days = min(days, gap)
		}
	}
	now := s.now().UTC()
	p := plan.WeeklyPlan{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    plan.PlanActive,
		Days:      s.gen.Days(u.profile, u.today, days, nil),
		CreatedAt: now,
		UpdatedAt: now,
	}
	p.WeekStart = p.Days[0].Date
	p.WeekEnd = p.Days[len(p.Days)-1].Date
	for i := range plans {
		if plans[i].Overlaps(p.WeekStart, p.WeekEnd) {
			return nil, -1, fmt.Errorf("%w: new plan %s..%s collides with plan %s",
				ErrScheduleConflict, p.WeekStart, p.WeekEnd, plans[i].ID)
		}
	}
	if err := s.repo.insert(ctx, &p); err != nil {
		return nil, -1, err
	}
	s.logger.Info(ctx, "plan generated",
		zap.String("plan_id", p.ID),
		zap.String("week_start", p.WeekStart),
		zap.String("week_end", p.WeekEnd),
	)
	m.emitWritten(events.PlanGenerated, p.ID, p.WeekStart, p.WeekEnd)

	plans = append(plans, p)
	return plans, len(plans) - 1, nil
}

// dayFor finds the active plan and day index for date.
func (s *Service) dayFor(ctx context.Context, userID string, u userState, m *mutation, date string) (*plan.WeeklyPlan, int, error) {
	plans, _, err := s.activePlans(ctx, userID, u, m)
	if err != nil {
		return nil, -1, err
	}
	for i := range plans {
		if !plans[i].Covers(date) {
			continue
		}
		idx := plans[i].Day(date)
		if idx < 0 {
			return nil, -1, fmt.Errorf("%w: %s in plan %s", ErrDayNotFound, date, plans[i].ID)
		}
		return &plans[i], idx, nil
	}
	return nil, -1, fmt.Errorf("%w: %s", ErrPlanNotFound, date)
}

// detectMissed marks open days before today as missed and replans the rest
// of p from today. It reports whether p changed.
func (s *Service) detectMissed(ctx context.Context, p *plan.WeeklyPlan, u userState, m *mutation) bool {
	today := u.todayKey()
	var missed []string
	last := -1
	for i := range p.Days {
		d := &p.Days[i]
		if d.Date < today && d.Status.IsOpen() {
			d.Status = plan.StatusMissed
			missed = append(missed, d.Date)
			last = i
		}
	}
	if len(missed) == 0 {
		return false
	}
	s.logger.Info(ctx, "missed days detected", zap.Strings("dates", missed))
	m.emit(events.DayMissed, p.ID, missed...)

	carry := p.Days[last]
	changed := s.replan(p, u, replanOptions{from: today, carry: &carry, auto: true, force: true})
	s.metrics.RecordReplanned(ctx, "detect_missed", len(changed))
	if len(changed) > 0 {
		m.emit(events.PlanReplanned, p.ID, changed...)
	}
	return true
}

type replanOptions struct {
	// from is the first date that may be rewritten. Dates before today are
	// never rewritten.
	from string
	// carry is a missed day whose session may move to the day after it.
	carry *plan.DayPlan
	// decision overrides the day matching its date.
	decision *plan.Decision
	// auto marks rewritten days as automatically replanned.
	auto bool
	// force rewrites open days even when their content is unchanged.
	force bool
}

// replan regenerates the open days of p from opts.from and returns the
// dates it rewrote.
func (s *Service) replan(p *plan.WeeklyPlan, u userState, opts replanOptions) []string {
	from := max(opts.from, u.todayKey())
	loc := u.today.Location()
	var changed []string
	first := true
	for i := range p.Days {
		cur := p.Days[i]
		if cur.Date < from || cur.Status.IsHistory() {
			continue
		}
		date, err := plan.ParseDate(cur.Date, loc)
		if err != nil {
			continue
		}
		var prev *plan.DayPlan
		if i > 0 {
			prev = &p.Days[i-1]
		}
		fresh := s.gen.Day(u.profile, date, prev)
		if opts.decision != nil && opts.decision.Date == cur.Date {
			fresh = ApplyDecision(fresh, *opts.decision)
		}
		if first && opts.carry != nil {
			fresh = carryForward(fresh, *opts.carry)
		}
		first = false

		if next, ok := replace(cur, fresh, opts.auto, opts.force); ok {
			p.Days[i] = next
			changed = append(changed, cur.Date)
		}
	}
	return changed
}

// carryForward moves a missed session onto the day right after it when
// that day's readiness can absorb it.
func carryForward(day, missed plan.DayPlan) plan.DayPlan {
	next, err := plan.AddDays(missed.Date, 1)
	if err != nil || next != day.Date {
		return day
	}
	if day.Readiness != plan.ReadinessPush && day.Readiness != plan.ReadinessMaintain {
		return day
	}
	w := FitWorkout(missed.Workout, day.Readiness)
	w.Notes = "Moved from " + missed.Date
	day.Workout = w
	return clamp.Day(day)
}

// replace swaps cur for fresh unless cur is history or, without force,
// nothing would change.
func replace(cur, fresh plan.DayPlan, auto, force bool) (plan.DayPlan, bool) {
	if cur.Status.IsHistory() {
		return cur, false
	}
	if !force && sameContent(cur, fresh) {
		return cur, false
	}
	if !cur.Status.CanTransitionTo(plan.StatusRescheduled) {
		return cur, false
	}
	fresh.Date = cur.Date
	fresh.Status = plan.StatusRescheduled
	fresh.AutoReplanned = auto || fresh.AutoReplanned
	fresh.Feedback, fresh.CompletedAt = nil, nil
	return fresh, true
}

func sameContent(a, b plan.DayPlan) bool {
	return a.Phase == b.Phase &&
		a.Readiness == b.Readiness &&
		a.Workout == b.Workout &&
		a.CalorieTarget == b.CalorieTarget &&
		a.MacroTargets == b.MacroTargets &&
		a.NutritionTip == b.NutritionTip
}

func transition(day *plan.DayPlan, to plan.Status) error {
	if !day.Status.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s is %s, cannot become %s", ErrInvalidTransition, day.Date, day.Status, to)
	}
	day.Status = to
	return nil
}

func (s *Service) save(ctx context.Context, p *plan.WeeklyPlan) error {
	p.UpdatedAt = s.now().UTC()
	return s.repo.save(ctx, p)
}

func validDate(date string) error {
	if _, err := plan.ParseDate(date, time.UTC); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return nil
}

func validUpdate(u plan.DayUpdate) error {
	if u.IsEmpty() {
		return ErrEmptyUpdate
	}
	var errs []error
	if u.Readiness != nil && !u.Readiness.IsValid() {
		errs = append(errs, fmt.Errorf("%w: unknown readiness %q", ErrInvalidUpdate, *u.Readiness))
	}
	if w := u.Workout; w != nil {
		if w.Type == "" {
			errs = append(errs, fmt.Errorf("%w: workout type is required", ErrInvalidUpdate))
		}
		switch w.Intensity {
		case plan.IntensityLow, plan.IntensityModerate, plan.IntensityHigh:
		default:
			errs = append(errs, fmt.Errorf("%w: unknown intensity %q", ErrInvalidUpdate, w.Intensity))
		}
	}
	return errors.Join(errs...)
}

// clampOptional bounds a 1..5 rating, leaving 0 as "not given".
func clampOptional(v int) int {
	if v == 0 {
		return 0
	}
	return clamp.Rating(v)
}

// dateRange lists the dates from start up to but excluding end.
func dateRange(start time.Time, end string) []string {
	var out []string
	for d := start; plan.DateKey(d) < end; d = d.AddDate(0, 0, 1) {
		out = append(out, plan.DateKey(d))
	}
	return out
}
