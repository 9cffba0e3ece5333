// Package cronsched reconciles an in-memory set of cron jobs against
// the schedules declared in the store, and fires DAG executions when
// they come due. Grounded on cron_scheduler.py's polling reconciliation
// loop, rebuilt around robfig/cron/v3.
package cronsched

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mellivora/etl-engine/internal/apperr"
	"github.com/mellivora/etl-engine/internal/core"
	"github.com/mellivora/etl-engine/internal/dagexec"
	"github.com/mellivora/etl-engine/internal/logger"
	"github.com/mellivora/etl-engine/internal/store"
)

// Config controls the scheduler's polling behavior.
type Config struct {
	Enabled      bool
	PollInterval time.Duration
}

// activeJob is the bookkeeping kept per schedule currently registered
// with the underlying cron.Cron, enough to detect when a schedule's
// cron_expr, timezone, or DAG shape changed.
type activeJob struct {
	entryID  cron.EntryID
	schedule core.Schedule
}

// Scheduler owns the cron.Cron instance and the poll loop that keeps it
// in sync with store.Store's enabled schedules.
type Scheduler struct {
	cron     *cron.Cron
	dagexec  *dagexec.Executor
	store    store.Store
	log      logger.Logger
	cfg      Config

	mu     sync.Mutex
	active map[string]*activeJob

	stop chan struct{}
	done chan struct{}
}

// New builds a Scheduler. Call Start to begin polling.
func New(st store.Store, exec *dagexec.Executor, log logger.Logger, cfg Config) *Scheduler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	return &Scheduler{
		cron:    cron.New(),
		dagexec: exec,
		store:   st,
		log:     log,
		cfg:     cfg,
		active:  map[string]*activeJob{},
	}
}

// Start performs an initial sync, starts the underlying cron.Cron, and
// launches the polling goroutine. A no-op when the scheduler is
// disabled by config.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.log.Info("scheduler disabled")
		return nil
	}

	s.log.Info("starting scheduler")

	if err := s.sync(ctx); err != nil {
		return err
	}

	s.cron.Start()

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.pollLoop(ctx)

	s.mu.Lock()
	n := len(s.active)
	s.mu.Unlock()
	s.log.Info("scheduler started", "active_jobs", n)
	return nil
}

// Stop halts the poll loop and the underlying cron.Cron, waiting for
// any in-flight job invocation to finish.
func (s *Scheduler) Stop() {
	s.log.Info("stopping scheduler")
	if s.stop != nil {
		close(s.stop)
		<-s.done
	}
	cronCtx := s.cron.Stop()
	<-cronCtx.Done()

	s.mu.Lock()
	s.active = map[string]*activeJob{}
	s.mu.Unlock()

	s.log.Info("scheduler stopped")
}

func (s *Scheduler) pollLoop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.sync(ctx); err != nil {
				s.log.Error("poll error", "error", err.Error())
			}
		}
	}
}

// sync reconciles the active job set against the store's currently
// enabled schedules: removed/disabled schedules drop their job,
// new schedules are added, changed schedules are replaced, and every
// remaining job's next_run_at is refreshed.
func (s *Scheduler) sync(ctx context.Context) error {
	schedules, err := s.store.ListEnabledSchedules(ctx)
	if err != nil {
		return apperr.Wrap(apperr.StoreFailure, "list enabled schedules", err)
	}

	byID := make(map[string]*core.Schedule, len(schedules))
	for _, sc := range schedules {
		byID[sc.ID] = sc
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.active {
		if _, ok := byID[id]; !ok {
			s.removeJobLocked(id)
		}
	}

	for id, sc := range byID {
		existing, ok := s.active[id]
		switch {
		case !ok:
			s.addJobLocked(*sc)
		case scheduleChanged(existing.schedule, *sc):
			s.removeJobLocked(id)
			s.addJobLocked(*sc)
		default:
			existing.schedule = *sc
		}
	}

	s.updateNextRunTimesLocked(ctx)
	return nil
}

func scheduleChanged(old, next core.Schedule) bool {
	if old.CronExpr != next.CronExpr || old.Timezone != next.Timezone {
		return true
	}
	return !reflect.DeepEqual(old.DAG, next.DAG)
}

func (s *Scheduler) addJobLocked(sc core.Schedule) {
	spec := cronSpec(sc.CronExpr, sc.Timezone)
	entryID, err := s.cron.AddFunc(spec, func() {
		s.fire(context.Background(), sc)
	})
	if err != nil {
		s.log.Error("failed to add schedule job", "schedule_id", sc.ID, "error", err.Error())
		return
	}

	s.active[sc.ID] = &activeJob{entryID: entryID, schedule: sc}
	s.log.Info("added schedule job", "schedule_id", sc.ID, "schedule_name", sc.Name, "cron_expr", sc.CronExpr)
}

func (s *Scheduler) removeJobLocked(id string) {
	job, ok := s.active[id]
	if !ok {
		return
	}
	s.cron.Remove(job.entryID)
	delete(s.active, id)
	s.log.Info("removed schedule job", "schedule_id", id, "schedule_name", job.schedule.Name)
}

// updateNextRunTimesLocked refreshes next_run_at for every active job
// from the cron.Cron entry, persisting it to the store.
func (s *Scheduler) updateNextRunTimesLocked(ctx context.Context) {
	for id, job := range s.active {
		entry := s.cron.Entry(job.entryID)
		if entry.ID == 0 {
			continue
		}
		if err := s.store.UpdateNextRunAt(ctx, id, entry.Next.UTC()); err != nil {
			s.log.Error("failed to update next run", "schedule_id", id, "error", err.Error())
		}
	}
}

// fire runs when a schedule's cron entry triggers, stamping last_run_at
// and handing off to the DAG executor.
func (s *Scheduler) fire(ctx context.Context, sc core.Schedule) {
	s.log.Info("executing schedule", "schedule_id", sc.ID, "schedule_name", sc.Name)

	if err := s.store.UpdateLastRunAt(ctx, sc.ID, core.Now()); err != nil {
		s.log.Error("failed to update last run", "schedule_id", sc.ID, "error", err.Error())
	}

	execution, err := s.dagexec.ExecuteSchedule(ctx, &sc, core.TriggerScheduled, nil)
	if err != nil {
		s.log.Error("schedule execution failed", "schedule_id", sc.ID, "error", err.Error())
		return
	}

	s.log.Info("schedule execution completed", "schedule_id", sc.ID, "execution_id", execution.ID)
}

// TriggerManual runs scheduleID immediately with the given params,
// looking it up in the active set first and falling back to the store
// (spec.md §6's manual-trigger fallback for schedules not currently
// polled, e.g. disabled-but-explicitly-requested).
func (s *Scheduler) TriggerManual(ctx context.Context, scheduleID string, params map[string]any) (*core.Execution, error) {
	s.mu.Lock()
	job, ok := s.active[scheduleID]
	s.mu.Unlock()

	var sc core.Schedule
	if ok {
		sc = job.schedule
	} else {
		loaded, err := s.store.GetSchedule(ctx, scheduleID)
		if err != nil {
			return nil, err
		}
		sc = *loaded
	}

	s.log.Info("manual trigger", "schedule_id", scheduleID)
	return s.dagexec.ExecuteSchedule(ctx, &sc, core.TriggerManual, params)
}

// ActiveScheduleInfo summarizes one currently polled schedule for the
// management surface's list-active-schedules operation.
type ActiveScheduleInfo struct {
	ID           string
	Name         string
	CronExpr     string
	Timezone     string
	NextRunTime  *time.Time
	DAGNodeCount int
}

// ActiveSchedules returns a snapshot of every schedule the scheduler is
// currently polling.
func (s *Scheduler) ActiveSchedules() []ActiveScheduleInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ActiveScheduleInfo, 0, len(s.active))
	for id, job := range s.active {
		entry := s.cron.Entry(job.entryID)
		var next *time.Time
		if entry.ID != 0 && !entry.Next.IsZero() {
			t := entry.Next.UTC()
			next = &t
		}
		out = append(out, ActiveScheduleInfo{
			ID:           id,
			Name:         job.schedule.Name,
			CronExpr:     job.schedule.CronExpr,
			Timezone:     job.schedule.Timezone,
			NextRunTime:  next,
			DAGNodeCount: len(job.schedule.DAG),
		})
	}
	return out
}

// cronSpec prefixes expr with robfig/cron's CRON_TZ directive so the
// schedule evaluates in its declared timezone rather than the process
// local time or UTC.
func cronSpec(expr, timezone string) string {
	if timezone == "" {
		return expr
	}
	return fmt.Sprintf("CRON_TZ=%s %s", timezone, expr)
}
