/*
scheduler.go - Background payment-reminder sweep

PURPOSE:
  Periodically evaluates the reminder rule for every student with an
  outstanding balance and caches the decisions, so the admin dashboard's
  reminder list is a cache read instead of N evaluations per page load.

DESIGN:
  - Background goroutine with a configurable interval
  - Results cached in go-cache with a TTL of two sweep intervals, so a
    stalled sweep ages out stale decisions instead of serving them forever
  - The sweep is cheap CPU work per student; evaluations are independent,
    no coordination needed

  Decisions are time-sensitive (the evaluator's 7-day grace window moves
  with the clock), which is exactly why they are re-derived every sweep
  and never persisted.

USAGE:
  sweeper := NewReminderSweeper(handler, 5*time.Minute)
  handler.Sweeper = sweeper
  sweeper.Start()
  // ... on shutdown
  sweeper.Stop()

SEE ALSO:
  - reminder: The evaluation being swept
  - handlers.go: ListReminders serves from this cache
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/kelola/course-engine/reminder"
)

// ReminderSweeper periodically evaluates reminders for all outstanding
// payments and caches the decisions.
type ReminderSweeper struct {
	Handler  *Handler
	Interval time.Duration

	cache  *gocache.Cache
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewReminderSweeper creates a sweeper with the given interval.
func NewReminderSweeper(handler *Handler, interval time.Duration) *ReminderSweeper {
	return &ReminderSweeper{
		Handler:  handler,
		Interval: interval,
		cache:    gocache.New(2*interval, interval),
		stop:     make(chan struct{}),
	}
}

// Start begins the background sweep. The first sweep runs immediately.
func (rs *ReminderSweeper) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.ticker = time.NewTicker(rs.Interval)
	rs.wg.Add(1)
	go rs.run()

	slog.Info("reminder sweeper started", "interval", rs.Interval)
}

// Stop stops the sweep and waits for the current pass to finish.
func (rs *ReminderSweeper) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		slog.Info("reminder sweeper stopped")
	}
}

func (rs *ReminderSweeper) run() {
	defer rs.wg.Done()

	rs.Sweep(context.Background())

	for {
		select {
		case <-rs.ticker.C:
			rs.Sweep(context.Background())
		case <-rs.stop:
			return
		}
	}
}

// Sweep evaluates all outstanding payments once and refreshes the cache.
// Exported so tests and admin tooling can force a pass.
func (rs *ReminderSweeper) Sweep(ctx context.Context) {
	decisions, err := rs.Handler.EvaluateOutstanding(ctx)
	if err != nil {
		slog.Error("reminder sweep failed", "error", err)
		return
	}

	due := 0
	for _, d := range decisions {
		rs.cache.Set(d.StudentID, d, gocache.DefaultExpiration)
		if d.ShouldShowReminder {
			due++
		}
	}
	slog.Info("reminder sweep complete", "evaluated", len(decisions), "due", due)
}

// Due returns the cached decisions whose reminder is currently active.
func (rs *ReminderSweeper) Due() []reminder.Decision {
	var due []reminder.Decision
	for _, item := range rs.cache.Items() {
		d, ok := item.Object.(reminder.Decision)
		if ok && d.ShouldShowReminder {
			due = append(due, d)
		}
	}
	return due
}
