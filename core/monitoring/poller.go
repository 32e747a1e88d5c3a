package monitoring

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Broadband-Catalysts/tasker-sub001/config"
	"github.com/Broadband-Catalysts/tasker-sub001/core/logging"
	"github.com/Broadband-Catalysts/tasker-sub001/core/models"
	"github.com/Broadband-Catalysts/tasker-sub001/core/repository"
)

// PollerStats describes the reconciliation loop's recent behavior.
type PollerStats struct {
	Polls          uint64    `json:"polls"`
	Failures       uint64    `json:"failures"`
	LastPollAt     time.Time `json:"last_poll_at"`
	LastDurationMS float64   `json:"last_duration_ms"`
	LastError      string    `json:"last_error,omitempty"`
}

// Poller owns the poll-and-reconcile loop: it reads the tasker tables on a
// timer, builds a snapshot, diffs it against the previous one and publishes
// the changes. A failed poll keeps the previous snapshot in place.
type Poller struct {
	stageRepo   *repository.StageRepository
	taskRepo    *repository.TaskRepository
	subtaskRepo *repository.SubtaskRepository
	metricsRepo *repository.MetricsRepository
	hub         *Hub
	cfg         config.MonitorConfig
	logger      *zap.Logger

	mu       sync.RWMutex
	latest   *Snapshot
	revision uint64
	stats    PollerStats

	refreshCh chan string
	resyncCh  chan string

	cron *cron.Cron
}

// NewPoller creates a poller over the given repositories. Start must be
// called for it to do anything.
func NewPoller(
	stageRepo *repository.StageRepository,
	taskRepo *repository.TaskRepository,
	subtaskRepo *repository.SubtaskRepository,
	metricsRepo *repository.MetricsRepository,
	hub *Hub,
	cfg config.MonitorConfig,
) *Poller {
	return &Poller{
		stageRepo:   stageRepo,
		taskRepo:    taskRepo,
		subtaskRepo: subtaskRepo,
		metricsRepo: metricsRepo,
		hub:         hub,
		cfg:         cfg,
		logger:      logging.GetLogger(),
		refreshCh:   make(chan string, 1),
		resyncCh:    make(chan string, 1),
	}
}

// Start runs the polling loop until ctx is cancelled. The first poll
// happens immediately so the dashboard has data as soon as possible.
func (p *Poller) Start(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	lastPoll := time.Now()
	p.poll(ctx, false, "startup")

	var (
		pending       bool
		pendingReason string
		cooldown      <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			lastPoll = time.Now()
			p.poll(ctx, false, "interval")

		case reason := <-p.refreshCh:
			// Manual refreshes respect the cooldown; requests inside it
			// coalesce into one poll served when it expires.
			if wait := p.cfg.MinPollInterval - time.Since(lastPoll); wait > 0 {
				if !pending {
					pending = true
					pendingReason = reason
					cooldown = time.After(wait)
				}
				continue
			}
			lastPoll = time.Now()
			p.poll(ctx, false, reason)

		case <-cooldown:
			cooldown = nil
			if pending {
				pending = false
				lastPoll = time.Now()
				p.poll(ctx, false, pendingReason)
			}

		case reason := <-p.resyncCh:
			lastPoll = time.Now()
			p.poll(ctx, true, reason)
		}
	}
}

// Refresh asks for a poll outside the timer cadence. It never blocks; a
// request arriving while one is already queued rides along with it.
func (p *Poller) Refresh(reason string) {
	select {
	case p.refreshCh <- reason:
	default:
	}
}

// ForceResync asks for a poll whose result is broadcast as a full
// snapshot_reset instead of a diff, so every consumer rebuilds its state.
func (p *Poller) ForceResync(reason string) {
	select {
	case p.resyncCh <- reason:
	default:
	}
}

// StartResyncSchedule arranges periodic full resyncs on a cron expression.
// StopResyncSchedule must be called on shutdown.
func (p *Poller) StartResyncSchedule(schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { p.ForceResync("scheduled resync") }); err != nil {
		return err
	}
	c.Start()
	p.cron = c

	p.logger.Info("scheduled full resync", zap.String("schedule", schedule))
	return nil
}

// StopResyncSchedule stops the cron runner and waits for a running entry to
// finish. Safe to call when no schedule was started.
func (p *Poller) StopResyncSchedule() {
	if p.cron != nil {
		<-p.cron.Stop().Done()
	}
}

// Latest returns the most recent snapshot, or nil before the first
// successful poll.
func (p *Poller) Latest() *Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}

// Stats returns a copy of the loop counters.
func (p *Poller) Stats() PollerStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stats
}

// LegacySchema reports whether polls are served by the older database view.
func (p *Poller) LegacySchema() bool {
	return p.taskRepo.LegacySchema()
}

func (p *Poller) poll(ctx context.Context, reset bool, reason string) {
	start := time.Now()

	snap, err := p.collect(ctx)
	if err != nil {
		p.mu.Lock()
		p.stats.Failures++
		p.stats.LastError = err.Error()
		p.stats.LastPollAt = start
		p.stats.LastDurationMS = float64(time.Since(start).Microseconds()) / 1000
		p.mu.Unlock()

		p.logger.Warn("poll failed, keeping previous snapshot",
			zap.String("reason", reason), zap.Error(err))
		return
	}

	p.mu.Lock()
	old := p.latest
	p.revision++
	snap.Revision = p.revision
	p.latest = snap
	p.stats.Polls++
	p.stats.LastError = ""
	p.stats.LastPollAt = start
	p.stats.LastDurationMS = float64(time.Since(start).Microseconds()) / 1000
	p.mu.Unlock()

	if reset {
		old = nil
	}

	cs := Diff(old, snap)
	if len(cs.Changes) == 0 {
		return
	}
	if cs.Reset && reason != "" {
		cs.Changes[0].Reason = reason
	}

	p.hub.Publish(cs)
	p.logger.Debug("published changes",
		zap.Uint64("revision", snap.Revision),
		zap.Int("changes", len(cs.Changes)),
		zap.String("reason", reason))
}

// collect reads everything one snapshot needs. Stage, task and current-run
// queries run in parallel; subtasks and metrics follow once the run IDs
// are known.
func (p *Poller) collect(ctx context.Context) (*Snapshot, error) {
	var (
		stages []models.Stage
		tasks  []models.Task
		runs   map[int64]models.TaskRun
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stages, err = p.stageRepo.ListStages()
		return err
	})
	g.Go(func() error {
		var err error
		tasks, err = p.taskRepo.ListTasks()
		return err
	})
	g.Go(func() error {
		var err error
		runs, err = p.taskRepo.CurrentRuns()
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	runIDs := make([]int64, 0, len(runs))
	for _, run := range runs {
		runIDs = append(runIDs, run.RunID)
	}

	var (
		subtasks map[int64][]models.SubtaskRun
		metrics  map[int64]models.ProcessMetrics
	)

	g, _ = errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		subtasks, err = p.subtaskRepo.RunSubtasks(runIDs)
		return err
	})
	g.Go(func() error {
		var err error
		metrics, err = p.metricsRepo.LatestMetrics(runIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return BuildSnapshot(time.Now(), p.cfg.HeartbeatStaleAfter,
		stages, tasks, runs, subtasks, metrics, p.taskRepo.LegacySchema()), nil
}
