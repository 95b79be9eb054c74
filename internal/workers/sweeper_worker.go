package workers

import (
	"context"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"sparkreview_backend/internal/logger"
	"sparkreview_backend/internal/models"
	"sparkreview_backend/internal/repositories"
	"sparkreview_backend/internal/services"
)

// sweepBatchLimit caps how many slots one pass picks up per category so a
// backlog cannot stall the ticker indefinitely.
const sweepBatchLimit = 500

// SweeperWorker runs the scheduled lifecycle transitions: expired claims
// are abandoned, overdue submissions auto-accepted and stale disputes
// resolved with the configured default outcome.
type SweeperWorker struct {
	db               *gorm.DB
	slotRepo         repositories.SlotRepository
	lifecycleService services.LifecycleService
	disputeService   services.DisputeService
	interval         time.Duration

	// running guards against overlapping passes when one sweep takes
	// longer than the tick interval.
	running atomic.Bool
}

func NewSweeperWorker(
	db *gorm.DB,
	slotRepo repositories.SlotRepository,
	lifecycleService services.LifecycleService,
	disputeService services.DisputeService,
	interval time.Duration,
) *SweeperWorker {
	return &SweeperWorker{
		db:               db,
		slotRepo:         slotRepo,
		lifecycleService: lifecycleService,
		disputeService:   disputeService,
		interval:         interval,
	}
}

// Start launches the sweep loop. It returns immediately; the loop stops
// when ctx is cancelled.
func (w *SweeperWorker) Start(ctx context.Context) {
	go w.loop(ctx)
}

func (w *SweeperWorker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logger.Info("sweeper worker started", "interval", w.interval.String())

	for {
		select {
		case <-ctx.Done():
			logger.Info("sweeper worker stopped")
			return
		case <-ticker.C:
			w.RunOnce()
		}
	}
}

// RunOnce performs a single sweep pass. Each slot is processed in its own
// transaction: one poisoned slot never blocks the rest of the batch.
func (w *SweeperWorker) RunOnce() {
	if !w.running.CompareAndSwap(false, true) {
		logger.Warn("sweep skipped: previous pass still running")
		return
	}
	defer w.running.Store(false)

	start := time.Now()
	now := start
	processed, failed := 0, 0

	p, f := w.sweepExpiredClaims(now)
	processed, failed = processed+p, failed+f

	p, f = w.sweepAutoAccept(now)
	processed, failed = processed+p, failed+f

	p, f = w.sweepExpiredDisputes(now)
	processed, failed = processed+p, failed+f

	logger.SweepLog(processed, failed, time.Since(start))
}

func (w *SweeperWorker) sweepExpiredClaims(now time.Time) (processed, failed int) {
	slots, err := w.slotRepo.FindExpiredClaims(w.db, now, sweepBatchLimit)
	if err != nil {
		logger.WorkerLog("sweeper", "find expired claims", err)
		return 0, 0
	}

	for i := range slots {
		if _, err := w.lifecycleService.Abandon(slots[i].ID); err != nil {
			logger.WorkerLog("sweeper", "abandon slot "+slots[i].ID, err)
			failed++
			continue
		}
		processed++
	}
	return processed, failed
}

func (w *SweeperWorker) sweepAutoAccept(now time.Time) (processed, failed int) {
	slots, err := w.slotRepo.FindAutoAcceptDue(w.db, now, sweepBatchLimit)
	if err != nil {
		logger.WorkerLog("sweeper", "find auto-accept due", err)
		return 0, 0
	}

	for i := range slots {
		if _, err := w.lifecycleService.Accept(slots[i].ID, services.SystemActor, nil, models.AcceptanceAuto); err != nil {
			logger.WorkerLog("sweeper", "auto-accept slot "+slots[i].ID, err)
			failed++
			continue
		}
		processed++
	}
	return processed, failed
}

func (w *SweeperWorker) sweepExpiredDisputes(now time.Time) (processed, failed int) {
	slots, err := w.slotRepo.FindExpiredDisputes(w.db, now, sweepBatchLimit)
	if err != nil {
		logger.WorkerLog("sweeper", "find expired disputes", err)
		return 0, 0
	}

	for i := range slots {
		if _, err := w.disputeService.ResolveExpired(slots[i].ID); err != nil {
			logger.WorkerLog("sweeper", "resolve expired dispute "+slots[i].ID, err)
			failed++
			continue
		}
		processed++
	}
	return processed, failed
}
