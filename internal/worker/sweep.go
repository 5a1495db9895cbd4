// Package worker drives the task sweep: a single loop that drains the
// quoting backlog day by day, strictly one task at a time.
package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Kewen526/serv-qoute/internal/client"
	"github.com/Kewen526/serv-qoute/internal/domain"
)

const errorCooldown = 5 * time.Second

// Pipeline processes one task to a terminal feedback code.
type Pipeline interface {
	Process(ctx context.Context, task domain.QuotationTask) error
}

// Stats are cumulative counters for the ops surface.
type Stats struct {
	Rounds         int64     `json:"rounds"`
	TasksProcessed int64     `json:"tasks_processed"`
	TasksFailed    int64     `json:"tasks_failed"`
	LastRoundAt    time.Time `json:"last_round_at"`
}

type SweepWorker struct {
	tasks        client.TaskSource
	quotation    Pipeline
	nonQuotable  Pipeline
	storeCode    string
	idleInterval time.Duration
	taskPause    time.Duration
	logger       *zap.SugaredLogger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	kick   chan struct{}

	mu       sync.Mutex
	stats    Stats
	kickDate string
}

func NewSweepWorker(
	tasks client.TaskSource,
	quotation Pipeline,
	nonQuotable Pipeline,
	storeCode string,
	idleInterval time.Duration,
	taskPause time.Duration,
	logger *zap.SugaredLogger,
) *SweepWorker {
	ctx, cancel := context.WithCancel(context.Background())

	return &SweepWorker{
		tasks:        tasks,
		quotation:    quotation,
		nonQuotable:  nonQuotable,
		storeCode:    storeCode,
		idleInterval: idleInterval,
		taskPause:    taskPause,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
		kick:         make(chan struct{}, 1),
	}
}

// Start runs sweep rounds until Stop is called. A round that saw any
// task is followed immediately by the next one; an empty round waits
// the idle interval (or an explicit kick); a failed round cools down
// before retrying.
func (w *SweepWorker) Start() error {
	w.logger.Infow("starting sweep worker", "store_code", w.storeCode)
	defer close(w.done)

	for {
		processed, err := w.sweep()

		if w.ctx.Err() != nil {
			return nil
		}

		if err != nil {
			w.logger.Errorw("sweep round failed", "error", err)
			if !w.wait(errorCooldown) {
				return nil
			}
			continue
		}

		if processed > 0 {
			continue
		}

		if !w.wait(w.idleInterval) {
			return nil
		}
	}
}

// Stop shuts the loop down and blocks until it has drained. A task in
// flight is never aborted; cancellation takes effect between tasks.
func (w *SweepWorker) Stop() {
	w.logger.Info("stopping sweep worker")
	w.cancel()
	<-w.done
}

// Kick triggers an immediate sweep if the worker is idle.
func (w *SweepWorker) Kick() {
	w.KickDate("")
}

// KickDate triggers an immediate sweep; a non-empty date narrows the
// next round to that creation date instead of the usual window.
func (w *SweepWorker) KickDate(date string) {
	if date != "" {
		w.mu.Lock()
		w.kickDate = date
		w.mu.Unlock()
	}

	select {
	case w.kick <- struct{}{}:
	default:
	}
}

func (w *SweepWorker) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.stats
}

// sweepDates returns the creation dates one round covers: today and the
// two days before, local time.
func sweepDates(now time.Time) []string {
	return []string{
		now.Format("2006-01-02"),
		now.AddDate(0, 0, -1).Format("2006-01-02"),
		now.AddDate(0, 0, -2).Format("2006-01-02"),
	}
}

func (w *SweepWorker) sweep() (int, error) {
	processed := 0

	dates := sweepDates(time.Now())
	w.mu.Lock()
	if w.kickDate != "" {
		dates = []string{w.kickDate}
		w.kickDate = ""
	}
	w.mu.Unlock()

	for _, date := range dates {
		if w.ctx.Err() != nil {
			break
		}

		quotationTasks, err := w.tasks.QuotationTasks(w.ctx, w.storeCode, date)
		if err != nil {
			return processed, err
		}
		if !w.runTasks(quotationTasks, w.quotation, "quotation", &processed) {
			break
		}

		nonQuotableTasks, err := w.tasks.NonQuotableTasks(w.ctx, w.storeCode, date)
		if err != nil {
			return processed, err
		}
		if !w.runTasks(nonQuotableTasks, w.nonQuotable, "non-quotable", &processed) {
			break
		}
	}

	w.mu.Lock()
	w.stats.Rounds++
	w.stats.LastRoundAt = time.Now()
	w.mu.Unlock()

	return processed, nil
}

// runTasks processes one task group. The inter-task pause covers the
// whole round: it is taken before every task that has a predecessor,
// wherever the group or date boundary falls. Returns false when the
// round should stop.
func (w *SweepWorker) runTasks(tasks []domain.QuotationTask, pipeline Pipeline, kind string, processed *int) bool {
	for _, task := range tasks {
		if w.ctx.Err() != nil {
			return false
		}

		if *processed > 0 && !w.wait(w.taskPause) {
			return false
		}

		w.logger.Infow("processing task",
			"kind", kind,
			"keer_product_id", task.KeerProductID,
			"title", task.ClientProductTitle,
		)

		// Tasks run on a background context so shutdown never aborts one
		// mid-flight; the loop stops between tasks instead.
		failed := false
		if err := pipeline.Process(context.Background(), task); err != nil {
			w.logger.Errorw("task failed",
				"kind", kind, "keer_product_id", task.KeerProductID, "error", err)
			failed = true
		}

		*processed++

		w.mu.Lock()
		w.stats.TasksProcessed++
		if failed {
			w.stats.TasksFailed++
		}
		w.mu.Unlock()
	}

	return true
}

// wait blocks for d, an explicit kick, or shutdown; it reports whether
// the worker should keep running.
func (w *SweepWorker) wait(d time.Duration) bool {
	if d <= 0 {
		return w.ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-w.ctx.Done():
		return false
	case <-w.kick:
		return true
	case <-timer.C:
		return true
	}
}
