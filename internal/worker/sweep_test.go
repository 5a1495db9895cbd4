package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Kewen526/serv-qoute/internal/client"
	"github.com/Kewen526/serv-qoute/internal/domain"
)

type fakeTaskSource struct {
	client.TaskSource

	quotation   map[string][]domain.QuotationTask
	nonQuotable map[string][]domain.QuotationTask
	fetchErr    error
	fetched     chan struct{}
	seenDates   []string
}

func (f *fakeTaskSource) notify() {
	if f.fetched != nil {
		select {
		case f.fetched <- struct{}{}:
		default:
		}
	}
}

func (f *fakeTaskSource) QuotationTasks(ctx context.Context, storeCode, createdAt string) ([]domain.QuotationTask, error) {
	f.notify()
	f.seenDates = append(f.seenDates, createdAt)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.quotation[createdAt], nil
}

func (f *fakeTaskSource) NonQuotableTasks(ctx context.Context, storeCode, createdAt string) ([]domain.QuotationTask, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.nonQuotable[createdAt], nil
}

type recordingPipeline struct {
	name      string
	order     *[]string
	processed int
	err       error
}

func (p *recordingPipeline) Process(ctx context.Context, task domain.QuotationTask) error {
	p.processed++
	if p.order != nil {
		*p.order = append(*p.order, fmt.Sprintf("%s:%s", p.name, task.KeerProductID))
	}
	return p.err
}

func newTestWorker(tasks client.TaskSource, quotation, nonQuotable Pipeline) *SweepWorker {
	return NewSweepWorker(tasks, quotation, nonQuotable, "SP00001", time.Hour, 0, zap.NewNop().Sugar())
}

func TestSweepDates(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	dates := sweepDates(now)

	want := []string{"2026-03-01", "2026-02-28", "2026-02-27"}
	for i, date := range want {
		if dates[i] != date {
			t.Fatalf("date %d: expected %s, got %s", i, date, dates[i])
		}
	}
}

func TestSweepRoundOrder(t *testing.T) {
	t.Parallel()

	today := time.Now().Format("2006-01-02")
	source := &fakeTaskSource{
		quotation: map[string][]domain.QuotationTask{
			today: {{KeerProductID: "1"}, {KeerProductID: "2"}},
		},
		nonQuotable: map[string][]domain.QuotationTask{
			today: {{KeerProductID: "3"}},
		},
	}

	var order []string
	quotation := &recordingPipeline{name: "quotation", order: &order}
	nonQuotable := &recordingPipeline{name: "nonquotable", order: &order}

	w := newTestWorker(source, quotation, nonQuotable)

	processed, err := w.sweep()
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if processed != 3 {
		t.Fatalf("expected 3 processed tasks, got %d", processed)
	}

	want := []string{"quotation:1", "quotation:2", "nonquotable:3"}
	for i, step := range want {
		if order[i] != step {
			t.Fatalf("step %d: expected %s, got %s", i, step, order[i])
		}
	}

	stats := w.Stats()
	if stats.Rounds != 1 || stats.TasksProcessed != 3 || stats.TasksFailed != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestSweepCountsFailures(t *testing.T) {
	t.Parallel()

	today := time.Now().Format("2006-01-02")
	source := &fakeTaskSource{
		quotation: map[string][]domain.QuotationTask{
			today: {{KeerProductID: "1"}},
		},
	}

	quotation := &recordingPipeline{name: "quotation", err: errors.New("boom")}
	w := newTestWorker(source, quotation, &recordingPipeline{name: "nonquotable"})

	processed, err := w.sweep()
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if processed != 1 {
		t.Fatalf("expected the failed task to count as processed, got %d", processed)
	}
	if stats := w.Stats(); stats.TasksFailed != 1 {
		t.Fatalf("expected 1 failed task, got %+v", stats)
	}
}

func TestSweepPausesBetweenGroups(t *testing.T) {
	t.Parallel()

	today := time.Now().Format("2006-01-02")
	source := &fakeTaskSource{
		quotation: map[string][]domain.QuotationTask{
			today: {{KeerProductID: "1"}},
		},
		nonQuotable: map[string][]domain.QuotationTask{
			today: {{KeerProductID: "2"}},
		},
	}

	pause := 40 * time.Millisecond
	w := NewSweepWorker(source, &recordingPipeline{name: "quotation"}, &recordingPipeline{name: "nonquotable"}, "SP00001", time.Hour, pause, zap.NewNop().Sugar())

	start := time.Now()
	processed, err := w.sweep()
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if processed != 2 {
		t.Fatalf("expected 2 processed tasks, got %d", processed)
	}

	// One task per group, so the only possible pause sits on the group
	// boundary.
	if elapsed := time.Since(start); elapsed < pause {
		t.Fatalf("pause must separate the quotation and non-quotable groups, round took %v", elapsed)
	}
}

func TestKickDateNarrowsNextRound(t *testing.T) {
	t.Parallel()

	source := &fakeTaskSource{}
	w := newTestWorker(source, &recordingPipeline{name: "quotation"}, &recordingPipeline{name: "nonquotable"})

	w.KickDate("2026-01-02")

	if _, err := w.sweep(); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(source.seenDates) != 1 || source.seenDates[0] != "2026-01-02" {
		t.Fatalf("expected only the kicked date, got %v", source.seenDates)
	}

	// The override is consumed; the next round covers the usual window.
	source.seenDates = nil
	if _, err := w.sweep(); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(source.seenDates) != 3 {
		t.Fatalf("expected the 3-day window, got %v", source.seenDates)
	}
}

func TestSweepPropagatesFetchError(t *testing.T) {
	t.Parallel()

	source := &fakeTaskSource{fetchErr: errors.New("store down")}
	w := newTestWorker(source, &recordingPipeline{name: "quotation"}, &recordingPipeline{name: "nonquotable"})

	if _, err := w.sweep(); err == nil {
		t.Fatal("expected fetch error to surface")
	}
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	source := &fakeTaskSource{fetched: make(chan struct{}, 1)}
	w := newTestWorker(source, &recordingPipeline{name: "quotation"}, &recordingPipeline{name: "nonquotable"})

	done := make(chan struct{})
	go func() {
		_ = w.Start()
		close(done)
	}()

	select {
	case <-source.fetched:
	case <-time.After(5 * time.Second):
		t.Fatal("worker never started sweeping")
	}

	w.Stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestKickWakesIdleWorker(t *testing.T) {
	t.Parallel()

	source := &fakeTaskSource{fetched: make(chan struct{}, 1)}
	w := newTestWorker(source, &recordingPipeline{name: "quotation"}, &recordingPipeline{name: "nonquotable"})

	go func() { _ = w.Start() }()
	defer w.Stop()

	// First round runs on startup.
	select {
	case <-source.fetched:
	case <-time.After(5 * time.Second):
		t.Fatal("worker never started sweeping")
	}

	// Drain any extra notification from the same round, then kick. The
	// idle interval is an hour, so the next fetch can only come from the
	// kick.
	for {
		select {
		case <-source.fetched:
			continue
		case <-time.After(200 * time.Millisecond):
		}
		break
	}

	w.Kick()

	select {
	case <-source.fetched:
	case <-time.After(5 * time.Second):
		t.Fatal("kick did not wake the worker")
	}
}
