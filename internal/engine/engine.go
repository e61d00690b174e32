package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bamsammich/sparsecp/internal/event"
	"github.com/bamsammich/sparsecp/internal/sparse"
	"github.com/bamsammich/sparsecp/internal/stats"
)

var (
	// ErrDuplicateDest is returned for a source whose resolved destination
	// was already claimed by an earlier source in the same batch.
	ErrDuplicateDest = errors.New("destination already targeted by another source")

	// ErrNotDirectory is returned when several sources are copied to a
	// destination that is not an existing directory.
	ErrNotDirectory = errors.New("destination is not a directory")
)

// Config describes a batch of copies.
type Config struct {
	Dst      string
	Platform sparse.Platform // nil uses sparse.Native
	Events   chan<- event.Event
	Stats    *stats.Collector
	Logger   *slog.Logger
	Sources  []string
	Workers  int
	// BufferSize and PageSize tune the sparse copier; zero uses its defaults.
	BufferSize int
	PageSize   int
	Force      bool
	Plain      bool // always use the plain copy
	Verify     bool
}

// Result is the outcome of a batch.
type Result struct {
	Err   error
	Stats stats.Snapshot
}

// Run copies every source to the destination, blocking until all copies
// finish. A failed source does not stop the others. Cancelling ctx stops
// new copies from starting; copies already running complete.
func Run(ctx context.Context, cfg Config) Result {
	collector := cfg.Stats
	if collector == nil {
		collector = stats.NewCollector()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	if len(cfg.Sources) > 1 {
		if info, err := os.Stat(cfg.Dst); err != nil || !info.IsDir() {
			return Result{
				Stats: collector.Snapshot(),
				Err:   fmt.Errorf("%s: %w", cfg.Dst, ErrNotDirectory),
			}
		}
	}

	w := &worker{
		cfg:    cfg,
		stats:  collector,
		logger: logger,
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	record := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	tasks := w.plan(record)
	var totalSize int64
	for _, task := range tasks {
		totalSize += task.Size
	}
	collector.SetTotals(int64(len(tasks)), totalSize)
	emitEvent(cfg.Events, event.Event{
		Type:      event.BatchStarted,
		Total:     int64(len(tasks)),
		TotalSize: totalSize,
	})

	ids := make(chan int, workers)
	for i := range workers {
		ids <- i
	}

	var g errgroup.Group
	g.SetLimit(workers)
	var cancelErr error
	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			cancelErr = err
			break
		}
		g.Go(func() error {
			id := <-ids
			defer func() { ids <- id }()
			if err := w.copyOne(task, id); err != nil {
				record(err)
			}
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // per-file errors are recorded, never returned

	var runErr error
	if len(errs) > 0 {
		runErr = errs[0]
		if len(errs) > 1 {
			runErr = fmt.Errorf("%w (and %d more errors)", runErr, len(errs)-1)
		}
	} else if cancelErr != nil {
		runErr = cancelErr
	}

	return Result{
		Stats: collector.Snapshot(),
		Err:   runErr,
	}
}
