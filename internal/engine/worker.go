package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bamsammich/sparsecp/internal/event"
	"github.com/bamsammich/sparsecp/internal/platform"
	"github.com/bamsammich/sparsecp/internal/sparse"
	"github.com/bamsammich/sparsecp/internal/stats"
)

type worker struct {
	stats  *stats.Collector
	logger *slog.Logger
	cfg    Config
}

// plan stats every source and resolves its destination. Sources that cannot
// be copied are reported through record and dropped.
func (w *worker) plan(record func(error)) []FileTask {
	tasks := make([]FileTask, 0, len(w.cfg.Sources))
	seen := make(map[string]string, len(w.cfg.Sources))

	for _, src := range w.cfg.Sources {
		info, err := os.Stat(src)
		if err != nil {
			w.fail(FileTask{SrcPath: src}, 0, fmt.Errorf("source: %w", err))
			record(err)
			continue
		}
		if !info.Mode().IsRegular() {
			w.stats.AddFilesSkipped(1)
			emitEvent(w.cfg.Events, event.Event{
				Type: event.FileSkipped,
				Path: src,
				Size: info.Size(),
			})
			w.logger.Info("skipping non-regular file", "src", src, "mode", info.Mode().String())
			continue
		}

		dst := sparse.ResolveDestination(src, w.cfg.Dst)
		task := FileTask{SrcPath: src, DstPath: dst, Size: info.Size()}
		if prev, ok := seen[dst]; ok {
			err := fmt.Errorf("%s (already copying %s): %w", dst, prev, ErrDuplicateDest)
			w.fail(task, 0, err)
			record(err)
			continue
		}
		seen[dst] = src
		tasks = append(tasks, task)
	}
	return tasks
}

// copyOne copies a single file and reports its outcome through stats and
// events. The returned error is for aggregation only.
func (w *worker) copyOne(task FileTask, id int) error {
	emitEvent(w.cfg.Events, event.Event{
		Type:     event.FileStarted,
		Path:     task.SrcPath,
		Dst:      task.DstPath,
		Size:     task.Size,
		WorkerID: id,
	})

	start := time.Now()
	var (
		method  platform.CopyMethod
		punched int64
		err     error
	)
	p, sparseOK := w.sparsePlatform()
	if sparseOK && !w.cfg.Plain {
		method = platform.Sparse
		punched, err = w.copySparse(task, p)
	} else {
		method, err = w.copyPlain(task)
	}
	if err != nil {
		w.fail(task, id, err)
		return fmt.Errorf("%s: %w", task.SrcPath, err)
	}

	if w.cfg.Verify {
		if err := verifyCopy(task); err != nil {
			w.stats.AddFilesVerifyFailed(1)
			emitEvent(w.cfg.Events, event.Event{
				Type:     event.VerifyFailed,
				Path:     task.SrcPath,
				Dst:      task.DstPath,
				Error:    err,
				WorkerID: id,
			})
			w.fail(task, id, err)
			return err
		}
		w.stats.AddFilesVerified(1)
		emitEvent(w.cfg.Events, event.Event{
			Type:     event.VerifyOK,
			Path:     task.SrcPath,
			Dst:      task.DstPath,
			WorkerID: id,
		})
	}

	w.stats.AddFilesCopied(1)
	w.logger.Debug("copied",
		"src", task.SrcPath,
		"dst", task.DstPath,
		"size", task.Size,
		"punched", punched,
		"method", method.String(),
		"elapsed", time.Since(start),
	)
	emitEvent(w.cfg.Events, event.Event{
		Type:     event.FileCompleted,
		Path:     task.SrcPath,
		Dst:      task.DstPath,
		Size:     task.Size,
		Punched:  punched,
		Method:   method.String(),
		WorkerID: id,
	})
	return nil
}

//nolint:ireturn // mirrors sparse.Native
func (w *worker) sparsePlatform() (sparse.Platform, bool) {
	if w.cfg.Platform != nil {
		return w.cfg.Platform, true
	}
	return sparse.Native()
}

func (w *worker) copySparse(task FileTask, p sparse.Platform) (int64, error) {
	res, err := sparse.CopyResolved(task.SrcPath, task.DstPath, sparse.Options{
		Platform:   p,
		Logger:     w.logger,
		Progress:   w.stats.AddBytesCopied,
		BufferSize: w.cfg.BufferSize,
		PageSize:   w.cfg.PageSize,
		Overwrite:  w.cfg.Force,
	})
	if res.Holes > 0 {
		w.stats.AddHolesPunched(int64(res.Holes))
		w.stats.AddBytesPunched(res.BytesPunched)
	}
	return res.BytesPunched, err
}

// copyPlain runs the hole-unaware fallback under the same destination
// rules as the sparse path.
func (w *worker) copyPlain(task FileTask) (platform.CopyMethod, error) {
	if err := sparse.CheckDestination(task.SrcPath, task.DstPath, w.cfg.Force); err != nil {
		return platform.ReadWrite, err
	}
	result, err := platform.CopyFile(platform.CopyFileParams{
		SrcPath:   task.SrcPath,
		DstPath:   task.DstPath,
		Overwrite: w.cfg.Force,
	})
	w.stats.AddBytesCopied(result.BytesWritten)
	if err != nil && platform.IsExist(err) && !errors.Is(err, sparse.ErrAlreadyExists) {
		err = fmt.Errorf("%s: %w", task.DstPath, sparse.ErrAlreadyExists)
	}
	return result.Method, err
}

func (w *worker) fail(task FileTask, id int, err error) {
	w.stats.AddFilesFailed(1)
	w.logger.Debug("copy failed", "src", task.SrcPath, "dst", task.DstPath, "error", err)
	emitEvent(w.cfg.Events, event.Event{
		Type:     event.FileFailed,
		Path:     task.SrcPath,
		Dst:      task.DstPath,
		Size:     task.Size,
		Error:    err,
		WorkerID: id,
	})
}

func emitEvent(ch chan<- event.Event, e event.Event) {
	if ch == nil {
		return
	}
	e.Timestamp = time.Now()
	select {
	case ch <- e:
	default:
	}
}
