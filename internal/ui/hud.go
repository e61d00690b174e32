package ui

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/bamsammich/sparsecp/internal/stats"
)

// ANSI escape sequences.
const (
	ansiDim   = "\033[2m"
	ansiReset = "\033[0m"
)

const (
	sparklineWidth   = 20
	progressBarWidth = 20
	hudLines         = 2
	hudMinInterval   = 50 * time.Millisecond
)

// hudPresenter prints a feed of finished files above a 2-line HUD that
// redraws in place.
type hudPresenter struct {
	w           io.Writer
	stats       *stats.Collector
	busyWorkers map[int]bool
	lastHUDDraw time.Time
	workers     int
	hudDrawn    bool
	verbose     bool
}

func (p *hudPresenter) Run(events <-chan Event) error {
	p.busyWorkers = make(map[int]bool)

	// First tick fires quickly to seed the throughput ring.
	secTicker := time.NewTicker(250 * time.Millisecond)
	defer secTicker.Stop()
	firstTickDone := false

	// Redraw while a single large file is in flight.
	redrawTicker := time.NewTicker(100 * time.Millisecond)
	defer redrawTicker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				p.clearHUD()
				return nil
			}
			p.handleEvent(ev)
			p.maybeDrawHUD()

		case <-redrawTicker.C:
			p.drawHUD()

		case <-secTicker.C:
			p.stats.Tick()
			if !firstTickDone {
				firstTickDone = true
				secTicker.Reset(time.Second)
			}
		}
	}
}

func (p *hudPresenter) handleEvent(ev Event) {
	switch ev.Type {
	case FileStarted:
		p.busyWorkers[ev.WorkerID] = true

	case FileCompleted:
		delete(p.busyWorkers, ev.WorkerID)
		holes := ""
		if ev.Punched > 0 {
			holes = fmt.Sprintf("  %sholes %s%s", ansiDim, FormatBytes(ev.Punched), ansiReset)
		}
		p.feed("✓  %s  %10s%s\n", styledPath(ev.Path), FormatBytes(ev.Size), holes)

	case FileFailed:
		delete(p.busyWorkers, ev.WorkerID)
		errMsg := "error"
		if ev.Error != nil {
			errMsg = ev.Error.Error()
		}
		p.feed("✗  %s  %10s  %s\n", styledPath(ev.Path), FormatBytes(ev.Size), errMsg)

	case FileSkipped:
		p.feed("–  %s  %10s  %sskipped%s\n",
			styledPath(ev.Path), FormatBytes(ev.Size), ansiDim, ansiReset)

	case VerifyOK:
		if p.verbose {
			p.feed("%s   verified %s%s\n", ansiDim, ev.Path, ansiReset)
		}

	case VerifyFailed:
		p.feed("✗  %s  CHECKSUM MISMATCH\n", styledPath(ev.Path))
	}
}

// feed prints one line above the HUD.
func (p *hudPresenter) feed(format string, args ...any) {
	p.clearHUD()
	fmt.Fprintf(p.w, format, args...)
	p.drawHUD()
}

func (p *hudPresenter) maybeDrawHUD() {
	if time.Since(p.lastHUDDraw) < hudMinInterval {
		return
	}
	p.drawHUD()
}

func (p *hudPresenter) drawHUD() {
	snap := p.stats.Snapshot()
	p.clearHUD()

	done := snap.BytesCopied + snap.BytesPunched
	var pct float64
	if snap.BytesTotal > 0 {
		pct = float64(done) / float64(snap.BytesTotal)
	}

	// Line 1: throughput sparkline, speed, byte totals.
	spark := Sparkline(p.stats.SparklineData(sparklineWidth), sparklineWidth)
	fmt.Fprintf(p.w, "       %s   %s   %s / %s\n",
		spark, FormatRate(p.stats.RollingSpeed(10)),
		FormatBytes(done), FormatBytes(snap.BytesTotal))

	// Line 2: progress bar, files, workers, eta.
	fmt.Fprintf(p.w, " %3.0f%%  %s   %s / %s files   %s   eta %s\n",
		pct*100, ProgressBar(pct, progressBarWidth),
		FormatCount(snap.FilesCopied), FormatCount(snap.FilesTotal),
		WorkerIndicator(len(p.busyWorkers), p.workers),
		FormatETA(p.stats.ETA()))

	p.hudDrawn = true
	p.lastHUDDraw = time.Now()
}

func (p *hudPresenter) clearHUD() {
	if !p.hudDrawn {
		return
	}
	// Move cursor up and clear to end of screen.
	fmt.Fprintf(p.w, "\033[%dA\033[J", hudLines)
	p.hudDrawn = false
}

func (p *hudPresenter) Summary() string {
	return CompletionSummary(p.stats.Snapshot())
}

// styledPath dims the directory portion so the filename stands out.
func styledPath(path string) string {
	dir, base := filepath.Split(path)
	if dir == "" {
		return base
	}
	return ansiDim + dir + ansiReset + base
}

// Sparkline renders per-second samples as Unicode block characters,
// exactly width runes wide and normalized to the largest sample.
func Sparkline(samples []int64, width int) string {
	if width <= 0 {
		return ""
	}
	blocks := []rune("▁▂▃▄▅▆▇█")

	// Keep the newest samples, left-padded with zeros.
	if len(samples) > width {
		samples = samples[len(samples)-width:]
	}
	padded := make([]int64, width)
	copy(padded[width-len(samples):], samples)

	var maxVal int64
	for _, v := range padded {
		maxVal = max(maxVal, v)
	}

	out := make([]rune, width)
	for i, v := range padded {
		if maxVal <= 0 || v <= 0 {
			out[i] = blocks[0]
			continue
		}
		idx := int(v * int64(len(blocks)-1) / maxVal)
		out[i] = blocks[min(idx, len(blocks)-1)]
	}
	return string(out)
}
