package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/bamsammich/sparsecp/internal/stats"
)

// plainPresenter outputs one line per finished file to stdout,
// and periodic progress to stderr.
type plainPresenter struct {
	w       io.Writer
	errW    io.Writer
	stats   stats.ReadTicker
	verbose bool
}

func (p *plainPresenter) Run(events <-chan Event) error {
	progress := time.NewTicker(5 * time.Second)
	defer progress.Stop()
	sec := time.NewTicker(time.Second)
	defer sec.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			p.handleEvent(ev)
		case <-sec.C:
			p.stats.Tick()
		case <-progress.C:
			p.printProgress()
		}
	}
}

func (p *plainPresenter) handleEvent(ev Event) {
	switch ev.Type {
	case FileStarted:
		if p.verbose {
			fmt.Fprintf(p.w, "%s -> %s\n", ev.Path, ev.Dst)
		}
	case FileCompleted:
		line := fmt.Sprintf("%s  %s  %s", ev.Path, FormatBytes(ev.Size), ev.Method)
		if ev.Punched > 0 {
			line += "  holes " + FormatBytes(ev.Punched)
		}
		fmt.Fprintln(p.w, line)
	case FileFailed:
		errMsg := "error"
		if ev.Error != nil {
			errMsg = ev.Error.Error()
		}
		fmt.Fprintf(p.w, "%s  %s  %s\n", ev.Path, FormatBytes(ev.Size), errMsg)
	case FileSkipped:
		fmt.Fprintf(p.w, "%s  skipped\n", ev.Path)
	case VerifyFailed:
		fmt.Fprintf(p.w, "MISMATCH: %s\n", ev.Path)
	case VerifyOK:
		if p.verbose {
			fmt.Fprintf(p.w, "verified: %s\n", ev.Path)
		}
	}
}

func (p *plainPresenter) printProgress() {
	snap := p.stats.Snapshot()
	if snap.BytesTotal <= 0 {
		fmt.Fprintf(p.errW, "progress: %s copied %s files\n",
			FormatBytes(snap.BytesCopied),
			FormatCount(snap.FilesCopied),
		)
		return
	}
	done := snap.BytesCopied + snap.BytesPunched
	pct := float64(done) / float64(snap.BytesTotal) * 100
	fmt.Fprintf(p.errW, "progress: %.0f%% %s/%s %s/%s files %s eta %s\n",
		pct,
		FormatBytes(done), FormatBytes(snap.BytesTotal),
		FormatCount(snap.FilesCopied), FormatCount(snap.FilesTotal),
		FormatRate(p.stats.RollingSpeed(10)),
		FormatETA(p.stats.ETA()),
	)
}

func (p *plainPresenter) Summary() string {
	return CompletionSummary(p.stats.Snapshot())
}
