package ui

import "github.com/bamsammich/sparsecp/internal/stats"

// quietPresenter drains events and reports only failures in its summary.
type quietPresenter struct {
	stats *stats.Collector
}

func (p *quietPresenter) Run(events <-chan Event) error {
	for range events {
	}
	return nil
}

func (p *quietPresenter) Summary() string {
	if p.stats == nil {
		return ""
	}
	snap := p.stats.Snapshot()
	if failed := snap.FilesFailed; failed > 0 {
		return FormatCount(failed) + " failed"
	}
	return ""
}
