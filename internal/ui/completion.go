package ui

import (
	"fmt"

	"github.com/bamsammich/sparsecp/internal/stats"
)

// CompletionSummary builds a final summary line from a snapshot.
// Format: done ✓  files 3  size 1.2 GiB  holes 14 (900.0 MiB)  avg 641 MB/s  time 2s  errors 0
func CompletionSummary(snap stats.Snapshot) string {
	avgSpeed := 0.0
	if snap.Elapsed.Seconds() > 0 {
		avgSpeed = float64(snap.BytesCopied) / snap.Elapsed.Seconds()
	}

	icon := "✓"
	if snap.FilesFailed > 0 {
		icon = "✗"
	}

	base := fmt.Sprintf("done %s  files %s  size %s",
		icon,
		FormatCount(snap.FilesCopied),
		FormatBytes(snap.BytesCopied),
	)
	if snap.HolesPunched > 0 {
		base += fmt.Sprintf("  holes %s (%s)",
			FormatCount(snap.HolesPunched), FormatBytes(snap.BytesPunched))
	}
	base += fmt.Sprintf("  avg %s  time %s", FormatRate(avgSpeed), FormatDuration(snap.Elapsed))

	if snap.FilesVerified > 0 || snap.FilesVerifyFailed > 0 {
		base += "  verified " + FormatCount(snap.FilesVerified)
	}
	if snap.FilesSkipped > 0 {
		base += "  skipped " + FormatCount(snap.FilesSkipped)
	}

	// Verify failures are already counted in FilesFailed.
	base += fmt.Sprintf("  errors %d", snap.FilesFailed)

	return base
}
