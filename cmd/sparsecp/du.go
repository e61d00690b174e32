package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bamsammich/sparsecp/internal/platform"
)

var duCmd = &cobra.Command{
	Use:   "du <path>...",
	Short: "Show apparent and allocated size of files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDu,
}

func init() {
	duCmd.Flags().Bool("du", false, "measure with du(1) instead of stat")
	duCmd.Flags().BoolP("bytes", "b", false, "print exact byte counts")
}

func runDu(cmd *cobra.Command, args []string) error {
	useDu, _ := cmd.Flags().GetBool("du")      //nolint:errcheck // flag name is hardcoded
	exact, _ := cmd.Flags().GetBool("bytes") //nolint:errcheck // flag name is hardcoded

	var failed int
	for _, path := range args {
		if err := duOne(cmd, cmd.OutOrStdout(), path, useDu, exact); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
			failed++
		}
	}
	if failed == len(args) {
		return &exitError{code: 2}
	}
	if failed > 0 {
		return &exitError{code: 1}
	}
	return nil
}

func duOne(cmd *cobra.Command, w io.Writer, path string, useDu, exact bool) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	var allocated int64
	if useDu {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		allocated, err = platform.DuSize(ctx, path)
	} else {
		allocated, err = platform.AllocatedSize(path)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s\t%s\t%s\n", formatDuSize(info.Size(), exact), formatDuSize(allocated, exact), path)
	return nil
}

func formatDuSize(n int64, exact bool) string {
	if exact || n < 0 {
		return fmt.Sprintf("%d", n)
	}
	return humanize.IBytes(uint64(n))
}
