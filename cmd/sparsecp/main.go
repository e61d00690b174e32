package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bamsammich/sparsecp/internal/config"
	"github.com/bamsammich/sparsecp/internal/engine"
	"github.com/bamsammich/sparsecp/internal/event"
	"github.com/bamsammich/sparsecp/internal/sparse"
	"github.com/bamsammich/sparsecp/internal/stats"
	"github.com/bamsammich/sparsecp/internal/ui"
)

var version = "dev"

func main() {
	os.Exit(run())
}

// sizeFlag is a pflag.Value accepting sizes like 64K or 1M.
type sizeFlag struct {
	n *int
}

func (f sizeFlag) String() string {
	if f.n == nil {
		return ""
	}
	return fmt.Sprintf("%d", *f.n)
}

func (sizeFlag) Type() string { return "size" }

func (f sizeFlag) Set(val string) error {
	n, err := config.ParseSize(val)
	if err != nil {
		return err
	}
	if n <= 0 || n > 1<<30 {
		return fmt.Errorf("size %q out of range", val)
	}
	*f.n = int(n)
	return nil
}

var _ pflag.Value = sizeFlag{}

// options holds the root command's flag values.
type options struct {
	logFile     string
	workers     int
	bufferSize  int
	pageSize    int
	force       bool
	plain       bool
	verify      bool
	verbose     bool
	quiet       bool
	noProgress  bool
	showVersion bool
}

//nolint:revive // cognitive-complexity: main CLI entry point wires flags, logging and presenter
func run() int {
	opts := options{
		workers:    1,
		bufferSize: sparse.DefaultBufferSize,
		pageSize:   sparse.DefaultPageSize,
	}

	rootCmd := &cobra.Command{
		Use:   "sparsecp [flags] <source>... <destination>",
		Short: "Copy files preserving holes",
		Long: "sparsecp copies files so that unallocated regions of the source stay\n" +
			"unallocated in the destination. Existing destinations are never\n" +
			"replaced unless --force is given.",
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.showVersion {
				return nil
			}
			return cobra.MinimumNArgs(2)(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.showVersion {
				fmt.Fprintf(os.Stdout, "sparsecp %s\n", version)
				return nil
			}
			return runCopy(cmd, args, &opts)
		},
	}

	flags := rootCmd.Flags()
	flags.BoolVar(&opts.showVersion, "version", false, "print version and exit")
	flags.BoolVarP(&opts.force, "force", "f", false, "replace existing destination files")
	flags.BoolVar(&opts.plain, "plain", false, "copy without hole detection")
	flags.BoolVar(&opts.verify, "verify", false, "verify checksums after copy (BLAKE3)")
	flags.IntVarP(&opts.workers, "workers", "n", opts.workers, "number of files copied concurrently")
	flags.Var(sizeFlag{n: &opts.bufferSize}, "buffer-size", "copy buffer size (e.g. 64K, 1M)")
	flags.IntVar(&opts.pageSize, "page-size", opts.pageSize, "allocated ranges fetched per query")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress all output except errors")
	flags.BoolVar(&opts.noProgress, "no-progress", false, "disable the progress display")
	flags.StringVar(&opts.logFile, "log", "", "write structured JSON log to FILE")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	rootCmd.AddCommand(duCmd)
	rootCmd.AddCommand(docsCmd)

	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}

//nolint:revive // cognitive-complexity: orchestrates engine and presenter lifetimes
func runCopy(cmd *cobra.Command, args []string, opts *options) error {
	sources := args[:len(args)-1]
	dst := args[len(args)-1]

	cfg, cfgErr := config.Load()
	if err := applyConfigDefaults(cmd, cfg.Defaults, opts); err != nil {
		return err
	}
	if opts.pageSize <= 0 {
		return fmt.Errorf("invalid --page-size %d", opts.pageSize)
	}

	logger, closeLog, err := setupLogging(opts)
	if err != nil {
		return err
	}
	defer closeLog()
	if cfgErr != nil {
		logger.Warn("failed to load config", "path", config.Path(), "error", cfgErr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := stats.NewCollector()
	events := make(chan event.Event, 256)

	// With --log every event is also written as a structured record.
	presenterEvents := (<-chan event.Event)(events)
	if opts.logFile != "" {
		teed := make(chan event.Event, 256)
		go func() {
			for ev := range events {
				logEvent(logger, ev)
				teed <- ev
			}
			close(teed)
		}()
		presenterEvents = teed
	}

	presenter := ui.NewPresenter(ui.Config{
		Writer:     os.Stdout,
		ErrWriter:  os.Stderr,
		Stats:      collector,
		Workers:    opts.workers,
		IsTTY:      ui.IsTTY(os.Stderr.Fd()),
		Quiet:      opts.quiet,
		Verbose:    opts.verbose,
		NoProgress: opts.noProgress,
	})

	engineCfg := engine.Config{
		Sources:    sources,
		Dst:        dst,
		Events:     events,
		Stats:      collector,
		Logger:     logger,
		Workers:    opts.workers,
		BufferSize: opts.bufferSize,
		PageSize:   opts.pageSize,
		Force:      opts.force,
		Plain:      opts.plain,
		Verify:     opts.verify,
	}
	if _, ok := sparse.Native(); !ok && !opts.plain {
		logger.Info("hole-preserving copy not supported on this platform, using plain copy")
	}

	logger.Debug("starting copy",
		"sources", sources,
		"dst", dst,
		"workers", opts.workers,
		"buffer_size", opts.bufferSize,
		"page_size", opts.pageSize,
		"force", opts.force,
		"plain", opts.plain,
	)

	var presenterErr error
	var presenterWg sync.WaitGroup
	presenterWg.Add(1)
	go func() {
		defer presenterWg.Done()
		presenterErr = presenter.Run(presenterEvents)
	}()

	result := engine.Run(ctx, engineCfg)
	stop()
	close(events)
	presenterWg.Wait()
	if presenterErr != nil {
		fmt.Fprintf(os.Stderr, "presenter: %v\n", presenterErr)
	}

	if summary := presenter.Summary(); summary != "" {
		fmt.Fprintln(os.Stderr, summary)
	}

	if result.Err != nil {
		logger.Error("copy failed", "error", result.Err)
		return &exitError{code: exitCode(result)}
	}
	return nil
}

// setupLogging builds the process logger. The returned func closes the log
// file, if any.
func setupLogging(opts *options) (*slog.Logger, func(), error) {
	logLevel := slog.LevelWarn
	if opts.verbose {
		logLevel = slog.LevelDebug
	} else if !opts.quiet {
		logLevel = slog.LevelInfo
	}
	textHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})

	closeLog := func() {}
	var handler slog.Handler = textHandler
	if opts.logFile != "" {
		lf, err := os.Create(opts.logFile)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		closeLog = func() { _ = lf.Close() }
		jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{Level: slog.LevelDebug})
		handler = ui.NewMultiHandler(textHandler, jsonHandler)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, closeLog, nil
}

func logEvent(logger *slog.Logger, ev event.Event) {
	attrs := []slog.Attr{
		slog.String("type", ev.Type.String()),
		slog.String("path", ev.Path),
		slog.Int64("size", ev.Size),
		slog.Int("worker", ev.WorkerID),
	}
	if ev.Dst != "" {
		attrs = append(attrs, slog.String("dst", ev.Dst))
	}
	if ev.Punched > 0 {
		attrs = append(attrs, slog.Int64("punched", ev.Punched))
	}
	if ev.Error != nil {
		attrs = append(attrs, slog.String("error", ev.Error.Error()))
	}
	logger.LogAttrs(context.Background(), slog.LevelDebug, "sparsecp.event", attrs...)
}

// applyConfigDefaults applies config file defaults for flags not explicitly
// set on the CLI.
func applyConfigDefaults(cmd *cobra.Command, defaults config.DefaultsConfig, opts *options) error {
	changed := cmd.Flags().Changed
	if !changed("force") && defaults.Force != nil {
		opts.force = *defaults.Force
	}
	if !changed("verify") && defaults.Verify != nil {
		opts.verify = *defaults.Verify
	}
	if !changed("plain") && defaults.Plain != nil {
		opts.plain = *defaults.Plain
	}
	if !changed("workers") && defaults.Workers != nil {
		opts.workers = *defaults.Workers
	}
	if !changed("page-size") && defaults.PageSize != nil {
		opts.pageSize = *defaults.PageSize
	}
	if !changed("buffer-size") && defaults.BufferSize != nil {
		if err := (sizeFlag{n: &opts.bufferSize}).Set(*defaults.BufferSize); err != nil {
			return fmt.Errorf("config buffer_size: %w", err)
		}
	}
	return nil
}

// exitCode maps a failed batch to 1 when something was copied, 2 otherwise.
func exitCode(result engine.Result) int {
	if result.Err == nil {
		return 0
	}
	if result.Stats.FilesCopied > 0 {
		return 1 // partial failure
	}
	return 2 // total failure
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
