package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bamsammich/xcp/internal/arbiter"
	"github.com/bamsammich/xcp/internal/config"
	"github.com/bamsammich/xcp/internal/coordinator"
	"github.com/bamsammich/xcp/internal/engine"
	"github.com/bamsammich/xcp/internal/event"
	"github.com/bamsammich/xcp/internal/stats"
	"github.com/bamsammich/xcp/internal/ui"
	"github.com/bamsammich/xcp/internal/walk"
)

// controlFlag is a pflag.Value for --on-error.
type controlFlag struct {
	c event.OperationControl
}

var _ pflag.Value = (*controlFlag)(nil)

func (f *controlFlag) String() string { return f.c.String() }
func (*controlFlag) Type() string     { return "action" }

func (f *controlFlag) Set(val string) error {
	c, err := event.ParseControl(val)
	if err != nil {
		return err
	}
	f.c = c
	return nil
}

type copyOptions struct {
	onError    controlFlag
	retries    int
	bwLimit    string
	chunkSize  string
	verify     bool
	preserve   bool
	logFile    string
	noProgress bool
	quiet      bool
	verbose    bool
}

func newCopyCmd() *cobra.Command {
	opts := &copyOptions{onError: controlFlag{c: event.Skip}}

	cmd := &cobra.Command{
		Use:   "cp [flags] <source>... <destination>",
		Short: "Copy files and directories into a destination directory",
		Long: `Copy every regular file under each source into the destination directory,
keeping each source's own name. Progress is shown as four live lines on a
terminal and as periodic lines otherwise.`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCopy(cmd, opts, args[:len(args)-1], args[len(args)-1])
		},
	}

	f := cmd.Flags()
	f.Var(&opts.onError, "on-error", "what to do when a file fails: retry, skip or abort")
	f.IntVar(&opts.retries, "retries", 3, "retries per file before skipping (with --on-error=retry)")
	f.StringVar(&opts.bwLimit, "bwlimit", "", "bandwidth limit (e.g. 100M, 1G)")
	f.StringVar(&opts.chunkSize, "chunk-size", "1M", "bytes copied between progress updates")
	f.BoolVar(&opts.verify, "verify", false, "verify each copy with BLAKE3 before renaming it into place")
	f.BoolVarP(&opts.preserve, "preserve", "p", false, "preserve permission bits and timestamps")
	f.StringVar(&opts.logFile, "log", "", "write structured JSON log to FILE")
	f.BoolVar(&opts.noProgress, "no-progress", false, "print periodic progress lines instead of live bars")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress all output except errors")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	return cmd
}

// applyConfigDefaults applies config file defaults for flags not explicitly set on the CLI.
func applyConfigDefaults(cmd *cobra.Command, defaults config.DefaultsConfig, opts *copyOptions) error {
	changed := cmd.Flags().Changed
	if !changed("on-error") && defaults.OnError != nil {
		if err := opts.onError.Set(*defaults.OnError); err != nil {
			return fmt.Errorf("config on_error: %w", err)
		}
	}
	if !changed("retries") && defaults.Retries != nil {
		opts.retries = *defaults.Retries
	}
	if !changed("bwlimit") && defaults.BWLimit != nil {
		opts.bwLimit = *defaults.BWLimit
	}
	if !changed("chunk-size") && defaults.ChunkSize != nil {
		opts.chunkSize = *defaults.ChunkSize
	}
	if !changed("verify") && defaults.Verify != nil {
		opts.verify = *defaults.Verify
	}
	if !changed("preserve") && defaults.Preserve != nil {
		opts.preserve = *defaults.Preserve
	}
	return nil
}

// newLogger builds the stderr text logger, teed to a JSON file with --log.
// The returned close func flushes the file.
func newLogger(opts *copyOptions) (*slog.Logger, func() error, error) {
	level := slog.LevelInfo
	switch {
	case opts.verbose:
		level = slog.LevelDebug
	case opts.quiet:
		level = slog.LevelWarn
	}
	textHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	if opts.logFile == "" {
		return slog.New(textHandler), func() error { return nil }, nil
	}

	lf, err := os.Create(opts.logFile)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(ui.NewMultiHandler(textHandler, jsonHandler)), lf.Close, nil
}

//nolint:funlen // wires every component of a run
func runCopy(cmd *cobra.Command, opts *copyOptions, sources []string, dst string) error {
	cfg, err := config.Load()
	if err != nil {
		slog.Warn("failed to load config", "error", err)
	}
	if err := applyConfigDefaults(cmd, cfg.Defaults, opts); err != nil {
		return err
	}
	ui.ApplyTheme(cfg.Theme)

	var bwLimit uint64
	if opts.bwLimit != "" {
		if bwLimit, err = config.ParseSize(opts.bwLimit); err != nil {
			return fmt.Errorf("invalid --bwlimit: %w", err)
		}
	}
	chunkSize, err := config.ParseSize(opts.chunkSize)
	if err != nil || chunkSize == 0 {
		return fmt.Errorf("invalid --chunk-size %q", opts.chunkSize)
	}
	if opts.retries < 0 {
		return fmt.Errorf("invalid --retries %d", opts.retries)
	}

	logger, closeLog, err := newLogger(opts)
	if err != nil {
		return err
	}
	defer closeLog() //nolint:errcheck // best-effort flush of the JSON log
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	paths := walk.NewQueue()
	controls := make(chan event.OperationControl, 1)
	events := make(chan event.WorkerEvent, 256)

	eng, err := engine.New(engine.Config{
		Sources:   sources,
		Dst:       dst,
		Verify:    opts.verify,
		Preserve:  opts.preserve,
		BWLimit:   bwLimit,
		ChunkSize: int64(min(chunkSize, 1<<40)),
		Logger:    logger,
	}, controls, events, paths)
	if err != nil {
		return err
	}

	producer := walk.NewProducer(walk.Config{Logger: logger})
	if err := producer.Start(ctx, eng.SearchPath(), paths); err != nil {
		return err
	}

	var summaryOut io.Writer = cmd.OutOrStdout()
	if opts.quiet {
		summaryOut = io.Discard
	}
	target := ui.NewTarget(ui.TargetConfig{
		Out:        os.Stderr,
		Quiet:      opts.quiet,
		NoProgress: opts.noProgress,
	})
	presenter := ui.NewPresenter(target, ui.WithSummaryWriter(summaryOut))

	router := coordinator.NewRouter(controls)
	router.Register(eng.ID(), controls)

	coord, err := coordinator.New(coordinator.Config{
		Presenter: presenter,
		Arbiter:   arbiter.New(arbiter.PolicyFor(opts.onError.c, opts.retries), logger),
		Router:    router,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	logger.Debug("starting copy",
		"sources", sources,
		"dst", dst,
		"engine", eng.ID().String(),
		"on_error", opts.onError.String(),
		"verify", opts.verify,
		"preserve", opts.preserve,
		"bwlimit", bwLimit,
	)

	engineCtx, cancelEngine := context.WithCancel(ctx)
	defer cancelEngine()
	engineDone := make(chan error, 1)
	go func() { engineDone <- eng.Run(engineCtx) }()

	sum, runErr := coord.Run(ctx, events)
	if runErr != nil {
		// The coordinator stopped reading: unblock the engine and let it close events.
		cancelEngine()
		for range events { //nolint:revive // drain
		}
	}
	engineErr := <-engineDone

	if werr := producer.Wait(); werr != nil && !errors.Is(werr, walk.ErrReceiverGone) {
		logger.Debug("discovery ended early", "error", werr)
	}

	return exitFor(logger, sum, errors.Join(runErr, engineErr))
}

// exitFor maps the outcome of a run to the process exit code: 0 when every
// file was copied, 1 when some were, 2 when none were.
func exitFor(logger *slog.Logger, sum stats.Summary, err error) error {
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("copy interrupted", "copied", sum.FilesDone, "total", sum.FilesTotal)
		} else {
			logger.Error("copy failed", "error", err)
		}
		if sum.FilesDone > 0 {
			return &exitError{code: 1}
		}
		return &exitError{code: 2}
	}

	if !sum.Complete() {
		logger.Warn("some files were not copied", "skipped", sum.FilesTotal-sum.FilesDone)
		if sum.FilesDone > 0 {
			return &exitError{code: 1}
		}
		return &exitError{code: 2}
	}
	if sum.FilesTotal == 0 {
		logger.Warn("no files found")
	}
	return nil
}
