// Package main is the entry point for rtpsearch. It looks up the RTP of every
// game listed in a text file and writes the results to a CSV file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/pflag"

	"github.com/j-veylop/mass-rtp-search/internal/app"
	"github.com/j-veylop/mass-rtp-search/internal/config"
	"github.com/j-veylop/mass-rtp-search/internal/logger"
	"github.com/j-veylop/mass-rtp-search/internal/services"
	"github.com/j-veylop/mass-rtp-search/internal/version"
)

// progressLogFile receives log output while the progress view owns the terminal.
const progressLogFile = "rtpsearch.log"

type options struct {
	help     bool
	version  bool
	watch    bool
	progress bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run contains the main application logic and returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	var opts options
	fs := pflag.NewFlagSet(version.Name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVarP(&opts.help, "help", "h", false, "Show this help message")
	fs.BoolVarP(&opts.version, "version", "v", false, "Show version information")
	fs.BoolVar(&opts.watch, "watch", false, "Run again whenever the input file changes")
	fs.BoolVar(&opts.progress, "progress", false, "Show a live progress view")
	fs.Usage = func() { printUsage(stdout, fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		printUsage(stderr, fs)
		return 2
	}

	if opts.version {
		fmt.Fprintln(stdout, version.Info())
		return 0
	}
	if opts.help {
		printUsage(stdout, fs)
		return 0
	}

	// A bad invocation prints usage and exits 0, like a help request.
	if fs.NArg() != 1 {
		fmt.Fprintln(stdout, "Error: expected exactly one input file")
		printUsage(stdout, fs)
		return 0
	}
	inputPath := fs.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to load configuration: %v\n", err)
		return 1
	}
	if !cfg.HasAPIKey() {
		fmt.Fprintln(stdout, "Error: PERPLEXITY_API_KEY is not set")
		printUsage(stdout, fs)
		return 0
	}

	logPath := cfg.LogFile
	if opts.progress && logPath == "" {
		logPath = progressLogFile
	}
	logCloser, err := logger.Configure(cfg.LogLevel, logPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to open log file: %v\n", err)
		return 1
	}
	defer func() { _ = logCloser.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr, err := services.NewManager(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to initialize services: %v\n", err)
		return 1
	}
	defer func() {
		if closeErr := mgr.Close(); closeErr != nil {
			fmt.Fprintf(stderr, "Warning: error closing services: %v\n", closeErr)
		}
	}()

	if opts.progress {
		err = runWithProgress(ctx, mgr, inputPath, opts.watch, stdout)
	} else {
		err = runPlain(ctx, mgr, inputPath, opts.watch, stdout)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func runPlain(ctx context.Context, mgr *services.Manager, inputPath string, watch bool, stdout io.Writer) error {
	if watch {
		return mgr.Watch(ctx, inputPath, func(result *services.RunResult, err error) {
			if err != nil {
				logger.Error("run failed", "error", err)
				return
			}
			fmt.Fprintln(stdout, result.Summary(termWidth()))
		})
	}

	result, err := mgr.Run(ctx, inputPath)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, result.Summary(termWidth()))
	return nil
}

// runWithProgress runs with the Bubble Tea progress view and prints the
// summary once the view has closed.
func runWithProgress(ctx context.Context, mgr *services.Manager, inputPath string, watch bool, stdout io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, _ := mgr.Subscribe()
	defer mgr.Unsubscribe(events)

	p := tea.NewProgram(app.New(events, cancel, watch), tea.WithOutput(stdout))

	var (
		result *services.RunResult
		runErr error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if watch {
			runErr = mgr.Watch(ctx, inputPath, func(r *services.RunResult, err error) {
				if err != nil {
					logger.Error("run failed", "error", err)
					return
				}
				result = r
			})
		} else {
			result, runErr = mgr.Run(ctx, inputPath)
		}
		p.Send(app.RunDoneMsg{Err: runErr})
	}()

	// Close the view on a signal or when the user stops the run
	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return fmt.Errorf("error running progress view: %w", err)
	}
	<-done

	if runErr != nil {
		return runErr
	}
	if result != nil {
		fmt.Fprintln(stdout, result.Summary(termWidth()))
	}
	return nil
}

func termWidth() int {
	w, _, err := term.GetSize(os.Stdout.Fd())
	if err != nil || w <= 0 {
		return 80
	}
	return w
}

// printUsage prints the command-line usage information.
func printUsage(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintf(w, `rtpsearch - look up the RTP of casino games

Usage:
  rtpsearch [flags] <input-file>

The input file lists one game title per line; blank lines are ignored.
Results are written to rtp_results.csv, highest minimum RTP first.

Flags:
%s
Environment Variables:
  PERPLEXITY_API_KEY        API key (required)
  PERPLEXITY_MODEL          Model to ask (default: sonar)
  MAX_REQUESTS_PER_MIN      Request rate limit (default: 50)
  MAX_CONCURRENT_REQUESTS   Games processed at once (default: 5)
  DATABASE_PATH             SQLite cache path (default: rtp_cache.db)
  OUTPUT_PATH               Report path (default: rtp_results.csv)
  CACHE_BACKEND             sqlite, redis or memory (default: sqlite)
  REDIS_ADDR                Redis address for the redis backend
  LOG_LEVEL                 debug, info, warn or error (default: info)
  NOTIFY                    Desktop notification when a run completes

Configuration:
  The application looks for .env files in the following locations:
  - Current directory
  - ~/.config/rtpsearch/.env
  - ~/.rtpsearch/.env
`, fs.FlagUsages())
}
