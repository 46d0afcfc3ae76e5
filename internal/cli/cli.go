// Package cli wires configuration, observability and the pipelines into the
// gribpng, mrmspng and stationpng commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/storm-data-radar/internal/config"
	"github.com/couchcryptid/storm-data-radar/internal/notify"
	"github.com/couchcryptid/storm-data-radar/internal/observability"
	"github.com/couchcryptid/storm-data-radar/internal/pipeline"
)

// Program is one of the binaries.
type Program struct {
	// failure prefixes the ❌ line.
	failure string
	command func(*env) *cobra.Command
}

var (
	// GRIB renders any GRIB2 reflectivity file.
	GRIB = Program{failure: "Error processing GRIB2", command: gribCommand}
	// MRMS renders an MRMS file on a regional map.
	MRMS = Program{failure: "Error processing MRMS", command: mrmsCommand}
	// Station re-frames a NWS station image.
	Station = Program{failure: "Error", command: stationCommand}
)

// env is what every command needs to build its pipeline.
type env struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *observability.Metrics
	reporter *pipeline.Reporter
	clock    clockwork.Clock
}

func (e *env) deps() pipeline.Deps {
	return pipeline.Deps{
		Reporter: e.reporter,
		Logger:   e.logger,
		Metrics:  e.metrics,
		Clock:    e.clock,
	}
}

// publisher returns the configured notifier and a func closing it.
func (e *env) publisher() (notify.Publisher, func()) {
	p := notify.New(e.cfg, e.logger, e.metrics)
	return p, func() {
		if err := p.Close(); err != nil {
			e.logger.Warn("notification publisher close error", "error", err)
		}
	}
}

// Main runs prog with the process arguments and returns the exit code.
func Main(prog Program) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return Run(ctx, prog, os.Args[1:], os.Stdout, os.Stderr)
}

// Run executes prog with args. Progress goes to stdout and logs to stderr.
// Every failure is handled here: the full error with its stack is logged and
// a single ❌ line is printed. Returns 0 on success and 1 otherwise.
func Run(ctx context.Context, prog Program, args []string, stdout, stderr io.Writer) int {
	reporter := pipeline.NewReporter(stdout)

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewTextHandler(stderr, nil)).Error("failed to load config", "error", err)
		reporter.Failure(prog.failure, err)
		return 1
	}

	e := &env{
		cfg:      cfg,
		logger:   observability.NewLogger(cfg, stderr),
		metrics:  observability.NewMetrics(),
		reporter: reporter,
		clock:    clockwork.NewRealClock(),
	}

	cmd := prog.command(e)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	// negative coordinates are positional arguments, not flags
	cmd.Flags().SetInterspersed(false)

	err = cmd.ExecuteContext(ctx)

	if werr := e.metrics.WriteTextfile(cfg.MetricsTextfile); werr != nil {
		e.logger.Warn("failed to write metrics textfile", "error", werr)
	}
	if err == nil {
		return 0
	}

	e.logger.Error("run failed", "error", fmt.Sprintf("%+v", err))
	var uerr *usageError
	if errors.As(err, &uerr) {
		_, _ = fmt.Fprintln(stdout, "Usage: "+cmd.Use)
	}
	reporter.Failure(prog.failure, err)
	return 1
}

// usageError marks a problem with the command line itself.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return errors.WithStack(&usageError{msg: fmt.Sprintf(format, args...)})
}
