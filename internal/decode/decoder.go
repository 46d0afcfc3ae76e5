// Package decode reads GRIB2 files through external decoder programs.
//
// GRIB2 itself is treated as a black box: each [Decoder] shells out to a
// native tool and converts its output into a [domain.Dataset]. A [Chain]
// tries decoders in a fixed order and keeps the first success.
package decode

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
	"github.com/couchcryptid/storm-data-radar/internal/observability"
)

// Decoder turns a GRIB2 file into a dataset.
type Decoder interface {
	Name() string
	// Available returns an error when the backend cannot run on this host.
	Available() error
	Decode(ctx context.Context, path string) (*domain.Dataset, error)
}

// RunFunc starts name with args and hands its stdout to consume. It returns
// the first of consume's error or the process exit error, including stderr.
type RunFunc func(ctx context.Context, name string, args []string, consume func(io.Reader) error) error

// ExecRun runs a real subprocess.
func ExecRun(ctx context.Context, name string, args []string, consume func(io.Reader) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Wrapf(err, "%s stdout", name)
	}
	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "start %s", name)
	}

	consumeErr := consume(stdout)
	if consumeErr != nil {
		// stop the process so Wait does not block on a full pipe
		cancel()
	}
	waitErr := cmd.Wait()
	if consumeErr != nil {
		return consumeErr
	}
	if waitErr != nil {
		return errors.Wrapf(waitErr, "%s failed (stderr: %q)", name, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func discard(r io.Reader) error {
	_, err := io.Copy(io.Discard, r)
	return err
}

func lookPath(command string) error {
	if _, err := exec.LookPath(command); err != nil {
		return errors.Wrapf(err, "find %s executable", command)
	}
	return nil
}

// Attempt records one decoder's failure.
type Attempt struct {
	Decoder string
	Err     error
}

// DecodeError reports that every decoder in a chain failed.
type DecodeError struct {
	Path     string
	Attempts []Attempt
}

func (e *DecodeError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = fmt.Sprintf("%s: %v", a.Decoder, a.Err)
	}
	return fmt.Sprintf("decode %s: no decoder could read the file (%s)", e.Path, strings.Join(parts, "; "))
}

// Unwrap exposes each attempt's error to errors.Is and errors.As.
func (e *DecodeError) Unwrap() []error {
	errs := make([]error, len(e.Attempts))
	for i, a := range e.Attempts {
		errs[i] = a.Err
	}
	return errs
}

// ErrNoDecoders is returned when no backend is installed.
var ErrNoDecoders = errors.New("no GRIB2 decoder available")

// Chain tries decoders in order.
type Chain struct {
	decoders []Decoder
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewChain keeps the decoders whose backend is available, in order. The
// check runs once here, not per decode.
func NewChain(timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics, decoders ...Decoder) (*Chain, error) {
	c := &Chain{timeout: timeout, logger: logger, metrics: metrics}
	for _, d := range decoders {
		if err := d.Available(); err != nil {
			logger.Info("decoder unavailable, skipping", "decoder", d.Name(), "error", err)
			continue
		}
		c.decoders = append(c.decoders, d)
	}
	if len(c.decoders) == 0 {
		return nil, errors.WithStack(ErrNoDecoders)
	}
	return c, nil
}

// Names lists the active decoders in order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.decoders))
	for i, d := range c.decoders {
		names[i] = d.Name()
	}
	return names
}

// Decode returns the first successful dataset and the name of the decoder
// that produced it. If all decoders fail the error is a *DecodeError.
func (c *Chain) Decode(ctx context.Context, path string) (*domain.Dataset, string, error) {
	derr := &DecodeError{Path: path}
	for _, d := range c.decoders {
		ds, err := c.try(ctx, d, path)
		if c.metrics != nil {
			c.metrics.DecodeAttempts.WithLabelValues(d.Name(), observability.Outcome(err)).Inc()
		}
		if err == nil {
			c.logger.Info("decoded grib2", "decoder", d.Name(), "variables", ds.Names())
			return ds, d.Name(), nil
		}
		c.logger.Warn("decoder failed, trying next", "decoder", d.Name(), "error", err)
		derr.Attempts = append(derr.Attempts, Attempt{Decoder: d.Name(), Err: err})
		if ctx.Err() != nil {
			break
		}
	}
	return nil, "", derr
}

func (c *Chain) try(ctx context.Context, d Decoder, path string) (*domain.Dataset, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	ds, err := d.Decode(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(ds.Variables) == 0 {
		return nil, errors.New("no records decoded")
	}
	return ds, nil
}
