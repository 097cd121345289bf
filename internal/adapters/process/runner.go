// Package process runs external reconstruction tools and streams their output.
package process

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/bft-labs/volumetrize/internal/domain"
	"github.com/bft-labs/volumetrize/internal/ports"
)

// Default runner settings.
const (
	DefaultMaxLines  = 5000
	DefaultWaitDelay = 10 * time.Second
)

// Runner implements ports.ProcessRunner with os/exec.
type Runner struct {
	maxLines  int
	waitDelay time.Duration
	env       []string
	logger    ports.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithMaxLines bounds the captured lines kept per stream.
func WithMaxLines(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxLines = n
		}
	}
}

// WithWaitDelay sets the grace period between the interrupt and the kill
// once the context is canceled.
func WithWaitDelay(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.waitDelay = d
		}
	}
}

// WithEnv appends KEY=value pairs to the inherited environment.
func WithEnv(kv ...string) Option {
	return func(r *Runner) {
		r.env = append(r.env, kv...)
	}
}

// WithLogger logs each invocation at debug level.
func WithLogger(logger ports.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a Runner with default limits.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		maxLines:  DefaultMaxLines,
		waitDelay: DefaultWaitDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type outputLine struct {
	stream ports.Stream
	text   string
}

// Run starts cmd, forwards every complete line to cmd.Sink as it arrives and
// blocks until the process exits.
func (r *Runner) Run(ctx context.Context, cmd ports.Command) (domain.Invocation, error) {
	inv := domain.Invocation{
		Argv:       append([]string(nil), cmd.Argv...),
		WorkingDir: cmd.Dir,
	}
	if len(cmd.Argv) == 0 {
		inv.ExitCode = -1
		return inv, r.failure(inv, errors.New("empty command"))
	}

	c := exec.CommandContext(ctx, cmd.Argv[0], cmd.Argv[1:]...)
	c.Dir = cmd.Dir
	if len(r.env) > 0 {
		c.Env = append(os.Environ(), r.env...)
	}
	c.Cancel = func() error { return interrupt(c.Process) }
	c.WaitDelay = r.waitDelay

	lines := make(chan outputLine, 64)
	stdout := &lineWriter{stream: ports.Stdout, out: lines}
	stderr := &lineWriter{stream: ports.Stderr, out: lines}
	c.Stdout = stdout
	c.Stderr = stderr

	if r.logger != nil {
		r.logger.Debug("starting tool",
			ports.Strings("argv", cmd.Argv),
			ports.String("dir", cmd.Dir),
		)
	}

	start := time.Now()
	if err := c.Start(); err != nil {
		inv.ExitCode = -1
		return inv, r.failure(inv, err)
	}

	// exec copies each pipe on its own goroutine; Wait returns once both
	// copies finish, so closing the channel after Wait sees every line.
	var waitErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		waitErr = c.Wait()
		stdout.flush()
		stderr.flush()
		close(lines)
	}()

	for l := range lines {
		switch l.stream {
		case ports.Stdout:
			inv.Stdout = r.keep(inv.Stdout, l.text)
		default:
			inv.Stderr = r.keep(inv.Stderr, l.text)
		}
		if cmd.Sink != nil {
			cmd.Sink(l.stream, l.text)
		}
	}
	wg.Wait()
	inv.Duration = time.Since(start)

	if waitErr == nil {
		inv.ExitCode = 0
		return inv, nil
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		inv.ExitCode = exitErr.ExitCode()
	} else {
		inv.ExitCode = -1
	}
	if ctx.Err() != nil {
		waitErr = errors.Join(ctx.Err(), waitErr)
	}
	return inv, r.failure(inv, waitErr)
}

func (r *Runner) keep(lines []string, line string) []string {
	lines = append(lines, line)
	if len(lines) > r.maxLines {
		lines = lines[len(lines)-r.maxLines:]
	}
	return lines
}

func (r *Runner) failure(inv domain.Invocation, err error) error {
	return &domain.ExternalToolFailure{
		Argv:       inv.Argv,
		WorkingDir: inv.WorkingDir,
		ExitCode:   inv.ExitCode,
		Stdout:     inv.Stdout,
		Stderr:     inv.Stderr,
		Err:        err,
	}
}

func interrupt(p *os.Process) error {
	if runtime.GOOS == "windows" {
		return p.Kill()
	}
	return p.Signal(os.Interrupt)
}

// lineWriter splits written bytes into lines on '\n' or '\r' and sends each
// complete line to out. "\r\n" counts as one terminator.
type lineWriter struct {
	stream ports.Stream
	out    chan<- outputLine
	buf    []byte
	lastCR bool
}

func (w *lineWriter) Write(p []byte) (int, error) {
	for _, b := range p {
		switch b {
		case '\n':
			if w.lastCR && len(w.buf) == 0 {
				w.lastCR = false
				continue
			}
			w.emit()
			w.lastCR = false
		case '\r':
			w.emit()
			w.lastCR = true
		default:
			w.buf = append(w.buf, b)
			w.lastCR = false
		}
	}
	return len(p), nil
}

func (w *lineWriter) emit() {
	w.out <- outputLine{stream: w.stream, text: string(w.buf)}
	w.buf = w.buf[:0]
}

func (w *lineWriter) flush() {
	if len(w.buf) > 0 {
		w.emit()
	}
}

var _ ports.ProcessRunner = (*Runner)(nil)
