package voice

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const DefaultRestartDelay = 750 * time.Millisecond

var (
	errStreamEnded = errors.New("recognizer stream ended")
	errSourceDone  = errors.New("recognizer source finished")
	// ErrRestartsExhausted is returned when the recognizer kept stopping and
	// MaxRestarts was reached.
	ErrRestartsExhausted = errors.New("recognizer restarts exhausted")
)

// Source opens one recognizer stream. Each call starts a fresh stream.
type Source func(ctx context.Context) (io.ReadCloser, error)

// ReaderSource serves r as one stream. The listener stops cleanly when it
// ends instead of restarting.
func ReaderSource(r io.Reader) Source {
	return func(context.Context) (io.ReadCloser, error) {
		return lastStream{io.NopCloser(r)}, nil
	}
}

type lastStream struct {
	io.ReadCloser
}

// CommandSource runs command through the shell and reads its stdout.
func CommandSource(command string) Source {
	return func(ctx context.Context) (io.ReadCloser, error) {
		cmd := exec.CommandContext(ctx, "sh", "-c", command)
		out, err := cmd.StdoutPipe()
		if err != nil {
			return nil, fmt.Errorf("recognizer stdout: %w", err)
		}
		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("start recognizer: %w", err)
		}
		return &cmdStream{ReadCloser: out, cmd: cmd}, nil
	}
}

type cmdStream struct {
	io.ReadCloser
	cmd *exec.Cmd
}

func (c *cmdStream) Close() error {
	c.ReadCloser.Close()
	return c.cmd.Wait()
}

// Listener keeps a recognizer stream open, restarting it after a fixed
// delay whenever it ends.
type Listener struct {
	Source       Source
	RestartDelay time.Duration
	MaxRestarts  int // 0 means unlimited

	// OnState is called from the listener goroutine on every transition.
	OnState func(state State, reason string)
	Logger  *log.Logger
}

func NewListener(src Source, delay time.Duration) *Listener {
	if delay <= 0 {
		delay = DefaultRestartDelay
	}
	return &Listener{Source: src, RestartDelay: delay}
}

// Run streams transcripts to emit until ctx is cancelled, a ReaderSource
// ends, or restarts run out. Only running out of restarts is an error.
func (l *Listener) Run(ctx context.Context, emit func(Transcript)) error {
	restarts := 0
	op := func() (struct{}, error) {
		l.state(StateListening, "")
		err := l.stream(ctx, emit)
		if ctx.Err() != nil {
			return struct{}{}, backoff.Permanent(ctx.Err())
		}
		if err == nil {
			err = errStreamEnded
		}
		return struct{}{}, err
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(backoff.NewConstantBackOff(l.RestartDelay)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			restarts++
			l.logf("recognizer stopped (%v), restart %d in %s", err, restarts, next)
			l.state(StateRestarting, err.Error())
		}),
	}
	if l.MaxRestarts > 0 {
		opts = append(opts, backoff.WithMaxTries(uint(l.MaxRestarts)+1))
	}

	_, err := backoff.Retry(ctx, op, opts...)
	if ctx.Err() != nil || errors.Is(err, errSourceDone) {
		l.state(StateIdle, "")
		return nil
	}
	l.state(StateError, err.Error())
	return fmt.Errorf("%w: %w", ErrRestartsExhausted, err)
}

func (l *Listener) stream(ctx context.Context, emit func(Transcript)) error {
	rc, err := l.Source(ctx)
	if err != nil {
		return err
	}
	sc := bufio.NewScanner(rc)
	for sc.Scan() {
		t := ParseLine(sc.Text(), time.Now())
		if t.Text == "" {
			continue
		}
		emit(t)
	}
	scanErr := sc.Err()
	closeErr := rc.Close()
	if scanErr != nil {
		return fmt.Errorf("read recognizer: %w", scanErr)
	}
	if closeErr != nil && ctx.Err() == nil {
		return fmt.Errorf("recognizer exited: %w", closeErr)
	}
	if _, ok := rc.(lastStream); ok {
		return backoff.Permanent(errSourceDone)
	}
	return nil
}

func (l *Listener) state(s State, reason string) {
	if l.OnState != nil {
		l.OnState(s, reason)
	}
}

func (l *Listener) logf(format string, args ...any) {
	if l.Logger != nil {
		l.Logger.Printf(format, args...)
	}
}
