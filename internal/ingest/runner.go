package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

const (
	maxStderrBytes = 8 << 10
	// waitDelay bounds how long a cancelled tool may keep its pipes open.
	waitDelay = 5 * time.Second
)

// ErrOutputLimit is returned when a tool writes more text than the loader accepts.
var ErrOutputLimit = errors.New("tool output exceeds limit")

// Runner runs an external text tool. Tests substitute it.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// execRunner runs tools with bounded capture. Output beyond maxOutput is
// discarded and the run reported as ErrOutputLimit.
type execRunner struct {
	logger    *slog.Logger
	maxOutput int
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()
	stdout := &cappedBuffer{max: r.maxOutput}
	stderr := &cappedBuffer{max: maxStderrBytes}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	if err == nil && stdout.dropped > 0 {
		err = fmt.Errorf("%w: %d bytes over %d", ErrOutputLimit, stdout.dropped, r.maxOutput)
	}

	attrs := []any{
		"cmd", name,
		"args", len(args),
		"elapsed_ms", time.Since(start).Milliseconds(),
		"stdout_bytes", stdout.buf.Len(),
	}
	if err != nil {
		r.logger.Warn("ingest.tool.failed", append(attrs, "error", err, "stderr", truncate(stderr.buf.String(), 512))...)
		return nil, stderr.buf.Bytes(), err
	}
	r.logger.Debug("ingest.tool.ok", attrs...)
	return stdout.buf.Bytes(), stderr.buf.Bytes(), nil
}

// cappedBuffer keeps the first max bytes written and counts the rest. It
// never fails a write, so the child is not blocked on a full pipe.
type cappedBuffer struct {
	buf     bytes.Buffer
	max     int
	dropped int
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	room := c.max - c.buf.Len()
	switch {
	case room <= 0:
		c.dropped += len(p)
	case len(p) > room:
		c.buf.Write(p[:room])
		c.dropped += len(p) - room
	default:
		c.buf.Write(p)
	}
	return len(p), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
