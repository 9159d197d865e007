// Package execx wraps the external binaries the pipeline shells out to
// (ffmpeg, ffprobe, tesseract, yt-dlp) behind hard timeouts, bounded stderr
// capture and structured errors.
package execx

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// stderrTailLimit bounds how much stderr is kept for error reporting. Scene
// detection over long videos can emit megabytes of showinfo lines; only the
// tail is useful when a process fails.
const stderrTailLimit = 8 * 1024

// Tool is a resolved external binary.
type Tool struct {
	Name string
	Path string
}

// MissingToolError reports a required binary that could not be resolved.
type MissingToolError struct {
	Tool string
}

func (e *MissingToolError) Error() string {
	return fmt.Sprintf("missing %s (install it or add it to PATH)", e.Tool)
}

// TimeoutError reports a subprocess that exceeded its budget and was killed.
type TimeoutError struct {
	Tool  string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Tool, e.After)
}

// ExitError reports a non-zero subprocess exit, carrying the stderr tail.
type ExitError struct {
	Tool   string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s exited with code %d", e.Tool, e.Code)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Tool, e.Code, e.Stderr)
}

// Find resolves a required binary. A non-empty override wins over PATH
// lookup; failure is a MissingToolError so callers can abort before any
// work starts.
func Find(name, override string) (Tool, error) {
	if override != "" {
		info, err := os.Stat(override)
		if err != nil || info.IsDir() {
			return Tool{}, &MissingToolError{Tool: name}
		}
		return Tool{Name: name, Path: override}, nil
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return Tool{}, &MissingToolError{Tool: name}
	}
	return Tool{Name: name, Path: path}, nil
}

// Lookup is the result of resolving an optional binary: either a usable
// Tool or an explicit "unavailable", so degrade-vs-abort decisions stay
// visible at the call site instead of hiding in error handling.
type Lookup struct {
	Tool Tool
	OK   bool
}

// Optional resolves a binary that the pipeline can run without.
func Optional(name, override string) Lookup {
	tool, err := Find(name, override)
	if err != nil {
		return Lookup{}
	}
	return Lookup{Tool: tool, OK: true}
}

// tailBuffer keeps the last stderrTailLimit bytes written to it.
type tailBuffer struct {
	buf bytes.Buffer
}

func (t *tailBuffer) WriteLine(line string) {
	t.buf.WriteString(line)
	t.buf.WriteByte('\n')
	if t.buf.Len() > stderrTailLimit {
		b := t.buf.Bytes()
		trimmed := make([]byte, stderrTailLimit)
		copy(trimmed, b[len(b)-stderrTailLimit:])
		t.buf.Reset()
		t.buf.Write(trimmed)
	}
}

func (t *tailBuffer) String() string {
	return string(bytes.TrimSpace(t.buf.Bytes()))
}

// Run executes the tool and waits for it to finish within timeout. On
// timeout the process is killed and a TimeoutError returned; on a non-zero
// exit an ExitError with the stderr tail. onStderrLine, when non-nil, is
// invoked for every complete stderr line as it streams, which lets scene
// detection parse timestamps without buffering the whole log.
func Run(ctx context.Context, tool Tool, args []string, timeout time.Duration, onStderrLine func(line string)) error {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(tctx, tool.Path, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("%s: stderr pipe: %w", tool.Name, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s: start: %w", tool.Name, err)
	}

	tail := &tailBuffer{}
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if onStderrLine != nil {
			onStderrLine(line)
		}
		tail.WriteLine(line)
	}

	waitErr := cmd.Wait()
	return classify(tctx, ctx, tool, timeout, waitErr, tail.String())
}

// RunCapture executes the tool and returns its full stdout. Used for
// probing, where the tool emits structured JSON.
func RunCapture(ctx context.Context, tool Tool, args []string, timeout time.Duration) (string, error) {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(tctx, tool.Path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	tail := stderr.String()
	if len(tail) > stderrTailLimit {
		tail = tail[len(tail)-stderrTailLimit:]
	}
	if err := classify(tctx, ctx, tool, timeout, runErr, tail); err != nil {
		return "", err
	}
	return stdout.String(), nil
}

func classify(tctx, ctx context.Context, tool Tool, timeout time.Duration, waitErr error, stderrTail string) error {
	if waitErr == nil {
		return nil
	}
	if errors.Is(tctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return &TimeoutError{Tool: tool.Name, After: timeout}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return &ExitError{Tool: tool.Name, Code: exitErr.ExitCode(), Stderr: stderrTail}
	}
	return fmt.Errorf("%s: %w", tool.Name, waitErr)
}
