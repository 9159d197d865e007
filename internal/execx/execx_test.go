package execx

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func shTool(t *testing.T) Tool {
	t.Helper()
	tool, err := Find("sh", "")
	if err != nil {
		t.Skip("sh not on PATH")
	}
	return tool
}

func TestFindMissingTool(t *testing.T) {
	_, err := Find("definitely-not-a-real-binary-name", "")
	var missing *MissingToolError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, "definitely-not-a-real-binary-name", missing.Tool)
}

func TestFindOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))

	tool, err := Find("ffmpeg", path)
	require.NoError(t, err)
	require.Equal(t, "ffmpeg", tool.Name)
	require.Equal(t, path, tool.Path)

	_, err = Find("ffmpeg", filepath.Join(dir, "missing"))
	require.Error(t, err)

	// A directory is not a usable binary.
	_, err = Find("ffmpeg", dir)
	require.Error(t, err)
}

func TestOptional(t *testing.T) {
	lookup := Optional("definitely-not-a-real-binary-name", "")
	require.False(t, lookup.OK)
}

func TestTailBufferKeepsTail(t *testing.T) {
	tail := &tailBuffer{}
	for i := 0; i < 2000; i++ {
		tail.WriteLine(fmt.Sprintf("frame line %d with some padding to fill the buffer", i))
	}
	out := tail.String()
	require.LessOrEqual(t, len(out), stderrTailLimit)
	require.Contains(t, out, "frame line 1999")
	require.NotContains(t, out, "frame line 0 ")
}

func TestRunExitError(t *testing.T) {
	tool := shTool(t)
	err := Run(context.Background(), tool, []string{"-c", "echo oops >&2; exit 3"}, 10*time.Second, nil)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 3, exitErr.Code)
	require.Contains(t, exitErr.Stderr, "oops")
}

func TestRunTimeout(t *testing.T) {
	tool := shTool(t)
	err := Run(context.Background(), tool, []string{"-c", "sleep 10"}, 100*time.Millisecond, nil)
	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	require.Equal(t, "sh", timeoutErr.Tool)
}

func TestRunParentCancellation(t *testing.T) {
	tool := shTool(t)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	err := Run(ctx, tool, []string{"-c", "sleep 10"}, time.Minute, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunStreamsStderrLines(t *testing.T) {
	tool := shTool(t)
	var lines []string
	err := Run(context.Background(), tool,
		[]string{"-c", "echo one >&2; echo two >&2"}, 10*time.Second,
		func(line string) { lines = append(lines, line) })
	require.NoError(t, err)
	require.Equal(t, []string{"one", "two"}, lines)
}

func TestRunCapture(t *testing.T) {
	tool := shTool(t)
	out, err := RunCapture(context.Background(), tool, []string{"-c", "printf hello"}, 10*time.Second)
	require.NoError(t, err)
	require.Equal(t, "hello", out)

	_, err = RunCapture(context.Background(), tool, []string{"-c", "echo bad >&2; exit 1"}, 10*time.Second)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	require.True(t, strings.Contains(exitErr.Stderr, "bad"))
}

func TestErrorMessages(t *testing.T) {
	require.Equal(t, "missing yt-dlp (install it or add it to PATH)",
		(&MissingToolError{Tool: "yt-dlp"}).Error())
	require.Equal(t, "ffmpeg timed out after 5s",
		(&TimeoutError{Tool: "ffmpeg", After: 5 * time.Second}).Error())
	require.Equal(t, "tesseract exited with code 2",
		(&ExitError{Tool: "tesseract", Code: 2}).Error())
	require.Equal(t, "tesseract exited with code 2: boom",
		(&ExitError{Tool: "tesseract", Code: 2, Stderr: "boom"}).Error())
}
