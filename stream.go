package ipcmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
	"unicode/utf8"
)

// Line is one item of a [LineStream]: a decoded output line, or an error
// item when a pipe read fails or a line is not valid UTF-8. An error item
// does not end the stream; the channel closes only when all pipes reach
// EOF or the stream is closed.
type Line struct {
	Text string
	Err  error
}

// LineStream exposes a long-running subprocess's output as a lazy,
// cancellable sequence of lines. The stream owns the child process for
// exactly its own lifetime: exhaustion reaps the child, and [Close]
// releases it on every early-abandonment path. Streams are not
// restartable; a new invocation is required for further output.
//
// When stderr is merged, lines are yielded in the order they become
// available to the consumer. The two pipes are independently buffered by
// the kernel, so no relative ordering between streams is guaranteed beyond
// arrival order.
type LineStream struct {
	cmd   *exec.Cmd
	lines chan Line
	grace time.Duration

	stop      chan struct{} // closed by Close to unblock pump sends
	done      chan struct{} // closed once pumps finished and child reaped
	closeOnce sync.Once
}

// stream spawns ip under stdbuf with line buffering forced on the child's
// stdio — without it the child's libc block-buffers pipes and lines would
// arrive only when a buffer fills. Cancelling ctx closes the stream.
func (c *Client) stream(ctx context.Context, args []string, merge bool) (*LineStream, error) {
	stdbuf, err := exec.LookPath("stdbuf")
	if err != nil {
		return nil, fmt.Errorf("%w: stdbuf: %w", ErrNotFound, err)
	}

	argv := append([]string{"-i0", "-o0", "-e0", c.path}, c.argv(args)...)
	cmd := exec.Command(stdbuf, argv...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ipcmd: stdout pipe: %w", err)
	}
	pipes := []io.ReadCloser{stdout}
	if merge {
		stderr, err := cmd.StderrPipe()
		if err != nil {
			return nil, fmt.Errorf("ipcmd: stderr pipe: %w", err)
		}
		pipes = append(pipes, stderr)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSpawn, err)
	}

	c.log.Debug().
		Str("binary", c.path).
		Strs("args", argv[3:]).
		Int("pid", cmd.Process.Pid).
		Bool("merge_stderr", merge).
		Msg("ip stream started")

	s := newLineStream(cmd, pipes, c.grace, c.scanBuf)

	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.done:
		}
	}()

	return s, nil
}

// newLineStream wires pump goroutines for each pipe of a started command
// and a reaper that closes the line channel once every pipe is drained.
func newLineStream(cmd *exec.Cmd, pipes []io.ReadCloser, grace time.Duration, scanBuf int) *LineStream {
	s := &LineStream{
		cmd:   cmd,
		lines: make(chan Line),
		grace: grace,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}

	var wg sync.WaitGroup
	for _, pipe := range pipes {
		wg.Add(1)
		go s.pump(&wg, pipe, scanBuf)
	}
	go func() {
		wg.Wait()
		// Wait closes the parent pipe ends and reaps the child. Any exit
		// error is irrelevant here: abandonment kills the child on
		// purpose, and natural EOF already delivered everything.
		_ = cmd.Wait()
		close(s.lines)
		close(s.done)
	}()
	return s
}

// Lines returns the stream's channel. The channel is closed when all pipes
// reach EOF and the child has been reaped, or after [Close].
func (s *LineStream) Lines() <-chan Line { return s.lines }

// Close abandons the stream and releases the child process: SIGTERM, then
// SIGKILL after the grace period. Blocks until the child is reaped and the
// line channel is closed. Safe to call multiple times and after the stream
// is exhausted; always returns nil once the process is released.
func (s *LineStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		_ = signalProcess(s.cmd.Process, syscall.SIGTERM)
		select {
		case <-s.done:
		case <-time.After(s.grace):
			_ = signalProcess(s.cmd.Process, os.Kill)
			<-s.done
		}
	})
	<-s.done
	return nil
}

// pump scans one pipe into the shared line channel until EOF or Close.
func (s *LineStream) pump(wg *sync.WaitGroup, pipe io.ReadCloser, scanBuf int) {
	defer wg.Done()

	scanner := bufio.NewScanner(pipe)
	initCap := min(4096, scanBuf)
	scanner.Buffer(make([]byte, 0, initCap), scanBuf)

	for scanner.Scan() {
		line := Line{Text: scanner.Text()}
		if !utf8.ValidString(line.Text) {
			line = Line{Err: ErrInvalidUTF8}
		}
		select {
		case s.lines <- line:
		case <-s.stop:
			return
		}
	}
	if err := scanner.Err(); err != nil {
		select {
		case s.lines <- Line{Err: fmt.Errorf("ipcmd: read: %w", err)}:
		case <-s.stop:
		}
	}
}

// signalProcess sends sig to a process, returning nil if the process has
// already exited (os.ErrProcessDone).
func signalProcess(proc *os.Process, sig os.Signal) error {
	err := proc.Signal(sig)
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}
