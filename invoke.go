package ipcmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
	"unicode/utf8"
)

// run executes one ip invocation to completion and returns its decoded
// output — stdout alone, or stdout followed by stderr when combined is set.
func (c *Client) run(ctx context.Context, args []string, combined bool) (string, error) {
	out, err := c.runRaw(ctx, args, combined, nil)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(out) {
		return "", ErrInvalidUTF8
	}
	return string(out), nil
}

// runRaw is run without text decoding, for commands that emit raw netlink
// blobs (address save). A non-nil stdin is fed to the child; otherwise the
// child's stdin is closed.
func (c *Client) runRaw(ctx context.Context, args []string, combined bool, stdin []byte) ([]byte, error) {
	return c.invoke(ctx, c.path, c.argv(args), combined, stdin)
}

// invoke spawns one child process and waits for it under the client
// timeout. Each call is independent: nothing is shared with concurrent
// invocations beyond the read-only binary path and defaults.
func (c *Client) invoke(ctx context.Context, path string, argv []string, combined bool, stdin []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, argv...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSpawn, err)
	}
	err := cmd.Wait()

	c.log.Debug().
		Str("binary", path).
		Strs("args", argv).
		Dur("duration", time.Since(start)).
		Err(err).
		Msg("ip command finished")

	if err != nil {
		// CommandContext kills the child on deadline; Wait has already
		// reaped it by the time we get here.
		if ctxErr := ctx.Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w after %v", ErrTimeout, c.timeout)
			}
			return nil, ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &CommandError{
				Stdout: stdout.String(),
				Stderr: stderr.String(),
				Code:   exitErr.ExitCode(),
				Err:    err,
			}
		}
		return nil, fmt.Errorf("ipcmd: wait: %w", err)
	}

	if combined {
		return append(stdout.Bytes(), stderr.Bytes()...), nil
	}
	return stdout.Bytes(), nil
}
