package ipcmd

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// testClient builds a client around an arbitrary binary, bypassing New so
// tests can drive innocuous commands through the invocation machinery.
func testClient(t *testing.T, binary string) *Client {
	t.Helper()
	path, err := exec.LookPath(binary)
	require.NoError(t, err)
	return &Client{
		path:    path,
		timeout: 5 * time.Second,
		grace:   time.Second,
		scanBuf: defaultScanBuf,
		log:     zerolog.Nop(),
	}
}

// writeScript installs an executable shell script standing in for the ip
// binary, so run's fixed leading tokens do not confuse a real shell.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fakeip")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func scriptClient(t *testing.T, body string) *Client {
	t.Helper()
	return &Client{
		path:    writeScript(t, body),
		timeout: 5 * time.Second,
		grace:   time.Second,
		scanBuf: defaultScanBuf,
		log:     zerolog.Nop(),
	}
}

func TestInvokeCapturesStdout(t *testing.T) {
	c := testClient(t, "sh")
	out, err := c.invoke(testCtx(t), c.path, []string{"-c", "printf ok"}, false, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(out))
}

func TestInvokeCombinedOutput(t *testing.T) {
	c := testClient(t, "sh")
	out, err := c.invoke(testCtx(t), c.path,
		[]string{"-c", "printf out; printf err >&2"}, true, nil)
	require.NoError(t, err)
	assert.Equal(t, "outerr", string(out))
}

func TestInvokeStdoutOnlyDropsStderrOnSuccess(t *testing.T) {
	c := testClient(t, "sh")
	out, err := c.invoke(testCtx(t), c.path,
		[]string{"-c", "printf out; printf err >&2"}, false, nil)
	require.NoError(t, err)
	assert.Equal(t, "out", string(out))
}

func TestInvokeCommandFailed(t *testing.T) {
	c := testClient(t, "sh")
	_, err := c.invoke(testCtx(t), c.path,
		[]string{"-c", "printf partial; printf oops >&2; exit 1"}, false, nil)
	require.Error(t, err)

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "oops", cmdErr.Stderr)
	assert.Equal(t, "partial", cmdErr.Stdout)
	assert.Equal(t, 1, cmdErr.Code)

	code, ok := ExitCode(err)
	assert.True(t, ok)
	assert.Equal(t, 1, code)
}

func TestInvokeTimeout(t *testing.T) {
	c := testClient(t, "sh")
	c.timeout = 100 * time.Millisecond

	start := time.Now()
	_, err := c.invoke(testCtx(t), c.path, []string{"-c", "sleep 30"}, false, nil)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	// Wait returns only after the child is reaped, so finishing well under
	// the sleep duration proves the process was killed, not abandoned.
	assert.Less(t, elapsed, 5*time.Second)
}

func TestInvokeSpawnError(t *testing.T) {
	c := testClient(t, "sh")
	c.path = filepath.Join(t.TempDir(), "does-not-exist")
	_, err := c.invoke(testCtx(t), c.path, nil, false, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSpawn)
}

func TestInvokeContextCancellation(t *testing.T) {
	c := testClient(t, "sh")
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	_, err := c.invoke(ctx, c.path, []string{"-c", "sleep 30"}, false, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInvokeStdin(t *testing.T) {
	c := testClient(t, "sh")
	out, err := c.invoke(testCtx(t), c.path, []string{"-c", "cat"}, false, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))
}

func TestRunRejectsInvalidUTF8(t *testing.T) {
	c := scriptClient(t, `printf '\377\376'`)
	_, err := c.run(testCtx(t), []string{"link", "show"}, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}

func TestRunRawPassesInvalidUTF8(t *testing.T) {
	c := scriptClient(t, `printf '\377\376'`)
	out, err := c.runRaw(testCtx(t), []string{"address", "save"}, false, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xfe}, out)
}

func TestRunPrependsLeadingArgs(t *testing.T) {
	c := scriptClient(t, `echo "$@"`)
	out, err := c.run(testCtx(t), []string{"link", "show"}, false)
	require.NoError(t, err)
	assert.Equal(t, "-json link show\n", out)
}

func TestRunNamespaceLeadingArgs(t *testing.T) {
	c := scriptClient(t, `echo "$@"`).WithNamespace("blue")
	out, err := c.run(testCtx(t), []string{"link", "show"}, false)
	require.NoError(t, err)
	assert.Equal(t, "-json -netns blue link show\n", out)
}

func TestConcurrentInvocationsAreIndependent(t *testing.T) {
	c := scriptClient(t, `echo "$1"`)
	ctx := testCtx(t)
	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			out, err := c.invoke(ctx, c.path, []string{"tick"}, false, nil)
			if err == nil && string(out) != "tick\n" {
				err = assert.AnError
			}
			done <- err
		}()
	}
	for i := 0; i < 8; i++ {
		assert.NoError(t, <-done)
	}
}
