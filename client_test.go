package ipcmd

import (
	"os/exec"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResolvesBinary(t *testing.T) {
	c, err := New(WithBinary("sh"))
	require.NoError(t, err)
	assert.NotEmpty(t, c.path)
	assert.Equal(t, defaultTimeout, c.timeout)
}

func TestNewMissingBinary(t *testing.T) {
	_, err := New(WithBinary("ipcmd-test-no-such-binary"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOptionDefaults(t *testing.T) {
	o := resolveOptions()
	assert.Equal(t, defaultBinary, o.binary)
	assert.Equal(t, defaultTimeout, o.timeout)
	assert.Equal(t, defaultGrace, o.grace)
	assert.Equal(t, defaultScanBuf, o.scanBuf)
}

func TestOptionsIgnoreInvalidValues(t *testing.T) {
	o := resolveOptions(WithBinary(""), WithTimeout(0), WithGracePeriod(-time.Second), WithScannerBuffer(0))
	assert.Equal(t, defaultBinary, o.binary)
	assert.Equal(t, defaultTimeout, o.timeout)
	assert.Equal(t, defaultGrace, o.grace)
	assert.Equal(t, defaultScanBuf, o.scanBuf)
}

func TestOptionOverrides(t *testing.T) {
	o := resolveOptions(WithBinary("sh"), WithTimeout(time.Second), WithGracePeriod(2*time.Second), WithScannerBuffer(4096))
	assert.Equal(t, "sh", o.binary)
	assert.Equal(t, time.Second, o.timeout)
	assert.Equal(t, 2*time.Second, o.grace)
	assert.Equal(t, 4096, o.scanBuf)
}

func TestWithNamespaceClones(t *testing.T) {
	c := scriptClient(t, `echo "$@"`)
	scoped := c.WithNamespace("blue")

	assert.Empty(t, c.namespace)
	assert.Equal(t, "blue", scoped.namespace)
	assert.Equal(t, c.path, scoped.path)
	assert.Equal(t, []string{"-json"}, c.leadingArgs())
	assert.Equal(t, []string{"-json", "-netns", "blue"}, scoped.leadingArgs())
}

func TestVersionIntegration(t *testing.T) {
	if _, err := exec.LookPath(defaultBinary); err != nil {
		t.Skip("ip binary not available")
	}
	c, err := New()
	require.NoError(t, err)

	version, err := c.Version(testCtx(t))
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`ip utility, iproute2-`), version)
}
