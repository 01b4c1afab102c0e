package ipcmd

import (
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireStdbuf(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("stdbuf"); err != nil {
		t.Skip("stdbuf not available")
	}
}

func TestMonitorWatchDefaultsToAll(t *testing.T) {
	requireStdbuf(t)
	c := scriptClient(t, `echo "$@"`)

	s, err := c.Monitor().Watch(testCtx(t))
	require.NoError(t, err)
	defer s.Close()

	lines := collectLines(t, s, 5*time.Second)
	require.Len(t, lines, 1)
	assert.Equal(t, "-json monitor all", lines[0].Text)
}

func TestMonitorWatchObjects(t *testing.T) {
	requireStdbuf(t)
	c := scriptClient(t, `echo "$@"`)

	s, err := c.Monitor().Watch(testCtx(t), "link", "address")
	require.NoError(t, err)
	defer s.Close()

	lines := collectLines(t, s, 5*time.Second)
	require.Len(t, lines, 1)
	assert.Equal(t, "-json monitor link address", lines[0].Text)
}
