package ipcmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamespaceUnmarshalIDKeys(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		wantID  *uint32
	}{
		{"id key", `{"name":"blue","id":500}`, u32(500)},
		{"nsid key", `{"name":"blue","nsid":500}`, u32(500)},
		{"no id", `{"name":"blue"}`, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var ns Namespace
			require.NoError(t, json.Unmarshal([]byte(tc.payload), &ns))
			assert.Equal(t, "blue", ns.Name)
			assert.Equal(t, tc.wantID, ns.ID)
		})
	}
}

func TestNetnsIdentifyArgs(t *testing.T) {
	c := scriptClient(t, `echo "$@"`)
	out, err := c.Netns().Identify(testCtx(t), 42)
	require.NoError(t, err)
	assert.Equal(t, "-json netns identify 42", out)
}

func TestNetnsSetAutoID(t *testing.T) {
	c := scriptClient(t, `echo "$@" >&2; exit 1`)
	err := c.Netns().Set(testCtx(t), "blue", nil)
	require.Error(t, err)

	// The failing fake binary reflects the argument vector back through
	// the CommandError diagnostics.
	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "-json netns set blue auto\n", cmdErr.Stderr)

	err = c.Netns().Set(testCtx(t), "blue", u32(500))
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "-json netns set blue 500\n", cmdErr.Stderr)
}

func TestNetnsPids(t *testing.T) {
	c := scriptClient(t, `echo ' 101 102  103 '`)
	pids, err := c.Netns().Pids(testCtx(t), "blue")
	require.NoError(t, err)
	assert.Equal(t, []int{101, 102, 103}, pids)
}

func TestNetnsPidsMalformed(t *testing.T) {
	c := scriptClient(t, `echo 'not-a-pid'`)
	_, err := c.Netns().Pids(testCtx(t), "blue")
	assert.Error(t, err)
}

func TestNetnsListDecode(t *testing.T) {
	c := scriptClient(t, `echo '[{"name":"blue","id":1},{"name":"red"}]'`)
	namespaces, err := c.Netns().List(testCtx(t))
	require.NoError(t, err)
	require.Len(t, namespaces, 2)
	assert.Equal(t, "blue", namespaces[0].Name)
	require.NotNil(t, namespaces[0].ID)
	assert.Equal(t, uint32(1), *namespaces[0].ID)
	assert.Nil(t, namespaces[1].ID)
}

// requireNetnsAccess skips unless a real ip binary and root privileges are
// available; namespace manipulation needs both.
func requireNetnsAccess(t *testing.T) *Client {
	t.Helper()
	if _, err := exec.LookPath(defaultBinary); err != nil {
		t.Skip("ip binary not available")
	}
	if os.Geteuid() != 0 {
		t.Skip("requires root")
	}
	c, err := New()
	require.NoError(t, err)
	return c
}

func TestNetnsRoundTripIntegration(t *testing.T) {
	c := requireNetnsAccess(t)
	ctx := testCtx(t)
	name := fmt.Sprintf("ipcmd-test-%d", os.Getpid())

	require.NoError(t, c.Netns().Add(ctx, name))
	t.Cleanup(func() { _ = c.Netns().Delete(ctx, name) })

	namespaces, err := c.Netns().List(ctx)
	require.NoError(t, err)
	found := false
	for _, ns := range namespaces {
		if ns.Name == name {
			found = true
		}
	}
	assert.True(t, found)

	require.NoError(t, c.Netns().Delete(ctx, name))
}

func TestNetnsExecIntegration(t *testing.T) {
	c := requireNetnsAccess(t)
	if _, err := exec.LookPath("stdbuf"); err != nil {
		t.Skip("stdbuf not available")
	}
	ctx := testCtx(t)
	name := fmt.Sprintf("ipcmd-exec-%d", os.Getpid())

	require.NoError(t, c.Netns().Add(ctx, name))
	t.Cleanup(func() { _ = c.Netns().Delete(ctx, name) })

	s, err := c.Netns().Exec(ctx, name, []string{"echo", "hello"}, false)
	require.NoError(t, err)
	defer s.Close()

	select {
	case line := <-s.Lines():
		require.NoError(t, line.Err)
		assert.Equal(t, "hello", line.Text)
	case <-time.After(5 * time.Second):
		t.Fatal("no output from netns exec")
	}
}
