package ipcmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Namespace is one named network namespace.
type Namespace struct {
	Name string
	// ID is the namespace id, nil when none is assigned.
	ID *uint32
}

// UnmarshalJSON accepts both key spellings ip uses for the namespace id
// ("id" and "nsid", depending on subcommand and iproute2 version).
func (n *Namespace) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name string  `json:"name"`
		ID   *uint32 `json:"id"`
		NSID *uint32 `json:"nsid"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	n.Name = raw.Name
	n.ID = raw.ID
	if n.ID == nil {
		n.ID = raw.NSID
	}
	return nil
}

// NetnsCmd groups network namespace operations (ip netns).
type NetnsCmd struct {
	client *Client
}

// Netns returns the network namespace command facade.
func (c *Client) Netns() *NetnsCmd { return &NetnsCmd{client: c} }

// List shows all of the named network namespaces.
func (n *NetnsCmd) List(ctx context.Context) ([]Namespace, error) {
	out, err := n.client.run(ctx, []string{"netns", "list"}, false)
	if err != nil {
		return nil, err
	}
	var namespaces []Namespace
	if err := json.Unmarshal([]byte(out), &namespaces); err != nil {
		return nil, fmt.Errorf("ipcmd: decode netns list: %w", err)
	}
	return namespaces, nil
}

// Add creates a new named network namespace.
func (n *NetnsCmd) Add(ctx context.Context, name string) error {
	_, err := n.client.run(ctx, []string{"netns", "add", name}, false)
	return err
}

// Delete removes a named network namespace.
func (n *NetnsCmd) Delete(ctx context.Context, name string) error {
	_, err := n.client.run(ctx, []string{"netns", "del", name}, false)
	return err
}

// Set assigns an id to a peer network namespace. A nil id asks the kernel
// to pick one ("auto").
func (n *NetnsCmd) Set(ctx context.Context, name string, id *uint32) error {
	idArg := "auto"
	if id != nil {
		idArg = strconv.FormatUint(uint64(*id), 10)
	}
	_, err := n.client.run(ctx, []string{"netns", "set", name, idArg}, false)
	return err
}

// Identify reports the network namespace name for a process.
func (n *NetnsCmd) Identify(ctx context.Context, pid int) (string, error) {
	out, err := n.client.run(ctx, []string{"netns", "identify", strconv.Itoa(pid)}, false)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Pids reports the processes running in the named network namespace.
func (n *NetnsCmd) Pids(ctx context.Context, name string) ([]int, error) {
	out, err := n.client.run(ctx, []string{"netns", "pids", name}, false)
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(out)
	pids := make([]int, 0, len(fields))
	for _, field := range fields {
		pid, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("ipcmd: parse netns pids: %w", err)
		}
		pids = append(pids, pid)
	}
	return pids, nil
}

// Exec runs a command in the named network namespace and streams its
// output. The stream owns the child; drain it or call Close. mergeStderr
// merges the command's stderr into the stream; otherwise it is discarded.
func (n *NetnsCmd) Exec(ctx context.Context, name string, command []string, mergeStderr bool) (*LineStream, error) {
	argv := append([]string{"netns", "exec", name}, command...)
	return n.client.stream(ctx, argv, mergeStderr)
}

// Monitor streams a line for every network namespace added or deleted.
func (n *NetnsCmd) Monitor(ctx context.Context) (*LineStream, error) {
	return n.client.stream(ctx, []string{"netns", "monitor"}, false)
}
