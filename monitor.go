package ipcmd

import "context"

// MonitorCmd watches the kernel for netlink state changes (ip monitor).
type MonitorCmd struct {
	client *Client
}

// Monitor returns the netlink monitoring command facade.
func (c *Client) Monitor() *MonitorCmd { return &MonitorCmd{client: c} }

// Watch streams one line per state change for the given objects ("link",
// "address", "route", ...). With no objects all object types are watched.
// The stream owns the child; drain it or call Close.
func (m *MonitorCmd) Watch(ctx context.Context, objects ...string) (*LineStream, error) {
	argv := append([]string{"monitor"}, objects...)
	if len(objects) == 0 {
		argv = append(argv, "all")
	}
	return m.client.stream(ctx, argv, false)
}
