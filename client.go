package ipcmd

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Default client configuration values.
const (
	defaultBinary  = "ip"
	defaultTimeout = 5000 * time.Millisecond
	defaultGrace   = 5 * time.Second
	defaultScanBuf = 1 << 20 // 1 MB
)

// clientOptions holds resolved construction-time configuration.
type clientOptions struct {
	binary  string
	timeout time.Duration
	grace   time.Duration
	scanBuf int
	log     zerolog.Logger
}

// Option configures a Client at construction time.
type Option func(*clientOptions)

// WithBinary overrides the ip binary name or path resolved at construction.
// Empty values are ignored; the default is "ip".
func WithBinary(name string) Option {
	return func(o *clientOptions) {
		if name != "" {
			o.binary = name
		}
	}
}

// WithTimeout sets the per-invocation timeout. Values <= 0 are ignored;
// the default is 5000 ms.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithGracePeriod sets how long [LineStream.Close] waits after SIGTERM
// before sending SIGKILL. Values <= 0 are ignored.
func WithGracePeriod(d time.Duration) Option {
	return func(o *clientOptions) {
		if d > 0 {
			o.grace = d
		}
	}
}

// WithScannerBuffer sets the maximum line size in bytes for stream
// scanners. Values <= 0 are ignored.
func WithScannerBuffer(size int) Option {
	return func(o *clientOptions) {
		if size > 0 {
			o.scanBuf = size
		}
	}
}

// WithLogger attaches a zerolog logger for debug-level invocation records.
// The default logger discards everything; no failure is ever reported
// through the logger alone.
func WithLogger(log zerolog.Logger) Option {
	return func(o *clientOptions) {
		o.log = log
	}
}

func resolveOptions(opts ...Option) clientOptions {
	o := clientOptions{
		binary:  defaultBinary,
		timeout: defaultTimeout,
		grace:   defaultGrace,
		scanBuf: defaultScanBuf,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Client is an ip(8) command client. The zero value is not usable; create
// clients with [New]. All fields are set once at construction and never
// mutated, so a Client is safe for concurrent use and concurrent
// invocations share no state beyond the resolved binary path and defaults.
type Client struct {
	path      string // resolved ip binary
	timeout   time.Duration
	grace     time.Duration
	scanBuf   int
	namespace string // "" = default namespace
	log       zerolog.Logger
}

// New creates an ip(8) client, resolving the binary on PATH once.
// Returns [ErrNotFound] when the binary is absent.
func New(opts ...Option) (*Client, error) {
	o := resolveOptions(opts...)
	path, err := exec.LookPath(o.binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotFound, o.binary, err)
	}
	return &Client{
		path:    path,
		timeout: o.timeout,
		grace:   o.grace,
		scanBuf: o.scanBuf,
		log:     o.log,
	}, nil
}

// WithNamespace returns a client scoped to the named network namespace.
// The receiver is unchanged; the clone shares the resolved binary path.
func (c *Client) WithNamespace(namespace string) *Client {
	clone := *c
	clone.namespace = namespace
	return &clone
}

// Version returns the version string of the ip binary.
func (c *Client) Version(ctx context.Context) (string, error) {
	out, err := c.run(ctx, []string{"-Version"}, false)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// leadingArgs returns the protocol-fixed tokens prepended to every
// invocation: the JSON output selector and, for namespace-scoped clients,
// the namespace selector pair. Serialized option tokens follow these.
func (c *Client) leadingArgs() []string {
	lead := []string{"-json"}
	if c.namespace != "" {
		lead = append(lead, "-netns", c.namespace)
	}
	return lead
}

func (c *Client) argv(args []string) []string {
	return append(c.leadingArgs(), args...)
}
