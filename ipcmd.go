// Package ipcmd wraps the Linux ip(8) command: show / manipulate routing,
// network devices, interfaces and tunnels.
//
// # Core Types
//
//   - [Client] — resolved ip binary plus immutable invocation defaults
//   - [LineStream] — process-owning lazy sequence of output lines
//   - [CommandError] — non-zero exit with captured stdout/stderr
//
// Command facades ([Client.Link], [Client.Address], [Client.Netns],
// [Client.Monitor]) build option structs, serialize them with the args
// package, and decode ip's -json output into result structs.
//
// # Quick Start
//
//	client, err := ipcmd.New()
//	if err != nil { log.Fatal(err) }
//	links, err := client.Link().Show(ctx, nil)
//
// Namespace-scoped clients are cheap value clones:
//
//	blue := client.WithNamespace("blue")
//	err = blue.Link().Set(ctx, ipcmd.LinkSet{Device: ipcmd.Device("veth0"), State: ipcmd.LinkUp.Ref()})
//
// # Resource Ownership
//
// Request/response operations own their child process for exactly one call.
// Streaming operations ([NetnsCmd.Exec], [NetnsCmd.Monitor],
// [MonitorCmd.Watch]) return a [LineStream] that owns the child; callers
// must either drain [LineStream.Lines] to completion or call
// [LineStream.Close] to release the subprocess. Failing to do so leaves the
// child running and leaks goroutines.
//
// All operations require a context and honor its cancellation in addition
// to the client timeout. Failures are returned as typed errors, never
// logged and swallowed; the library performs no retries.
package ipcmd
