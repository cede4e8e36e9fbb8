// Package errors provides the classified error primitives used across rfidisk.
//
// Every failure the daemon can observe maps onto one category of the taxonomy
// below, and the category decides how the caller reacts:
//
//   - CategoryLink: serial open/read/write failure. Retried with backoff until
//     the consecutive failure budget is spent, then fatal.
//   - CategoryLaunch: a command failed to start. Reported, never fatal.
//   - CategoryTerminate: a custom terminate command failed to start. Falls back
//     to signalling the process group.
//   - CategoryStorage: a registry or settings document is unreadable. The last
//     good in-memory copy is kept.
//   - CategoryProcess: the target process is already gone. Treated as success.
//
// Example usage:
//
//	err := errors.LinkError("serial read failed").
//		WithCause(ioErr).
//		WithContext("port", port).
//		Build()
package errors
