// Package state holds the daemon's runtime state.
//
// There is exactly one Runtime per daemon process. It lives for the process
// lifetime and is never persisted: a restart starts from Ready. The serial
// link manager, display publisher, process supervisor and tag state machine
// all receive the same *Runtime; the single main loop is its only owner, so
// no field is guarded by a lock.
//
// Invariants:
//   - AppLaunchedByUs implies Process != nil and ActiveTagID != "".
//   - At most one tag is active at any time.
//   - RecoveryMode and Reconnecting are both false in steady state.
package state
