// Package shm implements the two shared-memory files through which the
// daemon talks to companion CLI invocations: the display mirror, holding the
// four lines currently shown on the device, and the load bridge, a mailbox
// used to request a deferred launch when autolaunch is disabled.
//
// Writers replace whole files; readers must tolerate a stale view.
package shm
