// Package clock abstracts the time operations the daemon blocks on.
//
// Every wait in the daemon (handshake window, removal debounce, termination
// grace periods, reconnect backoff, loop tick) goes through a Clock so tests
// can run the full state machine against virtual time.
package clock

import "time"

// Clock is the subset of the time package used by the daemon.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Sleep pauses the calling goroutine for at least d.
	Sleep(d time.Duration)
}

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }
