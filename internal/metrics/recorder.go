package metrics

import "time"

// ResultLabel enumerates launch result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
)

// TerminationMethod labels how an app was stopped.
type TerminationMethod string

const (
	TerminationSignal TerminationMethod = "signal"
	TerminationCustom TerminationMethod = "custom"
	// TerminationExited means the app ended on its own.
	TerminationExited TerminationMethod = "exited"
)

// Recorder defines observability hooks for the daemon. It also satisfies the
// serial link manager's Observer interface.
type Recorder interface {
	IncTagEvent(kind string)
	IncLaunch(result ResultLabel)
	IncTermination(method TerminationMethod)
	ObserveAppLifetime(d time.Duration)
	SetAppRunning(running bool)
	IncLoadTrigger()

	LinkConnected(handshake bool)
	LinkReconnectAttempt()
	LinkGaveUp()
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncTagEvent(string)               {}
func (NoopRecorder) IncLaunch(ResultLabel)            {}
func (NoopRecorder) IncTermination(TerminationMethod) {}
func (NoopRecorder) ObserveAppLifetime(time.Duration) {}
func (NoopRecorder) SetAppRunning(bool)               {}
func (NoopRecorder) IncLoadTrigger()                  {}
func (NoopRecorder) LinkConnected(bool)               {}
func (NoopRecorder) LinkReconnectAttempt()            {}
func (NoopRecorder) LinkGaveUp()                      {}
