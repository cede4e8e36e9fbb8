package metrics

import (
	"testing"
	"time"
)

// Compile-time checks that both implementations satisfy Recorder.
var (
	_ Recorder = NoopRecorder{}
	_ Recorder = (*PrometheusRecorder)(nil)
)

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.IncTagEvent("remove")
	r.IncLaunch(ResultSuccess)
	r.IncTermination(TerminationCustom)
	r.ObserveAppLifetime(time.Second)
	r.SetAppRunning(false)
	r.IncLoadTrigger()
	r.LinkConnected(true)
	r.LinkReconnectAttempt()
	r.LinkGaveUp()
}
