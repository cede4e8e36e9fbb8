package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "rfidisk"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once           sync.Once
	tagEvents      *prom.CounterVec
	launches       *prom.CounterVec
	terminations   *prom.CounterVec
	appLifetime    prom.Histogram
	appRunning     prom.Gauge
	loadTriggers   prom.Counter
	linkConnects   *prom.CounterVec
	linkReconnects prom.Counter
	linkGiveUps    prom.Counter
}

// NewPrometheusRecorder constructs and registers the daemon's metrics.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.tagEvents = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "tag_events_total",
			Help:      "Tag events received from the device by kind",
		}, []string{"kind"})
		pr.launches = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "launches_total",
			Help:      "App launches by result",
		}, []string{"result"})
		pr.terminations = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "terminations_total",
			Help:      "App terminations by method",
		}, []string{"method"})
		pr.appLifetime = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "app_lifetime_seconds",
			Help:      "Time from launch to termination or exit",
			Buckets:   []float64{1, 10, 60, 300, 900, 1800, 3600, 7200, 14400},
		})
		pr.appRunning = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "app_running",
			Help:      "1 while the daemon owns a running app",
		})
		pr.loadTriggers = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "load_triggers_total",
			Help:      "Deferred launches requested through the load file",
		})
		pr.linkConnects = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "link_connects_total",
			Help:      "Serial connects by handshake outcome",
		}, []string{"handshake"})
		pr.linkReconnects = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "link_reconnect_attempts_total",
			Help:      "Serial reconnect attempts",
		})
		pr.linkGiveUps = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "link_give_ups_total",
			Help:      "Times the serial error budget was exhausted",
		})
		reg.MustRegister(pr.tagEvents, pr.launches, pr.terminations, pr.appLifetime, pr.appRunning,
			pr.loadTriggers, pr.linkConnects, pr.linkReconnects, pr.linkGiveUps)
	})
	return pr
}

func (p *PrometheusRecorder) IncTagEvent(kind string) {
	if p == nil || p.tagEvents == nil {
		return
	}
	p.tagEvents.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) IncLaunch(result ResultLabel) {
	if p == nil || p.launches == nil {
		return
	}
	p.launches.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncTermination(method TerminationMethod) {
	if p == nil || p.terminations == nil {
		return
	}
	p.terminations.WithLabelValues(string(method)).Inc()
}

func (p *PrometheusRecorder) ObserveAppLifetime(d time.Duration) {
	if p == nil || p.appLifetime == nil {
		return
	}
	p.appLifetime.Observe(d.Seconds())
}

func (p *PrometheusRecorder) SetAppRunning(running bool) {
	if p == nil || p.appRunning == nil {
		return
	}
	if running {
		p.appRunning.Set(1)
		return
	}
	p.appRunning.Set(0)
}

func (p *PrometheusRecorder) IncLoadTrigger() {
	if p == nil || p.loadTriggers == nil {
		return
	}
	p.loadTriggers.Inc()
}

func (p *PrometheusRecorder) LinkConnected(handshake bool) {
	if p == nil || p.linkConnects == nil {
		return
	}
	label := "ok"
	if !handshake {
		label = "timeout"
	}
	p.linkConnects.WithLabelValues(label).Inc()
}

func (p *PrometheusRecorder) LinkReconnectAttempt() {
	if p == nil || p.linkReconnects == nil {
		return
	}
	p.linkReconnects.Inc()
}

func (p *PrometheusRecorder) LinkGaveUp() {
	if p == nil || p.linkGiveUps == nil {
		return
	}
	p.linkGiveUps.Inc()
}
