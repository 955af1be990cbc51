// Package metrics holds the prometheus collectors for the shell
// Every recording method is nil safe so components can run without metrics wired
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "jagapadi"

// Metrics owns the registry and the per component collectors
type Metrics struct {
	registry *prometheus.Registry

	Gate      *Gate
	Detection *Detection
	HTTP      *HTTP
	Bridge    *Bridge
	History   *History
	Notify    *Notify
}

// New builds a private registry with go and process collectors plus ours
func New() (*Metrics, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("register go collector: %w", err)
	}
	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("register process collector: %w", err)
	}

	m := &Metrics{
		registry:  reg,
		Gate:      newGate(),
		Detection: newDetection(),
		HTTP:      newHTTP(),
		Bridge:    newBridge(),
		History:   newHistory(),
		Notify:    newNotify(),
	}
	for _, c := range []prometheus.Collector{
		m.Gate.queued, m.Gate.failed, m.Gate.ran,
		m.Detection.started, m.Detection.completed, m.Detection.failed, m.Detection.seconds,
		m.HTTP.requests, m.HTTP.duration,
		m.Bridge.calls, m.Bridge.connected,
		m.History.records, m.History.persistFailures,
		m.Notify.pushed,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return m, nil
}

// MustNew is New for process wiring
func MustNew() *Metrics {
	m, err := New()
	if err != nil {
		panic(err)
	}
	return m
}

// Registry exposes the registry, mostly for tests
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError})
}

// Sample returns the summed value of every counter or gauge series named name
// whose labels include the given name=value pairs; 0 when absent. Used by tests and /health
func (m *Metrics) Sample(name string, labelPairs ...string) float64 {
	mfs, err := m.registry.Gather()
	if err != nil {
		return 0
	}
	var total float64
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, mt := range mf.GetMetric() {
			if !hasLabels(mt.GetLabel(), labelPairs) {
				continue
			}
			switch {
			case mt.GetCounter() != nil:
				total += mt.GetCounter().GetValue()
			case mt.GetGauge() != nil:
				total += mt.GetGauge().GetValue()
			case mt.GetHistogram() != nil:
				total += float64(mt.GetHistogram().GetSampleCount())
			}
		}
	}
	return total
}

func hasLabels(have []*dto.LabelPair, want []string) bool {
	for i := 0; i+1 < len(want); i += 2 {
		found := false
		for _, lp := range have {
			if lp.GetName() == want[i] && lp.GetValue() == want[i+1] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Gate counts readiness gate traffic
type Gate struct {
	queued prometheus.Counter
	failed prometheus.Counter
	ran    prometheus.Counter
}

func newGate() *Gate {
	return &Gate{
		queued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "gate", Name: "queued_total",
			Help: "Operations queued before the gate became ready",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "gate", Name: "failed_total",
			Help: "Operations that panicked while running through the gate",
		}),
		ran: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "gate", Name: "ran_total",
			Help: "Operations executed by the gate, queued or immediate",
		}),
	}
}

// Queued records one deferred op
func (g *Gate) Queued() {
	if g != nil {
		g.queued.Inc()
	}
}

// Ran records one executed op; failed marks a recovered panic
func (g *Gate) Ran(failed bool) {
	if g == nil {
		return
	}
	g.ran.Inc()
	if failed {
		g.failed.Inc()
	}
}

// Detection tracks the detection lifecycle
type Detection struct {
	started   prometheus.Counter
	completed prometheus.Counter
	failed    *prometheus.CounterVec
	seconds   prometheus.Histogram
}

func newDetection() *Detection {
	return &Detection{
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "detection", Name: "started_total",
			Help: "Detections submitted to the backend",
		}),
		completed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "detection", Name: "completed_total",
			Help: "Detection results delivered and rendered",
		}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "detection", Name: "failed_total",
			Help: "Detections that reverted to the image view",
		}, []string{"reason"}), // reason: rejected, transport, timeout
		seconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "detection", Name: "processing_seconds",
			Help:    "Seconds from submit to delivered result",
			Buckets: []float64{0.5, 1, 2, 3, 5, 8, 13, 21, 34},
		}),
	}
}

// Started records a submit
func (d *Detection) Started() {
	if d != nil {
		d.started.Inc()
	}
}

// Completed records a rendered result and its processing time
func (d *Detection) Completed(seconds float64) {
	if d == nil {
		return
	}
	d.completed.Inc()
	d.seconds.Observe(seconds)
}

// Failed records a reverted detection
func (d *Detection) Failed(reason string) {
	if d != nil {
		d.failed.WithLabelValues(reason).Inc()
	}
}

// HTTP tracks the view API
type HTTP struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newHTTP() *HTTP {
	return &HTTP{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "View API requests by route and status",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "View API latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Observe matches the middleware.AccessLogOptions.Observe hook
func (h *HTTP) Observe(method, route string, status int, elapsed time.Duration) {
	if h == nil {
		return
	}
	h.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	h.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Bridge tracks host bridge traffic
type Bridge struct {
	calls     *prometheus.CounterVec
	connected prometheus.Gauge
}

func newBridge() *Bridge {
	return &Bridge{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "bridge", Name: "calls_total",
			Help: "Bridge calls by direction, name and outcome",
		}, []string{"direction", "name", "outcome"}), // direction: inbound, outbound; outcome: ok, error
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "bridge", Name: "host_connected",
			Help: "1 while a host process is attached",
		}),
	}
}

// Call records one bridge call
func (b *Bridge) Call(direction, name string, err error) {
	if b == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	b.calls.WithLabelValues(direction, name, outcome).Inc()
}

// Connected flips the host gauge
func (b *Bridge) Connected(up bool) {
	if b == nil {
		return
	}
	if up {
		b.connected.Set(1)
		return
	}
	b.connected.Set(0)
}

// History tracks the history store
type History struct {
	records         prometheus.Gauge
	persistFailures prometheus.Counter
}

func newHistory() *History {
	return &History{
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "history", Name: "records",
			Help: "Records currently held in history",
		}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "history", Name: "persist_failures_total",
			Help: "Background history writes that failed",
		}),
	}
}

// Size sets the record gauge
func (h *History) Size(n int) {
	if h != nil {
		h.records.Set(float64(n))
	}
}

// PersistFailed counts one failed write
func (h *History) PersistFailed() {
	if h != nil {
		h.persistFailures.Inc()
	}
}

// Notify counts notifications by severity
type Notify struct {
	pushed *prometheus.CounterVec
}

func newNotify() *Notify {
	return &Notify{
		pushed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "notify", Name: "pushed_total",
			Help: "Notifications shown to the user",
		}, []string{"severity"}),
	}
}

// Pushed records one notification
func (n *Notify) Pushed(severity string) {
	if n != nil {
		n.pushed.WithLabelValues(severity).Inc()
	}
}
