// Package metrics exposes Prometheus collectors for the ingest and dispatch
// pipeline, subscribers and the HTTP layer.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	framesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "candrive",
			Subsystem: "ingest",
			Name:      "lines_total",
			Help:      "Wire lines read from the transport, by decode result.",
		},
		[]string{"result"},
	)
	framesRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "candrive",
			Subsystem: "ingest",
			Name:      "frames_recorded_total",
			Help:      "Frames recorded into a sniffing session.",
		},
	)
	framesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "candrive",
			Subsystem: "dispatch",
			Name:      "frames_total",
			Help:      "Outbound frames, by write result.",
		},
		[]string{"success"},
	)
	subscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "candrive",
			Subsystem: "subscribers",
			Name:      "active",
			Help:      "Registered frame subscribers.",
		},
	)
	subscribersDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "candrive",
			Subsystem: "subscribers",
			Name:      "dropped_total",
			Help:      "Subscribers disconnected for falling behind.",
		},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "candrive",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "candrive",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Register adds every collector to the default registry. Safe to call more
// than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(framesReceived, framesRecorded, framesSent,
			subscribers, subscribersDropped, httpRequests, httpDuration)
	})
}

// LineDecoded counts a wire line that decoded into a frame.
func LineDecoded() { framesReceived.WithLabelValues("ok").Inc() }

// LineMalformed counts a wire line rejected by the decoder.
func LineMalformed() { framesReceived.WithLabelValues("malformed").Inc() }

// LineOverflow counts a line discarded for exceeding the length cap.
func LineOverflow() { framesReceived.WithLabelValues("overflow").Inc() }

// FrameRecorded counts a frame stored in the active session.
func FrameRecorded() { framesRecorded.Inc() }

// FrameSent counts an outbound frame by write result.
func FrameSent(success bool) {
	framesSent.WithLabelValues(strconv.FormatBool(success)).Inc()
}

// SubscriberAdded increments the active subscriber gauge.
func SubscriberAdded() { subscribers.Inc() }

// SubscriberRemoved decrements the active subscriber gauge.
func SubscriberRemoved() { subscribers.Dec() }

// SubscriberDropped counts a subscriber removed for falling behind.
func SubscriberDropped() { subscribersDropped.Inc() }

// RecordHTTPRequest counts a request and observes its duration. path should
// be the route pattern, not the raw URL.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
