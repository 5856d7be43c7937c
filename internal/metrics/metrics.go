package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the service's Prometheus metrics. It satisfies the
// metrics interfaces of the realtime hub and the request logger.
type Collector struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	framesSent      *prometheus.CounterVec
	framesDropped   *prometheus.CounterVec
	realtimeClients prometheus.Gauge
	imagesStored    prometheus.Counter
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tandem_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tandem_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		framesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tandem_realtime_frames_sent_total",
			Help: "Change-feed frames queued for delivery, by table.",
		}, []string{"table"}),
		framesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tandem_realtime_frames_dropped_total",
			Help: "Change-feed frames dropped because a client buffer was full, by table.",
		}, []string{"table"}),
		realtimeClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tandem_realtime_clients",
			Help: "Connected change-feed subscribers.",
		}),
		imagesStored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tandem_images_stored_total",
			Help: "Item images written to object storage.",
		}),
	}

	reg.MustRegister(
		c.requests,
		c.requestDuration,
		c.framesSent,
		c.framesDropped,
		c.realtimeClients,
		c.imagesStored,
	)

	return c
}

func (c *Collector) ObserveRequest(method, route string, status int, d time.Duration) {
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (c *Collector) FrameSent(table string) {
	c.framesSent.WithLabelValues(table).Inc()
}

func (c *Collector) FrameDropped(table string) {
	c.framesDropped.WithLabelValues(table).Inc()
}

func (c *Collector) ClientsConnected(n int) {
	c.realtimeClients.Set(float64(n))
}

func (c *Collector) ImageStored() {
	c.imagesStored.Inc()
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
