package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comms_http_requests_total",
			Help: "Total number of HTTP requests processed by the comms service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "comms_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "comms_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
		[]string{"kind"},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comms_ws_events_total",
			Help: "Total number of websocket events.",
		},
		[]string{"kind", "event"},
	)
	broadcastDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comms_broadcast_dropped_total",
			Help: "Total number of live deliveries dropped because a subscriber was unreachable.",
		},
		[]string{"kind"},
	)
	messagesAppendedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comms_messages_appended_total",
			Help: "Total number of messages durably appended.",
		},
		[]string{"type"},
	)
	callEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comms_call_events_total",
			Help: "Total number of call lifecycle and signaling events.",
		},
		[]string{"event"},
	)
	notificationsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "comms_notifications_created_total",
			Help: "Total number of notification records created.",
		},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "comms_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		broadcastDroppedTotal,
		messagesAppendedTotal,
		callEventsTotal,
		notificationsCreatedTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Inc()
}

func DecWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Dec()
}

func IncWSEvent(kind, event string) {
	wsEventsTotal.WithLabelValues(kind, event).Inc()
}

func IncBroadcastDropped(kind string) {
	broadcastDroppedTotal.WithLabelValues(kind).Inc()
}

func IncMessageAppended(msgType string) {
	messagesAppendedTotal.WithLabelValues(msgType).Inc()
}

func IncCallEvent(event string) {
	callEventsTotal.WithLabelValues(event).Inc()
}

func IncNotificationCreated() {
	notificationsCreatedTotal.Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
