// Package metrics — прикладные метрики forum-service (Prometheus).
// gRPC-метрики собирает go-grpc-prometheus, здесь — живые публикации, методы и HTTP.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "forum"

var (
	liveSubscriptions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "live_subscriptions",
		Help:      "Current number of live subscriptions",
	}, []string{"publication"})

	liveReruns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "live_reruns_total",
		Help:      "Total number of publication query reruns",
	}, []string{"publication", "result"})

	liveEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "live_events_total",
		Help:      "Total number of events sent to live subscribers",
	}, []string{"publication", "type"})

	methodCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "method_calls_total",
		Help:      "Total number of named method calls",
	}, []string{"method", "code"})

	methodLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "method_call_duration_seconds",
		Help:      "Duration of named method calls in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests received",
	}, []string{"method", "route", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// SubscriptionStarted / SubscriptionStopped ведут число активных подписок.
func SubscriptionStarted(publication string) { liveSubscriptions.WithLabelValues(publication).Inc() }

func SubscriptionStopped(publication string) { liveSubscriptions.WithLabelValues(publication).Dec() }

// Rerun фиксирует перезапуск запроса публикации.
func Rerun(publication string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	liveReruns.WithLabelValues(publication, result).Inc()
}

// EventSent фиксирует отправленное подписчику событие.
func EventSent(publication, typ string) { liveEvents.WithLabelValues(publication, typ).Inc() }

// MethodCalled фиксирует вызов именованного метода с кодом результата.
func MethodCalled(method, code string, dur time.Duration) {
	methodCalls.WithLabelValues(method, code).Inc()
	methodLatency.WithLabelValues(method).Observe(dur.Seconds())
}

// HTTPRequest фиксирует HTTP-запрос. route — шаблон маршрута, не сырой путь.
func HTTPRequest(method, route string, status int, dur time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpLatency.WithLabelValues(method, route).Observe(dur.Seconds())
}
