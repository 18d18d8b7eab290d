package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal - общее количество запросов
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Общее количество HTTP запросов",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration - длительность запросов
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Длительность HTTP запросов в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// RequestsInFlight - количество запросов в обработке
	RequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Текущее количество запросов в обработке",
		},
	)

	// BookingsCreatedTotal - количество созданных бронирований
	BookingsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookings_created_total",
			Help: "Общее количество созданных бронирований",
		},
	)

	// BookingTransitionsTotal - переходы статусов бронирований
	BookingTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_transitions_total",
			Help: "Количество переходов статусов бронирований",
		},
		[]string{"to_status"},
	)

	// SeatConflictsTotal - отказы из-за отсутствия свободных мест
	SeatConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seat_conflicts_total",
			Help: "Количество отказов бронирования из-за исчерпания мест",
		},
	)

	// RideSearchesTotal - поисковые запросы по поездкам
	RideSearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ride_searches_total",
			Help: "Количество поисковых запросов по поездкам",
		},
		[]string{"fallback"},
	)
)

// PrometheusMiddleware собирает метрики для HTTP запросов
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		RequestsInFlight.Inc()
		defer RequestsInFlight.Dec()

		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()

		status := strconv.Itoa(c.Writer.Status())
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}

		RequestsTotal.WithLabelValues(c.Request.Method, endpoint, status).Inc()
		RequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(duration)
	}
}

// TrackBookingCreated учитывает созданное бронирование
func TrackBookingCreated() {
	BookingsCreatedTotal.Inc()
}

// TrackBookingTransition учитывает переход статуса бронирования
func TrackBookingTransition(toStatus string) {
	BookingTransitionsTotal.WithLabelValues(toStatus).Inc()
}

// TrackSeatConflict учитывает отказ из-за отсутствия мест
func TrackSeatConflict() {
	SeatConflictsTotal.Inc()
}

// TrackRideSearch учитывает поисковый запрос
func TrackRideSearch(fallback bool) {
	RideSearchesTotal.WithLabelValues(strconv.FormatBool(fallback)).Inc()
}
