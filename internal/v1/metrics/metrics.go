package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the lobby coordination server.
//
// Naming convention: namespace_subsystem_name
// - namespace: lobby (application-level grouping)
// - subsystem: websocket, room, profilestore, matchstore, circuit_breaker, rate_limit (feature-level grouping)
// - name: specific metric (connections_active, events_total, etc.)
//
// Metric Types:
// - Gauge: Current state (connections, rooms, players)
// - Counter: Cumulative events (messages processed, errors)
// - Histogram: Latency distributions (processing time)

var (
	// ActiveWebSocketConnections tracks the current number of active WebSocket connections (Gauge - current state)
	ActiveWebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lobby",
		Subsystem: "websocket",
		Name:      "connections_active",
		Help:      "Current number of active WebSocket connections",
	})

	// ActiveRooms tracks the current number of active rooms (Gauge - current state)
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lobby",
		Subsystem: "room",
		Name:      "rooms_active",
		Help:      "Current number of active rooms",
	})

	// RoomPlayers tracks the number of players in each room (GaugeVec with room_id label - current state per room)
	RoomPlayers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "lobby",
		Subsystem: "room",
		Name:      "players_count",
		Help:      "Number of players in each room",
	}, []string{"room_id"})

	// WebsocketEvents tracks the total number of WebSocket events processed (CounterVec - cumulative)
	WebsocketEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lobby",
		Subsystem: "websocket",
		Name:      "events_total",
		Help:      "Total WebSocket events processed",
	}, []string{"event_type", "status"})

	// MessageProcessingDuration tracks the time spent processing WebSocket messages (HistogramVec - latency distribution)
	MessageProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lobby",
		Subsystem: "websocket",
		Name:      "message_processing_seconds",
		Help:      "Time spent processing WebSocket messages",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"event_type"})

	// HostGraceExpirations tracks the total number of rooms ended because a
	// disconnected host never reconnected within its grace window (CounterVec - cumulative)
	HostGraceExpirations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lobby",
		Subsystem: "room",
		Name:      "host_grace_expirations_total",
		Help:      "Total rooms ended because the host did not reconnect within the grace period",
	}, []string{"reason"})

	// JanitorSweeps tracks the total number of Janitor sweep passes performed, by sweep kind (CounterVec - cumulative)
	JanitorSweeps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lobby",
		Subsystem: "janitor",
		Name:      "sweeps_total",
		Help:      "Total Janitor sweep passes performed",
	}, []string{"sweep"})

	// JanitorRoomsRemoved tracks the total number of rooms removed by the Janitor, by sweep kind (CounterVec - cumulative)
	JanitorRoomsRemoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lobby",
		Subsystem: "janitor",
		Name:      "rooms_removed_total",
		Help:      "Total rooms removed by the Janitor",
	}, []string{"sweep"})

	// CircuitBreakerState tracks the current state of the circuit breaker (GaugeVec)
	// 0: Closed (Healthy), 1: Open (Failure), 2: Half-Open (Recovering)
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "lobby",
		Subsystem: "circuit_breaker",
		Name:      "state",
		Help:      "Current state of the circuit breaker (0: Closed, 1: Open, 2: Half-Open)",
	}, []string{"service"})

	// CircuitBreakerFailures tracks the total number of requests rejected by the circuit breaker
	CircuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lobby",
		Subsystem: "circuit_breaker",
		Name:      "failures_total",
		Help:      "Total requests rejected by the circuit breaker",
	}, []string{"service"})

	// RateLimitExceeded tracks the total number of requests that exceeded the rate limit
	RateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lobby",
		Subsystem: "rate_limit",
		Name:      "exceeded_total",
		Help:      "Total number of requests that exceeded the rate limit",
	}, []string{"endpoint", "reason"})

	// RateLimitRequests tracks the total number of requests checked against the rate limiter
	RateLimitRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lobby",
		Subsystem: "rate_limit",
		Name:      "requests_total",
		Help:      "Total number of requests checked against the rate limiter",
	}, []string{"endpoint"})

	// ProfileStoreOperationsTotal tracks the total number of ProfileStore HTTP calls (CounterVec)
	ProfileStoreOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lobby",
		Subsystem: "profilestore",
		Name:      "operations_total",
		Help:      "Total number of ProfileStore operations",
	}, []string{"operation", "status"})

	// ProfileStoreOperationDuration tracks the duration of ProfileStore HTTP calls (HistogramVec)
	ProfileStoreOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lobby",
		Subsystem: "profilestore",
		Name:      "operation_duration_seconds",
		Help:      "Duration of ProfileStore operations",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	// MatchStoreOperationsTotal tracks the total number of MatchStore HTTP calls (CounterVec)
	MatchStoreOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lobby",
		Subsystem: "matchstore",
		Name:      "operations_total",
		Help:      "Total number of MatchStore operations",
	}, []string{"operation", "status"})

	// MatchStoreOperationDuration tracks the duration of MatchStore HTTP calls (HistogramVec)
	MatchStoreOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lobby",
		Subsystem: "matchstore",
		Name:      "operation_duration_seconds",
		Help:      "Duration of MatchStore operations",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	// BusOperationsTotal tracks the total number of distributed bus operations (CounterVec)
	BusOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lobby",
		Subsystem: "bus",
		Name:      "operations_total",
		Help:      "Total number of distributed bus operations",
	}, []string{"operation", "status"})

	// BusOperationDuration tracks the duration of distributed bus operations (HistogramVec)
	BusOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lobby",
		Subsystem: "bus",
		Name:      "operation_duration_seconds",
		Help:      "Duration of distributed bus operations",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
)

func IncConnection() {
	ActiveWebSocketConnections.Inc()
}

func DecConnection() {
	ActiveWebSocketConnections.Dec()
}
