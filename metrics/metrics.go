package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Metrics to track
var (
	TeamQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scrim_team_queue_depth",
			Help: "Current number of entries in the full-party queue per match type",
		},
		[]string{"match_type"},
	)
	MateQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scrim_mate_queue_depth",
			Help: "Current number of entries in the teammate assembly queue",
		},
	)
	MatchesFound = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scrim_matches_found_total",
			Help: "Total number of team matches paired",
		},
	)
	TeamsAssembled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scrim_teams_assembled_total",
			Help: "Total number of full teams merged from partial parties",
		},
	)
	RostersConfirmed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scrim_rosters_confirmed_total",
			Help: "Total number of assembled teams confirmed into unified parties",
		},
	)
	RostersDisbanded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scrim_rosters_disbanded_total",
			Help: "Total number of assembled teams emptied out by secession",
		},
	)
	QueueTimeouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrim_queue_timeouts_total",
			Help: "Total number of entries evicted for exceeding the queue timeout",
		},
		[]string{"queue"}, // Labels: queue (team, mate)
	)
	ReconcileRepairs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrim_reconcile_repairs_total",
			Help: "Total number of repairs applied by the queue state reconciler",
		},
		[]string{"kind"}, // Labels: kind (flag_repaired, entry_evicted, index_pruned)
	)
)

var registerOnce sync.Once

// InitMetrics registers the engine's Prometheus metrics. Safe to call
// more than once.
func InitMetrics() {
	registerOnce.Do(register)
}

func register() {
	prometheus.MustRegister(
		TeamQueueDepth,
		MateQueueDepth,
		MatchesFound,
		TeamsAssembled,
		RostersConfirmed,
		RostersDisbanded,
		QueueTimeouts,
		ReconcileRepairs,
	)
}

// ServeMetrics exposes the metrics endpoint on its own listener
func ServeMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error().Err(err).Str("addr", addr).Msg("metrics listener stopped")
		}
	}()
}
