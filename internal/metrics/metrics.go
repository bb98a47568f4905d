package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "duel_platform"

// Collector exposes matchmaking and duel metrics. A nil *Collector is a no-op.
type Collector struct {
	waitingUsers     prometheus.Gauge
	pairsMatched     *prometheus.CounterVec
	duelsStarted     prometheus.Counter
	duelsFinished    *prometheus.CounterVec
	activeDuels      prometheus.Gauge
	startFailures    *prometheus.CounterVec
	finishScanErrors prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		waitingUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "waiting_users",
			Help:      "Users currently in the waiting pool.",
		}),
		pairsMatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pairs_matched_total",
			Help:      "Pairs selected by the matcher.",
		}, []string{"kind"}),
		duelsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duels_started_total",
			Help:      "Duels moved to in_progress.",
		}),
		duelsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duels_finished_total",
			Help:      "Finished duels by result.",
		}, []string{"result"}),
		activeDuels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "duels_in_progress",
			Help:      "In-progress duels seen by the last finish scan.",
		}),
		startFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duel_start_failures_total",
			Help:      "Pairs that could not be turned into duels.",
		}, []string{"reason"}),
		finishScanErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "finish_scan_errors_total",
			Help:      "Per-duel failures during finish scans.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			c.waitingUsers,
			c.pairsMatched,
			c.duelsStarted,
			c.duelsFinished,
			c.activeDuels,
			c.startFailures,
			c.finishScanErrors,
		)
	}
	return c
}

func (c *Collector) SetWaitingUsers(n int) {
	if c == nil {
		return
	}
	c.waitingUsers.Set(float64(n))
}

func (c *Collector) PairMatched(kind string) {
	if c == nil {
		return
	}
	c.pairsMatched.WithLabelValues(kind).Inc()
}

func (c *Collector) DuelStarted() {
	if c == nil {
		return
	}
	c.duelsStarted.Inc()
}

func (c *Collector) DuelFinished(result string) {
	if c == nil {
		return
	}
	c.duelsFinished.WithLabelValues(result).Inc()
}

func (c *Collector) SetActiveDuels(n int) {
	if c == nil {
		return
	}
	c.activeDuels.Set(float64(n))
}

func (c *Collector) StartFailed(reason string) {
	if c == nil {
		return
	}
	c.startFailures.WithLabelValues(reason).Inc()
}

func (c *Collector) FinishScanError() {
	if c == nil {
		return
	}
	c.finishScanErrors.Inc()
}
