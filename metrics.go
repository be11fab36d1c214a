package upscale

import "github.com/prometheus/client_golang/prometheus"

// Collector exposes engine and buffer-pool metrics as a
// prometheus.Collector. Register it with a registry and serve it from
// the application's metrics endpoint:
//
//	prometheus.MustRegister(upscale.NewCollector(u))
type Collector struct {
	u *Upscaler

	activeSessions *prometheus.Desc
	sessionsTotal  *prometheus.Desc
	stagesTotal    *prometheus.Desc
	fallbacksTotal *prometheus.Desc
	poolBytes      *prometheus.Desc
}

// NewCollector creates a collector reading from the given Upscaler.
func NewCollector(u *Upscaler) *Collector {
	return &Collector{
		u: u,
		activeSessions: prometheus.NewDesc(
			"upscale_sessions_active",
			"Number of sessions not yet in a terminal state",
			nil, nil,
		),
		sessionsTotal: prometheus.NewDesc(
			"upscale_sessions_total",
			"Total finished sessions by terminal status",
			[]string{"status"}, nil,
		),
		stagesTotal: prometheus.NewDesc(
			"upscale_stages_total",
			"Total completed scaling stages by execution path",
			[]string{"path"}, nil,
		),
		fallbacksTotal: prometheus.NewDesc(
			"upscale_fallbacks_total",
			"Total accelerated-to-CPU fallback transitions",
			nil, nil,
		),
		poolBytes: prometheus.NewDesc(
			"upscale_pool_bytes",
			"Device buffer pool accounting by state",
			[]string{"state"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.activeSessions
	ch <- c.sessionsTotal
	ch <- c.stagesTotal
	ch <- c.fallbacksTotal
	ch <- c.poolBytes
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	e := c.u.engine

	ch <- prometheus.MustNewConstMetric(c.activeSessions, prometheus.GaugeValue,
		float64(c.u.tracker.active()))

	ch <- prometheus.MustNewConstMetric(c.sessionsTotal, prometheus.CounterValue,
		float64(e.sessionsComplete.Load()), "complete")
	ch <- prometheus.MustNewConstMetric(c.sessionsTotal, prometheus.CounterValue,
		float64(e.sessionsFailed.Load()), "error")
	ch <- prometheus.MustNewConstMetric(c.sessionsTotal, prometheus.CounterValue,
		float64(e.sessionsCancelled.Load()), "cancelled")

	ch <- prometheus.MustNewConstMetric(c.stagesTotal, prometheus.CounterValue,
		float64(e.stagesAccelerated.Load()), "accelerated")
	ch <- prometheus.MustNewConstMetric(c.stagesTotal, prometheus.CounterValue,
		float64(e.stagesCPU.Load()), "cpu")

	ch <- prometheus.MustNewConstMetric(c.fallbacksTotal, prometheus.CounterValue,
		float64(e.fallbacks.Load()))

	usage := c.u.Usage()
	ch <- prometheus.MustNewConstMetric(c.poolBytes, prometheus.GaugeValue,
		float64(usage.UsedBytes), "used")
	ch <- prometheus.MustNewConstMetric(c.poolBytes, prometheus.GaugeValue,
		float64(usage.PooledBytes), "pooled")
	ch <- prometheus.MustNewConstMetric(c.poolBytes, prometheus.GaugeValue,
		float64(usage.CeilingBytes), "ceiling")
}
