package stats

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-bridge/pkg/types"
)

// QueueDepthFunc 返回当前队列深度
type QueueDepthFunc func() int

// Collector 将统计快照导出为 Prometheus 指标
//
// 每次抓取时读取一次快照，不在投递路径上维护额外的计数器。
type Collector struct {
	stats   *Stats
	monitor *Monitor
	depth   QueueDepthFunc

	sent       *prometheus.Desc
	processed  *prometheus.Desc
	failed     *prometheus.Desc
	dropped    *prometheus.Desc
	reasons    *prometheus.Desc
	latency    *prometheus.Desc
	peakDepth  *prometheus.Desc
	queueDepth *prometheus.Desc
	channels   *prometheus.Desc
	degraded   *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector 创建指标收集器（monitor 与 depth 可为 nil）
func NewCollector(namespace string, s *Stats, m *Monitor, depth QueueDepthFunc) *Collector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
	}
	return &Collector{
		stats:   s,
		monitor: m,
		depth:   depth,

		sent:       desc("messages_sent_total", "Envelopes delivered to a plugin or the broadcast channel."),
		processed:  desc("messages_processed_total", "Envelopes that reached a terminal delivery outcome."),
		failed:     desc("messages_failed_total", "Envelopes that failed routing or delivery."),
		dropped:    desc("messages_dropped_total", "Envelopes dropped by rate limiting, filtering, timeout or full queues."),
		reasons:    desc("message_outcomes_total", "Envelope outcomes by reason.", "reason"),
		latency:    desc("delivery_latency_average_seconds", "Running mean of creation-to-delivery latency."),
		peakDepth:  desc("queue_depth_peak", "Highest observed total queue depth."),
		queueDepth: desc("queue_depth", "Current total queue depth."),
		channels:   desc("active_channels", "Registered plugin channels."),
		degraded:   desc("health_degraded", "1 when the last health evaluation was degraded."),
	}
}

// Describe 实现 prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.sent
	ch <- c.processed
	ch <- c.failed
	ch <- c.dropped
	ch <- c.reasons
	ch <- c.latency
	ch <- c.peakDepth
	ch <- c.channels
	if c.depth != nil {
		ch <- c.queueDepth
	}
	if c.monitor != nil {
		ch <- c.degraded
	}
}

// Collect 实现 prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.stats.Snapshot()

	ch <- prometheus.MustNewConstMetric(c.sent, prometheus.CounterValue, float64(snap.Sent))
	ch <- prometheus.MustNewConstMetric(c.processed, prometheus.CounterValue, float64(snap.Processed))
	ch <- prometheus.MustNewConstMetric(c.failed, prometheus.CounterValue, float64(snap.Failed))
	ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(snap.Dropped))

	reasons := make([]string, 0, len(snap.Reasons))
	for r := range snap.Reasons {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		ch <- prometheus.MustNewConstMetric(c.reasons, prometheus.CounterValue,
			float64(snap.Reasons[types.Reason(r)]), r)
	}

	ch <- prometheus.MustNewConstMetric(c.latency, prometheus.GaugeValue, snap.AverageLatency.Seconds())
	ch <- prometheus.MustNewConstMetric(c.peakDepth, prometheus.GaugeValue, float64(snap.PeakQueueDepth))
	ch <- prometheus.MustNewConstMetric(c.channels, prometheus.GaugeValue, float64(snap.ActiveChannels))
	if c.depth != nil {
		ch <- prometheus.MustNewConstMetric(c.queueDepth, prometheus.GaugeValue, float64(c.depth()))
	}
	if c.monitor != nil {
		degraded := 0.0
		if !c.monitor.Health().Healthy() {
			degraded = 1
		}
		ch <- prometheus.MustNewConstMetric(c.degraded, prometheus.GaugeValue, degraded)
	}
}
