package admin

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	onDiskBytesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hubevents_store_on_disk_bytes",
		Help: "Total on-disk size of the Pebble store directory.",
	})
	walBytesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hubevents_store_wal_bytes",
		Help: "Approximate WAL size reported by Pebble.",
	})
	l0FilesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hubevents_store_l0_files",
		Help: "Number of level-0 SSTables.",
	})
	commitsCounter = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hubevents_commits_total",
		Help: "Total commit batches applied through the KV handle.",
	})
	ingestQueueLenGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hubevents_ingest_queue_length",
		Help: "Current depth of the submit-path ingest queue.",
	})
	ingestQueueDroppedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hubevents_ingest_queue_dropped_total",
		Help: "Total ops dropped from the ingest queue because it was full.",
	})
	ingestEnqueuedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hubevents_ingest_enqueued_total",
		Help: "Total attempted enqueues onto the ingest queue.",
	})
	ingestEnqueueFailedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hubevents_ingest_enqueue_failed_total",
		Help: "Total enqueue attempts that failed (queue full or closed).",
	})
)

const metricsPollInterval = 5 * time.Second

// runMetricsPoller periodically refreshes gauge values from the store and
// ingest queue until ctx is canceled.
func (s *Server) runMetricsPoller(ctx context.Context) {
	ticker := time.NewTicker(metricsPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := s.svc.DB.Snapshot()
			onDiskBytesGauge.Set(float64(snap.OnDiskBytes))
			walBytesGauge.Set(float64(snap.WALBytes))
			l0FilesGauge.Set(float64(snap.L0Files))
			commitsCounter.Set(float64(s.svc.DB.Commits()))
			ingestQueueLenGauge.Set(float64(s.ingestQueue.Len()))
			ingestQueueDroppedGauge.Set(float64(s.ingestQueue.Dropped()))
			ingestEnqueuedGauge.Set(float64(s.ingestQueue.EnqueuedTotal()))
			ingestEnqueueFailedGauge.Set(float64(s.ingestQueue.FailedTotal()))
		}
	}
}
