// Package metrics exposes pipeline counters over Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "curbcam_frames_processed_total",
		Help: "Total number of frames pulled through the pipeline",
	})

	DetectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curbcam_detections_total",
		Help: "Total number of detections, by class",
	}, []string{"class"})

	FrameDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "curbcam_frame_duration_seconds",
		Help:    "Per-frame detect/associate/draw/write duration",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})

	ActiveTracks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "curbcam_active_tracks",
		Help: "Tracks in the current association comparison set",
	})

	FramesWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "curbcam_frames_written_total",
		Help: "Total number of annotated frames muxed to the output artifact",
	})
)
