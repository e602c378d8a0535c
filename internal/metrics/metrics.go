// Package metrics provides Prometheus metrics for decoding.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Decoder metrics
	DecodesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comtrade_decodes_total",
			Help: "Total number of decode operations",
		},
		[]string{"file", "status"},
	)

	DecodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "comtrade_decode_duration_seconds",
			Help:    "Time taken to decode a file",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
		[]string{"file"},
	)

	DecodeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comtrade_decode_errors_total",
			Help: "Total number of decode errors by kind",
		},
		[]string{"file", "kind"},
	)

	RecordsDecoded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comtrade_records_decoded_total",
			Help: "Total number of data records decoded",
		},
		[]string{"encoding"},
	)

	BytesDecoded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comtrade_bytes_decoded_total",
			Help: "Total bytes of input decoded",
		},
		[]string{"file"},
	)

	// Session metrics
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "comtrade_sessions_active",
			Help: "Number of decode sessions held in memory",
		},
	)

	// Upload metrics
	FilesUploaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comtrade_files_uploaded_total",
			Help: "Total number of uploaded files by kind",
		},
		[]string{"kind"},
	)
)

// KindNamer maps an error to a short kind label.
type KindNamer func(error) string

// ObserveDecode records the outcome of decoding one file.
func ObserveDecode(file string, size int, start time.Time, err error, kind KindNamer) {
	DecodeDuration.WithLabelValues(file).Observe(time.Since(start).Seconds())
	BytesDecoded.WithLabelValues(file).Add(float64(size))
	if err != nil {
		DecodesTotal.WithLabelValues(file, "error").Inc()
		label := "unknown"
		if kind != nil {
			label = kind(err)
		}
		DecodeErrors.WithLabelValues(file, label).Inc()
		return
	}
	DecodesTotal.WithLabelValues(file, "success").Inc()
}
