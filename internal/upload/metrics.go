package upload

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"bugboard/internal/domain"
)

var (
	filesStaged = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bugboard_upload_files_staged_total",
		Help: "Files written to storage by the upload pipeline",
	})
	filesRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bugboard_upload_files_rejected_total",
		Help: "Upload batches rejected, by reason",
	}, []string{"reason"})
	fileBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bugboard_upload_file_bytes",
		Help:    "Size of staged files",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 8), // 1KiB .. 16MiB
	})
	cleanupFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bugboard_storage_cleanup_failures_total",
		Help: "Physical file deletions that failed and were left behind",
	})
)

func init() { prometheus.MustRegister(filesStaged, filesRejected, fileBytes, cleanupFailures) }

func reasonOf(err error) string {
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Code
	}
	return "internal"
}
