package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission outcomes.
const (
	OutcomeCreated          = "created"
	OutcomeMissingField     = "missing_field"
	OutcomeOversizedFile    = "oversized_file"
	OutcomeMissingDocuments = "missing_documents"
	OutcomeFieldTooLong     = "field_too_long"
	OutcomeRequestTooLarge  = "request_too_large"
	OutcomeFailed           = "failed"
)

var (
	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "registration_submissions_total",
		Help: "Registration submissions by outcome",
	}, []string{"outcome"})

	documentsStoredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "registration_documents_stored_total",
		Help: "Registration documents persisted by document type",
	}, []string{"doc_type"})

	createDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "registration_create_duration_seconds",
		Help:    "Duration of application creation including document uploads",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	eventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "registration_events_published_total",
		Help: "Submission events handed to the queue backend",
	}, []string{"result"})

	workerJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "registration_worker_jobs_total",
		Help: "Submission events processed by the worker",
	}, []string{"result"})
)

// IncSubmission counts a submission with the given outcome.
func IncSubmission(outcome string) {
	submissionsTotal.WithLabelValues(outcome).Inc()
}

// AddDocumentsStored counts persisted documents of one type.
func AddDocumentsStored(docType string, n int) {
	if n <= 0 {
		return
	}
	documentsStoredTotal.WithLabelValues(docType).Add(float64(n))
}

// ObserveCreate records the duration of an application creation.
// Call with time.Now() at the start of the operation.
func ObserveCreate(start time.Time) {
	createDuration.Observe(time.Since(start).Seconds())
}

// IncEventPublished counts an event publish attempt; result is "ok" or "error".
func IncEventPublished(result string) {
	eventsPublishedTotal.WithLabelValues(result).Inc()
}

// IncWorkerJob counts a worker job; result is "completed", "failed" or "discarded".
func IncWorkerJob(result string) {
	workerJobsTotal.WithLabelValues(result).Inc()
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
