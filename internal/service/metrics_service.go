package service

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer
// and the face pipeline.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	framesTotal        prometheus.Counter
	facesDetected      prometheus.Counter
	recognitions       *prometheus.CounterVec
	livenessRejections prometheus.Counter
	trainingDuration   prometheus.Histogram
	trainingsTotal     prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	framesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recognition_frames_total",
		Help: "Total number of frames submitted for recognition",
	})

	facesDetected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recognition_faces_detected_total",
		Help: "Total number of faces detected across all frames",
	})

	recognitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recognition_outcomes_total",
		Help: "Per-face recognition outcomes",
	}, []string{"outcome"})

	livenessRejections := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "liveness_rejections_total",
		Help: "Recognized faces rejected by the liveness heuristic",
	})

	trainingDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "recognizer_training_seconds",
		Help:    "Duration of full recognizer retraining",
		Buckets: prometheus.DefBuckets,
	})

	trainingsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recognizer_trainings_total",
		Help: "Total number of recognizer retrainings",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, framesTotal, facesDetected,
		recognitions, livenessRejections, trainingDuration, trainingsTotal, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		framesTotal:        framesTotal,
		facesDetected:      facesDetected,
		recognitions:       recognitions,
		livenessRejections: livenessRejections,
		trainingDuration:   trainingDuration,
		trainingsTotal:     trainingsTotal,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := []string{method, path, http.StatusText(status)}
	m.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(labels...).Inc()
}

// ObserveFrame records one recognition frame and its face count.
func (m *MetricsService) ObserveFrame(faces int) {
	if m == nil {
		return
	}
	m.framesTotal.Inc()
	m.facesDetected.Add(float64(faces))
}

// ObserveRecognition records one per-face outcome label.
func (m *MetricsService) ObserveRecognition(outcome string) {
	if m == nil {
		return
	}
	m.recognitions.WithLabelValues(outcome).Inc()
}

// ObserveLivenessRejection counts a recognized-but-not-live face.
func (m *MetricsService) ObserveLivenessRejection() {
	if m == nil {
		return
	}
	m.livenessRejections.Inc()
}

// ObserveTraining records one full retrain.
func (m *MetricsService) ObserveTraining(duration time.Duration) {
	if m == nil {
		return
	}
	m.trainingsTotal.Inc()
	m.trainingDuration.Observe(duration.Seconds())
}
