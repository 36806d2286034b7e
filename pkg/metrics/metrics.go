// Package metrics registers per-epoch run diagnostics (epoch index,
// stepsize, lmax, l2, throughput, merge time) as prometheus gauges and a
// histogram, using the client_golang registration API to expose them for
// scraping.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry wraps one run's gauges and histogram. The orchestrator sets
// LearningEpoch, Stepsize, LMax and L2Norm once per learning epoch;
// InferenceEpoch, SamplesPerSec, VariablesPerSec and WeightMergeSecs are
// registered and exported, but the orchestrator does not update them.
type Registry struct {
	registry *prometheus.Registry

	LearningEpoch   prometheus.Gauge
	InferenceEpoch  prometheus.Gauge
	Stepsize        prometheus.Gauge
	LMax            prometheus.Gauge
	L2Norm          prometheus.Gauge
	SamplesPerSec   prometheus.Gauge
	VariablesPerSec prometheus.Gauge
	WeightMergeSecs prometheus.Histogram
}

// New builds a Registry with a fresh prometheus.Registry (not the global
// default, so multiple runs in one process never collide on metric names).
func New(runID string) *Registry {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"run_id": runID}

	newGauge := func(name, help string) prometheus.Gauge {
		return promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace:   "gibbsfg",
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
	}

	return &Registry{
		registry:        reg,
		LearningEpoch:   newGauge("learning_epoch", "current learning epoch index"),
		InferenceEpoch:  newGauge("inference_epoch", "current inference epoch index"),
		Stepsize:        newGauge("stepsize", "current SGD stepsize (eta)"),
		LMax:            newGauge("weight_delta_lmax", "max|delta weight|/stepsize for the last merge"),
		L2Norm:          newGauge("weight_delta_l2", "||delta weight||_2/stepsize for the last merge"),
		SamplesPerSec:   newGauge("samples_per_second", "inference samples drawn per second, last epoch"),
		VariablesPerSec: newGauge("variables_per_second", "variables swept per second, last epoch"),
		WeightMergeSecs: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace:   "gibbsfg",
			Name:        "weight_merge_seconds",
			Help:        "time spent merging+broadcasting replica weights per epoch",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),
	}
}

// Serve starts an HTTP server exposing /metrics and blocks until ctx is
// canceled, then shuts the server down.
func (r *Registry) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
