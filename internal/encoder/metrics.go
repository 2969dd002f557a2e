package encoder

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	encodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bertprep_encode_duration_seconds",
		Help:    "Time spent encoding one unit of work",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	answerCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bertprep_answer_cache_hits_total",
		Help: "Answer tokenizations served from the memo cache",
	})
)
