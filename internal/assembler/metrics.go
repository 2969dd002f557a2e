package assembler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	documentsEncoded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bertprep_documents_encoded_total",
		Help: "Documents fully encoded into rows",
	})

	rowsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bertprep_rows_emitted_total",
		Help: "Output rows accumulated across all splits",
	})

	missingFields = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bertprep_missing_fields_total",
		Help: "Documents skipped because a required field was absent",
	})

	malformedQueries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bertprep_malformed_queries_total",
		Help: "Queries lacking the placeholder marker (all-zero mask emitted)",
	})
)
