// Command bertprep converts CLiCR-style clinical QA JSON into BERT-format
// tabular training data: cleaned [CLS]/[SEP] bodies with segment ids, and
// mask-substituted queries with mask position indexes.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"runtime/pprof"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	"github.com/clinlp/bertprep/internal/assembler"
	"github.com/clinlp/bertprep/internal/config"
	"github.com/clinlp/bertprep/internal/encoder"
	"github.com/clinlp/bertprep/internal/tokenizer"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg := config.Load()

	var (
		vocabPath   = flag.String("vocab", cfg.VocabPath, "Path to BERT vocab.txt")
		dataDir     = flag.String("data", cfg.DataDir, "Directory holding <split>1.0.json inputs")
		outDir      = flag.String("out", cfg.OutDir, "Directory for output files")
		splits      = flag.String("splits", "", "Comma-separated splits to process (default train,test,dev)")
		sampleCap   = flag.Int("sample", cfg.SampleSources, "Distinct-source cap for the sample TSV")
		workers     = flag.Int("workers", cfg.Workers, "Encode workers per split (0 = NumCPU)")
		writeArrow  = flag.Bool("arrow", false, "Also write <split>.arrow (Arrow IPC)")
		writeCBOR   = flag.Bool("cbor", false, "Also write <split>.cbor")
		metricsAddr = flag.String("metrics", cfg.MetricsAddr, "Prometheus listen address (e.g. :9100), empty to disable")
		enableOTel  = flag.Bool("otel", false, "Enable OpenTelemetry tracing (stdout)")
		cpuProfile  = flag.String("cpuprofile", "", "Write cpu profile to file")
	)
	flag.Parse()

	cfg.VocabPath = *vocabPath
	cfg.DataDir = *dataDir
	cfg.OutDir = *outDir
	cfg.SampleSources = *sampleCap
	cfg.Workers = *workers
	cfg.WriteArrow = *writeArrow
	cfg.WriteCBOR = *writeCBOR
	cfg.MetricsAddr = *metricsAddr
	cfg.EnableOTel = *enableOTel
	if *splits != "" {
		cfg.Splits = config.SplitList(*splits)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	if cfg.EnableOTel {
		shutdown, err := initTracer()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize tracer")
		}
		defer func() { _ = shutdown(context.Background()) }()
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create CPU profile file")
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal().Err(err).Msg("Could not start CPU profile")
		}
		defer pprof.StopCPUProfile()
	}

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			log.Info().Str("addr", cfg.MetricsAddr).Msg("Serving Prometheus metrics")
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Warn().Err(err).Msg("Metrics listener stopped")
			}
		}()
	}

	tok, err := tokenizer.New(cfg.VocabPath)
	if err != nil {
		log.Fatal().Err(err).Str("vocab", cfg.VocabPath).Msg("Failed to load tokenizer")
	}
	log.Info().Int("vocab_size", tok.VocabSize()).Msg("Tokenizer ready")

	asm := assembler.New(cfg, encoder.New(tok), log.Logger)

	// Splits share nothing, so they run concurrently.
	start := time.Now()
	results := make([]error, len(cfg.Splits))
	var wg sync.WaitGroup
	for i, split := range cfg.Splits {
		wg.Add(1)
		go func(i int, split string) {
			defer wg.Done()
			_, results[i] = asm.ProcessSplit(context.Background(), split)
		}(i, split)
	}
	wg.Wait()

	failed := 0
	for i, err := range results {
		if err != nil {
			log.Error().Err(err).Str("split", cfg.Splits[i]).Msg("Split failed")
			failed++
		}
	}
	log.Info().
		Int("splits", len(cfg.Splits)).
		Int("failed", failed).
		Dur("total_time", time.Since(start)).
		Msg("Preprocessing finished")
	if failed > 0 {
		os.Exit(1)
	}
}

func initTracer() (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String("bertprep"),
		)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp.Shutdown, nil
}
