// Package assembler drives one preprocessing split end to end: load the
// corpus, encode every document and QA pair, and serialize the row table.
package assembler

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/clinlp/bertprep/internal/config"
	"github.com/clinlp/bertprep/internal/dataset"
	"github.com/clinlp/bertprep/internal/encoder"
)

// tracer is a no-op unless a trace provider is installed (the -otel flag).
var tracer trace.Tracer = otel.Tracer("bertprep/assembler")

// Row is one output record: one per (document, qa, answer) combination. The
// k rows of a k-answer QA pair share the same Body and SegmentIDs.
type Row struct {
	Source     string   `json:"source" cbor:"source"`
	Body       string   `json:"body" cbor:"body"`
	SegmentIDs []int    `json:"segment_ids" cbor:"segment_ids"`
	Query      string   `json:"query" cbor:"query"`
	Answers    []string `json:"answers" cbor:"answers"`
	IndexIDs   []int    `json:"index_ids" cbor:"index_ids"`
}

// Summary reports what one split produced.
type Summary struct {
	Split      string
	Documents  int
	Skipped    int
	Rows       int
	SampleRows int
	Malformed  int
}

// Assembler owns the row table for a split until it is serialized.
type Assembler struct {
	cfg *config.Config
	enc *encoder.Encoder
	log zerolog.Logger
}

func New(cfg *config.Config, enc *encoder.Encoder, log zerolog.Logger) *Assembler {
	return &Assembler{cfg: cfg, enc: enc, log: log}
}

// ProcessSplit runs the whole pipeline for one split: read JSON, encode rows,
// write the capped sample and the full table. Document-level failures
// (missing fields) are logged and skipped; everything else aborts the split.
func (a *Assembler) ProcessSplit(ctx context.Context, split string) (Summary, error) {
	ctx, span := tracer.Start(ctx, "split")
	span.SetAttributes(attribute.String("split", split))
	defer span.End()

	log := a.log.With().Str("split", split).Logger()
	start := time.Now()

	corpus, err := a.loadCorpus(ctx, split)
	if err != nil {
		return Summary{Split: split}, err
	}
	log.Info().Int("documents", len(corpus.Data)).Msg("Corpus loaded")

	rows, skipped, malformed := a.encodeCorpus(ctx, log, corpus)

	sample := a.sampleRows(rows)
	log.Info().Int("rows", len(sample)).Msg("Sample subset selected")

	if err := a.writeOutputs(ctx, split, rows, sample); err != nil {
		return Summary{Split: split}, err
	}

	mean, stddev, longest := bodyLengthStats(rows)
	elapsed := time.Since(start)
	log.Info().
		Int("documents", len(corpus.Data)).
		Int("skipped", skipped).
		Int("rows", len(rows)).
		Int("sample_rows", len(sample)).
		Float64("body_tokens_mean", mean).
		Float64("body_tokens_stddev", stddev).
		Int("body_tokens_max", longest).
		Dur("elapsed", elapsed).
		Float64("rows_per_sec", float64(len(rows))/elapsed.Seconds()).
		Msg("Split complete")

	return Summary{
		Split:      split,
		Documents:  len(corpus.Data),
		Skipped:    skipped,
		Rows:       len(rows),
		SampleRows: len(sample),
		Malformed:  malformed,
	}, nil
}

func (a *Assembler) loadCorpus(ctx context.Context, split string) (*dataset.Corpus, error) {
	_, span := tracer.Start(ctx, "load")
	defer span.End()

	corpus, err := dataset.Load(a.cfg.InputPath(split))
	if err != nil {
		return nil, fmt.Errorf("split %s: %w", split, err)
	}
	return corpus, nil
}

// encodeCorpus fans the documents out over a capped worker pool. Results land
// in an indexed slice so row order stays deterministic regardless of worker
// interleaving.
func (a *Assembler) encodeCorpus(ctx context.Context, log zerolog.Logger, corpus *dataset.Corpus) (rows []Row, skipped, malformed int) {
	_, span := tracer.Start(ctx, "encode")
	defer span.End()

	docs := corpus.Data
	perDoc := make([][]Row, len(docs))
	counts := make([]docCounts, len(docs))

	workers := a.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(docs) && len(docs) > 0 {
		workers = len(docs)
	}

	var wg sync.WaitGroup
	chunk := (len(docs) + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * chunk
		if lo >= len(docs) {
			break
		}
		hi := lo + chunk
		if hi > len(docs) {
			hi = len(docs)
		}

		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				perDoc[i], counts[i] = a.encodeDocument(log, &docs[i])
			}
		}(lo, hi)
	}
	wg.Wait()

	for i := range perDoc {
		rows = append(rows, perDoc[i]...)
		skipped += counts[i].skipped
		malformed += counts[i].malformed
	}
	return rows, skipped, malformed
}

type docCounts struct {
	skipped   int
	malformed int
}

// encodeDocument turns one record into its rows. A record missing a document
// field is logged and dropped; the rest of the batch continues.
func (a *Assembler) encodeDocument(log zerolog.Logger, rec *dataset.Record) ([]Row, docCounts) {
	title, err := rec.Title()
	if err != nil {
		log.Warn().Err(err).Str("source", rec.Source).Msg("Skipping document")
		missingFields.Inc()
		return nil, docCounts{skipped: 1}
	}
	ctxText, err := rec.Context()
	if err != nil {
		log.Warn().Err(err).Str("source", rec.Source).Msg("Skipping document")
		missingFields.Inc()
		return nil, docCounts{skipped: 1}
	}

	body, segmentIDs := a.enc.Context(title, ctxText)

	var counts docCounts
	var rows []Row
	for _, qa := range rec.Document.QAs {
		answers := make([]string, 0, len(qa.Answers))
		for _, ans := range qa.Answers {
			answers = append(answers, ans.Text)
		}
		for _, ans := range answers {
			query, indexIDs := a.enc.QA(qa.Query, ans)
			if !hasMask(indexIDs) {
				log.Warn().Str("source", rec.Source).Str("query", qa.Query).Msg("Query has no placeholder, emitting all-zero mask")
				malformedQueries.Inc()
				counts.malformed++
			}
			rows = append(rows, Row{
				Source:     rec.Source,
				Body:       body,
				SegmentIDs: segmentIDs,
				Query:      query,
				Answers:    answers,
				IndexIDs:   indexIDs,
			})
		}
	}

	documentsEncoded.Inc()
	rowsEmitted.Add(float64(len(rows)))
	return rows, counts
}

func hasMask(indexIDs []int) bool {
	for _, v := range indexIDs {
		if v == 1 {
			return true
		}
	}
	return false
}

// sampleRows keeps rows whose source is among the first SampleSources
// distinct sources in encounter order.
func (a *Assembler) sampleRows(rows []Row) []Row {
	keep := make(map[string]bool, a.cfg.SampleSources)
	for _, r := range rows {
		if keep[r.Source] {
			continue
		}
		if len(keep) == a.cfg.SampleSources {
			break
		}
		keep[r.Source] = true
	}

	var sample []Row
	for _, r := range rows {
		if keep[r.Source] {
			sample = append(sample, r)
		}
	}
	return sample
}

func (a *Assembler) writeOutputs(ctx context.Context, split string, rows, sample []Row) error {
	_, span := tracer.Start(ctx, "write")
	defer span.End()

	outPath := func(name string) string { return a.cfg.OutDir + "/" + name }

	if err := WriteTSV(outPath("sample_"+split+".tsv"), sample); err != nil {
		return fmt.Errorf("split %s: %w", split, err)
	}
	if err := WriteTSV(outPath(split+".tsv"), rows); err != nil {
		return fmt.Errorf("split %s: %w", split, err)
	}
	if a.cfg.WriteArrow {
		if err := WriteArrow(outPath(split+".arrow"), rows); err != nil {
			return fmt.Errorf("split %s: %w", split, err)
		}
	}
	if a.cfg.WriteCBOR {
		if err := WriteCBOR(outPath(split+".cbor"), rows); err != nil {
			return fmt.Errorf("split %s: %w", split, err)
		}
	}
	return nil
}
