package assembler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinlp/bertprep/internal/config"
	"github.com/clinlp/bertprep/internal/encoder"
	"github.com/clinlp/bertprep/internal/tokenizer"
)

const testVocab = "[UNK]\n[CLS]\n[SEP]\n[MASK]\nthe\npatient\nwas\ngiven\ncase\nhad\nfever\n.\naspirin\n"

func record(source, title string) string {
	return fmt.Sprintf(`{
		"source": %q,
		"document": {
			"title": %q,
			"context": "Patient had fever. No other symptoms.",
			"qas": [{
				"query": "The patient was given @placeholder.",
				"answers": [{"text": "aspirin"}, {"text": "acetylsalicylic acid"}]
			}]
		}
	}`, source, title)
}

func newTestAssembler(t *testing.T, corpusJSON string, cfgMutate func(*config.Config)) (*Assembler, *config.Config) {
	t.Helper()
	dir := t.TempDir()

	vocabPath := filepath.Join(dir, "vocab.txt")
	require.NoError(t, os.WriteFile(vocabPath, []byte(testVocab), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "train1.0.json"), []byte(corpusJSON), 0o644))

	cfg := &config.Config{
		VocabPath:     vocabPath,
		DataDir:       dir,
		OutDir:        dir,
		Splits:        []string{"train"},
		SampleSources: config.DefaultSampleSources,
		Workers:       2,
	}
	if cfgMutate != nil {
		cfgMutate(cfg)
	}

	tok, err := tokenizer.New(vocabPath)
	require.NoError(t, err)
	return New(cfg, encoder.New(tok), zerolog.Nop()), cfg
}

func corpusOf(records ...string) string {
	return `{"data": [` + strings.Join(records, ",") + `]}`
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestProcessSplit_RowPerAnswer(t *testing.T) {
	asm, cfg := newTestAssembler(t, corpusOf(record("case_a", "Case A")), nil)

	summary, err := asm.ProcessSplit(context.Background(), "train")
	require.NoError(t, err)

	// One document, one QA pair, two answers: two rows sharing a body.
	assert.Equal(t, 1, summary.Documents)
	assert.Equal(t, 2, summary.Rows)
	assert.Zero(t, summary.Skipped)
	assert.Zero(t, summary.Malformed)

	lines := readLines(t, filepath.Join(cfg.OutDir, "train.tsv"))
	require.Len(t, lines, 3)
	assert.Equal(t, "source\tbody\tsegment_ids\tquery\tanswers\tindex_ids", lines[0])

	first := strings.Split(lines[1], "\t")
	second := strings.Split(lines[2], "\t")
	require.Len(t, first, 6)
	assert.Equal(t, "case_a", first[0])
	assert.True(t, strings.HasPrefix(first[1], "[CLS] case"))
	assert.Equal(t, first[1], second[1], "rows of one QA pair share the body")
	assert.Equal(t, first[2], second[2], "rows of one QA pair share segment ids")
	assert.NotEqual(t, first[3], second[3], "mask count follows each answer")
}

func TestProcessSplit_SampleCapRoundTrip(t *testing.T) {
	corpus := corpusOf(
		record("case_a", "Case A"),
		record("case_a", "Case A"),
		record("case_b", "Case B"),
	)
	asm, cfg := newTestAssembler(t, corpus, func(c *config.Config) { c.SampleSources = 2 })

	_, err := asm.ProcessSplit(context.Background(), "train")
	require.NoError(t, err)

	sample := readLines(t, filepath.Join(cfg.OutDir, "sample_train.tsv"))
	full := readLines(t, filepath.Join(cfg.OutDir, "train.tsv"))

	// Cap of 2 distinct sources covers both case_a and case_b.
	assert.Len(t, full, 7)
	assert.Len(t, sample, 7)
}

func TestProcessSplit_SampleCapExcludesLaterSources(t *testing.T) {
	corpus := corpusOf(
		record("case_a", "Case A"),
		record("case_a", "Case A"),
		record("case_b", "Case B"),
	)
	asm, cfg := newTestAssembler(t, corpus, func(c *config.Config) { c.SampleSources = 1 })

	_, err := asm.ProcessSplit(context.Background(), "train")
	require.NoError(t, err)

	sample := readLines(t, filepath.Join(cfg.OutDir, "sample_train.tsv"))
	full := readLines(t, filepath.Join(cfg.OutDir, "train.tsv"))

	assert.Len(t, full, 7, "full output keeps every source")
	assert.Len(t, sample, 5, "sample keeps only the first distinct source")
	for _, line := range sample[1:] {
		assert.True(t, strings.HasPrefix(line, "case_a\t"))
	}
}

func TestProcessSplit_SkipsMissingFieldDocuments(t *testing.T) {
	noTitle := `{
		"source": "broken",
		"document": {
			"context": "Some context.",
			"qas": [{"query": "Q @placeholder", "answers": [{"text": "aspirin"}]}]
		}
	}`
	asm, cfg := newTestAssembler(t, corpusOf(record("case_a", "Case A"), noTitle), nil)

	summary, err := asm.ProcessSplit(context.Background(), "train")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 2, summary.Rows)

	for _, line := range readLines(t, filepath.Join(cfg.OutDir, "train.tsv"))[1:] {
		assert.False(t, strings.HasPrefix(line, "broken\t"))
	}
}

func TestProcessSplit_MalformedQueryStillEmitsRow(t *testing.T) {
	noPlaceholder := `{
		"source": "case_m",
		"document": {
			"title": "Case M",
			"context": "Patient had fever.",
			"qas": [{"query": "No marker at all.", "answers": [{"text": "aspirin"}]}]
		}
	}`
	asm, cfg := newTestAssembler(t, corpusOf(noPlaceholder), nil)

	summary, err := asm.ProcessSplit(context.Background(), "train")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Malformed)
	assert.Equal(t, 1, summary.Rows)

	lines := readLines(t, filepath.Join(cfg.OutDir, "train.tsv"))
	require.Len(t, lines, 2)
	fields := strings.Split(lines[1], "\t")
	assert.NotContains(t, fields[5], "1", "index ids must be all zero without a placeholder")
}

func TestProcessSplit_OptionalOutputs(t *testing.T) {
	asm, cfg := newTestAssembler(t, corpusOf(record("case_a", "Case A")), func(c *config.Config) {
		c.WriteArrow = true
		c.WriteCBOR = true
	})

	summary, err := asm.ProcessSplit(context.Background(), "train")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(cfg.OutDir, "train.cbor"))
	require.NoError(t, err)
	var rows []Row
	require.NoError(t, cbor.Unmarshal(data, &rows))
	assert.Len(t, rows, summary.Rows)

	info, err := os.Stat(filepath.Join(cfg.OutDir, "train.arrow"))
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestProcessSplit_MissingInputFile(t *testing.T) {
	asm, _ := newTestAssembler(t, corpusOf(record("case_a", "Case A")), nil)

	_, err := asm.ProcessSplit(context.Background(), "dev")
	assert.Error(t, err)
}
