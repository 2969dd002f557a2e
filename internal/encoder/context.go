// Package encoder builds BERT-format model inputs from cleaned clinical
// report text: a [CLS]/[SEP] marked-up body with per-sentence segment ids,
// and mask-substituted queries with mask position indexes.
package encoder

import (
	"strings"
	"time"

	"github.com/clinlp/bertprep/internal/cache"
	"github.com/clinlp/bertprep/internal/textnorm"
	"github.com/clinlp/bertprep/internal/tokenizer"
)

// Encoder turns documents and QA pairs into model-ready inputs. Safe for
// concurrent use as long as the underlying tokenizer and cache are.
type Encoder struct {
	tok     tokenizer.Tokenizer
	answers cache.TokenCache
}

// New returns an Encoder backed by tok. Answer tokenizations are memoized in
// an in-memory cache since the same answer string recurs across rows.
func New(tok tokenizer.Tokenizer) *Encoder {
	return &Encoder{tok: tok, answers: cache.NewMapCache()}
}

// Context encodes a report title and context into a single marked-up body
// string plus one segment id per sub-token position.
//
// The title is unit 0, each context sentence follows as its own unit. The
// first unit carries a "[CLS] " prefix, every later unit a " [SEP] " prefix.
// Each unit contributes marker-inclusive sub-token count plus one segment id
// entries; the extra entry matches the reference preprocessing output and is
// reproduced as observed.
//
// An empty context still yields a valid body holding only the title unit.
func (e *Encoder) Context(title, context string) (body string, segmentIDs []int) {
	start := time.Now()
	defer func() { encodeDuration.WithLabelValues("context").Observe(time.Since(start).Seconds()) }()

	title = textnorm.Clean(title)
	context = textnorm.Clean(context)

	units := append([]string{title}, textnorm.SplitSentences(context)...)

	var b strings.Builder
	for i, unit := range units {
		marker := " " + tokenizer.SepToken + " "
		if i == 0 {
			marker = tokenizer.ClsToken + " "
		}
		b.WriteString(marker)
		b.WriteString(unit)

		subTokens, _ := e.tok.Tokenize(marker + unit)
		for n := 0; n <= len(subTokens); n++ {
			segmentIDs = append(segmentIDs, i)
		}
	}
	return b.String(), segmentIDs
}
