package encoder

import (
	"strings"
	"time"

	"github.com/clinlp/bertprep/internal/textnorm"
	"github.com/clinlp/bertprep/internal/tokenizer"
)

// Placeholder is the literal token in raw query text marking where the
// answer belongs. It is plain alphanumeric-plus-@ and survives Clean.
const Placeholder = "@placeholder"

// QA encodes one (question, answer) pair: the placeholder is replaced with
// one [MASK] per answer sub-token, and indexIDs is a binary sequence over the
// tokenized query with 1 at every mask position.
//
// A question without the placeholder passes through unchanged and yields
// all-zero indexIDs; callers treat that as a malformed-query signal, not an
// error.
func (e *Encoder) QA(question, answer string) (query string, indexIDs []int) {
	start := time.Now()
	defer func() { encodeDuration.WithLabelValues("qa").Observe(time.Since(start).Seconds()) }()

	query = textnorm.Clean(question)

	masks := strings.Repeat(tokenizer.MaskToken+" ", len(e.answerTokens(answer)))
	query = strings.Replace(query, Placeholder, masks, 1)

	subTokens, _ := e.tok.Tokenize(query)
	indexIDs = make([]int, len(subTokens))
	for i, t := range subTokens {
		if t == tokenizer.MaskToken {
			indexIDs[i] = 1
		}
	}
	return query, indexIDs
}

// answerTokens tokenizes the raw answer text, memoized per answer string.
func (e *Encoder) answerTokens(answer string) []string {
	if tokens, ok := e.answers.Get(answer); ok {
		answerCacheHits.Inc()
		return tokens
	}
	tokens, _ := e.tok.Tokenize(answer)
	e.answers.Put(answer, tokens)
	return tokens
}
