// Package tokenizer implements BERT WordPiece tokenization over a vocab.txt
// style vocabulary.
package tokenizer

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Tokenizer is the capability the encoders consume: text in, sub-token
// strings and vocab ids out. Deterministic, no side effects.
type Tokenizer interface {
	Tokenize(text string) ([]string, []int)
}

const (
	UnkToken  = "[UNK]"
	ClsToken  = "[CLS]"
	SepToken  = "[SEP]"
	MaskToken = "[MASK]"
	PadToken  = "[PAD]"

	maxWordChars = 200
)

// specialTokens are never split or lowercased.
var specialTokens = []string{UnkToken, ClsToken, SepToken, MaskToken, PadToken}

// WordPiece is a greedy longest-match-first sub-word tokenizer.
type WordPiece struct {
	vocab    map[string]int
	special  map[string]bool
	stripper transform.Transformer
}

// New loads a BERT-style vocabulary file (one token per line, line index is
// the token id) and returns a ready tokenizer.
func New(vocabPath string) (*WordPiece, error) {
	f, err := os.Open(vocabPath)
	if err != nil {
		return nil, fmt.Errorf("open vocab: %w", err)
	}
	defer func() { _ = f.Close() }()

	vocab := make(map[string]int)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		token := strings.TrimSpace(scanner.Text())
		if token == "" {
			continue
		}
		vocab[token] = len(vocab)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read vocab: %w", err)
	}

	special := make(map[string]bool, len(specialTokens))
	for _, t := range specialTokens {
		special[t] = true
	}

	return &WordPiece{
		vocab:    vocab,
		special:  special,
		stripper: transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
	}, nil
}

// split performs basic tokenization: words break on whitespace and on
// punctuation, punctuation survives as standalone tokens, and special tokens
// pass through intact.
func (w *WordPiece) split(text string) []string {
	var tokens []string
	var word strings.Builder

	flush := func() {
		if word.Len() > 0 {
			tokens = append(tokens, word.String())
			word.Reset()
		}
	}

	rs := []rune(text)
	for i := 0; i < len(rs); {
		if rs[i] == '[' {
			rest := string(rs[i:])
			matched := false
			for t := range w.special {
				if strings.HasPrefix(rest, t) {
					flush()
					tokens = append(tokens, t)
					i += len([]rune(t))
					matched = true
					break
				}
			}
			if matched {
				continue
			}
		}
		switch r := rs[i]; {
		case unicode.IsSpace(r):
			flush()
		case isPunct(r):
			flush()
			tokens = append(tokens, string(r))
		default:
			word.WriteRune(r)
		}
		i++
	}
	flush()
	return tokens
}

// wordpiece breaks one already-normalized word into vocabulary pieces using
// greedy longest prefix matching. Continuation pieces carry the ## prefix.
// A word with any unmatchable remainder collapses to [UNK].
func (w *WordPiece) wordpiece(word string) []string {
	if len(word) > maxWordChars {
		return []string{UnkToken}
	}
	var pieces []string
	start := 0
	for start < len(word) {
		end := len(word)
		var piece string
		for start < end {
			candidate := word[start:end]
			if start > 0 {
				candidate = "##" + candidate
			}
			if _, ok := w.vocab[candidate]; ok {
				piece = candidate
				break
			}
			end--
		}
		if piece == "" {
			return []string{UnkToken}
		}
		pieces = append(pieces, piece)
		start = end
	}
	return pieces
}

// Tokenize converts text into sub-token strings and their vocab ids.
func (w *WordPiece) Tokenize(text string) ([]string, []int) {
	words := w.split(text)

	tokens := make([]string, 0, len(words)*2)
	ids := make([]int, 0, len(words)*2)

	emit := func(token string) {
		tokens = append(tokens, token)
		ids = append(ids, w.vocab[token])
	}

	for _, word := range words {
		if w.special[word] {
			if _, ok := w.vocab[word]; ok {
				emit(word)
				continue
			}
		}

		lowered := strings.ToLower(word)
		if stripped, _, err := transform.String(w.stripper, lowered); err == nil {
			lowered = stripped
		}

		for _, piece := range w.wordpiece(lowered) {
			emit(piece)
		}
	}
	return tokens, ids
}

// VocabSize returns the number of entries in the loaded vocabulary.
func (w *WordPiece) VocabSize() int {
	return len(w.vocab)
}
