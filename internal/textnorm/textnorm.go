// Package textnorm prepares raw clinical report text for BERT-format encoding.
package textnorm

import (
	"regexp"
	"strings"
)

const (
	entityBegin = "BEG__"
	entityEnd   = "__END"
)

var (
	entityRe      = regexp.MustCompile(`BEG__(.*?)__END`)
	nonPrintable  = regexp.MustCompile(`[^\x20-\x7e]+`)
	whitespaceRun = regexp.MustCompile(`\s+`)
	sentenceEnd   = regexp.MustCompile(`([.!?])(\s+|$)`)
)

// ExtractEntities returns the contents of every BEG__...__END span in order of
// appearance. Absence of spans yields a nil slice, not an error.
func ExtractEntities(paragraph string) []string {
	matches := entityRe.FindAllStringSubmatch(paragraph, -1)
	if matches == nil {
		return nil
	}
	entities := make([]string, 0, len(matches))
	for _, m := range matches {
		entities = append(entities, m[1])
	}
	return entities
}

// Clean normalizes a paragraph for tokenization: runs of characters outside
// printable 7-bit ASCII become a single space, the entity delimiters are
// stripped (markers only, the enclosed text stays), whitespace runs collapse
// to one space, and everything is lowercased.
//
// Clean is idempotent: the markers are uppercase, so once the output has been
// lowercased a second pass finds nothing left to remove.
func Clean(paragraph string) string {
	paragraph = nonPrintable.ReplaceAllString(paragraph, " ")
	paragraph = strings.ReplaceAll(paragraph, entityBegin, "")
	paragraph = strings.ReplaceAll(paragraph, entityEnd, "")
	paragraph = whitespaceRun.ReplaceAllString(paragraph, " ")
	return strings.ToLower(paragraph)
}

// SplitSentences segments text on terminal punctuation (. ! ?), keeping the
// punctuation with its sentence. Deterministic and order-preserving.
// Whitespace-only input yields no sentences.
func SplitSentences(text string) []string {
	delimited := sentenceEnd.ReplaceAllString(text, "$1\x00")
	var sentences []string
	for _, s := range strings.Split(delimited, "\x00") {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}
