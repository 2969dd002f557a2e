package tokenizer

import "unicode"

// Lookup table for the ASCII punctuation ranges BERT's basic tokenizer splits
// on: [33,47] [58,64] [91,96] [123,126].
var asciiPunct [128]bool

func init() {
	for i := 0; i < 128; i++ {
		if (i >= 33 && i <= 47) || (i >= 58 && i <= 64) || (i >= 91 && i <= 96) || (i >= 123 && i <= 126) {
			asciiPunct[i] = true
		}
	}
}

// isPunct reports whether r splits a word. ASCII goes through the lookup
// table, anything else falls back to the unicode tables.
func isPunct(r rune) bool {
	if r < 128 {
		return asciiPunct[r]
	}
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}
