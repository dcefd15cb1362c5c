// Package textsplit turns raw extracted page text into overlapping,
// sentence-aligned chunks suitable for independent embedding and retrieval.
//
// The sentence boundary detection is a heuristic (terminal punctuation
// followed by whitespace), not a tokenizer: abbreviations and decimal
// numbers may mis-split. That is acceptable for retrieval chunking, where
// an occasional odd boundary costs little.
package textsplit

import (
	"iter"
	"strings"
	"unicode/utf8"
)

// Default chunking parameters. MaxChars roughly corresponds to 800-1200
// embedding tokens; Overlap preserves cross-chunk context at boundaries.
const (
	DefaultMaxChars = 2000
	DefaultOverlap  = 180

	// MinViableChars is the minimum trimmed length a fragment must exceed
	// to be emitted as a chunk. Shorter fragments are silently discarded.
	MinViableChars = 40
)

// Normalize collapses every run of whitespace (spaces, tabs, newlines) to a
// single space and trims leading/trailing whitespace. Total over all inputs;
// the empty string maps to the empty string.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Chunker splits normalized text into overlapping chunks bounded by a
// maximum character budget. The zero value is not useful; construct with
// New.
type Chunker struct {
	maxChars int
	overlap  int
	minChars int
}

// New creates a Chunker. Non-positive maxChars or negative overlap fall back
// to the package defaults; overlap is clamped below maxChars.
func New(maxChars, overlap int) Chunker {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if overlap >= maxChars {
		overlap = maxChars - 1
	}
	return Chunker{maxChars: maxChars, overlap: overlap, minChars: MinViableChars}
}

// Split returns a lazy, finite sequence of chunk strings. Chunking is pure,
// so the sequence is restartable: ranging over it twice yields the same
// chunks.
//
// Sentences accumulate into a running chunk until adding the next sentence
// would exceed the budget; the accumulated chunk is then emitted (if it
// clears the minimum viable length) and the next chunk is seeded with the
// trailing overlap of the previous emitted chunk plus the sentence that
// triggered the split. A single sentence longer than the budget is emitted
// on its own, so chunks may modestly overflow maxChars in that case.
func (c Chunker) Split(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		var (
			cur    []string
			curLen int
			last   string // most recently emitted chunk, overlap source
		)

		emit := func() bool {
			chunk := strings.TrimSpace(strings.Join(cur, " "))
			if len(chunk) > c.minChars {
				last = chunk
				return yield(chunk)
			}
			return true
		}

		for sentence := range sentences(text) {
			if curLen+len(sentence)+1 > c.maxChars {
				if len(cur) > 0 {
					if !emit() {
						return
					}
				}
				if last != "" && c.overlap > 0 {
					tail := overlapTail(last, c.overlap)
					cur = []string{tail, sentence}
					curLen = len(tail) + 1 + len(sentence)
				} else {
					cur = []string{sentence}
					curLen = len(sentence)
				}
			} else {
				cur = append(cur, sentence)
				curLen += len(sentence) + 1
			}
		}

		if len(cur) > 0 {
			emit()
		}
	}
}

// sentences yields trimmed sentence-like units, splitting after terminal
// punctuation (. ! ?) followed by whitespace. Empty units are skipped.
func sentences(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		start := 0
		for i := 0; i < len(text)-1; i++ {
			if isTerminal(text[i]) && isSpace(text[i+1]) {
				if s := strings.TrimSpace(text[start : i+1]); s != "" {
					if !yield(s) {
						return
					}
				}
				start = i + 1
			}
		}
		if s := strings.TrimSpace(text[start:]); s != "" {
			yield(s)
		}
	}
}

// overlapTail returns up to n trailing bytes of s, adjusted forward so the
// cut never lands inside a multi-byte rune.
func overlapTail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}

func isTerminal(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
