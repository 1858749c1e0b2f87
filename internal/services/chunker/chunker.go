package chunker

import (
	"strings"
	"unicode"
)

const (
	// DefaultMaxSize is the maximum chunk length in runes
	DefaultMaxSize = 2000
	// DefaultOverlap is the number of runes repeated between consecutive
	// chunks to preserve context across a split boundary
	DefaultOverlap = 200
)

// Chunker splits raw text into overlapping fixed-size segments.
//
// Splitting prefers a whitespace boundary near the size limit; if none
// exists within half the limit of the boundary, the text is hard-split at
// the limit. Output is deterministic: the same input always yields the same
// chunk sequence, which the duplicate-detection guarantee depends on across
// retries.
type Chunker struct {
	maxSize int
	overlap int
}

// New creates a chunker with the given limits. Non-positive maxSize falls
// back to the default; overlap is clamped below maxSize.
func New(maxSize, overlap int) *Chunker {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxSize {
		overlap = maxSize / 10
	}
	return &Chunker{maxSize: maxSize, overlap: overlap}
}

// MaxSize returns the configured maximum chunk length
func (c *Chunker) MaxSize() int {
	return c.maxSize
}

// Overlap returns the configured overlap length
func (c *Chunker) Overlap() int {
	return c.overlap
}

// Chunk splits text into an ordered sequence of segments, each at most
// maxSize runes, with overlap runes shared between neighbors. Empty and
// whitespace-only segments are discarded.
func (c *Chunker) Chunk(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var chunks []string
	start := 0

	for start < len(runes) {
		end := start + c.maxSize
		if end >= len(runes) {
			appendChunk(&chunks, runes[start:])
			break
		}

		// Prefer the last whitespace within maxSize/2 of the boundary so
		// we do not split mid-token.
		split := end
		lowest := end - c.maxSize/2
		for i := end; i > lowest; i-- {
			if unicode.IsSpace(runes[i-1]) {
				split = i
				break
			}
		}

		appendChunk(&chunks, runes[start:split])

		next := split - c.overlap
		if next <= start {
			// Overlap would stall the scan; move forward regardless.
			next = split
		}
		start = next
	}

	return chunks
}

func appendChunk(chunks *[]string, segment []rune) {
	s := strings.TrimSpace(string(segment))
	if s == "" {
		return
	}
	*chunks = append(*chunks, s)
}
