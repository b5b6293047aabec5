// Package chunker splits document text into ordered, bounded-size chunks.
//
// Chunk indices are dense (0..N-1) and reflect the chunk's position in the
// original document. Splitting prefers natural boundaries (blank lines,
// newlines, sentence ends, spaces) and falls back to a hard cut only when
// no boundary exists inside the size window. Concatenating the chunk texts
// reproduces the input.
package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Chunk is one bounded piece of a document.
type Chunk struct {
	// Index is the chunk's position in the original document.
	Index int

	// Text is the chunk content.
	Text string
}

// Split divides text into ordered chunks of at most maxChars bytes of
// UTF-8 text wherever a reasonable boundary allows it.
//
// maxChars <= 0 disables splitting and yields a single chunk.
func Split(text string, maxChars int) []Chunk {
	if text == "" {
		return nil
	}
	if maxChars <= 0 || len(text) <= maxChars {
		return []Chunk{{Index: 0, Text: text}}
	}

	var chunks []Chunk
	rest := text
	for len(rest) > maxChars {
		cut := breakPoint(rest, maxChars)
		chunks = append(chunks, Chunk{Index: len(chunks), Text: rest[:cut]})
		rest = rest[cut:]
	}
	if rest != "" {
		chunks = append(chunks, Chunk{Index: len(chunks), Text: rest})
	}
	return chunks
}

// SplitRecursively attempts a size-based split down to maxDepth levels.
//
// A single-element result signals that the text cannot be divided above
// minChunkSize. Callers treat that as a terminal "cannot split further"
// condition, not an error.
func SplitRecursively(text string, targetSize, minChunkSize, maxDepth int) []Chunk {
	if text == "" {
		return nil
	}
	if maxDepth <= 0 || len(text) <= minChunkSize {
		return []Chunk{{Index: 0, Text: text}}
	}
	if targetSize < minChunkSize {
		targetSize = minChunkSize
	}

	parts := Split(text, targetSize)
	if len(parts) <= 1 {
		return []Chunk{{Index: 0, Text: text}}
	}

	out := make([]Chunk, 0, len(parts))
	for _, p := range parts {
		if len(p.Text) > targetSize && maxDepth > 1 {
			out = append(out, SplitRecursively(p.Text, targetSize, minChunkSize, maxDepth-1)...)
		} else {
			out = append(out, p)
		}
	}
	return reindex(out)
}

// SplitBySentences groups the text's sentences into chunks of at most
// maxSentencesPerChunk sentences each. It is the fallback when size-based
// splitting yields no reduction. A single-element result signals that no
// sentence boundary exists.
func SplitBySentences(text string, maxSentencesPerChunk int) []Chunk {
	if text == "" {
		return nil
	}
	if maxSentencesPerChunk <= 0 {
		maxSentencesPerChunk = 1
	}

	sentences := splitSentences(text)
	if len(sentences) <= 1 {
		return []Chunk{{Index: 0, Text: text}}
	}

	var chunks []Chunk
	for start := 0; start < len(sentences); start += maxSentencesPerChunk {
		end := start + maxSentencesPerChunk
		if end > len(sentences) {
			end = len(sentences)
		}
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Text:  strings.Join(sentences[start:end], " "),
		})
	}
	return chunks
}

// breakPoint returns the cut offset for the next chunk: the end of the best
// natural boundary within limit, or a rune-safe hard cut at limit.
func breakPoint(s string, limit int) int {
	window := s[:runeSafe(s, limit)]

	if idx := strings.LastIndex(window, "\n\n"); idx > 0 {
		return idx + 2
	}
	if idx := strings.LastIndexByte(window, '\n'); idx > 0 {
		return idx + 1
	}
	if idx := lastSentenceEnd(window); idx > 0 {
		return idx
	}
	if idx := strings.LastIndexByte(window, ' '); idx > 0 {
		return idx + 1
	}
	return len(window)
}

// runeSafe backs limit off to the nearest preceding rune boundary.
func runeSafe(s string, limit int) int {
	if limit >= len(s) {
		return len(s)
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return limit
}

var sentenceEnders = map[rune]bool{
	'.': true, '!': true, '?': true,
	'。': true, '！': true, '？': true,
}

var sentenceClosers = map[rune]bool{
	'"': true, '\'': true, ')': true, ']': true,
	'”': true, '’': true, '」': true,
}

// lastSentenceEnd returns the offset just past the last sentence terminator
// in s that is followed by whitespace, or 0 if there is none.
func lastSentenceEnd(s string) int {
	best := 0
	runes := []rune(s)
	off := 0
	for i, r := range runes {
		width := utf8.RuneLen(r)
		if sentenceEnders[r] {
			end := off + width
			j := i + 1
			for j < len(runes) && sentenceClosers[runes[j]] {
				end += utf8.RuneLen(runes[j])
				j++
			}
			if j < len(runes) && unicode.IsSpace(runes[j]) {
				best = end
			}
		}
		off += width
	}
	return best
}

// splitSentences cuts text into sentences at terminator boundaries.
// Whitespace between sentences is dropped; within a sentence it is kept.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0
	i := 0
	for i < len(runes) {
		r := runes[i]
		if sentenceEnders[r] {
			end := i + 1
			for end < len(runes) && sentenceClosers[runes[end]] {
				end++
			}
			if end >= len(runes) || unicode.IsSpace(runes[end]) {
				s := strings.TrimSpace(string(runes[start:end]))
				if s != "" {
					sentences = append(sentences, s)
				}
				for end < len(runes) && unicode.IsSpace(runes[end]) {
					end++
				}
				start = end
				i = end
				continue
			}
			i = end
			continue
		}
		i++
	}
	if start < len(runes) {
		s := strings.TrimSpace(string(runes[start:]))
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

func reindex(chunks []Chunk) []Chunk {
	for i := range chunks {
		chunks[i].Index = i
	}
	return chunks
}
