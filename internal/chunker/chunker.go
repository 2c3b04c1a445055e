// Package chunker splits extracted document text into heading-aware chunks.
package chunker

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/hyperjump/clausefind/internal/models"
)

// Metadata keys written on every chunk.
const (
	SourceKey     = "source"
	ChunkIndexKey = "chunk_index"
	ChunkIDKey    = "chunk_id"
	TokenCountKey = "token_count"
)

var (
	markdownHeading = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*$`)
	numberedHeading = regexp.MustCompile(`^((?:\d+\.)*\d+)\.?\s+(\p{Lu}.*)$`)
)

const maxHeadingWords = 12

// Chunker splits text into overlapping word-based chunks. Windows never cross a
// section boundary, and every chunk records the heading path it sits under.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in words).
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 300
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 0
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

type section struct {
	headings []string
	words    []string
}

// Chunk splits text into chunks tagged with source and heading metadata. Chunks are
// returned without embeddings.
func (c *Chunker) Chunk(source, text string) []models.Chunk {
	var chunks []models.Chunk
	for _, s := range splitSections(text) {
		for _, words := range c.windows(s.words) {
			headings := make([]string, len(s.headings))
			copy(headings, s.headings)
			chunks = append(chunks, models.Chunk{
				Text: strings.Join(words, " "),
				Metadata: map[string]interface{}{
					models.HeadingsKey: headings,
					SourceKey:          source,
					ChunkIndexKey:      len(chunks),
					ChunkIDKey:         uuid.New().String(),
					TokenCountKey:      len(words),
				},
			})
		}
	}
	return chunks
}

func (c *Chunker) windows(words []string) [][]string {
	if len(words) == 0 {
		return nil
	}
	step := c.chunkSize - c.chunkOverlap
	var out [][]string
	for i := 0; i < len(words); i += step {
		end := i + c.chunkSize
		if end > len(words) {
			end = len(words)
		}
		out = append(out, words[i:end])
		if end >= len(words) {
			break
		}
	}
	return out
}

// splitSections walks text line by line, maintaining a heading stack. Body lines are
// collected into the section opened by the most recent heading.
func splitSections(text string) []section {
	var (
		sections []section
		stack    []string
		current  section
	)
	flush := func() {
		if len(current.words) > 0 {
			sections = append(sections, current)
		}
	}
	for _, line := range strings.Split(text, "\n") {
		line = normalizeLine(line)
		if line == "" {
			continue
		}
		if level, title, ok := DetectHeading(line); ok {
			flush()
			if level-1 < len(stack) {
				stack = stack[:level-1]
			}
			stack = append(stack, title)
			current = section{headings: append([]string(nil), stack...)}
			continue
		}
		current.words = append(current.words, strings.Fields(line)...)
	}
	flush()
	return sections
}

// DetectHeading reports whether line looks like a section heading and returns its
// nesting level (1 = top) and title. Recognized forms are markdown "#" headings,
// numbered clauses such as "4.2 Exclusions" and short ALL-CAPS lines.
func DetectHeading(line string) (int, string, bool) {
	if m := markdownHeading.FindStringSubmatch(line); m != nil {
		return len(m[1]), m[2], true
	}
	if len(strings.Fields(line)) > maxHeadingWords || strings.HasSuffix(line, ".") {
		return 0, "", false
	}
	if m := numberedHeading.FindStringSubmatch(line); m != nil {
		return strings.Count(m[1], ".") + 1, line, true
	}
	if isAllCaps(line) {
		return 1, line, true
	}
	return 0, "", false
}

// normalizeLine drops control and invisible format characters (soft hyphens, zero
// width spaces) that PDF extraction leaves behind and collapses whitespace runs to
// single spaces.
func normalizeLine(line string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			return -1
		}
		return r
	}, line)
	return strings.Join(strings.Fields(cleaned), " ")
}

func isAllCaps(line string) bool {
	letters := 0
	for _, r := range line {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters >= 3
}
