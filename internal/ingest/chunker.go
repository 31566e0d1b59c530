package ingest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/petasbytes/course-agent/internal/metrics"
	"github.com/petasbytes/course-agent/internal/store"
)

// DefaultChunkSize and DefaultChunkOverlap are character budgets for one
// chunk and for the sentence overlap carried into the next chunk.
const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 100
)

// Chunker splits lesson transcripts into overlapping, sentence-aligned
// chunks sized for retrieval.
type Chunker struct {
	Size    int
	Overlap int
}

func NewChunker(size, overlap int) Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
	}
	return Chunker{Size: size, Overlap: overlap}
}

var sentenceEndRe = regexp.MustCompile(`([.!?])\s+`)

// SplitSentences breaks text on sentence-ending punctuation followed by
// whitespace. Whitespace runs inside a sentence are collapsed.
func SplitSentences(text string) []string {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return nil
	}
	marked := sentenceEndRe.ReplaceAllString(normalized, "$1\x00")
	parts := strings.Split(marked, "\x00")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ChunkText packs sentences into chunks of at most Size runes, carrying
// roughly Overlap runes of trailing sentences into the next chunk. A single
// sentence longer than Size becomes its own oversized chunk rather than
// being split mid-sentence.
func (c Chunker) ChunkText(text string) []string {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var cur []string
	curRunes := 0

	flush := func() {
		if len(cur) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(cur, " "))

		// Seed the next chunk with trailing sentences within the overlap budget.
		var carry []string
		carryRunes := 0
		for i := len(cur) - 1; i >= 0; i-- {
			r := metrics.CountFeatures(cur[i]).Runes
			if carryRunes+r > c.Overlap {
				break
			}
			carry = append([]string{cur[i]}, carry...)
			carryRunes += r + 1
		}
		cur = carry
		curRunes = carryRunes
	}

	for _, s := range sentences {
		r := metrics.CountFeatures(s).Runes
		if curRunes > 0 && curRunes+r+1 > c.Size {
			flush()
		}
		cur = append(cur, s)
		curRunes += r + 1
	}
	if len(cur) > 0 {
		chunks = append(chunks, strings.Join(cur, " "))
	}
	return chunks
}

// BuildChunks converts a parsed document into store chunks. The first chunk
// of each lesson gets a context prefix naming the course and lesson so
// retrieval matches on those terms too.
func (c Chunker) BuildChunks(doc Document) []store.Chunk {
	var out []store.Chunk
	idx := 0
	for _, lt := range doc.Lessons {
		n := lt.Lesson.Number
		for i, text := range c.ChunkText(lt.Text) {
			if i == 0 {
				text = fmt.Sprintf("Course %s Lesson %d content: %s", doc.Course.Title, n, text)
			}
			num := n
			out = append(out, store.Chunk{
				Text: text,
				Meta: store.ChunkMeta{
					CourseTitle:  doc.Course.Title,
					LessonNumber: &num,
					ChunkIndex:   idx,
				},
			})
			idx++
		}
	}
	return out
}
