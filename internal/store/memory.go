package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// DefaultMaxResults caps how many chunks one search returns.
const DefaultMaxResults = 5

// InMemoryStore is a process-local Searcher: a course catalog plus a chunk
// index scored by token overlap. It exists so the system runs without an
// external vector database; callers that need real embeddings swap in their
// own Searcher.
type InMemoryStore struct {
	mu         sync.RWMutex
	maxResults int
	order      []string          // course titles in insertion order
	courses    map[string]Course // keyed by exact title
	chunks     []Chunk
}

// NewInMemoryStore returns an empty store. maxResults <= 0 selects
// DefaultMaxResults.
func NewInMemoryStore(maxResults int) *InMemoryStore {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &InMemoryStore{
		maxResults: maxResults,
		courses:    make(map[string]Course),
	}
}

// AddCourse registers course metadata. Re-adding a title overwrites the
// record but keeps its catalog position.
func (s *InMemoryStore) AddCourse(c Course) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[c.Title]; !ok {
		s.order = append(s.order, c.Title)
	}
	s.courses[c.Title] = c
}

// AddChunks appends content chunks to the index.
func (s *InMemoryStore) AddChunks(chunks []Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, chunks...)
}

// HasCourse reports whether an exact course title is already indexed.
func (s *InMemoryStore) HasCourse(title string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.courses[title]
	return ok
}

func (s *InMemoryStore) CourseCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *InMemoryStore) CourseTitles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *InMemoryStore) GetCourseLink(courseTitle string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.courses[courseTitle].Link
}

func (s *InMemoryStore) GetLessonLink(courseTitle string, lessonNumber int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.courses[courseTitle]
	if !ok {
		return ""
	}
	for _, l := range c.Lessons {
		if l.Number == lessonNumber {
			return l.Link
		}
	}
	return ""
}

func (s *InMemoryStore) GetCourseOutline(courseName string) (Course, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	title, ok := s.resolveLocked(courseName)
	if !ok {
		return Course{}, false
	}
	return s.courses[title], true
}

// Search scores every chunk against the query by case-insensitive token
// overlap, applies the optional course/lesson filters, and returns the top
// maxResults matches. A course filter that resolves to nothing is reported
// through Err so the tool can surface it as text.
func (s *InMemoryStore) Search(query, courseName string, lessonNumber *int) SearchResults {
	s.mu.RLock()
	defer s.mu.RUnlock()

	courseFilter := ""
	if courseName != "" {
		title, ok := s.resolveLocked(courseName)
		if !ok {
			return SearchResults{Err: fmt.Sprintf("No course found matching '%s'", courseName)}
		}
		courseFilter = title
	}

	terms := tokenize(query)
	type scored struct {
		chunk Chunk
		score float64
	}
	var matches []scored
	for _, ch := range s.chunks {
		if courseFilter != "" && ch.Meta.CourseTitle != courseFilter {
			continue
		}
		if lessonNumber != nil {
			if ch.Meta.LessonNumber == nil || *ch.Meta.LessonNumber != *lessonNumber {
				continue
			}
		}
		sc := overlapScore(terms, ch.Text)
		if sc > 0 {
			matches = append(matches, scored{chunk: ch, score: sc})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	if len(matches) > s.maxResults {
		matches = matches[:s.maxResults]
	}

	var res SearchResults
	for _, m := range matches {
		res.Documents = append(res.Documents, m.chunk.Text)
		res.Metadata = append(res.Metadata, m.chunk.Meta)
		res.Distances = append(res.Distances, 1-m.score)
	}
	return res
}

// resolveLocked maps a possibly-partial course name to an exact title.
// Exact match wins; otherwise the first catalog entry containing the name
// case-insensitively.
func (s *InMemoryStore) resolveLocked(name string) (string, bool) {
	if _, ok := s.courses[name]; ok {
		return name, true
	}
	needle := strings.ToLower(name)
	for _, title := range s.order {
		if strings.Contains(strings.ToLower(title), needle) {
			return title, true
		}
	}
	return "", false
}

func tokenize(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, f := range strings.Fields(strings.ToLower(s)) {
		f = strings.Trim(f, ".,;:!?\"'()[]")
		if f != "" {
			out[f] = struct{}{}
		}
	}
	return out
}

// overlapScore is the fraction of query terms present in the text.
func overlapScore(terms map[string]struct{}, text string) float64 {
	if len(terms) == 0 {
		return 0
	}
	body := tokenize(text)
	hits := 0
	for t := range terms {
		if _, ok := body[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}
