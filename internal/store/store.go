// Package store holds the course catalog and the chunk index queried by the
// retrieval tools.
//
// Searcher is the only surface the tools see; the in-memory implementation
// below is what the CLI and server wire in. Search failures are fail-soft:
// they come back as the Err field of SearchResults, not as Go errors, so a
// broken lookup reaches the model as text it can explain.
package store

// Lesson is one numbered lesson within a course.
type Lesson struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Link   string `json:"link,omitempty"`
}

// Course is the parsed header of one course document plus its lesson list.
type Course struct {
	Title      string   `json:"title"`
	Link       string   `json:"link,omitempty"`
	Instructor string   `json:"instructor,omitempty"`
	Lessons    []Lesson `json:"lessons"`
}

// ChunkMeta identifies where a chunk of indexed text came from.
// LessonNumber is nil for course-level text that belongs to no lesson.
type ChunkMeta struct {
	CourseTitle  string
	LessonNumber *int
	ChunkIndex   int
}

// Chunk is one indexable unit of course content.
type Chunk struct {
	Text string
	Meta ChunkMeta
}

// SearchResults is the outcome of one Search call. When Err is non-empty the
// other fields are meaningless and Err carries a human-readable description
// that is returned to the model verbatim.
type SearchResults struct {
	Documents []string
	Metadata  []ChunkMeta
	Distances []float64
	Err       string
}

// IsEmpty reports whether the search matched nothing (and did not fail).
func (r SearchResults) IsEmpty() bool {
	return r.Err == "" && len(r.Documents) == 0
}

// Searcher is the retrieval surface consumed by the tools and the API layer.
type Searcher interface {
	// Search finds chunks matching query. courseName ("" = any) is resolved
	// with partial, case-insensitive matching; lessonNumber (nil = any)
	// filters to a single lesson.
	Search(query, courseName string, lessonNumber *int) SearchResults

	// GetLessonLink returns the link for a lesson of a course, or "".
	GetLessonLink(courseTitle string, lessonNumber int) string

	// GetCourseLink returns the course-level link, or "".
	GetCourseLink(courseTitle string) string

	// GetCourseOutline resolves courseName (partial match allowed) and
	// returns the full course record.
	GetCourseOutline(courseName string) (Course, bool)

	// CourseCount and CourseTitles back the analytics endpoint.
	CourseCount() int
	CourseTitles() []string
}
