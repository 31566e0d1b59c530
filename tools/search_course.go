package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/petasbytes/course-agent/internal/store"
)

type SearchCourseInput struct {
	Query        string `json:"query" jsonschema_description:"What to search for in the course content."`
	CourseName   string `json:"course_name,omitempty" jsonschema_description:"Course title to search within (partial matches allowed, e.g. 'MCP')."`
	LessonNumber *int   `json:"lesson_number,omitempty" jsonschema_description:"Specific lesson number to search within (e.g. 3)."`
}

var SearchCourseInputSchema = GenerateSchema[SearchCourseInput]()

// CourseSearchTool answers content questions by querying the store and
// formatting matched chunks with course/lesson headers. It records one
// Source per matched chunk, in result order, overwriting the record from the
// previous execution.
type CourseSearchTool struct {
	store       store.Searcher
	lastSources []Source
}

func NewCourseSearchTool(s store.Searcher) *CourseSearchTool {
	return &CourseSearchTool{store: s}
}

func (t *CourseSearchTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        "search_course_content",
		Description: "Search course materials with smart course name matching and lesson filtering.",
		InputSchema: SearchCourseInputSchema,
	}
}

func (t *CourseSearchTool) Execute(input json.RawMessage) (string, error) {
	var in SearchCourseInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("decode search input: %w", err)
	}

	res := t.store.Search(in.Query, in.CourseName, in.LessonNumber)

	// Fail-soft: a store-level error string goes back to the model verbatim.
	if res.Err != "" {
		return res.Err, nil
	}
	if res.IsEmpty() {
		return emptySearchMessage(in.CourseName, in.LessonNumber), nil
	}
	return t.formatResults(res), nil
}

func (t *CourseSearchTool) LastSources() []Source { return t.lastSources }
func (t *CourseSearchTool) ResetSources()         { t.lastSources = nil }

// formatResults renders each match as "[<course> - Lesson <n>]" followed by
// the chunk text, joined with blank lines, and replaces the provenance
// record with one Source per match.
func (t *CourseSearchTool) formatResults(res store.SearchResults) string {
	parts := make([]string, 0, len(res.Documents))
	sources := make([]Source, 0, len(res.Documents))

	for i, doc := range res.Documents {
		meta := res.Metadata[i]
		title := meta.CourseTitle
		if title == "" {
			title = "unknown"
		}

		header := title
		url := ""
		if meta.LessonNumber != nil {
			header = fmt.Sprintf("%s - Lesson %d", title, *meta.LessonNumber)
			url = t.store.GetLessonLink(title, *meta.LessonNumber)
		}

		parts = append(parts, fmt.Sprintf("[%s]\n%s", header, doc))
		sources = append(sources, Source{Text: header, URL: url})
	}

	t.lastSources = sources
	return strings.Join(parts, "\n\n")
}

// emptySearchMessage names the applied filters so the model can report an
// honest miss.
func emptySearchMessage(courseName string, lessonNumber *int) string {
	msg := "No relevant content found"
	if courseName != "" {
		msg += fmt.Sprintf(" in course '%s'", courseName)
	}
	if lessonNumber != nil {
		msg += fmt.Sprintf(" in lesson %d", *lessonNumber)
	}
	return msg + "."
}
