package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/petasbytes/course-agent/internal/store"
)

type CourseOutlineInput struct {
	CourseName string `json:"course_name" jsonschema_description:"Course title to get the outline for (partial matches allowed)."`
}

var CourseOutlineInputSchema = GenerateSchema[CourseOutlineInput]()

// CourseOutlineTool returns a course's title, link, and complete numbered
// lesson list. It records a single course-level Source.
type CourseOutlineTool struct {
	store       store.Searcher
	lastSources []Source
}

func NewCourseOutlineTool(s store.Searcher) *CourseOutlineTool {
	return &CourseOutlineTool{store: s}
}

func (t *CourseOutlineTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        "get_course_outline",
		Description: "Get the outline of a course: title, course link, and the full list of lessons.",
		InputSchema: CourseOutlineInputSchema,
	}
}

func (t *CourseOutlineTool) Execute(input json.RawMessage) (string, error) {
	var in CourseOutlineInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("decode outline input: %w", err)
	}

	course, ok := t.store.GetCourseOutline(in.CourseName)
	if !ok {
		return fmt.Sprintf("No course found matching '%s'", in.CourseName), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Course: %s\n", course.Title)
	if course.Link != "" {
		fmt.Fprintf(&b, "Course Link: %s\n", course.Link)
	}
	fmt.Fprintf(&b, "Lessons (%d total):\n", len(course.Lessons))
	for _, l := range course.Lessons {
		fmt.Fprintf(&b, "  Lesson %d: %s\n", l.Number, l.Title)
	}

	t.lastSources = []Source{{Text: course.Title, URL: course.Link}}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (t *CourseOutlineTool) LastSources() []Source { return t.lastSources }
func (t *CourseOutlineTool) ResetSources()         { t.lastSources = nil }
