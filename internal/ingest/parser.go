// Package ingest loads course scripts from the docs folder and turns them
// into the catalog records and content chunks the store indexes.
//
// Expected document layout:
//
//	Course Title: <title>
//	Course Link: <url>
//	Course Instructor: <name>
//
//	Lesson 0: Introduction
//	Lesson Link: <url>
//	<transcript lines...>
//	Lesson 1: ...
package ingest

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/petasbytes/course-agent/internal/store"
)

var lessonHeaderRe = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.+)$`)

// LessonText pairs a parsed lesson with its raw transcript.
type LessonText struct {
	Lesson store.Lesson
	Text   string
}

// Document is one fully parsed course script.
type Document struct {
	Course  store.Course
	Lessons []LessonText
}

// ParseCourseDocument parses a course script. The title falls back to the
// file name when the header line is missing, so a malformed document still
// indexes under something addressable.
func ParseCourseDocument(content, filename string) (Document, error) {
	doc := Document{}
	sc := bufio.NewScanner(strings.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var cur *LessonText
	var body strings.Builder
	flush := func() {
		if cur != nil {
			cur.Text = strings.TrimSpace(body.String())
			doc.Lessons = append(doc.Lessons, *cur)
			cur = nil
		}
		body.Reset()
	}

	inHeader := true
	for sc.Scan() {
		line := sc.Text()

		if inHeader {
			switch {
			case strings.HasPrefix(line, "Course Title:"):
				doc.Course.Title = strings.TrimSpace(strings.TrimPrefix(line, "Course Title:"))
				continue
			case strings.HasPrefix(line, "Course Link:"):
				doc.Course.Link = strings.TrimSpace(strings.TrimPrefix(line, "Course Link:"))
				continue
			case strings.HasPrefix(line, "Course Instructor:"):
				doc.Course.Instructor = strings.TrimSpace(strings.TrimPrefix(line, "Course Instructor:"))
				continue
			case strings.TrimSpace(line) == "":
				continue
			}
			inHeader = false
		}

		if m := lessonHeaderRe.FindStringSubmatch(line); m != nil {
			flush()
			n, _ := strconv.Atoi(m[1])
			cur = &LessonText{Lesson: store.Lesson{Number: n, Title: strings.TrimSpace(m[2])}}
			continue
		}
		if cur != nil && strings.HasPrefix(line, "Lesson Link:") {
			cur.Lesson.Link = strings.TrimSpace(strings.TrimPrefix(line, "Lesson Link:"))
			continue
		}
		if cur != nil {
			body.WriteString(line)
			body.WriteString("\n")
		}
	}
	flush()
	if err := sc.Err(); err != nil {
		return Document{}, fmt.Errorf("scan %s: %w", filename, err)
	}

	if doc.Course.Title == "" {
		base := filepath.Base(filename)
		doc.Course.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	for _, lt := range doc.Lessons {
		doc.Course.Lessons = append(doc.Course.Lessons, lt.Lesson)
	}
	return doc, nil
}

// LoadFile reads and parses one course script addressed relative to the
// docs root.
func LoadFile(absRoot, relPath string) (Document, error) {
	abs, err := resolveUnderRoot(absRoot, relPath)
	if err != nil {
		return Document{}, err
	}
	b, err := os.ReadFile(abs)
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", relPath, err)
	}
	return ParseCourseDocument(string(b), relPath)
}

// LoadFolder parses every .txt script directly under the docs root,
// in lexical order.
func LoadFolder(root string) ([]Document, error) {
	absRoot, err := ResolveDocsRoot(root)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(absRoot)
	if err != nil {
		return nil, fmt.Errorf("read docs root: %w", err)
	}

	var docs []Document
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		doc, err := LoadFile(absRoot, e.Name())
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
