package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/course-agent/internal/api"
	"github.com/petasbytes/course-agent/tools"
)

// stubRAG is a canned application layer for handler tests.
type stubRAG struct {
	answer    string
	sources   []tools.Source
	err       error
	sessionID string

	gotQuery   string
	gotSession string
}

func (s *stubRAG) Query(ctx context.Context, query, sessionID string) (string, []tools.Source, error) {
	s.gotQuery = query
	s.gotSession = sessionID
	return s.answer, s.sources, s.err
}

func (s *stubRAG) Analytics() (int, []string) { return 2, []string{"Course A", "Course B"} }

func (s *stubRAG) CreateSession() string { return s.sessionID }

func newTestServer(rag api.RAG) http.Handler {
	return api.NewServer(rag, zerolog.Nop()).Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestQueryEndpoint_WithSessionID(t *testing.T) {
	rag := &stubRAG{
		answer: "the answer",
		sources: []tools.Source{
			{Text: "Course A - Lesson 1", URL: "https://example.com/1"},
			{Text: "unknown"},
		},
	}
	h := newTestServer(rag)

	rec := doJSON(t, h, http.MethodPost, "/api/query", `{"query":"what?","session_id":"s-123"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp struct {
		Answer  string `json:"answer"`
		Sources []struct {
			Text string  `json:"text"`
			URL  *string `json:"url"`
		} `json:"sources"`
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "the answer", resp.Answer)
	assert.Equal(t, "s-123", resp.SessionID)
	assert.Equal(t, "s-123", rag.gotSession)
	assert.Equal(t, "what?", rag.gotQuery)

	require.Len(t, resp.Sources, 2)
	require.NotNil(t, resp.Sources[0].URL)
	assert.Equal(t, "https://example.com/1", *resp.Sources[0].URL)
	assert.Nil(t, resp.Sources[1].URL, "linkless source serializes url as null")
}

func TestQueryEndpoint_CreatesSessionWhenAbsent(t *testing.T) {
	rag := &stubRAG{answer: "ok", sessionID: "fresh-session"}
	h := newTestServer(rag)

	rec := doJSON(t, h, http.MethodPost, "/api/query", `{"query":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "fresh-session", resp.SessionID)
	assert.Equal(t, "fresh-session", rag.gotSession)
}

func TestQueryEndpoint_BadBody(t *testing.T) {
	h := newTestServer(&stubRAG{})

	rec := doJSON(t, h, http.MethodPost, "/api/query", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "detail")
}

func TestQueryEndpoint_QueryError(t *testing.T) {
	h := newTestServer(&stubRAG{err: errors.New("backend unavailable")})

	rec := doJSON(t, h, http.MethodPost, "/api/query", `{"query":"q","session_id":"s"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "backend unavailable")
}

func TestQueryEndpoint_MethodNotAllowed(t *testing.T) {
	h := newTestServer(&stubRAG{})

	rec := doJSON(t, h, http.MethodGet, "/api/query", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCoursesEndpoint(t *testing.T) {
	h := newTestServer(&stubRAG{})

	rec := doJSON(t, h, http.MethodGet, "/api/courses", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		TotalCourses int      `json:"total_courses"`
		CourseTitles []string `json:"course_titles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.TotalCourses)
	assert.Equal(t, []string{"Course A", "Course B"}, resp.CourseTitles)
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestServer(&stubRAG{})

	rec := doJSON(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
