package api

import (
	"encoding/json"
	"net/http"

	"github.com/petasbytes/course-agent/tools"
)

// QueryRequest is the body of POST /api/query. SessionID is optional; a new
// session is created when it is absent.
type QueryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

// SourceJSON serializes a provenance record; URL is null when the source has
// no link.
type SourceJSON struct {
	Text string  `json:"text"`
	URL  *string `json:"url"`
}

// QueryResponse is the body returned by POST /api/query.
type QueryResponse struct {
	Answer    string       `json:"answer"`
	Sources   []SourceJSON `json:"sources"`
	SessionID string       `json:"session_id"`
}

// CourseStats is the body returned by GET /api/courses.
type CourseStats struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = s.rag.CreateSession()
	}

	answer, sources, err := s.rag.Query(r.Context(), req.Query, sessionID)
	if err != nil {
		s.logger.Error().Err(err).Msg("query failed")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, QueryResponse{
		Answer:    answer,
		Sources:   toSourceJSON(sources),
		SessionID: sessionID,
	})
}

func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request) {
	count, titles := s.rag.Analytics()
	if titles == nil {
		titles = []string{}
	}
	s.writeJSON(w, http.StatusOK, CourseStats{TotalCourses: count, CourseTitles: titles})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toSourceJSON(in []tools.Source) []SourceJSON {
	out := make([]SourceJSON, 0, len(in))
	for _, src := range in {
		sj := SourceJSON{Text: src.Text}
		if src.URL != "" {
			u := src.URL
			sj.URL = &u
		}
		out = append(out, sj)
	}
	return out
}
