package orchestrator_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	"github.com/petasbytes/course-agent/internal/orchestrator"
	"github.com/petasbytes/course-agent/internal/provider"
	"github.com/petasbytes/course-agent/tools"
)

// scriptedTransport serves one canned response body per backend call, in
// order, and captures every request body it sees.
type scriptedTransport struct {
	responses [][]byte
	bodies    [][]byte
}

func (f *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	b, _ := io.ReadAll(req.Body)
	_ = req.Body.Close()
	f.bodies = append(f.bodies, b)

	if len(f.responses) == 0 {
		return nil, errors.New("scripted transport exhausted")
	}
	body := f.responses[0]
	f.responses = f.responses[1:]

	resp := &http.Response{
		StatusCode: 200,
		Body:       io.NopCloser(bytes.NewReader(body)),
		Header:     make(http.Header),
	}
	resp.Header.Set("Content-Type", "application/json")
	return resp, nil
}

func newClientWithTransport(rt http.RoundTripper) *anthropic.Client {
	c := anthropic.NewClient(
		option.WithHTTPClient(&http.Client{Transport: rt}),
		option.WithAPIKey("test-key"),
	)
	return &c
}

func newOrchestrator(rt http.RoundTripper) *orchestrator.Orchestrator {
	return orchestrator.New(newClientWithTransport(rt), orchestrator.Config{
		Model: provider.DefaultModel,
	}, zerolog.Nop())
}

// echoTool answers with a fixed string, or fails when failWith is set.
type echoTool struct {
	name     string
	reply    string
	failWith string
	calls    int
}

func (e *echoTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{Name: e.name, Description: "test tool"}
}

func (e *echoTool) Execute(input json.RawMessage) (string, error) {
	e.calls++
	if e.failWith != "" {
		return "", errors.New(e.failWith)
	}
	return e.reply, nil
}

func endTurn(text string) []byte {
	return []byte(`{"role":"assistant","stop_reason":"end_turn","content":[{"type":"text","text":` + quote(text) + `}]}`)
}

func toolUse(id, name, input string) []byte {
	return []byte(`{"role":"assistant","stop_reason":"tool_use","content":[{"type":"tool_use","id":"` + id + `","name":"` + name + `","input":` + input + `}]}`)
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// decoded request body, just the parts the assertions need.
type contentItem struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
	Content   []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content,omitempty"`
}

// resultText extracts the text payload of a tool_result block.
func resultText(t *testing.T, item contentItem) string {
	t.Helper()
	if len(item.Content) == 0 {
		t.Fatalf("tool_result has no content: %+v", item)
	}
	return item.Content[0].Text
}

type reqBody struct {
	Model       string   `json:"model"`
	MaxTokens   int      `json:"max_tokens"`
	Temperature *float64 `json:"temperature"`
	System      []struct {
		Text string `json:"text"`
	} `json:"system"`
	Messages []struct {
		Role    string        `json:"role"`
		Content []contentItem `json:"content"`
	} `json:"messages"`
	Tools []struct {
		Name string `json:"name"`
	} `json:"tools"`
}

func decodeBody(t *testing.T, raw []byte) reqBody {
	t.Helper()
	var rb reqBody
	if err := json.Unmarshal(raw, &rb); err != nil {
		t.Fatalf("unmarshal request body: %v\nbody=%s", err, string(raw))
	}
	return rb
}

func hasToolsKey(t *testing.T, raw []byte) bool {
	t.Helper()
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal request body: %v", err)
	}
	_, ok := m["tools"]
	return ok
}

func TestGenerate_NoToolUse_SingleCall(t *testing.T) {
	tool := &echoTool{name: "search_course_content", reply: "unused"}
	reg := tools.NewRegistry(tool)
	fake := &scriptedTransport{responses: [][]byte{endTurn("General knowledge answer")}}
	o := newOrchestrator(fake)

	got, err := o.Generate(context.Background(), "What is Go?", "", reg.Definitions(), reg)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got != "General knowledge answer" {
		t.Fatalf("answer: got %q", got)
	}
	if len(fake.bodies) != 1 {
		t.Fatalf("expected exactly 1 backend call, got %d", len(fake.bodies))
	}
	if tool.calls != 0 {
		t.Fatalf("no tool should execute, got %d calls", tool.calls)
	}

	rb := decodeBody(t, fake.bodies[0])
	if rb.Temperature == nil || *rb.Temperature != 0 {
		t.Fatalf("temperature must be 0, got %v", rb.Temperature)
	}
	if rb.MaxTokens != orchestrator.DefaultMaxTokens {
		t.Fatalf("max_tokens: got %d", rb.MaxTokens)
	}
	if len(rb.Tools) != 1 || rb.Tools[0].Name != "search_course_content" {
		t.Fatalf("catalogue not attached: %+v", rb.Tools)
	}
}

func TestGenerate_OneToolRound_ThenAnswer(t *testing.T) {
	tool := &echoTool{name: "search_course_content", reply: "[CourseA - Lesson 1]\nchunk text"}
	reg := tools.NewRegistry(tool)
	fake := &scriptedTransport{responses: [][]byte{
		toolUse("t1", "search_course_content", `{"query":"lesson topic"}`),
		endTurn("Lesson 1 covers the topic."),
	}}
	o := newOrchestrator(fake)

	got, err := o.Generate(context.Background(), "What does lesson 1 cover?", "", reg.Definitions(), reg)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got != "Lesson 1 covers the topic." {
		t.Fatalf("answer: got %q", got)
	}
	if len(fake.bodies) != 2 {
		t.Fatalf("expected 2 backend calls, got %d", len(fake.bodies))
	}
	if tool.calls != 1 {
		t.Fatalf("tool calls: got %d", tool.calls)
	}

	// Second request carries the full transcript: user query, assistant
	// tool_use, then one user message bundling the tool_result.
	rb := decodeBody(t, fake.bodies[1])
	if len(rb.Messages) != 3 {
		t.Fatalf("expected 3 messages in round 2, got %d", len(rb.Messages))
	}
	if rb.Messages[1].Role != "assistant" || rb.Messages[1].Content[0].Type != "tool_use" || rb.Messages[1].Content[0].ID != "t1" {
		t.Fatalf("assistant tool_use turn: %+v", rb.Messages[1])
	}
	res := rb.Messages[2]
	if res.Role != "user" || res.Content[0].Type != "tool_result" || res.Content[0].ToolUseID != "t1" {
		t.Fatalf("tool_result pairing: %+v", res)
	}
	if res.Content[0].IsError {
		t.Fatal("successful result must not be flagged is_error")
	}

	// Round 2 is still within budget, so the catalogue stays attached.
	if !hasToolsKey(t, fake.bodies[1]) {
		t.Fatal("catalogue should be offered on the second round")
	}
}

func TestGenerate_ToolFailure_EndsRoundsEarly(t *testing.T) {
	tool := &echoTool{name: "search_course_content", failWith: "store unavailable"}
	reg := tools.NewRegistry(tool)
	fake := &scriptedTransport{responses: [][]byte{
		toolUse("t1", "search_course_content", `{"query":"anything"}`),
		endTurn("I could not search the course materials."),
	}}
	o := newOrchestrator(fake)

	got, err := o.Generate(context.Background(), "query", "", reg.Definitions(), reg)
	if err != nil {
		t.Fatalf("tool failure must not surface as error: %v", err)
	}
	if got != "I could not search the course materials." {
		t.Fatalf("answer: got %q", got)
	}
	// Failure at round 1 of 2: exactly one tool round plus the finalization
	// call, never a second tool round.
	if len(fake.bodies) != 2 {
		t.Fatalf("expected 2 backend calls, got %d", len(fake.bodies))
	}

	rb := decodeBody(t, fake.bodies[1])
	res := rb.Messages[2].Content[0]
	if res.Type != "tool_result" || !res.IsError {
		t.Fatalf("failure result should be is_error: %+v", res)
	}
	if text := resultText(t, res); !strings.HasPrefix(text, tools.FailureMarker) || !strings.Contains(text, "store unavailable") {
		t.Fatalf("failure text: %q", text)
	}

	// The concluding call is tools-disabled.
	if hasToolsKey(t, fake.bodies[1]) {
		t.Fatal("finalization call must not offer tools")
	}
}

func TestGenerate_BudgetExhausted_Finalizes(t *testing.T) {
	tool := &echoTool{name: "search_course_content", reply: "result"}
	reg := tools.NewRegistry(tool)
	fake := &scriptedTransport{responses: [][]byte{
		toolUse("t1", "search_course_content", `{"query":"first"}`),
		toolUse("t2", "search_course_content", `{"query":"second"}`),
		endTurn("Combined answer."),
	}}
	o := newOrchestrator(fake)

	got, err := o.Generate(context.Background(), "compare two lessons", "", reg.Definitions(), reg)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got != "Combined answer." {
		t.Fatalf("answer: got %q", got)
	}
	// Round budget 2 fully used: 2 tool rounds + 1 finalization = 3 calls.
	if len(fake.bodies) != 3 {
		t.Fatalf("expected 3 backend calls, got %d", len(fake.bodies))
	}
	if tool.calls != 2 {
		t.Fatalf("tool calls: got %d", tool.calls)
	}
	if hasToolsKey(t, fake.bodies[2]) {
		t.Fatal("finalization call must not offer tools")
	}

	// Finalization sees the full transcript: 1 query + 2 rounds * 2 messages.
	rb := decodeBody(t, fake.bodies[2])
	if len(rb.Messages) != 5 {
		t.Fatalf("finalization transcript: got %d messages", len(rb.Messages))
	}
}

func TestGenerate_MultipleRequestsInOneRound_BundledResults(t *testing.T) {
	search := &echoTool{name: "search_course_content", reply: "search result"}
	outline := &echoTool{name: "get_course_outline", reply: "outline result"}
	reg := tools.NewRegistry(search, outline)
	multi := []byte(`{"role":"assistant","stop_reason":"tool_use","content":[
		{"type":"tool_use","id":"t1","name":"search_course_content","input":{"query":"a"}},
		{"type":"tool_use","id":"t2","name":"get_course_outline","input":{"course_name":"b"}}
	]}`)
	fake := &scriptedTransport{responses: [][]byte{multi, endTurn("done")}}
	o := newOrchestrator(fake)

	if _, err := o.Generate(context.Background(), "query", "", reg.Definitions(), reg); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if search.calls != 1 || outline.calls != 1 {
		t.Fatalf("both tools should run once: search=%d outline=%d", search.calls, outline.calls)
	}

	// Both results travel in a single user message, ordered like the requests.
	rb := decodeBody(t, fake.bodies[1])
	res := rb.Messages[2]
	if res.Role != "user" || len(res.Content) != 2 {
		t.Fatalf("expected one user message with 2 tool_results: %+v", res)
	}
	if res.Content[0].ToolUseID != "t1" || res.Content[1].ToolUseID != "t2" {
		t.Fatalf("result order: %+v", res.Content)
	}
}

func TestGenerate_UnknownToolName_FoldedToFailure(t *testing.T) {
	tool := &echoTool{name: "search_course_content", reply: "ok"}
	reg := tools.NewRegistry(tool)
	fake := &scriptedTransport{responses: [][]byte{
		toolUse("t1", "no_such_tool", `{}`),
		endTurn("fallback answer"),
	}}
	o := newOrchestrator(fake)

	got, err := o.Generate(context.Background(), "query", "", reg.Definitions(), reg)
	if err != nil {
		t.Fatalf("unknown tool must not abort the loop: %v", err)
	}
	if got != "fallback answer" {
		t.Fatalf("answer: got %q", got)
	}

	rb := decodeBody(t, fake.bodies[1])
	res := rb.Messages[2].Content[0]
	if !res.IsError || !strings.HasPrefix(resultText(t, res), tools.FailureMarker) {
		t.Fatalf("unknown tool should become a marked failure result: %+v", res)
	}
}

func TestGenerate_MalformedToolUseStop_DegradesToText(t *testing.T) {
	tool := &echoTool{name: "search_course_content", reply: "unused"}
	reg := tools.NewRegistry(tool)
	// tool_use stop reason but no extractable tool_use block.
	malformed := []byte(`{"role":"assistant","stop_reason":"tool_use","content":[{"type":"text","text":"partial thought"}]}`)
	fake := &scriptedTransport{responses: [][]byte{malformed}}
	o := newOrchestrator(fake)

	got, err := o.Generate(context.Background(), "query", "", reg.Definitions(), reg)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got != "partial thought" {
		t.Fatalf("answer: got %q", got)
	}
	if len(fake.bodies) != 1 || tool.calls != 0 {
		t.Fatalf("malformed output should end the loop: calls=%d dispatches=%d", len(fake.bodies), tool.calls)
	}
}

func TestGenerate_NilRegistry_ReturnsBestEffortText(t *testing.T) {
	tool := &echoTool{name: "search_course_content"}
	catalogue := tools.NewRegistry(tool).Definitions()
	resp := []byte(`{"role":"assistant","stop_reason":"tool_use","content":[
		{"type":"text","text":"I will search for that."},
		{"type":"tool_use","id":"t1","name":"search_course_content","input":{"query":"x"}}
	]}`)
	fake := &scriptedTransport{responses: [][]byte{resp}}
	o := newOrchestrator(fake)

	got, err := o.Generate(context.Background(), "query", "", catalogue, nil)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got != "I will search for that." {
		t.Fatalf("answer: got %q", got)
	}
	if len(fake.bodies) != 1 {
		t.Fatalf("no executor bound, so exactly 1 call: got %d", len(fake.bodies))
	}
}

func TestGenerate_EmptyCatalogue_NoToolsKey(t *testing.T) {
	fake := &scriptedTransport{responses: [][]byte{endTurn("plain answer")}}
	o := newOrchestrator(fake)

	got, err := o.Generate(context.Background(), "query", "", nil, nil)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got != "plain answer" {
		t.Fatalf("answer: got %q", got)
	}
	if hasToolsKey(t, fake.bodies[0]) {
		t.Fatal("empty catalogue must not attach a tools key")
	}
}

func TestGenerate_HistoryAppendedToSystem(t *testing.T) {
	fake := &scriptedTransport{responses: [][]byte{endTurn("ok")}}
	o := newOrchestrator(fake)

	history := "User: What is lesson 1?\nAssistant: It introduces the course."
	if _, err := o.Generate(context.Background(), "And lesson 2?", history, nil, nil); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	rb := decodeBody(t, fake.bodies[0])
	if len(rb.System) != 1 {
		t.Fatalf("expected 1 system block, got %d", len(rb.System))
	}
	sys := rb.System[0].Text
	if !strings.Contains(sys, "Previous conversation:\n"+history) {
		t.Fatalf("history missing from system content: %q", sys)
	}
	if !strings.HasPrefix(sys, orchestrator.SystemPrompt) {
		t.Fatal("system content should start with the base prompt")
	}
}

func TestGenerate_NoHistory_SystemIsBasePrompt(t *testing.T) {
	fake := &scriptedTransport{responses: [][]byte{endTurn("ok")}}
	o := newOrchestrator(fake)

	if _, err := o.Generate(context.Background(), "hello", "", nil, nil); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	rb := decodeBody(t, fake.bodies[0])
	if rb.System[0].Text != orchestrator.SystemPrompt {
		t.Fatal("system content should be exactly the base prompt when history is empty")
	}
}

func TestGenerate_FinalizationWithoutText_ReturnsEmpty(t *testing.T) {
	tool := &echoTool{name: "search_course_content", reply: "result"}
	reg := tools.NewRegistry(tool)
	fake := &scriptedTransport{responses: [][]byte{
		toolUse("t1", "search_course_content", `{"query":"a"}`),
		toolUse("t2", "search_course_content", `{"query":"b"}`),
		[]byte(`{"role":"assistant","stop_reason":"end_turn","content":[]}`),
	}}
	o := newOrchestrator(fake)

	got, err := o.Generate(context.Background(), "query", "", reg.Definitions(), reg)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty answer, got %q", got)
	}
}

func TestGenerate_BackendErrorPropagates(t *testing.T) {
	fake := &scriptedTransport{} // empty queue: transport errors immediately
	o := newOrchestrator(fake)

	if _, err := o.Generate(context.Background(), "query", "", nil, nil); err == nil {
		t.Fatal("expected transport error to propagate")
	}
}
