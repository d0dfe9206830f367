package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ippolabs/ippo/internal/coach"
	"github.com/ippolabs/ippo/internal/directory"
	"github.com/ippolabs/ippo/internal/openai"
	"github.com/ippolabs/ippo/internal/review"
	"github.com/ippolabs/ippo/internal/transcript"
)

const testToken = "test-admin-token"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDirectory(t *testing.T) *directory.Directory {
	t.Helper()
	dir := t.TempDir()

	employeesPath := filepath.Join(dir, "employees.json")
	os.WriteFile(employeesPath, []byte(`{
		"E001": {"name": "佐藤 花子", "department": "営業部"},
		"ADMIN01": {"name": "管理者", "department": "人事部"}
	}`), 0o644)

	kpiPath := filepath.Join(dir, "kpis.json")
	os.WriteFile(kpiPath, []byte(`{"営業部": ["売上高", "成約率"]}`), 0o644)

	d, err := directory.Load(employeesPath, kpiPath)
	if err != nil {
		t.Fatalf("load directory: %v", err)
	}
	return d
}

func completionServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": reply}, "finish_reason": "stop"},
			},
		})
	}))
}

func newTestServer(t *testing.T, llmURL string) (*Server, *transcript.Memory) {
	t.Helper()
	llm := openai.NewClient("test-key", "test-model")
	if llmURL != "" {
		llm.SetTestTransport(llmURL)
	}
	dir := testDirectory(t)
	store := transcript.NewMemory()
	sessions := coach.NewSessions()
	c := coach.New(llm, store, nil, discardLogger())
	rev := review.New(llm, store, dir, nil, discardLogger())
	return NewServer(8760, testToken, dir, sessions, c, store, rev, discardLogger()), store
}

func do(t *testing.T, srv *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, "")

	w := do(t, srv, "GET", "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestStartSession_UnknownEmployee(t *testing.T) {
	srv, _ := newTestServer(t, "")

	w := do(t, srv, "POST", "/api/v1/sessions", `{"employee_id":"E999"}`, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestFirstExchangeScenario(t *testing.T) {
	llm := completionServer(t, "共有ありがとうございます。具体的な数字を1つ教えてください。")
	defer llm.Close()
	srv, store := newTestServer(t, llm.URL)

	w := do(t, srv, "POST", "/api/v1/sessions", `{"employee_id":"E001"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var sess sessionResponse
	if err := json.NewDecoder(w.Body).Decode(&sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if sess.Turn != 1 {
		t.Errorf("expected new session at turn 1, got %d", sess.Turn)
	}
	if len(sess.History) != 1 || sess.History[0].Content != coach.Greeting {
		t.Errorf("expected greeting-only history, got %+v", sess.History)
	}
	if len(sess.KPIs) != 2 {
		t.Errorf("expected department KPIs, got %v", sess.KPIs)
	}

	w = do(t, srv, "POST", "/api/v1/sessions/E001/messages", `{"text":"今週は売上が横ばいでした"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var reply coach.Reply
	if err := json.NewDecoder(w.Body).Decode(&reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if reply.Turn != 1 {
		t.Errorf("expected reply at turn 1, got %d", reply.Turn)
	}

	history, _ := store.History(context.Background(), "E001")
	if len(history) != 2 {
		t.Fatalf("expected 2 persisted rows, got %d", len(history))
	}

	w = do(t, srv, "GET", "/api/v1/sessions/E001", "", nil)
	var after sessionResponse
	json.NewDecoder(w.Body).Decode(&after)
	if after.Turn != 2 {
		t.Errorf("expected session at turn 2 after exchange, got %d", after.Turn)
	}
}

func TestPostMessage_EmptyText(t *testing.T) {
	srv, _ := newTestServer(t, "")
	do(t, srv, "POST", "/api/v1/sessions", `{"employee_id":"E001"}`, nil)

	w := do(t, srv, "POST", "/api/v1/sessions/E001/messages", `{"text":"  "}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestPostMessage_NoSession(t *testing.T) {
	srv, _ := newTestServer(t, "")

	w := do(t, srv, "POST", "/api/v1/sessions/E001/messages", `{"text":"こんにちは"}`, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestPostMessage_CompletionFailure(t *testing.T) {
	llm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer llm.Close()
	srv, store := newTestServer(t, llm.URL)
	do(t, srv, "POST", "/api/v1/sessions", `{"employee_id":"E001"}`, nil)

	w := do(t, srv, "POST", "/api/v1/sessions/E001/messages", `{"text":"今週の共有です"}`, nil)
	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", w.Code)
	}
	if history, _ := store.History(context.Background(), "E001"); len(history) != 0 {
		t.Errorf("rows written despite failure: %d", len(history))
	}
}

func TestEndSession(t *testing.T) {
	srv, _ := newTestServer(t, "")
	do(t, srv, "POST", "/api/v1/sessions", `{"employee_id":"E001"}`, nil)

	w := do(t, srv, "DELETE", "/api/v1/sessions/E001", "", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}

	w = do(t, srv, "GET", "/api/v1/sessions/E001", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after logout, got %d", w.Code)
	}
}

func TestGetGoal_Absent(t *testing.T) {
	srv, _ := newTestServer(t, "")

	w := do(t, srv, "GET", "/api/v1/employees/E001/goal", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]any
	json.NewDecoder(w.Body).Decode(&body)
	if body["found"] != false {
		t.Errorf("expected absent goal, got %v", body)
	}
}

func TestPostReview_RequiresAuth(t *testing.T) {
	srv, _ := newTestServer(t, "")

	w := do(t, srv, "POST", "/api/v1/reviews", `{"target_employee_id":"E001"}`, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}

	w = do(t, srv, "POST", "/api/v1/reviews", `{"target_employee_id":"E001"}`, map[string]string{
		"Authorization": "Bearer wrong-token",
		"X-Employee-ID": "ADMIN01",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong token, got %d", w.Code)
	}
}

func TestPostReview_NoData(t *testing.T) {
	srv, _ := newTestServer(t, "")

	w := do(t, srv, "POST", "/api/v1/reviews", `{"target_employee_id":"E001"}`, map[string]string{
		"Authorization": "Bearer " + testToken,
		"X-Employee-ID": "ADMIN01",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var report review.Report
	json.NewDecoder(w.Body).Decode(&report)
	if !report.NoData {
		t.Errorf("expected no-data report, got %+v", report)
	}
}

func TestPostReview_SelfReviewForbidden(t *testing.T) {
	srv, _ := newTestServer(t, "")

	w := do(t, srv, "POST", "/api/v1/reviews", `{"target_employee_id":"ADMIN01"}`, map[string]string{
		"Authorization": "Bearer " + testToken,
		"X-Employee-ID": "ADMIN01",
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

func TestGetTranscriptCSV(t *testing.T) {
	llm := completionServer(t, "共有ありがとうございます。")
	defer llm.Close()
	srv, _ := newTestServer(t, llm.URL)
	do(t, srv, "POST", "/api/v1/sessions", `{"employee_id":"E001"}`, nil)
	do(t, srv, "POST", "/api/v1/sessions/E001/messages", `{"text":"今週の共有です"}`, nil)

	w := do(t, srv, "GET", "/api/v1/employees/E001/transcript.csv", "", map[string]string{
		"Authorization": "Bearer " + testToken,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("expected text/csv content type, got %q", ct)
	}
	body := w.Body.String()
	if !strings.HasPrefix(body, "\uFEFF") {
		t.Error("expected UTF-8 BOM")
	}
	if !strings.Contains(body, "今週の共有です") {
		t.Errorf("expected exported row, got %q", body)
	}
}
