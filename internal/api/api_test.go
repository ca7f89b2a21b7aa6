package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/scriptboard/backend/internal/api"
	"github.com/scriptboard/backend/internal/content"
	"github.com/scriptboard/backend/internal/domain/selection"
	"github.com/scriptboard/backend/internal/service"
	"github.com/scriptboard/backend/internal/store"
)

type testServer struct {
	handler http.Handler
	quiz    *service.QuizService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := store.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.DiscardHandler)
	keeper := service.NewHistoryKeeper(db, logger)
	quiz := service.NewQuizService(db, keeper,
		content.StaticScenarioWriter{}, content.StaticIllustrator{},
		logger,
		service.QuizOptions{Selector: selection.New(selection.WithRand(selection.Seeded(3)))},
	)

	mux := http.NewServeMux()
	api.RegisterRoutes(mux, api.NewHandler(db, quiz, keeper, logger))

	return &testServer{
		handler: api.Logging(logger)(api.CORS(mux)),
		quiz:    quiz,
	}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func (s *testServer) seed(t *testing.T, learnerID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		body := fmt.Sprintf(`{"text":"phrase %d"}`, i)
		if rec := s.do(t, "POST", "/learners/"+learnerID+"/scripts", body); rec.Code != http.StatusCreated {
			t.Fatalf("seed script: status %d, body %s", rec.Code, rec.Body.String())
		}
	}
}

func (s *testServer) startQuiz(t *testing.T, learnerID string) api.QuizResponse {
	t.Helper()
	rec := s.do(t, "POST", "/learners/"+learnerID+"/quizzes", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("start quiz: status %d, body %s", rec.Code, rec.Body.String())
	}
	started := decode[api.QuizResponse](t, rec)
	if started.State != "loading" {
		t.Errorf("expected loading, got %q", started.State)
	}

	s.quiz.WaitForSession(started.SessionID)

	rec = s.do(t, "GET", "/quizzes/"+started.SessionID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get quiz: status %d", rec.Code)
	}
	return decode[api.QuizResponse](t, rec)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, "GET", "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decode[map[string]string](t, rec); got["status"] != "ok" {
		t.Errorf("unexpected body %v", got)
	}
}

func TestCreateScript(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, "POST", "/learners/a/scripts", `{"text":"  I want juice  ","category":"target"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[api.ScriptResponse](t, rec)
	if got.Text != "I want juice" || got.Category != "target" || got.ID == "" {
		t.Errorf("unexpected script %+v", got)
	}
}

func TestCreateScript_Invalid(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty text", `{"text":"   "}`},
		{"bad category", `{"text":"hi","category":"urgent"}`},
		{"malformed json", `{"text":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, "POST", "/learners/a/scripts", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
			if got := decode[api.ErrorResponse](t, rec); got.Error == "" {
				t.Error("expected error message")
			}
		})
	}
}

func TestListAndDeleteScripts(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "a", 2)
	s.seed(t, "b", 1)

	scripts := decode[[]api.ScriptResponse](t, s.do(t, "GET", "/learners/a/scripts", ""))
	if len(scripts) != 2 {
		t.Fatalf("expected 2 scripts, got %d", len(scripts))
	}

	one := decode[api.ScriptResponse](t, s.do(t, "GET", "/learners/a/scripts/"+scripts[0].ID, ""))
	if one.ID != scripts[0].ID || one.Text != scripts[0].Text {
		t.Errorf("expected %+v, got %+v", scripts[0], one)
	}
	if rec := s.do(t, "GET", "/learners/b/scripts/"+scripts[0].ID, ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 reading another learner's script, got %d", rec.Code)
	}

	if rec := s.do(t, "DELETE", "/learners/a/scripts/"+scripts[0].ID, ""); rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if rec := s.do(t, "DELETE", "/learners/a/scripts/"+scripts[0].ID, ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", rec.Code)
	}
	if rec := s.do(t, "DELETE", "/learners/b/scripts/"+scripts[1].ID, ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for another learner's script, got %d", rec.Code)
	}

	if rec := s.do(t, "GET", "/learners/a/scripts/"+scripts[0].ID, ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}

	scripts = decode[[]api.ScriptResponse](t, s.do(t, "GET", "/learners/a/scripts", ""))
	if len(scripts) != 1 {
		t.Errorf("expected 1 script left, got %d", len(scripts))
	}
}

func TestStartQuiz_NotEnoughScripts(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "a", 3)

	rec := s.do(t, "POST", "/learners/a/quizzes", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
}

func TestQuizFlow(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "a", 5)

	quiz := s.startQuiz(t, "a")
	if quiz.State != "active" {
		t.Fatalf("expected active, got %q (%s)", quiz.State, quiz.Message)
	}
	if len(quiz.Options) != 4 {
		t.Fatalf("expected 4 options, got %d", len(quiz.Options))
	}
	if quiz.Scenario == "" || quiz.Image == nil || len(quiz.Image.Data) == 0 {
		t.Error("expected scenario and image")
	}
	if quiz.CorrectID != "" {
		t.Error("correct answer must not be revealed while active")
	}

	path := "/quizzes/" + quiz.SessionID + "/answers"

	rec := s.do(t, "POST", path, `{"script_id":"unknown"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown option, got %d", rec.Code)
	}
	if rec := s.do(t, "POST", path, `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing script_id, got %d", rec.Code)
	}

	// Try options until one is correct.
	var solved api.QuizResponse
	for _, o := range quiz.Options {
		rec := s.do(t, "POST", path, fmt.Sprintf(`{"script_id":%q}`, o.ID))
		if rec.Code != http.StatusOK {
			t.Fatalf("answer: status %d, body %s", rec.Code, rec.Body.String())
		}
		got := decode[api.QuizResponse](t, rec)
		if got.State == "correct" {
			solved = got
			break
		}
		if got.State != "active" {
			t.Fatalf("expected active after wrong pick, got %q", got.State)
		}
		if got.AnsweredIDs[len(got.AnsweredIDs)-1] != o.ID {
			t.Errorf("expected %q to be marked answered, got %v", o.ID, got.AnsweredIDs)
		}
	}
	if solved.CorrectID == "" {
		t.Fatal("expected to solve the quiz")
	}

	if rec := s.do(t, "POST", path, fmt.Sprintf(`{"script_id":%q}`, solved.CorrectID)); rec.Code != http.StatusConflict {
		t.Errorf("expected 409 after solving, got %d", rec.Code)
	}

	hist := decode[[]api.HistoryEntryResponse](t, s.do(t, "GET", "/learners/a/history", ""))
	if len(hist) != 1 || hist[0].ScriptID != solved.CorrectID {
		t.Errorf("expected one history entry for %q, got %+v", solved.CorrectID, hist)
	}
}

func TestQuizCloseReopenDelete(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "a", 4)
	quiz := s.startQuiz(t, "a")
	base := "/quizzes/" + quiz.SessionID

	if rec := s.do(t, "POST", base+"/open", ""); rec.Code != http.StatusConflict {
		t.Errorf("expected 409 when reopening an active quiz, got %d", rec.Code)
	}

	rec := s.do(t, "POST", base+"/close", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("close: status %d", rec.Code)
	}
	if got := decode[api.QuizResponse](t, rec); got.State != "idle" || len(got.Options) != 0 {
		t.Errorf("expected bare idle state, got %+v", got)
	}

	if rec := s.do(t, "POST", base+"/answers", `{"script_id":"x"}`); rec.Code != http.StatusConflict {
		t.Errorf("expected 409 answering an idle quiz, got %d", rec.Code)
	}

	if rec := s.do(t, "POST", base+"/open", ""); rec.Code != http.StatusAccepted {
		t.Fatalf("reopen: status %d, body %s", rec.Code, rec.Body.String())
	}
	s.quiz.WaitForSession(quiz.SessionID)
	if got := decode[api.QuizResponse](t, s.do(t, "GET", base, "")); got.State != "active" {
		t.Errorf("expected active after reopen, got %q", got.State)
	}

	if rec := s.do(t, "DELETE", base, ""); rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if rec := s.do(t, "GET", base, ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestStartQuiz_ReferenceImage(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "a", 4)

	if rec := s.do(t, "POST", "/learners/a/quizzes", `{"reference_image":{"data":"","mime_type":"image/png"}}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty reference image, got %d", rec.Code)
	}

	body, _ := json.Marshal(api.OpenQuizRequest{
		ReferenceImage: &api.ImagePayload{Data: []byte{0x89, 'P', 'N', 'G'}, MIMEType: "image/png"},
	})
	rec := s.do(t, "POST", "/learners/a/quizzes", string(body))
	if rec.Code != http.StatusAccepted {
		t.Errorf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUnknownQuiz(t *testing.T) {
	s := newTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{"GET", "/quizzes/nope"},
		{"POST", "/quizzes/nope/close"},
		{"DELETE", "/quizzes/nope"},
	} {
		if rec := s.do(t, tc.method, tc.path, ""); rec.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected 404, got %d", tc.method, tc.path, rec.Code)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, "OPTIONS", "/learners/a/scripts", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected CORS header")
	}
}

func TestLoggingRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := api.Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/x", nil))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["status"] != float64(http.StatusTeapot) || line["path"] != "/x" {
		t.Errorf("unexpected log line %v", line)
	}
}
