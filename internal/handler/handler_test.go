package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/assessment-backend/internal/config"
	"github.com/stemsi/assessment-backend/internal/handler"
	"github.com/stemsi/assessment-backend/internal/model"
	"github.com/stemsi/assessment-backend/internal/repository/memory"
	"github.com/stemsi/assessment-backend/internal/router"
	"github.com/stemsi/assessment-backend/internal/service"
	"github.com/stemsi/assessment-backend/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code   string            `json:"code"`
		Fields map[string]string `json:"fields"`
	} `json:"error"`
	Metadata struct {
		RequestID string `json:"request_id"`
	} `json:"metadata"`
}

type server struct {
	engine *gin.Engine
	auth   *service.AuthService
	store  *memory.Store
}

func newServer(t *testing.T) *server {
	t.Helper()
	validator.Setup()

	cfg := &config.Config{
		GinMode:               gin.TestMode,
		JWTSecret:             "handler-secret",
		QuestionCacheTTL:      time.Hour,
		CompleteOnFirstSubmit: true,
		TimeTakenSource:       config.TimeTakenSourceServer,
		AttemptRateLimit:      100,
	}
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := zerolog.Nop()
	store := memory.New()
	cache := service.NewTestCache(rdb, store.Tests(), cfg, log)
	auth := service.NewAuthService(cfg)
	testService := service.NewTestService(store.Tests(), cache, log)
	attemptService := service.NewAttemptService(store.Tests(), store.Responses(), store.Users(), cache, cfg, log)
	leaderboardService := service.NewLeaderboardService(store.Tests(), store.Responses(), log)

	handlers := &router.Handlers{
		Test:    handler.NewTestHandler(testService),
		Attempt: handler.NewAttemptHandler(attemptService, testService, leaderboardService),
	}
	return &server{
		engine: router.SetupRouter(auth, handlers, rdb, cfg, log),
		auth:   auth,
		store:  store,
	}
}

type caller struct {
	id    uuid.UUID
	token string
}

func (s *server) user(t *testing.T, role model.Role, first string) caller {
	t.Helper()
	id := uuid.New()
	s.store.PutUser(model.User{ID: id, FirstName: first, Role: role})
	token, err := s.auth.IssueToken(id, role, first, time.Hour)
	require.NoError(t, err)
	return caller{id: id, token: token}
}

func (s *server) do(t *testing.T, who caller, method, path string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if who.token != "" {
		req.Header.Set("Authorization", "Bearer "+who.token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func errCode(env envelope) string {
	if env.Error == nil {
		return ""
	}
	return env.Error.Code
}

func createBody(start time.Time) gin.H {
	return gin.H{
		"title":      "Biology quiz",
		"start_time": start,
		"end_time":   start.Add(time.Hour),
		"questions": []gin.H{
			{"content": "Cells have", "options": []string{"walls", "nuclei"}, "correct_answer_index": 1, "marks": 4},
			{"content": "DNA is", "options": []string{"acid", "base"}, "correct_answer_index": 0, "marks": 6},
		},
	}
}

func createTest(t *testing.T, s *server, who caller, start time.Time) model.Test {
	t.Helper()
	status, env := s.do(t, who, http.MethodPost, "/api/v1/tests", createBody(start))
	require.Equal(t, http.StatusCreated, status, errCode(env))

	var data struct {
		Test model.Test `json:"test"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.Test
}

func TestAttemptFlowOverHTTP(t *testing.T) {
	s := newServer(t)
	instructor := s.user(t, model.RoleInstructor, "Tess")
	alice := s.user(t, model.RoleStudent, "Alice")
	bob := s.user(t, model.RoleStudent, "Bob")

	tt := createTest(t, s, instructor, time.Now().Add(-time.Minute))
	base := "/api/v1/tests/" + tt.ID.String()

	// Students see the paper without answers.
	status, env := s.do(t, alice, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, string(env.Data), "correct_answer_index")
	assert.Contains(t, string(env.Data), "Cells have")

	status, env = s.do(t, instructor, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), "correct_answer_index")

	status, env = s.do(t, alice, http.MethodPost, base+"/start", nil)
	require.Equal(t, http.StatusCreated, status, errCode(env))
	assert.NotContains(t, string(env.Data), "correct_answer_index")

	status, env = s.do(t, alice, http.MethodPost, base+"/start", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "ATTEMPT_ALREADY_STARTED", errCode(env))

	status, env = s.do(t, bob, http.MethodPut, base+"/submit", gin.H{"answers": []gin.H{}})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "NO_ACTIVE_ATTEMPT", errCode(env))

	dup := gin.H{"answers": []gin.H{
		{"question_id": tt.Questions[0].ID, "selected_index": 1},
		{"question_id": tt.Questions[0].ID, "selected_index": 1},
	}}
	status, env = s.do(t, alice, http.MethodPut, base+"/submit", dup)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "DUPLICATE_ANSWER", errCode(env))

	status, env = s.do(t, alice, http.MethodPut, base+"/submit", gin.H{"answers": []gin.H{{"selected_index": 1}}})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", errCode(env))

	status, _ = s.do(t, alice, http.MethodGet, base+"/leaderboard", nil)
	assert.Equal(t, http.StatusForbidden, status, "no leaderboard while live")

	answers := gin.H{"answers": []gin.H{
		{"question_id": tt.Questions[0].ID, "selected_index": 1},
		{"question_id": tt.Questions[1].ID, "selected_index": 1},
	}}
	status, env = s.do(t, alice, http.MethodPut, base+"/submit", answers)
	require.Equal(t, http.StatusOK, status, errCode(env))
	var submitted struct {
		Result model.SubmitResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &submitted))
	assert.Equal(t, 4, submitted.Result.Score)
	assert.Equal(t, 10, submitted.Result.MaxScore)

	status, env = s.do(t, alice, http.MethodPut, base+"/submit", answers)
	assert.Equal(t, http.StatusForbidden, status, "first submission completed the test")
	assert.Equal(t, "INVALID_TEST_STATE", errCode(env))

	status, env = s.do(t, bob, http.MethodPost, base+"/start", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "INVALID_TEST_STATE", errCode(env))

	status, env = s.do(t, alice, http.MethodGet, base+"/result", nil)
	require.Equal(t, http.StatusOK, status)
	var result struct {
		Result model.TestResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "Biology quiz", result.Result.TestTitle)
	assert.Equal(t, "Alice", result.Result.StudentName)

	status, env = s.do(t, bob, http.MethodGet, base+"/result", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "RESULT_NOT_FOUND", errCode(env))

	status, env = s.do(t, bob, http.MethodGet, base+"/leaderboard", nil)
	require.Equal(t, http.StatusOK, status)
	var lb model.Leaderboard
	require.NoError(t, json.Unmarshal(env.Data, &lb))
	require.Len(t, lb.Entries, 1)
	assert.Equal(t, alice.id, lb.Entries[0].StudentID)
	assert.Equal(t, 1, lb.Entries[0].Rank)
}

func TestLeaderboardOfScheduledTest(t *testing.T) {
	s := newServer(t)
	instructor := s.user(t, model.RoleInstructor, "Tess")
	student := s.user(t, model.RoleStudent, "Sam")

	tt := createTest(t, s, instructor, time.Now().Add(time.Hour))
	require.Equal(t, model.TestStatusScheduled, tt.Status)

	status, env := s.do(t, student, http.MethodGet, "/api/v1/tests/"+tt.ID.String()+"/leaderboard", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "INVALID_TEST_STATE", errCode(env))
}

func TestTestManagementOverHTTP(t *testing.T) {
	s := newServer(t)
	owner := s.user(t, model.RoleInstructor, "Olga")
	other := s.user(t, model.RoleInstructor, "Otto")
	admin := s.user(t, model.RoleAdmin, "Ada")
	student := s.user(t, model.RoleStudent, "Sam")

	status, env := s.do(t, student, http.MethodPost, "/api/v1/tests", createBody(time.Now()))
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errCode(env))

	status, env = s.do(t, caller{}, http.MethodGet, "/api/v1/tests", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "TOKEN_REQUIRED", errCode(env))

	bad := createBody(time.Now())
	bad["end_time"] = time.Now().Add(-time.Hour)
	status, env = s.do(t, owner, http.MethodPost, "/api/v1/tests", bad)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Error.Fields, "end_time")

	future := time.Now().Add(24 * time.Hour)
	tt := createTest(t, s, owner, future)
	base := "/api/v1/tests/" + tt.ID.String()

	status, env = s.do(t, owner, http.MethodGet, "/api/v1/tests", nil)
	require.Equal(t, http.StatusOK, status)
	var list struct {
		Tests []model.Test `json:"tests"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list.Tests, 1)

	// Questions stay hidden from students until the window opens.
	status, env = s.do(t, student, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, status)
	var paper struct {
		Test model.TestPaper `json:"test"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &paper))
	assert.Empty(t, paper.Test.Questions)
	assert.Equal(t, 60, paper.Test.DurationMinutes)

	status, env = s.do(t, student, http.MethodPost, base+"/start", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "TEST_NOT_STARTED", errCode(env))

	schedule := gin.H{"start_time": future.Add(time.Hour), "end_time": future.Add(3 * time.Hour)}
	status, env = s.do(t, other, http.MethodPut, base+"/schedule", schedule)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "NOT_TEST_OWNER", errCode(env))

	status, env = s.do(t, admin, http.MethodPut, base+"/schedule", schedule)
	require.Equal(t, http.StatusOK, status, errCode(env))
	assert.Contains(t, string(env.Data), `"status":"scheduled"`)

	status, env = s.do(t, owner, http.MethodGet, "/api/v1/tests/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_ID", errCode(env))

	status, env = s.do(t, owner, http.MethodGet, "/api/v1/tests/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "TEST_NOT_FOUND", errCode(env))

	status, _ = s.do(t, other, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = s.do(t, owner, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = s.do(t, owner, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHealthAndRequestID(t *testing.T) {
	s := newServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "req-123", env.Metadata.RequestID)
}
