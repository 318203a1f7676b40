package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/assessment-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bindBody(t *testing.T, body string, dst interface{}) map[string]string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	Setup()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return Bind(c, dst)
}

func TestBindReportsNestedFieldPaths(t *testing.T) {
	body := `{
		"title": "Quiz",
		"start_time": "2026-01-01T10:00:00Z",
		"end_time": "2026-01-01T11:00:00Z",
		"questions": [
			{"content": "q", "options": ["a", "b"], "correct_answer_index": 0, "marks": 1},
			{"content": "q", "options": ["a", "b"], "correct_answer_index": 0, "marks": 0}
		]
	}`

	var req model.CreateTestRequest
	fields := bindBody(t, body, &req)

	require.NotNil(t, fields)
	assert.Contains(t, fields, "questions[1].marks")
}

func TestBindRejectsWindowOrder(t *testing.T) {
	body := `{
		"title": "Quiz",
		"start_time": "2026-01-01T11:00:00Z",
		"end_time": "2026-01-01T10:00:00Z",
		"questions": [{"content": "q", "options": ["a", "b"], "correct_answer_index": 0, "marks": 1}]
	}`

	var req model.CreateTestRequest
	fields := bindBody(t, body, &req)

	assert.Contains(t, fields, "end_time")
}

func TestBindRequiresCorrectAnswerIndex(t *testing.T) {
	body := `{
		"title": "Quiz",
		"start_time": "2026-01-01T10:00:00Z",
		"end_time": "2026-01-01T11:00:00Z",
		"questions": [{"content": "q", "options": ["a", "b"], "marks": 1}]
	}`

	var req model.CreateTestRequest
	fields := bindBody(t, body, &req)

	assert.Contains(t, fields, "questions[0].correct_answer_index")
}

func TestBindAcceptsValidSubmission(t *testing.T) {
	body := `{"answers": [{"question_id": "5b0f4a9e-8f61-4f6a-9d0a-1f4b6c3e2a10", "selected_index": 2}]}`

	var req model.SubmitTestRequest
	fields := bindBody(t, body, &req)

	assert.Nil(t, fields)
	require.Len(t, req.Answers, 1)
	assert.Equal(t, 2, req.Answers[0].SelectedIndex)
}

func TestTranslateErrorsDomainAndSyntax(t *testing.T) {
	fields := TranslateErrors(&model.ValidationError{Field: "end_time", Reason: "must be after start_time"})
	assert.Equal(t, map[string]string{"end_time": "must be after start_time"}, fields)

	var req model.SubmitTestRequest
	fields = bindBody(t, `{"answers": [`, &req)
	assert.Contains(t, fields, "detail")
}
