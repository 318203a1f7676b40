package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/assessment-backend/internal/middleware"
	"github.com/stemsi/assessment-backend/internal/model"
	"github.com/stemsi/assessment-backend/internal/response"
	"github.com/stemsi/assessment-backend/internal/service"
	"github.com/stemsi/assessment-backend/internal/validator"
)

// TestHandler handles test definition endpoints.
type TestHandler struct {
	testService *service.TestService
	now         func() time.Time
}

// NewTestHandler creates a new TestHandler.
func NewTestHandler(testService *service.TestService) *TestHandler {
	return &TestHandler{testService: testService, now: time.Now}
}

// CreateTest godoc
// POST /api/v1/tests
// Creates a scheduled test owned by the caller.
func (h *TestHandler) CreateTest(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.CreateTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	t, err := h.testService.Create(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"test": t})
}

// ListTests godoc
// GET /api/v1/tests
// Lists the tests created by the caller.
func (h *TestHandler) ListTests(c *gin.Context) {
	claims := middleware.GetClaims(c)

	tests, err := h.testService.ListByOwner(c.Request.Context(), claims.UserID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"tests": tests})
}

// GetTest godoc
// GET /api/v1/tests/:id
// Owners and admins get the full definition. Everyone else gets the paper
// without correct answers, and without questions until the window opens.
func (h *TestHandler) GetTest(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, ok := testIDParam(c)
	if !ok {
		return
	}

	t, err := h.testService.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	if service.CanManage(t, claims.UserID, claims.Role) {
		response.Success(c, http.StatusOK, gin.H{"test": t})
		return
	}

	paper := t.Paper()
	if !t.HasStarted(h.now()) {
		paper.Questions = []model.PaperQuestion{}
	}
	response.Success(c, http.StatusOK, gin.H{"test": paper})
}

// UpdateSchedule godoc
// PUT /api/v1/tests/:id/schedule
// Moves the window of a test that has not completed.
func (h *TestHandler) UpdateSchedule(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, ok := testIDParam(c)
	if !ok {
		return
	}

	var req model.UpdateScheduleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	t, err := h.testService.UpdateSchedule(c.Request.Context(), id, claims.UserID, claims.Role, req.StartTime, req.EndTime)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"test": t})
}

// DeleteTest godoc
// DELETE /api/v1/tests/:id
// Deletes a test with its questions and responses.
func (h *TestHandler) DeleteTest(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, ok := testIDParam(c)
	if !ok {
		return
	}

	if err := h.testService.Delete(c.Request.Context(), id, claims.UserID, claims.Role); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Test deleted"})
}
