package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/assessment-backend/internal/middleware"
	"github.com/stemsi/assessment-backend/internal/model"
	"github.com/stemsi/assessment-backend/internal/response"
	"github.com/stemsi/assessment-backend/internal/service"
	"github.com/stemsi/assessment-backend/internal/validator"
)

// AttemptHandler handles the student-facing start, submit, result and
// leaderboard endpoints.
type AttemptHandler struct {
	attemptService     *service.AttemptService
	testService        *service.TestService
	leaderboardService *service.LeaderboardService
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(
	attemptService *service.AttemptService,
	testService *service.TestService,
	leaderboardService *service.LeaderboardService,
) *AttemptHandler {
	return &AttemptHandler{
		attemptService:     attemptService,
		testService:        testService,
		leaderboardService: leaderboardService,
	}
}

// StartTest godoc
// POST /api/v1/tests/:id/start
// Opens the caller's attempt and returns it with the test paper.
func (h *AttemptHandler) StartTest(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, ok := testIDParam(c)
	if !ok {
		return
	}

	rec, err := h.attemptService.StartTest(c.Request.Context(), id, claims.UserID)
	if err != nil {
		fail(c, err)
		return
	}

	t, err := h.testService.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"response": rec,
		"test":     t.Paper(),
	})
}

// SubmitTest godoc
// PUT /api/v1/tests/:id/submit
// Grades the caller's answers.
func (h *AttemptHandler) SubmitTest(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, ok := testIDParam(c)
	if !ok {
		return
	}

	var req model.SubmitTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.attemptService.SubmitTest(c.Request.Context(), id, claims.UserID, &req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// GetResult godoc
// GET /api/v1/tests/:id/result
// Returns the caller's own graded or in-progress attempt.
func (h *AttemptHandler) GetResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, ok := testIDParam(c)
	if !ok {
		return
	}

	result, err := h.attemptService.GetResult(c.Request.Context(), id, claims.UserID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// GetLeaderboard godoc
// GET /api/v1/tests/:id/leaderboard
func (h *AttemptHandler) GetLeaderboard(c *gin.Context) {
	id, ok := testIDParam(c)
	if !ok {
		return
	}

	lb, err := h.leaderboardService.Rank(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, lb)
}
