package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/assessment-backend/internal/model"
	"github.com/stemsi/assessment-backend/internal/response"
	"github.com/stemsi/assessment-backend/internal/service"
	"github.com/stemsi/assessment-backend/internal/validator"
)

// serviceErrors maps domain errors onto HTTP status and API code.
var serviceErrors = []struct {
	err    error
	status int
	code   response.ErrCode
}{
	{service.ErrTestNotFound, http.StatusNotFound, response.ErrTestNotFound},
	{service.ErrResultNotFound, http.StatusNotFound, response.ErrResultNotFound},
	{service.ErrInvalidState, http.StatusForbidden, response.ErrInvalidTestState},
	{service.ErrTooEarly, http.StatusForbidden, response.ErrTestNotStarted},
	{service.ErrExpired, http.StatusForbidden, response.ErrTestExpired},
	{service.ErrNoActiveAttempt, http.StatusForbidden, response.ErrNoActiveAttempt},
	{service.ErrNotTestOwner, http.StatusForbidden, response.ErrNotTestOwner},
	{service.ErrAlreadyStarted, http.StatusConflict, response.ErrAttemptStarted},
	{service.ErrAlreadySubmitted, http.StatusConflict, response.ErrAttemptSubmitted},
	{service.ErrDuplicateAnswer, http.StatusBadRequest, response.ErrDuplicateAnswer},
}

// fail writes the response for a service error. Unknown errors are logged
// and reported as a bare 500.
func fail(c *gin.Context, err error) {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, validator.TranslateErrors(err))
		return
	}

	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			response.Fail(c, m.status, m.code)
			return
		}
	}

	_ = c.Error(err)
	zerolog.Ctx(c.Request.Context()).Error().Err(err).
		Str("method", c.Request.Method).
		Str("path", c.FullPath()).
		Msg("Unhandled service error")
	response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
}

// testIDParam parses the :id path parameter, writing a 400 on failure.
func testIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
