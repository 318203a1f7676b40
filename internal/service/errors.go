package service

import "errors"

// Domain errors returned by the test, attempt and leaderboard services.
var (
	ErrTestNotFound     = errors.New("test not found")
	ErrResultNotFound   = errors.New("result not found")
	ErrInvalidState     = errors.New("test is not in a valid state for this action")
	ErrTooEarly         = errors.New("test has not started yet")
	ErrExpired          = errors.New("test window has ended")
	ErrNoActiveAttempt  = errors.New("no active attempt for this test")
	ErrAlreadyStarted   = errors.New("test already started by this student")
	ErrAlreadySubmitted = errors.New("test already submitted by this student")
	ErrNotTestOwner     = errors.New("not the owner of this test")
	ErrDuplicateAnswer  = errors.New("question answered more than once")
)
