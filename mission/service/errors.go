package service

import "errors"

// Shared by the session and plan managers so callers can match with errors.Is
// regardless of which layer produced the error.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrPlanNotFound    = errors.New("mission plan not found")
	ErrInvalidPlan     = errors.New("invalid mission plan")
)
