package models

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across services. Handlers map these onto HTTP
// status codes; services wrap them with %w so errors.Is/As survive the
// component boundaries.
var (
	ErrDocumentNotFound = errors.New("source document not found")
	ErrJobNotFound      = errors.New("parse job not found")
	ErrAccountNotFound  = errors.New("account not found")
	ErrNoMessage        = errors.New("no messages in queue")

	// ErrUnauthorizedKnowledgeBase is returned when an account queries or
	// mutates a knowledge base it does not own.
	ErrUnauthorizedKnowledgeBase = errors.New("account does not own this knowledge base")
)

// InsufficientCreditsError is returned when a deduction would drive the
// balance negative. It names required vs available so callers can surface
// a 402-style message.
type InsufficientCreditsError struct {
	AccountID string
	Required  int64
	Available int64
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits for account %s: required %d, available %d",
		e.AccountID, e.Required, e.Available)
}

// PlanLimitExceededError is returned when a submission would push a
// knowledge base past the account's plan size cap. The message states
// current usage and the limit, per the resource-limit error contract.
type PlanLimitExceededError struct {
	AccountID string
	UsedBytes int64
	Requested int64
	MaxBytes  int64
}

func (e *PlanLimitExceededError) Error() string {
	return fmt.Sprintf("plan size limit exceeded for account %s: used %d bytes + requested %d bytes > limit %d bytes",
		e.AccountID, e.UsedBytes, e.Requested, e.MaxBytes)
}

// InvalidTransitionError is returned when a job status update would move
// backward in the defined state order.
type InvalidTransitionError struct {
	JobID string
	From  JobStatus
	To    JobStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition for job %s: %s -> %s", e.JobID, e.From, e.To)
}
