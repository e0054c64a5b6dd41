package domain

import (
	"time"

	"github.com/google/uuid"
)

// DispatchOutcome names the result of an offer attempt.
type DispatchOutcome string

// List of possible dispatch outcomes
const (
	OutcomeOffered     DispatchOutcome = "offered"
	OutcomeNoCandidate DispatchOutcome = "no_candidate"
)

// DispatchResult - result of dispatching or escalating a job.
type DispatchResult struct {
	JobID      int64
	Outcome    DispatchOutcome
	Assignment *Assignment
}

// AcceptResult - result of a winning accept.
type AcceptResult struct {
	AssignmentID uuid.UUID
	JobID        int64
	MasterID     int64
	AcceptedAt   time.Time
	Invalidated  int
}

// RejectResult - result of a rejection and the escalation it triggered.
type RejectResult struct {
	AssignmentID uuid.UUID
	JobID        int64
	Next         DispatchResult
}

// CancelResult - result of a job cancellation.
type CancelResult struct {
	JobID       int64
	Invalidated int
}

// OfferNotice is sent to a master when a job is offered.
type OfferNotice struct {
	AssignmentID   uuid.UUID
	JobID          int64
	Skill          string
	Location       Point
	DistanceMeters float64
	Attempt        int
	ExpiresAt      time.Time
}

// OutcomeNotice is sent to a client when the dispatch of its job resolves.
type OutcomeNotice struct {
	JobID    int64
	Status   JobStatus
	MasterID *int64
}
