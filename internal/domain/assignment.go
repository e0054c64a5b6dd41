package domain

import (
	"time"

	"github.com/google/uuid"
)

// AssignmentStatus represents the status of a single timed offer.
type AssignmentStatus string

// Assignment is one timed offer of a job to a master.
type Assignment struct {
	ID              uuid.UUID
	JobID           int64
	MasterID        int64
	Status          AssignmentStatus
	Attempt         int
	DistanceMeters  float64
	RejectionReason string
	CreatedAt       time.Time
	ExpiresAt       time.Time
	ResolvedAt      *time.Time
}

// DueAt reports whether the offer TTL has passed at now.
func (a *Assignment) DueAt(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}
