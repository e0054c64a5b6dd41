package jobs

import (
	"time"

	"service-master-dispatch/internal/domain"
)

// Event is a single job lifecycle event published by the job owner.
// Created events may carry the job itself; without it the job must already be stored.
type Event struct {
	JobID      int64
	Status     string
	ClientID   int64
	Skill      string
	Location   *domain.Point
	OccurredAt time.Time
}

func (e Event) carriesJob() bool {
	return e.Skill != "" || e.Location != nil
}

func (e Event) job() domain.Job {
	return domain.Job{
		ID:       e.JobID,
		ClientID: e.ClientID,
		Skill:    e.Skill,
		Location: e.Location,
	}
}
