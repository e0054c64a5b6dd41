package domain

import "time"

// JobStatus represents the lifecycle status of a repair job.
type JobStatus string

// Job represents a repair-service request with a location and a required skill.
type Job struct {
	ID        int64
	ClientID  int64
	Location  *Point
	Skill     string
	Status    JobStatus
	MasterID  *int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Open reports whether the job still accepts offers.
func (j *Job) Open() bool {
	return j.Status == JobStatusNew || j.Status == JobStatusUnassigned
}
