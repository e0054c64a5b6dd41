package kafka

import (
	"strings"
	"time"

	"service-master-dispatch/internal/domain"
	"service-master-dispatch/internal/service/jobs"
)

// EventDTO is the wire form of a job lifecycle event.
// Created events may embed the job; lat and lon are used only together.
type EventDTO struct {
	JobID      int64     `json:"job_id"`
	Status     string    `json:"status"`
	ClientID   int64     `json:"client_id,omitempty"`
	Skill      string    `json:"skill,omitempty"`
	Lat        *float64  `json:"lat,omitempty"`
	Lon        *float64  `json:"lon,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ToDomain converts EventDTO to jobs.Event
func ToDomain(dto EventDTO) jobs.Event {
	e := jobs.Event{
		JobID:      dto.JobID,
		Status:     strings.TrimSpace(dto.Status),
		ClientID:   dto.ClientID,
		Skill:      strings.TrimSpace(dto.Skill),
		OccurredAt: dto.OccurredAt,
	}
	if dto.Lat != nil && dto.Lon != nil {
		e.Location = &domain.Point{Lat: *dto.Lat, Lon: *dto.Lon}
	}
	return e
}
