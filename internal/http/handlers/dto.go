package handlers

import "time"

type pointDTO struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

type submitJobRequest struct {
	ID       int64     `json:"id" validate:"gt=0"`
	ClientID int64     `json:"client_id" validate:"gte=0"`
	Skill    string    `json:"skill" validate:"required,max=64"`
	Location *pointDTO `json:"location" validate:"required"`
}

type dispatchResponse struct {
	JobID          int64      `json:"job_id"`
	Outcome        string     `json:"outcome"`
	AssignmentID   string     `json:"assignment_id,omitempty"`
	MasterID       int64      `json:"master_id,omitempty"`
	Attempt        int        `json:"attempt,omitempty"`
	DistanceMeters float64    `json:"distance_m,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

type cancelResponse struct {
	JobID       int64  `json:"job_id"`
	Status      string `json:"status"`
	Invalidated int    `json:"invalidated"`
}

type jobStatusResponse struct {
	JobID  int64  `json:"job_id"`
	Status string `json:"status"`
}

type assignmentDTO struct {
	ID              string     `json:"id"`
	JobID           int64      `json:"job_id"`
	MasterID        int64      `json:"master_id"`
	Status          string     `json:"status"`
	Attempt         int        `json:"attempt"`
	DistanceMeters  float64    `json:"distance_m"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ExpiresAt       time.Time  `json:"expires_at"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
}

type acceptRequest struct {
	MasterID int64 `json:"master_id" validate:"gt=0"`
}

type acceptResponse struct {
	AssignmentID string    `json:"assignment_id"`
	JobID        int64     `json:"job_id"`
	MasterID     int64     `json:"master_id"`
	AcceptedAt   time.Time `json:"accepted_at"`
	Invalidated  int       `json:"invalidated"`
}

type rejectRequest struct {
	MasterID int64  `json:"master_id" validate:"gt=0"`
	Reason   string `json:"reason" validate:"max=500"`
}

type rejectResponse struct {
	AssignmentID string            `json:"assignment_id"`
	JobID        int64             `json:"job_id"`
	Next         string            `json:"next"`
	Offer        *dispatchResponse `json:"offer,omitempty"`
}

type optimizeRequest struct {
	JobIDs []int64   `json:"job_ids" validate:"required,min=1,max=200,dive,gt=0"`
	Start  *pointDTO `json:"start,omitempty"`
}

type legDTO struct {
	JobID              int64   `json:"job_id"`
	Lat                float64 `json:"lat"`
	Lon                float64 `json:"lon"`
	DistanceMeters     float64 `json:"distance_m"`
	DurationSeconds    float64 `json:"duration_s"`
	CumulativeDistance float64 `json:"cumulative_distance_m"`
}

type routeResponse struct {
	Start                pointDTO `json:"start"`
	Legs                 []legDTO `json:"legs"`
	TotalDistanceMeters  float64  `json:"total_distance_m"`
	TotalDurationSeconds float64  `json:"total_duration_s"`
}

type masterDTO struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Location  *pointDTO `json:"location,omitempty"`
	Skills    []string  `json:"skills"`
	Available bool      `json:"available"`
	Verified  bool      `json:"verified"`
}

type shiftRequest struct {
	Available *bool `json:"available" validate:"required"`
}
