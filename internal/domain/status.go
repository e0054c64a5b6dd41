package domain

// List of possible job statuses
const (
	JobStatusNew        JobStatus = "new"
	JobStatusAssigned   JobStatus = "assigned"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusCancelled  JobStatus = "cancelled"
	JobStatusUnassigned JobStatus = "unassigned"
)

// List of possible assignment statuses
const (
	AssignmentPending  AssignmentStatus = "pending"
	AssignmentAccepted AssignmentStatus = "accepted"
	AssignmentRejected AssignmentStatus = "rejected"
	AssignmentExpired  AssignmentStatus = "expired"
)

var allowedJobStatuses = [...]JobStatus{
	JobStatusNew, JobStatusAssigned, JobStatusInProgress,
	JobStatusCompleted, JobStatusCancelled, JobStatusUnassigned,
}

// Valid checks if the JobStatus is valid
func (s JobStatus) Valid() bool {
	for _, v := range allowedJobStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible from the status.
func (s AssignmentStatus) Terminal() bool {
	return s != AssignmentPending
}
