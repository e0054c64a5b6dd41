// Package memstore keeps jobs, masters and assignments in process memory.
// Transactions are serialized by a single store-wide lock and rolled back from a snapshot.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"service-master-dispatch/internal/apperr"
	"service-master-dispatch/internal/domain"
	"service-master-dispatch/internal/ports/dispatchtx"
)

// Store is an in-memory job, assignment and master store.
type Store struct {
	mu          sync.Mutex
	jobs        map[int64]domain.Job
	assignments map[uuid.UUID]domain.Assignment

	mastersMu sync.RWMutex
	masters   map[int64]domain.Master
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		jobs:        make(map[int64]domain.Job),
		assignments: make(map[uuid.UUID]domain.Assignment),
		masters:     make(map[int64]domain.Master),
	}
}

// WithTx runs fn while holding the store lock. Changes made by fn are discarded
// when it returns an error or panics.
func (s *Store) WithTx(ctx context.Context, fn func(tx dispatchtx.Repository) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	jobs, assignments := s.snapshot()
	defer func() {
		if p := recover(); p != nil {
			s.jobs, s.assignments = jobs, assignments
			panic(p)
		}
	}()

	if err := fn(&txRepo{s: s}); err != nil {
		s.jobs, s.assignments = jobs, assignments
		return err
	}
	return nil
}

func (s *Store) snapshot() (map[int64]domain.Job, map[uuid.UUID]domain.Assignment) {
	jobs := make(map[int64]domain.Job, len(s.jobs))
	for k, v := range s.jobs {
		jobs[k] = v
	}
	assignments := make(map[uuid.UUID]domain.Assignment, len(s.assignments))
	for k, v := range s.assignments {
		assignments[k] = v
	}
	return jobs, assignments
}

// GetJob returns a job by id or nil.
func (s *Store) GetJob(_ context.Context, id int64) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, nil
	}
	return cloneJob(j), nil
}

// ListJobsByIDs returns the known jobs among ids, in the order of ids.
func (s *Store) ListJobsByIDs(_ context.Context, ids []int64) ([]domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Job, 0, len(ids))
	for _, id := range ids {
		if j, ok := s.jobs[id]; ok {
			out = append(out, *cloneJob(j))
		}
	}
	return out, nil
}

// ListActiveByMaster returns assigned and in-progress jobs of a master ordered by id.
func (s *Store) ListActiveByMaster(_ context.Context, masterID int64) ([]domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Job
	for _, j := range s.jobs {
		if j.MasterID == nil || *j.MasterID != masterID {
			continue
		}
		if j.Status == domain.JobStatusAssigned || j.Status == domain.JobStatusInProgress {
			out = append(out, *cloneJob(j))
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out, nil
}

// ListAssignments returns every assignment of a job ordered by attempt.
func (s *Store) ListAssignments(_ context.Context, jobID int64) ([]domain.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assignmentsByJob(jobID), nil
}

// ListDuePending returns up to limit pending assignments with expiresAt <= now, oldest deadline first.
func (s *Store) ListDuePending(_ context.Context, now time.Time, limit int) ([]domain.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Assignment
	for _, a := range s.assignments {
		if a.Status == domain.AssignmentPending && a.DueAt(now) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, k int) bool {
		if !out[i].ExpiresAt.Equal(out[k].ExpiresAt) {
			return out[i].ExpiresAt.Before(out[k].ExpiresAt)
		}
		return out[i].ID.String() < out[k].ID.String()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) assignmentsByJob(jobID int64) []domain.Assignment {
	var out []domain.Assignment
	for _, a := range s.assignments {
		if a.JobID == jobID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Attempt < out[k].Attempt })
	return out
}

// PutMaster inserts or replaces a master.
func (s *Store) PutMaster(m domain.Master) {
	s.mastersMu.Lock()
	defer s.mastersMu.Unlock()
	s.masters[m.ID] = cloneMaster(m)
}

// GetMaster returns a master by id or nil.
func (s *Store) GetMaster(_ context.Context, id int64) (*domain.Master, error) {
	s.mastersMu.RLock()
	defer s.mastersMu.RUnlock()

	m, ok := s.masters[id]
	if !ok {
		return nil, nil
	}
	c := cloneMaster(m)
	return &c, nil
}

// SetAvailability toggles the shift flag of a master and reports whether the master exists.
func (s *Store) SetAvailability(_ context.Context, id int64, available bool) (bool, error) {
	s.mastersMu.Lock()
	defer s.mastersMu.Unlock()

	m, ok := s.masters[id]
	if !ok {
		return false, nil
	}
	m.Available = available
	s.masters[id] = m
	return true, nil
}

// FindEligible returns available verified masters carrying skill, ordered by id.
func (s *Store) FindEligible(_ context.Context, skill string) ([]domain.Master, error) {
	s.mastersMu.RLock()
	defer s.mastersMu.RUnlock()

	var out []domain.Master
	for _, m := range s.masters {
		if m.Available && m.Verified && m.HasSkill(skill) {
			out = append(out, cloneMaster(m))
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out, nil
}

type txRepo struct {
	s *Store
}

func (r *txRepo) InsertJob(_ context.Context, j *domain.Job) (bool, error) {
	if _, ok := r.s.jobs[j.ID]; ok {
		return false, nil
	}
	r.s.jobs[j.ID] = *cloneJob(*j)
	return true, nil
}

func (r *txRepo) GetJobForUpdate(_ context.Context, id int64) (*domain.Job, error) {
	j, ok := r.s.jobs[id]
	if !ok {
		return nil, nil
	}
	return cloneJob(j), nil
}

func (r *txRepo) UpdateJobStatus(_ context.Context, id int64, status domain.JobStatus, masterID *int64) error {
	j, ok := r.s.jobs[id]
	if !ok {
		return fmt.Errorf("job %d not found", id)
	}
	j.Status = status
	j.MasterID = cloneID(masterID)
	j.UpdatedAt = time.Now().UTC()
	r.s.jobs[id] = j
	return nil
}

func (r *txRepo) GetAssignment(_ context.Context, id uuid.UUID) (*domain.Assignment, error) {
	a, ok := r.s.assignments[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *txRepo) ListAssignmentsByJob(_ context.Context, jobID int64) ([]domain.Assignment, error) {
	return r.s.assignmentsByJob(jobID), nil
}

func (r *txRepo) InsertAssignment(_ context.Context, a *domain.Assignment) error {
	if !a.ExpiresAt.After(a.CreatedAt) {
		return fmt.Errorf("assignment %s expires before creation: %w", a.ID, apperr.ErrInvalid)
	}
	if _, ok := r.s.assignments[a.ID]; ok {
		return fmt.Errorf("assignment %s: %w", a.ID, apperr.ErrConflict)
	}
	for _, other := range r.s.assignments {
		if other.JobID != a.JobID {
			continue
		}
		if other.MasterID == a.MasterID || other.Attempt == a.Attempt {
			return fmt.Errorf("job %d already offered to master %d or attempt %d used: %w",
				a.JobID, a.MasterID, a.Attempt, apperr.ErrConflict)
		}
	}
	r.s.assignments[a.ID] = *a
	return nil
}

func (r *txRepo) ResolveAssignment(
	_ context.Context,
	id uuid.UUID,
	status domain.AssignmentStatus,
	reason string,
	at time.Time,
) error {
	a, ok := r.s.assignments[id]
	if !ok {
		return fmt.Errorf("assignment %s not found", id)
	}
	if a.Status != domain.AssignmentPending {
		return fmt.Errorf("assignment %s is %s: %w", id, a.Status, apperr.ErrConflict)
	}
	if status == domain.AssignmentAccepted {
		for _, other := range r.s.assignments {
			if other.JobID == a.JobID && other.Status == domain.AssignmentAccepted {
				return fmt.Errorf("job %d already accepted: %w", a.JobID, apperr.ErrConflict)
			}
		}
	}
	a.Status = status
	a.RejectionReason = reason
	a.ResolvedAt = &at
	r.s.assignments[id] = a
	return nil
}

func (r *txRepo) ExpirePendingByJob(_ context.Context, jobID int64, except uuid.UUID, at time.Time) (int, error) {
	n := 0
	for id, a := range r.s.assignments {
		if a.JobID != jobID || id == except || a.Status != domain.AssignmentPending {
			continue
		}
		resolved := at
		a.Status = domain.AssignmentExpired
		a.ResolvedAt = &resolved
		r.s.assignments[id] = a
		n++
	}
	return n, nil
}

func cloneJob(j domain.Job) *domain.Job {
	if j.Location != nil {
		p := *j.Location
		j.Location = &p
	}
	j.MasterID = cloneID(j.MasterID)
	return &j
}

func cloneMaster(m domain.Master) domain.Master {
	if m.Location != nil {
		p := *m.Location
		m.Location = &p
	}
	m.Skills = append([]string(nil), m.Skills...)
	return m
}

func cloneID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

var _ dispatchtx.Repository = (*txRepo)(nil)
