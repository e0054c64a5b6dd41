package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"service-master-dispatch/internal/apperr"
	"service-master-dispatch/internal/domain"
	"service-master-dispatch/internal/ports/dispatchtx"
)

const assignmentColumns = `id, job_id, master_id, status, attempt, distance_m, rejection_reason,
            created_at, expires_at, resolved_at`

const jobColumns = `id, client_id, lat, lon, skill, status, master_id, created_at, updated_at`

// DispatchRepo represents job and assignment repository.
type DispatchRepo struct {
	db *pgxpool.Pool
}

// NewDispatchRepo creates a new DispatchRepo.
func NewDispatchRepo(db *pgxpool.Pool) *DispatchRepo {
	return &DispatchRepo{db: db}
}

// WithTx opens a transaction and executes fn within it.
func (r *DispatchRepo) WithTx(ctx context.Context, fn func(tx dispatchtx.Repository) error) (err error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				panic(rbErr)
			}
			panic(p)
		}
	}()

	if err := fn(&TxRepo{tx: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback tx: %w (original error: %s)", rbErr, err.Error())
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetJob - returns job by its ID.
func (r *DispatchRepo) GetJob(ctx context.Context, id int64) (*domain.Job, error) {
	j, err := scanJob(r.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get job %d: %w", id, err)
	}
	return j, nil
}

// ListJobsByIDs returns the jobs found among ids ordered by id.
func (r *DispatchRepo) ListJobsByIDs(ctx context.Context, ids []int64) ([]domain.Job, error) {
	rows, err := r.db.Query(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return collectJobs(rows)
}

// ListActiveByMaster returns assigned and in-progress jobs of the master ordered by id.
func (r *DispatchRepo) ListActiveByMaster(ctx context.Context, masterID int64) ([]domain.Job, error) {
	rows, err := r.db.Query(ctx, `
        SELECT `+jobColumns+`
        FROM jobs
        WHERE master_id = $1 AND status IN ($2, $3)
        ORDER BY id
    `, masterID, string(domain.JobStatusAssigned), string(domain.JobStatusInProgress))
	if err != nil {
		return nil, fmt.Errorf("list jobs of master %d: %w", masterID, err)
	}
	return collectJobs(rows)
}

// ListAssignments returns the assignments of a job ordered by attempt.
func (r *DispatchRepo) ListAssignments(ctx context.Context, jobID int64) ([]domain.Assignment, error) {
	rows, err := r.db.Query(ctx, `
        SELECT `+assignmentColumns+`
        FROM assignments
        WHERE job_id = $1
        ORDER BY attempt
    `, jobID)
	if err != nil {
		return nil, fmt.Errorf("list assignments of job %d: %w", jobID, err)
	}
	return collectAssignments(rows)
}

// ListDuePending returns pending assignments whose deadline is not after now, oldest first.
func (r *DispatchRepo) ListDuePending(ctx context.Context, now time.Time, limit int) ([]domain.Assignment, error) {
	rows, err := r.db.Query(ctx, `
        SELECT `+assignmentColumns+`
        FROM assignments
        WHERE status = $1 AND expires_at <= $2
        ORDER BY expires_at, id
        LIMIT $3
    `, string(domain.AssignmentPending), now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due assignments: %w", err)
	}
	return collectAssignments(rows)
}

// TxRepo represents transaction repository.
type TxRepo struct {
	tx pgx.Tx
}

// InsertJob - insert a job, returns false if it already exists.
func (r *TxRepo) InsertJob(ctx context.Context, j *domain.Job) (bool, error) {
	lat, lon := pointArgs(j.Location)
	ct, err := r.tx.Exec(ctx, `
        INSERT INTO jobs (id, client_id, lat, lon, skill, status, master_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
        ON CONFLICT (id) DO NOTHING
    `, j.ID, j.ClientID, lat, lon, j.Skill, string(j.Status), j.MasterID, j.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert job %d: %w", j.ID, err)
	}
	return ct.RowsAffected() > 0, nil
}

// GetJobForUpdate - get job by id and lock its row.
func (r *TxRepo) GetJobForUpdate(ctx context.Context, id int64) (*domain.Job, error) {
	j, err := scanJob(r.tx.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock job %d: %w", id, err)
	}
	return j, nil
}

// UpdateJobStatus - update job status and master.
func (r *TxRepo) UpdateJobStatus(ctx context.Context, id int64, status domain.JobStatus, masterID *int64) error {
	ct, err := r.tx.Exec(ctx, `
        UPDATE jobs
        SET status = $2, master_id = $3, updated_at = now()
        WHERE id = $1
    `, id, string(status), masterID)
	if err != nil {
		return fmt.Errorf("update job status %d: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("job %d not found", id)
	}
	return nil
}

// GetAssignment - get assignment by id.
func (r *TxRepo) GetAssignment(ctx context.Context, id uuid.UUID) (*domain.Assignment, error) {
	a, err := scanAssignment(r.tx.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE id = $1`, id))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get assignment %s: %w", id, err)
	}
	return a, nil
}

// ListAssignmentsByJob - list assignments of a job ordered by attempt.
func (r *TxRepo) ListAssignmentsByJob(ctx context.Context, jobID int64) ([]domain.Assignment, error) {
	rows, err := r.tx.Query(ctx, `
        SELECT `+assignmentColumns+`
        FROM assignments
        WHERE job_id = $1
        ORDER BY attempt
    `, jobID)
	if err != nil {
		return nil, fmt.Errorf("list assignments of job %d: %w", jobID, err)
	}
	return collectAssignments(rows)
}

// InsertAssignment - insert a new assignment.
func (r *TxRepo) InsertAssignment(ctx context.Context, a *domain.Assignment) error {
	_, err := r.tx.Exec(ctx, `
        INSERT INTO assignments (id, job_id, master_id, status, attempt, distance_m, rejection_reason, created_at, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, a.ID, a.JobID, a.MasterID, string(a.Status), a.Attempt, a.DistanceMeters, a.RejectionReason, a.CreatedAt, a.ExpiresAt)
	switch {
	case err == nil:
		return nil
	case IsDuplicate(err):
		return fmt.Errorf("insert assignment for job %d: %w", a.JobID, apperr.ErrConflict)
	case IsCheckViolation(err):
		return fmt.Errorf("insert assignment for job %d: %w", a.JobID, apperr.ErrInvalid)
	default:
		return fmt.Errorf("insert assignment for job %d: %w", a.JobID, err)
	}
}

// ResolveAssignment - move a pending assignment to a terminal status.
func (r *TxRepo) ResolveAssignment(
	ctx context.Context,
	id uuid.UUID,
	status domain.AssignmentStatus,
	reason string,
	at time.Time,
) error {
	ct, err := r.tx.Exec(ctx, `
        UPDATE assignments
        SET status = $2, rejection_reason = $3, resolved_at = $4
        WHERE id = $1 AND status = $5
    `, id, string(status), reason, at, string(domain.AssignmentPending))
	if err != nil {
		if IsDuplicate(err) {
			return fmt.Errorf("resolve assignment %s: %w", id, apperr.ErrConflict)
		}
		return fmt.Errorf("resolve assignment %s: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("assignment %s is not pending: %w", id, apperr.ErrConflict)
	}
	return nil
}

// ExpirePendingByJob - expire every pending assignment of a job except one.
func (r *TxRepo) ExpirePendingByJob(ctx context.Context, jobID int64, except uuid.UUID, at time.Time) (int, error) {
	ct, err := r.tx.Exec(ctx, `
        UPDATE assignments
        SET status = $2, resolved_at = $3
        WHERE job_id = $1 AND status = $4 AND id <> $5
    `, jobID, string(domain.AssignmentExpired), at, string(domain.AssignmentPending), except)
	if err != nil {
		return 0, fmt.Errorf("expire pending assignments of job %d: %w", jobID, err)
	}
	return int(ct.RowsAffected()), nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		j        domain.Job
		lat, lon *float64
	)
	if err := row.Scan(&j.ID, &j.ClientID, &lat, &lon, &j.Skill, &j.Status, &j.MasterID, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}
	j.Location = pointFrom(lat, lon)
	return &j, nil
}

func collectJobs(rows pgx.Rows) ([]domain.Job, error) {
	defer rows.Close()
	var out []domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

func scanAssignment(row pgx.Row) (*domain.Assignment, error) {
	var a domain.Assignment
	err := row.Scan(&a.ID, &a.JobID, &a.MasterID, &a.Status, &a.Attempt, &a.DistanceMeters,
		&a.RejectionReason, &a.CreatedAt, &a.ExpiresAt, &a.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func collectAssignments(rows pgx.Rows) ([]domain.Assignment, error) {
	defer rows.Close()
	var out []domain.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func pointArgs(p *domain.Point) (lat, lon *float64) {
	if p == nil {
		return nil, nil
	}
	la, lo := p.Lat, p.Lon
	return &la, &lo
}

func pointFrom(lat, lon *float64) *domain.Point {
	if lat == nil || lon == nil {
		return nil
	}
	return &domain.Point{Lat: *lat, Lon: *lon}
}
