package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"service-master-dispatch/internal/apperr"
	"service-master-dispatch/internal/domain"
	"service-master-dispatch/internal/ports/dispatchtx"
)

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func seedJob(t *testing.T, s *Store, id int64) {
	t.Helper()
	require.NoError(t, s.WithTx(context.Background(), func(tx dispatchtx.Repository) error {
		_, err := tx.InsertJob(context.Background(), &domain.Job{ID: id, Skill: "x", Status: domain.JobStatusNew})
		return err
	}))
}

func pending(jobID, masterID int64, attempt int, expires time.Time) *domain.Assignment {
	return &domain.Assignment{
		ID:        uuid.New(),
		JobID:     jobID,
		MasterID:  masterID,
		Status:    domain.AssignmentPending,
		Attempt:   attempt,
		CreatedAt: expires.Add(-time.Minute),
		ExpiresAt: expires,
	}
}

func TestStore_WithTx_RollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedJob(t, s, 1)

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx dispatchtx.Repository) error {
		require.NoError(t, tx.UpdateJobStatus(ctx, 1, domain.JobStatusCancelled, nil))
		require.NoError(t, tx.InsertAssignment(ctx, pending(1, 7, 1, t0)))
		return boom
	})
	require.ErrorIs(t, err, boom)

	j, err := s.GetJob(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, domain.JobStatusNew, j.Status)

	as, err := s.ListAssignments(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, as)
}

func TestStore_WithTx_RollsBackOnPanic(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedJob(t, s, 1)

	require.Panics(t, func() {
		_ = s.WithTx(ctx, func(tx dispatchtx.Repository) error {
			_ = tx.UpdateJobStatus(ctx, 1, domain.JobStatusCancelled, nil)
			panic("boom")
		})
	})

	j, err := s.GetJob(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, domain.JobStatusNew, j.Status)
}

func TestStore_InsertAssignment_Invariants(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedJob(t, s, 1)

	err := s.WithTx(ctx, func(tx dispatchtx.Repository) error {
		require.NoError(t, tx.InsertAssignment(ctx, pending(1, 7, 1, t0)))

		err := tx.InsertAssignment(ctx, pending(1, 7, 2, t0))
		require.ErrorIs(t, err, apperr.ErrConflict)

		err = tx.InsertAssignment(ctx, pending(1, 8, 1, t0))
		require.ErrorIs(t, err, apperr.ErrConflict)

		bad := pending(1, 9, 3, t0)
		bad.CreatedAt = t0
		require.ErrorIs(t, tx.InsertAssignment(ctx, bad), apperr.ErrInvalid)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_ResolveAssignment_SingleAccepted(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedJob(t, s, 1)

	a, b := pending(1, 7, 1, t0), pending(1, 8, 2, t0)
	err := s.WithTx(ctx, func(tx dispatchtx.Repository) error {
		require.NoError(t, tx.InsertAssignment(ctx, a))
		require.NoError(t, tx.InsertAssignment(ctx, b))
		require.NoError(t, tx.ResolveAssignment(ctx, a.ID, domain.AssignmentAccepted, "", t0))
		require.ErrorIs(t, tx.ResolveAssignment(ctx, a.ID, domain.AssignmentRejected, "", t0), apperr.ErrConflict)
		require.ErrorIs(t, tx.ResolveAssignment(ctx, b.ID, domain.AssignmentAccepted, "", t0), apperr.ErrConflict)

		n, err := tx.ExpirePendingByJob(ctx, 1, a.ID, t0)
		require.NoError(t, err)
		require.Equal(t, 1, n)
		return nil
	})
	require.NoError(t, err)

	as, err := s.ListAssignments(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, domain.AssignmentAccepted, as[0].Status)
	require.Equal(t, domain.AssignmentExpired, as[1].Status)
}

func TestStore_ListDuePending(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedJob(t, s, 1)
	seedJob(t, s, 2)

	late, early, future := pending(1, 7, 1, t0), pending(2, 7, 1, t0.Add(-time.Minute)), pending(1, 8, 2, t0.Add(time.Second))
	require.NoError(t, s.WithTx(ctx, func(tx dispatchtx.Repository) error {
		for _, a := range []*domain.Assignment{late, early, future} {
			if err := tx.InsertAssignment(ctx, a); err != nil {
				return err
			}
		}
		return nil
	}))

	due, err := s.ListDuePending(ctx, t0, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	require.Equal(t, early.ID, due[0].ID)
	require.Equal(t, late.ID, due[1].ID)

	due, err = s.ListDuePending(ctx, t0, 1)
	require.NoError(t, err)
	require.Len(t, due, 1)
}

func TestStore_Masters(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := &domain.Point{Lat: 1, Lon: 1}
	s.PutMaster(domain.Master{ID: 3, Location: p, Skills: []string{"x"}, Available: true, Verified: true})
	s.PutMaster(domain.Master{ID: 1, Location: p, Skills: []string{"x", "y"}, Available: true, Verified: true})
	s.PutMaster(domain.Master{ID: 2, Location: p, Skills: []string{"x"}, Available: true})
	s.PutMaster(domain.Master{ID: 4, Location: p, Skills: []string{"y"}, Available: true, Verified: true})

	ms, err := s.FindEligible(ctx, "x")
	require.NoError(t, err)
	require.Len(t, ms, 2)
	require.Equal(t, int64(1), ms[0].ID)
	require.Equal(t, int64(3), ms[1].ID)

	ok, err := s.SetAvailability(ctx, 1, false)
	require.NoError(t, err)
	require.True(t, ok)
	ms, err = s.FindEligible(ctx, "x")
	require.NoError(t, err)
	require.Len(t, ms, 1)

	ok, err = s.SetAvailability(ctx, 99, true)
	require.NoError(t, err)
	require.False(t, ok)

	m, err := s.GetMaster(ctx, 99)
	require.NoError(t, err)
	require.Nil(t, m)
}
