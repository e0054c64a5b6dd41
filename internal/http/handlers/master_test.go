package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"service-master-dispatch/internal/apperr"
	"service-master-dispatch/internal/domain"
)

func TestMasterHandler_GetByID(t *testing.T) {
	t.Parallel()

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/masters/3", nil), "id", "3")
	rr := httptest.NewRecorder()

	uc := &stubMasterUsecase{
		getFn: func(ctx context.Context, id int64) (*domain.Master, error) {
			return &domain.Master{
				ID:        id,
				Name:      "Ivan",
				Location:  &domain.Point{Lat: 55.7, Lon: 37.6},
				Skills:    []string{"plumbing"},
				Available: true,
				Verified:  true,
			}, nil
		},
	}

	NewMasterHandler(nil, uc).GetByID(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{
		"id": 3,
		"name": "Ivan",
		"location": {"lat": 55.7, "lon": 37.6},
		"skills": ["plumbing"],
		"available": true,
		"verified": true
	}`, rr.Body.String())
}

func TestMasterHandler_GetByID_NotFound(t *testing.T) {
	t.Parallel()

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/masters/3", nil), "id", "3")
	rr := httptest.NewRecorder()

	uc := &stubMasterUsecase{
		getFn: func(context.Context, int64) (*domain.Master, error) {
			return nil, apperr.ErrNotFound
		},
	}

	NewMasterHandler(nil, uc).GetByID(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"master not found"}`, rr.Body.String())
}

func TestMasterHandler_SetShift(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPatch, "/masters/3/shift", strings.NewReader(`{"available":false}`))
	req = withURLParam(req, "id", "3")
	rr := httptest.NewRecorder()

	uc := &stubMasterUsecase{
		shiftFn: func(ctx context.Context, id int64, available bool) error {
			require.Equal(t, int64(3), id)
			require.False(t, available)
			return nil
		},
	}

	NewMasterHandler(nil, uc).SetShift(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"id":3,"available":false}`, rr.Body.String())
}

func TestMasterHandler_SetShift_MissingFlag(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPatch, "/masters/3/shift", strings.NewReader(`{}`))
	req = withURLParam(req, "id", "3")
	rr := httptest.NewRecorder()

	uc := &stubMasterUsecase{
		shiftFn: func(context.Context, int64, bool) error {
			require.FailNow(t, "usecase.SetShift must not be called without a flag")
			return nil
		},
	}

	NewMasterHandler(nil, uc).SetShift(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"invalid field: available"}`, rr.Body.String())
}
