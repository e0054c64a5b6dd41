//go:build integration

package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"service-master-dispatch/internal/app"
	"service-master-dispatch/internal/config"
	"service-master-dispatch/internal/service/dispatch"
)

func TestMustBuildContainer_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.Store.Driver = config.StoreDriverPostgres
	cfg.Store.Migrate = true

	c := app.NewContainerBuilder().
		WithConfig(cfg).
		WithRegisterer(prometheus.NewRegistry()).
		MustBuild(ctx)
	require.NotNil(t, c)

	err = c.Invoke(func(svc *dispatch.Service) {
		_, err := svc.History(ctx, 1<<40)
		require.Error(t, err)
	})
	require.NoError(t, err)
}
