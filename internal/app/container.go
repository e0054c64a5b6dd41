package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"service-master-dispatch/internal/config"
	"service-master-dispatch/internal/gateway/push"
	"service-master-dispatch/internal/http/handlers"
	"service-master-dispatch/internal/http/middleware/ratelimit"
	"service-master-dispatch/internal/http/pprofserver"
	"service-master-dispatch/internal/http/router"
	"service-master-dispatch/internal/logx"
	"service-master-dispatch/internal/metrics"
	"service-master-dispatch/internal/notify"
	"service-master-dispatch/internal/repository"
	"service-master-dispatch/internal/repository/memstore"
	"service-master-dispatch/internal/route"
	"service-master-dispatch/internal/service/dispatch"
	"service-master-dispatch/internal/service/jobs"
	"service-master-dispatch/internal/service/masters"
	"service-master-dispatch/internal/service/routing"
	"service-master-dispatch/internal/transport/kafka"
)

type dbConnectFunc func(context.Context, logx.Logger, string, int, time.Duration) (*pgxpool.Pool, error)

// ContainerBuilder is a dig container builder.
type ContainerBuilder struct {
	dbConnect  dbConnectFunc
	logFatalf  func(string, ...interface{})
	loadConfig func() (*config.Config, error)
	registerer prometheus.Registerer
}

// NewContainerBuilder returns a new dig container builder
func NewContainerBuilder() *ContainerBuilder {
	return &ContainerBuilder{
		dbConnect:  connectDbWithRetry,
		logFatalf:  log.Fatalf,
		loadConfig: config.Load,
		registerer: prometheus.DefaultRegisterer,
	}
}

// WithDBConnect sets the database connection function
func (b *ContainerBuilder) WithDBConnect(fn dbConnectFunc) *ContainerBuilder {
	if fn != nil {
		b.dbConnect = fn
	}
	return b
}

// WithLogFatalf sets the log.Fatalf function
func (b *ContainerBuilder) WithLogFatalf(fn func(string, ...interface{})) *ContainerBuilder {
	if fn != nil {
		b.logFatalf = fn
	}
	return b
}

// WithConfig replaces config.Load with a fixed configuration.
func (b *ContainerBuilder) WithConfig(cfg *config.Config) *ContainerBuilder {
	if cfg != nil {
		b.loadConfig = func() (*config.Config, error) { return cfg, nil }
	}
	return b
}

// WithRegisterer sets the Prometheus registerer for service metrics.
func (b *ContainerBuilder) WithRegisterer(reg prometheus.Registerer) *ContainerBuilder {
	if reg != nil {
		b.registerer = reg
	}
	return b
}

// MustBuild builds the API container.
func (b *ContainerBuilder) MustBuild(ctx context.Context) *dig.Container {
	container, err := b.build(ctx, registerHTTP)
	if err != nil {
		b.logFatalf("failed to build container: %v", err)
	}
	return container
}

// MustBuildWorker builds the worker container.
func (b *ContainerBuilder) MustBuildWorker(ctx context.Context) *dig.Container {
	container, err := b.build(ctx, registerWorker)
	if err != nil {
		b.logFatalf("failed to build worker container: %v", err)
	}
	return container
}

func (b *ContainerBuilder) build(ctx context.Context, outer func(*dig.Container) error) (*dig.Container, error) {
	container := dig.New()

	if err := registerCore(container, ctx, b.loadConfig, b.registerer); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	if err := registerStore(container, b.dbConnect); err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	if err := registerDomainServices(container); err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	if err := outer(container); err != nil {
		return nil, fmt.Errorf("outer: %w", err)
	}
	return container, nil
}

// MustBuildContainer builds the API container with production defaults.
func MustBuildContainer(ctx context.Context) *dig.Container {
	return NewContainerBuilder().MustBuild(ctx)
}

// MustBuildWorkerContainer builds the worker container with production defaults.
func MustBuildWorkerContainer(ctx context.Context) *dig.Container {
	return NewContainerBuilder().MustBuildWorker(ctx)
}

func provideAll(container *dig.Container, providers ...any) error {
	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return fmt.Errorf("provide %T: %w", provider, err)
		}
	}
	return nil
}

func registerCore(
	container *dig.Container,
	ctx context.Context,
	loadConfig func() (*config.Config, error),
	reg prometheus.Registerer,
) error {
	return provideAll(container,
		func() context.Context { return ctx },
		loadConfig,
		NewLogger,
		func() prometheus.Registerer { return reg },
		provideMetrics,
	)
}

type metricsOut struct {
	dig.Out

	RateLimitExceededTotal    prometheus.Counter `name:"rate_limit_exceeded_total"`
	GatewayRetriesTotal       prometheus.Counter `name:"gateway_retries_total"`
	NotificationsDroppedTotal prometheus.Counter `name:"notifications_dropped_total"`
	Dispatch                  *metrics.Dispatch
}

func provideMetrics(reg prometheus.Registerer) (metricsOut, error) {
	var (
		out metricsOut
		err error
	)
	if out.RateLimitExceededTotal, err = metrics.Register(reg, metrics.NewRateLimitExceededTotal()); err != nil {
		return metricsOut{}, fmt.Errorf("register rate_limit_exceeded_total: %w", err)
	}
	if out.GatewayRetriesTotal, err = metrics.Register(reg, metrics.NewGatewayRetriesTotal()); err != nil {
		return metricsOut{}, fmt.Errorf("register gateway_retries_total: %w", err)
	}
	if out.NotificationsDroppedTotal, err = metrics.Register(reg, metrics.NewNotificationsDroppedTotal()); err != nil {
		return metricsOut{}, fmt.Errorf("register notifications_dropped_total: %w", err)
	}
	out.Dispatch = metrics.NewDispatch()
	if err := out.Dispatch.Register(reg); err != nil {
		return metricsOut{}, fmt.Errorf("register dispatch metrics: %w", err)
	}
	return out, nil
}

// jobStore is the job and offer storage both drivers implement.
type jobStore interface {
	dispatch.Store
	routing.JobReader
}

// masterStore is the master directory both drivers implement.
type masterStore interface {
	dispatch.Directory
	routing.MasterReader
	SetAvailability(ctx context.Context, id int64, available bool) (bool, error)
}

type storeBundle struct {
	jobs    jobStore
	masters masterStore
	close   func()
}

func registerStore(container *dig.Container, dbConnect dbConnectFunc) error {
	open := func(ctx context.Context, cfg *config.Config, logger logx.Logger) (*storeBundle, error) {
		return openStore(ctx, cfg, logger, dbConnect)
	}
	return provideAll(container,
		open,
		func(b *storeBundle) jobStore { return b.jobs },
		func(b *storeBundle) masterStore { return b.masters },
	)
}

func openStore(ctx context.Context, cfg *config.Config, logger logx.Logger, dbConnect dbConnectFunc) (*storeBundle, error) {
	if cfg.Store.Driver == config.StoreDriverMemory {
		logger.Warn("using in-memory store, state is lost on restart")
		ms := memstore.New()
		return &storeBundle{jobs: ms, masters: ms, close: func() {}}, nil
	}

	pool, err := dbConnect(ctx, logger, cfg.DB.DSN(), 10, time.Second)
	if err != nil {
		return nil, err
	}
	if cfg.Store.Migrate {
		if err := repository.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("schema migrated")
	}
	return &storeBundle{
		jobs:    repository.NewDispatchRepo(pool),
		masters: repository.NewMasterRepo(pool),
		close:   pool.Close,
	}, nil
}

type pushClient struct {
	sender notify.Sender
	close  func() error
}

type pushIn struct {
	dig.In

	Cfg     *config.Config
	Logger  logx.Logger
	Retries prometheus.Counter `name:"gateway_retries_total"`
}

func newPushClient(in pushIn) (*pushClient, error) {
	if in.Cfg.Push.Host == "" {
		in.Logger.Warn("push service not configured, notifications are only logged")
		return &pushClient{
			sender: push.NewLogGateway(in.Logger),
			close:  func() error { return nil },
		}, nil
	}
	conn, err := push.Dial(in.Cfg.Push.Host)
	if err != nil {
		return nil, err
	}
	gw := push.NewRetryingGateway(push.NewGRPCGateway(conn), in.Logger, in.Retries, push.RetryConfig{
		MaxAttempts: in.Cfg.Push.MaxAttempts,
		BaseDelay:   in.Cfg.Push.BaseDelay,
		MaxDelay:    in.Cfg.Push.MaxDelay,
	})
	return &pushClient{sender: gw, close: conn.Close}, nil
}

type notifierIn struct {
	dig.In

	Ctx     context.Context
	Cfg     *config.Config
	Logger  logx.Logger
	Push    *pushClient
	Dropped prometheus.Counter `name:"notifications_dropped_total"`
}

func newNotifier(in notifierIn) *notify.Notifier {
	n := notify.New(in.Push.sender, notify.Config{
		QueueSize:   in.Cfg.Push.QueueSize,
		Workers:     in.Cfg.Push.Workers,
		SendTimeout: in.Cfg.Push.SendTimeout,
	}, in.Logger.With(logx.String("component", "notifier")), in.Dropped)
	// Workers outlive the signal context so Close can drain the queue at shutdown.
	n.Start(context.WithoutCancel(in.Ctx))
	return n
}

func registerDomainServices(container *dig.Container) error {
	return provideAll(container,
		newPushClient,
		newNotifier,
		func(
			cfg *config.Config,
			js jobStore,
			ms masterStore,
			n *notify.Notifier,
			m *metrics.Dispatch,
			logger logx.Logger,
		) *dispatch.Service {
			return dispatch.NewService(js, ms, n, m, dispatch.Config{
				OfferTTL:         cfg.Dispatch.OfferTTL,
				OperationTimeout: cfg.Dispatch.OperationTimeout,
				SweepBatch:       cfg.Dispatch.SweepBatch,
			}, logger.With(logx.String("component", "dispatch")))
		},
		func(cfg *config.Config) *route.Optimizer {
			return route.NewOptimizer(route.Config{
				AvgSpeedKmh:      cfg.Route.AvgSpeedKmh,
				CongestionFactor: cfg.Route.CongestionFactor,
				ParkingOverhead:  cfg.Route.ParkingOverhead,
			})
		},
		func(cfg *config.Config, js jobStore, ms masterStore, opt *route.Optimizer) *routing.Service {
			return routing.NewService(js, ms, opt, cfg.Dispatch.OperationTimeout)
		},
		func(cfg *config.Config, ms masterStore, logger logx.Logger) *masters.Service {
			return masters.NewService(ms, cfg.Dispatch.OperationTimeout, logger)
		},
		func(cfg *config.Config, svc *dispatch.Service, logger logx.Logger) (*Sweeper, error) {
			return NewSweeper(svc, cfg.Dispatch.SweepSchedule, logger)
		},
	)
}

func newRateLimiter(cfg *config.Config, clock ratelimit.Clock) ratelimit.Limiter {
	rl := cfg.RateLimit
	if !rl.Enabled {
		return ratelimit.NopLimiter{}
	}
	return ratelimit.NewKeyedLimiter(clock, ratelimit.Config{
		Rate:       rl.Rate,
		Burst:      rl.Burst,
		TTL:        rl.TTL,
		MaxBuckets: rl.MaxBuckets,
	})
}

func newRateLimitClock() ratelimit.Clock {
	return ratelimit.RealClock{}
}

type rateLimitIn struct {
	dig.In

	Logger  logx.Logger
	Counter prometheus.Counter `name:"rate_limit_exceeded_total"`
	Limiter ratelimit.Limiter
}

func newRateLimitMiddleware(in rateLimitIn) *ratelimit.Middleware {
	return ratelimit.New(in.Logger, in.Counter, in.Limiter)
}

type routerIn struct {
	dig.In

	Logger      logx.Logger
	Base        *handlers.Handlers
	Dispatch    *handlers.DispatchHandler
	Assignments *handlers.AssignmentHandler
	Routes      *handlers.RouteHandler
	Masters     *handlers.MasterHandler
	RateLimit   *ratelimit.Middleware
}

func newRouter(in routerIn) http.Handler {
	return router.New(router.Deps{
		Logger:      in.Logger,
		Base:        in.Base,
		Dispatch:    in.Dispatch,
		Assignments: in.Assignments,
		Routes:      in.Routes,
		Masters:     in.Masters,
		RateLimit:   in.RateLimit,
	})
}

type serversOut struct {
	dig.Out

	Main  *http.Server
	Pprof *http.Server `name:"pprof_server"`
}

func newServers(cfg *config.Config, mux http.Handler) serversOut {
	return serversOut{
		Main: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		Pprof: pprofserver.New(pprofserver.Config{
			Addr: cfg.Pprof.Addr,
			User: cfg.Pprof.User,
			Pass: cfg.Pprof.Pass,
		}),
	}
}

func registerHTTP(container *dig.Container) error {
	return provideAll(container,
		handlers.New,
		handlers.NewDispatchUsecase,
		handlers.NewDispatchHandler,
		handlers.NewAssignmentUsecase,
		handlers.NewAssignmentHandler,
		handlers.NewRouteUsecase,
		handlers.NewRouteHandler,
		handlers.NewMasterUsecase,
		handlers.NewMasterHandler,
		newRateLimitClock,
		newRateLimiter,
		newRateLimitMiddleware,
		newRouter,
		newServers,
	)
}

func registerWorker(container *dig.Container) error {
	return provideAll(container,
		func(svc *dispatch.Service, logger logx.Logger) *jobs.Processor {
			return jobs.NewProcessor(svc, logger.With(logx.String("component", "jobs")))
		},
		func(cfg *config.Config, logger logx.Logger, p *jobs.Processor) (*kafka.Consumer, error) {
			return kafka.NewConsumer(logger, cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topic, p.Handle)
		},
	)
}
