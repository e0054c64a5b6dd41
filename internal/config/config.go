package config

import (
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/pflag"
)

// Storage drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Logging backends.
const (
	LogBackendSlog = "slog"
	LogBackendZap  = "zap"
)

// Config stores service settings.
type Config struct {
	Port      int
	DB        DB
	Store     Store
	Dispatch  Dispatch
	Route     Route
	Kafka     Kafka
	Push      Push
	RateLimit RateLimit
	Pprof     Pprof
	Log       Log
}

// DB stores PostgreSQL connection settings.
type DB struct {
	Host string
	Port string
	User string
	Pass string
	Name string
}

// DSN returns the PostgreSQL connection string.
func (d DB) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable",
		d.User, d.Pass, net.JoinHostPort(d.Host, d.Port), d.Name)
}

// Store selects the storage backend.
type Store struct {
	Driver  string
	Migrate bool
}

// Dispatch stores offer engine settings.
type Dispatch struct {
	OfferTTL         time.Duration
	SweepSchedule    string
	SweepBatch       int
	OperationTimeout time.Duration
}

// Route stores travel time estimation settings.
type Route struct {
	AvgSpeedKmh      float64
	CongestionFactor float64
	ParkingOverhead  time.Duration
}

// Kafka stores job events consumer settings.
type Kafka struct {
	Brokers []string
	GroupID string
	Topic   string
}

// Push stores push gateway and notification queue settings. An empty Host logs pushes instead.
type Push struct {
	Host        string
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	QueueSize   int
	Workers     int
	SendTimeout time.Duration
}

// RateLimit stores HTTP rate limiting settings.
type RateLimit struct {
	Enabled    bool
	Rate       float64
	Burst      int
	TTL        time.Duration
	MaxBuckets int
}

// Pprof stores pprof server settings. An empty Addr disables the server.
type Pprof struct {
	Addr string
	User string
	Pass string
}

// Log stores logging settings.
type Log struct {
	Backend string
	Level   string
}

// Load reads configuration in order: .env (if present) → environment → flags.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: .env not loaded: %v", err)
	}

	cfg := &Config{
		Port:      DefaultPort(),
		DB:        DefaultDB(),
		Store:     DefaultStore(),
		Dispatch:  DefaultDispatch(),
		Route:     DefaultRoute(),
		Kafka:     DefaultKafka(),
		Push:      DefaultPush(),
		RateLimit: DefaultRateLimit(),
		Pprof:     DefaultPprof(),
		Log:       DefaultLog(),
	}

	e := &envReader{}
	e.intVar("PORT", &cfg.Port)

	e.strVar("POSTGRES_HOST", &cfg.DB.Host)
	e.strVar("POSTGRES_PORT", &cfg.DB.Port)
	e.strVar("POSTGRES_USER", &cfg.DB.User)
	e.strVar("POSTGRES_PASSWORD", &cfg.DB.Pass)
	e.strVar("POSTGRES_DB", &cfg.DB.Name)
	if _, err := strconv.Atoi(cfg.DB.Port); err != nil {
		return nil, fmt.Errorf("invalid POSTGRES_PORT %q: %w", cfg.DB.Port, err)
	}

	e.strVar("STORE_DRIVER", &cfg.Store.Driver)
	e.boolVar("DB_MIGRATE", &cfg.Store.Migrate)

	e.durationVar("DISPATCH_OFFER_TTL", &cfg.Dispatch.OfferTTL)
	e.strVar("DISPATCH_SWEEP_SCHEDULE", &cfg.Dispatch.SweepSchedule)
	e.intVar("DISPATCH_SWEEP_BATCH", &cfg.Dispatch.SweepBatch)
	e.durationVar("OPERATION_TIMEOUT", &cfg.Dispatch.OperationTimeout)

	e.floatVar("ROUTE_AVG_SPEED_KMH", &cfg.Route.AvgSpeedKmh)
	e.floatVar("ROUTE_CONGESTION_FACTOR", &cfg.Route.CongestionFactor)
	e.durationVar("ROUTE_PARKING_OVERHEAD", &cfg.Route.ParkingOverhead)

	e.listVar("KAFKA_BROKERS", &cfg.Kafka.Brokers)
	e.strVar("KAFKA_GROUP_ID", &cfg.Kafka.GroupID)
	e.strVar("KAFKA_TOPIC", &cfg.Kafka.Topic)

	e.strVar("PUSH_SERVICE_HOST", &cfg.Push.Host)
	e.intVar("PUSH_MAX_ATTEMPTS", &cfg.Push.MaxAttempts)
	e.durationVar("PUSH_BASE_DELAY", &cfg.Push.BaseDelay)
	e.durationVar("PUSH_MAX_DELAY", &cfg.Push.MaxDelay)
	e.intVar("NOTIFY_QUEUE_SIZE", &cfg.Push.QueueSize)
	e.intVar("NOTIFY_WORKERS", &cfg.Push.Workers)
	e.durationVar("PUSH_SEND_TIMEOUT", &cfg.Push.SendTimeout)

	e.boolVar("RATE_LIMIT_ENABLED", &cfg.RateLimit.Enabled)
	e.floatVar("RATE_LIMIT_RATE", &cfg.RateLimit.Rate)
	e.intVar("RATE_LIMIT_BURST", &cfg.RateLimit.Burst)
	e.durationVar("RATE_LIMIT_TTL", &cfg.RateLimit.TTL)
	e.intVar("RATE_LIMIT_MAX_BUCKETS", &cfg.RateLimit.MaxBuckets)

	e.strVar("PPROF_ADDR", &cfg.Pprof.Addr)
	e.strVar("PPROF_USER", &cfg.Pprof.User)
	e.strVar("PPROF_PASS", &cfg.Pprof.Pass)

	e.strVar("LOG_BACKEND", &cfg.Log.Backend)
	e.strVar("LOG_LEVEL", &cfg.Log.Level)

	if e.err != nil {
		return nil, e.err
	}

	pflag.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to listen on")
	pflag.StringVar(&cfg.Store.Driver, "store", cfg.Store.Driver, "storage driver: postgres or memory")
	pflag.StringVar(&cfg.Log.Backend, "log-backend", cfg.Log.Backend, "logging backend: slog or zap")
	if err := pflag.CommandLine.Parse(os.Args[1:]); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	switch c.Store.Driver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("invalid store driver: %q", c.Store.Driver)
	}
	switch c.Log.Backend {
	case LogBackendSlog, LogBackendZap:
	default:
		return fmt.Errorf("invalid log backend: %q", c.Log.Backend)
	}
	if c.Dispatch.OfferTTL <= 0 {
		return fmt.Errorf("invalid offer ttl: %s", c.Dispatch.OfferTTL)
	}
	if c.Dispatch.SweepBatch <= 0 {
		return fmt.Errorf("invalid sweep batch: %d", c.Dispatch.SweepBatch)
	}
	if _, err := cron.ParseStandard(c.Dispatch.SweepSchedule); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", c.Dispatch.SweepSchedule, err)
	}
	if c.Route.AvgSpeedKmh <= 0 {
		return fmt.Errorf("invalid average speed: %v", c.Route.AvgSpeedKmh)
	}
	if c.Route.CongestionFactor < 1 {
		return fmt.Errorf("invalid congestion factor: %v", c.Route.CongestionFactor)
	}
	return nil
}

// envReader reads typed environment variables and keeps the first parse error.
type envReader struct {
	err error
}

func (e *envReader) lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != "" && e.err == nil
}

func (e *envReader) fail(key, v string, err error) {
	e.err = fmt.Errorf("invalid %s %q: %w", key, v, err)
}

func (e *envReader) strVar(key string, dst *string) {
	if v, ok := e.lookup(key); ok {
		*dst = v
	}
}

func (e *envReader) intVar(key string, dst *int) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = n
}

func (e *envReader) floatVar(key string, dst *float64) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = f
}

func (e *envReader) boolVar(key string, dst *bool) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = b
}

func (e *envReader) durationVar(key string, dst *time.Duration) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = d
}

func (e *envReader) listVar(key string, dst *[]string) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) > 0 {
		*dst = out
	}
}
