package config

import "time"

const defaultPort = 8080

var defaultDB = DB{
	Host: "127.0.0.1",
	Port: "5432",
	User: "myuser",
	Pass: "mypassword",
	Name: "dispatch_db",
}

var defaultStore = Store{
	Driver:  StoreDriverPostgres,
	Migrate: false,
}

var defaultDispatch = Dispatch{
	OfferTTL:         3 * time.Minute,
	SweepSchedule:    "@every 5s",
	SweepBatch:       100,
	OperationTimeout: 3 * time.Second,
}

var defaultRoute = Route{
	AvgSpeedKmh:      30,
	CongestionFactor: 1.3,
	ParkingOverhead:  5 * time.Minute,
}

var defaultKafka = Kafka{
	Brokers: []string{"localhost:9092"},
	GroupID: "service-dispatch",
	Topic:   "job.events",
}

var defaultPush = Push{
	MaxAttempts: 4,
	BaseDelay:   150 * time.Millisecond,
	MaxDelay:    time.Second,
	QueueSize:   1024,
	Workers:     4,
	SendTimeout: 5 * time.Second,
}

var defaultRateLimit = RateLimit{
	Enabled:    true,
	Rate:       20,
	Burst:      40,
	TTL:        10 * time.Minute,
	MaxBuckets: 10000,
}

var defaultPprof = Pprof{
	Addr: "127.0.0.1:6060",
}

var defaultLog = Log{
	Backend: LogBackendSlog,
	Level:   "info",
}

// DefaultPort returns the default port.
func DefaultPort() int {
	return defaultPort
}

// DefaultDB returns the default database settings.
func DefaultDB() DB {
	return defaultDB
}

// DefaultStore returns the default storage settings.
func DefaultStore() Store {
	return defaultStore
}

// DefaultDispatch returns the default dispatch engine settings.
func DefaultDispatch() Dispatch {
	return defaultDispatch
}

// DefaultRoute returns the default route estimation settings.
func DefaultRoute() Route {
	return defaultRoute
}

// DefaultKafka returns the default Kafka consumer settings.
func DefaultKafka() Kafka {
	k := defaultKafka
	k.Brokers = append([]string(nil), defaultKafka.Brokers...)
	return k
}

// DefaultPush returns the default push gateway settings.
func DefaultPush() Push {
	return defaultPush
}

// DefaultRateLimit returns the default rate limit settings.
func DefaultRateLimit() RateLimit {
	return defaultRateLimit
}

// DefaultPprof returns the default pprof settings.
func DefaultPprof() Pprof {
	return defaultPprof
}

// DefaultLog returns the default logging settings.
func DefaultLog() Log {
	return defaultLog
}
