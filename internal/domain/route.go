package domain

import "time"

// RouteStop is a job to visit on a route.
type RouteStop struct {
	JobID    int64
	Location Point
}

// RouteLeg is one hop of an ordered route.
type RouteLeg struct {
	JobID              int64
	Location           Point
	DistanceMeters     float64
	Duration           time.Duration
	CumulativeDistance float64
}

// Route represents an ordered visiting sequence for a single master.
type Route struct {
	Start               Point
	Legs                []RouteLeg
	TotalDistanceMeters float64
	TotalDuration       time.Duration
}
