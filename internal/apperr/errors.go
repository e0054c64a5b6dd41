package apperr

import "errors"

// ErrInvalid is returned when the input fails domain validation
// (missing or out-of-range coordinates, empty skill tag, bad ids).
var ErrInvalid = errors.New("invalid input")

// ErrNotFound indicates that the referenced job, assignment or master does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates that the entity was already resolved elsewhere (HTTP 409).
var ErrConflict = errors.New("conflict")

// ErrExpired indicates that the offer TTL has passed at evaluation time.
var ErrExpired = errors.New("offer expired")

// ErrExhausted signals that no further eligible master exists for a job.
// It is a normal outcome that requires manual or broadcast handling.
var ErrExhausted = errors.New("candidates exhausted")
