package models

import "errors"

// Error taxonomy shared across the ledger. Packages wrap these sentinels with
// fmt.Errorf("...: %w", err) so callers can classify failures with errors.Is.
var (
	// ErrConfiguration indicates an invalid configuration value, such as a
	// reduction factor outside [0, 1).
	ErrConfiguration = errors.New("invalid configuration")

	// ErrValidation indicates missing or invalid line data, caught before
	// persistence or before transmission. Never retried automatically.
	ErrValidation = errors.New("validation failed")

	// ErrItemInUse indicates an attempt to delete an item that is still
	// referenced by bill lines.
	ErrItemInUse = errors.New("item is referenced by existing bills")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPersistence indicates a local store failure, including migration
	// failure. A save or update that hits this commits nothing.
	ErrPersistence = errors.New("persistence failure")

	// ErrOffline indicates the device is offline or the backend is
	// unreachable.
	ErrOffline = errors.New("offline or backend unreachable")

	// ErrRemoteRejected indicates the backend returned a structured failure
	// for a sync payload.
	ErrRemoteRejected = errors.New("backend rejected payload")

	// ErrTimeout indicates a bounded network call exceeded its deadline.
	ErrTimeout = errors.New("request timed out")
)
