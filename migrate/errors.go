package migrate

import "errors"

// Sentinel errors for the migrate package.
var (
	// ErrMissingCollection is returned when a plan names no source collection.
	ErrMissingCollection = errors.New("migrate: no source collection specified")

	// ErrMissingFields is returned when a plan carries no target fields.
	ErrMissingFields = errors.New("migrate: no target fields specified")

	// ErrInconsistentState marks a migration stopped between deleting the
	// original collection and renaming the shadow. The shadow holds all
	// data; reconciliation is an operator responsibility.
	ErrInconsistentState = errors.New("migrate: original deleted but rename failed, manual reconciliation required")
)
