package pbmcp

import "errors"

// Sentinel errors.
var (
	// ErrConfigNotFound is returned when no .pbmcp.yaml is found.
	ErrConfigNotFound = errors.New("pbmcp: no .pbmcp.yaml found")
)
