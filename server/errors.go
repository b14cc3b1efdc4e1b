package server

import "errors"

// Sentinel errors for the server package.
var (
	// ErrUnknownTool is returned when tools/call names a tool the server
	// does not register.
	ErrUnknownTool = errors.New("server: unknown tool")

	// ErrMissingArgument is returned when a tool call omits a required
	// argument.
	ErrMissingArgument = errors.New("server: missing required argument")

	// ErrUnknownAction is returned when manage_indexes receives an action
	// other than list, create or delete.
	ErrUnknownAction = errors.New("server: unknown index action")
)
