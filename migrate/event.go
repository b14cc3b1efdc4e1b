// Package migrate implements the in-place collection schema migration:
// create a shadow collection with the target schema, copy every record
// through optional per-field transforms, delete the original collection,
// and rename the shadow into the original's identity.
package migrate

import "time"

// Step represents a migration protocol step.
type Step string

// Step constants, in protocol order.
const (
	StepPlanning      Step = "planning"
	StepShadowCreated Step = "shadow_created"
	StepRecordsCopied Step = "records_copied"
	StepOldDeleted    Step = "old_deleted"
	StepRenamed       Step = "renamed"
)

// Event is emitted as a migration moves through its steps.
type Event struct {
	Time       time.Time // When the event occurred
	Step       Step      // Which step completed or failed
	Collection string    // Source collection name
	Shadow     string    // Shadow collection name, once derived
	Copied     int       // Records copied so far (StepRecordsCopied)
	Total      int       // Total records to copy (StepRecordsCopied)
	Field      string    // Field name, for transform failures
	Err        error     // Step or transform failure detail
}

// Handler receives migration events as they occur.
type Handler interface {
	Event(event Event)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(event Event)

// Event calls f.
func (f HandlerFunc) Event(event Event) {
	f(event)
}
