// Package kioskerr defines the domain-level error kinds from the kiosk's
// error handling design: which faults are transient and contained, which are
// fatal, and which are not errors at all but a structured rejection reason.
package kioskerr

import "fmt"

// TransientRemote indicates the remote store was unreachable or a query
// timed out. Never fatal: contained within the sync engine and recorded in
// SyncStatus.
type TransientRemote struct {
	Op  string
	Err error
}

func (e *TransientRemote) Error() string {
	return fmt.Sprintf("transient remote error during %s: %v", e.Op, e.Err)
}

func (e *TransientRemote) Unwrap() error { return e.Err }

// LocalStoreBusy indicates write contention on the local store. The caller
// should retry once within the same task.
type LocalStoreBusy struct {
	Op  string
	Err error
}

func (e *LocalStoreBusy) Error() string {
	return fmt.Sprintf("local store busy during %s: %v", e.Op, e.Err)
}

func (e *LocalStoreBusy) Unwrap() error { return e.Err }

// LocalStoreCorrupt indicates a schema or invariant violation in the local
// store. Fatal: the process should exit non-zero so a supervising process
// manager can reinitialize the kiosk.
type LocalStoreCorrupt struct {
	Op  string
	Err error
}

func (e *LocalStoreCorrupt) Error() string {
	return fmt.Sprintf("local store corrupt during %s: %v", e.Op, e.Err)
}

func (e *LocalStoreCorrupt) Unwrap() error { return e.Err }

// DetectorFault indicates the external face detector reported a fault. C4
// treats this as a gate failure: stabilization resets, no event is emitted.
type DetectorFault struct {
	Err error
}

func (e *DetectorFault) Error() string { return fmt.Sprintf("detector fault: %v", e.Err) }
func (e *DetectorFault) Unwrap() error { return e.Err }

// EmbedderFault indicates the external embedding extractor reported a fault.
// Treated the same as DetectorFault by C4.
type EmbedderFault struct {
	Err error
}

func (e *EmbedderFault) Error() string { return fmt.Sprintf("embedder fault: %v", e.Err) }
func (e *EmbedderFault) Unwrap() error { return e.Err }

// IndexEmpty indicates the embedding index has no rows loaded. C4 silently
// avoids verification; this is not surfaced to the operator.
type IndexEmpty struct{}

func (IndexEmpty) Error() string { return "embedding index is empty" }

// ValidationFailure is not an error in the exceptional sense: it is the
// successful rejection of an attendance event by one of C5's gates, carrying
// a reason code back to the UI.
type ValidationFailure struct {
	Reason string
	// Detail carries gate-specific structured context, e.g. the end-of-cooldown
	// timestamp for the "cooldown" reason.
	Detail map[string]any
}

func (e *ValidationFailure) Error() string {
	return fmt.Sprintf("validation failure: %s", e.Reason)
}

// Known ValidationFailure reason codes (§4.3 G1-G4).
const (
	ReasonNoSchedule       = "no_schedule"
	ReasonAlreadyLoggedOut = "already_logged_out"
	ReasonCooldown         = "cooldown"
	ReasonUndertimeRefused = "undertime_refused"
)
