package harness

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// errNoSnapshot guards against mutating shared configuration without a
// captured pre-state to restore.
var errNoSnapshot = errors.New("configuration mutation attempted before snapshot was captured")

// TransportError wraps a network-layer failure against the ingress or the
// log store. The dispatcher never retries; it surfaces the error as-is.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error calling %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// TimeoutError reports an exhausted correlation deadline. It names the
// filter used and the elapsed time so the failure is diagnosable without a
// re-run.
type TimeoutError struct {
	Filter  RecordFilter
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("no record matched filter %s within %s", e.Filter, e.Elapsed.Round(time.Millisecond))
}

// DuplicateRecordError signals more than one log record for a supposedly
// unique correlation filter: either a key collision or a store invariant
// violation. Never resolved silently.
type DuplicateRecordError struct {
	Filter RecordFilter
	Count  int
}

func (e *DuplicateRecordError) Error() string {
	return fmt.Sprintf("expected exactly one record for filter %s, found %d", e.Filter, e.Count)
}

// SyncTimeoutError reports that a configuration write never became
// observable through reads before the deadline.
type SyncTimeoutError struct {
	Expected     []string
	LastObserved []string
	Elapsed      time.Duration
}

func (e *SyncTimeoutError) Error() string {
	return fmt.Sprintf(
		"config not synced within %s: expected [%s], last observed [%s]",
		e.Elapsed.Round(time.Millisecond),
		strings.Join(e.Expected, ", "),
		strings.Join(e.LastObserved, ", "),
	)
}

// RestoreFailureError means the lifecycle guard could not re-apply a
// captured configuration snapshot. It embeds the snapshot so a human can
// repair the shared resource manually; subsequent suites run against
// whatever state was left behind otherwise.
type RestoreFailureError struct {
	Snapshot []string
	Err      error
}

func (e *RestoreFailureError) Error() string {
	return fmt.Sprintf(
		"failed to restore configuration snapshot [%s]: %v; shared state is dirty, repair manually",
		strings.Join(e.Snapshot, ", "),
		e.Err,
	)
}

func (e *RestoreFailureError) Unwrap() error {
	return e.Err
}
