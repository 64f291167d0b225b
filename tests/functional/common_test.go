package functional_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vigilguard/verifier/pkg/harness"
	"github.com/vigilguard/verifier/pkg/types"
)

// probe dispatches one input and correlates it with its decision record.
func probe(t *testing.T, ctx context.Context, input string) *types.Outcome {
	t.Helper()

	ack, err := Dispatcher.Dispatch(ctx, input, "")
	require.NoError(t, err, "dispatch failed")
	t.Logf("dispatched probe session_id=%s", ack.SessionID)

	outcome, err := Poller.WaitForRecord(ctx,
		harness.RecordFilter{SessionID: ack.SessionID},
		GlobalConfig.LogStore.PollDeadline)
	require.NoError(t, err, "no decision record for session %s", ack.SessionID)
	return outcome
}

// withGuardedConfig snapshots the shared allow-list, applies labels, runs
// fn, and restores the snapshot afterward. A restore failure is reported as
// its own error so it never masks fn's failures.
func withGuardedConfig(t *testing.T, ctx context.Context, labels []string, fn func()) {
	t.Helper()

	guard := harness.NewLifecycleGuard(ConfigSync, GlobalConfig.ConfigAPI.SyncDeadline, Logg)

	_, err := guard.Snapshot(ctx)
	require.NoError(t, err, "failed to capture configuration snapshot")

	defer func() {
		restoreCtx, cancel := context.WithTimeout(context.Background(), 2*GlobalConfig.ConfigAPI.SyncDeadline)
		defer cancel()
		if restoreErr := guard.Restore(restoreCtx); restoreErr != nil {
			// Loud and distinct: the shared resource is now dirty.
			t.Errorf("RESTORE FAILURE (shared config left dirty): %v", restoreErr)
		}
	}()

	require.NoError(t, guard.Apply(ctx, labels), "failed to apply guarded configuration")
	fn()
}

// requireMethodAllowed asserts the record's detection method against the
// policy suggested by dependency health at suite start.
func requireMethodAllowed(t *testing.T, outcome *types.Outcome) {
	t.Helper()
	policy := Health.SuggestedPolicy()
	require.True(t, policy.Accepts(outcome.DetectionMethod),
		"detection method %q not acceptable under current health policy", outcome.DetectionMethod)
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	t.Cleanup(cancel)
	return ctx
}
