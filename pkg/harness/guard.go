package harness

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// LifecycleGuard protects the shared entity allow-list across test suites.
// A suite that mutates configuration captures the pre-existing value first
// and restores it when done, success or failure. An unrestored allow-list
// silently corrupts every subsequent run against the same deployment, which
// makes restore the correctness-critical step of the whole harness.
type LifecycleGuard struct {
	sync     *ConfigSynchronizer
	deadline time.Duration
	logger   *logrus.Logger

	snapshot []string
	captured bool
}

func NewLifecycleGuard(sync *ConfigSynchronizer, syncDeadline time.Duration, logger *logrus.Logger) *LifecycleGuard {
	return &LifecycleGuard{
		sync:     sync,
		deadline: syncDeadline,
		logger:   logger,
	}
}

// Snapshot captures the current allow-list. Must be called before the first
// mutation; Restore is a no-op until it succeeds.
func (g *LifecycleGuard) Snapshot(ctx context.Context) ([]string, error) {
	current, err := g.sync.Read(ctx)
	if err != nil {
		return nil, err
	}
	g.snapshot = append([]string(nil), current...)
	g.captured = true
	g.logger.WithField("snapshot", g.snapshot).Info("captured configuration snapshot")
	return g.snapshot, nil
}

// Restore re-applies the captured snapshot and waits until the value is
// observable again. The returned *RestoreFailureError embeds the snapshot
// contents; callers must report it separately from any in-test failure so
// neither masks the other.
func (g *LifecycleGuard) Restore(ctx context.Context) error {
	if !g.captured {
		return nil
	}

	if err := g.sync.Write(ctx, g.snapshot); err != nil {
		return &RestoreFailureError{Snapshot: g.snapshot, Err: err}
	}
	if err := g.sync.WaitUntilSynced(ctx, g.snapshot, g.deadline); err != nil {
		return &RestoreFailureError{Snapshot: g.snapshot, Err: err}
	}

	g.logger.WithField("snapshot", g.snapshot).Info("configuration snapshot restored")
	g.captured = false
	return nil
}

// Apply writes a new allow-list and blocks until it is in effect. Snapshot
// must have been taken first, so a forgotten capture fails loudly instead
// of leaking state.
func (g *LifecycleGuard) Apply(ctx context.Context, labels []string) error {
	if !g.captured {
		return errNoSnapshot
	}
	if err := g.sync.Write(ctx, labels); err != nil {
		return err
	}
	return g.sync.WaitUntilSynced(ctx, labels, g.deadline)
}
