package harness

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vigilguard/verifier/pkg/config"
	"github.com/vigilguard/verifier/pkg/dataset"
	"github.com/vigilguard/verifier/pkg/types"
)

const previewLen = 60

// probeDispatcher and recordWaiter cover the two collaborators the
// evaluator drives, narrowed so tests can substitute fakes.
type probeDispatcher interface {
	Dispatch(ctx context.Context, input, correlationID string) (*types.IngressAck, error)
}

type recordWaiter interface {
	WaitForRecord(ctx context.Context, filter RecordFilter, deadline time.Duration) (*types.Outcome, error)
}

// ItemVerdict is the three-way result of one corpus item.
type ItemVerdict string

const (
	VerdictPositive ItemVerdict = "positive"
	VerdictNegative ItemVerdict = "negative"
	VerdictErrored  ItemVerdict = "errored"
)

// ItemResult keeps enough per-item detail to debug a regression without
// re-running the corpus.
type ItemResult struct {
	Level        int
	InputPreview string
	Verdict      ItemVerdict
	Status       types.FinalStatus
	Score        float64
	Err          error
}

// LevelStats aggregates outcomes per dataset level.
type LevelStats struct {
	Total     int
	Positives int
}

// Report is the aggregate of one evaluation run. The suite verdict is a
// threshold on the aggregate rate, never a per-item assertion: the detector
// under test is heuristic and single items are allowed to slip.
type Report struct {
	Total     int
	Positives int
	Negatives int
	Skipped   int
	Errored   int
	ByLevel   map[int]*LevelStats
	Items     []ItemResult
	Elapsed   time.Duration
}

// DetectionRate returns positives over evaluated items, in percent.
// Skipped and errored items are excluded from both sides of the ratio.
func (r *Report) DetectionRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Positives) / float64(r.Total) * 100
}

// MeetsThreshold is the suite-level verdict.
func (r *Report) MeetsThreshold(pct float64) bool {
	return r.DetectionRate() >= pct
}

// Summary renders the human-readable end-of-run report.
func (r *Report) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "evaluated %d items in %s: %d blocked, %d passed through, %d errored, %d skipped\n",
		r.Total, r.Elapsed.Round(time.Second), r.Positives, r.Negatives, r.Errored, r.Skipped)
	fmt.Fprintf(&sb, "detection rate: %.1f%%\n", r.DetectionRate())

	levels := make([]int, 0, len(r.ByLevel))
	for lvl := range r.ByLevel {
		levels = append(levels, lvl)
	}
	sort.Ints(levels)
	for _, lvl := range levels {
		stats := r.ByLevel[lvl]
		fmt.Fprintf(&sb, "  level %d: %d/%d blocked\n", lvl, stats.Positives, stats.Total)
	}
	return sb.String()
}

// DatasetEvaluator drives the dispatcher/poller pair over a labeled corpus
// sequentially, one probe fully resolved before the next, and folds the
// outcomes into a Report.
type DatasetEvaluator struct {
	dispatcher   probeDispatcher
	poller       recordWaiter
	minInputLen  int
	maxInputLen  int
	probeTimeout time.Duration
	logger       *logrus.Logger
}

func NewDatasetEvaluator(
	dispatcher probeDispatcher,
	poller recordWaiter,
	cfg config.EvaluatorConfig,
	logger *logrus.Logger,
) *DatasetEvaluator {
	return &DatasetEvaluator{
		dispatcher:   dispatcher,
		poller:       poller,
		minInputLen:  cfg.MinInputLen,
		maxInputLen:  cfg.MaxInputLen,
		probeTimeout: cfg.ProbeTimeout,
		logger:       logger,
	}
}

// Evaluate runs the corpus. Items shorter than the minimum (trimmed) are
// skipped as non-probative; overlong items are truncated to bound per-item
// latency. A failed probe is logged and excluded from the statistics, a
// single bad network call must not invalidate the whole pass.
func (e *DatasetEvaluator) Evaluate(ctx context.Context, items []dataset.Item) *Report {
	start := time.Now()
	report := &Report{ByLevel: make(map[int]*LevelStats)}

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			e.logger.WithError(err).Warn("evaluation cancelled, reporting partial results")
			break
		}

		input := item.UserInput
		if len(strings.TrimSpace(input)) < e.minInputLen {
			report.Skipped++
			continue
		}
		if len(input) > e.maxInputLen {
			input = input[:e.maxInputLen]
		}

		result := e.evaluateOne(ctx, input, item.Level)
		report.Items = append(report.Items, result)

		switch result.Verdict {
		case VerdictErrored:
			report.Errored++
			e.logger.WithError(result.Err).WithFields(logrus.Fields{
				"item":  i,
				"level": item.Level,
			}).Warn("probe failed, excluded from statistics")
			continue
		case VerdictPositive:
			report.Positives++
		case VerdictNegative:
			report.Negatives++
		}
		report.Total++

		stats := report.ByLevel[item.Level]
		if stats == nil {
			stats = &LevelStats{}
			report.ByLevel[item.Level] = stats
		}
		stats.Total++
		if result.Verdict == VerdictPositive {
			stats.Positives++
		}
	}

	report.Elapsed = time.Since(start)
	return report
}

func (e *DatasetEvaluator) evaluateOne(ctx context.Context, input string, level int) ItemResult {
	result := ItemResult{Level: level, InputPreview: preview(input)}

	ack, err := e.dispatcher.Dispatch(ctx, input, "")
	if err != nil {
		result.Verdict = VerdictErrored
		result.Err = err
		return result
	}

	outcome, err := e.poller.WaitForRecord(ctx, RecordFilter{SessionID: ack.SessionID}, e.probeTimeout)
	if err != nil {
		result.Verdict = VerdictErrored
		result.Err = err
		return result
	}

	result.Status = outcome.FinalStatus
	result.Score = outcome.ThreatScore
	// Adversarial corpora label every item malicious: a block is a hit,
	// anything else slipped through.
	if outcome.FinalStatus == types.StatusBlocked {
		result.Verdict = VerdictPositive
	} else {
		result.Verdict = VerdictNegative
	}
	return result
}

func preview(input string) string {
	if len(input) <= previewLen {
		return input
	}
	return input[:previewLen] + "..."
}
