package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fastjson"

	"github.com/vigilguard/verifier/pkg/config"
	"github.com/vigilguard/verifier/pkg/httpx"
	"github.com/vigilguard/verifier/pkg/types"
)

// RecordFilter selects decision records in the event log. SessionID is
// mandatory; Predicates add equality constraints on record columns.
type RecordFilter struct {
	SessionID  string
	Predicates map[string]string
}

func (f RecordFilter) String() string {
	parts := []string{fmt.Sprintf("session_id=%s", f.SessionID)}
	keys := make([]string, 0, len(f.Predicates))
	for k := range f.Predicates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, f.Predicates[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// EventPoller correlates a dispatched probe with its eventually-visible
// decision record. The log store is eventually consistent: the record is
// usually not there right after the ingress ack, so the poller queries at a
// bounded interval until the deadline. Queries run through a circuit breaker
// so a dead store fails fast instead of eating the whole deadline.
type EventPoller struct {
	store    *LogStoreClient
	breaker  httpx.CircuitBreaker
	interval time.Duration
	logger   *logrus.Logger
}

func NewEventPoller(cfg config.LogStoreConfig, logger *logrus.Logger) *EventPoller {
	return &EventPoller{
		store:    NewLogStoreClient(cfg),
		breaker:  httpx.NewCircuitBreaker("logstore", 10*time.Second, 5),
		interval: cfg.PollInterval,
		logger:   logger,
	}
}

// WaitForRecord polls until exactly one record matches the filter or the
// deadline elapses. More than one match is a correlation-key collision and
// is surfaced as *DuplicateRecordError, never resolved by taking the first.
func (p *EventPoller) WaitForRecord(ctx context.Context, filter RecordFilter, deadline time.Duration) (*types.Outcome, error) {
	start := time.Now()
	var outcome *types.Outcome

	finished, err := pollUntil(ctx, p.interval, deadline, func(ctx context.Context) pollResult {
		var body []byte
		queryErr := p.breaker.Execute(func() error {
			var err error
			body, err = p.store.QueryBySession(ctx, filter)
			return err
		})
		if queryErr != nil {
			p.logger.WithError(queryErr).WithField("filter", filter.String()).
				Warn("log store query failed, retrying until deadline")
			return pollAgain()
		}

		rows, parseErr := extractRows(body)
		if parseErr != nil {
			return pollDone(fmt.Errorf("malformed log store response: %w", parseErr))
		}

		switch len(rows) {
		case 0:
			return pollAgain()
		case 1:
			decoded, decodeErr := decodeRecord(rows[0])
			if decodeErr != nil {
				return pollDone(decodeErr)
			}
			outcome = decoded
			return pollDone(nil)
		default:
			return pollDone(&DuplicateRecordError{Filter: filter, Count: len(rows)})
		}
	})
	if err != nil {
		return nil, err
	}
	if !finished {
		return nil, &TimeoutError{Filter: filter, Elapsed: time.Since(start)}
	}

	p.checkDecisionInvariant(outcome)
	return outcome, nil
}

// extractRows pulls the data array out of a ClickHouse FORMAT JSON envelope
// without decoding every row up front.
func extractRows(body []byte) ([][]byte, error) {
	var parser fastjson.Parser
	parsed, err := parser.ParseBytes(body)
	if err != nil {
		return nil, err
	}
	data := parsed.Get("data")
	if data == nil {
		return nil, fmt.Errorf("response has no data array")
	}
	dataValues, err := data.Array()
	if err != nil {
		return nil, fmt.Errorf("response data is not an array: %w", err)
	}
	rows := make([][]byte, 0, len(dataValues))
	for _, v := range dataValues {
		rows = append(rows, v.MarshalTo(nil))
	}
	return rows, nil
}

func decodeRecord(row []byte) (*types.Outcome, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(row, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	if err := compiledRecordSchema.Validate(raw); err != nil {
		return nil, fmt.Errorf("record failed schema validation: %w", err)
	}

	var outcome types.Outcome
	if err := mapstructure.Decode(raw, &outcome); err != nil {
		return nil, fmt.Errorf("failed to map record fields: %w", err)
	}
	return &outcome, nil
}

// checkDecisionInvariant logs when a sanitized or blocked record carries
// neither detected entities nor an over-threshold score. Threat scoring and
// PII redaction are independent axes, so this is a warning, not a failure.
func (p *EventPoller) checkDecisionInvariant(o *types.Outcome) {
	if o.FinalStatus == types.StatusAllowed {
		return
	}
	if len(o.DetectedEntities) == 0 && o.ThreatScore < types.BlockScoreThreshold {
		p.logger.WithFields(logrus.Fields{
			"session_id":   o.SessionID,
			"final_status": o.FinalStatus,
			"threat_score": o.ThreatScore,
		}).Warn("record is sanitized or blocked without entities or an over-threshold score")
	}
}
