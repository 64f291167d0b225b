// Package types defines the wire shapes exchanged with the Vigil Guard
// pipeline: the ingress acknowledgment, the decision record read back from
// the event log, and the harness-side probe descriptor.
package types

import "time"

// FinalStatus is the pipeline's terminal decision for one input.
type FinalStatus string

const (
	StatusAllowed   FinalStatus = "ALLOWED"
	StatusSanitized FinalStatus = "SANITIZED"
	StatusBlocked   FinalStatus = "BLOCKED"
)

// DetectionMethod names which recognizer path produced the PII findings.
// The pattern matcher takes over when the NLP service is degraded, so both
// values are valid outcomes unless a test pins the primary path explicitly.
type DetectionMethod string

const (
	MethodPresidioNLP   DetectionMethod = "presidio_nlp"
	MethodRegexFallback DetectionMethod = "regex_fallback"
)

// BlockScoreThreshold is the threat score at or above which the workflow
// blocks a request outright. Mirrors the pipeline's unified_config value.
const BlockScoreThreshold = 80.0

// Probe is one harness-issued test case. Immutable once dispatched.
type Probe struct {
	Input         string
	CorrelationID string
	MaxWait       time.Duration
}

// IngressAck is the synchronous response of the webhook ingress. The
// pipeline echoes the caller's session id, or assigns one when absent.
type IngressAck struct {
	SessionID      string `json:"sessionId"`
	Status         string `json:"status"`
	SanitizedInput string `json:"sanitizedInput,omitempty"`
}

// PIIEntityDetail carries the per-entity findings of the redaction stage.
type PIIEntityDetail struct {
	Type       string  `json:"type" mapstructure:"type"`
	Confidence float64 `json:"confidence" mapstructure:"confidence"`
	Method     string  `json:"method" mapstructure:"method"`
}

// PIIDetails is the structured sub-object of a decision record describing
// what the redaction stage found.
type PIIDetails struct {
	EntityCount int               `json:"entity_count" mapstructure:"entity_count"`
	Entities    []PIIEntityDetail `json:"entities" mapstructure:"entities"`
}

// Outcome is the decision record the pipeline writes to the event log for
// one correlated request. Written once by the pipeline, read-only here.
type Outcome struct {
	SessionID        string          `json:"session_id" mapstructure:"session_id"`
	FinalStatus      FinalStatus     `json:"final_status" mapstructure:"final_status"`
	ThreatScore      float64         `json:"threat_score" mapstructure:"threat_score"`
	SanitizedOutput  string          `json:"sanitized_output" mapstructure:"sanitized_output"`
	DetectedEntities []string        `json:"detected_entities" mapstructure:"detected_entities"`
	DetectionMethod  DetectionMethod `json:"detection_method" mapstructure:"detection_method"`
	PIIDetails       PIIDetails      `json:"pii_details" mapstructure:"pii_details"`
}

// HasEntity reports whether the record lists the given entity label.
func (o *Outcome) HasEntity(label string) bool {
	for _, e := range o.DetectedEntities {
		if e == label {
			return true
		}
	}
	return false
}

// IsValidStatus checks a raw status value against the three-state enum.
func IsValidStatus(s string) bool {
	switch FinalStatus(s) {
	case StatusAllowed, StatusSanitized, StatusBlocked:
		return true
	}
	return false
}
