package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vigilguard/verifier/pkg/config"
	"github.com/vigilguard/verifier/pkg/types"
)

const webhookPath = "/webhook/vigil-guard"

// Dispatcher sends one input to the pipeline's webhook ingress and returns
// the synchronous acknowledgment. It performs exactly one network call and
// never retries; correlation retries belong to the event poller.
type Dispatcher struct {
	baseURL string
	client  *http.Client
	logger  *logrus.Logger
}

type ingressRequest struct {
	ChatInput string `json:"chatInput"`
	SessionID string `json:"sessionId"`
}

func NewDispatcher(cfg config.IngressConfig, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		baseURL: cfg.URL,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

// Dispatch posts input to the ingress. An empty correlationID gets a fresh
// uuid; the effective id is whatever the pipeline echoes back. The input may
// be empty, the pipeline handles that case itself.
func (d *Dispatcher) Dispatch(ctx context.Context, input, correlationID string) (*types.IngressAck, error) {
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	body, err := json.Marshal(ingressRequest{ChatInput: input, SessionID: correlationID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ingress request: %w", err)
	}

	url := d.baseURL + webhookPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build ingress request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	d.logger.WithFields(logrus.Fields{
		"session_id":   correlationID,
		"input_length": len(input),
	}).Debug("dispatching probe")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &TransportError{Endpoint: url, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Endpoint: url, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{
			Endpoint: url,
			Err:      fmt.Errorf("ingress returned status %d: %s", resp.StatusCode, respBody),
		}
	}

	var ack types.IngressAck
	if err := json.Unmarshal(respBody, &ack); err != nil {
		return nil, fmt.Errorf("failed to decode ingress ack: %w", err)
	}
	if ack.SessionID == "" {
		ack.SessionID = correlationID
	}

	return &ack, nil
}
