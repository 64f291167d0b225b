package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vigilguard/verifier/pkg/config"
)

const (
	loginPath       = "/auth/login"
	piiEntitiesPath = "/api/config/pii-entities"
)

// ConfigSynchronizer mutates the remote PII entity allow-list and provides
// the barrier that makes those mutations observable before dependent probes
// are issued. The resource is shared: real deployments and concurrent test
// runs read the same list, so callers own the snapshot/restore obligation
// (see LifecycleGuard).
type ConfigSynchronizer struct {
	baseURL  string
	username string
	password string
	interval time.Duration
	client   *http.Client
	logger   *logrus.Logger

	token string
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type entityListPayload struct {
	EnabledEntities []string `json:"enabled_entities"`
}

func NewConfigSynchronizer(cfg config.ConfigAPIConfig, logger *logrus.Logger) *ConfigSynchronizer {
	return &ConfigSynchronizer{
		baseURL:  cfg.URL,
		username: cfg.Username,
		password: cfg.Password,
		interval: cfg.SyncInterval,
		client:   &http.Client{Timeout: 15 * time.Second},
		logger:   logger,
	}
}

// Read returns the currently enabled entity labels.
func (s *ConfigSynchronizer) Read(ctx context.Context) ([]string, error) {
	var payload entityListPayload
	if err := s.doAuthenticated(ctx, http.MethodGet, piiEntitiesPath, nil, &payload); err != nil {
		return nil, err
	}
	return payload.EnabledEntities, nil
}

// Write replaces the allow-list. The config API applies the replacement
// atomically; propagation to the workflow and recognizer services is
// asynchronous, so Write alone is not a barrier.
func (s *ConfigSynchronizer) Write(ctx context.Context, labels []string) error {
	body, err := json.Marshal(entityListPayload{EnabledEntities: labels})
	if err != nil {
		return fmt.Errorf("failed to marshal entity list: %w", err)
	}
	s.logger.WithField("entities", labels).Info("writing pii entity allow-list")
	return s.doAuthenticated(ctx, http.MethodPut, piiEntitiesPath, body, nil)
}

// WaitUntilSynced polls Read until it returns the expected labels as a set
// (order-insensitive) or the deadline elapses. A test that writes and then
// immediately dispatches is racing cache invalidation; this converts that
// race into a bounded wait with an explicit failure mode.
func (s *ConfigSynchronizer) WaitUntilSynced(ctx context.Context, expected []string, deadline time.Duration) error {
	start := time.Now()
	var lastObserved []string

	finished, err := pollUntil(ctx, s.interval, deadline, func(ctx context.Context) pollResult {
		observed, readErr := s.Read(ctx)
		if readErr != nil {
			s.logger.WithError(readErr).Warn("config read failed during sync wait, retrying")
			return pollAgain()
		}
		lastObserved = observed
		if sameLabelSet(observed, expected) {
			return pollDone(nil)
		}
		return pollAgain()
	})
	if err != nil {
		return err
	}
	if !finished {
		return &SyncTimeoutError{
			Expected:     expected,
			LastObserved: lastObserved,
			Elapsed:      time.Since(start),
		}
	}
	return nil
}

func (s *ConfigSynchronizer) doAuthenticated(ctx context.Context, method, path string, body []byte, out interface{}) error {
	if s.token == "" {
		if err := s.login(ctx); err != nil {
			return err
		}
	}

	status, respBody, err := s.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		// Session expired, re-login once.
		s.token = ""
		if err := s.login(ctx); err != nil {
			return err
		}
		status, respBody, err = s.do(ctx, method, path, body)
		if err != nil {
			return err
		}
	}
	if status != http.StatusOK {
		return &TransportError{
			Endpoint: s.baseURL + path,
			Err:      fmt.Errorf("config api returned status %d: %s", status, respBody),
		}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode config api response: %w", err)
		}
	}
	return nil
}

func (s *ConfigSynchronizer) do(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build config api request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, &TransportError{Endpoint: s.baseURL + path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &TransportError{Endpoint: s.baseURL + path, Err: err}
	}
	return resp.StatusCode, respBody, nil
}

func (s *ConfigSynchronizer) login(ctx context.Context) error {
	body, err := json.Marshal(loginRequest{Username: s.username, Password: s.password})
	if err != nil {
		return fmt.Errorf("failed to marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+loginPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return &TransportError{Endpoint: s.baseURL + loginPath, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Endpoint: s.baseURL + loginPath, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return &TransportError{
			Endpoint: s.baseURL + loginPath,
			Err:      fmt.Errorf("login returned status %d", resp.StatusCode),
		}
	}

	var lr loginResponse
	if err := json.Unmarshal(respBody, &lr); err != nil {
		return fmt.Errorf("failed to decode login response: %w", err)
	}
	if lr.Token == "" {
		return fmt.Errorf("login response contained no token")
	}
	s.token = lr.Token
	return nil
}

// sameLabelSet compares two label lists as sets.
func sameLabelSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
