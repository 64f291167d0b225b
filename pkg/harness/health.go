package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vigilguard/verifier/pkg/config"
	"github.com/vigilguard/verifier/pkg/types"
)

// MethodPolicy states which detection methods a test should accept. It is
// an explicit value rather than something inferred on the fly from health
// probes, so tests can pin the primary path deliberately.
type MethodPolicy int

const (
	// MethodEither accepts both the NLP service and the pattern fallback.
	MethodEither MethodPolicy = iota
	// MethodPrimaryOnly requires the NLP service; used when the dependency
	// is known healthy and a fallback would itself be a regression.
	MethodPrimaryOnly
)

// Accepts reports whether the policy tolerates the given detection method.
func (p MethodPolicy) Accepts(m types.DetectionMethod) bool {
	if p == MethodPrimaryOnly {
		return m == types.MethodPresidioNLP
	}
	return m == types.MethodPresidioNLP || m == types.MethodRegexFallback
}

// DependencyHealth is the aggregated liveness of the pipeline's detection
// dependencies.
type DependencyHealth struct {
	PIIServiceHealthy  bool
	PromptGuardHealthy bool
}

// SuggestedPolicy maps health to the method policy a test should use: a
// healthy recognizer is expected to serve the primary path.
func (h DependencyHealth) SuggestedPolicy() MethodPolicy {
	if h.PIIServiceHealthy {
		return MethodPrimaryOnly
	}
	return MethodEither
}

type healthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

// HealthChecker reads the /health endpoints of the recognition services.
type HealthChecker struct {
	piiURL         string
	promptGuardURL string
	client         *http.Client
	logger         *logrus.Logger
}

func NewHealthChecker(cfg config.HealthConfig, logger *logrus.Logger) *HealthChecker {
	return &HealthChecker{
		piiURL:         cfg.PIIServiceURL,
		promptGuardURL: cfg.PromptGuardURL,
		client:         &http.Client{Timeout: cfg.Timeout},
		logger:         logger,
	}
}

// Check probes both dependencies concurrently. An unreachable service is
// reported unhealthy, not an error: degraded dependencies are a legitimate
// state the pipeline handles by falling back.
func (h *HealthChecker) Check(ctx context.Context) DependencyHealth {
	var health DependencyHealth
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		health.PIIServiceHealthy = h.probeOne(ctx, h.piiURL, "pii service")
		return nil
	})
	g.Go(func() error {
		health.PromptGuardHealthy = h.probeOne(ctx, h.promptGuardURL, "prompt guard")
		return nil
	})
	_ = g.Wait()

	return health
}

func (h *HealthChecker) probeOne(ctx context.Context, baseURL, name string) bool {
	if baseURL == "" {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.WithError(err).WithField("service", name).Warn("health probe failed")
		return false
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode != http.StatusOK {
		h.logger.WithField("service", name).WithField("status", resp.StatusCode).
			Warn("health probe returned non-ok")
		return false
	}

	var hr healthResponse
	if err := json.Unmarshal(body, &hr); err != nil {
		h.logger.WithError(err).WithField("service", name).Warn(fmt.Sprintf("unparseable health response: %s", body))
		return false
	}
	return hr.Status == "healthy" && hr.ModelLoaded
}
