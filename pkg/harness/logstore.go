package harness

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vigilguard/verifier/pkg/config"
)

// LogStoreClient queries the pipeline's ClickHouse event log over its HTTP
// interface. The harness only ever reads; records are append-only from its
// point of view.
type LogStoreClient struct {
	baseURL  string
	database string
	table    string
	user     string
	password string
	client   *http.Client
}

func NewLogStoreClient(cfg config.LogStoreConfig) *LogStoreClient {
	return &LogStoreClient{
		baseURL:  cfg.URL,
		database: cfg.Database,
		table:    cfg.Table,
		user:     cfg.User,
		password: cfg.Password,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

const recordColumns = "session_id, final_status, threat_score, sanitized_output, " +
	"detected_entities, detection_method, pii_details"

// QueryBySession fetches the raw FORMAT JSON response for all records
// matching the filter. The session id is validated as a uuid before being
// interpolated; predicate values are escaped.
func (c *LogStoreClient) QueryBySession(ctx context.Context, filter RecordFilter) ([]byte, error) {
	if _, err := uuid.Parse(filter.SessionID); err != nil {
		return nil, fmt.Errorf("correlation id %q is not a valid uuid: %w", filter.SessionID, err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s.%s WHERE session_id = '%s'",
		recordColumns, c.database, c.table, filter.SessionID)
	for field, value := range filter.Predicates {
		fmt.Fprintf(&sb, " AND %s = '%s'", escapeIdentifier(field), escapeValue(value))
	}
	sb.WriteString(" FORMAT JSON")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(sb.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to build log store request: %w", err)
	}
	if c.user != "" {
		req.Header.Set("X-ClickHouse-User", c.user)
		req.Header.Set("X-ClickHouse-Key", c.password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Endpoint: c.baseURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Endpoint: c.baseURL, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{
			Endpoint: c.baseURL,
			Err:      fmt.Errorf("log store returned status %d: %s", resp.StatusCode, body),
		}
	}

	return body, nil
}

func escapeValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `'`, `\'`)
}

func escapeIdentifier(v string) string {
	var sb strings.Builder
	for _, r := range v {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
