// Package dataset loads labeled adversarial corpora for evaluation runs.
// The format is JSON Lines, one item per line, matching the sampled
// hackaprompt exports the pipeline team uses for regression tracking.
package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Item is one labeled corpus entry. Level is the dataset's difficulty or
// category label; the harness carries it through to the report unchanged.
type Item struct {
	UserInput string `json:"user_input"`
	Level     int    `json:"level"`
}

// LoadJSONL reads a JSON Lines corpus. Blank lines are ignored; a malformed
// line fails the whole load, partial corpora silently skew detection rates.
func LoadJSONL(path string) ([]Item, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", path, err)
	}
	defer f.Close()

	var items []Item
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var item Item
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			return nil, fmt.Errorf("dataset %s line %d: %w", path, lineNo, err)
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", path, err)
	}

	return items, nil
}
