package common

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseJSON unmarshals the first JSON object embedded in an LLM response
// into T. Models wrap their output in markdown fences or prose often
// enough that trimming to the outermost braces first is the pragmatic
// move; anything that still fails to decode is the caller's upstream
// failure to record.
func ParseJSON[T any](response string) (T, error) {
	var zero T

	start := strings.Index(response, "{")
	if start == -1 {
		return zero, fmt.Errorf("no JSON object found in response")
	}
	end := strings.LastIndex(response, "}")
	if end <= start {
		return zero, fmt.Errorf("unterminated JSON object in response")
	}

	var result T
	if err := json.Unmarshal([]byte(response[start:end+1]), &result); err != nil {
		return zero, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return result, nil
}
