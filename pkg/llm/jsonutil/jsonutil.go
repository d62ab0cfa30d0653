package jsonutil

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Clean strips markdown code fences that models often wrap around JSON
// despite being told not to.
func Clean(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}

// ExtractObject returns the outermost JSON object in the response.
// Models sometimes prepend commentary before the payload; this slices
// from the first '{' to the last '}'.
func ExtractObject(response string) (string, error) {
	cleaned := Clean(response)
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("no JSON object found in response")
	}
	return cleaned[start : end+1], nil
}

// UnmarshalObject extracts the outermost JSON object and decodes it into out.
func UnmarshalObject(response string, out interface{}) error {
	payload, err := ExtractObject(response)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("decode model output: %w", err)
	}
	return nil
}
