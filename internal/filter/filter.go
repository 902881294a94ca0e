// Package filter narrows a JSON response with JMESPath expressions.
package filter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmespath/go-jmespath"
)

// Search applies a JMESPath expression to already-decoded JSON data.
// An empty expression returns data unchanged.
func Search(data any, expression string) (any, error) {
	if expression == "" {
		return data, nil
	}

	jp, err := jmespath.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid JMESPath expression '%s': %w", expression, err)
	}

	result, err := jp.Search(data)
	if err != nil {
		return nil, fmt.Errorf("JMESPath search failed: %w", err)
	}

	return result, nil
}

// Apply applies a JMESPath expression to a JSON body. It returns the
// decoded result and its two-space indented text.
func Apply(body string, expression string) (any, string, error) {
	var data any
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		return nil, "", fmt.Errorf("invalid JSON: %w", err)
	}

	result, err := Search(data, expression)
	if err != nil {
		return nil, "", err
	}

	// Handle null result
	if result == nil {
		return nil, "null", nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return nil, "", fmt.Errorf("failed to marshal result: %w", err)
	}

	return result, strings.TrimRight(buf.String(), "\n"), nil
}

// IsValidJMESPath checks if an expression is valid JMESPath syntax
func IsValidJMESPath(expression string) bool {
	_, err := jmespath.Compile(expression)
	return err == nil
}
