package utils

import (
	"encoding/json"
	"errors"
	"fmt"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// ErrUnparseable is returned when no strategy yields JSON matching the target.
var ErrUnparseable = errors.New("all parsing strategies failed")

// RepairJSON attempts to fix common JSON errors from LLM outputs:
// missing quotes, single quotes, unclosed brackets, trailing commas and
// surrounding prose.
func RepairJSON(malformedJSON string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformedJSON)
	if err != nil {
		return "", fmt.Errorf("json repair failed: %w", err)
	}
	return repaired, nil
}

// ParseHJSON parses Human-friendly JSON (Hjson) and returns standard JSON.
// Hjson allows comments, unquoted keys and strings, optional commas and
// multiline strings.
func ParseHJSON(hjsonData string) (string, error) {
	var result interface{}
	if err := hjson.Unmarshal([]byte(hjsonData), &result); err != nil {
		return "", fmt.Errorf("hjson parse error: %w", err)
	}

	jsonBytes, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("json marshal error: %w", err)
	}
	return string(jsonBytes), nil
}

// SmartParse decodes input into target, trying in order:
// 1. Standard JSON parse
// 2. JSON repair
// 3. Hjson parse (most lenient)
// It returns the JSON text that finally decoded.
func SmartParse(input string, target interface{}) (string, error) {
	if err := json.Unmarshal([]byte(input), target); err == nil {
		return input, nil
	}

	if repaired, err := RepairJSON(input); err == nil {
		if err := json.Unmarshal([]byte(repaired), target); err == nil {
			return repaired, nil
		}
	}

	if normalized, err := ParseHJSON(input); err == nil {
		if err := json.Unmarshal([]byte(normalized), target); err == nil {
			return normalized, nil
		}
	}

	return "", ErrUnparseable
}
