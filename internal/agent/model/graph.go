package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// QueryInput represents the input for processing user queries.
type QueryInput struct {
	ConversationID string `json:"conversation_id"`
	Query          string `json:"query"`
}

// StepType names an observable event of one loop run.
type StepType string

const (
	StepToolCall   StepType = "tool_call"
	StepToolResult StepType = "tool_result"
	StepResponse   StepType = "response"
	StepError      StepType = "error"
)

// Step is handed to loop observers. Only the fields relevant to Type are set.
type Step struct {
	Type      StepType
	Name      string
	CallID    string
	Arguments map[string]any
	Result    any
	Content   string
	Err       error
}

// RunStats accumulates per-run accounting.
type RunStats struct {
	ModelCalls   int
	ToolCalls    int
	Iterations   int
	CeilingHit   bool
	TotalCostUSD float64
}

// DecodeArguments parses a tool call's JSON arguments. Malformed or empty input
// yields an empty map so the call still reaches the dispatcher. Whole numbers
// decode to int64, everything else numeric to float64.
func DecodeArguments(raw string) map[string]any {
	args, err := DecodeObject(raw)
	if err != nil {
		return map[string]any{}
	}
	return args
}

// DecodeObject decodes a JSON object keeping integer literals as int64.
// Empty input and JSON null decode to an empty map.
func DecodeObject(raw string) (map[string]any, error) {
	out := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return out, nil
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON object")
	}
	switch obj := v.(type) {
	case nil:
		return out, nil
	case map[string]any:
		return convertNumbers(obj).(map[string]any), nil
	default:
		return nil, fmt.Errorf("expected JSON object, got %T", v)
	}
}

func convertNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case map[string]any:
		for k, item := range val {
			val[k] = convertNumbers(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = convertNumbers(item)
		}
		return val
	default:
		return v
	}
}
