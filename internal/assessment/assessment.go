package assessment

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/validator"
)

// Turn is one role/content entry in a case's conversation context.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Case is one labeled evaluation unit. Immutable once loaded.
type Case struct {
	ID           string
	Conversation []Turn
	Expected     validator.Expectation
}

// LastUserContent returns the content of the final conversation turn, which
// carries the request the candidate prompt must answer.
func (c *Case) LastUserContent() string {
	if len(c.Conversation) == 0 {
		return ""
	}
	return c.Conversation[len(c.Conversation)-1].Content
}

// Dataset is an ordered sequence of cases.
type Dataset []Case

type rawCase struct {
	ID           string          `json:"id"`
	Conversation []Turn          `json:"conversation"`
	ExpectedJSON json.RawMessage `json:"expected_json"`
}

// Load reads an assessment file: a JSON list of objects, each carrying a
// conversation and an expected result. expected_json may be a JSON value
// directly, a string containing JSON, or a plain string (raw-text
// expectation). Structural problems are data errors and abort the run.
func Load(path string) (Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading assessment %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and structurally validates assessment data.
func Parse(data []byte) (Dataset, error) {
	var raw []rawCase
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("assessment must be a JSON list of objects: %w", err)
	}

	ds := make(Dataset, 0, len(raw))
	for i, rc := range raw {
		if len(rc.Conversation) == 0 {
			return nil, fmt.Errorf("case %d: missing required key %q", i, "conversation")
		}
		if len(rc.ExpectedJSON) == 0 {
			return nil, fmt.Errorf("case %d: missing required key %q", i, "expected_json")
		}
		exp, err := parseExpectation(rc.ExpectedJSON)
		if err != nil {
			return nil, fmt.Errorf("case %d: %w", i, err)
		}
		id := rc.ID
		if id == "" {
			id = fmt.Sprintf("case-%03d", i)
		}
		ds = append(ds, Case{ID: id, Conversation: rc.Conversation, Expected: exp})
	}
	return ds, nil
}

// parseExpectation normalizes the expected_json field. A JSON string whose
// content parses as JSON is a structured expectation in disguise; any other
// string is a raw-text expectation.
func parseExpectation(raw json.RawMessage) (validator.Expectation, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return validator.Expectation{}, fmt.Errorf("invalid expected_json: %w", err)
	}
	if s, ok := v.(string); ok {
		var inner any
		if err := json.Unmarshal([]byte(s), &inner); err == nil {
			return validator.Expectation{Value: inner, Structured: true}, nil
		}
		return validator.Expectation{Text: s}, nil
	}
	return validator.Expectation{Value: v, Structured: true}, nil
}
