package validator

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Reason classifies why an evaluation failed.
type Reason string

const (
	ReasonInvalidSyntax Reason = "invalid_syntax"
	ReasonMissingKey    Reason = "missing_key"
	ReasonValueMismatch Reason = "value_mismatch"
)

// Tolerance is the absolute difference under which two numbers compare equal.
// Textual formatting differences (0.8 vs 0.80) must not count as mismatch.
const Tolerance = 1e-6

// Expectation is the labeled result for one case: either a parsed JSON value
// or raw text.
type Expectation struct {
	Value      any
	Text       string
	Structured bool
}

// Result is the per-case outcome of one evaluation.
type Result struct {
	CaseID   string
	Pass     bool
	Reason   Reason
	Detail   string
	Actual   string
	Expected string
	Parsed   bool
}

// Validator deterministically judges candidate output against expectations.
// It makes no external calls and never fails on malformed input: a response
// that cannot be parsed becomes a failed Result, not an error.
type Validator struct {
	unordered map[string]bool
}

// New builds a Validator. unorderedPaths lists field paths (dot notation,
// e.g. "options.filters.tags") whose list values compare as sets.
func New(unorderedPaths []string) *Validator {
	m := make(map[string]bool, len(unorderedPaths))
	for _, p := range unorderedPaths {
		m[p] = true
	}
	return &Validator{unordered: m}
}

// ParseJSON strips markdown code fences and parses the remainder as JSON.
func ParseJSON(text string) (any, bool) {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = cleaned[len("```json"):]
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = cleaned[len("```"):]
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	var v any
	if err := json.Unmarshal([]byte(strings.TrimSpace(cleaned)), &v); err != nil {
		return nil, false
	}
	return v, true
}

// Evaluate judges one raw response against its expectation.
//
// For structured expectations the stages run in order, short-circuiting:
// syntax (parse), schema (top-level key presence), then recursive semantic
// comparison. For raw-text expectations the comparison is string equality
// after trimming trailing whitespace on both sides, case-sensitive.
func (v *Validator) Evaluate(caseID, actualRaw string, expected Expectation) Result {
	res := Result{CaseID: caseID, Actual: actualRaw}

	if !expected.Structured {
		res.Expected = expected.Text
		if strings.TrimRight(actualRaw, " \t\r\n") == strings.TrimRight(expected.Text, " \t\r\n") {
			res.Pass = true
			return res
		}
		res.Reason = ReasonValueMismatch
		res.Detail = "text mismatch"
		return res
	}

	expJSON, _ := json.Marshal(expected.Value)
	res.Expected = string(expJSON)

	parsed, ok := ParseJSON(actualRaw)
	if !ok {
		res.Reason = ReasonInvalidSyntax
		res.Detail = "response is not valid JSON"
		return res
	}
	res.Parsed = true

	if expMap, ok := expected.Value.(map[string]any); ok {
		actMap, ok := parsed.(map[string]any)
		if !ok {
			res.Reason = ReasonValueMismatch
			res.Detail = fmt.Sprintf("expected object at root, got %s", typeName(parsed))
			return res
		}
		for _, key := range sortedKeys(expMap) {
			if _, present := actMap[key]; !present {
				res.Reason = ReasonMissingKey
				res.Detail = fmt.Sprintf("missing top-level key %q", key)
				return res
			}
		}
	}

	if detail, ok := v.compare(parsed, expected.Value, ""); !ok {
		res.Reason = ReasonValueMismatch
		res.Detail = detail
		return res
	}

	res.Pass = true
	return res
}

// compare recursively checks actual against expected. Keys present in actual
// but absent from expected are ignored at every level.
func (v *Validator) compare(actual, expected any, path string) (string, bool) {
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return fmt.Sprintf("type mismatch at %q: expected object, got %s", path, typeName(actual)), false
		}
		for _, key := range sortedKeys(exp) {
			child := key
			if path != "" {
				child = path + "." + key
			}
			av, present := act[key]
			if !present {
				return fmt.Sprintf("missing key at %q", child), false
			}
			if detail, ok := v.compare(av, exp[key], child); !ok {
				return detail, false
			}
		}
		return "", true

	case []any:
		act, ok := actual.([]any)
		if !ok {
			return fmt.Sprintf("type mismatch at %q: expected list, got %s", path, typeName(actual)), false
		}
		if v.unordered[path] {
			return compareSets(act, exp, path)
		}
		if len(act) != len(exp) {
			return fmt.Sprintf("list length mismatch at %q: expected %d, got %d", path, len(exp), len(act)), false
		}
		for i := range exp {
			if detail, ok := v.compare(act[i], exp[i], fmt.Sprintf("%s[%d]", path, i)); !ok {
				return detail, false
			}
		}
		return "", true

	case float64:
		act, ok := actual.(float64)
		if !ok {
			return fmt.Sprintf("type mismatch at %q: expected number, got %s", path, typeName(actual)), false
		}
		if math.Abs(act-exp) > Tolerance {
			return fmt.Sprintf("number mismatch at %q: expected %v, got %v", path, exp, act), false
		}
		return "", true

	default:
		if actual != expected {
			return fmt.Sprintf("value mismatch at %q: expected %v, got %v", path, expected, actual), false
		}
		return "", true
	}
}

// compareSets treats both lists as sets: duplicates collapse, order ignores.
// Elements are canonicalized through JSON serialization for comparability.
func compareSets(actual, expected []any, path string) (string, bool) {
	actSet := canonicalSet(actual)
	expSet := canonicalSet(expected)
	if len(actSet) != len(expSet) {
		return fmt.Sprintf("set mismatch at %q: expected %d distinct elements, got %d", path, len(expSet), len(actSet)), false
	}
	for k := range expSet {
		if !actSet[k] {
			return fmt.Sprintf("set mismatch at %q: missing element %s", path, k), false
		}
	}
	return "", true
}

func canonicalSet(items []any) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			set[fmt.Sprintf("%v", item)] = true
			continue
		}
		set[string(data)] = true
	}
	return set
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func typeName(v any) string {
	switch v.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "list"
	case float64:
		return "number"
	case string:
		return "string"
	case bool:
		return "bool"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}
