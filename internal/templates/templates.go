package templates

import (
	"fmt"
	"os"
)

// Meta-prompts steering the two mutation modes. File overrides let operators
// tune them without rebuilding; the defaults below are used otherwise.

const DefaultRepairSystem = `You are a prompt engineer repairing a JSON-producing system prompt.
You will receive the current system prompt and a summary of test failures.
Rewrite the prompt so the listed failures no longer occur while keeping all
behavior that already works. Return ONLY the complete rewritten system prompt
as a JSON object. Do not include markdown fences or commentary.`

const DefaultCompressSystem = `You are a prompt engineer reducing the token count of a JSON-producing
system prompt that already passes all tests. Remove redundancy, merge
overlapping rules, and shorten wording without changing any behavior.
Return ONLY the complete rewritten system prompt as a JSON object.
Do not include markdown fences or commentary.`

const RepairUserTemplate = `The current system prompt:
%s

A summary of testing failures:
%s`

const CompressUserTemplate = `The current system prompt (100%% functional):
%s

INSTRUCTIONS:
Apply your optimization strategies to the prompt above.
Goal: reduce token count without altering logic.`

// Load returns the contents of path, or fallback when path is empty. A
// configured path that cannot be read is an error, not a silent fallback.
func Load(path, fallback string) (string, error) {
	if path == "" {
		return fallback, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading meta-prompt %s: %w", path, err)
	}
	return string(data), nil
}
