package metrics

import (
	"log"
	"math"

	"github.com/pkoukk/tiktoken-go"
)

// heuristicDivisor approximates tokens-per-character when no BPE encoding is
// available for the model.
const heuristicDivisor = 3.5

// Engine counts tokens and computes the pareto fitness score. Token counts
// come from a deterministic BPE tokenizer, never from the generator's own
// usage report.
type Engine struct {
	alpha float64
	beta  float64
	enc   *tiktoken.Tiktoken
}

// NewEngine builds an Engine for the given model. It resolves the model's BPE
// encoding, falling back to cl100k_base and finally to a character heuristic
// when the model is unknown.
func NewEngine(model string, alpha, beta float64) *Engine {
	e := &Engine{alpha: alpha, beta: beta}
	enc, err := tiktoken.EncodingForModel(model)
	if err == nil {
		e.enc = enc
		return e
	}
	enc, err = tiktoken.GetEncoding("cl100k_base")
	if err == nil {
		e.enc = enc
		return e
	}
	log.Printf("warning: no BPE encoding available for %q, using character heuristic: %v", model, err)
	return e
}

// NewOfflineEngine builds an Engine that uses only the character heuristic.
// Intended for tests and environments without encoding data.
func NewOfflineEngine(alpha, beta float64) *Engine {
	return &Engine{alpha: alpha, beta: beta}
}

// CountTokens returns the token count of text.
func (e *Engine) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	if e.enc != nil {
		return len(e.enc.Encode(text, nil, nil))
	}
	return int(math.Ceil(float64(len(text)) / heuristicDivisor))
}

// Score computes fitness: accuracy*alpha - tokens*beta. With the default
// weights accuracy dominates, so a correct candidate always outscores an
// incorrect one regardless of length within the context window.
func (e *Engine) Score(accuracy float64, tokens float64) float64 {
	return accuracy*e.alpha - tokens*e.beta
}
