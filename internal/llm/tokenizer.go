package llm

import (
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultModelMaxTokens is used when no per-model ceiling is configured.
	DefaultModelMaxTokens = 4096
	// MinResponseTokens is the smallest max_tokens value worth sending.
	MinResponseTokens = 100
	// ResponseReserve is held back for the reply before sizing the request.
	ResponseReserve = 1000
)

// EstimateMaxTokens returns a max_tokens value for a review request. It is a
// character-based approximation, not a token count: non-ASCII runes cost 2
// units, all other prompt runes cost a quarter unit, and the diff costs half a
// unit per rune. The result always lies in [MinResponseTokens, modelMaxTokens].
// It never increases when the prompt or codeLength grows.
func EstimateMaxTokens(prompt string, codeLength, modelMaxTokens int) int {
	if modelMaxTokens <= 0 {
		modelMaxTokens = DefaultModelMaxTokens
	}
	if codeLength < 0 {
		codeLength = 0
	}

	budget := modelMaxTokens - estimatePromptCost(prompt) - ceilDiv(codeLength, 2) - ResponseReserve
	if budget < MinResponseTokens {
		budget = MinResponseTokens
	}
	// A ceiling below the floor wins; never exceed what the model accepts.
	if budget > modelMaxTokens {
		budget = modelMaxTokens
	}
	return budget
}

// estimatePromptCost works in quarter units to stay in integer arithmetic.
func estimatePromptCost(prompt string) int {
	quarters := 0
	for _, r := range prompt {
		if isWide(r) {
			quarters += 8
		} else {
			quarters++
		}
	}
	return ceilDiv(quarters, 4)
}

func isWide(r rune) bool {
	return r > unicode.MaxASCII
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// CodeLength is the length measure the estimator expects for diff content.
func CodeLength(content string) int {
	return utf8.RuneCountInString(content)
}
