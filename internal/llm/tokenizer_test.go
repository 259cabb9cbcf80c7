package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateMaxTokens(t *testing.T) {
	tests := []struct {
		name       string
		prompt     string
		codeLength int
		modelMax   int
		want       int
	}{
		{name: "Empty request", modelMax: 4096, want: 3096},
		{name: "Zero ceiling uses default", modelMax: 0, want: DefaultModelMaxTokens - ResponseReserve},
		{name: "ASCII prompt costs a quarter per rune", prompt: "abcd", modelMax: 4096, want: 3095},
		{name: "Partial quarter rounds up", prompt: "abcde", modelMax: 4096, want: 3094},
		{name: "Wide runes cost two units", prompt: "审查", modelMax: 4096, want: 3092},
		{name: "Code costs half a unit rounded up", codeLength: 3, modelMax: 4096, want: 3094},
		{name: "Large diff clamps to floor", codeLength: 1_000_000, modelMax: 4096, want: MinResponseTokens},
		{name: "Negative code length treated as zero", codeLength: -10, modelMax: 4096, want: 3096},
		{name: "Ceiling below floor wins", modelMax: 50, want: 50},
		{name: "Larger model", prompt: "review", codeLength: 2000, modelMax: 200000, want: 200000 - 2 - 1000 - ResponseReserve},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateMaxTokens(tt.prompt, tt.codeLength, tt.modelMax))
		})
	}
}

func TestEstimateMaxTokens_Bounds(t *testing.T) {
	prompts := []string{"", "short", strings.Repeat("x", 10_000), strings.Repeat("审", 3000)}
	for _, p := range prompts {
		for _, code := range []int{0, 1, 500, 5000, 50_000} {
			got := EstimateMaxTokens(p, code, 4096)
			assert.GreaterOrEqual(t, got, MinResponseTokens)
			assert.LessOrEqual(t, got, 4096)
		}
	}
}

func TestEstimateMaxTokens_MonotonicInCodeLength(t *testing.T) {
	prev := EstimateMaxTokens("please review", 0, 4096)
	for code := 1; code <= 8000; code += 7 {
		got := EstimateMaxTokens("please review", code, 4096)
		assert.LessOrEqual(t, got, prev, "code length %d", code)
		prev = got
	}
}

func TestEstimateMaxTokens_MonotonicInPrompt(t *testing.T) {
	var b strings.Builder
	prev := EstimateMaxTokens("", 100, 4096)
	for i := 0; i < 3000; i++ {
		if i%3 == 0 {
			b.WriteString("界")
		} else {
			b.WriteString("a")
		}
		got := EstimateMaxTokens(b.String(), 100, 4096)
		assert.LessOrEqual(t, got, prev, "prompt length %d", i+1)
		prev = got
	}
}

func TestCodeLength(t *testing.T) {
	assert.Equal(t, 0, CodeLength(""))
	assert.Equal(t, 5, CodeLength("hello"))
	assert.Equal(t, 2, CodeLength("审查"))
}
