package embeddings

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/calderb/synapse-go/internal/vocab"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "basic words",
			input: "parse the config file",
			want:  []string{"parse", "the", "config", "file"},
		},
		{
			name:  "lowercases and keeps identifier chars",
			input: "Call fit_model in pkg.utils",
			want:  []string{"call", "fit_model", "in", "pkg.utils"},
		},
		{
			name:  "drops single character tokens",
			input: "a b cd",
			want:  []string{"cd"},
		},
		{
			name:  "punctuation splits tokens",
			input: "foo(bar, baz)",
			want:  []string{"foo", "bar", "baz"},
		},
		{
			name:  "empty input",
			input: "",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.input))
		})
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{name: "empty has floor of one", input: "", want: 1},
		{name: "one char", input: "x", want: 1},
		{name: "seven chars round up", input: "abcdefg", want: 2},
		{name: "exact multiple", input: "abcdefg" + "abcdefg", want: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateTokens(tt.input))
		})
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{name: "identical", a: []float64{1, 2}, b: []float64{1, 2}, want: 1},
		{name: "orthogonal", a: []float64{1, 0}, b: []float64{0, 1}, want: 0},
		{name: "zero vector", a: []float64{0, 0}, b: []float64{1, 2}, want: 0},
		{name: "empty", a: nil, b: []float64{1}, want: 0},
		{name: "longer b truncated", a: []float64{1, 0}, b: []float64{1, 0, 99, 99}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cosine(tt.a, tt.b), 1e-9)
		})
	}
}

func TestQueryVector(t *testing.T) {
	snap := vocab.Snapshot{
		"parse":  {IDF: 2.0},
		"config": {IDF: 1.0},
	}

	t.Run("recognized terms in first occurrence order", func(t *testing.T) {
		// 4 tokens: parse, config, parse, unknown
		vec := QueryVector("parse config parse unknown", snap)
		assert.Equal(t, []float64{2.0 / 4 * 2.0, 1.0 / 4 * 1.0}, vec)
	})

	t.Run("unknown terms dropped", func(t *testing.T) {
		vec := QueryVector("totally unrelated words", snap)
		assert.Empty(t, vec)
	})

	t.Run("empty query", func(t *testing.T) {
		assert.Empty(t, QueryVector("", snap))
	})
}

func TestDecodeStored(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.Equal(t, []float64{0.1, 0.2}, DecodeStored("[0.1, 0.2]"))
	})

	t.Run("malformed yields nil", func(t *testing.T) {
		assert.Nil(t, DecodeStored("{not an array}"))
	})
}
