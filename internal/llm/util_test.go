package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "json code block",
			input:    "```json\n{\"aspect_weights\": {}}\n```",
			expected: `{"aspect_weights": {}}`,
		},
		{
			name:     "generic code block",
			input:    "```\n{\"key\": \"value\"}\n```",
			expected: `{"key": "value"}`,
		},
		{
			name:     "code block with language",
			input:    "```javascript\n{\"key\": \"value\"}\n```",
			expected: `{"key": "value"}`,
		},
		{
			name:     "single line fence keeps object",
			input:    "```{\"key\": 1}```",
			expected: `{"key": 1}`,
		},
		{
			name:     "plain JSON",
			input:    "  {\"key\": \"value\"}\n",
			expected: `{"key": "value"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanJSONBlock(tt.input))
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "preamble before JSON object",
			input:    "Here are the weights:\n{\"aspect_weights\": {\"education\": 0.2}}",
			expected: `{"aspect_weights": {"education": 0.2}}`,
		},
		{
			name:     "trailing commentary",
			input:    "{\"analysis\": \"ok\"}\nLet me know if you need more.",
			expected: `{"analysis": "ok"}`,
		},
		{
			name:     "fenced with preamble inside",
			input:    "```json\nResult: {\"a\": {\"b\": 1}}\n```",
			expected: `{"a": {"b": 1}}`,
		},
		{
			name:     "no object",
			input:    "I cannot help with that.",
			expected: "I cannot help with that.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractJSONObject(tt.input))
		})
	}
}
