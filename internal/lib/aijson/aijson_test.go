package aijson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		ok   bool
	}{
		{
			name: "plain json",
			text: `{"amount": 12.5, "currency": "EUR"}`,
			ok:   true,
		},
		{
			name: "fenced json",
			text: "```json\n{\"amount\": 12.5, \"currency\": \"EUR\"}\n```",
			ok:   true,
		},
		{
			name: "fenced without language tag",
			text: "```\n{\"amount\": 12.5, \"currency\": \"EUR\"}\n```",
			ok:   true,
		},
		{
			name: "surrounding whitespace",
			text: "\n\n  {\"amount\": 12.5, \"currency\": \"EUR\"}  \n",
			ok:   true,
		},
		{
			name: "prose instead of json",
			text: "Sorry, I could not extract an expense from that.",
			ok:   false,
		},
		{
			name: "truncated json",
			text: `{"amount": 12.5, "currency":`,
			ok:   false,
		},
		{
			name: "empty",
			text: "",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p payload
			ok := Extract(tt.text, &p)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, 12.5, p.Amount)
				assert.Equal(t, "EUR", p.Currency)
			}
		})
	}
}
