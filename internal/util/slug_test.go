package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple words", "Utility Bills 2020", "utility-bills-2020"},
		{"commas and slashes", "gas,water/power", "gas-water-power"},
		{"underscores", "tax_statement", "tax-statement"},
		{"special characters dropped", "Bank (Annual) Report!", "bank-annual-report"},
		{"collapsed dashes", "a  -  b", "a-b"},
		{"surrounding whitespace", "  hello  ", "hello"},
		{"empty input", "", ""},
		{"only symbols", "!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.input))
		})
	}
}
