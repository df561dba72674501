package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// decomposed spells the accented e as "e" plus a combining acute.
const decomposedEcole = "e\u0301cole"

func TestNFC(t *testing.T) {
	assert.Equal(t, "école", NFC(decomposedEcole), "combining marks compose")
	assert.Equal(t, "bonjour", NFC("  bonjour  "))
	assert.Equal(t, "", NFC("   "))
}

func TestFold(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"\u00c9l\u00e8ve", "eleve"},
		{"école", "ecole"},
		{"déjà", "deja"},
		{"cœur", "cœur"}, // œ is a letter, not a mark
		{"  BONJOUR  ", "bonjour"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Fold(tt.in), tt.in)
	}
}

func TestFoldDecomposedInput(t *testing.T) {
	assert.Equal(t, "ecole", Fold(decomposedEcole))
}
