package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCrossesAxis(t *testing.T) {
	tests := []struct {
		name          string
		before, after float64
		expected      bool
	}{
		{"upward crossing", 0.4, 0.6, true},
		{"downward crossing", 0.6, 0.4, true},
		{"stays below", 0.3, 0.4, false},
		{"stays above", 0.6, 0.9, false},
		{"no movement", 0.4, 0.4, false},
		{"lands on threshold", 0.4, 0.5, false},
		{"starts on threshold", 0.5, 0.6, false},
		{"both on threshold", 0.5, 0.5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CrossesAxis(tt.before, tt.after, 0.5))
		})
	}
}

func TestCrossed(t *testing.T) {
	// x axis crossing alone
	assert.True(t, Crossed(0.4, 0.2, 0.6, 0.3, 0.5, 0.5))

	// y axis crossing alone
	assert.True(t, Crossed(0.2, 0.6, 0.3, 0.4, 0.5, 0.5))

	// both axes
	assert.True(t, Crossed(0.4, 0.4, 0.6, 0.6, 0.5, 0.5))

	// neither
	assert.False(t, Crossed(0.2, 0.8, 0.3, 0.9, 0.5, 0.5))

	// distinct per-axis thresholds
	assert.True(t, Crossed(0.2, 0.5, 0.35, 0.5, 0.3, 0.9))
	assert.False(t, Crossed(0.2, 0.5, 0.25, 0.5, 0.3, 0.9))
}
