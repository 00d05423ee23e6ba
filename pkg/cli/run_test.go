package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModelRef(t *testing.T) {
	tests := []struct {
		name      string
		val       string
		model     string
		threshold string
		wantErr   bool
	}{
		{"valid", "global/mtss", "global", "mtss", false},
		{"threshold with slash", "global/mtss/v2", "global", "mtss/v2", false},
		{"no separator", "global", "", "", true},
		{"empty model", "/mtss", "", "", true},
		{"empty threshold", "global/", "", "", true},
		{"empty", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model, threshold, err := parseModelRef(tt.val)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.model, model)
			assert.Equal(t, tt.threshold, threshold)
		})
	}
}
