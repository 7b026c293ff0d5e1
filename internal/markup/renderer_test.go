package markup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	r := NewRenderer(Options{HardWraps: true})

	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{
			name:     "line breaks are forced",
			input:    "item1\nitem2\nitem3",
			contains: []string{"<p>item1<br>\nitem2<br>\nitem3</p>"},
		},
		{
			name:     "emphasis",
			input:    "Adds **sweetness**",
			contains: []string{"<strong>sweetness</strong>"},
		},
		{
			name:     "list",
			input:    "- salt\n- sugar",
			contains: []string{"<li>salt</li>", "<li>sugar</li>"},
		},
		{
			name:     "raw html is dropped",
			input:    "<script>alert(1)</script>",
			excludes: []string{"<script>"},
		},
		{
			name:  "empty input",
			input: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := r.Render(tt.input)
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, out, unwanted)
			}
		})
	}
}

func TestRender_SoftWraps(t *testing.T) {
	r := NewRenderer(Options{})

	out, err := r.Render("line1\nline2")
	require.NoError(t, err)
	assert.False(t, strings.Contains(out, "<br"))
}
