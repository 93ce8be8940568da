package handlers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"calendar day", `{"date":"2024-05-15","remarks":"x"}`, "2024-05-15T00:00:00Z"},
		{"rfc3339 kept", `{"date":"2024-05-15T10:30:00Z"}`, "2024-05-15T10:30:00Z"},
		{"garbage left for the decoder", `{"date":"soon"}`, "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := normalizeDate([]byte(tt.in))
			require.NoError(t, err)

			var fields map[string]any
			require.NoError(t, json.Unmarshal(out, &fields))
			assert.Equal(t, tt.want, fields["date"])
		})
	}
}

func TestNormalizeDate_NoDate(t *testing.T) {
	in := []byte(`{"lines":[]}`)
	out, err := normalizeDate(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestNormalizeDate_InvalidJSON(t *testing.T) {
	_, err := normalizeDate([]byte(`{`))
	assert.Error(t, err)
}
