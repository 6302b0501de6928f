package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCompare(t *testing.T) {
	hash, err := Hash("namaste123")
	require.NoError(t, err)
	assert.NotEqual(t, "namaste123", hash)

	assert.NoError(t, Compare(hash, "namaste123"))
	assert.Error(t, Compare(hash, "namaste124"))
	assert.Error(t, Compare("not-a-hash", "namaste123"))
}

func TestIsStrong(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"namaste123", true},
		{"abcdefgh", false},
		{"12345678", false},
		{"abc12", false},
		{"", false},
		{"Asana2026", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsStrong(tt.in))
		})
	}
}
