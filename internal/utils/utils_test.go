package utils

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeUsername(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Ali_Veli", want: "ali_veli"},
		{in: "  john.doe-99 ", want: "johndoe99"},
		{in: "Çağrı", want: "ar"},
		{in: "!!!", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeUsername(tt.in))
		})
	}
}

func TestGenerateDeviceSerial(t *testing.T) {
	now := time.UnixMilli(1767225600000)
	pattern := regexp.MustCompile(`^DEV-1767225600000-[0-9a-z]{9}$`)

	first, err := GenerateDeviceSerial(now)
	require.NoError(t, err)
	second, err := GenerateDeviceSerial(now)
	require.NoError(t, err)

	assert.Regexp(t, pattern, first)
	assert.Regexp(t, pattern, second)
	assert.NotEqual(t, first, second)
}
