package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo_String(t *testing.T) {
	tests := []struct {
		name     string
		info     Info
		expected string
	}{
		{
			name:     "dev build",
			info:     Info{Version: "dev", GoVersion: "go1.25.0", Platform: "linux/amd64"},
			expected: "regcheck dev go1.25.0 linux/amd64",
		},
		{
			name:     "release build",
			info:     Info{Version: "v1.2.0", GitCommit: "0123456789abcdef", BuildDate: "2026-01-02", GoVersion: "go1.25.0", Platform: "darwin/arm64"},
			expected: "regcheck v1.2.0 (0123456) built 2026-01-02 go1.25.0 darwin/arm64",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.info.String())
		})
	}
}

func TestGetVersion_PrefersLdflags(t *testing.T) {
	previous := Version
	t.Cleanup(func() { Version = previous })

	Version = "v9.9.9"
	assert.Equal(t, "v9.9.9", GetVersion())
	assert.Equal(t, "v9.9.9", Get().Version)
}
