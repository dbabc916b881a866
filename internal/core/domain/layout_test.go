package domain_test

import (
	"path/filepath"
	"testing"

	"go.trai.ch/kiln/internal/core/domain"
)

func TestLayoutPaths(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{
			name:     "DefaultKilnPath",
			got:      domain.DefaultKilnPath("/project"),
			expected: filepath.Join("/project", ".kiln"),
		},
		{
			name:     "DefaultStatePath",
			got:      domain.DefaultStatePath("/project"),
			expected: filepath.Join("/project", ".kiln", "state.db"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("%s() = %v, want %v", tt.name, tt.got, tt.expected)
			}
		})
	}
}

func TestDefaultIgnoresCoverManifests(t *testing.T) {
	ignores := domain.DefaultIgnores()
	for _, want := range []string{"**/package.json", "**/package-lock.json", "**/yarn.lock", "**/kiln.yaml"} {
		found := false
		for _, ig := range ignores {
			if ig == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("DefaultIgnores() is missing %q", want)
		}
	}
}
