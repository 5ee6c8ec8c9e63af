package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		content  string
		expected Settings
	}{
		{
			name:    "defaults",
			content: "",
			expected: Settings{
				TieBreak:      "first",
				StateFamilies: []string{"AsyncState", "Repository", "Store"},
				StateSuffixes: []string{"Manager"},
				Profiles:      []string{},
			},
		},
		{
			name: "overrides",
			content: `tie_break: profile
profiles: [test]
state_families: [Cache]
state_suffixes: []
concurrency: 4
`,
			expected: Settings{
				TieBreak:      "profile",
				StateFamilies: []string{"Cache"},
				StateSuffixes: []string{},
				Profiles:      []string{"test"},
				Concurrency:   4,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeFile(t, t.TempDir(), "renketsu.yaml", tt.content)

			s, err := LoadSettings(path)
			require.NoError(t, err)
			assert.Equal(t, tt.expected.TieBreak, s.TieBreak)
			assert.Equal(t, tt.expected.Concurrency, s.Concurrency)
			assert.ElementsMatch(t, tt.expected.StateFamilies, s.StateFamilies)
			assert.ElementsMatch(t, tt.expected.StateSuffixes, s.StateSuffixes)
			assert.ElementsMatch(t, tt.expected.Profiles, s.Profiles)

			opts, err := s.EngineOptions()
			require.NoError(t, err)
			assert.Len(t, opts, 3)
		})
	}
}

func TestLoadSettings_Env(t *testing.T) {
	t.Setenv("RENKETSU_TIE_BREAK", "primary")

	path := writeFile(t, t.TempDir(), "renketsu.yaml", "tie_break: first\n")

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "primary", s.TieBreak)
}

func TestLoadSettings_Errors(t *testing.T) {
	t.Parallel()

	_, err := LoadSettings(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := writeFile(t, t.TempDir(), "renketsu.yaml", "tie_break: coin-flip\n")
	s, err := LoadSettings(path)
	require.NoError(t, err)

	_, err = s.EngineOptions()
	assert.ErrorContains(t, err, "unknown tie-break policy")
}
