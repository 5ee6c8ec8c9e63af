package renketsu

import (
	"testing"
)

func TestVarPool_Get(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		inputs   []string
		expected []string
	}{
		{
			name:     "simple name",
			inputs:   []string{"Logger"},
			expected: []string{"logger"},
		},
		{
			name:     "qualified name",
			inputs:   []string{"service.UserService"},
			expected: []string{"userService"},
		},
		{
			name:     "leading acronym",
			inputs:   []string{"DBClient"},
			expected: []string{"dbClient"},
		},
		{
			name:     "duplicate names get suffixes",
			inputs:   []string{"Logger", "a.Logger", "b.Logger"},
			expected: []string{"logger", "logger0", "logger1"},
		},
		{
			name:     "suffixed name does not collide with a real base name",
			inputs:   []string{"Logger", "a.Logger", "Logger0", "b.Logger"},
			expected: []string{"logger", "logger0", "logger00", "logger1"},
		},
		{
			name:     "base name taken by an earlier suffix",
			inputs:   []string{"Logger", "a.Logger", "Logger0"},
			expected: []string{"logger", "logger0", "logger00"},
		},
		{
			name:     "reserved keyword",
			inputs:   []string{"Type"},
			expected: []string{"typeValue"},
		},
		{
			name:     "predeclared identifier",
			inputs:   []string{"Error"},
			expected: []string{"errorValue"},
		},
		{
			name:     "punctuation is dropped",
			inputs:   []string{"$Store"},
			expected: []string{"store"},
		},
		{
			name:     "no usable characters",
			inputs:   []string{"<>"},
			expected: []string{"svc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pool := NewVarPool()
			for i, input := range tt.inputs {
				if got := pool.Get(input); got != tt.expected[i] {
					t.Errorf("Get(%q) = %q, want %q", input, got, tt.expected[i])
				}
			}
		})
	}
}

func TestVarPool_Register(t *testing.T) {
	t.Parallel()

	pool := NewVarPool()
	pool.Register("logger", "logger0", "", "_")

	if got := pool.Get("Logger"); got != "logger1" {
		t.Errorf("Get after Register = %q, want logger1", got)
	}
	if got := pool.Get("_"); got != "svc" {
		t.Errorf("Get(%q) = %q, want svc", "_", got)
	}
}
