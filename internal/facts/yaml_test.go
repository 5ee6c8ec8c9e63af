package facts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mazrean/renketsu/internal/renketsu"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		units   []string
		wantErr bool
	}{
		{
			name: "units mapping",
			content: `units:
  - name: Logger
    declaredContracts:
      - rawText: LoggerInterface
  - name: ApiService
`,
			units: []string{"Logger", "ApiService"},
		},
		{
			name: "bare list",
			content: `- name: Clock
- name: Scheduler
`,
			units: []string{"Clock", "Scheduler"},
		},
		{
			name: "several documents",
			content: `- name: A
---
units:
  - name: B
`,
			units: []string{"A", "B"},
		},
		{
			name:    "json",
			content: `{"units": [{"name": "Logger", "sourceLocation": {"file": "src/logger.ts", "line": 3}}]}`,
			units:   []string{"Logger"},
		},
		{
			name:  "empty input",
			units: nil,
		},
		{
			name: "empty item in units mapping",
			content: `units:
  - name: A
  -
  - name: B
`,
			units: []string{"A", "B"},
		},
		{
			name:    "null item in bare list",
			content: "- null\n- name: A\n- ~\n",
			units:   []string{"A"},
		},
		{
			name:    "null units",
			content: "units:\n",
			units:   nil,
		},
		{
			name:    "units is not a list",
			content: "units: Logger\n",
			wantErr: true,
		},
		{
			name:    "scalar document",
			content: "just text\n",
			wantErr: true,
		},
		{
			name:    "invalid yaml",
			content: "units: [\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			units, err := Decode(strings.NewReader(tt.content))
			if tt.wantErr {
				if err == nil {
					t.Fatal("Decode succeeded, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}

			if len(units) != len(tt.units) {
				t.Fatalf("Decode returned %d units, want %d", len(units), len(tt.units))
			}
			for i, unit := range units {
				if unit.Name != tt.units[i] {
					t.Errorf("units[%d].Name = %q, want %q", i, unit.Name, tt.units[i])
				}
			}
		})
	}
}

func TestDecode_CompletesContractReferences(t *testing.T) {
	t.Parallel()

	content := `units:
  - name: UserRepository
    sourceLocation:
      file: src/repo.ts
      line: 10
    declaredContracts:
      - rawText: Cache<User>
      - rawText: "Broken<"
    heritage:
      - rawText: Repository<User>
    constructorParameters:
      - name: db
        contractRawText: Database
        isOptional: true
    scope: transient
    primary: true
    profiles: [test]
`

	units, err := Decode(strings.NewReader(content))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	unit := units[0]
	if unit.SourceLocation != (renketsu.SourceLocation{File: "src/repo.ts", Line: 10}) {
		t.Errorf("SourceLocation = %v", unit.SourceLocation)
	}

	cache := unit.DeclaredContracts[0]
	if cache.BaseName != "Cache" || len(cache.GenericArgs) != 1 || cache.GenericArgs[0] != "User" {
		t.Errorf("completed reference = %+v", cache)
	}

	broken := unit.DeclaredContracts[1]
	if broken.BaseName != "" {
		t.Errorf("malformed reference was completed: %+v", broken)
	}

	h := unit.Heritage[0]
	if h.Relation != renketsu.RelationExtends || h.BaseName != "Repository" {
		t.Errorf("heritage = %+v", h)
	}

	if len(unit.ConstructorParameters) != 1 || !unit.ConstructorParameters[0].IsOptional {
		t.Errorf("ConstructorParameters = %+v", unit.ConstructorParameters)
	}
	if unit.Scope != "transient" || !unit.Primary || len(unit.Profiles) != 1 {
		t.Errorf("scope/primary/profiles = %q %v %v", unit.Scope, unit.Primary, unit.Profiles)
	}
}

func TestLoadFiles(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	first := filepath.Join(tempDir, "a.yaml")
	second := filepath.Join(tempDir, "b.json")

	if err := os.WriteFile(first, []byte("- name: A\n- name: B\n"), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
	if err := os.WriteFile(second, []byte(`[{"name": "C"}]`), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	units, err := LoadFiles(first, second)
	if err != nil {
		t.Fatalf("LoadFiles failed: %v", err)
	}

	var names []string
	for _, unit := range units {
		names = append(names, unit.Name)
	}
	if strings.Join(names, ",") != "A,B,C" {
		t.Errorf("names = %v, want file order", names)
	}

	if _, err := LoadFiles(filepath.Join(tempDir, "missing.yaml")); err == nil {
		t.Error("LoadFiles succeeded for a missing file")
	}
}

func TestDecode_DereferencesPointerParameters(t *testing.T) {
	t.Parallel()

	content := `- name: Handler
  constructorParameters:
    - name: logger
      contractRawText: "*Logger"
    - name: cache
      contractRawText: "**Cache<User>"
    - name: plugins
      contractRawText: "Plugin[]"
    - name: broken
      contractRawText: "*"
`

	units, err := Decode(strings.NewReader(content))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	want := []string{"Logger", "Cache<User>", "Plugin[]", "*"}
	params := units[0].ConstructorParameters
	if len(params) != len(want) {
		t.Fatalf("got %d parameters, want %d", len(params), len(want))
	}
	for i, param := range params {
		if param.ContractRawText != want[i] {
			t.Errorf("params[%d].ContractRawText = %q, want %q", i, param.ContractRawText, want[i])
		}
	}
}
