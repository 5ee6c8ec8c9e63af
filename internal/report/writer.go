// Package report encodes registry snapshots, validation reports,
// construction plans and resolution results.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mazrean/renketsu/internal/renketsu"
)

// Format is an output encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatYAML, "yml", "":
		return FormatYAML, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format: %s", s)
	}
}

// Writer encodes documents to an output stream.
type Writer struct {
	out    io.Writer
	format Format
}

func NewWriter(out io.Writer, format Format) *Writer {
	return &Writer{out: out, format: format}
}

// Snapshot is the registry content in registration order.
type Snapshot struct {
	Registrations []*renketsu.Registration `yaml:"registrations" json:"registrations"`
	Edges         []*renketsu.DependencyEdge `yaml:"edges" json:"edges"`
	Warnings      []renketsu.Warning         `yaml:"warnings,omitempty" json:"warnings,omitempty"`
}

// Plan is the construction plan document.
type Plan struct {
	Nodes    []*renketsu.TreeNode `yaml:"nodes" json:"nodes"`
	Warnings []renketsu.Warning   `yaml:"warnings,omitempty" json:"warnings,omitempty"`
}

// Resolution is the resolution result document.
type Resolution struct {
	renketsu.ResolutionResult `yaml:",inline"`
	Error                     string `yaml:"error,omitempty" json:"error,omitempty"`
}

func (w *Writer) Snapshot(registry *renketsu.Registry, edges []*renketsu.DependencyEdge, warnings []renketsu.Warning) error {
	return w.Write(Snapshot{
		Registrations: registry.Registrations(),
		Edges:         edges,
		Warnings:      warnings,
	})
}

func (w *Writer) Validation(report *renketsu.ValidationReport) error {
	return w.Write(report)
}

func (w *Writer) Plan(nodes []*renketsu.TreeNode, warnings []renketsu.Warning) error {
	return w.Write(Plan{Nodes: nodes, Warnings: warnings})
}

func (w *Writer) Resolution(res renketsu.ResolutionResult) error {
	doc := Resolution{ResolutionResult: res}
	if res.Err != nil {
		doc.Error = res.Err.Error()
	}

	return w.Write(doc)
}

// Write encodes v in the writer's format.
func (w *Writer) Write(v any) error {
	switch w.format {
	case FormatJSON:
		enc := json.NewEncoder(w.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
	default:
		enc := yaml.NewEncoder(w.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("flush yaml: %w", err)
		}
	}

	return nil
}
