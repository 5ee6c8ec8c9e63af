// Package facts loads service unit facts from fact files and Go packages.
package facts

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/mazrean/renketsu/internal/contract"
	"github.com/mazrean/renketsu/internal/renketsu"
)

// File is the document layout of a fact file. A document may also be a
// bare list of units.
type File struct {
	Units yaml.Node `yaml:"units"`
}

// LoadFiles reads fact files in parallel and returns their units in file
// order.
func LoadFiles(paths ...string) ([]*renketsu.ServiceUnitFact, error) {
	loaded := make([][]*renketsu.ServiceUnitFact, len(paths))

	var eg errgroup.Group
	for i, path := range paths {
		eg.Go(func() error {
			units, err := loadFile(path)
			if err != nil {
				return err
			}

			slog.Debug("Loaded fact file", "file", path, "units", len(units))
			loaded[i] = units

			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var units []*renketsu.ServiceUnitFact
	for _, fileUnits := range loaded {
		units = append(units, fileUnits...)
	}

	return units, nil
}

func loadFile(path string) ([]*renketsu.ServiceUnitFact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fact file: %w", err)
	}
	defer f.Close()

	units, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode fact file %s: %w", path, err)
	}

	return units, nil
}

// Decode reads every YAML or JSON document in r.
func Decode(r io.Reader) ([]*renketsu.ServiceUnitFact, error) {
	dec := yaml.NewDecoder(r)

	var units []*renketsu.ServiceUnitFact
	for {
		var node yaml.Node
		if err := dec.Decode(&node); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}

		docUnits, err := decodeDocument(&node)
		if err != nil {
			return nil, err
		}
		units = append(units, docUnits...)
	}

	for _, unit := range units {
		complete(unit)
	}

	return units, nil
}

func decodeDocument(node *yaml.Node) ([]*renketsu.ServiceUnitFact, error) {
	root := node
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}

	switch root.Kind {
	case yaml.SequenceNode:
		return decodeUnits(root)
	case yaml.MappingNode:
		var file File
		if err := root.Decode(&file); err != nil {
			return nil, err
		}
		if isNull(&file.Units) {
			return nil, nil
		}
		if file.Units.Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("line %d: units must be a list", file.Units.Line)
		}
		return decodeUnits(&file.Units)
	case 0:
		return nil, nil
	default:
		return nil, fmt.Errorf("line %d: expected a list of units or a units mapping", root.Line)
	}
}

// decodeUnits decodes the items of a unit list. Empty items are skipped
// with a warning.
func decodeUnits(list *yaml.Node) ([]*renketsu.ServiceUnitFact, error) {
	units := make([]*renketsu.ServiceUnitFact, 0, len(list.Content))
	for _, item := range list.Content {
		if isNull(item) {
			slog.Warn("Skipped empty service unit", "line", item.Line)
			continue
		}

		var unit renketsu.ServiceUnitFact
		if err := item.Decode(&unit); err != nil {
			return nil, err
		}
		units = append(units, &unit)
	}

	return units, nil
}

func isNull(node *yaml.Node) bool {
	return node.Kind == 0 || (node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null")
}

// complete derives the base name and generic arguments of contract
// references that only carry raw text and dereferences pointer parameters
// the way the Go loader does. References that do not parse are left for the
// extractor to report.
func complete(unit *renketsu.ServiceUnitFact) {
	for i := range unit.ConstructorParameters {
		derefParameter(&unit.ConstructorParameters[i])
	}
	for i := range unit.DeclaredContracts {
		completeRef(&unit.DeclaredContracts[i])
	}
	for i := range unit.Heritage {
		completeRef(&unit.Heritage[i].ContractRef)
		if unit.Heritage[i].Relation == "" {
			unit.Heritage[i].Relation = renketsu.RelationExtends
		}
	}
}

// derefParameter rewrites *T parameters to T. Arrays are kept: T[] asks for
// a different contract than T.
func derefParameter(param *renketsu.Parameter) {
	s, err := contract.Parse(param.ContractRawText)
	if err != nil {
		return
	}

	ptr, ok := s.(contract.Pointer)
	if !ok {
		return
	}
	for ok {
		s = ptr.Elem
		ptr, ok = s.(contract.Pointer)
	}

	param.ContractRawText = s.String()
}

func completeRef(ref *renketsu.ContractRef) {
	if ref.RawText == "" || ref.BaseName != "" {
		return
	}

	s, err := contract.Parse(ref.RawText)
	if err != nil {
		return
	}

	ref.BaseName = s.Base()
	ref.GenericArgs = contract.Args(s)
}
