package renketsu

import (
	"fmt"
	"log/slog"
	"strings"
)

// reservedVarNames are the identifiers generated constructors use for their
// own parameters and results.
var reservedVarNames = []string{"ctx", "err"}

// CycleError is returned when the dependency graph contains a cycle.
type CycleError struct {
	// Chain is the unit names along the cycle in dependency order.
	Chain []string
}

func (e *CycleError) Error() string {
	if len(e.Chain) == 0 {
		return "circular dependency detected"
	}

	return fmt.Sprintf("circular dependency detected: %s -> %s", strings.Join(e.Chain, " -> "), e.Chain[0])
}

// TreeNode is one entry of the construction plan.
type TreeNode struct {
	SourceLocation *SourceLocation `yaml:"sourceLocation,omitempty" json:"sourceLocation,omitempty"`
	// ID is the unit key.
	ID                 string `yaml:"id" json:"id"`
	ImplementationName string `yaml:"implementationName" json:"implementationName"`
	Scope              Scope  `yaml:"scope" json:"scope"`
	VarName            string `yaml:"varName" json:"varName"`
	// Dependencies are the sanitized keys of the resolved dependencies in
	// parameter order.
	Dependencies            []string `yaml:"dependencies" json:"dependencies"`
	ResolvedImplementations []string `yaml:"resolvedImplementations" json:"resolvedImplementations"`
	DependencyIDs           []string `yaml:"dependencyIds" json:"dependencyIds"`
	OrderedIndex            int      `yaml:"orderedIndex" json:"orderedIndex"`
}

// Orderer derives a construction order from a registry and dependency edges.
type Orderer struct {
	logger *slog.Logger
}

func NewOrderer(logger *slog.Logger) *Orderer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Orderer{logger: logger}
}

// Order returns the units in an order where every unit follows the units it
// depends on. Ties keep registration order. Unresolvable dependencies are
// skipped with a warning; a cycle fails with *CycleError.
func Order(registry *Registry, edges []*DependencyEdge) ([]*TreeNode, error) {
	return NewOrderer(nil).Order(registry, edges)
}

func (o *Orderer) Order(registry *Registry, edges []*DependencyEdge) ([]*TreeNode, error) {
	var units []*Registration
	for _, reg := range registry.All {
		if reg.Strategy == StrategyClass {
			units = append(units, reg)
		}
	}

	edgesByUnit := make(map[string][]*DependencyEdge, len(units))
	for _, edge := range edges {
		edgesByUnit[edge.FromUnitKey] = append(edgesByUnit[edge.FromUnitKey], edge)
	}

	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(units))
	ordered := make([]*TreeNode, 0, len(units))
	varPool := NewVarPool()
	varPool.Register(reservedVarNames...)
	var path []*Registration

	var visit func(unit *Registration) error
	visit = func(unit *Registration) error {
		color[unit.UnitKey] = gray
		path = append(path, unit)

		node := &TreeNode{
			ID:                      unit.UnitKey,
			ImplementationName:      unit.ImplementationName,
			SourceLocation:          unit.SourceLocation,
			Scope:                   unit.Scope,
			Dependencies:            []string{},
			ResolvedImplementations: []string{},
			DependencyIDs:           []string{},
		}

		for _, edge := range edgesByUnit[unit.UnitKey] {
			target, err := registry.Resolve(edge.query())
			if err != nil {
				o.logger.Warn("Skipped unresolved dependency",
					"unit", unit.ImplementationName,
					"parameter", edge.ParameterName,
					"contract", edge.ContractRawText,
					"optional", edge.IsOptional,
				)
				continue
			}

			dep, ok := registry.Lookup(target.UnitKey)
			if !ok {
				return fmt.Errorf("registration %s refers to unknown unit %s", target, target.UnitKey)
			}

			switch color[dep.UnitKey] {
			case gray:
				start := len(path) - 1
				for path[start].UnitKey != dep.UnitKey {
					start--
				}

				chain := make([]string, 0, len(path)-start)
				for _, p := range path[start:] {
					chain = append(chain, p.ImplementationName)
				}

				return &CycleError{Chain: chain}
			case white:
				if err := visit(dep); err != nil {
					return err
				}
			}

			node.Dependencies = append(node.Dependencies, edge.ToSanitizedKey)
			node.ResolvedImplementations = append(node.ResolvedImplementations, dep.ImplementationName)
			node.DependencyIDs = append(node.DependencyIDs, dep.UnitKey)
		}

		path = path[:len(path)-1]
		color[unit.UnitKey] = black

		node.OrderedIndex = len(ordered)
		node.VarName = varPool.Get(unit.ImplementationName)
		ordered = append(ordered, node)

		return nil
	}

	for _, unit := range units {
		if color[unit.UnitKey] != white {
			continue
		}

		if err := visit(unit); err != nil {
			return nil, err
		}
	}

	return ordered, nil
}
