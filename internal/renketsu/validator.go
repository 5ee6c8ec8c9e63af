package renketsu

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mazrean/renketsu/internal/pkg/collection"
)

var ErrInvalidGraph = errors.New("invalid dependency graph")

// ValidationReport lists the problems that prevent a construction plan.
type ValidationReport struct {
	// MissingImplementations holds one "<unit> -> <key>" entry per required
	// dependency with no registration under its key.
	MissingImplementations []string `yaml:"missingImplementations" json:"missingImplementations"`
	// CircularDependencies holds one chain of unit names per cycle, in
	// dependency order.
	CircularDependencies [][]string `yaml:"circularDependencies" json:"circularDependencies"`
	// OptionalMissing holds unresolved optional dependencies. They do not make
	// the graph invalid.
	OptionalMissing []string `yaml:"optionalMissing,omitempty" json:"optionalMissing,omitempty"`
	// Blocked lists the units that cannot be constructed because they depend,
	// directly or transitively, on a missing implementation.
	Blocked []string `yaml:"blocked,omitempty" json:"blocked,omitempty"`
	IsValid bool     `yaml:"isValid" json:"isValid"`
}

// Err returns nil for a valid report and an error wrapping ErrInvalidGraph
// otherwise.
func (r *ValidationReport) Err() error {
	if r.IsValid {
		return nil
	}

	var parts []string
	if len(r.MissingImplementations) > 0 {
		parts = append(parts, fmt.Sprintf("missing implementations: %s", strings.Join(r.MissingImplementations, ", ")))
	}
	for _, cycle := range r.CircularDependencies {
		parts = append(parts, (&CycleError{Chain: cycle}).Error())
	}

	return fmt.Errorf("%w: %s", ErrInvalidGraph, strings.Join(parts, "; "))
}

// Validate checks that every required dependency has a registration under
// its exact key and that the dependency graph is acyclic.
func Validate(registry *Registry, edges []*DependencyEdge) *ValidationReport {
	report := &ValidationReport{
		MissingImplementations: []string{},
		CircularDependencies:   [][]string{},
	}

	g := newUnitGraph(registry)

	missingSeen := make(map[string]struct{})
	var broken []string
	for _, edge := range edges {
		if _, ok := g.nodes[edge.FromUnitKey]; !ok {
			continue
		}

		if !registry.HasKey(edge.ToSanitizedKey) {
			entry := edge.String()
			if _, ok := missingSeen[entry]; ok {
				continue
			}
			missingSeen[entry] = struct{}{}

			if edge.IsOptional {
				report.OptionalMissing = append(report.OptionalMissing, entry)
			} else {
				report.MissingImplementations = append(report.MissingImplementations, entry)
				broken = append(broken, edge.FromUnitKey)
			}
			continue
		}

		target, err := registry.Resolve(edge.query())
		if err != nil {
			// Strict key present but the text query missed; fall back to the key.
			target, err = registry.Resolve(edge.ToSanitizedKey)
			if err != nil {
				continue
			}
		}
		g.addEdge(edge.FromUnitKey, target.UnitKey)
	}

	report.CircularDependencies = g.cycles()
	report.Blocked = g.dependents(broken)
	report.IsValid = len(report.MissingImplementations) == 0 && len(report.CircularDependencies) == 0

	return report
}

// unitGraph is the dependency graph between units, keyed by unit key.
type unitGraph struct {
	registry *Registry
	nodes    map[string]struct{}
	order    []string
	adj      map[string][]string
}

func newUnitGraph(registry *Registry) *unitGraph {
	g := &unitGraph{
		registry: registry,
		nodes:    make(map[string]struct{}),
		adj:      make(map[string][]string),
	}

	for key, reg := range registry.All {
		if reg.Strategy != StrategyClass {
			continue
		}
		g.nodes[key] = struct{}{}
		g.order = append(g.order, key)
	}

	return g
}

func (g *unitGraph) addEdge(from, to string) {
	g.adj[from] = append(g.adj[from], to)
}

func (g *unitGraph) name(unit string) string {
	if reg, ok := g.registry.Lookup(unit); ok {
		return reg.ImplementationName
	}

	return unit
}

// cycles finds every cycle reachable by depth-first search. Each node is
// entered once; a back edge to a node on the current path closes a cycle.
func (g *unitGraph) cycles() [][]string {
	cycles := [][]string{}

	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(g.nodes))
	var path []string

	var visit func(string)
	visit = func(u string) {
		color[u] = gray
		path = append(path, u)

		for _, v := range g.adj[u] {
			switch color[v] {
			case white:
				visit(v)
			case gray:
				start := len(path) - 1
				for path[start] != v {
					start--
				}

				chain := make([]string, 0, len(path)-start)
				for _, unit := range path[start:] {
					chain = append(chain, g.name(unit))
				}
				cycles = append(cycles, chain)
			}
		}

		path = path[:len(path)-1]
		color[u] = black
	}

	for _, u := range g.order {
		if color[u] == white {
			visit(u)
		}
	}

	return cycles
}

// dependents returns the names of roots and every unit that transitively
// depends on one of them, in registration order.
func (g *unitGraph) dependents(roots []string) []string {
	if len(roots) == 0 {
		return nil
	}

	reverse := make(map[string][]string, len(g.adj))
	for _, u := range g.order {
		for _, v := range g.adj[u] {
			reverse[v] = append(reverse[v], u)
		}
	}

	affected := make(map[string]struct{}, len(roots))
	queue := collection.NewQueue[string]()
	for _, root := range roots {
		if _, ok := affected[root]; ok {
			continue
		}
		affected[root] = struct{}{}
		queue.Push(root)
	}

	for u := range queue.Iter {
		for _, dependent := range reverse[u] {
			if _, ok := affected[dependent]; ok {
				continue
			}
			affected[dependent] = struct{}{}
			queue.Push(dependent)
		}
	}

	blocked := make([]string, 0, len(affected))
	for _, u := range g.order {
		if _, ok := affected[u]; ok {
			blocked = append(blocked, g.name(u))
		}
	}

	return blocked
}
