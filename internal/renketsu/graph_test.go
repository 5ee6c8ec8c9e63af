package renketsu

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func implementationNames(nodes []*TreeNode) []string {
	names := make([]string, 0, len(nodes))
	for _, node := range nodes {
		names = append(names, node.ImplementationName)
	}

	return names
}

func TestOrder(t *testing.T) {
	t.Parallel()

	r, edges := buildGraph(t,
		needs(implements("Handler"), "ServiceInterface", "LoggerInterface"),
		needs(implements("Service", "ServiceInterface"), "RepoInterface"),
		needs(implements("Repo", "RepoInterface"), "LoggerInterface"),
		implements("Logger", "LoggerInterface"),
	)

	nodes, err := Order(r, edges)
	require.NoError(t, err)

	assert.Equal(t, []string{"Logger", "Repo", "Service", "Handler"}, implementationNames(nodes))

	handler := nodes[3]
	assert.Equal(t, 3, handler.OrderedIndex)
	assert.Equal(t, []string{"ServiceInterface", "LoggerInterface"}, handler.Dependencies)
	assert.Equal(t, []string{"Service", "Logger"}, handler.ResolvedImplementations)
	assert.Equal(t, []string{nodes[2].ID, nodes[0].ID}, handler.DependencyIDs)
	assert.Equal(t, "handler", handler.VarName)
	assert.Equal(t, ScopeSingleton, handler.Scope)
}

func TestOrder_IndependentUnitsKeepRegistrationOrder(t *testing.T) {
	t.Parallel()

	r, edges := buildGraph(t, implements("C"), implements("A"), implements("B"))

	nodes, err := Order(r, edges)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "B"}, implementationNames(nodes))
}

func TestOrder_Cycle(t *testing.T) {
	t.Parallel()

	r, edges := buildGraph(t,
		needs(implements("X", "IX"), "IY"),
		needs(implements("Y", "IY"), "IZ"),
		needs(implements("Z", "IZ"), "IX"),
	)

	_, err := Order(r, edges)

	var cycleErr *CycleError
	require.True(t, errors.As(err, &cycleErr), "err = %v", err)
	assert.Equal(t, []string{"X", "Y", "Z"}, cycleErr.Chain)
	assert.Equal(t, "circular dependency detected: X -> Y -> Z -> X", cycleErr.Error())
}

func TestOrder_SkipsUnresolvedDependencies(t *testing.T) {
	t.Parallel()

	fact := implements("Notifier")
	fact.ConstructorParameters = []Parameter{
		{Name: "metrics", ContractRawText: "MetricsClient", IsOptional: true},
		{Name: "clock", ContractRawText: "Clock"},
	}

	r, edges := buildGraph(t, fact, implements("Clock"))

	nodes, err := Order(r, edges)
	require.NoError(t, err)
	require.Equal(t, []string{"Clock", "Notifier"}, implementationNames(nodes))
	assert.Equal(t, []string{"Clock"}, nodes[1].ResolvedImplementations)
}

func TestOrder_DuplicateNamesGetDistinctVarNames(t *testing.T) {
	t.Parallel()

	a := implements("pkg.Logger")
	a.SourceLocation = loc("a.go", 1)
	b := implements("other.Logger")
	b.SourceLocation = loc("b.go", 1)

	r, edges := buildGraph(t, a, b)

	nodes, err := Order(r, edges)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "logger", nodes[0].VarName)
	assert.Equal(t, "logger0", nodes[1].VarName)
}

func TestOrder_VarNamesAreUnique(t *testing.T) {
	t.Parallel()

	a := implements("Logger")
	a.SourceLocation = loc("a.go", 1)
	b := implements("Logger")
	b.SourceLocation = loc("b.go", 1)
	c := implements("Logger0")
	c.SourceLocation = loc("c.go", 1)
	ctx := implements("Ctx")
	errUnit := implements("Err")

	r, edges := buildGraph(t, a, b, c, ctx, errUnit)

	nodes, err := Order(r, edges)
	require.NoError(t, err)

	seen := make(map[string]string, len(nodes))
	for _, node := range nodes {
		if other, ok := seen[node.VarName]; ok {
			t.Errorf("var name %q used by %s and %s", node.VarName, other, node.ID)
		}
		seen[node.VarName] = node.ID
	}
	assert.NotContains(t, seen, "ctx")
	assert.NotContains(t, seen, "err")
}

// drawDAG builds units where unit i may only depend on units with a smaller
// index, so the graph is acyclic by construction.
func drawDAG(t *rapid.T) []*ServiceUnitFact {
	n := rapid.IntRange(1, 12).Draw(t, "units")

	facts := make([]*ServiceUnitFact, 0, n)
	for i := range n {
		fact := implements(fmt.Sprintf("Unit%d", i), fmt.Sprintf("IUnit%d", i))
		if i > 0 {
			deps := rapid.SliceOfNDistinct(rapid.IntRange(0, i-1), 0, 3, rapid.ID[int]).Draw(t, fmt.Sprintf("deps%d", i))
			for _, d := range deps {
				fact.ConstructorParameters = append(fact.ConstructorParameters, Parameter{
					Name:            fmt.Sprintf("u%d", d),
					ContractRawText: fmt.Sprintf("IUnit%d", d),
				})
			}
		}
		facts = append(facts, fact)
	}

	perm := rapid.Permutation(facts).Draw(t, "order")

	return perm
}

func TestProperty_OrderIsTopological(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		facts := drawDAG(rt)

		r := NewRegistry(FirstRegistered)
		var edges []*DependencyEdge
		for _, fact := range facts {
			regs, _ := NewExtractor(DefaultStateFamilies()).Extract(fact)
			for _, reg := range regs {
				if err := r.Register(reg); err != nil {
					rt.Fatalf("Register failed: %v", err)
				}
			}
			e, _ := ExtractDependencies(fact)
			edges = append(edges, e...)
		}

		report := Validate(r, edges)
		if !report.IsValid {
			rt.Fatalf("acyclic graph reported invalid: %+v", report)
		}

		nodes, err := Order(r, edges)
		if err != nil {
			rt.Fatalf("Order failed: %v", err)
		}
		if len(nodes) != len(facts) {
			rt.Fatalf("Order returned %d nodes, want %d", len(nodes), len(facts))
		}

		position := make(map[string]int, len(nodes))
		for i, node := range nodes {
			position[node.ID] = i
		}
		for _, node := range nodes {
			for _, dep := range node.DependencyIDs {
				if position[dep] >= position[node.ID] {
					rt.Fatalf("%s ordered before its dependency %s", node.ImplementationName, dep)
				}
			}
		}
	})
}

func TestProperty_ScanIsIdempotent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		facts := drawDAG(rt)

		r := NewRegistry(FirstRegistered)
		extractor := NewExtractor(DefaultStateFamilies())
		for range 2 {
			for _, fact := range facts {
				regs, _ := extractor.Extract(fact)
				for _, reg := range regs {
					if err := r.Register(reg); err != nil {
						rt.Fatalf("Register failed: %v", err)
					}
				}
			}
		}

		if r.Len() != 2*len(facts) {
			rt.Fatalf("Len() = %d after registering twice, want %d", r.Len(), 2*len(facts))
		}
	})
}
