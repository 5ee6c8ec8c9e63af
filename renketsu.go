// Package renketsu resolves service contracts to their implementations and
// orders the construction of services for compile-time dependency
// injection.
//
// Service units are described by facts, loaded from fact files or found in
// Go packages, and turned into a registry:
//
//	units, err := renketsu.LoadFacts("services.yaml")
//	result, err := renketsu.New().Build(ctx, units)
//	for _, node := range result.Plan {
//		fmt.Println(node.VarName, node.ImplementationName)
//	}
package renketsu

import (
	"context"

	"github.com/mazrean/renketsu/internal/contract"
	"github.com/mazrean/renketsu/internal/facts"
	"github.com/mazrean/renketsu/internal/renketsu"
)

type (
	ServiceUnitFact  = renketsu.ServiceUnitFact
	SourceLocation   = renketsu.SourceLocation
	ContractRef      = renketsu.ContractRef
	HeritageRef      = renketsu.HeritageRef
	Parameter        = renketsu.Parameter
	Registration     = renketsu.Registration
	Registry         = renketsu.Registry
	ResolutionResult = renketsu.ResolutionResult
	DependencyEdge   = renketsu.DependencyEdge
	ValidationReport = renketsu.ValidationReport
	TreeNode         = renketsu.TreeNode
	CycleError       = renketsu.CycleError
	Warning          = renketsu.Warning
	Engine           = renketsu.Engine
	Result           = renketsu.Result
	Option           = renketsu.Option
	TieBreaker       = renketsu.TieBreaker
	StateFamilies    = renketsu.StateFamilies
	Strategy         = renketsu.Strategy
	Scope            = renketsu.Scope
)

const (
	StrategyInterface   = renketsu.StrategyInterface
	StrategyInheritance = renketsu.StrategyInheritance
	StrategyClass       = renketsu.StrategyClass
	StrategyState       = renketsu.StrategyState

	ScopeSingleton = renketsu.ScopeSingleton
	ScopeTransient = renketsu.ScopeTransient
	ScopeScoped    = renketsu.ScopeScoped
)

var (
	ErrNotFound     = renketsu.ErrNotFound
	ErrDuplicateKey = renketsu.ErrDuplicateKey
	ErrInvalidGraph = renketsu.ErrInvalidGraph
	ErrMalformed    = contract.ErrMalformed
)

var (
	WithTieBreaker    = renketsu.WithTieBreaker
	WithStateFamilies = renketsu.WithStateFamilies
	WithConcurrency   = renketsu.WithConcurrency
	WithLogger        = renketsu.WithLogger
	WithTracer        = renketsu.WithTracer

	FirstRegistered = renketsu.FirstRegistered
	PreferPrimary   = renketsu.PreferPrimary
	PreferProfile   = renketsu.PreferProfile
)

// New creates an engine.
func New(opts ...Option) *Engine {
	return renketsu.New(opts...)
}

// LoadFacts reads YAML or JSON fact files.
func LoadFacts(paths ...string) ([]*ServiceUnitFact, error) {
	return facts.LoadFiles(paths...)
}

// LoadGoPackages finds the service units of the Go packages matching
// patterns, resolved relative to dir.
func LoadGoPackages(ctx context.Context, dir string, patterns ...string) ([]*ServiceUnitFact, error) {
	return facts.NewGoLoader(dir).Load(ctx, patterns...)
}

// Sanitize returns the wildcard key of a contract. Every instantiation of a
// generic family shares one key.
func Sanitize(text string) (string, error) {
	return contract.Sanitize(text)
}

// ExactKey returns the key of a contract that keeps its generic arguments.
func ExactKey(text string) (string, error) {
	return contract.ExactToken(text)
}
