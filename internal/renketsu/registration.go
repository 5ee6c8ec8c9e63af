package renketsu

import (
	"fmt"
	"strings"

	"github.com/mazrean/renketsu/internal/contract"
)

// Strategy is the rule through which a registration was produced.
type Strategy int

const (
	StrategyInterface Strategy = iota
	StrategyInheritance
	StrategyClass
	StrategyState
)

func (s Strategy) String() string {
	switch s {
	case StrategyInterface:
		return "interface"
	case StrategyInheritance:
		return "inheritance"
	case StrategyClass:
		return "class"
	case StrategyState:
		return "state"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// isInheritance reports whether s came from an extends clause.
func (s Strategy) isInheritance() bool {
	return s == StrategyInheritance || s == StrategyState
}

// Scope is the lifetime of the constructed instance.
type Scope string

const (
	ScopeSingleton Scope = "singleton"
	ScopeTransient Scope = "transient"
	ScopeScoped    Scope = "scoped"
)

// ParseScope parses raw. An empty value is the singleton default; an
// unknown value also yields singleton but reports ok == false.
func ParseScope(raw string) (scope Scope, ok bool) {
	switch Scope(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ScopeSingleton:
		return ScopeSingleton, true
	case ScopeTransient:
		return ScopeTransient, true
	case ScopeScoped:
		return ScopeScoped, true
	default:
		return ScopeSingleton, false
	}
}

// Registration binds one contract-resolution strategy to one service unit.
type Registration struct {
	// StorageKey is unique within a registry.
	StorageKey string `yaml:"storageKey" json:"storageKey"`
	// SanitizedKey is the wildcard key of the contract.
	SanitizedKey string `yaml:"sanitizedKey" json:"sanitizedKey"`
	// ExactKey is the argument-preserving key of the contract.
	ExactKey    string `yaml:"exactKey" json:"exactKey"`
	LocationKey string `yaml:"locationKey,omitempty" json:"locationKey,omitempty"`

	ContractName       string         `yaml:"contractName" json:"contractName"`
	Contract           contract.Shape `yaml:"-" json:"-"`
	ImplementationName string         `yaml:"implementationName" json:"implementationName"`
	// UnitKey is the storage key of the unit's class registration.
	UnitKey        string          `yaml:"unitKey" json:"unitKey"`
	SourceLocation *SourceLocation `yaml:"sourceLocation,omitempty" json:"sourceLocation,omitempty"`

	Strategy         Strategy `yaml:"strategy" json:"strategy"`
	IsGeneric        bool     `yaml:"isGeneric" json:"isGeneric"`
	GenericArguments []string `yaml:"genericArguments,omitempty" json:"genericArguments,omitempty"`
	Scope            Scope    `yaml:"scope" json:"scope"`

	BaseClass        string   `yaml:"baseClass,omitempty" json:"baseClass,omitempty"`
	InheritanceChain []string `yaml:"inheritanceChain,omitempty" json:"inheritanceChain,omitempty"`
	StateType        string   `yaml:"stateType,omitempty" json:"stateType,omitempty"`
	ServiceInterface string   `yaml:"serviceInterface,omitempty" json:"serviceInterface,omitempty"`

	Primary  bool     `yaml:"primary,omitempty" json:"primary,omitempty"`
	Profiles []string `yaml:"profiles,omitempty" json:"profiles,omitempty"`
}

func (r *Registration) String() string {
	return fmt.Sprintf("%s(%s => %s)", r.Strategy, r.ContractName, r.ImplementationName)
}

// family returns the generic family of the registered contract.
func (r *Registration) family() string {
	if r.Contract == nil {
		return ""
	}

	return contract.Family(r.Contract)
}

// sameAs reports whether two registrations describe the same binding, which
// makes re-registration a no-op.
func (r *Registration) sameAs(o *Registration) bool {
	return r.StorageKey == o.StorageKey &&
		r.Strategy == o.Strategy &&
		r.UnitKey == o.UnitKey &&
		contract.Equal(r.Contract, o.Contract)
}
