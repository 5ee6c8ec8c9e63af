// Package renketsu builds the dependency registry, validates the dependency
// graph and derives a construction plan from service unit facts.
package renketsu

import (
	"fmt"
	"strings"

	"github.com/mazrean/renketsu/internal/contract"
)

// SourceLocation is the position of a declaration in its source file.
type SourceLocation struct {
	File string `yaml:"file" json:"file"`
	Line int    `yaml:"line" json:"line"`
}

// IsZero reports whether the location is unknown.
func (l SourceLocation) IsZero() bool {
	return l.File == ""
}

func (l SourceLocation) String() string {
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// ContractRef is a contract as written in source.
type ContractRef struct {
	RawText     string   `yaml:"rawText" json:"rawText"`
	BaseName    string   `yaml:"baseName,omitempty" json:"baseName,omitempty"`
	GenericArgs []string `yaml:"genericArgs,omitempty" json:"genericArgs,omitempty"`
}

// Shape parses the reference. RawText wins; when it is empty the shape is
// rebuilt from BaseName and GenericArgs.
func (r ContractRef) Shape() (contract.Shape, error) {
	text := r.RawText
	if strings.TrimSpace(text) == "" {
		if r.BaseName == "" {
			return nil, fmt.Errorf("%w: empty contract reference", contract.ErrMalformed)
		}

		text = r.BaseName
		if len(r.GenericArgs) > 0 {
			text += "<" + strings.Join(r.GenericArgs, ", ") + ">"
		}
	}

	s, err := contract.Parse(text)
	if err != nil {
		return nil, err
	}

	if r.BaseName != "" && s.Base() != r.BaseName {
		return nil, fmt.Errorf("%w: base name %q does not match %q", contract.ErrMalformed, r.BaseName, s.String())
	}

	return s, nil
}

// Relation is the kind of a heritage clause.
type Relation string

const (
	RelationExtends    Relation = "extends"
	RelationImplements Relation = "implements"
)

// HeritageRef is one heritage clause of a service unit.
type HeritageRef struct {
	ContractRef `yaml:",inline"`
	Relation    Relation `yaml:"relation,omitempty" json:"relation,omitempty"`
}

// Parameter is one constructor parameter of a service unit.
type Parameter struct {
	Name            string `yaml:"name" json:"name"`
	ContractRawText string `yaml:"contractRawText" json:"contractRawText"`
	IsOptional      bool   `yaml:"isOptional,omitempty" json:"isOptional,omitempty"`
}

// ServiceUnitFact is everything the source analysis layer knows about one
// injectable declaration. Facts are treated as immutable.
type ServiceUnitFact struct {
	Name                  string         `yaml:"name" json:"name"`
	SourceLocation        SourceLocation `yaml:"sourceLocation" json:"sourceLocation"`
	DeclaredContracts     []ContractRef  `yaml:"declaredContracts,omitempty" json:"declaredContracts,omitempty"`
	Heritage              []HeritageRef  `yaml:"heritage,omitempty" json:"heritage,omitempty"`
	Scope                 string         `yaml:"scope,omitempty" json:"scope,omitempty"`
	ConstructorParameters []Parameter    `yaml:"constructorParameters,omitempty" json:"constructorParameters,omitempty"`
	Primary               bool           `yaml:"primary,omitempty" json:"primary,omitempty"`
	Profiles              []string       `yaml:"profiles,omitempty" json:"profiles,omitempty"`
}

// unitKey is the storage key of the unit's class registration. It identifies
// the unit as a graph node.
func unitKey(fact *ServiceUnitFact) string {
	name := contract.IdentKey(fact.Name)
	return storageKey(name, name, fact.SourceLocation)
}

// storageKey is unique per declaration: location-qualified when the source
// location is known, otherwise qualified by the implementation name.
func storageKey(contractKey, implKey string, loc SourceLocation) string {
	if loc.IsZero() {
		return contractKey + "__" + implKey
	}

	return contract.LocationKey(contractKey, loc.File, loc.Line)
}
