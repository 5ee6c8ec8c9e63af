package renketsu

import (
	"fmt"
	"strings"

	"github.com/mazrean/renketsu/internal/contract"
)

// DependencyEdge says that a unit needs a contract to be constructed.
type DependencyEdge struct {
	FromImplementation string `yaml:"fromImplementation" json:"fromImplementation"`
	FromUnitKey        string `yaml:"fromUnitKey" json:"fromUnitKey"`
	// ToSanitizedKey is the wildcard key of the required contract.
	ToSanitizedKey  string `yaml:"toSanitizedKey" json:"toSanitizedKey"`
	ContractRawText string `yaml:"contractRawText" json:"contractRawText"`
	ParameterName   string `yaml:"parameterName" json:"parameterName"`
	IsOptional      bool   `yaml:"isOptional,omitempty" json:"isOptional,omitempty"`
}

func (e *DependencyEdge) String() string {
	return e.FromImplementation + " -> " + e.ToSanitizedKey
}

// query is the text used to resolve the edge target. The canonical contract
// text keeps the generic arguments that the sanitized key drops.
func (e *DependencyEdge) query() string {
	if e.ContractRawText != "" {
		return e.ContractRawText
	}

	return e.ToSanitizedKey
}

// ExtractDependencies returns one edge per constructor parameter, in
// parameter order. Parameters with a malformed contract are skipped with a
// warning.
func ExtractDependencies(fact *ServiceUnitFact) ([]*DependencyEdge, []Warning) {
	if fact == nil || strings.TrimSpace(fact.Name) == "" {
		return nil, nil
	}

	from := unitKey(fact)

	var (
		edges    []*DependencyEdge
		warnings []Warning
	)
	for i, param := range fact.ConstructorParameters {
		name := param.Name
		if name == "" {
			name = fmt.Sprintf("arg%d", i)
		}

		s, err := contract.Parse(param.ContractRawText)
		if err != nil {
			warnings = append(warnings, newWarning(fact, WarnMalformedParameter, name, err))
			continue
		}

		edges = append(edges, &DependencyEdge{
			FromImplementation: fact.Name,
			FromUnitKey:        from,
			ToSanitizedKey:     contract.Key(s),
			ContractRawText:    s.String(),
			ParameterName:      name,
			IsOptional:         param.IsOptional,
		})
	}

	return edges, warnings
}
