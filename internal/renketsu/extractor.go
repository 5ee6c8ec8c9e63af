package renketsu

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/mazrean/renketsu/internal/contract"
)

var (
	errMissingName = errors.New("service unit has no name")
	errEmptyUnit   = errors.New("service unit is empty")
)

// StateFamilies selects the base classes whose generic argument is a state
// payload type.
type StateFamilies struct {
	Names    []string
	Suffixes []string
}

// DefaultStateFamilies returns the built-in state families.
func DefaultStateFamilies() StateFamilies {
	return StateFamilies{
		Names:    []string{"AsyncState", "Repository", "Store"},
		Suffixes: []string{"Manager"},
	}
}

// Match reports whether base names a state family. Package qualifiers are
// ignored.
func (f StateFamilies) Match(base string) bool {
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		base = base[i+1:]
	}

	if slices.Contains(f.Names, base) {
		return true
	}

	for _, suffix := range f.Suffixes {
		if suffix != "" && strings.HasSuffix(base, suffix) {
			return true
		}
	}

	return false
}

// Extractor turns service unit facts into registrations. It holds no
// mutable state and is safe for concurrent use.
type Extractor struct {
	families StateFamilies
}

func NewExtractor(families StateFamilies) *Extractor {
	return &Extractor{families: families}
}

// Extract produces the registrations of one unit. A malformed facet is
// skipped with a warning; the other facets are still extracted. Every named
// unit yields exactly one class registration.
func (e *Extractor) Extract(fact *ServiceUnitFact) ([]*Registration, []Warning) {
	if fact == nil {
		return nil, []Warning{newWarning(nil, WarnMissingName, "", errEmptyUnit)}
	}
	if strings.TrimSpace(fact.Name) == "" {
		return nil, []Warning{newWarning(fact, WarnMissingName, "", errMissingName)}
	}

	var warnings []Warning

	scope, ok := ParseScope(fact.Scope)
	if !ok {
		warnings = append(warnings, newWarning(fact, WarnInvalidScope, fact.Scope,
			fmt.Errorf("unknown scope %q, using %s", fact.Scope, ScopeSingleton)))
	}

	base := registrationBase{
		fact:    fact,
		unitKey: unitKey(fact),
		implKey: contract.IdentKey(fact.Name),
		scope:   scope,
	}

	var regs []*Registration
	declared := make(map[string]struct{}, len(fact.DeclaredContracts))

	addInterface := func(ref ContractRef) {
		s, err := ref.Shape()
		if err != nil {
			warnings = append(warnings, newWarning(fact, WarnMalformedContract, ref.RawText, err))
			return
		}

		exact := contract.ExactKey(s)
		if _, ok := declared[exact]; ok {
			return
		}
		declared[exact] = struct{}{}

		regs = append(regs, base.interfaceRegistration(s))
	}

	for _, ref := range fact.DeclaredContracts {
		addInterface(ref)
	}

	type extended struct {
		ref   HeritageRef
		shape contract.Shape
	}
	var extends []extended

	for _, h := range fact.Heritage {
		switch h.Relation {
		case RelationImplements:
			addInterface(h.ContractRef)
		case RelationExtends, "":
			s, err := h.Shape()
			if err != nil {
				warnings = append(warnings, newWarning(fact, WarnMalformedHeritage, h.RawText, err))
				continue
			}
			extends = append(extends, extended{ref: h, shape: s})
		default:
			warnings = append(warnings, newWarning(fact, WarnUnsupportedRelation, h.RawText,
				fmt.Errorf("unsupported heritage relation %q", h.Relation)))
		}
	}

	chain := make([]string, 0, len(extends))
	for _, ext := range extends {
		chain = append(chain, ext.shape.Base())
	}

	for _, ext := range extends {
		regs = append(regs, base.inheritanceRegistration(ext.shape, chain, e.families))
	}

	regs = append(regs, base.classRegistration())

	return regs, warnings
}

type registrationBase struct {
	fact    *ServiceUnitFact
	unitKey string
	implKey string
	scope   Scope
}

func (b registrationBase) location() *SourceLocation {
	if b.fact.SourceLocation.IsZero() {
		return nil
	}

	loc := b.fact.SourceLocation
	return &loc
}

func (b registrationBase) newRegistration(s contract.Shape, strategy Strategy, keyName string) *Registration {
	reg := &Registration{
		StorageKey:         storageKey(keyName, b.implKey, b.fact.SourceLocation),
		SanitizedKey:       contract.Key(s),
		ExactKey:           contract.ExactKey(s),
		ContractName:       s.String(),
		Contract:           s,
		ImplementationName: b.fact.Name,
		UnitKey:            b.unitKey,
		SourceLocation:     b.location(),
		Strategy:           strategy,
		IsGeneric:          contract.IsGeneric(s),
		GenericArguments:   contract.Args(s),
		Scope:              b.scope,
		Primary:            b.fact.Primary,
		Profiles:           slices.Clone(b.fact.Profiles),
	}
	if !b.fact.SourceLocation.IsZero() {
		reg.LocationKey = reg.StorageKey
	}

	return reg
}

func (b registrationBase) interfaceRegistration(s contract.Shape) *Registration {
	return b.newRegistration(s, StrategyInterface, contract.ExactKey(s))
}

func (b registrationBase) inheritanceRegistration(s contract.Shape, chain []string, families StateFamilies) *Registration {
	reg := b.newRegistration(s, StrategyInheritance, contract.HeritageKey(s))
	reg.BaseClass = s.Base()
	reg.InheritanceChain = slices.Clone(chain)

	g, ok := s.(contract.Generic)
	if ok && len(g.Args) > 0 && families.Match(g.Name) {
		reg.Strategy = StrategyState
		reg.StateType = g.Args[0].String()
		reg.ServiceInterface = contract.Generic{Name: g.Name, Args: g.Args[:1]}.String()
	}

	return reg
}

func (b registrationBase) classRegistration() *Registration {
	// Unit names are taken verbatim, never parsed as contracts.
	return b.newRegistration(contract.Named{Name: b.fact.Name}, StrategyClass, b.implKey)
}
