package renketsu

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	gocache "github.com/patrickmn/go-cache"

	"github.com/mazrean/renketsu/internal/contract"
)

var (
	ErrNotFound     = errors.New("no registration found")
	ErrDuplicateKey = errors.New("storage key already registered")
)

// ResolutionStep is the resolution rule that produced a match.
type ResolutionStep int

const (
	StepNone ResolutionStep = iota
	StepExact
	StepLocation
	StepGenericWildcard
	StepInheritance
	StepClass
	StepNameFallback
)

func (s ResolutionStep) String() string {
	switch s {
	case StepNone:
		return "none"
	case StepExact:
		return "exact"
	case StepLocation:
		return "location"
	case StepGenericWildcard:
		return "generic-wildcard"
	case StepInheritance:
		return "inheritance"
	case StepClass:
		return "class"
	case StepNameFallback:
		return "name-fallback"
	default:
		return fmt.Sprintf("ResolutionStep(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s ResolutionStep) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ResolutionResult is the outcome of resolving one query.
type ResolutionResult struct {
	Err        error           `yaml:"-" json:"-"`
	Matched    *Registration   `yaml:"matched,omitempty" json:"matched,omitempty"`
	Query      string          `yaml:"query" json:"query"`
	Candidates []*Registration `yaml:"candidates,omitempty" json:"candidates,omitempty"`
	Step       ResolutionStep  `yaml:"step" json:"step"`
}

// Registry stores registrations by storage key. Iteration follows
// registration order.
type Registry struct {
	entries []*Registration
	index   map[string]int
	// keys indexes every storage, sanitized and exact key.
	keys   map[string]struct{}
	policy TieBreaker
	memo   *gocache.Cache
}

func NewRegistry(policy TieBreaker) *Registry {
	if policy == nil {
		policy = FirstRegistered
	}

	return &Registry{
		index:  make(map[string]int),
		keys:   make(map[string]struct{}),
		policy: policy,
		memo:   gocache.New(gocache.NoExpiration, 0),
	}
}

// Register stores reg. Registering an identical registration again is a
// no-op; a different registration under an existing storage key fails with
// ErrDuplicateKey.
func (r *Registry) Register(reg *Registration) error {
	if i, ok := r.index[reg.StorageKey]; ok {
		if r.entries[i].sameAs(reg) {
			return nil
		}

		return fmt.Errorf("%w: %s (%s, %s)", ErrDuplicateKey, reg.StorageKey, r.entries[i], reg)
	}

	r.index[reg.StorageKey] = len(r.entries)
	r.entries = append(r.entries, reg)
	r.keys[reg.StorageKey] = struct{}{}
	r.keys[reg.SanitizedKey] = struct{}{}
	r.keys[reg.ExactKey] = struct{}{}
	r.memo.Flush()

	return nil
}

// Lookup returns the registration stored under storageKey.
func (r *Registry) Lookup(storageKey string) (*Registration, bool) {
	i, ok := r.index[storageKey]
	if !ok {
		return nil, false
	}

	return r.entries[i], true
}

// HasKey reports whether key equals the storage, sanitized or exact key of
// any registration. No wildcard or fallback matching is applied.
func (r *Registry) HasKey(key string) bool {
	_, ok := r.keys[key]
	return ok
}

// All iterates over storage keys and registrations in registration order.
func (r *Registry) All(yield func(string, *Registration) bool) {
	for _, reg := range r.entries {
		if !yield(reg.StorageKey, reg) {
			return
		}
	}
}

// Registrations returns a copy of the registrations in registration order.
func (r *Registry) Registrations() []*Registration {
	return append([]*Registration(nil), r.entries...)
}

func (r *Registry) Len() int {
	return len(r.entries)
}

// Reset removes every registration.
func (r *Registry) Reset() {
	r.entries = nil
	r.index = make(map[string]int)
	r.keys = make(map[string]struct{})
	r.memo.Flush()
}

// SetTieBreaker replaces the tie-break policy.
func (r *Registry) SetTieBreaker(policy TieBreaker) {
	if policy == nil {
		policy = FirstRegistered
	}

	r.policy = policy
	r.memo.Flush()
}

// Resolve returns the registration that satisfies query, or ErrNotFound.
func (r *Registry) Resolve(query string) (*Registration, error) {
	res := r.ResolveResult(query)
	return res.Matched, res.Err
}

// ResolveAll returns the registrations of the first resolution step that
// matches query, in registration order.
func (r *Registry) ResolveAll(query string) []*Registration {
	return r.ResolveResult(query).Candidates
}

// ResolveResult resolves query and reports how it matched. The query may be
// contract text or a key token. Resolution tries, in order: exact keys,
// the name inside a location-qualified key, the generic family, inheritance,
// class names and finally the literal contract name. The returned
// candidates are a copy the caller may modify.
func (r *Registry) ResolveResult(query string) ResolutionResult {
	res, ok := r.memo.Get(query)
	if !ok {
		res = r.resolve(query)
		r.memo.SetDefault(query, res)
	}

	out := res.(ResolutionResult)
	out.Candidates = slices.Clone(out.Candidates)

	return out
}

func (r *Registry) resolve(query string) ResolutionResult {
	q := analyzeQuery(query)

	res := ResolutionResult{Query: query}

	step, candidates := r.match(q)
	if len(candidates) == 0 && contract.IsLocationKey(query) {
		if name := contract.NameFromLocationKey(query); name != query {
			step, candidates = r.match(analyzeQuery(name))
			if len(candidates) > 0 {
				step = StepLocation
			}
		}
	}

	if len(candidates) == 0 {
		res.Err = fmt.Errorf("%w: %s", ErrNotFound, query)
		return res
	}

	res.Step = step
	res.Candidates = candidates
	res.Matched = r.policy(query, slices.Clone(candidates))

	return res
}

type analyzedQuery struct {
	shape   contract.Shape
	literal string
	key     string
	exact   string
	family  string
	bare    string
}

// analyzeQuery interprets query as a key token first and as contract text
// otherwise.
func analyzeQuery(query string) analyzedQuery {
	q := analyzedQuery{literal: query, bare: query}

	if strings.Contains(query, "_") {
		if d, err := contract.Decode(query); err == nil {
			q.shape = d.Shape
		}
	}
	if q.shape == nil {
		if s, err := contract.Parse(query); err == nil {
			q.shape = s
		}
	}

	if q.shape != nil {
		q.key = contract.Key(q.shape)
		q.exact = contract.ExactKey(q.shape)
		q.family = contract.Family(q.shape)
		q.bare = q.shape.Base()
	}

	return q
}

// match returns the registrations of the first step that matches q.
//
// A State registration is reached through its container type, never through
// its payload alone: Repository<User> matches exactly in the first step and
// any other Repository<...> matches it by family, while a bare User query
// only finds a unit named User. Every State registration is generic, so the
// family step covers lookups by service interface.
func (r *Registry) match(q analyzedQuery) (ResolutionStep, []*Registration) {
	steps := []struct {
		step ResolutionStep
		fn   func(*Registration) bool
	}{
		{StepExact, func(reg *Registration) bool {
			return reg.StorageKey == q.literal ||
				reg.SanitizedKey == q.literal ||
				(q.exact != "" && reg.ExactKey == q.exact)
		}},
		{StepGenericWildcard, func(reg *Registration) bool {
			return q.family != "" && reg.Strategy != StrategyClass && reg.IsGeneric && reg.family() == q.family
		}},
		{StepInheritance, func(reg *Registration) bool {
			return reg.Strategy.isInheritance() && q.key != "" && reg.SanitizedKey == q.key
		}},
		{StepClass, func(reg *Registration) bool {
			return reg.Strategy == StrategyClass && q.key != "" && reg.SanitizedKey == q.key
		}},
		{StepNameFallback, func(reg *Registration) bool {
			return reg.ContractName == q.literal || reg.ContractName == q.bare
		}},
	}

	for _, s := range steps {
		var candidates []*Registration
		for _, reg := range r.entries {
			if s.fn(reg) {
				candidates = append(candidates, reg)
			}
		}

		if len(candidates) > 0 {
			return s.step, candidates
		}
	}

	return StepNone, nil
}
