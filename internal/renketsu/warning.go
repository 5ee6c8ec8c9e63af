package renketsu

import (
	"fmt"
	"log/slog"
)

// WarningCode identifies warning types.
type WarningCode int

const (
	WarnMissingName WarningCode = iota
	WarnInvalidScope
	WarnMalformedContract
	WarnMalformedHeritage
	WarnUnsupportedRelation
	WarnMalformedParameter
	WarnDuplicateKey
)

func (c WarningCode) String() string {
	switch c {
	case WarnMissingName:
		return "missing-name"
	case WarnInvalidScope:
		return "invalid-scope"
	case WarnMalformedContract:
		return "malformed-contract"
	case WarnMalformedHeritage:
		return "malformed-heritage"
	case WarnUnsupportedRelation:
		return "unsupported-relation"
	case WarnMalformedParameter:
		return "malformed-parameter"
	case WarnDuplicateKey:
		return "duplicate-key"
	default:
		return fmt.Sprintf("WarningCode(%d)", int(c))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c WarningCode) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Warning is a non-fatal problem found while extracting one facet of a unit.
// The remaining facets of the unit are still processed.
type Warning struct {
	Err      error          `yaml:"-" json:"-"`
	Unit     string         `yaml:"unit" json:"unit"`
	Facet    string         `yaml:"facet,omitempty" json:"facet,omitempty"`
	Message  string         `yaml:"message" json:"message"`
	Location SourceLocation `yaml:"location" json:"location"`
	Code     WarningCode    `yaml:"code" json:"code"`
}

func newWarning(fact *ServiceUnitFact, code WarningCode, facet string, err error) Warning {
	w := Warning{
		Facet: facet,
		Code:  code,
		Err:   err,
	}
	if fact != nil {
		w.Unit = fact.Name
		w.Location = fact.SourceLocation
	}
	if err != nil {
		w.Message = err.Error()
	}

	return w
}

func (w Warning) String() string {
	if w.Facet == "" {
		return fmt.Sprintf("%s: %s: %s", w.Unit, w.Code, w.Message)
	}

	return fmt.Sprintf("%s: %s %q: %s", w.Unit, w.Code, w.Facet, w.Message)
}

// Unwrap returns the underlying error, if any.
func (w Warning) Unwrap() error {
	return w.Err
}

func (w Warning) log(logger *slog.Logger) {
	logger.Warn("Skipped malformed declaration",
		"unit", w.Unit,
		"location", w.Location.String(),
		"code", w.Code.String(),
		"facet", w.Facet,
		"error", w.Message,
	)
}
