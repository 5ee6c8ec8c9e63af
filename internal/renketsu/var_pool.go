package renketsu

import (
	"fmt"
	gostrings "strings"

	"github.com/mazrean/renketsu/internal/pkg/strings"
)

// VarPool hands out unique variable names for planned units.
type VarPool struct {
	used map[string]struct{}
	next map[string]int
}

func NewVarPool() *VarPool {
	return &VarPool{
		used: make(map[string]struct{}),
		next: make(map[string]int),
	}
}

// Register reserves name so Get never returns it.
func (p *VarPool) Register(names ...string) {
	for _, name := range names {
		if name == "" || name == "_" {
			continue
		}
		p.used[name] = struct{}{}
	}
}

// Get returns a fresh variable name derived from an implementation name.
// A taken name gets the lowest numeric suffix not handed out yet, so a
// suffixed name never collides with another unit's base name.
func (p *VarPool) Get(implementation string) string {
	base := baseVarName(implementation)

	name := base
	for {
		if _, ok := p.used[name]; !ok {
			break
		}

		n := p.next[base]
		p.next[base] = n + 1
		name = fmt.Sprintf("%s%d", base, n)
	}
	p.used[name] = struct{}{}

	return name
}

// goReservedKeywords contains Go reserved keywords that cannot be used as variable names
var goReservedKeywords = map[string]bool{
	"break": true, "default": true, "func": true, "interface": true, "select": true,
	"case": true, "defer": true, "go": true, "map": true, "struct": true,
	"chan": true, "else": true, "goto": true, "package": true, "switch": true,
	"const": true, "fallthrough": true, "if": true, "range": true, "type": true,
	"continue": true, "for": true, "import": true, "return": true, "var": true,
}

// goPredeclared contains predeclared identifiers that would be shadowed
var goPredeclared = map[string]bool{
	"any": true, "append": true, "bool": true, "byte": true, "cap": true,
	"clear": true, "close": true, "complex": true, "copy": true, "delete": true,
	"error": true, "false": true, "imag": true, "int": true, "iota": true,
	"len": true, "make": true, "max": true, "min": true, "new": true,
	"nil": true, "panic": true, "print": true, "println": true, "real": true,
	"recover": true, "rune": true, "string": true, "true": true,
}

// baseVarName drops the package qualifier and every character that cannot
// appear in an identifier, then lower-cases the leading capitals.
func baseVarName(implementation string) string {
	if i := gostrings.LastIndexByte(implementation, '.'); i >= 0 {
		implementation = implementation[i+1:]
	}

	name := strings.Identifier(implementation)
	if gostrings.Trim(name, "_") == "" {
		return "svc"
	}

	name = strings.ToLowerCamel(name)
	if goReservedKeywords[name] || goPredeclared[name] {
		return name + "Value"
	}

	return name
}
