package facts

import (
	"cmp"
	"context"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/mazrean/renketsu/internal/contract"
	"github.com/mazrean/renketsu/internal/renketsu"
)

const (
	directivePrefix     = "//renketsu:"
	directiveInject     = "inject"
	directiveImplements = "implements"
	directiveOptional   = "optional"
)

// GoLoader finds service units in Go packages. A named type is a service
// unit when its doc comment carries a //renketsu:inject directive.
type GoLoader struct {
	fset *token.FileSet
	dir  string
}

// NewGoLoader creates a loader resolving package patterns relative to dir.
func NewGoLoader(dir string) *GoLoader {
	return &GoLoader{
		fset: token.NewFileSet(),
		dir:  dir,
	}
}

// Load returns the service units of the packages matching patterns, ordered
// by package path and source position.
func (l *GoLoader) Load(ctx context.Context, patterns ...string) ([]*renketsu.ServiceUnitFact, error) {
	cfg := &packages.Config{
		Context: ctx,
		Dir:     l.dir,
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedSyntax |
			packages.NeedTypes | packages.NeedTypesInfo,
		Fset: l.fset,
	}

	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("load packages: %w", err)
	}

	slices.SortFunc(pkgs, func(a, b *packages.Package) int {
		return cmp.Compare(a.PkgPath, b.PkgPath)
	})

	var units []*renketsu.ServiceUnitFact
	for _, pkg := range pkgs {
		for _, pkgErr := range pkg.Errors {
			slog.Warn("package has errors", "package", pkg.PkgPath, "error", pkgErr.Error())
		}

		if pkg.Types == nil || pkg.TypesInfo == nil {
			continue
		}

		units = append(units, l.packageUnits(pkg)...)
	}

	return units, nil
}

type typeDecl struct {
	spec *ast.TypeSpec
	doc  *ast.CommentGroup
}

func (l *GoLoader) packageUnits(pkg *packages.Package) []*renketsu.ServiceUnitFact {
	var (
		decls []typeDecl
		funcs = make(map[string]*ast.FuncDecl)
	)
	for _, file := range pkg.Syntax {
		for _, decl := range file.Decls {
			switch decl := decl.(type) {
			case *ast.GenDecl:
				if decl.Tok != token.TYPE {
					continue
				}
				for _, spec := range decl.Specs {
					ts, ok := spec.(*ast.TypeSpec)
					if !ok {
						continue
					}

					doc := ts.Doc
					if doc == nil && len(decl.Specs) == 1 {
						doc = decl.Doc
					}
					decls = append(decls, typeDecl{spec: ts, doc: doc})
				}
			case *ast.FuncDecl:
				if decl.Recv == nil {
					funcs[decl.Name.Name] = decl
				}
			}
		}
	}

	var units []*renketsu.ServiceUnitFact
	for _, decl := range decls {
		directives := parseDirectives(decl.doc)
		inject, ok := directives[directiveInject]
		if !ok {
			continue
		}

		unit := &renketsu.ServiceUnitFact{
			Name:           pkg.Name + "." + decl.spec.Name.Name,
			SourceLocation: l.location(decl.spec.Pos()),
		}
		applyInjectOptions(unit, inject)

		for _, raw := range directives[directiveImplements] {
			unit.DeclaredContracts = append(unit.DeclaredContracts, renketsu.ContractRef{
				RawText: qualify(pkg.Types, raw),
			})
		}

		if st, ok := decl.spec.Type.(*ast.StructType); ok {
			unit.Heritage = embeddedHeritage(pkg, st)
		}

		optional := optionalNames(directives[directiveOptional])
		if fn, ok := funcs["New"+decl.spec.Name.Name]; ok {
			optional = append(optional, optionalNames(parseDirectives(fn.Doc)[directiveOptional])...)
			unit.ConstructorParameters = constructorParameters(pkg, fn, optional)
		}

		slog.Debug("Found service unit", "unit", unit.Name, "location", unit.SourceLocation.String())
		units = append(units, unit)
	}

	return units
}

func (l *GoLoader) location(pos token.Pos) renketsu.SourceLocation {
	p := l.fset.Position(pos)

	file := p.Filename
	if l.dir != "" {
		if rel, err := filepath.Rel(l.dir, file); err == nil {
			file = rel
		}
	}

	return renketsu.SourceLocation{File: filepath.ToSlash(file), Line: p.Line}
}

// parseDirectives collects the //renketsu: lines of a comment group by
// directive name.
func parseDirectives(doc *ast.CommentGroup) map[string][]string {
	directives := make(map[string][]string)
	if doc == nil {
		return directives
	}

	for _, c := range doc.List {
		text, ok := strings.CutPrefix(c.Text, directivePrefix)
		if !ok {
			continue
		}

		name, args, _ := strings.Cut(text, " ")
		directives[name] = append(directives[name], strings.TrimSpace(args))
	}

	return directives
}

// applyInjectOptions reads "scope=<scope>", "primary" and
// "profile=<a,b>" options of inject directives.
func applyInjectOptions(unit *renketsu.ServiceUnitFact, args []string) {
	for _, arg := range args {
		for _, opt := range strings.Fields(arg) {
			key, value, _ := strings.Cut(opt, "=")
			switch key {
			case "scope":
				unit.Scope = value
			case "primary":
				unit.Primary = true
			case "profile":
				for _, p := range strings.Split(value, ",") {
					if p = strings.TrimSpace(p); p != "" {
						unit.Profiles = append(unit.Profiles, p)
					}
				}
			default:
				slog.Warn("unknown inject option", "unit", unit.Name, "option", opt)
			}
		}
	}
}

func optionalNames(args []string) []string {
	var names []string
	for _, arg := range args {
		for _, name := range strings.Split(arg, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}

	return names
}

func qualifier(p *types.Package) string {
	return p.Name()
}

func typeText(t types.Type) string {
	for ptr, ok := t.(*types.Pointer); ok; ptr, ok = t.(*types.Pointer) {
		t = ptr.Elem()
	}

	return types.TypeString(t, qualifier)
}

func embeddedHeritage(pkg *packages.Package, st *ast.StructType) []renketsu.HeritageRef {
	var heritage []renketsu.HeritageRef
	for _, field := range st.Fields.List {
		if len(field.Names) != 0 {
			continue
		}

		t := pkg.TypesInfo.TypeOf(field.Type)
		if t == nil {
			continue
		}

		heritage = append(heritage, renketsu.HeritageRef{
			ContractRef: renketsu.ContractRef{RawText: typeText(t)},
			Relation:    renketsu.RelationExtends,
		})
	}

	return heritage
}

func constructorParameters(pkg *packages.Package, fn *ast.FuncDecl, optional []string) []renketsu.Parameter {
	var params []renketsu.Parameter
	for _, field := range fn.Type.Params.List {
		t := pkg.TypesInfo.TypeOf(field.Type)
		if t == nil || isContext(t) {
			continue
		}

		text := typeText(t)
		if len(field.Names) == 0 {
			params = append(params, renketsu.Parameter{ContractRawText: text})
			continue
		}

		for _, name := range field.Names {
			params = append(params, renketsu.Parameter{
				Name:            name.Name,
				ContractRawText: text,
				IsOptional:      slices.Contains(optional, name.Name),
			})
		}
	}

	return params
}

func isContext(t types.Type) bool {
	named, ok := t.(*types.Named)
	if !ok {
		return false
	}

	obj := named.Obj()
	return obj != nil && obj.Pkg() != nil && obj.Pkg().Path() == "context" && obj.Name() == "Context"
}

// qualify prefixes the package name to unqualified identifiers declared in
// the package scope, so directive contracts match parameter types.
func qualify(pkg *types.Package, raw string) string {
	s, err := contract.Parse(raw)
	if err != nil {
		return raw
	}

	return qualifyShape(pkg, s).String()
}

func qualifyShape(pkg *types.Package, s contract.Shape) contract.Shape {
	name := func(n string) string {
		if strings.Contains(n, ".") || pkg.Scope().Lookup(n) == nil {
			return n
		}
		return pkg.Name() + "." + n
	}

	switch s := s.(type) {
	case contract.Named:
		return contract.Named{Name: name(s.Name)}
	case contract.Wildcard:
		return contract.Wildcard{Name: name(s.Name)}
	case contract.Generic:
		args := make([]contract.Shape, 0, len(s.Args))
		for _, arg := range s.Args {
			args = append(args, qualifyShape(pkg, arg))
		}
		return contract.Generic{Name: name(s.Name), Args: args}
	case contract.Union:
		members := make([]contract.Shape, 0, len(s.Members))
		for _, m := range s.Members {
			members = append(members, qualifyShape(pkg, m))
		}
		return contract.Union{Members: members}
	case contract.Array:
		return contract.Array{Elem: qualifyShape(pkg, s.Elem)}
	case contract.Pointer:
		return contract.Pointer{Elem: qualifyShape(pkg, s.Elem)}
	default:
		return s
	}
}
