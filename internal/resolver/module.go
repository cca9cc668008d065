package resolver

import (
	"fmt"

	"funee/internal/ast"
	"funee/internal/source"
)

// CanonicalName identifies a declaration by its defining module and its
// original name there. Aliases never fork identity: resolution lands on
// the defining module before canonical names are handed out.
type CanonicalName struct {
	URI  string
	Name string
}

func (c CanonicalName) String() string {
	return fmt.Sprintf("%s#%s", c.URI, c.Name)
}

// DefaultExportName is the reserved slot for a module's default export.
const DefaultExportName = "default"

// LocalBinding is one top-level binding of a module: its declaring item
// plus, for var statements, the individual declarator.
type LocalBinding struct {
	Name       string
	Item       ast.Node
	Declarator *ast.VarDeclarator
	TypeOnly   bool
}

type exportEntry struct {
	// localName is set for exports that resolve within this module.
	localName string
	// from/original describe a re-export reference; they stay references
	// until resolution chases them to the defining module.
	from     string
	original string
}

func (e exportEntry) isReExport() bool {
	return e.from != ""
}

// importBinding maps a module-local name to the clause that introduced it.
type importBinding struct {
	Specifier string
	Imported  string
	Kind      ast.IMPORT_KIND
}

// Module is a parsed module plus its symbol tables.
type Module struct {
	URI    string
	Source string
	AST    *ast.Module
	File   *source.File

	Locals    map[string]*LocalBinding
	Imports   map[string]importBinding
	exports   map[string]exportEntry
	starFroms []string
}

// buildTables populates the export/import/local tables from module items.
func (m *Module) buildTables() {
	m.Locals = make(map[string]*LocalBinding)
	m.Imports = make(map[string]importBinding)
	m.exports = make(map[string]exportEntry)

	for _, item := range m.AST.Items {
		switch it := item.(type) {
		case *ast.ImportDecl:
			if it.TypeOnly {
				continue
			}
			for _, clause := range it.Clauses {
				m.Imports[clause.Local] = importBinding{
					Specifier: it.Specifier,
					Imported:  clause.Imported,
					Kind:      clause.Kind,
				}
			}

		case *ast.FuncDecl:
			if it.Name == nil {
				continue
			}
			m.Locals[it.Name.Name] = &LocalBinding{Name: it.Name.Name, Item: it}
			if it.Exported {
				m.exports[it.Name.Name] = exportEntry{localName: it.Name.Name}
			}

		case *ast.VarStmt:
			for _, d := range it.Decls {
				for _, name := range ast.PatternNames(d.Name) {
					m.Locals[name] = &LocalBinding{Name: name, Item: it, Declarator: d}
					if it.Exported {
						m.exports[name] = exportEntry{localName: name}
					}
				}
			}

		case *ast.ClassDecl:
			if it.Name == nil {
				continue
			}
			m.Locals[it.Name.Name] = &LocalBinding{Name: it.Name.Name, Item: it}
			if it.Exported {
				m.exports[it.Name.Name] = exportEntry{localName: it.Name.Name}
			}

		case *ast.TypeDecl:
			if it.Name == "" {
				continue
			}
			m.Locals[it.Name] = &LocalBinding{Name: it.Name, Item: it, TypeOnly: true}
			if it.Exported {
				m.exports[it.Name] = exportEntry{localName: it.Name}
			}

		case *ast.ExportNamedDecl:
			for _, spec := range it.Specifiers {
				if it.From != "" {
					m.exports[spec.Exported] = exportEntry{from: it.From, original: spec.Local}
				} else {
					m.exports[spec.Exported] = exportEntry{localName: spec.Local}
				}
			}

		case *ast.ExportStarDecl:
			m.starFroms = append(m.starFroms, it.From)

		case *ast.ExportDefaultDecl:
			m.Locals[DefaultExportName] = &LocalBinding{Name: DefaultExportName, Item: it}
			m.exports[DefaultExportName] = exportEntry{localName: DefaultExportName}
			if it.Decl != nil && it.Decl.Name != nil {
				m.Locals[it.Decl.Name.Name] = &LocalBinding{Name: it.Decl.Name.Name, Item: it.Decl}
			}
		}
	}
}

// ExportNames lists the module's directly declared export names
// (star re-exports not included).
func (m *Module) ExportNames() []string {
	names := make([]string, 0, len(m.exports))
	for name := range m.exports {
		names = append(names, name)
	}
	return names
}

// StarFroms exposes the star re-export specifiers.
func (m *Module) StarFroms() []string {
	return m.starFroms
}
