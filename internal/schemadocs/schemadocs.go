// Package schemadocs renders a TypeRegistry as a set of Markdown (and, where
// requested, rendered HTML) reference pages: one index listing every
// MetaType, one page per MetaType listing its properties. It plays the same
// role here that internal/docs played for the teacher's catalog schema,
// generalized from a fixed Domain/System/Component/API/Resource hierarchy to
// any declared TypeRegistry.
package schemadocs

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/template"

	"github.com/yuin/goldmark"

	"github.com/dnswlt/miniemf/internal/emf"
)

// Generator builds Markdown/HTML reference pages for one TypeRegistry.
type Generator struct {
	types *emf.TypeRegistry
}

func NewGenerator(types *emf.TypeRegistry) *Generator {
	return &Generator{types: types}
}

// Generate writes index.md plus one "<TypeName>.md" page per type into
// outputDir. When renderHTML is set, it additionally writes an
// "<TypeName>.html" fragment produced by running the Markdown through
// goldmark, mirroring how the teacher's web UI renders annotation text
// (internal/web's markdown helper).
func (g *Generator) Generate(outputDir string, renderHTML bool) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("schemadocs: could not create %s: %w", outputDir, err)
	}

	types := append([]*emf.MetaType{}, g.types.Types()...)
	sort.Slice(types, func(i, j int) bool { return types[i].Name() < types[j].Name() })

	if err := g.writeIndex(outputDir, types); err != nil {
		return err
	}
	for _, t := range types {
		if err := g.writeTypePage(outputDir, t, renderHTML); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) writeIndex(dir string, types []*emf.MetaType) error {
	f, err := os.Create(filepath.Join(dir, "index.md"))
	if err != nil {
		return fmt.Errorf("schemadocs: could not create index.md: %w", err)
	}
	defer f.Close()

	data := struct {
		Types []*emf.MetaType
	}{Types: types}
	return indexTemplate.Execute(f, data)
}

type propertyRow struct {
	Name        string
	Kind        string
	Target      string
	Containment bool
	Mandatory   bool
}

func (g *Generator) writeTypePage(dir string, t *emf.MetaType, renderHTML bool) error {
	var rows []propertyRow
	for _, p := range t.AllProperties() {
		row := propertyRow{Name: p.Name(), Kind: p.Kind().String()}
		if lp, ok := p.(emf.LinkProperty); ok {
			row.Target = lp.TargetType().Name()
			row.Containment = lp.IsContainment()
			row.Mandatory = lp.IsMandatory()
		}
		rows = append(rows, row)
	}

	var super []string
	for _, s := range t.SuperTypes() {
		super = append(super, s.Name())
	}

	data := struct {
		Type          *emf.MetaType
		SuperTypes    []string
		Properties    []propertyRow
		Instanciable  bool
	}{
		Type:         t,
		SuperTypes:   super,
		Properties:   rows,
		Instanciable: t.IsInstanciable(),
	}

	var buf bytes.Buffer
	if err := typeTemplate.Execute(&buf, data); err != nil {
		return fmt.Errorf("schemadocs: render %s: %w", t.Name(), err)
	}

	mdPath := filepath.Join(dir, t.Name()+".md")
	if err := os.WriteFile(mdPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("schemadocs: write %s: %w", mdPath, err)
	}

	if !renderHTML {
		return nil
	}
	var html bytes.Buffer
	if err := goldmark.Convert(buf.Bytes(), &html); err != nil {
		return fmt.Errorf("schemadocs: convert %s to HTML: %w", t.Name(), err)
	}
	htmlPath := filepath.Join(dir, t.Name()+".html")
	return os.WriteFile(htmlPath, html.Bytes(), 0644)
}

var indexTemplate = template.Must(template.New("index").Parse(`# Schema reference

{{ range .Types -}}
* [{{ .Name }}]({{ .Name }}.md) -- {{ .Label }}
{{ end }}
`))

var typeTemplate = template.Must(template.New("type").Parse(`# {{ .Type.Name }}

{{ .Type.Label }}

**Instanciable**: {{ .Instanciable }}
{{ if .SuperTypes }}**Supertypes**: {{ range $i, $s := .SuperTypes }}{{ if $i }}, {{ end }}{{ $s }}{{ end }}
{{ end }}
## Properties

| Name | Kind | Target | Containment | Mandatory |
|---|---|---|---|---|
{{ range .Properties -}}
| {{ .Name }} | {{ .Kind }} | {{ .Target }} | {{ .Containment }} | {{ .Mandatory }} |
{{ end }}
`))
