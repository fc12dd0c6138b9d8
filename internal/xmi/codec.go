// Package xmi translates a Model to and from the XMI-flavored XML document
// format described in §4.5/§6: one element per Object, containment expressed
// as nested elements, reference-valued links as whitespace-separated id
// lists resolved in a deferred second pass.
package xmi

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dnswlt/miniemf/internal/emf"
	"github.com/dnswlt/miniemf/internal/model"
)

// Flavor selects one of the two historically-coexisting header/id dialects
// (§6 Open Question). This port picks one per Codec instance and enforces it
// symmetrically in both directions, rather than mixing the two as the source
// did.
type Flavor int

const (
	// FlavorXMIID emits a namespaced "xmi:id" object attribute and a
	// model-level "UserId" header attribute.
	FlavorXMIID Flavor = iota
	// FlavorPlainID emits a plain "id" object attribute and a model-level
	// "ModelId" header attribute.
	FlavorPlainID
)

// Kind distinguishes a full model export from a single-object export (§6).
type Kind string

const (
	KindModel  Kind = "Model"
	KindExport Kind = "Export"
)

// Codec reads and writes Models in one XMI flavor for one schema namespace.
type Codec struct {
	Flavor    Flavor
	Namespace string // the "dataModel" prefix, e.g. "family"
}

// NewCodec creates a Codec bound to flavor and the given schema namespace
// prefix.
func NewCodec(flavor Flavor, namespace string) *Codec {
	return &Codec{Flavor: flavor, Namespace: namespace}
}

func (c *Codec) idAttrName() string {
	if c.Flavor == FlavorPlainID {
		return "id"
	}
	return "xmi:id"
}

// Write serializes m to path using the atomic temp-file-then-rename pattern
// (grounded on internal/store.WriteEntities' write discipline).
func (c *Codec) Write(m *model.Model, path, appName string, kind Kind) error {
	var buf bytes.Buffer
	if err := c.Encode(&buf, m, appName, kind); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "miniemf-*.tmp")
	if err != nil {
		return fmt.Errorf("xmi: could not create temporary file: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("xmi: could not write temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("xmi: could not close temporary file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// Export writes a single object and everything it transitively contains
// (not the rest of the model) to path, as a Kind=Export document.
func (c *Codec) Export(obj *emf.Object, path, appName string) error {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.EncodeToken(c.rootStart(appName, KindExport, "")); err != nil {
		return err
	}
	if err := c.encodeObject(enc, obj); err != nil {
		return err
	}
	if err := enc.EncodeToken(xml.EndElement{Name: c.rootStart(appName, KindExport, "").Name}); err != nil {
		return err
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "miniemf-*.tmp")
	if err != nil {
		return fmt.Errorf("xmi: could not create temporary file: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	tmp.Close()
	return os.Rename(tmp.Name(), path)
}

func (c *Codec) rootStart(appName string, kind Kind, modelID string) xml.StartElement {
	attrs := []xml.Attr{
		{Name: xml.Name{Local: "xmlns:" + c.Namespace}, Value: "http://miniemf/" + c.Namespace},
		{Name: xml.Name{Local: "xmlns:xmi"}, Value: "http://www.omg.org/XMI"},
		{Name: xml.Name{Local: "xmlns:xsi"}, Value: "http://www.w3.org/2001/XMLSchema-instance"},
		{Name: xml.Name{Local: "ToolName"}, Value: appName},
		{Name: xml.Name{Local: "ExportVersion"}, Value: "1.0"},
		{Name: xml.Name{Local: "Date"}, Value: time.Now().Format("2006/01/02 15:04:05")},
		{Name: xml.Name{Local: "ExportDescription"}, Value: string(kind)},
	}
	if modelID != "" {
		if c.Flavor == FlavorPlainID {
			attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "ModelId"}, Value: modelID})
		} else {
			attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "UserId"}, Value: modelID})
		}
	}
	return xml.StartElement{
		Name: xml.Name{Local: c.Namespace + ":" + string(kind)},
		Attr: attrs,
	}
}

// Encode writes m's full contents to w (§4.5 Encoding).
func (c *Codec) Encode(w io.Writer, m *model.Model, appName string, kind Kind) error {
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	root := c.rootStart(appName, kind, m.ID())
	if err := enc.EncodeToken(root); err != nil {
		return err
	}

	for _, rt := range m.GetRootTypes() {
		for _, dt := range rt.InstanciableDescendants() {
			objs := m.GetObjectsOrderedByName(dt, false, nil)
			for _, o := range objs {
				if o.State() == emf.RemovedFromModel {
					continue
				}
				if o.Container() != nil {
					continue // emitted nested under its containing object instead
				}
				if err := c.encodeObject(enc, o); err != nil {
					return err
				}
			}
		}
	}

	if err := enc.EncodeToken(xml.EndElement{Name: root.Name}); err != nil {
		return err
	}
	return enc.Flush()
}

func (c *Codec) encodeObject(enc *xml.Encoder, o *emf.Object) error {
	start := xml.StartElement{
		Name: xml.Name{Local: o.TypeName()},
		Attr: []xml.Attr{{Name: xml.Name{Local: c.idAttrName()}, Value: o.ID()}},
	}
	containerProp := o.ContainerProperty()
	for _, p := range o.AllProperties() {
		if lp, ok := p.(emf.LinkProperty); ok {
			if lp.IsContainment() || (containerProp != nil && lp == containerProp) {
				continue
			}
		}
		if !p.IsSerializable() {
			continue
		}
		if text, ok := p.SerializeAttr(o); ok {
			start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: p.Name()}, Value: text})
		}
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}

	for _, lp := range o.ContainmentProperties() {
		wrapper := xml.StartElement{Name: xml.Name{Local: lp.Name()}}
		if err := enc.EncodeToken(wrapper); err != nil {
			return err
		}
		for _, child := range linkedTargets(o, lp) {
			if err := c.encodeChild(enc, child, lp.TargetType()); err != nil {
				return err
			}
		}
		if err := enc.EncodeToken(xml.EndElement{Name: wrapper.Name}); err != nil {
			return err
		}
	}

	return enc.EncodeToken(xml.EndElement{Name: start.Name})
}

// encodeChild is encodeObject plus the xsi:type disambiguation (§4.5) needed
// when the contained object's declared type is a subtype of the containment
// property's declared target.
func (c *Codec) encodeChild(enc *xml.Encoder, child *emf.Object, declaredTarget *emf.MetaType) error {
	if child.Type() == declaredTarget {
		return c.encodeObject(enc, child)
	}
	// Emit with an xsi:type override by temporarily wrapping encodeObject's
	// start tag construction: easiest expressed by duplicating the header
	// logic here since encodeObject doesn't take an override parameter.
	start := xml.StartElement{
		Name: xml.Name{Local: child.TypeName()},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: c.idAttrName()}, Value: child.ID()},
			{Name: xml.Name{Local: "xsi:type"}, Value: c.Namespace + ":" + child.TypeName()},
		},
	}
	containerProp := child.ContainerProperty()
	for _, p := range child.AllProperties() {
		if lp, ok := p.(emf.LinkProperty); ok {
			if lp.IsContainment() || (containerProp != nil && lp == containerProp) {
				continue
			}
		}
		if !p.IsSerializable() {
			continue
		}
		if text, ok := p.SerializeAttr(child); ok {
			start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: p.Name()}, Value: text})
		}
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	for _, lp := range child.ContainmentProperties() {
		wrapper := xml.StartElement{Name: xml.Name{Local: lp.Name()}}
		if err := enc.EncodeToken(wrapper); err != nil {
			return err
		}
		for _, gc := range linkedTargets(child, lp) {
			if err := c.encodeChild(enc, gc, lp.TargetType()); err != nil {
				return err
			}
		}
		if err := enc.EncodeToken(xml.EndElement{Name: wrapper.Name}); err != nil {
			return err
		}
	}
	return enc.EncodeToken(xml.EndElement{Name: start.Name})
}

// linkedTargets returns the objects currently linked through lp on obj, in
// their container's natural order (insertion order for set/list, key order
// for map/multimap).
func linkedTargets(obj *emf.Object, lp emf.LinkProperty) []*emf.Object {
	switch lp.Kind() {
	case emf.KindLinkToOne:
		if t := obj.ReadOne(lp); t != nil {
			return []*emf.Object{t}
		}
		return nil
	case emf.KindLinkToManySet:
		return obj.ReadSet(lp).Items()
	case emf.KindLinkToManyList:
		return obj.ReadList(lp).Items()
	case emf.KindLinkToManyMap:
		return obj.ReadMap(lp).Values()
	case emf.KindLinkToManyMultiMap:
		return obj.ReadMultiMap(lp).Values()
	default:
		return nil
	}
}

// xmlNode is a minimal in-memory parse tree: just enough structure for the
// two-pass decode to walk (§4.5).
type xmlNode struct {
	Name     string
	Attrs    []xml.Attr
	Children []*xmlNode
	Offset   int64
}

func parseTree(dec *xml.Decoder) (*xmlNode, error) {
	var stack []*xmlNode
	var root *xmlNode
	for {
		off := dec.InputOffset()
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			// Keep each attribute's prefix in its name, so that lookups by
			// "xmi:id" or "xsi:type" match.
			attrs := make([]xml.Attr, len(t.Attr))
			for i, a := range t.Attr {
				if a.Name.Space != "" {
					a.Name = xml.Name{Local: a.Name.Space + ":" + a.Name.Local}
				}
				attrs[i] = a
			}
			n := &xmlNode{Name: t.Name.Local, Attrs: attrs, Offset: off}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			} else {
				root = n
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	return root, nil
}

func attrValue(n *xmlNode, name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func lineCol(data []byte, offset int64) (line, col int) {
	line, col = 1, 1
	for i := int64(0); i < offset && i < int64(len(data)); i++ {
		if data[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

type deferredLink struct {
	obj  *emf.Object
	prop emf.LinkProperty
	text string
}

// Read decodes an XMI document at path into a new, fully linked Model
// (§4.5 Decoding).
func (c *Codec) Read(types *emf.TypeRegistry, path string) (*model.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	root, err := parseTree(dec)
	if err != nil {
		return nil, err
	}

	modelID, ok := attrValue(root, "UserId")
	if !ok {
		modelID, _ = attrValue(root, "ModelId")
	}
	m := model.New(types, modelID)

	var all []*emf.Object
	var deferred []deferredLink

	var decodeElement func(n *xmlNode, declared *emf.MetaType) (*emf.Object, error)
	decodeElement = func(n *xmlNode, declared *emf.MetaType) (*emf.Object, error) {
		typeName := n.Name
		unknownErr := ErrUnknownType
		if xt, ok := attrValue(n, "xsi:type"); ok {
			unknownErr = ErrMismatchedType
			if idx := strings.IndexByte(xt, ':'); idx >= 0 {
				typeName = xt[idx+1:]
			} else {
				typeName = xt
			}
		}
		mt, ok := types.ByName(typeName)
		if !ok {
			line, col := lineCol(data, n.Offset)
			return nil, &ParseError{Line: line, Col: col, Err: fmt.Errorf("%w: %q", unknownErr, typeName)}
		}

		obj, err := mt.NewBareInstance()
		if err != nil {
			line, col := lineCol(data, n.Offset)
			return nil, &ParseError{Line: line, Col: col, Err: err}
		}
		if id, ok := attrValue(n, c.idAttrName()); ok {
			obj.SetID(id)
		} else if id, ok := attrValue(n, "id"); ok {
			obj.SetID(id)
		} else if id, ok := attrValue(n, "xmi:id"); ok {
			obj.SetID(id)
		}
		all = append(all, obj)

		byName := map[string]emf.Property{}
		for _, p := range mt.AllProperties() {
			byName[p.Name()] = p
		}
		containerProp := mt.ContainerProperty()
		for _, a := range n.Attrs {
			switch a.Name.Local {
			case "id", "xmi:id", "xsi:type":
				continue
			}
			p, ok := byName[a.Name.Local]
			if !ok {
				line, col := lineCol(data, n.Offset)
				return nil, &ParseError{Line: line, Col: col, Err: fmt.Errorf("%w: %q on %q", ErrUnknownProperty, a.Name.Local, typeName)}
			}
			if lp, ok := p.(emf.LinkProperty); ok {
				if lp.IsContainment() || (containerProp != nil && lp == containerProp) {
					continue
				}
				deferred = append(deferred, deferredLink{obj: obj, prop: lp, text: a.Value})
				continue
			}
			if err := p.DeserializeAttr(obj, a.Value); err != nil {
				line, col := lineCol(data, n.Offset)
				return nil, &ParseError{Line: line, Col: col, Err: err}
			}
		}

		for _, child := range n.Children {
			p, ok := byName[child.Name]
			if !ok {
				line, col := lineCol(data, child.Offset)
				return nil, &ParseError{Line: line, Col: col, Err: fmt.Errorf("%w: %q on %q", ErrUnknownProperty, child.Name, typeName)}
			}
			lp, ok := p.(emf.LinkProperty)
			if !ok || !lp.IsContainment() {
				line, col := lineCol(data, child.Offset)
				return nil, &ParseError{Line: line, Col: col, Err: fmt.Errorf("%w: %q is not a containment property of %q", ErrUnknownProperty, child.Name, typeName)}
			}
			var kids []*emf.Object
			for _, gc := range child.Children {
				kidObj, err := decodeElement(gc, lp.TargetType())
				if err != nil {
					return nil, err
				}
				kids = append(kids, kidObj)
			}
			if err := lp.UpdateValue(obj, containerFor(lp.Kind(), kids)); err != nil {
				return nil, err
			}
		}
		return obj, nil
	}

	for _, child := range root.Children {
		if _, err := decodeElement(child, nil); err != nil {
			return nil, err
		}
	}

	sort.Slice(all, func(i, j int) bool { return all[i].ID() < all[j].ID() })
	for _, o := range all {
		m.Add(o)
	}

	// Deferred links resolve against m.GetByID, so every object must already
	// be added to the model before this loop runs.
	for _, d := range deferred {
		ids := strings.Fields(d.text)
		var targets []*emf.Object
		for _, id := range ids {
			for _, tt := range append([]*emf.MetaType{d.prop.TargetType()}, d.prop.TargetType().InstanciableDescendants()...) {
				if o, ok := m.GetByID(tt, id); ok {
					targets = append(targets, o)
					break
				}
			}
		}
		if err := d.prop.UpdateValue(d.obj, containerFor(d.prop.Kind(), targets)); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func containerFor(kind emf.PropertyKind, objs []*emf.Object) any {
	switch kind {
	case emf.KindLinkToOne:
		if len(objs) == 0 {
			return nil
		}
		return objs[0]
	case emf.KindLinkToManyList:
		return emf.NewLinkList(objs...)
	default:
		return emf.NewLinkSet(objs...)
	}
}
