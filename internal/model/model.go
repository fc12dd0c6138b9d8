// Package model implements the owning (or borrowing) container of Objects
// described in §4.6: indexed by MetaType and id, with lookup, sorted views,
// cloning, subset projection, validation and removal with reverse-side
// cleanup. It is the runtime-level analogue of the teacher's
// internal/repo.Repository, generalized from a fixed catalog schema to any
// emf.TypeRegistry.
package model

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dnswlt/miniemf/internal/emf"
)

// BusinessRuleFunc is an application-supplied validation hook (§4.6
// validateBusinessRules): the core records but never interprets the
// messages it appends.
type BusinessRuleFunc func(obj *emf.Object, errs *[]string)

// Model owns (or, for a projection, borrows) a set of Objects indexed by
// MetaType and id (§4.6).
type Model struct {
	id      string
	types   *emf.TypeRegistry
	owning  bool
	objects map[*emf.MetaType]map[string]*emf.Object
}

// New creates an empty, owning Model identified by id (used to build
// default object ids, "<typeId>_<modelId>_<seq>").
func New(types *emf.TypeRegistry, id string) *Model {
	return &Model{
		id:      id,
		types:   types,
		owning:  true,
		objects: make(map[*emf.MetaType]map[string]*emf.Object),
	}
}

func newNonOwning(types *emf.TypeRegistry, id string) *Model {
	m := New(types, id)
	m.owning = false
	return m
}

func (m *Model) ID() string              { return m.id }
func (m *Model) Types() *emf.TypeRegistry { return m.types }
func (m *Model) IsOwning() bool           { return m.owning }

func (m *Model) bucket(t *emf.MetaType) map[string]*emf.Object {
	b, ok := m.objects[t]
	if !ok {
		b = make(map[string]*emf.Object)
		m.objects[t] = b
	}
	return b
}

// NewInstance creates a new Object of type t owned by this Model and adds
// it, mirroring the combination of MetaType.createInstance + Model.add that
// application code uses most often.
func (m *Model) NewInstance(t *emf.MetaType, overrides map[emf.Property]any) (*emf.Object, error) {
	obj, err := t.CreateInstance(m.id, overrides)
	if err != nil {
		return nil, err
	}
	m.AddWithState(obj, true)
	return obj, nil
}

// Add places obj in the index and transitions it to InModel, re-materializing
// opposite links if it had been RemovedFromModel (§4.6).
func (m *Model) Add(obj *emf.Object) {
	m.AddWithState(obj, true)
}

// AddWithState is Add, with control over whether the object's lifecycle
// state is updated -- used internally when re-indexing an already-InModel
// object (e.g. during shallow-subset projection) where state must not
// change.
func (m *Model) AddWithState(obj *emf.Object, updateState bool) {
	wasRemoved := obj.State() == emf.RemovedFromModel
	m.bucket(obj.Type())[obj.ID()] = obj
	if updateState {
		obj.SetState(emf.InModel)
	}
	if wasRemoved {
		obj.MakeVisibleToLinked()
	}
}

// Remove removes obj from the index and transitions its state; if hide is
// true (the default the public API should use) it also calls
// obj.HideFromLinked so reverse-side links are cleaned up (§4.3, §4.6). The
// object itself is not destroyed. A no-op if obj is not in the Model.
func (m *Model) Remove(obj *emf.Object, hide bool) {
	b, ok := m.objects[obj.Type()]
	if !ok {
		return
	}
	if _, present := b[obj.ID()]; !present {
		return
	}
	delete(b, obj.ID())
	obj.SetState(emf.RemovedFromModel)
	if hide {
		obj.HideFromLinked()
	}
}

// Contains reports membership by id within obj's own type bucket.
func (m *Model) Contains(obj *emf.Object) bool {
	b, ok := m.objects[obj.Type()]
	if !ok {
		return false
	}
	_, present := b[obj.ID()]
	return present
}

// GetByID looks up an Object of type t (or one of its instanciable
// descendants) by id.
func (m *Model) GetByID(t *emf.MetaType, id string) (*emf.Object, bool) {
	for _, dt := range t.InstanciableDescendants() {
		if b, ok := m.objects[dt]; ok {
			if o, ok := b[id]; ok {
				return o, true
			}
		}
	}
	return nil, false
}

// GetByName linearly scans type t's (and its descendants') objects for the
// first one whose Name matches; ties break in undefined order (§4.6).
func (m *Model) GetByName(t *emf.MetaType, name string) (*emf.Object, bool) {
	for _, dt := range t.InstanciableDescendants() {
		for _, o := range m.objects[dt] {
			if o.Name() == name {
				return o, true
			}
		}
	}
	return nil, false
}

// GetObjects returns the Objects of type t; if useDerived, the union over
// t's instanciable descendants; objects present in filter are excluded
// (§4.6).
func (m *Model) GetObjects(t *emf.MetaType, useDerived bool, filter map[*emf.Object]bool) []*emf.Object {
	types := []*emf.MetaType{t}
	if useDerived {
		types = t.InstanciableDescendants()
	}
	var out []*emf.Object
	for _, dt := range types {
		for _, o := range m.objects[dt] {
			if filter != nil && filter[o] {
				continue
			}
			out = append(out, o)
		}
	}
	return out
}

// GetObjectsOrderedByName is GetObjects, sorted by lowercase name with id as
// tiebreak (§4.6).
func (m *Model) GetObjectsOrderedByName(t *emf.MetaType, useDerived bool, filter map[*emf.Object]bool) []*emf.Object {
	out := m.GetObjects(t, useDerived, filter)
	sort.Slice(out, func(i, j int) bool {
		ni, nj := strings.ToLower(out[i].Name()), strings.ToLower(out[j].Name())
		if ni != nj {
			return ni < nj
		}
		return out[i].ID() < out[j].ID()
	})
	return out
}

func (m *Model) GetRootTypes() []*emf.MetaType                   { return m.types.RootTypes() }
func (m *Model) GetTypeByName(name string) (*emf.MetaType, bool) { return m.types.ByName(name) }
func (m *Model) GetTypes() []*emf.MetaType                       { return m.types.Types() }

func (m *Model) allObjects(excludedTypes map[*emf.MetaType]bool) []*emf.Object {
	var out []*emf.Object
	for t, b := range m.objects {
		if excludedTypes != nil && excludedTypes[t] {
			continue
		}
		for _, o := range b {
			out = append(out, o)
		}
	}
	return out
}

// Validate runs mandatory-link validation (§4.6 validateLinkProperties)
// over every object not of an excluded type, appending messages to errs.
func (m *Model) Validate(errs *[]string, excludedTypes map[*emf.MetaType]bool) {
	for _, o := range m.allObjects(excludedTypes) {
		o.Validate(errs)
	}
}

// ValidateModel is Validate with no excluded types.
func (m *Model) ValidateModel(errs *[]string) {
	m.Validate(errs, nil)
}

// ValidateBusinessRules runs an application-supplied rule over every object
// not of an excluded type (§4.6).
func (m *Model) ValidateBusinessRules(errs *[]string, excludedTypes map[*emf.MetaType]bool, rule BusinessRuleFunc) {
	if rule == nil {
		return
	}
	for _, o := range m.allObjects(excludedTypes) {
		rule(o, errs)
	}
}

// ShallowCopySubset produces a non-owning Model sharing Object identities
// with m, reached from every seed via ExportReachable (§4.6).
func (m *Model) ShallowCopySubset(seed []*emf.Object, excludeRoots map[*emf.MetaType]bool, onlyContainment bool) *Model {
	sub := newNonOwning(m.types, m.id)
	visited := map[*emf.Object]bool{}
	for _, s := range seed {
		s.ExportReachable(onlyContainment, excludeRoots, visited, func(o *emf.Object) {
			sub.AddWithState(o, false)
		})
	}
	return sub
}

// CloneSubset first projects a shallow, non-owning subset reachable from
// seed, then clones it into a fully owned Model (§4.6).
func (m *Model) CloneSubset(seed []*emf.Object) *Model {
	sub := m.ShallowCopySubset(seed, nil, false)
	return sub.Clone()
}

// Clone performs the two-phase copy of §4.6: phase A creates a ShallowCopy
// of every Object under the same MetaType bucket; phase B copies each
// Property's value into its clone, translating link references through the
// id lookup built in phase A. Objects filtered out of a subset are simply
// absent from that lookup, so copied link collections omit them.
func (m *Model) Clone() *Model {
	dst := New(m.types, m.id)
	byID := make(map[string]*emf.Object)

	for t, b := range m.objects {
		for id, o := range b {
			c := o.ShallowCopy()
			dst.bucket(t)[id] = c
			byID[id] = c
		}
	}

	// Attributes go first, so that map keys computed while links are copied
	// below read the clones' copied key attributes, not their defaults.
	for _, b := range m.objects {
		for _, o := range b {
			c := byID[o.ID()]
			for _, p := range o.AllProperties() {
				if !p.IsLink() {
					_ = p.UpdateValue(c, o.ReadValue(p))
				}
			}
		}
	}

	for t, b := range m.objects {
		_ = t
		for _, o := range b {
			c := byID[o.ID()]
			copyProperties(o, c, byID)
			c.SetState(emf.InModel)
		}
	}
	return dst
}

func copyProperties(src, dst *emf.Object, byID map[string]*emf.Object) {
	for _, p := range src.AllProperties() {
		if !p.IsLink() {
			_ = p.UpdateValue(dst, src.ReadValue(p))
			continue
		}
		lp := p.(emf.LinkProperty)
		switch lp.Kind() {
		case emf.KindLinkToOne:
			orig := src.ReadOne(lp)
			if orig == nil {
				continue
			}
			if t, ok := byID[orig.ID()]; ok {
				_ = lp.UpdateValue(dst, t)
			}
		case emf.KindLinkToManySet:
			_ = lp.UpdateValue(dst, emf.NewLinkSet(translate(src.ReadSet(lp).Items(), byID)...))
		case emf.KindLinkToManyList:
			_ = lp.UpdateValue(dst, emf.NewLinkList(translate(src.ReadList(lp).Items(), byID)...))
		case emf.KindLinkToManyMap:
			_ = lp.UpdateValue(dst, emf.NewLinkSet(translate(src.ReadMap(lp).Values(), byID)...))
		case emf.KindLinkToManyMultiMap:
			_ = lp.UpdateValue(dst, emf.NewLinkSet(translate(src.ReadMultiMap(lp).Values(), byID)...))
		}
	}
}

func translate(objs []*emf.Object, byID map[string]*emf.Object) []*emf.Object {
	var out []*emf.Object
	for _, o := range objs {
		if t, ok := byID[o.ID()]; ok {
			out = append(out, t)
		}
	}
	return out
}

// GetCopyName computes a unique name of the form "<name>_copy" or
// "<name>_copy_<n>" within obj's type bucket (§4.6).
func (m *Model) GetCopyName(obj *emf.Object) string {
	taken := map[string]bool{}
	for _, o := range m.objects[obj.Type()] {
		taken[o.Name()] = true
	}
	base := obj.Name() + "_copy"
	if !taken[base] {
		return base
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d", base, n)
		if !taken[candidate] {
			return candidate
		}
	}
}

// RebuildMap walks every instance of mapProp's owner type and reinserts each
// currently linked target using the property's current key attribute,
// repairing map-key drift (§4.6, §8 Scenario F).
func (m *Model) RebuildMap(mapProp emf.LinkProperty) {
	owner := mapProp.Owner()
	for _, o := range m.GetObjects(owner, true, nil) {
		emf.RebuildMap(o, mapProp)
	}
}

// ClearModel discards the index; if deleteContents is set and the Model owns
// its objects, their state is transitioned to RemovedFromModel first.
func (m *Model) ClearModel(deleteContents bool) {
	if deleteContents && m.owning {
		for _, b := range m.objects {
			for _, o := range b {
				o.SetState(emf.RemovedFromModel)
			}
		}
	}
	m.objects = make(map[*emf.MetaType]map[string]*emf.Object)
}

// Equal reports structural equivalence: the same set of ids present per
// MetaType; slot values are not compared (§4.6 operator==).
func (m *Model) Equal(other *Model) bool {
	if m.countTypes() != other.countTypes() {
		return false
	}
	for t, b := range m.objects {
		ob, ok := other.objects[t]
		if !ok {
			if len(b) == 0 {
				continue
			}
			return false
		}
		if len(b) != len(ob) {
			return false
		}
		for id := range b {
			if _, ok := ob[id]; !ok {
				return false
			}
		}
	}
	return true
}

func (m *Model) countTypes() int {
	n := 0
	for _, b := range m.objects {
		if len(b) > 0 {
			n++
		}
	}
	return n
}

// DebugDump writes a plain per-type listing of every object in the Model, in
// the spirit of the original's dumpModelObjectTypeMap debug helper.
func (m *Model) DebugDump(w io.Writer) {
	for t, b := range m.objects {
		fmt.Fprintf(w, "%s (%d):\n", t.Name(), len(b))
		for id, o := range b {
			fmt.Fprintf(w, "  %s %q [%s]\n", id, o.Name(), o.State())
		}
	}
}
