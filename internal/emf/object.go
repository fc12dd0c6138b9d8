package emf

import "fmt"

// State is the lifecycle state of an Object (§3).
type State int

const (
	// Created is a freshly allocated Object, not yet placed in any Model.
	Created State = iota
	// InModel is an Object present in exactly one owning Model and visible
	// to the opposite sides of its link properties.
	InModel
	// RemovedFromModel is an Object that was in a Model and has been
	// removed; its opposite sides have been un-linked.
	RemovedFromModel
	// Clone is a transient shallow-copy stand-in sharing identity with an
	// original, used only during the two-phase Model clone algorithm.
	Clone
)

func (s State) String() string {
	switch s {
	case Created:
		return "Created"
	case InModel:
		return "InModel"
	case RemovedFromModel:
		return "RemovedFromModel"
	case Clone:
		return "Clone"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// slot is the storage cell for one Property's value on one Object. Exactly
// one field is meaningful, selected by the owning Property's Kind.
type slot struct {
	attr Value
	one  *Object
	set  *LinkSet
	list *LinkList
	m    *LinkMap
	mm   *LinkMultiMap
}

// Object is a runtime instance of a MetaType: identity, lifecycle state, and
// a slot table with exactly one entry per Property of its declared type,
// including inherited ones (§3 invariant i, §4.4).
type Object struct {
	id    string
	typ   *MetaType
	state State
	slots map[Property]*slot
}

func (o *Object) ID() string       { return o.id }
func (o *Object) SetID(id string)  { o.id = id }
func (o *Object) State() State     { return o.state }
func (o *Object) Type() *MetaType  { return o.typ }
func (o *Object) TypeID() int      { return o.typ.id }
func (o *Object) TypeName() string { return o.typ.name }
func (o *Object) TypeLabel() string { return o.typ.label }

// SetState transitions the object's lifecycle state directly. Used by Model
// during add/remove/clone; application code should not normally need it.
func (o *Object) SetState(s State) { o.state = s }

func (o *Object) initSlot(p Property) {
	s := &slot{}
	switch p.Kind() {
	case KindAttribute, KindEnumeration:
		s.attr = p.InitialValue()
	case KindLinkToOne:
	case KindLinkToManySet:
		s.set = NewLinkSet()
	case KindLinkToManyList:
		s.list = NewLinkList()
	case KindLinkToManyMap:
		s.m = NewLinkMap()
	case KindLinkToManyMultiMap:
		s.mm = NewLinkMultiMap()
	}
	o.slots[p] = s
}

func (o *Object) slotFor(p Property) *slot {
	s, ok := o.slots[p]
	if !ok {
		panic(fmt.Sprintf("emf: property %q does not belong to object of type %q", p.Name(), o.typ.name))
	}
	return s
}

// ReadValue returns the current value of an attribute or enumeration
// property.
func (o *Object) ReadValue(p Property) Value {
	return o.slotFor(p).attr
}

// ReadOne returns the current value of a link-to-one property.
func (o *Object) ReadOne(p LinkProperty) *Object {
	return o.slotFor(p).one
}

// ReadSet returns the current value of a link-to-many-set property.
func (o *Object) ReadSet(p LinkProperty) *LinkSet {
	return o.slotFor(p).set
}

// ReadList returns the current value of a link-to-many-list property.
func (o *Object) ReadList(p LinkProperty) *LinkList {
	return o.slotFor(p).list
}

// ReadMap returns the current value of a link-to-many-map property.
func (o *Object) ReadMap(p LinkProperty) *LinkMap {
	return o.slotFor(p).m
}

// ReadMultiMap returns the current value of a link-to-many-multimap
// property.
func (o *Object) ReadMultiMap(p LinkProperty) *LinkMultiMap {
	return o.slotFor(p).mm
}

// writeRaw bypasses the bidirectional-link protocol entirely. It exists only
// for UpdateValue's own implementations and for the XMI codec (§4.4).
func (o *Object) writeRaw(p Property, set func(s *slot)) {
	set(o.slotFor(p))
}

// Name returns the object's current "name" attribute value.
func (o *Object) Name() string {
	return o.ReadValue(o.typ.registry.nameProperty).String()
}

// SetName updates the object's "name" attribute directly (raw write -- name
// has no reverse side to maintain).
func (o *Object) SetName(name string) {
	o.writeRaw(o.typ.registry.nameProperty, func(s *slot) { s.attr = StringValue(name) })
}

// AllProperties returns every property of the object's declared type,
// including inherited ones.
func (o *Object) AllProperties() []Property {
	return o.typ.AllProperties()
}

// LinkProperties returns the subset of AllProperties that are link
// properties.
func (o *Object) LinkProperties() []LinkProperty {
	var out []LinkProperty
	for _, p := range o.typ.AllProperties() {
		if lp, ok := p.(LinkProperty); ok {
			out = append(out, lp)
		}
	}
	return out
}

// ContainmentProperties returns the link properties on this type marked as
// containment.
func (o *Object) ContainmentProperties() []LinkProperty {
	var out []LinkProperty
	for _, lp := range o.LinkProperties() {
		if lp.IsContainment() {
			out = append(out, lp)
		}
	}
	return out
}

// NonContainmentProperties returns the link properties on this type that are
// not containment and not the container side.
func (o *Object) NonContainmentProperties() []LinkProperty {
	var out []LinkProperty
	container := o.typ.ContainerProperty()
	for _, lp := range o.LinkProperties() {
		if lp.IsContainment() || lp == container {
			continue
		}
		out = append(out, lp)
	}
	return out
}

// ContainerProperty returns the container-side property of this object's
// type, or nil if the type has none.
func (o *Object) ContainerProperty() LinkProperty {
	return o.typ.ContainerProperty()
}

// Container returns the single owning Object reached via the container
// property, or nil.
func (o *Object) Container() *Object {
	cp := o.ContainerProperty()
	if cp == nil {
		return nil
	}
	return o.ReadOne(cp)
}

// MapKey computes the key under which o should be stored in a map/multimap
// link property p when o is the element being inserted, per §4.2.4: the
// attribute declared via PropertyRegistry.SetKey, defaulting to o's own
// "name" attribute.
func (o *Object) MapKey(p LinkProperty) Value {
	var keyAttr Property
	switch t := p.(type) {
	case *LinkToManyMapProperty:
		keyAttr = t.keyAttr
	case *LinkToManyMultiMapProperty:
		keyAttr = t.keyAttr
	}
	if keyAttr != nil {
		if reader, ok := keyAttr.(valueReader); ok {
			return reader.readValue(o)
		}
	}
	return StringValue(o.Name())
}

// HideFromLinked implements §4.4: for every non-containment link property on
// this object, remove the reverse-side link to self from every currently
// linked target. The object's own slots are left untouched, which is what
// makes this reversible by MakeVisibleToLinked.
func (o *Object) HideFromLinked() {
	for _, lp := range o.LinkProperties() {
		rev := lp.Reverse()
		if lp.IsContainment() || rev == nil {
			continue
		}
		prim, ok := rev.(linkPrimitive)
		if !ok {
			continue
		}
		for _, target := range linkedValuesOf(lp, o) {
			prim.primitiveRemove(target, o)
		}
	}
}

// MakeVisibleToLinked re-applies the links HideFromLinked removed.
func (o *Object) MakeVisibleToLinked() {
	for _, lp := range o.LinkProperties() {
		rev := lp.Reverse()
		if lp.IsContainment() || rev == nil {
			continue
		}
		prim, ok := rev.(linkPrimitive)
		if !ok {
			continue
		}
		for _, target := range linkedValuesOf(lp, o) {
			prim.primitiveAdd(target, o)
		}
	}
}

// linkedValuesOf returns the objects currently referenced through link
// property lp on owner.
func linkedValuesOf(lp LinkProperty, owner *Object) []*Object {
	prim, ok := lp.(linkPrimitive)
	if !ok {
		return nil
	}
	return prim.linkedValues(owner)
}

// ExportReachable walks every link property's values (restricted to
// containment if onlyContainment) transitively from o, inserting each
// reached object into visited at most once, stopping at objects whose type
// is in exclude. visit is called once per newly reached object (§4.4).
func (o *Object) ExportReachable(onlyContainment bool, exclude map[*MetaType]bool, visited map[*Object]bool, visit func(*Object)) {
	if visited[o] {
		return
	}
	visited[o] = true
	if exclude[o.typ] {
		return
	}
	visit(o)
	props := o.LinkProperties()
	for _, lp := range props {
		if onlyContainment && !lp.IsContainment() {
			continue
		}
		for _, target := range linkedValuesOf(lp, o) {
			target.ExportReachable(onlyContainment, exclude, visited, visit)
		}
	}
}

// ShallowCopy produces a Clone-state stand-in sharing o's id and type, with
// no slots populated (phase A of Model.clone, §4.6).
func (o *Object) ShallowCopy() *Object {
	c := &Object{
		id:    o.id,
		typ:   o.typ,
		state: Clone,
		slots: make(map[Property]*slot, len(o.typ.AllProperties())),
	}
	for _, p := range o.typ.AllProperties() {
		c.initSlot(p)
	}
	return c
}

// Validate checks mandatory-link invariants for this object and appends
// human-readable messages to errs (§4.6 validateLinkProperties).
func (o *Object) Validate(errs *[]string) {
	for _, lp := range o.LinkProperties() {
		if !lp.IsMandatory() {
			continue
		}
		empty := false
		switch lp.Kind() {
		case KindLinkToOne:
			empty = o.ReadOne(lp) == nil
		case KindLinkToManySet:
			empty = len(o.ReadSet(lp).Items()) == 0
		case KindLinkToManyList:
			empty = len(o.ReadList(lp).Items()) == 0
		case KindLinkToManyMap:
			empty = len(o.ReadMap(lp).Entries()) == 0
		case KindLinkToManyMultiMap:
			empty = len(o.ReadMultiMap(lp).Entries()) == 0
		}
		if empty {
			*errs = append(*errs, fmt.Sprintf("%s %q: mandatory link %q is empty", o.typ.name, o.id, lp.Name()))
		}
	}
}
