package emf

// LinkToManySetProperty is an unordered collection of distinct Object
// references (§3, §4.2.4).
type LinkToManySetProperty struct {
	baseProperty
	targetType  *MetaType
	reverse     LinkProperty
	mandatory   bool
	containment bool
}

func NewLinkToManySetProperty(owner, targetType *MetaType, name, label string, mandatory, containment, serializable bool) *LinkToManySetProperty {
	p := &LinkToManySetProperty{
		baseProperty: baseProperty{owner: owner, name: name, label: label, serializable: serializable},
		targetType:   targetType,
		mandatory:    mandatory,
		containment:  containment,
	}
	owner.ownProperties = append(owner.ownProperties, p)
	return p
}

func (p *LinkToManySetProperty) Kind() PropertyKind    { return KindLinkToManySet }
func (p *LinkToManySetProperty) IsLink() bool          { return true }
func (p *LinkToManySetProperty) InitialValue() Value   { return Value{} }
func (p *LinkToManySetProperty) TargetType() *MetaType { return p.targetType }
func (p *LinkToManySetProperty) Reverse() LinkProperty { return p.reverse }
func (p *LinkToManySetProperty) IsContainment() bool   { return p.containment }
func (p *LinkToManySetProperty) IsMandatory() bool     { return p.mandatory }

func (p *LinkToManySetProperty) UpdateValue(obj *Object, v any) error {
	var newItems []*Object
	switch val := v.(type) {
	case nil:
	case *LinkSet:
		if val != nil {
			newItems = val.Items()
		}
	default:
		return ErrTypeMismatch
	}
	old := obj.slotFor(p).set
	added, removed := diffIdentitySets(old.Items(), newItems)
	applyReverseDiff(p.reverse, obj, added, removed)
	obj.writeRaw(p, func(s *slot) { s.set = NewLinkSet(newItems...) })
	return nil
}

// AddLink adds a single member, maintaining the reverse side (§4.3).
func (p *LinkToManySetProperty) AddLink(obj, target *Object) {
	s := obj.slotFor(p)
	if s.set.contains(target) {
		return
	}
	s.set.add(target)
	if prim, ok := p.reverse.(linkPrimitive); p.reverse != nil && ok {
		prim.primitiveAdd(target, obj)
	}
}

// RemoveLink removes a single member, maintaining the reverse side (§4.3).
func (p *LinkToManySetProperty) RemoveLink(obj, target *Object) {
	s := obj.slotFor(p)
	if !s.set.contains(target) {
		return
	}
	s.set.remove(target)
	if prim, ok := p.reverse.(linkPrimitive); p.reverse != nil && ok {
		prim.primitiveRemove(target, obj)
	}
}

func (p *LinkToManySetProperty) primitiveAdd(owner, value *Object) {
	owner.slotFor(p).set.add(value)
}

func (p *LinkToManySetProperty) primitiveRemove(owner, value *Object) {
	owner.slotFor(p).set.remove(value)
}

func (p *LinkToManySetProperty) linkedValues(owner *Object) []*Object {
	return owner.slotFor(p).set.Items()
}

func (p *LinkToManySetProperty) SerializeAttr(obj *Object) (string, bool) {
	return serializeManyRefs(p.containment, obj.slotFor(p).set.Items())
}

func (p *LinkToManySetProperty) DeserializeAttr(obj *Object, text string) error { return nil }

// LinkToManyListProperty is an ordered sequence of Object references in
// which the same Object may appear more than once (§3, §4.2.4).
type LinkToManyListProperty struct {
	baseProperty
	targetType  *MetaType
	reverse     LinkProperty
	mandatory   bool
	containment bool
}

func NewLinkToManyListProperty(owner, targetType *MetaType, name, label string, mandatory, containment, serializable bool) *LinkToManyListProperty {
	p := &LinkToManyListProperty{
		baseProperty: baseProperty{owner: owner, name: name, label: label, serializable: serializable},
		targetType:   targetType,
		mandatory:    mandatory,
		containment:  containment,
	}
	owner.ownProperties = append(owner.ownProperties, p)
	return p
}

func (p *LinkToManyListProperty) Kind() PropertyKind    { return KindLinkToManyList }
func (p *LinkToManyListProperty) IsLink() bool          { return true }
func (p *LinkToManyListProperty) InitialValue() Value   { return Value{} }
func (p *LinkToManyListProperty) TargetType() *MetaType { return p.targetType }
func (p *LinkToManyListProperty) Reverse() LinkProperty { return p.reverse }
func (p *LinkToManyListProperty) IsContainment() bool   { return p.containment }
func (p *LinkToManyListProperty) IsMandatory() bool     { return p.mandatory }

func (p *LinkToManyListProperty) UpdateValue(obj *Object, v any) error {
	var newItems []*Object
	switch val := v.(type) {
	case nil:
	case *LinkList:
		if val != nil {
			newItems = val.Items()
		}
	default:
		return ErrTypeMismatch
	}
	old := obj.slotFor(p).list
	added, removed := diffMultiset(old.Items(), newItems)
	applyReverseDiff(p.reverse, obj, added, removed)
	obj.writeRaw(p, func(s *slot) { s.list = NewLinkList(newItems...) })
	return nil
}

func (p *LinkToManyListProperty) AddLink(obj, target *Object) {
	obj.slotFor(p).list.append(target)
	if prim, ok := p.reverse.(linkPrimitive); p.reverse != nil && ok {
		prim.primitiveAdd(target, obj)
	}
}

func (p *LinkToManyListProperty) RemoveLink(obj, target *Object) {
	l := obj.slotFor(p).list
	if l.count(target) == 0 {
		return
	}
	l.removeOne(target)
	if prim, ok := p.reverse.(linkPrimitive); p.reverse != nil && ok {
		prim.primitiveRemove(target, obj)
	}
}

func (p *LinkToManyListProperty) primitiveAdd(owner, value *Object) {
	owner.slotFor(p).list.append(value)
}

func (p *LinkToManyListProperty) primitiveRemove(owner, value *Object) {
	owner.slotFor(p).list.removeOne(value)
}

func (p *LinkToManyListProperty) linkedValues(owner *Object) []*Object {
	return owner.slotFor(p).list.Items()
}

func (p *LinkToManyListProperty) SerializeAttr(obj *Object) (string, bool) {
	return serializeManyRefs(p.containment, obj.slotFor(p).list.Items())
}

func (p *LinkToManyListProperty) DeserializeAttr(obj *Object, text string) error { return nil }

// LinkToManyMapProperty maps a key derived from each target's declared
// key attribute to at most one Object, held in key order (§3, §4.2.4).
type LinkToManyMapProperty struct {
	baseProperty
	targetType  *MetaType
	reverse     LinkProperty
	mandatory   bool
	containment bool
	keyAttr     Property
}

func NewLinkToManyMapProperty(owner, targetType *MetaType, name, label string, mandatory, containment, serializable bool) *LinkToManyMapProperty {
	p := &LinkToManyMapProperty{
		baseProperty: baseProperty{owner: owner, name: name, label: label, serializable: serializable},
		targetType:   targetType,
		mandatory:    mandatory,
		containment:  containment,
	}
	owner.ownProperties = append(owner.ownProperties, p)
	return p
}

func (p *LinkToManyMapProperty) Kind() PropertyKind    { return KindLinkToManyMap }
func (p *LinkToManyMapProperty) IsLink() bool          { return true }
func (p *LinkToManyMapProperty) InitialValue() Value   { return Value{} }
func (p *LinkToManyMapProperty) TargetType() *MetaType { return p.targetType }
func (p *LinkToManyMapProperty) Reverse() LinkProperty { return p.reverse }
func (p *LinkToManyMapProperty) IsContainment() bool   { return p.containment }
func (p *LinkToManyMapProperty) IsMandatory() bool     { return p.mandatory }

func (p *LinkToManyMapProperty) keyOf(target *Object) Value {
	return target.MapKey(p)
}

func (p *LinkToManyMapProperty) UpdateValue(obj *Object, v any) error {
	var newItems []*Object
	switch val := v.(type) {
	case nil:
	case *LinkSet:
		if val != nil {
			newItems = val.Items()
		}
	default:
		return ErrTypeMismatch
	}
	old := obj.slotFor(p).m
	added, removed := diffIdentitySets(old.values(), newItems)
	applyReverseDiff(p.reverse, obj, added, removed)
	next := &LinkMap{entries: append([]linkMapEntry{}, old.entries...)}
	for _, r := range removed {
		next.remove(r)
	}
	for _, a := range added {
		next.put(p.keyOf(a), a)
	}
	obj.writeRaw(p, func(s *slot) { s.m = next })
	return nil
}

func (p *LinkToManyMapProperty) AddLink(obj, target *Object) {
	m := obj.slotFor(p).m
	for _, v := range m.values() {
		if v == target {
			return
		}
	}
	m.put(p.keyOf(target), target)
	if prim, ok := p.reverse.(linkPrimitive); p.reverse != nil && ok {
		prim.primitiveAdd(target, obj)
	}
}

func (p *LinkToManyMapProperty) RemoveLink(obj, target *Object) {
	m := obj.slotFor(p).m
	m.remove(target)
	if prim, ok := p.reverse.(linkPrimitive); p.reverse != nil && ok {
		prim.primitiveRemove(target, obj)
	}
}

func (p *LinkToManyMapProperty) primitiveAdd(owner, value *Object) {
	owner.slotFor(p).m.put(p.keyOf(value), value)
}

func (p *LinkToManyMapProperty) primitiveRemove(owner, value *Object) {
	owner.slotFor(p).m.remove(value)
}

func (p *LinkToManyMapProperty) linkedValues(owner *Object) []*Object {
	return owner.slotFor(p).m.values()
}

func (p *LinkToManyMapProperty) SerializeAttr(obj *Object) (string, bool) {
	return serializeManyRefs(p.containment, obj.slotFor(p).m.values())
}

func (p *LinkToManyMapProperty) DeserializeAttr(obj *Object, text string) error { return nil }

// rebuildMap reinserts every currently linked target using the property's
// current key attribute, repairing map-key drift (§4.6, §8 Scenario F).
func (p *LinkToManyMapProperty) rebuildMap(obj *Object) {
	m := obj.slotFor(p).m
	targets := m.values()
	rebuilt := &LinkMap{}
	for _, t := range targets {
		rebuilt.insertSorted(p.keyOf(t), t)
	}
	obj.writeRaw(p, func(s *slot) { s.m = rebuilt })
}

// LinkToManyMultiMapProperty maps a key derived from each target's declared
// key attribute to a set of Objects, permitting duplicate keys, held in key
// order with insertion order preserved among entries sharing a key (§3,
// §4.2.4).
type LinkToManyMultiMapProperty struct {
	baseProperty
	targetType  *MetaType
	reverse     LinkProperty
	mandatory   bool
	containment bool
	keyAttr     Property
}

func NewLinkToManyMultiMapProperty(owner, targetType *MetaType, name, label string, mandatory, containment, serializable bool) *LinkToManyMultiMapProperty {
	p := &LinkToManyMultiMapProperty{
		baseProperty: baseProperty{owner: owner, name: name, label: label, serializable: serializable},
		targetType:   targetType,
		mandatory:    mandatory,
		containment:  containment,
	}
	owner.ownProperties = append(owner.ownProperties, p)
	return p
}

func (p *LinkToManyMultiMapProperty) Kind() PropertyKind    { return KindLinkToManyMultiMap }
func (p *LinkToManyMultiMapProperty) IsLink() bool          { return true }
func (p *LinkToManyMultiMapProperty) InitialValue() Value   { return Value{} }
func (p *LinkToManyMultiMapProperty) TargetType() *MetaType { return p.targetType }
func (p *LinkToManyMultiMapProperty) Reverse() LinkProperty { return p.reverse }
func (p *LinkToManyMultiMapProperty) IsContainment() bool   { return p.containment }
func (p *LinkToManyMultiMapProperty) IsMandatory() bool     { return p.mandatory }

func (p *LinkToManyMultiMapProperty) keyOf(target *Object) Value {
	return target.MapKey(p)
}

func (p *LinkToManyMultiMapProperty) UpdateValue(obj *Object, v any) error {
	var newItems []*Object
	switch val := v.(type) {
	case nil:
	case *LinkSet:
		if val != nil {
			newItems = val.Items()
		}
	default:
		return ErrTypeMismatch
	}
	old := obj.slotFor(p).mm
	added, removed := diffIdentitySets(old.values(), newItems)
	applyReverseDiff(p.reverse, obj, added, removed)
	next := &LinkMultiMap{entries: append([]linkMapEntry{}, old.entries...)}
	for _, r := range removed {
		next.removeOne(p.keyOf(r), r)
	}
	for _, a := range added {
		next.add(p.keyOf(a), a)
	}
	obj.writeRaw(p, func(s *slot) { s.mm = next })
	return nil
}

func (p *LinkToManyMultiMapProperty) AddLink(obj, target *Object) {
	mm := obj.slotFor(p).mm
	key := p.keyOf(target)
	if mm.contains(key, target) {
		return
	}
	mm.add(key, target)
	if prim, ok := p.reverse.(linkPrimitive); p.reverse != nil && ok {
		prim.primitiveAdd(target, obj)
	}
}

func (p *LinkToManyMultiMapProperty) RemoveLink(obj, target *Object) {
	mm := obj.slotFor(p).mm
	mm.removeOne(p.keyOf(target), target)
	if prim, ok := p.reverse.(linkPrimitive); p.reverse != nil && ok {
		prim.primitiveRemove(target, obj)
	}
}

func (p *LinkToManyMultiMapProperty) primitiveAdd(owner, value *Object) {
	owner.slotFor(p).mm.add(p.keyOf(value), value)
}

func (p *LinkToManyMultiMapProperty) primitiveRemove(owner, value *Object) {
	owner.slotFor(p).mm.removeOne(p.keyOf(value), value)
}

func (p *LinkToManyMultiMapProperty) linkedValues(owner *Object) []*Object {
	return owner.slotFor(p).mm.values()
}

func (p *LinkToManyMultiMapProperty) SerializeAttr(obj *Object) (string, bool) {
	return serializeManyRefs(p.containment, obj.slotFor(p).mm.values())
}

func (p *LinkToManyMultiMapProperty) DeserializeAttr(obj *Object, text string) error { return nil }

func (p *LinkToManyMultiMapProperty) rebuildMap(obj *Object) {
	mm := obj.slotFor(p).mm
	targets := mm.values()
	rebuilt := &LinkMultiMap{}
	for _, t := range targets {
		rebuilt.add(p.keyOf(t), t)
	}
	obj.writeRaw(p, func(s *slot) { s.mm = rebuilt })
}

// applyReverseDiff invokes the reverse property's primitive add/remove for a
// computed delta, in the order §5 mandates for link-to-many: removed first,
// added second (keeps mandatory-reverse invariants from transiently
// breaking).
func applyReverseDiff(reverse LinkProperty, owner *Object, added, removed []*Object) {
	if reverse == nil {
		return
	}
	prim, ok := reverse.(linkPrimitive)
	if !ok {
		return
	}
	for _, r := range removed {
		prim.primitiveRemove(r, owner)
	}
	for _, a := range added {
		prim.primitiveAdd(a, owner)
	}
}

// diffIdentitySets computes set-difference by identity (§4.2.4 step 1, set
// and map/multimap membership).
func diffIdentitySets(old, next []*Object) (added, removed []*Object) {
	oldSet := map[*Object]bool{}
	for _, o := range old {
		oldSet[o] = true
	}
	nextSet := map[*Object]bool{}
	for _, o := range next {
		nextSet[o] = true
	}
	for _, o := range next {
		if !oldSet[o] {
			added = append(added, o)
		}
	}
	for _, o := range old {
		if !nextSet[o] {
			removed = append(removed, o)
		}
	}
	return added, removed
}

// diffMultiset computes a delta by occurrence count, for list membership
// where a repeated element is still "the same membership" (§4.2.4 step 1).
func diffMultiset(old, next []*Object) (added, removed []*Object) {
	oldCount := map[*Object]int{}
	for _, o := range old {
		oldCount[o]++
	}
	nextCount := map[*Object]int{}
	for _, o := range next {
		nextCount[o]++
	}
	for o, n := range nextCount {
		if extra := n - oldCount[o]; extra > 0 {
			for i := 0; i < extra; i++ {
				added = append(added, o)
			}
		}
	}
	for o, n := range oldCount {
		if extra := n - nextCount[o]; extra > 0 {
			for i := 0; i < extra; i++ {
				removed = append(removed, o)
			}
		}
	}
	return added, removed
}

// serializeManyRefs renders a link-to-many value as the whitespace-separated
// id list §4.5 mandates, unless the property is containment (containment is
// serialized as child elements instead).
func serializeManyRefs(containment bool, items []*Object) (string, bool) {
	if containment || len(items) == 0 {
		return "", false
	}
	out := ""
	for i, o := range items {
		if i > 0 {
			out += " "
		}
		out += o.ID()
	}
	return out, true
}
