package emf

// LinkToOneProperty is a zero-or-one Object reference (§3, §4.2.3).
type LinkToOneProperty struct {
	baseProperty
	targetType  *MetaType
	reverse     LinkProperty
	mandatory   bool
	containment bool
}

// NewLinkToOneProperty declares a new link-to-one property. Wire its
// opposite with PropertyRegistry.LinkReverse.
func NewLinkToOneProperty(owner, targetType *MetaType, name, label string, mandatory, containment, serializable bool) *LinkToOneProperty {
	p := &LinkToOneProperty{
		baseProperty: baseProperty{owner: owner, name: name, label: label, serializable: serializable},
		targetType:   targetType,
		mandatory:    mandatory,
		containment:  containment,
	}
	owner.ownProperties = append(owner.ownProperties, p)
	return p
}

func (p *LinkToOneProperty) Kind() PropertyKind  { return KindLinkToOne }
func (p *LinkToOneProperty) IsLink() bool        { return true }
func (p *LinkToOneProperty) InitialValue() Value { return Value{} }
func (p *LinkToOneProperty) TargetType() *MetaType { return p.targetType }
func (p *LinkToOneProperty) Reverse() LinkProperty { return p.reverse }
func (p *LinkToOneProperty) IsContainment() bool   { return p.containment }
func (p *LinkToOneProperty) IsMandatory() bool     { return p.mandatory }

// UpdateValue implements §4.2.3: steps 1-4, with the reverse-side ordering
// mandated by §5 (link-to-one: added first, removed second).
func (p *LinkToOneProperty) UpdateValue(obj *Object, v any) error {
	var b *Object
	switch val := v.(type) {
	case nil:
	case *Object:
		b = val
	default:
		return ErrTypeMismatch
	}
	old := obj.slotFor(p).one
	if old == b {
		return nil
	}
	obj.writeRaw(p, func(s *slot) { s.one = b })
	if p.reverse != nil {
		if prim, ok := p.reverse.(linkPrimitive); ok {
			if b != nil {
				prim.primitiveAdd(b, obj)
			}
			if old != nil {
				prim.primitiveRemove(old, obj)
			}
		}
	}
	return nil
}

func (p *LinkToOneProperty) primitiveAdd(owner, value *Object) {
	owner.writeRaw(p, func(s *slot) { s.one = value })
}

func (p *LinkToOneProperty) primitiveRemove(owner, value *Object) {
	s := owner.slotFor(p)
	if s.one == value {
		owner.writeRaw(p, func(s *slot) { s.one = nil })
	}
}

func (p *LinkToOneProperty) linkedValues(owner *Object) []*Object {
	if v := owner.slotFor(p).one; v != nil {
		return []*Object{v}
	}
	return nil
}

// SerializeAttr writes the target's id as a reference attribute, unless this
// property is containment or the container side (those are handled by the
// codec's element structure instead, §4.5).
func (p *LinkToOneProperty) SerializeAttr(obj *Object) (string, bool) {
	if p.containment {
		return "", false
	}
	if cp := obj.typ.ContainerProperty(); cp != nil && Property(cp) == Property(p) {
		return "", false
	}
	target := obj.ReadOne(p)
	if target == nil {
		return "", false
	}
	return target.ID(), true
}

// DeserializeAttr is a no-op for link properties; reference resolution is
// deferred to the XMI decoder's second pass (§4.5).
func (p *LinkToOneProperty) DeserializeAttr(obj *Object, text string) error {
	return nil
}
