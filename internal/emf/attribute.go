package emf

import "strings"

// valueReader is implemented by attribute-like properties that can hand
// back their current raw Value without going through UpdateValue. Used by
// Object.MapKey to read the declared key attribute off a link target.
type valueReader interface {
	readValue(obj *Object) Value
}

// AttributeProperty stores one value of a primitive type T (§4.2.1). T is
// identified by kind, not a Go type parameter, so that Object's slot table
// stays monomorphic (§9).
type AttributeProperty struct {
	baseProperty
	kind    ValueKind
	initial Value
}

// NewAttributeProperty declares a new attribute property. initial is the
// declared default value, also used when DeserializeAttr sees empty text.
func NewAttributeProperty(owner *MetaType, name, label, unit string, kind ValueKind, initial Value, serializable bool) *AttributeProperty {
	p := &AttributeProperty{
		baseProperty: baseProperty{owner: owner, name: name, label: label, unit: unit, serializable: serializable},
		kind:         kind,
		initial:      initial,
	}
	owner.ownProperties = append(owner.ownProperties, p)
	return p
}

func (p *AttributeProperty) Kind() PropertyKind   { return KindAttribute }
func (p *AttributeProperty) IsLink() bool         { return false }
func (p *AttributeProperty) InitialValue() Value  { return p.initial }
func (p *AttributeProperty) readValue(obj *Object) Value { return obj.ReadValue(p) }

func (p *AttributeProperty) UpdateValue(obj *Object, v any) error {
	val, ok := v.(Value)
	if !ok {
		return ErrTypeMismatch
	}
	if val.Kind != p.kind {
		return ErrTypeMismatch
	}
	if val.Kind == VString {
		// §4.2.1: canonicalise on the update path, not just at encode time.
		val = StringValue(strings.ReplaceAll(val.String(), ";", "-"))
	}
	obj.writeRaw(p, func(s *slot) { s.attr = val })
	return nil
}

// SerializeAttr writes the current value as XMI attribute text only when it
// differs from the declared default, to keep XMI small (§4.2.1).
func (p *AttributeProperty) SerializeAttr(obj *Object) (string, bool) {
	v := obj.ReadValue(p)
	if v.Equal(p.initial) {
		return "", false
	}
	return v.Text(), true
}

func (p *AttributeProperty) DeserializeAttr(obj *Object, text string) error {
	v, err := ParseValue(p.kind, text, p.initial)
	if err != nil {
		return err
	}
	obj.writeRaw(p, func(s *slot) { s.attr = v })
	return nil
}

// EnumerationProperty is an Attribute<int> plus a {key -> label} mapping
// (§4.2.2). It serializes and deserializes as the label; unknown labels
// deserialize to key 0.
type EnumerationProperty struct {
	baseProperty
	initial Value
	labels  map[int64]string
	keys    map[string]int64
}

// NewEnumerationProperty declares a new enumeration property with an empty
// label domain; declare values with AddValue.
func NewEnumerationProperty(owner *MetaType, name, label string, initial int64, serializable bool) *EnumerationProperty {
	p := &EnumerationProperty{
		baseProperty: baseProperty{owner: owner, name: name, label: label, serializable: serializable},
		initial:      IntValue(initial),
		labels:       map[int64]string{},
		keys:         map[string]int64{},
	}
	owner.ownProperties = append(owner.ownProperties, p)
	return p
}

// AddValue declares one key/label pair of the enumeration's domain.
func (p *EnumerationProperty) AddValue(key int64, label string) {
	p.labels[key] = label
	p.keys[label] = key
}

func (p *EnumerationProperty) Kind() PropertyKind  { return KindEnumeration }
func (p *EnumerationProperty) IsLink() bool        { return false }
func (p *EnumerationProperty) InitialValue() Value { return p.initial }
func (p *EnumerationProperty) readValue(obj *Object) Value { return obj.ReadValue(p) }

func (p *EnumerationProperty) UpdateValue(obj *Object, v any) error {
	val, ok := v.(Value)
	if !ok || val.Kind != VInt {
		return ErrTypeMismatch
	}
	obj.writeRaw(p, func(s *slot) { s.attr = val })
	return nil
}

func (p *EnumerationProperty) SerializeAttr(obj *Object) (string, bool) {
	v := obj.ReadValue(p)
	if v.Equal(p.initial) {
		return "", false
	}
	label, ok := p.labels[v.Int()]
	if !ok {
		return "", false
	}
	return label, true
}

func (p *EnumerationProperty) DeserializeAttr(obj *Object, text string) error {
	key, ok := p.keys[text]
	if !ok {
		key = 0
	}
	obj.writeRaw(p, func(s *slot) { s.attr = IntValue(key) })
	return nil
}
