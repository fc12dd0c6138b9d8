package emf

import "fmt"

// PropertyRegistry is the startup-time builder described in §4.7: by the
// time a schema package is done calling it, every opposite pair is wired,
// every containment side is marked, and every map property's key attribute
// is installed. Properties themselves are created directly against their
// owner MetaType (NewAttributeProperty, NewLinkToOneProperty, etc.); this
// type exists for the cross-cutting wiring steps that need two properties
// (or a property and its owner type) at once.
type PropertyRegistry struct {
	types *TypeRegistry
}

// NewPropertyRegistry creates a builder bound to types. Call it after every
// MetaType has been declared but before TypeRegistry.Finalize.
func NewPropertyRegistry(types *TypeRegistry) *PropertyRegistry {
	return &PropertyRegistry{types: types}
}

// LinkReverse wires p and q as each other's opposite (§4.7 step 2): sets
// p.reverse = q and q.reverse = p.
func (r *PropertyRegistry) LinkReverse(p, q LinkProperty) {
	setReverse(p, q)
	setReverse(q, p)
}

// SetContainment marks p as the containment side of a relationship (§4.7
// step 3). Its reverse (if wired via LinkReverse) becomes the container
// side automatically when TypeRegistry.Finalize computes each MetaType's
// ContainerProperty.
func (r *PropertyRegistry) SetContainment(p LinkProperty) {
	setContainment(p, true)
}

// SetKey declares which attribute property supplies the map key for a
// link-to-many-map or link-to-many-multimap property (§4.7 step 4, §4.2.4).
// Without a call to SetKey, a map property falls back to the target's "name"
// attribute. Returns ErrUnknownMapKeyAttr if keyAttr is not declared on (or
// inherited by) mapProp's target type, since every linked target must be
// able to answer for that attribute.
func (r *PropertyRegistry) SetKey(mapProp LinkProperty, keyAttr Property) error {
	target := mapProp.TargetType()
	if !target.IsA(keyAttr.Owner()) {
		return fmt.Errorf("%w: %s.%s does not describe %s", ErrUnknownMapKeyAttr, keyAttr.Owner().Name(), keyAttr.Name(), target.Name())
	}
	setKeyAttr(mapProp, keyAttr)
	return nil
}

// DeclareEnumValue adds one key/label pair to an enumeration property's
// domain (§4.7 step 5).
func (r *PropertyRegistry) DeclareEnumValue(p *EnumerationProperty, key int64, label string) {
	p.AddValue(key, label)
}

// RebuildMap repairs map-key drift on a single object's map or multimap
// property by reinserting every currently linked target under its current
// key (§4.6, §8 Scenario F).
func RebuildMap(obj *Object, p LinkProperty) {
	switch t := p.(type) {
	case *LinkToManyMapProperty:
		t.rebuildMap(obj)
	case *LinkToManyMultiMapProperty:
		t.rebuildMap(obj)
	}
}
