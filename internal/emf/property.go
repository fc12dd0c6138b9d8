package emf

import "fmt"

// PropertyKind identifies which of the closed set of slot shapes (§3) a
// Property describes.
type PropertyKind int

const (
	KindAttribute PropertyKind = iota
	KindEnumeration
	KindLinkToOne
	KindLinkToManySet
	KindLinkToManyList
	KindLinkToManyMap
	KindLinkToManyMultiMap
)

func (k PropertyKind) String() string {
	switch k {
	case KindAttribute:
		return "attribute"
	case KindEnumeration:
		return "enumeration"
	case KindLinkToOne:
		return "link-to-one"
	case KindLinkToManySet:
		return "link-to-many-set"
	case KindLinkToManyList:
		return "link-to-many-list"
	case KindLinkToManyMap:
		return "link-to-many-map"
	case KindLinkToManyMultiMap:
		return "link-to-many-multimap"
	default:
		return fmt.Sprintf("PropertyKind(%d)", int(k))
	}
}

func (k PropertyKind) isLink() bool {
	return k >= KindLinkToOne
}

// Property is the uniform descriptor of one slot on an Object (§4.2). Every
// Property variant implements this; link variants additionally implement
// LinkProperty.
type Property interface {
	Name() string
	Label() string
	Unit() string
	Owner() *MetaType
	Kind() PropertyKind
	IsSerializable() bool
	IsLink() bool

	// InitialValue is the declared default for attribute-like properties.
	// Link properties return the zero Value; callers should not consult it.
	InitialValue() Value

	// UpdateValue is the only mutator visible to outside callers (§4.2). For
	// attribute properties v must be a Value; for link properties v must be
	// *Object (link-to-one), *LinkList (link-to-many-list) or *LinkSet
	// (link-to-many-set, -map and -multimap; map keys are computed from the
	// targets), or nil/an empty container to clear the slot.
	UpdateValue(obj *Object, v any) error

	// SerializeAttr renders the current value as XMI attribute text, per
	// §4.5. ok is false when nothing should be written (unchanged default,
	// containment, or container side).
	SerializeAttr(obj *Object) (text string, ok bool)

	// DeserializeAttr parses one XMI attribute value directly into obj's
	// slot. Link properties do not implement attribute deserialization
	// themselves; decoding a reference list is deferred to the two-pass XMI
	// decoder (§4.5), which calls UpdateValue once the referenced objects
	// exist.
	DeserializeAttr(obj *Object, text string) error
}

// LinkProperty is the subset of Property describing a reference to other
// Objects: link-to-one and the four link-to-many container kinds.
type LinkProperty interface {
	Property

	// TargetType is the declared MetaType of objects this property may
	// reference.
	TargetType() *MetaType

	// Reverse is this property's opposite, or nil if it has none.
	Reverse() LinkProperty

	IsContainment() bool
	IsMandatory() bool
}

// linkPrimitive is the internal, non-recursive leaf of the bidirectional-link
// protocol (§4.3, §9 "Reverse-link protocol"). It is implemented by every
// concrete link property and called only inside this package: on the reverse
// side of UpdateValue/AddLink/RemoveLink, and by Object's HideFromLinked,
// MakeVisibleToLinked and ExportReachable.
type linkPrimitive interface {
	primitiveAdd(owner, value *Object)
	primitiveRemove(owner, value *Object)
	linkedValues(owner *Object) []*Object
}

func setReverse(p LinkProperty, rev LinkProperty) {
	switch t := p.(type) {
	case *LinkToOneProperty:
		t.reverse = rev
	case *LinkToManySetProperty:
		t.reverse = rev
	case *LinkToManyListProperty:
		t.reverse = rev
	case *LinkToManyMapProperty:
		t.reverse = rev
	case *LinkToManyMultiMapProperty:
		t.reverse = rev
	default:
		panic(fmt.Sprintf("emf: setReverse: unknown link property type %T", p))
	}
}

func setKeyAttr(p LinkProperty, keyAttr Property) {
	switch t := p.(type) {
	case *LinkToManyMapProperty:
		t.keyAttr = keyAttr
	case *LinkToManyMultiMapProperty:
		t.keyAttr = keyAttr
	default:
		panic(fmt.Sprintf("emf: setKeyAttr: %T is not a map/multimap link property", p))
	}
}

func setContainment(p LinkProperty, containment bool) {
	switch t := p.(type) {
	case *LinkToOneProperty:
		t.containment = containment
	case *LinkToManySetProperty:
		t.containment = containment
	case *LinkToManyListProperty:
		t.containment = containment
	case *LinkToManyMapProperty:
		t.containment = containment
	case *LinkToManyMultiMapProperty:
		t.containment = containment
	default:
		panic(fmt.Sprintf("emf: setContainment: unknown link property type %T", p))
	}
}

// baseProperty holds the fields common to every Property variant.
type baseProperty struct {
	owner        *MetaType
	name         string
	label        string
	unit         string
	serializable bool
}

func (p *baseProperty) Name() string         { return p.name }
func (p *baseProperty) Label() string        { return p.label }
func (p *baseProperty) Unit() string         { return p.unit }
func (p *baseProperty) Owner() *MetaType     { return p.owner }
func (p *baseProperty) IsSerializable() bool { return p.serializable }
