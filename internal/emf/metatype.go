package emf

import (
	"fmt"
	"sync/atomic"
)

// MetaType is the runtime descriptor of one object class (§2, §4.1): an
// integer id, textual name and label, an instantiation flag, the supertype
// DAG, an element-factory callback and a per-type counter used to generate
// default ids and names.
type MetaType struct {
	registry     *TypeRegistry
	id           int
	name         string
	label        string
	instanciable bool
	factory      func() *Object

	supertypes []*MetaType
	subtypes   []*MetaType

	ownProperties []Property

	seq uint64

	// Populated by TypeRegistry.Finalize; nil before that.
	allProperties []Property
	containerProp LinkProperty
}

func (t *MetaType) ID() int               { return t.id }
func (t *MetaType) Name() string          { return t.name }
func (t *MetaType) Label() string         { return t.label }
func (t *MetaType) IsInstanciable() bool  { return t.instanciable }
func (t *MetaType) IsDerived() bool       { return len(t.subtypes) > 0 }
func (t *MetaType) SuperTypes() []*MetaType {
	return t.supertypes
}

// DerivedTypes returns every proper descendant of t, transitively,
// deduplicated (§4.1). The result is memoised in the owning TypeRegistry's
// bounded LRU cache, not on the MetaType itself -- types are only declared
// at startup, so nothing ever needs to invalidate the entry (§4.1, §9).
func (t *MetaType) DerivedTypes() []*MetaType {
	return t.registry.derivedTypes(t)
}

// InstanciableDescendants returns the instanciable nodes of the t-rooted
// subtree, including t itself if it is instanciable (§3 MetaType invariant d,
// §4.1). Also memoised in the registry's LRU cache.
func (t *MetaType) InstanciableDescendants() []*MetaType {
	return t.registry.instanciableDescendants(t)
}

// IsA reports whether t equals other or descends from it (reflexive
// transitive closure of the supertype relation, §4.1).
func (t *MetaType) IsA(other *MetaType) bool {
	if t == other {
		return true
	}
	for _, s := range t.supertypes {
		if s.IsA(other) {
			return true
		}
	}
	return false
}

// AllProperties returns every Property declared on t or any of its
// supertypes, supertypes first, in declaration order. The container
// property (if any) keeps its natural position here; createInstance is
// responsible for applying it last.
func (t *MetaType) AllProperties() []Property {
	return t.allProperties
}

// ContainerProperty returns the single inherited-or-own property marked as
// the container side of a containment relationship, or nil.
func (t *MetaType) ContainerProperty() LinkProperty {
	return t.containerProp
}

func (t *MetaType) setContainerProperty(p LinkProperty) {
	t.containerProp = p
}

func (t *MetaType) updateMaxSeq(n uint64) {
	for {
		cur := atomic.LoadUint64(&t.seq)
		if n <= cur {
			return
		}
		if atomic.CompareAndSwapUint64(&t.seq, cur, n) {
			return
		}
	}
}

func (t *MetaType) nextSeq() uint64 {
	return atomic.AddUint64(&t.seq, 1)
}

// NewBareInstance allocates a new Object of type t with every slot
// initialized to its declared default, but without assigning an id, a
// generated name, or any overrides. It exists for callers -- the XMI decoder
// chief among them -- that construct an Object's identity and values from an
// external source instead of from t's normal default-init (§4.5).
func (t *MetaType) NewBareInstance() (*Object, error) {
	if !t.instanciable {
		return nil, fmt.Errorf("%w: %s", ErrNotInstanciable, t.name)
	}
	var obj *Object
	if t.factory != nil {
		obj = t.factory()
	} else {
		obj = &Object{}
	}
	obj.typ = t
	obj.state = Created
	obj.slots = make(map[Property]*slot, len(t.allProperties))
	for _, p := range t.allProperties {
		obj.initSlot(p)
	}
	return obj, nil
}

// CreateInstance allocates a new Object of type t, assigns its default
// identity (folding in what the source spec calls assignDefaultIdentity --
// there is no separate call in this port since nothing else needs a
// not-yet-identified Object), and applies overrides: every non-container
// property in declaration order, then the container property last (§4.1:
// applying the container first could compute a wrong map key on the reverse
// side, since that key may depend on other slots that aren't populated
// yet).
func (t *MetaType) CreateInstance(modelID string, overrides map[Property]any) (*Object, error) {
	obj, err := t.NewBareInstance()
	if err != nil {
		return nil, err
	}

	seq := t.nextSeq()
	obj.id = fmt.Sprintf("%d_%s_%d", t.id, modelID, seq)
	if name := t.registry.nameProperty; name != nil {
		obj.slots[name].attr = StringValue(fmt.Sprintf("%s_%d", t.label, seq))
	}

	var containerVal any
	haveContainerVal := false
	for _, p := range t.allProperties {
		v, ok := overrides[p]
		if !ok {
			continue
		}
		if t.containerProp != nil && p == Property(t.containerProp) {
			containerVal, haveContainerVal = v, true
			continue
		}
		if err := p.UpdateValue(obj, v); err != nil {
			return nil, fmt.Errorf("createInstance %s: override %s: %w", t.name, p.Name(), err)
		}
	}
	if haveContainerVal {
		if err := t.containerProp.UpdateValue(obj, containerVal); err != nil {
			return nil, fmt.Errorf("createInstance %s: container override %s: %w", t.name, t.containerProp.Name(), err)
		}
	}
	return obj, nil
}
