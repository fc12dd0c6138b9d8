package emf

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// RootTypeName is the conventional root type every instanciable type
// implicitly derives from (§2, §4.1).
const RootTypeName = "Object"

// TypeRegistry is the global directory of all MetaTypes, by id and by name
// (§2, §4.7). It is populated once at startup via DeclareType and
// DeclareSuperType, then closed with Finalize; after that it is read-only --
// any later mutation is a contract violation (§5).
type TypeRegistry struct {
	byID   map[int]*MetaType
	byName map[string]*MetaType
	root   *MetaType

	// nameProperty is the "name" attribute declared on the root type and
	// inherited by every other type; used to compute default names and the
	// fallback map-key.
	nameProperty Property

	finalized bool

	// closure caches the transitive descendant/derived-type computations of
	// every MetaType (MetaTypes hold no cache of their own), bounded the way
	// internal/web/server.go bounds its SVG result cache.
	closure *lru.Cache[string, []*MetaType]
}

// NewTypeRegistry creates an empty registry and declares the conventional
// root type "Object" with its built-in "name" attribute.
func NewTypeRegistry() *TypeRegistry {
	r := &TypeRegistry{
		byID:   make(map[int]*MetaType),
		byName: make(map[string]*MetaType),
	}
	cache, err := lru.New[string, []*MetaType](256)
	if err != nil {
		panic(err) // only fails for non-positive size, which is a programmer error
	}
	r.closure = cache

	root := &MetaType{
		registry:     r,
		id:           0,
		name:         RootTypeName,
		label:        RootTypeName,
		instanciable: false,
	}
	r.root = root
	r.byID[root.id] = root
	r.byName[root.name] = root

	nameProp := &AttributeProperty{
		baseProperty: baseProperty{owner: root, name: "name", label: "Name", serializable: true},
		kind:         VString,
		initial:      StringValue(""),
	}
	root.ownProperties = []Property{nameProp}
	r.nameProperty = nameProp
	return r
}

// Root returns the conventional "Object" root type.
func (r *TypeRegistry) Root() *MetaType { return r.root }

// NameProperty returns the built-in "name" attribute every type inherits.
func (r *TypeRegistry) NameProperty() Property { return r.nameProperty }

// DeclareType registers a new MetaType. superType may be nil, in which case
// the type is attached directly under the root type by Finalize.
func (r *TypeRegistry) DeclareType(id int, name, label string, instanciable bool, superType *MetaType, factory func() *Object) (*MetaType, error) {
	if r.finalized {
		return nil, fmt.Errorf("emf: TypeRegistry already finalized, cannot declare %q", name)
	}
	if _, ok := r.byID[id]; ok {
		return nil, fmt.Errorf("%w: id %d (declaring %q)", ErrDuplicateTypeID, id, name)
	}
	if _, ok := r.byName[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateTypeName, name)
	}
	if superType == nil {
		superType = r.root
	}
	t := &MetaType{
		registry:     r,
		id:           id,
		name:         name,
		label:        label,
		instanciable: instanciable,
		factory:      factory,
		supertypes:   []*MetaType{superType},
	}
	superType.subtypes = append(superType.subtypes, t)
	r.byID[id] = t
	r.byName[name] = t
	return t, nil
}

// ByID looks up a MetaType by its registry-unique integer id.
func (r *TypeRegistry) ByID(id int) (*MetaType, bool) {
	t, ok := r.byID[id]
	return t, ok
}

// ByName looks up a MetaType by its registry-unique name.
func (r *TypeRegistry) ByName(name string) (*MetaType, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Types returns every declared MetaType, including the root.
func (r *TypeRegistry) Types() []*MetaType {
	out := make([]*MetaType, 0, len(r.byID))
	for _, t := range r.byID {
		out = append(out, t)
	}
	return out
}

// RootTypes returns the types declared directly under the conventional
// "Object" root.
func (r *TypeRegistry) RootTypes() []*MetaType {
	return r.root.subtypes
}

// Finalize closes the registry for new type declarations and pre-computes
// each MetaType's AllProperties. It must run after PropertyRegistry has
// created and wired every Property (§4.7); calling it twice is a no-op.
// It returns ErrMissingReverse (a schema error, §7) if any link property
// was declared but never wired to a reverse via PropertyRegistry.LinkReverse.
func (r *TypeRegistry) Finalize() error {
	if r.finalized {
		return nil
	}
	r.finalized = true
	var compute func(t *MetaType) []Property
	memo := map[*MetaType][]Property{}
	compute = func(t *MetaType) []Property {
		if props, ok := memo[t]; ok {
			return props
		}
		var props []Property
		for _, s := range t.supertypes {
			props = append(props, compute(s)...)
		}
		props = append(props, t.ownProperties...)
		memo[t] = props
		return props
	}
	for _, t := range r.byID {
		t.allProperties = compute(t)
		for _, p := range t.ownProperties {
			lp, ok := p.(LinkProperty)
			if !ok {
				continue
			}
			if lp.Reverse() == nil {
				return fmt.Errorf("%w: %s.%s", ErrMissingReverse, t.name, p.Name())
			}
		}
		for _, p := range t.allProperties {
			if lp, ok := p.(LinkProperty); ok && !lp.IsContainment() {
				if rev := lp.Reverse(); rev != nil {
					if revLink, ok := rev.(LinkProperty); ok && revLink.IsContainment() {
						t.containerProp = lp
					}
				}
			}
		}
	}
	return nil
}

// derivedTypes computes (or serves from cache) t's transitive, deduplicated
// descendant set.
func (r *TypeRegistry) derivedTypes(t *MetaType) []*MetaType {
	key := "derived:" + t.name
	if cached, ok := r.closure.Get(key); ok {
		return cached
	}
	seen := map[*MetaType]bool{}
	var out []*MetaType
	var walk func(n *MetaType)
	walk = func(n *MetaType) {
		for _, c := range n.subtypes {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
				walk(c)
			}
		}
	}
	walk(t)
	r.closure.Add(key, out)
	return out
}

// instanciableDescendants computes (or serves from cache) the instanciable
// nodes of t's rooted subtree, including t itself if instanciable.
func (r *TypeRegistry) instanciableDescendants(t *MetaType) []*MetaType {
	key := "inst:" + t.name
	if cached, ok := r.closure.Get(key); ok {
		return cached
	}
	var out []*MetaType
	if t.instanciable {
		out = append(out, t)
	}
	for _, d := range r.derivedTypes(t) {
		if d.instanciable {
			out = append(out, d)
		}
	}
	r.closure.Add(key, out)
	return out
}
