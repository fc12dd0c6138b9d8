package emf

// LinkSet is the runtime value of a link-to-many-set slot: an unordered
// collection of distinct Object references (§3). Iteration order is
// insertion order for determinism, but set semantics forbid duplicates.
type LinkSet struct {
	items []*Object
}

// NewLinkSet builds a LinkSet from objs, de-duplicating by identity.
func NewLinkSet(objs ...*Object) *LinkSet {
	s := &LinkSet{}
	for _, o := range objs {
		s.add(o)
	}
	return s
}

func (s *LinkSet) add(o *Object) {
	for _, x := range s.items {
		if x == o {
			return
		}
	}
	s.items = append(s.items, o)
}

func (s *LinkSet) remove(o *Object) {
	for i, x := range s.items {
		if x == o {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

func (s *LinkSet) contains(o *Object) bool {
	for _, x := range s.items {
		if x == o {
			return true
		}
	}
	return false
}

// Items returns the set's members in insertion order. The returned slice
// must not be mutated by the caller.
func (s *LinkSet) Items() []*Object {
	if s == nil {
		return nil
	}
	return s.items
}

// LinkList is the runtime value of a link-to-many-list slot: an ordered
// sequence of Object references in which the same Object may appear more
// than once (§3).
type LinkList struct {
	items []*Object
}

// NewLinkList builds a LinkList preserving objs' order and duplicates.
func NewLinkList(objs ...*Object) *LinkList {
	return &LinkList{items: append([]*Object{}, objs...)}
}

func (l *LinkList) Items() []*Object {
	if l == nil {
		return nil
	}
	return l.items
}

// count of occurrences of o, for list-membership diffing (duplicates count).
func (l *LinkList) count(o *Object) int {
	n := 0
	for _, x := range l.items {
		if x == o {
			n++
		}
	}
	return n
}

func (l *LinkList) append(o *Object) {
	l.items = append(l.items, o)
}

func (l *LinkList) removeOne(o *Object) {
	for i, x := range l.items {
		if x == o {
			l.items = append(l.items[:i], l.items[i+1:]...)
			return
		}
	}
}

// linkMapEntry is one key/value pair of a LinkMap, or one key/value-set
// group of a LinkMultiMap.
type linkMapEntry struct {
	key   Value
	value *Object
}

// LinkMap is the runtime value of a link-to-many-map slot: a mapping from a
// key (derived from the target's map-key attribute) to at most one Object,
// held in key order (§3).
type LinkMap struct {
	entries []linkMapEntry
}

func NewLinkMap() *LinkMap { return &LinkMap{} }

func (m *LinkMap) Entries() []linkMapEntry {
	if m == nil {
		return nil
	}
	return m.entries
}

// KeyOf returns the key under which o is currently stored, and whether it
// was found.
func (m *LinkMap) KeyOf(o *Object) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	for _, e := range m.entries {
		if e.value == o {
			return e.key, true
		}
	}
	return Value{}, false
}

func (m *LinkMap) values() []*Object {
	out := make([]*Object, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.value
	}
	return out
}

// Values returns the map's targets in key order.
func (m *LinkMap) Values() []*Object {
	return m.values()
}

func (m *LinkMap) put(key Value, o *Object) {
	for i, e := range m.entries {
		if e.value == o {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			break
		}
	}
	m.insertSorted(key, o)
}

func (m *LinkMap) insertSorted(key Value, o *Object) {
	i := 0
	for i < len(m.entries) && m.entries[i].key.Compare(key) < 0 {
		i++
	}
	// Map semantics: a duplicate key replaces the previous holder.
	if i < len(m.entries) && m.entries[i].key.Compare(key) == 0 {
		m.entries[i] = linkMapEntry{key: key, value: o}
		return
	}
	m.entries = append(m.entries, linkMapEntry{})
	copy(m.entries[i+1:], m.entries[i:])
	m.entries[i] = linkMapEntry{key: key, value: o}
}

func (m *LinkMap) remove(o *Object) {
	for i, e := range m.entries {
		if e.value == o {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return
		}
	}
}

// LinkMultiMap is the runtime value of a link-to-many-multimap slot: a
// mapping permitting duplicate keys, held in key order with insertion order
// preserved among entries sharing a key (§3).
type LinkMultiMap struct {
	entries []linkMapEntry
}

func NewLinkMultiMap() *LinkMultiMap { return &LinkMultiMap{} }

func (m *LinkMultiMap) Entries() []linkMapEntry {
	if m == nil {
		return nil
	}
	return m.entries
}

func (m *LinkMultiMap) values() []*Object {
	out := make([]*Object, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.value
	}
	return out
}

// Values returns the multimap's targets in key order (ties broken by
// insertion order).
func (m *LinkMultiMap) Values() []*Object {
	return m.values()
}

// contains reports whether the (key, value) pair is present -- multimap
// membership is by that pair (§4.2.4).
func (m *LinkMultiMap) contains(key Value, o *Object) bool {
	for _, e := range m.entries {
		if e.value == o && e.key.Compare(key) == 0 {
			return true
		}
	}
	return false
}

func (m *LinkMultiMap) add(key Value, o *Object) {
	i := 0
	for i < len(m.entries) && m.entries[i].key.Compare(key) < 0 {
		i++
	}
	for i < len(m.entries) && m.entries[i].key.Compare(key) == 0 {
		i++
	}
	m.entries = append(m.entries, linkMapEntry{})
	copy(m.entries[i+1:], m.entries[i:])
	m.entries[i] = linkMapEntry{key: key, value: o}
}

func (m *LinkMultiMap) removeOne(key Value, o *Object) {
	for i, e := range m.entries {
		if e.value == o && e.key.Compare(key) == 0 {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return
		}
	}
}
