package family

import (
	"testing"
	"time"

	"github.com/dnswlt/miniemf/internal/emf"
	"github.com/dnswlt/miniemf/internal/model"
)

func newModel(t *testing.T) (*Schema, *model.Model) {
	t.Helper()
	s := NewSchema()
	return s, model.New(s.Types, "fam1")
}

// TestReflexivePartnerLink exercises a Link01 property paired with itself:
// setting alice.partner = bob must also set bob.partner = alice.
func TestReflexivePartnerLink(t *testing.T) {
	s, m := newModel(t)
	alice, _ := m.NewInstance(s.Person, nil)
	bob, _ := m.NewInstance(s.Person, nil)

	if err := s.PersonPartner.UpdateValue(alice, bob); err != nil {
		t.Fatalf("UpdateValue(partner): %v", err)
	}
	if got := alice.ReadOne(s.PersonPartner); got != bob {
		t.Fatalf("alice.partner = %v, want bob", got)
	}
	if got := bob.ReadOne(s.PersonPartner); got != alice {
		t.Fatalf("bob.partner = %v, want alice (reflexive reverse not applied)", got)
	}

	// Replacing alice's partner must clear bob's.
	carol, _ := m.NewInstance(s.Person, nil)
	if err := s.PersonPartner.UpdateValue(alice, carol); err != nil {
		t.Fatalf("UpdateValue(partner, carol): %v", err)
	}
	if got := bob.ReadOne(s.PersonPartner); got != nil {
		t.Fatalf("bob.partner = %v, want nil after alice repartnered", got)
	}
	if got := carol.ReadOne(s.PersonPartner); got != alice {
		t.Fatalf("carol.partner = %v, want alice", got)
	}
}

// TestChildsMapKeyedByAge exercises the map-kind parents/childs pair: childs
// is keyed by the child's own age attribute (§4.2.4, original source
// Person::PROPERTY_childs->setKey(Person::PROPERTY_age)).
func TestChildsMapKeyedByAge(t *testing.T) {
	s, m := newModel(t)
	parent, _ := m.NewInstance(s.Person, nil)

	younger, _ := m.NewInstance(s.Person, map[emf.Property]any{s.PersonAge: emf.IntValue(5)})
	older, _ := m.NewInstance(s.Person, map[emf.Property]any{s.PersonAge: emf.IntValue(10)})

	s.PersonChilds.AddLink(parent, older)
	s.PersonChilds.AddLink(parent, younger)

	entries := parent.ReadMap(s.PersonChilds).Entries()
	if len(entries) != 2 {
		t.Fatalf("len(childs) = %d, want 2", len(entries))
	}
	key0, _ := parent.ReadMap(s.PersonChilds).KeyOf(younger)
	key1, _ := parent.ReadMap(s.PersonChilds).KeyOf(older)
	if key0.Int() != 5 || key1.Int() != 10 {
		t.Fatalf("childs keys = (%d, %d), want (5, 10)", key0.Int(), key1.Int())
	}

	// Values() must come back in ascending key order regardless of insertion order.
	values := parent.ReadMap(s.PersonChilds).Values()
	if len(values) != 2 || values[0] != younger || values[1] != older {
		t.Fatalf("childs in insertion order, want key (age) order: %v", values)
	}

	if got := younger.ReadSet(s.PersonParents).Items(); len(got) != 1 || got[0] != parent {
		t.Fatalf("younger.parents = %v, want [parent]", got)
	}
}

// TestChildsMapKeyDriftRepairedByRebuildMap covers §8 Scenario F: changing a
// child's age after insertion leaves the map's key stale until RebuildMap is
// called.
func TestChildsMapKeyDriftRepairedByRebuildMap(t *testing.T) {
	s, m := newModel(t)
	parent, _ := m.NewInstance(s.Person, nil)
	child, _ := m.NewInstance(s.Person, map[emf.Property]any{s.PersonAge: emf.IntValue(5)})
	s.PersonChilds.AddLink(parent, child)

	if err := s.PersonAge.UpdateValue(child, emf.IntValue(42)); err != nil {
		t.Fatalf("UpdateValue(age): %v", err)
	}

	staleKey, _ := parent.ReadMap(s.PersonChilds).KeyOf(child)
	if staleKey.Int() != 5 {
		t.Fatalf("map key should still be stale before RebuildMap, got %d", staleKey.Int())
	}

	m.RebuildMap(s.PersonChilds)

	freshKey, _ := parent.ReadMap(s.PersonChilds).KeyOf(child)
	if freshKey.Int() != 42 {
		t.Fatalf("map key after RebuildMap = %d, want 42", freshKey.Int())
	}
}

// TestMeetingsMultiMapKeyedByDate exercises the multimap-kind meetings link,
// keyed by the Meeting's date attribute, permitting several meetings to share
// the same date (§4.2.4).
func TestMeetingsMultiMapKeyedByDate(t *testing.T) {
	s, m := newModel(t)
	alice, _ := m.NewInstance(s.Person, nil)

	day := time.Date(2026, 7, 29, 9, 0, 0, 0, time.UTC)
	standup, _ := m.NewInstance(s.Meeting, map[emf.Property]any{s.MeetingDate: emf.DateTimeValue(day)})
	retro, _ := m.NewInstance(s.Meeting, map[emf.Property]any{s.MeetingDate: emf.DateTimeValue(day)})

	s.PersonMeetings.AddLink(alice, standup)
	s.PersonMeetings.AddLink(alice, retro)

	entries := alice.ReadMultiMap(s.PersonMeetings).Entries()
	if len(entries) != 2 {
		t.Fatalf("len(meetings) = %d, want 2 (multimap must allow duplicate keys)", len(entries))
	}

	if got := standup.ReadMap(s.MeetingParticipants).Values(); len(got) != 1 || got[0] != alice {
		t.Fatalf("standup.participants = %v, want [alice]", got)
	}
}

// TestParticipantsFallBackToNameKey covers the case where no SetKey was
// declared for a map property: it falls back to the target's "name"
// attribute (§4.2.4).
func TestParticipantsFallBackToNameKey(t *testing.T) {
	s, m := newModel(t)
	meeting, _ := m.NewInstance(s.Meeting, nil)
	alice, _ := m.NewInstance(s.Person, nil)
	alice.SetName("alice")

	s.MeetingParticipants.AddLink(meeting, alice)

	key, ok := meeting.ReadMap(s.MeetingParticipants).KeyOf(alice)
	if !ok {
		t.Fatalf("alice not found in participants map")
	}
	if key.String() != "alice" {
		t.Fatalf("participants key = %q, want %q", key.String(), "alice")
	}
}

// TestSexEnumeration covers the enumeration property's serialization as its
// label.
func TestSexEnumeration(t *testing.T) {
	s, m := newModel(t)
	alice, _ := m.NewInstance(s.Person, map[emf.Property]any{s.PersonSex: emf.IntValue(int64(Female))})

	if got := alice.ReadValue(s.PersonSex).Int(); got != int64(Female) {
		t.Fatalf("alice.sex = %d, want %d", got, Female)
	}
	text, ok := s.PersonSex.SerializeAttr(alice)
	if !ok || text != "Female" {
		t.Fatalf("SerializeAttr(sex) = (%q, %v), want (\"Female\", true)", text, ok)
	}
}

// TestRemovePersonHidesFromLinked covers §4.3/§4.4: removing a Person from
// the model must clear the reverse side of its non-containment links.
func TestRemovePersonHidesFromLinked(t *testing.T) {
	s, m := newModel(t)
	parent, _ := m.NewInstance(s.Person, nil)
	child, _ := m.NewInstance(s.Person, nil)
	s.PersonChilds.AddLink(parent, child)

	m.Remove(child, true)

	if got := parent.ReadMap(s.PersonChilds).Values(); len(got) != 0 {
		t.Fatalf("parent.childs = %v, want empty after removing child", got)
	}
}

// TestReAddPersonRestoresLinks covers §8 Scenario B: re-adding a previously
// removed Person must make it visible to its linked objects again, restoring
// the reverse side of every link it still holds.
func TestReAddPersonRestoresLinks(t *testing.T) {
	s, m := newModel(t)
	parent, _ := m.NewInstance(s.Person, nil)
	child, _ := m.NewInstance(s.Person, map[emf.Property]any{s.PersonAge: emf.IntValue(7)})
	s.PersonChilds.AddLink(parent, child)

	m.Remove(child, true)
	if got := parent.ReadMap(s.PersonChilds).Values(); len(got) != 0 {
		t.Fatalf("parent.childs = %v, want empty after removing child", got)
	}

	m.Add(child)
	if !m.Contains(child) {
		t.Fatalf("Model should contain child after re-add")
	}
	if got := parent.ReadMap(s.PersonChilds).Values(); len(got) != 1 || got[0] != child {
		t.Fatalf("parent.childs = %v, want [child] restored after re-add", got)
	}
	if got := child.ReadSet(s.PersonParents).Items(); len(got) != 1 || got[0] != parent {
		t.Fatalf("child.parents = %v, want [parent] restored after re-add", got)
	}
}
