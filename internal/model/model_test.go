package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dnswlt/miniemf/internal/emf"
)

func namesOf(objs []*emf.Object) []string {
	names := make([]string, len(objs))
	for i, o := range objs {
		names[i] = o.Name()
	}
	return names
}

// testSchema is a minimal two-type schema (a containing Team with a
// containment list of Members, plus a reflexive "buddy" link-to-one on
// Member) used to exercise Model without depending on the family package.
type testSchema struct {
	types    *emf.TypeRegistry
	team     *emf.MetaType
	member   *emf.MetaType
	members  *emf.LinkToManyListProperty
	teamOf   *emf.LinkToOneProperty
	buddy    *emf.LinkToOneProperty
	buddyRev *emf.LinkToOneProperty
}

func newTestSchema(t *testing.T) *testSchema {
	t.Helper()
	types := emf.NewTypeRegistry()
	reg := emf.NewPropertyRegistry(types)

	team, err := types.DeclareType(1, "Team", "Team", true, nil, nil)
	if err != nil {
		t.Fatalf("DeclareType(Team): %v", err)
	}
	member, err := types.DeclareType(2, "Member", "Member", true, nil, nil)
	if err != nil {
		t.Fatalf("DeclareType(Member): %v", err)
	}

	members := emf.NewLinkToManyListProperty(team, member, "members", "Members", false, true, true)
	teamOf := emf.NewLinkToOneProperty(member, team, "team", "Team", false, false, true)
	reg.LinkReverse(members, teamOf)
	reg.SetContainment(members)

	buddy := emf.NewLinkToOneProperty(member, member, "buddy", "Buddy", false, false, true)
	buddyRev := emf.NewLinkToOneProperty(member, member, "buddyOf", "BuddyOf", false, false, true)
	reg.LinkReverse(buddy, buddyRev)

	if err := types.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	return &testSchema{
		types:    types,
		team:     team,
		member:   member,
		members:  members,
		teamOf:   teamOf,
		buddy:    buddy,
		buddyRev: buddyRev,
	}
}

func TestAddContainsRemove(t *testing.T) {
	s := newTestSchema(t)
	m := New(s.types, "m1")

	team, err := m.NewInstance(s.team, nil)
	if err != nil {
		t.Fatalf("NewInstance(Team): %v", err)
	}
	if !m.Contains(team) {
		t.Fatalf("Model should contain freshly added Team")
	}

	m.Remove(team, true)
	if m.Contains(team) {
		t.Fatalf("Model should not contain Team after Remove")
	}
	if team.State() != emf.RemovedFromModel {
		t.Fatalf("team.State() = %v, want RemovedFromModel", team.State())
	}
}

func TestContainmentReverseLink(t *testing.T) {
	s := newTestSchema(t)
	m := New(s.types, "m1")

	team, err := m.NewInstance(s.team, nil)
	if err != nil {
		t.Fatalf("NewInstance(Team): %v", err)
	}
	alice, err := m.NewInstance(s.member, map[emf.Property]any{
		s.teamOf: team,
	})
	if err != nil {
		t.Fatalf("NewInstance(Member): %v", err)
	}

	members := team.ReadList(s.members).Items()
	if len(members) != 1 || members[0] != alice {
		t.Fatalf("team.members = %v, want [alice]", members)
	}
	if got := alice.ReadOne(s.teamOf); got != team {
		t.Fatalf("alice.team = %v, want team", got)
	}
}

func TestGetByIDAndName(t *testing.T) {
	s := newTestSchema(t)
	m := New(s.types, "m1")

	team, _ := m.NewInstance(s.team, nil)
	team.SetName("Falcons")

	got, ok := m.GetByID(s.team, team.ID())
	if !ok || got != team {
		t.Fatalf("GetByID = (%v, %v), want (team, true)", got, ok)
	}

	got, ok = m.GetByName(s.team, "Falcons")
	if !ok || got != team {
		t.Fatalf("GetByName = (%v, %v), want (team, true)", got, ok)
	}

	if _, ok := m.GetByID(s.team, "does-not-exist"); ok {
		t.Fatalf("GetByID found an object that was never added")
	}
}

func TestGetObjectsOrderedByName(t *testing.T) {
	s := newTestSchema(t)
	m := New(s.types, "m1")

	names := []string{"charlie", "alice", "bob"}
	for _, n := range names {
		o, _ := m.NewInstance(s.member, nil)
		o.SetName(n)
	}

	ordered := m.GetObjectsOrderedByName(s.member, false, nil)
	want := []string{"alice", "bob", "charlie"}
	if diff := cmp.Diff(want, namesOf(ordered)); diff != "" {
		t.Errorf("GetObjectsOrderedByName mismatch (-want +got):\n%s", diff)
	}
}

func TestCloneReflexiveLinkToOne(t *testing.T) {
	s := newTestSchema(t)
	m := New(s.types, "m1")

	a, _ := m.NewInstance(s.member, nil)
	b, _ := m.NewInstance(s.member, nil)
	a.SetName("a")
	b.SetName("b")
	if err := s.buddy.UpdateValue(a, b); err != nil {
		t.Fatalf("UpdateValue(buddy): %v", err)
	}

	clone := m.Clone()

	ca, ok := clone.GetByID(s.member, a.ID())
	if !ok {
		t.Fatalf("clone missing member a")
	}
	cb, ok := clone.GetByID(s.member, b.ID())
	if !ok {
		t.Fatalf("clone missing member b")
	}
	if ca == a || cb == b {
		t.Fatalf("clone must produce distinct Object identities")
	}
	if got := ca.ReadOne(s.buddy); got != cb {
		t.Fatalf("ca.buddy = %v, want cb", got)
	}
	if got := cb.ReadOne(s.buddyRev); got != ca {
		t.Fatalf("cb.buddyOf = %v, want ca (reverse link not preserved by clone)", got)
	}
}

func TestCloneContainmentList(t *testing.T) {
	s := newTestSchema(t)
	m := New(s.types, "m1")

	team, _ := m.NewInstance(s.team, nil)
	team.SetName("Falcons")
	for _, n := range []string{"x", "y"} {
		o, _ := m.NewInstance(s.member, map[emf.Property]any{s.teamOf: team})
		o.SetName(n)
	}

	clone := m.Clone()
	cTeam, ok := clone.GetByName(s.team, "Falcons")
	if !ok {
		t.Fatalf("clone missing team")
	}
	cMembers := cTeam.ReadList(s.members).Items()
	if len(cMembers) != 2 {
		t.Fatalf("len(clone members) = %d, want 2", len(cMembers))
	}
	for _, cm := range cMembers {
		if cm.ReadOne(s.teamOf) != cTeam {
			t.Errorf("clone member %q: team = %v, want cTeam", cm.Name(), cm.ReadOne(s.teamOf))
		}
	}
}

func TestShallowCopySubsetAndCloneSubset(t *testing.T) {
	s := newTestSchema(t)
	m := New(s.types, "m1")

	team1, _ := m.NewInstance(s.team, nil)
	team1.SetName("InSubset")
	team2, _ := m.NewInstance(s.team, nil)
	team2.SetName("OutsideSubset")
	member1, _ := m.NewInstance(s.member, map[emf.Property]any{s.teamOf: team1})
	member1.SetName("m1")
	member2, _ := m.NewInstance(s.member, map[emf.Property]any{s.teamOf: team2})
	member2.SetName("m2")

	sub := m.ShallowCopySubset([]*emf.Object{team1}, nil, false)
	if !sub.Contains(team1) || !sub.Contains(member1) {
		t.Fatalf("subset missing seed's reachable objects")
	}
	if sub.Contains(team2) || sub.Contains(member2) {
		t.Fatalf("subset should not contain objects unreachable from the seed")
	}
	if sub.IsOwning() {
		t.Fatalf("ShallowCopySubset must return a non-owning projection")
	}

	clone := m.CloneSubset([]*emf.Object{team1})
	if !clone.IsOwning() {
		t.Fatalf("CloneSubset must return an owning Model")
	}
	cTeam, ok := clone.GetByName(s.team, "InSubset")
	if !ok {
		t.Fatalf("cloned subset missing team")
	}
	if cTeam == team1 {
		t.Fatalf("CloneSubset must not share identity with the source Model")
	}
}

func TestGetCopyName(t *testing.T) {
	s := newTestSchema(t)
	m := New(s.types, "m1")

	a, _ := m.NewInstance(s.team, nil)
	a.SetName("Falcons")

	if got, want := m.GetCopyName(a), "Falcons_copy"; got != want {
		t.Fatalf("GetCopyName = %q, want %q", got, want)
	}

	taken, _ := m.NewInstance(s.team, nil)
	taken.SetName("Falcons_copy")

	if got, want := m.GetCopyName(a), "Falcons_copy_2"; got != want {
		t.Fatalf("GetCopyName = %q, want %q", got, want)
	}
}

func TestValidateMandatoryLink(t *testing.T) {
	types := emf.NewTypeRegistry()
	reg := emf.NewPropertyRegistry(types)
	a, _ := types.DeclareType(1, "A", "A", true, nil, nil)
	b, _ := types.DeclareType(2, "B", "B", true, nil, nil)
	aToB := emf.NewLinkToOneProperty(a, b, "b", "B", true, false, true)
	bToA := emf.NewLinkToOneProperty(b, a, "a", "A", false, false, true)
	reg.LinkReverse(aToB, bToA)
	if err := types.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	m := New(types, "m1")
	obj, _ := m.NewInstance(a, nil)

	var errs []string
	m.ValidateModel(&errs)
	if len(errs) == 0 {
		t.Fatalf("expected a validation error for unset mandatory link")
	}

	other, _ := m.NewInstance(b, nil)
	if err := aToB.UpdateValue(obj, other); err != nil {
		t.Fatalf("UpdateValue: %v", err)
	}
	errs = nil
	m.ValidateModel(&errs)
	if len(errs) != 0 {
		t.Fatalf("unexpected validation errors after satisfying mandatory link: %v", errs)
	}
}

func TestModelEqual(t *testing.T) {
	s := newTestSchema(t)
	m1 := New(s.types, "m1")
	m2 := New(s.types, "m2")

	if !m1.Equal(m2) {
		t.Fatalf("two empty Models should be Equal")
	}

	a, _ := m1.NewInstance(s.team, nil)
	if m1.Equal(m2) {
		t.Fatalf("Models with different contents should not be Equal")
	}

	m2.Add(a)
	if !m1.Equal(m2) {
		t.Fatalf("Models sharing the same object ids should be Equal")
	}
}
