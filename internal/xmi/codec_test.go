package xmi

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dnswlt/miniemf/internal/emf"
	"github.com/dnswlt/miniemf/internal/family"
	"github.com/dnswlt/miniemf/internal/model"
)

// buildSimpleFamily reproduces the worked example (§8 Scenario A): Dad and
// Mum are Mat's parents, Alice and Mat are partners, and everyone attends a
// shared meeting.
func buildSimpleFamily(t *testing.T) (*family.Schema, *model.Model) {
	t.Helper()
	s := family.NewSchema()
	m := model.New(s.Types, "fam1")

	dad, _ := m.NewInstance(s.Person, map[emf.Property]any{s.PersonAge: emf.IntValue(60)})
	dad.SetName("Dad")
	mum, _ := m.NewInstance(s.Person, map[emf.Property]any{s.PersonAge: emf.IntValue(58)})
	mum.SetName("Mum")
	mat, _ := m.NewInstance(s.Person, map[emf.Property]any{s.PersonAge: emf.IntValue(30)})
	mat.SetName("Mat")
	alice, _ := m.NewInstance(s.Person, map[emf.Property]any{s.PersonAge: emf.IntValue(28)})
	alice.SetName("Alice")

	s.PersonChilds.AddLink(dad, mat)
	s.PersonChilds.AddLink(mum, mat)

	if err := s.PersonPartner.UpdateValue(alice, mat); err != nil {
		t.Fatalf("UpdateValue(partner): %v", err)
	}

	meeting, _ := m.NewInstance(s.Meeting, nil)
	meeting.SetName("FamilyDinner")
	s.PersonMeetings.AddLink(dad, meeting)
	s.PersonMeetings.AddLink(mum, meeting)
	s.PersonMeetings.AddLink(mat, meeting)
	s.PersonMeetings.AddLink(alice, meeting)

	return s, m
}

func TestRoundTripSimpleFamily(t *testing.T) {
	s, m := buildSimpleFamily(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "family.xmi")
	codec := NewCodec(FlavorXMIID, "family")
	if err := codec.Write(m, path, "miniemf-test", KindModel); err != nil {
		t.Fatalf("Write: %v", err)
	}

	loaded, err := codec.Read(s.Types, path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if !m.Equal(loaded) {
		t.Fatalf("round-tripped model is not Equal to the original")
	}

	mat, ok := m.GetByName(s.Person, "Mat")
	if !ok {
		t.Fatalf("original model missing Mat")
	}
	loadedMat, ok := loaded.GetByID(s.Person, mat.ID())
	if !ok {
		t.Fatalf("round-tripped model missing Mat (id %q)", mat.ID())
	}
	if loadedMat.Name() != "Mat" {
		t.Fatalf("loadedMat.Name() = %q, want Mat", loadedMat.Name())
	}

	loadedAlice, ok := loaded.GetByName(s.Person, "Alice")
	if !ok {
		t.Fatalf("round-tripped model missing Alice")
	}
	if got := loadedAlice.ReadOne(s.PersonPartner); got != loadedMat {
		t.Fatalf("loadedAlice.partner = %v, want loadedMat", got)
	}

	loadedDad, ok := loaded.GetByName(s.Person, "Dad")
	if !ok {
		t.Fatalf("round-tripped model missing Dad")
	}
	childs := loadedDad.ReadMap(s.PersonChilds).Values()
	if len(childs) != 1 || childs[0] != loadedMat {
		t.Fatalf("loadedDad.childs = %v, want [loadedMat]", childs)
	}

	meetings := loadedMat.ReadMultiMap(s.PersonMeetings).Values()
	if len(meetings) != 1 {
		t.Fatalf("loadedMat.meetings = %v, want exactly one meeting", meetings)
	}
	if got := meetings[0].ReadMap(s.MeetingParticipants).Values(); len(got) != 4 {
		t.Fatalf("meeting.participants = %v, want 4 attendees", got)
	}
}

func TestReadDanglingReferenceDropped(t *testing.T) {
	s := family.NewSchema()
	dir := t.TempDir()
	path := filepath.Join(dir, "dangling.xmi")

	doc := `<?xml version="1.0" encoding="UTF-8"?>
<family:Model xmlns:family="http://miniemf/family" xmlns:xmi="http://www.omg.org/XMI" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" ToolName="t" ExportVersion="1.0" Date="2026/07/29 00:00:00" ExportDescription="Model" UserId="fam1">
  <Person xmi:id="1_fam1_1" name="Solo" age="40" parents="does-not-exist"></Person>
</family:Model>`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	codec := NewCodec(FlavorXMIID, "family")
	m, err := codec.Read(s.Types, path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	solo, ok := m.GetByName(s.Person, "Solo")
	if !ok {
		t.Fatalf("missing Solo")
	}
	if got := solo.ReadSet(s.PersonParents).Items(); len(got) != 0 {
		t.Fatalf("solo.parents = %v, want empty (dangling reference must be dropped)", got)
	}
}

func TestUnknownTypeProducesParseError(t *testing.T) {
	s := family.NewSchema()
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.xmi")

	doc := `<?xml version="1.0" encoding="UTF-8"?>
<family:Model xmlns:family="http://miniemf/family" xmlns:xmi="http://www.omg.org/XMI" ToolName="t" ExportVersion="1.0" Date="2026/07/29 00:00:00" ExportDescription="Model" UserId="fam1">
  <Spaceship xmi:id="9_fam1_1"></Spaceship>
</family:Model>`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	codec := NewCodec(FlavorXMIID, "family")
	_, err := codec.Read(s.Types, path)
	if err == nil {
		t.Fatalf("expected an error for an unknown element type")
	}
	var perr *ParseError
	if !asParseError(err, &perr) {
		t.Fatalf("error %v is not a *ParseError", err)
	}
}

func asParseError(err error, target **ParseError) bool {
	pe, ok := err.(*ParseError)
	if ok {
		*target = pe
	}
	return ok
}

// polySchema declares a Group containing a list of Members, where VIP is a
// subtype of Member with one extra attribute -- just enough structure to
// exercise polymorphic containment (§4.5: a contained object whose concrete
// type is a subtype of its containment property's declared target is
// disambiguated on the wire via xsi:type).
type polySchema struct {
	types   *emf.TypeRegistry
	group   *emf.MetaType
	member  *emf.MetaType
	vip     *emf.MetaType
	members *emf.LinkToManyListProperty
	perk    *emf.AttributeProperty
}

func newPolySchema(t *testing.T) *polySchema {
	t.Helper()
	types := emf.NewTypeRegistry()
	reg := emf.NewPropertyRegistry(types)

	group, err := types.DeclareType(1, "Group", "Group", true, nil, nil)
	if err != nil {
		t.Fatalf("DeclareType(Group): %v", err)
	}
	member, err := types.DeclareType(2, "Member", "Member", true, nil, nil)
	if err != nil {
		t.Fatalf("DeclareType(Member): %v", err)
	}
	vip, err := types.DeclareType(3, "VIP", "VIP", true, member, nil)
	if err != nil {
		t.Fatalf("DeclareType(VIP): %v", err)
	}
	perk := emf.NewAttributeProperty(vip, "perk", "Perk", "", emf.VString, emf.StringValue(""), true)

	members := emf.NewLinkToManyListProperty(group, member, "members", "Members", false, true, true)
	groupOf := emf.NewLinkToOneProperty(member, group, "group", "Group", false, false, true)
	reg.LinkReverse(members, groupOf)
	reg.SetContainment(members)

	if err := types.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return &polySchema{types: types, group: group, member: member, vip: vip, members: members, perk: perk}
}

// TestRoundTripPolymorphicContainment covers §8 Scenario D: a contained
// object whose concrete type differs from its containment property's
// declared target must round-trip through XMI with its concrete type
// (and the subtype's own attributes) intact.
func TestRoundTripPolymorphicContainment(t *testing.T) {
	s := newPolySchema(t)
	m := model.New(s.types, "poly1")

	group, _ := m.NewInstance(s.group, nil)
	group.SetName("Committee")
	plain, _ := m.NewInstance(s.member, nil)
	plain.SetName("PlainMember")
	vip, _ := m.NewInstance(s.vip, map[emf.Property]any{s.perk: emf.StringValue("front-row seat")})
	vip.SetName("VIPMember")

	if err := s.members.UpdateValue(group, emf.NewLinkList(plain, vip)); err != nil {
		t.Fatalf("UpdateValue(members): %v", err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "poly.xmi")
	codec := NewCodec(FlavorXMIID, "poly")
	if err := codec.Write(m, path, "miniemf-test", KindModel); err != nil {
		t.Fatalf("Write: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(raw), `xsi:type="poly:VIP"`) {
		t.Fatalf("encoded document missing xsi:type override for VIP member:\n%s", raw)
	}

	loaded, err := codec.Read(s.types, path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !m.Equal(loaded) {
		t.Fatalf("round-tripped model is not Equal to the original")
	}

	loadedGroup, ok := loaded.GetByName(s.group, "Committee")
	if !ok {
		t.Fatalf("round-tripped model missing Committee")
	}
	loadedMembers := loadedGroup.ReadList(s.members).Items()
	if len(loadedMembers) != 2 {
		t.Fatalf("len(loadedMembers) = %d, want 2", len(loadedMembers))
	}
	loadedVIP := loadedMembers[1]
	if loadedVIP.Type() != s.vip {
		t.Fatalf("loadedMembers[1].Type() = %v, want VIP (xsi:type not honored on decode)", loadedVIP.TypeName())
	}
	if got := loadedVIP.ReadValue(s.perk).String(); got != "front-row seat" {
		t.Fatalf("loadedVIP.perk = %q, want %q", got, "front-row seat")
	}
}
