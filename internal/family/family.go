// Package family declares a small worked-example schema -- people, their
// partners, parents, children and the meetings they attend -- on top of
// internal/emf. It plays the same role here that the package's original C++
// counterpart (SimpleExample) played for the framework it was extracted from:
// a schema exercising every property kind except the ordered link-to-many
// list, small enough to read end to end.
package family

import (
	"time"

	"github.com/dnswlt/miniemf/internal/emf"
)

// Sex is the domain of the Person.sex enumeration property.
type Sex int64

const (
	Male Sex = iota
	Female
)

// Schema holds the declared MetaTypes and Properties of the family model,
// wired and finalized by NewSchema. Application code reaches every property
// through its exported field rather than through string lookups, mirroring
// how the original generated static Property pointers per field.
type Schema struct {
	Types *emf.TypeRegistry

	Person  *emf.MetaType
	Meeting *emf.MetaType

	PersonSex      *emf.EnumerationProperty
	PersonAge      *emf.AttributeProperty
	PersonPartner  *emf.LinkToOneProperty
	PersonParents  *emf.LinkToManySetProperty
	PersonChilds   *emf.LinkToManyMapProperty
	PersonMeetings *emf.LinkToManyMultiMapProperty

	MeetingDate         *emf.AttributeProperty
	MeetingParticipants *emf.LinkToManyMapProperty
}

// NewSchema declares the Person/Meeting types and properties, wires their
// reverse links and map keys, and finalizes the registry. The returned
// Schema is read-only from that point on (§5).
func NewSchema() *Schema {
	types := emf.NewTypeRegistry()
	props := emf.NewPropertyRegistry(types)

	person, err := types.DeclareType(1, "Person", "Person", true, nil, nil)
	if err != nil {
		panic(err)
	}
	meeting, err := types.DeclareType(2, "Meeting", "Meeting", true, nil, nil)
	if err != nil {
		panic(err)
	}

	s := &Schema{
		Types:   types,
		Person:  person,
		Meeting: meeting,
	}

	s.PersonSex = emf.NewEnumerationProperty(person, "sex", "Sex", int64(Male), true)
	props.DeclareEnumValue(s.PersonSex, int64(Male), "Male")
	props.DeclareEnumValue(s.PersonSex, int64(Female), "Female")

	s.PersonAge = emf.NewAttributeProperty(person, "age", "Age", "", emf.VInt, emf.IntValue(0), true)

	// partner is its own reverse: a Link01 property paired with itself, so
	// setting a.partner = b also sets b.partner = a (§4.2.3, original source
	// linkReverseProperties(PROPERTY_partner, PROPERTY_partner)).
	s.PersonPartner = emf.NewLinkToOneProperty(person, person, "partner", "Partner", false, false, true)
	props.LinkReverse(s.PersonPartner, s.PersonPartner)

	s.PersonParents = emf.NewLinkToManySetProperty(person, person, "parents", "Parents", false, false, true)
	s.PersonChilds = emf.NewLinkToManyMapProperty(person, person, "childs", "Children", false, false, true)
	props.LinkReverse(s.PersonParents, s.PersonChilds)
	if err := props.SetKey(s.PersonChilds, s.PersonAge); err != nil {
		panic(err)
	}

	s.MeetingDate = emf.NewAttributeProperty(meeting, "date", "Date and Time", "", emf.VDateTime, emf.DateTimeValue(time.Time{}), true)
	s.MeetingParticipants = emf.NewLinkToManyMapProperty(meeting, person, "participants", "Participants", false, false, true)
	s.PersonMeetings = emf.NewLinkToManyMultiMapProperty(person, meeting, "meetings", "Meetings", false, false, true)
	props.LinkReverse(s.PersonMeetings, s.MeetingParticipants)
	if err := props.SetKey(s.PersonMeetings, s.MeetingDate); err != nil {
		panic(err)
	}
	// participants has no declared key attribute, so it falls back to each
	// participant's own "name" attribute (§4.2.4).

	if err := types.Finalize(); err != nil {
		panic(err)
	}
	return s
}
