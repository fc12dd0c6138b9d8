package emf

import "errors"

// Schema errors (startup only).
var (
	ErrDuplicateTypeID   = errors.New("emf: duplicate MetaType id")
	ErrDuplicateTypeName = errors.New("emf: duplicate MetaType name")
	ErrMissingReverse    = errors.New("emf: link property requires a reverse")
	ErrUnknownMapKeyAttr = errors.New("emf: unknown map-key attribute")
)

// Runtime invariant errors.
var (
	ErrNotInstanciable  = errors.New("emf: type is not instanciable")
	ErrTypeMismatch     = errors.New("emf: value type is not assignment-compatible with property")
	ErrUnknownProperty  = errors.New("emf: property does not belong to this MetaType")
)
