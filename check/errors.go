package check

import (
	"fmt"

	"github.com/smasher164/cdl/lexer"
	"github.com/smasher164/cdl/types"
)

// Error is implemented by every error reported against a source range.
type Error interface {
	error
	Pos() lexer.Span
}

var (
	_ Error = (*UnknownIdentifierError)(nil)
	_ Error = (*UnknownTypeError)(nil)
	_ Error = (*AccessError)(nil)
	_ Error = (*MatchError)(nil)
	_ Error = (*ElementError)(nil)
	_ Error = (*SourceError)(nil)
)

type UnknownIdentifierError struct {
	Name string
	Span lexer.Span
}

func (e *UnknownIdentifierError) Error() string { return "unknown identifier " + e.Name }

func (e *UnknownIdentifierError) Pos() lexer.Span { return e.Span }

type UnknownTypeError struct {
	Name string
	Span lexer.Span
}

func (e *UnknownTypeError) Error() string { return "unknown type " + e.Name }

func (e *UnknownTypeError) Pos() lexer.Span { return e.Span }

type AccessKind int

const (
	// UnknownMember: the enum has no case of that name.
	UnknownMember AccessKind = iota
	// UnknownProperty: the struct has no property of that name.
	UnknownProperty
	// CannotAccess: the value is neither a struct nor an enum.
	CannotAccess
)

// AccessError reports an invalid a.b or a?.b.
type AccessError struct {
	Kind AccessKind
	Type types.Type
	Name string
	Span lexer.Span
}

func (e *AccessError) Error() string {
	switch e.Kind {
	case UnknownMember:
		return fmt.Sprintf("%s has no member %s", e.Type, e.Name)
	case UnknownProperty:
		return fmt.Sprintf("%s has no property %s", e.Type, e.Name)
	}
	return fmt.Sprintf("cannot access %s on value of type %s", e.Name, e.Type)
}

func (e *AccessError) Pos() lexer.Span { return e.Span }

type MatchKind int

const (
	// Unhandled: the subject's type cannot be matched on.
	Unhandled MatchKind = iota
	// Incomplete: no arm covers a literal boolean subject.
	Incomplete
	// BadPattern: an arm's pattern cannot match the subject's type.
	BadPattern
)

type MatchError struct {
	Kind    MatchKind
	Subject types.Type
	Span    lexer.Span
}

func (e *MatchError) Error() string {
	switch e.Kind {
	case Incomplete:
		return "no match arm covers the subject"
	case BadPattern:
		return fmt.Sprintf("pattern cannot match a value of type %s", e.Subject)
	}
	return fmt.Sprintf("cannot match on a value of type %s", e.Subject)
}

func (e *MatchError) Pos() lexer.Span { return e.Span }

type ElementKind int

const (
	// NotComponent: an upper-case tag does not name a component.
	NotComponent ElementKind = iota
	// UnknownAttr: the component declares no prop of that name.
	UnknownAttr
	// MismatchedAttr: the attribute's value is not assignable to the prop.
	MismatchedAttr
)

// ElementError reports a misuse of a component in markup.
type ElementError struct {
	Kind    ElementKind
	Element string
	Attr    string
	Got     types.Type
	Want    types.Type
	Span    lexer.Span
}

func (e *ElementError) Error() string {
	switch e.Kind {
	case UnknownAttr:
		return fmt.Sprintf("%s has no prop %s", e.Element, e.Attr)
	case MismatchedAttr:
		return fmt.Sprintf("cannot use %s as %s for prop %s of %s", e.Got, e.Want, e.Attr, e.Element)
	}
	return fmt.Sprintf("<%s> does not name a component (it is %s)", e.Element, e.Got)
}

func (e *ElementError) Pos() lexer.Span { return e.Span }

// SourceError attributes an error to the file whose declarations raised it.
// Property types are resolved in the scope of the declaring module, so an
// error can surface while checking a different file.
type SourceError struct {
	Filename string
	Err      Error
}

func (e *SourceError) Error() string { return e.Err.Error() }

func (e *SourceError) Pos() lexer.Span { return e.Err.Pos() }

func (e *SourceError) Unwrap() error { return e.Err }
