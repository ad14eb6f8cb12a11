package docmap

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrUnresolvableMember ErrorKind = "unresolvable_member"
	ErrUnknownType        ErrorKind = "unknown_document_type"
	ErrSchemaDrift        ErrorKind = "schema_drift"
	ErrMapping            ErrorKind = "mapping"
	ErrConstruction       ErrorKind = "construction"
	ErrSQL                ErrorKind = "sql"
	ErrIO                 ErrorKind = "io"
	ErrQueryParse         ErrorKind = "query_parse"
	ErrQueryRejected      ErrorKind = "query_rejected"
	ErrNotFound           ErrorKind = "not_found"
)

// Error carries the offending document type and member path alongside the
// kind, so callers can report configuration problems precisely.
type Error struct {
	Kind    ErrorKind
	Message string
	Type    string
	Member  string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	base := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Type != "" {
		base = fmt.Sprintf("%s (type=%s", base, e.Type)
		if e.Member != "" {
			base = fmt.Sprintf("%s, member=%s", base, e.Member)
		}
		base += ")"
	} else if e.Member != "" {
		base = fmt.Sprintf("%s (member=%s)", base, e.Member)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func Wrap(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func MappingError(typ, member, msg string) *Error {
	return &Error{Kind: ErrMapping, Type: typ, Member: member, Message: msg}
}

func UnresolvableMemberError(typ, member string) *Error {
	return &Error{Kind: ErrUnresolvableMember, Type: typ, Member: member, Message: "member cannot be located in storage"}
}

func UnknownTypeError(typ string) *Error {
	return &Error{Kind: ErrUnknownType, Type: typ, Message: "no document mapping registered"}
}

func DriftError(typ, table string, conflicts []string) *Error {
	return &Error{
		Kind:    ErrSchemaDrift,
		Type:    typ,
		Message: fmt.Sprintf("table %s conflicts with mapping: %v", table, conflicts),
	}
}

func QueryParseError(msg string) *Error {
	return &Error{Kind: ErrQueryParse, Message: msg}
}

func QueryRejectedError(member, msg string) *Error {
	return &Error{Kind: ErrQueryRejected, Member: member, Message: msg}
}

func NotFoundError(typ string, id any) *Error {
	return &Error{Kind: ErrNotFound, Type: typ, Message: fmt.Sprintf("document not found: %v", id)}
}

func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
