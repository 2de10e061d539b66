package domain

import "fmt"

// Kind classifies a guard failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindAdminRestricted
	KindNotFound
	KindAlreadyExists
	KindInvalidName
	KindInvalidVolume
	KindForbidden
	KindUnauthorized
	KindReadForbidden
	KindInvalidCategoryFormat
)

func (k Kind) String() string {
	switch k {
	case KindAdminRestricted:
		return "admin restricted"
	case KindNotFound:
		return "not found"
	case KindAlreadyExists:
		return "already exists"
	case KindInvalidName:
		return "invalid name"
	case KindInvalidVolume:
		return "invalid volume"
	case KindForbidden:
		return "forbidden"
	case KindUnauthorized:
		return "unauthorized"
	case KindReadForbidden:
		return "read forbidden"
	case KindInvalidCategoryFormat:
		return "invalid category format"
	default:
		return "unknown error"
	}
}

// Error is a guard failure. Every aborted operation surfaces exactly one.
type Error struct {
	Kind     Kind
	Resource string
}

func (e Error) Error() string {
	if e.Resource == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Resource, e.Kind.String())
}

// Is enables errors.Is matching on the failure kind.
func (e Error) Is(target error) bool {
	if t, ok := target.(Error); ok {
		return e.Kind == t.Kind
	}
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

var (
	ErrAdminRestricted       = Error{Kind: KindAdminRestricted}
	ErrNotFound              = Error{Kind: KindNotFound}
	ErrAlreadyExists         = Error{Kind: KindAlreadyExists}
	ErrInvalidName           = Error{Kind: KindInvalidName}
	ErrInvalidVolume         = Error{Kind: KindInvalidVolume}
	ErrForbidden             = Error{Kind: KindForbidden}
	ErrUnauthorized          = Error{Kind: KindUnauthorized}
	ErrReadForbidden         = Error{Kind: KindReadForbidden}
	ErrInvalidCategoryFormat = Error{Kind: KindInvalidCategoryFormat}
)
