package apperr

import (
	"errors"
	"sort"
	"strings"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindPermission
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindPermission:
		return "permission"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// FieldError attributes a validation failure to one input field.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error is a domain failure the caller can branch on by Kind and Code.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  []FieldError
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

// Field returns the first failure recorded for name.
func (e *Error) Field(name string) (FieldError, bool) {
	for _, f := range e.Fields {
		if f.Field == name {
			return f, true
		}
	}
	return FieldError{}, false
}

func Validation(field, code, msg string) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    "validation_failed",
		Message: "validation failed",
		Fields:  []FieldError{{Field: field, Code: code, Message: msg}},
	}
}

func Conflict(code, msg string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: msg}
}

func NotFound(code, msg string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: msg}
}

func Permission(code, msg string) *Error {
	return &Error{Kind: KindPermission, Code: code, Message: msg}
}

func Unauthorized(code, msg string) *Error {
	return &Error{Kind: KindUnauthorized, Code: code, Message: msg}
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e, true
	}
	return nil, false
}

func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// IsCode reports whether err is an *Error with the given code, or a
// validation error carrying a field with that code.
func IsCode(err error, code string) bool {
	e, ok := As(err)
	if !ok {
		return false
	}
	if e.Code == code {
		return true
	}
	for _, f := range e.Fields {
		if f.Code == code {
			return true
		}
	}
	return false
}

// Validator accumulates field failures; only the first failure per
// field is kept.
type Validator struct {
	fields []FieldError
	seen   map[string]bool
}

func NewValidator() *Validator {
	return &Validator{seen: map[string]bool{}}
}

func (v *Validator) Add(field, code, msg string) {
	if v.seen[field] {
		return
	}
	v.seen[field] = true
	v.fields = append(v.fields, FieldError{Field: field, Code: code, Message: msg})
}

func (v *Validator) Check(ok bool, field, code, msg string) {
	if !ok {
		v.Add(field, code, msg)
	}
}

func (v *Validator) Failed(field string) bool {
	return v.seen[field]
}

// Err returns nil when nothing failed.
func (v *Validator) Err() error {
	if len(v.fields) == 0 {
		return nil
	}
	fields := append([]FieldError(nil), v.fields...)
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })
	return &Error{
		Kind:    KindValidation,
		Code:    "validation_failed",
		Message: "validation failed",
		Fields:  fields,
	}
}
