// Package binding collects validation failures against an object graph.
//
// Errors keeps a stack of nested paths. Field names given to RejectValue are
// relative to the current nested path, so a validator working on
// addresses[1] records a failure of city as addresses[1].city.
package binding

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

var ErrEmptyPathStack = errors.New("binding: nested path stack is empty")

// FieldError is a failure of one property.
type FieldError struct {
	Object         string
	Field          string
	Code           string
	Args           []any
	DefaultMessage string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s [%s]", e.Field, e.DefaultMessage, e.Code)
}

// ObjectError is a failure of the object as a whole.
type ObjectError struct {
	Object         string
	Code           string
	Args           []any
	DefaultMessage string
}

func (e ObjectError) Error() string {
	return fmt.Sprintf("%s: %s [%s]", e.Object, e.DefaultMessage, e.Code)
}

type Errors struct {
	objectName   string
	nestedPath   string
	stack        []string
	fieldErrors  []FieldError
	globalErrors []ObjectError
}

func NewErrors(objectName string) *Errors {
	return &Errors{objectName: objectName}
}

func (e *Errors) ObjectName() string {
	return e.objectName
}

// NestedPath returns the current path prefix, e.g. addresses[1], or "" at
// the root.
func (e *Errors) NestedPath() string {
	return e.nestedPath
}

// PushNestedPath descends into segment, which is a property name or an
// index such as [2] or a combination like addresses[2].
func (e *Errors) PushNestedPath(segment string) {
	e.stack = append(e.stack, e.nestedPath)
	e.nestedPath = Join(e.nestedPath, segment)
}

// PopNestedPath restores the path active before the matching push.
func (e *Errors) PopNestedPath() error {
	if len(e.stack) == 0 {
		return ErrEmptyPathStack
	}
	last := len(e.stack) - 1
	e.nestedPath = e.stack[last]
	e.stack = e.stack[:last]
	return nil
}

// Join appends segment to path with a dot unless segment is an index.
func Join(path, segment string) string {
	switch {
	case path == "":
		return segment
	case segment == "":
		return path
	case strings.HasPrefix(segment, "["):
		return path + segment
	}
	return path + "." + segment
}

// RejectValue records a failure of field below the current nested path. An
// empty field rejects the nested path itself, or the object when there is
// none.
func (e *Errors) RejectValue(field, code string, args []any, defaultMessage string) {
	path := Join(e.nestedPath, field)
	if path == "" {
		e.Reject(code, args, defaultMessage)
		return
	}
	e.fieldErrors = append(e.fieldErrors, FieldError{
		Object:         e.objectName,
		Field:          path,
		Code:           code,
		Args:           args,
		DefaultMessage: defaultMessage,
	})
}

// Reject records a failure of the object being validated. Below the root it
// lands on the current nested path.
func (e *Errors) Reject(code string, args []any, defaultMessage string) {
	if e.nestedPath != "" {
		e.RejectValue("", code, args, defaultMessage)
		return
	}
	e.globalErrors = append(e.globalErrors, ObjectError{
		Object:         e.objectName,
		Code:           code,
		Args:           args,
		DefaultMessage: defaultMessage,
	})
}

func (e *Errors) HasErrors() bool {
	return e.ErrorCount() > 0
}

func (e *Errors) ErrorCount() int {
	return len(e.fieldErrors) + len(e.globalErrors)
}

func (e *Errors) FieldErrors() []FieldError {
	return append([]FieldError(nil), e.fieldErrors...)
}

// FieldErrorsOf returns the failures recorded for one full field path.
func (e *Errors) FieldErrorsOf(field string) []FieldError {
	var result []FieldError
	for _, fe := range e.fieldErrors {
		if fe.Field == field {
			result = append(result, fe)
		}
	}
	return result
}

func (e *Errors) GlobalErrors() []ObjectError {
	return append([]ObjectError(nil), e.globalErrors...)
}

// Err folds the recorded failures into one error, global failures first.
// It returns nil when nothing was recorded.
func (e *Errors) Err() error {
	if !e.HasErrors() {
		return nil
	}
	var result *multierror.Error
	for _, ge := range e.globalErrors {
		result = multierror.Append(result, ge)
	}
	for _, fe := range e.fieldErrors {
		result = multierror.Append(result, fe)
	}
	return result
}
