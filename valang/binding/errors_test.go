package binding

import (
	"errors"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNestedPathStack(t *testing.T) {
	e := NewErrors("person")
	assert.Equal(t, "", e.NestedPath())

	e.PushNestedPath("addresses[1]")
	e.PushNestedPath("owner")
	e.PushNestedPath("[0]")
	assert.Equal(t, "addresses[1].owner[0]", e.NestedPath())

	require.NoError(t, e.PopNestedPath())
	require.NoError(t, e.PopNestedPath())
	assert.Equal(t, "addresses[1]", e.NestedPath())
	require.NoError(t, e.PopNestedPath())
	assert.Equal(t, "", e.NestedPath())

	assert.True(t, errors.Is(e.PopNestedPath(), ErrEmptyPathStack))
}

func TestRejectUsesNestedPath(t *testing.T) {
	e := NewErrors("person")
	e.Reject("person.invalid", nil, "invalid person")
	e.RejectValue("age", "age.range", []any{18, 65}, "age out of range")

	e.PushNestedPath("addresses[1]")
	e.RejectValue("city", "required", nil, "city is required")
	e.Reject("address.invalid", nil, "invalid address")
	require.NoError(t, e.PopNestedPath())

	require.Len(t, e.GlobalErrors(), 1)
	assert.Equal(t, "person.invalid", e.GlobalErrors()[0].Code)

	fields := e.FieldErrors()
	require.Len(t, fields, 3)
	assert.Equal(t, "age", fields[0].Field)
	assert.Equal(t, []any{18, 65}, fields[0].Args)
	assert.Equal(t, "addresses[1].city", fields[1].Field)
	assert.Equal(t, "addresses[1]", fields[2].Field)
	assert.Equal(t, "person", fields[2].Object)

	assert.Len(t, e.FieldErrorsOf("addresses[1].city"), 1)
	assert.Empty(t, e.FieldErrorsOf("addresses[0].city"))
	assert.Equal(t, 4, e.ErrorCount())
}

func TestErr(t *testing.T) {
	e := NewErrors("order")
	assert.NoError(t, e.Err())

	e.RejectValue("total", "min", nil, "too small")
	e.Reject("order.empty", nil, "no lines")

	err := e.Err()
	require.Error(t, err)
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	require.Len(t, merr.Errors, 2)
	assert.Equal(t, "order: no lines [order.empty]", merr.Errors[0].Error())
	assert.Equal(t, "total: too small [min]", merr.Errors[1].Error())

	var fe FieldError
	assert.True(t, errors.As(err, &fe))
	assert.Equal(t, "total", fe.Field)
}
