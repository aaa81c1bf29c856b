// Package faults holds the error taxonomy shared by the parser, the evaluator
// and the validation engine.
//
// Parse and configuration errors are programmer errors: they abort loading of
// the affected configuration. Type mismatches raised during evaluation abort
// the running validation. Failed conditions are never errors; they are
// recorded in binding.Errors.
package faults

import (
	"errors"
	"fmt"
)

var (
	ErrParse              = errors.New("valang: parse error")
	ErrFunctionResolution = errors.New("valang: unknown function")
	ErrArgumentType       = errors.New("valang: argument type error")
	ErrTypeMismatch       = errors.New("valang: type mismatch")
	ErrConfiguration      = errors.New("valang: configuration error")
	ErrRuleEvaluation     = errors.New("valang: rule evaluation error")
)

// ParseError reports malformed expression syntax. Err carries the cause
// when a typed error, such as a wrong function arity, was found while
// parsing.
type ParseError struct {
	Message string
	Line    int
	Column  int
	Near    string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Near == "" {
		return fmt.Sprintf("parse error at line %d, column %d: %s", e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("parse error at line %d, column %d: %s (near '%s')", e.Line, e.Column, e.Message, e.Near)
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrParse}
	}
	return []error{ErrParse, e.Err}
}

// FunctionResolutionError reports a function name that no resolver knows.
type FunctionResolutionError struct {
	Name   string
	Line   int
	Column int
}

func (e *FunctionResolutionError) Error() string {
	return fmt.Sprintf("could not resolve function %q at line %d, column %d", e.Name, e.Line, e.Column)
}

func (e *FunctionResolutionError) Unwrap() error {
	return ErrFunctionResolution
}

// ArgumentTypeError reports an operand of the wrong type or a wrong arity.
type ArgumentTypeError struct {
	Operation string
	Value     any
	Reason    string
}

func NewArgumentTypeError(operation string, value any, reason string) *ArgumentTypeError {
	return &ArgumentTypeError{Operation: operation, Value: value, Reason: reason}
}

func (e *ArgumentTypeError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("%s: %s", e.Operation, e.Reason)
	}
	return fmt.Sprintf("%s: %s (got %T)", e.Operation, e.Reason, e.Value)
}

func (e *ArgumentTypeError) Unwrap() error {
	return ErrArgumentType
}

// TypeMismatchError reports a comparison across incompatible types, or a
// path segment applied to a value that cannot hold it.
type TypeMismatchError struct {
	Operation string
	Left      any
	Right     any
	Reason    string
}

func (e *TypeMismatchError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Operation, e.Reason)
	}
	return fmt.Sprintf("%s: cannot compare %T with %T", e.Operation, e.Left, e.Right)
}

func (e *TypeMismatchError) Unwrap() error {
	return ErrTypeMismatch
}

// ConfigurationError reports a rule definition missing a required attribute
// or carrying an invalid one.
type ConfigurationError struct {
	Subject string
	Reason  string
	Err     error
}

func NewConfigurationError(subject, reason string) *ConfigurationError {
	return &ConfigurationError{Subject: subject, Reason: reason}
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("invalid configuration of %s: %s", e.Subject, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrConfiguration}
	}
	return []error{ErrConfiguration, e.Err}
}

// RuleEvaluationError wraps a failure raised inside a custom validation
// method or validator.
type RuleEvaluationError struct {
	Rule string
	Path string
	Err  error
}

func (e *RuleEvaluationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("rule %q failed: %v", e.Rule, e.Err)
	}
	return fmt.Sprintf("rule %q failed at %q: %v", e.Rule, e.Path, e.Err)
}

func (e *RuleEvaluationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRuleEvaluation}
	}
	return []error{ErrRuleEvaluation, e.Err}
}

// Recovered converts a recovered panic value into an error.
func Recovered(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", r)
}
