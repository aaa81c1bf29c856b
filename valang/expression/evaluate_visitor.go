package expression

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/krew-solutions/ascetic-valang-go/valang/beans"
	"github.com/krew-solutions/ascetic-valang-go/valang/faults"
	"github.com/krew-solutions/ascetic-valang-go/valang/operators"
)

var (
	defaultRegistry = operators.NewDefaultRegistry()
	defaultDates    = NewDateParser()
)

type EvaluateOption func(*EvaluateVisitor)

func WithOperators(registry *operators.Registry) EvaluateOption {
	return func(v *EvaluateVisitor) {
		v.registry = registry
	}
}

func WithDateParser(dates *DateParser) EvaluateOption {
	return func(v *EvaluateVisitor) {
		v.dates = dates
	}
}

// NewEvaluateVisitor evaluates nodes against target. Properties are read
// from target; the context reaches function calls.
func NewEvaluateVisitor(ctx context.Context, target any, opts ...EvaluateOption) *EvaluateVisitor {
	v := &EvaluateVisitor{
		ctx:      ctx,
		target:   target,
		registry: defaultRegistry,
		dates:    defaultDates,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

type EvaluateVisitor struct {
	ctx          context.Context
	target       any
	registry     *operators.Registry
	dates        *DateParser
	currentValue any
}

func (v EvaluateVisitor) CurrentValue() any {
	return v.currentValue
}

func (v *EvaluateVisitor) SetCurrentValue(val any) {
	v.currentValue = val
}

func (v *EvaluateVisitor) VisitLiteral(n LiteralNode) error {
	v.SetCurrentValue(n.Value())
	return nil
}

func (v *EvaluateVisitor) VisitDate(n DateNode) error {
	t, err := v.dates.Parse(n.Text())
	if err != nil {
		return err
	}
	v.SetCurrentValue(t)
	return nil
}

func (v *EvaluateVisitor) VisitProperty(n PropertyNode) error {
	var (
		value any
		err   error
	)
	if n.accessor != nil {
		value, err = n.accessor(v.target)
	} else {
		value, err = beans.Resolve(v.target, n.Path())
	}
	if err != nil {
		return err
	}
	v.SetCurrentValue(value)
	return nil
}

func (v *EvaluateVisitor) VisitArithmetic(n ArithmeticNode) error {
	err := n.Left().Accept(v)
	if err != nil {
		return err
	}
	left := operators.Indirect(v.CurrentValue())
	err = n.Right().Accept(v)
	if err != nil {
		return err
	}
	right := operators.Indirect(v.CurrentValue())
	if left == nil || right == nil {
		v.SetCurrentValue(nil)
		return nil
	}
	l, ok := operators.ToDecimal(left)
	if !ok {
		return faults.NewArgumentTypeError(string(n.Operator()), left, "operand is not numeric")
	}
	r, ok := operators.ToDecimal(right)
	if !ok {
		return faults.NewArgumentTypeError(string(n.Operator()), right, "operand is not numeric")
	}
	result, err := arithmetic(n.Operator(), l, r)
	if err != nil {
		return err
	}
	v.SetCurrentValue(result)
	return nil
}

func arithmetic(op ArithmeticOperator, l, r decimal.Decimal) (decimal.Decimal, error) {
	switch op {
	case OperatorAdd:
		return l.Add(r), nil
	case OperatorSub:
		return l.Sub(r), nil
	case OperatorMul:
		return l.Mul(r), nil
	case OperatorDiv:
		if r.IsZero() {
			return decimal.Decimal{}, faults.NewArgumentTypeError("/", r, "division by zero")
		}
		return l.Div(r), nil
	case OperatorMod:
		if r.IsZero() {
			return decimal.Decimal{}, faults.NewArgumentTypeError("%", r, "modulo by zero")
		}
		return l.Mod(r), nil
	}
	return decimal.Decimal{}, faults.NewArgumentTypeError(string(op), l, "unknown arithmetic operator")
}

func (v *EvaluateVisitor) VisitNegate(n NegateNode) error {
	err := n.Operand().Accept(v)
	if err != nil {
		return err
	}
	operand := operators.Indirect(v.CurrentValue())
	if operand == nil {
		v.SetCurrentValue(nil)
		return nil
	}
	d, ok := operators.ToDecimal(operand)
	if !ok {
		return faults.NewArgumentTypeError("-", operand, "operand is not numeric")
	}
	v.SetCurrentValue(d.Neg())
	return nil
}

func (v *EvaluateVisitor) VisitCall(n CallNode) error {
	args := make([]any, len(n.Args()))
	for i, arg := range n.Args() {
		if err := arg.Accept(v); err != nil {
			return err
		}
		args[i] = v.CurrentValue()
	}
	result, err := n.Callable().Call(v.ctx, args)
	if err != nil {
		return err
	}
	v.SetCurrentValue(result)
	return nil
}

func (v *EvaluateVisitor) VisitComparison(n ComparisonNode) error {
	err := n.Left().Accept(v)
	if err != nil {
		return err
	}
	left := v.CurrentValue()
	right := make([]any, len(n.Right()))
	for i, operand := range n.Right() {
		if err := operand.Accept(v); err != nil {
			return err
		}
		right[i] = v.CurrentValue()
	}
	result, err := v.registry.Test(n.Operator(), left, right...)
	if err != nil {
		return err
	}
	v.SetCurrentValue(result)
	return nil
}

func (v *EvaluateVisitor) VisitLogical(n LogicalNode) error {
	err := n.Left().Accept(v)
	if err != nil {
		return err
	}
	left, err := v.Result()
	if err != nil {
		return err
	}
	if n.Operator() == OperatorAnd && !left || n.Operator() == OperatorOr && left {
		v.SetCurrentValue(left)
		return nil
	}
	err = n.Right().Accept(v)
	if err != nil {
		return err
	}
	right, err := v.Result()
	if err != nil {
		return err
	}
	v.SetCurrentValue(right)
	return nil
}

func (v *EvaluateVisitor) VisitNot(n NotNode) error {
	err := n.Operand().Accept(v)
	if err != nil {
		return err
	}
	result, err := v.Result()
	if err != nil {
		return err
	}
	v.SetCurrentValue(!result)
	return nil
}

func (v *EvaluateVisitor) VisitTest(n TestNode) error {
	err := n.Function().Accept(v)
	if err != nil {
		return err
	}
	result, ok := operators.Indirect(v.CurrentValue()).(bool)
	if !ok {
		return faults.NewArgumentTypeError("test", v.CurrentValue(), "function does not yield a boolean")
	}
	v.SetCurrentValue(result)
	return nil
}

func (v EvaluateVisitor) Result() (bool, error) {
	result := v.CurrentValue()
	resultTyped, ok := result.(bool)
	if !ok {
		return false, errors.New("the result is not a bool")
	}
	return resultTyped, nil
}

// Evaluate computes the value of fn against target.
func Evaluate(ctx context.Context, fn Function, target any, opts ...EvaluateOption) (any, error) {
	v := NewEvaluateVisitor(ctx, target, opts...)
	if err := fn.Accept(v); err != nil {
		return nil, err
	}
	return v.CurrentValue(), nil
}

// Check evaluates predicate against target.
func Check(ctx context.Context, predicate Predicate, target any, opts ...EvaluateOption) (bool, error) {
	v := NewEvaluateVisitor(ctx, target, opts...)
	if err := predicate.Accept(v); err != nil {
		return false, err
	}
	return v.Result()
}
