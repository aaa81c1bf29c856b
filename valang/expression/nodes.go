package expression

import (
	"github.com/krew-solutions/ascetic-valang-go/valang/beans"
	"github.com/krew-solutions/ascetic-valang-go/valang/operators"
)

// FunctionKind tags the closed set of value producing nodes.
type FunctionKind int

const (
	KindLiteral FunctionKind = iota
	KindDate
	KindProperty
	KindArithmetic
	KindNegate
	KindCall
)

func (k FunctionKind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindDate:
		return "date"
	case KindProperty:
		return "property"
	case KindArithmetic:
		return "arithmetic"
	case KindNegate:
		return "negate"
	case KindCall:
		return "call"
	}
	return "unknown"
}

type ArithmeticOperator string

const (
	OperatorAdd ArithmeticOperator = "+"
	OperatorSub ArithmeticOperator = "-"
	OperatorMul ArithmeticOperator = "*"
	OperatorDiv ArithmeticOperator = "/"
	OperatorMod ArithmeticOperator = "%"
)

type LogicalOperator string

const (
	OperatorAnd LogicalOperator = "AND"
	OperatorOr  LogicalOperator = "OR"
)

type Visitable interface {
	Accept(Visitor) error
}

type Visitor interface {
	VisitLiteral(LiteralNode) error
	VisitDate(DateNode) error
	VisitProperty(PropertyNode) error
	VisitArithmetic(ArithmeticNode) error
	VisitNegate(NegateNode) error
	VisitCall(CallNode) error
	VisitComparison(ComparisonNode) error
	VisitLogical(LogicalNode) error
	VisitNot(NotNode) error
	VisitTest(TestNode) error
}

// Function is a value producing node.
type Function interface {
	Visitable
	Kind() FunctionKind
}

// Predicate is a boolean producing node.
type Predicate interface {
	Visitable
	predicate()
}

func Literal(value any) LiteralNode {
	return LiteralNode{value: value}
}

type LiteralNode struct {
	value any
}

func (n LiteralNode) Value() any {
	return n.value
}
func (n LiteralNode) Kind() FunctionKind {
	return KindLiteral
}
func (n LiteralNode) Accept(v Visitor) error {
	return v.VisitLiteral(n)
}

// Date keeps the literal text; it is parsed on every evaluation.
func Date(text string) DateNode {
	return DateNode{text: text}
}

type DateNode struct {
	text string
}

func (n DateNode) Text() string {
	return n.text
}
func (n DateNode) Kind() FunctionKind {
	return KindDate
}
func (n DateNode) Accept(v Visitor) error {
	return v.VisitDate(n)
}

// Property reads path from the evaluation target. An empty path denotes the
// target itself.
func Property(path beans.Path) PropertyNode {
	return PropertyNode{path: path}
}

// CompiledProperty is a Property whose path was resolved against a known
// target type ahead of evaluation.
func CompiledProperty(path beans.Path, accessor beans.Accessor) PropertyNode {
	return PropertyNode{path: path, accessor: accessor}
}

type PropertyNode struct {
	path     beans.Path
	accessor beans.Accessor
}

func (n PropertyNode) Path() beans.Path {
	return n.path
}
func (n PropertyNode) Compiled() bool {
	return n.accessor != nil
}
func (n PropertyNode) Kind() FunctionKind {
	return KindProperty
}
func (n PropertyNode) Accept(v Visitor) error {
	return v.VisitProperty(n)
}

func Arithmetic(left Function, op ArithmeticOperator, right Function) ArithmeticNode {
	return ArithmeticNode{left: left, operator: op, right: right}
}

func Add(left, right Function) ArithmeticNode {
	return Arithmetic(left, OperatorAdd, right)
}

func Sub(left, right Function) ArithmeticNode {
	return Arithmetic(left, OperatorSub, right)
}

func Mul(left, right Function) ArithmeticNode {
	return Arithmetic(left, OperatorMul, right)
}

func Div(left, right Function) ArithmeticNode {
	return Arithmetic(left, OperatorDiv, right)
}

func Mod(left, right Function) ArithmeticNode {
	return Arithmetic(left, OperatorMod, right)
}

type ArithmeticNode struct {
	left     Function
	operator ArithmeticOperator
	right    Function
}

func (n ArithmeticNode) Left() Function {
	return n.left
}
func (n ArithmeticNode) Operator() ArithmeticOperator {
	return n.operator
}
func (n ArithmeticNode) Right() Function {
	return n.right
}
func (n ArithmeticNode) Kind() FunctionKind {
	return KindArithmetic
}
func (n ArithmeticNode) Accept(v Visitor) error {
	return v.VisitArithmetic(n)
}

func Negate(operand Function) NegateNode {
	return NegateNode{operand: operand}
}

type NegateNode struct {
	operand Function
}

func (n NegateNode) Operand() Function {
	return n.operand
}
func (n NegateNode) Kind() FunctionKind {
	return KindNegate
}
func (n NegateNode) Accept(v Visitor) error {
	return v.VisitNegate(n)
}

func Call(name string, fn Callable, args ...Function) CallNode {
	return CallNode{name: name, fn: fn, args: args}
}

type CallNode struct {
	name string
	fn   Callable
	args []Function
}

func (n CallNode) Name() string {
	return n.name
}
func (n CallNode) Callable() Callable {
	return n.fn
}
func (n CallNode) Args() []Function {
	return n.args
}
func (n CallNode) Kind() FunctionKind {
	return KindCall
}
func (n CallNode) Accept(v Visitor) error {
	return v.VisitCall(n)
}

// Compare applies op to left and the right operands.
func Compare(left Function, op operators.Operator, right ...Function) ComparisonNode {
	return ComparisonNode{left: left, operator: op, right: right}
}

func Equal(left, right Function) ComparisonNode {
	return Compare(left, operators.OperatorEqual, right)
}

func NotEqual(left, right Function) ComparisonNode {
	return Compare(left, operators.OperatorNotEqual, right)
}

func LessThan(left, right Function) ComparisonNode {
	return Compare(left, operators.OperatorLessThan, right)
}

func LessThanOrEqual(left, right Function) ComparisonNode {
	return Compare(left, operators.OperatorLessThanOrEqual, right)
}

func GreaterThan(left, right Function) ComparisonNode {
	return Compare(left, operators.OperatorGreaterThan, right)
}

func GreaterThanOrEqual(left, right Function) ComparisonNode {
	return Compare(left, operators.OperatorGreaterThanOrEqual, right)
}

func Between(value, lower, upper Function) ComparisonNode {
	return Compare(value, operators.OperatorBetween, lower, upper)
}

func In(value Function, items ...Function) ComparisonNode {
	return Compare(value, operators.OperatorIn, items...)
}

func IsNull(value Function) ComparisonNode {
	return Compare(value, operators.OperatorNull)
}

func IsNotNull(value Function) ComparisonNode {
	return Compare(value, operators.OperatorNotNull)
}

type ComparisonNode struct {
	left     Function
	operator operators.Operator
	right    []Function
}

func (n ComparisonNode) Left() Function {
	return n.left
}
func (n ComparisonNode) Operator() operators.Operator {
	return n.operator
}
func (n ComparisonNode) Right() []Function {
	return n.right
}
func (n ComparisonNode) predicate() {}
func (n ComparisonNode) Accept(v Visitor) error {
	return v.VisitComparison(n)
}

func And(left Predicate, rights ...Predicate) LogicalNode {
	left, right := foldRights(And, left, rights...)
	return LogicalNode{left: left, operator: OperatorAnd, right: right}
}

func Or(left Predicate, rights ...Predicate) LogicalNode {
	left, right := foldRights(Or, left, rights...)
	return LogicalNode{left: left, operator: OperatorOr, right: right}
}

func foldRights(
	aCallable func(Predicate, ...Predicate) LogicalNode,
	aLeft Predicate,
	aRights ...Predicate,
) (left, right Predicate) {
	for len(aRights) > 1 {
		aLeft = aCallable(aLeft, aRights[0])
		aRights = aRights[1:]
	}
	return aLeft, aRights[0]
}

type LogicalNode struct {
	left     Predicate
	operator LogicalOperator
	right    Predicate
}

func (n LogicalNode) Left() Predicate {
	return n.left
}
func (n LogicalNode) Operator() LogicalOperator {
	return n.operator
}
func (n LogicalNode) Right() Predicate {
	return n.right
}
func (n LogicalNode) predicate() {}
func (n LogicalNode) Accept(v Visitor) error {
	return v.VisitLogical(n)
}

func Not(operand Predicate) NotNode {
	return NotNode{operand: operand}
}

type NotNode struct {
	operand Predicate
}

func (n NotNode) Operand() Predicate {
	return n.operand
}
func (n NotNode) predicate() {}
func (n NotNode) Accept(v Visitor) error {
	return v.VisitNot(n)
}

// Test turns a boolean valued function into a predicate.
func Test(fn Function) TestNode {
	return TestNode{fn: fn}
}

type TestNode struct {
	fn Function
}

func (n TestNode) Function() Function {
	return n.fn
}
func (n TestNode) predicate() {}
func (n TestNode) Accept(v Visitor) error {
	return v.VisitTest(n)
}
