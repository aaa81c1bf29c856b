package expression

import (
	"fmt"
	"strings"
	"time"

	"github.com/krew-solutions/ascetic-valang-go/valang/operators"
)

// Render prints a node in expression syntax. Composite nodes are fully
// parenthesized, so the output parses back to an equivalent tree.
func Render(node Visitable) string {
	v := &RenderVisitor{}
	if err := node.Accept(v); err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return v.String()
}

type RenderVisitor struct {
	b strings.Builder
}

func (v *RenderVisitor) String() string {
	return v.b.String()
}

func (v *RenderVisitor) VisitLiteral(n LiteralNode) error {
	switch value := n.Value().(type) {
	case nil:
		v.b.WriteString("null")
	case bool:
		fmt.Fprintf(&v.b, "%t", value)
	case string:
		v.b.WriteString(quote(value))
	case time.Time:
		v.b.WriteString("[" + value.Format(time.RFC3339Nano) + "]")
	default:
		if d, ok := operators.ToDecimal(value); ok {
			v.b.WriteString(d.String())
			return nil
		}
		s, _ := operators.StringOf(value)
		v.b.WriteString(quote(s))
	}
	return nil
}

func quote(s string) string {
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	return "'" + s + "'"
}

func (v *RenderVisitor) VisitDate(n DateNode) error {
	v.b.WriteString("[" + n.Text() + "]")
	return nil
}

func (v *RenderVisitor) VisitProperty(n PropertyNode) error {
	if len(n.Path()) == 0 {
		v.b.WriteString("this")
		return nil
	}
	v.b.WriteString(n.Path().String())
	return nil
}

func (v *RenderVisitor) VisitArithmetic(n ArithmeticNode) error {
	v.b.WriteString("(")
	if err := n.Left().Accept(v); err != nil {
		return err
	}
	v.b.WriteString(" " + string(n.Operator()) + " ")
	if err := n.Right().Accept(v); err != nil {
		return err
	}
	v.b.WriteString(")")
	return nil
}

func (v *RenderVisitor) VisitNegate(n NegateNode) error {
	v.b.WriteString("-")
	return n.Operand().Accept(v)
}

func (v *RenderVisitor) VisitCall(n CallNode) error {
	v.b.WriteString(n.Name() + "(")
	for i, arg := range n.Args() {
		if i > 0 {
			v.b.WriteString(", ")
		}
		if err := arg.Accept(v); err != nil {
			return err
		}
	}
	v.b.WriteString(")")
	return nil
}

func (v *RenderVisitor) VisitComparison(n ComparisonNode) error {
	v.b.WriteString("(")
	if err := n.Left().Accept(v); err != nil {
		return err
	}
	v.b.WriteString(" " + n.Operator().Symbol())
	separator := ", "
	if n.Operator() == operators.OperatorBetween || n.Operator() == operators.OperatorNotBetween {
		separator = " AND "
	}
	for i, operand := range n.Right() {
		if i == 0 {
			v.b.WriteString(" ")
		} else {
			v.b.WriteString(separator)
		}
		if err := operand.Accept(v); err != nil {
			return err
		}
	}
	v.b.WriteString(")")
	return nil
}

func (v *RenderVisitor) VisitLogical(n LogicalNode) error {
	v.b.WriteString("(")
	if err := n.Left().Accept(v); err != nil {
		return err
	}
	v.b.WriteString(" " + string(n.Operator()) + " ")
	if err := n.Right().Accept(v); err != nil {
		return err
	}
	v.b.WriteString(")")
	return nil
}

func (v *RenderVisitor) VisitNot(n NotNode) error {
	v.b.WriteString("NOT ")
	return n.Operand().Accept(v)
}

func (v *RenderVisitor) VisitTest(n TestNode) error {
	return n.Function().Accept(v)
}
