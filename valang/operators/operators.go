package operators

type Operator string

const (
	// Comparison

	OperatorEqual              Operator = "EQUAL"
	OperatorNotEqual           Operator = "NOT_EQUAL"
	OperatorLessThan           Operator = "LESS_THAN"
	OperatorLessThanOrEqual    Operator = "LESS_THAN_OR_EQUAL"
	OperatorGreaterThan        Operator = "GREATER_THAN"
	OperatorGreaterThanOrEqual Operator = "GREATER_THAN_OR_EQUAL"

	// Ranges and membership

	OperatorBetween    Operator = "BETWEEN"
	OperatorNotBetween Operator = "NOT_BETWEEN"
	OperatorIn         Operator = "IN"
	OperatorNotIn      Operator = "NOT_IN"

	// Postfix

	OperatorNull    Operator = "NULL"
	OperatorNotNull Operator = "NOT_NULL"

	// String class, applied to the string form of the left operand

	OperatorHasLength      Operator = "HAS_LENGTH"
	OperatorHasNoLength    Operator = "HAS_NO_LENGTH"
	OperatorHasText        Operator = "HAS_TEXT"
	OperatorHasNoText      Operator = "HAS_NO_TEXT"
	OperatorIsBlank        Operator = "IS_BLANK"
	OperatorIsNotBlank     Operator = "IS_NOT_BLANK"
	OperatorIsWord         Operator = "IS_WORD"
	OperatorIsNotWord      Operator = "IS_NOT_WORD"
	OperatorIsLowerCase    Operator = "IS_LOWERCASE"
	OperatorIsNotLowerCase Operator = "IS_NOT_LOWERCASE"
	OperatorIsUpperCase    Operator = "IS_UPPERCASE"
	OperatorIsNotUpperCase Operator = "IS_NOT_UPPERCASE"
)

var all = []Operator{
	OperatorEqual, OperatorNotEqual,
	OperatorLessThan, OperatorLessThanOrEqual,
	OperatorGreaterThan, OperatorGreaterThanOrEqual,
	OperatorBetween, OperatorNotBetween,
	OperatorIn, OperatorNotIn,
	OperatorNull, OperatorNotNull,
	OperatorHasLength, OperatorHasNoLength,
	OperatorHasText, OperatorHasNoText,
	OperatorIsBlank, OperatorIsNotBlank,
	OperatorIsWord, OperatorIsNotWord,
	OperatorIsLowerCase, OperatorIsNotLowerCase,
	OperatorIsUpperCase, OperatorIsNotUpperCase,
}

// negations pairs every operator with its complement.
var negations = map[Operator]Operator{
	OperatorEqual:              OperatorNotEqual,
	OperatorLessThan:           OperatorGreaterThanOrEqual,
	OperatorGreaterThan:        OperatorLessThanOrEqual,
	OperatorBetween:            OperatorNotBetween,
	OperatorIn:                 OperatorNotIn,
	OperatorNull:               OperatorNotNull,
	OperatorHasLength:          OperatorHasNoLength,
	OperatorHasText:            OperatorHasNoText,
	OperatorIsBlank:            OperatorIsNotBlank,
	OperatorIsWord:             OperatorIsNotWord,
	OperatorIsLowerCase:        OperatorIsNotLowerCase,
	OperatorIsUpperCase:        OperatorIsNotUpperCase,
	OperatorNotEqual:           OperatorEqual,
	OperatorGreaterThanOrEqual: OperatorLessThan,
	OperatorLessThanOrEqual:    OperatorGreaterThan,
	OperatorNotBetween:         OperatorBetween,
	OperatorNotIn:              OperatorIn,
	OperatorNotNull:            OperatorNull,
	OperatorHasNoLength:        OperatorHasLength,
	OperatorHasNoText:          OperatorHasText,
	OperatorIsNotBlank:         OperatorIsBlank,
	OperatorIsNotWord:          OperatorIsWord,
	OperatorIsNotLowerCase:     OperatorIsLowerCase,
	OperatorIsNotUpperCase:     OperatorIsUpperCase,
}

// Operators returns the closed set of comparison operators.
func Operators() []Operator {
	return append([]Operator(nil), all...)
}

func (o Operator) String() string {
	return string(o)
}

func (o Operator) Valid() bool {
	_, ok := negations[o]
	return ok
}

// Negate returns the complementary operator. Ordering operators negate to
// their mirror, e.g. LESS_THAN to GREATER_THAN_OR_EQUAL.
func (o Operator) Negate() Operator {
	return negations[o]
}

// Arity is the number of right-hand operands the operator consumes; -1 means
// one or more.
func (o Operator) Arity() int {
	switch o {
	case OperatorBetween, OperatorNotBetween:
		return 2
	case OperatorIn, OperatorNotIn:
		return -1
	case OperatorEqual, OperatorNotEqual,
		OperatorLessThan, OperatorLessThanOrEqual,
		OperatorGreaterThan, OperatorGreaterThanOrEqual:
		return 1
	}
	return 0
}

// Symbol renders the operator the way the expression language spells it.
func (o Operator) Symbol() string {
	switch o {
	case OperatorEqual:
		return "=="
	case OperatorNotEqual:
		return "!="
	case OperatorLessThan:
		return "<"
	case OperatorLessThanOrEqual:
		return "<="
	case OperatorGreaterThan:
		return ">"
	case OperatorGreaterThanOrEqual:
		return ">="
	case OperatorBetween:
		return "BETWEEN"
	case OperatorNotBetween:
		return "NOT BETWEEN"
	case OperatorIn:
		return "IN"
	case OperatorNotIn:
		return "NOT IN"
	case OperatorNull:
		return "IS NULL"
	case OperatorNotNull:
		return "IS NOT NULL"
	case OperatorHasLength:
		return "HAS LENGTH"
	case OperatorHasNoLength:
		return "HAS NO LENGTH"
	case OperatorHasText:
		return "HAS TEXT"
	case OperatorHasNoText:
		return "HAS NO TEXT"
	case OperatorIsBlank:
		return "IS BLANK"
	case OperatorIsNotBlank:
		return "IS NOT BLANK"
	case OperatorIsWord:
		return "IS WORD"
	case OperatorIsNotWord:
		return "IS NOT WORD"
	case OperatorIsLowerCase:
		return "IS LOWERCASE"
	case OperatorIsNotLowerCase:
		return "IS NOT LOWERCASE"
	case OperatorIsUpperCase:
		return "IS UPPERCASE"
	case OperatorIsNotUpperCase:
		return "IS NOT UPPERCASE"
	}
	return string(o)
}

// EqualOperand lets value objects take part in EQUAL / NOT_EQUAL / IN.
type EqualOperand interface {
	Equal(other any) bool
}

// CompareOperand lets value objects take part in ordering comparisons.
// Compare returns a negative number, zero or a positive number.
type CompareOperand interface {
	Compare(other any) (int, error)
}
