package query

// Expr represents a filter expression
type Expr interface {
	isExpr()
}

// And represents a boolean AND of two expressions
type And struct {
	Left  Expr
	Right Expr
}

func (And) isExpr() {}

// Or represents a boolean OR of two expressions
type Or struct {
	Left  Expr
	Right Expr
}

func (Or) isExpr() {}

// Not represents a boolean NOT of an expression
type Not struct {
	Inner Expr
}

func (Not) isExpr() {}

// Pred wraps a predicate as an expression
type Pred struct {
	Predicate Predicate
}

func (Pred) isExpr() {}

// Predicate represents a filter predicate on one member path
type Predicate interface {
	isPredicate()
	MemberPath() string
}

// CmpOp is a comparison operator
type CmpOp int

const (
	CmpEq CmpOp = iota
	CmpNe
	CmpGt
	CmpGte
	CmpLt
	CmpLte
)

func (op CmpOp) String() string {
	switch op {
	case CmpEq:
		return "="
	case CmpNe:
		return "!="
	case CmpGt:
		return ">"
	case CmpGte:
		return ">="
	case CmpLt:
		return "<"
	case CmpLte:
		return "<="
	default:
		return "?"
	}
}

// SQL renders the operator as SQL
func (op CmpOp) SQL() string {
	if op == CmpNe {
		return "<>"
	}
	return op.String()
}

// OperandKind is the type of a comparison operand
type OperandKind int

const (
	OperandString OperandKind = iota
	OperandNumber
	OperandBool
	OperandParam // positional "?" bound at execution
)

// Operand is the right-hand side of a comparison
type Operand struct {
	Kind  OperandKind
	Str   string
	Num   float64
	Int   int64
	IsInt bool
	Bool  bool
	// Param is the zero-based position of a "?" parameter
	Param int
}

// Value returns the literal as a Go value; params return nil
func (o Operand) Value() any {
	switch o.Kind {
	case OperandString:
		return o.Str
	case OperandNumber:
		if o.IsInt {
			return o.Int
		}
		return o.Num
	case OperandBool:
		return o.Bool
	default:
		return nil
	}
}

// Compare compares a member path against an operand
type Compare struct {
	Path  string
	Op    CmpOp
	Value Operand
}

func (Compare) isPredicate()         {}
func (c Compare) MemberPath() string { return c.Path }

// IsNull matches documents where the member is missing or null
type IsNull struct {
	Path    string
	Negated bool
}

func (IsNull) isPredicate()         {}
func (n IsNull) MemberPath() string { return n.Path }
