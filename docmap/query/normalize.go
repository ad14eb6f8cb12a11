package query

import (
	"fmt"
	"strconv"
	"strings"
)

// NormalizeOptions configures normalization guardrails
type NormalizeOptions struct {
	MaxPredicates int
	MaxDepth      int
}

// DefaultNormalizeOptions returns default normalization options
func DefaultNormalizeOptions() NormalizeOptions {
	return NormalizeOptions{
		MaxPredicates: 64,
		MaxDepth:      32,
	}
}

// Normalize validates guardrails and folds double negation
func Normalize(expr Expr, opts NormalizeOptions) (Expr, error) {
	if n := countPredicates(expr); opts.MaxPredicates > 0 && n > opts.MaxPredicates {
		return nil, fmt.Errorf("filter has %d predicates, limit is %d", n, opts.MaxPredicates)
	}
	if d := depth(expr); opts.MaxDepth > 0 && d > opts.MaxDepth {
		return nil, fmt.Errorf("filter nests %d levels, limit is %d", d, opts.MaxDepth)
	}
	return foldNot(expr), nil
}

func countPredicates(expr Expr) int {
	switch e := expr.(type) {
	case And:
		return countPredicates(e.Left) + countPredicates(e.Right)
	case Or:
		return countPredicates(e.Left) + countPredicates(e.Right)
	case Not:
		return countPredicates(e.Inner)
	case Pred:
		return 1
	default:
		return 0
	}
}

func depth(expr Expr) int {
	switch e := expr.(type) {
	case And:
		return 1 + max(depth(e.Left), depth(e.Right))
	case Or:
		return 1 + max(depth(e.Left), depth(e.Right))
	case Not:
		return 1 + depth(e.Inner)
	default:
		return 1
	}
}

func foldNot(expr Expr) Expr {
	switch e := expr.(type) {
	case And:
		return And{Left: foldNot(e.Left), Right: foldNot(e.Right)}
	case Or:
		return Or{Left: foldNot(e.Left), Right: foldNot(e.Right)}
	case Not:
		if inner, ok := e.Inner.(Not); ok {
			return foldNot(inner.Inner)
		}
		return Not{Inner: foldNot(e.Inner)}
	default:
		return expr
	}
}

// Paths lists the member paths referenced by expr in source order
func Paths(expr Expr) []string {
	var out []string
	var walk func(Expr)
	walk = func(expr Expr) {
		switch e := expr.(type) {
		case And:
			walk(e.Left)
			walk(e.Right)
		case Or:
			walk(e.Left)
			walk(e.Right)
		case Not:
			walk(e.Inner)
		case Pred:
			out = append(out, e.Predicate.MemberPath())
		}
	}
	walk(expr)
	return out
}

// ParamCount returns the number of "?" parameters in expr
func ParamCount(expr Expr) int {
	switch e := expr.(type) {
	case And:
		return ParamCount(e.Left) + ParamCount(e.Right)
	case Or:
		return ParamCount(e.Left) + ParamCount(e.Right)
	case Not:
		return ParamCount(e.Inner)
	case Pred:
		if c, ok := e.Predicate.(Compare); ok && c.Value.Kind == OperandParam {
			return 1
		}
	}
	return 0
}

// Format renders expr in a canonical, fully parenthesized form
func Format(expr Expr) string {
	switch e := expr.(type) {
	case And:
		return "(" + Format(e.Left) + " AND " + Format(e.Right) + ")"
	case Or:
		return "(" + Format(e.Left) + " OR " + Format(e.Right) + ")"
	case Not:
		return "NOT " + Format(e.Inner)
	case Pred:
		switch p := e.Predicate.(type) {
		case Compare:
			return p.Path + " " + p.Op.String() + " " + formatOperand(p.Value)
		case IsNull:
			if p.Negated {
				return p.Path + " IS NOT NULL"
			}
			return p.Path + " IS NULL"
		}
	}
	return "?"
}

func formatOperand(o Operand) string {
	switch o.Kind {
	case OperandString:
		return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(o.Str) + `"`
	case OperandNumber:
		if o.IsInt {
			return strconv.FormatInt(o.Int, 10)
		}
		return strconv.FormatFloat(o.Num, 'g', -1, 64)
	case OperandBool:
		return strconv.FormatBool(o.Bool)
	default:
		return "?"
	}
}
