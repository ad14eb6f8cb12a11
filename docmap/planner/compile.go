package planner

import (
	"fmt"
	"strings"

	"github.com/docmap/docmap/docmap/query"
	"github.com/docmap/docmap/docmap/storage"
	"github.com/docmap/docmap/docmap/storage/sqlbuilder"
)

// Field is the part of a resolved document field the planner needs.
// Minimal interface to avoid a circular dependency on the docmap package.
type Field interface {
	Kind() storage.ValueKind
	TypedLocator() string
	RawLocator() string
	UseContainmentOperator() bool
	GetValueForCompiledQueryParameter(v any) any
}

// ContainmentField is implemented by fields that can match equality by
// document containment.
type ContainmentField interface {
	ContainmentJSON(v any) (string, error)
	ContainmentLocator(placeholder string) string
}

// ValueChecker is implemented by fields that can tell a corrected constant
// will never compare with what is stored.
type ValueChecker interface {
	CheckValue(v any) error
}

// FieldResolver maps a member path onto a Field.
type FieldResolver interface {
	ResolveField(path string) (Field, error)
}

// ResolverFunc adapts a function to FieldResolver.
type ResolverFunc func(path string) (Field, error)

func (fn ResolverFunc) ResolveField(path string) (Field, error) { return fn(path) }

// RejectedError reports a filter that parses but cannot run against the
// document, such as a text literal compared with a numeric member.
type RejectedError struct {
	Path   string
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

type param struct {
	field       Field
	literal     any
	position    int // index into Bind arguments, -1 for literals
	containment bool
}

// CompiledQuery is a WHERE fragment with its parameters. Literals are already
// corrected; positional arguments are corrected by Bind. It is immutable and
// may be cached and shared.
type CompiledQuery struct {
	Filter     string
	SQL        string
	params     []param
	paramCount int
}

// ParamCount is the number of "?" arguments Bind expects.
func (q *CompiledQuery) ParamCount() int { return q.paramCount }

// Bind returns the bind values in placeholder order.
func (q *CompiledQuery) Bind(args ...any) ([]any, error) {
	if len(args) != q.paramCount {
		return nil, fmt.Errorf("filter expects %d arguments, got %d", q.paramCount, len(args))
	}
	out := make([]any, len(q.params))
	for i, p := range q.params {
		v := p.literal
		if p.position >= 0 {
			v = p.field.GetValueForCompiledQueryParameter(args[p.position])
			if err := checkValue(p.field, v); err != nil {
				return nil, fmt.Errorf("argument %d: %w", p.position+1, err)
			}
		}
		if p.containment {
			doc, err := p.field.(ContainmentField).ContainmentJSON(v)
			if err != nil {
				return nil, err
			}
			v = doc
		}
		out[i] = v
	}
	return out, nil
}

// Compiler compiles filter expressions into SQL predicates
type Compiler struct {
	resolver FieldResolver
	builder  *sqlbuilder.Builder
	params   []param
	count    int
}

// Compile compiles expr against the resolver's document fields.
func Compile(resolver FieldResolver, style sqlbuilder.PlaceholderStyle, expr query.Expr) (*CompiledQuery, error) {
	c := &Compiler{resolver: resolver, builder: sqlbuilder.New(style)}
	sql, err := c.compileExpr(expr)
	if err != nil {
		return nil, err
	}
	return &CompiledQuery{
		Filter:     query.Format(expr),
		SQL:        sql,
		params:     c.params,
		paramCount: c.count,
	}, nil
}

func (c *Compiler) compileExpr(expr query.Expr) (string, error) {
	switch e := expr.(type) {
	case query.And:
		return c.binary(e.Left, e.Right, "AND")
	case query.Or:
		return c.binary(e.Left, e.Right, "OR")
	case query.Not:
		inner, err := c.compileExpr(e.Inner)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	case query.Pred:
		return c.compilePredicate(e.Predicate)
	default:
		return "", fmt.Errorf("unsupported expression %T", expr)
	}
}

func (c *Compiler) binary(left, right query.Expr, op string) (string, error) {
	l, err := c.compileExpr(left)
	if err != nil {
		return "", err
	}
	r, err := c.compileExpr(right)
	if err != nil {
		return "", err
	}
	return "(" + l + " " + op + " " + r + ")", nil
}

func (c *Compiler) compilePredicate(pred query.Predicate) (string, error) {
	f, err := c.resolver.ResolveField(pred.MemberPath())
	if err != nil {
		return "", err
	}

	switch p := pred.(type) {
	case query.IsNull:
		if p.Negated {
			return f.RawLocator() + " IS NOT NULL", nil
		}
		return f.RawLocator() + " IS NULL", nil

	case query.Compare:
		if err := checkOperand(p, f.Kind()); err != nil {
			return "", err
		}
		prm := param{field: f, position: -1}
		if p.Value.Kind == query.OperandParam {
			prm.position = p.Value.Param
			c.count = max(c.count, p.Value.Param+1)
		} else {
			prm.literal = f.GetValueForCompiledQueryParameter(p.Value.Value())
			if err := checkValue(f, prm.literal); err != nil {
				return "", &RejectedError{Path: p.Path, Reason: err.Error()}
			}
		}

		if cf, ok := f.(ContainmentField); ok && p.Op == query.CmpEq && f.UseContainmentOperator() {
			prm.containment = true
			if prm.position < 0 {
				doc, err := cf.ContainmentJSON(prm.literal)
				if err != nil {
					return "", &RejectedError{Path: p.Path, Reason: err.Error()}
				}
				prm.literal = doc
				prm.containment = false
			}
			return cf.ContainmentLocator(c.arg(prm)), nil
		}
		return f.TypedLocator() + " " + p.Op.SQL() + " " + c.arg(prm), nil
	}
	return "", fmt.Errorf("unsupported predicate %T", pred)
}

func checkValue(f Field, v any) error {
	if vc, ok := f.(ValueChecker); ok {
		return vc.CheckValue(v)
	}
	return nil
}

func (c *Compiler) arg(p param) string {
	c.params = append(c.params, p)
	return c.builder.Arg(nil)
}

// checkOperand rejects literals that can never compare with the member kind.
func checkOperand(p query.Compare, kind storage.ValueKind) error {
	v := p.Value
	if v.Kind == query.OperandParam {
		return nil
	}
	switch kind {
	case storage.KindInt, storage.KindInt64, storage.KindFloat:
		if v.Kind != query.OperandNumber {
			return &RejectedError{Path: p.Path, Reason: "numeric member compared with " + describe(v)}
		}
		if kind != storage.KindFloat && !v.IsInt {
			return &RejectedError{Path: p.Path, Reason: "integer member compared with a fractional number"}
		}
	case storage.KindBool:
		if v.Kind != query.OperandBool {
			return &RejectedError{Path: p.Path, Reason: "boolean member compared with " + describe(v)}
		}
		if p.Op != query.CmpEq && p.Op != query.CmpNe {
			return &RejectedError{Path: p.Path, Reason: "booleans only support = and !="}
		}
	case storage.KindString, storage.KindTime, storage.KindUUID:
		if v.Kind != query.OperandString {
			return &RejectedError{Path: p.Path, Reason: "text member compared with " + describe(v)}
		}
	case storage.KindEnum:
		if v.Kind != query.OperandString && !(v.Kind == query.OperandNumber && v.IsInt) {
			return &RejectedError{Path: p.Path, Reason: "enum member compared with " + describe(v)}
		}
	case storage.KindObject:
		return &RejectedError{Path: p.Path, Reason: "object members only support IS NULL"}
	}
	return nil
}

func describe(v query.Operand) string {
	switch v.Kind {
	case query.OperandString:
		return "text " + fmt.Sprintf("%q", v.Str)
	case query.OperandNumber:
		return "a number"
	case query.OperandBool:
		return "a boolean"
	default:
		return "a parameter"
	}
}

// Explain renders the compiled SQL with its literal values for diagnostics.
func Explain(q *CompiledQuery) string {
	var b strings.Builder
	b.WriteString(q.SQL)
	for i, p := range q.params {
		if p.position >= 0 {
			fmt.Fprintf(&b, "\n  #%d <- argument %d", i+1, p.position+1)
			continue
		}
		fmt.Fprintf(&b, "\n  #%d = %v", i+1, p.literal)
	}
	return b.String()
}
