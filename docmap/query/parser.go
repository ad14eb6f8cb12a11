package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse parses a filter string into an expression AST
func Parse(input string) (Expr, error) {
	if strings.TrimSpace(input) == "" {
		return nil, fmt.Errorf("empty filter")
	}
	tokens, err := Lex(input)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if !p.match(TokEOF) {
		return nil, fmt.Errorf("unexpected %v after expression", p.current().Kind)
	}
	return expr, nil
}

type parser struct {
	tokens []Token
	pos    int
	params int
}

func (p *parser) parseExpr() (Expr, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.match(TokOr) {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Or{Left: left, Right: right}
	}

	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}

	for p.match(TokAnd) {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = And{Left: left, Right: right}
	}

	return left, nil
}

func (p *parser) parseNot() (Expr, error) {
	if p.match(TokNot) {
		p.advance()

		// Shorthand: !Archived or NOT Archived => Archived = false
		if p.match(TokIdent) && !p.fieldedAt(1) {
			path := p.current().Value
			p.advance()
			return Pred{Predicate: Compare{Path: path, Op: CmpEq, Value: Operand{Kind: OperandBool, Bool: false}}}, nil
		}

		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return Not{Inner: inner}, nil
	}

	return p.parsePrimary()
}

// fieldedAt reports whether the token at offset continues a predicate.
func (p *parser) fieldedAt(offset int) bool {
	next := p.peek(offset).Kind
	return next == TokColon || next == TokIs || next.isComparison()
}

func (p *parser) parsePrimary() (Expr, error) {
	if p.match(TokLParen) {
		p.advance()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if !p.match(TokRParen) {
			return nil, fmt.Errorf("expected ')', got %v", p.current().Kind)
		}
		p.advance()
		return expr, nil
	}

	pred, err := p.parsePredicate()
	if err != nil {
		return nil, err
	}
	return Pred{Predicate: pred}, nil
}

func (p *parser) parsePredicate() (Predicate, error) {
	if p.match(TokEOF) {
		return nil, fmt.Errorf("unexpected end of filter")
	}
	if !p.match(TokIdent) {
		return nil, fmt.Errorf("expected member path, got %v", p.current().Kind)
	}
	path := p.current().Value
	if strings.HasPrefix(path, ".") || strings.HasSuffix(path, ".") || strings.Contains(path, "..") {
		return nil, fmt.Errorf("malformed member path %q", path)
	}
	p.advance()

	switch {
	case p.match(TokColon):
		p.advance()
		value, err := p.parseOperand(path)
		if err != nil {
			return nil, err
		}
		return Compare{Path: path, Op: CmpEq, Value: value}, nil

	case p.match(TokIs):
		p.advance()
		negated := false
		if p.match(TokNot) {
			negated = true
			p.advance()
		}
		if !p.match(TokNull) {
			return nil, fmt.Errorf("expected NULL after IS, got %v", p.current().Kind)
		}
		p.advance()
		return IsNull{Path: path, Negated: negated}, nil

	case p.current().Kind.isComparison():
		op := cmpOps[p.current().Kind]
		p.advance()
		value, err := p.parseOperand(path)
		if err != nil {
			return nil, err
		}
		return Compare{Path: path, Op: op, Value: value}, nil
	}

	// Bare path: Active => Active = true
	return Compare{Path: path, Op: CmpEq, Value: Operand{Kind: OperandBool, Bool: true}}, nil
}

var cmpOps = map[TokenKind]CmpOp{
	TokEq:  CmpEq,
	TokNe:  CmpNe,
	TokGt:  CmpGt,
	TokGte: CmpGte,
	TokLt:  CmpLt,
	TokLte: CmpLte,
}

func (p *parser) parseOperand(path string) (Operand, error) {
	tok := p.current()
	switch tok.Kind {
	case TokString:
		p.advance()
		return Operand{Kind: OperandString, Str: tok.Value}, nil
	case TokNumber:
		p.advance()
		op := Operand{Kind: OperandNumber, Num: tok.Num}
		if n, err := strconv.ParseInt(tok.Value, 10, 64); err == nil {
			op.IsInt = true
			op.Int = n
		}
		return op, nil
	case TokParam:
		p.advance()
		op := Operand{Kind: OperandParam, Param: p.params}
		p.params++
		return op, nil
	case TokIdent:
		p.advance()
		switch strings.ToLower(tok.Value) {
		case "true":
			return Operand{Kind: OperandBool, Bool: true}, nil
		case "false":
			return Operand{Kind: OperandBool, Bool: false}, nil
		}
		return Operand{Kind: OperandString, Str: tok.Value}, nil
	}
	return Operand{}, fmt.Errorf("expected value after %q, got %v", path, tok.Kind)
}

func (p *parser) current() Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return Token{Kind: TokEOF}
}

func (p *parser) peek(offset int) Token {
	pos := p.pos + offset
	if pos < len(p.tokens) {
		return p.tokens[pos]
	}
	return Token{Kind: TokEOF}
}

func (p *parser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

func (p *parser) match(kind TokenKind) bool {
	return p.current().Kind == kind
}
