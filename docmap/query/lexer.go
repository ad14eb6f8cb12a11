package query

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Token is one lexeme of a filter. Pos is the rune offset it starts at.
type Token struct {
	Kind  TokenKind
	Value string
	Num   float64
	Pos   int
}

type TokenKind int

const (
	TokIdent TokenKind = iota
	TokString
	TokNumber
	TokParam
	TokColon
	TokAnd
	TokOr
	TokNot
	TokIs
	TokNull
	TokLParen
	TokRParen
	TokEq
	TokNe
	TokGt
	TokGte
	TokLt
	TokLte
	TokEOF
)

var tokenNames = [...]string{
	TokIdent:  "Ident",
	TokString: "String",
	TokNumber: "Number",
	TokParam:  "Param",
	TokColon:  "Colon",
	TokAnd:    "And",
	TokOr:     "Or",
	TokNot:    "Not",
	TokIs:     "Is",
	TokNull:   "Null",
	TokLParen: "LParen",
	TokRParen: "RParen",
	TokEq:     "Eq",
	TokNe:     "Ne",
	TokGt:     "Gt",
	TokGte:    "Gte",
	TokLt:     "Lt",
	TokLte:    "Lte",
	TokEOF:    "EOF",
}

func (k TokenKind) String() string {
	if k >= 0 && int(k) < len(tokenNames) {
		return tokenNames[k]
	}
	return "Unknown"
}

func (k TokenKind) isComparison() bool {
	return k >= TokEq && k <= TokLte
}

// operators maps symbol spellings to tokens; two-rune spellings are tried
// before single runes.
var operators = map[string]TokenKind{
	"!=": TokNe,
	"<>": TokNe,
	">=": TokGte,
	"<=": TokLte,
	":":  TokColon,
	"(":  TokLParen,
	")":  TokRParen,
	"&":  TokAnd,
	"|":  TokOr,
	"!":  TokNot,
	"?":  TokParam,
	"=":  TokEq,
	">":  TokGt,
	"<":  TokLt,
}

var keywords = map[string]TokenKind{
	"AND":  TokAnd,
	"OR":   TokOr,
	"NOT":  TokNot,
	"IS":   TokIs,
	"NULL": TokNull,
}

// Lexer tokenizes a filter string
type Lexer struct {
	input []rune
	pos   int
}

func NewLexer(input string) *Lexer {
	return &Lexer{input: []rune(input)}
}

// Lex tokenizes the entire input, ending with a TokEOF token.
func Lex(input string) ([]Token, error) {
	lexer := NewLexer(input)
	var tokens []Token
	for {
		tok, err := lexer.Next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == TokEOF {
			return tokens, nil
		}
	}
}

// Next returns the next token
func (l *Lexer) Next() (Token, error) {
	l.skipWhitespace()
	start := l.pos
	if l.pos >= len(l.input) {
		return Token{Kind: TokEOF, Pos: start}, nil
	}
	ch := l.input[l.pos]

	if l.pos+1 < len(l.input) {
		if kind, ok := operators[string(l.input[l.pos:l.pos+2])]; ok {
			l.pos += 2
			return Token{Kind: kind, Pos: start}, nil
		}
	}
	if kind, ok := operators[string(ch)]; ok {
		l.pos++
		return Token{Kind: kind, Pos: start}, nil
	}

	var tok Token
	var err error
	switch {
	case ch == '"' || ch == '\'':
		tok, err = l.scanString(ch)
	case unicode.IsDigit(ch) || (ch == '-' && unicode.IsDigit(l.peek(1))):
		tok, err = l.scanNumber()
	case isIdentStart(ch):
		tok = l.scanIdent()
	default:
		return Token{}, fmt.Errorf("unexpected character %q at %d", ch, start)
	}
	tok.Pos = start
	return tok, err
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(l.input[l.pos]) {
		l.pos++
	}
}

func (l *Lexer) peek(offset int) rune {
	pos := l.pos + offset
	if pos < len(l.input) {
		return l.input[pos]
	}
	return 0
}

func (l *Lexer) scanString(quote rune) (Token, error) {
	start := l.pos
	l.pos++
	var sb strings.Builder

	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == quote {
			l.pos++
			return Token{Kind: TokString, Value: sb.String()}, nil
		}
		if ch == '\\' && l.pos+1 < len(l.input) {
			l.pos++
			switch l.input[l.pos] {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			default:
				sb.WriteRune(l.input[l.pos])
			}
			l.pos++
			continue
		}
		sb.WriteRune(ch)
		l.pos++
	}

	return Token{}, fmt.Errorf("unterminated string starting at %d", start)
}

func (l *Lexer) scanNumber() (Token, error) {
	start := l.pos

	if l.input[l.pos] == '-' {
		l.pos++
	}
	for l.pos < len(l.input) && unicode.IsDigit(l.input[l.pos]) {
		l.pos++
	}
	if l.pos < len(l.input) && l.input[l.pos] == '.' && unicode.IsDigit(l.peek(1)) {
		l.pos++
		for l.pos < len(l.input) && unicode.IsDigit(l.input[l.pos]) {
			l.pos++
		}
	}

	text := string(l.input[start:l.pos])
	num, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Token{}, fmt.Errorf("invalid number %s at %d", text, start)
	}
	return Token{Kind: TokNumber, Value: text, Num: num}, nil
}

func (l *Lexer) scanIdent() Token {
	start := l.pos
	for l.pos < len(l.input) && isIdentChar(l.input[l.pos]) {
		l.pos++
	}
	value := string(l.input[start:l.pos])
	if kind, ok := keywords[strings.ToUpper(value)]; ok {
		return Token{Kind: kind}
	}
	return Token{Kind: TokIdent, Value: value}
}

func isIdentStart(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_'
}

func isIdentChar(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' || ch == '.' || ch == '-'
}
