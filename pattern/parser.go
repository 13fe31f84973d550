package pattern

import (
	"errors"
	"strconv"
	"strings"
)

// Parser consumes the tokens of one pattern and builds its AST.
type Parser struct {
	src     string
	tokens  []Token
	current int
}

// NewParser creates a parser over tokens lexed from src. src is only used
// for error messages.
func NewParser(src string, tokens []Token) *Parser {
	return &Parser{
		src:     src,
		tokens:  tokens,
		current: 0,
	}
}

// Parse lexes and parses a pattern string.
func Parse(src string) (Expr, error) {
	tokens, err := Lex(src)
	if err != nil {
		return nil, err
	}
	return NewParser(src, tokens).Parse()
}

// Parse reads exactly one expression; leftover tokens are an error.
func (p *Parser) Parse() (Expr, error) {
	expr, err := p.parseExpr(false)
	if err != nil {
		return nil, err
	}
	if tok, ok := p.peek(); ok {
		return nil, p.errorAt(tok, "unbalanced pattern, unexpected %q", tok.Text)
	}
	return expr, nil
}

// parseExpr reads one expression. head is set for the first term of a
// sequence, where a bare name denotes a type tag.
func (p *Parser) parseExpr(head bool) (Expr, error) {
	tok, ok := p.next()
	if !ok {
		return nil, p.prematureEnd()
	}

	switch tok.Kind {
	case TokenOpenParen:
		if head {
			return nil, p.errorAt(tok, "parentheses at sequence head")
		}
		return p.parseSequence(tok)
	case TokenOpenBrace:
		alts, err := p.parseList(tok, TokenCloseBrace, "union", head)
		if err != nil {
			return nil, err
		}
		return &Union{Alts: alts, pos: tok.Pos}, nil
	case TokenOpenBracket:
		members, err := p.parseList(tok, TokenCloseBracket, "intersection", head)
		if err != nil {
			return nil, err
		}
		return &Intersect{Members: members, pos: tok.Pos}, nil
	case TokenBang:
		inner, err := p.parseExpr(head)
		if err != nil {
			return nil, err
		}
		return &Negation{Inner: inner, pos: tok.Pos}, nil
	case TokenDollar:
		inner, err := p.parseExpr(head)
		if err != nil {
			return nil, err
		}
		return &Capture{Inner: inner, pos: tok.Pos}, nil
	case TokenCaret:
		inner, err := p.parseExpr(head)
		if err != nil {
			return nil, err
		}
		return &Ascend{Inner: inner, pos: tok.Pos}, nil
	case TokenIdentifier:
		return p.parseName(tok, head)
	case TokenPredicateName:
		args, err := p.parseCallArgs(tok)
		if err != nil {
			return nil, err
		}
		return &Predicate{
			Name:    strings.TrimSuffix(tok.Text, "("),
			Args:    args,
			HasArgs: tok.hasArgList(),
			pos:     tok.Pos,
		}, nil
	case TokenFuncallName:
		args, err := p.parseCallArgs(tok)
		if err != nil {
			return nil, err
		}
		return &FuncCall{
			Name:    strings.TrimSuffix(tok.Text[1:], "("),
			Args:    args,
			HasArgs: tok.hasArgList(),
			pos:     tok.Pos,
		}, nil
	case TokenAtomLiteral, TokenNumberLiteral, TokenStringLiteral:
		lit, err := p.parseLiteral(tok)
		if err != nil {
			return nil, err
		}
		return lit, nil
	case TokenParamRef:
		param, err := p.parseParam(tok)
		if err != nil {
			return nil, err
		}
		return param, nil
	case TokenCloseParen, TokenCloseBrace, TokenCloseBracket, TokenEllipsis, TokenDollarEllipsis:
		return nil, p.errorAt(tok, "%s in invalid position", tok.Text)
	default:
		return nil, p.errorAt(tok, "invalid token %q", tok.Text)
	}
}

// parseSequence reads the rest of a parenthesized sequence after '('.
func (p *Parser) parseSequence(open Token) (Expr, error) {
	if tok, ok := p.peek(); ok && tok.Kind == TokenCloseParen {
		return nil, p.errorAt(tok, "empty parentheses")
	}

	head, err := p.parseExpr(true)
	if err != nil {
		return nil, err
	}
	node := &NodeMatch{Head: head, pos: open.Pos}

	for {
		tok, ok := p.peek()
		if !ok {
			return nil, p.prematureEnd()
		}

		switch tok.Kind {
		case TokenCloseParen:
			p.current++
			return node, nil
		case TokenEllipsis, TokenDollarEllipsis:
			if node.Rest != nil {
				return nil, p.errorAt(tok, "more than one rest marker in a sequence")
			}
			p.current++
			node.Rest = &Rest{Capture: tok.Kind == TokenDollarEllipsis, pos: tok.Pos}
			continue
		}

		term, err := p.parseExpr(false)
		if err != nil {
			return nil, err
		}
		if node.Rest == nil {
			node.Before = append(node.Before, term)
		} else {
			node.After = append(node.After, term)
		}
	}
}

// parseList reads the members of a union or intersection up to the closing
// token.
func (p *Parser) parseList(open Token, closing TokenKind, what string, head bool) ([]Expr, error) {
	if tok, ok := p.peek(); ok && tok.Kind == closing {
		return nil, p.errorAt(open, "empty %s", what)
	}

	var exprs []Expr
	for {
		tok, ok := p.peek()
		if !ok {
			return nil, p.prematureEnd()
		}
		if tok.Kind == closing {
			p.current++
			return exprs, nil
		}
		expr, err := p.parseExpr(head)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
	}
}

// parseName handles bare identifiers: wildcards, nil, type tags at a
// sequence head and the node type shorthand elsewhere.
func (p *Parser) parseName(tok Token, head bool) (Expr, error) {
	text := tok.Text
	if strings.HasSuffix(text, "(") || strings.HasSuffix(text, "!") {
		return nil, p.errorAt(tok, "invalid token %q", text)
	}

	switch {
	case text == "_":
		return &Any{pos: tok.Pos}, nil
	case strings.HasPrefix(text, "_"):
		return &Wildcard{Name: text[1:], pos: tok.Pos}, nil
	case head:
		return &Literal{Value: Atom(text), pos: tok.Pos}, nil
	case text == "nil":
		return &Literal{Value: nil, pos: tok.Pos}, nil
	}

	// a bare type name is shorthand for (name ...)
	return &NodeMatch{
		Head: &Literal{Value: Atom(text), pos: tok.Pos},
		Rest: &Rest{pos: tok.Pos},
		pos:  tok.Pos,
	}, nil
}

// parseCallArgs reads the argument list of a predicate or funcall token
// that ends in '('. Arguments may be separated by whitespace or commas.
func (p *Parser) parseCallArgs(call Token) ([]Expr, error) {
	if !call.hasArgList() {
		return nil, nil
	}

	var args []Expr
	for {
		tok, ok := p.next()
		if !ok {
			return nil, p.prematureEnd()
		}

		switch {
		case tok.Kind == TokenCloseParen:
			return args, nil
		case tok.Kind == TokenOther && tok.Text == ",":
			continue
		case tok.Kind == TokenIdentifier && tok.Text == "nil":
			args = append(args, &Literal{Value: nil, pos: tok.Pos})
		case tok.Kind == TokenIdentifier && strings.HasPrefix(tok.Text, "_") && len(tok.Text) > 1:
			args = append(args, &Wildcard{Name: tok.Text[1:], pos: tok.Pos})
		case tok.Kind == TokenAtomLiteral, tok.Kind == TokenNumberLiteral, tok.Kind == TokenStringLiteral:
			lit, err := p.parseLiteral(tok)
			if err != nil {
				return nil, err
			}
			args = append(args, lit)
		case tok.Kind == TokenParamRef:
			param, err := p.parseParam(tok)
			if err != nil {
				return nil, err
			}
			args = append(args, param)
		case tok.isClosing():
			return nil, p.errorAt(tok, "%s in invalid position", tok.Text)
		default:
			return nil, p.errorAt(tok, "invalid token in arglist: %q", tok.Text)
		}
	}
}

func (p *Parser) parseLiteral(tok Token) (*Literal, error) {
	value, err := literalValue(tok)
	if err != nil {
		return nil, p.errorAt(tok, "%s", err.Error())
	}
	return &Literal{Value: value, pos: tok.Pos}, nil
}

func (p *Parser) parseParam(tok Token) (*Param, error) {
	if tok.Text == "%" {
		return &Param{Index: 1, pos: tok.Pos}, nil
	}
	n, err := strconv.Atoi(tok.Text[1:])
	if err != nil {
		return nil, p.errorAt(tok, "invalid parameter %q", tok.Text)
	}
	return &Param{Index: n, pos: tok.Pos}, nil
}

// literalValue converts an atom, number or string token to its value.
func literalValue(tok Token) (any, error) {
	switch tok.Kind {
	case TokenAtomLiteral:
		return Atom(tok.Text[1:]), nil
	case TokenNumberLiteral:
		if strings.Contains(tok.Text, ".") {
			f, err := strconv.ParseFloat(tok.Text, 64)
			if err != nil {
				return nil, errors.New("invalid number " + tok.Text)
			}
			return f, nil
		}
		i, err := strconv.ParseInt(tok.Text, 10, 64)
		if err != nil {
			return nil, errors.New("invalid number " + tok.Text)
		}
		return i, nil
	case TokenStringLiteral:
		if s, err := strconv.Unquote(tok.Text); err == nil {
			return s, nil
		}
		return tok.Text[1 : len(tok.Text)-1], nil
	case TokenIdentifier:
		if tok.Text == "nil" {
			return nil, nil
		}
	}
	return nil, errors.New("invalid literal " + strconv.Quote(tok.Text))
}

// ParseLiteral parses a single pattern literal (:atom, number, "string" or
// nil), as used for match parameters supplied in configuration files.
func ParseLiteral(text string) (any, error) {
	tokens, err := Lex(text)
	if err != nil {
		return nil, err
	}
	if len(tokens) != 1 {
		return nil, newError(text, 0, "expected exactly one literal")
	}
	value, err := literalValue(tokens[0])
	if err != nil {
		return nil, newError(text, 0, "%s", err.Error())
	}
	return value, nil
}

func (p *Parser) next() (Token, bool) {
	tok, ok := p.peek()
	if ok {
		p.current++
	}
	return tok, ok
}

func (p *Parser) peek() (Token, bool) {
	if p.current >= len(p.tokens) {
		return Token{}, false
	}
	return p.tokens[p.current], true
}

func (p *Parser) errorAt(tok Token, format string, args ...any) *Error {
	return newError(p.src, tok.Pos, format, args...)
}

func (p *Parser) prematureEnd() *Error {
	return newError(p.src, len(p.src), "pattern ended prematurely")
}
