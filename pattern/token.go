package pattern

import "fmt"

// TokenKind identifies the lexical class of a Token.
type TokenKind int

const (
	TokenOther          TokenKind = iota // unrecognized byte, rejected by the parser
	TokenOpenParen                       // (
	TokenCloseParen                      // )
	TokenOpenBrace                       // {
	TokenCloseBrace                      // }
	TokenOpenBracket                     // [
	TokenCloseBracket                    // ]
	TokenBang                            // !
	TokenCaret                           // ^
	TokenDollar                          // $
	TokenDollarEllipsis                  // $...
	TokenEllipsis                        // ...
	TokenAtomLiteral                     // :name
	TokenNumberLiteral                   // 1, -2, 3.5
	TokenStringLiteral                   // "text"
	TokenIdentifier                      // send, _, _name
	TokenPredicateName                   // nil?, equal?(
	TokenFuncallName                     // #method, #method(
	TokenParamRef                        // %, %1
)

var tokenKindNames = [...]string{
	TokenOther:          "Other",
	TokenOpenParen:      "OpenParen",
	TokenCloseParen:     "CloseParen",
	TokenOpenBrace:      "OpenBrace",
	TokenCloseBrace:     "CloseBrace",
	TokenOpenBracket:    "OpenBracket",
	TokenCloseBracket:   "CloseBracket",
	TokenBang:           "Bang",
	TokenCaret:          "Caret",
	TokenDollar:         "Dollar",
	TokenDollarEllipsis: "DollarEllipsis",
	TokenEllipsis:       "Ellipsis",
	TokenAtomLiteral:    "AtomLiteral",
	TokenNumberLiteral:  "NumberLiteral",
	TokenStringLiteral:  "StringLiteral",
	TokenIdentifier:     "Identifier",
	TokenPredicateName:  "PredicateName",
	TokenFuncallName:    "FuncallName",
	TokenParamRef:       "ParamRef",
}

func (k TokenKind) String() string {
	if k >= 0 && int(k) < len(tokenKindNames) {
		return tokenKindNames[k]
	}
	return "Unknown"
}

// Token is a single lexeme of a pattern string.
type Token struct {
	Kind TokenKind
	Text string // the literal text of the token
	Pos  int    // byte offset in the pattern
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d", t.Kind, t.Text, t.Pos)
}

// isClosing reports whether the token closes a bracketed construct.
func (t Token) isClosing() bool {
	switch t.Kind {
	case TokenCloseParen, TokenCloseBrace, TokenCloseBracket:
		return true
	}
	return false
}

// hasArgList reports whether a predicate or funcall token carries an
// opening parenthesis for an explicit argument list.
func (t Token) hasArgList() bool {
	return len(t.Text) > 0 && t.Text[len(t.Text)-1] == '('
}
