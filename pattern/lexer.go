package pattern

import (
	"fmt"
	"sync"

	"github.com/timtadh/lexmachine"
	"github.com/timtadh/lexmachine/machines"
)

// Building blocks of the token regular expressions. Names may contain '-'
// so that hyphenated node types such as op-asgn can be written bare.
const (
	nameStart = `([a-z]|[A-Z]|_|-)`
	nameRest  = `([a-z]|[A-Z]|[0-9]|_|-)*`
	name      = nameStart + nameRest
	atomChar  = `([a-z]|[A-Z]|[0-9]|_|\+|@|\*|/|\?|!|<|>|=|~|\||%|\^|-|\$|&|:)`
)

// Rules are tried by longest match; on equal length the earlier rule wins,
// which gives meta-characters priority over params, params over numbers
// and so on.
var lexRules = []struct {
	regex string
	kind  TokenKind
	skip  bool
}{
	{regex: `( |\t|\n|\r)+`, skip: true},
	{regex: `\$\.\.\.`, kind: TokenDollarEllipsis},
	{regex: `\.\.\.`, kind: TokenEllipsis},
	{regex: `\(`, kind: TokenOpenParen},
	{regex: `\)`, kind: TokenCloseParen},
	{regex: `\{`, kind: TokenOpenBrace},
	{regex: `\}`, kind: TokenCloseBrace},
	{regex: `\[`, kind: TokenOpenBracket},
	{regex: `\]`, kind: TokenCloseBracket},
	{regex: `!`, kind: TokenBang},
	{regex: `\^`, kind: TokenCaret},
	{regex: `\$`, kind: TokenDollar},
	{regex: `%[0-9]*`, kind: TokenParamRef},
	{regex: `[\+\-]?[0-9]+(\.[0-9]+)?`, kind: TokenNumberLiteral},
	{regex: name + `\?\(?`, kind: TokenPredicateName},
	{regex: `#` + name + `(!|\?)?\(?`, kind: TokenFuncallName},
	{regex: name + `!?\(?`, kind: TokenIdentifier},
	{regex: `:(` + atomChar + `+|\[\]=?)`, kind: TokenAtomLiteral},
	{regex: `"[^"]*"`, kind: TokenStringLiteral},
}

var (
	lexOnce  sync.Once
	lexDFA   *lexmachine.Lexer
	lexError error
)

// patternLexer returns the process-wide lexer. The DFA is compiled once and
// only read afterwards, so scanners may be created concurrently.
func patternLexer() (*lexmachine.Lexer, error) {
	lexOnce.Do(func() {
		lexer := lexmachine.NewLexer()
		for _, rule := range lexRules {
			if rule.skip {
				lexer.Add([]byte(rule.regex), skip)
				continue
			}
			lexer.Add([]byte(rule.regex), makeToken(rule.kind))
		}
		if err := lexer.Compile(); err != nil {
			lexError = fmt.Errorf("compiling pattern lexer: %w", err)
			return
		}
		lexDFA = lexer
	})
	return lexDFA, lexError
}

func skip(*lexmachine.Scanner, *machines.Match) (interface{}, error) {
	return nil, nil
}

func makeToken(kind TokenKind) lexmachine.Action {
	return func(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
		return s.Token(int(kind), string(m.Bytes), m), nil
	}
}

// Lex splits a pattern string into tokens. Whitespace is dropped. Bytes that
// start no valid token are passed through as one-byte TokenOther tokens; the
// parser reports them. The returned error only signals a broken lexer.
func Lex(src string) ([]Token, error) {
	lexer, err := patternLexer()
	if err != nil {
		return nil, err
	}
	scanner, err := lexer.Scanner([]byte(src))
	if err != nil {
		return nil, fmt.Errorf("creating scanner: %w", err)
	}

	var tokens []Token
	for tok, err, eof := scanner.Next(); !eof; tok, err, eof = scanner.Next() {
		if err != nil {
			ui, ok := err.(*machines.UnconsumedInput)
			if !ok {
				return nil, err
			}
			tokens = append(tokens, Token{
				Kind: TokenOther,
				Text: src[ui.StartTC : ui.StartTC+1],
				Pos:  ui.StartTC,
			})
			scanner.TC = ui.StartTC + 1
			continue
		}
		t := tok.(*lexmachine.Token)
		tokens = append(tokens, Token{
			Kind: TokenKind(t.Type),
			Text: string(t.Lexeme),
			Pos:  t.TC,
		})
	}
	return tokens, nil
}
