package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func allTokens(input string) []Token {
	l := New(input)
	var toks []Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Kind == EOF {
			return toks
		}
	}
}

func kinds(toks []Token) []Kind {
	ks := make([]Kind, len(toks))
	for i, t := range toks {
		ks[i] = t.Kind
	}
	return ks
}

func TestTokenizeSimpleSelect(t *testing.T) {
	toks := allTokens("SELECT a, b FROM t WHERE a = 1;")
	assert.Equal(t, []Kind{
		SELECT, IDENT, COMMA, IDENT, FROM, IDENT, WHERE, IDENT, EQ, NUMBER, SEMI, EOF,
	}, kinds(toks))
}

func TestKeywordsAreCaseInsensitive(t *testing.T) {
	toks := allTokens("select * from T")
	assert.Equal(t, SELECT, toks[0].Kind)
	assert.Equal(t, STAR, toks[1].Kind)
	assert.Equal(t, FROM, toks[2].Kind)
	assert.Equal(t, IDENT, toks[3].Kind)
	assert.Equal(t, "T", toks[3].Literal)
}

func TestMultiCharOperators(t *testing.T) {
	toks := allTokens("<= >= <> != || =")
	assert.Equal(t, []Kind{LE, GE, NEQ, NEQ, CONCAT, EQ, EOF}, kinds(toks))
}

func TestStringLiteralWithEscapedQuote(t *testing.T) {
	toks := allTokens("'it''s here'")
	assert.Equal(t, STRING, toks[0].Kind)
	assert.Equal(t, "it's here", toks[0].Literal)
}

func TestUnterminatedStringIsIllegal(t *testing.T) {
	toks := allTokens("'oops")
	assert.Equal(t, ILLEGAL, toks[0].Kind)
}

func TestNumberLiteralsIncludingExponent(t *testing.T) {
	toks := allTokens("42 3.14 1e10 2.5E-3")
	var lits []string
	for _, tok := range toks {
		if tok.Kind == NUMBER {
			lits = append(lits, tok.Literal)
		}
	}
	assert.Equal(t, []string{"42", "3.14", "1e10", "2.5E-3"}, lits)
}

func TestLineCommentSkipped(t *testing.T) {
	toks := allTokens("SELECT 1 -- trailing comment\nFROM t")
	assert.Equal(t, []Kind{SELECT, NUMBER, FROM, IDENT, EOF}, kinds(toks))
}

func TestBlockCommentSkipped(t *testing.T) {
	toks := allTokens("SELECT /* inline */ 1")
	assert.Equal(t, []Kind{SELECT, NUMBER, EOF}, kinds(toks))
}

func TestParamToken(t *testing.T) {
	toks := allTokens("a = ?")
	assert.Equal(t, []Kind{IDENT, EQ, PARAM, EOF}, kinds(toks))
}

func TestIllegalCharacterToken(t *testing.T) {
	toks := allTokens("@")
	assert.Equal(t, ILLEGAL, toks[0].Kind)
	assert.Equal(t, "@", toks[0].Literal)
}

func TestLineAndColumnTracking(t *testing.T) {
	toks := allTokens("SELECT\na")
	assert.Equal(t, 2, toks[1].Line)
}
