// Package parser turns a token stream from internal/sql/lexer into the
// statement and expression trees defined in internal/sql/ast. It never
// panics: a malformed statement is reported as a slice of diagnostics
// and a non-nil error from ParseStatement, following spec.md's
// requirement that the front end never crashes on bad input.
package parser

import (
	"fmt"

	"quilldb/internal/dberr"
	"quilldb/internal/sql/ast"
	"quilldb/internal/sql/lexer"
)

// Parser is a recursive-descent, Pratt-precedence parser over one
// statement's worth of tokens at a time.
type Parser struct {
	l    *lexer.Lexer
	cur  lexer.Token
	peek lexer.Token

	nextParamIndex int
	diagnostics    []string
}

// New returns a Parser ready to parse the statements in input.
func New(input string) *Parser {
	p := &Parser{l: lexer.New(input)}
	p.next()
	p.next()
	return p
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

// Diagnostics returns every error message accumulated across all calls
// to ParseStatement on this Parser.
func (p *Parser) Diagnostics() []string { return p.diagnostics }

func (p *Parser) errorf(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	diag := fmt.Sprintf("%d:%d: %s", p.cur.Line, p.cur.Col, msg)
	p.diagnostics = append(p.diagnostics, diag)
	return &dberr.ParseError{Line: p.cur.Line, Col: p.cur.Col, Message: msg}
}

// expect advances past the current token if it has kind k, or records a
// diagnostic and returns an error otherwise.
func (p *Parser) expect(k lexer.Kind) error {
	if p.cur.Kind != k {
		return p.errorf("expected %s, found %s %q", k, p.cur.Kind, p.cur.Literal)
	}
	p.next()
	return nil
}

func (p *Parser) curIs(k lexer.Kind) bool  { return p.cur.Kind == k }
func (p *Parser) peekIs(k lexer.Kind) bool { return p.peek.Kind == k }

// ParseStatement parses exactly one statement, dispatching on the
// leading keyword, and consumes a single trailing semicolon if present.
func (p *Parser) ParseStatement() (ast.Statement, error) {
	var stmt ast.Statement
	var err error

	switch p.cur.Kind {
	case lexer.SELECT:
		stmt, err = p.parseSelect()
	case lexer.INSERT:
		stmt, err = p.parseInsert()
	case lexer.UPDATE:
		stmt, err = p.parseUpdate()
	case lexer.DELETE:
		stmt, err = p.parseDelete()
	case lexer.CREATE:
		stmt, err = p.parseCreate()
	case lexer.DROP:
		stmt, err = p.parseDrop()
	case lexer.BEGIN:
		p.next()
		stmt, err = &ast.TxnStmt{Kind: ast.TxnBegin}, nil
	case lexer.COMMIT:
		p.next()
		stmt, err = &ast.TxnStmt{Kind: ast.TxnCommit}, nil
	case lexer.ROLLBACK:
		p.next()
		stmt, err = &ast.TxnStmt{Kind: ast.TxnRollback}, nil
	case lexer.EOF:
		return nil, fmt.Errorf("parser: no statement to parse")
	default:
		return nil, p.errorf("unexpected token %s %q at start of statement", p.cur.Kind, p.cur.Literal)
	}
	if err != nil {
		return nil, err
	}
	if p.curIs(lexer.SEMI) {
		p.next()
	}
	return stmt, nil
}
