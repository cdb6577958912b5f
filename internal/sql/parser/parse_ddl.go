package parser

import (
	"strconv"

	"quilldb/internal/sql/ast"
	"quilldb/internal/sql/lexer"
	"quilldb/internal/value"
)

func (p *Parser) parseCreate() (ast.Statement, error) {
	if err := p.expect(lexer.CREATE); err != nil {
		return nil, err
	}
	unique := false
	if p.curIs(lexer.UNIQUE) {
		unique = true
		p.next()
	}
	switch p.cur.Kind {
	case lexer.TABLE:
		return p.parseCreateTable()
	case lexer.INDEX:
		return p.parseCreateIndex(unique)
	default:
		return nil, p.errorf("expected TABLE or INDEX after CREATE, found %s %q", p.cur.Kind, p.cur.Literal)
	}
}

func (p *Parser) parseCreateTable() (*ast.CreateTableStmt, error) {
	if err := p.expect(lexer.TABLE); err != nil {
		return nil, err
	}
	stmt := &ast.CreateTableStmt{}
	if p.curIs(lexer.IF) {
		p.next()
		if err := p.expect(lexer.NOT); err != nil {
			return nil, err
		}
		if err := p.expect(lexer.EXISTS); err != nil {
			return nil, err
		}
		stmt.IfNotExists = true
	}
	if !p.curIs(lexer.IDENT) {
		return nil, p.errorf("expected table name, found %s %q", p.cur.Kind, p.cur.Literal)
	}
	stmt.Table = p.cur.Literal
	p.next()

	if err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	for {
		col, err := p.parseColumnDef()
		if err != nil {
			return nil, err
		}
		stmt.Columns = append(stmt.Columns, col)
		if p.curIs(lexer.COMMA) {
			p.next()
			continue
		}
		break
	}
	if err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return stmt, nil
}

// parseColumnDef parses `name TYPE [(len)] [PRIMARY KEY] [NOT NULL]
// [UNIQUE]`. Type names are not reserved keywords (they arrive as plain
// IDENT tokens), matching spec.md's requirement that type names remain
// usable as ordinary identifiers outside of a type position.
func (p *Parser) parseColumnDef() (ast.ColumnDef, error) {
	if !p.curIs(lexer.IDENT) {
		return ast.ColumnDef{}, p.errorf("expected column name, found %s %q", p.cur.Kind, p.cur.Literal)
	}
	col := ast.ColumnDef{Name: p.cur.Literal}
	p.next()

	if !p.curIs(lexer.IDENT) {
		return ast.ColumnDef{}, p.errorf("expected a type name after column %q, found %s %q", col.Name, p.cur.Kind, p.cur.Literal)
	}
	kind, ok := value.KindFromTypeName(p.cur.Literal)
	if !ok {
		return ast.ColumnDef{}, p.errorf("unknown column type %q", p.cur.Literal)
	}
	col.Type = kind
	p.next()

	if p.curIs(lexer.LPAREN) {
		p.next()
		if !p.curIs(lexer.NUMBER) {
			return ast.ColumnDef{}, p.errorf("expected a length after '(', found %s %q", p.cur.Kind, p.cur.Literal)
		}
		n, err := strconv.Atoi(p.cur.Literal)
		if err != nil {
			return ast.ColumnDef{}, p.errorf("invalid length %q", p.cur.Literal)
		}
		col.Len = n
		p.next()
		if err := p.expect(lexer.RPAREN); err != nil {
			return ast.ColumnDef{}, err
		}
	}

	for {
		switch {
		case p.curIs(lexer.PRIMARY):
			p.next()
			if err := p.expect(lexer.KEY); err != nil {
				return ast.ColumnDef{}, err
			}
			col.PrimaryKey = true
			col.NotNull = true
		case p.curIs(lexer.NOT):
			p.next()
			if err := p.expect(lexer.NULLTOK); err != nil {
				return ast.ColumnDef{}, err
			}
			col.NotNull = true
		case p.curIs(lexer.UNIQUE):
			p.next()
			col.Unique = true
		default:
			return col, nil
		}
	}
}

func (p *Parser) parseCreateIndex(unique bool) (*ast.CreateIndexStmt, error) {
	if err := p.expect(lexer.INDEX); err != nil {
		return nil, err
	}
	if !p.curIs(lexer.IDENT) {
		return nil, p.errorf("expected index name, found %s %q", p.cur.Kind, p.cur.Literal)
	}
	stmt := &ast.CreateIndexStmt{Index: p.cur.Literal, Unique: unique}
	p.next()

	if err := p.expect(lexer.ON); err != nil {
		return nil, err
	}
	if !p.curIs(lexer.IDENT) {
		return nil, p.errorf("expected table name after ON, found %s %q", p.cur.Kind, p.cur.Literal)
	}
	stmt.Table = p.cur.Literal
	p.next()

	if err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	for {
		if !p.curIs(lexer.IDENT) {
			return nil, p.errorf("expected column name, found %s %q", p.cur.Kind, p.cur.Literal)
		}
		stmt.Columns = append(stmt.Columns, p.cur.Literal)
		p.next()
		if p.curIs(lexer.COMMA) {
			p.next()
			continue
		}
		break
	}
	return stmt, p.expect(lexer.RPAREN)
}

func (p *Parser) parseDrop() (ast.Statement, error) {
	if err := p.expect(lexer.DROP); err != nil {
		return nil, err
	}
	switch p.cur.Kind {
	case lexer.TABLE:
		p.next()
		stmt := &ast.DropTableStmt{}
		if p.curIs(lexer.IF) {
			p.next()
			if err := p.expect(lexer.EXISTS); err != nil {
				return nil, err
			}
			stmt.IfExists = true
		}
		if !p.curIs(lexer.IDENT) {
			return nil, p.errorf("expected table name, found %s %q", p.cur.Kind, p.cur.Literal)
		}
		stmt.Table = p.cur.Literal
		p.next()
		return stmt, nil
	case lexer.INDEX:
		p.next()
		if !p.curIs(lexer.IDENT) {
			return nil, p.errorf("expected index name, found %s %q", p.cur.Kind, p.cur.Literal)
		}
		stmt := &ast.DropIndexStmt{Index: p.cur.Literal}
		p.next()
		if err := p.expect(lexer.ON); err != nil {
			return nil, err
		}
		if !p.curIs(lexer.IDENT) {
			return nil, p.errorf("expected table name after ON, found %s %q", p.cur.Kind, p.cur.Literal)
		}
		stmt.Table = p.cur.Literal
		p.next()
		return stmt, nil
	default:
		return nil, p.errorf("expected TABLE or INDEX after DROP, found %s %q", p.cur.Kind, p.cur.Literal)
	}
}
