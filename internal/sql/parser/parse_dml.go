package parser

import (
	"quilldb/internal/sql/ast"
	"quilldb/internal/sql/lexer"
)

func (p *Parser) parseInsert() (*ast.InsertStmt, error) {
	if err := p.expect(lexer.INSERT); err != nil {
		return nil, err
	}
	if err := p.expect(lexer.INTO); err != nil {
		return nil, err
	}
	if !p.curIs(lexer.IDENT) {
		return nil, p.errorf("expected table name after INSERT INTO, found %s %q", p.cur.Kind, p.cur.Literal)
	}
	stmt := &ast.InsertStmt{Table: p.cur.Literal}
	p.next()

	if p.curIs(lexer.LPAREN) {
		p.next()
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
		if err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
	}

	if err := p.expect(lexer.VALUES); err != nil {
		return nil, err
	}
	for {
		row, err := p.parseValuesRow()
		if err != nil {
			return nil, err
		}
		stmt.Rows = append(stmt.Rows, row)
		if p.curIs(lexer.COMMA) {
			p.next()
			continue
		}
		break
	}
	return stmt, nil
}

func (p *Parser) parseValuesRow() ([]ast.Expr, error) {
	if err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var row []ast.Expr
	for {
		e, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		row = append(row, e)
		if p.curIs(lexer.COMMA) {
			p.next()
			continue
		}
		break
	}
	if err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return row, nil
}

func (p *Parser) parseUpdate() (*ast.UpdateStmt, error) {
	if err := p.expect(lexer.UPDATE); err != nil {
		return nil, err
	}
	if !p.curIs(lexer.IDENT) {
		return nil, p.errorf("expected table name after UPDATE, found %s %q", p.cur.Kind, p.cur.Literal)
	}
	stmt := &ast.UpdateStmt{Table: p.cur.Literal}
	p.next()

	if err := p.expect(lexer.SET); err != nil {
		return nil, err
	}
	for {
		if !p.curIs(lexer.IDENT) {
			return nil, p.errorf("expected column name in SET clause, found %s %q", p.cur.Kind, p.cur.Literal)
		}
		col := p.cur.Literal
		p.next()
		if err := p.expect(lexer.EQ); err != nil {
			return nil, err
		}
		val, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		stmt.Assignments = append(stmt.Assignments, ast.Assignment{Column: col, Value: val})
		if p.curIs(lexer.COMMA) {
			p.next()
			continue
		}
		break
	}

	if p.curIs(lexer.WHERE) {
		p.next()
		where, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}
	return stmt, nil
}

func (p *Parser) parseDelete() (*ast.DeleteStmt, error) {
	if err := p.expect(lexer.DELETE); err != nil {
		return nil, err
	}
	if err := p.expect(lexer.FROM); err != nil {
		return nil, err
	}
	if !p.curIs(lexer.IDENT) {
		return nil, p.errorf("expected table name after DELETE FROM, found %s %q", p.cur.Kind, p.cur.Literal)
	}
	stmt := &ast.DeleteStmt{Table: p.cur.Literal}
	p.next()

	if p.curIs(lexer.WHERE) {
		p.next()
		where, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}
	return stmt, nil
}
