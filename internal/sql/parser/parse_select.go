package parser

import (
	"strconv"

	"quilldb/internal/sql/ast"
	"quilldb/internal/sql/lexer"
)

func (p *Parser) parseSelect() (*ast.SelectStmt, error) {
	if err := p.expect(lexer.SELECT); err != nil {
		return nil, err
	}
	stmt := &ast.SelectStmt{}
	if p.curIs(lexer.DISTINCT) {
		stmt.Distinct = true
		p.next()
	}

	items, err := p.parseSelectList()
	if err != nil {
		return nil, err
	}
	stmt.Columns = items

	if err := p.expect(lexer.FROM); err != nil {
		return nil, err
	}
	if !p.curIs(lexer.IDENT) {
		return nil, p.errorf("expected table name after FROM, found %s %q", p.cur.Kind, p.cur.Literal)
	}
	stmt.Table = p.cur.Literal
	p.next()

	if p.curIs(lexer.WHERE) {
		p.next()
		where, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}

	if p.curIs(lexer.GROUP) {
		p.next()
		if err := p.expect(lexer.BY); err != nil {
			return nil, err
		}
		for {
			e, err := p.parseExpr(precComparison)
			if err != nil {
				return nil, err
			}
			stmt.GroupBy = append(stmt.GroupBy, e)
			if p.curIs(lexer.COMMA) {
				p.next()
				continue
			}
			break
		}
	}

	if p.curIs(lexer.HAVING) {
		p.next()
		having, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		stmt.Having = having
	}

	if p.curIs(lexer.ORDER) {
		p.next()
		if err := p.expect(lexer.BY); err != nil {
			return nil, err
		}
		for {
			e, err := p.parseExpr(precComparison)
			if err != nil {
				return nil, err
			}
			item := ast.OrderByItem{Expr: e}
			if p.curIs(lexer.DESC) {
				item.Desc = true
				p.next()
			} else if p.curIs(lexer.ASC) {
				p.next()
			}
			stmt.OrderBy = append(stmt.OrderBy, item)
			if p.curIs(lexer.COMMA) {
				p.next()
				continue
			}
			break
		}
	}

	if p.curIs(lexer.LIMIT) {
		p.next()
		n, err := p.parseIntLiteral("LIMIT")
		if err != nil {
			return nil, err
		}
		stmt.Limit = &n
	}
	if p.curIs(lexer.OFFSET) {
		p.next()
		n, err := p.parseIntLiteral("OFFSET")
		if err != nil {
			return nil, err
		}
		stmt.Offset = &n
	}

	return stmt, nil
}

func (p *Parser) parseIntLiteral(clause string) (int64, error) {
	if !p.curIs(lexer.NUMBER) {
		return 0, p.errorf("expected integer after %s, found %s %q", clause, p.cur.Kind, p.cur.Literal)
	}
	n, err := strconv.ParseInt(p.cur.Literal, 10, 64)
	if err != nil {
		return 0, p.errorf("invalid integer %q after %s", p.cur.Literal, clause)
	}
	p.next()
	return n, nil
}

func (p *Parser) parseSelectList() ([]ast.SelectItem, error) {
	var items []ast.SelectItem
	for {
		if p.curIs(lexer.STAR) {
			items = append(items, ast.SelectItem{Star: true})
			p.next()
		} else {
			e, err := p.parseExpr(precLowest)
			if err != nil {
				return nil, err
			}
			item := ast.SelectItem{Expr: e}
			if p.curIs(lexer.AS) {
				p.next()
				if !p.curIs(lexer.IDENT) {
					return nil, p.errorf("expected alias after AS, found %s %q", p.cur.Kind, p.cur.Literal)
				}
				item.Alias = p.cur.Literal
				p.next()
			} else if p.curIs(lexer.IDENT) {
				item.Alias = p.cur.Literal
				p.next()
			}
			items = append(items, item)
		}
		if p.curIs(lexer.COMMA) {
			p.next()
			continue
		}
		break
	}
	return items, nil
}
