package parser

import (
	"strconv"
	"strings"

	"quilldb/internal/sql/ast"
	"quilldb/internal/sql/lexer"
	"quilldb/internal/value"
)

// Operator precedence, lowest to highest. IN/LIKE/IS share comparison's
// level since they are themselves comparison-like predicates.
const (
	precLowest = iota
	precOr
	precAnd
	precComparison
	precAdditive
	precMultiplicative
	precUnary
)

func precedenceOf(k lexer.Kind) int {
	switch k {
	case lexer.OR:
		return precOr
	case lexer.AND:
		return precAnd
	case lexer.EQ, lexer.NEQ, lexer.LT, lexer.LE, lexer.GT, lexer.GE, lexer.IS, lexer.IN, lexer.LIKE:
		return precComparison
	case lexer.PLUS, lexer.MINUS, lexer.CONCAT:
		return precAdditive
	case lexer.STAR, lexer.SLASH, lexer.PERCENT:
		return precMultiplicative
	default:
		return precLowest
	}
}

// ParseExpr parses a single standalone expression, for callers that
// don't need a full statement.
func (p *Parser) ParseExpr() (ast.Expr, error) {
	return p.parseExpr(precLowest)
}

func (p *Parser) parseExpr(minPrec int) (ast.Expr, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}
	for {
		if p.curIs(lexer.NOT) && (p.peekIs(lexer.IN) || p.peekIs(lexer.LIKE)) {
			if precComparison <= minPrec {
				break
			}
			left, err = p.parseNegatedPredicate(left)
			if err != nil {
				return nil, err
			}
			continue
		}
		if p.curIs(lexer.IS) {
			if precComparison <= minPrec {
				break
			}
			left, err = p.parseIsNull(left)
			if err != nil {
				return nil, err
			}
			continue
		}
		if p.curIs(lexer.IN) {
			if precComparison <= minPrec {
				break
			}
			left, err = p.parseIn(left, false)
			if err != nil {
				return nil, err
			}
			continue
		}
		if p.curIs(lexer.LIKE) {
			if precComparison <= minPrec {
				break
			}
			left, err = p.parseLike(left, false)
			if err != nil {
				return nil, err
			}
			continue
		}
		prec := precedenceOf(p.cur.Kind)
		if prec <= minPrec {
			break
		}
		op, ok := binOpFor(p.cur.Kind)
		if !ok {
			break
		}
		p.next()
		right, err := p.parseExpr(prec)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func binOpFor(k lexer.Kind) (ast.BinOp, bool) {
	switch k {
	case lexer.PLUS:
		return ast.OpAdd, true
	case lexer.MINUS:
		return ast.OpSub, true
	case lexer.STAR:
		return ast.OpMul, true
	case lexer.SLASH:
		return ast.OpDiv, true
	case lexer.PERCENT:
		return ast.OpMod, true
	case lexer.CONCAT:
		return ast.OpConcat, true
	case lexer.EQ:
		return ast.OpEq, true
	case lexer.NEQ:
		return ast.OpNeq, true
	case lexer.LT:
		return ast.OpLt, true
	case lexer.LE:
		return ast.OpLe, true
	case lexer.GT:
		return ast.OpGt, true
	case lexer.GE:
		return ast.OpGe, true
	case lexer.AND:
		return ast.OpAnd, true
	case lexer.OR:
		return ast.OpOr, true
	default:
		return 0, false
	}
}

func (p *Parser) parsePrefix() (ast.Expr, error) {
	switch p.cur.Kind {
	case lexer.NUMBER:
		return p.parseNumber()
	case lexer.STRING:
		lit := p.cur.Literal
		p.next()
		return &ast.Literal{Val: value.NewText(lit)}, nil
	case lexer.TRUE:
		p.next()
		return &ast.Literal{Val: value.NewBool(true)}, nil
	case lexer.FALSE:
		p.next()
		return &ast.Literal{Val: value.NewBool(false)}, nil
	case lexer.NULLTOK:
		p.next()
		return &ast.Literal{Val: value.NewNull()}, nil
	case lexer.PARAM:
		p.next()
		idx := p.nextParamIndex
		p.nextParamIndex++
		return &ast.Param{Index: idx}, nil
	case lexer.MINUS:
		p.next()
		operand, err := p.parseExpr(precUnary)
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: ast.OpNeg, Operand: operand}, nil
	case lexer.NOT:
		p.next()
		operand, err := p.parseExpr(precAnd)
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: ast.OpNot, Operand: operand}, nil
	case lexer.LPAREN:
		p.next()
		inner, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		return inner, nil
	case lexer.IDENT:
		return p.parseIdentOrCall()
	default:
		return nil, p.errorf("unexpected token %s %q in expression", p.cur.Kind, p.cur.Literal)
	}
}

func (p *Parser) parseNumber() (ast.Expr, error) {
	lit := p.cur.Literal
	p.next()
	if strings.ContainsAny(lit, ".eE") {
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return nil, p.errorf("invalid numeric literal %q: %v", lit, err)
		}
		return &ast.Literal{Val: value.NewFloat64(f)}, nil
	}
	i, err := strconv.ParseInt(lit, 10, 64)
	if err != nil {
		// Falls back to float for integers too large for int64.
		f, ferr := strconv.ParseFloat(lit, 64)
		if ferr != nil {
			return nil, p.errorf("invalid numeric literal %q: %v", lit, err)
		}
		return &ast.Literal{Val: value.NewFloat64(f)}, nil
	}
	return &ast.Literal{Val: value.NewInt64(i)}, nil
}

func (p *Parser) parseIdentOrCall() (ast.Expr, error) {
	name := p.cur.Literal
	p.next()
	if !p.curIs(lexer.LPAREN) {
		return &ast.ColumnRef{Name: name}, nil
	}
	p.next() // consume '('
	call := &ast.FuncCall{Name: strings.ToUpper(name)}
	if p.curIs(lexer.STAR) {
		call.Star = true
		p.next()
		if err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		return call, nil
	}
	if p.curIs(lexer.DISTINCT) {
		call.Distinct = true
		p.next()
	}
	if !p.curIs(lexer.RPAREN) {
		for {
			arg, err := p.parseExpr(precLowest)
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
			if p.curIs(lexer.COMMA) {
				p.next()
				continue
			}
			break
		}
	}
	if err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return call, nil
}

func (p *Parser) parseIsNull(left ast.Expr) (ast.Expr, error) {
	p.next() // consume IS
	negate := false
	if p.curIs(lexer.NOT) {
		negate = true
		p.next()
	}
	if err := p.expect(lexer.NULLTOK); err != nil {
		return nil, err
	}
	return &ast.IsNullExpr{Operand: left, Negate: negate}, nil
}

func (p *Parser) parseNegatedPredicate(left ast.Expr) (ast.Expr, error) {
	p.next() // consume NOT
	if p.curIs(lexer.IN) {
		return p.parseIn(left, true)
	}
	return p.parseLike(left, true)
}

func (p *Parser) parseIn(left ast.Expr, negate bool) (ast.Expr, error) {
	p.next() // consume IN
	if err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	in := &ast.InExpr{Operand: left, Negate: negate}
	if !p.curIs(lexer.RPAREN) {
		for {
			item, err := p.parseExpr(precLowest)
			if err != nil {
				return nil, err
			}
			in.List = append(in.List, item)
			if p.curIs(lexer.COMMA) {
				p.next()
				continue
			}
			break
		}
	}
	if err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return in, nil
}

func (p *Parser) parseLike(left ast.Expr, negate bool) (ast.Expr, error) {
	p.next() // consume LIKE
	pattern, err := p.parseExpr(precComparison)
	if err != nil {
		return nil, err
	}
	like := ast.Expr(&ast.BinaryExpr{Op: ast.OpLike, Left: left, Right: pattern})
	if negate {
		like = &ast.UnaryExpr{Op: ast.OpNot, Operand: like}
	}
	return like, nil
}
