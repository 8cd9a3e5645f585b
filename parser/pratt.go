package parser

import (
	"fmt"

	"loom/types"
)

// ParseExpression parses an expression at or above minPrec using precedence
// climbing: a prefix production establishes the left operand, then
// continueExpression absorbs any postfix/infix operators that bind at least
// as tightly as minPrec. The precedence table lives in printer.go (PREC_*)
// so parsing and unparsing can never disagree about how an operator binds.
func (p *Parser) ParseExpression(minPrec int) (Expr, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}
	return p.continueExpression(left, minPrec)
}

// continueExpression resumes the precedence-climbing loop from an
// already-parsed left operand; callers that build a primary expression by
// some other route (e.g. the statement-level scatter/list disambiguation in
// statements.go) hand it off here to pick up any trailing `. : [ ?`.
func (p *Parser) continueExpression(left Expr, minPrec int) (Expr, error) {
	for {
		if minPrec <= PREC_PROPERTY {
			next, matched, err := p.tryPostfix(left)
			if err != nil {
				return nil, err
			}
			if matched {
				left = next
				continue
			}
		}

		if p.cur.Type == TOKEN_ASSIGN && minPrec <= PREC_ASSIGN {
			pos := p.cur.Position
			p.advance()
			value, err := p.ParseExpression(PREC_ASSIGN)
			if err != nil {
				return nil, err
			}
			left = &AssignExpr{Pos: pos, Target: left, Value: value}
			continue
		}

		if p.cur.Type == TOKEN_QUESTION && minPrec <= PREC_TERNARY {
			next, err := p.parseTernaryTail(left)
			if err != nil {
				return nil, err
			}
			left = next
			continue
		}

		if p.cur.Type == TOKEN_BACKTICK && minPrec <= PREC_TERNARY {
			next, err := p.parseCatchTail(left)
			if err != nil {
				return nil, err
			}
			left = next
			continue
		}

		if isBinaryOperatorToken(p.cur.Type) {
			prec := binaryOpPrecedence(p.cur.Type)
			if prec < minPrec {
				return left, nil
			}
			op := p.cur.Type
			pos := p.cur.Position
			p.advance()
			rightPrec := prec + 1
			if op == TOKEN_CARET {
				// '^' is right-associative: 2 ^ 3 ^ 2 is 2 ^ (3 ^ 2)
				rightPrec = prec
			}
			right, err := p.ParseExpression(rightPrec)
			if err != nil {
				return nil, err
			}
			left = &BinaryExpr{Pos: pos, Left: left, Operator: op, Right: right}
			continue
		}

		return left, nil
	}
}

func isBinaryOperatorToken(t TokenType) bool {
	switch t {
	case TOKEN_OR, TOKEN_AND, TOKEN_BITOR, TOKEN_BITXOR, TOKEN_BITAND,
		TOKEN_EQ, TOKEN_NE, TOKEN_LT, TOKEN_LE, TOKEN_GT, TOKEN_GE, TOKEN_IN,
		TOKEN_LSHIFT, TOKEN_RSHIFT, TOKEN_PLUS, TOKEN_MINUS, TOKEN_STAR,
		TOKEN_SLASH, TOKEN_PERCENT, TOKEN_CARET:
		return true
	default:
		return false
	}
}

func (p *Parser) parseTernaryTail(cond Expr) (Expr, error) {
	pos := p.cur.Position
	p.advance() // consume '?'
	thenExpr, err := p.ParseExpression(PREC_TERNARY)
	if err != nil {
		return nil, err
	}
	if err := p.expect(TOKEN_PIPE, "in ternary expression"); err != nil {
		return nil, err
	}
	elseExpr, err := p.ParseExpression(PREC_TERNARY)
	if err != nil {
		return nil, err
	}
	return &TernaryExpr{Pos: pos, Condition: cond, ThenExpr: thenExpr, ElseExpr: elseExpr}, nil
}

// parseCatchTail parses the “ `! codes [=> default] “ suffix of a catch
// expression. An empty Codes slice means ANY, matching errCodeList's printer
// convention in printer.go.
func (p *Parser) parseCatchTail(guarded Expr) (Expr, error) {
	pos := p.cur.Position
	p.advance() // consume '`'
	if err := p.expect(TOKEN_BANG, "after '`' in catch expression"); err != nil {
		return nil, err
	}
	codes, isAny, err := p.parseErrorCodeList()
	if err != nil {
		return nil, err
	}
	if isAny {
		codes = nil
	}
	var def Expr
	if p.cur.Type == TOKEN_FATARROW {
		p.advance()
		def, err = p.ParseExpression(PREC_TERNARY)
		if err != nil {
			return nil, err
		}
	}
	return &CatchExpr{Pos: pos, Expr: guarded, Codes: codes, Default: def}, nil
}

// tryPostfix consumes one property/verb-call/index suffix if the current
// token starts one, reporting matched=false (and no error) otherwise so the
// caller's loop can fall through to other operator classes.
func (p *Parser) tryPostfix(left Expr) (Expr, bool, error) {
	switch p.cur.Type {
	case TOKEN_DOT:
		pos := p.cur.Position
		p.advance()
		if p.cur.Type == TOKEN_LPAREN {
			p.advance()
			nameExpr, err := p.ParseExpression(PREC_LOWEST)
			if err != nil {
				return nil, true, err
			}
			if err := p.expect(TOKEN_RPAREN, "to close dynamic property name"); err != nil {
				return nil, true, err
			}
			return &PropertyExpr{Pos: pos, Expr: left, PropertyExpr: nameExpr}, true, nil
		}
		if p.cur.Type != TOKEN_IDENTIFIER {
			return nil, true, fmt.Errorf("expected property name after '.', got %s", p.cur.Type)
		}
		name := p.cur.Value
		p.advance()
		return &PropertyExpr{Pos: pos, Expr: left, Property: name}, true, nil

	case TOKEN_COLON:
		pos := p.cur.Position
		p.advance()
		var verb string
		var verbExpr Expr
		switch {
		case p.cur.Type == TOKEN_LPAREN:
			p.advance()
			ve, err := p.ParseExpression(PREC_LOWEST)
			if err != nil {
				return nil, true, err
			}
			if err := p.expect(TOKEN_RPAREN, "to close dynamic verb name"); err != nil {
				return nil, true, err
			}
			verbExpr = ve
		case p.cur.Type == TOKEN_IDENTIFIER:
			verb = p.cur.Value
			p.advance()
		default:
			return nil, true, fmt.Errorf("expected verb name after ':', got %s", p.cur.Type)
		}
		if err := p.expect(TOKEN_LPAREN, "after verb name"); err != nil {
			return nil, true, err
		}
		args, err := p.parseArgList()
		if err != nil {
			return nil, true, err
		}
		return &VerbCallExpr{Pos: pos, Expr: left, Verb: verb, VerbExpr: verbExpr, Args: args}, true, nil

	case TOKEN_LBRACKET:
		pos := p.cur.Position
		p.advance()
		first, err := p.ParseExpression(PREC_LOWEST)
		if err != nil {
			return nil, true, err
		}
		if p.cur.Type == TOKEN_RANGE {
			p.advance()
			end, err := p.ParseExpression(PREC_LOWEST)
			if err != nil {
				return nil, true, err
			}
			if err := p.expect(TOKEN_RBRACKET, "to close range index"); err != nil {
				return nil, true, err
			}
			return &RangeExpr{Pos: pos, Expr: left, Start: first, End: end}, true, nil
		}
		if err := p.expect(TOKEN_RBRACKET, "to close index"); err != nil {
			return nil, true, err
		}
		return &IndexExpr{Pos: pos, Expr: left, Index: first}, true, nil

	default:
		return nil, false, nil
	}
}

// parseArgList parses a parenthesized, comma-separated argument list; the
// opening '(' has already been consumed by the caller.
func (p *Parser) parseArgList() ([]Expr, error) {
	var args []Expr
	if p.cur.Type == TOKEN_RPAREN {
		p.advance()
		return args, nil
	}
	for {
		arg, err := p.ParseExpression(PREC_TERNARY)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.cur.Type != TOKEN_COMMA {
			break
		}
		p.advance()
	}
	if err := p.expect(TOKEN_RPAREN, "to close argument list"); err != nil {
		return nil, err
	}
	return args, nil
}

// parsePrefix parses a primary expression: a literal, name, unary
// application, parenthesized group, or collection literal.
func (p *Parser) parsePrefix() (Expr, error) {
	switch p.cur.Type {
	case TOKEN_INT, TOKEN_FLOAT, TOKEN_STRING, TOKEN_TRUE, TOKEN_FALSE, TOKEN_ERROR_LIT, TOKEN_OBJECT:
		pos := p.cur.Position
		val, err := p.ParseLiteral()
		if err != nil {
			return nil, err
		}
		return &LiteralExpr{Pos: pos, Value: val}, nil

	case TOKEN_IDENTIFIER:
		return p.parseIdentifierOrCall()

	case TOKEN_MINUS, TOKEN_NOT, TOKEN_BITNOT:
		pos := p.cur.Position
		op := p.cur.Type
		p.advance()
		operand, err := p.ParseExpression(PREC_UNARY)
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Pos: pos, Operator: op, Operand: operand}, nil

	case TOKEN_LPAREN:
		pos := p.cur.Position
		p.advance()
		inner, err := p.ParseExpression(PREC_LOWEST)
		if err != nil {
			return nil, err
		}
		if err := p.expect(TOKEN_RPAREN, "to close parenthesized expression"); err != nil {
			return nil, err
		}
		return &ParenExpr{Pos: pos, Expr: inner}, nil

	case TOKEN_CARET:
		pos := p.cur.Position
		p.advance()
		return &IndexMarkerExpr{Pos: pos, Marker: TOKEN_CARET}, nil

	case TOKEN_DOLLAR:
		return p.parseDollar()

	case TOKEN_AT:
		pos := p.cur.Position
		p.advance()
		inner, err := p.ParseExpression(PREC_UNARY)
		if err != nil {
			return nil, err
		}
		return &SpliceExpr{Pos: pos, Expr: inner}, nil

	case TOKEN_LBRACE:
		return p.parseListLiteralExpr()

	case TOKEN_LBRACKET:
		return p.parseMapLiteralExpr()

	default:
		return nil, fmt.Errorf("unexpected token in expression: %s", p.cur.Type)
	}
}

// parseDollar handles the two uses of '$': the $name shorthand for
// #0.name (system object property access), and the bare last-index marker
// inside an index/range ($ with no following identifier).
func (p *Parser) parseDollar() (Expr, error) {
	pos := p.cur.Position
	if p.ahead.Type == TOKEN_IDENTIFIER {
		p.advance() // consume '$'
		name := p.cur.Value
		p.advance() // consume identifier
		sysObj := &LiteralExpr{Pos: pos, Value: types.NewObj(0)}
		return &PropertyExpr{Pos: pos, Expr: sysObj, Property: name}, nil
	}
	p.advance()
	return &IndexMarkerExpr{Pos: pos, Marker: TOKEN_DOLLAR}, nil
}

func (p *Parser) parseIdentifierOrCall() (Expr, error) {
	pos := p.cur.Position
	name := p.cur.Value
	p.advance()
	if p.cur.Type == TOKEN_LPAREN {
		p.advance()
		args, err := p.parseArgList()
		if err != nil {
			return nil, err
		}
		return &BuiltinCallExpr{Pos: pos, Name: name, Args: args}, nil
	}
	return &IdentifierExpr{Pos: pos, Name: name}, nil
}

// parseListLiteralExpr parses `{}`, `{e1, e2, ...}`, and the integer range
// form `{start..end}`; elements may be splices (`@expr`).
func (p *Parser) parseListLiteralExpr() (Expr, error) {
	pos := p.cur.Position
	p.advance() // consume '{'
	if p.cur.Type == TOKEN_RBRACE {
		p.advance()
		return &ListExpr{Pos: pos}, nil
	}

	first, err := p.ParseExpression(PREC_TERNARY)
	if err != nil {
		return nil, err
	}

	if p.cur.Type == TOKEN_RANGE {
		if _, isSplice := first.(*SpliceExpr); isSplice {
			return nil, fmt.Errorf("splice not allowed in range list literal")
		}
		p.advance()
		end, err := p.ParseExpression(PREC_LOWEST)
		if err != nil {
			return nil, err
		}
		if err := p.expect(TOKEN_RBRACE, "to close range list literal"); err != nil {
			return nil, err
		}
		return &ListRangeExpr{Pos: pos, Start: first, End: end}, nil
	}

	elements := []Expr{first}
	for p.cur.Type == TOKEN_COMMA {
		p.advance()
		elem, err := p.ParseExpression(PREC_TERNARY)
		if err != nil {
			return nil, err
		}
		elements = append(elements, elem)
	}
	if err := p.expect(TOKEN_RBRACE, "to close list literal"); err != nil {
		return nil, err
	}
	return &ListExpr{Pos: pos, Elements: elements}, nil
}

// parseMapLiteralExpr parses `[k1 -> v1, k2 -> v2, ...]`.
func (p *Parser) parseMapLiteralExpr() (Expr, error) {
	pos := p.cur.Position
	p.advance() // consume '['
	var pairs []MapPair
	if p.cur.Type != TOKEN_RBRACKET {
		for {
			key, err := p.ParseExpression(PREC_TERNARY)
			if err != nil {
				return nil, err
			}
			if err := p.expect(TOKEN_ARROW, "in map literal"); err != nil {
				return nil, err
			}
			val, err := p.ParseExpression(PREC_TERNARY)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, MapPair{Key: key, Value: val})
			if p.cur.Type != TOKEN_COMMA {
				break
			}
			p.advance()
		}
	}
	if err := p.expect(TOKEN_RBRACKET, "to close map literal"); err != nil {
		return nil, err
	}
	return &MapExpr{Pos: pos, Pairs: pairs}, nil
}
