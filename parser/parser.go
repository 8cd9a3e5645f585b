package parser

import (
	"fmt"
	"loom/types"
	"strconv"
)

// Parser turns MOO source text into AST nodes and literal Values, reading
// one token of lookahead ahead of the token it's currently acting on.
type Parser struct {
	lex   *Lexer
	cur   Token
	ahead Token
}

// NewParser starts a Parser over input, primed with its first two tokens.
func NewParser(input string) *Parser {
	p := &Parser{lex: NewLexer(input)}
	p.advance()
	p.advance()
	return p
}

// advance shifts the lookahead token into cur and pulls a fresh lookahead
// from the lexer.
func (p *Parser) advance() {
	p.cur = p.ahead
	p.ahead = p.lex.NextToken()
}

// ParseLiteral parses a single MOO literal value - the form snapshot
// restore uses to bring a stored property/variable value back to life.
func (p *Parser) ParseLiteral() (types.Value, error) {
	switch p.cur.Type {
	case TOKEN_INT:
		return p.parseIntLiteral()
	case TOKEN_FLOAT:
		return p.parseFloatLiteral()
	case TOKEN_TRUE:
		p.advance()
		return types.NewBool(true), nil
	case TOKEN_FALSE:
		p.advance()
		return types.NewBool(false), nil
	case TOKEN_STRING:
		return p.parseStringLiteral()
	case TOKEN_ERROR_LIT:
		return p.parseErrorLiteral()
	case TOKEN_OBJECT:
		return p.parseObjectLiteral()
	case TOKEN_LBRACE:
		return p.parseListLiteral()
	case TOKEN_LBRACKET:
		return p.parseMapLiteral()
	default:
		return nil, fmt.Errorf("unexpected token: %s", p.cur.Type)
	}
}

func (p *Parser) parseIntLiteral() (types.Value, error) {
	val, err := strconv.ParseInt(p.cur.Value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse integer: %w", err)
	}
	p.advance()
	return types.NewInt(val), nil
}

func (p *Parser) parseFloatLiteral() (types.Value, error) {
	val, err := strconv.ParseFloat(p.cur.Value, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse float: %w", err)
	}
	p.advance()
	return types.NewFloat(val), nil
}

// parseStringLiteral consumes a string token, using its already-decoded
// Literal field rather than re-stripping escapes.
func (p *Parser) parseStringLiteral() (types.Value, error) {
	val := p.cur.Literal
	p.advance()
	return types.NewStr(val), nil
}
