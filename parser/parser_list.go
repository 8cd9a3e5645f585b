package parser

import (
	"fmt"
	"loom/types"
)

// parseListLiteral parses a list literal {expr, expr, ...}
func (p *Parser) parseListLiteral() (types.Value, error) {
	// current is '{'
	p.advance() // skip '{'

	// Check for empty list
	if p.cur.Type == TOKEN_RBRACE {
		p.advance() // skip '}'
		return types.NewEmptyList(), nil
	}

	var elements []types.Value

	// Parse first element
	elem, err := p.ParseLiteral()
	if err != nil {
		return nil, fmt.Errorf("failed to parse list element: %w", err)
	}
	elements = append(elements, elem)

	// Parse remaining elements
	for p.cur.Type == TOKEN_COMMA {
		p.advance() // skip ','

		// Check for trailing comma
		if p.cur.Type == TOKEN_RBRACE {
			break
		}

		elem, err := p.ParseLiteral()
		if err != nil {
			return nil, fmt.Errorf("failed to parse list element: %w", err)
		}
		elements = append(elements, elem)
	}

	// Expect closing '}'
	if p.cur.Type != TOKEN_RBRACE {
		return nil, fmt.Errorf("expected '}', got %s", p.cur.Type)
	}
	p.advance() // skip '}'

	return types.NewList(elements), nil
}
