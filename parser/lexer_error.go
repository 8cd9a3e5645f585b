package parser

// readErrorLiteral scans an error-code literal like E_TYPE or E_PERM. If
// the 'E' isn't followed by an underscore, it falls back to treating what
// was read so far as an ordinary identifier.
func (l *Lexer) readErrorLiteral() Token {
	pos := l.here()
	start := l.pos

	l.advance() // 'E'
	if l.cur != '_' {
		return Token{Type: TOKEN_IDENTIFIER, Value: l.src[start:l.pos], Position: pos}
	}
	l.advance() // '_'

	for l.cur >= 'A' && l.cur <= 'Z' {
		l.advance()
	}

	return Token{Type: TOKEN_ERROR_LIT, Value: l.src[start:l.pos], Position: pos}
}
