package syntax

import "strings"

// Tokenize splits shell source text into tokens. Words keep their raw
// text so the expander can see quoting; operators are classified here.
func Tokenize(src string) ([]Token, error) {
	lx := &lexer{src: src, line: 1, col: 1}
	var toks []Token
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == TokEOF {
			return toks, nil
		}
	}
}

type lexer struct {
	src       string
	pos       int
	line, col int
}

func (lx *lexer) eof() bool { return lx.pos >= len(lx.src) }

func (lx *lexer) peek() byte {
	if lx.eof() {
		return 0
	}
	return lx.src[lx.pos]
}

func (lx *lexer) peekAt(n int) byte {
	if lx.pos+n >= len(lx.src) {
		return 0
	}
	return lx.src[lx.pos+n]
}

func (lx *lexer) advance() byte {
	c := lx.src[lx.pos]
	lx.pos++
	if c == '\n' {
		lx.line++
		lx.col = 1
	} else {
		lx.col++
	}
	return c
}

func (lx *lexer) next() (Token, error) {
	// Skip blanks, comments and line continuations.
	for !lx.eof() {
		c := lx.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			lx.advance()
		case c == '\\' && lx.peekAt(1) == '\n':
			lx.advance()
			lx.advance()
		case c == '#':
			for !lx.eof() && lx.peek() != '\n' {
				lx.advance()
			}
		default:
			goto scan
		}
	}
scan:
	line, col := lx.line, lx.col
	if lx.eof() {
		return Token{Kind: TokEOF, Line: line, Col: col}, nil
	}

	mk := func(kind TokenKind) Token {
		return Token{Kind: kind, Text: kind.String(), Line: line, Col: col}
	}

	switch c := lx.peek(); c {
	case '\n':
		lx.advance()
		return mk(TokNewline), nil
	case ';':
		lx.advance()
		return mk(TokSemi), nil
	case '(':
		lx.advance()
		return mk(TokLParen), nil
	case ')':
		lx.advance()
		return mk(TokRParen), nil
	case '&':
		lx.advance()
		if lx.peek() == '&' {
			lx.advance()
			return mk(TokAndIf), nil
		}
		return mk(TokAmp), nil
	case '|':
		lx.advance()
		if lx.peek() == '|' {
			lx.advance()
			return mk(TokOrIf), nil
		}
		return mk(TokPipe), nil
	case '<':
		lx.advance()
		switch lx.peek() {
		case '>':
			lx.advance()
			return mk(TokLessGr), nil
		case '&':
			lx.advance()
			return mk(TokLessAnd), nil
		}
		return mk(TokLess), nil
	case '>':
		lx.advance()
		switch lx.peek() {
		case '>':
			lx.advance()
			return mk(TokDGreat), nil
		case '|':
			lx.advance()
			return mk(TokClobber), nil
		case '&':
			lx.advance()
			return mk(TokGreatAnd), nil
		}
		return mk(TokGreat), nil
	}

	return lx.word(line, col)
}

func isMeta(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', ';', '&', '|', '<', '>', '(', ')':
		return true
	}
	return false
}

// word scans a single word token. Quotes, command substitutions and
// arithmetic expansions are consumed whole so operator characters inside
// them never split the word.
func (lx *lexer) word(line, col int) (Token, error) {
	var sb strings.Builder
	quoted := false

	for !lx.eof() {
		c := lx.peek()
		switch {
		case c == '\\':
			quoted = true
			sb.WriteByte(lx.advance())
			if lx.eof() {
				return Token{}, errIncompleteAt(lx.line, lx.col, "trailing backslash")
			}
			sb.WriteByte(lx.advance())
		case c == '\'':
			quoted = true
			if err := lx.singleQuote(&sb); err != nil {
				return Token{}, err
			}
		case c == '"':
			quoted = true
			if err := lx.doubleQuote(&sb); err != nil {
				return Token{}, err
			}
		case c == '`':
			if err := lx.backquote(&sb); err != nil {
				return Token{}, err
			}
		case c == '$' && lx.peekAt(1) == '(':
			if err := lx.dollarParen(&sb); err != nil {
				return Token{}, err
			}
		case isMeta(c):
			goto done
		default:
			sb.WriteByte(lx.advance())
		}
	}

done:
	if sb.Len() == 0 && !quoted {
		return Token{}, errAt(line, col, "unexpected character %q", string(lx.peek()))
	}
	text := sb.String()
	kind := TokWord
	if !quoted && isAllDigits(text) && (lx.peek() == '<' || lx.peek() == '>') {
		kind = TokIONumber
	}
	return Token{Kind: kind, Text: text, Quoted: quoted, Line: line, Col: col}, nil
}

func (lx *lexer) singleQuote(sb *strings.Builder) error {
	line, col := lx.line, lx.col
	sb.WriteByte(lx.advance()) // opening '
	for !lx.eof() {
		c := lx.advance()
		sb.WriteByte(c)
		if c == '\'' {
			return nil
		}
	}
	return errIncompleteAt(line, col, "unterminated single quote")
}

func (lx *lexer) doubleQuote(sb *strings.Builder) error {
	line, col := lx.line, lx.col
	sb.WriteByte(lx.advance()) // opening "
	for !lx.eof() {
		switch c := lx.peek(); {
		case c == '\\':
			sb.WriteByte(lx.advance())
			if lx.eof() {
				return errIncompleteAt(lx.line, lx.col, "trailing backslash")
			}
			sb.WriteByte(lx.advance())
		case c == '`':
			if err := lx.backquote(sb); err != nil {
				return err
			}
		case c == '$' && lx.peekAt(1) == '(':
			if err := lx.dollarParen(sb); err != nil {
				return err
			}
		case c == '"':
			sb.WriteByte(lx.advance())
			return nil
		default:
			sb.WriteByte(lx.advance())
		}
	}
	return errIncompleteAt(line, col, "unterminated double quote")
}

func (lx *lexer) backquote(sb *strings.Builder) error {
	line, col := lx.line, lx.col
	sb.WriteByte(lx.advance()) // opening `
	for !lx.eof() {
		c := lx.advance()
		sb.WriteByte(c)
		switch c {
		case '\\':
			if lx.eof() {
				return errIncompleteAt(lx.line, lx.col, "trailing backslash")
			}
			sb.WriteByte(lx.advance())
		case '`':
			return nil
		}
	}
	return errIncompleteAt(line, col, "unterminated command substitution")
}

// dollarParen consumes $( ... ) or $(( ... )) with balanced parentheses,
// skipping over nested quotes.
func (lx *lexer) dollarParen(sb *strings.Builder) error {
	line, col := lx.line, lx.col
	sb.WriteByte(lx.advance()) // $
	sb.WriteByte(lx.advance()) // (
	depth := 1
	for !lx.eof() {
		switch c := lx.peek(); c {
		case '\\':
			sb.WriteByte(lx.advance())
			if lx.eof() {
				return errIncompleteAt(lx.line, lx.col, "trailing backslash")
			}
			sb.WriteByte(lx.advance())
		case '\'':
			if err := lx.singleQuote(sb); err != nil {
				return err
			}
		case '"':
			if err := lx.doubleQuote(sb); err != nil {
				return err
			}
		case '`':
			if err := lx.backquote(sb); err != nil {
				return err
			}
		case '(':
			depth++
			sb.WriteByte(lx.advance())
		case ')':
			depth--
			sb.WriteByte(lx.advance())
			if depth == 0 {
				return nil
			}
		default:
			sb.WriteByte(lx.advance())
		}
	}
	return errIncompleteAt(line, col, "unterminated substitution")
}
