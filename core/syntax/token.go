package syntax

import (
	"errors"
	"fmt"
)

// TokenKind enumerates the lexical classes produced by Tokenize.
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokWord
	// TokIONumber is an unquoted all-digit word immediately followed by a
	// redirection operator, e.g. the 2 in "2>err". With blanks between,
	// the digits are an ordinary word.
	TokIONumber
	TokNewline
	TokSemi     // ;
	TokAmp      // &
	TokAndIf    // &&
	TokPipe     // |
	TokOrIf     // ||
	TokLParen   // (
	TokRParen   // )
	TokLess     // <
	TokGreat    // >
	TokDGreat   // >>
	TokLessGr   // <>
	TokClobber  // >|
	TokLessAnd  // <&
	TokGreatAnd // >&
)

func (k TokenKind) String() string {
	switch k {
	case TokEOF:
		return "end of input"
	case TokWord:
		return "word"
	case TokIONumber:
		return "io number"
	case TokNewline:
		return "newline"
	case TokSemi:
		return ";"
	case TokAmp:
		return "&"
	case TokAndIf:
		return "&&"
	case TokPipe:
		return "|"
	case TokOrIf:
		return "||"
	case TokLParen:
		return "("
	case TokRParen:
		return ")"
	case TokLess:
		return "<"
	case TokGreat:
		return ">"
	case TokDGreat:
		return ">>"
	case TokLessGr:
		return "<>"
	case TokClobber:
		return ">|"
	case TokLessAnd:
		return "<&"
	case TokGreatAnd:
		return ">&"
	}
	return "unknown token"
}

// Token is a single lexical item. Word tokens keep their raw text,
// quotes included; quote removal happens during word expansion.
type Token struct {
	Kind TokenKind
	Text string
	// Quoted reports whether any part of a word token was quoted or
	// escaped. Quoted words are never treated as reserved words.
	Quoted    bool
	Line, Col int
}

// Error is a tokenization or parse failure with a source position.
type Error struct {
	Line, Col int
	Msg       string
	// Incomplete marks failures caused by the input ending mid-construct,
	// such as an unterminated quote or an if without its fi. More input
	// could still complete the command.
	Incomplete bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("syntax error at %d:%d: %s", e.Line, e.Col, e.Msg)
}

// IsIncomplete reports whether err is a syntax error that further input
// could resolve. Interactive front ends use this to show a continuation
// prompt instead of reporting the error.
func IsIncomplete(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Incomplete
}

func errAt(line, col int, format string, args ...interface{}) *Error {
	return &Error{Line: line, Col: col, Msg: fmt.Sprintf(format, args...)}
}

func errIncompleteAt(line, col int, format string, args ...interface{}) *Error {
	e := errAt(line, col, format, args...)
	e.Incomplete = true
	return e
}
