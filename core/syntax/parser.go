package syntax

import (
	"regexp"
	"strconv"
	"strings"
)

// Parse tokenizes and parses src into a command tree.
func Parse(src string) (*File, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	body, err := p.sepList()
	if err != nil {
		return nil, err
	}
	if tok := p.tok(); tok.Kind != TokEOF {
		return nil, errTok(tok, "unexpected %s", tok.Kind)
	}
	return &File{Body: body}, nil
}

type parser struct {
	toks []Token
	pos  int
}

func (p *parser) tok() Token  { return p.toks[p.pos] }
func (p *parser) next() Token { t := p.toks[p.pos]; p.pos++; return t }

func (p *parser) skipNewlines() {
	for p.tok().Kind == TokNewline {
		p.next()
	}
}

// reservedAt reports whether the current token is the given unquoted
// reserved word. Reserved words only matter at command position, which is
// where the parser calls this.
func (p *parser) reservedAt(words ...string) bool {
	tok := p.tok()
	if tok.Kind != TokWord || tok.Quoted {
		return false
	}
	for _, w := range words {
		if tok.Text == w {
			return true
		}
	}
	return false
}

func (p *parser) expectReserved(word string) error {
	if !p.reservedAt(word) {
		tok := p.tok()
		return errTok(tok, "expected %q, found %s", word, tokenDesc(tok))
	}
	p.next()
	return nil
}

func tokenDesc(tok Token) string {
	if tok.Kind == TokWord {
		return strconv.Quote(tok.Text)
	}
	return tok.Kind.String()
}

// errTok builds a parse error positioned at tok. When tok is end of
// input the construct may still be completed by more input, which
// interactive front ends detect with IsIncomplete.
func errTok(tok Token, format string, args ...interface{}) *Error {
	e := errAt(tok.Line, tok.Col, format, args...)
	e.Incomplete = tok.Kind == TokEOF
	return e
}

// sepList parses a sequence of and-or lists until EOF or one of the stop
// reserved words appears at command position.
func (p *parser) sepList(stops ...string) (*SepList, error) {
	list := &SepList{}
	for {
		p.skipNewlines()
		tok := p.tok()
		if tok.Kind == TokEOF || p.reservedAt(stops...) {
			return list, nil
		}

		ao, err := p.andOr(stops)
		if err != nil {
			return nil, err
		}

		item := SepItem{List: ao, Sep: SepSeq}
		switch p.tok().Kind {
		case TokSemi, TokNewline:
			p.next()
		case TokAmp:
			item.Sep = SepBackground
			p.next()
		}
		list.Items = append(list.Items, item)
	}
}

func (p *parser) andOr(stops []string) (*AndOr, error) {
	ao := &AndOr{}
	for {
		pl, err := p.pipeline(stops)
		if err != nil {
			return nil, err
		}
		item := AndOrItem{Pipeline: pl, Op: OpNone}
		switch p.tok().Kind {
		case TokAndIf:
			item.Op = OpAndIf
		case TokOrIf:
			item.Op = OpOrIf
		default:
			ao.Items = append(ao.Items, item)
			return ao, nil
		}
		p.next()
		p.skipNewlines() // allow the chain to continue on the next line
		ao.Items = append(ao.Items, item)
	}
}

func (p *parser) pipeline(stops []string) (*Pipeline, error) {
	pl := &Pipeline{}
	for {
		cmd, err := p.command(stops)
		if err != nil {
			return nil, err
		}
		pl.Cmds = append(pl.Cmds, cmd)
		if p.tok().Kind != TokPipe {
			return pl, nil
		}
		p.next()
		p.skipNewlines()
	}
}

var nameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
var assignRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*=`)

func (p *parser) command(stops []string) (Command, error) {
	switch {
	case p.reservedAt("if"):
		return p.compound(p.ifCommand)
	case p.reservedAt("while"):
		return p.compound(p.whileCommand)
	case p.reservedAt("{"):
		return p.compound(p.braceGroup)
	}

	tok := p.tok()
	if tok.Kind == TokWord && !tok.Quoted && nameRe.MatchString(tok.Text) &&
		p.toks[p.pos+1].Kind == TokLParen {
		return p.functionDef()
	}

	return p.simpleCommand(stops)
}

// compound parses one compound construct plus any trailing redirections,
// which scope over the whole construct.
func (p *parser) compound(parse func() (CompoundBody, error)) (Command, error) {
	body, err := parse()
	if err != nil {
		return nil, err
	}
	cc := &Compound{Cmd: body}
	for {
		redir, ok, err := p.redirect()
		if err != nil {
			return nil, err
		}
		if !ok {
			return cc, nil
		}
		cc.Redirs = append(cc.Redirs, redir)
	}
}

func (p *parser) ifCommand() (CompoundBody, error) {
	p.next() // if
	out := &If{}
	for {
		cond, err := p.sepList("then")
		if err != nil {
			return nil, err
		}
		if err := p.expectReserved("then"); err != nil {
			return nil, err
		}
		body, err := p.sepList("elif", "else", "fi")
		if err != nil {
			return nil, err
		}
		out.Clauses = append(out.Clauses, IfClause{Cond: cond, Body: body})

		switch {
		case p.reservedAt("elif"):
			p.next()
			continue
		case p.reservedAt("else"):
			p.next()
			elseBody, err := p.sepList("fi")
			if err != nil {
				return nil, err
			}
			out.Else = elseBody
		}
		return out, p.expectReserved("fi")
	}
}

func (p *parser) whileCommand() (CompoundBody, error) {
	p.next() // while
	cond, err := p.sepList("do")
	if err != nil {
		return nil, err
	}
	if err := p.expectReserved("do"); err != nil {
		return nil, err
	}
	body, err := p.sepList("done")
	if err != nil {
		return nil, err
	}
	return &While{Cond: cond, Body: body}, p.expectReserved("done")
}

func (p *parser) braceGroup() (CompoundBody, error) {
	p.next() // {
	body, err := p.sepList("}")
	if err != nil {
		return nil, err
	}
	return &BraceGroup{Body: body}, p.expectReserved("}")
}

func (p *parser) functionDef() (Command, error) {
	name := p.next().Text
	p.next() // (
	if tok := p.tok(); tok.Kind != TokRParen {
		return nil, errTok(tok, "expected ) after function name %q", name)
	}
	p.next()
	p.skipNewlines()
	if !p.reservedAt("{") {
		tok := p.tok()
		return nil, errTok(tok, "expected { in definition of %q", name)
	}
	p.next()
	body, err := p.sepList("}")
	if err != nil {
		return nil, err
	}
	return &FunctionDef{Name: name, Body: body}, p.expectReserved("}")
}

func (p *parser) simpleCommand(stops []string) (Command, error) {
	cmd := &SimpleCommand{}
	for {
		redir, ok, err := p.redirect()
		if err != nil {
			return nil, err
		}
		if ok {
			cmd.Redirs = append(cmd.Redirs, redir)
			continue
		}

		tok := p.tok()
		if tok.Kind != TokWord {
			break
		}
		// Reserved words end the command only at command position.
		if len(cmd.Words) == 0 && len(cmd.Assigns) == 0 && len(cmd.Redirs) == 0 &&
			p.reservedAt(stops...) {
			break
		}

		// Assignment words: the name= prefix must be unquoted, which the
		// pattern guarantees since quote characters cannot match it.
		if len(cmd.Words) == 0 && assignRe.MatchString(tok.Text) {
			eq := strings.IndexByte(tok.Text, '=')
			cmd.Assigns = append(cmd.Assigns, Assign{
				Name:  tok.Text[:eq],
				Value: Word{Text: tok.Text[eq+1:], Line: tok.Line, Col: tok.Col},
			})
			p.next()
			continue
		}

		cmd.Words = append(cmd.Words, Word{Text: tok.Text, Quoted: tok.Quoted, Line: tok.Line, Col: tok.Col})
		p.next()
	}

	if len(cmd.Words) == 0 && len(cmd.Assigns) == 0 && len(cmd.Redirs) == 0 {
		tok := p.tok()
		return nil, errTok(tok, "unexpected %s", tokenDesc(tok))
	}
	return cmd, nil
}

// redirect parses one redirection, including an optional leading
// descriptor number, e.g. 2>file or 3<&0. It reports ok=false when the
// current tokens do not begin a redirection.
func (p *parser) redirect() (Redirect, bool, error) {
	fd := -1
	opPos := p.pos
	if tok := p.tok(); tok.Kind == TokIONumber {
		n, err := strconv.Atoi(tok.Text)
		if err != nil {
			return Redirect{}, false, errAt(tok.Line, tok.Col, "bad file descriptor %q", tok.Text)
		}
		fd = n
		opPos = p.pos + 1
	}

	opTok := p.toks[opPos]
	if !kindIsRedirect(opTok.Kind) {
		return Redirect{}, false, nil
	}

	var op RedirOp
	switch opTok.Kind {
	case TokLess:
		op = RedirIn
	case TokGreat:
		op = RedirOut
	case TokDGreat:
		op = RedirAppend
	case TokLessGr:
		op = RedirReadWrite
	case TokClobber:
		op = RedirClobber
	case TokLessAnd:
		op = RedirDupIn
	case TokGreatAnd:
		op = RedirDupOut
	}
	if fd < 0 {
		if op == RedirIn || op == RedirReadWrite || op == RedirDupIn {
			fd = 0
		} else {
			fd = 1
		}
	}

	p.pos = opPos + 1
	target := p.tok()
	if target.Kind != TokWord {
		return Redirect{}, false, errTok(target,
			"expected redirection target after %s, found %s", opTok.Kind, tokenDesc(target))
	}
	p.next()
	return Redirect{
		Op: op,
		Fd: fd,
		Target: Word{Text: target.Text, Quoted: target.Quoted,
			Line: target.Line, Col: target.Col},
	}, true, nil
}

func kindIsRedirect(k TokenKind) bool {
	switch k {
	case TokLess, TokGreat, TokDGreat, TokLessGr, TokClobber, TokLessAnd, TokGreatAnd:
		return true
	}
	return false
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
