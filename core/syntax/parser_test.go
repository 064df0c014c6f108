package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *File {
	t.Helper()
	file, err := Parse(src)
	require.NoError(t, err, "parse %q", src)
	return file
}

func onlySimple(t *testing.T, file *File) *SimpleCommand {
	t.Helper()
	require.Len(t, file.Body.Items, 1)
	ao := file.Body.Items[0].List
	require.Len(t, ao.Items, 1)
	require.Len(t, ao.Items[0].Pipeline.Cmds, 1)
	cmd, ok := ao.Items[0].Pipeline.Cmds[0].(*SimpleCommand)
	require.True(t, ok, "expected a simple command")
	return cmd
}

func wordTexts(words []Word) []string {
	var out []string
	for _, w := range words {
		out = append(out, w.Text)
	}
	return out
}

func TestParseSimpleCommand(t *testing.T) {
	cmd := onlySimple(t, mustParse(t, `echo hello world`))
	assert.Equal(t, []string{"echo", "hello", "world"}, wordTexts(cmd.Words))
	assert.Empty(t, cmd.Assigns)
	assert.Empty(t, cmd.Redirs)
}

func TestParseQuotedWordKeepsRawText(t *testing.T) {
	cmd := onlySimple(t, mustParse(t, `echo "a b" 'c d'`))
	require.Len(t, cmd.Words, 3)
	assert.Equal(t, `"a b"`, cmd.Words[1].Text)
	assert.True(t, cmd.Words[1].Quoted)
	assert.Equal(t, `'c d'`, cmd.Words[2].Text)
}

func TestParseAssignments(t *testing.T) {
	cmd := onlySimple(t, mustParse(t, `a=1 b="two words" cmd c=3`))
	require.Len(t, cmd.Assigns, 2)
	assert.Equal(t, "a", cmd.Assigns[0].Name)
	assert.Equal(t, "1", cmd.Assigns[0].Value.Text)
	assert.Equal(t, "b", cmd.Assigns[1].Name)
	assert.Equal(t, `"two words"`, cmd.Assigns[1].Value.Text)

	// After the command name, word= is an ordinary argument.
	assert.Equal(t, []string{"cmd", "c=3"}, wordTexts(cmd.Words))
}

func TestParseAssignmentOnly(t *testing.T) {
	cmd := onlySimple(t, mustParse(t, `x=5`))
	require.Len(t, cmd.Assigns, 1)
	assert.Empty(t, cmd.Words)
}

func TestParsePipeline(t *testing.T) {
	file := mustParse(t, `a | b | c`)
	pl := file.Body.Items[0].List.Items[0].Pipeline
	require.Len(t, pl.Cmds, 3)
}

func TestParsePipelineContinuesAfterNewline(t *testing.T) {
	file := mustParse(t, "a |\n  b")
	pl := file.Body.Items[0].List.Items[0].Pipeline
	require.Len(t, pl.Cmds, 2)
}

func TestParseAndOr(t *testing.T) {
	file := mustParse(t, `a && b || c`)
	items := file.Body.Items[0].List.Items
	require.Len(t, items, 3)
	assert.Equal(t, OpAndIf, items[0].Op)
	assert.Equal(t, OpOrIf, items[1].Op)
	assert.Equal(t, OpNone, items[2].Op)
}

func TestParseSeparators(t *testing.T) {
	file := mustParse(t, "a; b &\nc")
	items := file.Body.Items
	require.Len(t, items, 3)
	assert.Equal(t, SepSeq, items[0].Sep)
	assert.Equal(t, SepBackground, items[1].Sep)
	assert.Equal(t, SepSeq, items[2].Sep)
}

func TestParseComments(t *testing.T) {
	file := mustParse(t, "echo one # a comment\n# whole line\necho two")
	assert.Len(t, file.Body.Items, 2)
}

func TestParseRedirects(t *testing.T) {
	cases := []struct {
		src string
		op  RedirOp
		fd  int
	}{
		{`cmd > out`, RedirOut, 1},
		{`cmd >> out`, RedirAppend, 1},
		{`cmd >| out`, RedirClobber, 1},
		{`cmd < in`, RedirIn, 0},
		{`cmd <> io`, RedirReadWrite, 0},
		{`cmd 2> err`, RedirOut, 2},
		{`cmd 2>&1`, RedirDupOut, 2},
		{`cmd 3<&0`, RedirDupIn, 3},
		{`cmd <&-`, RedirDupIn, 0},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			cmd := onlySimple(t, mustParse(t, tc.src))
			require.Len(t, cmd.Redirs, 1)
			assert.Equal(t, tc.op, cmd.Redirs[0].Op)
			assert.Equal(t, tc.fd, cmd.Redirs[0].Fd)
		})
	}
}

func TestParseDigitWordIsNotFd(t *testing.T) {
	// The descriptor number must directly precede the operator; here "2"
	// is an ordinary argument.
	cmd := onlySimple(t, mustParse(t, `echo 2 > out`))
	assert.Equal(t, []string{"echo", "2"}, wordTexts(cmd.Words))
	require.Len(t, cmd.Redirs, 1)
	assert.Equal(t, 1, cmd.Redirs[0].Fd)
}

func TestParseIf(t *testing.T) {
	file := mustParse(t, "if a; then b; elif c; then d; else e; fi")
	cc, ok := file.Body.Items[0].List.Items[0].Pipeline.Cmds[0].(*Compound)
	require.True(t, ok)
	ifCmd, ok := cc.Cmd.(*If)
	require.True(t, ok)
	assert.Len(t, ifCmd.Clauses, 2)
	assert.NotNil(t, ifCmd.Else)
}

func TestParseWhile(t *testing.T) {
	file := mustParse(t, "while a; do b; c; done")
	cc := file.Body.Items[0].List.Items[0].Pipeline.Cmds[0].(*Compound)
	whileCmd, ok := cc.Cmd.(*While)
	require.True(t, ok)
	assert.Len(t, whileCmd.Cond.Items, 1)
	assert.Len(t, whileCmd.Body.Items, 2)
}

func TestParseBraceGroupWithRedirect(t *testing.T) {
	file := mustParse(t, "{ a; b; } > out")
	cc := file.Body.Items[0].List.Items[0].Pipeline.Cmds[0].(*Compound)
	group, ok := cc.Cmd.(*BraceGroup)
	require.True(t, ok)
	assert.Len(t, group.Body.Items, 2)
	require.Len(t, cc.Redirs, 1)
	assert.Equal(t, RedirOut, cc.Redirs[0].Op)
}

func TestParseFunctionDef(t *testing.T) {
	file := mustParse(t, "greet() { echo hi; }")
	def, ok := file.Body.Items[0].List.Items[0].Pipeline.Cmds[0].(*FunctionDef)
	require.True(t, ok)
	assert.Equal(t, "greet", def.Name)
	assert.Len(t, def.Body.Items, 1)
}

func TestParseReservedWordAsArgument(t *testing.T) {
	// Reserved words only matter at command position.
	cmd := onlySimple(t, mustParse(t, `echo if then fi`))
	assert.Equal(t, []string{"echo", "if", "then", "fi"}, wordTexts(cmd.Words))
}

func TestParseLineContinuation(t *testing.T) {
	cmd := onlySimple(t, mustParse(t, "echo one \\\n two"))
	assert.Equal(t, []string{"echo", "one", "two"}, wordTexts(cmd.Words))
}

func TestParseErrors(t *testing.T) {
	cases := []string{
		"if a; then b;",     // missing fi
		"while a; do b;",    // missing done
		"{ a;",              // missing }
		"a &&",              // missing right side
		"| a",               // pipe with no left side
		"cmd >",             // missing redirection target
		"f() echo",          // function body must be a brace group
		`echo "unclosed`,    // unterminated quote
		"if a; fi",          // missing then
	}
	for _, src := range cases {
		t.Run(src, func(t *testing.T) {
			_, err := Parse(src)
			require.Error(t, err)

			var serr *Error
			require.ErrorAs(t, err, &serr)
			assert.Greater(t, serr.Line, 0)
		})
	}
}

func TestParseIncompleteInput(t *testing.T) {
	cases := []struct {
		src        string
		incomplete bool
	}{
		{"if true; then echo a;", true},
		{"while true; do", true},
		{"{ echo a;", true},
		{"echo a &&", true},
		{"echo a |", true},
		{"f() {", true},
		{`echo "unclosed`, true},
		{"echo 'unclosed", true},
		{"echo $(cat", true},
		{"echo one \\", true},
		// Broken in a way no further input can repair.
		{"| a", false},
		{"f() echo", false},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			_, err := Parse(tc.src)
			require.Error(t, err)
			assert.Equal(t, tc.incomplete, IsIncomplete(err))
		})
	}
}

func TestIsIncompleteNilAndForeignErrors(t *testing.T) {
	assert.False(t, IsIncomplete(nil))
	_, err := Parse("echo ok")
	assert.False(t, IsIncomplete(err))
}

func TestParseErrorPosition(t *testing.T) {
	_, err := Parse("echo ok\n| nope")
	require.Error(t, err)

	var serr *Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 2, serr.Line)
}
