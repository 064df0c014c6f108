package syntax

// File is a parsed script or command line.
type File struct {
	Body *SepList
}

// SepList is a sequence of and-or lists joined by ';' or '&' separators.
// The separator applies to the list entry before it: '&' runs that entry
// in the background, ';' (or a newline) runs it synchronously.
type SepList struct {
	Items []SepItem
}

type SepItem struct {
	List *AndOr
	Sep  Separator
}

type Separator int

const (
	SepSeq Separator = iota
	SepBackground
)

// AndOr chains pipelines with short-circuiting operators. The operator
// attached to an item governs whether the next pipeline runs, never the
// item itself; the final item carries OpNone.
type AndOr struct {
	Items []AndOrItem
}

type AndOrItem struct {
	Pipeline *Pipeline
	Op       AndOrOp
}

type AndOrOp int

const (
	OpNone AndOrOp = iota // end of list
	OpAndIf
	OpOrIf
)

// Pipeline is one or more commands whose standard streams are chained.
type Pipeline struct {
	Cmds []Command
}

// Command is a simple command, a redirected compound command, or a
// function definition.
type Command interface{ commandNode() }

// SimpleCommand holds the raw (pre-expansion) pieces of one command:
// leading name=value assignments, argument words and redirections.
type SimpleCommand struct {
	Assigns []Assign
	Words   []Word
	Redirs  []Redirect
}

// Word is raw word text; quotes are removed during expansion.
type Word struct {
	Text      string
	Quoted    bool
	Line, Col int
}

type Assign struct {
	Name  string
	Value Word
}

// Compound wraps an if, while or brace-group construct together with
// redirections that apply to the construct as a whole.
type Compound struct {
	Cmd    CompoundBody
	Redirs []Redirect
}

type CompoundBody interface{ compoundNode() }

type IfClause struct {
	Cond *SepList
	Body *SepList
}

type If struct {
	Clauses []IfClause
	Else    *SepList // nil when there is no else branch
}

type While struct {
	Cond *SepList
	Body *SepList
}

type BraceGroup struct {
	Body *SepList
}

// FunctionDef registers Name to run Body; it executes nothing itself.
type FunctionDef struct {
	Name string
	Body *SepList
}

func (*SimpleCommand) commandNode() {}
func (*Compound) commandNode()      {}
func (*FunctionDef) commandNode()   {}

func (*If) compoundNode()         {}
func (*While) compoundNode()      {}
func (*BraceGroup) compoundNode() {}

// RedirOp is a redirection operator.
type RedirOp int

const (
	RedirIn        RedirOp = iota // <
	RedirOut                      // >
	RedirAppend                   // >>
	RedirReadWrite                // <>
	RedirClobber                  // >|
	RedirDupIn                    // <&
	RedirDupOut                   // >&
)

func (op RedirOp) String() string {
	switch op {
	case RedirIn:
		return "<"
	case RedirOut:
		return ">"
	case RedirAppend:
		return ">>"
	case RedirReadWrite:
		return "<>"
	case RedirClobber:
		return ">|"
	case RedirDupIn:
		return "<&"
	case RedirDupOut:
		return ">&"
	}
	return "?"
}

// Redirect applies Op to descriptor Fd using the (unexpanded) Target word.
type Redirect struct {
	Op     RedirOp
	Fd     int
	Target Word
}
