// Package interp is the execution engine: it runs parsed command trees,
// wiring pipelines and redirections, dispatching builtins, functions and
// external programs, and evaluating shell control flow over a single
// mutable environment.
package interp

import (
	"errors"
	"io"
	"os"
	"sync"

	"github.com/spf13/afero"

	"github.com/peshell/pesh/core/assist"
	"github.com/peshell/pesh/core/state"
	"github.com/peshell/pesh/core/syntax"
)

// Options configures a new interpreter. Zero values get sensible
// defaults: the OS filesystem, the process's standard streams, and a
// fresh empty environment.
type Options struct {
	// Name is the diagnostic prefix, usually the shell or script name.
	Name string
	Env  *state.Environment
	FS   afero.Fs

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Assist is the optional command-completion client backing the
	// assist builtin.
	Assist *assist.Client
}

// Interp executes command trees over one Environment. It is owned by a
// single execution path; forked paths (pipeline stages, background
// lists, command substitutions) run on isolated clones.
type Interp struct {
	name   string
	env    *state.Environment
	fs     afero.Fs
	fds    *fdTable
	assist *assist.Client

	exiting   bool
	returning bool

	bg *sync.WaitGroup
}

// New creates an interpreter.
func New(opts Options) *Interp {
	if opts.Name == "" {
		opts.Name = "pesh"
	}
	if opts.Env == nil {
		opts.Env = state.New()
	}
	if opts.FS == nil {
		opts.FS = afero.NewOsFs()
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	return &Interp{
		name:   opts.Name,
		env:    opts.Env,
		fs:     opts.FS,
		fds:    newFdTable(opts.Stdin, opts.Stdout, opts.Stderr),
		assist: opts.Assist,
		bg:     &sync.WaitGroup{},
	}
}

// Env exposes the live environment, mainly for front ends and tests.
func (in *Interp) Env() *state.Environment { return in.env }

// Exiting reports whether an exit builtin has requested shutdown.
func (in *Interp) Exiting() bool { return in.exiting }

// Wait blocks until all background lists started so far have finished.
func (in *Interp) Wait() { in.bg.Wait() }

// subshell clones the interpreter for a forked execution path: a deep
// environment snapshot and an independent descriptor table. Mutations in
// the clone are never visible to the parent.
func (in *Interp) subshell() *Interp {
	return &Interp{
		name:   in.name,
		env:    in.env.Clone(),
		fs:     in.fs,
		fds:    in.fds.clone(),
		assist: in.assist,
		bg:     in.bg,
	}
}

// Run parses and executes one script or command line, returning its exit
// status. Diagnostics have already been printed when it returns.
func (in *Interp) Run(src string) int {
	file, err := syntax.Parse(src)
	if err != nil {
		in.report(err)
		in.env.LastStatus = 2
		return 2
	}

	status, err := in.runSepList(file.Body)
	if err != nil {
		var abort *abortError
		if errors.As(err, &abort) {
			status = abort.status
		} else {
			// System-level failure outside the recoverable taxonomy.
			in.report(err)
			status = 1
		}
	}
	in.env.LastStatus = status
	return status
}

// runSepList executes list entries left to right. '&' entries fork a
// background child and proceed immediately, discarding its status; the
// list's status is that of the last synchronous entry.
func (in *Interp) runSepList(list *syntax.SepList) (int, error) {
	status := 0
	for _, item := range list.Items {
		if item.Sep == syntax.SepBackground {
			in.startBackground(item.List)
			continue
		}
		var err error
		status, err = in.runAndOr(item.List)
		if err != nil {
			return status, err
		}
		if in.exiting || in.returning {
			return status, nil
		}
	}
	return status, nil
}

// startBackground launches an and-or list on an isolated clone. The
// parent never waits here; children are reaped by Wait at shutdown or by
// the wait builtin.
func (in *Interp) startBackground(list *syntax.AndOr) {
	child := in.subshell()
	in.bg.Add(1)
	go func() {
		defer in.bg.Done()
		if _, err := child.runAndOr(list); err != nil {
			var abort *abortError
			if !errors.As(err, &abort) {
				child.report(err)
			}
		}
	}()
}

// runAndOr evaluates a left-to-right && / || chain. Each operator decides
// whether the following pipeline runs; skipped pipelines leave the status
// untouched, which skips forward past a whole run of same-operator
// entries in one pass.
func (in *Interp) runAndOr(list *syntax.AndOr) (int, error) {
	status, err := in.runPipeline(list.Items[0].Pipeline)
	in.env.LastStatus = status
	if err != nil || in.exiting || in.returning {
		return status, err
	}

	for i := 0; i < len(list.Items)-1; i++ {
		op := list.Items[i].Op
		if (op == syntax.OpAndIf && status != 0) || (op == syntax.OpOrIf && status == 0) {
			continue
		}
		status, err = in.runPipeline(list.Items[i+1].Pipeline)
		in.env.LastStatus = status
		if err != nil || in.exiting || in.returning {
			return status, err
		}
	}
	return status, nil
}

func (in *Interp) runCommand(cmd syntax.Command) (int, error) {
	switch c := cmd.(type) {
	case *syntax.SimpleCommand:
		return in.runSimple(c)

	case *syntax.FunctionDef:
		in.env.DefineFunc(c)
		return 0, nil

	case *syntax.Compound:
		// Compound redirections wrap the entire nested execution.
		restore, err := in.applyRedirects(c.Redirs)
		if err != nil {
			return in.handleErr(err)
		}
		defer restore()

		switch body := c.Cmd.(type) {
		case *syntax.If:
			return in.runIf(body)
		case *syntax.While:
			return in.runWhile(body)
		case *syntax.BraceGroup:
			return in.runSepList(body.Body)
		}
	}
	return 0, nil
}

// runIf runs each clause's condition in order and executes the body of
// the first one that succeeds; with no match the else body runs, or the
// whole construct succeeds vacuously.
func (in *Interp) runIf(cmd *syntax.If) (int, error) {
	for _, clause := range cmd.Clauses {
		status, err := in.runSepList(clause.Cond)
		if err != nil || in.exiting || in.returning {
			return status, err
		}
		if status == 0 {
			return in.runSepList(clause.Body)
		}
	}
	if cmd.Else != nil {
		return in.runSepList(cmd.Else)
	}
	return 0, nil
}

// runWhile loops while the condition succeeds. The construct's status is
// that of the last executed body, or success if the body never ran.
func (in *Interp) runWhile(cmd *syntax.While) (int, error) {
	status := 0
	for {
		condStatus, err := in.runSepList(cmd.Cond)
		if err != nil {
			return condStatus, err
		}
		if condStatus != 0 || in.exiting || in.returning {
			return status, nil
		}
		status, err = in.runSepList(cmd.Body)
		if err != nil {
			return status, err
		}
		if in.exiting || in.returning {
			return status, nil
		}
	}
}
