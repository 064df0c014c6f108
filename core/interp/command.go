package interp

import (
	"bytes"
	"errors"
	"os"

	"github.com/peshell/pesh/core/arith"
	"github.com/peshell/pesh/core/expand"
	"github.com/peshell/pesh/core/syntax"
)

// runSimple is the simple-command catch point: every failure from
// expansion, redirection or launch funnels through the recoverable error
// policy here.
func (in *Interp) runSimple(cmd *syntax.SimpleCommand) (int, error) {
	status, err := in.simple(cmd)
	if err != nil {
		return in.handleErr(err)
	}
	return status, nil
}

// simple dispatches one command: functions first, then builtins, then
// external executables.
func (in *Interp) simple(cmd *syntax.SimpleCommand) (int, error) {
	cfg := in.expandCfg()

	var fields []string
	for _, word := range cmd.Words {
		expanded, err := expand.Fields(cfg, word.Text)
		if err != nil {
			return 1, err
		}
		fields = append(fields, expanded...)
	}

	// No command name: perform the assignments and redirections for
	// their side effects, restoring descriptors immediately.
	if len(fields) == 0 {
		if err := in.applyAssigns(cmd.Assigns, cfg); err != nil {
			return 1, err
		}
		restore, err := in.applyRedirects(cmd.Redirs)
		if err != nil {
			return 1, err
		}
		restore()
		return 0, nil
	}

	if def, ok := in.env.LookupFunc(fields[0]); ok {
		return in.callFunction(def, fields, cmd, cfg)
	}

	if builtin, ok := builtins[fields[0]]; ok {
		if err := in.applyAssigns(cmd.Assigns, cfg); err != nil {
			return 1, err
		}
		restore, err := in.applyRedirects(cmd.Redirs)
		if err != nil {
			return 1, err
		}
		defer restore()
		return builtin(in, fields), nil
	}

	return in.runExternal(cmd, fields, cfg)
}

// callFunction runs a defined function with the remaining fields as its
// own positional-parameter frame. The frame is popped on every exit path,
// including errors and early return.
func (in *Interp) callFunction(def *syntax.FunctionDef, fields []string, cmd *syntax.SimpleCommand, cfg *expand.Config) (int, error) {
	restore, err := in.applyRedirects(cmd.Redirs)
	if err != nil {
		return 1, err
	}
	defer restore()

	if err := in.applyAssigns(cmd.Assigns, cfg); err != nil {
		return 1, err
	}

	in.env.PushArgs(fields[1:])
	defer in.env.PopArgs()

	status, err := in.runSepList(def.Body)
	in.returning = false
	return status, err
}

func (in *Interp) applyAssigns(assigns []syntax.Assign, cfg *expand.Config) error {
	for _, assign := range assigns {
		value, err := expand.Literal(cfg, assign.Value.Text)
		if err != nil {
			return err
		}
		in.env.Set(assign.Name, value)
	}
	return nil
}

// expandCfg wires word expansion to this interpreter: variable reads, the
// positional frame, arithmetic evaluation over the live environment, and
// command substitution through an isolated child.
func (in *Interp) expandCfg() *expand.Config {
	return &expand.Config{
		Var: in.env.Get,
		Arg: func(i int) string {
			if i == 0 {
				return in.name
			}
			return in.env.Arg(i)
		},
		NumArgs: func() int { return len(in.env.Args()) },
		Status:  func() int { return in.env.LastStatus },
		Pid:     os.Getpid,
		Arith: func(expr string) (int64, error) {
			return arith.Eval(in.env, expr)
		},
		CmdSubst: in.commandOutput,
	}
}

// commandOutput runs src in an isolated child with its standard output
// captured, implementing $(...) substitution.
func (in *Interp) commandOutput(src string) (string, error) {
	file, err := syntax.Parse(src)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	child := in.subshell()
	child.fds.set(1, writeEntry(&buf))
	if _, err := child.runSepList(file.Body); err != nil {
		// The child already printed its diagnostic; a substitution
		// abort yields whatever output was produced.
		var abort *abortError
		if !errors.As(err, &abort) {
			return buf.String(), err
		}
	}
	return buf.String(), nil
}
