package interp

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pborman/getopt/v2"
)

// BuiltinFunc is a command implemented inside the interpreter. args holds
// the expanded fields including the command name as args[0]; the return
// value is the command's exit status.
type BuiltinFunc func(in *Interp, args []string) int

// builtins holds all registered shell builtins.
var builtins = make(map[string]BuiltinFunc)

// Builtins lists the registered builtin names, sorted; used by help and
// the interactive completer.
func Builtins() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Cd is the cd shell builtin. It changes the interpreter's logical
// working directory, keeping PWD and OLDPWD in step.
func Cd(in *Interp, args []string) int {
	switch len(args) {
	case 1:
		home, _ := in.env.Get("HOME")
		if home == "" {
			fmt.Fprintf(in.stderr(), "%s: HOME not set\n", args[0])
			return 1
		}
		args = append(args, home)
		fallthrough
	case 2:
		target := args[1]
		if target == "-" {
			old, ok := in.env.Get("OLDPWD")
			if !ok {
				fmt.Fprintf(in.stderr(), "%s: OLDPWD not set\n", args[0])
				return 1
			}
			target = old
			fmt.Fprintln(in.stdout(), target)
		}
		if err := in.chdir(target); err != nil {
			fmt.Fprintf(in.stderr(), "%s: %v\n", args[0], err)
			return 1
		}
	default:
		fmt.Fprintf(in.stderr(), "%s: too many arguments\n", args[0])
		return 1
	}
	return 0
}

func (in *Interp) chdir(dir string) error {
	resolved := in.resolvePath(dir)
	resolved = filepath.Clean(resolved)
	stat, err := in.fs.Stat(resolved)
	switch {
	case err != nil:
		return fmt.Errorf("%s: %v", dir, underlying(err))
	case !stat.IsDir():
		return fmt.Errorf("%s: not a directory", dir)
	}
	in.env.Set("OLDPWD", in.env.Cwd)
	in.env.Cwd = resolved
	in.env.Set("PWD", resolved)
	return nil
}

func underlying(err error) error {
	if pe, ok := err.(*fs.PathError); ok {
		return pe.Err
	}
	return err
}

// Exit quits the shell with the given status, defaulting to the last
// command's status.
func Exit(in *Interp, args []string) int {
	status := in.env.LastStatus
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(in.stderr(), "%s: %s: numeric argument required\n", args[0], args[1])
			n = 2
		}
		status = n & 0xff
	}
	in.exiting = true
	return status
}

// Return exits the innermost function call.
func Return(in *Interp, args []string) int {
	status := in.env.LastStatus
	if len(args) > 1 {
		if n, err := strconv.Atoi(args[1]); err == nil {
			status = n & 0xff
		}
	}
	in.returning = true
	return status
}

// Export marks variables exported, optionally assigning them; with no
// arguments it lists the exported variables.
func Export(in *Interp, args []string) int {
	if len(args) == 1 {
		for _, name := range in.env.Variables() {
			if v, _ := in.env.Lookup(name); v.Exported {
				fmt.Fprintf(in.stdout(), "export %s=%q\n", name, v.Value)
			}
		}
		return 0
	}
	for _, arg := range args[1:] {
		if eq := strings.IndexByte(arg, '='); eq > 0 {
			in.env.SetExported(arg[:eq], arg[eq+1:])
		} else {
			in.env.Export(arg)
		}
	}
	return 0
}

// Unset removes variables and/or functions.
func Unset(in *Interp, args []string) int {
	opts := getopt.New()
	asFunc := opts.Bool('f', "treat NAME as a function")
	asVar := opts.Bool('v', "treat NAME as a variable")
	helpOpt := opts.BoolLong("help", 'h', "show help and exit")

	if err := opts.Getopt(args, nil); err != nil || *helpOpt {
		w := in.stderr()
		if err != nil {
			fmt.Fprintln(w, err)
		}
		fmt.Fprintln(w, "usage: unset [-fv] [NAME...]")
		fmt.Fprintln(w, "Unset shell variables and functions.")
		return 1
	}

	for _, name := range opts.Args() {
		switch {
		case *asFunc:
			in.env.UnsetFunc(name)
		case *asVar:
			in.env.Unset(name)
		default:
			in.env.Unset(name)
			in.env.UnsetFunc(name)
		}
	}
	return 0
}

// Umask prints or sets the file-creation mode mask.
func Umask(in *Interp, args []string) int {
	switch len(args) {
	case 1:
		fmt.Fprintf(in.stdout(), "%04o\n", uint32(in.env.Umask))
	case 2:
		mask, err := strconv.ParseUint(args[1], 8, 32)
		if err != nil || mask > 0777 {
			fmt.Fprintf(in.stderr(), "%s: %s: invalid mask\n", args[0], args[1])
			return 1
		}
		in.env.Umask = fs.FileMode(mask)
	default:
		fmt.Fprintf(in.stderr(), "%s: too many arguments\n", args[0])
		return 1
	}
	return 0
}

// Echo writes its arguments separated by spaces. -n suppresses the
// trailing newline.
func Echo(in *Interp, args []string) int {
	args = args[1:]
	newline := true
	if len(args) > 0 && args[0] == "-n" {
		newline = false
		args = args[1:]
	}
	fmt.Fprint(in.stdout(), strings.Join(args, " "))
	if newline {
		fmt.Fprintln(in.stdout())
	}
	return 0
}

// Read reads one line from standard input into the named variables.
// With several names the line is split on blanks and the last name takes
// the remainder. The status is nonzero at end of input.
func Read(in *Interp, args []string) int {
	names := args[1:]
	if len(names) == 0 {
		names = []string{"REPLY"}
	}

	line, ok := readLine(in.stdin())
	for i, name := range names {
		if !validName(name) {
			fmt.Fprintf(in.stderr(), "%s: %s: not a valid identifier\n", args[0], name)
			return 1
		}
		if i == len(names)-1 {
			in.env.Set(name, strings.TrimSpace(line))
			break
		}
		line = strings.TrimLeft(line, " \t")
		cut := strings.IndexAny(line, " \t")
		if cut < 0 {
			in.env.Set(name, line)
			line = ""
			continue
		}
		in.env.Set(name, line[:cut])
		line = line[cut:]
	}

	if !ok {
		return 1
	}
	return 0
}

// readLine consumes bytes one at a time so it never reads past the
// newline; later reads on the same stream see the following lines.
func readLine(r io.Reader) (string, bool) {
	var buf strings.Builder
	b := make([]byte, 1)
	for {
		n, err := r.Read(b)
		if n > 0 {
			if b[0] == '\n' {
				return buf.String(), true
			}
			buf.WriteByte(b[0])
		}
		if err != nil {
			return buf.String(), buf.Len() > 0
		}
	}
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validName(name string) bool {
	return identRe.MatchString(name)
}

// Wait blocks until all background lists have finished.
func Wait(in *Interp, args []string) int {
	in.bg.Wait()
	return 0
}

// Pwd prints the logical working directory.
func Pwd(in *Interp, args []string) int {
	fmt.Fprintln(in.stdout(), in.env.Cwd)
	return 0
}

// Help lists the builtin commands.
func Help(in *Interp, args []string) int {
	w := in.stdout()
	fmt.Fprintln(w, "These commands are defined internally.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Join(Builtins(), "\n"))
	return 0
}

// Assist queries the configured completion assistant with the argument
// words, prints the suggested command line, and with -x runs it.
func Assist(in *Interp, args []string) int {
	opts := getopt.New()
	execute := opts.Bool('x', "execute the suggested command after printing it")
	helpOpt := opts.BoolLong("help", 'h', "show help and exit")

	if err := opts.Getopt(args, nil); err != nil || *helpOpt {
		w := in.stderr()
		if err != nil {
			fmt.Fprintln(w, err)
		}
		fmt.Fprintln(w, "usage: assist [-x] QUERY...")
		fmt.Fprintln(w, "Ask the completion assistant for a command.")
		return 1
	}

	if in.assist == nil {
		fmt.Fprintf(in.stderr(), "%s: no assist endpoint configured\n", args[0])
		return 1
	}

	query := strings.Join(opts.Args(), " ")
	suggestion, err := in.assist.Suggest(context.Background(), query)
	if err != nil {
		fmt.Fprintf(in.stderr(), "%s: %v\n", args[0], err)
		return 1
	}
	fmt.Fprintln(in.stdout(), suggestion)

	if *execute {
		return in.Run(suggestion)
	}
	return 0
}

func init() {
	builtins["cd"] = Cd
	builtins["pwd"] = Pwd
	builtins["exit"] = Exit
	builtins["return"] = Return
	builtins["export"] = Export
	builtins["unset"] = Unset
	builtins["umask"] = Umask
	builtins["echo"] = Echo
	builtins["read"] = Read
	builtins["wait"] = Wait
	builtins["help"] = Help
	builtins["assist"] = Assist
	builtins["true"] = func(in *Interp, args []string) int { return 0 }
	builtins["false"] = func(in *Interp, args []string) int { return 1 }
	builtins[":"] = func(in *Interp, args []string) int { return 0 }
}
