// Package shell is the interactive front end: a readline loop that feeds
// lines to the execution engine, with prompt expansion and word
// completion.
package shell

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/abiosoft/readline"
	"github.com/anmitsu/go-shlex"
	"github.com/fatih/color"
	"github.com/spf13/afero"

	"github.com/peshell/pesh/core/config"
	"github.com/peshell/pesh/core/interp"
	"github.com/peshell/pesh/core/syntax"
)

const (
	EnvHome     = "HOME"
	EnvPWD      = "PWD"
	EnvPath     = "PATH"
	EnvPrompt   = "PS1"
	EnvPrompt2  = "PS2"
	EnvHostname = "HOSTNAME"
	EnvUser     = "USER"

	DefaultPrompt             = `\u@\h:\w\$ `
	DefaultContinuationPrompt = "> "
)

var promptUserHost = color.New(color.FgGreen, color.Bold)

// Shell wraps one interpreter in an interactive readline session.
type Shell struct {
	Interp   *interp.Interp
	Readline *readline.Instance

	history afero.File
	stderr  io.Writer
	isPty   bool
}

// New builds an interactive session reading from stdin and writing to
// stdout/stderr, which are usually but not necessarily the process's own
// terminal.
func New(configuration *config.Configuration, in *interp.Interp, stdin io.Reader, stdout, stderr io.Writer, isPty bool) (*Shell, error) {
	cfg := &readline.Config{
		Stdin:  readline.NewCancelableStdin(io.NopCloser(toReader(stdin))),
		Stdout: toWriter(stdout),
		Stderr: toWriter(stderr),
		FuncIsTerminal: func() bool {
			return isPty
		},
		AutoComplete: &completer{interp: in},
	}
	if err := cfg.Init(); err != nil {
		return nil, err
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, err
	}

	history, err := configuration.OpenHistory()
	if err != nil {
		// History is best effort; the session works without it.
		history = nil
	}

	return &Shell{
		Interp:   in,
		Readline: rl,
		history:  history,
		stderr:   toWriter(stderr),
		isPty:    isPty,
	}, nil
}

// Prompt renders PS1 with the usual escapes: \u user, \h host, \w
// working directory with a ~ home prefix, \$ by effective uid.
func (s *Shell) Prompt() string {
	env := s.Interp.Env()
	prompt, _ := env.Get(EnvPrompt)
	if prompt == "" {
		prompt = DefaultPrompt
	}

	user, _ := env.Get(EnvUser)
	host, _ := env.Get(EnvHostname)
	userHost := user + "@" + host
	if s.isPty {
		userHost = promptUserHost.Sprint(userHost)
	}
	if strings.Contains(prompt, `\u@\h`) {
		prompt = strings.ReplaceAll(prompt, `\u@\h`, userHost)
	} else {
		prompt = strings.ReplaceAll(prompt, `\u`, user)
		prompt = strings.ReplaceAll(prompt, `\h`, host)
	}

	pwd := env.Cwd
	home, _ := env.Get(EnvHome)
	if home != "" && strings.HasPrefix(pwd, home) {
		pwd = "~" + strings.TrimPrefix(pwd, home)
	}
	prompt = strings.ReplaceAll(prompt, `\w`, pwd)

	if os.Geteuid() == 0 {
		prompt = strings.ReplaceAll(prompt, `\$`, "#")
	} else {
		prompt = strings.ReplaceAll(prompt, `\$`, "$")
	}

	return prompt
}

// ContinuationPrompt is the PS2 prompt shown while a quote or compound
// construct is still open.
func (s *Shell) ContinuationPrompt() string {
	if prompt, _ := s.Interp.Env().Get(EnvPrompt2); prompt != "" {
		return prompt
	}
	return DefaultContinuationPrompt
}

// Run reads and executes commands until end of input or an exit builtin.
// The returned status is that of the last executed command.
func (s *Shell) Run() int {
	status := 0
	for {
		line, err := s.readCommand()

		switch {
		case err == io.EOF:
			return status

		case err == readline.ErrInterrupt:
			continue

		case err != nil:
			fmt.Fprintf(s.stderr, "readline: %v\n", err)
			return status

		case strings.TrimSpace(line) == "":
			continue
		}

		if s.history != nil {
			fmt.Fprintln(s.history, line)
		}

		status = s.Interp.Run(line)
		if s.Interp.Exiting() {
			return status
		}
	}
}

// readCommand reads one complete command, prompting with PS2 and
// accumulating lines while the input is still mid-construct.
func (s *Shell) readCommand() (string, error) {
	s.Readline.SetPrompt(s.Prompt())
	line, err := s.Readline.Readline()
	if err != nil {
		return "", err
	}

	for {
		if _, err := syntax.Parse(line); !syntax.IsIncomplete(err) {
			return line, nil
		}

		s.Readline.SetPrompt(s.ContinuationPrompt())
		more, err := s.Readline.Readline()
		switch {
		case err == io.EOF:
			// Input ended mid-construct; let the engine report it.
			return line, nil
		case err != nil:
			return "", err
		}
		line += "\n" + more
	}
}

// Close releases the readline instance and history file.
func (s *Shell) Close() error {
	if s.history != nil {
		s.history.Close()
	}
	return s.Readline.Close()
}

// completer offers command-name completion for the first word of the
// line: builtins, defined functions and executables on PATH.
type completer struct {
	interp *interp.Interp
}

func (c *completer) Do(line []rune, pos int) ([][]rune, int) {
	prefix := string(line[:pos])
	words, err := shlex.Split(prefix, true)
	if err != nil || len(words) > 1 {
		return nil, 0
	}
	var partial string
	if len(words) == 1 {
		partial = words[0]
	}
	if strings.HasSuffix(prefix, " ") && partial != "" {
		// Completing an argument, not the command name.
		return nil, 0
	}

	var out [][]rune
	for _, name := range c.candidates() {
		if strings.HasPrefix(name, partial) && name != partial {
			out = append(out, []rune(name[len(partial):]))
		}
	}
	return out, len(partial)
}

func (c *completer) candidates() []string {
	seen := make(map[string]bool)
	for _, name := range interp.Builtins() {
		seen[name] = true
	}
	path, _ := c.interp.Env().Get(EnvPath)
	for _, dir := range strings.Split(path, ":") {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				seen[entry.Name()] = true
			}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func toReader(r io.Reader) io.Reader {
	if r == nil {
		return os.Stdin
	}
	return r
}

func toWriter(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
