// Package state holds the mutable interpreter-wide execution state: shell
// variables, the positional-parameter stack, defined functions and the
// process-like attributes (working directory, umask, interactivity) that
// builtins mutate in place.
package state

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/peshell/pesh/core/syntax"
)

// Variable is a shell variable value plus its export flag.
type Variable struct {
	Value    string
	Exported bool
}

// Environment is owned by exactly one running interpreter. Forked
// execution paths (pipeline stages, background lists, command
// substitutions) receive an independent Clone, never the live value.
type Environment struct {
	vars   map[string]Variable
	frames [][]string
	funcs  map[string]*syntax.FunctionDef

	// Interactive selects the recoverable error policy: diagnostics are
	// printed and execution continues with the next statement.
	Interactive bool
	// Cwd is the logical working directory; it is applied to external
	// children at launch rather than via process-wide chdir so that
	// isolated clones cannot leak directory changes.
	Cwd string
	// Umask is the file-creation mode mask applied at external launch.
	Umask fs.FileMode
	// LastStatus is the exit status of the last synchronous pipeline,
	// read back by $? expansion.
	LastStatus int
}

// New creates an empty environment with a single empty positional frame.
func New() *Environment {
	return &Environment{
		vars:   make(map[string]Variable),
		frames: [][]string{nil},
		funcs:  make(map[string]*syntax.FunctionDef),
	}
}

// NewFromEnviron seeds an environment from OS-style "key=value" pairs,
// all marked exported, with args as the initial positional frame.
func NewFromEnviron(environ []string, args []string) *Environment {
	env := New()
	for _, kv := range environ {
		split := strings.SplitN(kv, "=", 2)
		key, value := split[0], ""
		if len(split) > 1 {
			value = split[1]
		}
		env.vars[key] = Variable{Value: value, Exported: true}
	}
	env.frames[0] = append([]string(nil), args...)
	return env
}

// Get returns the variable's value and whether it is set.
func (e *Environment) Get(name string) (string, bool) {
	v, ok := e.vars[name]
	return v.Value, ok
}

// Set creates or updates a variable, preserving any existing export flag.
func (e *Environment) Set(name, value string) {
	v := e.vars[name]
	v.Value = value
	e.vars[name] = v
}

// Export marks a variable exported, creating it empty if absent.
func (e *Environment) Export(name string) {
	v := e.vars[name]
	v.Exported = true
	e.vars[name] = v
}

// SetExported sets a value and marks it exported in one step.
func (e *Environment) SetExported(name, value string) {
	e.vars[name] = Variable{Value: value, Exported: true}
}

// Unset removes a variable.
func (e *Environment) Unset(name string) {
	delete(e.vars, name)
}

// Variables returns a name-sorted copy of all variables.
func (e *Environment) Variables() []string {
	names := make([]string, 0, len(e.vars))
	for name := range e.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the full variable record.
func (e *Environment) Lookup(name string) (Variable, bool) {
	v, ok := e.vars[name]
	return v, ok
}

// Environ returns the exported variables as sorted "key=value" pairs,
// suitable for an external child's process environment.
func (e *Environment) Environ() []string {
	var out []string
	for name, v := range e.vars {
		if v.Exported {
			out = append(out, fmt.Sprintf("%s=%s", name, v.Value))
		}
	}
	sort.Strings(out)
	return out
}

// PushArgs enters a new positional-parameter frame; used on function call
// entry so recursive calls each see their own $1...
func (e *Environment) PushArgs(args []string) {
	e.frames = append(e.frames, append([]string(nil), args...))
}

// PopArgs leaves the current frame. Popping the initial frame is a no-op.
func (e *Environment) PopArgs() {
	if len(e.frames) > 1 {
		e.frames = e.frames[:len(e.frames)-1]
	}
}

// Args returns the current positional frame.
func (e *Environment) Args() []string {
	return e.frames[len(e.frames)-1]
}

// Arg returns positional parameter i (1-based), or "" when out of range.
func (e *Environment) Arg(i int) string {
	args := e.Args()
	if i < 1 || i > len(args) {
		return ""
	}
	return args[i-1]
}

// DefineFunc registers (or replaces) a function definition.
func (e *Environment) DefineFunc(def *syntax.FunctionDef) {
	e.funcs[def.Name] = def
}

// LookupFunc finds a defined function by name.
func (e *Environment) LookupFunc(name string) (*syntax.FunctionDef, bool) {
	def, ok := e.funcs[name]
	return def, ok
}

// UnsetFunc removes a function definition.
func (e *Environment) UnsetFunc(name string) {
	delete(e.funcs, name)
}

// Clone returns a deep snapshot. Mutations on the clone are never visible
// through the original; this is the sole isolation mechanism between
// concurrently executing pipeline stages and background lists.
func (e *Environment) Clone() *Environment {
	out := &Environment{
		vars:        make(map[string]Variable, len(e.vars)),
		frames:      make([][]string, 0, len(e.frames)),
		funcs:       make(map[string]*syntax.FunctionDef, len(e.funcs)),
		Interactive: e.Interactive,
		Cwd:         e.Cwd,
		Umask:       e.Umask,
		LastStatus:  e.LastStatus,
	}
	for name, v := range e.vars {
		out.vars[name] = v
	}
	for _, frame := range e.frames {
		out.frames = append(out.frames, append([]string(nil), frame...))
	}
	for name, def := range e.funcs {
		out.funcs[name] = def
	}
	return out
}
