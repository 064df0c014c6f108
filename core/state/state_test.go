package state

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peshell/pesh/core/syntax"
)

func ExampleNewFromEnviron() {
	env := NewFromEnviron([]string{"A=B", "C=D", "E", "F=G=H"}, nil)

	fmt.Printf("Environ(): %q\n", env.Environ())
	v, _ := env.Get("F")
	fmt.Printf("Get(\"F\"): %q\n", v)

	// Output: Environ(): ["A=B" "C=D" "E=" "F=G=H"]
	// Get("F"): "G=H"
}

func TestEnvironmentSetPreservesExport(t *testing.T) {
	env := New()
	env.SetExported("A", "1")
	env.Set("A", "2")

	v, ok := env.Lookup("A")
	require.True(t, ok)
	assert.Equal(t, "2", v.Value)
	assert.True(t, v.Exported, "Set must not clear the export flag")
}

func TestEnvironmentEnvironOnlyExported(t *testing.T) {
	env := New()
	env.Set("local", "x")
	env.SetExported("B", "2")
	env.SetExported("A", "1")

	assert.Equal(t, []string{"A=1", "B=2"}, env.Environ())
}

func TestEnvironmentUnset(t *testing.T) {
	env := New()
	env.SetExported("A", "1")
	env.Unset("A")

	_, ok := env.Get("A")
	assert.False(t, ok)
	assert.Empty(t, env.Environ())
}

func TestPositionalFrames(t *testing.T) {
	env := NewFromEnviron(nil, []string{"one", "two"})

	assert.Equal(t, "one", env.Arg(1))
	assert.Equal(t, "two", env.Arg(2))
	assert.Equal(t, "", env.Arg(3), "out of range is empty")
	assert.Equal(t, "", env.Arg(0), "0 is not part of the frame")

	env.PushArgs([]string{"inner"})
	assert.Equal(t, "inner", env.Arg(1))
	assert.Equal(t, "", env.Arg(2))

	env.PopArgs()
	assert.Equal(t, "one", env.Arg(1))

	// The initial frame can't be popped away.
	env.PopArgs()
	env.PopArgs()
	assert.Equal(t, "one", env.Arg(1))
}

func TestCloneIsolation(t *testing.T) {
	env := New()
	env.SetExported("A", "1")
	env.PushArgs([]string{"p1"})
	env.Cwd = "/tmp"

	clone := env.Clone()
	clone.Set("A", "changed")
	clone.Unset("A")
	clone.PushArgs([]string{"other"})
	clone.Cwd = "/elsewhere"

	v, ok := env.Get("A")
	require.True(t, ok, "clone mutations must not leak")
	assert.Equal(t, "1", v)
	assert.Equal(t, "p1", env.Arg(1))
	assert.Equal(t, "/tmp", env.Cwd)
}

func TestFunctions(t *testing.T) {
	env := New()

	_, ok := env.LookupFunc("f")
	assert.False(t, ok)

	env.DefineFunc(&syntax.FunctionDef{Name: "f"})
	def, ok := env.LookupFunc("f")
	require.True(t, ok)
	assert.Equal(t, "f", def.Name)

	env.UnsetFunc("f")
	_, ok = env.LookupFunc("f")
	assert.False(t, ok)
}
