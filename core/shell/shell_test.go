package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/peshell/pesh/core/interp"
	"github.com/peshell/pesh/core/state"
)

func promptShell(vars map[string]string, cwd string) *Shell {
	env := state.New()
	for k, v := range vars {
		env.Set(k, v)
	}
	env.Cwd = cwd
	return &Shell{Interp: interp.New(interp.Options{Env: env})}
}

func TestPrompt(t *testing.T) {
	cases := []struct {
		name     string
		vars     map[string]string
		cwd      string
		contains []string
	}{
		{
			name: "default escapes",
			vars: map[string]string{
				EnvUser:     "alice",
				EnvHostname: "box",
				EnvHome:     "/home/alice",
			},
			cwd:      "/home/alice/src",
			contains: []string{"alice@box", "~/src"},
		},
		{
			name: "custom PS1",
			vars: map[string]string{
				EnvPrompt: `(\u) `,
				EnvUser:   "bob",
			},
			cwd:      "/",
			contains: []string{"(bob) "},
		},
		{
			name: "home itself is tilde",
			vars: map[string]string{
				EnvUser:     "alice",
				EnvHostname: "box",
				EnvHome:     "/home/alice",
			},
			cwd:      "/home/alice",
			contains: []string{":~"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := promptShell(tc.vars, tc.cwd)
			prompt := s.Prompt()
			for _, want := range tc.contains {
				assert.Contains(t, prompt, want)
			}
			assert.NotContains(t, prompt, `\u`)
			assert.NotContains(t, prompt, `\w`)
		})
	}
}

func TestContinuationPrompt(t *testing.T) {
	s := promptShell(nil, "/")
	assert.Equal(t, DefaultContinuationPrompt, s.ContinuationPrompt())

	s = promptShell(map[string]string{EnvPrompt2: ">> "}, "/")
	assert.Equal(t, ">> ", s.ContinuationPrompt())
}

func TestCompleterCompletesBuiltins(t *testing.T) {
	c := &completer{interp: interp.New(interp.Options{Env: state.New()})}

	line := []rune("ech")
	got, length := c.Do(line, len(line))

	assert.Equal(t, 3, length)
	var suffixes []string
	for _, r := range got {
		suffixes = append(suffixes, string(r))
	}
	assert.Contains(t, suffixes, "o", "ech should complete to echo")
}

func TestCompleterIgnoresArguments(t *testing.T) {
	c := &completer{interp: interp.New(interp.Options{Env: state.New()})}

	line := []rune("echo hel")
	got, _ := c.Do(line, len(line))
	assert.Empty(t, got)
}
