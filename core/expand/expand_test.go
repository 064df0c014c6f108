package expand

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(vars map[string]string, args []string) *Config {
	return &Config{
		Var: func(name string) (string, bool) {
			v, ok := vars[name]
			return v, ok
		},
		Arg: func(i int) string {
			if i == 0 {
				return "pesh"
			}
			if i > len(args) {
				return ""
			}
			return args[i-1]
		},
		NumArgs: func() int { return len(args) },
		Status:  func() int { return 3 },
		Pid:     func() int { return 42 },
		Arith: func(expr string) (int64, error) {
			if expr == "2+3*4" {
				return 14, nil
			}
			return 0, fmt.Errorf("unexpected expression %q", expr)
		},
		CmdSubst: func(src string) (string, error) {
			if src == "get lines" {
				return "a b\nc\n\n", nil
			}
			return "", fmt.Errorf("unexpected substitution %q", src)
		},
	}
}

func TestFields(t *testing.T) {
	vars := map[string]string{
		"x":     "hello",
		"multi": "one two  three",
		"empty": "",
		"HOME":  "/home/u",
	}
	args := []string{"first", "second arg"}

	cases := []struct {
		word     string
		expected []string
	}{
		{`plain`, []string{"plain"}},
		{`$x`, []string{"hello"}},
		{`${x}`, []string{"hello"}},
		{`pre$x/post`, []string{"prehello/post"}},
		{`"$x world"`, []string{"hello world"}},
		{`'$x'`, []string{"$x"}},
		{`\$x`, []string{"$x"}},

		// Unquoted expansion results are field split.
		{`$multi`, []string{"one", "two", "three"}},
		{`"$multi"`, []string{"one two  three"}},
		{`a$multi`, []string{"aone", "two", "three"}},

		// Empty expansions: quoted keeps a field, unquoted vanishes.
		{`""`, []string{""}},
		{`''`, []string{""}},
		{`"$empty"`, []string{""}},
		{`$empty`, nil},
		{`$unset`, nil},
		{`a$empty`, []string{"a"}},

		// Special parameters.
		{`$?`, []string{"3"}},
		{`$#`, []string{"2"}},
		{`$$`, []string{"42"}},
		{`$1`, []string{"first"}},
		{`"$2"`, []string{"second arg"}},
		{`$2`, []string{"second", "arg"}},
		{`$3`, nil},
		{`"$@"`, []string{"first second arg"}},

		// Arithmetic expansion.
		{`$((2+3*4))`, []string{"14"}},
		{`"=$((2+3*4))="`, []string{"=14="}},

		// Command substitution: trailing newlines trimmed, results split.
		{`$(get lines)`, []string{"a", "b", "c"}},
		{`"$(get lines)"`, []string{"a b\nc"}},
		{"`get lines`", []string{"a", "b", "c"}},

		// A lone or trailing $ is literal.
		{`$`, []string{"$"}},
		{`cost$`, []string{"cost$"}},
	}

	for _, tc := range cases {
		t.Run(tc.word, func(t *testing.T) {
			got, err := Fields(testConfig(vars, args), tc.word)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestLiteralDoesNotSplit(t *testing.T) {
	vars := map[string]string{"multi": "one two"}
	got, err := Literal(testConfig(vars, nil), `$multi-x`)
	require.NoError(t, err)
	assert.Equal(t, "one two-x", got)
}

func TestLiteralQuoteRemoval(t *testing.T) {
	got, err := Literal(testConfig(nil, nil), `"a b"'c'\ d`)
	require.NoError(t, err)
	assert.Equal(t, "a bc d", got)
}

func TestExpandErrors(t *testing.T) {
	cases := []string{
		`${unclosed`,
		`"unclosed`,
		`'unclosed`,
		`${}`,
		"`unclosed",
		`$(unclosed`,
	}
	for _, word := range cases {
		t.Run(word, func(t *testing.T) {
			_, err := Fields(testConfig(nil, nil), word)
			require.Error(t, err)

			var eerr *Error
			assert.ErrorAs(t, err, &eerr)
		})
	}
}

func TestExpandArithErrorPropagates(t *testing.T) {
	boom := fmt.Errorf("division by zero")
	cfg := testConfig(nil, nil)
	cfg.Arith = func(string) (int64, error) { return 0, boom }

	_, err := Fields(cfg, `$((7/0))`)
	assert.ErrorIs(t, err, boom)
}

func TestDoubleQuoteEscapes(t *testing.T) {
	got, err := Literal(testConfig(map[string]string{"x": "v"}, nil), `"\$x \" \\ \n"`)
	require.NoError(t, err)
	// \$ \" \\ are escapes inside double quotes; \n stays literal.
	assert.Equal(t, `$x " \ \n`, got)
}
