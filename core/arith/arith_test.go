package arith

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapEnv map[string]string

func (m mapEnv) Get(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

func (m mapEnv) Set(name, value string) {
	m[name] = value
}

func TestEval(t *testing.T) {
	cases := []struct {
		expr     string
		env      mapEnv
		expected int64
	}{
		{expr: "0", expected: 0},
		{expr: "2+3*4", expected: 14},
		{expr: "(2+3)*4", expected: 20},
		{expr: "10-3-2", expected: 5},
		{expr: "17/5", expected: 3},
		{expr: "17%5", expected: 2},
		{expr: "-3+10", expected: 7},
		{expr: "1<<4", expected: 16},
		{expr: "256>>4", expected: 16},
		{expr: "0x10", expected: 16},
		{expr: "6&3", expected: 2},
		{expr: "6|3", expected: 7},
		{expr: "6^3", expected: 5},
		{expr: "~0", expected: -1},
		{expr: "!5", expected: 0},
		{expr: "!0", expected: 1},
		{expr: "3<4", expected: 1},
		{expr: "4<=4", expected: 1},
		{expr: "3>4", expected: 0},
		{expr: "4>=5", expected: 0},
		{expr: "3==3", expected: 1},
		{expr: "3!=3", expected: 0},
		{expr: "1&&0", expected: 0},
		{expr: "1&&2", expected: 1},
		{expr: "0||0", expected: 0},
		{expr: "0||5", expected: 1},
		{expr: "  1 + 2 ", expected: 3},

		// Variables read as integers; unset or empty reads as zero.
		{expr: "x+1", env: mapEnv{"x": "41"}, expected: 42},
		{expr: "x+1", env: mapEnv{"x": ""}, expected: 1},
		{expr: "y+1", expected: 1},
		{expr: "x*x", env: mapEnv{"x": " 7 "}, expected: 49},
	}

	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			env := tc.env
			if env == nil {
				env = mapEnv{}
			}
			got, err := Eval(env, tc.expr)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestEvalAssignment(t *testing.T) {
	cases := []struct {
		expr     string
		env      mapEnv
		expected int64
		want     map[string]string
	}{
		{expr: "x=5", env: mapEnv{}, expected: 5, want: map[string]string{"x": "5"}},
		{expr: "x+=3", env: mapEnv{"x": "5"}, expected: 8, want: map[string]string{"x": "8"}},
		{expr: "x-=3", env: mapEnv{"x": "5"}, expected: 2, want: map[string]string{"x": "2"}},
		{expr: "x*=3", env: mapEnv{"x": "5"}, expected: 15, want: map[string]string{"x": "15"}},
		{expr: "x/=3", env: mapEnv{"x": "7"}, expected: 2, want: map[string]string{"x": "2"}},
		{expr: "x%=3", env: mapEnv{"x": "7"}, expected: 1, want: map[string]string{"x": "1"}},
		{expr: "x<<=2", env: mapEnv{"x": "3"}, expected: 12, want: map[string]string{"x": "12"}},
		{expr: "x>>=1", env: mapEnv{"x": "6"}, expected: 3, want: map[string]string{"x": "3"}},
		{expr: "x&=6", env: mapEnv{"x": "3"}, expected: 2, want: map[string]string{"x": "2"}},
		{expr: "x|=4", env: mapEnv{"x": "3"}, expected: 7, want: map[string]string{"x": "7"}},
		{expr: "x^=1", env: mapEnv{"x": "3"}, expected: 2, want: map[string]string{"x": "2"}},
		// Assignment is right associative.
		{expr: "x=y=4", env: mapEnv{}, expected: 4, want: map[string]string{"x": "4", "y": "4"}},
		// An unset operand of a compound assignment reads as zero.
		{expr: "z+=9", env: mapEnv{}, expected: 9, want: map[string]string{"z": "9"}},
	}

	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			got, err := Eval(tc.env, tc.expr)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
			for name, value := range tc.want {
				assert.Equal(t, value, tc.env[name])
			}
		})
	}
}

func TestEvalErrors(t *testing.T) {
	cases := []string{
		"7/0",
		"7%0",
		"x/=0",
		"1+",
		"(1+2",
		"1 @ 2",
		"bad+1",
		"",
	}

	env := mapEnv{"bad": "not-a-number"}
	for _, expr := range cases {
		t.Run(expr, func(t *testing.T) {
			_, err := Eval(env, expr)
			require.Error(t, err)

			var aerr *Error
			assert.ErrorAs(t, err, &aerr)
		})
	}
}

func TestEvalLogicalBothSidesEvaluate(t *testing.T) {
	// Unlike C, both operands evaluate; side effects always land.
	env := mapEnv{}
	got, err := Eval(env, "0 && (x = 7)")
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)
	assert.Equal(t, "7", env["x"])
}
