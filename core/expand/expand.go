// Package expand performs word expansion: quote removal, parameter and
// special-parameter expansion, arithmetic expansion and command
// substitution, with optional field splitting of the results.
//
// The engine supplies the surrounding behavior through Config callbacks;
// arithmetic and command substitution reach back into the interpreter
// that way without an import cycle.
package expand

import (
	"fmt"
	"strconv"
	"strings"
)

// Config supplies the variable store and substitution entry points used
// during expansion. Nil callbacks disable the matching expansion with an
// expansion error instead of a crash.
type Config struct {
	// Var looks up a plain variable.
	Var func(name string) (string, bool)
	// Arg returns positional parameter i; Arg(0) is the shell or script
	// name.
	Arg func(i int) string
	// NumArgs returns the number of positional parameters.
	NumArgs func() int
	// Status returns the last command's exit status, for $?.
	Status func() int
	// Pid returns the interpreter's process id, for $$.
	Pid func() int
	// Arith evaluates an arithmetic expression, for $((...)).
	Arith func(expr string) (int64, error)
	// CmdSubst runs a command list and returns its captured output, for
	// $(...) and backquotes.
	CmdSubst func(src string) (string, error)
}

// Error is a word expansion failure.
type Error struct {
	Text string
	Msg  string
}

func (e *Error) Error() string {
	if e.Text == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Text, e.Msg)
}

// Fields expands word and splits the expansion results on whitespace,
// yielding zero or more fields. Quoted text and literal word text are
// never split; an expansion of only unquoted empty values produces no
// fields at all.
func Fields(cfg *Config, word string) ([]string, error) {
	segs, err := cfg.expand(word)
	if err != nil {
		return nil, err
	}
	return fieldSplit(segs), nil
}

// Literal expands word into exactly one string with no field splitting;
// used for assignment values and redirection operands.
func Literal(cfg *Config, word string) (string, error) {
	segs, err := cfg.expand(word)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, seg := range segs {
		sb.WriteString(seg.text)
	}
	return sb.String(), nil
}

// segment is a run of expanded text. Only unquoted expansion results are
// subject to field splitting; literal word text cannot contain field
// separators because the lexer already split on them.
type segment struct {
	text       string
	quoted     bool
	splittable bool
}

func (cfg *Config) expand(word string) ([]segment, error) {
	var segs []segment
	lit := func(text string, quoted bool) {
		segs = append(segs, segment{text: text, quoted: quoted})
	}

	i := 0
	for i < len(word) {
		switch c := word[i]; c {
		case '\\':
			if i+1 < len(word) {
				lit(string(word[i+1]), true)
				i += 2
			} else {
				i++
			}
		case '\'':
			end := strings.IndexByte(word[i+1:], '\'')
			if end < 0 {
				return nil, &Error{Text: word, Msg: "unterminated single quote"}
			}
			lit(word[i+1:i+1+end], true)
			i += end + 2
		case '"':
			next, err := cfg.doubleQuoted(word, i+1, &segs)
			if err != nil {
				return nil, err
			}
			i = next
		case '$':
			value, next, err := cfg.dollar(word, i)
			if err != nil {
				return nil, err
			}
			segs = append(segs, segment{text: value, splittable: true})
			i = next
		case '`':
			value, next, err := cfg.backquote(word, i)
			if err != nil {
				return nil, err
			}
			segs = append(segs, segment{text: value, splittable: true})
			i = next
		default:
			j := i
			for j < len(word) && !strings.ContainsRune("\\'\"$`", rune(word[j])) {
				j++
			}
			lit(word[i:j], false)
			i = j
		}
	}
	return segs, nil
}

// doubleQuoted expands the interior of a double-quoted region starting
// just past the opening quote; expansions inside stay unsplit.
func (cfg *Config) doubleQuoted(word string, i int, segs *[]segment) (int, error) {
	// An empty "" still produces a field.
	*segs = append(*segs, segment{quoted: true})
	for i < len(word) {
		switch c := word[i]; c {
		case '"':
			return i + 1, nil
		case '\\':
			if i+1 < len(word) {
				next := word[i+1]
				if next == '$' || next == '`' || next == '"' || next == '\\' {
					*segs = append(*segs, segment{text: string(next), quoted: true})
					i += 2
					continue
				}
			}
			*segs = append(*segs, segment{text: `\`, quoted: true})
			i++
		case '$':
			value, next, err := cfg.dollar(word, i)
			if err != nil {
				return 0, err
			}
			*segs = append(*segs, segment{text: value, quoted: true})
			i = next
		case '`':
			value, next, err := cfg.backquote(word, i)
			if err != nil {
				return 0, err
			}
			*segs = append(*segs, segment{text: value, quoted: true})
			i = next
		default:
			j := i
			for j < len(word) && !strings.ContainsRune("\"\\$`", rune(word[j])) {
				j++
			}
			*segs = append(*segs, segment{text: word[i:j], quoted: true})
			i = j
		}
	}
	return 0, &Error{Text: word, Msg: "unterminated double quote"}
}

// dollar expands the $-form starting at word[i] and returns the value and
// the index just past it.
func (cfg *Config) dollar(word string, i int) (string, int, error) {
	rest := word[i+1:]
	if rest == "" {
		return "$", i + 1, nil
	}

	switch c := rest[0]; {
	case c == '{':
		end := strings.IndexByte(rest, '}')
		if end < 0 {
			return "", 0, &Error{Text: word, Msg: "missing } in parameter expansion"}
		}
		value, err := cfg.parameter(rest[1:end])
		return value, i + 2 + end, err

	case c == '(' && len(rest) > 1 && rest[1] == '(':
		body, next, err := matchDoubleParen(word, i)
		if err != nil {
			return "", 0, err
		}
		if cfg.Arith == nil {
			return "", 0, &Error{Text: body, Msg: "arithmetic expansion unavailable"}
		}
		n, err := cfg.Arith(body)
		if err != nil {
			return "", 0, err
		}
		return strconv.FormatInt(n, 10), next, nil

	case c == '(':
		body, next, err := matchParen(word, i+1)
		if err != nil {
			return "", 0, err
		}
		value, err := cfg.substitute(body)
		return value, next, err

	default:
		name := scanName(rest)
		if name == "" {
			return "$", i + 1, nil
		}
		value, err := cfg.parameter(name)
		return value, i + 1 + len(name), err
	}
}

// scanName scans a parameter name: an identifier, a single digit, or one
// of the special parameters.
func scanName(s string) string {
	c := s[0]
	switch {
	case c == '?' || c == '#' || c == '$' || c == '*' || c == '@':
		return string(c)
	case c >= '0' && c <= '9':
		return string(c)
	case isNameStart(c):
		j := 1
		for j < len(s) && isNameChar(s[j]) {
			j++
		}
		return s[:j]
	}
	return ""
}

func isNameStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isNameChar(c byte) bool {
	return isNameStart(c) || c >= '0' && c <= '9'
}

// parameter resolves one parameter name to its value. Unset variables
// expand to the empty string.
func (cfg *Config) parameter(name string) (string, error) {
	if name == "" {
		return "", &Error{Msg: "bad substitution"}
	}
	switch name {
	case "?":
		if cfg.Status != nil {
			return strconv.Itoa(cfg.Status()), nil
		}
		return "0", nil
	case "#":
		if cfg.NumArgs != nil {
			return strconv.Itoa(cfg.NumArgs()), nil
		}
		return "0", nil
	case "$":
		if cfg.Pid != nil {
			return strconv.Itoa(cfg.Pid()), nil
		}
		return "0", nil
	case "*", "@":
		if cfg.Arg == nil || cfg.NumArgs == nil {
			return "", nil
		}
		var args []string
		for i := 1; i <= cfg.NumArgs(); i++ {
			args = append(args, cfg.Arg(i))
		}
		return strings.Join(args, " "), nil
	}

	if name[0] >= '0' && name[0] <= '9' {
		n, err := strconv.Atoi(name)
		if err != nil || cfg.Arg == nil {
			return "", &Error{Text: "$" + name, Msg: "bad substitution"}
		}
		return cfg.Arg(n), nil
	}

	if !isNameStart(name[0]) {
		return "", &Error{Text: "${" + name + "}", Msg: "bad substitution"}
	}
	for j := 1; j < len(name); j++ {
		if !isNameChar(name[j]) {
			return "", &Error{Text: "${" + name + "}", Msg: "bad substitution"}
		}
	}
	if cfg.Var == nil {
		return "", nil
	}
	value, _ := cfg.Var(name)
	return value, nil
}

func (cfg *Config) substitute(body string) (string, error) {
	if cfg.CmdSubst == nil {
		return "", &Error{Text: body, Msg: "command substitution unavailable"}
	}
	out, err := cfg.CmdSubst(body)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n"), nil
}

func (cfg *Config) backquote(word string, i int) (string, int, error) {
	var body strings.Builder
	j := i + 1
	for j < len(word) {
		switch word[j] {
		case '\\':
			if j+1 < len(word) {
				body.WriteByte(word[j+1])
				j += 2
				continue
			}
			j++
		case '`':
			value, err := cfg.substitute(body.String())
			return value, j + 1, err
		default:
			body.WriteByte(word[j])
			j++
		}
	}
	return "", 0, &Error{Text: word, Msg: "unterminated command substitution"}
}

// matchParen returns the text between word[open] (a '(') and its balanced
// match, plus the index just past the closing paren.
func matchParen(word string, open int) (string, int, error) {
	depth := 0
	for j := open; j < len(word); j++ {
		switch word[j] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return word[open+1 : j], j + 1, nil
			}
		case '\'':
			end := strings.IndexByte(word[j+1:], '\'')
			if end < 0 {
				return "", 0, &Error{Text: word, Msg: "unterminated substitution"}
			}
			j += end + 1
		}
	}
	return "", 0, &Error{Text: word, Msg: "unterminated substitution"}
}

// matchDoubleParen handles $((...)), returning the inner expression text.
func matchDoubleParen(word string, dollar int) (string, int, error) {
	depth := 0
	start := dollar + 3 // past $((
	for j := dollar + 1; j < len(word); j++ {
		switch word[j] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				if j < 1 || word[j-1] != ')' {
					return "", 0, &Error{Text: word, Msg: "malformed arithmetic expansion"}
				}
				return word[start : j-1], j + 1, nil
			}
		}
	}
	return "", 0, &Error{Text: word, Msg: "unterminated arithmetic expansion"}
}

func isIFS(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n'
}

// fieldSplit applies whitespace splitting to splittable segments and
// joins everything else, producing the final fields.
func fieldSplit(segs []segment) []string {
	var fields []string
	var cur strings.Builder
	active := false // a field exists even if empty (quoted "")

	flush := func() {
		if active || cur.Len() > 0 {
			fields = append(fields, cur.String())
			cur.Reset()
			active = false
		}
	}

	for _, seg := range segs {
		if !seg.splittable {
			cur.WriteString(seg.text)
			if seg.quoted || seg.text != "" {
				active = true
			}
			continue
		}
		for i := 0; i < len(seg.text); i++ {
			if isIFS(seg.text[i]) {
				flush()
			} else {
				cur.WriteByte(seg.text[i])
				active = true
			}
		}
	}
	flush()
	return fields
}
