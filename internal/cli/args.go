// Package cli converts command-line task arguments into task arguments.
package cli

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/bailuo/redspot/internal/core"
	"github.com/bailuo/redspot/internal/params"
)

var (
	// ErrUnrecognizedParam indicates an option the task doesn't declare.
	ErrUnrecognizedParam = errors.New("unrecognized param")

	// ErrMissingValue indicates an option given without its value.
	ErrMissingValue = errors.New("missing value for param")

	// ErrTooManyPositional indicates more positional values than the task accepts.
	ErrTooManyPositional = errors.New("too many positional arguments")

	// ErrRepeatedParam indicates an option given more than once.
	ErrRepeatedParam = errors.New("param given more than once")
)

// ParseTaskArguments converts raw command-line words into arguments for def.
//
// Options are written --name value, --name=value, or --name for flags.
// Dashed names map to camelCase params, so --gas-limit sets gasLimit.
// Everything else, and everything after a bare --, fills the positional
// params in order; a variadic param takes all remaining values. Values are
// converted with the param type's Parse. Missing mandatory params are left
// for argument resolution to report.
func ParseTaskArguments(def *core.TaskDefinition, raw []string) (core.Arguments, error) {
	named := def.ParamDefinitions()
	args := make(core.Arguments)
	var positional []string

	for i := 0; i < len(raw); i++ {
		word := raw[i]
		if word == "--" {
			positional = append(positional, raw[i+1:]...)
			break
		}
		if !strings.HasPrefix(word, "--") || len(word) == 2 {
			positional = append(positional, word)
			continue
		}

		name, value, hasValue := strings.Cut(word[2:], "=")
		paramName := DashToCamel(name)
		p, ok := named[paramName]
		if !ok {
			return nil, fmt.Errorf("%w --%s for task %s", ErrUnrecognizedParam, name, def.Name())
		}
		if _, seen := args[paramName]; seen {
			return nil, fmt.Errorf("%w: --%s", ErrRepeatedParam, name)
		}

		if p.IsFlag && !hasValue {
			args[paramName] = true
			continue
		}
		if !hasValue {
			if i+1 >= len(raw) {
				return nil, fmt.Errorf("%w --%s", ErrMissingValue, name)
			}
			i++
			value = raw[i]
		}

		v, err := parse(p, value)
		if err != nil {
			return nil, err
		}
		args[paramName] = v
	}

	if err := bindPositional(def, positional, args); err != nil {
		return nil, err
	}
	return args, nil
}

func bindPositional(def *core.TaskDefinition, values []string, args core.Arguments) error {
	defs := def.PositionalParamDefinitions()
	for i, p := range defs {
		if i >= len(values) {
			return nil
		}
		if p.IsVariadic {
			items := make([]interface{}, 0, len(values)-i)
			for _, raw := range values[i:] {
				v, err := parse(p, raw)
				if err != nil {
					return err
				}
				items = append(items, v)
			}
			args[p.Name] = items
			return nil
		}
		v, err := parse(p, values[i])
		if err != nil {
			return err
		}
		args[p.Name] = v
	}
	if len(values) > len(defs) {
		return fmt.Errorf("%w for task %s: %s", ErrTooManyPositional, def.Name(), strings.Join(values[len(defs):], " "))
	}
	return nil
}

func parse(p *params.ParamDefinition, raw string) (interface{}, error) {
	if p.Type == nil {
		return raw, nil
	}
	return p.Type.Parse(p.Name, raw)
}

// DashToCamel converts dash-case to camelCase: gas-limit becomes gasLimit.
func DashToCamel(s string) string {
	var b strings.Builder
	upper := false
	for _, r := range s {
		if r == '-' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CamelToDash converts camelCase to dash-case: gasLimit becomes gas-limit.
func CamelToDash(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('-')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
