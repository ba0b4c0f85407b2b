package params

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"reflect"
	"strconv"
	"strings"
)

// ArgumentType describes how a parameter's values are parsed from the command
// line and validated when supplied programmatically.
type ArgumentType interface {
	// Name is the type's display name, e.g. "int".
	Name() string
	// Parse converts a command-line string into the type's value.
	Parse(argName, raw string) (interface{}, error)
	// Validate checks a value supplied through Run.
	Validate(argName string, value interface{}) error
}

// Built-in argument types.
var (
	String    ArgumentType = stringType{}
	Boolean   ArgumentType = booleanType{}
	Int       ArgumentType = intType{}
	Float     ArgumentType = floatType{}
	InputFile ArgumentType = inputFileType{}
	JSON      ArgumentType = jsonType{}
)

// ByName returns a built-in type by its display name.
func ByName(name string) (ArgumentType, bool) {
	switch name {
	case "string":
		return String, true
	case "boolean", "bool":
		return Boolean, true
	case "int":
		return Int, true
	case "float":
		return Float, true
	case "inputFile":
		return InputFile, true
	case "json":
		return JSON, true
	}
	return nil, false
}

func invalid(argName string, t ArgumentType, value interface{}, err error) error {
	return &ValidationError{Param: argName, Type: t.Name(), Value: value, Err: err}
}

type stringType struct{}

func (stringType) Name() string { return "string" }

func (t stringType) Parse(_, raw string) (interface{}, error) { return raw, nil }

func (t stringType) Validate(argName string, value interface{}) error {
	if _, ok := value.(string); !ok {
		return invalid(argName, t, value, nil)
	}
	return nil
}

type booleanType struct{}

func (booleanType) Name() string { return "boolean" }

func (t booleanType) Parse(argName, raw string) (interface{}, error) {
	switch strings.ToLower(raw) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return nil, invalid(argName, t, raw, nil)
}

func (t booleanType) Validate(argName string, value interface{}) error {
	if _, ok := value.(bool); !ok {
		return invalid(argName, t, value, nil)
	}
	return nil
}

type intType struct{}

func (intType) Name() string { return "int" }

// Parse accepts decimal and 0x-prefixed hexadecimal integers.
func (t intType) Parse(argName, raw string) (interface{}, error) {
	digits, base := raw, 10
	if strings.HasPrefix(strings.ToLower(raw), "0x") {
		digits, base = raw[2:], 16
	}
	n, err := strconv.ParseInt(digits, base, 64)
	if err != nil {
		return nil, invalid(argName, t, raw, err)
	}
	return n, nil
}

func (t intType) Validate(argName string, value interface{}) error {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return nil
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return nil
		}
	}
	return invalid(argName, t, value, nil)
}

type floatType struct{}

func (floatType) Name() string { return "float" }

func (t floatType) Parse(argName, raw string) (interface{}, error) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, invalid(argName, t, raw, err)
	}
	return f, nil
}

func (t floatType) Validate(argName string, value interface{}) error {
	switch value.(type) {
	case float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return nil
	}
	return invalid(argName, t, value, nil)
}

type inputFileType struct{}

func (inputFileType) Name() string { return "inputFile" }

func (t inputFileType) Parse(argName, raw string) (interface{}, error) {
	if err := t.Validate(argName, raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Validate requires a path to an existing, readable, regular file.
func (t inputFileType) Validate(argName string, value interface{}) error {
	path, ok := value.(string)
	if !ok {
		return invalid(argName, t, value, nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		return invalid(argName, t, value, err)
	}
	if info.IsDir() {
		return invalid(argName, t, value, fmt.Errorf("%s is a directory", path))
	}
	f, err := os.Open(path)
	if err != nil {
		return invalid(argName, t, value, err)
	}
	f.Close()
	return nil
}

type jsonType struct{}

func (jsonType) Name() string { return "json" }

func (t jsonType) Parse(argName, raw string) (interface{}, error) {
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, invalid(argName, t, raw, err)
	}
	return v, nil
}

// Validate accepts any value that can be encoded as JSON.
func (t jsonType) Validate(argName string, value interface{}) error {
	if _, err := json.Marshal(value); err != nil {
		return invalid(argName, t, value, err)
	}
	return nil
}

// Choice returns a string type restricted to the given values.
func Choice(values ...string) ArgumentType {
	return choiceType{values: values}
}

type choiceType struct {
	values []string
}

func (t choiceType) Name() string {
	return "choice(" + strings.Join(t.values, "|") + ")"
}

func (t choiceType) Parse(argName, raw string) (interface{}, error) {
	if err := t.Validate(argName, raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (t choiceType) Validate(argName string, value interface{}) error {
	s, ok := value.(string)
	if ok {
		for _, v := range t.values {
			if v == s {
				return nil
			}
		}
	}
	return invalid(argName, t, value, fmt.Errorf("expected one of %s", strings.Join(t.values, ", ")))
}

// elements returns the items of a slice or array value.
func elements(value interface{}) ([]interface{}, bool) {
	if items, ok := value.([]interface{}); ok {
		return items, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]interface{}, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}
