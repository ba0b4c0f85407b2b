// Package params describes the arguments a task accepts and resolves supplied
// values against those descriptions.
package params

import "errors"

// ParamDefinition describes one argument accepted by a task.
//
// A mandatory parameter (IsOptional false) never carries a default; its
// absence at call time is always an error.
type ParamDefinition struct {
	Name         string
	Description  string
	Type         ArgumentType
	DefaultValue interface{}
	IsOptional   bool
	// IsVariadic marks a positional parameter whose value is a sequence.
	IsVariadic bool
	// IsFlag marks an optional boolean parameter set by its presence.
	IsFlag bool
}

// TypeName returns the display name of the parameter's type, or "" if untyped.
func (p *ParamDefinition) TypeName() string {
	if p.Type == nil {
		return ""
	}
	return p.Type.Name()
}

// Resolve produces the value a task receives for this parameter.
//
// A nil value is treated as absent. Absent optional parameters resolve to
// DefaultValue, which may itself be nil; absent mandatory ones fail with
// *MissingArgumentError. Present values are checked with the type's Validate.
// For variadic parameters every element is validated and the first failing
// element fails the whole argument.
func (p *ParamDefinition) Resolve(value interface{}) (interface{}, error) {
	if value == nil {
		if p.IsOptional {
			return p.DefaultValue, nil
		}
		return nil, &MissingArgumentError{Param: p.Name}
	}

	if err := p.Validate(value); err != nil {
		return nil, err
	}
	return value, nil
}

// Validate checks value against the parameter's type. Untyped parameters
// accept anything.
func (p *ParamDefinition) Validate(value interface{}) error {
	if p.Type == nil {
		return nil
	}

	if !p.IsVariadic {
		return p.Type.Validate(p.Name, value)
	}

	items, ok := elements(value)
	if !ok {
		return &ValidationError{
			Param: p.Name,
			Type:  p.Type.Name(),
			Value: value,
			Err:   errors.New("variadic argument must be a list"),
		}
	}
	for _, item := range items {
		if err := p.Type.Validate(p.Name, item); err != nil {
			return err
		}
	}
	return nil
}
