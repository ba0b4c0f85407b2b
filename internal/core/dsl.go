package core

import "github.com/bailuo/redspot/internal/params"

// GlobalParamNames are reserved for the command line and can't be task params.
var GlobalParamNames = []string{"network", "logLevel", "config", "help", "verbose", "logFile"}

// SetDescription sets the task description.
func (d *TaskDefinition) SetDescription(description string) *TaskDefinition {
	d.description = description
	d.hasDescription = true
	return d
}

// SetAction sets the task action.
func (d *TaskDefinition) SetAction(action Action) *TaskDefinition {
	if action == nil {
		return d.fail("", "action must not be nil")
	}
	d.action = action
	return d
}

// AddParam adds a named parameter. A nil type means string. Mandatory
// parameters can't have a default value.
func (d *TaskDefinition) AddParam(name, description string, defaultValue interface{}, typ params.ArgumentType, isOptional bool) *TaskDefinition {
	if d.parent != nil && !isOptional {
		return d.fail(name, "overridden tasks can only add optional params")
	}
	p, ok := d.newParam(name, description, defaultValue, typ, isOptional, false, false)
	if !ok {
		return d
	}
	d.paramDefinitions[name] = p
	return d
}

// AddOptionalParam adds an optional named parameter.
func (d *TaskDefinition) AddOptionalParam(name, description string, defaultValue interface{}, typ params.ArgumentType) *TaskDefinition {
	return d.AddParam(name, description, defaultValue, typ, true)
}

// AddFlag adds an optional boolean parameter that defaults to false.
func (d *TaskDefinition) AddFlag(name, description string) *TaskDefinition {
	p, ok := d.newParam(name, description, false, params.Boolean, true, false, true)
	if !ok {
		return d
	}
	d.paramDefinitions[name] = p
	return d
}

// AddPositionalParam adds a positional parameter. Mandatory positional
// parameters can't follow optional ones, and nothing can follow a variadic one.
func (d *TaskDefinition) AddPositionalParam(name, description string, defaultValue interface{}, typ params.ArgumentType, isOptional bool) *TaskDefinition {
	return d.addPositional(name, description, defaultValue, typ, isOptional, false)
}

// AddOptionalPositionalParam adds an optional positional parameter.
func (d *TaskDefinition) AddOptionalPositionalParam(name, description string, defaultValue interface{}, typ params.ArgumentType) *TaskDefinition {
	return d.addPositional(name, description, defaultValue, typ, true, false)
}

// AddVariadicPositionalParam adds the final positional parameter, which
// receives every remaining value as a list.
func (d *TaskDefinition) AddVariadicPositionalParam(name, description string, defaultValue interface{}, typ params.ArgumentType, isOptional bool) *TaskDefinition {
	return d.addPositional(name, description, defaultValue, typ, isOptional, true)
}

// AddOptionalVariadicPositionalParam adds an optional variadic positional parameter.
func (d *TaskDefinition) AddOptionalVariadicPositionalParam(name, description string, defaultValue interface{}, typ params.ArgumentType) *TaskDefinition {
	return d.addPositional(name, description, defaultValue, typ, true, true)
}

func (d *TaskDefinition) addPositional(name, description string, defaultValue interface{}, typ params.ArgumentType, isOptional, isVariadic bool) *TaskDefinition {
	if d.parent != nil {
		return d.fail(name, "overridden tasks can't add positional params")
	}
	if n := len(d.positionalParamDefinitions); n > 0 {
		last := d.positionalParamDefinitions[n-1]
		if last.IsVariadic {
			return d.fail(name, "can't add a positional param after the variadic param "+last.Name)
		}
		if last.IsOptional && !isOptional {
			return d.fail(name, "mandatory positional param can't follow the optional param "+last.Name)
		}
	}

	p, ok := d.newParam(name, description, defaultValue, typ, isOptional, isVariadic, false)
	if !ok {
		return d
	}
	d.positionalParamDefinitions = append(d.positionalParamDefinitions, p)
	return d
}

func (d *TaskDefinition) newParam(name, description string, defaultValue interface{}, typ params.ArgumentType, isOptional, isVariadic, isFlag bool) (*params.ParamDefinition, bool) {
	if name == "" {
		d.fail(name, "param name must not be empty")
		return nil, false
	}
	for _, g := range GlobalParamNames {
		if g == name {
			d.fail(name, "param name clashes with a global param")
			return nil, false
		}
	}
	if d.hasParam(name) {
		d.fail(name, "param is already defined")
		return nil, false
	}
	if !isOptional && defaultValue != nil {
		d.fail(name, "mandatory params can't have a default value")
		return nil, false
	}
	if typ == nil {
		typ = params.String
	}

	p := &params.ParamDefinition{
		Name:         name,
		Description:  description,
		Type:         typ,
		DefaultValue: defaultValue,
		IsOptional:   isOptional,
		IsVariadic:   isVariadic,
		IsFlag:       isFlag,
	}
	if defaultValue != nil {
		if err := p.Validate(defaultValue); err != nil {
			d.fail(name, "default value has the wrong type: "+err.Error())
			return nil, false
		}
	}
	return p, true
}

// hasParam reports whether name is taken by d's own named params or by the
// base definition's positional params. An override may redeclare a named
// param of its parent; its definition then takes precedence.
func (d *TaskDefinition) hasParam(name string) bool {
	if _, ok := d.paramDefinitions[name]; ok {
		return true
	}
	for _, p := range d.PositionalParamDefinitions() {
		if p.Name == name {
			return true
		}
	}
	return false
}
