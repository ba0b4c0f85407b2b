package core

import (
	"sort"

	"github.com/bailuo/redspot/internal/params"
)

// ResolveArguments checks supplied against the parameters of def and fills
// in defaults for absent optional parameters.
//
// Named parameters are resolved first, in name order, then positional ones
// in declaration order. Every failure is recorded but only the first is
// returned. Supplied keys that match no parameter are passed through, and
// resolved values win over supplied ones.
func ResolveArguments(def *TaskDefinition, supplied Arguments) (Arguments, error) {
	named := def.ParamDefinitions()
	names := make([]string, 0, len(named))
	for name := range named {
		names = append(names, name)
	}
	sort.Strings(names)

	all := make([]*params.ParamDefinition, 0, len(named))
	for _, name := range names {
		all = append(all, named[name])
	}
	all = append(all, def.PositionalParamDefinitions()...)

	var errs []error
	values := make(Arguments, len(all))
	for _, p := range all {
		v, err := p.Resolve(supplied[p.Name])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if v != nil {
			values[p.Name] = v
		}
	}

	if len(errs) > 0 {
		for _, err := range errs[1:] {
			log.Debugf("task %s: additional argument error: %v", def.Name(), err)
		}
		return nil, errs[0]
	}

	resolved := supplied.Clone()
	for k, v := range values {
		resolved[k] = v
	}
	return resolved, nil
}
