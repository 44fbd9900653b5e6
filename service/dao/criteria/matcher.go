// Package criteria evaluates dao.Parameter filters against entity fields.
package criteria

import (
	"github.com/viant/signoff/service/dao"
)

// Fields exposes the filterable values of an entity; a field may hold
// several values, for example every pending approver of a request.
type Fields func(name string) ([]string, bool)

// Match reports whether every parameter matches at least one value of the
// named field. Parameters naming unknown fields are ignored.
func Match(fields Fields, parameters []*dao.Parameter) bool {
	for _, parameter := range parameters {
		if parameter == nil {
			continue
		}
		actual, ok := fields(parameter.Name)
		if !ok {
			continue
		}
		if !any(actual, parameter.Values()) {
			return false
		}
	}
	return true
}

func any(actual, expected []string) bool {
	for _, candidate := range expected {
		for _, value := range actual {
			if value == candidate {
				return true
			}
		}
	}
	return false
}
