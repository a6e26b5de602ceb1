package nirum

import (
	"fmt"
	"slices"
)

// Param is a method parameter.
type Param struct {
	// Name is the facial name of the parameter.
	Name string
	// Behind is the wire name of the parameter. If empty, it defaults
	// to Name.
	Behind string
	Type   Type
}

// Method describes one procedure of a [Service].
type Method struct {
	// Name is the facial name of the method.
	Name string
	// Behind is the wire name of the method, used in the "method"
	// query parameter. If empty, it defaults to Name.
	Behind string
	// Params are the method's parameters, in calling order.
	Params []Param
	// Return is the type of the method's result, or nil if the method
	// returns nothing.
	Return Type
	// Errors is the union of declared errors the method may raise, or
	// nil.
	Errors *UnionType
}

// ReturnString returns the schema notation of the method's return
// type.
func (m *Method) ReturnString() string {
	if m.Return == nil {
		return "null"
	}
	return m.Return.String()
}

// Service describes a named set of methods.
type Service struct {
	// Name is the behind name of the service.
	Name    string
	methods []*Method
	names   *NameMap
	byName  map[string]*Method
}

// NewService returns a service descriptor.
//
// NewService fills in default behind names of the given methods and
// parameters, and panics if method or parameter names are
// duplicated. Methods must not be modified afterwards.
func NewService(name string, methods ...*Method) *Service {
	ret := &Service{
		Name:    name,
		methods: methods,
		byName:  make(map[string]*Method, len(methods)),
	}
	pairs := make([]NamePair, 0, len(methods))
	for _, m := range methods {
		if m.Behind == "" {
			m.Behind = m.Name
		}
		params := make([]NamePair, 0, len(m.Params))
		for i := range m.Params {
			p := &m.Params[i]
			if p.Behind == "" {
				p.Behind = p.Name
			}
			if p.Type == nil {
				panic(fmt.Errorf("parameter %s of %s.%s has no type", p.Name, name, m.Name))
			}
			params = append(params, NamePair{p.Name, p.Behind})
		}
		if _, err := NewNameMap(params...); err != nil {
			panic(fmt.Errorf("invalid parameters for %s.%s: %w", name, m.Name, err))
		}
		ret.byName[m.Name] = m
		pairs = append(pairs, NamePair{m.Name, m.Behind})
	}
	names, err := NewNameMap(pairs...)
	if err != nil {
		panic(fmt.Errorf("invalid methods for service %s: %w", name, err))
	}
	ret.names = names
	return ret
}

// Methods returns the service's methods in declaration order.
func (s *Service) Methods() []*Method { return slices.Clone(s.methods) }

// Names returns the facial/behind name mapping of the methods.
func (s *Service) Names() *NameMap { return s.names }

// Method returns the method with the given facial name.
func (s *Service) Method(name string) (*Method, bool) {
	m, ok := s.byName[name]
	return m, ok
}

// Lookup returns the method with the given behind name.
func (s *Service) Lookup(behind string) (*Method, bool) {
	if !s.names.HasBehind(behind) {
		return nil, false
	}
	return s.Method(s.names.Facial(behind))
}
