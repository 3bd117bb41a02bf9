package engine

import (
	"sort"
	"strings"

	"webrecon/pkg/types"
)

// Selector resolves an engine tag from a request to a concrete engine.
type Selector struct {
	engines   map[string]Engine
	autoOrder []string
}

// NewSelector registers the given engines. autoOrder is the preference list
// tried when a request asks for automatic selection; entries naming an
// unregistered engine are ignored.
func NewSelector(autoOrder []string, engines ...Engine) *Selector {
	byName := make(map[string]Engine, len(engines))
	for _, eng := range engines {
		if eng != nil {
			byName[eng.Name()] = eng
		}
	}
	order := make([]string, 0, len(autoOrder))
	for _, tag := range autoOrder {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if _, ok := byName[tag]; ok {
			order = append(order, tag)
		}
	}
	return &Selector{engines: byName, autoOrder: order}
}

// Select returns the engine for the tag. An empty tag means automatic
// selection. Asking for a known engine that cannot run on this host is an
// availability failure, not a validation one.
func (s *Selector) Select(tag string) (Engine, *types.Failure) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" || tag == types.EngineAuto {
		for _, name := range s.autoOrder {
			if eng := s.engines[name]; eng != nil && eng.Available() {
				return eng, nil
			}
		}
		return nil, types.NewFailure(types.FailEngineUnavailable, "no crawl engine is available on this host")
	}

	eng, ok := s.engines[tag]
	if !ok {
		return nil, types.NewFailure(types.FailMalformedInput, "unknown engine %q", tag)
	}
	if !eng.Available() {
		return nil, types.NewFailure(types.FailEngineUnavailable, "engine %q is not available on this host", tag)
	}
	return eng, nil
}

// Tags reports each registered engine and whether it can run right now.
func (s *Selector) Tags() map[string]bool {
	out := make(map[string]bool, len(s.engines))
	for name, eng := range s.engines {
		out[name] = eng.Available()
	}
	return out
}

// Names lists registered engine tags in stable order.
func (s *Selector) Names() []string {
	names := make([]string, 0, len(s.engines))
	for name := range s.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
