package types

import "sort"

// FunctionSpan represents a top-level function definition found during parsing.
type FunctionSpan struct {
	Name      string `json:"name"`       // The plain identifier of the function
	StartLine int    `json:"start_line"` // 1-based first line of the definition
	EndLine   int    `json:"end_line"`   // 1-based last line of the definition, inclusive
	Content   string `json:"content"`    // Source text of the definition
}

// Contains reports whether the 1-based line falls inside the span.
func (s FunctionSpan) Contains(line int) bool {
	return s.StartLine <= line && line <= s.EndLine
}

// ChangeSet is the set of function names considered changed for one file pair.
type ChangeSet map[string]struct{}

func NewChangeSet(names ...string) ChangeSet {
	cs := make(ChangeSet, len(names))
	for _, name := range names {
		cs.Add(name)
	}
	return cs
}

func (cs ChangeSet) Add(name string) {
	cs[name] = struct{}{}
}

func (cs ChangeSet) Has(name string) bool {
	_, ok := cs[name]
	return ok
}

// Names returns the changed names in lexical order.
func (cs ChangeSet) Names() []string {
	names := make([]string, 0, len(cs))
	for name := range cs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FilterSpans keeps the spans whose name is in the set, preserving order.
func (cs ChangeSet) FilterSpans(spans []FunctionSpan) []FunctionSpan {
	var kept []FunctionSpan
	for _, span := range spans {
		if cs.Has(span.Name) {
			kept = append(kept, span)
		}
	}
	return kept
}
