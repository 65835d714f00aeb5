package types

import (
	"encoding/json"
	"sort"
)

// CallEdge is a directed caller -> callee relation between plain identifiers.
type CallEdge struct {
	Caller string `json:"caller"`
	Callee string `json:"callee"`
}

// AdjacencyMap maps an identifier to the set of identifiers it is related to.
// The zero value is not usable; build one with NewAdjacencyMap. Read methods
// are safe on a nil map.
type AdjacencyMap struct {
	edges map[string]map[string]struct{}
}

func NewAdjacencyMap() *AdjacencyMap {
	return &AdjacencyMap{edges: make(map[string]map[string]struct{})}
}

// Add records to as a member of from's set. Duplicates collapse.
func (m *AdjacencyMap) Add(from, to string) {
	set, ok := m.edges[from]
	if !ok {
		set = make(map[string]struct{})
		m.edges[from] = set
	}
	set[to] = struct{}{}
}

func (m *AdjacencyMap) Has(from, to string) bool {
	if m == nil {
		return false
	}
	_, ok := m.edges[from][to]
	return ok
}

// Get returns the sorted members of name's set, or an empty slice.
func (m *AdjacencyMap) Get(name string) []string {
	if m == nil {
		return []string{}
	}
	return sortedMembers(m.edges[name])
}

// Keys returns every identifier that has at least one member, sorted.
func (m *AdjacencyMap) Keys() []string {
	if m == nil {
		return []string{}
	}
	keys := make([]string, 0, len(m.edges))
	for k := range m.edges {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *AdjacencyMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.edges)
}

// Edges lists every (key, member) pair ordered by key then member.
func (m *AdjacencyMap) Edges() []CallEdge {
	var edges []CallEdge
	for _, from := range m.Keys() {
		for _, to := range sortedMembers(m.edges[from]) {
			edges = append(edges, CallEdge{Caller: from, Callee: to})
		}
	}
	return edges
}

// Merge unions other into m. Existing members are never dropped.
func (m *AdjacencyMap) Merge(other *AdjacencyMap) {
	if other == nil {
		return
	}
	for from, set := range other.edges {
		for to := range set {
			m.Add(from, to)
		}
	}
}

// Lists returns a plain copy with sorted member lists.
func (m *AdjacencyMap) Lists() map[string][]string {
	out := make(map[string][]string, m.Len())
	for _, k := range m.Keys() {
		out[k] = sortedMembers(m.edges[k])
	}
	return out
}

func (m *AdjacencyMap) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Lists())
}

func (m *AdjacencyMap) UnmarshalJSON(data []byte) error {
	var lists map[string][]string
	if err := json.Unmarshal(data, &lists); err != nil {
		return err
	}
	m.edges = make(map[string]map[string]struct{}, len(lists))
	for from, members := range lists {
		for _, to := range members {
			m.Add(from, to)
		}
	}
	return nil
}

func sortedMembers(set map[string]struct{}) []string {
	members := make([]string, 0, len(set))
	for member := range set {
		members = append(members, member)
	}
	sort.Strings(members)
	return members
}

// Trees holds the two views of one call relation. CallerTree maps a caller to
// its callees, CalleeTree maps a callee to its callers; AddEdge keeps them
// exact transposes of each other.
type Trees struct {
	CallerTree *AdjacencyMap
	CalleeTree *AdjacencyMap
}

func NewTrees() Trees {
	return Trees{CallerTree: NewAdjacencyMap(), CalleeTree: NewAdjacencyMap()}
}

func (t Trees) AddEdge(e CallEdge) {
	t.CallerTree.Add(e.Caller, e.Callee)
	t.CalleeTree.Add(e.Callee, e.Caller)
}

func (t Trees) Merge(other Trees) {
	t.CallerTree.Merge(other.CallerTree)
	t.CalleeTree.Merge(other.CalleeTree)
}

// Callers returns who calls name.
func (t Trees) Callers(name string) []string {
	return t.CalleeTree.Get(name)
}

// Callees returns what name calls.
func (t Trees) Callees(name string) []string {
	return t.CallerTree.Get(name)
}
