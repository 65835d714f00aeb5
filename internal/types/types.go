package types

// FunctionRecord is one changed function on one side of a commit.
type FunctionRecord struct {
	Name    string   `json:"name"`
	Content string   `json:"content"`
	File    string   `json:"file"`
	Callers []string `json:"callers"`
	Callees []string `json:"callees"`
}

// PatchRecord is the unit of output: every changed function of one commit,
// both versions, plus the merged call trees of each version.
type PatchRecord struct {
	CommitBefore     string           `json:"commit_before"`
	CommitAfter      string           `json:"commit_after"`
	FunctionsBefore  []FunctionRecord `json:"functions_before"`
	FunctionsAfter   []FunctionRecord `json:"functions_after"`
	CallerTreeBefore *AdjacencyMap    `json:"callerTree_before"`
	CalleeTreeBefore *AdjacencyMap    `json:"calleeTree_before"`
	CallerTreeAfter  *AdjacencyMap    `json:"callerTree_after"`
	CalleeTreeAfter  *AdjacencyMap    `json:"calleeTree_after"`
}

func NewPatchRecord(commitBefore, commitAfter string) *PatchRecord {
	return &PatchRecord{
		CommitBefore:     commitBefore,
		CommitAfter:      commitAfter,
		FunctionsBefore:  []FunctionRecord{},
		FunctionsAfter:   []FunctionRecord{},
		CallerTreeBefore: NewAdjacencyMap(),
		CalleeTreeBefore: NewAdjacencyMap(),
		CallerTreeAfter:  NewAdjacencyMap(),
		CalleeTreeAfter:  NewAdjacencyMap(),
	}
}

// BeforeTrees returns the before-version trees as a Trees view.
func (r *PatchRecord) BeforeTrees() Trees {
	return Trees{CallerTree: r.CallerTreeBefore, CalleeTree: r.CalleeTreeBefore}
}

func (r *PatchRecord) AfterTrees() Trees {
	return Trees{CallerTree: r.CallerTreeAfter, CalleeTree: r.CalleeTreeAfter}
}

// Empty reports whether the record carries no function on either side.
func (r *PatchRecord) Empty() bool {
	return len(r.FunctionsBefore) == 0 && len(r.FunctionsAfter) == 0
}
