package questgraph

// IssueKind classifies a catalog data problem found while building the graph.
type IssueKind int

const (
	IssueDataIntegrity       IssueKind = iota // edge declared in one direction only
	IssueUnresolvedReference                  // edge points at an unknown task
	IssueCycleDetected                        // self edge; longer cycles come from DetectCircularDependencies
)

func (k IssueKind) String() string {
	switch k {
	case IssueDataIntegrity:
		return "data-integrity"
	case IssueUnresolvedReference:
		return "unresolved-reference"
	case IssueCycleDetected:
		return "cycle"
	default:
		return "unknown"
	}
}

// Issue is a single diagnostic. None of them block graph queries.
type Issue struct {
	Kind   IssueKind
	TaskID string
	RefID  string
	Detail string
}
