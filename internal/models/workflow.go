package models

// ComplianceStatus is the ordinal judgement symbol attached to each assessed
// requirement item. The remote service emits one of three known symbols; any
// other literal is kept as-is and bucketed under its own value.
type ComplianceStatus string

const (
	ComplianceFull    ComplianceStatus = "○"
	CompliancePartial ComplianceStatus = "△"
	ComplianceNone    ComplianceStatus = "×"
)

// Known reports whether s is one of the three defined symbols.
func (s ComplianceStatus) Known() bool {
	return s == ComplianceFull || s == CompliancePartial || s == ComplianceNone
}

// ComplianceAssessment is the judgement for a single requirement item.
type ComplianceAssessment struct {
	OriginalItem        string           `json:"original_item" msgpack:"original_item"`
	Status              ComplianceStatus `json:"compliance_status" msgpack:"compliance_status"`
	Reasoning           string           `json:"reasoning" msgpack:"reasoning"`
	AlternativeSolution string           `json:"alternative_solution,omitempty" msgpack:"alternative_solution,omitempty"`
	ReferenceSource     string           `json:"reference_source,omitempty" msgpack:"reference_source,omitempty"`
}

// WorkflowResult is the evaluation payload the core reads from a workflow
// run. Fields beyond these are ignored.
type WorkflowResult struct {
	RunID       string                 `json:"runId"`
	Status      string                 `json:"status"` // succeeded | failed | running | stopped
	Judgement   []ComplianceAssessment `json:"judgement"`
	ElapsedTime float64                `json:"elapsedTime"` // seconds
	TotalTokens int                    `json:"totalTokens"`
	TotalSteps  int                    `json:"totalSteps"`
	CreatedAt   int64                  `json:"createdAt"`  // Unix seconds
	FinishedAt  int64                  `json:"finishedAt"` // Unix seconds
}

// Succeeded reports whether the run reached a definitive success. Anything
// else (failed, running, stopped, unknown) counts as non-success for the
// execution tracker, though the payload is still attached when present.
func (w *WorkflowResult) Succeeded() bool {
	return w.Status == "succeeded"
}
