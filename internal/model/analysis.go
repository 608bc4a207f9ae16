package model

// ResultSource records which invocation strategy produced a result.
type ResultSource string

// Result sources, in fallback order.
const (
	SourceStream      ResultSource = "stream"
	SourceNonBlocking ResultSource = "nonblocking"
	SourceBlocking    ResultSource = "blocking"
	SourceRule        ResultSource = "rule"
)

// AnalysisResult is the validated analysis of a statement. The four
// required fields are what the model must produce; the underscored
// fields are metadata added after validation.
type AnalysisResult struct {
	Overview         string       `json:"overview"`
	Disclaimer       string       `json:"_disclaimer,omitempty"`
	Source           ResultSource `json:"_source,omitempty"`
	Recommendations  []string     `json:"recommendations"`
	Risks            []string     `json:"risks"`
	Confidence       float64      `json:"confidence"`
	NeedsLegalReview bool         `json:"_needs_legal_review"`
}

// Clone returns a deep copy so post-processing never aliases the caller's slices.
func (r AnalysisResult) Clone() AnalysisResult {
	out := r
	out.Recommendations = append([]string(nil), r.Recommendations...)
	out.Risks = append([]string(nil), r.Risks...)
	if out.Recommendations == nil {
		out.Recommendations = []string{}
	}
	if out.Risks == nil {
		out.Risks = []string{}
	}
	return out
}

// Report is the response returned to API and CLI callers.
type Report struct {
	Summary   string         `json:"summary"`
	Analysis  AnalysisResult `json:"analysis"`
	DebtRatio float64        `json:"debt_ratio"`
}
