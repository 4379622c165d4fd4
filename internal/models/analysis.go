package models

type Mode string

const (
	ModeQuickCheck      Mode = "quick_check"
	ModeSingleVsMany    Mode = "single_vs_many"
	ModeManyVsSingle    Mode = "many_vs_single"
	ModeManyModelsVsOne Mode = "many_models_vs_one"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeQuickCheck, ModeSingleVsMany, ModeManyVsSingle, ModeManyModelsVsOne:
		return true
	}
	return false
}

const (
	FormatLaTeX   = "LaTex"
	FormatHTMLCSS = "HTML and CSS"

	LengthOne   = "one"
	LengthMulti = "multi"
)

// AnalysisOptions is the configuration shared by every comparison in a batch.
type AnalysisOptions struct {
	Model        string
	APIKey       string
	Format       string
	Length       string
	TopN         int
	FullAnalysis bool
}

// AnalysisRequest pairs one resume with one job description.
type AnalysisRequest struct {
	Resume         Document
	JobDescription Document
	Options        AnalysisOptions
}

type ParseStatus string

const (
	ParseFound      ParseStatus = "found"
	ParseNotFound   ParseStatus = "not_found"
	ParseOutOfRange ParseStatus = "out_of_range"
)

// AnalysisResult is the outcome of one comparison. Percentage is only
// meaningful when the result is scored (no error recorded).
type AnalysisResult struct {
	Index         int         `json:"index"`
	Name          string      `json:"name"`
	Model         string      `json:"model,omitempty"`
	RawText       string      `json:"raw_text,omitempty"`
	Percentage    float64     `json:"percentage"`
	Parse         ParseStatus `json:"parse,omitempty"`
	CandidateName string      `json:"candidate_name,omitempty"`
	ResumeCode    string      `json:"resume_code,omitempty"`
	ErrorLabel    string      `json:"error_label,omitempty"`
	ErrorMessage  string      `json:"error,omitempty"`

	Err error `json:"-"`
}

// SetError records a failure. The percentage is reset to zero.
func (r *AnalysisResult) SetError(err error, label string) {
	r.Err = err
	r.ErrorMessage = err.Error()
	r.ErrorLabel = label
	r.Percentage = 0
	r.Parse = ""
}

func (r AnalysisResult) Scored() bool {
	return r.Err == nil && r.ErrorMessage == ""
}

// Ambiguous reports a zero score that may be a parse miss rather than a
// genuine zero match.
func (r AnalysisResult) Ambiguous() bool {
	return r.Scored() && r.Percentage == 0 && r.Parse != ParseFound
}
