package schema

import "encoding/json"

// Classification says whether a finding fails the run
type Classification string

const (
	Blocking    Classification = "Blocking"
	NonBlocking Classification = "Non-Blocking"
)

// Category separates content rules from path rules
type Category string

const (
	CategoryCode Category = "code"
	CategoryFile Category = "file"
)

// Finding is a normalized, classified hit. Line and Match are only set for content findings.
type Finding struct {
	Path  string         `json:"path"`
	Line  int            `json:"line,omitempty"`
	Match string         `json:"match,omitempty"`
	Type  Classification `json:"type"`
}

func (f Finding) Blocking() bool {
	return f.Type == Blocking
}

// RuleResult groups the findings of one rule
type RuleResult struct {
	Category Category  `json:"-"`
	Rule     string    `json:"-"`
	Pattern  string    `json:"-"`
	Findings []Finding `json:"findings"`
}

// MarshalJSON keeps the key names consumers of the report already parse:
// regex_key/regex_value for content results, file_key/file_value for path results.
func (r RuleResult) MarshalJSON() ([]byte, error) {
	keyName, valueName := "regex_key", "regex_value"
	if r.Category == CategoryFile {
		keyName, valueName = "file_key", "file_value"
	}
	findings := r.Findings
	if findings == nil {
		findings = []Finding{}
	}
	return json.Marshal(map[string]any{
		"findings": findings,
		keyName:    r.Rule,
		valueName:  r.Pattern,
	})
}

func (r *RuleResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		RegexKey   string    `json:"regex_key"`
		RegexValue string    `json:"regex_value"`
		FileKey    string    `json:"file_key"`
		FileValue  string    `json:"file_value"`
		Findings   []Finding `json:"findings"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Findings = raw.Findings
	if raw.FileKey != "" {
		r.Category, r.Rule, r.Pattern = CategoryFile, raw.FileKey, raw.FileValue
		return nil
	}
	r.Category, r.Rule, r.Pattern = CategoryCode, raw.RegexKey, raw.RegexValue
	return nil
}

type Counters struct {
	Code         int `json:"code"`
	File         int `json:"file"`
	BlockingCode int `json:"blocking_code"`
	BlockingFile int `json:"blocking_file"`
}

// ExecutionTime is measured in seconds
type ExecutionTime struct {
	Code  float64 `json:"code"`
	File  float64 `json:"file"`
	Total float64 `json:"total"`
}

type Summary struct {
	Findings      Counters      `json:"findings"`
	ExecutionTime ExecutionTime `json:"execution_time"`
}

// Record counts one finding against the summary. Counters never go down.
func (s *Summary) Record(c Category, f Finding) {
	switch c {
	case CategoryCode:
		s.Findings.Code++
		if f.Blocking() {
			s.Findings.BlockingCode++
		}
	case CategoryFile:
		s.Findings.File++
		if f.Blocking() {
			s.Findings.BlockingFile++
		}
	}
}

// Blocking is the number of findings, of either kind, that fail the run
func (s Summary) Blocking() int {
	return s.Findings.BlockingCode + s.Findings.BlockingFile
}

// Report is the document written at the end of a run
type Report struct {
	Code    []RuleResult `json:"code"`
	File    []RuleResult `json:"file"`
	Summary Summary      `json:"summary"`
}

func NewReport() *Report {
	return &Report{Code: []RuleResult{}, File: []RuleResult{}}
}

func (r *Report) Failed() bool {
	return r.Summary.Blocking() > 0
}

// ExitCode is 1 when at least one blocking finding was recorded
func (r *Report) ExitCode() int {
	if r.Failed() {
		return 1
	}
	return 0
}
