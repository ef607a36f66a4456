package reports

import "time"

const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"

	StatusLow    = "low"
	StatusNormal = "normal"
	StatusHigh   = "high"

	ReportStatusProcessing = "processing"
	ReportStatusCompleted  = "completed"
	ReportStatusError      = "error"

	ReportTypePDFUpload = "PDF Upload"
)

// ReportParameter is one measured value as returned by the model.
type ReportParameter struct {
	Name           string `json:"name"`
	Value          Value  `json:"value"`
	Unit           string `json:"unit"`
	ReferenceRange string `json:"reference_range"`
	Status         string `json:"status"`
	Explanation    string `json:"explanation"`
}

type Recommendations struct {
	Diet      []string `json:"diet"`
	Exercise  []string `json:"exercise"`
	Lifestyle []string `json:"lifestyle"`
}

// AIReportSummary is the validated structured interpretation of one report.
type AIReportSummary struct {
	Summary         string            `json:"summary"`
	RiskLevel       string            `json:"risk_level"`
	Parameters      []ReportParameter `json:"parameters"`
	Recommendations Recommendations   `json:"recommendations"`
}

// HealthParameter is a stored parameter. A nil Value means the model's value
// had no leading number; RawValue keeps what it sent.
type HealthParameter struct {
	Name           string   `json:"name"`
	Value          *float64 `json:"value"`
	RawValue       string   `json:"raw_value,omitempty"`
	Unit           string   `json:"unit"`
	ReferenceRange string   `json:"reference_range"`
	Status         string   `json:"status"`
	Explanation    string   `json:"explanation"`
}

// MedicalReport is a processed report as held in session state.
type MedicalReport struct {
	ID              string            `json:"id"`
	Date            time.Time         `json:"date"`
	Type            string            `json:"type"`
	Status          string            `json:"status"`
	Summary         string            `json:"summary"`
	RiskLevel       string            `json:"risk_level"`
	Parameters      []HealthParameter `json:"parameters"`
	Recommendations Recommendations   `json:"recommendations"`
	SourceFileName  string            `json:"source_file_name,omitempty"`
	PromptHash      string            `json:"prompt_hash,omitempty"`
}

// UploadResult is returned to the caller of a successful upload.
type UploadResult struct {
	ID      string          `json:"id"`
	Summary AIReportSummary `json:"summary"`
}
