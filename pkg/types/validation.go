// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Severity grades a validation issue.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ValidationIssue is one problem a content check found.
type ValidationIssue struct {
	Type           string   `json:"type"`
	Severity       Severity `json:"severity"`
	Message        string   `json:"message"`
	Recommendation string   `json:"recommendation,omitempty"`
	Location       string   `json:"location,omitempty"`
}

// ValidationResult summarizes a full check battery over one piece of content.
// QualityScore is the product of per-check multiplicative factors clamped to
// [0.1, 1.0]. Any critical issue forces IsValid false regardless of score.
type ValidationResult struct {
	IsValid         bool              `json:"is_valid"`
	Confidence      float64           `json:"confidence"`
	QualityScore    float64           `json:"quality_score"`
	Issues          []ValidationIssue `json:"issues"`
	Recommendations []string          `json:"recommendations"`
}

// HasCritical reports whether any issue carries critical severity.
func (r ValidationResult) HasCritical() bool {
	for _, iss := range r.Issues {
		if iss.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// ErrorTranslation is the user-safe rendering of a raw failure.
type ErrorTranslation struct {
	ErrorCategory   string   `json:"error_category"`
	Severity        Severity `json:"severity"`
	UserMessage     string   `json:"user_message"`
	SuggestedAction string   `json:"suggested_action"`
	RecoveryOptions []string `json:"recovery_options"`
}
