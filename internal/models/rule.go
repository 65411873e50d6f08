// internal/models/rule.go
package models

import (
	"time"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityCaution Severity = "caution"
	SeverityDanger  Severity = "danger"
)

// Rank orders severities: danger(3) > caution(2) > info(1). Unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityDanger:
		return 3
	case SeverityCaution:
		return 2
	case SeverityInfo:
		return 1
	}
	return 0
}

func (s Severity) IsValid() bool {
	return s.Rank() > 0
}

// SafetyRule is a published feeding guideline with its citation.
type SafetyRule struct {
	RuleKey        string    `json:"rule_key" yaml:"rule_key"`
	ShortText      string    `json:"short_text" yaml:"short_text"`
	Severity       Severity  `json:"severity" yaml:"severity"`
	Publisher      string    `json:"publisher" yaml:"publisher"`
	URL            string    `json:"url" yaml:"url"`
	PublishedAt    time.Time `json:"published_at" yaml:"published_at"`
	LastVerifiedAt time.Time `json:"last_verified_at" yaml:"last_verified_at"`
	DirectQuote    string    `json:"direct_quote" yaml:"direct_quote"`
	AgeMinMonths   int       `json:"age_min_months" yaml:"age_min_months"`
	AgeMaxMonths   int       `json:"age_max_months" yaml:"age_max_months"`
	Tags           []string  `json:"tags" yaml:"tags"`
}
