// internal/models/exposure.go
package models

import (
	"time"
)

type ReactionType string

const (
	ReactionSkin        ReactionType = "skin"
	ReactionDigestive   ReactionType = "digestive"
	ReactionRespiratory ReactionType = "respiratory"
	ReactionSevere      ReactionType = "severe"
)

type ReactionSeverity string

const (
	ReactionMild      ReactionSeverity = "mild"
	ReactionModerate  ReactionSeverity = "moderate"
	ReactionSerious   ReactionSeverity = "severe"
	ReactionEmergency ReactionSeverity = "emergency"
)

// Exposure records a baby being given an allergen, and what happened.
type Exposure struct {
	ID           string          `json:"id"`
	BabyID       string          `json:"baby_id"`
	Allergen     string          `json:"allergen"`
	ExposureDate string          `json:"exposure_date"` // YYYY-MM-DD
	Reaction     *ReactionDetail `json:"reaction,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type ReactionDetail struct {
	Type      ReactionType     `json:"type,omitempty"`
	Severity  ReactionSeverity `json:"severity,omitempty"`
	Symptoms  []string         `json:"symptoms,omitempty"`
	OnsetTime string           `json:"onset_time,omitempty"`
	Duration  string           `json:"duration,omitempty"`
	Treatment string           `json:"treatment,omitempty"`
}

func (t ReactionType) IsValid() bool {
	switch t {
	case ReactionSkin, ReactionDigestive, ReactionRespiratory, ReactionSevere:
		return true
	}
	return false
}

func (s ReactionSeverity) IsValid() bool {
	switch s {
	case ReactionMild, ReactionModerate, ReactionSerious, ReactionEmergency:
		return true
	}
	return false
}
