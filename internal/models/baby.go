// internal/models/baby.go
package models

import (
	"time"
)

type Baby struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	DateOfBirth         time.Time `json:"date_of_birth"`
	KnownAllergies      []string  `json:"known_allergies,omitempty"`
	SuspectedAllergies  []string  `json:"suspected_allergies,omitempty"`
	PediatricianContact string    `json:"pediatrician_contact,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// DateLayout is the calendar date format used for birth, meal and exposure dates.
const DateLayout = "2006-01-02"
