package domain

import "time"

// EmergencyEvent announces that an emergency session changed state. A new
// request carries the followers to alert in Guardians.
type EmergencyEvent struct {
	EmergencyID string          `json:"emergency_id"`
	UserID      string          `json:"user_id"`
	Status      EmergencyStatus `json:"status"`
	HelperID    string          `json:"helper_id,omitempty"`
	Guardians   []string        `json:"guardians,omitempty"`
	At          time.Time       `json:"at"`
}
