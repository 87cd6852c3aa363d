package domain

import (
	"strings"
	"time"
)

type EmergencyStatus string

const (
	StatusRequested EmergencyStatus = "REQUESTED"
	StatusAccepted  EmergencyStatus = "ACCEPTED"
	StatusResolved  EmergencyStatus = "RESOLVED"
)

// emergencyTransitions lists the allowed forward moves. A victim may resolve
// a request nobody accepted yet.
var emergencyTransitions = map[EmergencyStatus][]EmergencyStatus{
	StatusRequested: {StatusAccepted, StatusResolved},
	StatusAccepted:  {StatusResolved},
	StatusResolved:  {},
}

func (s EmergencyStatus) Valid() bool {
	_, ok := emergencyTransitions[s]
	return ok
}

func (s EmergencyStatus) CanTransition(to EmergencyStatus) bool {
	for _, next := range emergencyTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type EmergencyType string

const (
	TypeMedical    EmergencyType = "Medical"
	TypeAccident   EmergencyType = "Accident"
	TypeFire       EmergencyType = "Fire"
	TypeHarassment EmergencyType = "Harassment"
	TypeDisaster   EmergencyType = "Disaster"
	TypeUncertain  EmergencyType = "Uncertain"
)

var EmergencyTypes = []EmergencyType{TypeMedical, TypeAccident, TypeFire, TypeHarassment, TypeDisaster, TypeUncertain}

// ParseEmergencyType maps free text to a known type, defaulting to Uncertain.
func ParseEmergencyType(s string) EmergencyType {
	for _, t := range EmergencyTypes {
		if strings.EqualFold(string(t), s) {
			return t
		}
	}
	return TypeUncertain
}

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// ParseSeverity maps free text to a severity, defaulting to MEDIUM.
func ParseSeverity(s string) Severity {
	for _, v := range Severities {
		if strings.EqualFold(string(v), s) {
			return v
		}
	}
	return SeverityMedium
}

// EmergencySession is one SOS lifecycle from trigger to resolution.
type EmergencySession struct {
	ID           string          `json:"id" db:"id"`
	UserID       string          `json:"user_id" db:"user_id"`
	UserName     string          `json:"user_name" db:"user_name"`
	UserPhone    string          `json:"user_phone" db:"user_phone"`
	Lat          float64         `json:"lat" db:"lat"`
	Lng          float64         `json:"lng" db:"lng"`
	Status       EmergencyStatus `json:"status" db:"status"`
	Type         EmergencyType   `json:"type" db:"type"`
	Severity     Severity        `json:"severity" db:"severity"`
	HelperID     *string         `json:"helper_id,omitempty" db:"helper_id"`
	Active       bool            `json:"active" db:"active"`
	StartTime    time.Time       `json:"start_time" db:"start_time"`
	AcceptedTime *time.Time      `json:"accepted_time,omitempty" db:"accepted_time"`
	EndTime      *time.Time      `json:"end_time,omitempty" db:"end_time"`

	DistanceKm  *float64 `json:"distance_km,omitempty" db:"-"`
	IsSimulated bool     `json:"is_simulated,omitempty" db:"-"`
}

const MockEmergencyPrefix = "mock_"

func IsMockEmergencyID(id string) bool {
	return strings.HasPrefix(id, MockEmergencyPrefix)
}

func (e *EmergencySession) Location() GeoPoint {
	return GeoPoint{Lat: e.Lat, Lng: e.Lng}
}
