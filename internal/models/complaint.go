package models

import (
	"strings"
	"time"
)

// Complaint is one Employee Misconduct Report (EMR) allegation.
type Complaint struct {
	FileNumber        string `json:"file_number"`
	IncidentDate      string `json:"incident_date"`
	IncidentLocation  string `json:"incident_location"`
	NatureOfComplaint string `json:"nature_of_complaint"`
	RedactedStatement string `json:"redacted_statement"`
	ComplainantAge    string `json:"complainant_age"`
	ComplainantRace   string `json:"complainant_race"`
	ComplainantGender string `json:"complainant_gender"`
	District          string `json:"district"`
	City              string `json:"city"`
	OnDuty            string `json:"on_duty"`

	// Rank and Assignment are the optional at-incident officer columns some
	// workbook revisions keep on the complaints sheet.
	Rank       string `json:"rank,omitempty"`
	Assignment string `json:"assignment,omitempty"`
}

// OfficerComplaintLink joins an officer to a complaint and records the
// officer's rank, assignment and district at the time of the incident.
type OfficerComplaintLink struct {
	OfficerID  string `json:"officer_id"`
	FileNumber string `json:"file_number"`
	Rank       string `json:"rank,omitempty"`
	Assignment string `json:"assignment,omitempty"`
	District   string `json:"district,omitempty"`
}

// DutyStatus is the parsed form of the free-text On-Duty column.
type DutyStatus string

const (
	DutyOn      DutyStatus = "on"
	DutyOff     DutyStatus = "off"
	DutyUnknown DutyStatus = "unknown"
)

// ParseDutyStatus maps the loosely entered On-Duty cell to a DutyStatus.
func ParseDutyStatus(raw string) DutyStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "y", "on", "on-duty", "on duty", "true", "1":
		return DutyOn
	case "no", "n", "off", "off-duty", "off duty", "false", "0":
		return DutyOff
	default:
		return DutyUnknown
	}
}

var incidentDateLayouts = []string{
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
	"01-02-06",
	"1-2-06",
	"01-02-2006",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04 PM",
	"January 2, 2006",
	"Jan 2, 2006",
	"2-Jan-2006",
}

// ParseIncidentDate parses the incident date column. ok is false for blank
// or unrecognised values.
func ParseIncidentDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range incidentDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
