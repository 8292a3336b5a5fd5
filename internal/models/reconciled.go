package models

import "time"

// ReconciledRow is one (officer, complaint) pair of the joined view.
//
// Officer fields describing the officer today carry a Current suffix
// (json "*_current"). Fields describing the officer at the time of the
// incident keep bare names (rank, assignment, officer_district). Complaint
// fields are bare. Either side is empty when the outer join found no match.
type ReconciledRow struct {
	OfficerID         string `json:"officer_id"`
	OfficerName       string `json:"officer_name"`
	LastName          string `json:"last_name"`
	FirstName         string `json:"first_name"`
	RankCurrent       string `json:"rank_current"`
	AssignmentCurrent string `json:"assignment_current"`
	SalaryCurrent     string `json:"salary_current"`
	Employed          bool   `json:"employed"`

	FileNumber        string     `json:"file_number"`
	IncidentDate      string     `json:"incident_date"`
	IncidentOn        *time.Time `json:"incident_on,omitempty"`
	IncidentLocation  string     `json:"incident_location"`
	NatureOfComplaint string     `json:"nature_of_complaint"`
	RedactedStatement string     `json:"redacted_statement"`
	ComplainantAge    string     `json:"complainant_age"`
	ComplainantRace   string     `json:"complainant_race"`
	ComplainantGender string     `json:"complainant_gender"`
	District          string     `json:"district"`
	City              string     `json:"city"`
	OnDuty            string     `json:"on_duty"`
	DutyStatus        DutyStatus `json:"duty_status"`

	Rank            string `json:"rank"`
	Assignment      string `json:"assignment"`
	OfficerDistrict string `json:"officer_district"`
}

// HasOfficer reports whether the row resolved to a roster entry.
func (r ReconciledRow) HasOfficer() bool { return r.OfficerName != "" }

// HasComplaint reports whether the row carries a complaint.
func (r ReconciledRow) HasComplaint() bool { return r.FileNumber != "" }
