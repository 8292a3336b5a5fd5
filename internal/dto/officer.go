package dto

import "github.com/noah-isme/emr-lookup-api/internal/models"

// OfficerSearchRequest is the query for a name search.
type OfficerSearchRequest struct {
	Name string `form:"name" validate:"required,max=200"`
}

// OfficerSummary is the header block shown above an officer's complaints.
// Rank details are omitted for former officers and Status carries the
// "no longer employed" message instead.
type OfficerSummary struct {
	OfficerID   string `json:"officerId"`
	DisplayName string `json:"displayName"`
	Employed    bool   `json:"employed"`
	Status      string `json:"status,omitempty"`
	Rank        string `json:"rank,omitempty"`
	Assignment  string `json:"assignment,omitempty"`
	Salary      string `json:"salary,omitempty"`
}

// ComplaintListItem is one row of the complaint summary table.
type ComplaintListItem struct {
	Index             int    `json:"index"`
	FileNumber        string `json:"fileNumber"`
	IncidentDate      string `json:"incidentDate"`
	NatureOfComplaint string `json:"natureOfComplaint"`
	ComplainantAge    string `json:"complainantAge"`
	ComplainantRace   string `json:"complainantRace"`
	ComplainantGender string `json:"complainantGender"`
}

// OfficerSearchResponse answers "search officer by name". Found is false
// when no roster entry matches; that is an expected outcome, not an error.
type OfficerSearchResponse struct {
	Query      string              `json:"query"`
	Found      bool                `json:"found"`
	Officer    *OfficerSummary     `json:"officer,omitempty"`
	Complaints []ComplaintListItem `json:"complaints"`
}

// ComplaintDetail answers "select complaint row N".
type ComplaintDetail struct {
	Index             int    `json:"index"`
	FileNumber        string `json:"fileNumber"`
	IncidentDate      string `json:"incidentDate"`
	IncidentLocation  string `json:"incidentLocation"`
	NatureOfComplaint string `json:"natureOfComplaint"`
	Statement         string `json:"statement"`
	Rank              string `json:"rank"`
	Assignment        string `json:"assignment"`
	OfficerDistrict   string `json:"officerDistrict,omitempty"`
	OnDuty            string `json:"onDuty"`
	DutyStatus        string `json:"dutyStatus"`
	District          string `json:"district"`
	City              string `json:"city"`
}

// NewOfficerSummary builds the summary block for an officer.
func NewOfficerSummary(o models.Officer) *OfficerSummary {
	summary := &OfficerSummary{
		OfficerID:   o.OfficerID,
		DisplayName: o.DisplayName(),
		Employed:    o.Employed(),
	}
	if !summary.Employed {
		summary.Status = models.NotEmployedMessage
		return summary
	}
	summary.Rank = o.CurrentRank
	summary.Assignment = o.CurrentAssignment
	summary.Salary = o.CurrentSalary
	return summary
}

// NewComplaintList maps reconciled rows to list items, keeping row order so
// Index matches the position used for detail lookups.
func NewComplaintList(rows []models.ReconciledRow) []ComplaintListItem {
	items := make([]ComplaintListItem, 0, len(rows))
	for i, row := range rows {
		items = append(items, ComplaintListItem{
			Index:             i,
			FileNumber:        row.FileNumber,
			IncidentDate:      row.IncidentDate,
			NatureOfComplaint: row.NatureOfComplaint,
			ComplainantAge:    row.ComplainantAge,
			ComplainantRace:   row.ComplainantRace,
			ComplainantGender: row.ComplainantGender,
		})
	}
	return items
}

// NewComplaintDetail maps a reconciled row to the detail payload.
func NewComplaintDetail(index int, row models.ReconciledRow) ComplaintDetail {
	return ComplaintDetail{
		Index:             index,
		FileNumber:        row.FileNumber,
		IncidentDate:      row.IncidentDate,
		IncidentLocation:  row.IncidentLocation,
		NatureOfComplaint: row.NatureOfComplaint,
		Statement:         row.RedactedStatement,
		Rank:              row.Rank,
		Assignment:        row.Assignment,
		OfficerDistrict:   row.OfficerDistrict,
		OnDuty:            row.OnDuty,
		DutyStatus:        string(row.DutyStatus),
		District:          row.District,
		City:              row.City,
	}
}
