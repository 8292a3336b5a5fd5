package service

import (
	"github.com/noah-isme/emr-lookup-api/internal/models"
)

// Reconcile outer-joins links with officers on DSN and the result with
// complaints on File #.
//
// Row order: one row per (link, matching officer, matching complaint) in link
// order, then roster officers no link references, then complaints no link
// references. Blank keys never match, and an unmatched key leaves that side's
// fields empty instead of failing.
func Reconcile(officers []models.Officer, complaints []models.Complaint, links []models.OfficerComplaintLink) []models.ReconciledRow {
	officersByID := make(map[string][]int, len(officers))
	for i, o := range officers {
		if o.OfficerID != "" {
			officersByID[o.OfficerID] = append(officersByID[o.OfficerID], i)
		}
	}
	complaintsByFile := make(map[string][]int, len(complaints))
	for i, c := range complaints {
		if c.FileNumber != "" {
			complaintsByFile[c.FileNumber] = append(complaintsByFile[c.FileNumber], i)
		}
	}

	officerLinked := make([]bool, len(officers))
	complaintLinked := make([]bool, len(complaints))
	rows := make([]models.ReconciledRow, 0, len(links)+len(officers)+len(complaints))

	for _, link := range links {
		officerIdx := matchOrNone(officersByID, link.OfficerID)
		complaintIdx := matchOrNone(complaintsByFile, link.FileNumber)
		for _, oi := range officerIdx {
			var officer *models.Officer
			if oi >= 0 {
				officer = &officers[oi]
				officerLinked[oi] = true
			}
			for _, ci := range complaintIdx {
				var complaint *models.Complaint
				if ci >= 0 {
					complaint = &complaints[ci]
					complaintLinked[ci] = true
				}
				rows = append(rows, joinRow(officer, complaint, &link))
			}
		}
	}

	for i := range officers {
		if !officerLinked[i] {
			rows = append(rows, joinRow(&officers[i], nil, nil))
		}
	}
	for i := range complaints {
		if !complaintLinked[i] {
			rows = append(rows, joinRow(nil, &complaints[i], nil))
		}
	}
	return rows
}

// matchOrNone returns the indexes under key, or a single -1 for "no match" so
// the outer row is still produced.
func matchOrNone(index map[string][]int, key string) []int {
	if key != "" {
		if matches := index[key]; len(matches) > 0 {
			return matches
		}
	}
	return []int{-1}
}

func joinRow(officer *models.Officer, complaint *models.Complaint, link *models.OfficerComplaintLink) models.ReconciledRow {
	var row models.ReconciledRow

	if link != nil {
		row.OfficerID = link.OfficerID
		row.FileNumber = link.FileNumber
		row.Rank = link.Rank
		row.Assignment = link.Assignment
		row.OfficerDistrict = link.District
	}

	if officer != nil {
		row.OfficerID = officer.OfficerID
		row.OfficerName = officer.DisplayName()
		row.LastName = officer.LastName
		row.FirstName = officer.FirstName
		row.RankCurrent = officer.CurrentRank
		row.AssignmentCurrent = officer.CurrentAssignment
		row.SalaryCurrent = officer.CurrentSalary
		row.Employed = officer.Employed()
	}

	if complaint != nil {
		row.FileNumber = complaint.FileNumber
		row.IncidentDate = complaint.IncidentDate
		if t, ok := models.ParseIncidentDate(complaint.IncidentDate); ok {
			row.IncidentOn = &t
		}
		row.IncidentLocation = complaint.IncidentLocation
		row.NatureOfComplaint = complaint.NatureOfComplaint
		row.RedactedStatement = complaint.RedactedStatement
		row.ComplainantAge = complaint.ComplainantAge
		row.ComplainantRace = complaint.ComplainantRace
		row.ComplainantGender = complaint.ComplainantGender
		row.District = complaint.District
		row.City = complaint.City
		row.OnDuty = complaint.OnDuty
		if row.Rank == "" {
			row.Rank = complaint.Rank
		}
		if row.Assignment == "" {
			row.Assignment = complaint.Assignment
		}
	}
	row.DutyStatus = models.ParseDutyStatus(row.OnDuty)

	return row
}
