package models

import "strings"

// Officer is one row of the officer roster. OfficerID is the department
// serial number (DSN) and is kept as opaque text; the roster carries blank
// and non-numeric serials.
type Officer struct {
	OfficerID         string `json:"officer_id"`
	LastName          string `json:"last_name"`
	FirstName         string `json:"first_name"`
	CurrentRank       string `json:"rank_current"`
	CurrentAssignment string `json:"assignment_current"`
	CurrentSalary     string `json:"salary_current"`
}

// DisplayName composes the searchable "Last, First" name.
func (o Officer) DisplayName() string {
	return o.LastName + ", " + o.FirstName
}

// Employed reports whether the officer still holds a rank. A blank current
// rank means the officer is no longer with the department.
func (o Officer) Employed() bool {
	return strings.TrimSpace(o.CurrentRank) != ""
}

// NotEmployedMessage is shown in place of rank details for former officers.
const NotEmployedMessage = "No longer employed with the SLMPD"
