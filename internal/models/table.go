package models

// Names of the three tables in the EMR workbook.
const (
	TableOfficers           = "officers"
	TableComplaints         = "complaints"
	TableOfficersComplaints = "officers_complaints"
)

// TableNames lists every table a snapshot needs.
var TableNames = []string{TableOfficers, TableComplaints, TableOfficersComplaints}

// Grid is a raw table: the first row is the header, every cell is text.
type Grid [][]string
