package service

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/noah-isme/emr-lookup-api/internal/models"
)

// Snapshot is an immutable, fully reconciled copy of the dataset. Nothing
// mutates a Snapshot after BuildSnapshot returns it, so readers share it
// without locking.
type Snapshot struct {
	Version    string
	LoadedAt   time.Time
	Stale      []string
	Officers   []models.Officer
	Complaints []models.Complaint
	Links      []models.OfficerComplaintLink
	Rows       []models.ReconciledRow
	Aggregates map[models.Dimension]models.Aggregate

	officerByName map[string]int
	officerByID   map[string]int
	complaints    map[rosterKey][]int
	names         []string
}

// rosterKey identifies the officer side of a reconciled row. Roster entries
// sharing a DSN keep separate complaint lists because the name differs.
type rosterKey struct {
	officerID string
	name      string
}

func officerKey(o models.Officer) rosterKey {
	return rosterKey{officerID: o.OfficerID, name: o.DisplayName()}
}

// BuildSnapshot reconciles tables, precomputes aggregates and indexes, and
// returns the finished snapshot. An aggregation policy failure fails the build.
func BuildSnapshot(tables *Tables, now time.Time) (*Snapshot, error) {
	aggregates, err := AggregateAll(tables.Complaints)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Version:           uuid.NewString(),
		LoadedAt:          now.UTC(),
		Stale:             tables.Stale,
		Officers:          tables.Officers,
		Complaints:        tables.Complaints,
		Links:             tables.Links,
		Rows:              Reconcile(tables.Officers, tables.Complaints, tables.Links),
		Aggregates:        aggregates,
		officerByName:     make(map[string]int, len(tables.Officers)),
		officerByID:       make(map[string]int, len(tables.Officers)),
		complaints:        make(map[rosterKey][]int),
		names:             make([]string, 0, len(tables.Officers)),
	}

	for i, o := range snap.Officers {
		name := o.DisplayName()
		if _, exists := snap.officerByName[name]; !exists {
			snap.officerByName[name] = i
			snap.names = append(snap.names, name)
		}
		if _, exists := snap.officerByID[o.OfficerID]; o.OfficerID != "" && !exists {
			snap.officerByID[o.OfficerID] = i
		}
	}
	collate.New(language.English, collate.IgnoreCase).SortStrings(snap.names)

	for i, row := range snap.Rows {
		if row.OfficerID == "" || !row.HasComplaint() {
			continue
		}
		key := rosterKey{officerID: row.OfficerID, name: row.OfficerName}
		snap.complaints[key] = append(snap.complaints[key], i)
	}
	for key, idx := range snap.complaints {
		snap.complaints[key] = sortByIncidentDate(snap.Rows, idx)
	}

	return snap, nil
}

// sortByIncidentDate stable-sorts row indexes by parsed incident date.
// Rows with a blank or unparseable date sort first and keep source order.
func sortByIncidentDate(rows []models.ReconciledRow, idx []int) []int {
	sort.SliceStable(idx, func(i, j int) bool {
		a, b := rows[idx[i]].IncidentOn, rows[idx[j]].IncidentOn
		switch {
		case a == nil:
			return b != nil
		case b == nil:
			return false
		default:
			return a.Before(*b)
		}
	})
	return idx
}

// SnapshotStore publishes the current snapshot. Swapping is a single atomic
// pointer store so readers see either the old or the new snapshot whole.
type SnapshotStore struct {
	current atomic.Pointer[Snapshot]
}

// NewSnapshotStore returns an empty store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Current returns the published snapshot or nil before the first load.
func (s *SnapshotStore) Current() *Snapshot {
	return s.current.Load()
}

// Publish makes snap current and returns the snapshot it replaced.
func (s *SnapshotStore) Publish(snap *Snapshot) *Snapshot {
	return s.current.Swap(snap)
}
