package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/emr-lookup-api/internal/models"
	appErrors "github.com/noah-isme/emr-lookup-api/pkg/errors"
)

var (
	officersHeader   = []string{colDSN, colLastName, colFirstName, colRank, colAssignment, colSalary}
	complaintsHeader = []string{colFileNumber, colDate, colLocation, colNature, colStatement, colAge,
		colRace, colGender, colDistrict, colCity, colOnDuty}
	linksHeader = []string{colDSN, colFileNumber, colRank, colIncidentAssignment, colDistrict}
)

func grid(header []string, rows ...[]string) models.Grid {
	return append(models.Grid{header}, rows...)
}

func complaintRow(file, date, race string) []string {
	return []string{file, date, "1200 Market St", "Rudeness", "statement " + file, "30", race, "Male", "6", "St. Louis", "Yes"}
}

// fakeSource serves fixed grids and can fail a table a set number of times.
type fakeSource struct {
	mu       sync.Mutex
	grids    map[string]models.Grid
	failures map[string][]error
	calls    map[string]int
}

func newFakeSource(officers, complaints, links models.Grid) *fakeSource {
	return &fakeSource{
		grids: map[string]models.Grid{
			models.TableOfficers:           officers,
			models.TableComplaints:         complaints,
			models.TableOfficersComplaints: links,
		},
		failures: map[string][]error{},
		calls:    map[string]int{},
	}
}

func (f *fakeSource) failNext(table string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[table] = append(f.failures[table], errs...)
}

func (f *fakeSource) FetchTable(ctx context.Context, name string) (models.Grid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	if queued := f.failures[name]; len(queued) > 0 {
		f.failures[name] = queued[1:]
		return nil, queued[0]
	}
	g, ok := f.grids[name]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrSchemaMismatch, "no table "+name)
	}
	return g, nil
}

func (f *fakeSource) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

// memoryCache is an in-process CacheRepository.
type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
		}
	}
	return nil
}

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

// feamanTables is the roster-only officer case: a former officer with no
// complaints next to an active officer with two.
func feamanTables() *Tables {
	return &Tables{
		Officers: []models.Officer{
			{OfficerID: "1001", LastName: "Feaman", FirstName: "Nathaniel"},
			{OfficerID: "1002", LastName: "Smith", FirstName: "Jane", CurrentRank: "Sergeant", CurrentAssignment: "District 6", CurrentSalary: "$70,000"},
		},
		Complaints: []models.Complaint{
			{FileNumber: "F-1", IncidentDate: "3/5/2019", ComplainantRace: "White"},
			{FileNumber: "F-2", IncidentDate: "1/2/2018", ComplainantRace: "Bosnian"},
			{FileNumber: "F-3", ComplainantRace: "Asian"},
			{FileNumber: "F-4", IncidentDate: "7/7/2017", ComplainantRace: "Hispanic"},
		},
		Links: []models.OfficerComplaintLink{
			{OfficerID: "1002", FileNumber: "F-1", Rank: "Police Officer", Assignment: "District 2", District: "2"},
			{OfficerID: "1002", FileNumber: "F-2"},
		},
	}
}
