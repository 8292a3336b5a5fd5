package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/emr-lookup-api/internal/models"
)

func TestBuildSnapshotIndexes(t *testing.T) {
	now := time.Date(2026, 5, 6, 7, 8, 9, 0, time.FixedZone("CST", -6*3600))
	snap, err := BuildSnapshot(feamanTables(), now)
	require.NoError(t, err)

	assert.NotEmpty(t, snap.Version)
	assert.Equal(t, time.UTC, snap.LoadedAt.Location())
	assert.Len(t, snap.Rows, 5)
	assert.Equal(t, 3, snap.Aggregates[models.DimensionRace].Count("Other"))
	assert.Equal(t, []string{"Feaman, Nathaniel", "Smith, Jane"}, snap.names)
	assert.Empty(t, snap.ListComplaints("1001"))
	assert.Len(t, snap.ListComplaints("1002"), 2)
}

func TestSortByIncidentDateBlankFirst(t *testing.T) {
	rows := Reconcile(nil, []models.Complaint{
		{FileNumber: "a", IncidentDate: "5/1/2020"},
		{FileNumber: "b", IncidentDate: "not a date"},
		{FileNumber: "c", IncidentDate: "2019-12-31"},
		{FileNumber: "d", IncidentDate: ""},
		{FileNumber: "e", IncidentDate: "January 3, 2020"},
		{FileNumber: "f", IncidentDate: "03-04-15"},
	}, nil)

	idx := sortByIncidentDate(rows, []int{0, 1, 2, 3, 4, 5})
	var order []string
	for _, i := range idx {
		order = append(order, rows[i].FileNumber)
	}
	assert.Equal(t, []string{"b", "d", "f", "c", "e", "a"}, order)
}

func TestSnapshotStoreConcurrentReaders(t *testing.T) {
	store := NewSnapshotStore()
	assert.Nil(t, store.Current())

	first, err := BuildSnapshot(feamanTables(), time.Now())
	require.NoError(t, err)
	second, err := BuildSnapshot(feamanTables(), time.Now())
	require.NoError(t, err)
	assert.Nil(t, store.Publish(first))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				snap := store.Current()
				if snap != first && snap != second {
					t.Error("reader observed an unpublished snapshot")
					return
				}
			}
		}()
	}
	assert.Same(t, first, store.Publish(second))
	wg.Wait()
	assert.Same(t, second, store.Current())
}
