package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/emr-lookup-api/internal/models"
	appErrors "github.com/noah-isme/emr-lookup-api/pkg/errors"
)

func defaultSource() *fakeSource {
	return newFakeSource(
		grid(officersHeader,
			[]string{" 1001 ", "Feaman", "Nathaniel"},
			[]string{"", "", "", "", "", ""},
			[]string{"1002", "Smith", "Jane", "Sergeant", "District 6", "$70,000"},
		),
		grid(complaintsHeader, complaintRow("F-1", "3/5/2019", "White")),
		grid([]string{colDSN, colFileNumber}, []string{"1002", "F-1"}),
	)
}

func newTestLoader(source TableSource, cache *CacheService, attempts int) *LoaderService {
	loader := NewLoaderService(source, cache, nil, LoaderConfig{
		MaxAttempts:    attempts,
		RetryBaseDelay: 10 * time.Millisecond,
		RetryMaxDelay:  40 * time.Millisecond,
	}, zap.NewNop())
	loader.sleep = noSleep
	return loader
}

func TestLoaderParsesTables(t *testing.T) {
	tables, err := newTestLoader(defaultSource(), nil, 1).Load(context.Background(), LoadOptions{})
	require.NoError(t, err)

	require.Len(t, tables.Officers, 2, "blank rows are skipped")
	assert.Equal(t, models.Officer{OfficerID: "1001", LastName: "Feaman", FirstName: "Nathaniel"}, tables.Officers[0], "short rows read as blank cells")
	assert.Equal(t, "Sergeant", tables.Officers[1].CurrentRank)

	require.Len(t, tables.Complaints, 1)
	assert.Equal(t, "White", tables.Complaints[0].ComplainantRace)
	assert.Equal(t, "Yes", tables.Complaints[0].OnDuty)

	require.Len(t, tables.Links, 1)
	assert.Equal(t, models.OfficerComplaintLink{OfficerID: "1002", FileNumber: "F-1"}, tables.Links[0])
	assert.Empty(t, tables.Stale)
}

func TestLoaderSchemaMismatchIsNotRetried(t *testing.T) {
	source := defaultSource()
	source.grids[models.TableComplaints] = grid([]string{colFileNumber, colDate})

	_, err := newTestLoader(source, nil, 4).Load(context.Background(), LoadOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrSchemaMismatch)
	assert.Contains(t, err.Error(), colRace)
	assert.Equal(t, 1, source.callCount(models.TableComplaints))
}

func TestLoaderEmptyTableIsSchemaMismatch(t *testing.T) {
	source := defaultSource()
	source.grids[models.TableOfficersComplaints] = models.Grid{}

	_, err := newTestLoader(source, nil, 1).Load(context.Background(), LoadOptions{})
	assert.ErrorIs(t, err, appErrors.ErrSchemaMismatch)
}

func TestLoaderRetriesTransientFailures(t *testing.T) {
	source := defaultSource()
	source.failNext(models.TableOfficers, errors.New("connection reset"), errors.New("timeout"))

	var delays []time.Duration
	loader := newTestLoader(source, nil, 3)
	loader.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	tables, err := loader.Load(context.Background(), LoadOptions{})
	require.NoError(t, err)
	assert.Len(t, tables.Officers, 2)
	assert.Equal(t, 3, source.callCount(models.TableOfficers))
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, delays)
}

func TestLoaderSourceUnavailableAfterAttempts(t *testing.T) {
	source := defaultSource()
	source.failNext(models.TableOfficers, errors.New("a"), errors.New("b"))

	_, err := newTestLoader(source, nil, 2).Load(context.Background(), LoadOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrSourceUnavailable)
	assert.Equal(t, 2, source.callCount(models.TableOfficers))
}

func TestLoaderFallsBackToLastKnownGood(t *testing.T) {
	source := defaultSource()
	cache := NewCacheService(newMemoryCache(), nil, time.Hour, zap.NewNop(), true)
	loader := newTestLoader(source, cache, 1)

	_, err := loader.Load(context.Background(), LoadOptions{})
	require.NoError(t, err)

	source.failNext(models.TableComplaints, errors.New("down"), errors.New("down"))
	_, err = loader.Load(context.Background(), LoadOptions{AllowCached: false})
	assert.ErrorIs(t, err, appErrors.ErrSourceUnavailable)

	tables, err := loader.Load(context.Background(), LoadOptions{AllowCached: true})
	require.NoError(t, err)
	assert.Equal(t, []string{models.TableComplaints}, tables.Stale)
	require.Len(t, tables.Complaints, 1)
	assert.Equal(t, "F-1", tables.Complaints[0].FileNumber)
}

func TestLoaderCacheMissKeepsSourceError(t *testing.T) {
	source := defaultSource()
	source.failNext(models.TableOfficers, errors.New("down"))
	cache := NewCacheService(newMemoryCache(), nil, time.Hour, zap.NewNop(), true)

	_, err := newTestLoader(source, cache, 1).Load(context.Background(), LoadOptions{AllowCached: true})
	assert.ErrorIs(t, err, appErrors.ErrSourceUnavailable)
}

type failingCache struct{ *memoryCache }

func (failingCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return errors.New("redis: connection refused")
}

func TestLoaderCacheWriteFailureDoesNotFailLoad(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cache := NewCacheService(failingCache{newMemoryCache()}, nil, time.Hour, zap.NewNop(), true)
	loader := NewLoaderService(defaultSource(), cache, nil, LoaderConfig{MaxAttempts: 1}, zap.New(core))
	loader.sleep = noSleep

	tables, err := loader.Load(context.Background(), LoadOptions{})
	require.NoError(t, err)
	assert.Len(t, tables.Complaints, 1)

	skipped := logs.FilterMessage("last-known-good copy not updated").All()
	require.Len(t, skipped, 3)
	assert.Equal(t, models.TableOfficers, skipped[0].ContextMap()["table"])
}

func TestLoaderOptionalAtIncidentColumns(t *testing.T) {
	source := defaultSource()
	source.grids[models.TableOfficersComplaints] = grid(linksHeader, []string{"1002", "F-1", "Police Officer", "District 2", "2"})

	tables, err := newTestLoader(source, nil, 1).Load(context.Background(), LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.OfficerComplaintLink{
		OfficerID: "1002", FileNumber: "F-1", Rank: "Police Officer", Assignment: "District 2", District: "2",
	}, tables.Links[0])
}

func TestBackoffDelay(t *testing.T) {
	base, limit := 100*time.Millisecond, 300*time.Millisecond
	assert.Equal(t, 100*time.Millisecond, backoffDelay(base, limit, 1))
	assert.Equal(t, 200*time.Millisecond, backoffDelay(base, limit, 2))
	assert.Equal(t, 300*time.Millisecond, backoffDelay(base, limit, 3))
	assert.Equal(t, 300*time.Millisecond, backoffDelay(base, limit, 10))
}

func TestCacheServiceInvalidate(t *testing.T) {
	repo := newMemoryCache()
	cache := NewCacheService(repo, NewMetricsService(), time.Hour, nil, true)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "emr:table:officers", models.Grid{{"DSN"}}, 0))
	var got models.Grid
	hit, err := cache.Get(ctx, "emr:table:officers", &got)
	require.NoError(t, err)
	assert.True(t, hit)

	require.NoError(t, cache.Invalidate(ctx, "emr:table:*"))
	hit, err = cache.Get(ctx, "emr:table:officers", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	var disabled *CacheService
	assert.False(t, disabled.Enabled())
}
