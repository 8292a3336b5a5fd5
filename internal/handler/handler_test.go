package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/emr-lookup-api/internal/middleware"
	"github.com/noah-isme/emr-lookup-api/internal/models"
	"github.com/noah-isme/emr-lookup-api/internal/service"
	"github.com/noah-isme/emr-lookup-api/pkg/jobs"
)

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta map[string]interface{} `json:"meta"`
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func fixtureTables() *service.Tables {
	return &service.Tables{
		Officers: []models.Officer{
			{OfficerID: "1001", LastName: "Feaman", FirstName: "Nathaniel", CurrentRank: "", CurrentAssignment: "", CurrentSalary: ""},
			{OfficerID: "1002", LastName: "Smith", FirstName: "Jane", CurrentRank: "Sergeant", CurrentAssignment: "District 6", CurrentSalary: "$70,000"},
		},
		Complaints: []models.Complaint{
			{FileNumber: "F-1", IncidentDate: "3/5/2019", ComplainantRace: "White", NatureOfComplaint: "Rudeness", OnDuty: "Yes"},
			{FileNumber: "F-2", IncidentDate: "1/2/2018", ComplainantRace: "Bosnian", NatureOfComplaint: "Force"},
			{FileNumber: "F-3", IncidentDate: "", ComplainantRace: "Asian"},
			{FileNumber: "F-4", IncidentDate: "7/7/2017", ComplainantRace: "Hispanic"},
		},
		Links: []models.OfficerComplaintLink{
			{OfficerID: "1002", FileNumber: "F-1", Rank: "Police Officer", Assignment: "District 2"},
			{OfficerID: "1002", FileNumber: "F-2"},
			{OfficerID: "1002", FileNumber: "F-3"},
		},
	}
}

func newTestQuery(t *testing.T, publish bool) (*service.QueryService, *service.SnapshotStore) {
	t.Helper()
	store := service.NewSnapshotStore()
	if publish {
		snap, err := service.BuildSnapshot(fixtureTables(), time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
		require.NoError(t, err)
		store.Publish(snap)
	}
	return service.NewQueryService(store, nil, "2015-2021", nil), store
}

func TestOfficerHandlerSearchFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	query, _ := newTestQuery(t, true)
	h := NewOfficerHandler(query, nil)

	c, w := newGinContext(http.MethodGet, "/officers/search?name=Smith,%20Jane", nil)
	h.Search(c)

	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	var data struct {
		Found   bool `json:"found"`
		Officer struct {
			Rank string `json:"rank"`
		} `json:"officer"`
		Complaints []struct {
			FileNumber string `json:"fileNumber"`
		} `json:"complaints"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.True(t, data.Found)
	assert.Equal(t, "Sergeant", data.Officer.Rank)
	require.Len(t, data.Complaints, 3)
	assert.Equal(t, "F-3", data.Complaints[0].FileNumber, "blank dates sort first")
	assert.Equal(t, "F-2", data.Complaints[1].FileNumber)
	assert.Equal(t, "F-1", data.Complaints[2].FileNumber)
	assert.NotEmpty(t, env.Meta["snapshot_version"])
}

func TestOfficerHandlerSearchFormerOfficerWithoutComplaints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	query, _ := newTestQuery(t, true)
	h := NewOfficerHandler(query, nil)

	c, w := newGinContext(http.MethodGet, "/officers/search?name=Feaman,%20Nathaniel", nil)
	h.Search(c)

	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Found   bool `json:"found"`
		Officer struct {
			Employed bool   `json:"employed"`
			Status   string `json:"status"`
		} `json:"officer"`
		Complaints []interface{} `json:"complaints"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	assert.True(t, data.Found)
	assert.False(t, data.Officer.Employed)
	assert.Equal(t, models.NotEmployedMessage, data.Officer.Status)
	assert.NotNil(t, data.Complaints)
	assert.Empty(t, data.Complaints)
}

func TestOfficerHandlerSearchMissAndValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	query, _ := newTestQuery(t, true)
	h := NewOfficerHandler(query, nil)

	c, w := newGinContext(http.MethodGet, "/officers/search?name=Nobody,%20At%20All", nil)
	h.Search(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"found":false`)

	c, w = newGinContext(http.MethodGet, "/officers/search", nil)
	h.Search(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, w).Error.Code)
}

func TestOfficerHandlerNotReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	query, _ := newTestQuery(t, false)
	h := NewOfficerHandler(query, nil)

	c, w := newGinContext(http.MethodGet, "/officers/names", nil)
	h.Names(c)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "SNAPSHOT_NOT_READY", decode(t, w).Error.Code)
}

func TestOfficerHandlerNames(t *testing.T) {
	gin.SetMode(gin.TestMode)
	query, _ := newTestQuery(t, true)
	h := NewOfficerHandler(query, nil)

	c, w := newGinContext(http.MethodGet, "/officers/names", nil)
	h.Names(c)
	require.Equal(t, http.StatusOK, w.Code)
	var names []string
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &names))
	assert.Equal(t, []string{"Feaman, Nathaniel", "Smith, Jane"}, names)
}

func TestOfficerHandlerComplaintDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	query, _ := newTestQuery(t, true)
	h := NewOfficerHandler(query, nil)

	c, w := newGinContext(http.MethodGet, "/officers/1002/complaints/2", nil)
	c.Params = gin.Params{{Key: "id", Value: "1002"}, {Key: "index", Value: "2"}}
	h.ComplaintDetail(c)
	require.Equal(t, http.StatusOK, w.Code)
	var detail struct {
		FileNumber string `json:"fileNumber"`
		Rank       string `json:"rank"`
		Assignment string `json:"assignment"`
		DutyStatus string `json:"dutyStatus"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &detail))
	assert.Equal(t, "F-1", detail.FileNumber)
	assert.Equal(t, "Police Officer", detail.Rank)
	assert.Equal(t, "District 2", detail.Assignment)
	assert.Equal(t, string(models.DutyOn), detail.DutyStatus)

	c, w = newGinContext(http.MethodGet, "/officers/1002/complaints/3", nil)
	c.Params = gin.Params{{Key: "id", Value: "1002"}, {Key: "index", Value: "3"}}
	h.ComplaintDetail(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INDEX_OUT_OF_RANGE", decode(t, w).Error.Code)

	c, w = newGinContext(http.MethodGet, "/officers/1002/complaints/x", nil)
	c.Params = gin.Params{{Key: "id", Value: "1002"}, {Key: "index", Value: "x"}}
	h.ComplaintDetail(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, w).Error.Code)
}

func TestOfficerHandlerComplaintsEmptyList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	query, _ := newTestQuery(t, true)
	h := NewOfficerHandler(query, nil)

	c, w := newGinContext(http.MethodGet, "/officers/1001/complaints", nil)
	c.Params = gin.Params{{Key: "id", Value: "1001"}}
	h.Complaints(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(decode(t, w).Data))
}

func TestOfficerHandlerExport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	query, _ := newTestQuery(t, true)
	h := NewOfficerHandler(query, service.NewExportService(query, nil))

	c, w := newGinContext(http.MethodGet, "/officers/1002/complaints/export?format=csv", nil)
	c.Params = gin.Params{{Key: "id", Value: "1002"}}
	h.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "emr_smith_jane_1002.csv")
	assert.Contains(t, w.Body.String(), "F-2")

	c, w = newGinContext(http.MethodGet, "/officers/9999/complaints/export", nil)
	c.Params = gin.Params{{Key: "id", Value: "9999"}}
	h.Export(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAggregateHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	query, _ := newTestQuery(t, true)
	h := NewAggregateHandler(query)

	c, w := newGinContext(http.MethodGet, "/aggregates/race?sort=count", nil)
	c.Params = gin.Params{{Key: "dimension", Value: "race"}}
	h.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	var agg struct {
		Items []models.LabelCount `json:"items"`
		Total int                 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &agg))
	assert.Equal(t, []models.LabelCount{{Label: "Other", Count: 3}, {Label: "White", Count: 1}}, agg.Items)
	assert.Equal(t, 4, agg.Total)

	c, w = newGinContext(http.MethodGet, "/aggregates/shoe-size", nil)
	c.Params = gin.Params{{Key: "dimension", Value: "shoe-size"}}
	h.Get(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type refresherStub struct {
	snap *service.Snapshot
	err  error
}

func (r *refresherStub) Refresh(ctx context.Context) (*service.Snapshot, error) {
	return r.snap, r.err
}

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	q.jobs = append(q.jobs, job)
	return q.err
}

func TestSnapshotHandlerRefresh(t *testing.T) {
	gin.SetMode(gin.TestMode)
	query, store := newTestQuery(t, true)

	disabled := NewSnapshotHandler(query, &refresherStub{}, &queueStub{}, false)
	c, w := newGinContext(http.MethodPost, "/admin/refresh", nil)
	disabled.Refresh(c)
	assert.Equal(t, http.StatusForbidden, w.Code)

	queue := &queueStub{}
	h := NewSnapshotHandler(query, &refresherStub{snap: store.Current()}, queue, true)
	c, w = newGinContext(http.MethodPost, "/admin/refresh", nil)
	h.Refresh(c)
	assert.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, service.JobTypeRefresh, queue.jobs[0].Type)

	c, w = newGinContext(http.MethodPost, "/admin/refresh?wait=true", nil)
	h.Refresh(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), store.Current().Version)

	failing := NewSnapshotHandler(query, &refresherStub{err: errors.New("boom")}, queue, true)
	c, w = newGinContext(http.MethodPost, "/admin/refresh?wait=1", nil)
	failing.Refresh(c)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestMetricsHandlerReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := service.NewSnapshotStore()
	h := NewMetricsHandler(service.NewMetricsService(), store)

	c, w := newGinContext(http.MethodGet, "/ready", nil)
	h.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	snap, err := service.BuildSnapshot(fixtureTables(), time.Now())
	require.NoError(t, err)
	store.Publish(snap)

	c, w = newGinContext(http.MethodGet, "/ready", nil)
	h.Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouterMetaMiddlewareIntegration(t *testing.T) {
	gin.SetMode(gin.TestMode)
	query, _ := newTestQuery(t, true)
	router := gin.New()
	router.Use(middleware.WithResponseMeta())
	router.GET("/officers/names", NewOfficerHandler(query, nil).Names)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/officers/names", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w).Meta["snapshot_loaded_at"])
}
