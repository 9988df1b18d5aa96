package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"storepulse/internal/export"
	"storepulse/internal/model"
	"storepulse/internal/mw"
	"storepulse/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeReports struct {
	id  string
	err error
}

func (f *fakeReports) Trigger(context.Context) (string, error) { return f.id, f.err }

type fakeExports struct {
	results map[string]export.Result
	err     error
}

func (f *fakeExports) Get(_ context.Context, reportID string) (export.Result, error) {
	if f.err != nil {
		return export.Result{}, f.err
	}
	res, ok := f.results[reportID]
	if !ok {
		return export.Result{}, export.ErrNotFound
	}
	return res, nil
}

type fakeSubs struct {
	subs map[string]model.PushSubscription
	err  error
}

func (f *fakeSubs) UpsertSubscription(_ context.Context, sub *model.PushSubscription) error {
	if f.err != nil {
		return f.err
	}
	f.subs[sub.Endpoint] = *sub
	return nil
}

func (f *fakeSubs) GetSubscription(_ context.Context, endpoint string) (*model.PushSubscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	sub, ok := f.subs[endpoint]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &sub, nil
}

func (f *fakeSubs) DeleteSubscription(_ context.Context, endpoint string) error {
	if f.err != nil {
		return f.err
	}
	delete(f.subs, endpoint)
	return nil
}

type testServer struct {
	router  *gin.Engine
	reports *fakeReports
	exports *fakeExports
	subs    *fakeSubs
}

func newTestServer(opts *webpush.Options) *testServer {
	ts := &testServer{
		reports: &fakeReports{id: "r-new"},
		exports: &fakeExports{results: map[string]export.Result{
			"r-running": {Status: model.ReportRunning},
			"r-failed":  {Status: model.ReportFailed},
			"r-done": {
				Status:      model.ReportComplete,
				Location:    "reports/report_r-done.csv",
				ContentType: "text/csv",
				Data:        []byte("store_id\na\n"),
			},
		}},
		subs: &fakeSubs{subs: map[string]model.PushSubscription{}},
	}
	h := NewHandler(ts.reports, ts.exports, ts.subs, opts, zap.NewNop())
	ts.router = NewRouter(h, mw.NewIPRateLimiter(rate.Inf, 1), zap.NewNop())
	return ts
}

func (ts *testServer) do(method, path string, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	ts.router.ServeHTTP(w, req)
	return w
}

func TestTriggerReport(t *testing.T) {
	ts := newTestServer(nil)

	w := ts.do(http.MethodPost, "/trigger_report", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"report_id":"r-new"}`, w.Body.String())

	ts.reports.err = errors.New("queue is full")
	w = ts.do(http.MethodPost, "/trigger_report", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"an error occurred"}`, w.Body.String())
}

func TestGetReport(t *testing.T) {
	ts := newTestServer(nil)

	testCases := []struct {
		id       string
		wantCode int
		wantBody string
	}{
		{id: "r-running", wantCode: http.StatusOK, wantBody: `{"status":"Running"}`},
		{id: "r-failed", wantCode: http.StatusOK, wantBody: `{"status":"Failed"}`},
		{id: "r-done", wantCode: http.StatusOK, wantBody: `{"status":"Complete","export_location":"reports/report_r-done.csv"}`},
		{id: "nope", wantCode: http.StatusNotFound, wantBody: `{"error":"report not found"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.id, func(t *testing.T) {
			w := ts.do(http.MethodGet, "/get_report/"+tc.id, nil)
			assert.Equal(t, tc.wantCode, w.Code)
			assert.JSONEq(t, tc.wantBody, w.Body.String())
		})
	}

	ts.exports.err = errors.New("db gone")
	w := ts.do(http.MethodGet, "/get_report/r-done", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestDownloadReport(t *testing.T) {
	ts := newTestServer(nil)

	w := ts.do(http.MethodGet, "/get_report/r-running/download", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(http.MethodGet, "/get_report/nope/download", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodGet, "/get_report/r-done/download", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "report_r-done.csv")
	assert.Equal(t, "store_id\na\n", w.Body.String())

	again := ts.do(http.MethodGet, "/get_report/r-done/download", nil)
	assert.Equal(t, w.Body.Bytes(), again.Body.Bytes())
}

func TestSubscriptions(t *testing.T) {
	ts := newTestServer(nil)

	w := ts.do(http.MethodPut, "/subscriptions", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid request"}`, w.Body.String())

	w = ts.do(http.MethodPut, "/subscriptions", []byte(`{"endpoint":"https://push/1","p256dh":"k","auth":"a"}`))
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, ts.subs.subs, "https://push/1")

	w = ts.do(http.MethodGet, "/subscriptions?endpoint=https%3A%2F%2Fpush%2F1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"endpoint":"https://push/1"`)

	w = ts.do(http.MethodGet, "/subscriptions", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodDelete, "/subscriptions", []byte(`{"endpoint":"https://push/1"}`))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(http.MethodGet, "/subscriptions?endpoint=https%3A%2F%2Fpush%2F1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	ts.subs.err = errors.New("disk full")
	w = ts.do(http.MethodPut, "/subscriptions", []byte(`{"endpoint":"https://push/2","p256dh":"k","auth":"a"}`))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetVAPIDPublicKey(t *testing.T) {
	w := newTestServer(nil).do(http.MethodGet, "/vapid_public_key", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = newTestServer(&webpush.Options{VAPIDPublicKey: "pub"}).do(http.MethodGet, "/vapid_public_key", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"public_key":"pub"}`, w.Body.String())
}

func TestRouter_RateLimited(t *testing.T) {
	h := NewHandler(&fakeReports{id: "r"}, &fakeExports{}, &fakeSubs{}, nil, zap.NewNop())
	r := NewRouter(h, mw.NewIPRateLimiter(rate.Limit(0.001), 1), zap.NewNop())

	codes := []int{}
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/trigger_report", nil)
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}
