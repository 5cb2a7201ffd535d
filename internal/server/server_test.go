package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"chartdash/internal/charts"
	"chartdash/internal/config"
	"chartdash/internal/fetchers"
	"chartdash/internal/models"
	"chartdash/internal/reports"
	"chartdash/internal/storage"
)

const sampleCSV = "A,B,C\n1,5,x\n2,3,y\n3,4,z\n"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	client, err := storage.NewLocalStorageClient(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorageClient failed: %v", err)
	}
	cfg := &config.Config{
		MaxUploadBytes: 1 << 20,
		SessionTTL:     time.Hour,
		FetchTimeout:   5 * time.Second,
	}
	return NewServer(cfg, client)
}

// client drives the server as one API session
type client struct {
	t       *testing.T
	handler http.Handler
	session string
}

func newClient(t *testing.T, s *Server) *client {
	return &client{t: t, handler: s.Handler()}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	if c.session != "" {
		req.Header.Set(SessionHeader, c.session)
	}
	rr := httptest.NewRecorder()
	c.handler.ServeHTTP(rr, req)
	if id := rr.Header().Get(SessionHeader); id != "" {
		c.session = id
	}
	return rr
}

func (c *client) send(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("Encode failed: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *client) upload(filename, content string, refresh bool) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		c.t.Fatalf("CreateFormFile failed: %v", err)
	}
	fw.Write([]byte(content))
	if refresh {
		mw.WriteField("refresh", "true")
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/data/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rr.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Fatalf("Expected status %d, got %d: %s", expected, rr.Code, rr.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	c := newClient(t, newTestServer(t))
	rr := c.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	expectStatus(t, rr, http.StatusOK)

	var body map[string]interface{}
	decode(t, rr, &body)
	if body["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", body["status"])
	}
	if _, ok := body["version"]; !ok {
		t.Error("Expected version in health response")
	}
}

func TestIndexCreatesSession(t *testing.T) {
	s := newTestServer(t)
	handler := s.Handler()

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	expectStatus(t, rr, http.StatusOK)

	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Expected HTML content type, got %s", ct)
	}
	if !strings.Contains(rr.Body.String(), reports.DashboardTitle) {
		t.Error("Expected dashboard title in page")
	}

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != SessionCookie || !cookies[0].HttpOnly {
		t.Fatalf("Expected one HttpOnly session cookie, got %v", cookies)
	}
	if s.Sessions.Len() != 1 {
		t.Errorf("Expected 1 session, got %d", s.Sessions.Len())
	}

	// The cookie keeps the same session
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if len(rr.Result().Cookies()) != 0 {
		t.Error("Expected no new cookie for a known session")
	}
	if s.Sessions.Len() != 1 {
		t.Errorf("Expected session to be reused, got %d sessions", s.Sessions.Len())
	}
}

func TestUploadReparsePolicy(t *testing.T) {
	c := newClient(t, newTestServer(t))

	rr := c.upload("data.csv", sampleCSV, false)
	expectStatus(t, rr, http.StatusOK)
	var resp DataResponse
	decode(t, rr, &resp)
	if !resp.Changed || resp.Rows != 3 || len(resp.Columns) != 3 {
		t.Fatalf("Expected a 3x3 dataset to load, got %+v", resp)
	}
	if resp.Source == nil || resp.Source.Format != fetchers.FormatCSV {
		t.Errorf("Expected CSV source, got %+v", resp.Source)
	}

	rr = c.upload("data.csv", sampleCSV, false)
	expectStatus(t, rr, http.StatusOK)
	decode(t, rr, &resp)
	if resp.Changed {
		t.Error("Expected identical upload to be skipped")
	}

	rr = c.upload("data.csv", sampleCSV, true)
	decode(t, rr, &resp)
	if !resp.Changed {
		t.Error("Expected refresh to reload the dataset")
	}
}

func TestUploadErrors(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
		expected int
	}{
		{"unsupported extension", "notes.txt", "hello", http.StatusUnsupportedMediaType},
		{"malformed json", "data.json", "{not json", http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, newTestServer(t))
			c.upload("data.csv", sampleCSV, false)

			rr := c.upload(tt.filename, tt.content, false)
			expectStatus(t, rr, tt.expected)

			// The prior dataset is kept
			rr = c.do(httptest.NewRequest(http.MethodGet, "/data/summary", nil))
			expectStatus(t, rr, http.StatusOK)
		})
	}

	c := newClient(t, newTestServer(t))
	req := httptest.NewRequest(http.MethodPost, "/data/upload", strings.NewReader("plain"))
	req.Header.Set("Content-Type", "text/plain")
	expectStatus(t, c.do(req), http.StatusBadRequest)
}

func TestUploadTooLarge(t *testing.T) {
	s := newTestServer(t)
	s.Config.MaxUploadBytes = 64
	c := newClient(t, s)

	rr := c.upload("data.csv", strings.Repeat("1,2,3\n", 100), false)
	expectStatus(t, rr, http.StatusRequestEntityTooLarge)
}

func TestFetchURL(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/data.csv":
			w.Header().Set("Content-Type", "text/csv")
			fmt.Fprint(w, sampleCSV)
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, "<html></html>")
		default:
			http.NotFound(w, r)
		}
	}))
	defer remote.Close()

	c := newClient(t, newTestServer(t))

	rr := c.send(http.MethodPost, "/data/url", map[string]string{"url": remote.URL + "/data.csv"})
	expectStatus(t, rr, http.StatusOK)
	var resp DataResponse
	decode(t, rr, &resp)
	if !resp.Changed || resp.Rows != 3 {
		t.Fatalf("Expected dataset from URL, got %+v", resp)
	}
	if resp.Source.Fingerprint != fetchers.URLFingerprint(remote.URL+"/data.csv") {
		t.Errorf("Unexpected fingerprint %s", resp.Source.Fingerprint)
	}

	form := url.Values{"url": {remote.URL + "/data.csv"}}
	req := httptest.NewRequest(http.MethodPost, "/data/url", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = c.do(req)
	expectStatus(t, rr, http.StatusOK)
	decode(t, rr, &resp)
	if resp.Changed {
		t.Error("Expected same URL to be skipped without refresh")
	}

	tests := []struct {
		name     string
		body     interface{}
		expected int
	}{
		{"not found", map[string]string{"url": remote.URL + "/missing"}, http.StatusBadGateway},
		{"html response", map[string]string{"url": remote.URL + "/page"}, http.StatusUnsupportedMediaType},
		{"missing url", map[string]string{}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectStatus(t, c.send(http.MethodPost, "/data/url", tt.body), tt.expected)
		})
	}

	req = httptest.NewRequest(http.MethodPost, "/data/url", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	expectStatus(t, c.do(req), http.StatusBadRequest)
}

func TestSummary(t *testing.T) {
	c := newClient(t, newTestServer(t))

	rr := c.do(httptest.NewRequest(http.MethodGet, "/data/summary", nil))
	expectStatus(t, rr, http.StatusConflict)

	c.upload("data.csv", sampleCSV, false)
	rr = c.do(httptest.NewRequest(http.MethodGet, "/data/summary", nil))
	expectStatus(t, rr, http.StatusOK)

	var body struct {
		RowCount int `json:"row_count"`
		Stats    []struct {
			Column string   `json:"column"`
			Mean   *float64 `json:"mean"`
		} `json:"stats"`
	}
	decode(t, rr, &body)
	if len(body.Stats) != 2 || body.Stats[0].Column != "A" {
		t.Fatalf("Expected stats for A and B, got %+v", body.Stats)
	}
	if body.Stats[0].Mean == nil || *body.Stats[0].Mean != 2 {
		t.Errorf("Expected mean 2 for A, got %v", body.Stats[0].Mean)
	}
}

func TestChartLifecycle(t *testing.T) {
	c := newClient(t, newTestServer(t))
	c.upload("data.csv", sampleCSV, false)

	rr := c.send(http.MethodPost, "/charts", map[string]string{"kind": "BarChart"})
	expectStatus(t, rr, http.StatusCreated)
	var resp ChartResponse
	decode(t, rr, &resp)
	if resp.Index != 0 || resp.Chart == nil || resp.Chart.Header != "Bar Chart 1" {
		t.Fatalf("Expected 'Bar Chart 1' at index 0, got %+v", resp)
	}
	if resp.Chart.Config.XAxis != "A" || resp.Chart.Config.YAxis != "B" {
		t.Errorf("Expected default axes A/B, got %s/%s", resp.Chart.Config.XAxis, resp.Chart.Config.YAxis)
	}

	rr = c.send(http.MethodPost, "/charts", map[string]string{"kind": "pie"})
	expectStatus(t, rr, http.StatusCreated)

	rr = c.send(http.MethodPut, "/charts/0", map[string]interface{}{
		"title":           "Sorted",
		"sort_order":      "Descending",
		"sort_by":         "B",
		"max_data_points": 2,
	})
	expectStatus(t, rr, http.StatusOK)
	decode(t, rr, &resp)
	if resp.Chart.Config.Title != "Sorted" || resp.Chart.Rows != 2 {
		t.Errorf("Expected updated title and 2 rows, got %+v", resp.Chart)
	}

	rr = c.send(http.MethodPost, "/charts/0/reset", nil)
	expectStatus(t, rr, http.StatusOK)
	decode(t, rr, &resp)
	if resp.Chart.Config.Title != "Bar Chart" || resp.Chart.Rows != 3 {
		t.Errorf("Expected defaults after reset, got %+v", resp.Chart.Config)
	}

	rr = c.send(http.MethodDelete, "/charts/0", nil)
	expectStatus(t, rr, http.StatusOK)
	decode(t, rr, &resp)
	if len(resp.Charts) != 1 || resp.Charts[0].Header != "Pie Chart 1" {
		t.Errorf("Expected pie chart to shift to index 0, got %+v", resp.Charts)
	}

	rr = c.do(httptest.NewRequest(http.MethodGet, "/charts", nil))
	expectStatus(t, rr, http.StatusOK)
	var list ChartsResponse
	decode(t, rr, &list)
	if len(list.Charts) != 1 || list.Charts[0].Kind != models.PieChart {
		t.Errorf("Expected one pie chart, got %+v", list.Charts)
	}
}

func TestChartErrors(t *testing.T) {
	c := newClient(t, newTestServer(t))
	c.upload("data.csv", sampleCSV, false)
	c.send(http.MethodPost, "/charts", map[string]string{"kind": "BarChart"})

	tests := []struct {
		name     string
		method   string
		path     string
		body     interface{}
		expected int
	}{
		{"unknown kind", http.MethodPost, "/charts", map[string]string{"kind": "Heatmap"}, http.StatusBadRequest},
		{"field of another kind", http.MethodPut, "/charts/0", map[string]string{"names": "A"}, http.StatusBadRequest},
		{"wrong value type", http.MethodPut, "/charts/0", map[string]string{"max_data_points": "many"}, http.StatusBadRequest},
		{"update out of range", http.MethodPut, "/charts/5", map[string]string{"title": "x"}, http.StatusNotFound},
		{"remove out of range", http.MethodDelete, "/charts/1", nil, http.StatusNotFound},
		{"reset out of range", http.MethodPost, "/charts/-1/reset", nil, http.StatusNotFound},
		{"non-numeric index", http.MethodDelete, "/charts/first", nil, http.StatusNotFound},
		{"png out of range", http.MethodGet, "/charts/3/png", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectStatus(t, c.send(tt.method, tt.path, tt.body), tt.expected)
		})
	}

	rr := c.do(httptest.NewRequest(http.MethodGet, "/charts", nil))
	var list ChartsResponse
	decode(t, rr, &list)
	if len(list.Charts) != 1 || list.Charts[0].Config.Title != "Bar Chart" {
		t.Errorf("Expected failed requests to leave the chart intact, got %+v", list.Charts)
	}
}

func TestChartRenders(t *testing.T) {
	c := newClient(t, newTestServer(t))
	c.upload("data.csv", sampleCSV, false)
	c.send(http.MethodPost, "/charts", map[string]string{"kind": "ScatterPlot"})

	rr := c.do(httptest.NewRequest(http.MethodGet, "/charts/0/png", nil))
	expectStatus(t, rr, http.StatusOK)
	if rr.Header().Get("Content-Type") != "image/png" {
		t.Errorf("Expected image/png, got %s", rr.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("Expected PNG signature")
	}

	rr = c.do(httptest.NewRequest(http.MethodGet, "/charts/0/html", nil))
	expectStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), "echarts") {
		t.Error("Expected an ECharts page")
	}
	if !strings.Contains(rr.Body.String(), "let goecharts_chart_0 = echarts.init(") {
		t.Error("Expected the chart script to declare a valid instance name")
	}
}

func TestChartPNGEdgeCases(t *testing.T) {
	for _, kind := range []string{"BarChart", "LineChart", "ScatterPlot", "PieChart"} {
		t.Run(kind, func(t *testing.T) {
			c := newClient(t, newTestServer(t))
			c.upload("data.csv", sampleCSV, false)
			c.send(http.MethodPost, "/charts", map[string]string{"kind": kind})
			c.send(http.MethodPost, "/charts", map[string]string{"kind": kind})

			rr := c.send(http.MethodPut, "/charts/0", map[string]interface{}{"max_data_points": 1})
			expectStatus(t, rr, http.StatusOK)

			field := map[string]string{"x_axis": "C", "y_axis": "C"}
			if kind == "PieChart" {
				field = map[string]string{"values": "C"}
			}
			rr = c.send(http.MethodPut, "/charts/1", field)
			expectStatus(t, rr, http.StatusOK)

			for _, path := range []string{"/charts/0/png", "/charts/1/png"} {
				rr = c.do(httptest.NewRequest(http.MethodGet, path, nil))
				expectStatus(t, rr, http.StatusOK)
				if !bytes.HasPrefix(rr.Body.Bytes(), []byte("\x89PNG")) {
					t.Errorf("Expected PNG signature for %s", path)
				}
			}
		})
	}
}

func TestBrowserForms(t *testing.T) {
	c := newClient(t, newTestServer(t))
	c.upload("data.csv", sampleCSV, false)

	post := func(path string, form url.Values) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "text/html,application/xhtml+xml")
		return c.do(req)
	}

	rr := post("/charts", url.Values{"kind": {"LineChart"}})
	expectStatus(t, rr, http.StatusSeeOther)
	if rr.Header().Get("Location") != "/" {
		t.Errorf("Expected redirect to /, got %s", rr.Header().Get("Location"))
	}

	rr = post("/charts/0", url.Values{
		"_form":           {"1"},
		"title":           {"Revenue"},
		"show_grid":       {"true"},
		"max_data_points": {"2"},
		"sort_order":      {"None"},
		"x_axis":          {"C"},
	})
	expectStatus(t, rr, http.StatusSeeOther)

	rr = c.do(httptest.NewRequest(http.MethodGet, "/charts", nil))
	var list ChartsResponse
	decode(t, rr, &list)
	got := list.Charts[0].Config
	if got.Title != "Revenue" || got.XAxis != "C" || got.MaxDataPoints != 2 {
		t.Errorf("Expected form values to apply, got %+v", got)
	}
	if !got.ShowGrid || got.ShowLegend {
		t.Errorf("Expected checked grid and unchecked legend, got grid=%v legend=%v", got.ShowGrid, got.ShowLegend)
	}

	rr = post("/charts/0/delete", nil)
	expectStatus(t, rr, http.StatusSeeOther)
	rr = c.do(httptest.NewRequest(http.MethodGet, "/charts", nil))
	decode(t, rr, &list)
	if len(list.Charts) != 0 {
		t.Errorf("Expected chart to be removed, got %d", len(list.Charts))
	}
}

func TestConfigFromForm(t *testing.T) {
	cfg, err := configFromForm(models.PieChart, url.Values{
		"names":       {"C"},
		"show_legend": {"on"},
		"title":       {"  "},
		"marker_size": {"9"},
	})
	if err != nil {
		t.Fatalf("configFromForm failed: %v", err)
	}
	pie, ok := cfg.(*models.PieConfig)
	if !ok {
		t.Fatalf("Expected *PieConfig, got %T", cfg)
	}
	if pie.Names == nil || *pie.Names != "C" {
		t.Errorf("Expected names C, got %v", pie.Names)
	}
	if pie.ShowLegend == nil || !*pie.ShowLegend {
		t.Error("Expected show_legend true")
	}
	if pie.ShowGrid == nil || *pie.ShowGrid {
		t.Error("Expected unchecked show_grid to be false")
	}
	if pie.Title != nil {
		t.Errorf("Expected blank title to stay unset, got %q", *pie.Title)
	}

	if _, err := configFromForm(models.BarChart, url.Values{"marker_size": {"big"}}); !errors.Is(err, errBadRequest) {
		t.Errorf("Expected bad request for non-numeric marker_size, got %v", err)
	}
}

func TestExportAndFiles(t *testing.T) {
	s := newTestServer(t)
	c := newClient(t, s)

	expectStatus(t, c.send(http.MethodPost, "/export", nil), http.StatusConflict)

	c.upload("data.csv", sampleCSV, false)
	c.send(http.MethodPost, "/charts", map[string]string{"kind": "BarChart"})

	rr := c.send(http.MethodPost, "/export", nil)
	expectStatus(t, rr, http.StatusCreated)
	var resp ExportResponse
	decode(t, rr, &resp)
	if !strings.HasSuffix(resp.Index, "/"+storage.ExportIndexFile) || resp.URL != "/files/"+resp.Index {
		t.Fatalf("Unexpected export response %+v", resp)
	}

	rr = c.do(httptest.NewRequest(http.MethodGet, resp.URL, nil))
	expectStatus(t, rr, http.StatusOK)
	if !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/html") {
		t.Errorf("Expected HTML content type, got %s", rr.Header().Get("Content-Type"))
	}
	if !strings.Contains(rr.Body.String(), "Bar Chart 1") {
		t.Error("Expected exported page to contain the chart")
	}

	rr = c.do(httptest.NewRequest(http.MethodGet, "/files/"+resp.Folder+"/chart-1.png", nil))
	expectStatus(t, rr, http.StatusOK)
	if rr.Header().Get("Content-Type") != "image/png" {
		t.Errorf("Expected image/png, got %s", rr.Header().Get("Content-Type"))
	}

	rr = c.do(httptest.NewRequest(http.MethodGet, "/exports?limit=5", nil))
	expectStatus(t, rr, http.StatusOK)
	var list struct {
		Exports []string `json:"exports"`
	}
	decode(t, rr, &list)
	if len(list.Exports) != 1 || list.Exports[0] != resp.Folder {
		t.Errorf("Expected export %s to be listed, got %v", resp.Folder, list.Exports)
	}

	expectStatus(t, c.do(httptest.NewRequest(http.MethodGet, "/exports?limit=x", nil)), http.StatusBadRequest)
	expectStatus(t, c.do(httptest.NewRequest(http.MethodGet, "/files/2020/missing.html", nil)), http.StatusNotFound)
}

func TestEndSession(t *testing.T) {
	s := newTestServer(t)
	c := newClient(t, s)
	c.upload("data.csv", sampleCSV, false)
	old := c.session

	rr := c.send(http.MethodDelete, "/session", nil)
	expectStatus(t, rr, http.StatusOK)
	var body map[string]bool
	decode(t, rr, &body)
	if !body["ended"] {
		t.Error("Expected session to be ended")
	}
	if s.Sessions.Len() != 0 {
		t.Errorf("Expected no sessions, got %d", s.Sessions.Len())
	}

	// A stale id starts a fresh, empty session
	c.session = old
	rr = c.do(httptest.NewRequest(http.MethodGet, "/data/summary", nil))
	expectStatus(t, rr, http.StatusConflict)
	if c.session == old {
		t.Error("Expected a new session id")
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err      error
		expected int
	}{
		{fmt.Errorf("x: %w", fetchers.ErrUnsupportedFormat), http.StatusUnsupportedMediaType},
		{fmt.Errorf("x: %w", fetchers.ErrFetch), http.StatusBadGateway},
		{fmt.Errorf("x: %w", fetchers.ErrParse), http.StatusUnprocessableEntity},
		{fmt.Errorf("x: %w", charts.ErrIndexOutOfRange), http.StatusNotFound},
		{fmt.Errorf("x: %w", charts.ErrKindMismatch), http.StatusBadRequest},
		{fmt.Errorf("x: %w", charts.ErrUnknownKind), http.StatusBadRequest},
		{storage.ErrNotFound, http.StatusNotFound},
		{storage.ErrInvalidPath, http.StatusBadRequest},
		{errNoDataset, http.StatusConflict},
		{asBadRequest("upload", &http.MaxBytesError{Limit: 1}), http.StatusRequestEntityTooLarge},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.expected {
			t.Errorf("Expected %d for %v, got %d", tt.expected, tt.err, got)
		}
	}
}
