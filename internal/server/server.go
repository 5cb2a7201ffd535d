package server

import (
	"net/http"
	"time"

	"chartdash/internal/config"
	"chartdash/internal/fetchers"
	"chartdash/internal/logger"
	"chartdash/internal/mocks"
	"chartdash/internal/render"
	"chartdash/internal/reports"
	"chartdash/internal/session"
	"chartdash/internal/storage"
)

// SessionCookie carries the session id between requests
const SessionCookie = "chartdash_session"

// SessionHeader is accepted instead of the cookie by API clients
const SessionHeader = "X-Session-ID"

// Server represents the main application server
type Server struct {
	Config      *config.Config
	Fetcher     *fetchers.DataFetcher
	Sessions    *session.Manager
	Storage     storage.StorageClient
	Pages       *reports.HTMLBuilder
	Exports     *reports.ExportService
	ECharts     *render.EChartsRenderer
	PNG         *render.PNGRenderer
	MockService *mocks.MockService
	log         *logger.Logger
}

// NewServer creates a new server instance writing exports to client
func NewServer(cfg *config.Config, client storage.StorageClient) *Server {
	echarts := render.NewEChartsRenderer()
	png := render.NewPNGRenderer()
	pages := reports.NewHTMLBuilder(reports.NewTemplateLoader(cfg.StylesheetPath), echarts)

	server := &Server{
		Config:   cfg,
		Fetcher:  fetchers.NewDataFetcher(cfg.FetchTimeout, cfg.FetchRetryCount),
		Sessions: session.NewManager(cfg.SessionTTL),
		Storage:  client,
		Pages:    pages,
		Exports:  reports.NewExportService(pages, png, client),
		ECharts:  echarts,
		PNG:      png,
		log:      logger.Component("server"),
	}

	// Initialize mock service if mockup mode is enabled
	if cfg.MockupMode {
		server.MockService = mocks.NewMockService(cfg.MocksDir)
		server.Sessions.SetSeed(server.MockService.Seed)
		server.log.Info("Mockup mode enabled", logger.Fields{"mocks_dir": cfg.MocksDir})
	}

	return server
}

// SetupRoutes configures HTTP routes for the server
func (s *Server) SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.HandleHealth)
	mux.HandleFunc("GET /{$}", s.HandleIndex)

	mux.HandleFunc("POST /data/upload", s.HandleUpload)
	mux.HandleFunc("POST /data/url", s.HandleFetchURL)
	mux.HandleFunc("GET /data/summary", s.HandleSummary)

	mux.HandleFunc("GET /charts", s.HandleListCharts)
	mux.HandleFunc("POST /charts", s.HandleAddChart)
	mux.HandleFunc("PUT /charts/{index}", s.HandleUpdateChart)
	mux.HandleFunc("POST /charts/{index}", s.HandleUpdateChartForm)
	mux.HandleFunc("DELETE /charts/{index}", s.HandleRemoveChart)
	mux.HandleFunc("POST /charts/{index}/delete", s.HandleRemoveChart)
	mux.HandleFunc("POST /charts/{index}/reset", s.HandleResetChart)
	mux.HandleFunc("GET /charts/{index}/png", s.HandleChartPNG)
	mux.HandleFunc("GET /charts/{index}/html", s.HandleChartHTML)

	mux.HandleFunc("POST /export", s.HandleExport)
	mux.HandleFunc("GET /exports", s.HandleListExports)
	mux.HandleFunc("GET /files/{path...}", s.HandleFileProxy)

	mux.HandleFunc("DELETE /session", s.HandleEndSession)

	return mux
}

// Handler returns the routes wrapped with request logging
func (s *Server) Handler() http.Handler {
	mux := s.SetupRoutes()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		mux.ServeHTTP(rec, r)
		s.log.Debug("Request served", logger.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		})
	})
}

// Close cleans up server resources
func (s *Server) Close() error {
	if s.Storage != nil {
		return s.Storage.Close()
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
