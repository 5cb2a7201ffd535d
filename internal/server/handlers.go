package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"chartdash/internal/charts"
	"chartdash/internal/config"
	"chartdash/internal/dashboard"
	"chartdash/internal/fetchers"
	"chartdash/internal/logger"
	"chartdash/internal/render"
	"chartdash/internal/reports"
	"chartdash/internal/session"
	"chartdash/internal/storage"
	"chartdash/internal/summary"
)

// DataResponse is returned after a dataset load
type DataResponse struct {
	Changed bool                `json:"changed"`
	Source  *session.SourceInfo `json:"source"`
	Rows    int                 `json:"rows"`
	Columns []string            `json:"columns"`
	Charts  []dashboard.Chart   `json:"charts"`
}

// ChartsResponse lists the evaluated charts of a session
type ChartsResponse struct {
	Charts []dashboard.Chart `json:"charts"`
}

// ChartResponse is returned after a change to one chart
type ChartResponse struct {
	Index  int               `json:"index"`
	Chart  *dashboard.Chart  `json:"chart,omitempty"`
	Charts []dashboard.Chart `json:"charts"`
}

// ExportResponse is returned after a dashboard export
type ExportResponse struct {
	*reports.ExportResult
	URL string `json:"url"`
}

// session returns the caller's session, creating one (and its cookie) when
// the request carries no live session id
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, error) {
	id := r.Header.Get(SessionHeader)
	if id == "" {
		if c, err := r.Cookie(SessionCookie); err == nil {
			id = c.Value
		}
	}

	sess, created, err := s.Sessions.GetOrCreate(id)
	if err != nil {
		return nil, err
	}
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	w.Header().Set(SessionHeader, sess.ID)
	return sess, nil
}

// HandleHealth handles health check requests
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"version":   config.GetVersion(),
		"sessions":  s.Sessions.Len(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleIndex serves the interactive dashboard page
func (s *Server) HandleIndex(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var page string
	err = sess.Do(func(st *session.State) error {
		in := reports.PageInput{
			Dataset:     st.Data,
			Charts:      dashboard.Evaluate(st.Data, st.Charts),
			Interactive: true,
			PNGPath:     func(i int) string { return fmt.Sprintf("/charts/%d/png", i) },
		}
		if st.Source != nil {
			in.SourceName = st.Source.Name
		}
		var err error
		page, err = s.Pages.BuildPage(in)
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, page)
}

// HandleUpload loads a dataset from a multipart upload
func (s *Server) HandleUpload(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.Config.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.Config.MaxUploadBytes); err != nil {
		s.writeError(w, r, asBadRequest("invalid upload", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, asBadRequest("missing file field", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, r, asBadRequest("failed to read upload", err))
		return
	}

	contentType := header.Header.Get("Content-Type")
	refresh := formFlag(r.FormValue("refresh"))
	fingerprint := fetchers.UploadFingerprint(contentType, data)

	s.loadSource(w, r, sess, fingerprint, refresh, func() (*fetchers.Source, error) {
		return fetchers.LoadUpload(header.Filename, contentType, data)
	})
}

// HandleFetchURL loads a dataset from a remote URL
func (s *Server) HandleFetchURL(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req struct {
		URL     string `json:"url"`
		Refresh bool   `json:"refresh"`
	}
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, r, asBadRequest("invalid JSON", err))
			return
		}
	} else {
		req.URL = r.FormValue("url")
		req.Refresh = formFlag(r.FormValue("refresh"))
	}
	if req.URL == "" {
		s.writeError(w, r, fmt.Errorf("%w: url is required", errBadRequest))
		return
	}

	s.loadSource(w, r, sess, fetchers.URLFingerprint(req.URL), req.Refresh, func() (*fetchers.Source, error) {
		return s.Fetcher.Fetch(r.Context(), req.URL)
	})
}

// loadSource parses a source unless the session already holds it and
// replaces the session dataset. Parsing and fetching happen outside the
// session lock; on failure the prior dataset is kept.
func (s *Server) loadSource(w http.ResponseWriter, r *http.Request, sess *session.Session, fingerprint string, refresh bool, load func() (*fetchers.Source, error)) {
	var loaded bool
	if !refresh {
		sess.Do(func(st *session.State) error {
			loaded = st.HasSource(fingerprint)
			return nil
		})
	}

	var src *fetchers.Source
	if !loaded {
		var err error
		if src, err = load(); err != nil {
			s.writeError(w, r, err)
			return
		}
		src.Fingerprint = fingerprint
	}

	var resp DataResponse
	sess.Do(func(st *session.State) error {
		resp.Changed = st.Load(src, refresh)
		resp.Source = st.Source
		resp.Rows = st.Data.RowCount()
		resp.Columns = st.Data.ColumnNames()
		resp.Charts = dashboard.Evaluate(st.Data, st.Charts)
		return nil
	})

	sess.Logger().Info("Dataset load handled", logger.Fields{
		"fingerprint": fingerprint,
		"changed":     resp.Changed,
		"rows":        resp.Rows,
	})
	s.respond(w, r, http.StatusOK, resp)
}

// HandleSummary returns the overview of the session dataset
func (s *Server) HandleSummary(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var out summary.Summary
	err = sess.Do(func(st *session.State) error {
		if st.Data == nil {
			return errNoDataset
		}
		out = summary.Build(st.Data)
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleListCharts returns the evaluated charts
func (s *Server) HandleListCharts(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var out []dashboard.Chart
	sess.Do(func(st *session.State) error {
		out = dashboard.Evaluate(st.Data, st.Charts)
		return nil
	})
	writeJSON(w, http.StatusOK, ChartsResponse{Charts: out})
}

// HandleAddChart appends a chart of the requested kind
func (s *Server) HandleAddChart(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req struct {
		Kind string `json:"kind"`
	}
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, r, asBadRequest("invalid JSON", err))
			return
		}
	} else {
		req.Kind = r.FormValue("kind")
	}

	kind, err := charts.ParseKind(req.Kind)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.mutate(w, r, sess, http.StatusCreated, func(st *session.State) (int, error) {
		return st.Charts.Append(kind), nil
	})
}

// HandleUpdateChart replaces a chart configuration with a JSON body
func (s *Server) HandleUpdateChart(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	index, err := chartIndex(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.mutate(w, r, sess, http.StatusOK, func(st *session.State) (int, error) {
		entry, err := st.Charts.At(index)
		if err != nil {
			return index, err
		}
		cfg, err := decodeConfig(entry.Kind, body)
		if err != nil {
			return index, err
		}
		return index, st.Charts.Update(index, cfg)
	})
}

// HandleUpdateChartForm replaces a chart configuration from the page form
func (s *Server) HandleUpdateChartForm(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	index, err := chartIndex(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		s.writeError(w, r, asBadRequest("invalid form", err))
		return
	}

	s.mutate(w, r, sess, http.StatusOK, func(st *session.State) (int, error) {
		entry, err := st.Charts.At(index)
		if err != nil {
			return index, err
		}
		cfg, err := configFromForm(entry.Kind, r.PostForm)
		if err != nil {
			return index, err
		}
		return index, st.Charts.Update(index, cfg)
	})
}

// HandleRemoveChart removes a chart; later charts shift down
func (s *Server) HandleRemoveChart(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	index, err := chartIndex(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.mutate(w, r, sess, http.StatusOK, func(st *session.State) (int, error) {
		return index, st.Charts.RemoveAt(index)
	})
}

// HandleResetChart restores a chart to its default configuration
func (s *Server) HandleResetChart(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	index, err := chartIndex(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.mutate(w, r, sess, http.StatusOK, func(st *session.State) (int, error) {
		return index, st.Charts.ResetConfig(index)
	})
}

// mutate applies fn to the chart store, evaluates the dashboard and reports
// the chart at the returned index
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, sess *session.Session, status int, fn func(st *session.State) (int, error)) {
	resp := ChartResponse{}
	err := sess.Do(func(st *session.State) error {
		index, err := fn(st)
		if err != nil {
			return err
		}
		resp.Index = index
		resp.Charts = dashboard.Evaluate(st.Data, st.Charts)
		if index < len(resp.Charts) {
			resp.Chart = &resp.Charts[index]
		}
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sess.Logger().Debug("Charts changed", logger.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"charts": len(resp.Charts),
	})
	s.respond(w, r, status, resp)
}

// evaluatedChart evaluates the dashboard and returns the chart at the
// requested index
func (s *Server) evaluatedChart(w http.ResponseWriter, r *http.Request) (*dashboard.Chart, error) {
	sess, err := s.session(w, r)
	if err != nil {
		return nil, err
	}
	index, err := chartIndex(r)
	if err != nil {
		return nil, err
	}

	var out *dashboard.Chart
	err = sess.Do(func(st *session.State) error {
		if _, err := st.Charts.At(index); err != nil {
			return err
		}
		evaluated := dashboard.Evaluate(st.Data, st.Charts)
		out = &evaluated[index]
		return nil
	})
	return out, err
}

// HandleChartPNG renders one chart as a PNG image
func (s *Server) HandleChartPNG(w http.ResponseWriter, r *http.Request) {
	chart, err := s.evaluatedChart(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := s.PNG.RenderBytes(chart.Figure)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// HandleChartHTML renders one chart as a standalone ECharts page
func (s *Server) HandleChartHTML(w http.ResponseWriter, r *http.Request) {
	chart, err := s.evaluatedChart(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := s.ECharts.RenderHTML(chart.Figure, render.ChartID(chart.Index))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, page)
}

// HandleExport stores a snapshot of the session dashboard
func (s *Server) HandleExport(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	snap := reports.Snapshot{Timestamp: time.Now().UTC()}
	err = sess.Do(func(st *session.State) error {
		if st.Data == nil {
			return errNoDataset
		}
		snap.Dataset = st.Data
		snap.Charts = dashboard.Evaluate(st.Data, st.Charts)
		if st.Source != nil {
			snap.SourceName = st.Source.Name
		}
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	// The snapshot holds evaluated figures, so storage runs unlocked
	result, err := s.Exports.Export(r.Context(), snap)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	url := "/files/" + result.Index
	if wantsHTML(r) {
		http.Redirect(w, r, url, http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusCreated, ExportResponse{ExportResult: result, URL: url})
}

// HandleListExports lists stored export folders, newest first
func (s *Server) HandleListExports(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, r, fmt.Errorf("%w: invalid limit %q", errBadRequest, raw))
			return
		}
		limit = n
	}

	folders, err := s.Storage.ListExports(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if folders == nil {
		folders = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"exports": folders})
}

// HandleFileProxy serves files from the export storage
func (s *Server) HandleFileProxy(w http.ResponseWriter, r *http.Request) {
	filePath, err := storage.CleanPath(r.PathValue("path"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	data, err := s.Storage.GetFile(r.Context(), filePath)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", storage.GetContentType(filePath))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// HandleEndSession discards the caller's session
func (s *Server) HandleEndSession(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(SessionHeader)
	if id == "" {
		if c, err := r.Cookie(SessionCookie); err == nil {
			id = c.Value
		}
	}

	ended := id != "" && s.Sessions.End(id)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	if wantsHTML(r) {
		redirectHome(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ended": ended})
}

// respond redirects browser forms to the page and writes JSON otherwise
func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	if wantsHTML(r) {
		redirectHome(w, r)
		return
	}
	writeJSON(w, status, v)
}
