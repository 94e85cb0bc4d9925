// Package backendtest runs an in-process fake of the categorization service
// for tests.
package backendtest

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/mkguldan/speakerfilter/internal/backend"
)

// Request is what the fake observed for one call.
type Request struct {
	Method     string
	Path       string
	Format     string
	EventName  string
	EventTitle string
	HasEvent   bool
	FileName   string
	FileBody   []byte
	RequestID  string
}

// Failure is a canned error response in the service's {"detail": ...} shape.
type Failure struct {
	Status int
	Detail string
}

// Server is a fake categorization service backed by echo.
type Server struct {
	URL string

	srv *httptest.Server

	mu         sync.Mutex
	requests   []Request
	filter     backend.FilterResult
	filterFail *Failure
	rawFilter  []byte
	exports    map[backend.Format][]byte
	exportFail *Failure
	probe      backend.ConnectionStatus
	probeFail  *Failure
	preview    backend.Preview
	gate       chan struct{}
}

// New starts a server that returns SampleResult for filters. It is closed
// when the test ends.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		filter:  SampleResult("2511 Barclays", ""),
		exports: make(map[backend.Format][]byte),
		probe:   backend.ConnectionStatus{Status: "healthy", Timestamp: "2026-10-18T09:00:00"},
		preview: backend.Preview{
			RowCount:    5,
			ColumnCount: 3,
			Columns:     []string{"Speaker Name", "Company", "Workshops"},
			SampleData:  []map[string]any{{"Speaker Name": "Ada Lovelace", "Company": "Analytical Engines"}},
			Message:     "Successfully uploaded. Found 5 rows and 3 columns.",
		},
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET("/health", s.handleProbe)
	e.POST("/api/upload-csv", s.handlePreview)
	e.POST("/api/filter-speakers-csv", s.handleFilter)
	e.POST("/api/export-csv/:format", s.handleExport)

	s.srv = httptest.NewServer(e)
	s.URL = s.srv.URL
	t.Cleanup(s.Close)
	return s
}

// Close shuts the server down. Later requests fail to connect.
func (s *Server) Close() {
	s.Release()
	s.srv.Close()
}

// SetFilterResult sets the result served by the filter endpoint.
func (s *Server) SetFilterResult(r backend.FilterResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = r
	s.filterFail = nil
	s.rawFilter = nil
}

// SetRawFilterResponse serves body verbatim with status 200.
func (s *Server) SetRawFilterResponse(body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rawFilter = body
	s.filterFail = nil
}

// FailFilter makes the filter endpoint return an error.
func (s *Server) FailFilter(status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filterFail = &Failure{Status: status, Detail: detail}
}

// SetExport sets the body returned for format.
func (s *Server) SetExport(format backend.Format, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exports[format] = body
	s.exportFail = nil
}

// FailExport makes the export endpoint return an error.
func (s *Server) FailExport(status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exportFail = &Failure{Status: status, Detail: detail}
}

// SetProbe sets the probe payload.
func (s *Server) SetProbe(status backend.ConnectionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.probe = status
	s.probeFail = nil
}

// FailProbe makes the probe endpoint return an error.
func (s *Server) FailProbe(status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.probeFail = &Failure{Status: status, Detail: detail}
}

// Hold makes filter requests block until Release is called or the client
// gives up.
func (s *Server) Hold() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gate == nil {
		s.gate = make(chan struct{})
	}
}

// Release unblocks held filter requests.
func (s *Server) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gate != nil {
		close(s.gate)
		s.gate = nil
	}
}

// Requests returns a copy of every request seen so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestsTo returns the requests whose path is p.
func (s *Server) RequestsTo(p string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Path == p {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) record(c echo.Context) (Request, error) {
	q := c.QueryParams()
	req := Request{
		Method:     c.Request().Method,
		Path:       c.Request().URL.Path,
		Format:     c.Param("format"),
		EventName:  q.Get("event_name"),
		EventTitle: q.Get("event_title"),
		HasEvent:   q.Has("event_name"),
		RequestID:  c.Request().Header.Get("X-Request-ID"),
	}

	var err error
	if c.Request().Method == http.MethodPost {
		err = readUpload(c, &req)
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	return req, err
}

func readUpload(c echo.Context, req *Request) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fmt.Errorf("read form file: %w", err)
	}
	src, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open form file: %w", err)
	}
	defer src.Close()

	req.FileName = fh.Filename
	req.FileBody, err = io.ReadAll(src)
	return err
}

func detail(c echo.Context, f *Failure) error {
	return c.JSON(f.Status, map[string]any{"detail": f.Detail})
}

func (s *Server) handleProbe(c echo.Context) error {
	s.record(c)

	s.mu.Lock()
	status, fail := s.probe, s.probeFail
	s.mu.Unlock()

	if fail != nil {
		return detail(c, fail)
	}
	return c.JSON(http.StatusOK, status)
}

func (s *Server) handlePreview(c echo.Context) error {
	if _, err := s.record(c); err != nil {
		return detail(c, &Failure{Status: http.StatusUnprocessableEntity, Detail: "File must be a CSV file"})
	}

	s.mu.Lock()
	p := s.preview
	s.mu.Unlock()
	return c.JSON(http.StatusOK, p)
}

func (s *Server) handleFilter(c echo.Context) error {
	req, err := s.record(c)
	if err != nil {
		return detail(c, &Failure{Status: http.StatusUnprocessableEntity, Detail: "file: field required"})
	}
	if !req.HasEvent {
		return c.JSON(http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]any{{"loc": []string{"query", "event_name"}, "msg": "field required"}},
		})
	}

	s.mu.Lock()
	gate, result, raw, fail := s.gate, s.filter, s.rawFilter, s.filterFail
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-c.Request().Context().Done():
			return c.Request().Context().Err()
		}
	}

	switch {
	case fail != nil:
		return detail(c, fail)
	case raw != nil:
		return c.JSONBlob(http.StatusOK, raw)
	}
	result.EventName = req.EventName
	result.EventTitle = req.EventTitle
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleExport(c echo.Context) error {
	req, err := s.record(c)
	if err != nil {
		return detail(c, &Failure{Status: http.StatusUnprocessableEntity, Detail: "file: field required"})
	}

	format := backend.Format(req.Format)
	if !format.Valid() {
		return detail(c, &Failure{Status: http.StatusBadRequest, Detail: "Invalid format. Must be csv, json, or text"})
	}

	s.mu.Lock()
	body, fail := s.exports[format], s.exportFail
	s.mu.Unlock()

	if fail != nil {
		return detail(c, fail)
	}
	if body == nil {
		body = []byte(fmt.Sprintf("speaker report for %s (%s)\n", req.EventName, format))
	}
	return c.Blob(http.StatusOK, contentType(format), body)
}

func contentType(f backend.Format) string {
	switch f {
	case backend.FormatJSON:
		return echo.MIMEApplicationJSON
	case backend.FormatCSV:
		return "text/csv"
	}
	return echo.MIMETextPlain
}

// SampleResult returns a consistent result with two confirmed, two intended
// and one endorsed speaker.
func SampleResult(eventName, eventTitle string) backend.FilterResult {
	tag := backend.Text(eventName + " Confirmed")
	return backend.FilterResult{
		EventName:   eventName,
		EventTitle:  eventTitle,
		GeneratedAt: "2026-10-18T09:00:00",
		Summary: backend.Summary{
			TotalCount:     5,
			ConfirmedCount: 2,
			IntendedCount:  2,
			EndorsedCount:  1,
		},
		Confirmed: []backend.Speaker{
			{Name: "Ada Lovelace", Company: "Analytical Engines", Tag: tag},
			{Name: "Grace Hopper", Company: "Navy", Tag: tag},
		},
		Intended: []backend.Speaker{
			{
				Name: "Alan Turing", Company: "Bletchley", Region: "EMEA",
				RatingFlag: "Good option", AxelRating: "95", IRRating: "4", JelenaRating: "8",
				InSum: "Strong on model risk.", CallDate: "2025-09-12",
				JelenaComments: "Great speaker\nKnows the audience",
				AbstractTitle:  "Machines and Markets", ContentFitAnalysis: "Fits the AI track.",
				IREngagement: "Spoke at 2024 summit",
			},
			{Name: "Barbara Liskov", Company: "MIT", Region: "AMER", AxelRating: "92", RatingFlag: "Lower rating"},
		},
		Endorsed: []backend.Speaker{
			{Name: "Edsger Dijkstra", Company: "UT Austin", Region: "EMEA", AxelRating: "97", IRRating: "5"},
		},
	}
}
