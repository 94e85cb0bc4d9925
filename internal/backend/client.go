package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mkguldan/speakerfilter/internal/dataset"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:8000"

// DefaultProbePath is the health endpoint probed by Probe.
const DefaultProbePath = "/health"

const (
	pathPreview = "/api/upload-csv"
	pathFilter  = "/api/filter-speakers-csv"
	pathExport  = "/api/export-csv/"

	maxErrorBody = 64 << 10
)

// Client talks to the categorization service over HTTP. A Client is safe for
// concurrent use.
type Client struct {
	base           *url.URL
	http           *http.Client
	probePath      string
	probeTimeout   time.Duration
	requestTimeout time.Duration
	log            *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithProbePath sets the endpoint used by Probe.
func WithProbePath(p string) Option {
	return func(c *Client) {
		if p != "" {
			c.probePath = p
		}
	}
}

// WithTimeouts bounds probe and upload requests. Zero disables a bound.
func WithTimeouts(probe, request time.Duration) Option {
	return func(c *Client) {
		c.probeTimeout = probe
		c.requestTimeout = request
	}
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("parse base url: %q is not an absolute http(s) URL", baseURL)
	}

	c := &Client{
		base:      u,
		http:      &http.Client{},
		probePath: DefaultProbePath,
		log:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the service address.
func (c *Client) BaseURL() string { return c.base.String() }

// Probe checks that the service is reachable.
func (c *Client) Probe(ctx context.Context) (ConnectionStatus, error) {
	ctx, cancel := withTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(c.probePath, nil), nil)
	if err != nil {
		return ConnectionStatus{}, fmt.Errorf("build probe request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.send(req)
	if err != nil {
		return ConnectionStatus{}, err
	}

	var status ConnectionStatus
	if err := decode(ctx, resp, &status); err != nil {
		return ConnectionStatus{}, err
	}
	if status.Status == "" {
		status.Status = "ok"
	}
	return status, nil
}

// Preview uploads file and returns the service's summary of it.
func (c *Client) Preview(ctx context.Context, file dataset.File) (Preview, error) {
	ctx, cancel := withTimeout(ctx, c.requestTimeout)
	defer cancel()

	resp, err := c.upload(ctx, c.endpoint(pathPreview, nil), file)
	if err != nil {
		return Preview{}, err
	}

	var p Preview
	if err := decode(ctx, resp, &p); err != nil {
		return Preview{}, err
	}
	return p, nil
}

// Filter sends file and criteria and returns the categorized result.
func (c *Client) Filter(ctx context.Context, file dataset.File, criteria Criteria) (FilterResult, error) {
	ctx, cancel := withTimeout(ctx, c.requestTimeout)
	defer cancel()

	resp, err := c.upload(ctx, c.endpoint(pathFilter, criteriaQuery(criteria)), file)
	if err != nil {
		return FilterResult{}, err
	}

	var result FilterResult
	if err := decode(ctx, resp, &result); err != nil {
		return FilterResult{}, err
	}
	if err := result.Validate(); err != nil {
		return FilterResult{}, &RejectedError{Status: resp.StatusCode, Detail: err.Error()}
	}
	result.Normalize()
	return result, nil
}

// Export re-sends file and criteria and returns the report body in format.
// The caller must close the returned reader.
func (c *Client) Export(ctx context.Context, format Format, file dataset.File, criteria Criteria) (io.ReadCloser, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("export %q: %w", format, ErrUnsupportedFormat)
	}

	ctx, cancel := withTimeout(ctx, c.requestTimeout)
	resp, err := c.upload(ctx, c.endpoint(pathExport+string(format), criteriaQuery(criteria)), file)
	if err != nil {
		cancel()
		return nil, err
	}
	return &exportBody{body: resp.Body, ctx: ctx, cancel: cancel}, nil
}

func (c *Client) endpoint(p string, query url.Values) string {
	u := c.base.JoinPath(p)
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func criteriaQuery(criteria Criteria) url.Values {
	return url.Values{
		"event_name":  {criteria.EventName},
		"event_title": {criteria.EventTitle},
	}
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// upload streams file as the multipart field "file" without buffering it.
func (c *Client) upload(ctx context.Context, target string, file dataset.File) (*http.Response, error) {
	src, err := file.Open()
	if err != nil {
		return nil, err
	}

	contentType := file.MimeHint
	if contentType == "" {
		contentType = "text/csv"
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		defer src.Close()
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(file.Name)))
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		if err == nil {
			_, err = io.Copy(part, src)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.send(req)
}

// send performs req and converts failures into ErrUnavailable or *RejectedError.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.log.Warn("backend request failed",
			"method", req.Method, "path", req.URL.Path, "request_id", reqID,
			"elapsed", elapsed, "err", err)
		return nil, unavailable(req.Context(), err)
	}

	c.log.Debug("backend request",
		"method", req.Method, "path", req.URL.Path, "request_id", reqID,
		"status", resp.StatusCode, "elapsed", elapsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &RejectedError{Status: resp.StatusCode, Detail: errorDetail(resp.StatusCode, body)}
	}
	return resp, nil
}

// decode reads a JSON body into v. Malformed JSON is the server's fault;
// an interrupted read is not.
func decode(ctx context.Context, resp *http.Response, v any) error {
	defer resp.Body.Close()

	err := json.NewDecoder(resp.Body).Decode(v)
	if err == nil {
		return nil
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.EOF) {
		return &RejectedError{Status: resp.StatusCode, Detail: "invalid response from server"}
	}
	return unavailable(ctx, err)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// exportBody releases the request context when closed and reports an
// interrupted download as ErrUnavailable.
type exportBody struct {
	body   io.ReadCloser
	ctx    context.Context
	cancel context.CancelFunc
}

func (b *exportBody) Read(p []byte) (int, error) {
	n, err := b.body.Read(p)
	if err != nil && err != io.EOF {
		err = unavailable(b.ctx, err)
	}
	return n, err
}

func (b *exportBody) Close() error {
	err := b.body.Close()
	b.cancel()
	return err
}
