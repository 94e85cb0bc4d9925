// Package workflow owns the operator session: the selected file, the filter
// criteria and the current result, and the transitions between them.
//
// A Controller moves through Idle, FileReady, Filtering and ResultsReady.
// Remote calls are split into Begin, Run and Complete steps so an event loop
// can run the network call off its own goroutine; the Submit/Export helpers
// chain the three for headless callers.
package workflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mkguldan/speakerfilter/internal/backend"
	"github.com/mkguldan/speakerfilter/internal/dataset"
	"github.com/mkguldan/speakerfilter/internal/notify"
	"github.com/mkguldan/speakerfilter/internal/results"
)

// Gateway is the remote categorization service.
type Gateway interface {
	Filter(ctx context.Context, file dataset.File, criteria backend.Criteria) (backend.FilterResult, error)
	Export(ctx context.Context, format backend.Format, file dataset.File, criteria backend.Criteria) (io.ReadCloser, error)
}

// Notifier receives operator-facing events.
type Notifier interface {
	Push(sev notify.Severity, message string) notify.Event
}

// Snapshot is a read-only copy of the session for rendering. Result is shared
// and must not be modified.
type Snapshot struct {
	State    State
	File     *dataset.File
	Criteria backend.Criteria
	Result   *backend.FilterResult
	// FilterRunning is set while a filter call is on the wire, including a
	// superseded one that is still unwinding.
	FilterRunning bool
}

// FilterRequest is the token returned by BeginFilter.
type FilterRequest struct {
	File     dataset.File
	Criteria backend.Criteria
	gen      uint64
}

// ExportRequest carries what an export re-sends: the original file and the
// criteria of the displayed result.
type ExportRequest struct {
	Format   backend.Format
	File     dataset.File
	Criteria backend.Criteria
}

// Controller is the session state machine. It is safe for concurrent use.
type Controller struct {
	gw        Gateway
	notes     Notifier
	log       *slog.Logger
	exportDir string
	now       func() time.Time

	mu       sync.Mutex
	state    State
	file     *dataset.File
	criteria backend.Criteria
	result   *backend.FilterResult
	gen      uint64
	running  *filterRun
}

// filterRun is the filter call currently on the wire.
type filterRun struct {
	gen    uint64
	cancel context.CancelFunc
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the transition logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithExportDir sets where exported reports are saved.
func WithExportDir(dir string) Option {
	return func(c *Controller) { c.exportDir = dir }
}

// WithClock overrides time.Now for report names.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// New creates an idle controller.
func New(gw Gateway, notes Notifier, opts ...Option) *Controller {
	c := &Controller{
		gw:        gw,
		notes:     notes,
		log:       slog.New(slog.DiscardHandler),
		exportDir: ".",
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns the current session.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{State: c.state, Criteria: c.criteria, Result: c.result, FilterRunning: c.running != nil}
	if c.file != nil {
		f := *c.file
		s.File = &f
	}
	return s
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Select validates path and makes it the active file. Any result for the
// previous file is discarded and an outstanding filter is cancelled. On
// failure the session is unchanged.
func (c *Controller) Select(path string) (dataset.File, error) {
	f, err := dataset.Select(path)
	if err != nil {
		c.fail(err, MsgFilterFailed)
		return dataset.File{}, err
	}

	c.mu.Lock()
	from := c.state
	c.file = &f
	c.result = nil
	c.criteria = backend.Criteria{}
	c.gen++
	c.state = FileReady
	c.cancelRunning()
	c.mu.Unlock()

	c.log.Debug("file selected", "name", f.Name, "size", f.Size, "from", from)
	c.notes.Push(notify.SeveritySuccess, fmt.Sprintf("File %q ready to process!", f.Name))
	return f, nil
}

// Clear discards the file and any result and cancels an outstanding filter.
// It reports whether anything was cleared; calling it when already idle is a
// no-op.
func (c *Controller) Clear() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Idle && c.file == nil {
		return false
	}
	c.log.Debug("session cleared", "from", c.state)
	c.file = nil
	c.result = nil
	c.criteria = backend.Criteria{}
	c.gen++
	c.state = Idle
	c.cancelRunning()
	return true
}

// cancelRunning aborts the filter call on the wire, if any. The run stays
// registered until RunFilter returns so no second call can start meanwhile.
// c.mu must be held.
func (c *Controller) cancelRunning() {
	if c.running != nil {
		c.log.Debug("filter cancelled", "gen", c.running.gen)
		c.running.cancel()
	}
}

// BeginFilter validates criteria against the session and moves to Filtering.
// The prior result is dropped so a failed filter never shows stale data. It
// fails with ErrFilterInFlight while any filter call, current or cancelled,
// has not yet returned.
func (c *Controller) BeginFilter(criteria backend.Criteria) (FilterRequest, error) {
	criteria = criteria.Trimmed()

	c.mu.Lock()
	var err error
	switch {
	case c.state == Filtering || c.running != nil:
		err = ErrFilterInFlight
	case c.file == nil:
		err = ErrNoFileSelected
	case criteria.EventName == "":
		err = ErrEmptyEventName
	}
	if err != nil {
		c.mu.Unlock()
		c.fail(err, MsgFilterFailed)
		return FilterRequest{}, err
	}

	c.gen++
	req := FilterRequest{File: *c.file, Criteria: criteria, gen: c.gen}
	c.state = Filtering
	c.result = nil
	c.criteria = criteria
	c.mu.Unlock()

	c.log.Debug("filter started", "file", req.File.Name, "event", criteria.EventName)
	return req, nil
}

// RunFilter performs the remote call for req. The call is cancelled when the
// session moves on; a request that is already stale returns ErrSuperseded
// without contacting the service.
func (c *Controller) RunFilter(ctx context.Context, req FilterRequest) (backend.FilterResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if req.gen != c.gen || c.state != Filtering || c.running != nil {
		c.mu.Unlock()
		return backend.FilterResult{}, ErrSuperseded
	}
	run := &filterRun{gen: req.gen, cancel: cancel}
	c.running = run
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.running == run {
			c.running = nil
		}
		c.mu.Unlock()
	}()
	return c.gw.Filter(ctx, req.File, req.Criteria)
}

// CompleteFilter commits the outcome of req. A completion for a request the
// session has moved past returns ErrSuperseded and changes nothing.
func (c *Controller) CompleteFilter(req FilterRequest, result backend.FilterResult, err error) error {
	if err == nil {
		if verr := result.Validate(); verr != nil {
			err = &backend.RejectedError{Detail: verr.Error()}
		}
	}

	c.mu.Lock()
	if req.gen != c.gen || c.state != Filtering {
		c.mu.Unlock()
		c.log.Debug("stale filter completion dropped", "file", req.File.Name)
		return ErrSuperseded
	}

	if err != nil {
		c.state = FileReady
		c.mu.Unlock()
		c.log.Warn("filter failed", "file", req.File.Name, "err", err)
		c.fail(err, MsgFilterFailed)
		return err
	}

	result.Normalize()
	c.result = &result
	c.state = ResultsReady
	c.mu.Unlock()

	c.log.Info("filter complete", "file", req.File.Name, "event", req.Criteria.EventName,
		"total", result.Summary.TotalCount)
	c.notes.Push(notify.SeveritySuccess, "Speakers filtered successfully!")
	return nil
}

// SubmitFilter runs a whole filter cycle and returns the committed result.
func (c *Controller) SubmitFilter(ctx context.Context, criteria backend.Criteria) (*backend.FilterResult, error) {
	req, err := c.BeginFilter(criteria)
	if err != nil {
		return nil, err
	}
	result, err := c.RunFilter(ctx, req)
	if err := c.CompleteFilter(req, result, err); err != nil {
		return nil, err
	}
	return c.Snapshot().Result, nil
}

// BeginExport checks that a result is displayed and returns the file and
// criteria it was derived from. Exports do not change state.
func (c *Controller) BeginExport(format backend.Format) (ExportRequest, error) {
	var err error
	c.mu.Lock()
	switch {
	case !format.Valid():
		err = fmt.Errorf("export %q: %w", format, backend.ErrUnsupportedFormat)
	case c.state != ResultsReady || c.result == nil || c.file == nil:
		err = ErrNoResults
	}
	if err != nil {
		c.mu.Unlock()
		c.fail(err, MsgExportFailed)
		return ExportRequest{}, err
	}
	req := ExportRequest{Format: format, File: *c.file, Criteria: c.criteria}
	c.mu.Unlock()

	c.log.Debug("export started", "format", format, "file", req.File.Name)
	return req, nil
}

// RunExport re-sends the file and criteria and saves the response. The report
// only appears on disk once fully received.
func (c *Controller) RunExport(ctx context.Context, req ExportRequest) (string, error) {
	body, err := c.gw.Export(ctx, req.Format, req.File, req.Criteria)
	if err != nil {
		return "", err
	}
	defer body.Close()

	return results.Save(c.exportDir, req.Format, body, c.now())
}

// CompleteExport reports the outcome of an export.
func (c *Controller) CompleteExport(req ExportRequest, path string, err error) error {
	if err != nil {
		c.log.Warn("export failed", "format", req.Format, "err", err)
		c.fail(err, MsgExportFailed)
		return err
	}
	c.log.Info("export saved", "format", req.Format, "path", path)
	c.notes.Push(notify.SeveritySuccess,
		fmt.Sprintf("Export complete! Your %s report was saved to %s", strings.ToUpper(string(req.Format)), filepath.Base(path)))
	return nil
}

// Export runs a whole export cycle and returns the saved path.
func (c *Controller) Export(ctx context.Context, format backend.Format) (string, error) {
	req, err := c.BeginExport(format)
	if err != nil {
		return "", err
	}
	path, err := c.RunExport(ctx, req)
	if err := c.CompleteExport(req, path, err); err != nil {
		return "", err
	}
	return path, nil
}

func (c *Controller) fail(err error, generic string) {
	sev, msg := Describe(err, generic)
	c.notes.Push(sev, msg)
}
