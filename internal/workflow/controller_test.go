package workflow

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkguldan/speakerfilter/internal/backend"
	"github.com/mkguldan/speakerfilter/internal/backend/backendtest"
	"github.com/mkguldan/speakerfilter/internal/dataset"
	"github.com/mkguldan/speakerfilter/internal/notify"
)

type filterCall struct {
	File     dataset.File
	Criteria backend.Criteria
}

type exportCall struct {
	Format   backend.Format
	File     dataset.File
	Criteria backend.Criteria
}

// fakeGateway records calls and returns canned responses.
type fakeGateway struct {
	mu        sync.Mutex
	result    backend.FilterResult
	filterErr error
	exportErr error
	body      string
	filters   []filterCall
	exports   []exportCall
}

func (g *fakeGateway) Filter(_ context.Context, f dataset.File, c backend.Criteria) (backend.FilterResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.filters = append(g.filters, filterCall{f, c})
	return g.result, g.filterErr
}

func (g *fakeGateway) Export(_ context.Context, format backend.Format, f dataset.File, c backend.Criteria) (io.ReadCloser, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.exports = append(g.exports, exportCall{format, f, c})
	if g.exportErr != nil {
		return nil, g.exportErr
	}
	return io.NopCloser(strings.NewReader(g.body)), nil
}

func (g *fakeGateway) filterCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.filters)
}

// recorder is a Notifier that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Push(sev notify.Severity, msg string) notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev := notify.Event{Severity: sev, Message: msg}
	r.events = append(r.events, ev)
	return ev
}

func (r *recorder) all() []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Event(nil), r.events...)
}

func (r *recorder) last(t *testing.T) notify.Event {
	t.Helper()
	evs := r.all()
	require.NotEmpty(t, evs, "expected a notification")
	return evs[len(evs)-1]
}

func writeCSV(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("a", size)), 0o644))
	return path
}

var fixedNow = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

func newController(t *testing.T, gw Gateway) (*Controller, *recorder, string) {
	t.Helper()
	dir := t.TempDir()
	notes := &recorder{}
	c := New(gw, notes, WithExportDir(dir), WithClock(func() time.Time { return fixedNow }))
	return c, notes, dir
}

func TestInitialState(t *testing.T) {
	c, notes, _ := newController(t, &fakeGateway{})
	snap := c.Snapshot()
	assert.Equal(t, Idle, snap.State)
	assert.Nil(t, snap.File)
	assert.Nil(t, snap.Result)
	assert.Empty(t, notes.all())
}

func TestSelectNotifiesAndMovesToFileReady(t *testing.T) {
	c, notes, dir := newController(t, &fakeGateway{})
	path := writeCSV(t, dir, "prospects.csv", 2<<20)

	f, err := c.Select(path)
	require.NoError(t, err)
	assert.Equal(t, "prospects.csv", f.Name)
	assert.Equal(t, FileReady, c.State())

	ev := notes.last(t)
	assert.Equal(t, notify.SeveritySuccess, ev.Severity)
	assert.Equal(t, `File "prospects.csv" ready to process!`, ev.Message)
}

func TestSelectInvalidKeepsSession(t *testing.T) {
	gw := &fakeGateway{}
	c, notes, dir := newController(t, gw)
	good := writeCSV(t, dir, "prospects.csv", 10)
	bad := writeCSV(t, dir, "prospects.xlsx", 10)

	_, err := c.Select(good)
	require.NoError(t, err)

	_, err = c.Select(bad)
	assert.ErrorIs(t, err, dataset.ErrInvalidFileType)

	snap := c.Snapshot()
	assert.Equal(t, FileReady, snap.State)
	require.NotNil(t, snap.File)
	assert.Equal(t, "prospects.csv", snap.File.Name)

	ev := notes.last(t)
	assert.Equal(t, notify.SeverityWarning, ev.Severity)
	assert.Equal(t, "Please upload a CSV file", ev.Message)
	assert.Zero(t, gw.filterCalls())
}

// Scenario A
func TestFilterSuccess(t *testing.T) {
	gw := &fakeGateway{result: backendtest.SampleResult("2511 Barclays", "")}
	c, notes, dir := newController(t, gw)
	_, err := c.Select(writeCSV(t, dir, "prospects.csv", 2<<20))
	require.NoError(t, err)

	result, err := c.SubmitFilter(context.Background(), backend.Criteria{EventName: "2511 Barclays", EventTitle: ""})
	require.NoError(t, err)

	assert.Equal(t, ResultsReady, c.State())
	assert.Equal(t, 5, result.Summary.TotalCount)
	assert.Equal(t, backend.Confirmed, result.Confirmed[0].Category)
	assert.Equal(t, "Speakers filtered successfully!", notes.last(t).Message)

	require.Len(t, gw.filters, 1)
	assert.Equal(t, backend.Criteria{EventName: "2511 Barclays"}, gw.filters[0].Criteria)
}

func TestFilterTrimsCriteria(t *testing.T) {
	gw := &fakeGateway{result: backendtest.SampleResult("x", "")}
	c, _, dir := newController(t, gw)
	_, err := c.Select(writeCSV(t, dir, "p.csv", 1))
	require.NoError(t, err)

	_, err = c.SubmitFilter(context.Background(), backend.Criteria{EventName: "  2511 Barclays\t", EventTitle: " AI "})
	require.NoError(t, err)
	assert.Equal(t, backend.Criteria{EventName: "2511 Barclays", EventTitle: "AI"}, gw.filters[0].Criteria)
	assert.Equal(t, backend.Criteria{EventName: "2511 Barclays", EventTitle: "AI"}, c.Snapshot().Criteria)
}

// Scenario B
func TestFilterEmptyEventName(t *testing.T) {
	gw := &fakeGateway{}
	c, notes, dir := newController(t, gw)
	_, err := c.Select(writeCSV(t, dir, "p.csv", 1))
	require.NoError(t, err)

	_, err = c.SubmitFilter(context.Background(), backend.Criteria{EventName: "   "})
	assert.ErrorIs(t, err, ErrEmptyEventName)
	assert.Zero(t, gw.filterCalls())
	assert.Equal(t, FileReady, c.State())
	assert.Equal(t, notify.SeverityWarning, notes.last(t).Severity)
}

func TestFilterWithoutFile(t *testing.T) {
	gw := &fakeGateway{}
	c, notes, _ := newController(t, gw)

	_, err := c.BeginFilter(backend.Criteria{EventName: "2511 Barclays"})
	assert.ErrorIs(t, err, ErrNoFileSelected)
	assert.Zero(t, gw.filterCalls())
	assert.Equal(t, Idle, c.State())

	ev := notes.last(t)
	assert.Equal(t, notify.SeverityWarning, ev.Severity)
	assert.Equal(t, "Please upload a CSV file first!", ev.Message)
}

// Scenario C
func TestFilterRejected(t *testing.T) {
	gw := &fakeGateway{filterErr: &backend.RejectedError{Status: 500, Detail: "Airtable credentials invalid"}}
	c, notes, dir := newController(t, gw)
	_, err := c.Select(writeCSV(t, dir, "prospects.csv", 1))
	require.NoError(t, err)
	before := len(notes.all())

	_, err = c.SubmitFilter(context.Background(), backend.Criteria{EventName: "2511 Barclays"})
	require.Error(t, err)

	snap := c.Snapshot()
	assert.Equal(t, FileReady, snap.State)
	require.NotNil(t, snap.File)
	assert.Equal(t, "prospects.csv", snap.File.Name)
	assert.Nil(t, snap.Result)

	evs := notes.all()
	require.Len(t, evs, before+1, "exactly one notification per failure")
	assert.Equal(t, notify.SeverityError, evs[len(evs)-1].Severity)
	assert.Equal(t, "Airtable credentials invalid", evs[len(evs)-1].Message)
}

func TestFilterUnavailableGenericMessage(t *testing.T) {
	gw := &fakeGateway{filterErr: backend.ErrUnavailable}
	c, notes, dir := newController(t, gw)
	_, err := c.Select(writeCSV(t, dir, "p.csv", 1))
	require.NoError(t, err)

	_, err = c.SubmitFilter(context.Background(), backend.Criteria{EventName: "x"})
	assert.ErrorIs(t, err, backend.ErrUnavailable)
	assert.Equal(t, MsgFilterFailed, notes.last(t).Message)
	assert.Equal(t, FileReady, c.State())
}

func TestFilterInconsistentResultRejected(t *testing.T) {
	bad := backendtest.SampleResult("x", "")
	bad.Summary.TotalCount = 7
	c, notes, dir := newController(t, &fakeGateway{result: bad})
	_, err := c.Select(writeCSV(t, dir, "p.csv", 1))
	require.NoError(t, err)

	_, err = c.SubmitFilter(context.Background(), backend.Criteria{EventName: "x"})
	var rejected *backend.RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Nil(t, c.Snapshot().Result)
	assert.Equal(t, notify.SeverityError, notes.last(t).Severity)
}

func TestFilterInFlightRejected(t *testing.T) {
	gw := &fakeGateway{result: backendtest.SampleResult("x", "")}
	c, _, dir := newController(t, gw)
	_, err := c.Select(writeCSV(t, dir, "p.csv", 1))
	require.NoError(t, err)

	req, err := c.BeginFilter(backend.Criteria{EventName: "x"})
	require.NoError(t, err)
	assert.Equal(t, Filtering, c.State())
	assert.False(t, c.State().Allows(ActionFilter))

	_, err = c.BeginFilter(backend.Criteria{EventName: "x"})
	assert.ErrorIs(t, err, ErrFilterInFlight)

	res, err := c.RunFilter(context.Background(), req)
	require.NoError(t, c.CompleteFilter(req, res, err))
	assert.Equal(t, ResultsReady, c.State())
	assert.Equal(t, 1, gw.filterCalls())
}

func TestRefilterReplacesResult(t *testing.T) {
	gw := &fakeGateway{result: backendtest.SampleResult("first", "")}
	c, _, dir := newController(t, gw)
	_, err := c.Select(writeCSV(t, dir, "p.csv", 1))
	require.NoError(t, err)

	_, err = c.SubmitFilter(context.Background(), backend.Criteria{EventName: "first"})
	require.NoError(t, err)

	second := backendtest.SampleResult("second", "")
	second.Endorsed = nil
	second.Summary.EndorsedCount = 0
	second.Summary.TotalCount = 4
	gw.result = second

	r, err := c.SubmitFilter(context.Background(), backend.Criteria{EventName: "second"})
	require.NoError(t, err)
	assert.Equal(t, "second", r.EventName)
	assert.Empty(t, r.Endorsed)
	assert.Equal(t, backend.Criteria{EventName: "second"}, c.Snapshot().Criteria)
}

func TestFailedRefilterDropsPriorResult(t *testing.T) {
	gw := &fakeGateway{result: backendtest.SampleResult("x", "")}
	c, _, dir := newController(t, gw)
	_, err := c.Select(writeCSV(t, dir, "p.csv", 1))
	require.NoError(t, err)
	_, err = c.SubmitFilter(context.Background(), backend.Criteria{EventName: "x"})
	require.NoError(t, err)

	gw.filterErr = backend.ErrUnavailable
	_, err = c.SubmitFilter(context.Background(), backend.Criteria{EventName: "x"})
	require.Error(t, err)

	snap := c.Snapshot()
	assert.Equal(t, FileReady, snap.State)
	assert.Nil(t, snap.Result)
}

func TestSelectDuringFilterDropsCompletion(t *testing.T) {
	gw := &fakeGateway{result: backendtest.SampleResult("x", "")}
	c, notes, dir := newController(t, gw)
	_, err := c.Select(writeCSV(t, dir, "old.csv", 1))
	require.NoError(t, err)

	req, err := c.BeginFilter(backend.Criteria{EventName: "x"})
	require.NoError(t, err)

	_, err = c.Select(writeCSV(t, dir, "new.csv", 1))
	require.NoError(t, err)
	before := len(notes.all())

	res, err := c.RunFilter(context.Background(), req)
	err = c.CompleteFilter(req, res, err)
	assert.ErrorIs(t, err, ErrSuperseded)

	snap := c.Snapshot()
	assert.Equal(t, FileReady, snap.State)
	assert.Equal(t, "new.csv", snap.File.Name)
	assert.Nil(t, snap.Result, "a result from another file must never be committed")
	assert.Len(t, notes.all(), before, "stale completion must not notify")
	assert.Zero(t, gw.filterCalls(), "a stale request must not reach the service")
}

// blockingGateway holds Filter until its context is cancelled and release is
// closed.
type blockingGateway struct {
	fakeGateway
	started chan struct{}
	release chan struct{}
}

func newBlockingGateway() *blockingGateway {
	return &blockingGateway{started: make(chan struct{}), release: make(chan struct{})}
}

func (g *blockingGateway) Filter(ctx context.Context, f dataset.File, c backend.Criteria) (backend.FilterResult, error) {
	g.fakeGateway.Filter(ctx, f, c)
	close(g.started)
	<-ctx.Done()
	<-g.release
	return backend.FilterResult{}, ctx.Err()
}

func TestSelectDuringFilterCancelsRequest(t *testing.T) {
	gw := newBlockingGateway()
	c, _, dir := newController(t, gw)
	_, err := c.Select(writeCSV(t, dir, "a.csv", 1))
	require.NoError(t, err)
	req, err := c.BeginFilter(backend.Criteria{EventName: "x"})
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		_, err := c.RunFilter(context.Background(), req)
		errc <- err
	}()
	<-gw.started

	_, err = c.Select(writeCSV(t, dir, "b.csv", 1))
	require.NoError(t, err)

	snap := c.Snapshot()
	assert.Equal(t, FileReady, snap.State)
	assert.True(t, snap.FilterRunning, "the cancelled call has not returned yet")
	_, err = c.BeginFilter(backend.Criteria{EventName: "x"})
	assert.ErrorIs(t, err, ErrFilterInFlight, "no second filter while the first is on the wire")

	close(gw.release)
	runErr := <-errc
	assert.ErrorIs(t, runErr, context.Canceled)
	assert.ErrorIs(t, c.CompleteFilter(req, backend.FilterResult{}, runErr), ErrSuperseded)
	assert.False(t, c.Snapshot().FilterRunning)

	req2, err := c.BeginFilter(backend.Criteria{EventName: "x"})
	require.NoError(t, err)
	assert.Equal(t, "b.csv", req2.File.Name)
	assert.Equal(t, 1, gw.filterCalls())
}

func TestClearDuringFilterCancelsRequest(t *testing.T) {
	gw := newBlockingGateway()
	close(gw.release)
	c, _, dir := newController(t, gw)
	_, err := c.Select(writeCSV(t, dir, "a.csv", 1))
	require.NoError(t, err)
	req, err := c.BeginFilter(backend.Criteria{EventName: "x"})
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		_, err := c.RunFilter(context.Background(), req)
		errc <- err
	}()
	<-gw.started

	require.True(t, c.Clear())
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("clear did not cancel the filter call")
	}
	assert.Equal(t, Idle, c.State())
}

func TestSelectDiscardsResults(t *testing.T) {
	gw := &fakeGateway{result: backendtest.SampleResult("x", "")}
	c, _, dir := newController(t, gw)
	_, err := c.Select(writeCSV(t, dir, "a.csv", 1))
	require.NoError(t, err)
	_, err = c.SubmitFilter(context.Background(), backend.Criteria{EventName: "x"})
	require.NoError(t, err)

	_, err = c.Select(writeCSV(t, dir, "b.csv", 1))
	require.NoError(t, err)

	snap := c.Snapshot()
	assert.Equal(t, FileReady, snap.State)
	assert.Nil(t, snap.Result)
	assert.Equal(t, "b.csv", snap.File.Name)
}

func TestClearIdempotent(t *testing.T) {
	gw := &fakeGateway{result: backendtest.SampleResult("x", "")}
	c, notes, dir := newController(t, gw)
	_, err := c.Select(writeCSV(t, dir, "a.csv", 1))
	require.NoError(t, err)
	_, err = c.SubmitFilter(context.Background(), backend.Criteria{EventName: "x"})
	require.NoError(t, err)

	assert.True(t, c.Clear())
	first := c.Snapshot()
	n := len(notes.all())

	assert.False(t, c.Clear())
	assert.Equal(t, first, c.Snapshot())
	assert.Equal(t, Idle, first.State)
	assert.Nil(t, first.File)
	assert.Nil(t, first.Result)
	assert.Len(t, notes.all(), n)
}

func TestClearDuringFilterDropsCompletion(t *testing.T) {
	gw := &fakeGateway{result: backendtest.SampleResult("x", "")}
	c, _, dir := newController(t, gw)
	_, err := c.Select(writeCSV(t, dir, "a.csv", 1))
	require.NoError(t, err)

	req, err := c.BeginFilter(backend.Criteria{EventName: "x"})
	require.NoError(t, err)
	c.Clear()

	res, err := c.RunFilter(context.Background(), req)
	assert.ErrorIs(t, c.CompleteFilter(req, res, err), ErrSuperseded)
	assert.Equal(t, Idle, c.State())
}

// Scenario D
func TestExportResendsOriginalFileAndCriteria(t *testing.T) {
	gw := &fakeGateway{result: backendtest.SampleResult("2511 Barclays", ""), body: `{"ok": true}`}
	c, notes, dir := newController(t, gw)
	_, err := c.Select(writeCSV(t, dir, "prospects.csv", 10))
	require.NoError(t, err)
	_, err = c.SubmitFilter(context.Background(), backend.Criteria{EventName: "2511 Barclays", EventTitle: "AI"})
	require.NoError(t, err)

	path, err := c.Export(context.Background(), backend.FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "speaker_report_2026-10-18T09-00-00.json"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"ok": true}`, string(data))

	require.Len(t, gw.exports, 1)
	call := gw.exports[0]
	assert.Equal(t, backend.FormatJSON, call.Format)
	assert.Equal(t, "prospects.csv", call.File.Name)
	assert.Equal(t, backend.Criteria{EventName: "2511 Barclays", EventTitle: "AI"}, call.Criteria)

	assert.Equal(t, ResultsReady, c.State(), "export must not change state")
	ev := notes.last(t)
	assert.Equal(t, notify.SeveritySuccess, ev.Severity)
	assert.Contains(t, ev.Message, "speaker_report_2026-10-18T09-00-00.json")
}

func TestExportWithoutResults(t *testing.T) {
	gw := &fakeGateway{}
	c, notes, dir := newController(t, gw)
	_, err := c.Select(writeCSV(t, dir, "p.csv", 1))
	require.NoError(t, err)

	_, err = c.Export(context.Background(), backend.FormatCSV)
	assert.ErrorIs(t, err, ErrNoResults)
	assert.Empty(t, gw.exports)
	assert.Equal(t, notify.SeverityWarning, notes.last(t).Severity)
}

func TestExportUnsupportedFormat(t *testing.T) {
	gw := &fakeGateway{result: backendtest.SampleResult("x", "")}
	c, _, dir := newController(t, gw)
	_, err := c.Select(writeCSV(t, dir, "p.csv", 1))
	require.NoError(t, err)
	_, err = c.SubmitFilter(context.Background(), backend.Criteria{EventName: "x"})
	require.NoError(t, err)

	_, err = c.Export(context.Background(), backend.Format("pdf"))
	assert.ErrorIs(t, err, backend.ErrUnsupportedFormat)
	assert.Empty(t, gw.exports)
}

func TestExportFailureWritesNothing(t *testing.T) {
	gw := &fakeGateway{result: backendtest.SampleResult("x", ""), exportErr: backend.ErrUnavailable}
	c, notes, dir := newController(t, gw)
	_, err := c.Select(writeCSV(t, dir, "p.csv", 1))
	require.NoError(t, err)
	_, err = c.SubmitFilter(context.Background(), backend.Criteria{EventName: "x"})
	require.NoError(t, err)

	_, err = c.Export(context.Background(), backend.FormatText)
	require.Error(t, err)

	matches, err := filepath.Glob(filepath.Join(dir, "speaker_report_*"))
	require.NoError(t, err)
	assert.Empty(t, matches)

	ev := notes.last(t)
	assert.Equal(t, notify.SeverityError, ev.Severity)
	assert.Equal(t, MsgExportFailed, ev.Message)
	assert.Equal(t, ResultsReady, c.State())
}

func TestExportAgainstBackend(t *testing.T) {
	srv := backendtest.New(t)
	srv.SetExport(backend.FormatCSV, []byte("Category,Speaker Name\nConfirmed,Ada\n"))
	client, err := backend.New(srv.URL)
	require.NoError(t, err)

	c, _, dir := newController(t, client)
	_, err = c.Select(writeCSV(t, dir, "prospects.csv", 64))
	require.NoError(t, err)
	_, err = c.SubmitFilter(context.Background(), backend.Criteria{EventName: "2511 Barclays"})
	require.NoError(t, err)

	path, err := c.Export(context.Background(), backend.FormatCSV)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Category,Speaker Name\nConfirmed,Ada\n", string(data))

	filters := srv.RequestsTo("/api/filter-speakers-csv")
	exports := srv.RequestsTo("/api/export-csv/csv")
	require.Len(t, filters, 1)
	require.Len(t, exports, 1)
	assert.Equal(t, filters[0].FileBody, exports[0].FileBody)
	assert.Equal(t, "2511 Barclays", exports[0].EventName)
}

func TestStateActions(t *testing.T) {
	assert.Equal(t, []Action{ActionSelect}, Idle.Actions())
	assert.True(t, FileReady.Allows(ActionFilter))
	assert.False(t, FileReady.Allows(ActionExport))
	assert.False(t, Filtering.Allows(ActionFilter))
	assert.True(t, Filtering.Allows(ActionSelect))
	assert.True(t, ResultsReady.Allows(ActionExport))
	assert.Equal(t, "results-ready", ResultsReady.String())
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		err     error
		wantSev notify.Severity
		wantMsg string
	}{
		{&backend.RejectedError{Status: 400, Detail: "bad event"}, notify.SeverityError, "bad event"},
		{backend.ErrUnavailable, notify.SeverityError, "generic"},
		{dataset.ErrFileTooLarge, notify.SeverityWarning, "File size exceeds 1GB limit"},
		{ErrEmptyEventName, notify.SeverityWarning, "Please enter an event name"},
		{errors.New("surprise"), notify.SeverityError, "generic"},
	}
	for _, tt := range tests {
		sev, msg := Describe(tt.err, "generic")
		assert.Equal(t, tt.wantSev, sev, tt.err.Error())
		assert.Equal(t, tt.wantMsg, msg, tt.err.Error())
	}
}
