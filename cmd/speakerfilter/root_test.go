package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkguldan/speakerfilter/internal/backend"
	"github.com/mkguldan/speakerfilter/internal/backend/backendtest"
)

// executeCommand runs a fresh root command and captures its output.
func executeCommand(t *testing.T, args ...string) (stdout string, stderr string, err error) {
	t.Helper()
	stdoutBuf := new(bytes.Buffer)
	stderrBuf := new(bytes.Buffer)
	root := newRootCmd()
	root.SetOut(stdoutBuf)
	root.SetErr(stderrBuf)
	root.SetArgs(args)

	err = root.Execute()
	return stdoutBuf.String(), stderrBuf.String(), err
}

// isolate keeps the developer's config and environment out of the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("API_URL", "")
	t.Setenv("SPEAKERFILTER_BASE_URL", "")
	t.Setenv("SPEAKERFILTER_EXPORT_DIR", "")
	t.Setenv("SPEAKERFILTER_VERBOSE", "")
}

func writeCSV(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("Speaker Name,Company,Workshops\nAda Lovelace,Analytical Engines,2511 Barclays Confirmed\n"), 0o644))
	return path
}

func TestRootCmdHelp(t *testing.T) {
	stdout, stderr, err := executeCommand(t, "--help")

	require.NoError(t, err)
	assert.Empty(t, stderr)
	for _, want := range []string{"Usage:", "filter", "probe", "preview", "config", "tui", "--base-url", "--config", "--verbose"} {
		assert.Contains(t, stdout, want)
	}
}

func TestRootCmdVersion(t *testing.T) {
	originalVersion := version
	version = "test-1.2.3"
	defer func() { version = originalVersion }()

	stdout, _, err := executeCommand(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "speakerfilter version test-1.2.3")
}

func TestConfigCommand(t *testing.T) {
	isolate(t)

	stdout, _, err := executeCommand(t, "config", "--base-url", "http://example.com:9000", "--export-dir", "/tmp/reports")
	require.NoError(t, err)
	assert.Contains(t, stdout, "base_url: http://example.com:9000")
	assert.Contains(t, stdout, "export_dir: /tmp/reports")
	assert.Contains(t, stdout, "probe_path: /health")
	assert.NotContains(t, stdout, "# loaded from")
}

func TestConfigCommandWithFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "speakerfilter.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: https://speakers.example.com\n"), 0o644))

	stdout, _, err := executeCommand(t, "config", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "# loaded from "+path)
	assert.Contains(t, stdout, "base_url: https://speakers.example.com")
}

func TestConfigCommandRejectsBadURL(t *testing.T) {
	isolate(t)

	_, _, err := executeCommand(t, "config", "--base-url", "localhost:8000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid base_url")
}

func TestProbeCommand(t *testing.T) {
	isolate(t)
	srv := backendtest.New(t)

	stdout, _, err := executeCommand(t, "probe", "--base-url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Connected to "+srv.URL)
	assert.Contains(t, stdout, "healthy")
}

func TestProbeCommandUnavailable(t *testing.T) {
	isolate(t)
	srv := backendtest.New(t)
	srv.Close()

	_, _, err := executeCommand(t, "probe", "--base-url", srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrUnavailable)
	assert.Contains(t, err.Error(), "Failed to connect to backend")
}

func TestFilterCommand(t *testing.T) {
	isolate(t)
	srv := backendtest.New(t)
	out := t.TempDir()

	stdout, stderr, err := executeCommand(t, "filter",
		"--base-url", srv.URL,
		"--file", writeCSV(t, "prospects.csv"),
		"--event", "2511 Barclays",
		"--title", "Global Financial Services Conference",
		"--export", "json,csv",
		"--out", out,
	)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Total: 5  Confirmed: 2  Intended: 2  Endorsed: 1")
	assert.Contains(t, stdout, "Confirmed (2)")
	assert.Contains(t, stdout, "1. Ada Lovelace")
	assert.Contains(t, stdout, "Tag: 2511 Barclays Confirmed")
	assert.Contains(t, stdout, "Intended (2)")
	assert.Contains(t, stdout, "Axel: 95")
	assert.Contains(t, stdout, "1. Edsger Dijkstra")
	assert.NotContains(t, stdout, "Content Fit Analysis")

	assert.Contains(t, stderr, "Speakers filtered successfully!")
	assert.Contains(t, stderr, "Export complete! Your JSON report was saved to speaker_report_")
	assert.Contains(t, stderr, "Export complete! Your CSV report was saved to speaker_report_")

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	reqs := srv.RequestsTo("/api/filter-speakers-csv")
	require.Len(t, reqs, 1)
	assert.Equal(t, "Global Financial Services Conference", reqs[0].EventTitle)
	assert.Equal(t, "prospects.csv", reqs[0].FileName)
}

func TestFilterCommandDetails(t *testing.T) {
	isolate(t)
	srv := backendtest.New(t)

	stdout, _, err := executeCommand(t, "filter", "--base-url", srv.URL,
		"--file", writeCSV(t, "prospects.csv"), "--event", "2511 Barclays", "--details")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Content Fit Analysis:")
	assert.Contains(t, stdout, "Fits the AI track.")
}

func TestFilterCommandJSON(t *testing.T) {
	isolate(t)
	srv := backendtest.New(t)

	stdout, _, err := executeCommand(t, "filter", "--base-url", srv.URL,
		"--file", writeCSV(t, "prospects.csv"), "--event", "2511 Barclays", "--json")
	require.NoError(t, err)

	var got backend.FilterResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, 5, got.Summary.TotalCount)
	assert.Len(t, got.Intended, 2)
}

func TestFilterCommandRequiresEvent(t *testing.T) {
	isolate(t)

	_, _, err := executeCommand(t, "filter", "--file", writeCSV(t, "prospects.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"event"`)
}

func TestFilterCommandRejected(t *testing.T) {
	isolate(t)
	srv := backendtest.New(t)
	srv.FailFilter(400, "CSV must contain a 'Speaker Name' column")

	_, _, err := executeCommand(t, "filter", "--base-url", srv.URL,
		"--file", writeCSV(t, "prospects.csv"), "--event", "2511 Barclays")
	require.Error(t, err)
	assert.EqualError(t, err, "CSV must contain a 'Speaker Name' column")

	var rejected *backend.RejectedError
	assert.ErrorAs(t, err, &rejected)
}

func TestFilterCommandBadFormat(t *testing.T) {
	isolate(t)
	srv := backendtest.New(t)

	_, _, err := executeCommand(t, "filter", "--base-url", srv.URL,
		"--file", writeCSV(t, "prospects.csv"), "--event", "2511 Barclays", "--export", "pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrUnsupportedFormat)
	assert.Empty(t, srv.Requests(), "nothing should be sent for a bad format")
}

func TestFilterCommandRejectsNonCSV(t *testing.T) {
	isolate(t)
	srv := backendtest.New(t)

	_, _, err := executeCommand(t, "filter", "--base-url", srv.URL,
		"--file", writeCSV(t, "prospects.xlsx"), "--event", "2511 Barclays")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Please upload a CSV file")
	assert.Empty(t, srv.Requests())
}

func TestPreviewCommand(t *testing.T) {
	isolate(t)
	srv := backendtest.New(t)

	stdout, _, err := executeCommand(t, "preview", "--base-url", srv.URL, "--file", writeCSV(t, "prospects.csv"))
	require.NoError(t, err)
	assert.Contains(t, stdout, "prospects.csv")
	assert.Contains(t, stdout, "Rows: 5  Columns: 3")
	assert.Contains(t, stdout, "Speaker Name, Company, Workshops")
}

func TestTUIRequiresTerminal(t *testing.T) {
	isolate(t)

	_, _, err := executeCommand(t, "tui")
	assert.ErrorIs(t, err, errNoTerminal)
}

func TestParseFormats(t *testing.T) {
	got, err := parseFormats([]string{"JSON", "csv", "json"})
	require.NoError(t, err)
	assert.Equal(t, []backend.Format{backend.FormatJSON, backend.FormatCSV}, got)

	got, err = parseFormats([]string{"all"})
	require.NoError(t, err)
	assert.Equal(t, backend.Formats, got)

	got, err = parseFormats(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
