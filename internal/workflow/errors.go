package workflow

import (
	"errors"

	"github.com/mkguldan/speakerfilter/internal/backend"
	"github.com/mkguldan/speakerfilter/internal/dataset"
	"github.com/mkguldan/speakerfilter/internal/notify"
)

var (
	ErrNoFileSelected = errors.New("no file selected")
	ErrEmptyEventName = errors.New("event name is required")
	ErrFilterInFlight = errors.New("filter already in progress")
	ErrNoResults      = errors.New("no results to export")
	// ErrSuperseded is returned when a filter completes after the session
	// moved on (new file, clear, or a newer filter).
	ErrSuperseded = errors.New("filter request superseded")
)

// Generic messages used when the service gave no detail.
const (
	MsgFilterFailed  = "Error filtering speakers"
	MsgExportFailed  = "Error exporting data"
	MsgConnectFailed = "Failed to connect to backend"
)

// Describe maps err to the severity and text shown to the operator. Local
// validation failures are warnings; service failures are errors, showing the
// service's detail when it sent one and generic otherwise.
func Describe(err error, generic string) (notify.Severity, string) {
	var rejected *backend.RejectedError
	switch {
	case errors.As(err, &rejected) && rejected.Detail != "":
		return notify.SeverityError, rejected.Detail
	case errors.Is(err, backend.ErrUnavailable):
		return notify.SeverityError, generic
	case errors.Is(err, dataset.ErrInvalidFileType):
		return notify.SeverityWarning, "Please upload a CSV file"
	case errors.Is(err, dataset.ErrFileTooLarge):
		return notify.SeverityWarning, "File size exceeds 1GB limit"
	case errors.Is(err, dataset.ErrNotRegularFile):
		return notify.SeverityWarning, "Please choose a file, not a folder"
	case errors.Is(err, dataset.ErrUnreadable):
		return notify.SeverityWarning, "The selected file cannot be read"
	case errors.Is(err, ErrNoFileSelected):
		return notify.SeverityWarning, "Please upload a CSV file first!"
	case errors.Is(err, ErrEmptyEventName):
		return notify.SeverityWarning, "Please enter an event name"
	case errors.Is(err, ErrFilterInFlight):
		return notify.SeverityWarning, "Filtering is already in progress"
	case errors.Is(err, ErrNoResults):
		return notify.SeverityWarning, "Nothing to export yet, run a filter first"
	case errors.Is(err, backend.ErrUnsupportedFormat):
		return notify.SeverityWarning, "Export format must be csv, json or text"
	}
	return notify.SeverityError, generic
}
