package app

import (
	"github.com/mkguldan/speakerfilter/internal/backend"
	"github.com/mkguldan/speakerfilter/internal/notify"
	"github.com/mkguldan/speakerfilter/internal/workflow"
)

// ProbeResultMsg carries the outcome of a connection check.
type ProbeResultMsg struct {
	Status backend.ConnectionStatus
	Err    error
}

// FilterDoneMsg carries the response to a filter request.
type FilterDoneMsg struct {
	Req    workflow.FilterRequest
	Result backend.FilterResult
	Err    error
}

// ExportDoneMsg carries the outcome of an export. Path is the saved report.
type ExportDoneMsg struct {
	Req  workflow.ExportRequest
	Path string
	Err  error
}

// PreviewDoneMsg carries the upload preview for the selected file.
type PreviewDoneMsg struct {
	File    string
	Preview backend.Preview
	Err     error
}

// NotificationMsg wraps an event read from the notification channel.
type NotificationMsg struct {
	Event notify.Event
}

// notificationExpiredMsg fires when an event's display time is up.
type notificationExpiredMsg struct {
	ID string
}
