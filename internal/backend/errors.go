package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

var (
	// ErrUnavailable means no usable response reached the client.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrUnsupportedFormat is returned for export formats other than csv, json and text.
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

// RejectedError is a structured failure reported by the service.
type RejectedError struct {
	Status int
	Detail string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("backend rejected request (%d): %s", e.Status, e.Detail)
}

// unavailable maps a transport failure to ErrUnavailable with a short reason.
// Context errors stay inspectable; other transport details are dropped.
func unavailable(ctx context.Context, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: request timed out: %w", ErrUnavailable, context.DeadlineExceeded)
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return fmt.Errorf("%w: request cancelled: %w", ErrUnavailable, context.Canceled)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: request timed out", ErrUnavailable)
	default:
		return fmt.Errorf("%w: no response from server", ErrUnavailable)
	}
}

// errorDetail extracts a human-readable message from an error body. FastAPI
// sends {"detail": ...}; echo-style services send {"message": ...}.
func errorDetail(status int, body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if d := detailText(payload.Detail); d != "" {
			return d
		}
		if payload.Message != "" {
			return payload.Message
		}
	}

	if s := strings.TrimSpace(string(body)); s != "" && !strings.HasPrefix(s, "<") && !strings.HasPrefix(s, "{") && len(s) <= 300 {
		return s
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", status)
}

// detailText handles both a plain string detail and FastAPI's validation
// list of {"loc": [...], "msg": "..."} entries.
func detailText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.TrimSpace(s) == "" {
			return ""
		}
		return s
	}

	var items []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return ""
	}
	msgs := make([]string, 0, len(items))
	for _, it := range items {
		if it.Msg == "" {
			continue
		}
		if n := len(it.Loc); n > 0 {
			msgs = append(msgs, fmt.Sprintf("%v: %s", it.Loc[n-1], it.Msg))
		} else {
			msgs = append(msgs, it.Msg)
		}
	}
	return strings.Join(msgs, "; ")
}
