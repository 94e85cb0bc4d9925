// Package backend provides the HTTP client and wire types for the external
// speaker categorization service.
package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Format is an export format accepted by the service.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Formats lists every supported export format.
var Formats = []Format{FormatCSV, FormatJSON, FormatText}

// Valid reports whether f is a supported export format.
func (f Format) Valid() bool {
	switch f {
	case FormatCSV, FormatJSON, FormatText:
		return true
	}
	return false
}

// ParseFormat converts s into a Format. Matching is case-insensitive.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("parse format %q: %w", s, ErrUnsupportedFormat)
	}
	return f, nil
}

// Category is one of the three partitions the service assigns a speaker to.
type Category string

const (
	Confirmed Category = "confirmed"
	Intended  Category = "intended"
	Endorsed  Category = "endorsed"
)

// Title returns the display name, e.g. "Confirmed".
func (c Category) Title() string {
	switch c {
	case Confirmed:
		return "Confirmed"
	case Intended:
		return "Intended"
	case Endorsed:
		return "Endorsed"
	}
	return string(c)
}

// Text is a display value that the service may send as a string, number,
// list of strings or null.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case '[':
		var items []Text
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		lines := make([]string, 0, len(items))
		for _, it := range items {
			if it != "" {
				lines = append(lines, string(it))
			}
		}
		*t = Text(strings.Join(lines, "\n"))
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*t = Text(strconv.FormatBool(b))
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("decode text value %s: %w", data, err)
		}
		*t = Text(strconv.FormatFloat(f, 'f', -1, 64))
	}
	return nil
}

func (t Text) String() string { return string(t) }

// Speaker is one categorized prospect. Confirmed records carry Tag; Intended
// and Endorsed records carry the rater fields and narratives.
type Speaker struct {
	Name               Text `json:"speaker_name"`
	Company            Text `json:"company"`
	Region             Text `json:"region"`
	RatingFlag         Text `json:"rating_flag"`
	AxelRating         Text `json:"axel_rating"`
	IRRating           Text `json:"ir_rating"`
	JelenaRating       Text `json:"jelena_rating"`
	Tag                Text `json:"tag"`
	InSum              Text `json:"in_sum"`
	CallDate           Text `json:"call_date"`
	FullNotes          Text `json:"full_notes"`
	JelenaComments     Text `json:"jelena_comments"`
	AbstractTitle      Text `json:"abstract_title"`
	FullAbstract       Text `json:"full_abstract"`
	ContentFitAnalysis Text `json:"content_fit_analysis"`
	IREngagement       Text `json:"ir_engagement"`

	// Category is stamped from the sequence the record arrived in.
	Category Category `json:"-"`
}

// Summary holds the aggregate counts of a FilterResult.
type Summary struct {
	TotalCount     int `json:"total_count"`
	ConfirmedCount int `json:"confirmed_count"`
	IntendedCount  int `json:"intended_count"`
	EndorsedCount  int `json:"endorsed_count"`
}

// FilterResult is the outcome of one filter request.
type FilterResult struct {
	EventName   string    `json:"event_name"`
	EventTitle  string    `json:"event_title"`
	GeneratedAt string    `json:"generated_at"`
	Summary     Summary   `json:"summary"`
	Confirmed   []Speaker `json:"confirmed_speakers"`
	Intended    []Speaker `json:"intended_speakers"`
	Endorsed    []Speaker `json:"endorsed_speakers"`
}

// Speakers returns the sequence for c.
func (r *FilterResult) Speakers(c Category) []Speaker {
	switch c {
	case Confirmed:
		return r.Confirmed
	case Intended:
		return r.Intended
	case Endorsed:
		return r.Endorsed
	}
	return nil
}

// Count returns the summary count for c.
func (r *FilterResult) Count(c Category) int {
	switch c {
	case Confirmed:
		return r.Summary.ConfirmedCount
	case Intended:
		return r.Summary.IntendedCount
	case Endorsed:
		return r.Summary.EndorsedCount
	}
	return 0
}

// Normalize stamps each record with the category of its sequence.
func (r *FilterResult) Normalize() {
	for _, c := range []Category{Confirmed, Intended, Endorsed} {
		list := r.Speakers(c)
		for i := range list {
			list[i].Category = c
		}
	}
}

// Validate checks that the summary agrees with the sequences.
func (r *FilterResult) Validate() error {
	s := r.Summary
	if s.TotalCount != s.ConfirmedCount+s.IntendedCount+s.EndorsedCount {
		return fmt.Errorf("inconsistent summary: total %d != %d + %d + %d",
			s.TotalCount, s.ConfirmedCount, s.IntendedCount, s.EndorsedCount)
	}
	for _, c := range []Category{Confirmed, Intended, Endorsed} {
		if n := len(r.Speakers(c)); n != r.Count(c) {
			return fmt.Errorf("inconsistent summary: %s count %d but %d records", c, r.Count(c), n)
		}
	}
	return nil
}

// Criteria scopes a filter or export request.
type Criteria struct {
	EventName  string
	EventTitle string
}

// Trimmed returns c with surrounding whitespace removed from both fields.
func (c Criteria) Trimmed() Criteria {
	return Criteria{
		EventName:  strings.TrimSpace(c.EventName),
		EventTitle: strings.TrimSpace(c.EventTitle),
	}
}

// ConnectionStatus is the decoded probe response. RecordCount and
// SampleColumns are only present on diagnostics endpoints.
type ConnectionStatus struct {
	Status        string   `json:"status"`
	Message       string   `json:"message,omitempty"`
	Timestamp     string   `json:"timestamp,omitempty"`
	RecordCount   *int     `json:"record_count,omitempty"`
	SampleColumns []string `json:"sample_columns,omitempty"`
}

// Preview is the upload-preview payload.
type Preview struct {
	RowCount    int              `json:"row_count"`
	ColumnCount int              `json:"column_count"`
	Columns     []string         `json:"columns"`
	SampleData  []map[string]any `json:"sample_data"`
	Message     string           `json:"message"`
}
