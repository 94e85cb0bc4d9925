package results

import (
	"fmt"

	"github.com/mkguldan/speakerfilter/internal/backend"
)

// Field is one labelled value of a record.
type Field struct {
	Label string
	Value string
}

// Detailed reports whether records of c carry ratings and narratives.
// Confirmed records only carry a tag.
func Detailed(c backend.Category) bool {
	return c == backend.Intended || c == backend.Endorsed
}

// Title returns the record heading, e.g. "1. Ada Lovelace".
func Title(pos int, s backend.Speaker) string {
	name := s.Name.String()
	if name == "" {
		name = "Unknown"
	}
	return fmt.Sprintf("%d. %s", pos, name)
}

// Headline returns the fields shown for every record.
func Headline(s backend.Speaker) []Field {
	return nonEmpty(
		Field{"Rating", s.RatingFlag.String()},
		Field{"Company", s.Company.String()},
		Field{"Region", s.Region.String()},
	)
}

// Badges returns the short chips under the headline, chosen by category.
func Badges(s backend.Speaker) []Field {
	switch s.Category {
	case backend.Confirmed:
		return nonEmpty(Field{"Tag", s.Tag.String()})
	case backend.Intended, backend.Endorsed:
		return nonEmpty(
			Field{"Axel", s.AxelRating.String()},
			Field{"IR", s.IRRating.String()},
			Field{"Jelena", s.JelenaRating.String()},
		)
	}
	return nil
}

// Details returns the expandable narrative fields. Confirmed records have none.
func Details(s backend.Speaker) []Field {
	if !Detailed(s.Category) {
		return nil
	}
	return nonEmpty(
		Field{"Call Date", s.CallDate.String()},
		Field{"In Sum", s.InSum.String()},
		Field{"Jelena's Comments", s.JelenaComments.String()},
		Field{"Abstract", s.AbstractTitle.String()},
		Field{"Content Fit Analysis", s.ContentFitAnalysis.String()},
		Field{"IR Speaking Engagement", s.IREngagement.String()},
	)
}

// GoodOption reports whether the rating flag is the positive one.
func GoodOption(s backend.Speaker) bool {
	return s.RatingFlag == "Good option"
}

func nonEmpty(fields ...Field) []Field {
	out := fields[:0]
	for _, f := range fields {
		if f.Value != "" {
			out = append(out, f)
		}
	}
	return out
}
