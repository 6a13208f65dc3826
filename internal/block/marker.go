package block

import (
	"regexp"
	"time"
)

var markerRe = regexp.MustCompile(`--- UPLOAD FROM (\d{2}\.\d{2}\.\d{4}) ---`)

// ParseMarker looks for an upload marker in text and returns its date as
// midnight in loc. ok is false when text has no marker. A marker whose date
// does not parse yields a *ParseError.
func ParseMarker(text string, loc *time.Location) (date time.Time, ok bool, err error) {
	m := markerRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false, nil
	}
	if loc == nil {
		loc = time.UTC
	}

	date, err = time.ParseInLocation(DateLayout, m[1], loc)
	if err != nil {
		return time.Time{}, true, &ParseError{Marker: m[0], Err: err}
	}
	return date, true, nil
}
