package crf

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Record is the cleaned field map of one submitted form, or of a related
// record returned by the lookup layer. A missing key, a nil value, an empty
// string and an empty list all mean "not provided".
type Record map[string]any

// dateLayouts are tried in order when a field holds a string.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Value returns the raw value of field, or nil when it is not provided.
func (r Record) Value(field string) any {
	if r == nil {
		return nil
	}
	v, ok := r[field]
	if !ok || isEmpty(v) {
		return nil
	}
	return v
}

// Present reports whether field holds a substantive value.
func (r Record) Present(field string) bool {
	return r.Value(field) != nil
}

// String returns the value of field formatted as a string.
func (r Record) String(field string) (string, bool) {
	v := r.Value(field)
	if v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case Token:
		return string(t), true
	case fmt.Stringer:
		return t.String(), true
	default:
		return fmt.Sprint(t), true
	}
}

// Token returns the value of field as a clinical token. The token is not
// checked against any vocabulary here; see Token.Known.
func (r Record) Token(field string) (Token, bool) {
	s, ok := r.String(field)
	if !ok {
		return "", false
	}
	return Token(s), true
}

// Float returns the numeric value of field. Numeric strings are accepted
// since form layers commonly post numbers as text.
func (r Record) Float(field string) (float64, bool) {
	switch t := r.Value(field).(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// MaxWhole bounds the magnitude of values Int accepts: every whole number up
// to 2^53 is exact in a float64.
const MaxWhole = 1 << 53

// Int returns the value of field as a whole number. Fractional values and
// values beyond MaxWhole are rejected rather than truncated.
func (r Record) Int(field string) (int, bool) {
	f, ok := r.Float(field)
	if !ok || f != math.Trunc(f) || math.Abs(f) > MaxWhole {
		return 0, false
	}
	return int(f), true
}

// Time returns the value of field as a time. Strings are parsed with the
// layouts accepted by the form layer; date-only values are midnight UTC.
func (r Record) Time(field string) (time.Time, bool) {
	switch t := r.Value(field).(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil || t.IsZero() {
			return time.Time{}, false
		}
		return *t, true
	case string:
		return ParseTime(t)
	default:
		return time.Time{}, false
	}
}

// Date is Time truncated to the calendar day in UTC.
func (r Record) Date(field string) (time.Time, bool) {
	t, ok := r.Time(field)
	if !ok {
		return time.Time{}, false
	}
	return DateOf(t), true
}

// Strings returns the selections of a multi-select field. A selection may
// be a bare short name or a nested record with a "short_name" (or "name")
// key, which is how the form layer serialises many-to-many choices.
func (r Record) Strings(field string) []string {
	var out []string
	switch t := r.Value(field).(type) {
	case []string:
		for _, s := range t {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range t {
			if s, ok := shortName(item); ok {
				out = append(out, s)
			}
		}
	case string:
		out = append(out, strings.TrimSpace(t))
	}
	return out
}

// Records returns the inline child records of field, e.g. the ARV rows of
// an ARV-in-pregnancy form.
func (r Record) Records(field string) []Record {
	var out []Record
	switch t := r.Value(field).(type) {
	case []Record:
		out = append(out, t...)
	case []map[string]any:
		for _, m := range t {
			out = append(out, Record(m))
		}
	case []any:
		for _, item := range t {
			switch m := item.(type) {
			case map[string]any:
				out = append(out, Record(m))
			case Record:
				out = append(out, m)
			}
		}
	}
	return out
}

// Nested returns a nested record reference such as maternal_visit.
func (r Record) Nested(field string) (Record, bool) {
	switch t := r.Value(field).(type) {
	case Record:
		return t, true
	case map[string]any:
		return Record(t), true
	default:
		return nil, false
	}
}

// Equal reports whether field holds a value equal to want, comparing the
// string forms so that JSON numbers, tokens and strings line up.
func (r Record) Equal(field string, want any) bool {
	got := r.Value(field)
	if got == nil || want == nil {
		return got == nil && want == nil
	}
	if gt, ok := got.(time.Time); ok {
		if wt, ok := toTime(want); ok {
			return gt.Equal(wt)
		}
	}
	return Text(got) == Text(want)
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ParseTime parses the string representations accepted for date and
// datetime fields.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Weeks is a duration of n weeks.
func Weeks(n int) time.Duration {
	return time.Duration(n) * 7 * 24 * time.Hour
}

// FormatDate renders a date for error messages.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case Token:
		return t == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case []Record:
		return len(t) == 0
	case []map[string]any:
		return len(t) == 0
	case *time.Time:
		return t == nil
	}
	return false
}

func shortName(item any) (string, bool) {
	switch t := item.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case map[string]any:
		return shortName(Record(t))
	case Record:
		for _, k := range []string{"short_name", "name"} {
			if s, ok := t.String(k); ok {
				return s, true
			}
		}
	}
	return "", false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		return ParseTime(t)
	}
	return time.Time{}, false
}

// Text is the canonical string form of a field value, used for equality
// filters in the lookup layer.
func Text(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case Token:
		return string(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(t)
	}
}
