package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Date/Time Functions

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T",
	"2006-01-02",
	"2006-01T",
	"2006-01",
	"2006T",
	"2006",
}

// parseTimestamp parses the ISO 8601 forms accepted for timestamps. Values
// without a zone are taken as UTC.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: cannot parse timestamp %q", ErrInvalidArgument, s)
}

// datePartArg evaluates the date part argument produced by the parser
func datePartArg(args Args, name string) (string, error) {
	part, null, err := textArg(args, name, 0)
	if err != nil {
		return "", err
	}
	if null || !dateParts[part] {
		return "", fmt.Errorf("%w: %s: unknown date part %q", ErrInvalidArgument, name, part)
	}
	return part, nil
}

// ToTimestampFunc parses a string into a timestamp
type ToTimestampFunc struct{ scalar }

func (ToTimestampFunc) Call(args Args) (Value, error) {
	v, _, err := timeArg(args, "to_timestamp", 0)
	return v, err
}

// UTCNowFunc returns the time the query started, in UTC. All rows see the
// same instant.
type UTCNowFunc struct {
	scalar
	now time.Time
}

func newUTCNowFunc(Args) (Function, error) {
	return UTCNowFunc{now: time.Now().UTC()}, nil
}

func (f UTCNowFunc) Call(Args) (Value, error) {
	return TimeValue(f.now), nil
}

// ExtractFunc returns one field of a timestamp
type ExtractFunc struct{ scalar }

func (ExtractFunc) Call(args Args) (Value, error) {
	part, err := datePartArg(args, "extract")
	if err != nil {
		return Value{}, err
	}
	v, null, err := timeArg(args, "extract", 1)
	if err != nil || null {
		return v, err
	}

	t := v.Time()
	_, offset := t.Zone()
	switch part {
	case "year":
		return IntValue(int64(t.Year())), nil
	case "month":
		return IntValue(int64(t.Month())), nil
	case "day":
		return IntValue(int64(t.Day())), nil
	case "hour":
		return IntValue(int64(t.Hour())), nil
	case "minute":
		return IntValue(int64(t.Minute())), nil
	case "second":
		return IntValue(int64(t.Second())), nil
	case "timezone_hour":
		return IntValue(int64(offset / 3600)), nil
	default: // timezone_minute
		return IntValue(int64(offset % 3600 / 60)), nil
	}
}

// DateAddFunc adds a quantity of a date part to a timestamp
type DateAddFunc struct{ scalar }

func (DateAddFunc) Call(args Args) (Value, error) {
	part, err := datePartArg(args, "date_add")
	if err != nil {
		return Value{}, err
	}
	n, null, err := intArg(args, "date_add", 1)
	if err != nil || null {
		return Null(), err
	}
	v, null, err := timeArg(args, "date_add", 2)
	if err != nil || null {
		return v, err
	}

	t := v.Time()
	switch part {
	case "year":
		t = t.AddDate(int(n), 0, 0)
	case "month":
		t = t.AddDate(0, int(n), 0)
	case "day":
		t = t.AddDate(0, 0, int(n))
	case "hour":
		t = t.Add(time.Duration(n) * time.Hour)
	case "minute":
		t = t.Add(time.Duration(n) * time.Minute)
	case "second":
		t = t.Add(time.Duration(n) * time.Second)
	default:
		return Value{}, fmt.Errorf("%w: date_add: unsupported date part %q", ErrInvalidArgument, part)
	}
	return TimeValue(t), nil
}

// DateDiffFunc returns the number of whole date parts from the first
// timestamp to the second
type DateDiffFunc struct{ scalar }

func (DateDiffFunc) Call(args Args) (Value, error) {
	part, err := datePartArg(args, "date_diff")
	if err != nil {
		return Value{}, err
	}
	from, null, err := timeArg(args, "date_diff", 1)
	if err != nil || null {
		return from, err
	}
	to, null, err := timeArg(args, "date_diff", 2)
	if err != nil || null {
		return to, err
	}

	a, b := from.Time(), to.Time()
	switch part {
	case "year":
		return IntValue(monthsBetween(a, b) / 12), nil
	case "month":
		return IntValue(monthsBetween(a, b)), nil
	case "day":
		return IntValue(int64(b.Sub(a) / (24 * time.Hour))), nil
	case "hour":
		return IntValue(int64(b.Sub(a) / time.Hour)), nil
	case "minute":
		return IntValue(int64(b.Sub(a) / time.Minute)), nil
	case "second":
		return IntValue(int64(b.Sub(a) / time.Second)), nil
	default:
		return Value{}, fmt.Errorf("%w: date_diff: unsupported date part %q", ErrInvalidArgument, part)
	}
}

// monthsBetween counts whole calendar months from a to b
func monthsBetween(a, b time.Time) int64 {
	b = b.In(a.Location())
	months := int64(b.Year()-a.Year())*12 + int64(b.Month()-a.Month())
	// drop the last month if it is not complete
	anchor := a.AddDate(0, int(months), 0)
	switch {
	case months > 0 && anchor.After(b):
		months--
	case months < 0 && anchor.Before(b):
		months++
	}
	return months
}

// ToStringFunc formats a timestamp. The optional pattern uses the letters
// y M d H h m s S a and X; text in single quotes is copied literally.
type ToStringFunc struct {
	scalar
	pattern []patternItem
}

func newToStringFunc(args Args) (Function, error) {
	if v, ok := args.Constant(1); ok && v.IsText() {
		pattern, err := compileTimePattern(v.Text())
		if err != nil {
			return nil, err
		}
		return ToStringFunc{pattern: pattern}, nil
	}
	return ToStringFunc{}, nil
}

func (f ToStringFunc) Call(args Args) (Value, error) {
	v, null, err := timeArg(args, "to_string", 0)
	if err != nil || null {
		return v, err
	}
	if args.Len() == 1 {
		return TextValue(v.String()), nil
	}

	pattern := f.pattern
	if pattern == nil {
		text, null, err := textArg(args, "to_string", 1)
		if err != nil || null {
			return Null(), err
		}
		if pattern, err = compileTimePattern(text); err != nil {
			return Value{}, err
		}
	}
	return TextValue(formatTime(v.Time(), pattern)), nil
}

type patternItem struct {
	letter  byte // 0 for literal text
	count   int
	literal string
}

// compileTimePattern splits a format pattern into runs of pattern letters
// and literal text
func compileTimePattern(pattern string) ([]patternItem, error) {
	var items []patternItem
	for i := 0; i < len(pattern); {
		c := pattern[i]
		switch {
		case c == '\'':
			end := strings.IndexByte(pattern[i+1:], '\'')
			if end < 0 {
				return nil, fmt.Errorf("%w: to_string: unterminated quote in pattern %q", ErrInvalidArgument, pattern)
			}
			lit := pattern[i+1 : i+1+end]
			if lit == "" {
				lit = "'"
			}
			items = append(items, patternItem{literal: lit})
			i += end + 2
		case strings.IndexByte("yMdHhmsSaX", c) >= 0:
			j := i
			for j < len(pattern) && pattern[j] == c {
				j++
			}
			items = append(items, patternItem{letter: c, count: j - i})
			i = j
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
			return nil, fmt.Errorf("%w: to_string: unsupported pattern letter %q", ErrInvalidArgument, c)
		default:
			items = append(items, patternItem{literal: string(c)})
			i++
		}
	}
	return items, nil
}

func pad(n, width int) string {
	s := strconv.Itoa(n)
	if len(s) < width {
		s = strings.Repeat("0", width-len(s)) + s
	}
	return s
}

func formatTime(t time.Time, pattern []patternItem) string {
	var b strings.Builder
	for _, item := range pattern {
		switch item.letter {
		case 0:
			b.WriteString(item.literal)
		case 'y':
			if item.count == 2 {
				b.WriteString(pad(t.Year()%100, 2))
			} else {
				b.WriteString(pad(t.Year(), item.count))
			}
		case 'M':
			switch {
			case item.count >= 4:
				b.WriteString(t.Month().String())
			case item.count == 3:
				b.WriteString(t.Month().String()[:3])
			default:
				b.WriteString(pad(int(t.Month()), item.count))
			}
		case 'd':
			b.WriteString(pad(t.Day(), item.count))
		case 'H':
			b.WriteString(pad(t.Hour(), item.count))
		case 'h':
			h := t.Hour() % 12
			if h == 0 {
				h = 12
			}
			b.WriteString(pad(h, item.count))
		case 'm':
			b.WriteString(pad(t.Minute(), item.count))
		case 's':
			b.WriteString(pad(t.Second(), item.count))
		case 'S':
			frac := pad(t.Nanosecond(), 9)
			if item.count <= 9 {
				frac = frac[:item.count]
			}
			b.WriteString(frac)
		case 'a':
			if t.Hour() < 12 {
				b.WriteString("AM")
			} else {
				b.WriteString("PM")
			}
		case 'X':
			switch item.count {
			case 1:
				b.WriteString(t.Format("Z07"))
			case 2:
				b.WriteString(t.Format("Z0700"))
			default:
				b.WriteString(t.Format("Z07:00"))
			}
		}
	}
	return b.String()
}
