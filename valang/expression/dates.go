package expression

import (
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/krew-solutions/ascetic-valang-go/valang/faults"
)

type dateFormat struct {
	pattern *regexp.Regexp
	layout  string
}

// DateParser turns date literal text into instants. Layouts are selected by
// the registered pattern matching the whole text; when several match, the
// longest pattern wins and registration order breaks ties. Text starting
// with T is relative to now, see ParseRelative.
type DateParser struct {
	mu       sync.RWMutex
	formats  []dateFormat
	location *time.Location
	now      func() time.Time
}

func NewDateParser() *DateParser {
	p := &DateParser{location: time.Local, now: time.Now}
	p.MustRegister(`\d{4}-\d{2}-\d{2}`, "2006-01-02")
	p.MustRegister(`\d{4}-\d{2}-\d{2} \d{2}:\d{2}`, "2006-01-02 15:04")
	p.MustRegister(`\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}`, "2006-01-02 15:04:05")
	p.MustRegister(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})`, time.RFC3339Nano)
	p.MustRegister(`\d{8}`, "20060102")
	p.MustRegister(`\d{4}/\d{2}/\d{2}`, "2006/01/02")
	p.MustRegister(`\d{2}:\d{2}:\d{2}`, "15:04:05")
	return p
}

// WithLocation sets the zone of layouts that carry no offset.
func (p *DateParser) WithLocation(loc *time.Location) *DateParser {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.location = loc
	return p
}

// WithClock replaces the source of "now" for relative dates.
func (p *DateParser) WithClock(now func() time.Time) *DateParser {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.now = now
	return p
}

// Register adds a layout (time.Parse syntax) selected by pattern, which is
// anchored to the whole text.
func (p *DateParser) Register(pattern, layout string) error {
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return faults.NewConfigurationError("date format "+layout, err.Error())
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.formats = append(p.formats, dateFormat{pattern: re, layout: layout})
	return nil
}

func (p *DateParser) MustRegister(pattern, layout string) {
	if err := p.Register(pattern, layout); err != nil {
		panic(err)
	}
}

// Supports reports whether text is relative or matched by a registered
// pattern, without parsing it.
func (p *DateParser) Supports(text string) bool {
	if isRelative(text) {
		return relativeSyntax.MatchString(text)
	}
	_, ok := p.best(text)
	return ok
}

func (p *DateParser) Parse(text string) (time.Time, error) {
	p.mu.RLock()
	now, loc := p.now, p.location
	p.mu.RUnlock()
	if isRelative(text) {
		return ParseRelative(text, now().In(loc))
	}
	format, ok := p.best(text)
	if !ok {
		return time.Time{}, faults.NewArgumentTypeError("date", text, "no registered date format matches")
	}
	t, err := time.ParseInLocation(format.layout, text, loc)
	if err != nil {
		return time.Time{}, faults.NewArgumentTypeError("date", text, err.Error())
	}
	return t, nil
}

func (p *DateParser) best(text string) (dateFormat, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var (
		best  dateFormat
		found bool
	)
	for _, f := range p.formats {
		if !f.pattern.MatchString(text) {
			continue
		}
		if !found || len(f.pattern.String()) > len(best.pattern.String()) {
			best, found = f, true
		}
	}
	return best, found
}

var (
	relativeSyntax   = regexp.MustCompile(`^T((<|>)[smHdwMy]|[+-]\d+[smHdwMy])*$`)
	relativeModifier = regexp.MustCompile(`(<|>)([smHdwMy])|([+-])(\d+)([smHdwMy])`)
)

func isRelative(text string) bool {
	return len(text) > 0 && text[0] == 'T'
}

// ParseRelative evaluates T followed by modifiers, applied left to right:
// <u truncates to the start of unit u, >u moves to the last nanosecond of
// unit u, +Nu and -Nu shift by N units. Units: s m H d w M y. Weeks start
// on Monday.
func ParseRelative(text string, now time.Time) (time.Time, error) {
	if !relativeSyntax.MatchString(text) {
		return time.Time{}, faults.NewArgumentTypeError("date", text, "malformed relative date")
	}
	t := now
	for _, m := range relativeModifier.FindAllStringSubmatch(text[1:], -1) {
		if m[1] != "" {
			start := truncate(t, m[2][0])
			if m[1] == "<" {
				t = start
			} else {
				t = shift(start, m[2][0], 1).Add(-time.Nanosecond)
			}
			continue
		}
		n, err := strconv.Atoi(m[4])
		if err != nil {
			return time.Time{}, faults.NewArgumentTypeError("date", text, err.Error())
		}
		if m[3] == "-" {
			n = -n
		}
		t = shift(t, m[5][0], n)
	}
	return t, nil
}

func truncate(t time.Time, unit byte) time.Time {
	y, mo, d := t.Date()
	loc := t.Location()
	switch unit {
	case 's':
		return time.Date(y, mo, d, t.Hour(), t.Minute(), t.Second(), 0, loc)
	case 'm':
		return time.Date(y, mo, d, t.Hour(), t.Minute(), 0, 0, loc)
	case 'H':
		return time.Date(y, mo, d, t.Hour(), 0, 0, 0, loc)
	case 'd':
		return time.Date(y, mo, d, 0, 0, 0, 0, loc)
	case 'w':
		offset := (int(t.Weekday()) + 6) % 7
		return time.Date(y, mo, d-offset, 0, 0, 0, 0, loc)
	case 'M':
		return time.Date(y, mo, 1, 0, 0, 0, 0, loc)
	case 'y':
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	}
	panic(fmt.Sprintf("unknown date unit %q", unit))
}

func shift(t time.Time, unit byte, n int) time.Time {
	switch unit {
	case 's':
		return t.Add(time.Duration(n) * time.Second)
	case 'm':
		return t.Add(time.Duration(n) * time.Minute)
	case 'H':
		return t.Add(time.Duration(n) * time.Hour)
	case 'd':
		return t.AddDate(0, 0, n)
	case 'w':
		return t.AddDate(0, 0, 7*n)
	case 'M':
		return t.AddDate(0, n, 0)
	case 'y':
		return t.AddDate(n, 0, 0)
	}
	panic(fmt.Sprintf("unknown date unit %q", unit))
}
