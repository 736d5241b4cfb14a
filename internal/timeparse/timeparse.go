// Package timeparse resolves free-text time expressions into concrete fire
// times. It accepts bare relative expressions ("4 hours"), a set of common
// absolute layouts ("12/31/2025 8:30pm") and natural language handled by the
// olebedev/when ruleset ("tomorrow at 8pm", "in 45 minutes").
package timeparse

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var (
	// ErrUnparseable is returned when no rule matches the expression.
	ErrUnparseable = errors.New("could not understand the time expression")
	// ErrPast is returned when the expression resolves to a time that is
	// not in the future.
	ErrPast = errors.New("time must be in the future")
)

// relativeRe matches bare "<number> <unit>" expressions like "4 hours" or
// "30min". The original input surface documents this form, so it is handled
// before the natural-language rules, which require a leading "in".
var relativeRe = regexp.MustCompile(`(?i)^(\d+)\s*(s|sec|secs|second|seconds|m|min|mins|minute|minutes|h|hr|hrs|hour|hours|d|day|days|w|week|weeks|month|months)$`)

// absoluteLayouts are tried in order against the raw expression.
var absoluteLayouts = []string{
	"1/2/2006 3:04pm",
	"1/2/2006 3:04 pm",
	"1/2/2006 15:04",
	"1/2/2006",
	"2006-01-02 15:04",
	"2006-01-02 3:04pm",
	"2006-01-02",
	"Jan 2 2006 3:04pm",
	"Jan 2 2006 15:04",
	"Jan 2 2006",
}

// Parser resolves time expressions against a fixed location.
type Parser struct {
	w   *when.Parser
	loc *time.Location
}

// New creates a parser using the given location for absolute expressions.
// A nil location defaults to time.Local.
func New(loc *time.Location) *Parser {
	if loc == nil {
		loc = time.Local
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	return &Parser{w: w, loc: loc}
}

// Parse resolves expr relative to base. The result is guaranteed to be
// strictly after base.
func (p *Parser) Parse(expr string, base time.Time) (time.Time, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return time.Time{}, ErrUnparseable
	}

	if t, ok := p.parseRelative(expr, base); ok {
		return p.ensureFuture(t, base)
	}
	if t, ok := p.parseAbsolute(expr); ok {
		return p.ensureFuture(t, base)
	}

	r, err := p.w.Parse(expr, base)
	if err != nil || r == nil {
		return time.Time{}, ErrUnparseable
	}

	return p.ensureFuture(r.Time, base)
}

func (p *Parser) parseRelative(expr string, base time.Time) (time.Time, bool) {
	// "4h30m" style durations first.
	if d, err := time.ParseDuration(strings.ReplaceAll(expr, " ", "")); err == nil && d > 0 {
		return base.Add(d), true
	}

	m := relativeRe.FindStringSubmatch(expr)
	if m == nil {
		return time.Time{}, false
	}

	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return time.Time{}, false
	}

	switch strings.ToLower(m[2])[0] {
	case 's':
		return base.Add(time.Duration(n) * time.Second), true
	case 'm':
		unit := strings.ToLower(m[2])
		if strings.HasPrefix(unit, "month") {
			return base.AddDate(0, n, 0), true
		}
		return base.Add(time.Duration(n) * time.Minute), true
	case 'h':
		return base.Add(time.Duration(n) * time.Hour), true
	case 'd':
		return base.AddDate(0, 0, n), true
	case 'w':
		return base.AddDate(0, 0, n*7), true
	}

	return time.Time{}, false
}

func (p *Parser) parseAbsolute(expr string) (time.Time, bool) {
	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, expr, p.loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (p *Parser) ensureFuture(t, base time.Time) (time.Time, error) {
	if !t.After(base) {
		return time.Time{}, ErrPast
	}
	return t, nil
}
