package schedule

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/nathan-osman/go-sunrise"
)

// ErrNoSolarEvent is returned when a solar anchor does not occur on a day
// (polar day or night).
var ErrNoSolarEvent = errors.New("solar event does not occur")

// Anchor is the base time of an expression.
type Anchor int

const (
	AnchorFixed Anchor = iota
	AnchorDawn
	AnchorSunrise
	AnchorSunset
	AnchorDusk
)

// civil twilight
const twilightElevation = -6.0

var (
	// "@sunset", "@sunrise - 30m", "@dusk + 1h15m"
	solarPattern = regexp.MustCompile(`^@(\w+)\s*([+-]\s*\d+[hms]+(?:\d+[ms]+)?)?$`)
	// "22:15", "6:30"
	fixedPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
)

// Expr is a parsed window boundary: a fixed time of day or a solar anchor
// with an optional offset.
type Expr struct {
	Raw    string
	Anchor Anchor
	Fixed  ClockTime
	Offset time.Duration
}

// ParseExpr parses "HH:MM" or "@anchor [+-] offset".
func ParseExpr(s string) (*Expr, error) {
	s = strings.TrimSpace(s)

	if fixedPattern.MatchString(s) {
		c, err := ParseClock(s)
		if err != nil {
			return nil, err
		}
		return &Expr{Raw: s, Anchor: AnchorFixed, Fixed: c}, nil
	}

	m := solarPattern.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}

	var anchor Anchor
	switch strings.ToLower(m[1]) {
	case "dawn":
		anchor = AnchorDawn
	case "sunrise":
		anchor = AnchorSunrise
	case "sunset":
		anchor = AnchorSunset
	case "dusk":
		anchor = AnchorDusk
	default:
		return nil, fmt.Errorf("%w: unknown solar anchor %q", ErrInvalidTime, m[1])
	}

	var offset time.Duration
	if raw := strings.ReplaceAll(m[2], " ", ""); raw != "" {
		d, err := time.ParseDuration(raw[1:])
		if err != nil {
			return nil, fmt.Errorf("invalid offset %q: %w", raw, err)
		}
		if raw[0] == '-' {
			d = -d
		}
		offset = d
	}

	return &Expr{Raw: s, Anchor: anchor, Offset: offset}, nil
}

// IsFixed reports whether the expression needs no location to resolve.
func (e *Expr) IsFixed() bool {
	return e.Anchor == AnchorFixed
}

func (e *Expr) String() string {
	return e.Raw
}

// Evaluator resolves expressions for a location.
type Evaluator struct {
	lat, lon float64
	tz       *time.Location
}

// NewEvaluator creates an evaluator. An unknown timezone falls back to local time.
func NewEvaluator(lat, lon float64, timezone string) *Evaluator {
	tz := time.Local
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err == nil {
			tz = loc
		}
	}
	return &Evaluator{lat: lat, lon: lon, tz: tz}
}

// Location returns the evaluator's timezone.
func (ev *Evaluator) Location() *time.Location {
	return ev.tz
}

// Resolve returns the time of day the expression denotes on the given day.
func (ev *Evaluator) Resolve(e *Expr, day time.Time) (ClockTime, error) {
	if e.IsFixed() {
		return e.Fixed, nil
	}

	day = day.In(ev.tz)
	y, mo, d := day.Date()

	var base time.Time
	switch e.Anchor {
	case AnchorSunrise:
		base, _ = sunrise.SunriseSunset(ev.lat, ev.lon, y, mo, d)
	case AnchorSunset:
		_, base = sunrise.SunriseSunset(ev.lat, ev.lon, y, mo, d)
	case AnchorDawn:
		base, _ = sunrise.TimeOfElevation(ev.lat, ev.lon, twilightElevation, y, mo, d)
	case AnchorDusk:
		_, base = sunrise.TimeOfElevation(ev.lat, ev.lon, twilightElevation, y, mo, d)
	}
	if base.IsZero() {
		return 0, fmt.Errorf("%w: %s on %s", ErrNoSolarEvent, e.Raw, day.Format("2006-01-02"))
	}

	return At(base.Add(e.Offset).In(ev.tz)), nil
}
