package schedule

import (
	"fmt"
	"time"
)

// Window is the daily low temperature period.
type Window struct {
	Start *Expr
	End   *Expr
}

// ParseWindow parses both boundaries.
func ParseWindow(start, end string) (*Window, error) {
	s, err := ParseExpr(start)
	if err != nil {
		return nil, fmt.Errorf("failed to parse window start: %w", err)
	}
	e, err := ParseExpr(end)
	if err != nil {
		return nil, fmt.Errorf("failed to parse window end: %w", err)
	}
	return &Window{Start: s, End: e}, nil
}

// Bounds resolves both boundaries for the day of now.
func (w *Window) Bounds(ev *Evaluator, now time.Time) (start, end ClockTime, err error) {
	if start, err = ev.Resolve(w.Start, now); err != nil {
		return 0, 0, err
	}
	if end, err = ev.Resolve(w.End, now); err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// IsLow reports whether now is inside the window.
func (w *Window) IsLow(ev *Evaluator, now time.Time) (bool, error) {
	start, end, err := w.Bounds(ev, now)
	if err != nil {
		return false, err
	}
	return IsLowPeriod(At(now.In(ev.Location())), start, end), nil
}

func (w *Window) String() string {
	return w.Start.Raw + "-" + w.End.Raw
}
