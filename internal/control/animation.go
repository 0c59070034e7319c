// Package control implements the adaptive brightness and color temperature
// loops. Each controller owns its state behind a mutex and runs exactly one
// animation at a time from its own goroutine.
package control

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/dokzlo13/gammad/internal/easing"
)

// Job animates a step value from Start to End.
type Job struct {
	ID       uuid.UUID
	Start    int
	End      int
	Duration time.Duration
	FPS      int

	ease    easing.Func
	elapsed float64
}

// NewJob creates a job. A non-positive fps or duration produces a single
// frame that jumps to end.
func NewJob(start, end int, duration time.Duration, fps int, ease easing.Func) *Job {
	return &Job{
		ID:       uuid.New(),
		Start:    start,
		End:      end,
		Duration: duration,
		FPS:      fps,
		ease:     ease,
	}
}

// Immediate reports whether the job completes in one frame.
func (j *Job) Immediate() bool {
	return j.FPS <= 0 || j.Duration <= 0
}

// FramePeriod is the pause between frames.
func (j *Job) FramePeriod() time.Duration {
	if j.Immediate() {
		return 0
	}
	return time.Second / time.Duration(j.FPS)
}

// Elapsed returns the animated time so far.
func (j *Job) Elapsed() time.Duration {
	return time.Duration(j.elapsed * float64(time.Second))
}

// Next advances one frame and returns the value to apply. done is true once
// the value equals End. Values never leave the [Start, End] range.
func (j *Job) Next() (value int, done bool) {
	if j.Immediate() || j.Start == j.End {
		return j.End, true
	}

	d := j.Duration.Seconds()
	j.elapsed += 1 / float64(j.FPS)
	if j.elapsed >= d {
		j.elapsed = d
		return j.End, true
	}

	v := int(math.Round(j.ease(j.elapsed, float64(j.Start), float64(j.End-j.Start), d)))
	lo, hi := j.Start, j.End
	if lo > hi {
		lo, hi = hi, lo
	}
	if v < lo {
		v = lo
	} else if v > hi {
		v = hi
	}
	return v, v == j.End
}
