package storage

import (
	"time"
)

const (
	stepsKind = "steps"
	stepsID   = "display"
)

// Steps are the last brightness and temperature steps written to the display.
type Steps struct {
	Brightness  int       `json:"brightness"`
	Temperature int       `json:"temperature"`
	SavedAt     time.Time `json:"saved_at"`
}

// StepStore persists Steps across restarts.
type StepStore struct {
	typed *Typed[Steps]
}

// NewStepStore creates a StepStore on store.
func NewStepStore(store *Store) *StepStore {
	return &StepStore{typed: NewTyped[Steps](store, stepsKind)}
}

// Load returns the saved steps. ok is false when nothing was saved.
func (s *StepStore) Load() (steps Steps, ok bool, err error) {
	return s.typed.Get(stepsID)
}

// Save records steps.
func (s *StepStore) Save(brightness, temperature int) error {
	return s.typed.Set(stepsID, Steps{
		Brightness:  brightness,
		Temperature: temperature,
		SavedAt:     time.Now().UTC(),
	})
}

// Reset forgets the saved steps.
func (s *StepStore) Reset() error {
	return s.typed.Delete(stepsID)
}
