package storage

import (
	"encoding/json"
	"fmt"
)

// Typed stores values of one Go type under a fixed kind.
type Typed[T any] struct {
	store *Store
	kind  string
}

// NewTyped creates a typed view of store for kind.
func NewTyped[T any](store *Store, kind string) *Typed[T] {
	return &Typed[T]{store: store, kind: kind}
}

// Get returns the value stored under id. found is false when nothing was
// stored yet, in which case value is the zero value.
func (t *Typed[T]) Get(id string) (value T, found bool, err error) {
	payload, _, err := t.store.Get(t.kind, id)
	if err != nil || payload == nil {
		return value, false, err
	}
	if err := json.Unmarshal(payload, &value); err != nil {
		return value, false, fmt.Errorf("failed to unmarshal %s/%s: %w", t.kind, id, err)
	}
	return value, true, nil
}

// Set stores value under id.
func (t *Typed[T]) Set(id string, value T) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s/%s: %w", t.kind, id, err)
	}
	_, err = t.store.Set(t.kind, id, payload)
	return err
}

// Update stores the result of modify applied to the current value.
func (t *Typed[T]) Update(id string, modify func(current T) T) error {
	current, _, err := t.Get(id)
	if err != nil {
		return err
	}
	return t.Set(id, modify(current))
}

// Delete removes the value stored under id.
func (t *Typed[T]) Delete(id string) error {
	return t.store.Delete(t.kind, id)
}
