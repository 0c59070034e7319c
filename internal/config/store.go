package config

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// ChangeFunc is called after a new configuration snapshot is published.
type ChangeFunc func(old, new *Config)

// Store holds the live configuration. Readers take one snapshot per decision
// point with Get; snapshots are never mutated after publication.
type Store struct {
	path string
	cur  atomic.Pointer[Config]

	mu       sync.Mutex
	subs     []ChangeFunc
	override func(cfg *Config)
}

// NewStore creates a store seeded with cfg. path may be empty when the
// configuration does not come from a file.
func NewStore(path string, cfg *Config) *Store {
	s := &Store{path: path}
	s.cur.Store(cfg)
	return s
}

// Get returns the current snapshot.
func (s *Store) Get() *Config {
	return s.cur.Load()
}

// OnChange registers a subscriber. Subscribers run synchronously and must not
// call Set or Update.
func (s *Store) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Update publishes a modified copy of the current snapshot.
func (s *Store) Update(modify func(cfg *Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.cur.Load()
	next := *old
	modify(&next)
	next.Normalize()

	s.publishLocked(old, &next)
}

// Set publishes cfg as the new snapshot.
func (s *Store) Set(cfg *Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishLocked(s.cur.Load(), cfg)
}

func (s *Store) publishLocked(old, next *Config) {
	s.cur.Store(next)
	for _, fn := range s.subs {
		fn(old, next)
	}
}

// SetOverride registers fn to adjust every reloaded file before it is
// published, so command line flags survive live reloads.
func (s *Store) SetOverride(fn func(cfg *Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.override = fn
}

// Reload reads the file again and publishes it.
func (s *Store) Reload() error {
	cfg, err := Load(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	override := s.override
	s.mu.Unlock()
	if override != nil {
		override(cfg)
		cfg.Normalize()
	}

	s.Set(cfg)
	log.Info().Str("config", s.path).Msg("Configuration reloaded")
	return nil
}

// Watch reloads the file whenever it changes until ctx is cancelled.
// The parent directory is watched so editors that replace the file are seen.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	abs, err := filepath.Abs(s.path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	// Editors emit bursts of events; reload once they settle.
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(200*time.Millisecond, func() {
				if err := s.Reload(); err != nil {
					log.Warn().Err(err).Str("config", s.path).Msg("Ignoring invalid configuration")
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("Config watcher error")
		}
	}
}
