package control

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Worker is a long-running loop that exits when its context is cancelled.
type Worker interface {
	Run(ctx context.Context)
}

// WorkerFunc adapts a function to Worker.
type WorkerFunc func(ctx context.Context)

// Run implements Worker.
func (f WorkerFunc) Run(ctx context.Context) { f(ctx) }

// Supervisor runs the control workers under one cancellable context.
// Stop cancels them, waits for every one to return and then restores
// neutral gamma through the writer.
type Supervisor struct {
	writer  *Writer
	workers map[string]Worker
	order   []string

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewSupervisor creates a supervisor for writer.
func NewSupervisor(writer *Writer) *Supervisor {
	return &Supervisor{
		writer:  writer,
		workers: make(map[string]Worker),
	}
}

// Add registers a named worker. Call before Start.
func (s *Supervisor) Add(name string, w Worker) {
	if _, ok := s.workers[name]; !ok {
		s.order = append(s.order, name)
	}
	s.workers[name] = w
}

// Start launches every worker.
func (s *Supervisor) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	for _, name := range s.order {
		w := s.workers[name]
		s.wg.Add(1)
		go func(name string) {
			defer s.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Error().Interface("panic", r).Str("worker", name).Msg("Control worker panicked")
				}
			}()
			w.Run(ctx)
			log.Debug().Str("worker", name).Msg("Control worker exited")
		}(name)
	}

	log.Info().Int("workers", len(s.order)).Msg("Control loops started")
}

// Stop cancels all workers, joins them and applies neutral gamma once.
// It is safe to call more than once.
func (s *Supervisor) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
		log.Info().Msg("Control loops stopped")
		err = s.writer.Close()
	})
	return err
}
