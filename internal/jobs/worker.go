package jobs

import (
	"context"
	"log"
	"time"
)

// JobProcessor defines the interface for processing jobs
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker polls a JobProcessor at a fixed interval until stopped. The daemon
// runs one worker per background concern (ingest, cache sweep), so each
// carries a name for its log lines.
type Worker struct {
	name         string
	processor    JobProcessor
	pollInterval time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
}

// NewWorker creates a new Worker instance
func NewWorker(name string, processor JobProcessor, pollInterval time.Duration) *Worker {
	return &Worker{
		name:         name,
		processor:    processor,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start begins the worker's polling loop
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("%s worker started with poll interval: %v", w.name, w.pollInterval)

	for {
		select {
		case <-ctx.Done():
			log.Printf("%s worker stopped: context cancelled", w.name)
			return
		case <-w.stopChan:
			log.Printf("%s worker stopped: stop signal received", w.name)
			return
		case <-ticker.C:
			if err := w.processor.ProcessJobs(ctx); err != nil {
				log.Printf("%s worker: error processing jobs: %v", w.name, err)
			}
		}
	}
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
	log.Printf("%s worker shutdown complete", w.name)
}
