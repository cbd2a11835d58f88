// Package dispatch runs best-effort background jobs (reports, alerts) on a
// bounded queue served by a fixed pool of workers. Submitting never blocks
// the caller: when the queue is full the job is dropped.
package dispatch

import (
	"context"
	"log"
	"sync"
	"time"
)

// Job is a single attempt at a network call. It must respect ctx.
type Job struct {
	Name    string
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Result of a job, delivered to the Observer.
type Result string

const (
	OK      Result = "ok"
	Failed  Result = "failed"
	Dropped Result = "dropped"
)

// Observer is told the outcome of every submitted job.
type Observer func(job string, result Result, err error)

type Dispatcher struct {
	queue    chan Job
	observer Observer
	wg       sync.WaitGroup
	mu       sync.RWMutex
	stopped  bool
}

// New starts workers goroutines serving a queue of the given capacity.
func New(workers, capacity int, observer Observer) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if observer == nil {
		observer = func(string, Result, error) {}
	}
	self := &Dispatcher{
		queue:    make(chan Job, capacity),
		observer: observer,
	}
	for i := 0; i < workers; i++ {
		self.wg.Add(1)
		go self.worker()
	}
	return self
}

// Submit queues job, returning false if it was dropped.
func (self *Dispatcher) Submit(job Job) bool {
	self.mu.RLock()
	defer self.mu.RUnlock()
	if self.stopped {
		log.Printf("dispatch: stopped, dropping %s", job.Name)
		self.observer(job.Name, Dropped, nil)
		return false
	}
	select {
	case self.queue <- job:
		return true
	default:
		log.Printf("dispatch: queue full, dropping %s", job.Name)
		self.observer(job.Name, Dropped, nil)
		return false
	}
}

// Pending returns the number of queued jobs not yet picked up.
func (self *Dispatcher) Pending() int {
	return len(self.queue)
}

// Stop closes the queue and waits for queued and running jobs to finish.
func (self *Dispatcher) Stop() {
	self.mu.Lock()
	if !self.stopped {
		self.stopped = true
		close(self.queue)
	}
	self.mu.Unlock()
	self.wg.Wait()
}

func (self *Dispatcher) worker() {
	defer self.wg.Done()
	for job := range self.queue {
		self.run(job)
	}
}

func (self *Dispatcher) run(job Job) {
	ctx := context.Background()
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}
	started := time.Now()
	err := job.Run(ctx)
	if err != nil {
		log.Printf("dispatch: %s failed after %s: %s", job.Name, time.Since(started).Round(time.Millisecond), err)
		self.observer(job.Name, Failed, err)
		return
	}
	self.observer(job.Name, OK, nil)
}
