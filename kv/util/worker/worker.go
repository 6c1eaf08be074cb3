// Package worker runs tasks one at a time on a dedicated goroutine.
package worker

import (
	"sync"

	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/tinydb/log"
)

var (
	ErrWorkerFull    = errors.New("worker queue is full")
	ErrWorkerStopped = errors.New("worker is stopped")
)

type Task interface{}

type TaskHandler interface {
	Handle(t Task)
}

// Starter is implemented by handlers which need to run something on the worker goroutine before the first task.
type Starter interface {
	Start()
}

type Worker struct {
	name  string
	tasks chan Task
	wg    *sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

const defaultWorkerCapacity = 128

func NewWorker(name string, wg *sync.WaitGroup) *Worker {
	return NewWorkerWithCapacity(name, wg, defaultWorkerCapacity)
}

func NewWorkerWithCapacity(name string, wg *sync.WaitGroup, capacity int) *Worker {
	return &Worker{
		name:  name,
		tasks: make(chan Task, capacity),
		wg:    wg,
	}
}

func (w *Worker) Start(handler TaskHandler) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if s, ok := handler.(Starter); ok {
			s.Start()
		}
		for task := range w.tasks {
			handler.Handle(task)
		}
		log.Debugf("worker %s exited", w.name)
	}()
}

func (w *Worker) Name() string {
	return w.name
}

// Submit queues a task without waiting. It fails with ErrWorkerFull when the queue is at capacity and with
// ErrWorkerStopped once Stop was called.
func (w *Worker) Submit(t Task) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return ErrWorkerStopped
	}
	select {
	case w.tasks <- t:
		return nil
	default:
		return errors.Annotatef(ErrWorkerFull, "worker %s", w.name)
	}
}

// Pending is the number of queued tasks not yet handled.
func (w *Worker) Pending() int {
	return len(w.tasks)
}

// Stop lets the worker exit once the tasks queued before it are handled. Stopping twice is a no-op.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.stopped = true
	close(w.tasks)
}
