package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultQueueSize bounds the number of entries waiting to be written.
const DefaultQueueSize = 128

// writeTimeout bounds a single insert.
const writeTimeout = 2 * time.Second

// Recorder queues entries and writes them from a background goroutine.
//
// Record never blocks. When the queue is full the entry is dropped and
// counted. Stop writes whatever is still queued before returning.
type Recorder struct {
	repo  Repository
	queue chan Entry
	now   func() time.Time

	dropped atomic.Uint64

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger Logger
}

// NewRecorder creates a recorder over repo. A size of zero uses
// DefaultQueueSize.
func NewRecorder(repo Repository, size int) *Recorder {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Recorder{
		repo:   repo,
		queue:  make(chan Entry, size),
		now:    time.Now,
		done:   make(chan struct{}),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the recorder.
func (r *Recorder) SetLogger(logger Logger) {
	r.logger = logger
}

// Record queues e, stamping CreatedAt when unset.
func (r *Recorder) Record(e Entry) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now().UTC()
	}
	select {
	case r.queue <- e:
	default:
		if r.dropped.Add(1) == 1 {
			r.logger.Warn("audit queue full, dropping entries", "action", e.Action, "target", e.Target)
		}
	}
}

// Dropped returns how many entries were lost to a full queue.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// List reads back recorded entries.
func (r *Recorder) List(ctx context.Context, filter Filter) (*ListResult, error) {
	return r.repo.List(ctx, filter)
}

// Start launches the writer goroutine.
func (r *Recorder) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.loop(ctx)
}

// Stop drains the queue and waits for the writer. Safe to call multiple times.
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		r.wg.Wait()
	})
}

func (r *Recorder) loop(ctx context.Context) {
	defer r.wg.Done()

	for {
		select {
		case e := <-r.queue:
			r.write(e)
		case <-ctx.Done():
			r.drain()
			return
		case <-r.done:
			r.drain()
			return
		}
	}
}

func (r *Recorder) drain() {
	for {
		select {
		case e := <-r.queue:
			r.write(e)
		default:
			return
		}
	}
}

func (r *Recorder) write(e Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := r.repo.Create(ctx, &e); err != nil {
		r.logger.Error("writing audit entry failed", "action", e.Action, "target", e.Target, "error", err)
	}
}
