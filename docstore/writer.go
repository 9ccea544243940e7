package docstore

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
)

// Mutator receives the current document body (exists is false when there is
// none yet) and returns the full body to write. It may run more than once for
// one update when the write loses a version race, so it must not have side
// effects outside its return value. Returning ErrSkipWrite ends the update
// successfully without writing; any other error aborts it.
type Mutator func(current []byte, exists bool) ([]byte, error)

// WriterOptions tunes a Writer.
type WriterOptions struct {
	// MaxConflictRetries bounds how many times a read-modify-write is redone
	// after ErrVersionConflict.
	MaxConflictRetries int
	// RetryDelay is the constant pause between attempts.
	RetryDelay time.Duration
	// QueueSize is the number of updates that may wait for the writer.
	QueueSize int
	Logger    *slog.Logger
}

// writeJob is one queued Update call.
type writeJob struct {
	// ctx is the caller's context. Its deadline bounds every attempt of the job,
	// retries included.
	ctx    context.Context
	mutate Mutator
	// result is buffered so the loop never blocks on a caller that already gave up.
	result chan error
}

// Writer serializes every update of one resource through a single goroutine.
//
// Both resources are whole JSON documents (every user in one object, the whole
// chat log in one array), so any change is a read-modify-write of the full
// body. Two such cycles running side by side would each read the same version
// and the later Put would silently drop the earlier change. The Writer avoids
// that in two layers:
//
//   - Within the process, updates queue on a channel and one goroutine runs them
//     one after another, so no two cycles of the resource overlap.
//   - Across processes sharing the store, every Put is conditional on the
//     version that was read (or on the document being absent). A lost race
//     comes back as ErrVersionConflict and the whole cycle, Mutator included,
//     runs again on the fresh body, up to MaxConflictRetries times.
//
// Against a backend without conditional writes only the first layer applies.
type Writer struct {
	store    Store
	resource string
	opts     WriterOptions
	logger   *slog.Logger

	// jobs is the queue the loop goroutine drains.
	jobs chan *writeJob
	// stopped is closed by Close to ask the loop to exit.
	stopped chan struct{}
	// done is closed by the loop once it has exited; nothing runs after that.
	done      chan struct{}
	closeOnce sync.Once
}

// NewWriter starts the writer goroutine for resource. Call Close to stop it.
func NewWriter(store Store, resource string, opts WriterOptions) *Writer {
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 10 * time.Millisecond
	}
	if opts.MaxConflictRetries < 0 {
		opts.MaxConflictRetries = 0
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	w := &Writer{
		store:    store,
		resource: resource,
		opts:     opts,
		logger:   logger.With("component", "docstore.writer", "resource", resource),
		jobs:     make(chan *writeJob, opts.QueueSize),
		stopped:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.loop()
	return w
}

// Resource returns the resource this writer owns.
func (w *Writer) Resource() string { return w.resource }

// Update queues a read-modify-write of the resource and waits for its outcome.
// If ctx ends while the job is still queued or running, Update returns ctx.Err();
// a job already running is not interrupted mid-Put, but its retries stop.
func (w *Writer) Update(ctx context.Context, mutate Mutator) error {
	job := &writeJob{ctx: ctx, mutate: mutate, result: make(chan error, 1)}

	select {
	case w.jobs <- job:
	case <-w.stopped:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-job.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-w.done:
		// The loop may have finished this job just before exiting.
		select {
		case err := <-job.result:
			return err
		default:
			return ErrClosed
		}
	}
}

// Close stops the writer after the update in progress, if any. Queued updates
// that have not started fail with ErrClosed.
func (w *Writer) Close() {
	w.closeOnce.Do(func() { close(w.stopped) })
	<-w.done
}

func (w *Writer) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.stopped:
			return
		case job := <-w.jobs:
			job.result <- w.run(job)
		}
	}
}

func (w *Writer) run(job *writeJob) error {
	// The caller may have given up while the job waited in the queue.
	if err := job.ctx.Err(); err != nil {
		return err
	}

	attempt := 0
	backoff := retry.WithMaxRetries(uint64(w.opts.MaxConflictRetries), retry.NewConstant(w.opts.RetryDelay))
	return retry.Do(job.ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := w.apply(ctx, job.mutate)
		// Only a lost version race is worth retrying. Store outages and Mutator
		// errors go straight back to the caller.
		if errors.Is(err, ErrVersionConflict) {
			w.logger.Debug("version conflict, retrying read-modify-write", "attempt", attempt)
			return retry.RetryableError(err)
		}
		return err
	})
}

// apply performs one read-modify-write attempt.
func (w *Writer) apply(ctx context.Context, mutate Mutator) error {
	var (
		current []byte
		version string
		exists  bool
	)
	doc, err := w.store.Get(ctx, w.resource)
	switch {
	case err == nil:
		current, version, exists = doc.Body, doc.Version, true
	case errors.Is(err, ErrNotFound):
	default:
		return err
	}

	next, err := mutate(current, exists)
	if errors.Is(err, ErrSkipWrite) {
		return nil
	}
	if err != nil {
		return err
	}

	// Backends that cannot do conditional writes ignore cond.
	cond := Condition{IfMatch: version}
	if !exists {
		cond = Condition{IfAbsent: true}
	}
	_, err = w.store.Put(ctx, w.resource, next, cond)
	return err
}

// Writers hands out one Writer per resource over a shared store.
type Writers struct {
	store Store
	opts  WriterOptions

	mu      sync.Mutex
	writers map[string]*Writer
}

// NewWriters returns an empty set; writers start lazily in For.
func NewWriters(store Store, opts WriterOptions) *Writers {
	return &Writers{store: store, opts: opts, writers: make(map[string]*Writer)}
}

// Store returns the underlying store for reads.
func (ws *Writers) Store() Store { return ws.store }

// For returns the Writer for resource, starting it on first use.
func (ws *Writers) For(resource string) *Writer {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	w, ok := ws.writers[resource]
	if !ok {
		w = NewWriter(ws.store, resource, ws.opts)
		ws.writers[resource] = w
	}
	return w
}

// Close stops every writer.
func (ws *Writers) Close() {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	for name, w := range ws.writers {
		w.Close()
		delete(ws.writers, name)
	}
}
