// Package jobs runs cross validation in the background. Every job has a cancellable context,
// reports progress as cutoffs complete and is kept for a while after it finishes so clients can
// poll for the result.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aouyang1/go-forecaster-studio/pipeline"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	DefaultTTL   = 30 * time.Minute
	DefaultRate  = 1.0
	DefaultBurst = 4
)

var (
	ErrJobNotFound   = errors.New("job not found")
	ErrRateLimited   = errors.New("too many jobs, try again later")
	ErrJobFinished   = errors.New("job already finished")
	ErrManagerClosed = errors.New("job manager closed")
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// Terminal reports whether the status can no longer change
func (s Status) Terminal() bool {
	return s != StatusRunning
}

// RunFunc does the work of a job. progress may be called from any goroutine but calls must be
// serialized by the caller.
type RunFunc func(ctx context.Context, progress func(done, total int)) (*pipeline.MetricsOutput, error)

// Observer is notified when jobs start and finish
type Observer interface {
	JobStarted()
	JobFinished(status string)
}

type Options struct {
	TTL      time.Duration
	Rate     float64
	Burst    int
	Observer Observer
}

// Snapshot is a copy of the state of a job at a point in time
type Snapshot struct {
	ID        string                  `json:"id"`
	DatasetID string                  `json:"dataset_id"`
	Status    Status                  `json:"status"`
	Done      int                     `json:"done"`
	Total     int                     `json:"total"`
	Result    *pipeline.MetricsOutput `json:"result,omitempty"`
	Error     string                  `json:"error,omitempty"`
	Err       error                   `json:"-"`
	Created   time.Time               `json:"created"`
	Finished  time.Time               `json:"finished,omitzero"`
}

type job struct {
	snap    Snapshot
	cancel  context.CancelFunc
	changed chan struct{}
}

// notify wakes every watcher. Must hold the manager lock.
func (j *job) notify() {
	close(j.changed)
	j.changed = make(chan struct{})
}

// Manager owns the running and recently finished jobs
type Manager struct {
	mu      sync.Mutex
	jobs    map[string]*job
	limiter *rate.Limiter
	ttl     time.Duration
	obs     Observer
	nowFunc func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

func NewManager(opt Options) *Manager {
	if opt.TTL <= 0 {
		opt.TTL = DefaultTTL
	}
	if opt.Rate <= 0 {
		opt.Rate = DefaultRate
	}
	if opt.Burst <= 0 {
		opt.Burst = DefaultBurst
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		jobs:    make(map[string]*job),
		limiter: rate.NewLimiter(rate.Limit(opt.Rate), opt.Burst),
		ttl:     opt.TTL,
		obs:     opt.Observer,
		nowFunc: time.Now,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Submit starts fn in the background and returns the initial snapshot of the job
func (m *Manager) Submit(datasetID string, fn RunFunc) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return Snapshot{}, ErrManagerClosed
	}
	m.pruneLocked()
	if !m.limiter.Allow() {
		return Snapshot{}, ErrRateLimited
	}

	ctx, cancel := context.WithCancel(m.ctx)
	j := &job{
		snap: Snapshot{
			ID:        uuid.NewString(),
			DatasetID: datasetID,
			Status:    StatusRunning,
			Created:   m.nowFunc(),
		},
		cancel:  cancel,
		changed: make(chan struct{}),
	}
	m.jobs[j.snap.ID] = j
	if m.obs != nil {
		m.obs.JobStarted()
	}

	m.wg.Add(1)
	go m.run(ctx, j, fn)

	slog.Info("job submitted", "id", j.snap.ID, "dataset_id", datasetID)
	return j.snap, nil
}

func (m *Manager) run(ctx context.Context, j *job, fn RunFunc) {
	defer m.wg.Done()
	defer j.cancel()

	progress := func(done, total int) {
		m.mu.Lock()
		defer m.mu.Unlock()
		j.snap.Done = done
		j.snap.Total = total
		j.notify()
	}

	res, err := fn(ctx, progress)

	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case err == nil:
		j.snap.Status = StatusSucceeded
		j.snap.Result = res
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		j.snap.Status = StatusCanceled
		j.snap.Err = err
		j.snap.Error = err.Error()
	default:
		j.snap.Status = StatusFailed
		j.snap.Err = err
		j.snap.Error = err.Error()
	}
	j.snap.Finished = m.nowFunc()
	j.notify()
	if m.obs != nil {
		m.obs.JobFinished(string(j.snap.Status))
	}
	slog.Info("job finished", "id", j.snap.ID, "status", j.snap.Status, "error", j.snap.Error)
}

// Get returns the current snapshot of a job
func (m *Manager) Get(id string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pruneLocked()
	j, ok := m.jobs[id]
	if !ok {
		return Snapshot{}, ErrJobNotFound
	}
	return j.snap, nil
}

// Cancel stops a running job. The job reports StatusCanceled once its work returns.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if j.snap.Status.Terminal() {
		return ErrJobFinished
	}
	j.cancel()
	return nil
}

// Watch streams a snapshot on every change of the job, starting with its current state. The
// channel is closed after the terminal snapshot or once ctx is done. Intermediate snapshots
// may be skipped by a slow reader.
func (m *Manager) Watch(ctx context.Context, id string) (<-chan Snapshot, error) {
	m.mu.Lock()
	j, ok := m.jobs[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrJobNotFound
	}

	out := make(chan Snapshot)
	go func() {
		defer close(out)
		for {
			m.mu.Lock()
			snap, changed := j.snap, j.changed
			m.mu.Unlock()

			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
			if snap.Status.Terminal() {
				return
			}

			select {
			case <-changed:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Prune removes the jobs that finished more than the TTL ago
func (m *Manager) Prune() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pruneLocked()
}

func (m *Manager) pruneLocked() int {
	now := m.nowFunc()
	var removed int
	for id, j := range m.jobs {
		if !j.snap.Status.Terminal() {
			continue
		}
		if now.Sub(j.snap.Finished) > m.ttl {
			delete(m.jobs, id)
			removed++
		}
	}
	return removed
}

// Close cancels every running job and waits for them to return
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
}
