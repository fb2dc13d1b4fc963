package transition

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/udisondev/towergate/internal/model"
)

// Session prepares per-entity data that admission and exit checks depend on.
type Session interface {
	// Preload runs on a worker goroutine when an untracked entity joins.
	// The returned apply func runs on the owning goroutine before the join
	// is processed. apply may be non-nil even when err is not.
	Preload(ctx context.Context, entity model.EntityID) (apply func(), err error)
	// Release runs on the owning goroutine after the entity disconnected.
	Release(entity model.EntityID)
}

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	QueueSize int   // inbox capacity (default 1024)
	Workers   int64 // concurrent async jobs (default 4)
	Session   Session
}

type pending struct {
	update model.PositionUpdate
	reply  func(Verdict)
}

// Dispatcher owns a Controller and runs it on a single goroutine. Updates,
// scheduled callbacks and async job results are all applied from one FIFO
// queue, so updates of one entity are processed in the order received and
// the controller needs no locking.
//
// Blocking work (loading or persisting progression) runs through Go on a
// bounded worker pool; its result is applied back on the owning goroutine.
// While an async preload for a joining entity is in flight, later updates of
// that entity are parked and replayed in order once it completes.
type Dispatcher struct {
	ctrl    *Controller
	session Session

	queue chan func()
	sem   *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc

	startMu sync.Mutex // held while Exclusive runs inline
	started atomic.Bool
	done    chan struct{}
	jobs    sync.WaitGroup

	// Owned by the Run goroutine.
	parked map[model.EntityID][]pending
}

// NewDispatcher creates a Dispatcher for ctrl. Call Run to start it.
func NewDispatcher(ctrl *Controller, opts DispatcherOptions) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		ctrl:    ctrl,
		session: opts.Session,
		queue:   make(chan func(), opts.QueueSize),
		sem:     semaphore.NewWeighted(opts.Workers),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		parked:  make(map[model.EntityID][]pending),
	}
}

// Controller returns the owned controller. Only touch it from closures run
// through Do or Schedule.
func (d *Dispatcher) Controller() *Controller {
	return d.ctrl
}

// Run processes the queue until ctx is canceled (blocks).
func (d *Dispatcher) Run(ctx context.Context) error {
	d.startMu.Lock()
	first := d.started.CompareAndSwap(false, true)
	d.startMu.Unlock()
	if !first {
		return fmt.Errorf("dispatcher: %w", ErrDispatcherClosed)
	}
	defer func() {
		close(d.done)
		d.cancel()
		d.jobs.Wait()
	}()

	slog.Info("zone dispatcher started", "queue", cap(d.queue))

	for {
		select {
		case <-ctx.Done():
			slog.Info("zone dispatcher stopping", "pending", len(d.queue), "parked", len(d.parked))
			return ctx.Err()
		case fn := <-d.queue:
			d.safeRun(fn)
		}
	}
}

// Submit enqueues a position update. reply, if non-nil, is called with the
// verdict on the owning goroutine.
func (d *Dispatcher) Submit(ctx context.Context, u model.PositionUpdate, reply func(Verdict)) error {
	return d.enqueue(ctx, func() { d.dispatch(u, reply) })
}

// Handle submits u and waits for its verdict.
func (d *Dispatcher) Handle(ctx context.Context, u model.PositionUpdate) (Verdict, error) {
	ch := make(chan Verdict, 1)
	if err := d.Submit(ctx, u, func(v Verdict) { ch <- v }); err != nil {
		return Verdict{}, err
	}

	select {
	case v := <-ch:
		return v, nil
	case <-ctx.Done():
		return Verdict{}, ctx.Err()
	case <-d.done:
		return Verdict{}, ErrDispatcherClosed
	}
}

// Schedule runs fn on the owning goroutine without waiting for it.
func (d *Dispatcher) Schedule(ctx context.Context, fn func()) error {
	return d.enqueue(ctx, fn)
}

// Do runs fn on the owning goroutine and waits until it returns.
func (d *Dispatcher) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := d.enqueue(ctx, func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.done:
		return ErrDispatcherClosed
	}
}

// Exclusive runs fn while no update is being processed: inline if Run has
// not started yet, otherwise on the owning goroutine like Do.
func (d *Dispatcher) Exclusive(ctx context.Context, fn func()) error {
	d.startMu.Lock()
	if !d.started.Load() {
		defer d.startMu.Unlock()
		fn()
		return nil
	}
	d.startMu.Unlock()
	return d.Do(ctx, fn)
}

// Go runs job on the worker pool. The func it returns, if any, is applied
// on the owning goroutine. Errors are logged.
func (d *Dispatcher) Go(job func(ctx context.Context) (func(), error)) {
	d.jobs.Add(1)
	go func() {
		defer d.jobs.Done()

		if err := d.sem.Acquire(d.ctx, 1); err != nil {
			return
		}
		apply, err := runJob(d.ctx, job)
		d.sem.Release(1)

		if err != nil {
			slog.Error("zone async job failed", "err", err)
		}
		if apply == nil {
			return
		}
		if err := d.enqueue(d.ctx, apply); err != nil {
			slog.Debug("zone async result dropped", "err", err)
		}
	}()
}

func runJob(ctx context.Context, job func(ctx context.Context) (func(), error)) (apply func(), err error) {
	defer func() {
		if r := recover(); r != nil {
			apply, err = nil, fmt.Errorf("job panic: %v", r)
		}
	}()
	return job(ctx)
}

func (d *Dispatcher) enqueue(ctx context.Context, fn func()) error {
	select {
	case <-d.done:
		return ErrDispatcherClosed
	default:
	}

	select {
	case d.queue <- fn:
		return nil
	case <-d.done:
		return ErrDispatcherClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) safeRun(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("zone dispatcher task panicked", "panic", r)
		}
	}()
	fn()
}

func (d *Dispatcher) dispatch(u model.PositionUpdate, reply func(Verdict)) {
	if q, parked := d.parked[u.Entity]; parked {
		d.parked[u.Entity] = append(q, pending{update: u, reply: reply})
		return
	}

	if u.Cause == model.CauseJoin && d.session != nil {
		if _, tracked := d.ctrl.State(u.Entity); !tracked {
			d.park(u, reply)
			return
		}
	}

	d.deliver(u, reply)
}

func (d *Dispatcher) park(u model.PositionUpdate, reply func(Verdict)) {
	entity := u.Entity
	d.parked[entity] = []pending{{update: u, reply: reply}}

	d.Go(func(ctx context.Context) (func(), error) {
		apply, err := d.session.Preload(ctx, entity)
		return func() {
			if apply != nil {
				apply()
			}
			d.unpark(entity)
		}, err
	})
}

// unpark replays an entity's parked updates in order. The first one is the
// join that triggered the preload and is delivered directly.
func (d *Dispatcher) unpark(entity model.EntityID) {
	q := d.parked[entity]
	delete(d.parked, entity)
	if len(q) == 0 {
		return
	}

	d.deliver(q[0].update, q[0].reply)
	rest := q[1:]
	for i, p := range rest {
		d.dispatch(p.update, p.reply)
		if _, again := d.parked[entity]; again {
			d.parked[entity] = append(d.parked[entity], rest[i+1:]...)
			return
		}
	}
}

func (d *Dispatcher) deliver(u model.PositionUpdate, reply func(Verdict)) {
	v := d.route(u)
	if reply != nil {
		reply(v)
	}
}

func (d *Dispatcher) route(u model.PositionUpdate) Verdict {
	switch u.Cause {
	case model.CauseQuit:
		d.ctrl.OnDisconnect(u.Entity)
		if d.session != nil {
			d.session.Release(u.Entity)
		}
		return Accepted()
	case model.CauseDeath:
		d.ctrl.OnDeath(u.Entity)
		return Accepted()
	default:
		return d.ctrl.OnPositionUpdate(u)
	}
}
