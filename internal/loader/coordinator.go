// Package loader turns "open this note" requests into store actions. Bursts of
// requests are debounced, stale completions are dropped and cancellation is
// honored up to the moment of delivery.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seokju-na/geeks-diary-sub001/internal/apperr"
	"github.com/seokju-na/geeks-diary-sub001/internal/content"
	"github.com/seokju-na/geeks-diary-sub001/internal/models"
	"github.com/seokju-na/geeks-diary-sub001/internal/store"
)

// DebounceDelay is the quiet period before a requested load starts fetching.
const DebounceDelay = 500 * time.Millisecond

// Reader is the read side of the storage collaborator.
type Reader interface {
	ReadText(ctx context.Context, path string) (string, error)
	ReadStructured(ctx context.Context, path string, v any) (found bool, err error)
}

// Phase is the coordinator's lifecycle position.
type Phase int

const (
	Idle Phase = iota
	Pending
	Delivering
	Cancelled
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Delivering:
		return "delivering"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Status is a snapshot of the coordinator. Cancelled and Failed are passed
// through on the way back to Idle, so they only show up in Last.
type Status struct {
	Phase      Phase
	Last       Phase // how the previous request ended: Delivering, Cancelled or Failed
	Ref        *models.NoteRef
	Generation uint64
}

// command is a Load (ref set) or a Cancel (ref nil). Both travel on one
// channel so they are applied in call order.
type command struct {
	ref *models.NoteRef
}

type result struct {
	gen     uint64
	ref     models.NoteRef
	content *models.NoteContent
	err     error
}

// Coordinator debounces and executes note loads.
//
// A single event loop goroutine owns the pending request, the debounce timer
// and the generation counter. Load and Cancel only enqueue a message, so they
// are safe to call from store listeners. State must not be called from a
// listener, since the loop may be the one dispatching.
type Coordinator struct {
	reader   Reader
	dispatch store.Dispatcher
	logger   *slog.Logger
	delay    time.Duration

	cmdCh    chan command
	resultCh chan result
	statusCh chan chan Status

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithDelay overrides DebounceDelay.
func WithDelay(d time.Duration) Option {
	return func(c *Coordinator) {
		if d >= 0 {
			c.delay = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// New starts a coordinator that reads through r and reports to d.
func New(r Reader, d store.Dispatcher, opts ...Option) *Coordinator {
	c := &Coordinator{
		reader:   r,
		dispatch: d,
		logger:   slog.Default(),
		delay:    DebounceDelay,
		cmdCh:    make(chan command, 64),
		resultCh: make(chan result, 4),
		statusCh: make(chan chan Status),
		stopCh:   make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.run()
	return c
}

func (c *Coordinator) run() {
	defer close(c.stopped)

	root, cancelAll := context.WithCancel(context.Background())
	defer cancelAll()

	var (
		phase       = Idle
		last        = Idle
		gen         uint64
		pending     *models.NoteRef
		timer       *time.Timer
		timerC      <-chan time.Time
		cancelFetch context.CancelFunc
	)

	// abandon stops the timer and any in-flight reads.
	abandon := func() {
		if timer != nil {
			timer.Stop()
			timer, timerC = nil, nil
		}
		if cancelFetch != nil {
			cancelFetch()
			cancelFetch = nil
		}
	}

	for {
		select {
		case <-c.stopCh:
			abandon()
			return

		case cmd := <-c.cmdCh:
			if cmd.ref != nil {
				abandon()
				gen++
				pending = cmd.ref
				phase = Pending
				timer = time.NewTimer(c.delay)
				timerC = timer.C
				c.logger.Debug("loader: load requested",
					slog.String("note_id", cmd.ref.ID), slog.Uint64("generation", gen))
				continue
			}
			if phase != Pending && phase != Delivering {
				continue
			}
			abandon()
			gen++
			pending = nil
			phase, last = Idle, Cancelled
			c.logger.Debug("loader: load cancelled", slog.Uint64("generation", gen))

		case <-timerC:
			timer, timerC = nil, nil
			if pending == nil {
				continue
			}
			ctx, cancel := context.WithCancel(root)
			cancelFetch = cancel
			phase = Delivering
			go c.fetch(ctx, gen, *pending)

		case res := <-c.resultCh:
			if res.gen != gen {
				c.logger.Debug("loader: stale completion dropped",
					slog.String("note_id", res.ref.ID),
					slog.Uint64("generation", res.gen),
					slog.Uint64("current", gen))
				continue
			}
			if cancelFetch != nil {
				cancelFetch()
				cancelFetch = nil
			}
			pending = nil
			if res.err != nil {
				phase, last = Idle, Failed
				c.logger.Warn("loader: load failed",
					slog.String("note_id", res.ref.ID), slog.String("error", res.err.Error()))
				c.deliver(store.LoadNoteContentError{NoteID: res.ref.ID, Err: res.err})
				continue
			}
			phase, last = Idle, Delivering
			c.deliver(store.LoadNoteContentComplete{Content: res.content})

		case resp := <-c.statusCh:
			st := Status{Phase: phase, Last: last, Generation: gen}
			if pending != nil {
				ref := *pending
				st.Ref = &ref
			}
			resp <- st
		}
	}
}

// deliver dispatches a load outcome. The store rejects it when a cancel
// reached the store first.
func (c *Coordinator) deliver(a store.Action) {
	if err := c.dispatch.Dispatch(a); err != nil {
		c.logger.Debug("loader: outcome not applied",
			slog.String("action", string(a.Type())), slog.String("error", err.Error()))
	}
}

// fetch reads both files concurrently and combines them once both finished.
func (c *Coordinator) fetch(ctx context.Context, gen uint64, ref models.NoteRef) {
	var (
		meta  models.NoteMetadata
		found bool
		raw   string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		found, err = c.reader.ReadStructured(gctx, ref.NoteFilePath, &meta)
		return err
	})
	g.Go(func() error {
		var err error
		raw, err = c.reader.ReadText(gctx, ref.ContentFilePath)
		return err
	})

	res := result{gen: gen, ref: ref}
	switch err := g.Wait(); {
	case ctx.Err() != nil:
		// Abandoned by Cancel, a newer Load or Close.
		return
	case err != nil:
		res.err = fmt.Errorf("loader: read note %s: %w", ref.ID, err)
	case !found:
		res.err = fmt.Errorf("loader: metadata %s: %w", ref.NoteFilePath, apperr.ErrNotFound)
	default:
		if stale := content.StaleRanges(meta.Snippets, raw); len(stale) > 0 {
			c.logger.Warn("loader: stale snippet ranges",
				slog.String("note_id", ref.ID), slog.Any("snippets", stale))
		}
		res.content = content.Assemble(meta, raw)
		res.content.NoteID = ref.ID
	}

	select {
	case c.resultCh <- res:
	case <-c.stopped:
	}
}

// Load requests the content of ref, replacing any pending request.
func (c *Coordinator) Load(ref models.NoteRef) {
	if c.closed.Load() {
		return
	}
	select {
	case c.cmdCh <- command{ref: &ref}:
	case <-c.stopped:
	}
}

// Cancel abandons a pending or delivering request. It is a no-op otherwise.
func (c *Coordinator) Cancel() {
	if c.closed.Load() {
		return
	}
	select {
	case c.cmdCh <- command{}:
	case <-c.stopped:
	}
}

// State returns the current status.
func (c *Coordinator) State() Status {
	if c.closed.Load() {
		return Status{Phase: Idle}
	}
	resp := make(chan Status, 1)
	select {
	case c.statusCh <- resp:
	case <-c.stopped:
		return Status{Phase: Idle}
	}
	select {
	case st := <-resp:
		return st
	case <-c.stopped:
		return Status{Phase: Idle}
	}
}

// Close stops the event loop and cancels in-flight reads.
func (c *Coordinator) Close() {
	if c.closed.CompareAndSwap(false, true) {
		close(c.stopCh)
	}
	<-c.stopped
}
