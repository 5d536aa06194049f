package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/kalambet/redpersona/internal/gateway"
	"github.com/kalambet/redpersona/internal/persona"
	"github.com/kalambet/redpersona/internal/validate"
)

// ErrBusy is returned by Analyze while another analysis is in flight.
var ErrBusy = errors.New("an analysis is already running")

// Gateway is the remote persona service.
type Gateway interface {
	ListPersonas(ctx context.Context) ([]persona.Persona, error)
	SubmitAnalysis(ctx context.Context, redditURL string) (persona.Persona, error)
	FetchReport(ctx context.Context, personaID string) ([]byte, error)
}

// ReportSink stores downloaded report bytes and returns where they went.
type ReportSink interface {
	Save(personaID string, data []byte) (string, error)
}

// Listener receives a snapshot after every state or cache change. Listeners are
// called one at a time in change order and must not call Submit, Refresh or Export
// synchronously.
type Listener func(Snapshot)

// Controller owns the workflow state and the persona list cache.
type Controller struct {
	gateway Gateway
	sink    ReportSink
	logger  *slog.Logger

	// inflight holds the single analysis slot.
	inflight *semaphore.Weighted
	tasks    sync.WaitGroup

	// emitMu serialises change+notify so listeners see snapshots in order.
	emitMu sync.Mutex

	mu        sync.Mutex
	state     State
	submitted uint64
	personas  []persona.Persona
	listeners map[int]Listener
	nextID    int
	onExport  func(ExportResult)
}

// New creates a Controller in PhaseIdle with an empty cache.
func New(gw Gateway, sink ReportSink) *Controller {
	return &Controller{
		gateway:   gw,
		sink:      sink,
		logger:    slog.Default(),
		inflight:  semaphore.NewWeighted(1),
		listeners: make(map[int]Listener),
	}
}

// SetLogger replaces the logger used for background failures.
func (c *Controller) SetLogger(l *slog.Logger) {
	if l != nil {
		c.logger = l
	}
}

// OnExport registers fn to observe finished exports. It does not affect state.
func (c *Controller) OnExport(fn func(ExportResult)) {
	c.mu.Lock()
	c.onExport = fn
	c.mu.Unlock()
}

// Snapshot returns the current state and cache.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:    c.state,
		Personas: append([]persona.Persona(nil), c.personas...),
	}
}

// Subscribe registers fn for change notifications and returns a function that
// removes it.
func (c *Controller) Subscribe(fn Listener) (cancel func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// Wait blocks until every dispatched background task has finished.
func (c *Controller) Wait() {
	c.tasks.Wait()
}

// WaitContext is Wait bounded by ctx. Tasks still running when ctx ends are left
// to finish on their own.
func (c *Controller) WaitContext(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.tasks.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit validates input and, when valid, starts an analysis in the background.
// It returns false without any effect when an analysis is already in flight.
func (c *Controller) Submit(ctx context.Context, input string) bool {
	_, ok := c.submit(ctx, input)
	return ok
}

// Analyze submits input and blocks until that submission settles, returning its
// terminal state. It returns ErrBusy when another analysis holds the slot. When ctx
// ends first it returns ctx.Err() and the analysis keeps running.
func (c *Controller) Analyze(ctx context.Context, input string) (State, error) {
	var (
		mu      sync.Mutex
		settled = make(map[uint64]State)
		wake    = make(chan struct{}, 1)
	)
	cancel := c.Subscribe(func(s Snapshot) {
		if s.State.Submission == 0 || s.State.Phase.Busy() {
			return
		}
		mu.Lock()
		settled[s.State.Submission] = s.State
		mu.Unlock()
		select {
		case wake <- struct{}{}:
		default:
		}
	})
	defer cancel()

	id, ok := c.submit(ctx, input)
	if !ok {
		return State{}, ErrBusy
	}
	for {
		mu.Lock()
		st, done := settled[id]
		mu.Unlock()
		if done {
			return st, nil
		}
		select {
		case <-wake:
		case <-ctx.Done():
			return State{}, ctx.Err()
		}
	}
}

func (c *Controller) submit(ctx context.Context, input string) (uint64, bool) {
	if !c.inflight.TryAcquire(1) {
		c.logger.Debug("submit dropped, analysis in flight")
		return 0, false
	}

	var id uint64
	c.update(func() {
		c.submitted++
		id = c.submitted
		c.state = State{Phase: PhaseValidating, Persona: c.state.Persona, Submission: id}
	})

	redditURL, err := validate.RedditURL(input)
	if err != nil {
		c.logger.Debug("input rejected", "error", err)
		c.update(func() {
			c.state = State{Phase: PhaseFailure, Persona: c.state.Persona, Message: validate.Message, Submission: id}
			c.inflight.Release(1)
		})
		return id, true
	}

	c.update(func() {
		c.state = State{Phase: PhaseAnalyzing, Submission: id}
	})

	bg := context.WithoutCancel(ctx)
	c.goTask("analyze", func() {
		finished := false
		defer func() {
			if !finished {
				c.finishAnalysis(State{Phase: PhaseFailure, Message: gateway.FallbackAnalysisMessage, Submission: id})
			}
		}()

		p, err := c.gateway.SubmitAnalysis(bg, redditURL)
		if err != nil {
			c.logger.Warn("analysis failed", "url", redditURL, "error", err)
			finished = true
			c.finishAnalysis(State{Phase: PhaseFailure, Message: failureMessage(err), Submission: id})
			return
		}

		finished = true
		c.finishAnalysis(State{Phase: PhaseSuccess, Persona: &p, Submission: id})
		c.refresh(bg)
	})
	return id, true
}

// finishAnalysis publishes the terminal state and frees the analysis slot in the
// same step, so a follow-up Submit never observes a stale Analyzing phase.
func (c *Controller) finishAnalysis(s State) {
	c.update(func() {
		c.state = s
		c.inflight.Release(1)
	})
}

func failureMessage(err error) string {
	var ae *gateway.AnalysisError
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return gateway.FallbackAnalysisMessage
}

// Refresh reloads the persona list in the background. Failures are logged and the
// cache is left as it was.
func (c *Controller) Refresh(ctx context.Context) {
	bg := context.WithoutCancel(ctx)
	c.goTask("refresh", func() {
		c.refresh(bg)
	})
}

func (c *Controller) refresh(ctx context.Context) {
	if err := c.Reload(ctx); err != nil {
		c.logger.Warn("refreshing persona list failed", "error", err)
	}
}

// Reload fetches the persona list and replaces the cache with it. On error the
// cache is unchanged and no listener is notified.
func (c *Controller) Reload(ctx context.Context) error {
	list, err := c.gateway.ListPersonas(ctx)
	if err != nil {
		return err
	}
	c.update(func() {
		c.personas = list
	})
	return nil
}

// Export downloads the report for personaID in the background and hands it to the
// sink. Failures are logged; state and cache are never touched.
func (c *Controller) Export(ctx context.Context, personaID string) {
	bg := context.WithoutCancel(ctx)
	c.goTask("export", func() {
		path, err := c.ExportReport(bg, personaID)
		if err != nil {
			c.logger.Warn("exporting report failed", "persona_id", personaID, "error", err)
		}

		c.mu.Lock()
		fn := c.onExport
		c.mu.Unlock()
		if fn != nil {
			fn(ExportResult{PersonaID: personaID, Path: path, Err: err})
		}
	})
}

// ExportReport downloads the report for personaID and saves it through the sink,
// returning the saved path.
func (c *Controller) ExportReport(ctx context.Context, personaID string) (string, error) {
	data, err := c.gateway.FetchReport(ctx, personaID)
	if err != nil {
		return "", err
	}
	path, err := c.sink.Save(personaID, data)
	if err != nil {
		return "", fmt.Errorf("saving report: %w", err)
	}
	c.logger.Info("report exported", "persona_id", personaID, "path", path, "bytes", len(data))
	return path, nil
}

// update applies fn under the state lock and notifies listeners with the result.
func (c *Controller) update(fn func()) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	fn()
	snap := c.snapshotLocked()
	listeners := make([]Listener, 0, len(c.listeners))
	for id := 0; id < c.nextID; id++ {
		if l, ok := c.listeners[id]; ok {
			listeners = append(listeners, l)
		}
	}
	c.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

// goTask runs fn as a tracked background task. A panic is logged, not propagated.
func (c *Controller) goTask(name string, fn func()) {
	c.tasks.Add(1)
	go func() {
		defer c.tasks.Done()
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("background task panic", "task", name, "panic", r, "stack", string(debug.Stack()))
			}
		}()
		fn()
	}()
}
