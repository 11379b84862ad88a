// Package console implements the view-state machine of the operator console:
// which view is on screen, which refresh is pending, and what is abandoned
// when the operator navigates.
//
// A Controller owns one event loop. Operator events, fetch completions and
// poll ticks are all handled on that loop, so swapping the main region is
// atomic with respect to other transitions. Every transition bumps a
// generation; fetch results and ticks issued under an older generation are
// discarded.
package console

import (
    "context"
    "errors"
    "fmt"
    "log"
    "strconv"
    "sync"
    "sync/atomic"
    "time"

    "github.com/amirimatin/queue-console/pkg/adminapi"
    "github.com/amirimatin/queue-console/pkg/internal/logutil"
    obsmetrics "github.com/amirimatin/queue-console/pkg/observability/metrics"
    "github.com/amirimatin/queue-console/pkg/observability/tracing"
)

// DefaultPollInterval is the delay between raft log refreshes.
const DefaultPollInterval = 100 * time.Millisecond

// FetchFunc produces the data a view is rendered from.
type FetchFunc func(ctx context.Context) (any, error)

// Renderer turns a view's data into markup using the template named after
// the view.
type Renderer interface {
    Render(name string, data any) (string, error)
}

// Options configure a Controller.
type Options struct {
    Fetcher  adminapi.Fetcher
    Renderer Renderer
    Document Document
    Logger   *log.Logger

    // PollInterval is the delay before the raft log view re-fetches itself.
    // Zero means DefaultPollInterval.
    PollInterval time.Duration
    // InitialView is entered when Run starts. Empty means raftState.
    InitialView ViewName
}

// Validate checks required collaborators.
func (o Options) Validate() error {
    if o.Fetcher == nil { return errors.New("console: nil Fetcher") }
    if o.Renderer == nil { return errors.New("console: nil Renderer") }
    if o.Document == nil { return errors.New("console: nil Document") }
    return nil
}

// appState is mutated only on the loop goroutine.
type appState struct {
    gen         uint64
    poll        *PollHandle
    cancelFetch context.CancelFunc
    chrome      *Scope
    main        *Scope
}

// Controller is the console state machine.
type Controller struct {
    opts   Options
    log    *log.Logger
    sched  *Scheduler
    binder *Binder

    events  chan any
    started chan struct{}
    done    chan struct{}
    running atomic.Bool
    loopCtx context.Context

    st appState

    mu         sync.RWMutex
    current    View
    pollActive bool
}

type (
    showEvent struct {
        name  ViewName
        reply chan error
    }
    userEvent struct {
        ev    Event
        reply chan error
    }
    resultEvent struct {
        gen  uint64
        name ViewName
        data any
        err  error
    }
    tickEvent struct{ gen uint64 }
)

// New validates opts and returns an idle controller; call Run to start it.
func New(opts Options) (*Controller, error) {
    if err := opts.Validate(); err != nil { return nil, err }
    if opts.PollInterval <= 0 { opts.PollInterval = DefaultPollInterval }
    if opts.InitialView == "" { opts.InitialView = ViewRaftState }
    if _, err := ParseViewName(string(opts.InitialView)); err != nil { return nil, err }
    c := &Controller{
        opts:   opts,
        log:    logutil.Component(opts.Logger, "console"),
        sched:  NewScheduler(),
        events:  make(chan any, 64),
        started: make(chan struct{}),
        done:    make(chan struct{}),
    }
    c.binder = NewBinder(c.routes())
    return c, nil
}

// Run binds the chrome, enters the initial view and processes events until
// ctx is done. It may be called once.
func (c *Controller) Run(ctx context.Context) error {
    if !c.running.CompareAndSwap(false, true) { return errors.New("console: already running") }
    close(c.started)
    defer close(c.done)
    ctx, cancel := context.WithCancel(ctx)
    defer cancel()
    c.loopCtx = ctx

    chrome, err := c.binder.Bind("chrome", c.opts.Document.Chrome())
    if err != nil { return err }
    c.st.chrome = chrome
    if err := c.navigate(c.opts.InitialView); err != nil { return err }
    logutil.Infof(c.log, "console started: view=%s poll=%s", c.opts.InitialView, c.opts.PollInterval)

    for {
        select {
        case <-ctx.Done():
            c.stopPoll()
            if c.st.cancelFetch != nil { c.st.cancelFetch() }
            return nil
        case e := <-c.events:
            c.handle(e)
        }
    }
}

// Started is closed once Run has begun; from then on Show and Dispatch are
// queued for the loop instead of failing with ErrNotRunning.
func (c *Controller) Started() <-chan struct{} { return c.started }

// Show navigates to name as if its chrome link had been clicked.
func (c *Controller) Show(ctx context.Context, name ViewName) error {
    reply := make(chan error, 1)
    return c.request(ctx, showEvent{name: name, reply: reply}, reply)
}

// Dispatch delivers an operator event. It returns ErrNoBinding when nothing
// on screen matches the event's trigger, or the handler's error.
func (c *Controller) Dispatch(ctx context.Context, ev Event) error {
    reply := make(chan error, 1)
    return c.request(ctx, userEvent{ev: ev, reply: reply}, reply)
}

// Current returns the view last swapped into the main region.
func (c *Controller) Current() View {
    c.mu.RLock()
    defer c.mu.RUnlock()
    return c.current
}

// PollActive reports whether a raft log refresh is scheduled.
func (c *Controller) PollActive() bool {
    c.mu.RLock()
    defer c.mu.RUnlock()
    return c.pollActive
}

// ChromeTriggers lists the bindings of the navigation chrome.
func (c *Controller) ChromeTriggers() []Trigger { return c.scopeTriggers(func() *Scope { return c.st.chrome }) }

// MainTriggers lists the bindings of the current main region.
func (c *Controller) MainTriggers() []Trigger { return c.scopeTriggers(func() *Scope { return c.st.main }) }

func (c *Controller) scopeTriggers(pick func() *Scope) []Trigger {
    if !c.running.Load() { return nil }
    out := make(chan []Trigger, 1)
    if !c.post(func() { out <- pick().Triggers() }) { return nil }
    select {
    case t := <-out:
        return t
    case <-c.done:
        return nil
    }
}

func (c *Controller) request(ctx context.Context, e any, reply chan error) error {
    if !c.running.Load() { return ErrNotRunning }
    select {
    case c.events <- e:
    case <-c.done:
        return ErrStopped
    case <-ctx.Done():
        return ctx.Err()
    }
    select {
    case err := <-reply:
        return err
    case <-c.done:
        return ErrStopped
    case <-ctx.Done():
        return ctx.Err()
    }
}

// post enqueues e unless the loop has exited.
func (c *Controller) post(e any) bool {
    select {
    case c.events <- e:
        return true
    case <-c.done:
        return false
    }
}

func (c *Controller) handle(e any) {
    switch e := e.(type) {
    case showEvent:
        e.reply <- c.navigate(e.name)
    case userEvent:
        e.reply <- c.dispatch(e.ev)
    case resultEvent:
        c.complete(e)
    case tickEvent:
        c.tick(e)
    case func():
        e()
    }
}

func (c *Controller) dispatch(ev Event) error {
    h, ok := c.st.main.Lookup(ev.Trigger)
    if !ok { h, ok = c.st.chrome.Lookup(ev.Trigger) }
    if !ok {
        obsmetrics.BindingMisses.Inc()
        return fmt.Errorf("%w: %s", ErrNoBinding, ev.Trigger)
    }
    return h(ev)
}

// showView cancels the pending poll and any in-flight fetch, then fetches
// data for name in the background. The result is applied by complete.
func (c *Controller) showView(name ViewName, fetch FetchFunc) {
    c.stopPoll()
    if c.st.cancelFetch != nil { c.st.cancelFetch() }
    c.st.gen++
    gen := c.st.gen
    ctx, cancel := context.WithCancel(c.loopCtx)
    c.st.cancelFetch = cancel
    go func() {
        ctx, end := tracing.StartSpan(ctx, "console.show", "view", string(name))
        data, err := fetch(ctx)
        end()
        c.post(resultEvent{gen: gen, name: name, data: data, err: err})
    }()
}

func (c *Controller) complete(r resultEvent) {
    if r.gen != c.st.gen {
        obsmetrics.StaleResults.Inc()
        return
    }
    if c.st.cancelFetch != nil {
        c.st.cancelFetch()
        c.st.cancelFetch = nil
    }
    if r.err != nil {
        obsmetrics.ViewFailures.WithLabelValues(string(r.name), "fetch").Inc()
        logutil.Warnf(c.log, "view %s: fetch failed: %v", r.name, r.err)
        return
    }
    markup, err := c.opts.Renderer.Render(string(r.name), r.data)
    if err != nil {
        obsmetrics.ViewFailures.WithLabelValues(string(r.name), "render").Inc()
        logutil.Warnf(c.log, "view %s: %v", r.name, err)
        return
    }
    scope, err := c.binder.Bind("main", markup)
    if err != nil {
        obsmetrics.ViewFailures.WithLabelValues(string(r.name), "bind").Inc()
        logutil.Warnf(c.log, "view %s: %v", r.name, err)
        return
    }
    if err := c.opts.Document.ReplaceMain(r.name, markup); err != nil {
        obsmetrics.ViewFailures.WithLabelValues(string(r.name), "swap").Inc()
        logutil.Warnf(c.log, "view %s: replace main: %v", r.name, err)
        return
    }
    c.st.main = scope
    obsmetrics.ViewRenders.WithLabelValues(string(r.name)).Inc()
    if r.name.Live() { c.schedulePoll() }

    // published last so a reader that sees the view also sees its poll
    c.mu.Lock()
    c.current = View{Name: r.name, Data: r.data}
    c.mu.Unlock()
}

func (c *Controller) schedulePoll() {
    gen := c.st.gen
    c.st.poll = c.sched.Schedule(c.opts.PollInterval, func() { c.post(tickEvent{gen: gen}) })
    c.setPollActive(true)
}

func (c *Controller) tick(t tickEvent) {
    if t.gen != c.st.gen || c.st.poll == nil {
        obsmetrics.StaleResults.Inc()
        return
    }
    c.st.poll = nil
    c.setPollActive(false)
    obsmetrics.PollTicks.Inc()
    c.showView(ViewRaftLog, c.fetcherFor(ViewRaftLog))
}

func (c *Controller) stopPoll() {
    if c.st.poll == nil { return }
    c.sched.Cancel(c.st.poll)
    c.st.poll = nil
    c.setPollActive(false)
}

func (c *Controller) setPollActive(v bool) {
    c.mu.Lock()
    c.pollActive = v
    c.mu.Unlock()
    if v { obsmetrics.PollActive.Set(1) } else { obsmetrics.PollActive.Set(0) }
}

// navigate enters a view reachable from a navigation link.
func (c *Controller) navigate(name ViewName) error {
    fetch := c.fetcherFor(name)
    if fetch == nil { return fmt.Errorf("%w: %s is not navigable", ErrUnknownView, name) }
    c.showView(name, fetch)
    return nil
}

// fetcherFor returns the data source of a navigable view. benchmarkResult
// has none: it is only entered by submitting the benchmark form.
func (c *Controller) fetcherFor(name ViewName) FetchFunc {
    f := c.opts.Fetcher
    switch name {
    case ViewSettings:
        return func(ctx context.Context) (any, error) { return f.FetchSettings(ctx) }
    case ViewRaftState:
        return func(ctx context.Context) (any, error) { return f.FetchRaftState(ctx) }
    case ViewRaftLog:
        return func(ctx context.Context) (any, error) { return f.FetchRaftLog(ctx) }
    case ViewBlobList:
        return func(ctx context.Context) (any, error) { return f.FetchBlobList(ctx) }
    case ViewPutBlob:
        return func(context.Context) (any, error) { return adminapi.BlobRecord{}, nil }
    case ViewStartBenchmark:
        return func(context.Context) (any, error) { return nil, nil }
    default:
        return nil
    }
}

// routes is the controller's routing table for the binder.
func (c *Controller) routes() Routes {
    r := Routes{}
    for _, v := range []ViewName{ViewSettings, ViewRaftState, ViewRaftLog, ViewBlobList, ViewPutBlob, ViewStartBenchmark} {
        v := v
        r[LinkAction("#"+string(v))] = func(Event) error { return c.navigate(v) }
    }
    r[FormAction("#putBlob")] = c.submitPutBlob
    r[FormAction("#startBenchmark")] = c.submitBenchmark
    r[ButtonAction] = c.pressGetBlob
    return r
}

// submitPutBlob stores the form's key/data and then shows the blob list.
func (c *Controller) submitPutBlob(ev Event) error {
    key, data := ev.Fields.Get("key"), ev.Fields.Get("data")
    f := c.opts.Fetcher
    c.showView(ViewBlobList, func(ctx context.Context) (any, error) {
        if err := f.PutBlob(ctx, key, data); err != nil { return nil, fmt.Errorf("put blob %q: %w", key, err) }
        return f.FetchBlobList(ctx)
    })
    return nil
}

// submitBenchmark runs the benchmark described by the form and shows the
// server's result.
func (c *Controller) submitBenchmark(ev Event) error {
    requests, err := strconv.Atoi(ev.Fields.Get("requests"))
    if err != nil { return fmt.Errorf("console: requests: %w", err) }
    dataSize, err := strconv.Atoi(ev.Fields.Get("dataSize"))
    if err != nil { return fmt.Errorf("console: dataSize: %w", err) }
    req := adminapi.BenchmarkRequest{Requests: requests, DataSize: dataSize}
    f := c.opts.Fetcher
    c.showView(ViewBenchmarkResult, func(ctx context.Context) (any, error) { return f.RunBenchmark(ctx, req) })
    return nil
}

// pressGetBlob loads the pressed key's value into the put form.
func (c *Controller) pressGetBlob(ev Event) error {
    key := ev.Target
    f := c.opts.Fetcher
    c.showView(ViewPutBlob, func(ctx context.Context) (any, error) {
        data, err := f.FetchBlob(ctx, key)
        if err != nil { return nil, err }
        return adminapi.BlobRecord{Key: key, Data: data}, nil
    })
    return nil
}
