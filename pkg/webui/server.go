// Package webui serves the console to a browser: the page layout with the
// chrome and current main region, a long-poll endpoint for main region
// updates, and action endpoints that feed operator events to the controller.
package webui

import (
    "context"
    "crypto/tls"
    "errors"
    "log"
    "net"
    "net/http"
    "strconv"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/prometheus/client_golang/prometheus/promhttp"

    "github.com/amirimatin/queue-console/pkg/console"
    "github.com/amirimatin/queue-console/pkg/internal/logutil"
    "github.com/amirimatin/queue-console/pkg/observability/tracing"
)

const (
    defaultActionWait = 10 * time.Second
    defaultLongPoll   = 25 * time.Second
)

// Controller is the part of console.Controller the web front-end drives.
type Controller interface {
    Dispatch(ctx context.Context, ev console.Event) error
}

// Pager renders the full HTML page around chrome and main markup.
type Pager interface {
    Page(view, chrome, main string) (string, error)
}

// Server is the console's HTTP front-end.
type Server struct {
    bind   string
    srv    *http.Server
    ln     net.Listener
    logger *log.Logger
    tlsCfg *tls.Config

    // ActionWait bounds how long an action request waits for the main
    // region to change before answering 202. LongPoll bounds GET /main?since=.
    ActionWait time.Duration
    LongPoll   time.Duration
}

// NewServer binds to the given TCP address (e.g. ":8090").
func NewServer(bind string, logger *log.Logger) *Server {
    if logger == nil { logger = log.Default() }
    return &Server{bind: bind, logger: logutil.Component(logger, "webui"), ActionWait: defaultActionWait, LongPoll: defaultLongPoll}
}

// UseTLS enables TLS for the listener.
func (s *Server) UseTLS(cfg *tls.Config) *Server { s.tlsCfg = cfg; return s }

// Handler builds the router for ctrl drawing on doc.
func (s *Server) Handler(ctrl Controller, doc *console.MemoryDocument, pager Pager) http.Handler {
    h := &handlers{s: s, ctrl: ctrl, doc: doc, pager: pager}
    r := chi.NewRouter()
    r.Get("/", h.page)
    r.Get("/main", h.main)
    r.Route("/actions", func(r chi.Router) {
        r.Post("/click", h.click)
        r.Post("/submit", h.submit)
        r.Post("/press", h.press)
    })
    r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
        w.WriteHeader(http.StatusOK)
        _, _ = w.Write([]byte("ok"))
    })
    r.Handle("/metrics", promhttp.Handler())
    return r
}

// Start listens and serves until ctx is canceled.
func (s *Server) Start(ctx context.Context, ctrl Controller, doc *console.MemoryDocument, pager Pager) error {
    ln, err := net.Listen("tcp", s.bind)
    if err != nil { return err }
    if s.tlsCfg != nil { ln = tls.NewListener(ln, s.tlsCfg) }
    s.ln = ln
    s.srv = &http.Server{Handler: s.Handler(ctrl, doc, pager), ReadHeaderTimeout: 10 * time.Second}

    go func() {
        <-ctx.Done()
        _ = s.Stop(context.Background())
    }()
    go func() {
        if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
            logutil.Errorf(s.logger, "server error: %v", err)
        }
    }()
    logutil.Infof(s.logger, "console listening on %s", ln.Addr())
    return nil
}

// Addr returns the bound address once started, else the configured one.
func (s *Server) Addr() string {
    if s.ln != nil { return s.ln.Addr().String() }
    return s.bind
}

// Stop attempts a graceful shutdown with a short timeout.
func (s *Server) Stop(ctx context.Context) error {
    if s.srv == nil { return nil }
    c, cancel := context.WithTimeout(ctx, 2*time.Second)
    defer cancel()
    return s.srv.Shutdown(c)
}

type handlers struct {
    s     *Server
    ctrl  Controller
    doc   *console.MemoryDocument
    pager Pager
}

func (h *handlers) page(w http.ResponseWriter, r *http.Request) {
    view, main, _ := h.doc.Main()
    out, err := h.pager.Page(string(view), h.doc.Chrome(), main)
    if err != nil { http.Error(w, err.Error(), http.StatusInternalServerError); return }
    w.Header().Set("Content-Type", "text/html; charset=utf-8")
    _, _ = w.Write([]byte(out))
}

// main answers with the current main region. With ?since=N it waits until
// the region's version exceeds N, answering 204 if that does not happen
// within the long-poll window.
func (h *handlers) main(w http.ResponseWriter, r *http.Request) {
    raw := r.URL.Query().Get("since")
    if raw == "" { h.writeMain(w); return }
    since, err := strconv.ParseUint(raw, 10, 64)
    if err != nil { http.Error(w, "bad since", http.StatusBadRequest); return }
    if h.waitChange(r.Context(), since, "", h.s.LongPoll) {
        h.writeMain(w)
        return
    }
    _, _, v := h.doc.Main()
    w.Header().Set("X-Version", strconv.FormatUint(v, 10))
    w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) click(w http.ResponseWriter, r *http.Request) {
    h.act(w, r, console.Click(r.URL.Query().Get("href")))
}

func (h *handlers) submit(w http.ResponseWriter, r *http.Request) {
    if err := r.ParseForm(); err != nil { http.Error(w, err.Error(), http.StatusBadRequest); return }
    h.act(w, r, console.Submit(r.URL.Query().Get("action"), r.PostForm))
}

func (h *handlers) press(w http.ResponseWriter, r *http.Request) {
    h.act(w, r, console.Press(r.URL.Query().Get("id")))
}

// act dispatches ev and answers with the main region once the event's
// destination view has been drawn. A raft log poll redrawing the old view in
// the meantime does not count.
func (h *handlers) act(w http.ResponseWriter, r *http.Request, ev console.Event) {
    ctx, end := tracing.StartSpan(r.Context(), "webui.action", "trigger", ev.Trigger.String())
    defer end()
    _, _, before := h.doc.Main()
    if err := h.ctrl.Dispatch(ctx, ev); err != nil {
        code := http.StatusBadRequest
        switch {
        case errors.Is(err, console.ErrNoBinding):
            code = http.StatusConflict
        case errors.Is(err, console.ErrStopped), errors.Is(err, console.ErrNotRunning):
            code = http.StatusServiceUnavailable
        }
        logutil.Warnf(h.s.logger, "action %s: %v", ev.Trigger, err)
        http.Error(w, err.Error(), code)
        return
    }
    want, _ := ev.Destination()
    if h.waitChange(ctx, before, want, h.s.ActionWait) {
        h.writeMain(w)
        return
    }
    w.WriteHeader(http.StatusAccepted)
}

// waitChange reports whether the document version exceeds since, showing
// view want unless want is empty, before wait elapses or ctx is done.
func (h *handlers) waitChange(ctx context.Context, since uint64, want console.ViewName, wait time.Duration) bool {
    timer := time.NewTimer(wait)
    defer timer.Stop()
    for {
        changed := h.doc.Changed()
        if view, _, v := h.doc.Main(); v > since && (want == "" || view == want) { return true }
        select {
        case <-changed:
        case <-timer.C:
            return false
        case <-ctx.Done():
            return false
        }
    }
}

func (h *handlers) writeMain(w http.ResponseWriter) {
    view, main, v := h.doc.Main()
    w.Header().Set("Content-Type", "text/html; charset=utf-8")
    w.Header().Set("X-View", string(view))
    w.Header().Set("X-Version", strconv.FormatUint(v, 10))
    _, _ = w.Write([]byte(main))
}
