package devserver

import (
    "context"
    "crypto/tls"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "log"
    "net"
    "net/http"
    "net/url"
    "strconv"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/prometheus/client_golang/prometheus/promhttp"

    "github.com/amirimatin/queue-console/pkg/adminapi"
    "github.com/amirimatin/queue-console/pkg/internal/logutil"
    "github.com/amirimatin/queue-console/pkg/observability/tracing"
)

// maxBlobBytes bounds a single blob upload.
const maxBlobBytes = 8 << 20

// Server exposes a Node through the admin HTTP API the console consumes,
// plus /metrics and /healthz.
type Server struct {
    bind   string
    node   *Node
    srv    *http.Server
    ln     net.Listener
    logger *log.Logger
    tlsCfg *tls.Config
}

// NewServer binds to the given TCP address (e.g. ":8080").
func NewServer(bind string, node *Node, logger *log.Logger) *Server {
    if logger == nil { logger = log.Default() }
    return &Server{bind: bind, node: node, logger: logutil.Component(logger, "devserver-http")}
}

// UseTLS enables TLS on the listener.
func (s *Server) UseTLS(cfg *tls.Config) *Server { s.tlsCfg = cfg; return s }

// Handler returns the router without starting a listener.
func (s *Server) Handler() http.Handler {
    r := chi.NewRouter()
    r.Get("/_settings", s.handleSettings)
    r.Get("/_raft/state", s.handleState)
    r.Get("/_raft/log", s.handleLog)
    r.Get("/_blob", s.handleBlobList)
    r.Get("/_blob/{key}", s.handleBlobGet)
    r.Post("/_blob/{key}", s.handleBlobPut)
    r.Post("/_blob/", func(w http.ResponseWriter, r *http.Request) { http.Error(w, ErrEmptyKey.Error(), http.StatusBadRequest) })
    r.Get("/_benchmark", s.handleBenchmark)
    r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
        w.WriteHeader(http.StatusOK)
        _, _ = w.Write([]byte("ok"))
    })
    r.Handle("/metrics", promhttp.Handler())
    return r
}

// Start listens and serves until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
    ln, err := net.Listen("tcp", s.bind)
    if err != nil { return err }
    if s.tlsCfg != nil { ln = tls.NewListener(ln, s.tlsCfg) }
    s.ln = ln
    s.srv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

    go func() {
        <-ctx.Done()
        _ = s.Stop(context.Background())
    }()
    go func() {
        if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
            logutil.Errorf(s.logger, "server error: %v", err)
        }
    }()
    logutil.Infof(s.logger, "admin API listening on %s", ln.Addr())
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

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusOK, s.node.Settings())
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
    st, err := s.node.State()
    if err != nil { s.fail(w, err); return }
    writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
    limit := 0
    if v := r.URL.Query().Get("limit"); v != "" {
        n, err := strconv.Atoi(v)
        if err != nil || n <= 0 { http.Error(w, "bad limit", http.StatusBadRequest); return }
        limit = n
    }
    l, err := s.node.LogTail(limit)
    if err != nil { s.fail(w, err); return }
    if l.Entries == nil { l.Entries = []adminapi.LogEntry{} }
    writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleBlobList(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusOK, adminapi.BlobList{Keys: s.node.Keys()})
}

func (s *Server) handleBlobGet(w http.ResponseWriter, r *http.Request) {
    key, err := blobKey(r)
    if err != nil { http.Error(w, err.Error(), http.StatusBadRequest); return }
    v, ok := s.node.Blob(key)
    if !ok { http.Error(w, "not found", http.StatusNotFound); return }
    w.Header().Set("Content-Type", "application/octet-stream")
    _, _ = w.Write(v)
}

func (s *Server) handleBlobPut(w http.ResponseWriter, r *http.Request) {
    key, err := blobKey(r)
    if err != nil { http.Error(w, err.Error(), http.StatusBadRequest); return }
    _, end := tracing.StartSpan(r.Context(), "devserver.put", "key", key)
    defer end()
    body, err := io.ReadAll(io.LimitReader(r.Body, maxBlobBytes+1))
    if err != nil { http.Error(w, err.Error(), http.StatusBadRequest); return }
    if len(body) > maxBlobBytes { http.Error(w, "blob too large", http.StatusRequestEntityTooLarge); return }
    if err := s.node.PutBlob(key, body); err != nil { s.fail(w, err); return }
    w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBenchmark(w http.ResponseWriter, r *http.Request) {
    q := r.URL.Query()
    requests, err := strconv.Atoi(q.Get("requests"))
    if err != nil || requests <= 0 || requests > s.node.opts.MaxBenchmarkRequests {
        http.Error(w, fmt.Sprintf("requests must be in 1..%d", s.node.opts.MaxBenchmarkRequests), http.StatusBadRequest)
        return
    }
    size, err := strconv.Atoi(q.Get("dataSize"))
    if err != nil || size < 0 || size > maxBlobBytes {
        http.Error(w, "bad dataSize", http.StatusBadRequest)
        return
    }
    ctx, end := tracing.StartSpan(r.Context(), "devserver.benchmark", "requests", strconv.Itoa(requests))
    defer end()
    rep, err := s.node.Benchmark(ctx, requests, size)
    if err != nil { s.fail(w, err); return }
    logutil.Infof(s.logger, "benchmark requests=%d dataSize=%d errors=%d took=%dms", rep.Requests, rep.DataSize, rep.Errors, rep.DurationMs)
    writeJSON(w, http.StatusOK, rep)
}

func (s *Server) fail(w http.ResponseWriter, err error) {
    code := http.StatusInternalServerError
    switch {
    case errors.Is(err, ErrNotLeader), errors.Is(err, ErrNotStarted):
        code = http.StatusServiceUnavailable
    case errors.Is(err, ErrEmptyKey):
        code = http.StatusBadRequest
    }
    logutil.Warnf(s.logger, "request failed: %v", err)
    http.Error(w, err.Error(), code)
}

// blobKey returns the decoded {key} segment. chi routes on the escaped path
// when the request carries one.
func blobKey(r *http.Request) (string, error) {
    key := chi.URLParam(r, "key")
    if r.URL.RawPath != "" {
        k, err := url.PathUnescape(key)
        if err != nil { return "", err }
        key = k
    }
    if key == "" { return "", ErrEmptyKey }
    return key, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(code)
    _ = json.NewEncoder(w).Encode(v)
}
