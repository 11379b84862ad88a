package adminapi

import (
    "bytes"
    "context"
    "crypto/tls"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "strconv"
    "strings"
    "time"

    obsmetrics "github.com/amirimatin/queue-console/pkg/observability/metrics"
    "github.com/amirimatin/queue-console/pkg/observability/tracing"
)

// StatusError is returned when the admin API answers with a non-2xx status.
type StatusError struct {
    Op   string
    Code int
    Body string
}

func (e *StatusError) Error() string {
    return fmt.Sprintf("adminapi: %s: status %d: %s", e.Op, e.Code, strings.TrimSpace(e.Body))
}

// Client is a thin HTTP client for the admin API of one node. Requests are
// never retried; a zero timeout means a request waits until its context is
// cancelled.
type Client struct {
    addr      string
    httpc     *http.Client
    transport *http.Transport
    isTLS     bool
}

// NewClient returns a Client for the admin API at addr (host:port, or a full
// http(s):// base URL).
func NewClient(addr string, timeout time.Duration) *Client {
    if timeout < 0 { timeout = 0 }
    tr := &http.Transport{Proxy: http.ProxyFromEnvironment}
    return &Client{addr: addr, httpc: &http.Client{Timeout: timeout, Transport: tr}, transport: tr}
}

// UseTLS sets the TLS config for the underlying HTTP client and switches the
// request scheme to https.
func (c *Client) UseTLS(cfg *tls.Config) *Client {
    if c.transport != nil { c.transport.TLSClientConfig = cfg }
    c.isTLS = cfg != nil
    return c
}

// Addr returns the admin API address the client talks to.
func (c *Client) Addr() string { return c.addr }

func (c *Client) url(path string) string {
    if strings.HasPrefix(c.addr, "http://") || strings.HasPrefix(c.addr, "https://") {
        return strings.TrimRight(c.addr, "/") + path
    }
    scheme := "http"
    if c.isTLS { scheme = "https" }
    return fmt.Sprintf("%s://%s%s", scheme, c.addr, path)
}

// do issues one request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, op, method, path string, body []byte) ([]byte, error) {
    ctx, end := tracing.StartSpan(ctx, "adminapi."+op, "http.method", method, "http.path", path)
    defer end()
    start := time.Now()
    defer func() { obsmetrics.FetchLatency.WithLabelValues(op).Observe(time.Since(start).Seconds()) }()

    var rd io.Reader
    if body != nil { rd = bytes.NewReader(body) }
    req, err := http.NewRequestWithContext(ctx, method, c.url(path), rd)
    if err != nil { return nil, err }
    if body != nil { req.Header.Set("Content-Type", "application/octet-stream") }

    resp, err := c.httpc.Do(req)
    if err != nil {
        obsmetrics.FetchTotal.WithLabelValues(op, "error").Inc()
        return nil, fmt.Errorf("adminapi: %s: %w", op, err)
    }
    defer resp.Body.Close()
    b, err := io.ReadAll(resp.Body)
    if err != nil {
        obsmetrics.FetchTotal.WithLabelValues(op, "error").Inc()
        return nil, fmt.Errorf("adminapi: %s: read body: %w", op, err)
    }
    if resp.StatusCode < 200 || resp.StatusCode > 299 {
        obsmetrics.FetchTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()
        return nil, &StatusError{Op: op, Code: resp.StatusCode, Body: string(b)}
    }
    obsmetrics.FetchTotal.WithLabelValues(op, "ok").Inc()
    return b, nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
    b, err := c.do(ctx, op, http.MethodGet, path, nil)
    if err != nil { return err }
    if err := json.Unmarshal(b, out); err != nil {
        return fmt.Errorf("adminapi: %s: malformed response: %w", op, err)
    }
    return nil
}

func (c *Client) FetchSettings(ctx context.Context) (Settings, error) {
    var out Settings
    if err := c.getJSON(ctx, "settings", "/_settings", &out); err != nil { return nil, err }
    return out, nil
}

func (c *Client) FetchRaftState(ctx context.Context) (RaftState, error) {
    var out RaftState
    if err := c.getJSON(ctx, "raft_state", "/_raft/state", &out); err != nil { return nil, err }
    return out, nil
}

// FetchRaftLog returns the replicated log with every entry's Committed flag
// derived from the response's committedIndex.
func (c *Client) FetchRaftLog(ctx context.Context) (*RaftLog, error) {
    var out RaftLog
    if err := c.getJSON(ctx, "raft_log", "/_raft/log", &out); err != nil { return nil, err }
    out.DeriveCommitted()
    return &out, nil
}

func (c *Client) FetchBlobList(ctx context.Context) (*BlobList, error) {
    var out BlobList
    if err := c.getJSON(ctx, "blob_list", "/_blob", &out); err != nil { return nil, err }
    return &out, nil
}

// FetchBlob returns the stored value for key verbatim.
func (c *Client) FetchBlob(ctx context.Context, key string) (string, error) {
    b, err := c.do(ctx, "blob_get", http.MethodGet, "/_blob/"+url.PathEscape(key), nil)
    if err != nil { return "", err }
    return string(b), nil
}

// PutBlob stores data under key. Empty keys and values are sent as-is; the
// server decides whether they are acceptable.
func (c *Client) PutBlob(ctx context.Context, key, data string) error {
    _, err := c.do(ctx, "blob_put", http.MethodPost, "/_blob/"+url.PathEscape(key), []byte(data))
    return err
}

// RunBenchmark asks the server to run a load benchmark and returns its
// response unmodified.
func (c *Client) RunBenchmark(ctx context.Context, req BenchmarkRequest) (*BenchmarkResult, error) {
    path := "/_benchmark?requests=" + strconv.Itoa(req.Requests) + "&dataSize=" + strconv.Itoa(req.DataSize)
    b, err := c.do(ctx, "benchmark", http.MethodGet, path, nil)
    if err != nil { return nil, err }
    if !json.Valid(b) {
        return nil, fmt.Errorf("adminapi: benchmark: malformed response")
    }
    out := &BenchmarkResult{Raw: json.RawMessage(b)}
    var fields map[string]any
    if err := json.Unmarshal(b, &fields); err == nil { out.Fields = fields }
    return out, nil
}
