package bootstrap

import (
    "context"
    "errors"
    "log"
    "time"

    "github.com/amirimatin/queue-console/pkg/adminapi"
    "github.com/amirimatin/queue-console/pkg/console"
    "github.com/amirimatin/queue-console/pkg/devserver"
    "github.com/amirimatin/queue-console/pkg/observability/metrics"
    "github.com/amirimatin/queue-console/pkg/render"
    tlsx "github.com/amirimatin/queue-console/pkg/security/tlsconfig"
)

// Config defines the inputs to assemble a console against an admin API.
// Programs embed the console by providing this structure and calling
// Build/Run.
type Config struct {
    // Admin API address, host:port or a full http(s):// URL.
    AdminAddr string
    // Timeout per admin request; zero means none.
    Timeout time.Duration
    // PollInterval for the raft log view; zero means 100ms.
    PollInterval time.Duration
    // InitialView entered at start; empty means raftState.
    InitialView string
    // TemplatesDir overrides built-in templates when set.
    TemplatesDir string

    // TLS (optional) for the admin API client
    TLSEnable     bool
    TLSCA         string
    TLSCert       string
    TLSKey        string
    TLSServerName string
    TLSSkipVerify bool

    // Logger (optional). If nil, log.Default() is used.
    Logger *log.Logger

    // NewDocument creates the surface the console draws on from the rendered
    // chrome. Nil means a console.MemoryDocument.
    NewDocument func(chrome string) (console.Document, error)
}

// Console is an assembled, not yet running console.
type Console struct {
    Controller *console.Controller
    Client     *adminapi.Client
    Renderer   *render.Renderer
    Document   console.Document
    // Memory is the document when NewDocument was nil.
    Memory *console.MemoryDocument

    errc chan error
}

// Build assembles a Console from Config without starting it.
func Build(cfg Config) (*Console, error) {
    if cfg.AdminAddr == "" { return nil, errors.New("bootstrap: empty AdminAddr") }
    if cfg.Logger == nil { cfg.Logger = log.Default() }
    metrics.Register()

    client := adminapi.NewClient(cfg.AdminAddr, cfg.Timeout)
    if cfg.TLSEnable {
        topts := tlsx.Options{Enable: true, CAFile: cfg.TLSCA, CertFile: cfg.TLSCert, KeyFile: cfg.TLSKey, InsecureSkipVerify: cfg.TLSSkipVerify, ServerName: cfg.TLSServerName}
        tc, err := topts.Client()
        if err != nil { return nil, err }
        client.UseTLS(tc)
    }

    var (
        rnd *render.Renderer
        err error
    )
    if cfg.TemplatesDir != "" {
        rnd, err = render.NewWithOverrides(cfg.TemplatesDir)
    } else {
        rnd, err = render.New()
    }
    if err != nil { return nil, err }
    chrome, err := rnd.Chrome()
    if err != nil { return nil, err }

    out := &Console{Client: client, Renderer: rnd}
    if cfg.NewDocument != nil {
        out.Document, err = cfg.NewDocument(chrome)
        if err != nil { return nil, err }
    } else {
        out.Memory = console.NewMemoryDocument(chrome)
        out.Document = out.Memory
    }

    ctrl, err := console.New(console.Options{
        Fetcher:      client,
        Renderer:     rnd,
        Document:     out.Document,
        Logger:       cfg.Logger,
        PollInterval: cfg.PollInterval,
        InitialView:  console.ViewName(cfg.InitialView),
    })
    if err != nil { return nil, err }
    out.Controller = ctrl
    return out, nil
}

// Run builds the console and starts its loop in the background. It returns
// once the controller accepts events. The loop stops when ctx is canceled;
// Wait returns its result.
func Run(ctx context.Context, cfg Config) (*Console, error) {
    c, err := Build(cfg)
    if err != nil { return nil, err }
    c.errc = make(chan error, 1)
    go func() { c.errc <- c.Controller.Run(ctx) }()
    select {
    case <-c.Controller.Started():
    case <-ctx.Done():
        return nil, ctx.Err()
    }
    return c, nil
}

// Wait blocks until the loop started by Run returns.
func (c *Console) Wait() error {
    if c.errc == nil { return nil }
    err := <-c.errc
    if errors.Is(err, context.Canceled) { return nil }
    return err
}

// DevConfig defines the inputs of the dev admin server.
type DevConfig struct {
    Listen   string
    NodeID   string
    DataDir  string
    LogLimit int

    // TLS (optional) for the listener
    TLSEnable bool
    TLSCA     string
    TLSCert   string
    TLSKey    string

    Logger *log.Logger
}

// RunDevServer starts a single-node Raft, waits for it to lead and serves
// the admin API on cfg.Listen. Both stop when ctx is canceled.
func RunDevServer(ctx context.Context, cfg DevConfig) (*devserver.Node, *devserver.Server, error) {
    if cfg.Logger == nil { cfg.Logger = log.Default() }
    metrics.Register()
    node, err := devserver.NewNode(devserver.Options{NodeID: cfg.NodeID, DataDir: cfg.DataDir, LogLimit: cfg.LogLimit, Logger: cfg.Logger})
    if err != nil { return nil, nil, err }
    if err := node.Start(ctx); err != nil { return nil, nil, err }
    wctx, cancel := context.WithTimeout(ctx, 10*time.Second)
    defer cancel()
    if err := node.WaitLeader(wctx); err != nil { _ = node.Stop(); return nil, nil, err }

    srv := devserver.NewServer(cfg.Listen, node, cfg.Logger)
    if cfg.TLSEnable {
        tc, err := tlsx.Options{Enable: true, CAFile: cfg.TLSCA, CertFile: cfg.TLSCert, KeyFile: cfg.TLSKey}.Server()
        if err != nil { _ = node.Stop(); return nil, nil, err }
        srv.UseTLS(tc)
    }
    if err := srv.Start(ctx); err != nil { _ = node.Stop(); return nil, nil, err }
    return node, srv, nil
}
