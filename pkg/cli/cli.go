package cli

import (
    "context"
    "encoding/json"
    "fmt"
    "log"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/spf13/cobra"

    "github.com/amirimatin/queue-console/pkg/adminapi"
    "github.com/amirimatin/queue-console/pkg/bootstrap"
    "github.com/amirimatin/queue-console/pkg/console"
    "github.com/amirimatin/queue-console/pkg/internal/logutil"
    tracing "github.com/amirimatin/queue-console/pkg/observability/tracing"
    tlsx "github.com/amirimatin/queue-console/pkg/security/tlsconfig"
    "github.com/amirimatin/queue-console/pkg/terminal"
    "github.com/amirimatin/queue-console/pkg/webui"
)

// AddAll attaches the console subcommands (console/serve/devserver/get) to
// the provided root command.
func AddAll(root *cobra.Command) {
    root.AddCommand(NewConsoleCmd())
    root.AddCommand(NewServeCmd())
    root.AddCommand(NewDevServerCmd())
    root.AddCommand(NewGetCmd())
}

// adminFlags are shared by every command that talks to an admin API.
type adminFlags struct {
    addr, initial, templates              string
    poll, timeout                         time.Duration
    tlsEnable, tlsSkip, trace, jsonLogs   bool
    tlsCA, tlsCert, tlsKey, tlsServerName string
}

func (f *adminFlags) register(cmd *cobra.Command) {
    cmd.Flags().StringVar(&f.addr, "admin", "127.0.0.1:8080", "admin API address (host:port or URL)")
    cmd.Flags().DurationVar(&f.poll, "poll", console.DefaultPollInterval, "raft log refresh interval")
    cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "admin request timeout (0 = none)")
    cmd.Flags().StringVar(&f.initial, "view", string(console.ViewRaftState), "initial view")
    cmd.Flags().StringVar(&f.templates, "templates", "", "directory of template overrides (*.html)")
    cmd.Flags().BoolVar(&f.tlsEnable, "tls-enable", false, "use TLS towards the admin API")
    cmd.Flags().StringVar(&f.tlsCA, "tls-ca", "", "path to CA cert (PEM)")
    cmd.Flags().StringVar(&f.tlsCert, "tls-cert", "", "path to client certificate (PEM)")
    cmd.Flags().StringVar(&f.tlsKey, "tls-key", "", "path to client private key (PEM)")
    cmd.Flags().BoolVar(&f.tlsSkip, "tls-skip-verify", false, "skip server cert verification (DEV ONLY)")
    cmd.Flags().StringVar(&f.tlsServerName, "tls-server-name", "", "expected server name (for TLS validation)")
    cmd.Flags().BoolVar(&f.trace, "trace", false, "enable OpenTelemetry stdout tracing (dev)")
    cmd.Flags().BoolVar(&f.jsonLogs, "log-json", false, "write logs as JSON lines")
}

func (f *adminFlags) config(logger *log.Logger) bootstrap.Config {
    return bootstrap.Config{
        AdminAddr:     f.addr,
        Timeout:       f.timeout,
        PollInterval:  f.poll,
        InitialView:   f.initial,
        TemplatesDir:  f.templates,
        TLSEnable:     f.tlsEnable,
        TLSCA:         f.tlsCA,
        TLSCert:       f.tlsCert,
        TLSKey:        f.tlsKey,
        TLSServerName: f.tlsServerName,
        TLSSkipVerify: f.tlsSkip,
        Logger:        logger,
    }
}

// setup applies process-wide switches and returns a cleanup func.
func (f *adminFlags) setup() func() {
    if f.jsonLogs { logutil.SetJSON(true) }
    if !f.trace { return func() {} }
    shutdown, err := tracing.Setup(true)
    if err != nil {
        log.Printf("tracing setup error: %v", err)
        return func() {}
    }
    return func() { _ = shutdown(context.Background()) }
}

// NewConsoleCmd returns the "console" command: the interactive terminal
// front-end.
func NewConsoleCmd() *cobra.Command {
    var f adminFlags
    cmd := &cobra.Command{
        Use:   "console",
        Short: "Run the operator console in the terminal",
        RunE: func(cmd *cobra.Command, args []string) error {
            defer f.setup()()
            ctx, cancel := signalContext()
            defer cancel()

            // Logs go to stderr so they do not interleave with the rendered views.
            logger := log.New(os.Stderr, "", log.LstdFlags)
            var term *terminal.Terminal
            cfg := f.config(logger)
            cfg.NewDocument = func(chrome string) (console.Document, error) {
                term = terminal.New(cmd.OutOrStdout(), chrome)
                return term, nil
            }
            con, err := bootstrap.Run(ctx, cfg)
            if err != nil { return err }
            err = term.Run(ctx, cmd.InOrStdin(), con.Controller)
            cancel()
            if werr := con.Wait(); err == nil { err = werr }
            return err
        },
    }
    f.register(cmd)
    return cmd
}

// NewServeCmd returns the "serve" command: the console as a web page.
func NewServeCmd() *cobra.Command {
    var (
        f                               adminFlags
        listen, listenCert, listenKey   string
        listenCA                        string
    )
    cmd := &cobra.Command{
        Use:   "serve",
        Short: "Serve the operator console over HTTP",
        RunE: func(cmd *cobra.Command, args []string) error {
            defer f.setup()()
            ctx, cancel := signalContext()
            defer cancel()

            con, err := bootstrap.Run(ctx, f.config(log.Default()))
            if err != nil { return err }
            srv := webui.NewServer(listen, log.Default())
            if listenCert != "" || listenKey != "" {
                tc, err := tlsx.Options{Enable: true, CertFile: listenCert, KeyFile: listenKey, CAFile: listenCA}.Server()
                if err != nil { return fmt.Errorf("tls server config: %w", err) }
                srv.UseTLS(tc)
            }
            if err := srv.Start(ctx, con.Controller, con.Memory, con.Renderer); err != nil { return err }

            fmt.Fprintf(cmd.OutOrStdout(), "console on http://%s. Press Ctrl+C to exit.\n", srv.Addr())
            return con.Wait()
        },
    }
    f.register(cmd)
    cmd.Flags().StringVar(&listen, "listen", ":8090", "web console listen address")
    cmd.Flags().StringVar(&listenCert, "listen-cert", "", "TLS certificate for the web console (PEM)")
    cmd.Flags().StringVar(&listenKey, "listen-key", "", "TLS private key for the web console (PEM)")
    cmd.Flags().StringVar(&listenCA, "listen-ca", "", "CA for verifying browser client certificates (PEM, optional)")
    return cmd
}

// NewDevServerCmd returns the "devserver" command: a local admin API on a
// single-node Raft.
func NewDevServerCmd() *cobra.Command {
    var (
        listen, id, dataDir          string
        tlsCA, tlsCert, tlsKey       string
        logLimit                     int
        tlsEnable, jsonLogs          bool
    )
    cmd := &cobra.Command{
        Use:   "devserver",
        Short: "Run a development admin API backed by a single-node Raft",
        RunE: func(cmd *cobra.Command, args []string) error {
            if jsonLogs { logutil.SetJSON(true) }
            ctx, cancel := signalContext()
            defer cancel()
            _, srv, err := bootstrap.RunDevServer(ctx, bootstrap.DevConfig{
                Listen: listen, NodeID: id, DataDir: dataDir, LogLimit: logLimit,
                TLSEnable: tlsEnable, TLSCA: tlsCA, TLSCert: tlsCert, TLSKey: tlsKey,
                Logger: log.Default(),
            })
            if err != nil { return err }
            fmt.Fprintf(cmd.OutOrStdout(), "admin API on %s. Press Ctrl+C to exit.\n", srv.Addr())
            <-ctx.Done()
            return nil
        },
    }
    cmd.Flags().StringVar(&listen, "listen", ":8080", "admin API listen address")
    cmd.Flags().StringVar(&id, "id", "dev-1", "raft node id")
    cmd.Flags().StringVar(&dataDir, "data", "", "raft data dir (empty = in-memory)")
    cmd.Flags().IntVar(&logLimit, "log-limit", 100, "entries returned by /_raft/log")
    cmd.Flags().BoolVar(&tlsEnable, "tls-enable", false, "serve the admin API over TLS")
    cmd.Flags().StringVar(&tlsCA, "tls-ca", "", "CA for client certificate verification (PEM, optional)")
    cmd.Flags().StringVar(&tlsCert, "tls-cert", "", "server certificate (PEM)")
    cmd.Flags().StringVar(&tlsKey, "tls-key", "", "server private key (PEM)")
    cmd.Flags().BoolVar(&jsonLogs, "log-json", false, "write logs as JSON lines")
    return cmd
}

// NewGetCmd returns the "get" command: one admin API read printed as JSON.
func NewGetCmd() *cobra.Command {
    var (
        addr    string
        timeout time.Duration
    )
    cmd := &cobra.Command{
        Use:       "get settings|raftState|raftLog|blobList|blob <key>",
        Short:     "Fetch one admin API resource as JSON",
        Args:      cobra.RangeArgs(1, 2),
        ValidArgs: []string{"settings", "raftState", "raftLog", "blobList", "blob"},
        RunE: func(cmd *cobra.Command, args []string) error {
            ctx, cancel := requestContext(cmd.Context(), timeout)
            defer cancel()
            client := adminapi.NewClient(addr, timeout)
            var (
                v   any
                err error
            )
            switch args[0] {
            case "settings":
                v, err = client.FetchSettings(ctx)
            case "raftState":
                v, err = client.FetchRaftState(ctx)
            case "raftLog":
                v, err = client.FetchRaftLog(ctx)
            case "blobList":
                v, err = client.FetchBlobList(ctx)
            case "blob":
                if len(args) != 2 { return fmt.Errorf("missing blob key") }
                var s string
                s, err = client.FetchBlob(ctx, args[1])
                v = adminapi.BlobRecord{Key: args[1], Data: s}
            default:
                return fmt.Errorf("unknown resource %q", args[0])
            }
            if err != nil { return fmt.Errorf("get %s: %w", args[0], err) }
            enc := json.NewEncoder(cmd.OutOrStdout())
            enc.SetIndent("", "  ")
            return enc.Encode(v)
        },
    }
    cmd.Flags().StringVar(&addr, "admin", "127.0.0.1:8080", "admin API address (host:port or URL)")
    cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "request timeout (0 = none)")
    return cmd
}

// requestContext bounds parent by timeout; zero or less means no deadline.
func requestContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
    if parent == nil { parent = context.Background() }
    if timeout <= 0 { return context.WithCancel(parent) }
    return context.WithTimeout(parent, timeout)
}

func signalContext() (context.Context, context.CancelFunc) {
    ctx, cancel := context.WithCancel(context.Background())
    go func() {
        ch := make(chan os.Signal, 1)
        signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
        select {
        case <-ch:
            cancel()
        case <-ctx.Done():
        }
        signal.Stop(ch)
    }()
    return ctx, cancel
}
