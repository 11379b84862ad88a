//go:build integration

package integration

import (
    "context"
    "errors"
    "strings"
    "testing"
    "time"

    "github.com/amirimatin/queue-console/pkg/bootstrap"
    "github.com/amirimatin/queue-console/pkg/console"
)

var errNotYet = errors.New("not yet")

func waitUntil(t *testing.T, timeout time.Duration, fn func() error) {
    t.Helper()
    deadline := time.Now().Add(timeout)
    var last error
    for time.Now().Before(deadline) {
        if err := fn(); err == nil {
            return
        } else {
            last = err
        }
        time.Sleep(20 * time.Millisecond)
    }
    t.Fatalf("timeout waiting for condition: %v", last)
}

// mustStartStack runs a dev admin API and a console pointed at it.
func mustStartStack(t *testing.T, ctx context.Context) (*bootstrap.Console, string) {
    t.Helper()
    _, srv, err := bootstrap.RunDevServer(ctx, bootstrap.DevConfig{Listen: "127.0.0.1:0", NodeID: "it-1"})
    if err != nil { t.Fatalf("dev server: %v", err) }
    con, err := bootstrap.Run(ctx, bootstrap.Config{AdminAddr: srv.Addr(), Timeout: 5 * time.Second})
    if err != nil { t.Fatalf("console: %v", err) }
    waitMain(t, con.Memory, console.ViewRaftState, "<h2>Raft state</h2>")
    return con, srv.Addr()
}

// waitMain waits until the document shows view with markup containing want.
func waitMain(t *testing.T, doc *console.MemoryDocument, view console.ViewName, want string) string {
    t.Helper()
    var markup string
    waitUntil(t, 10*time.Second, func() error {
        v, m, _ := doc.Main()
        markup = m
        if v != view || !strings.Contains(m, want) { return errNotYet }
        return nil
    })
    return markup
}
