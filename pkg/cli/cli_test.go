package cli

import (
    "bytes"
    "context"
    "io"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"
)

func TestRequestContext_ZeroMeansNoDeadline(t *testing.T) {
    ctx, cancel := requestContext(context.Background(), 0)
    defer cancel()
    if _, ok := ctx.Deadline(); ok { t.Fatalf("zero timeout set a deadline") }
    if ctx.Err() != nil { t.Fatalf("context already done: %v", ctx.Err()) }

    ctx2, cancel2 := requestContext(context.Background(), time.Minute)
    defer cancel2()
    if _, ok := ctx2.Deadline(); !ok { t.Fatalf("positive timeout without deadline") }
}

func TestGetCmd_ZeroTimeout(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if r.URL.Path != "/_settings" { http.NotFound(w, r); return }
        _, _ = io.WriteString(w, `{"nodeId":"n1"}`)
    }))
    defer srv.Close()

    var out bytes.Buffer
    cmd := NewGetCmd()
    cmd.SetOut(&out)
    cmd.SetArgs([]string{"settings", "--admin", srv.URL, "--timeout", "0"})
    if err := cmd.Execute(); err != nil { t.Fatalf("get: %v", err) }
    if !strings.Contains(out.String(), `"nodeId": "n1"`) { t.Fatalf("output = %s", out.String()) }
}
