package adminapi

import (
    "context"
    "encoding/json"
    "errors"
    "io"
    "net/http"
    "net/http/httptest"
    "strings"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
    t.Helper()
    srv := httptest.NewServer(h)
    t.Cleanup(srv.Close)
    return NewClient(strings.TrimPrefix(srv.URL, "http://"), 0)
}

func TestFetchRaftLog_DerivesCommitted(t *testing.T) {
    c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
        require.Equal(t, "/_raft/log", r.URL.Path)
        // committed flags from the server are deliberately wrong
        _, _ = io.WriteString(w, `{"entries":[
            {"index":1,"term":1,"committed":false},
            {"index":2,"term":1,"committed":false},
            {"index":3,"term":2,"committed":true},
            {"index":4,"term":2,"command":{"op":"put"}}
        ],"committedIndex":2}`)
    })

    l, err := c.FetchRaftLog(context.Background())
    require.NoError(t, err)
    require.Len(t, l.Entries, 4)
    for _, e := range l.Entries {
        assert.Equal(t, e.Index <= 2, e.Committed, "entry %d", e.Index)
    }
    assert.JSONEq(t, `{"op":"put"}`, string(l.Entries[3].Command))
}

func TestFetchRaftLog_KeepsPayload(t *testing.T) {
    c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
        _, _ = io.WriteString(w, `{"entries":[{"index":1,"term":1,"payload":{"op":"put","key":"k1"}}],"committedIndex":1}`)
    })

    l, err := c.FetchRaftLog(context.Background())
    require.NoError(t, err)
    require.Len(t, l.Entries, 1)
    e := l.Entries[0]
    assert.JSONEq(t, `{"op":"put","key":"k1"}`, string(e.Payload))
    assert.JSONEq(t, `{"op":"put","key":"k1"}`, string(e.Body()))
    assert.True(t, e.Committed)

    b, err := json.Marshal(e)
    require.NoError(t, err)
    assert.JSONEq(t, `{"index":1,"term":1,"payload":{"op":"put","key":"k1"},"committed":true}`, string(b))
}

func TestDeriveCommitted_ZeroIndex(t *testing.T) {
    l := &RaftLog{Entries: []LogEntry{{Index: 0, Committed: false}, {Index: 1, Committed: true}}}
    l.DeriveCommitted()
    assert.True(t, l.Entries[0].Committed)
    assert.False(t, l.Entries[1].Committed)
}

func TestPutAndFetchBlob_Verbatim(t *testing.T) {
    var (
        mu    sync.Mutex
        store = map[string]string{}
    )
    c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
        key := strings.TrimPrefix(r.URL.Path, "/_blob/")
        mu.Lock()
        defer mu.Unlock()
        switch r.Method {
        case http.MethodPost:
            b, _ := io.ReadAll(r.Body)
            store[key] = string(b)
        case http.MethodGet:
            _, _ = io.WriteString(w, store[key])
        }
    })

    ctx := context.Background()
    require.NoError(t, c.PutBlob(ctx, "k1", "hello\n  world"))
    got, err := c.FetchBlob(ctx, "k1")
    require.NoError(t, err)
    assert.Equal(t, "hello\n  world", got)
}

func TestPutBlob_EscapesKey(t *testing.T) {
    var gotPath string
    c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
        gotPath = r.URL.EscapedPath()
    })
    require.NoError(t, c.PutBlob(context.Background(), "a/b c", "x"))
    assert.Equal(t, "/_blob/a%2Fb%20c", gotPath)
}

func TestFetchBlobList_Shapes(t *testing.T) {
    for _, body := range []string{`["a","b"]`, `{"keys":["a","b"]}`, `[{"key":"a"},{"key":"b"}]`} {
        c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { _, _ = io.WriteString(w, body) })
        l, err := c.FetchBlobList(context.Background())
        require.NoError(t, err, body)
        assert.Equal(t, []string{"a", "b"}, l.Keys, body)
    }
}

func TestRunBenchmark_QueryAndRawPayload(t *testing.T) {
    const payload = `{"requests":100,"dataSize":64,"durationMs":12.5}`
    var rawQuery string
    c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
        rawQuery = r.URL.RawQuery
        _, _ = io.WriteString(w, payload)
    })
    res, err := c.RunBenchmark(context.Background(), BenchmarkRequest{Requests: 100, DataSize: 64})
    require.NoError(t, err)
    assert.Equal(t, "requests=100&dataSize=64", rawQuery)
    assert.Equal(t, payload, string(res.Raw))
    assert.Equal(t, 12.5, res.Fields["durationMs"])
}

func TestStatusError(t *testing.T) {
    c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
        http.Error(w, "not leader", http.StatusServiceUnavailable)
    })
    _, err := c.FetchSettings(context.Background())
    var se *StatusError
    require.True(t, errors.As(err, &se), "got %v", err)
    assert.Equal(t, http.StatusServiceUnavailable, se.Code)
    assert.Contains(t, se.Error(), "not leader")
}

func TestMalformedResponse(t *testing.T) {
    c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { _, _ = io.WriteString(w, "<html>") })
    _, err := c.FetchRaftState(context.Background())
    require.Error(t, err)
    assert.Contains(t, err.Error(), "malformed")
}

func TestContextCancelsHungRequest(t *testing.T) {
    release := make(chan struct{})
    c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
        select {
        case <-release:
        case <-r.Context().Done():
        }
    })
    defer close(release)

    ctx, cancel := context.WithCancel(context.Background())
    done := make(chan error, 1)
    go func() { _, err := c.FetchSettings(ctx); done <- err }()
    cancel()
    select {
    case err := <-done:
        assert.ErrorIs(t, err, context.Canceled)
    case <-time.After(2 * time.Second):
        t.Fatalf("request did not return after cancel")
    }
}

func TestURLWithScheme(t *testing.T) {
    c := NewClient("https://admin.example:9443/", 0)
    assert.Equal(t, "https://admin.example:9443/_settings", c.url("/_settings"))
    c = NewClient("127.0.0.1:8080", 0)
    assert.Equal(t, "http://127.0.0.1:8080/_raft/log", c.url("/_raft/log"))
}
