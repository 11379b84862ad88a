package devserver

import (
    "context"
    "errors"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/prometheus/client_golang/prometheus/testutil"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/amirimatin/queue-console/pkg/adminapi"
    "github.com/amirimatin/queue-console/pkg/observability/metrics"
)

func newTestAPI(t *testing.T) (*adminapi.Client, *httptest.Server) {
    t.Helper()
    n := startNode(t, Options{NodeID: "dev-1", LogLimit: 50})
    srv := httptest.NewServer(NewServer(":0", n, nil).Handler())
    t.Cleanup(srv.Close)
    return adminapi.NewClient(srv.URL, 0), srv
}

func TestServer_BlobRoundTrip(t *testing.T) {
    c, _ := newTestAPI(t)
    ctx := context.Background()
    before := testutil.ToFloat64(metrics.DevApplies.WithLabelValues("blob", "ok"))

    require.NoError(t, c.PutBlob(ctx, "k1", "hello"))
    require.NoError(t, c.PutBlob(ctx, "a b/c", "spaced"))
    require.NoError(t, c.PutBlob(ctx, "empty", ""))

    list, err := c.FetchBlobList(ctx)
    require.NoError(t, err)
    assert.Equal(t, []string{"a b/c", "empty", "k1"}, list.Keys)

    v, err := c.FetchBlob(ctx, "k1")
    require.NoError(t, err)
    assert.Equal(t, "hello", v)
    v, err = c.FetchBlob(ctx, "a b/c")
    require.NoError(t, err)
    assert.Equal(t, "spaced", v)

    assert.Equal(t, before+3, testutil.ToFloat64(metrics.DevApplies.WithLabelValues("blob", "ok")))
}

func TestServer_MissingBlobIs404(t *testing.T) {
    c, _ := newTestAPI(t)
    _, err := c.FetchBlob(context.Background(), "nope")
    var se *adminapi.StatusError
    require.True(t, errors.As(err, &se), "err = %v", err)
    assert.Equal(t, http.StatusNotFound, se.Code)
}

func TestServer_RaftLogReflectsPuts(t *testing.T) {
    c, _ := newTestAPI(t)
    ctx := context.Background()
    require.NoError(t, c.PutBlob(ctx, "k1", "hello"))

    l, err := c.FetchRaftLog(ctx)
    require.NoError(t, err)
    require.NotEmpty(t, l.Entries)
    last := l.Entries[len(l.Entries)-1]
    assert.True(t, last.Committed)
    assert.Contains(t, string(last.Payload), `"key":"k1"`)
    for _, e := range l.Entries {
        assert.Equal(t, e.Index <= l.CommittedIndex, e.Committed)
    }
}

func TestServer_StateSettingsBenchmark(t *testing.T) {
    c, srv := newTestAPI(t)
    ctx := context.Background()

    st, err := c.FetchRaftState(ctx)
    require.NoError(t, err)
    assert.Equal(t, "Leader", st["state"])

    set, err := c.FetchSettings(ctx)
    require.NoError(t, err)
    assert.Equal(t, "dev-1", set["nodeId"])
    assert.EqualValues(t, 50, set["logLimit"])

    res, err := c.RunBenchmark(ctx, adminapi.BenchmarkRequest{Requests: 10, DataSize: 8})
    require.NoError(t, err)
    assert.Contains(t, string(res.Raw), `"requests":10`)
    assert.EqualValues(t, 0, res.Fields["errors"])

    resp, err := http.Get(srv.URL + "/_benchmark?requests=0&dataSize=8")
    require.NoError(t, err)
    resp.Body.Close()
    assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

    resp, err = http.Get(srv.URL + "/healthz")
    require.NoError(t, err)
    resp.Body.Close()
    assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_EmptyKeyRejected(t *testing.T) {
    _, srv := newTestAPI(t)
    resp, err := http.Post(srv.URL+"/_blob/", "application/octet-stream", strings.NewReader("x"))
    require.NoError(t, err)
    resp.Body.Close()
    assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
