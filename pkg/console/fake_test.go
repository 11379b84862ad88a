package console

import (
    "context"
    "encoding/json"
    "sort"
    "sync"

    "github.com/amirimatin/queue-console/pkg/adminapi"
)

// fakeFetcher is an in-memory admin API. Operations can be gated so a test
// controls when they return; gated calls ignore ctx on purpose to model a
// response that arrives after the operator moved on.
type fakeFetcher struct {
    mu        sync.Mutex
    calls     map[string]int
    blobs     map[string]string
    entries   []adminapi.LogEntry
    committed uint64
    gates     map[string]chan struct{}
    errs      map[string]error
    bench     []adminapi.BenchmarkRequest
    benchBody string
}

func newFakeFetcher() *fakeFetcher {
    return &fakeFetcher{
        calls: map[string]int{},
        blobs: map[string]string{},
        gates: map[string]chan struct{}{},
        errs:  map[string]error{},
        entries: []adminapi.LogEntry{
            {Index: 1, Term: 1, Committed: false},
            {Index: 2, Term: 1, Committed: true},
            {Index: 3, Term: 2, Committed: true},
        },
        committed: 2,
        benchBody: `{"requests":100,"dataSize":64,"durationMs":7}`,
    }
}

func (f *fakeFetcher) enter(op string) error {
    f.mu.Lock()
    f.calls[op]++
    gate := f.gates[op]
    err := f.errs[op]
    f.mu.Unlock()
    if gate != nil { <-gate }
    return err
}

func (f *fakeFetcher) count(op string) int {
    f.mu.Lock()
    defer f.mu.Unlock()
    return f.calls[op]
}

func (f *fakeFetcher) gate(op string) chan struct{} {
    ch := make(chan struct{})
    f.mu.Lock()
    f.gates[op] = ch
    f.mu.Unlock()
    return ch
}

func (f *fakeFetcher) fail(op string, err error) {
    f.mu.Lock()
    f.errs[op] = err
    f.mu.Unlock()
}

func (f *fakeFetcher) FetchSettings(ctx context.Context) (adminapi.Settings, error) {
    if err := f.enter("settings"); err != nil { return nil, err }
    return adminapi.Settings{"node": "n1"}, nil
}

func (f *fakeFetcher) FetchRaftState(ctx context.Context) (adminapi.RaftState, error) {
    if err := f.enter("raftState"); err != nil { return nil, err }
    return adminapi.RaftState{"leader": "n1", "term": float64(2)}, nil
}

func (f *fakeFetcher) FetchRaftLog(ctx context.Context) (*adminapi.RaftLog, error) {
    if err := f.enter("raftLog"); err != nil { return nil, err }
    f.mu.Lock()
    l := &adminapi.RaftLog{Entries: append([]adminapi.LogEntry(nil), f.entries...), CommittedIndex: f.committed}
    f.mu.Unlock()
    l.DeriveCommitted()
    return l, nil
}

func (f *fakeFetcher) FetchBlobList(ctx context.Context) (*adminapi.BlobList, error) {
    if err := f.enter("blobList"); err != nil { return nil, err }
    f.mu.Lock()
    defer f.mu.Unlock()
    keys := make([]string, 0, len(f.blobs))
    for k := range f.blobs { keys = append(keys, k) }
    sort.Strings(keys)
    return &adminapi.BlobList{Keys: keys}, nil
}

func (f *fakeFetcher) FetchBlob(ctx context.Context, key string) (string, error) {
    if err := f.enter("blobGet"); err != nil { return "", err }
    f.mu.Lock()
    defer f.mu.Unlock()
    return f.blobs[key], nil
}

func (f *fakeFetcher) PutBlob(ctx context.Context, key, data string) error {
    if err := f.enter("blobPut"); err != nil { return err }
    f.mu.Lock()
    f.blobs[key] = data
    f.mu.Unlock()
    return nil
}

func (f *fakeFetcher) RunBenchmark(ctx context.Context, req adminapi.BenchmarkRequest) (*adminapi.BenchmarkResult, error) {
    if err := f.enter("benchmark"); err != nil { return nil, err }
    f.mu.Lock()
    f.bench = append(f.bench, req)
    body := f.benchBody
    f.mu.Unlock()
    var fields map[string]any
    _ = json.Unmarshal([]byte(body), &fields)
    return &adminapi.BenchmarkResult{Raw: json.RawMessage(body), Fields: fields}, nil
}

var _ adminapi.Fetcher = (*fakeFetcher)(nil)
