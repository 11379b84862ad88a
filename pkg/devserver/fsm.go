package devserver

import (
    "encoding/json"
    "fmt"
    "io"
    "sort"
    "sync"

    "github.com/hashicorp/raft"
)

// command is the payload of every log entry the dev server appends.
type command struct {
    Op   string `json:"op"`
    Key  string `json:"key,omitempty"`
    Data string `json:"data,omitempty"`
}

const (
    opPut   = "put"
    opBench = "bench"
)

// blobFSM applies put commands to an in-memory key/value map. Benchmark
// commands are counted but not stored.
type blobFSM struct {
    mu      sync.RWMutex
    blobs   map[string]string
    benched uint64
}

func newBlobFSM() *blobFSM { return &blobFSM{blobs: make(map[string]string)} }

func (f *blobFSM) Apply(l *raft.Log) interface{} {
    var cmd command
    if err := json.Unmarshal(l.Data, &cmd); err != nil { return err }
    f.mu.Lock()
    defer f.mu.Unlock()
    switch cmd.Op {
    case opPut:
        f.blobs[cmd.Key] = cmd.Data
        return nil
    case opBench:
        f.benched++
        return nil
    default:
        return fmt.Errorf("devserver: unknown op %q", cmd.Op)
    }
}

func (f *blobFSM) get(key string) (string, bool) {
    f.mu.RLock()
    defer f.mu.RUnlock()
    v, ok := f.blobs[key]
    return v, ok
}

func (f *blobFSM) keys() []string {
    f.mu.RLock()
    defer f.mu.RUnlock()
    out := make([]string, 0, len(f.blobs))
    for k := range f.blobs { out = append(out, k) }
    sort.Strings(out)
    return out
}

type fsmState struct {
    Version int               `json:"version"`
    Blobs   map[string]string `json:"blobs"`
    Benched uint64            `json:"benched"`
}

func (f *blobFSM) Snapshot() (raft.FSMSnapshot, error) {
    f.mu.RLock()
    defer f.mu.RUnlock()
    cp := make(map[string]string, len(f.blobs))
    for k, v := range f.blobs { cp[k] = v }
    b, err := json.Marshal(fsmState{Version: 1, Blobs: cp, Benched: f.benched})
    if err != nil { return nil, err }
    return &snapshot{blob: b}, nil
}

func (f *blobFSM) Restore(rc io.ReadCloser) error {
    defer rc.Close()
    var st fsmState
    if err := json.NewDecoder(rc).Decode(&st); err != nil { return err }
    if st.Blobs == nil { st.Blobs = make(map[string]string) }
    f.mu.Lock()
    f.blobs, f.benched = st.Blobs, st.Benched
    f.mu.Unlock()
    return nil
}

type snapshot struct{ blob []byte }

func (s *snapshot) Persist(sink raft.SnapshotSink) error {
    if _, err := sink.Write(s.blob); err != nil { _ = sink.Cancel(); return err }
    return sink.Close()
}

func (s *snapshot) Release() {}

var _ raft.FSM = (*blobFSM)(nil)
