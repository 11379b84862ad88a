package adminapi

import (
    "encoding/json"
    "fmt"
)

// Settings is the node configuration reported by GET /_settings. The console
// only displays it.
type Settings map[string]any

// RaftState is the cluster membership/leader/term snapshot reported by
// GET /_raft/state. Opaque beyond display.
type RaftState map[string]any

// LogEntry is one replicated log entry as listed by GET /_raft/log.
type LogEntry struct {
    Index   uint64          `json:"index"`
    Term    uint64          `json:"term"`
    Type    string          `json:"type,omitempty"`
    Payload json.RawMessage `json:"payload,omitempty"`
    Command json.RawMessage `json:"command,omitempty"`
    // Committed is derived client-side from the response's committedIndex;
    // whatever the server sends is overwritten by DeriveCommitted.
    Committed bool `json:"committed"`
}

// Body returns the entry's payload, falling back to the command field some
// servers use instead.
func (e LogEntry) Body() json.RawMessage {
    if len(e.Payload) > 0 { return e.Payload }
    return e.Command
}

// RaftLog is the GET /_raft/log response.
type RaftLog struct {
    Entries        []LogEntry `json:"entries"`
    CommittedIndex uint64     `json:"committedIndex"`
}

// DeriveCommitted sets every entry's Committed flag to
// Index <= CommittedIndex.
func (l *RaftLog) DeriveCommitted() {
    for i := range l.Entries {
        l.Entries[i].Committed = l.Entries[i].Index <= l.CommittedIndex
    }
}

// BlobList is the set of stored keys reported by GET /_blob.
type BlobList struct {
    Keys []string `json:"keys"`
}

// UnmarshalJSON accepts a bare array of keys, an array of {"key": ...}
// objects, or an object with a "keys" array.
func (b *BlobList) UnmarshalJSON(data []byte) error {
    var keys []string
    if err := json.Unmarshal(data, &keys); err == nil {
        b.Keys = keys
        return nil
    }
    var recs []struct{ Key string `json:"key"` }
    if err := json.Unmarshal(data, &recs); err == nil {
        b.Keys = make([]string, 0, len(recs))
        for _, r := range recs { b.Keys = append(b.Keys, r.Key) }
        return nil
    }
    var obj struct{ Keys []string `json:"keys"` }
    if err := json.Unmarshal(data, &obj); err != nil {
        return fmt.Errorf("adminapi: unrecognised blob list: %w", err)
    }
    b.Keys = obj.Keys
    return nil
}

// BlobRecord is an opaque key/value pair. Data has no schema.
type BlobRecord struct {
    Key  string `json:"key"`
    Data string `json:"data"`
}

// BenchmarkRequest parameterises GET /_benchmark.
type BenchmarkRequest struct {
    Requests int `json:"requests"`
    DataSize int `json:"dataSize"`
}

// BenchmarkResult carries the benchmark response exactly as the server sent
// it. Fields is the same payload decoded for templates that want to tabulate
// it; it is nil when the body is not a JSON object.
type BenchmarkResult struct {
    Raw    json.RawMessage
    Fields map[string]any
}
