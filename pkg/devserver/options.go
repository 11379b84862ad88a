package devserver

import (
    "log"
    "time"
)

// Options configure the dev admin server's single-node Raft.
type Options struct {
    NodeID string
    Logger *log.Logger

    // DataDir selects a bolt log/stable store and file snapshots when
    // non-empty. Empty means in-memory stores.
    DataDir string
    // SnapshotsRetained controls how many snapshots to keep on disk.
    SnapshotsRetained int

    // Timeouts (optional). Zero means fast single-node defaults.
    HeartbeatTimeout time.Duration
    ElectionTimeout  time.Duration
    CommitTimeout    time.Duration
    ApplyTimeout     time.Duration

    // LogLimit caps how many trailing entries /_raft/log returns.
    LogLimit int
    // MaxBenchmarkRequests caps the requests parameter of /_benchmark.
    MaxBenchmarkRequests int
}

func (o *Options) setDefaults() {
    if o.NodeID == "" { o.NodeID = "dev-1" }
    if o.Logger == nil { o.Logger = log.Default() }
    if o.SnapshotsRetained <= 0 { o.SnapshotsRetained = 2 }
    if o.HeartbeatTimeout <= 0 { o.HeartbeatTimeout = 100 * time.Millisecond }
    if o.ElectionTimeout <= 0 { o.ElectionTimeout = o.HeartbeatTimeout }
    if o.CommitTimeout <= 0 { o.CommitTimeout = 5 * time.Millisecond }
    if o.ApplyTimeout <= 0 { o.ApplyTimeout = 5 * time.Second }
    if o.LogLimit <= 0 { o.LogLimit = 100 }
    if o.MaxBenchmarkRequests <= 0 { o.MaxBenchmarkRequests = 100000 }
}
