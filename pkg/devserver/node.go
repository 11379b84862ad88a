package devserver

import (
    "context"
    "crypto/rand"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "log"
    "os"
    "path/filepath"
    "strconv"
    "sync"
    "time"

    "github.com/hashicorp/raft"
    raftboltdb "github.com/hashicorp/raft-boltdb"

    "github.com/amirimatin/queue-console/pkg/adminapi"
    "github.com/amirimatin/queue-console/pkg/internal/logutil"
    "github.com/amirimatin/queue-console/pkg/observability/metrics"
)

var (
    ErrNotLeader  = errors.New("devserver: not leader")
    ErrNotStarted = errors.New("devserver: not started")
    ErrEmptyKey   = errors.New("devserver: empty key")
)

// Node is a single-node Raft group whose FSM stores blobs. It backs the
// dev admin API so the console can be exercised against a real log.
type Node struct {
    opts    Options
    log     *log.Logger
    r       *raft.Raft
    logs    raft.LogStore
    fsm     *blobFSM
    closers []io.Closer
    stop    sync.Once
    stopErr error
}

func NewNode(opts Options) (*Node, error) {
    opts.setDefaults()
    return &Node{opts: opts, log: logutil.Component(opts.Logger, "devserver"), fsm: newBlobFSM()}, nil
}

// Start creates the Raft instance and bootstraps a one-server configuration.
// An existing on-disk configuration is reused as is.
func (n *Node) Start(ctx context.Context) error {
    if n.r != nil { return nil }

    cfg := raft.DefaultConfig()
    cfg.LocalID = raft.ServerID(n.opts.NodeID)
    cfg.HeartbeatTimeout = n.opts.HeartbeatTimeout
    cfg.ElectionTimeout = n.opts.ElectionTimeout
    cfg.LeaderLeaseTimeout = n.opts.HeartbeatTimeout
    cfg.CommitTimeout = n.opts.CommitTimeout
    cfg.LogOutput = n.log.Writer()
    cfg.LogLevel = "WARN"

    var (
        logs   raft.LogStore
        stable raft.StableStore
        snaps  raft.SnapshotStore
    )
    if n.opts.DataDir != "" {
        if err := os.MkdirAll(n.opts.DataDir, 0o755); err != nil { return err }
        bstore, err := raftboltdb.NewBoltStore(filepath.Join(n.opts.DataDir, "raft.db"))
        if err != nil { return fmt.Errorf("devserver: open bolt store: %w", err) }
        n.closers = append(n.closers, bstore)
        logs, stable = bstore, bstore
        snaps, err = raft.NewFileSnapshotStore(n.opts.DataDir, n.opts.SnapshotsRetained, n.log.Writer())
        if err != nil { return err }
    } else {
        mem := raft.NewInmemStore()
        logs, stable = mem, mem
        snaps = raft.NewInmemSnapshotStore()
    }
    addr, trans := raft.NewInmemTransport(raft.ServerAddress(n.opts.NodeID))

    r, err := raft.NewRaft(cfg, n.fsm, logs, stable, snaps, trans)
    if err != nil { return err }
    n.r, n.logs = r, logs

    boot := raft.Configuration{Servers: []raft.Server{{ID: cfg.LocalID, Address: addr}}}
    if err := r.BootstrapCluster(boot).Error(); err != nil && !errors.Is(err, raft.ErrCantBootstrap) {
        return err
    }
    logutil.Infof(n.log, "node %s started (data=%q)", n.opts.NodeID, n.opts.DataDir)

    go func() {
        <-ctx.Done()
        _ = n.Stop()
    }()
    return nil
}

// WaitLeader blocks until this node has won the election or ctx is done.
func (n *Node) WaitLeader(ctx context.Context) error {
    if n.r == nil { return ErrNotStarted }
    t := time.NewTicker(10 * time.Millisecond)
    defer t.Stop()
    for {
        if n.r.State() == raft.Leader { return nil }
        select {
        case <-ctx.Done():
            return ctx.Err()
        case <-t.C:
        }
    }
}

func (n *Node) apply(cmd command, source string) error {
    if n.r == nil { return ErrNotStarted }
    if n.r.State() != raft.Leader { return ErrNotLeader }
    data, err := json.Marshal(cmd)
    if err != nil { return err }
    err = futureErr(n.r.Apply(data, n.opts.ApplyTimeout))
    countApply(source, err)
    return err
}

func futureErr(af raft.ApplyFuture) error {
    if err := af.Error(); err != nil { return err }
    if e, ok := af.Response().(error); ok && e != nil { return e }
    return nil
}

func countApply(source string, err error) {
    result := "ok"
    if err != nil { result = "error" }
    metrics.DevApplies.WithLabelValues(source, result).Inc()
}

// PutBlob replicates key=data through the Raft log.
func (n *Node) PutBlob(key string, data []byte) error {
    if key == "" { return ErrEmptyKey }
    return n.apply(command{Op: opPut, Key: key, Data: string(data)}, "blob")
}

// Blob returns the applied value for key.
func (n *Node) Blob(key string) ([]byte, bool) {
    v, ok := n.fsm.get(key)
    return []byte(v), ok
}

func (n *Node) Keys() []string { return n.fsm.keys() }

// BenchmarkReport is what /_benchmark returns.
type BenchmarkReport struct {
    Requests   int     `json:"requests"`
    DataSize   int     `json:"dataSize"`
    Errors     int     `json:"errors"`
    DurationMs int64   `json:"durationMs"`
    OpsPerSec  float64 `json:"opsPerSec"`
    LastIndex  uint64  `json:"lastIndex"`
}

// Benchmark pipelines requests applies of dataSize random bytes and waits
// for all of them.
func (n *Node) Benchmark(ctx context.Context, requests, dataSize int) (BenchmarkReport, error) {
    rep := BenchmarkReport{Requests: requests, DataSize: dataSize}
    if n.r == nil { return rep, ErrNotStarted }
    if n.r.State() != raft.Leader { return rep, ErrNotLeader }
    payload := make([]byte, dataSize)
    if _, err := rand.Read(payload); err != nil { return rep, err }
    data, err := json.Marshal(command{Op: opBench, Data: fmt.Sprintf("%x", payload)})
    if err != nil { return rep, err }

    start := time.Now()
    futures := make([]raft.ApplyFuture, 0, requests)
    for i := 0; i < requests; i++ {
        if ctx.Err() != nil { break }
        futures = append(futures, n.r.Apply(data, n.opts.ApplyTimeout))
    }
    rep.Errors = requests - len(futures)
    for _, f := range futures {
        err := futureErr(f)
        countApply("benchmark", err)
        if err != nil { rep.Errors++; continue }
        if idx := f.Index(); idx > rep.LastIndex { rep.LastIndex = idx }
    }
    elapsed := time.Since(start)
    rep.DurationMs = elapsed.Milliseconds()
    if s := elapsed.Seconds(); s > 0 { rep.OpsPerSec = float64(requests-rep.Errors) / s }
    return rep, nil
}

// LogTail returns up to limit trailing entries of the Raft log together with
// the node's commit index. Compacted entries are skipped.
func (n *Node) LogTail(limit int) (adminapi.RaftLog, error) {
    var out adminapi.RaftLog
    if n.r == nil { return out, ErrNotStarted }
    if limit <= 0 { limit = n.opts.LogLimit }
    out.CommittedIndex = n.r.CommitIndex()
    first, err := n.logs.FirstIndex()
    if err != nil { return out, err }
    last, err := n.logs.LastIndex()
    if err != nil { return out, err }
    if last == 0 { return out, nil }
    if first == 0 { first = 1 }
    start := first
    if last >= uint64(limit) && last-uint64(limit)+1 > start { start = last - uint64(limit) + 1 }
    for i := start; i <= last; i++ {
        var l raft.Log
        if err := n.logs.GetLog(i, &l); err != nil {
            if errors.Is(err, raft.ErrLogNotFound) { continue }
            return out, err
        }
        out.Entries = append(out.Entries, toEntry(&l, out.CommittedIndex))
    }
    return out, nil
}

func toEntry(l *raft.Log, committed uint64) adminapi.LogEntry {
    e := adminapi.LogEntry{Index: l.Index, Term: l.Term, Type: l.Type.String(), Committed: l.Index <= committed}
    if l.Type == raft.LogCommand && json.Valid(l.Data) {
        e.Payload = json.RawMessage(l.Data)
    }
    return e
}

// State summarises the node for /_raft/state.
func (n *Node) State() (adminapi.RaftState, error) {
    if n.r == nil { return nil, ErrNotStarted }
    addr, id := n.r.LeaderWithID()
    st := adminapi.RaftState{
        "id":           n.opts.NodeID,
        "state":        n.r.State().String(),
        "leaderId":     string(id),
        "leaderAddr":   string(addr),
        "commitIndex":  n.r.CommitIndex(),
        "appliedIndex": n.r.AppliedIndex(),
        "lastIndex":    n.r.LastIndex(),
    }
    stats := n.r.Stats()
    if t, err := strconv.ParseUint(stats["current_term"], 10, 64); err == nil { st["term"] = t }
    st["stats"] = stats
    cf := n.r.GetConfiguration()
    if err := cf.Error(); err == nil {
        servers := make([]map[string]string, 0, len(cf.Configuration().Servers))
        for _, s := range cf.Configuration().Servers {
            servers = append(servers, map[string]string{"id": string(s.ID), "address": string(s.Address), "suffrage": s.Suffrage.String()})
        }
        st["servers"] = servers
    }
    return st, nil
}

// Settings describes the dev server configuration for /_settings.
func (n *Node) Settings() adminapi.Settings {
    return adminapi.Settings{
        "nodeId":               n.opts.NodeID,
        "dataDir":              n.opts.DataDir,
        "logLimit":             n.opts.LogLimit,
        "applyTimeout":         n.opts.ApplyTimeout.String(),
        "heartbeatTimeout":     n.opts.HeartbeatTimeout.String(),
        "electionTimeout":      n.opts.ElectionTimeout.String(),
        "commitTimeout":        n.opts.CommitTimeout.String(),
        "maxBenchmarkRequests": n.opts.MaxBenchmarkRequests,
    }
}

// Stop shuts Raft down and closes on-disk stores. Safe to call twice.
func (n *Node) Stop() error {
    if n.r == nil { return nil }
    n.stop.Do(func() {
        n.stopErr = n.r.Shutdown().Error()
        for _, c := range n.closers { _ = c.Close() }
        logutil.Infof(n.log, "node %s stopped", n.opts.NodeID)
    })
    return n.stopErr
}
