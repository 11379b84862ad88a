package adminapi

import "context"

// Fetcher is the console's view of the admin API: one call per endpoint.
// Implementations must honour ctx cancellation so navigation can abandon a
// request that is still in flight.
type Fetcher interface {
    FetchSettings(ctx context.Context) (Settings, error)
    FetchRaftState(ctx context.Context) (RaftState, error)
    FetchRaftLog(ctx context.Context) (*RaftLog, error)
    FetchBlobList(ctx context.Context) (*BlobList, error)
    FetchBlob(ctx context.Context, key string) (string, error)
    PutBlob(ctx context.Context, key, data string) error
    RunBenchmark(ctx context.Context, req BenchmarkRequest) (*BenchmarkResult, error)
}

var _ Fetcher = (*Client)(nil)
