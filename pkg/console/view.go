package console

import "fmt"

// ViewName identifies a screen of the console. Each name has a template of
// the same name.
type ViewName string

const (
    ViewSettings        ViewName = "settings"
    ViewRaftState       ViewName = "raftState"
    ViewRaftLog         ViewName = "raftLog"
    ViewBlobList        ViewName = "blobList"
    ViewPutBlob         ViewName = "putBlob"
    ViewStartBenchmark  ViewName = "startBenchmark"
    ViewBenchmarkResult ViewName = "benchmarkResult"
)

// Views lists every view in navigation order.
var Views = []ViewName{
    ViewSettings, ViewRaftState, ViewRaftLog, ViewBlobList,
    ViewPutBlob, ViewStartBenchmark, ViewBenchmarkResult,
}

// ParseViewName accepts a view name with or without a leading '#'.
func ParseViewName(s string) (ViewName, error) {
    if len(s) > 0 && s[0] == '#' { s = s[1:] }
    for _, v := range Views {
        if string(v) == s { return v, nil }
    }
    return "", fmt.Errorf("%w: %q", ErrUnknownView, s)
}

// Live reports whether the view refreshes itself while displayed.
func (v ViewName) Live() bool { return v == ViewRaftLog }

// View is what the main region currently shows: the view name and the data
// it was rendered from.
type View struct {
    Name ViewName
    Data any
}
