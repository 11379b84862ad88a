package logutil

import (
    "bytes"
    "encoding/json"
    "log"
    "strings"
    "testing"
)

func TestComponentPrefixAndLevel(t *testing.T) {
    var buf bytes.Buffer
    l := Component(log.New(&buf, "", 0), "console")
    Warnf(l, "fetch %s failed", "/_raft/log")
    got := buf.String()
    if !strings.HasPrefix(got, "[console] WARN fetch /_raft/log failed") {
        t.Fatalf("unexpected line: %q", got)
    }
}

func TestJSONMode(t *testing.T) {
    SetJSON(true)
    defer SetJSON(false)
    var buf bytes.Buffer
    l := Component(log.New(&buf, "", 0), "devserver")
    Infof(l, "listening on %s", ":8080")

    var evt map[string]any
    if err := json.Unmarshal(buf.Bytes(), &evt); err != nil { t.Fatalf("not json: %v (%q)", err, buf.String()) }
    if evt["level"] != "info" || evt["msg"] != "listening on :8080" || evt["component"] != "devserver" {
        t.Fatalf("unexpected event: %#v", evt)
    }
}
