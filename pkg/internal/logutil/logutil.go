package logutil

import (
    "encoding/json"
    "fmt"
    "log"
    "os"
    "sync/atomic"
    "time"
)

var jsonMode atomic.Bool

func init() {
    if os.Getenv("QUEUE_CONSOLE_LOG_JSON") == "1" || os.Getenv("QUEUE_CONSOLE_LOG_FORMAT") == "json" {
        jsonMode.Store(true)
    }
}

// SetJSON switches every logger written through this package to one JSON
// object per line.
func SetJSON(enabled bool) { jsonMode.Store(enabled) }

// Component returns a logger sharing l's output and flags whose lines are
// tagged with "[name] ". A nil l falls back to log.Default().
func Component(l *log.Logger, name string) *log.Logger {
    if l == nil { l = log.Default() }
    return log.New(l.Writer(), "["+name+"] ", l.Flags()|log.Lmsgprefix)
}

func Infof(l *log.Logger, f string, args ...any)  { logf(l, "info", f, args...) }
func Warnf(l *log.Logger, f string, args ...any)  { logf(l, "warn", f, args...) }
func Errorf(l *log.Logger, f string, args ...any) { logf(l, "error", f, args...) }

func logf(l *log.Logger, level, f string, args ...any) {
    if l == nil { l = log.Default() }
    msg := fmt.Sprintf(f, args...)
    if jsonMode.Load() {
        evt := map[string]any{
            "ts":    time.Now().UTC().Format(time.RFC3339Nano),
            "level": level,
            "msg":   msg,
        }
        if p := l.Prefix(); p != "" { evt["component"] = trimTag(p) }
        b, _ := json.Marshal(evt)
        log.New(l.Writer(), "", 0).Println(string(b))
        return
    }
    switch level {
    case "info":
        l.Printf("INFO %s", msg)
    case "warn":
        l.Printf("WARN %s", msg)
    default:
        l.Printf("ERROR %s", msg)
    }
}

// trimTag turns "[console] " into "console".
func trimTag(p string) string {
    if len(p) >= 3 && p[0] == '[' {
        if p[len(p)-1] == ' ' { p = p[:len(p)-1] }
        if p[len(p)-1] == ']' { return p[1 : len(p)-1] }
    }
    return p
}
