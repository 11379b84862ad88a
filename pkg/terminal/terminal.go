// Package terminal is a line-oriented front-end for the console: the main
// region is printed as text whenever it changes, and operator commands read
// from an input stream are turned into console events.
package terminal

import (
    "bufio"
    "context"
    "errors"
    "fmt"
    "io"
    "net/url"
    "strings"
    "sync"

    "github.com/amirimatin/queue-console/pkg/console"
)

// Controller is the part of console.Controller the terminal drives.
type Controller interface {
    Dispatch(ctx context.Context, ev console.Event) error
}

// Terminal implements console.Document on an io.Writer and runs the command
// loop.
type Terminal struct {
    mu     sync.Mutex
    out    io.Writer
    chrome string
    last   string
}

func New(out io.Writer, chrome string) *Terminal {
    return &Terminal{out: out, chrome: chrome}
}

func (t *Terminal) Chrome() string { return t.chrome }

// ReplaceMain prints the new main region. Identical consecutive output, as
// produced by an idle raft log poll, is not repeated.
func (t *Terminal) ReplaceMain(view console.ViewName, markup string) error {
    text := Text(markup)
    t.mu.Lock()
    defer t.mu.Unlock()
    if text == t.last { return nil }
    t.last = text
    _, err := fmt.Fprintf(t.out, "\n== %s ==\n%s\n", view, text)
    return err
}

func (t *Terminal) printf(f string, args ...any) {
    t.mu.Lock()
    defer t.mu.Unlock()
    fmt.Fprintf(t.out, f, args...)
}

const helpText = `commands:
  go <view>                 open settings|raftState|raftLog|blobList|putBlob|startBenchmark
  click #<target>           follow a link on screen
  press <key>               press the "get" button of a blob row (alias: get)
  put <key> <data...>       submit the put-blob form
  bench <requests> <size>   submit the benchmark form
  submit #<form> k=v ...    submit any form on screen
  chrome                    print the navigation bar
  help, quit
`

// Command is a parsed operator line.
type Command struct {
    Event  *console.Event
    Help   bool
    Quit   bool
    Chrome bool
}

// ParseCommand turns one input line into a Command.
func ParseCommand(line string) (Command, error) {
    fields := strings.Fields(line)
    if len(fields) == 0 { return Command{}, nil }
    verb, args := strings.ToLower(fields[0]), fields[1:]
    ev := func(e console.Event) (Command, error) { return Command{Event: &e}, nil }
    switch verb {
    case "help", "?":
        return Command{Help: true}, nil
    case "quit", "exit", "q":
        return Command{Quit: true}, nil
    case "chrome":
        return Command{Chrome: true}, nil
    case "go", "open":
        if len(args) != 1 { return Command{}, errors.New("usage: go <view>") }
        v, err := console.ParseViewName(args[0])
        if err != nil { return Command{}, err }
        return ev(console.Click("#" + string(v)))
    case "click":
        if len(args) != 1 || !strings.HasPrefix(args[0], "#") { return Command{}, errors.New("usage: click #<target>") }
        return ev(console.Click(args[0]))
    case "press", "get":
        if len(args) != 1 { return Command{}, fmt.Errorf("usage: %s <key>", verb) }
        return ev(console.Press(args[0]))
    case "put":
        if len(args) < 1 { return Command{}, errors.New("usage: put <key> <data...>") }
        rest := strings.TrimSpace(strings.TrimSpace(line)[len(fields[0]):])
        data := strings.TrimSpace(rest[len(args[0]):])
        return ev(console.Submit("#putBlob", url.Values{"key": {args[0]}, "data": {data}}))
    case "bench", "benchmark":
        if len(args) != 2 { return Command{}, errors.New("usage: bench <requests> <dataSize>") }
        return ev(console.Submit("#startBenchmark", url.Values{"requests": {args[0]}, "dataSize": {args[1]}}))
    case "submit":
        if len(args) < 1 || !strings.HasPrefix(args[0], "#") { return Command{}, errors.New("usage: submit #<form> k=v ...") }
        vals := url.Values{}
        for _, kv := range args[1:] {
            k, v, _ := strings.Cut(kv, "=")
            if uv, err := url.QueryUnescape(v); err == nil { v = uv }
            vals.Add(k, v)
        }
        return ev(console.Submit(args[0], vals))
    }
    if v, err := console.ParseViewName(verb); err == nil {
        return ev(console.Click("#" + string(v)))
    }
    return Command{}, fmt.Errorf("unknown command %q (try help)", fields[0])
}

// Run reads commands from in until EOF, quit or ctx is done.
func (t *Terminal) Run(ctx context.Context, in io.Reader, c Controller) error {
    lines := make(chan string)
    scanErr := make(chan error, 1)
    go func() {
        sc := bufio.NewScanner(in)
        for sc.Scan() {
            select {
            case lines <- sc.Text():
            case <-ctx.Done():
                return
            }
        }
        scanErr <- sc.Err()
        close(lines)
    }()

    t.printf("type help for commands\n")
    for {
        select {
        case <-ctx.Done():
            return nil
        case line, ok := <-lines:
            if !ok { return <-scanErr }
            cmd, err := ParseCommand(line)
            if err != nil {
                t.printf("error: %v\n", err)
                continue
            }
            switch {
            case cmd.Quit:
                return nil
            case cmd.Help:
                t.printf("%s", helpText)
            case cmd.Chrome:
                t.printf("%s\n", Text(t.chrome))
            case cmd.Event != nil:
                if err := c.Dispatch(ctx, *cmd.Event); err != nil {
                    if errors.Is(err, console.ErrNoBinding) {
                        t.printf("not on screen: %s\n", cmd.Event.Trigger)
                    } else {
                        t.printf("error: %v\n", err)
                    }
                }
            }
        }
    }
}

var _ console.Document = (*Terminal)(nil)
