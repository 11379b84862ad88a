package console

import (
    "errors"
    "testing"
)

func countingRoutes(counts map[string]int) Routes {
    inc := func(key string) Handler {
        return func(Event) error { counts[key]++; return nil }
    }
    return Routes{
        LinkAction("#raftLog"):   inc("raftLog"),
        LinkAction("#settings"):  inc("settings"),
        FormAction("#putBlob"):   inc("putBlob"),
        ButtonAction:             inc("button"),
    }
}

func TestBinder_BindsEachTriggerOnce(t *testing.T) {
    counts := map[string]int{}
    b := NewBinder(countingRoutes(counts))
    markup := `<a href="#raftLog">log</a> <p><a href="#raftLog">again</a></p>
<a href="#unrouted">x</a> <a href="/elsewhere">y</a>
<form action="#putBlob"><input name="key"></form>
<button data-resource-id="k1">get</button><button data-resource-id="k2">get</button><button>plain</button>`

    s, err := b.Bind("main", markup)
    if err != nil { t.Fatalf("bind: %v", err) }
    want := []Trigger{
        {Kind: TriggerLink, Target: "#raftLog"},
        {Kind: TriggerForm, Target: "#putBlob"},
        {Kind: TriggerButton, Target: "k1"},
        {Kind: TriggerButton, Target: "k2"},
    }
    got := s.Triggers()
    if len(got) != len(want) { t.Fatalf("triggers = %v, want %v", got, want) }
    for i := range want {
        if got[i] != want[i] { t.Fatalf("trigger %d = %v, want %v", i, got[i], want[i]) }
    }

    h, ok := s.Lookup(Click("#raftLog").Trigger)
    if !ok { t.Fatalf("raftLog link not bound") }
    if err := h(Click("#raftLog")); err != nil { t.Fatal(err) }
    if counts["raftLog"] != 1 { t.Fatalf("raftLog handler ran %d times", counts["raftLog"]) }

    if _, ok := s.Lookup(Click("#unrouted").Trigger); ok { t.Fatalf("unrouted link should not be bound") }
    if _, ok := s.Lookup(Press("k3").Trigger); ok { t.Fatalf("k3 is not on screen") }
}

func TestBinder_FreshScopePerRender(t *testing.T) {
    b := NewBinder(countingRoutes(map[string]int{}))
    first, err := b.Bind("main", `<button data-resource-id="k1">get</button>`)
    if err != nil { t.Fatal(err) }
    second, err := b.Bind("main", `<a href="#settings">s</a>`)
    if err != nil { t.Fatal(err) }
    if first.Len() != 1 || second.Len() != 1 { t.Fatalf("lens = %d, %d", first.Len(), second.Len()) }
    if _, ok := second.Lookup(Press("k1").Trigger); ok { t.Fatalf("bindings leaked across renders") }
}

func TestBinder_UnescapesAttributes(t *testing.T) {
    b := NewBinder(countingRoutes(map[string]int{}))
    s, err := b.Bind("main", `<button data-resource-id="a&#34;b">get</button>`)
    if err != nil { t.Fatal(err) }
    if _, ok := s.Lookup(Press(`a"b`).Trigger); !ok { t.Fatalf("escaped resource id not bound: %v", s.Triggers()) }
}

func TestParseViewName(t *testing.T) {
    if v, err := ParseViewName("#raftLog"); err != nil || v != ViewRaftLog { t.Fatalf("got %q, %v", v, err) }
    if v, err := ParseViewName("blobList"); err != nil || v != ViewBlobList { t.Fatalf("got %q, %v", v, err) }
    if _, err := ParseViewName("nope"); !errors.Is(err, ErrUnknownView) { t.Fatalf("got %v", err) }
    if !ViewRaftLog.Live() || ViewRaftState.Live() { t.Fatalf("only raftLog is live") }
}

func TestEventDestination(t *testing.T) {
    cases := []struct {
        ev   Event
        want ViewName
        ok   bool
    }{
        {Click("#raftLog"), ViewRaftLog, true},
        {Click("#nowhere"), "", false},
        {Submit("#putBlob", nil), ViewBlobList, true},
        {Submit("#startBenchmark", nil), ViewBenchmarkResult, true},
        {Submit("#other", nil), "", false},
        {Press("k1"), ViewPutBlob, true},
    }
    for _, c := range cases {
        got, ok := c.ev.Destination()
        if got != c.want || ok != c.ok { t.Fatalf("%s: got %q,%v want %q,%v", c.ev, got, ok, c.want, c.ok) }
    }
}
