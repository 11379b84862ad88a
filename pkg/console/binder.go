package console

import (
    "fmt"
    "net/url"
    "sort"
    "strings"

    "golang.org/x/net/html"
    "golang.org/x/net/html/atom"
)

// TriggerKind classifies the on-screen element an operator acts on.
type TriggerKind int

const (
    TriggerLink   TriggerKind = iota + 1 // <a href="#...">
    TriggerForm                          // <form action="#...">
    TriggerButton                        // <button data-resource-id="...">
)

func (k TriggerKind) String() string {
    switch k {
    case TriggerLink:
        return "link"
    case TriggerForm:
        return "form"
    case TriggerButton:
        return "button"
    default:
        return fmt.Sprintf("trigger(%d)", int(k))
    }
}

// Trigger identifies one bindable element. Target is the href fragment for
// links, the action fragment for forms and the resource id for buttons.
type Trigger struct {
    Kind   TriggerKind
    Target string
}

func (t Trigger) String() string { return t.Kind.String() + ":" + t.Target }

// Event is an operator action on a trigger. Fields carries form input for
// TriggerForm events.
type Event struct {
    Trigger
    Fields url.Values
}

// Click follows a navigation link such as "#raftLog".
func Click(href string) Event { return Event{Trigger: Trigger{Kind: TriggerLink, Target: href}} }

// Submit submits the form whose action is the given fragment.
func Submit(action string, fields url.Values) Event {
    return Event{Trigger: Trigger{Kind: TriggerForm, Target: action}, Fields: fields}
}

// Press presses the row button carrying resourceID.
func Press(resourceID string) Event {
    return Event{Trigger: Trigger{Kind: TriggerButton, Target: resourceID}}
}

// Destination returns the view the event leads to when its handler
// succeeds: the linked view, blobList after a put, benchmarkResult after a
// benchmark and putBlob after a resource button.
func (e Event) Destination() (ViewName, bool) {
    switch e.Kind {
    case TriggerLink:
        v, err := ParseViewName(e.Target)
        return v, err == nil
    case TriggerForm:
        switch e.Target {
        case "#putBlob":
            return ViewBlobList, true
        case "#startBenchmark":
            return ViewBenchmarkResult, true
        }
    case TriggerButton:
        return ViewPutBlob, true
    }
    return "", false
}

// Handler reacts to an event. It runs on the controller loop.
type Handler func(ev Event) error

// Routes is the routing table from action identifiers to handlers. Links and
// forms are routed per target (see LinkAction, FormAction); all resource
// buttons share ButtonAction.
type Routes map[string]Handler

// ButtonAction routes every <button data-resource-id>.
const ButtonAction = "button[data-resource-id]"

func LinkAction(href string) string   { return `a[href="` + href + `"]` }
func FormAction(action string) string { return `form[action="` + action + `"]` }

// Scope is the set of bindings produced by one render pass.
type Scope struct {
    name     string
    bindings map[Trigger]Handler
}

// Lookup returns the handler bound to t in this scope.
func (s *Scope) Lookup(t Trigger) (Handler, bool) {
    if s == nil { return nil, false }
    h, ok := s.bindings[t]
    return h, ok
}

func (s *Scope) Len() int {
    if s == nil { return 0 }
    return len(s.bindings)
}

// Triggers lists the bound triggers in a stable order.
func (s *Scope) Triggers() []Trigger {
    if s == nil { return nil }
    out := make([]Trigger, 0, len(s.bindings))
    for t := range s.bindings { out = append(out, t) }
    sort.Slice(out, func(i, j int) bool {
        if out[i].Kind != out[j].Kind { return out[i].Kind < out[j].Kind }
        return out[i].Target < out[j].Target
    })
    return out
}

// Binder builds scopes from markup using a fixed routing table.
type Binder struct {
    routes Routes
}

func NewBinder(routes Routes) *Binder { return &Binder{routes: routes} }

// Bind scans markup for links, forms and resource buttons and returns a new
// scope binding each distinct trigger that has a route exactly once.
// Elements without a route are left unbound.
func (b *Binder) Bind(name, markup string) (*Scope, error) {
    root, err := html.Parse(strings.NewReader(markup))
    if err != nil { return nil, fmt.Errorf("console: parse %s markup: %w", name, err) }
    s := &Scope{name: name, bindings: make(map[Trigger]Handler)}
    var walk func(n *html.Node)
    walk = func(n *html.Node) {
        if n.Type == html.ElementNode {
            if t, action, ok := triggerOf(n); ok {
                if h, routed := b.routes[action]; routed {
                    if _, dup := s.bindings[t]; !dup { s.bindings[t] = h }
                }
            }
        }
        for c := n.FirstChild; c != nil; c = c.NextSibling { walk(c) }
    }
    walk(root)
    return s, nil
}

func triggerOf(n *html.Node) (Trigger, string, bool) {
    switch n.DataAtom {
    case atom.A:
        if href, ok := attr(n, "href"); ok && strings.HasPrefix(href, "#") {
            return Trigger{Kind: TriggerLink, Target: href}, LinkAction(href), true
        }
    case atom.Form:
        if action, ok := attr(n, "action"); ok && strings.HasPrefix(action, "#") {
            return Trigger{Kind: TriggerForm, Target: action}, FormAction(action), true
        }
    case atom.Button:
        if id, ok := attr(n, "data-resource-id"); ok {
            return Trigger{Kind: TriggerButton, Target: id}, ButtonAction, true
        }
    }
    return Trigger{}, "", false
}

func attr(n *html.Node, key string) (string, bool) {
    for _, a := range n.Attr {
        if a.Namespace == "" && a.Key == key { return a.Val, true }
    }
    return "", false
}
