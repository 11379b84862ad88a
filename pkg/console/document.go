package console

import "sync"

// Document is the surface the controller draws on: a fixed chrome region
// rendered once, and a main region replaced on every view transition.
// ReplaceMain is only ever called from the controller's loop goroutine.
type Document interface {
    Chrome() string
    ReplaceMain(view ViewName, markup string) error
}

// MemoryDocument keeps the markup in memory for embedding programs, the web
// front-end and tests. Readers may call Main and Changed from any goroutine.
type MemoryDocument struct {
    mu      sync.RWMutex
    chrome  string
    view    ViewName
    main    string
    version uint64
    changed chan struct{}
}

// NewMemoryDocument returns a document with the given chrome markup and an
// empty main region.
func NewMemoryDocument(chrome string) *MemoryDocument {
    return &MemoryDocument{chrome: chrome, changed: make(chan struct{})}
}

func (d *MemoryDocument) Chrome() string { return d.chrome }

func (d *MemoryDocument) ReplaceMain(view ViewName, markup string) error {
    d.mu.Lock()
    d.view, d.main = view, markup
    d.version++
    close(d.changed)
    d.changed = make(chan struct{})
    d.mu.Unlock()
    return nil
}

// Main returns the view shown in the main region, its markup and a version
// that increases with every replacement.
func (d *MemoryDocument) Main() (ViewName, string, uint64) {
    d.mu.RLock()
    defer d.mu.RUnlock()
    return d.view, d.main, d.version
}

// Changed returns a channel closed by the next ReplaceMain.
func (d *MemoryDocument) Changed() <-chan struct{} {
    d.mu.RLock()
    defer d.mu.RUnlock()
    return d.changed
}

var _ Document = (*MemoryDocument)(nil)
