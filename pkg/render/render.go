// Package render turns console views into HTML fragments. Every view has a
// template of the same name; "chrome" renders the navigation bar that stays
// on screen across views and "page" lays out a whole document for the web
// front-end.
package render

import (
    "bytes"
    "embed"
    "encoding/json"
    "fmt"
    "html/template"
    "os"
    "path/filepath"
    "strconv"
)

//go:embed templates/*.html
var builtin embed.FS

// Func renders one compiled template against a data object.
type Func func(data any) (string, error)

// Renderer holds the parsed template set.
type Renderer struct {
    set *template.Template
}

// PageData is the input of the "page" template.
type PageData struct {
    View   string
    Chrome template.HTML
    Main   template.HTML
}

// New parses the built-in templates.
func New() (*Renderer, error) {
    set, err := template.New("console").Funcs(funcs).ParseFS(builtin, "templates/*.html")
    if err != nil { return nil, fmt.Errorf("render: parse built-in templates: %w", err) }
    return &Renderer{set: set}, nil
}

// NewWithOverrides parses the built-in templates and then every *.html file
// in dir; a {{define}} in dir replaces the built-in template of that name.
// An empty dir is the same as New.
func NewWithOverrides(dir string) (*Renderer, error) {
    r, err := New()
    if err != nil || dir == "" { return r, err }
    if st, err := os.Stat(dir); err != nil || !st.IsDir() {
        return nil, fmt.Errorf("render: template dir %q is not a directory", dir)
    }
    matches, err := filepath.Glob(filepath.Join(dir, "*.html"))
    if err != nil { return nil, err }
    if len(matches) == 0 { return r, nil }
    set, err := r.set.ParseFiles(matches...)
    if err != nil { return nil, fmt.Errorf("render: parse %s: %w", dir, err) }
    r.set = set
    return r, nil
}

// Compile returns the render function registered under name.
func (r *Renderer) Compile(name string) (Func, error) {
    t := r.set.Lookup(name)
    if t == nil { return nil, fmt.Errorf("render: no template %q", name) }
    return func(data any) (string, error) {
        var buf bytes.Buffer
        if err := t.Execute(&buf, data); err != nil {
            return "", fmt.Errorf("render: %s: %w", name, err)
        }
        return buf.String(), nil
    }, nil
}

// Render compiles and executes name in one step.
func (r *Renderer) Render(name string, data any) (string, error) {
    fn, err := r.Compile(name)
    if err != nil { return "", err }
    return fn(data)
}

// Chrome renders the navigation bar.
func (r *Renderer) Chrome() (string, error) { return r.Render("chrome", nil) }

// Page renders a full HTML document around already rendered chrome and main
// markup. Both are trusted output of this package.
func (r *Renderer) Page(view, chrome, main string) (string, error) {
    return r.Render("page", PageData{View: view, Chrome: template.HTML(chrome), Main: template.HTML(main)}) //nolint:gosec
}

var funcs = template.FuncMap{
    "value": formatValue,
}

// formatValue prints decoded JSON values compactly: scalars as text,
// objects and arrays as JSON.
func formatValue(v any) string {
    switch x := v.(type) {
    case nil:
        return ""
    case string:
        return x
    case bool:
        return strconv.FormatBool(x)
    case float64:
        return strconv.FormatFloat(x, 'f', -1, 64)
    case json.Number:
        return x.String()
    default:
        b, err := json.Marshal(x)
        if err != nil { return fmt.Sprint(x) }
        return string(b)
    }
}
