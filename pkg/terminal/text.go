package terminal

import (
    "strings"

    "golang.org/x/net/html"
    "golang.org/x/net/html/atom"
)

// Text renders console markup as plain text for a terminal. Links print as
// "[label](#target)", resource buttons as "[label:id]" and form fields as
// "name=value".
func Text(markup string) string {
    root, err := html.Parse(strings.NewReader(markup))
    if err != nil { return markup }
    var b strings.Builder
    walkText(&b, root, false)
    return tidy(b.String())
}

func walkText(b *strings.Builder, n *html.Node, pre bool) {
    switch n.Type {
    case html.TextNode:
        if pre {
            b.WriteString(n.Data)
        } else if s := strings.Join(strings.Fields(n.Data), " "); s != "" {
            if str := b.String(); str != "" && !strings.HasSuffix(str, "\n") && !strings.HasSuffix(str, " ") {
                b.WriteByte(' ')
            }
            b.WriteString(s)
        }
        return
    case html.ElementNode:
        switch n.DataAtom {
        case atom.Style, atom.Script, atom.Title:
            return
        case atom.A:
            href, _ := attrOf(n, "href")
            b.WriteString(" [" + inner(n) + "](" + href + ")")
            return
        case atom.Button:
            if id, ok := attrOf(n, "data-resource-id"); ok {
                b.WriteString(" [" + inner(n) + ":" + id + "]")
            } else {
                b.WriteString(" [" + inner(n) + "]")
            }
            return
        case atom.Input:
            name, _ := attrOf(n, "name")
            val, _ := attrOf(n, "value")
            b.WriteString(" " + name + "=" + val)
            return
        case atom.Textarea:
            name, _ := attrOf(n, "name")
            b.WriteString(" " + name + "=" + inner(n))
            return
        case atom.Td, atom.Th:
            if !strings.HasSuffix(b.String(), "\n") && b.Len() > 0 { b.WriteString(" |") }
        case atom.Br:
            b.WriteByte('\n')
            return
        }
    }
    block := n.Type == html.ElementNode && isBlock(n.DataAtom)
    if block { newline(b) }
    for c := n.FirstChild; c != nil; c = c.NextSibling {
        walkText(b, c, pre || n.DataAtom == atom.Pre)
    }
    if block { newline(b) }
}

func isBlock(a atom.Atom) bool {
    switch a {
    case atom.H1, atom.H2, atom.H3, atom.H4, atom.P, atom.Div, atom.Tr, atom.Table,
        atom.Form, atom.Nav, atom.Pre, atom.Ul, atom.Li, atom.Label:
        return true
    }
    return false
}

func newline(b *strings.Builder) {
    if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") { b.WriteByte('\n') }
}

func inner(n *html.Node) string {
    var b strings.Builder
    var rec func(*html.Node)
    rec = func(n *html.Node) {
        if n.Type == html.TextNode { b.WriteString(n.Data) }
        for c := n.FirstChild; c != nil; c = c.NextSibling { rec(c) }
    }
    rec(n)
    if n.DataAtom == atom.Textarea { return b.String() }
    return strings.Join(strings.Fields(b.String()), " ")
}

func attrOf(n *html.Node, key string) (string, bool) {
    for _, a := range n.Attr {
        if a.Key == key { return a.Val, true }
    }
    return "", false
}

// tidy trims each line and drops repeated blank lines.
func tidy(s string) string {
    lines := strings.Split(s, "\n")
    out := make([]string, 0, len(lines))
    blank := true
    for _, l := range lines {
        l = strings.TrimSpace(l)
        if l == "" {
            if blank { continue }
            blank = true
        } else {
            blank = false
        }
        out = append(out, l)
    }
    return strings.TrimSpace(strings.Join(out, "\n"))
}
