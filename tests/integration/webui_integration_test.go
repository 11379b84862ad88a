//go:build integration

package integration

import (
    "context"
    "io"
    "net/http"
    "net/http/httptest"
    "net/url"
    "strings"
    "testing"
    "time"

    "github.com/amirimatin/queue-console/pkg/webui"
)

func TestWebUI_ActionsDriveRealConsole(t *testing.T) {
    ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
    defer cancel()
    con, _ := mustStartStack(t, ctx)

    ui := httptest.NewServer(webui.NewServer(":0", nil).Handler(con.Controller, con.Memory, con.Renderer))
    defer ui.Close()

    post := func(path, form string) (int, string, string) {
        t.Helper()
        resp, err := http.Post(ui.URL+path, "application/x-www-form-urlencoded", strings.NewReader(form))
        if err != nil { t.Fatalf("post %s: %v", path, err) }
        defer resp.Body.Close()
        b, _ := io.ReadAll(resp.Body)
        return resp.StatusCode, resp.Header.Get("X-View"), string(b)
    }

    code, view, body := post("/actions/submit?action="+url.QueryEscape("#putBlob"), "key=web&data=from+browser")
    if code != http.StatusConflict { t.Fatalf("put from raftState: code=%d view=%s body=%s", code, view, body) }

    code, view, _ = post("/actions/click?href="+url.QueryEscape("#putBlob"), "")
    if code != http.StatusOK || view != "putBlob" { t.Fatalf("click putBlob: code=%d view=%s", code, view) }

    code, view, body = post("/actions/submit?action="+url.QueryEscape("#putBlob"), "key=web&data=from+browser")
    if code != http.StatusOK || view != "blobList" || !strings.Contains(body, `data-resource-id="web"`) {
        t.Fatalf("submit: code=%d view=%s body=%s", code, view, body)
    }

    resp, err := http.Get(ui.URL + "/")
    if err != nil { t.Fatalf("page: %v", err) }
    defer resp.Body.Close()
    page, _ := io.ReadAll(resp.Body)
    if !strings.Contains(string(page), `data-view="blobList"`) || !strings.Contains(string(page), `<a href="#settings">`) {
        t.Fatalf("page:\n%s", page)
    }
}
