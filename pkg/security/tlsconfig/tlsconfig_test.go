package tlsconfig

import (
    "os"
    "path/filepath"
    "testing"
)

func TestDisabledReturnsNil(t *testing.T) {
    var o Options
    c, err := o.Client()
    if err != nil || c != nil { t.Fatalf("client: got %v, %v", c, err) }
    s, err := o.Server()
    if err != nil || s != nil { t.Fatalf("server: got %v, %v", s, err) }
}

func TestServerRequiresKeypair(t *testing.T) {
    o := Options{Enable: true}
    if _, err := o.Server(); err == nil {
        t.Fatalf("expected error without cert/key")
    }
}

func TestClientRejectsEmptyCA(t *testing.T) {
    dir := t.TempDir()
    ca := filepath.Join(dir, "ca.pem")
    if err := os.WriteFile(ca, []byte("not a certificate\n"), 0o644); err != nil { t.Fatal(err) }
    o := Options{Enable: true, CAFile: ca}
    if _, err := o.Client(); err == nil {
        t.Fatalf("expected error for CA file without certificates")
    }
}

func TestClientSkipVerify(t *testing.T) {
    o := Options{Enable: true, InsecureSkipVerify: true, ServerName: "admin.local"}
    c, err := o.Client()
    if err != nil { t.Fatalf("client: %v", err) }
    if !c.InsecureSkipVerify || c.ServerName != "admin.local" {
        t.Fatalf("unexpected config: %+v", c)
    }
}
