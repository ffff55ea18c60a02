package assetroot

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testShell = "<!doctype html><html><body><div id=\"app\"></div></body></html>"

// newTestRoot lays out a small built bundle and opens it.
func newTestRoot(t *testing.T) (*Root, string) {
	t.Helper()
	base := t.TempDir()
	dir := filepath.Join(base, "dist")
	mustWrite(t, filepath.Join(dir, "index.html"), testShell)
	mustWrite(t, filepath.Join(dir, "assets", "app.abc123.js"), "console.log('app')")
	mustWrite(t, filepath.Join(dir, "assets", "css", "site.css"), "body{margin:0}")
	mustWrite(t, filepath.Join(dir, "main.py"), "print('outside assets')")
	mustWrite(t, filepath.Join(base, "secret.txt"), "outside root")

	root, err := Open(dir, "index.html", "assets")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { root.Close() })
	return root, dir
}

func mustWrite(t *testing.T, name, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(name, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestOpenRejectsMissingDir(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "nope"), "index.html", "assets"); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestOpenRejectsFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "file")
	mustWrite(t, name, "x")
	if _, err := Open(name, "index.html", "assets"); err == nil {
		t.Fatal("expected error when root is a file")
	}
}

func TestShell(t *testing.T) {
	root, _ := newTestRoot(t)

	if !root.HasShell() {
		t.Fatal("HasShell = false, want true")
	}
	body, err := root.Shell()
	if err != nil {
		t.Fatalf("Shell: %v", err)
	}
	if string(body) != testShell {
		t.Fatalf("Shell body = %q, want %q", body, testShell)
	}
}

func TestShellMissing(t *testing.T) {
	dir := t.TempDir()
	root, err := Open(dir, "index.html", "assets")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer root.Close()

	if root.HasShell() {
		t.Fatal("HasShell = true for empty root")
	}
	if _, err := root.Shell(); !errors.Is(err, ErrShellMissing) {
		t.Fatalf("Shell error = %v, want ErrShellMissing", err)
	}
}

func TestAsset(t *testing.T) {
	root, _ := newTestRoot(t)

	tests := []struct {
		rel      string
		wantBody string
		wantType string
	}{
		{"/app.abc123.js", "console.log('app')", "text/javascript; charset=utf-8"},
		{"app.abc123.js", "console.log('app')", "text/javascript; charset=utf-8"},
		{"/css/site.css", "body{margin:0}", "text/css; charset=utf-8"},
		{"/css/./site.css", "body{margin:0}", "text/css; charset=utf-8"},
	}
	for _, tt := range tests {
		a, err := root.Asset(tt.rel)
		if err != nil {
			t.Errorf("Asset(%q): %v", tt.rel, err)
			continue
		}
		if string(a.Data) != tt.wantBody {
			t.Errorf("Asset(%q) body = %q, want %q", tt.rel, a.Data, tt.wantBody)
		}
		if a.ContentType != tt.wantType {
			t.Errorf("Asset(%q) type = %q, want %q", tt.rel, a.ContentType, tt.wantType)
		}
	}
}

func TestAssetTraversal(t *testing.T) {
	root, _ := newTestRoot(t)

	for _, rel := range []string{
		"/../main.py",
		"../main.py",
		"/../../secret.txt",
		"/css/../../main.py",
		"/css/../site.css",
		"/..",
		"//etc/passwd",
		"/a\\..\\main.py",
		"/app.js\x00.png",
	} {
		if _, err := root.Asset(rel); !errors.Is(err, ErrTraversal) {
			t.Errorf("Asset(%q) error = %v, want ErrTraversal", rel, err)
		}
	}
}

func TestAssetNotFound(t *testing.T) {
	root, _ := newTestRoot(t)

	for _, rel := range []string{
		"/missing.js",
		"/",
		"",
		"/css",
		"/css/",
		"/app.abc123.js/x",
		"/" + strings.Repeat("a", 300) + ".js",
	} {
		if _, err := root.Asset(rel); !errors.Is(err, ErrNotFound) {
			t.Errorf("Asset(%q) error = %v, want ErrNotFound", rel, err)
		}
	}
}

func TestAssetSymlinkOutsideRoot(t *testing.T) {
	root, dir := newTestRoot(t)
	outside := filepath.Join(filepath.Dir(dir), "secret.txt")
	if err := os.Symlink(outside, filepath.Join(dir, "assets", "leak.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	a, err := root.Asset("/leak.txt")
	if err == nil {
		t.Fatalf("Asset through escaping symlink returned %q", a.Data)
	}
}

func TestAssetSymlinkOutsideAssetsDir(t *testing.T) {
	root, dir := newTestRoot(t)
	if err := os.Symlink("../main.py", filepath.Join(dir, "assets", "main.js")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	a, err := root.Asset("/main.js")
	if err == nil {
		t.Fatalf("Asset through symlink leaving assets returned %q", a.Data)
	}
}

func TestOpenWithoutAssetsDir(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "index.html"), testShell)
	root, err := Open(dir, "index.html", "assets")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer root.Close()

	if _, err := root.Asset("/app.js"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Asset error = %v, want ErrNotFound", err)
	}
	if _, err := root.Shell(); err != nil {
		t.Fatalf("Shell: %v", err)
	}
}

func TestAssetRepeatableReads(t *testing.T) {
	root, _ := newTestRoot(t)

	first, err := root.Asset("/app.abc123.js")
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	second, err := root.Asset("/app.abc123.js")
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if !bytes.Equal(first.Data, second.Data) {
		t.Fatal("repeated reads differ")
	}
}

func TestContentType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"a.woff2", nil, "font/woff2"},
		{"a.SVG", nil, "image/svg+xml"},
		{"a.js.map", nil, "application/json"},
		{"a.wasm", nil, "application/wasm"},
		{"LICENSE", []byte("plain words"), "text/plain; charset=utf-8"},
		{"blob", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), "image/png"},
	}
	for _, tt := range tests {
		if got := ContentType(tt.name, tt.data); !strings.EqualFold(got, tt.want) {
			t.Errorf("ContentType(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
