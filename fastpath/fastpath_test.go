package fastpath_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aolserver/aolserver-sub004/fastpath"
	"github.com/aolserver/aolserver-sub004/fastpath/filecache"
	"github.com/aolserver/aolserver-sub004/httpdate"
)

type fakeWriter struct {
	headers    map[string]string
	status     int
	body       bytes.Buffer
	redirected string
	head       bool
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{headers: make(map[string]string)}
}

func (f *fakeWriter) SetHeader(name, value string) { f.headers[name] = value }
func (f *fakeWriter) WriteHeader(status int)        { f.status = status }
func (f *fakeWriter) Write(p []byte) (int, error)   { return f.body.Write(p) }
func (f *fakeWriter) Redirect(url string)           { f.redirected = url }
func (f *fakeWriter) IsHead() bool                  { return f.head }
func (f *fakeWriter) SkipBody() bool                { return f.head }

func TestServeFileNotFound(t *testing.T) {
	cfg := fastpath.Config{PageRoot: t.TempDir()}
	r := fastpath.New(cfg, nil)
	w := newFakeWriter()

	if err := r.Serve(w, "GET", "/missing.txt", ""); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}
	if w.status != 404 {
		t.Fatalf("expected 404, got %d", w.status)
	}
}

func TestServeFileStreaming(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0644)

	cfg := fastpath.Config{PageRoot: dir}
	r := fastpath.New(cfg, nil)
	w := newFakeWriter()

	if err := r.Serve(w, "GET", "/a.txt", ""); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}
	if w.status != 200 {
		t.Fatalf("expected 200, got %d", w.status)
	}
	if w.body.String() != "hello" {
		t.Fatalf("body = %q", w.body.String())
	}
	if w.headers["Last-Modified"] == "" {
		t.Fatal("expected Last-Modified header")
	}
}

func TestServeFileCached(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.txt"), []byte("cached content"), 0644)

	cfg := fastpath.Config{PageRoot: dir, CacheEnabled: true, CacheMaxEntry: 1 << 20}
	r := fastpath.New(cfg, filecache.New())
	w := newFakeWriter()

	if err := r.Serve(w, "GET", "/a.txt", ""); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}
	if w.body.String() != "cached content" {
		t.Fatalf("body = %q", w.body.String())
	}
}

func TestServeNotModified(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	os.WriteFile(path, []byte("hi"), 0644)

	info, _ := os.Stat(path)
	ims := httpdate.Format(info.ModTime().Add(time.Hour))

	cfg := fastpath.Config{PageRoot: dir}
	r := fastpath.New(cfg, nil)
	w := newFakeWriter()

	if err := r.Serve(w, "GET", "/a.txt", ims); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}
	if w.status != 304 {
		t.Fatalf("expected 304, got %d", w.status)
	}
}

func TestServeHeadOmitsBody(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.txt"), []byte("body content"), 0644)

	cfg := fastpath.Config{PageRoot: dir}
	r := fastpath.New(cfg, nil)
	w := newFakeWriter()
	w.head = true

	if err := r.Serve(w, "HEAD", "/a.txt", ""); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}
	if w.status != 200 {
		t.Fatalf("expected 200, got %d", w.status)
	}
	if w.body.Len() != 0 {
		t.Fatalf("expected empty body for HEAD, got %q", w.body.String())
	}
}

func TestServeDirRedirectsWithoutTrailingSlash(t *testing.T) {
	dir := t.TempDir()
	os.Mkdir(filepath.Join(dir, "sub"), 0755)
	os.WriteFile(filepath.Join(dir, "sub", "index.html"), []byte("index"), 0644)

	cfg := fastpath.Config{PageRoot: dir, DirectoryFiles: []string{"index.html"}}
	r := fastpath.New(cfg, nil)
	w := newFakeWriter()

	if err := r.Serve(w, "GET", "/sub", ""); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}
	if w.redirected != "/sub/" {
		t.Fatalf("expected redirect to /sub/, got %q", w.redirected)
	}
}

func TestServeDirServesIndexWithTrailingSlash(t *testing.T) {
	dir := t.TempDir()
	os.Mkdir(filepath.Join(dir, "sub"), 0755)
	os.WriteFile(filepath.Join(dir, "sub", "index.html"), []byte("index body"), 0644)

	cfg := fastpath.Config{PageRoot: dir, DirectoryFiles: []string{"index.html"}}
	r := fastpath.New(cfg, nil)
	w := newFakeWriter()

	if err := r.Serve(w, "GET", "/sub/", ""); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}
	if w.body.String() != "index body" {
		t.Fatalf("body = %q", w.body.String())
	}
}

func TestServeDirFallsBackToHandler(t *testing.T) {
	dir := t.TempDir()
	os.Mkdir(filepath.Join(dir, "sub"), 0755)

	called := false
	cfg := fastpath.Config{
		PageRoot: dir,
		DirectoryHandler: func(w fastpath.ResponseWriter, path string) {
			called = true
			w.WriteHeader(200)
		},
	}
	r := fastpath.New(cfg, nil)
	w := newFakeWriter()

	if err := r.Serve(w, "GET", "/sub/", ""); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}
	if !called {
		t.Fatal("expected directory handler to be invoked")
	}
}

func TestIsFileIsDir(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0644)
	os.Mkdir(filepath.Join(dir, "sub"), 0755)

	cfg := &fastpath.Config{PageRoot: dir}

	if !cfg.IsFile("/a.txt") {
		t.Fatal("expected IsFile true")
	}
	if cfg.IsDir("/a.txt") {
		t.Fatal("expected IsDir false for a file")
	}
	if !cfg.IsDir("/sub") {
		t.Fatal("expected IsDir true")
	}
}
