package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aolserver/aolserver-sub004/adp"
)

func TestPageCacheReturnsSamePageUntilModified(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "p.adp")
	if err := os.WriteFile(path, []byte("one"), 0o644); err != nil {
		t.Fatal(err)
	}

	pc := newPageCache(adp.NewParser(adp.NewRegistry()))

	first, err := pc.load(path)
	if err != nil {
		t.Fatal(err)
	}
	second, err := pc.load(path)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatal("expected the cached *adp.Page to be reused when the file is unchanged")
	}

	// advance mtime and change content; a naive cache keyed only on path
	// would keep serving the stale parse.
	future := time.Now().Add(time.Minute)
	if err := os.WriteFile(path, []byte("two, and longer"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	third, err := pc.load(path)
	if err != nil {
		t.Fatal(err)
	}
	if third == first {
		t.Fatal("expected a re-parse after mtime/size changed")
	}
}

func TestPageCacheMissingFileErrors(t *testing.T) {
	pc := newPageCache(adp.NewParser(adp.NewRegistry()))
	if _, err := pc.load(filepath.Join(t.TempDir(), "missing.adp")); err == nil {
		t.Fatal("expected an error for a nonexistent file")
	}
}
