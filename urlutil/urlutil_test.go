package urlutil_test

import (
	"testing"

	"github.com/aolserver/aolserver-sub004/urlutil"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []string{
		"hello world",
		"a/b?c=d&e=f",
		"100% certain",
		"",
		"unicode: café",
	}

	for _, s := range cases {
		got := urlutil.Decode(urlutil.Encode(s))
		if got != s {
			t.Fatalf("round trip failed: %q -> %q -> %q", s, urlutil.Encode(s), got)
		}
	}
}

func TestDecodePlusIsSpace(t *testing.T) {
	if got := urlutil.Decode("a+b"); got != "a b" {
		t.Fatalf("expected 'a b', got %q", got)
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"/a/../b":     "/b",
		"/a/./b":      "/a/b",
		"//a//b":      "/a/b",
		"":            "/",
		"/":           "/",
		"/a/b/":       "/a/b/",
		"/../../a":    "/a",
		"/a/b/../../": "/",
	}

	for in, want := range cases {
		if got := urlutil.Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	paths := []string{"/a/../b?x=1", "/a/b/c/", "//x/../../y/"}
	for _, p := range paths {
		once := urlutil.Normalize(p)
		twice := urlutil.Normalize(once)
		if once != twice {
			t.Fatalf("Normalize not idempotent for %q: %q vs %q", p, once, twice)
		}
	}
}

func TestSplit(t *testing.T) {
	got := urlutil.Split("/a/b")
	want := []string{"a", "b"}

	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestSplitRoot(t *testing.T) {
	if got := urlutil.Split("/"); got != nil {
		t.Fatalf("expected nil segments for root, got %v", got)
	}
}
