package httpdate_test

import (
	"testing"
	"time"

	"github.com/aolserver/aolserver-sub004/httpdate"
)

func TestParseScenario(t *testing.T) {
	got, err := httpdate.Parse("Sun, 10 Jan 1993 01:29:59 GMT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Unix() != 726629399 {
		t.Fatalf("expected unix 726629399, got %d", got.Unix())
	}

	if httpdate.Format(got) != "Sun, 10 Jan 1993 01:29:59 GMT" {
		t.Fatalf("format round trip failed: %q", httpdate.Format(got))
	}
}

func TestParseThreeForms(t *testing.T) {
	ref := time.Date(1994, time.November, 6, 8, 49, 37, 0, time.UTC)

	forms := []string{
		"Sun, 06 Nov 1994 08:49:37 GMT",
		"Sunday, 06-Nov-94 08:49:37 GMT",
		"Sun Nov  6 08:49:37 1994 GMT",
	}

	for _, f := range forms {
		got, err := httpdate.Parse(f)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", f, err)
		}
		if !got.Equal(ref) {
			t.Fatalf("Parse(%q) = %v, want %v", f, got, ref)
		}
	}
}

func TestParseInvalid(t *testing.T) {
	if _, err := httpdate.Parse("not a date"); err == nil {
		t.Fatal("expected error for invalid date")
	}
}

func TestCovers(t *testing.T) {
	mtime := time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)

	if !httpdate.Covers(httpdate.Format(mtime), mtime) {
		t.Fatal("expected exact match to cover")
	}

	later := mtime.Add(time.Hour)
	if !httpdate.Covers(httpdate.Format(later), mtime) {
		t.Fatal("expected later IMS to cover earlier mtime")
	}

	earlier := mtime.Add(-time.Hour)
	if httpdate.Covers(httpdate.Format(earlier), mtime) {
		t.Fatal("expected earlier IMS to not cover later mtime")
	}
}
