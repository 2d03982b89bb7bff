package server

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aolserver/aolserver-sub004/adp"
	"github.com/aolserver/aolserver-sub004/driver"
	"github.com/aolserver/aolserver-sub004/fastpath"
	"github.com/aolserver/aolserver-sub004/filter"
	"github.com/aolserver/aolserver-sub004/limits"
	"github.com/aolserver/aolserver-sub004/request"
)

func rawRequest(method, url string, headers map[string]string, body string) []byte {
	var sb strings.Builder
	sb.WriteString(method + " " + url + " HTTP/1.0\r\n")
	for k, v := range headers {
		sb.WriteString(k + ": " + v + "\r\n")
	}
	sb.WriteString("\r\n")
	sb.WriteString(body)
	return []byte(sb.String())
}

func TestRegisteredHandlerTakesPriority(t *testing.T) {
	s := New(Config{Fastpath: fastpath.Config{PageRoot: t.TempDir()}})
	s.RegisterHandler("GET", "/hello", func(conn *request.Connection, w ResponseWriter) Status {
		w.SetHeader("Content-Type", "text/plain")
		w.WriteHeader(200)
		w.Write([]byte("hi there"))
		return StatusOK
	})

	c := driver.NewHarnessConn("client", rawRequest("GET", "/hello", nil, ""))
	s.handleConn(context.Background(), "h", c)

	out := string(c.Written())
	if !strings.Contains(out, "200 OK") || !strings.Contains(out, "hi there") {
		t.Fatalf("response = %q", out)
	}
}

func TestFastpathFallbackServesStaticFile(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("static content"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := New(Config{Fastpath: fastpath.Config{PageRoot: root}})

	c := driver.NewHarnessConn("client", rawRequest("GET", "/a.txt", nil, ""))
	s.handleConn(context.Background(), "h", c)

	out := string(c.Written())
	if !strings.Contains(out, "static content") {
		t.Fatalf("response = %q, want static file content", out)
	}
}

func TestFastpathMissingFileIs404(t *testing.T) {
	s := New(Config{Fastpath: fastpath.Config{PageRoot: t.TempDir()}})

	c := driver.NewHarnessConn("client", rawRequest("GET", "/missing", nil, ""))
	s.handleConn(context.Background(), "h", c)

	out := string(c.Written())
	if !strings.Contains(out, "404") {
		t.Fatalf("response = %q, want 404", out)
	}
}

type echoScript struct{}

func (echoScript) Eval(frame *adp.Frame, source string) (string, adp.Exception, error) {
	return "[" + strings.TrimSpace(source) + "]", adp.OK, nil
}

func TestADPPageIsEvaluated(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "page.adp"), []byte("hi <%=name%>!"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := New(Config{
		Fastpath: fastpath.Config{PageRoot: root},
		ADP: ADPConfig{
			Extension: ".adp",
			PageRoot:  root,
			Script:    echoScript{},
		},
	})

	c := driver.NewHarnessConn("client", rawRequest("GET", "/page.adp", nil, ""))
	s.handleConn(context.Background(), "h", c)

	out := string(c.Written())
	if !strings.Contains(out, "hi [name]!") {
		t.Fatalf("response = %q, want evaluated ADP output", out)
	}
}

func TestUploadTooLargeIs413(t *testing.T) {
	s := New(Config{Fastpath: fastpath.Config{PageRoot: t.TempDir()}})
	s.limits.Get(limits.DefaultName, true).Configure(100, 100, 4, time.Second)

	body := "this body is way over four bytes"
	headers := map[string]string{"Content-Length": "33"}
	c := driver.NewHarnessConn("client", rawRequest("POST", "/x", headers, body))
	s.handleConn(context.Background(), "h", c)

	out := string(c.Written())
	if !strings.Contains(out, "413") {
		t.Fatalf("response = %q, want 413", out)
	}
}

func TestLimitsOverflowIs503(t *testing.T) {
	s := New(Config{Fastpath: fastpath.Config{PageRoot: t.TempDir()}})
	lim := s.limits.Get(limits.DefaultName, true)
	lim.Configure(0, 0, 10<<20, time.Second)

	c := driver.NewHarnessConn("client", rawRequest("GET", "/x", nil, ""))
	s.handleConn(context.Background(), "h", c)

	out := string(c.Written())
	if !strings.Contains(out, "503") {
		t.Fatalf("response = %q, want 503 when both run/wait queues are saturated", out)
	}
}

func TestMalformedRequestIs400(t *testing.T) {
	s := New(Config{Fastpath: fastpath.Config{PageRoot: t.TempDir()}})

	c := driver.NewHarnessConn("client", []byte("\r\n"))
	s.handleConn(context.Background(), "h", c)

	out := string(c.Written())
	if !strings.Contains(out, "400") {
		t.Fatalf("response = %q, want 400 for an empty request", out)
	}
}

func TestPreAuthFilterCanShortCircuit(t *testing.T) {
	s := New(Config{Fastpath: fastpath.Config{PageRoot: t.TempDir()}})
	s.RegisterFilter("GET", "*", filter.PreAuth, func(conn *request.Connection, why filter.When, arg any) filter.Status {
		return filter.Error
	}, nil)

	c := driver.NewHarnessConn("client", rawRequest("GET", "/anything", nil, ""))
	s.handleConn(context.Background(), "h", c)

	out := string(c.Written())
	if !strings.Contains(out, "500") {
		t.Fatalf("response = %q, want 500 from a filter reporting Error", out)
	}
}

func TestCleanupsAlwaysRun(t *testing.T) {
	s := New(Config{Fastpath: fastpath.Config{PageRoot: t.TempDir()}})
	ran := false
	s.RegisterCleanup(func(conn *request.Connection, arg any) {
		ran = true
	}, nil)

	c := driver.NewHarnessConn("client", rawRequest("GET", "/missing", nil, ""))
	s.handleConn(context.Background(), "h", c)

	if !ran {
		t.Fatal("expected cleanup to run even on a 404 outcome")
	}
}
