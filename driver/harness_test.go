package driver_test

import (
	"io"
	"testing"

	"github.com/aolserver/aolserver-sub004/driver"
)

func TestHarnessConnReadWriteClose(t *testing.T) {
	c := driver.NewHarnessConn("10.0.0.1:1234", []byte("GET / HTTP/1.0\r\n\r\n"))

	buf := make([]byte, 64)
	n, err := c.Read(buf)
	if err != nil && err != io.EOF {
		t.Fatalf("Read: %v", err)
	}
	if string(buf[:n]) != "GET / HTTP/1.0\r\n\r\n" {
		t.Fatalf("Read = %q", buf[:n])
	}

	c.Write([]byte("HTTP/1.0 200 OK\r\n\r\n"))
	if string(c.Written()) != "HTTP/1.0 200 OK\r\n\r\n" {
		t.Fatalf("Written() = %q", c.Written())
	}

	if c.Peer() != "10.0.0.1:1234" {
		t.Fatalf("Peer() = %q", c.Peer())
	}

	if c.Closed() {
		t.Fatal("expected not closed before Close")
	}
	c.Close()
	if !c.Closed() {
		t.Fatal("expected closed after Close")
	}
}

func TestHarnessDriverPushAfterStopFails(t *testing.T) {
	h := driver.NewHarnessDriver("h")
	h.Stop(nil)
	if h.Push(driver.NewHarnessConn("p", nil)) {
		t.Fatal("expected Push to fail after Stop")
	}
}
