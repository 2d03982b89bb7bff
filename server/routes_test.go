package server

import (
	"testing"

	"github.com/aolserver/aolserver-sub004/request"
)

func TestRouteTableMostRecentWins(t *testing.T) {
	rt := newRouteTable()
	rt.register("GET", "/api/*", func(conn *request.Connection, w ResponseWriter) Status {
		return StatusOK
	})
	rt.register("GET", "/api/special", func(conn *request.Connection, w ResponseWriter) Status {
		return StatusReturn
	})

	proc := rt.resolve("GET", "/api/special")
	if proc == nil {
		t.Fatal("expected a match")
	}
	if got := proc(nil, nil); got != StatusReturn {
		t.Fatalf("got %v, want the more specific, later-registered handler", got)
	}
}

func TestRouteTableMethodMismatch(t *testing.T) {
	rt := newRouteTable()
	rt.register("POST", "/submit", func(conn *request.Connection, w ResponseWriter) Status {
		return StatusOK
	})

	if proc := rt.resolve("GET", "/submit"); proc != nil {
		t.Fatal("expected no match for a different method")
	}
}

func TestRouteTableNoMatch(t *testing.T) {
	rt := newRouteTable()
	if proc := rt.resolve("GET", "/anything"); proc != nil {
		t.Fatal("expected nil for an empty table")
	}
}
