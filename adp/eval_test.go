package adp

import (
	"errors"
	"strings"
	"testing"
)

// stubScript evaluates "ECHO <word>" to <word>, "RETURN", "BREAK", "ABORT"
// and "OVERFLOW" to the matching Exception, and anything else to OK with
// an empty result.
type stubScript struct{}

func (stubScript) Eval(frame *Frame, source string) (string, Exception, error) {
	src := strings.TrimSpace(source)
	switch {
	case src == "RETURN":
		return "", Return, nil
	case src == "BREAK":
		return "", Break, nil
	case src == "ABORT":
		return "", Abort, nil
	case src == "OVERFLOW":
		return "", Overflow, nil
	case strings.HasPrefix(src, "ECHO "):
		return strings.TrimPrefix(src, "ECHO "), OK, nil
	default:
		return "", OK, nil
	}
}

func TestEvalTextAndExprBlocks(t *testing.T) {
	page := &Page{Blocks: []Block{
		{Kind: Text, Text: "hello "},
		{Kind: Expr, Text: "ECHO world"},
	}}
	e := NewEvaluator(stubScript{}, NewRegistry(), 0)
	frame := NewFrame("page.adp", "/", nil)

	if err := e.Eval(frame, page); err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got := frame.Output.String(); got != "hello world" {
		t.Fatalf("output = %q", got)
	}
}

func TestEvalScriptBlockDiscardsResult(t *testing.T) {
	page := &Page{Blocks: []Block{
		{Kind: Script, Text: "ECHO discarded"},
		{Kind: Text, Text: "kept"},
	}}
	e := NewEvaluator(stubScript{}, NewRegistry(), 0)
	frame := NewFrame("page.adp", "/", nil)

	if err := e.Eval(frame, page); err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got := frame.Output.String(); got != "kept" {
		t.Fatalf("output = %q, want script result discarded", got)
	}
}

func TestEvalTagBlockAppendsResult(t *testing.T) {
	reg := NewRegistry()
	reg.Register(TagSpec{
		Name: "greet",
		Handler: func(frame *Frame, attrs map[string]string, body string) (string, Exception, error) {
			return "hi " + attrs["name"], OK, nil
		},
	})
	page := &Page{Blocks: []Block{
		{Kind: Tag, TagName: "greet", Attrs: map[string]string{"name": "al"}},
	}}
	e := NewEvaluator(stubScript{}, reg, 0)
	frame := NewFrame("page.adp", "/", nil)

	if err := e.Eval(frame, page); err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got := frame.Output.String(); got != "hi al" {
		t.Fatalf("output = %q", got)
	}
}

func TestEvalBreakStopsFrameWithoutError(t *testing.T) {
	page := &Page{Blocks: []Block{
		{Kind: Text, Text: "a"},
		{Kind: Script, Text: "BREAK"},
		{Kind: Text, Text: "b"},
	}}
	e := NewEvaluator(stubScript{}, NewRegistry(), 0)
	frame := NewFrame("page.adp", "/", nil)

	if err := e.Eval(frame, page); err != nil {
		t.Fatalf("Eval: %v, want nil (Break absorbed at top level)", err)
	}
	if got := frame.Output.String(); got != "a" {
		t.Fatalf("output = %q, want stopped after BREAK", got)
	}
	if frame.Exception != Break {
		t.Errorf("frame.Exception = %v, want Break", frame.Exception)
	}
}

func TestEvalAbortReturnsError(t *testing.T) {
	page := &Page{Blocks: []Block{
		{Kind: Script, Text: "ABORT"},
		{Kind: Text, Text: "unreachable"},
	}}
	e := NewEvaluator(stubScript{}, NewRegistry(), 0)
	frame := NewFrame("page.adp", "/", nil)

	err := e.Eval(frame, page)
	if !errors.Is(err, errAbort) {
		t.Fatalf("Eval error = %v, want errAbort", err)
	}
	if got := frame.Output.String(); got != "" {
		t.Fatalf("output = %q, want nothing written after ABORT", got)
	}
}

func TestIncludeAbsorbsReturn(t *testing.T) {
	child := &Page{Blocks: []Block{
		{Kind: Text, Text: "child-before"},
		{Kind: Script, Text: "RETURN"},
		{Kind: Text, Text: "child-after"},
	}}
	e := NewEvaluator(stubScript{}, NewRegistry(), 0)
	parent := NewFrame("parent.adp", "/", nil)

	if err := e.Include(parent, child, "child.adp", nil); err != nil {
		t.Fatalf("Include: %v, want Return absorbed", err)
	}
	if got := parent.Output.String(); got != "child-before" {
		t.Fatalf("parent output = %q", got)
	}
	if parent.Exception != OK {
		t.Errorf("parent.Exception = %v, want OK (Return absorbed)", parent.Exception)
	}
}

func TestIncludePropagatesBreakToParent(t *testing.T) {
	child := &Page{Blocks: []Block{
		{Kind: Script, Text: "BREAK"},
	}}
	e := NewEvaluator(stubScript{}, NewRegistry(), 0)
	parent := NewFrame("parent.adp", "/", nil)

	err := e.Include(parent, child, "child.adp", nil)
	if !errors.Is(err, errBreak) {
		t.Fatalf("Include error = %v, want errBreak propagated", err)
	}
	if parent.Exception != Break {
		t.Errorf("parent.Exception = %v, want Break", parent.Exception)
	}
}

func TestIncludeOverflowsPastMaxDepth(t *testing.T) {
	page := &Page{Blocks: []Block{{Kind: Text, Text: "x"}}}
	e := NewEvaluator(stubScript{}, NewRegistry(), 2)
	parent := NewFrame("a.adp", "/", nil)
	parent.Depth = 2

	err := e.Include(parent, page, "b.adp", nil)
	if !errors.Is(err, ErrOverflow) {
		t.Fatalf("Include error = %v, want ErrOverflow", err)
	}
	if parent.Exception != Overflow {
		t.Errorf("parent.Exception = %v, want Overflow", parent.Exception)
	}
}

func TestFrameFlushStreamingTruncatesAfterWrite(t *testing.T) {
	var sb strings.Builder
	f := NewFrame("p.adp", "/", nil)
	f.Stream = true
	headerCalls := 0

	f.Output.WriteString("first")
	if err := f.Flush(&sb, func() error { headerCalls++; return nil }); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	f.Output.WriteString("second")
	if err := f.Flush(&sb, func() error { headerCalls++; return nil }); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if got := sb.String(); got != "firstsecond" {
		t.Fatalf("written = %q", got)
	}
	if headerCalls != 1 {
		t.Fatalf("emitHeaders called %d times, want exactly once", headerCalls)
	}
	if f.Output.Len() != 0 {
		t.Fatalf("Output not truncated after streaming flush")
	}
}

func TestFrameResetClearsState(t *testing.T) {
	f := NewFrame("p.adp", "/", nil)
	f.Output.WriteString("x")
	f.Exception = Break
	f.Depth = 3
	f.Stream = true

	f.Reset()

	if f.Output.Len() != 0 || f.Exception != OK || f.Depth != 0 || f.Stream {
		t.Fatalf("Reset left stale state: %+v", f)
	}
}
