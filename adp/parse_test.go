package adp

import "testing"

func TestParseInlineScriptAndExpr(t *testing.T) {
	p := NewParser(NewRegistry())
	page := p.Parse("hello <% set x 1 %> world <%=$x%>!")

	want := []BlockKind{Text, Script, Text, Expr, Text}
	if len(page.Blocks) != len(want) {
		t.Fatalf("got %d blocks, want %d: %+v", len(page.Blocks), len(want), page.Blocks)
	}
	for i, k := range want {
		if page.Blocks[i].Kind != k {
			t.Errorf("block %d kind = %v, want %v", i, page.Blocks[i].Kind, k)
		}
	}
	if page.Blocks[1].Text != " set x 1 " {
		t.Errorf("script text = %q", page.Blocks[1].Text)
	}
	if page.Blocks[3].Text != "$x" {
		t.Errorf("expr text = %q", page.Blocks[3].Text)
	}
}

func TestParseServerScriptTag(t *testing.T) {
	p := NewParser(NewRegistry())
	page := p.Parse(`before <script runat=server>set y 2</script> after`)

	if len(page.Blocks) != 3 {
		t.Fatalf("got %d blocks, want 3: %+v", len(page.Blocks), page.Blocks)
	}
	if page.Blocks[1].Kind != Script || page.Blocks[1].Text != "set y 2" {
		t.Errorf("server script block = %+v", page.Blocks[1])
	}
}

func TestParseServerScriptIgnoresWrongLanguage(t *testing.T) {
	p := NewParser(NewRegistry())
	page := p.Parse(`<script runat=server language=perl>ignored</script>`)
	for _, b := range page.Blocks {
		if b.Kind == Script {
			t.Fatalf("expected no Script block for non-tcl language, got %+v", page.Blocks)
		}
	}
}

func TestParseServerScriptQuotedAttrsAndStream(t *testing.T) {
	p := NewParser(NewRegistry())
	page := p.Parse(`<script runat="server" stream="on">ns_write hi</script>`)

	if len(page.Blocks) != 2 {
		t.Fatalf("got %d blocks, want [EnableStream, Script]: %+v", len(page.Blocks), page.Blocks)
	}
	if page.Blocks[0].Kind != EnableStream {
		t.Errorf("block 0 = %+v, want EnableStream", page.Blocks[0])
	}
	if page.Blocks[1].Kind != Script || page.Blocks[1].Text != "ns_write hi" {
		t.Errorf("block 1 = %+v", page.Blocks[1])
	}
}

func TestParseRegisteredTagNoEndTag(t *testing.T) {
	reg := NewRegistry()
	reg.Register(TagSpec{Name: "mytag", Type: ProcTag, HasEndTag: false})
	p := NewParser(reg)

	page := p.Parse(`a <mytag foo=bar> b`)
	if len(page.Blocks) != 3 {
		t.Fatalf("got %d blocks, want 3: %+v", len(page.Blocks), page.Blocks)
	}
	tagBlock := page.Blocks[1]
	if tagBlock.Kind != Tag || tagBlock.TagName != "mytag" {
		t.Fatalf("tag block = %+v", tagBlock)
	}
	if tagBlock.Attrs["foo"] != "bar" {
		t.Errorf("attrs = %+v", tagBlock.Attrs)
	}
}

func TestParseRegisteredTagPairedWithNesting(t *testing.T) {
	reg := NewRegistry()
	reg.Register(TagSpec{Name: "outer", Type: AdpTag, HasEndTag: true})
	p := NewParser(reg)

	page := p.Parse(`x <outer>a <outer>b</outer> c</outer> y`)
	if len(page.Blocks) != 3 {
		t.Fatalf("got %d blocks, want 3: %+v", len(page.Blocks), page.Blocks)
	}
	tagBlock := page.Blocks[1]
	if tagBlock.Kind != Tag || tagBlock.TagName != "outer" {
		t.Fatalf("tag block = %+v", tagBlock)
	}
	if tagBlock.Body != "a <outer>b</outer> c" {
		t.Errorf("body = %q, want nested tag preserved", tagBlock.Body)
	}
}

func TestParseUnrecognizedTagPassesThrough(t *testing.T) {
	p := NewParser(NewRegistry())
	page := p.Parse(`plain <b>bold</b> text`)
	for _, b := range page.Blocks {
		if b.Kind != Text {
			t.Fatalf("expected only Text blocks for unregistered tags, got %+v", page.Blocks)
		}
	}
}

func TestParseAttrsBareNameAsValue(t *testing.T) {
	attrs := parseAttrs(`checked foo=bar baz="qux quux"`)
	if attrs["checked"] != "checked" {
		t.Errorf("checked = %q, want bare name as value", attrs["checked"])
	}
	if attrs["foo"] != "bar" {
		t.Errorf("foo = %q", attrs["foo"])
	}
	if attrs["baz"] != "qux quux" {
		t.Errorf("baz = %q, want quoted value with embedded space preserved", attrs["baz"])
	}
}
