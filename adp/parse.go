/*
 * MIT License
 *
 * Copyright (c) 2019 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package adp

import "strings"

// Parser lowers a UTF-8 template into a Page, grounded on NsAdpParse's two
// pass structure: inline <% %>/<%= %> regions take precedence over tag
// scanning, which runs on the text between them.
type Parser struct {
	Tags *Registry

	// Language is the embedded scripting language name a <script
	// runat=server> region must declare (or omit) to be treated as
	// server-side, matching IsServer's STRIEQ(as, "language") check.
	// Defaults to "tcl", the original's only embedded language.
	Language string
}

// NewParser returns a Parser consulting tags for registered-tag scanning.
func NewParser(tags *Registry) *Parser {
	return &Parser{Tags: tags, Language: "tcl"}
}

// Parse compiles src into a Page.
func (p *Parser) Parse(src string) *Page {
	return &Page{Blocks: p.parseInline(src)}
}

// parseInline implements NsAdpParse's first pass: <% %> regions short-
// circuit tag scanning of the surrounding text.
func (p *Parser) parseInline(src string) []Block {
	var blocks []Block
	streamDone := false
	for {
		i := strings.Index(src, "<%")
		if i < 0 {
			blocks = append(blocks, p.parseTags(src, &streamDone)...)
			return blocks
		}
		j := strings.Index(src[i:], "%>")
		if j < 0 {
			blocks = append(blocks, p.parseTags(src, &streamDone)...)
			return blocks
		}
		j += i

		blocks = append(blocks, p.parseTags(src[:i], &streamDone)...)

		inner := src[i+2 : j]
		if strings.HasPrefix(inner, "=") {
			blocks = append(blocks, Block{Kind: Expr, Text: inner[1:]})
		} else if len(inner) > 0 {
			blocks = append(blocks, Block{Kind: Script, Text: inner})
		}

		src = src[j+2:]
	}
}

// parseTags implements NsAdpParse's tag-scanning pass (Parse/GetTag/
// ParseAtts/AppendTag): <script runat=server> regions and registered tags
// are lowered into Script/Tag blocks; everything else passes through as
// literal text.
func (p *Parser) parseTags(src string, streamDone *bool) []Block {
	var blocks []Block
	start := 0 // first byte of literal text not yet emitted
	pos := 0

	for {
		lt := indexByteFrom(src, pos, '<')
		if lt < 0 {
			break
		}
		gt := indexByteFrom(src, lt, '>')
		if gt < 0 {
			break
		}

		name, attrStart := getTag(src, lt, gt)
		lname := lower(name)

		if lname == "script" {
			attrs := parseAttrs(src[attrStart:gt])
			if p.isServerScript(attrs) {
				bodyStart, bodyEnd, closeEnd, ok := findEndTag(src, gt+1, "script")
				if ok {
					if lt > start {
						blocks = append(blocks, Block{Kind: Text, Text: src[start:lt]})
					}
					if attrs["stream"] == "on" && !*streamDone {
						blocks = append(blocks, Block{Kind: EnableStream})
						*streamDone = true
					}
					blocks = append(blocks, Block{Kind: Script, Text: src[bodyStart:bodyEnd]})
					pos = closeEnd + 1
					start = pos
					continue
				}
			}
			pos = gt + 1
			continue
		}

		if spec, ok := p.Tags.lookup(lname); ok {
			attrs := parseAttrs(src[attrStart:gt])

			if !spec.HasEndTag {
				if lt > start {
					blocks = append(blocks, Block{Kind: Text, Text: src[start:lt]})
				}
				blocks = append(blocks, Block{Kind: Tag, TagName: lname, Attrs: attrs})
				pos = gt + 1
				start = pos
				continue
			}

			bodyStart, bodyEnd, closeEnd, ok2 := findEndTag(src, gt+1, lname)
			if ok2 {
				if lt > start {
					blocks = append(blocks, Block{Kind: Text, Text: src[start:lt]})
				}
				blocks = append(blocks, Block{Kind: Tag, TagName: lname, Attrs: attrs, Body: src[bodyStart:bodyEnd]})
				pos = closeEnd + 1
				start = pos
				continue
			}
		}

		pos = gt + 1
	}

	if start < len(src) {
		blocks = append(blocks, Block{Kind: Text, Text: src[start:]})
	}
	return blocks
}

func (p *Parser) isServerScript(attrs map[string]string) bool {
	if attrs["runat"] != "server" {
		return false
	}
	lang := p.Language
	if lang == "" {
		lang = "tcl"
	}
	if v, ok := attrs["language"]; ok && !strings.EqualFold(v, lang) {
		return false
	}
	return true
}

// findEndTag finds the next "</name>" (case-insensitive, tracking nesting
// of same-named start tags the way Parse's state==2 loop tracks level).
// It returns [bodyStart, bodyEnd) spanning the content between from and the
// matching end tag's '<', plus the index of the end tag's '>'.
func findEndTag(src string, from int, name string) (bodyStart, bodyEnd, closeEnd int, ok bool) {
	bodyStart = from
	level := 1
	pos := from

	for {
		lt := indexByteFrom(src, pos, '<')
		if lt < 0 {
			return 0, 0, 0, false
		}
		gt := indexByteFrom(src, lt, '>')
		if gt < 0 {
			return 0, 0, 0, false
		}

		tag, _ := getTag(src, lt, gt)
		ltag := lower(tag)

		switch {
		case ltag == name:
			level++
		case ltag == "/"+name:
			level--
			if level == 0 {
				return bodyStart, lt, gt, true
			}
		}
		pos = gt + 1
	}
}

// getTag extracts the tag name starting at src[lt] == '<' up to gt == the
// matching '>', plus the index where attributes (if any) begin, mirroring
// GetTag's whitespace trimming and lowercase-by-the-caller convention.
func getTag(src string, lt, gt int) (name string, attrStart int) {
	i := lt + 1
	for i < gt && isSpace(src[i]) {
		i++
	}
	start := i
	for i < gt && !isSpace(src[i]) {
		i++
	}
	name = src[start:i]
	for i < gt && isSpace(src[i]) {
		i++
	}
	return name, i
}

// parseAttrs implements ParseAtts' tolerant attribute-value scanner:
// quoted or unquoted values, spaces around '=', and a bare attribute name
// standing in as its own value ("Use attribute name as value").
func parseAttrs(s string) map[string]string {
	attrs := make(map[string]string)
	i, n := 0, len(s)

	for i < n {
		for i < n && isSpace(s[i]) {
			i++
		}
		if i >= n {
			break
		}
		as := i
		for i < n && !isSpace(s[i]) && s[i] != '=' {
			i++
		}
		ae := i
		for i < n && isSpace(s[i]) {
			i++
		}

		name := lower(s[as:ae])
		var val string

		if i < n && s[i] == '=' {
			i++
			for i < n && isSpace(s[i]) {
				i++
			}
			if i < n && (s[i] == '\'' || s[i] == '"') {
				quote := s[i]
				i++
				vs := i
				for i < n && s[i] != quote {
					i++
				}
				val = s[vs:i]
				if i < n {
					i++
				}
			} else {
				vs := i
				for i < n && !isSpace(s[i]) {
					i++
				}
				val = s[vs:i]
			}
		} else {
			val = s[as:ae]
		}

		if name != "" {
			attrs[name] = val
		}
	}
	return attrs
}

func indexByteFrom(s string, from int, b byte) int {
	if from >= len(s) {
		return -1
	}
	i := strings.IndexByte(s[from:], b)
	if i < 0 {
		return -1
	}
	return from + i
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

func lower(s string) string {
	return strings.ToLower(s)
}
