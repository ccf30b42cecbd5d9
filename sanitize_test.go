package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "hello", "hello"},
		{"allowed formatting", "<b>bold</b> and <i>it</i><br/>next", "<b>bold</b> and <i>it</i><br/>next"},
		{"inline style and handlers", `<b style="color:red" onclick="x()">bold</b>`, "<b>bold</b>"},
		{"unsafe link", `<a href="javascript:alert(1)">x</a>`, `<a rel="noopener noreferrer nofollow">x</a>`},
		{"safe link", `<a href="https://example.org" target="_blank" rel="opener">x</a>`,
			`<a href="https://example.org" target="_blank" rel="noopener noreferrer nofollow">x</a>`},
		{"disallowed element keeps its text", "<h1>Title</h1>", "Title"},
		{"image dropped", `<img src="x" onerror="y()">after`, "after"},
		{"comment dropped", "a<!-- hidden -->b", "ab"},
		{"href on other tags", `<span href="/x">s</span>`, "<span>s</span>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeHTML(tt.in))
		})
	}
}

func TestSanitizeHTMLStripsScripts(t *testing.T) {
	out := SanitizeHTML(`<div>ok<script>alert(1)</script></div>`)
	assert.NotContains(t, out, "<script")
	assert.Contains(t, out, "<div>ok")
}

func TestTextToHTMLSurvivesSanitizing(t *testing.T) {
	for _, text := range []string{"a < b\nc & d", "one\r\ntwo", "", "<b>not bold</b>"} {
		html := textToHTML(text)
		assert.Equal(t, html, SanitizeHTML(html), "text %q", text)
	}
	assert.Equal(t, "a &lt; b<br/>c &amp; d", textToHTML("a < b\nc & d"))
}

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"one<br/>two", "one\ntwo"},
		{"<div>a</div><div>b</div>", "a\nb"},
		{"x &amp; y", "x & y"},
		{"<ul><li>one</li><li>two</li></ul>", "one\ntwo"},
		{"<b>bold</b> text", "bold text"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, htmlToText(tt.in), "html %q", tt.in)
	}
	assert.Equal(t, "a < b\nc", htmlToText(textToHTML("a < b\nc")))
}

func TestClipboardToHTML(t *testing.T) {
	assert.Equal(t, "line one<br/>line two", clipboardToHTML("line one\r\nline two\x00"))
	assert.Equal(t, "<b>x</b>", clipboardToHTML(`<b onclick="y">x</b>`))
}
