package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRewriteAbsolute(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		text    string
		want    string
	}{
		{
			name:    "absolute base",
			baseURL: "https://example.com",
			text:    `<a href="http://staticbuilder.invalid/blog">Blog</a>`,
			want:    `<a href="https://example.com/blog">Blog</a>`,
		},
		{
			name:    "trailing slash collapsed",
			baseURL: "https://example.com/",
			text:    `<a href="http://staticbuilder.invalid/blog">Blog</a>`,
			want:    `<a href="https://example.com/blog">Blog</a>`,
		},
		{
			name:    "root relative base",
			baseURL: "/",
			text:    `<a href="http://staticbuilder.invalid/blog">Blog</a>`,
			want:    `<a href="/blog">Blog</a>`,
		},
		{
			name:    "unrelated urls untouched",
			baseURL: "/",
			text:    `<a href="https://other.example/x">x</a> plain text`,
			want:    `<a href="https://other.example/x">x</a> plain text`,
		},
		{
			name:    "multiple occurrences",
			baseURL: "/",
			text:    `http://staticbuilder.invalid/a and http://staticbuilder.invalid/b`,
			want:    `/a and /b`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rw := New(tt.baseURL, "/index.html", false, false)
			assert.Equal(t, tt.want, rw.Rewrite(tt.text, "/page"))
		})
	}
}

func TestRewriteUgly(t *testing.T) {
	rw := New("/", ".html", false, true)

	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "empty path becomes index file",
			text: `href="http://staticbuilder.invalid"`,
			want: `href="/index.html"`,
		},
		{
			name: "root path becomes index file",
			text: `href="http://staticbuilder.invalid/"`,
			want: `href="/index.html"`,
		},
		{
			name: "extension appended",
			text: `href="http://staticbuilder.invalid/foo"`,
			want: `href="/foo.html"`,
		},
		{
			name: "existing extension kept",
			text: `href="http://staticbuilder.invalid/style.css"`,
			want: `href="/style.css"`,
		},
		{
			name: "directory reference kept",
			text: `href="http://staticbuilder.invalid/docs/"`,
			want: `href="/docs/"`,
		},
		{
			name: "query string preserved",
			text: `href="http://staticbuilder.invalid/search?q=1"`,
			want: `href="/search.html?q=1"`,
		},
		{
			name: "fragment preserved",
			text: `href="http://staticbuilder.invalid/about#team"`,
			want: `href="/about.html#team"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rw.Rewrite(tt.text, "/page"))
		})
	}
}

func TestRewriteRelative(t *testing.T) {
	tests := []struct {
		name    string
		ugly    bool
		pageURL string
		text    string
		want    string
	}{
		{
			name:    "sibling section",
			pageURL: "/a/b",
			text:    `href="http://staticbuilder.invalid/a/c"`,
			want:    `href="./../c"`,
		},
		{
			name:    "child page",
			pageURL: "/a/b",
			text:    `href="http://staticbuilder.invalid/a/b/deep"`,
			want:    `href="./deep"`,
		},
		{
			name:    "site root",
			pageURL: "/a/b",
			text:    `href="http://staticbuilder.invalid/"`,
			want:    `href="./../../"`,
		},
		{
			name:    "ugly sibling",
			ugly:    true,
			pageURL: "/a/b",
			text:    `href="http://staticbuilder.invalid/a/c"`,
			want:    `href="./c.html"`,
		},
		{
			name:    "ugly site root",
			ugly:    true,
			pageURL: "/a/b",
			text:    `href="http://staticbuilder.invalid/"`,
			want:    `href="./../index.html"`,
		},
		{
			name:    "ugly asset link kept verbatim",
			ugly:    true,
			pageURL: "/a/b",
			text:    `src="http://staticbuilder.invalid/media/logo.png"`,
			want:    `src="./../media/logo.png"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext := "/index.html"
			if tt.ugly {
				ext = ".html"
			}
			rw := New("", ext, true, tt.ugly)
			got := rw.Rewrite(tt.text, tt.pageURL)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, rw.Rewrite(got, tt.pageURL), "rewriting rewritten text must be a no-op")
		})
	}
}

func TestRewriteNoPlaceholder(t *testing.T) {
	rw := New("https://example.com", ".html", true, true)
	text := `<p>Nothing to see here: <a href="/local">local</a></p>`
	assert.Equal(t, text, rw.Rewrite(text, "/page"))
}
