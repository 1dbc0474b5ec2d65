// Package listing renders the directory-listing HTML body. The
// template is fixed and minimal — no sorting, no file sizes or
// timestamps, no user-configurable layout — so it's built as a plain
// string writer rather than a text/template, keeping the output
// byte-for-byte predictable.
package listing

import (
	"fmt"
	"html"
	"os"
	"strings"
)

// Render builds the directory-listing HTML body for uri, listing every
// entry in dir whose name does not begin with '.', in directory-scan
// order (entries are not sorted).
//
// hrefs concatenate uri and the entry name without re-encoding; a
// filename containing URL-special characters can produce a malformed
// link. This is a deliberate choice, not an oversight — re-encoding
// was considered and rejected to keep href construction a single
// concatenation rather than a percent-encoding pass over arbitrary
// filenames.
func Render(uri string, entries []os.DirEntry) []byte {
	var b strings.Builder
	escapedURI := html.EscapeString(uri)
	fmt.Fprintf(&b, "<html><head><title>Index of %s</title></head>\n", escapedURI)
	fmt.Fprintf(&b, "<body><h1>Index of %s</h1><ul>\n", escapedURI)
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		fmt.Fprintf(&b, "  <li><a href=\"%s%s\">%s</a></li>\n", uri, name, html.EscapeString(name))
	}
	b.WriteString("</ul></body></html>")
	return []byte(b.String())
}
