// Package httpdate parses and formats the HTTP date forms a server must
// accept on If-Modified-Since and must emit on Date/Last-Modified.
package httpdate

import "time"

// layouts are the three HTTP date grammars a conforming client may
// send, tried in order: RFC-1123, RFC-850, then asctime. The first
// layout that matches wins.
var layouts = []string{
	time.RFC1123,                    // "Mon, 02 Jan 2006 15:04:05 MST"
	"Monday, 02-Jan-06 15:04:05 GMT", // RFC-850
	time.ANSIC,                      // "Mon Jan  2 15:04:05 2006"
}

// Format renders t as IMF-fixdate in GMT, e.g.
// "Sun, 06 Nov 1994 08:49:37 GMT".
func Format(t time.Time) string {
	return t.UTC().Format("Mon, 02 Jan 2006 15:04:05 GMT")
}

// FormatUnix is a convenience wrapper for a unix-seconds timestamp.
func FormatUnix(sec int64) string {
	return Format(time.Unix(sec, 0))
}

// Parse attempts each recognized date layout in turn and returns the
// corresponding absolute time as seconds since the epoch, UTC. It
// returns 0 if s is empty or matches none of them, the sentinel for
// "no conditional", equivalent to an absent header.
func Parse(s string) int64 {
	if s == "" {
		return 0
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Unix()
		}
	}
	return 0
}
