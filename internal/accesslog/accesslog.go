// Package accesslog appends one fixed-format line per served request
// to stdout (debug mode) or an append-mode file, writing each entry as
// a single call so concurrent connections' lines don't interleave
// mid-line.
package accesslog

import (
	"fmt"
	"net"
	"os"
	"sync"
	"time"
)

// Logger appends access-log lines. It is safe for concurrent use: each
// Log call performs exactly one Write, so two goroutines logging at
// the same time can't interleave a single line.
type Logger struct {
	mu sync.Mutex
	w  *os.File
}

// Open opens path in append mode, creating it with mode 0664 if
// absent. In debug mode, or if path is "", logs go to stdout instead.
func Open(path string, debug bool) (*Logger, error) {
	if debug || path == "" {
		return &Logger{w: os.Stdout}, nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o664)
	if err != nil {
		return nil, err
	}
	return &Logger{w: f}, nil
}

// Close closes the underlying file, if any was opened (stdout is left
// alone).
func (l *Logger) Close() error {
	if l.w == os.Stdout {
		return nil
	}
	return l.w.Close()
}

// Log appends one line: `<client-ip> <ISO-8601-UTC> "<request line>" <status> <body-bytes>\n`.
func (l *Logger) Log(remoteAddr net.Addr, requestLine string, status int, bodyBytes int64) {
	line := fmt.Sprintf("%s %s %q %d %d\n",
		ClientIP(remoteAddr),
		time.Now().UTC().Format("2006-01-02T15:04:05Z"),
		requestLine,
		status,
		bodyBytes,
	)
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.w.WriteString(line); err != nil {
		fmt.Fprintf(os.Stderr, "sws: access log write failed: %v\n", err)
	}
}

// ClientIP renders addr in IPv6-printable form, with IPv4 addresses
// mapped as "::ffff:a.b.c.d".
func ClientIP(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		host = addr.String()
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return host
	}
	if v4 := ip.To4(); v4 != nil {
		return "::ffff:" + v4.String()
	}
	return ip.String()
}
