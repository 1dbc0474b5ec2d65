// Package request parses the first line and the If-Modified-Since
// header of a raw HTTP/0.9, HTTP/1.0 or HTTP/1.1 request: a simple
// tokenizer over a byte slice, deliberately not net/http.ReadRequest,
// since that rejects HTTP/0.9 requests outright.
package request

import (
	"bytes"
	"strings"

	"github.com/jlee2404/sws/internal/httpdate"
)

// Version is one of the three HTTP versions this server recognizes.
type Version string

const (
	Version09 Version = "0.9"
	Version10 Version = "1.0"
	Version11 Version = "1.1"
)

// Request is the parsed request record (spec's "Request record").
type Request struct {
	Method          string
	URI             string
	Version         Version // already downgraded: 1.1 is never reported here
	IfModifiedSince string
	IMSTime         int64 // unix seconds, 0 if absent/unparseable
}

// Error carries the tentative method (when one could be tokenized) so
// the caller can tell a malformed request (400) apart from a request
// for an unimplemented method (501).
type Error struct {
	Method        string // best-effort tentative method, may be ""
	UnknownMethod bool   // true iff the method token parsed but isn't GET/HEAD
	msg           string
}

func (e *Error) Error() string { return e.msg }

func fail(msg string) error {
	return &Error{msg: msg}
}

func failUnknownMethod(method string) error {
	return &Error{Method: method, UnknownMethod: true, msg: "unimplemented method: " + method}
}

// FirstLine extracts the raw first line of buf (without the trailing
// CRLF) for access logging, even when the line fails to parse as a
// valid request. If no CRLF is present, the whole buffer is used,
// bounded to maxLen bytes.
func FirstLine(buf []byte) string {
	const maxLen = 2048
	if idx := bytes.Index(buf, []byte("\r\n")); idx >= 0 {
		if idx > maxLen {
			idx = maxLen
		}
		return string(buf[:idx])
	}
	if len(buf) > maxLen {
		buf = buf[:maxLen]
	}
	return string(buf)
}

// Parse parses buf, the bytes read from a single socket read, into a
// Request. It enforces the invariants from the spec's Data Model: a
// valid method, a version in {0.9,1.0,1.1} downgraded from 1.1 to 1.0,
// 0.9 only with GET, and a non-empty URI.
func Parse(buf []byte) (*Request, error) {
	idx := bytes.Index(buf, []byte("\r\n"))
	if idx < 0 {
		return nil, fail("no CRLF terminator found")
	}
	line := string(buf[:idx])
	rest := buf[idx+2:]

	tokens := strings.Fields(line)
	if len(tokens) != 3 {
		return nil, fail("request line does not have exactly 3 tokens")
	}
	method, uri, httpVer := tokens[0], tokens[1], tokens[2]

	if method != "GET" && method != "HEAD" {
		return nil, failUnknownMethod(method)
	}
	if uri == "" {
		return nil, fail("empty URI")
	}
	if !strings.HasPrefix(httpVer, "HTTP/") {
		return nil, fail("missing HTTP/ version token")
	}

	var version Version
	switch strings.TrimPrefix(httpVer, "HTTP/") {
	case "0.9":
		version = Version09
	case "1.0":
		version = Version10
	case "1.1":
		version = Version10 // downgrade: never promise 1.1 semantics
	default:
		return nil, fail("unsupported HTTP version: " + httpVer)
	}

	if version == Version09 && method != "GET" {
		return nil, fail("HTTP/0.9 only supports GET")
	}

	req := &Request{Method: method, URI: uri, Version: version}

	for len(rest) > 0 {
		if bytes.HasPrefix(rest, []byte("\r\n")) {
			break // blank line: end of headers
		}
		eol := bytes.Index(rest, []byte("\r\n"))
		if eol < 0 {
			break // unterminated trailing header line: stop, ignore it
		}
		headerLine := string(rest[:eol])
		rest = rest[eol+2:]

		const prefix = "if-modified-since:"
		if len(headerLine) >= len(prefix) && strings.EqualFold(headerLine[:len(prefix)], prefix) {
			val := strings.TrimLeft(headerLine[len(prefix):], " \t")
			req.IfModifiedSince = val
			req.IMSTime = httpdate.Parse(val)
		}
	}

	return req, nil
}
