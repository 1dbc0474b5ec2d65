// Package response composes HTTP response header+body bytes for each
// outcome class the worker selects, and streams file or CGI bodies.
// All responses are written as HTTP/1.0 regardless of the request's
// negotiated version: this server never promises 1.1 semantics such
// as keep-alive or chunked transfer encoding, so it never advertises
// 1.1 on the wire.
package response

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/jlee2404/sws/internal/httpdate"
)

const serverHeader = "sws/1.0"

// writeHeader performs the header write in a single Write call. A
// short write is treated as fatal for the connection.
func writeHeader(conn net.Conn, header []byte) error {
	n, err := conn.Write(header)
	if err != nil {
		return err
	}
	if n != len(header) {
		return io.ErrShortWrite
	}
	return nil
}

// statusLines gives the reason phrase for each status this server can
// emit; only the codes actually used appear here.
var statusLines = map[int]string{
	200: "OK",
	301: "Moved Permanently",
	304: "Not Modified",
	400: "Bad Request",
	403: "Forbidden",
	404: "Not Found",
	500: "Internal Server Error",
	501: "Not Implemented",
}

func statusLine(code int) string {
	return fmt.Sprintf("HTTP/1.0 %d %s\r\n", code, statusLines[code])
}

// WriteError writes a minimal error response (no Date/Server/
// Last-Modified headers) with a one-line plaintext body, e.g.
// "Forbidden\r\n" for 403. When head is true the body is omitted and
// the returned body byte count is 0; Content-Length still reports the
// body's size.
func WriteError(conn net.Conn, code int, head bool) (bodyBytes int64, err error) {
	body := []byte(statusLines[code] + "\r\n")
	var buf bytes.Buffer
	buf.WriteString(statusLine(code))
	fmt.Fprintf(&buf, "Content-Type: text/plain\r\n")
	fmt.Fprintf(&buf, "Content-Length: %d\r\n", len(body))
	buf.WriteString("\r\n")
	if !head {
		buf.Write(body)
	}
	if err := writeHeader(conn, buf.Bytes()); err != nil {
		return 0, err
	}
	if head {
		return 0, nil
	}
	return int64(len(body)), nil
}

// WriteRedirect writes a 301 with an empty body and a Location header
// pointing at uri+"/".
func WriteRedirect(conn net.Conn, uri string) (bodyBytes int64, err error) {
	var buf bytes.Buffer
	buf.WriteString(statusLine(301))
	fmt.Fprintf(&buf, "Location: %s/\r\n", uri)
	buf.WriteString("Content-Length: 0\r\n\r\n")
	if err := writeHeader(conn, buf.Bytes()); err != nil {
		return 0, err
	}
	return 0, nil
}

// WriteNotModified writes a 304 with Last-Modified and no body.
func WriteNotModified(conn net.Conn, mtime time.Time) (bodyBytes int64, err error) {
	var buf bytes.Buffer
	buf.WriteString(statusLine(304))
	writeCommonHeaders(&buf)
	fmt.Fprintf(&buf, "Last-Modified: %s\r\n", httpdate.Format(mtime))
	buf.WriteString("Content-Length: 0\r\n\r\n")
	if err := writeHeader(conn, buf.Bytes()); err != nil {
		return 0, err
	}
	return 0, nil
}

func writeCommonHeaders(buf *bytes.Buffer) {
	fmt.Fprintf(buf, "Date: %s\r\n", httpdate.Format(time.Now()))
	fmt.Fprintf(buf, "Server: %s\r\n", serverHeader)
}

// WriteBody writes a 200 OK response with Content-Type, Content-Length
// and Last-Modified, then streams body (unless head is true, in which
// case only headers are sent). body is read in buffer-sized chunks so
// large files don't need to be held in memory at once.
func WriteBody(conn net.Conn, body io.Reader, size int64, contentType string, mtime time.Time, head bool) (bodyBytes int64, err error) {
	var buf bytes.Buffer
	buf.WriteString(statusLine(200))
	writeCommonHeaders(&buf)
	fmt.Fprintf(&buf, "Last-Modified: %s\r\n", httpdate.Format(mtime))
	fmt.Fprintf(&buf, "Content-Type: %s\r\n", contentType)
	fmt.Fprintf(&buf, "Content-Length: %d\r\n\r\n", size)
	if err := writeHeader(conn, buf.Bytes()); err != nil {
		return 0, err
	}
	if head {
		return 0, nil
	}
	n, err := io.CopyBuffer(conn, body, make([]byte, 32*1024))
	return n, err
}

// WriteCGIPrologue writes the server's portion of a CGI response: the
// status line plus Date/Server headers, but no Content-Length and no
// blank-line terminator — the CGI script supplies the rest of the
// headers and the blank-line separator itself. The server never
// parses the script's output.
func WriteCGIPrologue(conn net.Conn) error {
	var buf bytes.Buffer
	buf.WriteString(statusLine(200))
	writeCommonHeaders(&buf)
	return writeHeader(conn, buf.Bytes())
}
