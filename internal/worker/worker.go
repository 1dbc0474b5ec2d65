// Package worker implements the per-connection request pipeline: one
// read, parse the request, resolve the URI to a filesystem path, pick
// a response outcome, compose and write the response, log it, close
// the connection.
//
// Go has no portable fork(), so each connection is handled by its own
// goroutine rather than its own process; this keeps failure domains
// independent (a panic in one connection's goroutine cannot affect
// another) while the CGI child remains a real subprocess. Handle is
// meant to be run in its own goroutine per accepted connection
// (internal/accept does this), and it recovers its own panics so one
// bad connection cannot affect the accept loop or any other
// connection's goroutine.
package worker

import (
	"mime"
	"net"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/jlee2404/sws/internal/accesslog"
	"github.com/jlee2404/sws/internal/cgi"
	"github.com/jlee2404/sws/internal/listing"
	"github.com/jlee2404/sws/internal/request"
	"github.com/jlee2404/sws/internal/resolve"
	"github.com/jlee2404/sws/internal/response"
)

// Config holds the immutable per-server configuration the worker
// consults. It is read-only after construction and safe to share
// across every connection's goroutine.
type Config struct {
	DocRoot   string
	CGIDir    string // "" disables /cgi-bin routing
	AccessLog *accesslog.Logger
	AppLog    *zap.Logger
}

// readBufSize bounds the single read performed per connection; bytes
// beyond it are never read. A request line cut off by this limit
// surfaces as a malformed-request 400; a header line cut off by it is
// ignored.
const readBufSize = 64 * 1024

// Handle implements the READ → PARSE → RESOLVE → COMPOSE → WRITE →
// LOG → CLOSE state machine for one accepted connection. conn is
// closed before Handle returns.
func Handle(conn net.Conn, cfg Config) {
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			cfg.AppLog.Error("worker panic recovered", zap.Any("panic", r))
		}
	}()

	buf := make([]byte, readBufSize)
	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		// Connection closed or errored before a request ever arrived:
		// nothing to respond to and nothing to log.
		return
	}
	buf = buf[:n]

	requestLine := request.FirstLine(buf)
	req, parseErr := request.Parse(buf)

	status, bodyBytes, writeErr := dispatch(conn, cfg, req, parseErr)
	if writeErr != nil {
		cfg.AppLog.Warn("write failed mid-response", zap.Error(writeErr), zap.String("remote", conn.RemoteAddr().String()))
		return
	}

	cfg.AccessLog.Log(conn.RemoteAddr(), requestLine, status, bodyBytes)
}

// dispatch selects exactly one response outcome, in order of
// precedence, and composes the response for it: malformed/unknown
// method, forbidden, not found, redirect, not-modified, then the
// directory/CGI/file success cases.
func dispatch(conn net.Conn, cfg Config, req *request.Request, parseErr error) (status int, bodyBytes int64, err error) {
	if parseErr != nil {
		if rerr, ok := parseErr.(*request.Error); ok && rerr.UnknownMethod {
			bodyBytes, err = response.WriteError(conn, 501, false)
			return 501, bodyBytes, err
		}
		bodyBytes, err = response.WriteError(conn, 400, false)
		return 400, bodyBytes, err
	}

	head := req.Method == "HEAD"

	resolved, resolveErr := resolve.Resolve(cfg.DocRoot, cfg.CGIDir, req.URI)
	if resolveErr != nil {
		bodyBytes, err = response.WriteError(conn, 403, head)
		return 403, bodyBytes, err
	}

	if !resolved.Flags.Has(resolve.Exists) {
		bodyBytes, err = response.WriteError(conn, 404, head)
		return 404, bodyBytes, err
	}

	if resolved.Flags.Has(resolve.NeedsTrailingSlash) {
		bodyBytes, err = response.WriteRedirect(conn, req.URI)
		return 301, bodyBytes, err
	}

	if req.IMSTime > 0 && resolved.Stat != nil && resolved.Stat.ModTime().Unix() <= req.IMSTime {
		bodyBytes, err = response.WriteNotModified(conn, resolved.Stat.ModTime())
		return 304, bodyBytes, err
	}

	switch {
	case resolved.Flags.Has(resolve.IsDir):
		return serveDirListing(conn, req, resolved, head)
	case resolved.Flags.Has(resolve.IsCGI):
		return serveCGI(conn, cfg, req, resolved, head)
	default:
		return serveFile(conn, resolved, head)
	}
}

func serveDirListing(conn net.Conn, req *request.Request, resolved *resolve.Result, head bool) (int, int64, error) {
	entries, err := os.ReadDir(resolved.OutPath)
	if err != nil {
		bodyBytes, werr := response.WriteError(conn, 403, head)
		return 403, bodyBytes, werr
	}
	body := listing.Render(req.URI, entries)
	bodyBytes, werr := response.WriteBody(conn, strings.NewReader(string(body)), int64(len(body)), "text/html; charset=utf-8", resolved.Stat.ModTime(), head)
	return 200, bodyBytes, werr
}

func serveCGI(conn net.Conn, cfg Config, req *request.Request, resolved *resolve.Result, head bool) (int, int64, error) {
	remoteHost := conn.RemoteAddr().String()
	if host, _, splitErr := net.SplitHostPort(remoteHost); splitErr == nil {
		remoteHost = host
	}
	scriptName := req.URI
	if i := strings.IndexByte(scriptName, '?'); i >= 0 {
		scriptName = scriptName[:i]
	}

	// Start the subprocess before writing anything to the client: if
	// the script can't be launched at all, the client needs a 500, not
	// a 200 prologue followed by nothing.
	proc, err := cgi.Start(resolved.OutPath, cgi.Request{
		Method:     req.Method,
		ScriptName: scriptName,
		Query:      resolved.Query,
		RemoteAddr: remoteHost,
	})
	if err != nil {
		cfg.AppLog.Warn("cgi start failed", zap.Error(err), zap.String("script", resolved.OutPath))
		bodyBytes, werr := response.WriteError(conn, 500, head)
		return 500, bodyBytes, werr
	}

	if err := response.WriteCGIPrologue(conn); err != nil {
		return 0, 0, err
	}
	n, err := proc.Stream(conn, head)
	if err != nil {
		cfg.AppLog.Warn("cgi execution failed", zap.Error(err), zap.String("script", resolved.OutPath))
	}
	return 200, n, nil
}

func serveFile(conn net.Conn, resolved *resolve.Result, head bool) (int, int64, error) {
	f, err := os.Open(resolved.OutPath)
	if err != nil {
		bodyBytes, werr := response.WriteError(conn, 403, head)
		return 403, bodyBytes, werr
	}
	defer f.Close()

	contentType := classify(resolved.OutPath)
	bodyBytes, werr := response.WriteBody(conn, f, resolved.Stat.Size(), contentType, resolved.Stat.ModTime(), head)
	return 200, bodyBytes, werr
}

// classify maps a file path to a MIME type by extension, falling back
// to a generic binary type when the extension is unrecognized.
func classify(p string) string {
	ext := path.Ext(filepath.Base(p))
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
