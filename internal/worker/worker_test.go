package worker

import (
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/jlee2404/sws/internal/accesslog"
)

func testConfig(t *testing.T, docroot, cgidir string) Config {
	t.Helper()
	logger, err := accesslog.Open("", true) // stdout, discarded by not asserting on it
	if err != nil {
		t.Fatal(err)
	}
	return Config{DocRoot: docroot, CGIDir: cgidir, AccessLog: logger, AppLog: zap.NewNop()}
}

// roundTrip writes raw on one end of an in-memory pipe, runs Handle on
// the other, and returns everything the worker wrote back.
func roundTrip(t *testing.T, cfg Config, raw string) string {
	t.Helper()
	client, server := net.Pipe()

	done := make(chan struct{})
	go func() {
		Handle(server, cfg)
		close(done)
	}()

	if _, err := client.Write([]byte(raw)); err != nil {
		t.Fatal(err)
	}

	out, _ := io.ReadAll(client)
	<-done
	return string(out)
}

func TestScenarioIndexFile(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "index.html"), []byte("hi\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := testConfig(t, root, "")
	resp := roundTrip(t, cfg, "GET / HTTP/1.0\r\n\r\n")
	if !strings.HasPrefix(resp, "HTTP/1.0 200 OK\r\n") {
		t.Fatalf("got %q", resp)
	}
	if !strings.Contains(resp, "Content-Length: 3\r\n") {
		t.Errorf("got %q", resp)
	}
	if !strings.HasSuffix(resp, "hi\n") {
		t.Errorf("got %q", resp)
	}
}

func TestScenarioDirectoryRedirect(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := testConfig(t, root, "")
	resp := roundTrip(t, cfg, "GET /sub HTTP/1.0\r\n\r\n")
	if !strings.HasPrefix(resp, "HTTP/1.0 301 Moved Permanently\r\n") {
		t.Fatalf("got %q", resp)
	}
	if !strings.Contains(resp, "Location: /sub/\r\n") {
		t.Errorf("got %q", resp)
	}
}

func TestScenarioTraversalForbidden(t *testing.T) {
	root := t.TempDir()
	cfg := testConfig(t, root, "")
	resp := roundTrip(t, cfg, "GET /../etc/passwd HTTP/1.0\r\n\r\n")
	if !strings.HasPrefix(resp, "HTTP/1.0 403 Forbidden\r\n") {
		t.Fatalf("got %q", resp)
	}
	if !strings.HasSuffix(resp, "Forbidden\r\n") {
		t.Errorf("got %q", resp)
	}
}

func TestScenarioMissingNotFound(t *testing.T) {
	root := t.TempDir()
	cfg := testConfig(t, root, "")
	resp := roundTrip(t, cfg, "GET /missing HTTP/1.0\r\n\r\n")
	if !strings.HasPrefix(resp, "HTTP/1.0 404 Not Found\r\n") {
		t.Fatalf("got %q", resp)
	}
	if !strings.HasSuffix(resp, "Not Found\r\n") {
		t.Errorf("got %q", resp)
	}
}

func TestScenarioUnimplementedMethod(t *testing.T) {
	root := t.TempDir()
	cfg := testConfig(t, root, "")
	resp := roundTrip(t, cfg, "POST / HTTP/1.0\r\n\r\n")
	if !strings.HasPrefix(resp, "HTTP/1.0 501 Not Implemented\r\n") {
		t.Fatalf("got %q", resp)
	}
}

func TestScenarioConditionalGetNotModified(t *testing.T) {
	root := t.TempDir()
	p := filepath.Join(root, "index.html")
	if err := os.WriteFile(p, []byte("hi\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := testConfig(t, root, "")
	resp := roundTrip(t, cfg, "GET /index.html HTTP/1.0\r\nIf-Modified-Since: Fri, 01 Jan 2100 00:00:00 GMT\r\n\r\n")
	if !strings.HasPrefix(resp, "HTTP/1.0 304 Not Modified\r\n") {
		t.Fatalf("got %q", resp)
	}
	if !strings.Contains(resp, "Content-Length: 0\r\n") {
		t.Errorf("got %q", resp)
	}
}

func TestScenarioHeadMirrorsGetHeaders(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := testConfig(t, root, "")
	getResp := roundTrip(t, cfg, "GET /a.txt HTTP/1.0\r\n\r\n")
	headResp := roundTrip(t, cfg, "HEAD /a.txt HTTP/1.0\r\n\r\n")

	getHeaders := stripDateHeader(getResp[:strings.Index(getResp, "\r\n\r\n")+4])
	headHeaders := stripDateHeader(headResp)
	if headHeaders != getHeaders {
		t.Errorf("HEAD headers differ from GET headers:\nHEAD=%q\nGET =%q", headHeaders, getHeaders)
	}
}

// stripDateHeader removes the Date: line, which legitimately differs
// between two requests issued a tick apart.
func stripDateHeader(headers string) string {
	lines := strings.Split(headers, "\r\n")
	var kept []string
	for _, l := range lines {
		if strings.HasPrefix(l, "Date:") {
			continue
		}
		kept = append(kept, l)
	}
	return strings.Join(kept, "\r\n")
}

func TestScenarioCGIStartFailureIs500(t *testing.T) {
	root := t.TempDir()
	cgidir := t.TempDir()
	// Not executable, not even a valid script: exec should fail to start.
	if err := os.WriteFile(filepath.Join(cgidir, "broken"), []byte("not a script"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := testConfig(t, root, cgidir)
	resp := roundTrip(t, cfg, "GET /cgi-bin/broken HTTP/1.0\r\n\r\n")
	if !strings.HasPrefix(resp, "HTTP/1.0 500 Internal Server Error\r\n") {
		t.Fatalf("got %q", resp)
	}
}

func TestScenarioBadRequest(t *testing.T) {
	root := t.TempDir()
	cfg := testConfig(t, root, "")
	resp := roundTrip(t, cfg, "not a request at all\r\n\r\n")
	if !strings.HasPrefix(resp, "HTTP/1.0 400 Bad Request\r\n") {
		t.Fatalf("got %q", resp)
	}
}
