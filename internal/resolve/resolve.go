// Package resolve translates a request URI into a filesystem path
// under a document root, a user's "~/sws" directory, or a CGI root.
// Any URI containing ".." is refused. Non-CGI paths (docroot and
// userdir alike) are refused when their canonical form lies outside
// the canonicalized document root; CGI paths get no such check.
package resolve

import (
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// Flags classifies the outcome of a successful resolution.
type Flags uint8

const (
	Exists Flags = 1 << iota
	IsDir
	NeedsTrailingSlash
	IsCGI
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

// Result is a resolved request path plus the classification flags the
// worker needs to pick a response.
type Result struct {
	OutPath string
	Stat    fs.FileInfo // nil when !Exists
	Flags   Flags
	Query   string // raw query string for /cgi-bin requests, "" otherwise
}

// maxUsernameLen bounds the "/~user" token to a sane username length.
const maxUsernameLen = 32

const indexFile = "index.html"
const userdirSubdir = "/sws"

// Resolve translates uri into a filesystem path under cgidir (for
// "/cgi-bin" URIs when cgidir is set), a user's home directory (for
// "/~user" URIs), or docroot, in that order of precedence. A
// non-nil error always maps to 403 Forbidden at the composer; a nil
// error with Flags lacking Exists maps to 404.
func Resolve(docroot, cgidir, uri string) (*Result, error) {
	if strings.Contains(uri, "..") {
		return nil, errForbidden("path contains ..")
	}

	if cgidir != "" && strings.HasPrefix(uri, "/cgi-bin") {
		return resolveCGI(cgidir, uri)
	}

	realroot, err := filepath.EvalSymlinks(docroot)
	if err != nil {
		return nil, errForbidden("cannot canonicalize document root")
	}

	var candidate string
	if strings.HasPrefix(uri, "/~") {
		candidate, err = resolveUserdir(uri)
		if err != nil {
			return nil, err
		}
	} else if strings.HasPrefix(uri, "/") {
		candidate = docroot + uri
	} else {
		return nil, errForbidden("URI does not start with /")
	}

	resolved, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		// Most commonly: the path does not exist yet. Let the worker
		// emit 404 rather than treating this as forbidden.
		return &Result{OutPath: candidate, Flags: 0}, nil
	}

	if resolved != realroot && !strings.HasPrefix(resolved, realroot+string(os.PathSeparator)) {
		return nil, errForbidden("resolved path escapes document root")
	}

	return statResult(resolved, uri, 0)
}

func resolveUserdir(uri string) (string, error) {
	rest := uri[len("/~"):]
	end := strings.IndexByte(rest, '/')
	var username, remainder string
	if end < 0 {
		username, remainder = rest, ""
	} else {
		username, remainder = rest[:end], rest[end:]
	}
	if username == "" || len(username) > maxUsernameLen {
		return "", errForbidden("invalid userdir username")
	}
	u, err := user.Lookup(username)
	if err != nil {
		return "", errForbidden("unknown user: " + username)
	}
	return u.HomeDir + userdirSubdir + remainder, nil
}

func resolveCGI(cgidir, uri string) (*Result, error) {
	pathPart, query := uri, ""
	if i := strings.IndexByte(uri, '?'); i >= 0 {
		pathPart, query = uri[:i], uri[i+1:]
	}
	rest := strings.TrimPrefix(pathPart, "/cgi-bin")

	var candidate string
	if rest == "" {
		candidate = cgidir + "/"
	} else {
		candidate = cgidir + rest
	}

	outpath := candidate
	if resolved, err := filepath.EvalSymlinks(candidate); err == nil {
		outpath = resolved
	}

	res := &Result{OutPath: outpath, Flags: IsCGI, Query: query}
	if st, err := os.Stat(outpath); err == nil {
		res.Stat = st
		res.Flags |= Exists
	}
	return res, nil
}

// statResult stats resolved (the canonicalized candidate), applying
// the directory / trailing-slash / index.html rules: a directory URI
// missing its trailing slash needs a redirect, and a directory URI
// with its trailing slash falls back to index.html when present.
func statResult(resolved, uri string, extra Flags) (*Result, error) {
	st, err := os.Stat(resolved)
	if err != nil {
		return &Result{OutPath: resolved, Flags: extra}, nil
	}

	res := &Result{OutPath: resolved, Stat: st, Flags: extra | Exists}

	if !st.IsDir() {
		return res, nil
	}
	res.Flags |= IsDir

	if !strings.HasSuffix(uri, "/") {
		res.Flags |= NeedsTrailingSlash
		return res, nil
	}

	idx := filepath.Join(resolved, indexFile)
	if ist, err := os.Stat(idx); err == nil && !ist.IsDir() {
		res.OutPath = idx
		res.Stat = ist
		res.Flags &^= IsDir
	}
	return res, nil
}

// forbiddenError marks a resolution failure as the "forbidden" class
// (as opposed to "other": oversize/I-O, which the composer also maps
// to 403 per the outcome precedence table, so there is no separate
// behavior to implement for it here).
type forbiddenError struct{ msg string }

func (e *forbiddenError) Error() string { return e.msg }

func errForbidden(msg string) error { return &forbiddenError{msg: msg} }
