package listing

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeDirEntry struct{ name string }

func (f fakeDirEntry) Name() string              { return f.name }
func (f fakeDirEntry) IsDir() bool                { return false }
func (f fakeDirEntry) Type() os.FileMode          { return 0 }
func (f fakeDirEntry) Info() (os.FileInfo, error) { return nil, nil }

func TestRenderSkipsDotfiles(t *testing.T) {
	entries := []os.DirEntry{
		fakeDirEntry{"index.html"},
		fakeDirEntry{".hidden"},
		fakeDirEntry{"sub"},
	}
	body := string(Render("/sub/", entries))
	if strings.Contains(body, ".hidden") {
		t.Errorf("dotfile leaked into listing: %s", body)
	}
	if !strings.Contains(body, `<a href="/sub/index.html">index.html</a>`) {
		t.Errorf("missing index.html entry: %s", body)
	}
	if !strings.Contains(body, "Index of /sub/") {
		t.Errorf("missing title/h1: %s", body)
	}
}

func TestRenderRealDir(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"a.txt", "b.txt"} {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	body := string(Render("/", ents))
	if !strings.Contains(body, "a.txt") || !strings.Contains(body, "b.txt") {
		t.Errorf("missing entries: %s", body)
	}
}
