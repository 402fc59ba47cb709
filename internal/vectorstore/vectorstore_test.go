package vectorstore

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeStore(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir store: %v", err)
	}
	for _, name := range RequiredFiles {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("data-"+name), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestCheck(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "vector_store")
	if err := Check(dir); err == nil {
		t.Fatalf("expected error for missing store")
	}

	writeStore(t, dir)
	if err := Check(dir); err != nil {
		t.Fatalf("expected complete store, got %v", err)
	}

	if err := os.Remove(filepath.Join(dir, RequiredFiles[1])); err != nil {
		t.Fatalf("remove file: %v", err)
	}
	err := Check(dir)
	if err == nil {
		t.Fatalf("expected error for incomplete store")
	}
	if !strings.Contains(err.Error(), RequiredFiles[1]) {
		t.Fatalf("error should name the missing file: %v", err)
	}
}

func TestPackThenFetchRoundTrip(t *testing.T) {
	srcDir := filepath.Join(t.TempDir(), "vector_store")
	writeStore(t, srcDir)

	archive := filepath.Join(t.TempDir(), "vector_store.tar.gz")
	if err := Pack(srcDir, archive); err != nil {
		t.Fatalf("pack: %v", err)
	}

	raw, err := os.ReadFile(archive)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(raw)
	}))
	defer srv.Close()

	destDir := t.TempDir()
	if err := Fetch(context.Background(), srv.Client(), srv.URL, destDir); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	extracted := filepath.Join(destDir, "vector_store")
	if err := Check(extracted); err != nil {
		t.Fatalf("extracted store incomplete: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(extracted, RequiredFiles[0]))
	if err != nil {
		t.Fatalf("read extracted file: %v", err)
	}
	if string(got) != "data-"+RequiredFiles[0] {
		t.Fatalf("unexpected file content: %q", got)
	}
}

func TestPack_RejectsIncompleteStore(t *testing.T) {
	dir := t.TempDir()
	if err := Pack(dir, filepath.Join(t.TempDir(), "out.tar.gz")); err == nil {
		t.Fatalf("expected error packing incomplete store")
	}
}

func TestFetch_DownloadErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	err := Fetch(context.Background(), srv.Client(), srv.URL, t.TempDir())
	if err == nil {
		t.Fatalf("expected error for 404")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Fatalf("error should carry status: %v", err)
	}
}

func TestFetch_RejectsPathTraversal(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	body := []byte("evil")
	if err := tw.WriteHeader(&tar.Header{
		Name:     "../escape.txt",
		Typeflag: tar.TypeReg,
		Mode:     0o644,
		Size:     int64(len(body)),
	}); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if _, err := tw.Write(body); err != nil {
		t.Fatalf("write body: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	parent := t.TempDir()
	dest := filepath.Join(parent, "dest")
	if err := os.MkdirAll(dest, 0o755); err != nil {
		t.Fatalf("mkdir dest: %v", err)
	}

	err := Fetch(context.Background(), srv.Client(), srv.URL, dest)
	if err == nil {
		t.Fatalf("expected traversal entry to be rejected")
	}
	if _, statErr := os.Stat(filepath.Join(parent, "escape.txt")); statErr == nil {
		t.Fatalf("traversal file was written outside dest")
	}
}
