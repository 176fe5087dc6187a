package mediakeys

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSourceOpenBuffer(t *testing.T) {
	src := Source{Buffer: []byte("hello")}
	rc, err := src.Open(context.Background(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q", got)
	}
}

func TestSourceOpenReaderTakesPrecedence(t *testing.T) {
	src := Source{Reader: strings.NewReader("from reader"), Buffer: []byte("from buffer")}
	rc, err := src.Open(context.Background(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	got, _ := io.ReadAll(rc)
	if string(got) != "from reader" {
		t.Fatalf("got %q, want reader content to win", got)
	}
}

func TestSourceOpenFilePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plaintext.bin")
	if err := os.WriteFile(path, []byte("file contents"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	src := Source{FilePath: path}
	rc, err := src.Open(context.Background(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	got, _ := io.ReadAll(rc)
	if string(got) != "file contents" {
		t.Fatalf("got %q", got)
	}
}

func TestSourceOpenURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("remote bytes"))
	}))
	defer srv.Close()

	src := Source{URL: srv.URL}
	rc, err := src.Open(context.Background(), srv.Client())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	got, _ := io.ReadAll(rc)
	if string(got) != "remote bytes" {
		t.Fatalf("got %q", got)
	}
}

func TestSourceOpenURLErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	src := Source{URL: srv.URL}
	_, err := src.Open(context.Background(), srv.Client())
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestSourceOpenNoneSpecified(t *testing.T) {
	src := Source{}
	if _, err := src.Open(context.Background(), nil); err == nil {
		t.Fatal("expected error when no source is specified")
	}
}
