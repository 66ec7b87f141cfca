package fusefs

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"bazil.org/fuse"

	"github.com/gaby/dbgsymfs/internal/index"
	"github.com/ulikunitz/xz"
)

func servePackagesIndex(t *testing.T, body string) *httptest.Server {
	t.Helper()
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatalf("xz writer: %v", err)
	}
	if _, err := w.Write([]byte(body)); err != nil {
		t.Fatalf("xz write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("xz close: %v", err)
	}
	compressed := buf.Bytes()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(compressed)
	}))
}

func buildTestTree(t *testing.T) *Tree {
	t.Helper()
	body := "Package: x\nFilename: pool/x.deb\n" +
		"Build-Ids: aabbccddeeff00112233445566778899aabbccdd\n"
	srv := servePackagesIndex(t, body)
	t.Cleanup(srv.Close)

	root, err := index.Build(context.Background(), "http://archive.example/", srv.URL, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return &Tree{Root: root}
}

func TestNodeAttrAndReadDirAll(t *testing.T) {
	tree := buildTestTree(t)
	rootNode, err := tree.Root()
	if err != nil {
		t.Fatalf("root: %v", err)
	}

	n := rootNode.(*node)
	var attr fuse.Attr
	if err := n.Attr(context.Background(), &attr); err != nil {
		t.Fatalf("attr: %v", err)
	}
	if !attr.Mode.IsDir() {
		t.Fatalf("expected root to be a directory")
	}

	dirents, err := n.ReadDirAll(context.Background())
	if err != nil {
		t.Fatalf("readdirall: %v", err)
	}
	if len(dirents) != 1 || dirents[0].Name != "aa" {
		t.Fatalf("unexpected dirents: %+v", dirents)
	}
}

func TestNodeLookupResolvesAndMisses(t *testing.T) {
	tree := buildTestTree(t)
	rootNode, _ := tree.Root()
	n := rootNode.(*node)

	dirNode, err := n.Lookup(context.Background(), "aa")
	if err != nil {
		t.Fatalf("lookup dir: %v", err)
	}
	dn := dirNode.(*node)

	leafNode, err := dn.Lookup(context.Background(), "bbccddeeff00112233445566778899aabbccdd.debug")
	if err != nil {
		t.Fatalf("lookup leaf: %v", err)
	}
	var attr fuse.Attr
	if err := leafNode.Attr(context.Background(), &attr); err != nil {
		t.Fatalf("leaf attr: %v", err)
	}
	if attr.Mode.IsDir() {
		t.Fatalf("expected leaf to not be a directory")
	}

	if _, err := n.Lookup(context.Background(), "zz"); err != fuse.ENOENT {
		t.Fatalf("expected ENOENT for missing dir, got %v", err)
	}
}
