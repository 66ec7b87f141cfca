package index

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gaby/dbgsymfs/internal/ninep"
	"github.com/ulikunitz/xz"
)

func servePackages(t *testing.T, body string) *httptest.Server {
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

func noopResolve(ctx context.Context, poolURL, intraArchivePath string) (ninep.OpenFile, error) {
	return nil, ninep.ErrIO
}

func TestBuildSingleParagraphTree(t *testing.T) {
	body := "Package: x\n" +
		"Filename: pool/x.deb\n" +
		"Build-Ids: aabbccddeeff00112233445566778899aabbccdd\n"
	srv := servePackages(t, body)
	defer srv.Close()

	root, err := Build(context.Background(), "http://archive.example/", srv.URL, noopResolve)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	target, _, err := root.Walk(context.Background(), []string{"aa", "bbccddeeff00112233445566778899aabbccdd.debug"})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if target == nil {
		t.Fatalf("expected leaf to resolve")
	}
	if target.Name() != "bbccddeeff00112233445566778899aabbccdd.debug" {
		t.Fatalf("unexpected leaf name: %q", target.Name())
	}
}

func TestBuildSkipsParagraphsMissingFields(t *testing.T) {
	body := "Package: incomplete\n\n" +
		"Filename: pool/y.deb\nBuild-Ids: 1111111111111111111111111111111111111111\n"
	srv := servePackages(t, body)
	defer srv.Close()

	root, err := Build(context.Background(), "http://archive.example/", srv.URL, noopResolve)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(root.dirs) != 1 {
		t.Fatalf("expected exactly one directory, got %d", len(root.dirs))
	}
}

func TestWalkEmptyPathReturnsSelf(t *testing.T) {
	root := &Root{dirs: map[string]*Dir{}}
	target, chain, err := root.Walk(context.Background(), nil)
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if target != root {
		t.Fatalf("expected root returned for empty walk")
	}
	if len(chain) != 0 {
		t.Fatalf("expected empty chain, got %d", len(chain))
	}
}

func TestWalkUnresolvedComponentReturnsPartial(t *testing.T) {
	root := &Root{dirs: map[string]*Dir{}}
	target, chain, err := root.Walk(context.Background(), []string{"zz"})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if target != nil {
		t.Fatalf("expected no target for unresolved component")
	}
	if chain != nil {
		t.Fatalf("expected nil chain, got %+v", chain)
	}
}

func TestWalkPastLeafReturnsPartialChainWithLeaf(t *testing.T) {
	leaf := &Leaf{name: "bb.debug", buildID: "aabbccddeeff00112233445566778899aabbccdd"}
	dir := &Dir{name: "aa", leaves: []*Leaf{leaf}}
	root := &Root{dirs: map[string]*Dir{"aa": dir}}

	target, chain, err := root.Walk(context.Background(), []string{"aa", "bb.debug", "extra"})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if target != nil {
		t.Fatalf("expected no target walking past a leaf")
	}
	if len(chain) != 2 || chain[0] != dir || chain[1] != leaf {
		t.Fatalf("expected chain [dir, leaf], got %+v", chain)
	}
}

func TestDirectoryListingRoundTrips(t *testing.T) {
	leaf := &Leaf{name: "bb.debug", buildID: "aabbccddeeff00112233445566778899aabbccdd"}
	dir := &Dir{name: "aa", leaves: []*Leaf{leaf}}
	root := &Root{dirs: map[string]*Dir{"aa": dir}}

	handle, err := root.Open(context.Background(), ninep.OpenRead)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	buf := make([]byte, 4096)
	n, _ := handle.ReadAt(context.Background(), buf, 0)

	stats, err := ninep.DecodeStats(buf[:n])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(stats) != 1 || stats[0].Name != "aa" {
		t.Fatalf("unexpected listing: %+v", stats)
	}
}
