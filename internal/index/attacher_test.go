package index

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ulikunitz/xz"
)

func servePackagesCounting(t *testing.T, body string, fetches *int32) *httptest.Server {
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
		atomic.AddInt32(fetches, 1)
		w.Write(compressed)
	}))
}

func TestAttacherDedupesConcurrentAttach(t *testing.T) {
	var fetches int32
	srv := servePackagesCounting(t, "Package: x\nFilename: pool/x.deb\nBuild-Ids: aabbccddeeff00112233445566778899aabbccdd\n", &fetches)
	defer srv.Close()

	var results int32
	a := NewAttacher(noopResolve)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := a.Attach(context.Background(), "http://archive.example/", srv.URL); err != nil {
				t.Errorf("attach: %v", err)
			}
			atomic.AddInt32(&results, 1)
		}()
	}
	wg.Wait()

	if atomic.LoadInt32(&results) != 8 {
		t.Fatalf("expected all 8 callers to observe a result, got %d", results)
	}
	if got := atomic.LoadInt32(&fetches); got != 1 {
		t.Fatalf("expected concurrent attaches to share a single index fetch, got %d fetches", got)
	}
}

func TestAttacherRefetchesOnEverySeparateAttach(t *testing.T) {
	var fetches int32
	srv := servePackagesCounting(t, "Package: x\nFilename: pool/x.deb\nBuild-Ids: aabbccddeeff00112233445566778899aabbccdd\n", &fetches)
	defer srv.Close()

	a := NewAttacher(noopResolve)

	if _, err := a.Attach(context.Background(), "http://archive.example/", srv.URL); err != nil {
		t.Fatalf("first attach: %v", err)
	}
	if _, err := a.Attach(context.Background(), "http://archive.example/", srv.URL); err != nil {
		t.Fatalf("second attach: %v", err)
	}

	if got := atomic.LoadInt32(&fetches); got != 2 {
		t.Fatalf("expected each non-concurrent attach to re-fetch the index, got %d fetches", got)
	}
}
