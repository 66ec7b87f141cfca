// Package xzstream wraps a byte stream of XZ-compressed input as a reader of
// decompressed output, decoding in a background goroutine so the caller never
// buffers the whole stream (spec.md §4.4).
package xzstream

import (
	"fmt"
	"io"

	"github.com/ulikunitz/xz"
)

const chunkSize = 32 * 1024

// Reader exposes the decoded bytes of a background decompression task. The
// task owns the source reader and the write end of an internal pipe; Reader
// delegates reads to the pipe's read end.
type Reader struct {
	pipeR *io.PipeReader
	done  chan struct{}
	err   error
}

// New starts decoding src in a background goroutine and returns a reader over
// the decompressed bytes. Closing the returned Reader stops the task's writes
// from succeeding, which unblocks and terminates the goroutine.
func New(src io.Reader) *Reader {
	pr, pw := io.Pipe()
	r := &Reader{pipeR: pr, done: make(chan struct{})}

	go func() {
		defer close(r.done)
		err := decode(src, pw)
		pw.CloseWithError(err)
	}()

	return r
}

func decode(src io.Reader, w io.Writer) error {
	dec, err := xz.NewReader(src)
	if err != nil {
		return fmt.Errorf("xzstream: opening decoder: %w", err)
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("xzstream: decoding: %w", err)
		}
	}
}

// Read satisfies io.Reader by draining the decoder's pipe. Once the
// background task has failed, Read surfaces that error (never a bare EOF) on
// the call that observes the failure.
func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.pipeR.Read(p)
	if err != nil && err != io.EOF {
		r.err = err
	}
	return n, err
}

// Close drops the reader, releasing the background task if it has not
// already exited on its own.
func (r *Reader) Close() error {
	return r.pipeR.Close()
}

// Err reports the background task's terminal error, if any, once observed
// through Read. It is nil while decoding is still in progress or finished
// cleanly.
func (r *Reader) Err() error {
	return r.err
}
