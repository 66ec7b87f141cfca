// Package ar parses a classic Unix ar(5) container from a random-access
// source into a lazy sequence of member readers (spec.md §4.3).
package ar

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gaby/dbgsymfs/internal/hrange"
)

// Magic is the fixed 8-byte prefix of every ar archive.
var Magic = []byte("!<arch>\n")

// Trailer is the fixed 2-byte suffix of every 60-byte member header.
var Trailer = [2]byte{0x60, 0x0A}

const headerSize = 60

// Header describes one archive member.
type Header struct {
	Identifier string
	Size       uint64
	Timestamp  uint64
	Owner      uint64
	Group      uint64
	// Mode is parsed as decimal text, matching the source this design was
	// translated from; ar(5) headers are conventionally octal. See
	// DESIGN.md for why this is preserved rather than "fixed".
	Mode uint64
}

// Entry is one member: its header plus a reader over exactly Size bytes of
// payload. Body must be fully consumed or closed before the next Next call.
type Entry struct {
	Header Header
	Body   io.ReadCloser
}

// Reader is a single logical cursor over an ar archive fetched over HTTP
// range requests. It is not safe for concurrent use.
type Reader struct {
	file   *hrange.File
	offset uint64
}

// Open verifies the archive magic and returns a cursor positioned at the
// first member header.
func Open(ctx context.Context, file *hrange.File) (*Reader, error) {
	r, err := file.ReaderAtTo(ctx, 0, uint64(len(Magic))-1)
	if err != nil {
		return nil, fmt.Errorf("ar: reading magic: %w", err)
	}
	defer r.Close()

	prefix := make([]byte, len(Magic))
	if _, err := io.ReadFull(r, prefix); err != nil {
		return nil, fmt.Errorf("ar: reading magic: %w", err)
	}
	if !bytes.Equal(prefix, Magic) {
		return nil, fmt.Errorf("ar: wrong file magic; is this an .ar file?")
	}

	return &Reader{file: file, offset: uint64(len(Magic))}, nil
}

// Offset reports the cursor's current position, always the start of the
// next member header or EOF.
func (r *Reader) Offset() uint64 { return r.offset }

// Next returns the next member, or (nil, nil) when the archive is
// exhausted. The returned Entry's Body must be consumed before calling Next
// again; the cursor is a single logical reader.
func (r *Reader) Next(ctx context.Context) (*Entry, error) {
	hdrReader, err := r.file.ReaderAtTo(ctx, r.offset, headerSize-1)
	if err == hrange.ErrPastEOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ar: reading header at %d: %w", r.offset, err)
	}
	raw := make([]byte, headerSize)
	_, err = io.ReadFull(hdrReader, raw)
	hdrReader.Close()
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ar: reading header at %d: %w", r.offset, err)
	}

	hdr, err := parseHeader(raw)
	if err != nil {
		return nil, err
	}

	r.offset += headerSize

	var body io.ReadCloser
	if hdr.Size == 0 {
		body = io.NopCloser(bytes.NewReader(nil))
	} else {
		body, err = r.file.ReaderAtTo(ctx, r.offset, hdr.Size-1)
		if err != nil {
			return nil, fmt.Errorf("ar: reading body of %q: %w", hdr.Identifier, err)
		}
	}
	r.offset += hdr.Size

	return &Entry{Header: hdr, Body: body}, nil
}

func parseHeader(raw []byte) (Header, error) {
	identifier := raw[0:16]
	timestamp := raw[16:28]
	owner := raw[28:34]
	group := raw[34:40]
	mode := raw[40:48]
	size := raw[48:58]
	trailer := raw[58:60]

	if trailer[0] != Trailer[0] || trailer[1] != Trailer[1] {
		return Header{}, fmt.Errorf("ar: trailer is wrong; file corrupted?")
	}

	parseField := func(name string, field []byte) (uint64, error) {
		s := strings.TrimSpace(string(field))
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("ar: %s field %q: %w", name, s, err)
		}
		return v, nil
	}

	ts, err := parseField("timestamp", timestamp)
	if err != nil {
		return Header{}, err
	}
	own, err := parseField("owner", owner)
	if err != nil {
		return Header{}, err
	}
	grp, err := parseField("group", group)
	if err != nil {
		return Header{}, err
	}
	mod, err := parseField("mode", mode)
	if err != nil {
		return Header{}, err
	}
	sz, err := parseField("size", size)
	if err != nil {
		return Header{}, err
	}

	return Header{
		Identifier: strings.TrimSpace(string(identifier)),
		Size:       sz,
		Timestamp:  ts,
		Owner:      own,
		Group:      grp,
		Mode:       mod,
	}, nil
}
