// Package index builds the two-level build-id directory tree from a
// package-index paragraph stream and exposes it through the ninep.File
// contract (spec.md §3, §4.5, §4.6).
package index

import (
	"context"
	"encoding/hex"
	"sort"

	"github.com/gaby/dbgsymfs/internal/ninep"
)

// Resolver materializes a leaf's ELF debug payload on open, composing C2-C4
// and a tar reader. Injected so this package never imports internal/resolver
// directly, keeping the tree buildable and testable without network access.
type Resolver func(ctx context.Context, poolURL, intraArchivePath string) (ninep.OpenFile, error)

// Leaf is one build-id entry: a display name, its build-id, and the location
// of the payload inside the remote archive.
type Leaf struct {
	name             string
	buildID          string
	poolURL          string
	intraArchivePath string
	resolve          Resolver
}

// Dir is a first-level directory named by the first two hex characters of
// the build-ids it groups.
type Dir struct {
	name   string
	leaves []*Leaf
}

// Root is the tree's single entry point, returned to a session on attach.
type Root struct {
	dirs map[string]*Dir
}

func qidPath(hexDigits string) uint64 {
	b, err := hex.DecodeString(hexDigits)
	if err != nil || len(b) == 0 {
		return 0
	}
	v := uint64(0)
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

// --- Root ---

func (r *Root) Name() string { return "/" }

func (r *Root) Qid() ninep.Qid {
	return ninep.Qid{Type: ninep.TypeDir, Version: 1, Path: 1}
}

func (r *Root) Stat(ctx context.Context) (ninep.Stat, error) {
	return ninep.Stat{
		Name: r.Name(),
		Qid:  r.Qid(),
		Size: ninep.SizeSentinel,
		Mode: ninep.ModeDir,
	}, nil
}

func (r *Root) WStat(ctx context.Context, _ ninep.Stat) error { return ninep.ErrPerm }
func (r *Root) Create(ctx context.Context, _ string, _ uint32, _ ninep.FileType, _ ninep.OpenMode) (ninep.File, error) {
	return nil, ninep.ErrPerm
}
func (r *Root) Unlink(ctx context.Context) error { return ninep.ErrPerm }

func (r *Root) Walk(ctx context.Context, names []string) (ninep.File, []ninep.File, error) {
	if len(names) == 0 {
		return r, nil, nil
	}
	dir, ok := r.dirs[names[0]]
	if !ok {
		return nil, nil, nil
	}
	if len(names) == 1 {
		return dir, []ninep.File{}, nil
	}
	target, chain, err := dir.Walk(ctx, names[1:])
	if err != nil {
		return nil, nil, err
	}
	return target, append([]ninep.File{dir}, chain...), nil
}

func (r *Root) Open(ctx context.Context, mode ninep.OpenMode) (ninep.OpenFile, error) {
	if !mode.ReadOnly() {
		return nil, ninep.ErrPerm
	}
	return newListingCursor(r.children())
}

func (r *Root) children() []ninep.Stat {
	names := make([]string, 0, len(r.dirs))
	for name := range r.dirs {
		names = append(names, name)
	}
	sort.Strings(names)

	stats := make([]ninep.Stat, 0, len(names))
	for _, name := range names {
		st, _ := r.dirs[name].Stat(context.Background())
		stats = append(stats, st)
	}
	return stats
}

// --- Dir ---

func (d *Dir) Name() string { return d.name }

func (d *Dir) Qid() ninep.Qid {
	return ninep.Qid{Type: ninep.TypeDir, Version: 1, Path: qidPath(d.name)}
}

func (d *Dir) Stat(ctx context.Context) (ninep.Stat, error) {
	return ninep.Stat{
		Name: d.name,
		Qid:  d.Qid(),
		Size: ninep.SizeSentinel,
		Mode: ninep.ModeDir,
	}, nil
}

func (d *Dir) WStat(ctx context.Context, _ ninep.Stat) error { return ninep.ErrPerm }
func (d *Dir) Create(ctx context.Context, _ string, _ uint32, _ ninep.FileType, _ ninep.OpenMode) (ninep.File, error) {
	return nil, ninep.ErrPerm
}
func (d *Dir) Unlink(ctx context.Context) error { return ninep.ErrPerm }

func (d *Dir) Walk(ctx context.Context, names []string) (ninep.File, []ninep.File, error) {
	if len(names) == 0 {
		return d, nil, nil
	}
	for _, leaf := range d.leaves {
		if leaf.name != names[0] {
			continue
		}
		if len(names) == 1 {
			return leaf, []ninep.File{}, nil
		}
		// Leaves have no children; a longer path fails to resolve past them,
		// but the leaf itself did resolve, so it belongs in the chain.
		return nil, []ninep.File{leaf}, nil
	}
	return nil, nil, nil
}

func (d *Dir) Open(ctx context.Context, mode ninep.OpenMode) (ninep.OpenFile, error) {
	if !mode.ReadOnly() {
		return nil, ninep.ErrPerm
	}
	stats := make([]ninep.Stat, 0, len(d.leaves))
	for _, leaf := range d.leaves {
		st, _ := leaf.Stat(context.Background())
		stats = append(stats, st)
	}
	return newListingCursor(stats)
}

// --- Leaf ---

func (l *Leaf) Name() string { return l.name }

func (l *Leaf) Qid() ninep.Qid {
	first16 := l.buildID
	if len(first16) > 16 {
		first16 = first16[:16]
	}
	return ninep.Qid{Type: ninep.TypeFile, Version: 1, Path: qidPath(first16)}
}

func (l *Leaf) Stat(ctx context.Context) (ninep.Stat, error) {
	return ninep.Stat{
		Name: l.name,
		Qid:  l.Qid(),
		Size: ninep.SizeSentinel,
		Mode: ninep.ModeFile,
	}, nil
}

func (l *Leaf) WStat(ctx context.Context, _ ninep.Stat) error { return ninep.ErrPerm }
func (l *Leaf) Create(ctx context.Context, _ string, _ uint32, _ ninep.FileType, _ ninep.OpenMode) (ninep.File, error) {
	return nil, ninep.ErrPerm
}
func (l *Leaf) Unlink(ctx context.Context) error { return ninep.ErrPerm }

func (l *Leaf) Walk(ctx context.Context, names []string) (ninep.File, []ninep.File, error) {
	if len(names) == 0 {
		return l, nil, nil
	}
	return nil, nil, nil
}

func (l *Leaf) Open(ctx context.Context, mode ninep.OpenMode) (ninep.OpenFile, error) {
	if !mode.ReadOnly() {
		return nil, ninep.ErrPerm
	}
	if l.resolve == nil {
		return nil, ninep.ErrIO
	}
	handle, err := l.resolve(ctx, l.poolURL, l.intraArchivePath)
	if err != nil {
		return nil, ninep.ErrIO
	}
	return handle, nil
}

// listingCursor is the in-memory open-file handle returned for a directory
// open: the serialized stat buffer of its children, read at an explicit
// offset.
type listingCursor struct {
	buf []byte
}

func newListingCursor(stats []ninep.Stat) (*listingCursor, error) {
	buf, err := ninep.EncodeStats(stats)
	if err != nil {
		return nil, ninep.ErrInval
	}
	return &listingCursor{buf: buf}, nil
}

func (c *listingCursor) ReadAt(_ context.Context, p []byte, off uint64) (int, error) {
	if off >= uint64(len(c.buf)) {
		return 0, nil
	}
	return copy(p, c.buf[off:]), nil
}

func (c *listingCursor) IOUnit() uint32 { return 0 }
