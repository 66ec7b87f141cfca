package ninep

import "context"

// File is the contract every tree node (root, directory, leaf) implements.
// It mirrors the operation set of spec.md §4.6: stat is always available,
// walk resolves a chain of names, open yields a handle, and every mutating
// operation fails closed with EPERM.
type File interface {
	Stat(ctx context.Context) (Stat, error)
	WStat(ctx context.Context, s Stat) error
	Walk(ctx context.Context, names []string) (target File, chain []File, err error)
	Open(ctx context.Context, mode OpenMode) (OpenFile, error)
	Create(ctx context.Context, name string, perm uint32, typ FileType, mode OpenMode) (File, error)
	Unlink(ctx context.Context) error
	Qid() Qid
	Name() string
}

// OpenFile is a handle returned by File.Open. Every implementation in this
// repository (internal/resolver's cursor, internal/index's listing cursor) is
// an in-memory cursor that tolerates arbitrary offsets; no streaming variant
// exists.
type OpenFile interface {
	ReadAt(ctx context.Context, buf []byte, off uint64) (int, error)
	IOUnit() uint32
}
