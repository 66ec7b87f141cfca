// Package fusefs binds the core build-id tree (internal/ninep.File) onto
// bazil.org/fuse, the host kernel's stand-in for the remote-file protocol's
// session/dispatch layer that spec.md treats as an external collaborator
// (§1, §6).
package fusefs

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	"golang.org/x/sys/unix"

	"github.com/gaby/dbgsymfs/internal/ninep"
)

// MountOptions controls how the tree is bound onto the host filesystem.
type MountOptions struct {
	Mountpoint string
	AllowOther bool
}

// Mount owns the live FUSE connection; closing it unmounts.
type Mount struct {
	conn *fuse.Conn
}

func (m *Mount) Close() error {
	if m.conn != nil {
		return m.conn.Close()
	}
	return nil
}

// Start mounts filesystem at opts.Mountpoint and serves it until ctx is
// canceled or the mount is closed.
func Start(ctx context.Context, opts MountOptions, filesystem fs.FS) (*Mount, error) {
	if opts.Mountpoint == "" {
		return nil, fmt.Errorf("mountpoint required")
	}

	// On container restarts, FUSE mountpoints can be left behind in a
	// disconnected state ("Transport endpoint is not connected"). Best-effort
	// detach any existing mount so we can mount cleanly.
	detachStaleMount(opts.Mountpoint)

	if err := os.MkdirAll(opts.Mountpoint, 0o755); err != nil {
		return nil, err
	}
	mountOpts := []fuse.MountOption{
		fuse.ReadOnly(),
		fuse.FSName("dbgsymfs"),
		fuse.Subtype("dbgsymfs"),
	}
	if opts.AllowOther {
		mountOpts = append(mountOpts, fuse.AllowOther())
	}
	c, err := fuse.Mount(opts.Mountpoint, mountOpts...)
	if err != nil {
		return nil, err
	}
	m := &Mount{conn: c}
	log.Printf("mounting debug filesystem at %s", opts.Mountpoint)
	go func() {
		if err := fs.Serve(c, filesystem); err != nil {
			log.Printf("fuse serve exited: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		_ = c.Close()
	}()
	return m, nil
}

func detachStaleMount(mp string) {
	if strings.TrimSpace(mp) == "" {
		return
	}
	for i := 0; i < 3; i++ {
		_ = unix.Unmount(mp, unix.MNT_DETACH)
		_, _ = exec.Command("fusermount3", "-uz", mp).CombinedOutput()
		_, _ = exec.Command("umount", "-l", mp).CombinedOutput()
		time.Sleep(150 * time.Millisecond)
	}
}

// Tree adapts a ninep.File root into a bazil.org/fuse filesystem.
type Tree struct {
	Root ninep.File
}

// Root satisfies fs.FS.
func (t *Tree) Root() (fs.Node, error) { return &node{file: t.Root}, nil }

// node wraps a single ninep.File so every tree position shares one adapter
// implementation; behavior differentiates on the File it holds, not the Go
// type, mirroring C6's single "file interface" design (spec.md §4.6).
type node struct {
	file ninep.File
}

var (
	_ fs.Node               = (*node)(nil)
	_ fs.NodeStringLookuper = (*node)(nil)
	_ fs.HandleReadDirAller = (*node)(nil)
	_ fs.NodeOpener         = (*node)(nil)
)

func (n *node) Attr(ctx context.Context, a *fuse.Attr) error {
	st, err := n.file.Stat(ctx)
	if err != nil {
		return errnoFor(err)
	}
	a.Inode = st.Qid.Path
	a.Size = st.Size
	a.Mode = os.FileMode(st.Mode)
	if st.Qid.Type == ninep.TypeDir {
		a.Mode |= os.ModeDir
	}
	return nil
}

func (n *node) Lookup(ctx context.Context, name string) (fs.Node, error) {
	target, _, err := n.file.Walk(ctx, []string{name})
	if err != nil {
		return nil, errnoFor(err)
	}
	if target == nil {
		return nil, fuse.ENOENT
	}
	return &node{file: target}, nil
}

func (n *node) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	handle, err := n.file.Open(ctx, ninep.OpenRead)
	if err != nil {
		return nil, errnoFor(err)
	}
	listing, err := drainListing(ctx, handle)
	if err != nil {
		return nil, errnoFor(err)
	}
	stats, err := ninep.DecodeStats(listing)
	if err != nil {
		return nil, fuse.Errno(syscall.EINVAL)
	}
	out := make([]fuse.Dirent, 0, len(stats))
	for _, st := range stats {
		typ := fuse.DT_File
		if st.Qid.Type == ninep.TypeDir {
			typ = fuse.DT_Dir
		}
		out = append(out, fuse.Dirent{Inode: st.Qid.Path, Name: st.Name, Type: typ})
	}
	return out, nil
}

// Open satisfies fs.NodeOpener. A directory open is served by the kernel
// calling ReadDirAll instead; this path matters for leaves, where it
// triggers the debug-file resolver (C7) and returns a handle reading from
// the materialized cursor it produces.
func (n *node) Open(ctx context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fs.Handle, error) {
	if !req.Flags.IsReadOnly() {
		return nil, fuse.EPERM
	}
	if req.Dir {
		// The node itself is the directory handle, so readdir reaches
		// ReadDirAll.
		return n, nil
	}
	handle, err := n.file.Open(ctx, ninep.OpenRead)
	if err != nil {
		return nil, errnoFor(err)
	}
	resp.Flags |= fuse.OpenKeepCache
	return &fileHandle{open: handle}, nil
}

// fileHandle bridges a ninep.OpenFile to bazil.org/fuse's per-offset Read
// contract.
type fileHandle struct {
	open ninep.OpenFile
}

var _ fs.HandleReader = (*fileHandle)(nil)

func (h *fileHandle) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	if req.Offset < 0 {
		return fuse.Errno(syscall.ESPIPE)
	}
	buf := make([]byte, req.Size)
	n, err := h.open.ReadAt(ctx, buf, uint64(req.Offset))
	if err != nil {
		return errnoFor(err)
	}
	resp.Data = buf[:n]
	return nil
}

func drainListing(ctx context.Context, handle ninep.OpenFile) ([]byte, error) {
	var out []byte
	var off uint64
	buf := make([]byte, 4096)
	for {
		n, err := handle.ReadAt(ctx, buf, off)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return out, nil
		}
		out = append(out, buf[:n]...)
		off += uint64(n)
	}
}

func errnoFor(err error) error {
	fe, ok := err.(*ninep.FileError)
	if !ok {
		return fuse.EIO
	}
	switch fe.Code {
	case ninep.EPERM:
		return fuse.EPERM
	case ninep.ENOENT:
		return fuse.ENOENT
	case ninep.EINVAL:
		return fuse.Errno(syscall.EINVAL)
	case ninep.ESPIPE:
		return fuse.Errno(syscall.ESPIPE)
	case ninep.EREMOTEIO:
		return fuse.Errno(syscall.EREMOTEIO)
	default:
		return fuse.EIO
	}
}
