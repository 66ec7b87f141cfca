// Package ninep defines the file-protocol contract the filesystem adapter
// (internal/fusefs) is written against: qids, open modes, and the
// stat/wstat/walk/open/create/unlink operation set described by the remote
// file protocol. The protocol's wire framing, session dispatch, and
// attach/walk/open/read message encoding are assumed to be supplied by an
// external server library (see internal/fusefs); this package only carries
// the shapes that cross that boundary, so the core pipeline (C1-C5, C7) can
// be built and tested without one.
package ninep

import "fmt"

// FileType distinguishes directories from regular files in a Qid.
type FileType uint8

const (
	TypeFile FileType = 0
	TypeDir  FileType = 1
)

// Qid is the three-field identity token the protocol uses to name a file
// uniquely within a server's lifetime.
type Qid struct {
	Type    FileType
	Version uint32
	Path    uint64
}

// Error codes reported to clients, modeled on POSIX errno values.
const (
	EPERM     = 1
	ENOENT    = 2
	EIO       = 5
	EINVAL    = 22
	ESPIPE    = 29
	EREMOTEIO = 121
)

// FileError pairs a protocol error code with a human-readable tag, mirroring
// the (code, name) shape the wire protocol reports to clients.
type FileError struct {
	Code int
	Name string
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s (%d)", e.Name, e.Code)
}

func NewError(code int, name string) *FileError {
	return &FileError{Code: code, Name: name}
}

var (
	ErrPerm     = NewError(EPERM, "EPERM")
	ErrNotExist = NewError(ENOENT, "ENOENT")
	ErrIO       = NewError(EIO, "EIO")
	ErrInval    = NewError(EINVAL, "EINVAL")
	ErrSpipe    = NewError(ESPIPE, "ESPIPE")
	ErrRemoteIO = NewError(EREMOTEIO, "EREMOTEIO")
)

// OpenMode mirrors the direction a client requested when opening a file.
// Only read-only opens are ever satisfied by this filesystem.
type OpenMode uint8

const (
	OpenRead OpenMode = iota
	OpenWrite
	OpenReadWrite
)

func (m OpenMode) ReadOnly() bool { return m == OpenRead }

// Stat is the metadata record returned by stat and serialized into a
// directory's listing on open.
type Stat struct {
	Name string
	Qid  Qid
	UID  uint32
	GID  uint32
	MUID uint32
	Size uint64
	Mode uint32
}

// SizeSentinel is reported for every node's Stat.Size because the true size
// of a debug payload is unknown without fetching and decompressing it.
const SizeSentinel = 1_000_000_000

const (
	ModeDir  = 0o555
	ModeFile = 0o444
)
