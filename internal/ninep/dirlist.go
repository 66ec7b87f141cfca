package ninep

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// EncodeStats serializes a directory's children into the listing buffer an
// open() on a directory node returns. The exact wire shape is owned by the
// external protocol library in production; this is the encoding the core
// uses internally so a directory's contents can be round-tripped and tested
// without that library present.
func EncodeStats(stats []Stat) ([]byte, error) {
	var buf bytes.Buffer
	for _, st := range stats {
		if len(st.Name) > 0xFFFF {
			return nil, fmt.Errorf("ninep: name too long: %q", st.Name)
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(st.Name))); err != nil {
			return nil, err
		}
		buf.WriteString(st.Name)
		if err := binary.Write(&buf, binary.BigEndian, uint8(st.Qid.Type)); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.BigEndian, st.Qid.Version); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.BigEndian, st.Qid.Path); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.BigEndian, st.UID); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.BigEndian, st.GID); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.BigEndian, st.MUID); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.BigEndian, st.Size); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.BigEndian, st.Mode); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DecodeStats parses a buffer produced by EncodeStats back into Stat
// records; internal/fusefs uses it to list a directory, and tests use it to
// assert the round-trip property.
func DecodeStats(b []byte) ([]Stat, error) {
	r := bytes.NewReader(b)
	var out []Stat
	for r.Len() > 0 {
		var nameLen uint16
		if err := binary.Read(r, binary.BigEndian, &nameLen); err != nil {
			return nil, err
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(r, name); err != nil {
			return nil, err
		}
		var st Stat
		st.Name = string(name)
		var typ uint8
		if err := binary.Read(r, binary.BigEndian, &typ); err != nil {
			return nil, err
		}
		st.Qid.Type = FileType(typ)
		if err := binary.Read(r, binary.BigEndian, &st.Qid.Version); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &st.Qid.Path); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &st.UID); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &st.GID); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &st.MUID); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &st.Size); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &st.Mode); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}
