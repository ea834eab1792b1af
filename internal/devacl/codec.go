package devacl

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// Wire layout of system.posix_acl_access: a 4-byte little-endian version
// header followed by 8-byte entries (tag u16, perm u16, qualifier u32).
// See posix_acl_xattr_header in the kernel sources.
const (
	xattrVersion = 2
	headerSize   = 4
	entrySize    = 8

	idUndefined = ^uint32(0)
)

const (
	tagUserObj  = 0x01
	tagUser     = 0x02
	tagGroupObj = 0x04
	tagGroup    = 0x08
	tagMask     = 0x10
	tagOther    = 0x20
)

const (
	permExecute = 0x1
	permWrite   = 0x2
	permRead    = 0x4
)

type aclEntry struct {
	tag  uint16
	perm uint16
	id   uint32
}

func marshalEntries(entries []aclEntry) []byte {
	// The kernel rejects ACLs whose entries are not sorted by tag, then
	// qualifier.
	sorted := make([]aclEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].tag != sorted[j].tag {
			return sorted[i].tag < sorted[j].tag
		}
		return sorted[i].id < sorted[j].id
	})

	buf := make([]byte, headerSize+len(sorted)*entrySize)
	binary.LittleEndian.PutUint32(buf, xattrVersion)
	for i, e := range sorted {
		off := headerSize + i*entrySize
		binary.LittleEndian.PutUint16(buf[off:], e.tag)
		binary.LittleEndian.PutUint16(buf[off+2:], e.perm)
		binary.LittleEndian.PutUint32(buf[off+4:], e.id)
	}
	return buf
}

func unmarshalEntries(data []byte) ([]aclEntry, error) {
	if len(data) < headerSize || (len(data)-headerSize)%entrySize != 0 {
		return nil, fmt.Errorf("malformed acl xattr: %d bytes", len(data))
	}
	if v := binary.LittleEndian.Uint32(data); v != xattrVersion {
		return nil, fmt.Errorf("unsupported acl xattr version %d", v)
	}
	n := (len(data) - headerSize) / entrySize
	entries := make([]aclEntry, n)
	for i := range entries {
		off := headerSize + i*entrySize
		entries[i] = aclEntry{
			tag:  binary.LittleEndian.Uint16(data[off:]),
			perm: binary.LittleEndian.Uint16(data[off+2:]),
			id:   binary.LittleEndian.Uint32(data[off+4:]),
		}
	}
	return entries, nil
}

func hasNamedEntries(entries []aclEntry) bool {
	for _, e := range entries {
		if e.tag == tagUser || e.tag == tagGroup {
			return true
		}
	}
	return false
}

// withMask inserts or refreshes the mask entry. With named entries present
// the mask must cover the whole group class, otherwise the kernel caps the
// named users' effective permissions.
func withMask(entries []aclEntry) []aclEntry {
	var class uint16
	for _, e := range entries {
		switch e.tag {
		case tagUser, tagGroup, tagGroupObj:
			class |= e.perm
		}
	}
	for i := range entries {
		if entries[i].tag == tagMask {
			entries[i].perm = class
			return entries
		}
	}
	return append(entries, aclEntry{tag: tagMask, perm: class, id: idUndefined})
}

func withoutMask(entries []aclEntry) []aclEntry {
	kept := entries[:0:0]
	for _, e := range entries {
		if e.tag == tagMask {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}
